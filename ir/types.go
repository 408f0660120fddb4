// Copyright 2020-2021 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ir implements the Query dataflow intermediate representation:
// a graph of Views connected by column use-def edges, built by lowering
// and rewritten to a fixpoint by the optimizer.
package ir

// ColumnType enumerates the semantic types a Column can carry.
type ColumnType int

const (
	ColumnTypeInvalid ColumnType = iota
	ColumnTypeBool
	ColumnTypeInt8
	ColumnTypeInt16
	ColumnTypeInt32
	ColumnTypeInt64
	ColumnTypeUint8
	ColumnTypeUint16
	ColumnTypeUint32
	ColumnTypeUint64
	ColumnTypeFloat32
	ColumnTypeFloat64
	ColumnTypeUTF8
	ColumnTypeASCII
	ColumnTypeUUID
	ColumnTypeBytes
	ColumnTypeForeign
)

func (t ColumnType) String() string {
	switch t {
	case ColumnTypeBool:
		return "bool"
	case ColumnTypeInt8:
		return "i8"
	case ColumnTypeInt16:
		return "i16"
	case ColumnTypeInt32:
		return "i32"
	case ColumnTypeInt64:
		return "i64"
	case ColumnTypeUint8:
		return "u8"
	case ColumnTypeUint16:
		return "u16"
	case ColumnTypeUint32:
		return "u32"
	case ColumnTypeUint64:
		return "u64"
	case ColumnTypeFloat32:
		return "f32"
	case ColumnTypeFloat64:
		return "f64"
	case ColumnTypeUTF8:
		return "utf8"
	case ColumnTypeASCII:
		return "ascii"
	case ColumnTypeUUID:
		return "uuid"
	case ColumnTypeBytes:
		return "bytes"
	case ColumnTypeForeign:
		return "foreign"
	default:
		return "invalid"
	}
}

// ComparisonOperator is the operator of a COMPARE view.
type ComparisonOperator int

const (
	ComparisonEq ComparisonOperator = iota
	ComparisonNeq
	ComparisonLt
	ComparisonGt
)

func (op ComparisonOperator) String() string {
	switch op {
	case ComparisonEq:
		return "="
	case ComparisonNeq:
		return "!="
	case ComparisonLt:
		return "<"
	case ComparisonGt:
		return ">"
	default:
		return "?"
	}
}

// ViewKind tags the variant of a View.
type ViewKind int

const (
	KindSelect ViewKind = iota
	KindTuple
	KindKVIndex
	KindJoin
	KindMap
	KindAggregate
	KindMerge
	KindNegate
	KindCompare
	KindInsert
)

func (k ViewKind) String() string {
	switch k {
	case KindSelect:
		return "SELECT"
	case KindTuple:
		return "TUPLE"
	case KindKVIndex:
		return "KVINDEX"
	case KindJoin:
		return "JOIN"
	case KindMap:
		return "MAP"
	case KindAggregate:
		return "AGGREGATE"
	case KindMerge:
		return "MERGE"
	case KindNegate:
		return "NEGATE"
	case KindCompare:
		return "COMPARE"
	case KindInsert:
		return "INSERT"
	default:
		return "?"
	}
}

// InputColumnRole is the exhaustive role tag for a view's input column
// slot, per spec.md §4.D.
type InputColumnRole int

const (
	RoleCopied InputColumnRole = iota
	RoleNegated
	RoleJoinPivot
	RoleJoinNonPivot
	RoleCompareLHS
	RoleCompareRHS
	RoleIndexKey
	RoleIndexValue
	RoleFunctorInput
	RoleAggregateConfig
	RoleAggregateGroup
	RoleAggregatedColumn
	RoleMergedColumn
	RoleMaterialized
	RolePublished
)

// DeclKind is the kind of a declaration consumed from the AST boundary.
type DeclKind int

const (
	DeclQuery DeclKind = iota
	DeclMessage
	DeclFunctor
	DeclExported
	DeclLocal
)

// Binding is a parameter's binding attribute.
type Binding int

const (
	BindingBound Binding = iota
	BindingFree
	BindingAggregate
	BindingSummary
	BindingImplicit
)

// FunctorRange is a functor's declared output multiplicity.
type FunctorRange int

const (
	RangeOneToOne FunctorRange = iota
	RangeZeroOrOne
	RangeOneOrMore
	RangeZeroOrMore
)

// IsGuaranteedNonEmpty reports whether every application of a functor
// with this range is guaranteed to produce at least one output — used by
// lowering to reject negation of such functors (spec.md §7.2).
func (r FunctorRange) IsGuaranteedNonEmpty() bool {
	return r == RangeOneToOne || r == RangeOneOrMore
}
