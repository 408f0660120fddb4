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

// Package ast declares the read-only surface that lowering consumes
// from the parser. None of these types are ever constructed here: the
// lexer/token-stream/parser producing them is explicitly out of scope.
// ast/testast provides the one in-memory implementation this module
// uses to exercise lowering without a real parser.
package ast

import "github.com/drlojekyll/dlc/ir"

// SourceSpan is an optional provenance range threaded through for
// diagnostics and DebugString; the zero value means "no span known".
type SourceSpan struct {
	File        string
	Line, Col   int
	EndLine     int
	EndCol      int
}

// IsZero reports whether this span carries no provenance.
func (s SourceSpan) IsZero() bool { return s.File == "" && s.Line == 0 }

// Module is a bag of declarations (spec.md §4.B / §6.2). Clauses are
// reached through their declarations; imports, inline code blocks and
// foreign-type/constant declarations are not represented.
type Module struct {
	decls []Declaration
}

// NewModule wraps a fixed set of declarations into a Module. Clauses are
// reached through their owning Declaration (ClausesOf), matching how the
// original groups clauses under the declaration they define.
func NewModule(decls []Declaration) *Module { return &Module{decls: decls} }

func (m *Module) Declarations() []Declaration { return m.decls }

// Declaration is one query/message/functor/exported/local declaration,
// possibly redeclared (matching parameter shape checked at diagnostic
// time, not here).
type Declaration interface {
	Name() string
	Arity() int
	Kind() ir.DeclKind
	Parameters() []Parameter
	Clauses() []Clause
	// Redeclarations returns every other Declaration sharing this name
	// and arity, for the "redeclaration differs" consistency check.
	Redeclarations() []Declaration
	// Inline reports whether this declaration carries the inline
	// pragma (inline-only declarations may not be negated, spec §7.2).
	Inline() bool
	// FunctorRange is meaningful only when Kind() == ir.DeclFunctor.
	FunctorRange() ir.FunctorRange
	// Pure reports whether a functor declaration is pure (no side
	// effects, deterministic — relevant to future optimizer passes,
	// not checked by this module's lowering/optimize passes today).
	Pure() bool
	Span() SourceSpan
}

// Parameter is one ordered parameter of a Declaration.
type Parameter interface {
	Name() string
	Type() ir.ColumnType
	Binding() ir.Binding
}

// Clause is a Horn-rule-like body: head declaration, head variables, and
// a body of positive predicates, negated predicates, assignments,
// comparisons, and aggregates.
type Clause interface {
	Head() Declaration
	HeadVariables() []Variable
	PositivePredicates() []Predicate
	NegatedPredicates() []Negation
	Assignments() []Assignment
	Comparisons() []Comparison
	Aggregates() []Aggregate
	// DisabledByFalse reports whether this clause's body is the literal
	// `false` predicate, marking it dead (spec.md Open Question #2: see
	// DESIGN.md for the chosen disabled-vs-inline precedence policy).
	DisabledByFalse() bool
	// CrossProductAnnotated reports whether this clause carries the
	// pragma permitting a zero-pivot JOIN (spec.md example 4, `@product`).
	CrossProductAnnotated() bool
	Span() SourceSpan
}

// Predicate is a positive body atom: a declaration applied to argument
// variables.
type Predicate interface {
	Declaration() Declaration
	Arguments() []Variable
	Span() SourceSpan
}

// Negation is a negated body atom, with the optional `@never` hint
// requesting (not guaranteeing — the optimizer verifies the
// precondition) that the corresponding NEGATE be marked never-hinted.
type Negation interface {
	Predicate
	NeverHint() bool
}

// Assignment is `variable = literal`.
type Assignment interface {
	Variable() Variable
	Value() Literal
	Span() SourceSpan
}

// Comparison is `variable op variable`.
type Comparison interface {
	Operator() ir.ComparisonOperator
	LHS() Variable
	RHS() Variable
	Span() SourceSpan
}

// Aggregate is a functor applied over a sub-body: `functor(args) over
// subbody`. The sub-body is exposed as a synthetic single-clause
// declaration per spec.md §9's "Aggregate sub-bodies" design note.
type Aggregate interface {
	Functor() Declaration
	GroupVariables() []Variable
	ConfigVariables() []Variable
	AggregatedVariables() []Variable
	SummaryVariables() []Variable
	SubBody() Declaration
	Span() SourceSpan
}

// Variable is a clause-scoped textual variable. Two Variables with equal
// ID() share "first appearance" identity within their clause (spec.md
// §3.2 / §9).
type Variable interface {
	Name() string
	ID() uint64
	Type() ir.ColumnType
	Span() SourceSpan
}

// Literal is a compile-time constant value.
type Literal interface {
	Type() ir.ColumnType
	Text() string
	Span() SourceSpan
}
