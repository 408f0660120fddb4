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

package ir

import (
	"github.com/mitchellh/hashstructure"
)

// hashShape is the structural projection of a view that CSE keys on:
// kind, per-kind scalar configuration, column types, and the *identity*
// of every input column's defining view plus its ordinal position
// (never a recursive hash of the predecessor — that would make the hash
// unstable across intermediate rewrites of upstream views and defeat
// memoized recomputation).
type hashShape struct {
	Kind    ViewKind
	Config  any
	ColType []ColumnType
	Inputs  []inputShape
}

type inputShape struct {
	Role       InputColumnRole
	DefViewID  uint32
	ColIndex   int
}

// Hash returns a structural hash suitable for keying common-subexpression
// elimination: two views with equal Hash() are candidates for merging,
// but callers must still confirm structural equality before replacing
// one with the other (hash collisions are possible). Memoized until the
// next Update.
func (v *View) Hash() uint64 {
	if v.hashValid {
		return v.hash
	}
	shape := hashShape{Kind: v.Kind, Config: v.hashConfig()}
	for _, c := range v.columns.All() {
		shape.ColType = append(shape.ColType, c.Type)
	}
	for _, in := range v.inputs {
		if !in.use.Valid() {
			continue
		}
		target := in.use.Target()
		shape.Inputs = append(shape.Inputs, inputShape{
			Role:      in.role,
			DefViewID: target.DefiningView().id,
			ColIndex:  target.Index,
		})
	}
	for _, iv := range v.inputViews {
		if iv.Valid() {
			shape.Inputs = append(shape.Inputs, inputShape{Role: -1, DefViewID: iv.Target().id})
		}
	}
	h, err := hashstructure.Hash(shape, nil)
	if err != nil {
		// hashstructure only errors on unsupported field types, which
		// hashShape never contains; treat as a programmer error.
		panic(err)
	}
	v.hash = h
	v.hashValid = true
	return v.hash
}

// hashConfig returns the per-kind scalar configuration that participates
// in the structural hash (e.g. a MAP's functor name, a COMPARE's
// operator) but is not itself an input column or output type.
func (v *View) hashConfig() any {
	switch d := v.data.(type) {
	case *selectData:
		relID, strmID := -1, -1
		if d.relation != nil {
			relID = int(d.relation.id)
		}
		if d.stream != nil {
			strmID = int(d.stream.id)
		}
		return [2]int{relID, strmID}
	// hashstructure skips unexported struct fields, so each kind's
	// configuration is spelled out as plain values it can see.
	case *tupleData:
		if d.constant != nil {
			return [2]string{d.constant.Type.String(), d.constant.Value}
		}
		return nil
	case *kvIndexData:
		return []any{d.keyArity, d.valueMergeFunctors}
	case *joinData:
		return d.numPivots
	case *mapData:
		return []any{d.functorName, d.rng, d.negated}
	case *aggregateData:
		return []any{d.functorName, d.numGroupCols, d.numConfigCols, d.numAggregated}
	case *compareData:
		return d.operator
	case *insertData:
		relID, strmID := -1, -1
		if d.relation != nil {
			relID = int(d.relation.id)
		}
		if d.stream != nil {
			strmID = int(d.stream.id)
		}
		return [2]int{relID, strmID}
	default:
		return nil
	}
}
