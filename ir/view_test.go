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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSelectThenTuplePredecessorsAndDepth(t *testing.T) {
	q := NewQuery()
	rel := q.Relation("edge", []ColumnType{ColumnTypeInt64, ColumnTypeInt64}, false)
	sel := q.NewSelect([]ColumnType{ColumnTypeInt64, ColumnTypeInt64}, []string{"X", "Y"}, rel, nil)
	require.Equal(t, 0, len(sel.Predecessors()))
	require.Equal(t, uint32(0), sel.Depth())

	tup := q.NewTuple(sel.Columns())
	require.Equal(t, []*View{sel.View}, tup.Predecessors())
	require.Equal(t, uint32(1), tup.Depth())

	require.Equal(t, []*View{tup.View}, sel.Successors())
	require.True(t, sel.NthColumn(0).IsUsed())
}

func TestJoinPivotAndNonPivotColumns(t *testing.T) {
	q := NewQuery()
	relA := q.Relation("a", []ColumnType{ColumnTypeInt64, ColumnTypeUTF8}, false)
	relB := q.Relation("b", []ColumnType{ColumnTypeInt64, ColumnTypeBool}, false)
	selA := q.NewSelect([]ColumnType{ColumnTypeInt64, ColumnTypeUTF8}, []string{"X", "Name"}, relA, nil)
	selB := q.NewSelect([]ColumnType{ColumnTypeInt64, ColumnTypeBool}, []string{"X", "Flag"}, relB, nil)

	join := q.NewJoin(
		[]*View{selA.View, selB.View},
		[][]*Column{{selA.NthColumn(0), selB.NthColumn(0)}},
		[][]*Column{{selA.NthColumn(1)}, {selB.NthColumn(1)}},
	)
	require.Equal(t, 1, join.NumPivots())
	require.False(t, join.IsCrossProduct())
	require.Len(t, join.PivotColumns(), 1)
	require.Len(t, join.NonPivotColumns(), 2)
	require.ElementsMatch(t, []*View{selA.View, selB.View}, join.JoinedViews())
}

func TestMergeAddsColumnUsesWithMatchingOutput(t *testing.T) {
	q := NewQuery()
	rel := q.Relation("path", []ColumnType{ColumnTypeInt64, ColumnTypeInt64}, false)
	sel1 := q.NewSelect([]ColumnType{ColumnTypeInt64, ColumnTypeInt64}, nil, rel, nil)
	sel2 := q.NewSelect([]ColumnType{ColumnTypeInt64, ColumnTypeInt64}, nil, rel, nil)

	merge := q.NewMerge(sel1.View)
	merge.AddMergedView(sel1.View)
	merge.AddMergedView(sel2.View)

	require.Equal(t, 2, merge.Arity())
	require.ElementsMatch(t, []*View{sel1.View, sel2.View}, merge.MergedViews())
	require.True(t, sel1.NthColumn(0).IsUsed())
	require.True(t, sel2.NthColumn(0).IsUsed())
}

func TestNegateTracksSourceAndNeverHint(t *testing.T) {
	q := NewQuery()
	rel := q.Relation("banned", []ColumnType{ColumnTypeInt64}, false)
	relSrc := q.Relation("person", []ColumnType{ColumnTypeInt64}, false)
	source := q.NewSelect([]ColumnType{ColumnTypeInt64}, []string{"ID"}, rel, nil)
	input := q.NewSelect([]ColumnType{ColumnTypeInt64}, []string{"ID"}, relSrc, nil)

	neg := q.NewNegate(source.View, input.Columns())
	require.Equal(t, source.View, neg.NegatedView())
	require.False(t, neg.HasNeverHint())

	neg.SetNeverHintEligible(true)
	require.True(t, neg.NeverHintEligible())
	neg.SetNeverHint(true)
	require.True(t, neg.HasNeverHint())
}

func TestConditionGatingAndSetterTracking(t *testing.T) {
	q := NewQuery()
	rel := q.Relation("r", []ColumnType{ColumnTypeBool}, false)
	setter := q.NewSelect([]ColumnType{ColumnTypeBool}, []string{"Flag"}, rel, nil)
	gated := q.NewTuple(setter.Columns())

	cond := q.NewCondition()
	setter.MarkSetsCondition(cond)
	gated.AddPositiveCondition(cond)

	require.Equal(t, cond, setter.SetCondition())
	require.ElementsMatch(t, []*View{setter.View}, cond.Setters())
	require.ElementsMatch(t, []*View{gated.View}, cond.PositiveUsers())
	require.Len(t, gated.PositiveConditions(), 1)

	gated.RemovePositiveCondition(cond)
	require.Empty(t, gated.PositiveConditions())
	require.Empty(t, cond.PositiveUsers())
}

func TestReplaceAllUsesWithReseatsColumnAndViewUsers(t *testing.T) {
	q := NewQuery()
	rel := q.Relation("r", []ColumnType{ColumnTypeInt64}, false)
	a := q.NewSelect([]ColumnType{ColumnTypeInt64}, []string{"X"}, rel, nil)
	b := q.NewSelect([]ColumnType{ColumnTypeInt64}, []string{"X"}, rel, nil)
	user := q.NewTuple(a.Columns())

	require.Equal(t, []*View{a.View}, user.Predecessors())

	a.View.ReplaceAllUsesWith(b.View)

	require.False(t, a.NthColumn(0).IsUsed())
	require.True(t, b.NthColumn(0).IsUsed())
	require.Equal(t, []*View{b.View}, user.Predecessors())
}

func TestRemoveUnusedViewsDropsDeadTuple(t *testing.T) {
	q := NewQuery()
	rel := q.Relation("r", []ColumnType{ColumnTypeInt64}, false)
	sel := q.NewSelect([]ColumnType{ColumnTypeInt64}, []string{"X"}, rel, nil)
	out := q.Relation("out", []ColumnType{ColumnTypeInt64}, false)
	q.NewInsert(sel.Columns(), out, nil) // keeps the SELECT alive
	q.NewTuple(sel.Columns())            // dead: nothing uses its output

	require.Len(t, q.Views(), 3)
	removed := q.RemoveUnusedViews()
	require.Equal(t, 1, removed)
	require.Len(t, q.Views(), 2)
	require.Equal(t, KindSelect, q.Views()[0].Kind)
}

func TestHashIsStableAcrossEquivalentSelectsAndDiffersByRelation(t *testing.T) {
	q := NewQuery()
	relA := q.Relation("a", []ColumnType{ColumnTypeInt64}, false)
	relB := q.Relation("b", []ColumnType{ColumnTypeInt64}, false)
	sel1 := q.NewSelect([]ColumnType{ColumnTypeInt64}, []string{"X"}, relA, nil)
	sel2 := q.NewSelect([]ColumnType{ColumnTypeInt64}, []string{"X"}, relA, nil)
	sel3 := q.NewSelect([]ColumnType{ColumnTypeInt64}, []string{"X"}, relB, nil)

	require.Equal(t, sel1.Hash(), sel2.Hash())
	require.NotEqual(t, sel1.Hash(), sel3.Hash())
}
