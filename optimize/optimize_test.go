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

package optimize

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/drlojekyll/dlc/ir"
)

func TestRunCanonicalizesSingleInputMerge(t *testing.T) {
	q := ir.NewQuery()
	rel := q.Relation("r", []ir.ColumnType{ir.ColumnTypeUint32}, false)
	sel := q.NewSelect([]ir.ColumnType{ir.ColumnTypeUint32}, []string{"A"}, rel, nil)
	merge := q.NewMerge(sel.View)
	merge.AddMergedView(sel.View)
	q.NewInsert(merge.Columns(), q.Relation("out", []ir.ColumnType{ir.ColumnTypeUint32}, false), nil)

	Run(context.Background(), q, Options{})

	for _, v := range q.Views() {
		require.NotEqual(t, ir.KindMerge, v.Kind, "single-input MERGE should canonicalize away")
	}
}

func TestRunDeduplicatesIdenticalSelects(t *testing.T) {
	q := ir.NewQuery()
	rel := q.Relation("r", []ir.ColumnType{ir.ColumnTypeUint32}, false)
	sel1 := q.NewSelect([]ir.ColumnType{ir.ColumnTypeUint32}, []string{"A"}, rel, nil)
	sel2 := q.NewSelect([]ir.ColumnType{ir.ColumnTypeUint32}, []string{"A"}, rel, nil)
	tup1 := q.NewTuple([]*ir.Column{sel1.NthColumn(0)})
	tup2 := q.NewTuple([]*ir.Column{sel2.NthColumn(0)})
	out := q.Relation("out", []ir.ColumnType{ir.ColumnTypeUint32}, false)
	q.NewInsert(tup1.Columns(), out, nil)
	q.NewInsert(tup2.Columns(), out, nil)

	Run(context.Background(), q, Options{})

	selects := q.ViewsOfKind(ir.KindSelect)
	require.Len(t, selects, 1, "the two identical SELECTs should CSE into one")
}

func TestRunCanonicalizesMergeInputOrder(t *testing.T) {
	q := ir.NewQuery()
	relA := q.Relation("a", []ir.ColumnType{ir.ColumnTypeUint32}, false)
	relB := q.Relation("b", []ir.ColumnType{ir.ColumnTypeUint32}, false)
	selA := q.NewSelect([]ir.ColumnType{ir.ColumnTypeUint32}, []string{"A"}, relA, nil)
	selB := q.NewSelect([]ir.ColumnType{ir.ColumnTypeUint32}, []string{"A"}, relB, nil)

	// Build one ordering of the two inputs: whichever order View.Hash()
	// prefers, the surviving MERGE must list its inputs sorted by hash
	// once the rule has run.
	mergeAB := q.NewMerge(selA.View)
	mergeAB.AddMergedView(selA.View)
	mergeAB.AddMergedView(selB.View)
	outAB := q.Relation("out_ab", []ir.ColumnType{ir.ColumnTypeUint32}, false)
	q.NewInsert(mergeAB.Columns(), outAB, nil)

	Run(context.Background(), q, Options{})

	merges := q.ViewsOfKind(ir.KindMerge)
	require.Len(t, merges, 1)
	merged := merges[0].AsMerge().MergedViews()
	require.Len(t, merged, 2)
	require.True(t, merged[0].Hash() <= merged[1].Hash(), "merged views should be sorted by hash")
}

func TestRunFoldsConstantJoinPivot(t *testing.T) {
	q := ir.NewQuery()
	relA := q.Relation("a", []ir.ColumnType{ir.ColumnTypeUint32}, false)
	relB := q.Relation("b", []ir.ColumnType{ir.ColumnTypeUint32}, false)
	selA := q.NewSelect([]ir.ColumnType{ir.ColumnTypeUint32}, []string{"X"}, relA, nil)
	selB := q.NewSelect([]ir.ColumnType{ir.ColumnTypeUint32}, []string{"X"}, relB, nil)

	lit := q.NewConstant(ir.ColumnTypeUint32, "7")
	litTup := q.NewConstantTuple(lit)
	pin := q.NewCompare(ir.ComparisonEq, selA.NthColumn(0), litTup.NthColumn(0), nil)

	join := q.NewJoin([]*ir.View{pin.View, selB.View}, [][]*ir.Column{{pin.ComparisonColumns()[0], selB.NthColumn(0)}}, nil)
	out := q.Relation("out", []ir.ColumnType{ir.ColumnTypeUint32}, false)
	q.NewInsert(join.Columns(), out, nil)

	Run(context.Background(), q, Options{})

	for _, v := range q.Views() {
		if v.Kind != ir.KindJoin {
			continue
		}
		require.Equal(t, 0, v.AsJoin().NumPivots(), "the constant-forced pivot should have been eliminated")
	}
}

func TestRunDropsDeadTupleColumn(t *testing.T) {
	q := ir.NewQuery()
	rel := q.Relation("r", []ir.ColumnType{ir.ColumnTypeUint32, ir.ColumnTypeUint32}, false)
	sel := q.NewSelect([]ir.ColumnType{ir.ColumnTypeUint32, ir.ColumnTypeUint32}, []string{"A", "B"}, rel, nil)
	tup := q.NewTuple([]*ir.Column{sel.NthColumn(0), sel.NthColumn(1)})
	out := q.Relation("out", []ir.ColumnType{ir.ColumnTypeUint32}, false)
	// only the first tuple column is ever read downstream
	q.NewInsert([]*ir.Column{tup.NthColumn(0)}, out, nil)

	Run(context.Background(), q, Options{})

	for _, v := range q.ViewsOfKind(ir.KindTuple) {
		require.Equal(t, 1, v.Arity(), "dead second column should have been pruned")
	}
}

func TestRunSinksComparisonThroughMerge(t *testing.T) {
	q := ir.NewQuery()
	relA := q.Relation("a", []ir.ColumnType{ir.ColumnTypeUint32, ir.ColumnTypeUint32}, false)
	relB := q.Relation("b", []ir.ColumnType{ir.ColumnTypeUint32, ir.ColumnTypeUint32}, false)
	selA := q.NewSelect([]ir.ColumnType{ir.ColumnTypeUint32, ir.ColumnTypeUint32}, []string{"X", "Y"}, relA, nil)
	selB := q.NewSelect([]ir.ColumnType{ir.ColumnTypeUint32, ir.ColumnTypeUint32}, []string{"X", "Y"}, relB, nil)

	merge := q.NewMerge(selA.View)
	merge.AddMergedView(selA.View)
	merge.AddMergedView(selB.View)

	cmp := q.NewCompare(ir.ComparisonEq, merge.NthColumn(0), merge.NthColumn(1), nil)
	out := q.Relation("out", []ir.ColumnType{ir.ColumnTypeUint32}, false)
	q.NewInsert(cmp.ComparisonColumns(), out, nil)

	Run(context.Background(), q, Options{})

	for _, v := range q.ViewsOfKind(ir.KindCompare) {
		for _, p := range v.Predecessors() {
			require.NotEqual(t, ir.KindMerge, p.Kind, "COMPARE reading a MERGE's columns should have sunk through it")
		}
	}
}

func TestRunPropagatesNeverHintThroughNonRetractableSource(t *testing.T) {
	q := ir.NewQuery()
	rel := q.Relation("base", []ir.ColumnType{ir.ColumnTypeUint32}, false)
	sel := q.NewSelect([]ir.ColumnType{ir.ColumnTypeUint32}, []string{"A"}, rel, nil)
	src := q.NewSelect([]ir.ColumnType{ir.ColumnTypeUint32}, []string{"A"}, rel, nil)
	neg := q.NewNegate(src.View, []*ir.Column{sel.NthColumn(0)})
	tup := q.NewTuple(neg.Columns())
	out := q.Relation("out", []ir.ColumnType{ir.ColumnTypeUint32}, false)
	q.NewInsert(tup.Columns(), out, nil)

	Run(context.Background(), q, Options{})

	require.True(t, neg.HasNeverHint())
}
