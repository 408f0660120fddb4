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

package lower

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/drlojekyll/dlc/ast"
	"github.com/drlojekyll/dlc/ast/testast"
	"github.com/drlojekyll/dlc/diag"
	"github.com/drlojekyll/dlc/ir"
)

// buildTransitiveClosure constructs the spec.md end-to-end scenario 1:
//
//	#message add_edge(u32 A, u32 B).
//	#local reach(u32 A, u32 B).
//	reach(A, B) : add_edge(A, B).
//	reach(A, C) : add_edge(A, B), reach(B, C).
func buildTransitiveClosure() (*testast.Decl, *testast.Decl) {
	edge := testast.NewDecl("add_edge", ir.DeclMessage,
		&testast.Param{PName: "A", PType: ir.ColumnTypeUint32, PBinding: ir.BindingFree},
		&testast.Param{PName: "B", PType: ir.ColumnTypeUint32, PBinding: ir.BindingFree},
	)
	reach := testast.NewDecl("reach", ir.DeclLocal,
		&testast.Param{PName: "A", PType: ir.ColumnTypeUint32, PBinding: ir.BindingFree},
		&testast.Param{PName: "B", PType: ir.ColumnTypeUint32, PBinding: ir.BindingFree},
	)

	a1 := &testast.Var{VName: "A", VID: 1, VType: ir.ColumnTypeUint32}
	b1 := &testast.Var{VName: "B", VID: 2, VType: ir.ColumnTypeUint32}
	clause1 := testast.NewClause(reach, a1, b1)
	clause1.AddPositive(&testast.Pred{PDecl: edge, PArgs: []ast.Variable{a1, b1}})
	reach.AddClause(clause1)

	a2 := &testast.Var{VName: "A", VID: 1, VType: ir.ColumnTypeUint32}
	b2 := &testast.Var{VName: "B", VID: 2, VType: ir.ColumnTypeUint32}
	c2 := &testast.Var{VName: "C", VID: 3, VType: ir.ColumnTypeUint32}
	clause2 := testast.NewClause(reach, a2, c2)
	clause2.AddPositive(&testast.Pred{PDecl: edge, PArgs: []ast.Variable{a2, b2}})
	clause2.AddPositive(&testast.Pred{PDecl: reach, PArgs: []ast.Variable{b2, c2}})
	reach.AddClause(clause2)

	return edge, reach
}

func TestLowerTransitiveClosureProducesMergeOfTwoInserts(t *testing.T) {
	q := ir.NewQuery()
	log := diag.NewLog()
	edge, reach := buildTransitiveClosure()
	mod := ast.NewModule([]ast.Declaration{edge, reach})

	Lower(q, log, mod, Options{})

	require.Empty(t, log.Entries())

	var merges, inserts, joins, selects []*ir.View
	for _, v := range q.Views() {
		switch v.Kind {
		case ir.KindMerge:
			merges = append(merges, v)
		case ir.KindInsert:
			inserts = append(inserts, v)
		case ir.KindJoin:
			joins = append(joins, v)
		case ir.KindSelect:
			selects = append(selects, v)
		}
	}

	require.Len(t, merges, 1, "reach has two clauses so its producer side gets a MERGE")
	require.Len(t, inserts, 2, "one INSERT per surviving clause")
	require.Len(t, joins, 1, "clause 2 joins add_edge.B with reach.B")
	require.Len(t, selects, 3, "add_edge selects in both clauses, reach selected in clause 2")

	join := joins[0].AsJoin()
	require.Equal(t, 1, join.NumPivots())
	require.False(t, join.IsCrossProduct())
}

func TestLowerCrossProductWithoutAnnotationIsRejected(t *testing.T) {
	q := ir.NewQuery()
	log := diag.NewLog()

	p := testast.NewDecl("p", ir.DeclLocal, &testast.Param{PName: "A", PType: ir.ColumnTypeUint32, PBinding: ir.BindingFree})
	p2 := testast.NewDecl("q", ir.DeclLocal, &testast.Param{PName: "B", PType: ir.ColumnTypeUint32, PBinding: ir.BindingFree})
	bad := testast.NewDecl("bad", ir.DeclLocal,
		&testast.Param{PName: "A", PType: ir.ColumnTypeUint32, PBinding: ir.BindingFree},
		&testast.Param{PName: "B", PType: ir.ColumnTypeUint32, PBinding: ir.BindingFree},
	)
	a := &testast.Var{VName: "A", VID: 1, VType: ir.ColumnTypeUint32}
	b := &testast.Var{VName: "B", VID: 2, VType: ir.ColumnTypeUint32}
	clause := testast.NewClause(bad, a, b)
	clause.AddPositive(&testast.Pred{PDecl: p, PArgs: []ast.Variable{a}})
	clause.AddPositive(&testast.Pred{PDecl: p2, PArgs: []ast.Variable{b}})
	bad.AddClause(clause)

	mod := ast.NewModule([]ast.Declaration{p, p2, bad})
	Lower(q, log, mod, Options{})

	require.NotEmpty(t, log.Entries())
	for _, v := range q.Views() {
		require.NotEqual(t, ir.KindInsert, v.Kind, "no INSERT should be produced for the rejected clause")
	}
}

func TestLowerCrossProductWithAnnotationEmitsZeroPivotJoin(t *testing.T) {
	q := ir.NewQuery()
	log := diag.NewLog()

	p := testast.NewDecl("p", ir.DeclLocal, &testast.Param{PName: "A", PType: ir.ColumnTypeUint32, PBinding: ir.BindingFree})
	p2 := testast.NewDecl("q", ir.DeclLocal, &testast.Param{PName: "B", PType: ir.ColumnTypeUint32, PBinding: ir.BindingFree})
	good := testast.NewDecl("good", ir.DeclLocal,
		&testast.Param{PName: "A", PType: ir.ColumnTypeUint32, PBinding: ir.BindingFree},
		&testast.Param{PName: "B", PType: ir.ColumnTypeUint32, PBinding: ir.BindingFree},
	)
	a := &testast.Var{VName: "A", VID: 1, VType: ir.ColumnTypeUint32}
	b := &testast.Var{VName: "B", VID: 2, VType: ir.ColumnTypeUint32}
	clause := testast.NewClause(good, a, b)
	clause.CCrossProd = true
	clause.AddPositive(&testast.Pred{PDecl: p, PArgs: []ast.Variable{a}})
	clause.AddPositive(&testast.Pred{PDecl: p2, PArgs: []ast.Variable{b}})
	good.AddClause(clause)

	mod := ast.NewModule([]ast.Declaration{p, p2, good})
	Lower(q, log, mod, Options{})

	require.Empty(t, log.Entries())
	var found bool
	for _, v := range q.Views() {
		if v.Kind == ir.KindJoin {
			found = true
			require.True(t, v.AsJoin().IsCrossProduct())
		}
	}
	require.True(t, found)
}
