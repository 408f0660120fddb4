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

package driver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/drlojekyll/dlc/ast"
	"github.com/drlojekyll/dlc/ast/testast"
	"github.com/drlojekyll/dlc/config"
	"github.com/drlojekyll/dlc/ir"
)

func TestCompileTransitiveClosureProducesInsertsAndInductionGroup(t *testing.T) {
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

	mod := ast.NewModule([]ast.Declaration{edge, reach})

	result := Compile(context.Background(), mod, config.Default())
	require.True(t, result.OK())

	var sawGroup bool
	for _, v := range result.Query.Views() {
		if _, ok := v.InductionGroupID(); ok {
			sawGroup = true
		}
	}
	require.True(t, sawGroup, "recursive reach must produce an induction group")
	require.NotEmpty(t, result.Handle.ViewsOfKind(ir.KindInsert))
}
