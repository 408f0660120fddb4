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

package induction

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/drlojekyll/dlc/diag"
	"github.com/drlojekyll/dlc/ir"
)

// buildCycle constructs SELECT -> JOIN -> TUPLE -> MERGE -> back into the
// JOIN's second input, the minimal induction group shape: a MERGE whose
// own output feeds back into one of its contributing views.
func buildCycle(q *ir.Query) (sel, join, merge, tup *ir.View) {
	base := q.NewSelect([]ir.ColumnType{ir.ColumnTypeUint32}, []string{"A"}, q.Relation("base", []ir.ColumnType{ir.ColumnTypeUint32}, false), nil)
	m := q.NewMerge(base.View)

	j := q.NewJoin([]*ir.View{base.View, m.View}, [][]*ir.Column{{base.NthColumn(0), m.NthColumn(0)}}, nil)
	t := q.NewTuple([]*ir.Column{j.NthColumn(0)})

	m.AddMergedView(base.View)
	m.AddMergedView(t.View)

	return base.View, j.View, m.View, t.View
}

func TestAnalyzeAssignsInductionGroupToMergeCycle(t *testing.T) {
	q := ir.NewQuery()
	log := diag.NewLog()
	_, join, merge, tup := buildCycle(q)

	Analyze(q, log)

	require.Empty(t, log.Entries())

	mergeGroup, ok := merge.InductionGroupID()
	require.True(t, ok)
	joinGroup, ok := join.InductionGroupID()
	require.True(t, ok)
	tupGroup, ok := tup.InductionGroupID()
	require.True(t, ok)
	require.Equal(t, mergeGroup, joinGroup)
	require.Equal(t, mergeGroup, tupGroup)
}

func TestAnalyzeLeavesAcyclicViewsUngrouped(t *testing.T) {
	q := ir.NewQuery()
	log := diag.NewLog()
	sel := q.NewSelect([]ir.ColumnType{ir.ColumnTypeUint32}, []string{"A"}, q.Relation("r", []ir.ColumnType{ir.ColumnTypeUint32}, false), nil)

	Analyze(q, log)

	require.Empty(t, log.Entries())
	_, ok := sel.View.InductionGroupID()
	require.False(t, ok)
}
