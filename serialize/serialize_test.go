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

package serialize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/drlojekyll/dlc/ir"
)

func buildSimpleQuery() *ir.Query {
	q := ir.NewQuery()
	rel := q.Relation("r", []ir.ColumnType{ir.ColumnTypeUint32}, false)
	sel := q.NewSelect([]ir.ColumnType{ir.ColumnTypeUint32}, []string{"A"}, rel, nil)
	tup := q.NewTuple([]*ir.Column{sel.NthColumn(0)})
	out := q.Relation("out", []ir.ColumnType{ir.ColumnTypeUint32}, false)
	q.NewInsert(tup.Columns(), out, nil)
	return q
}

func TestDebugStringMentionsEveryView(t *testing.T) {
	h := New(buildSimpleQuery())
	s := h.DebugString()
	require.Contains(t, s, "SELECT")
	require.Contains(t, s, "TUPLE")
	require.Contains(t, s, "INSERT")
}

func TestDOTIncludesNodesAndEdges(t *testing.T) {
	h := New(buildSimpleQuery())
	dot := h.DOT()
	require.True(t, strings.HasPrefix(dot, "digraph dlc {"))
	require.Contains(t, dot, "->")
	for _, v := range h.Views() {
		require.Contains(t, dot, nodeLabel(v))
	}
}

func TestDOTHighlightsNeverHintedNegate(t *testing.T) {
	q := ir.NewQuery()
	rel := q.Relation("r", []ir.ColumnType{ir.ColumnTypeUint32}, false)
	sel := q.NewSelect([]ir.ColumnType{ir.ColumnTypeUint32}, []string{"A"}, rel, nil)
	src := q.NewSelect([]ir.ColumnType{ir.ColumnTypeUint32}, []string{"A"}, rel, nil)
	neg := q.NewNegate(src.View, []*ir.Column{sel.NthColumn(0)})
	neg.SetNeverHint(true)

	h := New(q)
	require.Contains(t, h.DOT(), "@never")
}
