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
	"fmt"
	"strings"

	"github.com/drlojekyll/dlc/ir"
)

// defaultPalette maps a view's Color (0 means untagged) onto a small
// fixed set of GraphViz fill colors; Color values beyond the palette
// wrap around rather than falling back to a single color, so distinct
// @highlight tags stay visually distinguishable up to palette size.
var defaultPalette = []string{
	"white", "lightpink", "lightblue", "lightgoldenrod",
	"lightgreen", "lightsalmon", "plum", "khaki",
}

// DOT renders the query's view graph as a GraphViz digraph: one node
// per view, labeled with its kind and id, filled per its Color (the
// `@highlight` pragma's color tag), one edge per input-column use
// labeled with its role.
func (h *Handle) DOT() string {
	var b strings.Builder
	b.WriteString("digraph dlc {\n  rankdir=BT;\n  node [shape=box, style=filled];\n")

	for _, v := range sortedViewIDs(h.Views()) {
		fill := defaultPalette[int(v.Color)%len(defaultPalette)]
		fmt.Fprintf(&b, "  v%d [label=%q, fillcolor=%q];\n", v.ID(), nodeLabel(v), fill)
	}

	for _, v := range sortedViewIDs(h.Views()) {
		v.ForEachUse(func(in *ir.Column, role ir.InputColumnRole, out *ir.Column) {
			src := in.DefiningView()
			fmt.Fprintf(&b, "  v%d -> v%d [label=%q];\n", src.ID(), v.ID(), roleName(role))
		})
		for _, pred := range v.Predecessors() {
			if !hasColumnEdge(v, pred) {
				fmt.Fprintf(&b, "  v%d -> v%d [style=dashed, label=%q];\n", pred.ID(), v.ID(), "view")
			}
		}
	}

	for _, cond := range h.Conditions() {
		condNode := fmt.Sprintf("cond%d", cond.ID())
		fmt.Fprintf(&b, "  %s [shape=diamond, label=%q];\n", condNode, condNode)
		for _, setter := range cond.Setters() {
			fmt.Fprintf(&b, "  v%d -> %s [style=dotted, label=%q];\n", setter.ID(), condNode, "sets")
		}
		for _, user := range cond.PositiveUsers() {
			fmt.Fprintf(&b, "  %s -> v%d [style=dotted, label=%q];\n", condNode, user.ID(), "if")
		}
		for _, user := range cond.NegativeUsers() {
			fmt.Fprintf(&b, "  %s -> v%d [style=dotted, label=%q];\n", condNode, user.ID(), "unless")
		}
	}

	b.WriteString("}\n")
	return b.String()
}

func nodeLabel(v *ir.View) string {
	label := fmt.Sprintf("%s(%d)", v.Kind, v.ID())
	if v.HasNeverHint() {
		label += "\\n@never"
	}
	return label
}

// hasColumnEdge reports whether v already has a column-level use edge
// from pred (drawn by the ForEachUse loop above), so the view-level
// predecessor loop doesn't draw a redundant second edge for e.g. JOIN
// and MERGE, whose joined/merged views are both column- and
// view-level predecessors.
func hasColumnEdge(v, pred *ir.View) bool {
	found := false
	v.ForEachUse(func(in *ir.Column, _ ir.InputColumnRole, _ *ir.Column) {
		if in.DefiningView() == pred {
			found = true
		}
	})
	return found
}
