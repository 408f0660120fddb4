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
	"github.com/drlojekyll/dlc/internal/defuse"
)

// inputColumnUse is one input-column slot on a view: a strong use of
// another view's output column, tagged with its semantic role and
// (for most roles) the output column it flows into.
type inputColumnUse struct {
	use    *defuse.Use[*Column]
	role   InputColumnRole
	outCol *Column // nil for e.g. negated/compare-rhs slots that don't map 1:1 to an output
}

// View is the single concrete node type for every dataflow variant
// (SELECT, TUPLE, KV-INDEX, JOIN, MAP, AGGREGATE, MERGE, NEGATE, COMPARE,
// INSERT). Per-kind state lives in the `data` field as one of the
// *kindData types in kinds.go; typed wrappers (Select, Join, Merge, ...)
// are thin views over a *View plus its data, realizing the design note
// "one opaque handle type plus per-kind typed wrappers" without a
// kind-enum + dense-array dispatch table — see DESIGN.md.
type View struct {
	defuse.Def[*View]

	id    uint32
	query *Query
	Kind  ViewKind

	columns defuse.DefList[*Column]
	inputs  []inputColumnUse

	// inputViews holds direct strong uses of other views: JOIN's joined
	// views, MERGE's incoming views, NEGATE's negated source.
	inputViews []*defuse.Use[*View]

	positiveConds []*defuse.Use[*Condition]
	negativeConds []*defuse.Use[*Condition]
	setCondition  *defuse.Use[*Condition]

	Color uint32

	neverHint bool

	hashValid bool
	hash      uint64

	depthValid bool
	depth      uint32

	inductionGroup    int
	hasInductionGroup bool
	inductionDepth    int
	inductivePreds    map[*View]bool
	inductiveSuccs    map[*View]bool

	data any
}

// DefUse implements defuse.Definition[*View]: the use list of direct
// view-level strong uses (JOIN/MERGE/NEGATE slots pointing at this view).
func (v *View) DefUse() *defuse.Def[*View] { return &v.Def }

// Update implements defuse.User: any reseat of one of this view's input
// slots invalidates its cached hash and depth.
func (v *View) Update(ts uint64) {
	v.hashValid = false
	v.depthValid = false
}

// ID returns a stable per-Query identifier for this view.
func (v *View) ID() uint32 { return v.id }

// Columns returns this view's output columns in ordinal order.
func (v *View) Columns() []*Column { return v.columns.All() }

// NthColumn returns the nth output column.
func (v *View) NthColumn(n int) *Column { return v.columns.All()[n] }

// Arity is the number of output columns.
func (v *View) Arity() int { return v.columns.Size() }

func (v *View) newColumn(typ ColumnType, varName string) *Column {
	col := &Column{view: v, Index: v.columns.Size(), Type: typ, VarName: varName, Color: v.Color}
	col.id = v.query.nextColumnID()
	v.columns.Append(col)
	return col
}

// addInput adds an input-column slot holding a strong use of `col`,
// tagged with role, and returns the created Use.
func (v *View) addInput(role InputColumnRole, col *Column, outCol *Column) *defuse.Use[*Column] {
	u := defuse.CreateUse[*Column](col, col, v)
	v.inputs = append(v.inputs, inputColumnUse{use: u, role: role, outCol: outCol})
	return u
}

// addInputView adds a direct strong use of another view (JOIN joined
// views, MERGE incoming views, NEGATE source).
func (v *View) addInputView(other *View) *defuse.Use[*View] {
	u := defuse.CreateUse[*View](other, other, v)
	v.inputViews = append(v.inputViews, u)
	return u
}

// InputColumns returns every input-column slot's live target column, in
// slot order. Slots whose target has been severed are skipped.
func (v *View) InputColumns() []*Column {
	out := make([]*Column, 0, len(v.inputs))
	for _, in := range v.inputs {
		if in.use.Valid() {
			out = append(out, in.use.Target())
		}
	}
	return out
}

// ForEachUse calls cb once per live input-column slot, with the input
// column, its role, and the output column it feeds (if any) — the
// backend-facing contract of spec.md §4.G.
func (v *View) ForEachUse(cb func(in *Column, role InputColumnRole, out *Column)) {
	for _, in := range v.inputs {
		if in.use.Valid() {
			cb(in.use.Target(), in.role, in.outCol)
		}
	}
}

// Predecessors returns the set of views feeding this view's input
// columns or input-view slots, deduplicated.
func (v *View) Predecessors() []*View {
	seen := map[*View]bool{}
	var out []*View
	add := func(p *View) {
		if p != nil && !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for _, in := range v.inputs {
		if in.use.Valid() {
			add(in.use.Target().DefiningView())
		}
	}
	for _, iv := range v.inputViews {
		if iv.Valid() {
			add(iv.Target())
		}
	}
	return out
}

// Successors returns every view that holds a use of one of this view's
// output columns, or a direct view-level use of this view.
func (v *View) Successors() []*View {
	seen := map[*View]bool{}
	var out []*View
	add := func(s *View) {
		if s != nil && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, col := range v.columns.All() {
		col.ForEachUser(add)
	}
	defuse.ForEachUse[*View](v, func(user defuse.User, _ *View) {
		add(user.(*View))
	})
	return out
}

// Depth is the longest path from any SELECT/RECV, per spec.md §4.D. It is
// memoized and invalidated whenever Update fires (i.e. on any rewrite
// touching this view's inputs); a MERGE participating in a cycle gets its
// depth assigned by induction analysis instead (see induction package).
func (v *View) Depth() uint32 {
	if v.depthValid {
		return v.depth
	}
	preds := v.Predecessors()
	if len(preds) == 0 {
		v.depth = 0
	} else {
		var max uint32
		for _, p := range preds {
			if d := p.Depth(); d > max {
				max = d
			}
		}
		v.depth = max + 1
	}
	v.depthValid = true
	return v.depth
}

// PositiveConditions / NegativeConditions are the gates this view is
// predicated on.
func (v *View) PositiveConditions() []*Condition {
	return resolveConds(v.positiveConds)
}

func (v *View) NegativeConditions() []*Condition {
	return resolveConds(v.negativeConds)
}

func resolveConds(uses []*defuse.Use[*Condition]) []*Condition {
	var out []*Condition
	for _, u := range uses {
		if u.Valid() {
			out = append(out, u.Target())
		}
	}
	return out
}

// AddPositiveCondition / AddNegativeCondition gate this view on cond.
func (v *View) AddPositiveCondition(cond *Condition) {
	u := defuse.CreateUse[*Condition](cond, cond, v)
	v.positiveConds = append(v.positiveConds, u)
	cond.addPositiveUser(v)
}

func (v *View) AddNegativeCondition(cond *Condition) {
	u := defuse.CreateUse[*Condition](cond, cond, v)
	v.negativeConds = append(v.negativeConds, u)
	cond.addNegativeUser(v)
}

// RemovePositiveCondition / RemoveNegativeCondition undo a gating
// attachment; used by condition hoisting when every input of a MERGE
// gates on the same condition and the gate is hoisted onto the MERGE
// itself.
func (v *View) RemovePositiveCondition(cond *Condition) {
	for i, u := range v.positiveConds {
		if u.Target() == cond {
			defuse.EraseUse[*Condition](cond, u)
			v.positiveConds = append(v.positiveConds[:i], v.positiveConds[i+1:]...)
			cond.removePositiveUser(v)
			return
		}
	}
}

func (v *View) RemoveNegativeCondition(cond *Condition) {
	for i, u := range v.negativeConds {
		if u.Target() == cond {
			defuse.EraseUse[*Condition](cond, u)
			v.negativeConds = append(v.negativeConds[:i], v.negativeConds[i+1:]...)
			cond.removeNegativeUser(v)
			return
		}
	}
}

// SetCondition returns the condition this view sets, if any (invariant
// 8: a view that sets a condition produces exactly one output).
func (v *View) SetCondition() *Condition {
	if v.setCondition == nil || !v.setCondition.Valid() {
		return nil
	}
	return v.setCondition.Target()
}

// MarkSetsCondition records that this view is a setter of cond.
// Invariant 8 (exactly one output column) is enforced by the caller
// (lowering / optimizer condition-hoisting).
func (v *View) MarkSetsCondition(cond *Condition) {
	u := defuse.CreateUse[*Condition](cond, cond, v)
	v.setCondition = u
	cond.addSetter(v)
}

// ClearSetsCondition removes this view's condition-setter role. The
// optimizer's condition hoisting moves gating conditions only and does
// not call it: condition settings are not hoisted.
func (v *View) ClearSetsCondition() {
	if v.setCondition != nil {
		cond := v.setCondition.Target()
		defuse.EraseUse[*Condition](cond, v.setCondition)
		if cond != nil {
			cond.removeSetter(v)
		}
		v.setCondition = nil
	}
}

// HasNeverHint / SetNeverHint are meaningful only for NEGATE views.
func (v *View) HasNeverHint() bool    { return v.neverHint }
func (v *View) SetNeverHint(val bool) { v.neverHint = val }

// InductionGroupID / InductionDepth / inductive sets are populated by the
// induction package; see spec.md §4.F.
func (v *View) InductionGroupID() (int, bool) { return v.inductionGroup, v.hasInductionGroup }

func (v *View) SetInductionGroup(id int) {
	v.inductionGroup = id
	v.hasInductionGroup = true
}

func (v *View) InductionDepth() int { return v.inductionDepth }
func (v *View) SetInductionDepth(d int) { v.inductionDepth = d }

func (v *View) MarkInductivePredecessor(p *View) {
	if v.inductivePreds == nil {
		v.inductivePreds = map[*View]bool{}
	}
	v.inductivePreds[p] = true
}

func (v *View) MarkInductiveSuccessor(s *View) {
	if v.inductiveSuccs == nil {
		v.inductiveSuccs = map[*View]bool{}
	}
	v.inductiveSuccs[s] = true
}

func (v *View) InductivePredecessors() []*View {
	var out []*View
	for _, p := range v.Predecessors() {
		if v.inductivePreds[p] {
			out = append(out, p)
		}
	}
	return out
}

func (v *View) NonInductivePredecessors() []*View {
	var out []*View
	for _, p := range v.Predecessors() {
		if !v.inductivePreds[p] {
			out = append(out, p)
		}
	}
	return out
}

func (v *View) InductiveSuccessors() []*View {
	var out []*View
	for _, s := range v.Successors() {
		if v.inductiveSuccs[s] {
			out = append(out, s)
		}
	}
	return out
}

func (v *View) NonInductiveSuccessors() []*View {
	var out []*View
	for _, s := range v.Successors() {
		if !v.inductiveSuccs[s] {
			out = append(out, s)
		}
	}
	return out
}

// ReplaceAllUsesWith reseats every use of v's output columns (position by
// position) and every direct view-level use of v onto `that`, which must
// have identical arity and column types. Used by CSE and by tuple
// flattening.
func (v *View) ReplaceAllUsesWith(that *View) {
	if v == that {
		return
	}
	vcols, tcols := v.columns.All(), that.columns.All()
	for i := range vcols {
		defuse.ReplaceAllUsesWith[*Column](vcols[i], tcols[i], tcols[i])
	}
	defuse.ReplaceAllUsesWith[*View](v, that, that)
}

// IsUsed reports whether any output column is used or this view is
// itself directly used (by a JOIN/MERGE/NEGATE slot) or is a terminal
// INSERT (always considered used).
func (v *View) IsUsed() bool {
	if v.Kind == KindInsert {
		return true
	}
	for _, c := range v.columns.All() {
		if c.IsUsed() {
			return true
		}
	}
	return defuse.IsUsed[*View](v)
}
