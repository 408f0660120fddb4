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
	"sort"

	"github.com/spf13/cast"

	"github.com/drlojekyll/dlc/ir"
)

// canonicalizeRule sorts each MERGE's incoming views by Hash(), the
// §4.E canonicalization pass proper. MERGE is a plain union, so its
// inputs' order carries no semantic meaning, but View.Hash() folds
// input-view identity into its shape in construction order (hashShape
// deliberately hashes by identity rather than recursing, so it can't
// "see through" two different orderings to the same set) — two MERGEs
// built from the same views in a different order hash differently and
// cseRule never recognizes them as duplicates until the order is
// canonical. Runs first in the batch so every later pass sees canonical
// MERGEs. JOIN's incoming views are left unsorted: unlike MERGE, a
// JOIN's pivot/nonpivot column groups are positional per joined view, so
// reordering joined views would require reordering every pivot group and
// nonpivot slice in lockstep; not attempted here.
type canonicalizeRule struct{}

func (canonicalizeRule) Name() string { return "canonicalize" }

func (canonicalizeRule) Apply(q *ir.Query) int {
	n := 0
	for _, v := range q.Views() {
		if v.Kind != ir.KindMerge {
			continue
		}
		merged := v.AsMerge().MergedViews()
		if len(merged) < 2 {
			continue
		}
		sorted := append([]*ir.View(nil), merged...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Hash() < sorted[j].Hash() })
		same := true
		for i := range merged {
			if merged[i] != sorted[i] {
				same = false
				break
			}
		}
		if same {
			continue
		}
		repl := q.NewMerge(sorted[0])
		for _, m := range sorted {
			repl.AddMergedView(m)
		}
		v.ReplaceAllUsesWith(repl.View)
		n++
	}
	return n
}

// canonicalizeMergeRule collapses a MERGE with exactly one surviving
// input view into that view directly: lowering's maybeMaterializeMerge
// conservatively wraps even single-clause declarations in
// Options.AlwaysInductionSafeMerge mode, and induction analysis only
// cares about MERGEs that are actually part of a cycle.
type canonicalizeMergeRule struct{}

func (canonicalizeMergeRule) Name() string { return "canonicalize-merge" }

func (canonicalizeMergeRule) Apply(q *ir.Query) int {
	n := 0
	for _, v := range q.Views() {
		if v.Kind != ir.KindMerge {
			continue
		}
		merged := v.AsMerge().MergedViews()
		if len(merged) != 1 {
			continue
		}
		if _, isInductive := v.InductionGroupID(); isInductive {
			continue
		}
		v.ReplaceAllUsesWith(merged[0])
		n++
	}
	return n
}

// tupleFlattenRule collapses a TUPLE whose every input is itself a
// passthrough of another single view's columns in the same order into a
// direct use of that upstream view, removing a redundant hop introduced
// when lowering stitches a clause's body together one step at a time.
type tupleFlattenRule struct{}

func (tupleFlattenRule) Name() string { return "tuple-flatten" }

func (r tupleFlattenRule) Apply(q *ir.Query) int {
	n := 0
	for _, v := range q.Views() {
		if v.Kind != ir.KindTuple {
			continue
		}
		tup := v.AsTuple()
		if tup.Constant() != nil {
			continue // the constant-realizing TUPLE has no inputs to flatten
		}
		ins := v.InputColumns()
		if len(ins) == 0 || len(ins) != v.Arity() {
			continue
		}
		source := ins[0].DefiningView()
		if source == nil {
			continue
		}
		same := true
		for i, c := range ins {
			if c.DefiningView() != source || c.Index != i {
				same = false
				break
			}
		}
		if !same || source.Arity() != len(ins) {
			continue
		}
		v.ReplaceAllUsesWith(source)
		n++
	}
	return n
}

// constantFoldCompareRule resolves a COMPARE whose both sides are
// constant-realizing TUPLEs at lowering's literal-folding time: if the
// literals are equal under the comparison, the COMPARE is replaced by a
// plain passthrough TUPLE over its own passthrough columns plus one side
// of the constant; unequal constants under Eq leave the COMPARE in place
// (spec.md doesn't give lowering a way to delete a clause outright here,
// so the empty-result case is left for the runtime to observe as "no
// rows ever match").
type constantFoldCompareRule struct{}

func (constantFoldCompareRule) Name() string { return "constant-fold-compare" }

func (constantFoldCompareRule) Apply(q *ir.Query) int {
	n := 0
	for _, v := range q.Views() {
		if v.Kind != ir.KindCompare {
			continue
		}
		cmp := v.AsCompare()
		if cmp.Operator() != ir.ComparisonEq {
			continue
		}
		ins := v.InputColumns()
		if len(ins) < 2 {
			continue
		}
		lhs, rhs := ins[0].DefiningView(), ins[1].DefiningView()
		if lhs == nil || rhs == nil || lhs.Kind != ir.KindTuple || rhs.Kind != ir.KindTuple {
			continue
		}
		lc, rc := lhs.AsTuple().Constant(), rhs.AsTuple().Constant()
		if lc == nil || rc == nil {
			continue
		}
		if !constantsEqual(lc, rc) {
			continue
		}
		// Both constants are equal: the comparison output column is
		// just lc's value again. Splice in a TUPLE over [lhs-col,
		// passthroughs...] in place of the COMPARE, so downstream users
		// see the same column shape without the now-trivial compare.
		repl := q.NewTuple(append([]*ir.Column{ins[0]}, v.InputColumns()[2:]...))
		v.ReplaceAllUsesWith(repl.View)
		n++
	}
	return n
}

// constantValueOf traces col back through zero or more Eq COMPAREs to
// the literal TUPLE that forces its value, returning the Constant and
// true, or nil/false if col's value isn't statically known.
func constantValueOf(col *ir.Column) (*ir.Constant, bool) {
	dv := col.DefiningView()
	if dv == nil {
		return nil, false
	}
	switch dv.Kind {
	case ir.KindTuple:
		if c := dv.AsTuple().Constant(); c != nil {
			return c, true
		}
		return nil, false
	case ir.KindCompare:
		cmp := dv.AsCompare()
		if cmp.Operator() != ir.ComparisonEq {
			return nil, false
		}
		isCompareOut := false
		for _, cc := range cmp.ComparisonColumns() {
			if cc == col {
				isCompareOut = true
				break
			}
		}
		if !isCompareOut {
			return nil, false
		}
		ins := dv.InputColumns()
		if len(ins) < 2 {
			return nil, false
		}
		if c, ok := constantValueOf(ins[0]); ok {
			return c, true
		}
		if c, ok := constantValueOf(ins[1]); ok {
			return c, true
		}
		return nil, false
	default:
		return nil, false
	}
}

// constantPropagationRule folds a single-pivot JOIN whose pivot value is
// provably constant (traced through a chain of Eq COMPAREs to a literal,
// via constantValueOf) into a cross-product of per-view COMPARE filters
// against that literal: each joined view is individually gated to rows
// equal to the constant, so the dynamic pivot-equality check the JOIN
// used to perform is no longer needed, and the JOIN's arity (pivot
// count) drops from one to zero (§4.E "constant propagation"). Joins
// with more than one pivot group are left alone: reducing only one of
// several live pivots would require re-deriving each view's remaining
// pivot/nonpivot column split, which this pass doesn't track.
type constantPropagationRule struct{}

func (constantPropagationRule) Name() string { return "constant-propagation" }

func (constantPropagationRule) Apply(q *ir.Query) int {
	n := 0
	for _, v := range q.Views() {
		if v.Kind != ir.KindJoin {
			continue
		}
		join := v.AsJoin()
		if join.NumPivots() != 1 {
			continue
		}
		joined := join.JoinedViews()
		if len(joined) == 0 {
			continue
		}
		ins := v.InputColumns()
		if len(ins) < len(joined) {
			continue
		}
		pivotCols := ins[:len(joined)]

		var constant *ir.Constant
		for _, c := range pivotCols {
			if cval, ok := constantValueOf(c); ok {
				constant = cval
				break
			}
		}
		if constant == nil {
			continue
		}

		constCol := q.NewConstantTuple(constant).NthColumn(0)
		filtered := make([]*ir.View, len(joined))
		for i, jv := range joined {
			filtered[i] = q.NewCompare(ir.ComparisonEq, pivotCols[i], constCol, passthroughExcept(jv, pivotCols[i])).View
		}
		nonPivot := make([][]*ir.Column, len(filtered))
		nonPivot[0] = filtered[0].Columns()
		for i := 1; i < len(filtered); i++ {
			nonPivot[i] = filtered[i].AsCompare().PassthroughColumns()
		}
		newJoin := q.NewJoin(filtered, nil, nonPivot)
		v.ReplaceAllUsesWith(newJoin.View)
		n++
	}
	return n
}

// passthroughExcept returns v's output columns other than skip, in
// order; used to carry every column but the one being constant-filtered
// through a newly spliced COMPARE.
func passthroughExcept(v *ir.View, skip *ir.Column) []*ir.Column {
	var out []*ir.Column
	for _, c := range v.Columns() {
		if c != skip {
			out = append(out, c)
		}
	}
	return out
}

// deadColumnRule drops unused output columns from plain passthrough
// TUPLE views, the one view kind whose columns are fully independent:
// TUPLE's Nth output is just its Nth input copied through, with no
// cross-column invariant pinning positions (unlike e.g. JOIN's pivot/
// nonpivot split or COMPARE's fixed comparison-then-passthrough shape).
// Shrinking a TUPLE here can orphan one of its own input columns'
// defining view in turn; the next fixpoint iteration's
// dead-view-elimination reaps that (§4.E "dead-column elimination").
type deadColumnRule struct{}

func (deadColumnRule) Name() string { return "dead-column-elimination" }

func (deadColumnRule) Apply(q *ir.Query) int {
	n := 0
	for _, v := range q.Views() {
		if v.Kind != ir.KindTuple {
			continue
		}
		if v.AsTuple().Constant() != nil {
			continue // the single column realizing a literal is the value itself, never dead
		}
		ins := v.InputColumns()
		cols := v.Columns()
		if len(ins) != len(cols) || len(cols) == 0 {
			continue
		}
		var keepIns, keepOuts []*ir.Column
		for i, out := range cols {
			if out.IsUsed() {
				keepIns = append(keepIns, ins[i])
				keepOuts = append(keepOuts, out)
			}
		}
		if len(keepOuts) == len(cols) || len(keepOuts) == 0 {
			continue // nothing dead, or everything dead (leave the latter to dead-view-elimination)
		}
		repl := q.NewTuple(keepIns)
		for i, out := range keepOuts {
			out.ReplaceAllUsesWith(repl.NthColumn(i))
		}
		n++
	}
	return n
}

// predicateSinkRule sinks a COMPARE that reads directly from a MERGE's
// output columns down through the MERGE: instead of filtering after the
// union, each merged input is filtered first and the filtered branches
// are re-merged (§4.E "predicate pushdown"). Filtering earlier shrinks
// what the union carries before CSE and dead-view-elimination see it.
// Sinking a COMPARE through an intervening passthrough TUPLE needs no
// separate case here: tupleFlattenRule collapses that TUPLE away first,
// leaving a direct COMPARE -> MERGE edge for this rule to match on a
// later iteration of the same fixpoint.
type predicateSinkRule struct{}

func (predicateSinkRule) Name() string { return "predicate-pushdown" }

func (predicateSinkRule) Apply(q *ir.Query) int {
	n := 0
	for _, v := range q.Views() {
		if v.Kind != ir.KindCompare {
			continue
		}
		cmp := v.AsCompare()
		ins := v.InputColumns()
		if len(ins) < 2 {
			continue
		}
		lhs, rhs := ins[0], ins[1]
		merge := mergeSource(lhs, rhs)
		if merge == nil {
			continue
		}
		mergedViews := merge.AsMerge().MergedViews()
		if len(mergedViews) == 0 {
			continue
		}

		branches := make([]*ir.View, len(mergedViews))
		ok := true
		for i, src := range mergedViews {
			branchLHS := correspondingColumn(merge, src, lhs)
			branchRHS := correspondingColumn(merge, src, rhs)
			if branchLHS == nil || branchRHS == nil {
				ok = false
				break
			}
			passthrough := make([]*ir.Column, 0, len(cmp.PassthroughColumns()))
			for _, p := range cmp.PassthroughColumns() {
				pc := correspondingColumn(merge, src, p)
				if pc == nil {
					ok = false
					break
				}
				passthrough = append(passthrough, pc)
			}
			if !ok {
				break
			}
			branches[i] = q.NewCompare(cmp.Operator(), branchLHS, branchRHS, passthrough).View
		}
		if !ok {
			continue // a passthrough column didn't trace back to the merge; leave this COMPARE alone
		}

		newMerge := q.NewMerge(branches[0])
		for _, b := range branches {
			newMerge.AddMergedView(b)
		}
		v.ReplaceAllUsesWith(newMerge.View)
		n++
	}
	return n
}

// mergeSource returns the MERGE view both lhs and rhs are output columns
// of, or nil if they aren't columns of the same MERGE.
func mergeSource(lhs, rhs *ir.Column) *ir.View {
	lv := lhs.DefiningView()
	if lv == nil || lv.Kind != ir.KindMerge {
		return nil
	}
	if rhs.DefiningView() != lv {
		return nil
	}
	return lv
}

// correspondingColumn returns the column src contributed at out's
// position, i.e. the predecessor-side column one of merge's branches
// unioned into out.
func correspondingColumn(merge, src *ir.View, out *ir.Column) *ir.Column {
	if out.DefiningView() != merge {
		return nil
	}
	if out.Index >= src.Arity() {
		return nil
	}
	return src.NthColumn(out.Index)
}

func constantsEqual(a, b *ir.Constant) bool {
	if a.Type != b.Type {
		return false
	}
	af, aerr := cast.ToFloat64E(a.Value)
	bf, berr := cast.ToFloat64E(b.Value)
	if aerr == nil && berr == nil {
		return af == bf
	}
	return a.Value == b.Value
}

// cseRule implements common-subexpression elimination: views with equal
// View.Hash() and pointer-identical (defining view, role, ordinal)
// input shapes are structurally interchangeable, so every later
// occurrence is replaced by the first.
type cseRule struct{}

func (cseRule) Name() string { return "cse" }

func (cseRule) Apply(q *ir.Query) int {
	n := 0
	byHash := map[uint64][]*ir.View{}
	for _, v := range q.Views() {
		if v.Kind == ir.KindInsert {
			continue // terminal sinks are never interchangeable
		}
		byHash[v.Hash()] = append(byHash[v.Hash()], v)
	}
	for _, bucket := range byHash {
		if len(bucket) < 2 {
			continue
		}
		canonical := bucket[0]
		for _, dup := range bucket[1:] {
			if dup == canonical || !structurallyEqual(canonical, dup) {
				continue
			}
			dup.ReplaceAllUsesWith(canonical)
			n++
		}
	}
	return n
}

// structurallyEqual is a stricter check than equal hashes alone (hash
// collisions are possible): same kind, same arity, and every input slot
// traces back to the same (defining view, column ordinal) pair.
func structurallyEqual(a, b *ir.View) bool {
	if a.Kind != b.Kind || a.Arity() != b.Arity() {
		return false
	}
	ac, bc := a.InputColumns(), b.InputColumns()
	if len(ac) != len(bc) {
		return false
	}
	for i := range ac {
		if ac[i].DefiningView() != bc[i].DefiningView() || ac[i].Index != bc[i].Index {
			return false
		}
	}
	return true
}

// conditionHoistRule hoists a condition shared by every input of a MERGE
// off of each input and onto the MERGE itself, so the condition is
// tested once per merged tuple instead of once per contributing view.
type conditionHoistRule struct{}

func (conditionHoistRule) Name() string { return "condition-hoist" }

func (conditionHoistRule) Apply(q *ir.Query) int {
	n := 0
	for _, v := range q.Views() {
		if v.Kind != ir.KindMerge {
			continue
		}
		merged := v.AsMerge().MergedViews()
		if len(merged) < 2 {
			continue
		}
		n += hoistShared(v, merged, true)
		n += hoistShared(v, merged, false)
	}
	return n
}

func hoistShared(merge *ir.View, merged []*ir.View, positive bool) int {
	condsOf := func(vw *ir.View) []*ir.Condition {
		if positive {
			return vw.PositiveConditions()
		}
		return vw.NegativeConditions()
	}
	first := condsOf(merged[0])
	n := 0
	for _, cond := range first {
		sharedByAll := true
		for _, other := range merged[1:] {
			found := false
			for _, c := range condsOf(other) {
				if c == cond {
					found = true
					break
				}
			}
			if !found {
				sharedByAll = false
				break
			}
		}
		if !sharedByAll {
			continue
		}
		for _, vw := range merged {
			if positive {
				vw.RemovePositiveCondition(cond)
			} else {
				vw.RemoveNegativeCondition(cond)
			}
		}
		if positive {
			merge.AddPositiveCondition(cond)
		} else {
			merge.AddNegativeCondition(cond)
		}
		n++
	}
	return n
}

// neverHintRule marks a NEGATE's HasNeverHint whenever every transitive
// predecessor of its negated source is a non-retractable SELECT: no
// retraction can ever reach the source, so the negation's "never
// becomes true later" hint is sound (spec.md §9, example 6).
type neverHintRule struct{}

func (neverHintRule) Name() string { return "never-hint-propagation" }

func (neverHintRule) Apply(q *ir.Query) int {
	n := 0
	for _, v := range q.Views() {
		if v.Kind != ir.KindNegate {
			continue
		}
		neg := v.AsNegate()
		src := neg.NegatedView()
		if src == nil {
			continue
		}
		eligible := allSourcesNonRetractable(src, map[*ir.View]bool{})
		if eligible != neg.NeverHintEligible() {
			neg.SetNeverHintEligible(eligible)
		}
		// A hint requested by @never is cleared again when a retractable
		// source is reachable.
		if eligible != v.HasNeverHint() {
			v.SetNeverHint(eligible)
			n++
		}
	}
	return n
}

func allSourcesNonRetractable(v *ir.View, seen map[*ir.View]bool) bool {
	if seen[v] {
		return true
	}
	seen[v] = true
	if v.Kind == ir.KindSelect {
		sel := v.AsSelect()
		if rel := sel.Relation(); rel != nil {
			return !rel.Retractable
		}
		return sel.Stream() != nil // streams never retract once published
	}
	for _, p := range v.Predecessors() {
		if !allSourcesNonRetractable(p, seen) {
			return false
		}
	}
	return true
}

// deadViewRule is the thin wrapper around ir.Query.RemoveUnusedViews,
// run last in the batch so every other rule's ReplaceAllUsesWith calls
// have already orphaned whatever they're going to orphan.
type deadViewRule struct{}

func (deadViewRule) Name() string { return "dead-view-elimination" }

func (deadViewRule) Apply(q *ir.Query) int { return q.RemoveUnusedViews() }
