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

// Package induction finds the strongly-connected components of the
// dataflow graph rooted at MERGE views, assigns each one an induction
// group and a stratum depth, and marks every predecessor/successor edge
// that stays inside a group as inductive (spec.md §4.F).
package induction

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/drlojekyll/dlc/diag"
	"github.com/drlojekyll/dlc/ir"
	"github.com/drlojekyll/dlc/metrics"
)

// Analyze runs Tarjan's algorithm over q's view graph, assigns an
// induction group ID to every view of a cyclic component that contains a
// MERGE, and marks the predecessor/successor edges that stay inside each
// group as inductive.
// A MERGE with no cyclic predecessor is left ungrouped: it is ordinary
// union, not recursion.
func Analyze(q *ir.Query, log *diag.Log) {
	a := &analyzer{q: q, index: map[*ir.View]int{}, lowlink: map[*ir.View]int{}, onStack: map[*ir.View]bool{}}
	for _, v := range q.Views() {
		if _, seen := a.index[v]; !seen {
			a.strongconnect(v)
		}
	}

	// nextGroupID is a dense counter, incremented only when a group is
	// actually assigned: a.sccs also contains every singleton and
	// merge-free component skipped below, so indexing groups by their
	// raw a.sccs position would leave gaps and violate invariant I9
	// ("induction group ids form a contiguous range [0, k)").
	//
	// Tarjan emits components downstream-first, so a.sccs is walked in
	// reverse: an upstream group always receives the smaller ID, which
	// assignDepths relies on.
	nextGroupID := 0
	for i := len(a.sccs) - 1; i >= 0; i-- {
		scc := a.sccs[i]
		if len(scc) == 1 && !selfLoop(scc[0]) {
			continue // singleton, non-self-looping component: not a cycle
		}
		if !hasMerge(scc) {
			log.Append(diag.ErrMergeFreeSCC.New(len(scc)), diag.SeverityQueryFatal)
			continue
		}
		if v := negationInCycle(scc); v != nil {
			// A NEGATE whose negated source is itself reachable from
			// within the same induction group has no well-founded
			// stratum: evaluating it requires the group's own fixpoint
			// to already be settled. spec.md §4.F/§7.2.
			log.Append(diag.ErrUnstratifiableCycle.New(len(scc)), diag.SeverityQueryFatal)
			continue
		}
		id := nextGroupID
		nextGroupID++
		for _, v := range scc {
			v.SetInductionGroup(id)
		}
		markCrossings(scc)
	}

	assignDepths(q)

	distinct := map[int]bool{}
	for _, v := range q.Views() {
		if id, ok := v.InductionGroupID(); ok {
			distinct[id] = true
		}
	}
	metrics.InductionGroups.Observe(float64(len(distinct)))
	logrus.WithField("groups", len(distinct)).Debug("induction analysis complete")
}

func selfLoop(v *ir.View) bool {
	for _, p := range v.Predecessors() {
		if p == v {
			return true
		}
	}
	return false
}

// negationInCycle returns a NEGATE view in scc whose negated source view
// is also a member of scc, or nil if none exist.
func negationInCycle(scc []*ir.View) *ir.View {
	members := map[*ir.View]bool{}
	for _, v := range scc {
		members[v] = true
	}
	for _, v := range scc {
		if v.Kind != ir.KindNegate {
			continue
		}
		if src := v.AsNegate().NegatedView(); src != nil && members[src] {
			return v
		}
	}
	return nil
}

func hasMerge(scc []*ir.View) bool {
	for _, v := range scc {
		if v.Kind == ir.KindMerge {
			return true
		}
	}
	return false
}

// markCrossings tags, for every view in scc, which of its predecessor and
// successor edges stay inside the component (inductive) versus leave it.
func markCrossings(scc []*ir.View) {
	inGroup := map[*ir.View]bool{}
	for _, v := range scc {
		inGroup[v] = true
	}
	for _, v := range scc {
		for _, p := range v.Predecessors() {
			if inGroup[p] {
				v.MarkInductivePredecessor(p)
			}
		}
		for _, s := range v.Successors() {
			if inGroup[s] {
				v.MarkInductiveSuccessor(s)
			}
		}
	}
}

type analyzer struct {
	q *ir.Query

	counter int
	index   map[*ir.View]int
	lowlink map[*ir.View]int
	onStack map[*ir.View]bool
	stack   []*ir.View

	sccs [][]*ir.View
}

// strongconnect is the standard Tarjan SCC visit, walking successor
// (forward dataflow) edges; see spec.md §9's "standard Tarjan SCC" note.
func (a *analyzer) strongconnect(v *ir.View) {
	a.index[v] = a.counter
	a.lowlink[v] = a.counter
	a.counter++
	a.stack = append(a.stack, v)
	a.onStack[v] = true

	for _, w := range v.Successors() {
		if _, seen := a.index[w]; !seen {
			a.strongconnect(w)
			if a.lowlink[w] < a.lowlink[v] {
				a.lowlink[v] = a.lowlink[w]
			}
		} else if a.onStack[w] {
			if a.index[w] < a.lowlink[v] {
				a.lowlink[v] = a.index[w]
			}
		}
	}

	if a.lowlink[v] == a.index[v] {
		var scc []*ir.View
		for {
			n := len(a.stack) - 1
			w := a.stack[n]
			a.stack = a.stack[:n]
			a.onStack[w] = false
			scc = append(scc, w)
			if w == v {
				break
			}
		}
		a.sccs = append(a.sccs, scc)
	}
}

// assignDepths runs a topological stratification over the condensation
// graph (SCCs contracted to single nodes): group 0 depends on nothing,
// group N depends only on groups < N. Views outside any induction group
// keep ir.View.Depth()'s longest-path value and are not touched here.
func assignDepths(q *ir.Query) {
	groups := map[int][]*ir.View{}
	for _, v := range q.Views() {
		if id, ok := v.InductionGroupID(); ok {
			groups[id] = append(groups[id], v)
		}
	}

	ids := make([]int, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	depth := map[int]int{}
	for _, id := range ids {
		members := map[*ir.View]bool{}
		for _, v := range groups[id] {
			members[v] = true
		}
		max := -1
		for _, v := range groups[id] {
			for _, p := range v.Predecessors() {
				if members[p] {
					continue
				}
				if pid, ok := p.InductionGroupID(); ok {
					if d := depth[pid]; d > max {
						max = d
					}
				}
			}
		}
		depth[id] = max + 1
		for _, v := range groups[id] {
			v.SetInductionDepth(depth[id])
		}
	}
}
