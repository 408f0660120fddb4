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

// Package lower implements clause-to-IR lowering: for each clause, match
// predicates to declarations, allocate views, thread columns, introduce
// joins for shared variables, merges for multiple clause bodies,
// compares for comparisons, maps for functors, negates for negated
// predicates, and inserts for the head (spec.md §4.C).
package lower

import (
	"github.com/sirupsen/logrus"

	"github.com/drlojekyll/dlc/ast"
	"github.com/drlojekyll/dlc/diag"
	"github.com/drlojekyll/dlc/ir"
)

// Lower lowers every clause of every declaration in mod into q, in
// declaration order. Structural errors drop only the offending clause
// (spec.md §7.2); Lower itself never returns an error — callers consult
// log.HasFatalSince to decide whether to proceed.
func Lower(q *ir.Query, log *diag.Log, mod *ast.Module, opts Options) {
	c := &compiler{
		q: q, log: log, opts: opts,
		relByDecl:       map[ast.Declaration]*ir.Relation{},
		streamByDecl:    map[ast.Declaration]*ir.Stream{},
		mergeByRelation: map[*ir.Relation]*ir.View{},
		pendingSelects:  map[*ir.Relation][]*ir.View{},
	}
	for _, decl := range mod.Declarations() {
		c.checkRedeclarations(decl)
	}
	for _, decl := range mod.Declarations() {
		switch decl.Kind() {
		case ir.DeclFunctor:
			continue // functors are lowered at their use sites, not declaration sites
		}
		var inserters []*ir.View
		for _, clause := range decl.Clauses() {
			if clause.DisabledByFalse() {
				continue
			}
			logrus.WithFields(logrus.Fields{"decl": decl.Name(), "arity": decl.Arity()}).Debug("lowering clause")
			mark := log.Mark()
			ins := c.lowerClause(decl, clause)
			if ins != nil && !log.HasFatalSince(mark) {
				inserters = append(inserters, ins)
			}
		}
		c.maybeMaterializeMerge(decl, inserters)
	}
}

// Options configures lowering policy decisions left open by spec.md's
// Open Questions; see DESIGN.md.
type Options struct {
	// AlwaysInductionSafeMerge, when true, materializes a MERGE for
	// every declaration with at least one clause left after dead-clause
	// elimination, even when only one clause exists, simplifying downstream induction
	// analysis at the cost of one canonicalizable MERGE per relation
	// (the optimizer's "MERGE with 1 input is canonicalized away" pass
	// removes these; see spec.md §8 Boundary behaviors).
	AlwaysInductionSafeMerge bool
}

type compiler struct {
	q    *ir.Query
	log  *diag.Log
	opts Options

	relByDecl            map[ast.Declaration]*ir.Relation
	streamByDecl         map[ast.Declaration]*ir.Stream
	conditionsByRelation map[*ir.Relation]*ir.Condition

	// mergeByRelation records, for every relation whose declaration has
	// already had its cross-clause MERGE materialized (step 8), the
	// MERGE view itself: any reference to that relation from a clause
	// of a later declaration reads the merge's live, up-to-date output
	// instead of a fresh disconnected SELECT. The MERGE is built only
	// after all of a declaration's own clauses are lowered, so their
	// references go through pendingSelects instead.
	mergeByRelation map[*ir.Relation]*ir.View

	// pendingSelects records every SELECT created to stand in for a
	// relation that has no MERGE yet (including self-referential atoms
	// inside the very declaration that defines the relation): once that
	// relation's MERGE is built, every pending SELECT is rewired onto it
	// via View.ReplaceAllUsesWith, closing the cycle Tarjan SCC needs to
	// see (spec.md §4.F).
	pendingSelects map[*ir.Relation][]*ir.View
}

// viewForRelation returns the live view standing in for rel: its already
// -materialized MERGE if one exists, otherwise a fresh SELECT recorded
// as pending so a later MERGE can absorb it.
func (c *compiler) viewForRelation(rel *ir.Relation, colTypes []ir.ColumnType, varNames []string) *ir.View {
	if merge, ok := c.mergeByRelation[rel]; ok {
		return merge
	}
	sel := c.q.NewSelect(colTypes, varNames, rel, nil)
	c.pendingSelects[rel] = append(c.pendingSelects[rel], sel.View)
	return sel.View
}

func (c *compiler) checkRedeclarations(decl ast.Declaration) {
	for _, other := range decl.Redeclarations() {
		if !sameShape(decl, other) {
			c.log.Append(diag.ErrRedeclarationDiffers.New(decl.Name()), diag.SeverityClauseFatal, decl.Span())
			return
		}
	}
}

func sameShape(a, b ast.Declaration) bool {
	if a.Kind() != b.Kind() || a.Arity() != b.Arity() {
		return false
	}
	ap, bp := a.Parameters(), b.Parameters()
	for i := range ap {
		if ap[i].Type() != bp[i].Type() || ap[i].Binding() != bp[i].Binding() {
			return false
		}
	}
	return true
}

// relationFor resolves (creating on first reference) the relation or
// stream backing a relation-kind or message-kind declaration.
func (c *compiler) relationFor(decl ast.Declaration) (*ir.Relation, *ir.Stream) {
	colTypes := paramTypes(decl)
	if decl.Kind() == ir.DeclMessage {
		if s, ok := c.streamByDecl[decl]; ok {
			return nil, s
		}
		s := c.q.Stream(decl.Name(), ir.StreamMessage)
		c.streamByDecl[decl] = s
		return nil, s
	}
	if r, ok := c.relByDecl[decl]; ok {
		return r, nil
	}
	r := c.q.Relation(decl.Name(), colTypes, false)
	c.relByDecl[decl] = r
	return r, nil
}

func paramTypes(decl ast.Declaration) []ir.ColumnType {
	params := decl.Parameters()
	out := make([]ir.ColumnType, len(params))
	for i, p := range params {
		out[i] = p.Type()
	}
	return out
}

func paramNames(decl ast.Declaration) []string {
	params := decl.Parameters()
	out := make([]string, len(params))
	for i, p := range params {
		out[i] = p.Name()
	}
	return out
}

// maybeMaterializeMerge implements step 8: when a declaration has ≥ 2
// surviving clauses, the relation's producer side needs a MERGE so
// recursion detection (component F) has a UNION to anchor on. Each
// clause's INSERT keeps writing the relation directly; the MERGE here
// is a separate union of each clause's pre-INSERT tuple (an INSERT has
// no output columns to union over). Every pending SELECT of the relation
// is rewired onto it, and later declarations read it through
// mergeByRelation, so recursive references close a cycle through it.
func (c *compiler) maybeMaterializeMerge(decl ast.Declaration, inserters []*ir.View) {
	if len(inserters) == 0 {
		return
	}
	rel, _ := c.relationFor(decl)
	needMerge := len(inserters) >= 2 ||
		(c.opts.AlwaysInductionSafeMerge && len(inserters) >= 1) ||
		(rel != nil && len(c.pendingSelects[rel]) > 0)
	if !needMerge {
		return
	}
	merge := c.q.NewMerge(inserters[0])
	for _, v := range inserters {
		merge.AddMergedView(v)
	}
	if rel == nil {
		return
	}
	c.mergeByRelation[rel] = merge.View
	for _, pending := range c.pendingSelects[rel] {
		if pending != merge.View {
			pending.ReplaceAllUsesWith(merge.View)
		}
	}
	delete(c.pendingSelects, rel)
}
