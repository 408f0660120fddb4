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
	"sort"

	"github.com/drlojekyll/dlc/ast"
	"github.com/drlojekyll/dlc/diag"
	"github.com/drlojekyll/dlc/ir"
)

// clauseBuilder threads the "current joined tuple" through the 8-step
// algorithm: colsByVar maps a clause-scoped variable ID (ast.Variable.ID,
// already carrying "first appearance" identity per spec.md §9) to the
// IR column currently representing it.
type clauseBuilder struct {
	*compiler
	decl   ast.Declaration
	clause ast.Clause

	currentView *ir.View
	colsByVar   map[uint64]*ir.Column
	ok          bool
}

// lowerClause runs steps 1-7 and returns the pre-INSERT tuple view on
// success, or nil if the clause was dropped. Step 8 (cross-clause union)
// is handled by the caller once every clause of the declaration has run.
func (c *compiler) lowerClause(decl ast.Declaration, clause ast.Clause) *ir.View {
	b := &clauseBuilder{compiler: c, decl: decl, clause: clause, colsByVar: map[uint64]*ir.Column{}, ok: true}

	// Step 1: resolve head.
	rel, strm := c.relationFor(decl)

	b.lowerPositiveAtoms()
	if !b.ok {
		return nil
	}
	b.lowerAggregates()
	if !b.ok {
		return nil
	}
	b.lowerFunctorAtoms()
	if !b.ok {
		return nil
	}
	b.lowerComparisonsAndAssignments()
	if !b.ok {
		return nil
	}
	b.lowerNegations()
	if !b.ok {
		return nil
	}
	b.lowerConditions()
	if !b.ok {
		return nil
	}

	return b.terminate(decl, clause, rel, strm)
}

// lowerPositiveAtoms runs step 2 (relation/stream-backed atoms only;
// functor atoms are deferred to lowerFunctorAtoms) and step 3 (equate by
// variable), building a left-deep join tree across the atoms.
func (b *clauseBuilder) lowerPositiveAtoms() {
	var atomViews []*ir.View
	var atomVarCols []map[uint64]*ir.Column

	for _, pred := range b.clause.PositivePredicates() {
		pd := pred.Declaration()
		if pd.Kind() == ir.DeclFunctor {
			continue
		}
		if pd.Arity() == 0 {
			// Zero-arity predicates carry no columns to join on; they
			// gate the clause as a whole and are handled exclusively by
			// lowerConditions (step 6), not folded into the join tree.
			continue
		}
		view, varCols := b.lowerRelationalAtom(pred)
		if view == nil {
			return
		}
		atomViews = append(atomViews, view)
		atomVarCols = append(atomVarCols, varCols)
	}

	if len(atomViews) == 0 {
		return
	}

	b.currentView = atomViews[0]
	for v, col := range atomVarCols[0] {
		b.colsByVar[v] = col
	}

	for i := 1; i < len(atomViews); i++ {
		b.joinIn(atomViews[i], atomVarCols[i])
		if !b.ok {
			return
		}
	}
}

// lowerRelationalAtom creates the SELECT for one positive, non-functor
// predicate atom, folding any variable repeated within the atom's own
// argument list into an immediate self-equality COMPARE (since a single
// SELECT's output columns for two repeated argument positions are not
// otherwise constrained equal).
func (b *clauseBuilder) lowerRelationalAtom(pred ast.Predicate) (*ir.View, map[uint64]*ir.Column) {
	pd := pred.Declaration()
	args := pred.Arguments()
	if len(args) != pd.Arity() {
		b.fail(diag.ErrArityMismatch.New(pd.Name(), len(args), pd.Arity()), pred.Span())
		return nil, nil
	}

	rel, strm := b.relationFor(pd)
	var view *ir.View
	if rel != nil {
		view = b.viewForRelation(rel, paramTypes(pd), paramNames(pd))
	} else {
		view = b.q.NewSelect(paramTypes(pd), paramNames(pd), rel, strm).View
	}

	varCols := map[uint64]*ir.Column{}
	firstPos := map[uint64]int{}
	var selfEq [][2]int
	for i, v := range args {
		if p, seen := firstPos[v.ID()]; seen {
			selfEq = append(selfEq, [2]int{p, i})
			continue
		}
		firstPos[v.ID()] = i
		varCols[v.ID()] = view.NthColumn(i)
	}

	for _, pair := range selfEq {
		lhs := view.Columns()[pair[0]]
		rhs := viewColumnAt(view, pair[1])
		passthrough := passthroughExcept(view, pair[0], pair[1])
		cmp := b.q.NewCompare(ir.ComparisonEq, lhs, rhs, passthrough)
		varCols[args[pair[0]].ID()] = cmp.ComparisonColumns()[0]
		view = cmp.View
	}
	return view, varCols
}

func viewColumnAt(v *ir.View, idx int) *ir.Column { return v.Columns()[idx] }

func passthroughExcept(v *ir.View, skip ...int) []*ir.Column {
	skipSet := map[int]bool{}
	for _, s := range skip {
		skipSet[s] = true
	}
	var out []*ir.Column
	for i, c := range v.Columns() {
		if !skipSet[i] {
			out = append(out, c)
		}
	}
	return out
}

// joinIn folds atomView into b.currentView via a binary JOIN pivoting on
// every variable shared between the accumulated tuple and atomView.
func (b *clauseBuilder) joinIn(atomView *ir.View, atomVarCols map[uint64]*ir.Column) {
	var sharedVars []uint64
	for v := range atomVarCols {
		if _, ok := b.colsByVar[v]; ok {
			sharedVars = append(sharedVars, v)
		}
	}
	sort.Slice(sharedVars, func(i, j int) bool { return sharedVars[i] < sharedVars[j] })

	if len(sharedVars) == 0 && !b.clause.CrossProductAnnotated() {
		b.fail(diag.ErrCrossProductUnannotated.New(b.decl.Name()), b.clause.Span())
		return
	}

	sharedSet := map[uint64]bool{}
	for _, v := range sharedVars {
		sharedSet[v] = true
	}

	var pivotGroups [][]*ir.Column
	for _, v := range sharedVars {
		pivotGroups = append(pivotGroups, []*ir.Column{b.colsByVar[v], atomVarCols[v]})
	}

	currentNonPivotVars, currentNonPivot := nonPivotCols(b.colsByVar, sharedSet)
	atomNonPivotVars, atomNonPivot := nonPivotCols(atomVarCols, sharedSet)

	join := b.q.NewJoin([]*ir.View{b.currentView, atomView}, pivotGroups, [][]*ir.Column{currentNonPivot, atomNonPivot})

	newCols := map[uint64]*ir.Column{}
	outIdx := 0
	for _, v := range sharedVars {
		newCols[v] = join.NthColumn(outIdx)
		outIdx++
	}
	for _, v := range currentNonPivotVars {
		newCols[v] = join.NthColumn(outIdx)
		outIdx++
	}
	for _, v := range atomNonPivotVars {
		newCols[v] = join.NthColumn(outIdx)
		outIdx++
	}

	b.currentView = join.View
	b.colsByVar = newCols
}

// nonPivotCols returns the (variable, column) pairs of m not in
// exclude, in a deterministic order (sorted by variable ID) so join
// output column order is stable across re-lowering (needed for the
// isomorphism round-trip law in spec.md §8).
func nonPivotCols(m map[uint64]*ir.Column, exclude map[uint64]bool) ([]uint64, []*ir.Column) {
	var vars []uint64
	for v := range m {
		if !exclude[v] {
			vars = append(vars, v)
		}
	}
	sort.Slice(vars, func(i, j int) bool { return vars[i] < vars[j] })
	cols := make([]*ir.Column, len(vars))
	for i, v := range vars {
		cols[i] = m[v]
	}
	return vars, cols
}

func (b *clauseBuilder) fail(err error, span ast.SourceSpan) {
	b.log.Append(err, diag.SeverityClauseFatal, span)
	b.ok = false
}
