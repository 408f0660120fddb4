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

// mergeOrJoin folds a freshly built view's variable bindings into the
// accumulated tuple: the first contributor becomes the base, every
// subsequent one is pivoted in via joinIn.
func (b *clauseBuilder) mergeOrJoin(view *ir.View, varCols map[uint64]*ir.Column) {
	if b.currentView == nil {
		b.currentView = view
		b.colsByVar = varCols
		return
	}
	b.joinIn(view, varCols)
}

// lowerAggregates runs the AGGREGATE half of step 2: each `functor(args)
// over subbody` aggregate atom lowers its sub-body as a synthetic
// single-clause declaration (spec.md §9), reads the aggregated columns
// back out, and folds group/config/summary columns into the tuple.
func (b *clauseBuilder) lowerAggregates() {
	for _, agg := range b.clause.Aggregates() {
		sub := agg.SubBody()
		if len(sub.Clauses()) != 1 {
			b.fail(diag.ErrInternalCompilerError.New("aggregate sub-body must have exactly one clause"), agg.Span())
			return
		}
		mark := b.log.Mark()
		b.compiler.lowerClause(sub, sub.Clauses()[0])
		if b.log.HasFatalSince(mark) {
			return
		}
		subRel, subStrm := b.compiler.relationFor(sub)
		subSel := b.q.NewSelect(paramTypes(sub), paramNames(sub), subRel, subStrm)

		group := b.resolveVars(agg.GroupVariables())
		config := b.resolveVars(agg.ConfigVariables())
		if group == nil || config == nil {
			return
		}
		aggregated := columnsForVars(sub, subSel.View, agg.AggregatedVariables())

		summaryTypes := make([]ir.ColumnType, len(agg.SummaryVariables()))
		summaryNames := make([]string, len(agg.SummaryVariables()))
		for i, v := range agg.SummaryVariables() {
			summaryTypes[i] = v.Type()
			summaryNames[i] = v.Name()
		}

		aggView := b.q.NewAggregate(agg.Functor().Name(), group, config, aggregated, summaryTypes, summaryNames)

		varCols := map[uint64]*ir.Column{}
		for i, v := range agg.GroupVariables() {
			varCols[v.ID()] = aggView.GroupColumns()[i]
		}
		for i, v := range agg.ConfigVariables() {
			varCols[v.ID()] = aggView.ConfigColumns()[i]
		}
		for i, v := range agg.SummaryVariables() {
			varCols[v.ID()] = aggView.SummaryColumns()[i]
		}
		b.mergeOrJoin(aggView.View, varCols)
		if !b.ok {
			return
		}
	}
}

// resolveVars looks up each variable's current column, failing with a
// non-range-restricted diagnostic if any is unbound.
func (b *clauseBuilder) resolveVars(vars []ast.Variable) []*ir.Column {
	out := make([]*ir.Column, len(vars))
	for i, v := range vars {
		col, ok := b.colsByVar[v.ID()]
		if !ok {
			b.fail(diag.ErrNonRangeRestricted.New(v.Name()), v.Span())
			return nil
		}
		out[i] = col
	}
	return out
}

// columnsForVars maps sub-body variables onto the corresponding output
// columns of a SELECT over that sub-body's relation by name: a variable
// takes the column of the declared parameter with the same name, and a
// variable with no such parameter is skipped.
func columnsForVars(decl ast.Declaration, sel *ir.View, vars []ast.Variable) []*ir.Column {
	byName := map[string]*ir.Column{}
	for i, p := range decl.Parameters() {
		byName[p.Name()] = sel.NthColumn(i)
	}
	out := make([]*ir.Column, 0, len(vars))
	for _, v := range vars {
		if c, ok := byName[v.Name()]; ok {
			out = append(out, c)
		}
	}
	return out
}

// lowerFunctorAtoms handles positive body atoms whose declaration is a
// pure/non-aggregating functor applied directly (not via `over`): bound
// parameters consume already-resolved columns, free parameters produce
// new MAP output columns.
func (b *clauseBuilder) lowerFunctorAtoms() {
	for _, pred := range b.clause.PositivePredicates() {
		pd := pred.Declaration()
		if pd.Kind() != ir.DeclFunctor {
			continue
		}
		args := pred.Arguments()
		if len(args) != pd.Arity() {
			b.fail(diag.ErrArityMismatch.New(pd.Name(), len(args), pd.Arity()), pred.Span())
			return
		}

		var ins []*ir.Column
		var freeVars []ast.Variable
		var freeTypes []ir.ColumnType
		var freeNames []string
		for i, p := range pd.Parameters() {
			switch p.Binding() {
			case ir.BindingBound:
				col, ok := b.colsByVar[args[i].ID()]
				if !ok {
					b.fail(diag.ErrNonRangeRestricted.New(args[i].Name()), args[i].Span())
					return
				}
				ins = append(ins, col)
			default:
				freeVars = append(freeVars, args[i])
				freeTypes = append(freeTypes, p.Type())
				freeNames = append(freeNames, p.Name())
			}
		}

		passVars, passCols := b.currentPassthrough()
		mapView := b.q.NewMap(pd.Name(), pd.FunctorRange(), false, ins, freeTypes, freeNames, passCols)

		varCols := map[uint64]*ir.Column{}
		for i, v := range freeVars {
			varCols[v.ID()] = mapView.Columns()[i]
		}
		for i, v := range passVars {
			varCols[v] = mapView.Columns()[len(freeVars)+i]
		}
		b.currentView = mapView.View
		b.colsByVar = varCols
	}
}

// currentPassthrough returns every variable currently bound, in a
// deterministic (sorted-by-ID) order, alongside their columns.
func (b *clauseBuilder) currentPassthrough() ([]uint64, []*ir.Column) {
	vars := make([]uint64, 0, len(b.colsByVar))
	for v := range b.colsByVar {
		vars = append(vars, v)
	}
	sort.Slice(vars, func(i, j int) bool { return vars[i] < vars[j] })
	cols := make([]*ir.Column, len(vars))
	for i, v := range vars {
		cols[i] = b.colsByVar[v]
	}
	return vars, cols
}

// lowerComparisonsAndAssignments runs step 4: each `x op y` becomes a
// COMPARE over the current tuple; each `x = literal` introduces a
// Constant column, compared for equality when x is already bound,
// joined in as a cross product when it is not, and used directly when
// no atom has bound anything yet.
func (b *clauseBuilder) lowerComparisonsAndAssignments() {
	for _, cmp := range b.clause.Comparisons() {
		if b.currentView == nil {
			b.fail(diag.ErrNonRangeRestricted.New(cmp.LHS().Name()), cmp.Span())
			return
		}
		lhsCol, ok1 := b.colsByVar[cmp.LHS().ID()]
		rhsCol, ok2 := b.colsByVar[cmp.RHS().ID()]
		if !ok1 {
			b.fail(diag.ErrNonRangeRestricted.New(cmp.LHS().Name()), cmp.Span())
			return
		}
		if !ok2 {
			b.fail(diag.ErrNonRangeRestricted.New(cmp.RHS().Name()), cmp.Span())
			return
		}

		passVars, passCols := b.currentPassthroughExcept(cmp.LHS().ID(), cmp.RHS().ID())
		cmpView := b.q.NewCompare(cmp.Operator(), lhsCol, rhsCol, passCols)

		varCols := map[uint64]*ir.Column{}
		if cmp.Operator() == ir.ComparisonEq {
			varCols[cmp.LHS().ID()] = cmpView.ComparisonColumns()[0]
			varCols[cmp.RHS().ID()] = cmpView.ComparisonColumns()[0]
		} else {
			varCols[cmp.LHS().ID()] = cmpView.ComparisonColumns()[0]
			varCols[cmp.RHS().ID()] = cmpView.ComparisonColumns()[1]
		}
		for i, v := range passVars {
			varCols[v] = cmpView.PassthroughColumns()[i]
		}
		b.currentView = cmpView.View
		b.colsByVar = varCols
	}

	for _, asn := range b.clause.Assignments() {
		lit := asn.Value()
		constCol := b.q.NewConstantTuple(b.q.NewConstant(lit.Type(), lit.Text())).NthColumn(0)

		if b.currentView == nil {
			// No prior atom bound anything: the assigned variable's
			// sole defining view is the constant tuple itself.
			b.currentView = constCol.DefiningView()
			b.colsByVar = map[uint64]*ir.Column{asn.Variable().ID(): constCol}
			continue
		}

		existing, bound := b.colsByVar[asn.Variable().ID()]
		if !bound {
			// First binding of this variable: join the one-column
			// constant tuple in as a cross-product pivot-free atom,
			// then adopt the constant column itself as the binding.
			passVars, passCols := b.currentPassthrough()
			join := b.q.NewJoin([]*ir.View{b.currentView, constCol.DefiningView()}, nil, [][]*ir.Column{passCols, {constCol}})
			varCols := map[uint64]*ir.Column{}
			for i, v := range passVars {
				varCols[v] = join.NthColumn(i)
			}
			varCols[asn.Variable().ID()] = join.NthColumn(len(passVars))
			b.currentView = join.View
			b.colsByVar = varCols
			continue
		}

		passVars, passCols := b.currentPassthroughExcept(asn.Variable().ID())
		cmpView := b.q.NewCompare(ir.ComparisonEq, existing, constCol, passCols)
		varCols := map[uint64]*ir.Column{asn.Variable().ID(): cmpView.ComparisonColumns()[0]}
		for i, v := range passVars {
			varCols[v] = cmpView.PassthroughColumns()[i]
		}
		b.currentView = cmpView.View
		b.colsByVar = varCols
	}
}

func (b *clauseBuilder) currentPassthroughExcept(exclude ...uint64) ([]uint64, []*ir.Column) {
	skip := map[uint64]bool{}
	for _, e := range exclude {
		skip[e] = true
	}
	vars := make([]uint64, 0, len(b.colsByVar))
	for v := range b.colsByVar {
		if !skip[v] {
			vars = append(vars, v)
		}
	}
	sort.Slice(vars, func(i, j int) bool { return vars[i] < vars[j] })
	cols := make([]*ir.Column, len(vars))
	for i, v := range vars {
		cols[i] = b.colsByVar[v]
	}
	return vars, cols
}

// lowerNegations runs step 5: each negated predicate becomes a NEGATE
// against the declaration's relation/stream view, passing the current
// tuple's columns corresponding to the negation's arguments through on
// absence.
func (b *clauseBuilder) lowerNegations() {
	for _, neg := range b.clause.NegatedPredicates() {
		pd := neg.Declaration()
		if pd.Arity() == 0 {
			// Zero-arity negations are handled exclusively by
			// lowerConditions (step 6) as negative Conditions.
			continue
		}
		if pd.Inline() {
			b.fail(diag.ErrNegationOfInlineOnly.New(pd.Name()), neg.Span())
			return
		}
		if pd.Kind() == ir.DeclFunctor && pd.FunctorRange().IsGuaranteedNonEmpty() {
			b.fail(diag.ErrNegationOfNonEmptyFunctor.New(pd.Name(), functorRangeName(pd.FunctorRange())), neg.Span())
			return
		}

		rel, strm := b.compiler.relationFor(pd)
		var sourceView *ir.View
		if rel != nil {
			sourceView = b.viewForRelation(rel, paramTypes(pd), paramNames(pd))
		} else {
			sourceView = b.q.NewSelect(paramTypes(pd), paramNames(pd), rel, strm).View
		}

		ins := make([]*ir.Column, 0, len(neg.Arguments()))
		for _, v := range neg.Arguments() {
			col, ok := b.colsByVar[v.ID()]
			if !ok {
				b.fail(diag.ErrNonRangeRestricted.New(v.Name()), v.Span())
				return
			}
			ins = append(ins, col)
		}
		if b.currentView == nil {
			b.fail(diag.ErrInternalCompilerError.New("negation with no preceding positive atom"), neg.Span())
			return
		}

		negView := b.q.NewNegate(sourceView, ins)
		negView.SetNeverHint(neg.NeverHint())

		varCols := map[uint64]*ir.Column{}
		for i, v := range neg.Arguments() {
			varCols[v.ID()] = negView.Columns()[i]
		}
		// carry forward every other bound variable unchanged: NEGATE
		// only re-derives the columns it explicitly tests.
		for v, c := range b.colsByVar {
			if _, already := varCols[v]; !already {
				varCols[v] = c
			}
		}
		b.colsByVar = varCols
	}
}

func functorRangeName(r ir.FunctorRange) string {
	switch r {
	case ir.RangeOneToOne:
		return "one-to-one"
	case ir.RangeZeroOrOne:
		return "zero-or-one"
	case ir.RangeOneOrMore:
		return "one-or-more"
	case ir.RangeZeroOrMore:
		return "zero-or-more"
	default:
		return "?"
	}
}

// lowerConditions runs step 6: a zero-argument predicate whose
// declaration shares no variable with the rest of the body becomes a
// Condition attached to the clause's terminal view, instead of
// participating in the join. (Arity is checked, not inferred — any
// positive/negated predicate with zero arguments qualifies.)
func (b *clauseBuilder) lowerConditions() {
	var positive, negative []ast.Predicate
	for _, pred := range b.clause.PositivePredicates() {
		if pred.Declaration().Arity() == 0 {
			positive = append(positive, pred)
		}
	}

	for _, neg := range b.clause.NegatedPredicates() {
		if neg.Declaration().Arity() == 0 {
			negative = append(negative, neg)
		}
	}

	if len(positive) == 0 && len(negative) == 0 {
		return
	}
	if b.currentView == nil {
		b.fail(diag.ErrDisconnectedComponent.New(), b.clause.Span())
		return
	}
	for _, pred := range positive {
		rel, _ := b.compiler.relationFor(pred.Declaration())
		cond := b.conditionFor(rel)
		b.currentView.AddPositiveCondition(cond)
	}
	for _, pred := range negative {
		rel, _ := b.compiler.relationFor(pred.Declaration())
		cond := b.conditionFor(rel)
		b.currentView.AddNegativeCondition(cond)
	}
}

func (b *clauseBuilder) conditionFor(rel *ir.Relation) *ir.Condition {
	if b.compiler.conditionsByRelation == nil {
		b.compiler.conditionsByRelation = map[*ir.Relation]*ir.Condition{}
	}
	if cond, ok := b.compiler.conditionsByRelation[rel]; ok {
		return cond
	}
	cond := b.q.NewCondition()
	b.compiler.conditionsByRelation[rel] = cond
	return cond
}

// terminate runs step 7: map the joined tuple onto the head's parameter
// positions via a TUPLE, then INSERT into the head's relation or stream.
// Returns the TUPLE view (the caller unions these across a declaration's
// clauses in step 8).
func (b *clauseBuilder) terminate(decl ast.Declaration, clause ast.Clause, rel *ir.Relation, strm *ir.Stream) *ir.View {
	headVars := clause.HeadVariables()
	cols := make([]*ir.Column, len(headVars))
	seen := map[uint64]int{}
	for i, v := range headVars {
		col, ok := b.colsByVar[v.ID()]
		if !ok {
			b.fail(diag.ErrHeadVariableUnused.New(v.Name()), clause.Span())
			return nil
		}
		if prior, dup := seen[v.ID()]; dup {
			cols[i] = cols[prior]
		} else {
			seen[v.ID()] = i
			cols[i] = col
		}
	}
	tup := b.q.NewTuple(cols)
	b.q.NewInsert(tup.Columns(), rel, strm)
	return tup.View
}
