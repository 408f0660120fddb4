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

// Package testast is the one in-memory implementation of the ast
// interfaces, used only by this module's own tests to exercise
// lowering without a real parser.
package testast

import (
	"github.com/drlojekyll/dlc/ast"
	"github.com/drlojekyll/dlc/ir"
)

// Var is a concrete ast.Variable. Two *Var sharing the same ID are the
// same "first appearance" variable.
type Var struct {
	VName string
	VID   uint64
	VType ir.ColumnType
}

func (v *Var) Name() string          { return v.VName }
func (v *Var) ID() uint64            { return v.VID }
func (v *Var) Type() ir.ColumnType   { return v.VType }
func (v *Var) Span() ast.SourceSpan  { return ast.SourceSpan{} }

// Lit is a concrete ast.Literal.
type Lit struct {
	LType ir.ColumnType
	LText string
}

func (l *Lit) Type() ir.ColumnType  { return l.LType }
func (l *Lit) Text() string         { return l.LText }
func (l *Lit) Span() ast.SourceSpan { return ast.SourceSpan{} }

// Param is a concrete ast.Parameter.
type Param struct {
	PName    string
	PType    ir.ColumnType
	PBinding ir.Binding
}

func (p *Param) Name() string        { return p.PName }
func (p *Param) Type() ir.ColumnType { return p.PType }
func (p *Param) Binding() ir.Binding { return p.PBinding }

// Decl is a concrete, mutable ast.Declaration. Clauses and
// redeclarations are attached after construction since they typically
// reference the Decl itself (a Clause's Head()).
type Decl struct {
	DName    string
	DKind    ir.DeclKind
	DParams  []ast.Parameter
	DClauses []ast.Clause
	DRedecls []ast.Declaration
	DInline  bool
	DRange   ir.FunctorRange
	DPure    bool
}

func NewDecl(name string, kind ir.DeclKind, params ...*Param) *Decl {
	d := &Decl{DName: name, DKind: kind}
	for _, p := range params {
		d.DParams = append(d.DParams, p)
	}
	return d
}

func (d *Decl) Name() string                   { return d.DName }
func (d *Decl) Arity() int                     { return len(d.DParams) }
func (d *Decl) Kind() ir.DeclKind              { return d.DKind }
func (d *Decl) Parameters() []ast.Parameter    { return d.DParams }
func (d *Decl) Clauses() []ast.Clause          { return d.DClauses }
func (d *Decl) Redeclarations() []ast.Declaration { return d.DRedecls }
func (d *Decl) Inline() bool                   { return d.DInline }
func (d *Decl) FunctorRange() ir.FunctorRange  { return d.DRange }
func (d *Decl) Pure() bool                     { return d.DPure }
func (d *Decl) Span() ast.SourceSpan           { return ast.SourceSpan{} }

// AddClause attaches a clause to this declaration (the clause's Head()
// is expected to be d).
func (d *Decl) AddClause(c ast.Clause) { d.DClauses = append(d.DClauses, c) }

// Pred is a concrete ast.Predicate.
type Pred struct {
	PDecl ast.Declaration
	PArgs []ast.Variable
}

func (p *Pred) Declaration() ast.Declaration { return p.PDecl }
func (p *Pred) Arguments() []ast.Variable    { return p.PArgs }
func (p *Pred) Span() ast.SourceSpan         { return ast.SourceSpan{} }

// Neg is a concrete ast.Negation.
type Neg struct {
	Pred
	Never bool
}

func (n *Neg) NeverHint() bool { return n.Never }

// Assign is a concrete ast.Assignment.
type Assign struct {
	AVar ast.Variable
	AVal ast.Literal
}

func (a *Assign) Variable() ast.Variable { return a.AVar }
func (a *Assign) Value() ast.Literal     { return a.AVal }
func (a *Assign) Span() ast.SourceSpan   { return ast.SourceSpan{} }

// Cmp is a concrete ast.Comparison.
type Cmp struct {
	Op       ir.ComparisonOperator
	CmpLHS   ast.Variable
	CmpRHS   ast.Variable
}

func (c *Cmp) Operator() ir.ComparisonOperator { return c.Op }
func (c *Cmp) LHS() ast.Variable               { return c.CmpLHS }
func (c *Cmp) RHS() ast.Variable               { return c.CmpRHS }
func (c *Cmp) Span() ast.SourceSpan             { return ast.SourceSpan{} }

// Agg is a concrete ast.Aggregate.
type Agg struct {
	AFunctor    ast.Declaration
	AGroup      []ast.Variable
	AConfig     []ast.Variable
	AAggregated []ast.Variable
	ASummary    []ast.Variable
	ASubBody    ast.Declaration
}

func (a *Agg) Functor() ast.Declaration          { return a.AFunctor }
func (a *Agg) GroupVariables() []ast.Variable    { return a.AGroup }
func (a *Agg) ConfigVariables() []ast.Variable   { return a.AConfig }
func (a *Agg) AggregatedVariables() []ast.Variable { return a.AAggregated }
func (a *Agg) SummaryVariables() []ast.Variable  { return a.ASummary }
func (a *Agg) SubBody() ast.Declaration          { return a.ASubBody }
func (a *Agg) Span() ast.SourceSpan              { return ast.SourceSpan{} }

// Clause is a concrete, mutable ast.Clause.
type Clause struct {
	CHead        ast.Declaration
	CHeadVars    []ast.Variable
	CPositive    []ast.Predicate
	CNegated     []ast.Negation
	CAssigns     []ast.Assignment
	CComparisons []ast.Comparison
	CAggregates  []ast.Aggregate
	CDisabled    bool
	CCrossProd   bool
}

func NewClause(head ast.Declaration, headVars ...ast.Variable) *Clause {
	return &Clause{CHead: head, CHeadVars: headVars}
}

func (c *Clause) Head() ast.Declaration               { return c.CHead }
func (c *Clause) HeadVariables() []ast.Variable       { return c.CHeadVars }
func (c *Clause) PositivePredicates() []ast.Predicate { return c.CPositive }
func (c *Clause) NegatedPredicates() []ast.Negation   { return c.CNegated }
func (c *Clause) Assignments() []ast.Assignment       { return c.CAssigns }
func (c *Clause) Comparisons() []ast.Comparison       { return c.CComparisons }
func (c *Clause) Aggregates() []ast.Aggregate         { return c.CAggregates }
func (c *Clause) DisabledByFalse() bool               { return c.CDisabled }
func (c *Clause) CrossProductAnnotated() bool         { return c.CCrossProd }
func (c *Clause) Span() ast.SourceSpan                { return ast.SourceSpan{} }

func (c *Clause) AddPositive(p ast.Predicate)  { c.CPositive = append(c.CPositive, p) }
func (c *Clause) AddNegated(n ast.Negation)    { c.CNegated = append(c.CNegated, n) }
func (c *Clause) AddAssignment(a ast.Assignment) { c.CAssigns = append(c.CAssigns, a) }
func (c *Clause) AddComparison(cm ast.Comparison) { c.CComparisons = append(c.CComparisons, cm) }
func (c *Clause) AddAggregate(a ast.Aggregate) { c.CAggregates = append(c.CAggregates, a) }
