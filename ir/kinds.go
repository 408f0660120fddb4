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

import "fmt"

// Per-kind data payloads. A View's `data` field holds exactly one of
// these, selected by Kind; the typed wrappers below (Select, Join, ...)
// are thin views over a *View plus its payload and never copy state out
// of the arena.

type selectData struct {
	relation *Relation
	stream   *Stream
}

type tupleData struct {
	// constant is non-nil only for the synthetic zero-input TUPLE that
	// realizes a compile-time literal as a Column (constant folding /
	// assignment lowering need a Column with a defining view; a bare
	// Constant isn't one — see Query.NewConstantTuple).
	constant *Constant
}

type kvIndexData struct {
	keyArity           int
	valueMergeFunctors []string
}

type joinData struct {
	numPivots int
}

type mapData struct {
	functorName string
	rng         FunctorRange
	negated     bool
}

type aggregateData struct {
	functorName                                string
	numGroupCols, numConfigCols, numAggregated int
}

type mergeData struct{}

type negateData struct {
	neverHintEligible bool
}

type compareData struct {
	operator ComparisonOperator
}

type insertData struct {
	relation *Relation
	stream   *Stream
}

func wrongKind(have ViewKind, want ViewKind) {
	panic(fmt.Sprintf("ir: view is %s, not %s", have, want))
}

// Select is a thin wrapper over a SELECT view: reads tuples from a
// relation or an IO stream, no input columns.
type Select struct{ *View }

func (v *View) AsSelect() Select {
	if v.Kind != KindSelect {
		wrongKind(v.Kind, KindSelect)
	}
	return Select{v}
}

func (s Select) Relation() *Relation { return s.data.(*selectData).relation }
func (s Select) Stream() *Stream     { return s.data.(*selectData).stream }

// Tuple is a thin wrapper over a TUPLE view: passes its inputs through
// unchanged, used for glue and to force materialization.
type Tuple struct{ *View }

func (v *View) AsTuple() Tuple {
	if v.Kind != KindTuple {
		wrongKind(v.Kind, KindTuple)
	}
	return Tuple{v}
}

// Constant returns the literal this TUPLE realizes, or nil for an
// ordinary passthrough TUPLE.
func (t Tuple) Constant() *Constant { return t.data.(*tupleData).constant }

// KVIndex is a thin wrapper over a KV-INDEX view: a stateful mapping
// from key columns to value columns, each value column merged by its
// own functor on conflicting writes.
type KVIndex struct{ *View }

func (v *View) AsKVIndex() KVIndex {
	if v.Kind != KindKVIndex {
		wrongKind(v.Kind, KindKVIndex)
	}
	return KVIndex{v}
}

func (k KVIndex) KeyArity() int { return k.data.(*kvIndexData).keyArity }

// KeyColumns / ValueColumns split the output columns by the arity
// recorded at construction time; key columns come first per spec.md
// §4.D's "IndexKey then IndexValue" input-role ordering, mirrored in
// the output.
func (k KVIndex) KeyColumns() []*Column {
	return k.Columns()[:k.KeyArity()]
}

func (k KVIndex) ValueColumns() []*Column {
	return k.Columns()[k.KeyArity():]
}

// ValueMergeFunctor returns the name of the functor merging the ith
// value column on conflicting writes.
func (k KVIndex) ValueMergeFunctor(i int) string {
	return k.data.(*kvIndexData).valueMergeFunctors[i]
}

// Join is a thin wrapper over a JOIN view: a natural join across N
// input views on one or more pivot column sets. Zero pivots means a
// cross-product, only legal if the clause that produced it was
// annotated to permit one.
type Join struct{ *View }

func (v *View) AsJoin() Join {
	if v.Kind != KindJoin {
		wrongKind(v.Kind, KindJoin)
	}
	return Join{v}
}

func (j Join) NumPivots() int { return j.data.(*joinData).numPivots }

func (j Join) IsCrossProduct() bool { return j.NumPivots() == 0 }

// JoinedViews returns the input views being joined, in join order.
func (j Join) JoinedViews() []*View {
	out := make([]*View, 0, len(j.inputViews))
	for _, u := range j.inputViews {
		if u.Valid() {
			out = append(out, u.Target())
		}
	}
	return out
}

// PivotColumns returns the leading output columns shared across all
// joined views; NonPivotColumns returns the passthrough tail.
func (j Join) PivotColumns() []*Column    { return j.Columns()[:j.NumPivots()] }
func (j Join) NonPivotColumns() []*Column { return j.Columns()[j.NumPivots():] }

// Map is a thin wrapper over a MAP view: applies a functor to bound
// input columns, producing zero or more outputs per call according to
// the functor's declared range.
type Map struct{ *View }

func (v *View) AsMap() Map {
	if v.Kind != KindMap {
		wrongKind(v.Kind, KindMap)
	}
	return Map{v}
}

func (m Map) FunctorName() string   { return m.data.(*mapData).functorName }
func (m Map) Range() FunctorRange   { return m.data.(*mapData).rng }
func (m Map) IsNegated() bool       { return m.data.(*mapData).negated }

// Aggregate is a thin wrapper over an AGGREGATE view: partitions input
// by group columns, conditions by configuration columns, and folds the
// remaining aggregated columns through the named functor.
type Aggregate struct{ *View }

func (v *View) AsAggregate() Aggregate {
	if v.Kind != KindAggregate {
		wrongKind(v.Kind, KindAggregate)
	}
	return Aggregate{v}
}

func (a Aggregate) FunctorName() string { return a.data.(*aggregateData).functorName }

func (a Aggregate) GroupColumns() []*Column {
	d := a.data.(*aggregateData)
	return a.Columns()[:d.numGroupCols]
}

func (a Aggregate) ConfigColumns() []*Column {
	d := a.data.(*aggregateData)
	return a.Columns()[d.numGroupCols : d.numGroupCols+d.numConfigCols]
}

func (a Aggregate) SummaryColumns() []*Column {
	d := a.data.(*aggregateData)
	return a.Columns()[d.numGroupCols+d.numConfigCols:]
}

// Merge is a thin wrapper over a MERGE (UNION) view: unions the output
// columns of N input views of identical shape. Every induction cycle
// must pass through one (spec.md §4.F): a MERGE reachable from itself
// through the dataflow graph is the root of an induction group, and the
// other views on the cycle join that group.
type Merge struct{ *View }

func (v *View) AsMerge() Merge {
	if v.Kind != KindMerge {
		wrongKind(v.Kind, KindMerge)
	}
	return Merge{v}
}

// MergedViews returns the views being unioned.
func (m Merge) MergedViews() []*View {
	out := make([]*View, 0, len(m.inputViews))
	for _, u := range m.inputViews {
		if u.Valid() {
			out = append(out, u.Target())
		}
	}
	return out
}

func (m Merge) AddMergedView(other *View) {
	m.View.addInputView(other)
	outs := m.View.Columns()
	for i, c := range other.Columns() {
		m.View.addInput(RoleMergedColumn, c, outs[i])
	}
}

// Negate is a thin wrapper over a NEGATE view: passes input columns
// through iff a witness tuple is absent from the negated source view.
type Negate struct{ *View }

func (v *View) AsNegate() Negate {
	if v.Kind != KindNegate {
		wrongKind(v.Kind, KindNegate)
	}
	return Negate{v}
}

// NegatedView returns the source view whose absence is being tested.
func (n Negate) NegatedView() *View {
	if len(n.inputViews) == 0 || !n.inputViews[0].Valid() {
		return nil
	}
	return n.inputViews[0].Target()
}

// NeverHintEligible reports whether this NEGATE's source is fed only by
// non-retractable inserts, the precondition the optimizer's never-hint
// propagation pass checks before setting HasNeverHint (spec.md §4.E,
// example 6).
func (n Negate) NeverHintEligible() bool { return n.data.(*negateData).neverHintEligible }

// SetNeverHintEligible records whether this NEGATE's source is fed only
// by non-retractable inserts; the optimizer's never-hint propagation
// pass sets this before deciding whether to call View.SetNeverHint.
func (n Negate) SetNeverHintEligible(v bool) { n.data.(*negateData).neverHintEligible = v }

// Compare is a thin wrapper over a COMPARE view: applies a binary
// comparison to two input columns, yielding one (equality) or two
// (inequality) comparison output columns plus passthroughs.
type Compare struct{ *View }

func (v *View) AsCompare() Compare {
	if v.Kind != KindCompare {
		wrongKind(v.Kind, KindCompare)
	}
	return Compare{v}
}

func (c Compare) Operator() ComparisonOperator { return c.data.(*compareData).operator }

func (c Compare) numComparisonOutputs() int {
	if c.Operator() == ComparisonEq {
		return 1
	}
	return 2
}

func (c Compare) ComparisonColumns() []*Column { return c.Columns()[:c.numComparisonOutputs()] }
func (c Compare) PassthroughColumns() []*Column {
	return c.Columns()[c.numComparisonOutputs():]
}

// Insert is a thin wrapper over an INSERT view: a terminal sink writing
// its input columns into a relation or emitting them as a message.
type Insert struct{ *View }

func (v *View) AsInsert() Insert {
	if v.Kind != KindInsert {
		wrongKind(v.Kind, KindInsert)
	}
	return Insert{v}
}

func (i Insert) Relation() *Relation { return i.data.(*insertData).relation }
func (i Insert) Stream() *Stream     { return i.data.(*insertData).stream }
