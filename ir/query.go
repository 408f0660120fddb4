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

import "github.com/drlojekyll/dlc/internal/defuse"

// Query owns every view, column, relation, stream, constant, and
// condition produced while lowering a single Datalog program. Views
// share no state across queries (spec.md §3.1): nothing here is safe to
// share between two *Query values.
type Query struct {
	views      defuse.DefList[*View]
	relations  map[string]*Relation
	streams    map[string]*Stream
	conditions []*Condition
	constants  []*Constant
	tags       map[string]*Tag

	nextView      uint32
	nextColumn    uint32
	nextRelation  uint32
	nextStream    uint32
	nextCondition uint32
	nextConstant  uint32
	nextTag       uint32
}

// NewQuery returns an empty, ready-to-lower-into Query.
func NewQuery() *Query {
	return &Query{
		relations: map[string]*Relation{},
		streams:   map[string]*Stream{},
		tags:      map[string]*Tag{},
	}
}

func (q *Query) nextColumnID() uint32 {
	id := q.nextColumn
	q.nextColumn++
	return id
}

func (q *Query) newView(kind ViewKind, data any) *View {
	v := &View{id: q.nextView, query: q, Kind: kind, data: data}
	q.nextView++
	q.views.Append(v)
	return v
}

// Views returns every view in the query, in creation order.
func (q *Query) Views() []*View { return q.views.All() }

// ForEachView calls cb once per view currently in the query. Calling
// RemoveUnusedViews concurrent with iteration is NOT supported; callers
// that mutate the view list (e.g. dead-view elimination) must finish
// iterating first.
func (q *Query) ForEachView(cb func(*View)) {
	for _, v := range q.views.All() {
		cb(v)
	}
}

// ViewsOfKind filters Views() by kind; convenience for callers that only
// care about one variant (e.g. serialize.Handle.ViewsOfKind).
func (q *Query) ViewsOfKind(kind ViewKind) []*View {
	var out []*View
	for _, v := range q.views.All() {
		if v.Kind == kind {
			out = append(out, v)
		}
	}
	return out
}

// RemoveUnusedViews drops every view with no users and no output-column
// users, repeatedly, until a fixpoint — dead-column/dead-view
// elimination's view-level half (spec.md §4.E). Returns the number of
// views removed.
func (q *Query) RemoveUnusedViews() int {
	total := 0
	for {
		n := q.views.RemoveIf(func(v *View) bool {
			if v.IsUsed() {
				return false
			}
			v.destroy()
			return true
		})
		total += n
		if n == 0 {
			break
		}
	}
	return total
}

// destroy severs every strong/weak use this view holds and every use of
// its output columns, so dangling Use slots elsewhere observe Valid() ==
// false rather than pointing at a freed view.
func (v *View) destroy() {
	for _, in := range v.inputs {
		defuse.EraseUse[*Column](in.use.Target(), in.use)
	}
	for _, iv := range v.inputViews {
		if iv.Valid() {
			defuse.EraseUse[*View](iv.Target(), iv)
		}
	}
	for _, u := range v.positiveConds {
		if u.Valid() {
			u.Target().removePositiveUser(v)
		}
	}
	for _, u := range v.negativeConds {
		if u.Valid() {
			u.Target().removeNegativeUser(v)
		}
	}
	if v.setCondition != nil && v.setCondition.Valid() {
		v.setCondition.Target().removeSetter(v)
	}
	for _, c := range v.columns.All() {
		defuse.Sever[*Column](c)
	}
	defuse.Sever[*View](v)
}

// Relation returns the named relation, creating it on first reference.
func (q *Query) Relation(name string, colTypes []ColumnType, retractable bool) *Relation {
	if r, ok := q.relations[name]; ok {
		return r
	}
	r := &Relation{id: q.nextRelation, Name: name, ColumnTypes: colTypes, Retractable: retractable}
	q.nextRelation++
	q.relations[name] = r
	return r
}

// Relations returns every relation referenced so far, unordered.
func (q *Query) Relations() []*Relation {
	out := make([]*Relation, 0, len(q.relations))
	for _, r := range q.relations {
		out = append(out, r)
	}
	return out
}

// Stream returns the named stream, creating it on first reference.
func (q *Query) Stream(name string, kind StreamKind) *Stream {
	if s, ok := q.streams[name]; ok {
		return s
	}
	s := &Stream{id: q.nextStream, Name: name, Kind: kind}
	q.nextStream++
	q.streams[name] = s
	return s
}

func (q *Query) Streams() []*Stream {
	out := make([]*Stream, 0, len(q.streams))
	for _, s := range q.streams {
		out = append(out, s)
	}
	return out
}

// NewConstant allocates a fresh literal-value node.
func (q *Query) NewConstant(typ ColumnType, value string) *Constant {
	c := &Constant{id: q.nextConstant, Type: typ, Value: value}
	q.nextConstant++
	q.constants = append(q.constants, c)
	return c
}

func (q *Query) Constants() []*Constant { return q.constants }

// NewCondition allocates a fresh gating condition.
func (q *Query) NewCondition() *Condition {
	c := &Condition{id: q.nextCondition}
	q.nextCondition++
	q.conditions = append(q.conditions, c)
	return c
}

func (q *Query) Conditions() []*Condition { return q.conditions }

// Tag returns the named highlight tag, creating it (with a fresh color)
// on first reference.
func (q *Query) Tag(name string) *Tag {
	if t, ok := q.tags[name]; ok {
		return t
	}
	t := &Tag{id: q.nextTag, Name: name, Color: q.nextTag + 1}
	q.nextTag++
	q.tags[name] = t
	return t
}

// --- per-kind constructors ---

// NewSelect creates a SELECT view reading colTypes-shaped tuples from
// rel (relation read) xor strm (stream receive); exactly one must be
// non-nil.
func (q *Query) NewSelect(colTypes []ColumnType, varNames []string, rel *Relation, strm *Stream) Select {
	v := q.newView(KindSelect, &selectData{relation: rel, stream: strm})
	for i, t := range colTypes {
		name := ""
		if i < len(varNames) {
			name = varNames[i]
		}
		v.newColumn(t, name)
	}
	if rel != nil {
		rel.addSelect(v)
	}
	if strm != nil {
		strm.addReceive(v)
	}
	return Select{v}
}

// NewTuple creates a TUPLE view passing each of ins through unchanged.
func (q *Query) NewTuple(ins []*Column) Tuple {
	v := q.newView(KindTuple, &tupleData{})
	for _, in := range ins {
		out := v.newColumn(in.Type, in.VarName)
		v.addInput(RoleCopied, in, out)
	}
	return Tuple{v}
}

// NewConstantTuple creates a zero-input TUPLE realizing a compile-time
// literal as a single-column view, so downstream views (COMPARE, JOIN)
// can hold a normal column Use against it just like any other value.
func (q *Query) NewConstantTuple(c *Constant) Tuple {
	v := q.newView(KindTuple, &tupleData{constant: c})
	v.newColumn(c.Type, "")
	return Tuple{v}
}

// NewKVIndex creates a KV-INDEX view keyed by keys, with one value
// column per (value, mergeFunctor) pair.
func (q *Query) NewKVIndex(keys []*Column, values []*Column, mergeFunctors []string) KVIndex {
	v := q.newView(KindKVIndex, &kvIndexData{keyArity: len(keys), valueMergeFunctors: mergeFunctors})
	for _, k := range keys {
		out := v.newColumn(k.Type, k.VarName)
		v.addInput(RoleIndexKey, k, out)
	}
	for _, val := range values {
		out := v.newColumn(val.Type, val.VarName)
		v.addInput(RoleIndexValue, val, out)
	}
	return KVIndex{v}
}

// NewJoin creates a JOIN across joined. pivotGroups[i] is one pivot set:
// exactly len(joined) columns, one per joined view in the same order as
// joined, all of the same type (invariant I4) — these become the
// leading output columns, one per group. nonPivot[v] supplies the
// passthrough columns contributed by joined[v], appended after the
// pivots in joined order. A nil/empty pivotGroups is a cross-product.
func (q *Query) NewJoin(joined []*View, pivotGroups [][]*Column, nonPivot [][]*Column) Join {
	v := q.newView(KindJoin, &joinData{numPivots: len(pivotGroups)})
	for _, jv := range joined {
		v.addInputView(jv)
	}
	for _, group := range pivotGroups {
		out := v.newColumn(group[0].Type, group[0].VarName)
		for _, c := range group {
			v.addInput(RoleJoinPivot, c, out)
		}
	}
	for vi := range joined {
		if vi >= len(nonPivot) {
			continue
		}
		for _, c := range nonPivot[vi] {
			out := v.newColumn(c.Type, c.VarName)
			v.addInput(RoleJoinNonPivot, c, out)
		}
	}
	return Join{v}
}

// NewMap creates a MAP view applying functorName to ins, per rng's
// declared multiplicity; outs describes the functor's free/output
// parameters.
func (q *Query) NewMap(functorName string, rng FunctorRange, negated bool, ins []*Column, outs []ColumnType, outNames []string, passthrough []*Column) Map {
	v := q.newView(KindMap, &mapData{functorName: functorName, rng: rng, negated: negated})
	for _, in := range ins {
		v.addInput(RoleFunctorInput, in, nil)
	}
	for i, t := range outs {
		name := ""
		if i < len(outNames) {
			name = outNames[i]
		}
		v.newColumn(t, name)
	}
	for _, p := range passthrough {
		out := v.newColumn(p.Type, p.VarName)
		v.addInput(RoleCopied, p, out)
	}
	return Map{v}
}

// NewAggregate creates an AGGREGATE view over group/config/aggregated
// input columns, folding through functorName.
func (q *Query) NewAggregate(functorName string, group, config, aggregated []*Column, summaryTypes []ColumnType, summaryNames []string) Aggregate {
	v := q.newView(KindAggregate, &aggregateData{
		functorName:   functorName,
		numGroupCols:  len(group),
		numConfigCols: len(config),
		numAggregated: len(aggregated),
	})
	for _, c := range group {
		out := v.newColumn(c.Type, c.VarName)
		v.addInput(RoleAggregateGroup, c, out)
	}
	for _, c := range config {
		out := v.newColumn(c.Type, c.VarName)
		v.addInput(RoleAggregateConfig, c, out)
	}
	for _, c := range aggregated {
		v.addInput(RoleAggregatedColumn, c, nil)
	}
	for i, t := range summaryTypes {
		name := ""
		if i < len(summaryNames) {
			name = summaryNames[i]
		}
		v.newColumn(t, name)
	}
	return Aggregate{v}
}

// NewMerge creates an empty MERGE (UNION) whose output columns copy
// shapeLike's column types and names; inputs, which must share that
// shape, are added with Merge.AddMergedView.
func (q *Query) NewMerge(shapeLike *View) Merge {
	v := q.newView(KindMerge, &mergeData{})
	for _, c := range shapeLike.Columns() {
		v.newColumn(c.Type, c.VarName)
	}
	return Merge{v}
}

// NewNegate creates a NEGATE testing for the absence of a witness tuple
// in negated, passing ins through on absence.
func (q *Query) NewNegate(negated *View, ins []*Column) Negate {
	v := q.newView(KindNegate, &negateData{})
	v.addInputView(negated)
	for _, in := range ins {
		out := v.newColumn(in.Type, in.VarName)
		v.addInput(RoleNegated, in, out)
	}
	return Negate{v}
}

// NewCompare creates a COMPARE view applying op to lhs and rhs, plus
// passthrough columns.
func (q *Query) NewCompare(op ComparisonOperator, lhs, rhs *Column, passthrough []*Column) Compare {
	v := q.newView(KindCompare, &compareData{operator: op})
	v.addInput(RoleCompareLHS, lhs, nil)
	v.addInput(RoleCompareRHS, rhs, nil)
	if op == ComparisonEq {
		v.newColumn(lhs.Type, lhs.VarName)
	} else {
		v.newColumn(lhs.Type, lhs.VarName)
		v.newColumn(rhs.Type, rhs.VarName)
	}
	for _, p := range passthrough {
		out := v.newColumn(p.Type, p.VarName)
		v.addInput(RoleCopied, p, out)
	}
	return Compare{v}
}

// NewInsert creates a terminal INSERT writing ins into rel (table
// write) xor strm (message publish); exactly one must be non-nil.
func (q *Query) NewInsert(ins []*Column, rel *Relation, strm *Stream) Insert {
	v := q.newView(KindInsert, &insertData{relation: rel, stream: strm})
	role := RolePublished
	if rel != nil {
		role = RoleMaterialized
	}
	for _, in := range ins {
		v.addInput(role, in, nil)
	}
	if rel != nil {
		rel.addInsert(v)
	}
	if strm != nil {
		strm.addSender(v)
	}
	return Insert{v}
}
