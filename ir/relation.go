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
	"fmt"

	"github.com/drlojekyll/dlc/internal/defuse"
)

// Relation is a named, durable table: the storage a SELECT reads from
// and an INSERT writes to. Declared Retractable if rows may be deleted
// (affects whether NEGATE against it can ever earn a never-hint).
type Relation struct {
	id          uint32
	Name        string
	ColumnTypes []ColumnType
	Retractable bool

	selects []*View
	inserts []*View
}

func (r *Relation) ID() uint32 { return r.id }

func (r *Relation) addSelect(v *View) { r.selects = append(r.selects, v) }
func (r *Relation) addInsert(v *View) { r.inserts = append(r.inserts, v) }

// Selects returns every SELECT view reading from this relation.
func (r *Relation) Selects() []*View { return r.selects }

// Inserts returns every INSERT view writing to this relation.
func (r *Relation) Inserts() []*View { return r.inserts }

func (r *Relation) String() string { return fmt.Sprintf("relation(%s)", r.Name) }

// StreamKind distinguishes an input message stream from a published
// output stream.
type StreamKind int

const (
	StreamMessage StreamKind = iota
	StreamPublished
)

// Stream is an external message boundary: either a MESSAGE declaration
// a SELECT pulls tuples from, or a published/exported relation that
// INSERT views send to.
type Stream struct {
	id   uint32
	Name string
	Kind StreamKind

	receives []*View
	senders  []*View
}

func (s *Stream) ID() uint32 { return s.id }

func (s *Stream) addReceive(v *View) { s.receives = append(s.receives, v) }
func (s *Stream) addSender(v *View)  { s.senders = append(s.senders, v) }

func (s *Stream) Receives() []*View { return s.receives }
func (s *Stream) Senders() []*View  { return s.senders }

func (s *Stream) String() string { return fmt.Sprintf("stream(%s)", s.Name) }

// Constant is a literal value folded into the graph by lowering or by
// the optimizer's constant-propagation pass.
type Constant struct {
	id    uint32
	Type  ColumnType
	Value string // textual representation; backends parse per Type
}

func (c *Constant) ID() uint32 { return c.id }

func (c *Constant) String() string { return fmt.Sprintf("const(%s:%s)", c.Value, c.Type) }

// Tag marks a view for debug-output highlighting (spec.md's
// `@highlight` pragma); purely cosmetic, never affects semantics.
type Tag struct {
	id    uint32
	Name  string
	Color uint32
}

func (t *Tag) ID() uint32 { return t.id }

// Condition is a zero-argument predicate used as a gate: views may be
// predicated on it positively or negatively, and at most the views on
// its setter list may set it (invariant 8: a setter produces exactly
// one output column).
type Condition struct {
	defuse.Def[*Condition]

	id uint32

	positiveUsers []*View
	negativeUsers []*View
	setters       []*View
}

// DefUse implements defuse.Definition[*Condition]: the uses here are the
// views that are gated on this condition (AddPositiveCondition /
// AddNegativeCondition) and the setters (MarkSetsCondition), which are
// also listed separately in Setters.
func (c *Condition) DefUse() *defuse.Def[*Condition] { return &c.Def }

func (c *Condition) ID() uint32 { return c.id }

func (c *Condition) addPositiveUser(v *View) { c.positiveUsers = append(c.positiveUsers, v) }
func (c *Condition) addNegativeUser(v *View) { c.negativeUsers = append(c.negativeUsers, v) }
func (c *Condition) addSetter(v *View)       { c.setters = append(c.setters, v) }

// PositiveUsers / NegativeUsers / Setters expose the condition's
// participants, per spec.md's "conditions decouple sub-graphs" design.
func (c *Condition) PositiveUsers() []*View { return c.positiveUsers }
func (c *Condition) NegativeUsers() []*View { return c.negativeUsers }
func (c *Condition) Setters() []*View       { return c.setters }

func (c *Condition) removePositiveUser(v *View) {
	for i, u := range c.positiveUsers {
		if u == v {
			c.positiveUsers = append(c.positiveUsers[:i], c.positiveUsers[i+1:]...)
			return
		}
	}
}

func (c *Condition) removeNegativeUser(v *View) {
	for i, u := range c.negativeUsers {
		if u == v {
			c.negativeUsers = append(c.negativeUsers[:i], c.negativeUsers[i+1:]...)
			return
		}
	}
}

// removeSetter drops v from the setter list (see View.ClearSetsCondition).
func (c *Condition) removeSetter(v *View) {
	for i, s := range c.setters {
		if s == v {
			c.setters = append(c.setters[:i], c.setters[i+1:]...)
			return
		}
	}
}

func (c *Condition) String() string { return fmt.Sprintf("cond%d", c.id) }
