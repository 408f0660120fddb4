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

// Package defuse implements the generic owning-definition / use-list
// primitive that the dataflow IR is built on: every definition owns an
// append-only list of the uses that point at it, and every mutation to
// that list goes through a small set of operations (CreateUse, EraseUse,
// ReplaceAllUsesWith) that keep a global timestamp counter advancing so
// callers can detect forbidden re-entrant mutation.
package defuse

import "fmt"

// nextTimestamp is the process-wide monotonic counter. Every mutation of
// a use list takes the next tick; re-entrant mutation during an Update
// callback is detected by comparing against the timestamp captured when
// the callback began.
var nextTimestamp uint64

// Tick advances and returns the global timestamp.
func Tick() uint64 {
	nextTimestamp++
	return nextTimestamp
}

// User is anything that can hold a Use and must be notified when that
// use is reseated onto a different definition.
type User interface {
	Update(timestamp uint64)
}

// Use is an edge from a User's input slot to a definition of type *T.
// The zero value is a valid "no use" state.
type Use[T comparable] struct {
	target T
	user   User
	index  int
	weak   bool
}

// Target returns the definition this use points at, or the zero value of
// T if the use has been severed (its definition was destroyed while this
// use's slot was still live).
func (u *Use[T]) Target() T {
	if u == nil {
		var zero T
		return zero
	}
	return u.target
}

// Valid reports whether this use still points at a live definition.
func (u *Use[T]) Valid() bool {
	if u == nil {
		return false
	}
	var zero T
	return u.target != zero
}

// Definition is implemented by definition types so that the free
// functions below (CreateUse, ReplaceAllUsesWith, ...) can reach the
// embedded Def[T] without a CRTP-style self pointer.
type Definition[T comparable] interface {
	DefUse() *Def[T]
}

// Def is embedded in a definition type to give it an owning use list.
// It is not safe to copy after first use.
type Def[T comparable] struct {
	uses       []*Use[T]
	weakUses   []*Use[T]
	updating   bool
	updateTick uint64
}

// checkNotUpdating panics while d.updating is set, i.e. while a
// User.Update callback for this def is in flight, so that any attempt to
// mutate this def's use list re-entrantly is caught (invariant 11: "no
// use is added or removed inside an ongoing update callback").
func (d *Def[T]) checkNotUpdating(op string) {
	if d.updating {
		panic(fmt.Sprintf("defuse: illegal re-entrant %s during an in-flight Update callback", op))
	}
}

// CreateUse records `user` as holding a strong use of the definition
// owning `d`, identified here by `self` (the definition's own pointer/
// value, since Go has no implicit CRTP self-reference). Appends to the
// strong use list and notifies `user` with a fresh timestamp.
func CreateUse[T comparable](def Definition[T], self T, user User) *Use[T] {
	d := def.DefUse()
	d.checkNotUpdating("AddUse")
	u := &Use[T]{target: self, user: user, index: len(d.uses)}
	d.uses = append(d.uses, u)
	d.updating = true
	user.Update(Tick())
	d.updating = false
	return u
}

// CreateWeakUse records a weak (non-owning) use on the definition's weak
// use list: it does not count toward NumUses / IsUsed, and it is nulled
// out when the definition is destroyed.
func CreateWeakUse[T comparable](def Definition[T], self T, user User) *Use[T] {
	d := def.DefUse()
	u := &Use[T]{target: self, user: user, index: len(d.weakUses), weak: true}
	d.weakUses = append(d.weakUses, u)
	return u
}

// EraseUse removes `u` from its definition's strong use list. It is a
// programmer error to erase a use that isn't on the list; this is a
// no-op in that case (mirrors the original's "erasing a use not on the
// list is a programmer error" — we fail soft rather than corrupt state).
func EraseUse[T comparable](def Definition[T], u *Use[T]) {
	d := def.DefUse()
	d.checkNotUpdating("EraseUse")
	for i, cand := range d.uses {
		if cand == u {
			d.uses = append(d.uses[:i], d.uses[i+1:]...)
			reindex(d.uses)
			return
		}
	}
}

// EraseWeakUse removes `u` from its definition's weak use list.
func EraseWeakUse[T comparable](def Definition[T], u *Use[T]) {
	d := def.DefUse()
	for i, cand := range d.weakUses {
		if cand == u {
			d.weakUses = append(d.weakUses[:i], d.weakUses[i+1:]...)
			return
		}
	}
}

// Sever nulls out every use (strong and weak) of this definition. Called
// when the definition itself is being destroyed; strong-use slots remain
// on their owner's list (per the lifecycle rule: "the use is severed but
// the slot remains until the owning view's next update") while weak-use
// holders see their Use.Target() return the zero value immediately.
func Sever[T comparable](def Definition[T]) {
	d := def.DefUse()
	var zero T
	for _, u := range d.uses {
		u.target = zero
	}
	for _, u := range d.weakUses {
		u.target = zero
	}
	d.weakUses = nil
}

// NumUses returns the number of strong uses of this definition.
func NumUses[T comparable](def Definition[T]) int {
	return len(def.DefUse().uses)
}

// IsUsed reports whether this definition has any strong use.
func IsUsed[T comparable](def Definition[T]) bool {
	return len(def.DefUse().uses) > 0
}

// ForEachUse calls cb once per live strong use, in insertion order.
func ForEachUse[T comparable](def Definition[T], cb func(user User, target T)) {
	d := def.DefUse()
	d.updating = true
	defer func() { d.updating = false }()
	var zero T
	for _, u := range d.uses {
		if u != nil && u.target != zero {
			cb(u.user, u.target)
		}
	}
}

// ReplaceAllUsesWith reseats every strong use of `old` onto `new`,
// identified by `newSelf`, in the order they appeared on `old`. After the
// call old's use list is empty and new's use list has gained the
// reseated entries at its tail, in order. Each reseated user receives
// exactly one Update callback, carrying a single fresh timestamp shared
// by the whole batch (mirrors the original's "fresh timestamp" per call,
// not per use).
func ReplaceAllUsesWith[T comparable](old, new_ Definition[T], newSelf T) {
	od, nd := old.DefUse(), new_.DefUse()
	if od == nd {
		return
	}
	od.checkNotUpdating("ReplaceAllUsesWith(old)")
	nd.checkNotUpdating("ReplaceAllUsesWith(new)")

	start := len(nd.uses)
	for _, u := range od.uses {
		u.target = newSelf
		u.index = len(nd.uses)
		nd.uses = append(nd.uses, u)
	}
	od.uses = od.uses[:0]

	ts := Tick()
	nd.updating = true
	for _, u := range nd.uses[start:] {
		u.user.Update(ts)
	}
	nd.updating = false
}

// ReplaceUsesWhere is like ReplaceAllUsesWith but only reseats uses whose
// user satisfies pred.
func ReplaceUsesWhere[T comparable](old, new_ Definition[T], newSelf T, pred func(user User) bool) {
	od, nd := old.DefUse(), new_.DefUse()
	if od == nd {
		return
	}
	od.checkNotUpdating("ReplaceUsesWhere(old)")
	nd.checkNotUpdating("ReplaceUsesWhere(new)")

	var kept []*Use[T]
	var moved []*Use[T]
	for _, u := range od.uses {
		if pred(u.user) {
			moved = append(moved, u)
		} else {
			kept = append(kept, u)
		}
	}
	reindex(kept)
	od.uses = kept

	start := len(nd.uses)
	for _, u := range moved {
		u.target = newSelf
		u.index = len(nd.uses)
		nd.uses = append(nd.uses, u)
	}

	ts := Tick()
	nd.updating = true
	for _, u := range nd.uses[start:] {
		u.user.Update(ts)
	}
	nd.updating = false
}

func reindex[T comparable](uses []*Use[T]) {
	for i, u := range uses {
		if u != nil {
			u.index = i
		}
	}
}
