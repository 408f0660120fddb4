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

package defuse

// DefList is an owning arena of definitions of type T, created in
// insertion order and iterated in that same order. A Query embeds one
// DefList per view kind (plus one for columns, relations, streams,
// conditions, constants, and tags).
type DefList[T comparable] struct {
	defs []T
}

// Append adds an already-constructed definition to the arena.
func (l *DefList[T]) Append(def T) T {
	l.defs = append(l.defs, def)
	return def
}

// All returns the arena's contents in insertion order. Callers must not
// retain the slice across a mutating call (Append/RemoveIf/Sort may
// reallocate it).
func (l *DefList[T]) All() []T {
	return l.defs
}

// Size returns the number of live definitions.
func (l *DefList[T]) Size() int {
	return len(l.defs)
}

// RemoveIf deletes every definition for which cb returns true, preserving
// relative order of the survivors, and returns how many were removed.
func (l *DefList[T]) RemoveIf(cb func(T) bool) int {
	kept := l.defs[:0]
	removed := 0
	for _, d := range l.defs {
		if cb(d) {
			removed++
		} else {
			kept = append(kept, d)
		}
	}
	l.defs = kept
	return removed
}

// RemoveUnused removes every definition that IsUsed reports false for,
// via the supplied predicate (callers pass e.g. func(v) bool { return
// defuse.IsUsed[*View](v) }).
func (l *DefList[T]) RemoveUnused(isUsed func(T) bool) int {
	return l.RemoveIf(func(d T) bool { return !isUsed(d) })
}

// Sort reorders the arena in place using cmp (negative/zero/positive,
// like slices.SortFunc).
func (l *DefList[T]) Sort(cmp func(a, b T) int) {
	// insertion sort is fine: arenas here are hundreds, not millions, of
	// views, and we want a stable sort without pulling in golang.org/x/exp.
	for i := 1; i < len(l.defs); i++ {
		for j := i; j > 0 && cmp(l.defs[j-1], l.defs[j]) > 0; j-- {
			l.defs[j-1], l.defs[j] = l.defs[j], l.defs[j-1]
		}
	}
}

// Clear empties the arena.
func (l *DefList[T]) Clear() {
	l.defs = nil
}
