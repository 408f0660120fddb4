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

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// node is a minimal definition type used only by this package's own
// tests: it embeds Def[*node] and records every Update it receives.
type node struct {
	Def[*node]
	name    string
	updates []uint64
}

func (n *node) DefUse() *Def[*node] { return &n.Def }
func (n *node) Update(ts uint64)    { n.updates = append(n.updates, ts) }

func newNode(name string) *node {
	return &node{name: name}
}

func TestCreateUseAndForEachUse(t *testing.T) {
	a := newNode("a")
	b := newNode("b")

	u1 := CreateUse[*node](a, a, b)
	require.True(t, u1.Valid())
	require.Equal(t, a, u1.Target())
	require.Equal(t, 1, NumUses[*node](a))
	require.True(t, IsUsed[*node](a))

	var seen []*node
	ForEachUse[*node](a, func(user User, target *node) {
		seen = append(seen, target)
	})
	require.Equal(t, []*node{a}, seen)
}

func TestReplaceAllUsesWithOrderAndEmptiness(t *testing.T) {
	oldDef := newNode("old")
	newDef := newNode("new")
	u1 := newNode("user1")
	u2 := newNode("user2")
	u3 := newNode("user3")

	CreateUse[*node](oldDef, oldDef, u1)
	CreateUse[*node](oldDef, oldDef, u2)
	CreateUse[*node](oldDef, oldDef, u3)
	require.Equal(t, 3, NumUses[*node](oldDef))

	ReplaceAllUsesWith[*node](oldDef, newDef, newDef)

	require.Equal(t, 0, NumUses[*node](oldDef))
	require.Equal(t, 3, NumUses[*node](newDef))

	var order []*node
	ForEachUse[*node](newDef, func(user User, target *node) {
		order = append(order, user.(*node))
	})
	require.Equal(t, []*node{u1, u2, u3}, order)

	// Each reseated user got exactly one Update call with a shared
	// timestamp (beyond the one Update each got when the use was first
	// created).
	require.Len(t, u1.updates, 2)
	require.Len(t, u2.updates, 2)
	require.Len(t, u3.updates, 2)
	require.Equal(t, u1.updates[1], u2.updates[1])
	require.Equal(t, u2.updates[1], u3.updates[1])
}

func TestReplaceAllUsesWithNoOpOnSelf(t *testing.T) {
	d := newNode("d")
	user := newNode("user")
	CreateUse[*node](d, d, user)

	ReplaceAllUsesWith[*node](d, d, d)
	require.Equal(t, 1, NumUses[*node](d))
}

func TestReplaceUsesWhereFiltersByPredicate(t *testing.T) {
	oldDef := newNode("old")
	newDef := newNode("new")
	keep := newNode("keep")
	move := newNode("move")

	CreateUse[*node](oldDef, oldDef, keep)
	CreateUse[*node](oldDef, oldDef, move)

	ReplaceUsesWhere[*node](oldDef, newDef, newDef, func(u User) bool {
		return u.(*node) == move
	})

	require.Equal(t, 1, NumUses[*node](oldDef))
	require.Equal(t, 1, NumUses[*node](newDef))

	var oldUsers, newUsers []*node
	ForEachUse[*node](oldDef, func(user User, target *node) { oldUsers = append(oldUsers, user.(*node)) })
	ForEachUse[*node](newDef, func(user User, target *node) { newUsers = append(newUsers, user.(*node)) })
	require.Equal(t, []*node{keep}, oldUsers)
	require.Equal(t, []*node{move}, newUsers)
}

func TestSeverNullsTargets(t *testing.T) {
	d := newNode("d")
	user := newNode("user")
	strong := CreateUse[*node](d, d, user)
	weak := CreateWeakUse[*node](d, d, user)

	require.True(t, strong.Valid())
	require.True(t, weak.Valid())

	Sever[*node](d)

	require.False(t, strong.Valid())
	require.False(t, weak.Valid())
	var zero *node
	require.Equal(t, zero, strong.Target())
	require.Equal(t, zero, weak.Target())
}

func TestEraseUseRemovesFromList(t *testing.T) {
	d := newNode("d")
	u1 := newNode("u1")
	u2 := newNode("u2")

	use1 := CreateUse[*node](d, d, u1)
	CreateUse[*node](d, d, u2)
	require.Equal(t, 2, NumUses[*node](d))

	EraseUse[*node](d, use1)
	require.Equal(t, 1, NumUses[*node](d))

	var remaining []*node
	ForEachUse[*node](d, func(user User, target *node) { remaining = append(remaining, user.(*node)) })
	require.Equal(t, []*node{u2}, remaining)
}

func TestReentrantMutationPanics(t *testing.T) {
	d := newNode("d")
	victim := newNode("victim")
	var use *Use[*node]
	use = CreateUse[*node](d, d, victim)

	reentrant := &reentrantUser{onUpdate: func() {
		require.Panics(t, func() {
			EraseUse[*node](d, use)
		})
	}}
	CreateUse[*node](d, d, reentrant)
}

type reentrantUser struct {
	onUpdate func()
}

func (r *reentrantUser) Update(ts uint64) {
	r.onUpdate()
}

func TestDefListOrderAndRemove(t *testing.T) {
	var l DefList[*node]
	a, b, c := newNode("a"), newNode("b"), newNode("c")
	l.Append(a)
	l.Append(b)
	l.Append(c)

	require.Equal(t, []*node{a, b, c}, l.All())

	removed := l.RemoveIf(func(n *node) bool { return n.name == "b" })
	require.Equal(t, 1, removed)
	require.Equal(t, []*node{a, c}, l.All())
}
