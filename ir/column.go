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

// Column is one output position of a View. Every Column has exactly one
// defining view (invariant: "every column has exactly one defining
// view") and owns the list of input-column slots that use it.
type Column struct {
	defuse.Def[*Column]

	id   uint32
	view *View
	// Index is this column's ordinal position within view's output
	// columns.
	Index int
	Type  ColumnType

	// VarName is the source variable this column was derived from, kept
	// only for diagnostics; empty for synthetic columns (e.g. constants
	// folded in by the optimizer).
	VarName string

	// Color is a debug-output tag, propagated from the view that defined
	// this column (see View.Color).
	Color uint32
}

// DefUse implements defuse.Definition[*Column].
func (c *Column) DefUse() *defuse.Def[*Column] { return &c.Def }

// ID returns this column's stable identifier, unique within its owning
// Query.
func (c *Column) ID() uint32 { return c.id }

// DefiningView returns the view that defines this column.
func (c *Column) DefiningView() *View { return c.view }

// NumUses returns how many input-column slots hold a use of this column.
func (c *Column) NumUses() int { return defuse.NumUses[*Column](c) }

// IsUsed reports whether any input-column slot uses this column.
func (c *Column) IsUsed() bool { return defuse.IsUsed[*Column](c) }

// ForEachUser calls cb once per view that holds a use of this column.
func (c *Column) ForEachUser(cb func(*View)) {
	defuse.ForEachUse[*Column](c, func(user defuse.User, _ *Column) {
		cb(user.(*View))
	})
}

// ReplaceAllUsesWith reseats every input-column slot holding a use of c
// onto that instead. Used by dead-column elimination when a narrower
// replacement view is spliced in for only the columns still in use.
func (c *Column) ReplaceAllUsesWith(that *Column) {
	if c == that {
		return
	}
	defuse.ReplaceAllUsesWith[*Column](c, that, that)
}

func (c *Column) String() string {
	idx := "?"
	if c.view != nil {
		idx = fmt.Sprintf("%d", c.Index)
	}
	return fmt.Sprintf("col%d(%s:%s:%s)", c.id, viewLabel(c.view), idx, c.Type)
}

func viewLabel(v *View) string {
	if v == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s%d", v.Kind, v.id)
}
