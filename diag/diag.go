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

// Package diag defines the compiler's error taxonomy (spec.md §7) and an
// append-only error log that lowering, optimization, and induction
// analysis each consult to decide whether their stage may proceed.
package diag

import (
	"fmt"

	"github.com/drlojekyll/dlc/ast"
	errors "gopkg.in/src-d/go-errors.v1"
)

// Kind classes are declared with go-errors.v1 the same way the teacher
// declares its sql.Error kinds: one *errors.Kind per taxonomy entry,
// each wrapping a fmt-style message template.
var (
	ErrUndeclaredPredicate = errors.NewKind("undeclared predicate %q/%d")
	ErrArityMismatch       = errors.NewKind("predicate %q applied with %d argument(s), declared with %d")
	ErrNonRangeRestricted  = errors.NewKind("variable %q is not range-restricted")
	ErrCrossProductUnannotated = errors.NewKind("join %q would be a cross-product; annotate the clause with @product to permit one")
	ErrNegationOfInlineOnly    = errors.NewKind("cannot negate inline-only declaration %q")
	ErrNegationOfNonEmptyFunctor = errors.NewKind("cannot negate functor %q: range %s guarantees a non-empty result")
	ErrAggregationOverFunctor = errors.NewKind("functor %q cannot itself be aggregated over")
	ErrRedeclarationDiffers  = errors.NewKind("declaration %q redeclared with different parameters, bindings, or pragmas; first declared here")
	ErrUnstratifiableCycle   = errors.NewKind("cycle through view(s) %v cannot be stratified")
	ErrMergeFreeSCC          = errors.NewKind("strongly connected component %v contains no MERGE view")
	ErrInternalCompilerError = errors.NewKind("internal compiler error: %s")
	ErrDisconnectedComponent = errors.NewKind("clause body has a component disconnected from the head that cannot be extracted into a condition; factor it out manually")
	ErrHeadVariableUnused    = errors.NewKind("head parameter %q is not bound by any body atom or assignment")
)

// Severity classifies whether an appended diagnostic aborts only its
// clause/view or the whole Query.
type Severity int

const (
	// SeverityClauseFatal drops the affected clause but lowering
	// continues with the others (spec.md §7.2).
	SeverityClauseFatal Severity = iota
	// SeverityQueryFatal aborts the entire stage for this Query
	// (induction errors, spec.md §7.4).
	SeverityQueryFatal
	// SeverityInternal is a programmer error inside the compiler
	// itself (spec.md §7.3).
	SeverityInternal
)

// Diagnostic is one entry in the Log: a classified error plus the
// source span(s) it refers to.
type Diagnostic struct {
	Err      error
	Severity Severity
	Spans    []ast.SourceSpan
}

func (d Diagnostic) Error() string { return d.Err.Error() }

// Log is the append-only error log the driver consults post-hoc
// (spec.md §7's "Propagation" paragraph): lowering/optimization/
// induction each only hand back a usable Query if no fatal entry was
// appended since the stage began.
type Log struct {
	entries []Diagnostic
}

// NewLog returns an empty log.
func NewLog() *Log { return &Log{} }

// Append records a diagnostic.
func (l *Log) Append(err error, sev Severity, spans ...ast.SourceSpan) {
	l.entries = append(l.entries, Diagnostic{Err: err, Severity: sev, Spans: spans})
}

// Entries returns every diagnostic appended so far, in order.
func (l *Log) Entries() []Diagnostic { return l.entries }

// Mark returns the current entry count, to be passed to HasFatalSince.
func (l *Log) Mark() int { return len(l.entries) }

// HasFatalSince reports whether any SeverityQueryFatal or
// SeverityInternal diagnostic was appended at or after mark.
func (l *Log) HasFatalSince(mark int) bool {
	for _, e := range l.entries[mark:] {
		if e.Severity == SeverityQueryFatal || e.Severity == SeverityInternal {
			return true
		}
	}
	return false
}

// HasAnySince reports whether any diagnostic at all (including
// clause-fatal) was appended at or after mark, e.g. to tell whether a
// clause was rejected.
func (l *Log) HasAnySince(mark int) bool { return len(l.entries) > mark }

func (l *Log) String() string {
	s := ""
	for _, e := range l.entries {
		s += fmt.Sprintf("[%d] %s\n", e.Severity, e.Err)
	}
	return s
}
