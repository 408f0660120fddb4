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

// Package driver sequences the compile pipeline: lower the AST into a
// Query, optimize it to a fixpoint, run induction analysis, and hand
// back a read-only serialize.Handle — the single entry point the teacher's
// own engine-wiring convention would call "building the plan".
package driver

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/drlojekyll/dlc/ast"
	"github.com/drlojekyll/dlc/config"
	"github.com/drlojekyll/dlc/diag"
	"github.com/drlojekyll/dlc/induction"
	"github.com/drlojekyll/dlc/ir"
	"github.com/drlojekyll/dlc/lower"
	"github.com/drlojekyll/dlc/optimize"
	"github.com/drlojekyll/dlc/serialize"
	"github.com/drlojekyll/dlc/trace"
)

// Result is the outcome of one Compile call.
type Result struct {
	Query  *ir.Query
	Handle *serialize.Handle
	Log    *diag.Log
}

// OK reports whether the compile produced a usable Query: no
// query-fatal or internal diagnostic was appended at any stage.
func (r Result) OK() bool { return !r.Log.HasFatalSince(0) }

// Compile runs the full pipeline over mod using cfg's policy, logging
// each stage at Info level the way the teacher's own multi-phase
// startup sequencing does (connect, load catalog, serve).
func Compile(ctx context.Context, mod *ast.Module, cfg *config.Compile) Result {
	if cfg == nil {
		cfg = config.Default()
	}

	q := ir.NewQuery()
	log := diag.NewLog()

	lowerSpan, ctx := trace.StartStage(ctx, "lower")
	logrus.Info("lowering module")
	lower.Lower(q, log, mod, cfg.LowerOptions())
	lowerSpan.Finish()
	if log.HasFatalSince(0) {
		logrus.WithField("diagnostics", len(log.Entries())).Warn("lowering produced fatal diagnostics, aborting pipeline")
		return Result{Query: q, Log: log}
	}

	optSpan, ctx := trace.StartStage(ctx, "optimize")
	logrus.Info("optimizing query")
	optOpts := optimize.Options{MaxIterations: cfg.Optimize.MaxIterations, DisabledRules: cfg.Optimize.DisabledRules}
	result := optimize.Run(ctx, q, optOpts)
	optSpan.Finish()
	logrus.WithFields(logrus.Fields{"iterations": result.Iterations, "rewrites": result.Rewrites}).Info("optimization converged")

	indSpan, _ := trace.StartStage(ctx, "induce")
	logrus.Info("running induction analysis")
	induction.Analyze(q, log)
	indSpan.Finish()

	return Result{Query: q, Handle: serialize.New(q), Log: log}
}
