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

// Package optimize rewrites a Query to a fixpoint: each rule in the
// batch runs in order, reporting how many rewrites it made; the batch
// repeats until a full pass makes none, the same rule-batch-to-fixpoint
// shape the teacher's analyzer runs its optimization rules in.
package optimize

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/drlojekyll/dlc/ir"
	"github.com/drlojekyll/dlc/metrics"
	"github.com/drlojekyll/dlc/trace"
)

// DefaultMaxIterations bounds the fixpoint loop when Options.MaxIterations
// is zero.
const DefaultMaxIterations = 100

// Rule is one rewrite pass over q. Apply returns the number of rewrites
// performed; Run keeps looping the batch while any rule in it reports a
// nonzero count.
type Rule interface {
	Name() string
	Apply(q *ir.Query) int
}

// Options configures one Run.
type Options struct {
	MaxIterations int
	DisabledRules []string
}

// Result summarizes one Run.
type Result struct {
	Iterations int
	Rewrites   map[string]int
}

// defaultBatch is the rule order the teacher's analyzer convention uses:
// cheap structural cleanups first, CSE and hoisting after the graph has
// already been pruned down, so later rules see less to walk. Order
// follows spec.md §4.E's own list — canonicalization, constant
// propagation, dead-column elimination, CSE, predicate pushdown, tuple
// flattening, condition hoisting, never-hint — with a few extra boundary
// cleanups (canonicalizeMergeRule, deadViewRule) folded in around it.
func defaultBatch() []Rule {
	return []Rule{
		canonicalizeRule{},
		constantPropagationRule{},
		constantFoldCompareRule{},
		deadColumnRule{},
		cseRule{},
		predicateSinkRule{},
		tupleFlattenRule{},
		conditionHoistRule{},
		neverHintRule{},
		canonicalizeMergeRule{},
		deadViewRule{},
	}
}

// Run applies defaultBatch to q until a full pass rewrites nothing, or
// MaxIterations is hit.
func Run(ctx context.Context, q *ir.Query, opts Options) Result {
	span, ctx := trace.StartStage(ctx, "optimize")
	defer span.Finish()

	max := opts.MaxIterations
	if max == 0 {
		max = DefaultMaxIterations
	}
	disabled := map[string]bool{}
	for _, r := range opts.DisabledRules {
		disabled[r] = true
	}

	batch := defaultBatch()
	result := Result{Rewrites: map[string]int{}}

	for ; result.Iterations < max; result.Iterations++ {
		changed := 0
		for _, rule := range batch {
			if disabled[rule.Name()] {
				continue
			}
			passSpan, _ := trace.StartPass(ctx, rule.Name(), result.Iterations)
			n := rule.Apply(q)
			passSpan.Finish()
			if n > 0 {
				metrics.Rewrites.WithLabelValues(rule.Name()).Add(float64(n))
				result.Rewrites[rule.Name()] += n
				changed += n
				logrus.WithFields(logrus.Fields{"rule": rule.Name(), "count": n, "iteration": result.Iterations}).Debug("optimizer rewrite")
			}
		}
		if changed == 0 {
			break
		}
	}

	metrics.PassIterations.Observe(float64(result.Iterations))
	return result
}
