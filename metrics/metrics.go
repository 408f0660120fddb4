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

// Package metrics exposes Prometheus collectors for the compile
// pipeline: rewrite counts per optimizer rule, pass iteration counts,
// and induction group counts. Registration happens once, at package
// initialization, via MustRegister on the default registry — callers that don't scrape
// /metrics pay only the cost of a counter increment.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// Rewrites counts successful rewrites performed by each named
	// optimizer rule, across every Run call in the process.
	Rewrites = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dlc",
		Subsystem: "optimize",
		Name:      "rewrites_total",
		Help:      "Number of rewrites applied by each optimizer rule.",
	}, []string{"rule"})

	// PassIterations counts how many fixpoint iterations a Run call took
	// before no rule reported a rewrite.
	PassIterations = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "dlc",
		Subsystem: "optimize",
		Name:      "fixpoint_iterations",
		Help:      "Number of fixpoint iterations until no rule rewrote anything.",
		Buckets:   prometheus.LinearBuckets(1, 1, 10),
	})

	// InductionGroups counts the number of induction groups discovered
	// per Analyze call.
	InductionGroups = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "dlc",
		Subsystem: "induction",
		Name:      "groups_discovered",
		Help:      "Number of induction groups discovered per analysis run.",
		Buckets:   prometheus.LinearBuckets(0, 1, 10),
	})
)

func init() {
	prometheus.MustRegister(Rewrites, PassIterations, InductionGroups)
}
