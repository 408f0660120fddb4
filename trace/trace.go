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

// Package trace wraps opentracing-go span creation for the compile
// pipeline's stages and optimizer passes. With no tracer registered
// (opentracing.GlobalTracer() defaults to a no-op), spans cost nothing;
// a real tracer can be installed by the embedding application exactly as
// the teacher installs one around query execution.
package trace

import (
	"context"

	"github.com/opentracing/opentracing-go"
)

// StartStage starts a span for one compile stage (lower, optimize,
// induce, serialize) as a child of whatever span ctx carries, if any.
func StartStage(ctx context.Context, name string) (opentracing.Span, context.Context) {
	return opentracing.StartSpanFromContext(ctx, "dlc.compile."+name)
}

// StartPass starts a span for one optimizer rule pass, tagged with its
// rule name and iteration number within the fixpoint loop.
func StartPass(ctx context.Context, rule string, iteration int) (opentracing.Span, context.Context) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "dlc.optimize.pass")
	span.SetTag("rule", rule)
	span.SetTag("iteration", iteration)
	return span, ctx
}
