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

// Package config loads compile-time policy from YAML, the same way the
// teacher's embedder configures a server: a small struct with sane zero
// values, deserialized with gopkg.in/yaml.v2.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/drlojekyll/dlc/lower"
)

// Compile is the top-level configuration for one compile run.
type Compile struct {
	// Lower carries policy decisions lowering needs (spec.md's Open
	// Questions), threaded straight into lower.Options.
	Lower LowerConfig `yaml:"lower"`

	// Optimize bounds how many fixpoint iterations the optimizer runs
	// before giving up and returning whatever it has (a query that
	// hasn't converged by then is almost certainly oscillating due to a
	// rule bug, not legitimately still improving).
	Optimize OptimizeConfig `yaml:"optimize"`

	// RequireCrossProductAnnotation is loaded from YAML but not passed
	// to lowering: a clause that needs a cross product without the
	// `@product` annotation is always rejected with
	// diag.ErrCrossProductUnannotated, whatever this field holds.
	RequireCrossProductAnnotation bool `yaml:"require_cross_product_annotation"`
}

// LowerConfig mirrors lower.Options; kept as its own YAML-tagged struct
// so the on-disk schema doesn't couple to lower's Go type directly.
type LowerConfig struct {
	AlwaysInductionSafeMerge bool `yaml:"always_induction_safe_merge"`
}

// OptimizeConfig bounds the optimizer's rule-batch fixpoint loop.
type OptimizeConfig struct {
	// MaxIterations is the fixpoint iteration budget; 0 means "use the
	// package default" (see optimize.DefaultMaxIterations).
	MaxIterations int `yaml:"max_iterations"`
	// DisabledRules names rules to skip entirely, by their Rule.Name().
	DisabledRules []string `yaml:"disabled_rules"`
}

// Default returns the configuration used when no file is supplied:
// cross-product annotation required, no induction-safe-merge
// conservatism, package-default optimizer budget.
func Default() *Compile {
	return &Compile{RequireCrossProductAnnotation: true}
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Compile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return c, nil
}

// LowerOptions converts the config's lowering policy into lower.Options.
func (c *Compile) LowerOptions() lower.Options {
	return lower.Options{AlwaysInductionSafeMerge: c.Lower.AlwaysInductionSafeMerge}
}
