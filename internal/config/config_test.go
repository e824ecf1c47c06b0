// Recbench - Offline Recommender Strategy Evaluation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recbench

package config

import (
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaultConfig().Validate() error = %v", err)
	}
}

func TestDefaultSimilarityPolicy(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Similarity.UserBaseSupport != 50 {
		t.Errorf("UserBaseSupport = %d, want 50", cfg.Similarity.UserBaseSupport)
	}
	if cfg.Similarity.ItemBaseSupport != 61 {
		t.Errorf("ItemBaseSupport = %d, want 61", cfg.Similarity.ItemBaseSupport)
	}
	if !cfg.Similarity.UserSignedFilter {
		t.Error("UserSignedFilter = false, want true")
	}
	if cfg.Similarity.ItemSignedFilter {
		t.Error("ItemSignedFilter = true, want false")
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Store.Backend = "duckdb" }},
		{"memory without ratings path", func(c *Config) { c.Store.RatingsPath = "" }},
		{"neo4j without uri", func(c *Config) { c.Store.Backend = "neo4j"; c.Store.Neo4j.URI = "" }},
		{"zero user base support", func(c *Config) { c.Similarity.UserBaseSupport = 0 }},
		{"zero item base support", func(c *Config) { c.Similarity.ItemBaseSupport = 0 }},
		{"negative threshold", func(c *Config) { c.Similarity.Threshold = -0.1 }},
		{"zero k", func(c *Config) { c.Predict.K = 0 }},
		{"zero walks", func(c *Config) { c.Walk.Walks = 0 }},
		{"ratings percentage over 100", func(c *Config) { c.Eval.RatingsPercentage = 150 }},
		{"zero population without folds", func(c *Config) { c.Eval.PopulationPercentage = 0 }},
		{"negative folds", func(c *Config) { c.Eval.Folds = -1 }},
		{"empty cutoffs", func(c *Config) { c.Eval.Cutoffs = nil }},
		{"zero cutoff", func(c *Config) { c.Eval.Cutoffs = []int{25, 0} }},
		{"zero step", func(c *Config) { c.Eval.Steps = []int{0} }},
		{"empty user similarities", func(c *Config) { c.Eval.UserSimilarities = nil }},
		{"unknown similarity kind", func(c *Config) { c.Eval.UserSimilarities = []string{"JACCARD"} }},
		{"relevance threshold above scale", func(c *Config) { c.Eval.RelevanceThreshold = 6 }},
		{"zero workers", func(c *Config) { c.Workers = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestFoldsAllowZeroPopulationPercentageWhenSet(t *testing.T) {
	cfg := defaultConfig()
	cfg.Eval.Folds = 5
	cfg.Eval.PopulationPercentage = 0

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil when folds dictate the sample", err)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{"RECBENCH_EVAL_FOLDS", "eval.folds"},
		{"RECBENCH_WORKERS", "workers"},
		{"RECBENCH_SEED", "seed"},
		{"RECBENCH_STORE_NEO4J_URI", "store.neo4j.uri"},
		{"RECBENCH_STORE_RATINGS_PATH", "store.ratings_path"},
		{"RECBENCH_SIMILARITY_USER_BASE_SUPPORT", "similarity.user_base_support"},
		{"RECBENCH_EVAL_RATINGS_PERCENTAGE", "eval.ratings_percentage"},
		{"RECBENCH_LOGGING_LEVEL", "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			if got := envTransformFunc(tt.env); got != tt.want {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.env, got, tt.want)
			}
		})
	}
}
