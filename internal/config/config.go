// Recbench - Offline Recommender Strategy Evaluation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recbench

package config

import (
	"fmt"
)

// Config contains all configuration for a Recbench run.
type Config struct {
	// Logging configures the global logger.
	Logging LoggingConfig `koanf:"logging"`

	// Store configures the rating graph store backend.
	Store StoreConfig `koanf:"store"`

	// Similarity configures pairwise similarity computation.
	Similarity SimilarityConfig `koanf:"similarity"`

	// Predict configures neighbor-based rating prediction.
	Predict PredictConfig `koanf:"predict"`

	// Walk configures the random-walk recommender.
	Walk WalkConfig `koanf:"walk"`

	// Eval configures the k-fold evaluation protocol.
	Eval EvalConfig `koanf:"eval"`

	// Workers bounds concurrent fan-out against the store.
	// Default: 4.
	Workers int `koanf:"workers"`

	// Seed is the random seed for fold sampling and walk selection.
	// If zero, a fixed default seed is used.
	Seed int64 `koanf:"seed"`

	// Output is a path for the JSON report. Empty writes a plain-text
	// report to stdout instead.
	Output string `koanf:"output"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is json or console.
	Format string `koanf:"format"`

	// Caller includes caller file and line in log output.
	Caller bool `koanf:"caller"`
}

// StoreConfig selects and configures the graph store backend.
type StoreConfig struct {
	// Backend is "memory" or "neo4j".
	Backend string `koanf:"backend"`

	// RatingsPath is a CSV file (userId,itemId,rating) loaded into the
	// memory backend at startup. The neo4j backend reads the graph that is
	// already there and ignores this.
	RatingsPath string `koanf:"ratings_path"`

	// Neo4j holds connection settings when Backend is "neo4j".
	Neo4j Neo4jConfig `koanf:"neo4j"`
}

// Neo4jConfig holds Neo4j connection settings.
type Neo4jConfig struct {
	// URI is the bolt endpoint, e.g. bolt://localhost:7687.
	URI string `koanf:"uri"`

	// Username for basic auth.
	Username string `koanf:"username"`

	// Password for basic auth.
	Password string `koanf:"password"`

	// Database is the target database name (empty = server default).
	Database string `koanf:"database"`

	// MaxPoolSize bounds the driver connection pool.
	MaxPoolSize int `koanf:"max_pool_size"`
}

// SimilarityConfig configures similarity computation and edge retention.
//
// The base supports and the filter sign policy differ between user and item
// call sites; both are deliberately independent knobs rather than shared
// constants.
type SimilarityConfig struct {
	// Threshold is the minimum weighted similarity for an edge to be kept.
	Threshold float64 `koanf:"threshold"`

	// UserBaseSupport is the shrinkage base for user-user similarities.
	UserBaseSupport int `koanf:"user_base_support"`

	// ItemBaseSupport is the shrinkage base for item-item similarities.
	ItemBaseSupport int `koanf:"item_base_support"`

	// UserSignedFilter keeps a user edge only when the weighted score itself
	// exceeds the threshold (negative similarities are dropped).
	UserSignedFilter bool `koanf:"user_signed_filter"`

	// ItemSignedFilter keeps an item edge only when the weighted score itself
	// exceeds the threshold. When false, the absolute value is compared, so
	// strong negative correlations survive.
	ItemSignedFilter bool `koanf:"item_signed_filter"`
}

// PredictConfig configures neighbor-based prediction.
type PredictConfig struct {
	// K is the neighborhood size for both user-based and item-based modes.
	K int `koanf:"k"`
}

// WalkConfig configures the random-walk recommender.
type WalkConfig struct {
	// Walks is the number of independent walk trials per user.
	Walks int `koanf:"walks"`
}

// EvalConfig configures the k-fold evaluation protocol.
type EvalConfig struct {
	// RatingsPercentage is the share of each test user's active ratings to
	// mask during fold setup (0-100).
	RatingsPercentage float64 `koanf:"ratings_percentage"`

	// PopulationPercentage is the share of users sampled as test users
	// (0-100). Ignored when Folds > 0, where each fold holds 1/Folds of the
	// population instead.
	PopulationPercentage float64 `koanf:"population_percentage"`

	// Folds is the number of disjoint test folds. Zero means a single fold
	// of PopulationPercentage users.
	Folds int `koanf:"folds"`

	// Cutoffs is the list of recommendation list sizes N to evaluate at.
	Cutoffs []int `koanf:"cutoffs"`

	// Steps is the list of random-walk lengths to evaluate.
	Steps []int `koanf:"steps"`

	// UserSimilarities lists the user similarity kinds to evaluate
	// (COS_SIM, PEARS_SIM).
	UserSimilarities []string `koanf:"user_similarities"`

	// ItemSimilarities lists the item similarity kinds to evaluate.
	ItemSimilarities []string `koanf:"item_similarities"`

	// RelevanceThreshold is the held-out rating value at or above which an
	// item counts as relevant for precision/recall.
	RelevanceThreshold float64 `koanf:"relevance_threshold"`
}

// Validate checks the configuration for values that would make a run
// meaningless. Configuration errors are fatal at startup, never mid-run.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "memory":
		if c.Store.RatingsPath == "" {
			return fmt.Errorf("store.ratings_path is required for the memory backend")
		}
	case "neo4j":
		if c.Store.Neo4j.URI == "" {
			return fmt.Errorf("store.neo4j.uri is required for the neo4j backend")
		}
	default:
		return fmt.Errorf("store.backend %q is not supported (memory, neo4j)", c.Store.Backend)
	}

	if c.Similarity.Threshold < 0 {
		return fmt.Errorf("similarity.threshold must be >= 0, got %f", c.Similarity.Threshold)
	}
	if c.Similarity.UserBaseSupport <= 0 {
		return fmt.Errorf("similarity.user_base_support must be > 0, got %d", c.Similarity.UserBaseSupport)
	}
	if c.Similarity.ItemBaseSupport <= 0 {
		return fmt.Errorf("similarity.item_base_support must be > 0, got %d", c.Similarity.ItemBaseSupport)
	}

	if c.Predict.K <= 0 {
		return fmt.Errorf("predict.k must be > 0, got %d", c.Predict.K)
	}
	if c.Walk.Walks <= 0 {
		return fmt.Errorf("walk.walks must be > 0, got %d", c.Walk.Walks)
	}

	if c.Eval.RatingsPercentage <= 0 || c.Eval.RatingsPercentage > 100 {
		return fmt.Errorf("eval.ratings_percentage must be in (0, 100], got %f", c.Eval.RatingsPercentage)
	}
	if c.Eval.Folds == 0 && (c.Eval.PopulationPercentage <= 0 || c.Eval.PopulationPercentage > 100) {
		return fmt.Errorf("eval.population_percentage must be in (0, 100], got %f", c.Eval.PopulationPercentage)
	}
	if c.Eval.Folds < 0 {
		return fmt.Errorf("eval.folds must be >= 0, got %d", c.Eval.Folds)
	}
	if len(c.Eval.Cutoffs) == 0 {
		return fmt.Errorf("eval.cutoffs must not be empty")
	}
	for _, n := range c.Eval.Cutoffs {
		if n <= 0 {
			return fmt.Errorf("eval.cutoffs entries must be > 0, got %d", n)
		}
	}
	for _, s := range c.Eval.Steps {
		if s <= 0 {
			return fmt.Errorf("eval.steps entries must be > 0, got %d", s)
		}
	}
	if len(c.Eval.UserSimilarities) == 0 {
		return fmt.Errorf("eval.user_similarities must not be empty")
	}
	if len(c.Eval.ItemSimilarities) == 0 {
		return fmt.Errorf("eval.item_similarities must not be empty")
	}
	for _, kind := range append(append([]string{}, c.Eval.UserSimilarities...), c.Eval.ItemSimilarities...) {
		if kind != "COS_SIM" && kind != "PEARS_SIM" {
			return fmt.Errorf("unknown similarity kind %q (COS_SIM, PEARS_SIM)", kind)
		}
	}
	if c.Eval.RelevanceThreshold < 0 || c.Eval.RelevanceThreshold > 5 {
		return fmt.Errorf("eval.relevance_threshold must be in [0, 5], got %f", c.Eval.RelevanceThreshold)
	}

	if c.Workers <= 0 {
		return fmt.Errorf("workers must be > 0, got %d", c.Workers)
	}

	return nil
}
