// Recbench - Offline Recommender Strategy Evaluation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recbench

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order
// of priority. The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/recbench/config.yaml",
	"/etc/recbench/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config
// file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// envPrefix is the prefix for environment variable overrides.
const envPrefix = "RECBENCH_"

// defaultConfig returns a Config with all defaults applied. The similarity
// defaults mirror the reference evaluation protocol: user shrinkage base 50
// with a signed threshold filter, item shrinkage base 61 with a magnitude
// filter, threshold 0.5.
func defaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Store: StoreConfig{
			Backend:     "memory",
			RatingsPath: "ratings.csv",
			Neo4j: Neo4jConfig{
				URI:         "",
				Username:    "neo4j",
				Password:    "",
				Database:    "",
				MaxPoolSize: 50,
			},
		},
		Similarity: SimilarityConfig{
			Threshold:        0.5,
			UserBaseSupport:  50,
			ItemBaseSupport:  61,
			UserSignedFilter: true,
			ItemSignedFilter: false,
		},
		Predict: PredictConfig{
			K: 50,
		},
		Walk: WalkConfig{
			Walks: 100,
		},
		Eval: EvalConfig{
			RatingsPercentage:    20,
			PopulationPercentage: 20,
			Folds:                0,
			Cutoffs:              []int{25, 50, 100},
			Steps:                []int{3, 5},
			UserSimilarities:     []string{"COS_SIM", "PEARS_SIM"},
			ItemSimilarities:     []string{"COS_SIM", "PEARS_SIM"},
			RelevanceThreshold:   3.5,
		},
		Workers: 4,
		Seed:    0,
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//
//  1. Defaults: built-in values
//  2. Config file: optional YAML file (if one exists)
//  3. Environment variables: RECBENCH_* overrides any setting
//
// Precedence: ENV > File > Defaults.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: optional config file
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables (highest priority)
	// RECBENCH_EVAL_FOLDS -> eval.folds
	// RECBENCH_STORE_NEO4J_URI -> store.neo4j.uri
	envProvider := env.Provider(envPrefix, ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// envTransformFunc maps environment variable names to koanf paths.
// Multi-word section names (none today) would need explicit mappings; the
// current schema is unambiguous under a simple underscore-to-dot transform,
// except for nested neo4j keys which are handled explicitly.
func envTransformFunc(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	s = strings.ToLower(s)

	// Nested keys with underscores in the leaf name.
	explicit := map[string]string{
		"store_ratings_path":              "store.ratings_path",
		"store_neo4j_uri":                 "store.neo4j.uri",
		"store_neo4j_username":            "store.neo4j.username",
		"store_neo4j_password":            "store.neo4j.password",
		"store_neo4j_database":            "store.neo4j.database",
		"store_neo4j_max_pool_size":       "store.neo4j.max_pool_size",
		"similarity_user_base_support":    "similarity.user_base_support",
		"similarity_item_base_support":    "similarity.item_base_support",
		"similarity_user_signed_filter":   "similarity.user_signed_filter",
		"similarity_item_signed_filter":   "similarity.item_signed_filter",
		"eval_ratings_percentage":         "eval.ratings_percentage",
		"eval_population_percentage":      "eval.population_percentage",
		"eval_user_similarities":          "eval.user_similarities",
		"eval_item_similarities":          "eval.item_similarities",
		"eval_relevance_threshold":        "eval.relevance_threshold",
	}
	if path, ok := explicit[s]; ok {
		return path
	}

	return strings.Replace(s, "_", ".", 1)
}
