// Recbench - Offline Recommender Strategy Evaluation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recbench

// Package main is the entry point for the Recbench evaluation runner.
//
// Recbench benchmarks neighborhood and random-walk recommendation strategies
// offline against a bipartite user-item rating graph. One run masks a share
// of each test user's ratings, rebuilds similarity edges over the surviving
// train population, generates recommendations under every configured
// strategy, and scores them against the held-out ratings (MAE, precision,
// recall, F1).
//
// # Application Architecture
//
// The runner initializes components in the following order:
//
//  1. Configuration: Load settings from environment variables and config files (Koanf v2)
//  2. Graph store: in-memory store seeded from a ratings CSV, or an existing Neo4j graph
//  3. Similarity builders: one engine per configured kind on each graph side
//  4. Recommenders: k-NN predictor and random-walk sampler
//  5. Evaluation harness: fold preparation, setup/teardown, scoring
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest priority wins):
//   - Environment variables (RECBENCH_*)
//   - Config file (config.yaml)
//   - Built-in defaults
//
// # Output
//
// The cross-fold report is written as indented JSON to the configured output
// path, or as an aligned plain-text table to stdout when no path is set.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"

	"github.com/tomtom215/recbench/internal/config"
	"github.com/tomtom215/recbench/internal/eval"
	"github.com/tomtom215/recbench/internal/logging"
	"github.com/tomtom215/recbench/internal/predict"
	"github.com/tomtom215/recbench/internal/similarity"
	"github.com/tomtom215/recbench/internal/store"
	"github.com/tomtom215/recbench/internal/walk"
)

// defaultSeed keeps runs reproducible when no seed is configured.
const defaultSeed = 42

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		// Use default logger for config errors (config not yet available)
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize zerolog with configuration
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	ctx := logging.ContextWithNewRunID(context.Background())

	logging.Ctx(ctx).Info().
		Str("backend", cfg.Store.Backend).
		Int("folds", cfg.Eval.Folds).
		Int("workers", cfg.Workers).
		Msg("Starting Recbench evaluation run")

	gs, err := buildStore(ctx, cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize graph store")
	}
	defer func() {
		if err := gs.Close(context.Background()); err != nil {
			logging.Error().Err(err).Msg("Error closing graph store")
		}
	}()

	userBuilder, err := buildSide(gs, store.KindUser, cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build user similarity engines")
	}
	itemBuilder, err := buildSide(gs, store.KindItem, cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build item similarity engines")
	}

	predictor, err := predict.New(gs, cfg.Predict.K)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize predictor")
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = defaultSeed
	}
	sampler, err := walk.NewSampler(gs, rand.New(rand.NewSource(seed)))
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize walk sampler")
	}

	harness, err := eval.New(gs, predictor, sampler, userBuilder, itemBuilder, eval.Config{
		RatingsPercentage:    cfg.Eval.RatingsPercentage,
		PopulationPercentage: cfg.Eval.PopulationPercentage,
		Folds:                cfg.Eval.Folds,
		Cutoffs:              cfg.Eval.Cutoffs,
		Steps:                cfg.Eval.Steps,
		Walks:                cfg.Walk.Walks,
		UserSimilarities:     similarityKinds(cfg.Eval.UserSimilarities),
		ItemSimilarities:     similarityKinds(cfg.Eval.ItemSimilarities),
		RelevanceThreshold:   cfg.Eval.RelevanceThreshold,
		Workers:              cfg.Workers,
	}, rand.New(rand.NewSource(seed)))
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to assemble evaluation harness")
	}

	report, err := harness.Run(ctx)
	if err != nil {
		logging.Fatal().Err(err).Msg("Evaluation run failed")
	}

	if err := writeReport(report, cfg.Output); err != nil {
		logging.Fatal().Err(err).Msg("Failed to write report")
	}

	logging.Ctx(ctx).Info().
		Int("folds", report.Folds).
		Str("output", outputName(cfg.Output)).
		Msg("Evaluation run complete")
}

// buildStore constructs the configured backend. The memory backend is seeded
// from the ratings CSV; the neo4j backend attaches to a graph that already
// holds :User and :Item nodes with RATES relationships.
func buildStore(ctx context.Context, cfg *config.Config) (store.GraphStore, error) {
	switch cfg.Store.Backend {
	case "memory":
		ms := store.NewMemoryStore()
		n, err := loadRatingsCSV(ms, cfg.Store.RatingsPath)
		if err != nil {
			return nil, err
		}
		if err := ms.RecomputeAverages(ctx); err != nil {
			return nil, err
		}
		logging.Ctx(ctx).Info().
			Str("path", cfg.Store.RatingsPath).
			Int("ratings", n).
			Msg("Ratings loaded into memory store")
		return ms, nil
	case "neo4j":
		return store.NewNeo4jStore(ctx, store.Neo4jConfig{
			URI:         cfg.Store.Neo4j.URI,
			Username:    cfg.Store.Neo4j.Username,
			Password:    cfg.Store.Neo4j.Password,
			Database:    cfg.Store.Neo4j.Database,
			MaxPoolSize: cfg.Store.Neo4j.MaxPoolSize,
		})
	default:
		// Unreachable after config validation; kept so the switch is total.
		return nil, fmt.Errorf("unsupported store backend %q", cfg.Store.Backend)
	}
}

// buildSide assembles one similarity builder covering every configured kind
// on one side of the graph.
func buildSide(gs store.GraphStore, entity store.EntityKind, cfg *config.Config) (*similarity.Builder, error) {
	kinds := cfg.Eval.UserSimilarities
	baseSupport := cfg.Similarity.UserBaseSupport
	signed := cfg.Similarity.UserSignedFilter
	if entity == store.KindItem {
		kinds = cfg.Eval.ItemSimilarities
		baseSupport = cfg.Similarity.ItemBaseSupport
		signed = cfg.Similarity.ItemSignedFilter
	}

	engines := make([]*similarity.Engine, 0, len(kinds))
	for _, kind := range similarityKinds(kinds) {
		engine, err := similarity.NewEngine(gs, entity, similarity.Config{
			Kind:        kind,
			BaseSupport: baseSupport,
			Threshold:   cfg.Similarity.Threshold,
			Signed:      signed,
		})
		if err != nil {
			return nil, err
		}
		engines = append(engines, engine)
	}
	return similarity.NewBuilder(gs, entity, engines, cfg.Workers)
}

// similarityKinds converts validated config strings to typed kinds.
func similarityKinds(names []string) []store.SimilarityKind {
	kinds := make([]store.SimilarityKind, len(names))
	for i, name := range names {
		kinds[i] = store.SimilarityKind(name)
	}
	return kinds
}

// writeReport renders the report: JSON to the given path, or a plain-text
// table on stdout when no path is configured.
func writeReport(report *eval.Report, path string) error {
	if path == "" {
		return report.WriteText(os.Stdout)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.WriteJSON(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func outputName(path string) string {
	if path == "" {
		return "stdout"
	}
	return path
}
