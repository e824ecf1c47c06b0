// Recbench - Offline Recommender Strategy Evaluation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recbench

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Store Metrics
	StoreOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recbench_store_op_duration_seconds",
			Help:    "Duration of graph store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	StoreOpErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recbench_store_op_errors_total",
			Help: "Total number of graph store operation errors",
		},
		[]string{"backend", "operation"},
	)

	// Similarity Metrics
	SimilarityPairsComputed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recbench_similarity_pairs_computed_total",
			Help: "Total number of entity pairs whose similarity was computed",
		},
		[]string{"entity", "kind"},
	)

	SimilarityEdgesKept = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recbench_similarity_edges_kept_total",
			Help: "Total number of similarity edges that survived the threshold filter",
		},
		[]string{"entity", "kind"},
	)

	SimilarityCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recbench_similarity_cache_hits_total",
			Help: "Total number of symmetric-memoization cache hits",
		},
	)

	// Random Walk Metrics
	WalksCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recbench_walks_completed_total",
			Help: "Total number of random walks that terminated at an item",
		},
		[]string{"algorithm"},
	)

	WalksFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recbench_walks_failed_total",
			Help: "Total number of random walks that found no eligible destination",
		},
		[]string{"algorithm"},
	)

	// Evaluation Metrics
	FoldDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recbench_fold_duration_seconds",
			Help:    "Duration of a full evaluation fold in seconds",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 3600, 7200},
		},
	)

	RecommendationsStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recbench_recommendations_stored_total",
			Help: "Total number of recommendation rows persisted",
		},
		[]string{"algorithm"},
	)

	TestUsersEvaluated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recbench_test_users_evaluated_total",
			Help: "Total number of test users evaluated across folds",
		},
	)
)

// ObserveStoreOp records the duration of a store operation and counts the
// error if one occurred.
func ObserveStoreOp(backend, operation string, start time.Time, err error) {
	StoreOpDuration.WithLabelValues(backend, operation).Observe(time.Since(start).Seconds())
	if err != nil {
		StoreOpErrors.WithLabelValues(backend, operation).Inc()
	}
}
