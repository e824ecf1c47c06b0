// Recbench - Offline Recommender Strategy Evaluation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recbench

// Package metrics exposes Prometheus instrumentation for Recbench.
//
// Long evaluation runs are typically driven by a scheduler; the counters and
// histograms here let operators watch store round-trips, similarity rebuild
// throughput, walk volume and fold durations without parsing logs.
package metrics
