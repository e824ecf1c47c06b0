// Recbench - Offline Recommender Strategy Evaluation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recbench

// Package config provides layered configuration for Recbench using Koanf v2.
//
// Configuration is resolved in three layers with increasing precedence:
//
//  1. Built-in defaults (see defaultConfig)
//  2. Optional YAML config file (config.yaml, or CONFIG_PATH)
//  3. Environment variables (RECBENCH_EVAL_FOLDS -> eval.folds)
//
// Every tunable the evaluation protocol treats as a policy decision is
// configuration here, never a constant: shrinkage base supports, similarity
// thresholds and their sign policy, neighborhood size K, recommendation list
// cutoffs, walk counts and lengths, the masked-ratings percentage, fold
// layout, and the relevance threshold.
package config
