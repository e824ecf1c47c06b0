// Recbench - Offline Recommender Strategy Evaluation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recbench

// Package logging provides centralized zerolog-based logging for Recbench.
//
// All components log through a single global zerolog instance configured at
// startup. JSON output is the default; console output is available for
// interactive runs.
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//
//	logging.Info().Str("component", "eval").Msg("fold complete")
//
// # Context
//
// Evaluation runs carry a run ID through context so that every log line of a
// run can be correlated:
//
//	ctx = logging.ContextWithNewRunID(ctx)
//	logging.Ctx(ctx).Info().Msg("setup complete")
//
// # Best Practices
//
// Always terminate log chains with .Msg() or .Send(), and prefer structured
// fields over string formatting:
//
//	logging.Info().Int("fold", f).Msg("masking ratings")  // Correct
//	logging.Info().Msgf("masking ratings for fold %d", f) // Avoid
package logging
