// Recbench - Offline Recommender Strategy Evaluation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recbench

// Package walk implements a bipartite random-walk recommender.
//
// Walks start at a user node and move over rating edges and same-side
// similarity edges. On the final hop a walk may only land on an item the
// originating user has not rated, so every recommendation is novel. An
// item with no eligible onward edge ends the walk early at that item
// rather than failing.
//
// Biased walks pick the next hop with probability proportional to edge
// weight; rating edges weigh rating/5 to sit on the similarity scale.
// Candidates are ranked by terminal visit count with random tie-breaks,
// so rankings are statistical, not bit-reproducible. The random source is
// injected to let tests seed it.
package walk
