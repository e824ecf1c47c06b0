// Recbench - Offline Recommender Strategy Evaluation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recbench

package store

import (
	"context"
	"errors"
)

// Sentinel errors returned by GraphStore implementations.
var (
	// ErrNotFound indicates the referenced user, item or rating does not exist.
	ErrNotFound = errors.New("store: not found")
)

// GraphStore is the narrow boundary between the evaluation core and the
// persistent rating graph.
//
// Per-entity operations are safe to invoke concurrently from a bounded
// worker pool; no cross-call ordering is assumed beyond what a caller
// sequences itself. Any error from the store aborts the caller's current
// fold - the store does not retry internally.
type GraphStore interface {
	// Name returns the backend name (used for logs and metrics).
	Name() string

	// Users returns all user IDs.
	Users(ctx context.Context) ([]int, error)

	// Items returns all item IDs.
	Items(ctx context.Context) ([]int, error)

	// ActiveRatings returns the entity's active rating vector keyed by
	// counterpart ID: items for a user, users for an item.
	ActiveRatings(ctx context.Context, kind EntityKind, id int) (map[int]float64, error)

	// DisabledRatings returns the user's masked ratings keyed by item ID.
	DisabledRatings(ctx context.Context, userID int) (map[int]float64, error)

	// CoRatedNeighbors returns the IDs of same-kind entities that share at
	// least one actively rated counterpart with the given entity. The
	// entity itself is never included.
	CoRatedNeighbors(ctx context.Context, kind EntityKind, id int) ([]int, error)

	// MaskRating disables an active rating. Masking an already-masked
	// rating is a no-op; masking a rating that does not exist at all
	// returns ErrNotFound.
	MaskRating(ctx context.Context, userID, itemID int) error

	// UnmaskRating re-enables a masked rating, restoring the exact prior
	// value. Unmasking an already-active rating is a no-op.
	UnmaskRating(ctx context.Context, userID, itemID int) error

	// UnmaskAll re-enables every masked rating in the store.
	UnmaskAll(ctx context.Context) error

	// RecomputeAverages recalculates per-user and per-item average rating
	// and rating count over the active rating population.
	RecomputeAverages(ctx context.Context) error

	// AverageRating returns the entity's average rating. ok is false until
	// RecomputeAverages has run or when the entity has no active ratings.
	AverageRating(ctx context.Context, kind EntityKind, id int) (avg float64, ok bool, err error)

	// UpsertSimilarity stores an undirected similarity edge between two
	// entities of the given kind. The pair is canonicalized internally;
	// upserting (a, b) and (b, a) writes the same edge.
	UpsertSimilarity(ctx context.Context, kind EntityKind, sim SimilarityKind, a, b int, weight float64) error

	// Similarities returns the entity's similarity neighbors for one edge
	// kind, keyed by neighbor ID. Lookups see edges stored under either
	// ordering.
	Similarities(ctx context.Context, kind EntityKind, sim SimilarityKind, id int) (map[int]float64, error)

	// ClearSimilarities removes all similarity edges of the given kinds for
	// one entity side. With no kinds given, all kinds are cleared.
	ClearSimilarities(ctx context.Context, kind EntityKind, sims ...SimilarityKind) error

	// UpsertRecommendation stores a scored recommendation edge.
	UpsertRecommendation(ctx context.Context, userID, itemID int, alg Algorithm, score float64) error

	// Recommendations returns the user's recommendations for one algorithm,
	// keyed by item ID.
	Recommendations(ctx context.Context, userID int, alg Algorithm) (map[int]float64, error)

	// TrimRecommendations deletes the lowest-scored recommendation rows for
	// (userID, alg) until at most n remain. Calling it again with the same
	// n is a no-op.
	TrimRecommendations(ctx context.Context, userID int, alg Algorithm, n int) error

	// ClearRecommendations removes recommendation edges for the given
	// algorithms, or for all algorithms when none are given.
	ClearRecommendations(ctx context.Context, algs ...Algorithm) error

	// MarkTestUser sets or clears the user's fold-membership flag.
	MarkTestUser(ctx context.Context, userID int, test bool) error

	// TestUsers returns the IDs of users currently flagged as test users.
	TestUsers(ctx context.Context) ([]int, error)

	// Close releases backend resources.
	Close(ctx context.Context) error
}
