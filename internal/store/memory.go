// Recbench - Offline Recommender Strategy Evaluation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recbench

package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// entityState carries derived per-entity statistics.
type entityState struct {
	avg         float64
	avgComputed bool
	count       int
}

// simTable indexes one entity side and similarity kind.
type simTable struct {
	// edges is the canonical undirected edge set.
	edges map[PairKey]float64
	// adj mirrors edges for O(1) neighbor lookups in both directions.
	adj map[int]map[int]float64
}

func newSimTable() *simTable {
	return &simTable{
		edges: make(map[PairKey]float64),
		adj:   make(map[int]map[int]float64),
	}
}

type simTableKey struct {
	kind EntityKind
	sim  SimilarityKind
}

type ratingKey struct {
	user int
	item int
}

type recKey struct {
	user int
	alg  Algorithm
}

// MemoryStore is a thread-safe in-memory GraphStore.
//
// It is the reference backend: every invariant the interface documents is
// enforced by construction here (canonical similarity pairs, single rating
// per user/item pair, score-ordered trim).
type MemoryStore struct {
	mu sync.RWMutex

	users map[int]*entityState
	items map[int]*entityState

	ratings map[ratingKey]*Rating
	byUser  map[int]map[int]*Rating
	byItem  map[int]map[int]*Rating

	sims map[simTableKey]*simTable
	recs map[recKey]map[int]float64

	testUsers map[int]struct{}
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[int]*entityState),
		items:     make(map[int]*entityState),
		ratings:   make(map[ratingKey]*Rating),
		byUser:    make(map[int]map[int]*Rating),
		byItem:    make(map[int]map[int]*Rating),
		sims:      make(map[simTableKey]*simTable),
		recs:      make(map[recKey]map[int]float64),
		testUsers: make(map[int]struct{}),
	}
}

// Name returns the backend name.
func (s *MemoryStore) Name() string { return "memory" }

// AddRating ingests a rating, creating the user and item nodes as needed.
// A second call for the same (user, item) pair overwrites the value rather
// than creating a duplicate row.
func (s *MemoryStore) AddRating(userID, itemID int, value float64) error {
	if value < 0 || value > 5 {
		return fmt.Errorf("rating %f out of range [0, 5]", value)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.users[userID] == nil {
		s.users[userID] = &entityState{}
	}
	if s.items[itemID] == nil {
		s.items[itemID] = &entityState{}
	}

	key := ratingKey{userID, itemID}
	if r, ok := s.ratings[key]; ok {
		r.Value = value
		r.Active = true
		return nil
	}

	r := &Rating{UserID: userID, ItemID: itemID, Value: value, Active: true}
	s.ratings[key] = r
	if s.byUser[userID] == nil {
		s.byUser[userID] = make(map[int]*Rating)
	}
	if s.byItem[itemID] == nil {
		s.byItem[itemID] = make(map[int]*Rating)
	}
	s.byUser[userID][itemID] = r
	s.byItem[itemID][userID] = r
	return nil
}

// Users returns all user IDs in ascending order.
func (s *MemoryStore) Users(ctx context.Context) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.users), nil
}

// Items returns all item IDs in ascending order.
func (s *MemoryStore) Items(ctx context.Context) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.items), nil
}

// ActiveRatings returns the entity's active rating vector.
func (s *MemoryStore) ActiveRatings(ctx context.Context, kind EntityKind, id int) (map[int]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows map[int]*Rating
	switch kind {
	case KindUser:
		rows = s.byUser[id]
	case KindItem:
		rows = s.byItem[id]
	}

	out := make(map[int]float64, len(rows))
	for counterpart, r := range rows {
		if r.Active {
			out[counterpart] = r.Value
		}
	}
	return out, nil
}

// DisabledRatings returns the user's masked ratings keyed by item ID.
func (s *MemoryStore) DisabledRatings(ctx context.Context, userID int) (map[int]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int]float64)
	for itemID, r := range s.byUser[userID] {
		if !r.Active {
			out[itemID] = r.Value
		}
	}
	return out, nil
}

// CoRatedNeighbors returns same-kind entities sharing an active counterpart.
func (s *MemoryStore) CoRatedNeighbors(ctx context.Context, kind EntityKind, id int) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	own := s.byUser
	cross := s.byItem
	if kind == KindItem {
		own, cross = s.byItem, s.byUser
	}

	seen := make(map[int]struct{})
	for counterpart, r := range own[id] {
		if !r.Active {
			continue
		}
		for neighbor, nr := range cross[counterpart] {
			if neighbor != id && nr.Active {
				seen[neighbor] = struct{}{}
			}
		}
	}

	out := make([]int, 0, len(seen))
	for neighbor := range seen {
		out = append(out, neighbor)
	}
	sort.Ints(out)
	return out, nil
}

// MaskRating disables an active rating.
func (s *MemoryStore) MaskRating(ctx context.Context, userID, itemID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.ratings[ratingKey{userID, itemID}]
	if !ok {
		return fmt.Errorf("mask rating (%d, %d): %w", userID, itemID, ErrNotFound)
	}
	r.Active = false
	return nil
}

// UnmaskRating re-enables a masked rating.
func (s *MemoryStore) UnmaskRating(ctx context.Context, userID, itemID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.ratings[ratingKey{userID, itemID}]
	if !ok {
		return fmt.Errorf("unmask rating (%d, %d): %w", userID, itemID, ErrNotFound)
	}
	r.Active = true
	return nil
}

// UnmaskAll re-enables every masked rating.
func (s *MemoryStore) UnmaskAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.ratings {
		r.Active = true
	}
	return nil
}

// RecomputeAverages recalculates averages over the active rating population.
func (s *MemoryStore) RecomputeAverages(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recompute := func(states map[int]*entityState, rows map[int]map[int]*Rating) {
		for id, st := range states {
			var sum float64
			var n int
			for _, r := range rows[id] {
				if r.Active {
					sum += r.Value
					n++
				}
			}
			st.count = n
			if n > 0 {
				st.avg = sum / float64(n)
				st.avgComputed = true
			} else {
				st.avg = 0
				st.avgComputed = false
			}
		}
	}

	recompute(s.users, s.byUser)
	recompute(s.items, s.byItem)
	return nil
}

// AverageRating returns the entity's average active rating.
func (s *MemoryStore) AverageRating(ctx context.Context, kind EntityKind, id int) (float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st *entityState
	switch kind {
	case KindUser:
		st = s.users[id]
	case KindItem:
		st = s.items[id]
	}
	if st == nil {
		return 0, false, fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
	}
	return st.avg, st.avgComputed, nil
}

// UpsertSimilarity stores an undirected similarity edge under its canonical
// pair key.
func (s *MemoryStore) UpsertSimilarity(ctx context.Context, kind EntityKind, sim SimilarityKind, a, b int, weight float64) error {
	if a == b {
		return fmt.Errorf("similarity self-edge on %s %d", kind, a)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := simTableKey{kind, sim}
	table := s.sims[key]
	if table == nil {
		table = newSimTable()
		s.sims[key] = table
	}

	table.edges[NewPairKey(a, b)] = weight
	for _, link := range [][2]int{{a, b}, {b, a}} {
		if table.adj[link[0]] == nil {
			table.adj[link[0]] = make(map[int]float64)
		}
		table.adj[link[0]][link[1]] = weight
	}
	return nil
}

// Similarities returns the entity's similarity neighbors for one edge kind.
func (s *MemoryStore) Similarities(ctx context.Context, kind EntityKind, sim SimilarityKind, id int) (map[int]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	table := s.sims[simTableKey{kind, sim}]
	if table == nil {
		return map[int]float64{}, nil
	}

	out := make(map[int]float64, len(table.adj[id]))
	for neighbor, weight := range table.adj[id] {
		out[neighbor] = weight
	}
	return out, nil
}

// ClearSimilarities removes similarity edges for one entity side.
func (s *MemoryStore) ClearSimilarities(ctx context.Context, kind EntityKind, sims ...SimilarityKind) error {
	if len(sims) == 0 {
		sims = SimilarityKinds
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sim := range sims {
		delete(s.sims, simTableKey{kind, sim})
	}
	return nil
}

// UpsertRecommendation stores a scored recommendation edge.
func (s *MemoryStore) UpsertRecommendation(ctx context.Context, userID, itemID int, alg Algorithm, score float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := recKey{userID, alg}
	if s.recs[key] == nil {
		s.recs[key] = make(map[int]float64)
	}
	s.recs[key][itemID] = score
	return nil
}

// Recommendations returns the user's recommendations for one algorithm.
func (s *MemoryStore) Recommendations(ctx context.Context, userID int, alg Algorithm) (map[int]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.recs[recKey{userID, alg}]
	out := make(map[int]float64, len(rows))
	for itemID, score := range rows {
		out[itemID] = score
	}
	return out, nil
}

// TrimRecommendations deletes the lowest-scored rows until at most n remain.
func (s *MemoryStore) TrimRecommendations(ctx context.Context, userID int, alg Algorithm, n int) error {
	if n < 0 {
		return fmt.Errorf("trim to negative size %d", n)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.recs[recKey{userID, alg}]
	if len(rows) <= n {
		return nil
	}

	ranked := make([]ScoredItem, 0, len(rows))
	for itemID, score := range rows {
		ranked = append(ranked, ScoredItem{ItemID: itemID, Score: score})
	}
	// Score-only ordering; equal scores evict in arbitrary order.
	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	for _, victim := range ranked[n:] {
		delete(rows, victim.ItemID)
	}
	return nil
}

// ClearRecommendations removes recommendation edges.
func (s *MemoryStore) ClearRecommendations(ctx context.Context, algs ...Algorithm) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(algs) == 0 {
		s.recs = make(map[recKey]map[int]float64)
		return nil
	}

	for key := range s.recs {
		for _, alg := range algs {
			if key.alg == alg {
				delete(s.recs, key)
				break
			}
		}
	}
	return nil
}

// MarkTestUser sets or clears the user's fold-membership flag.
func (s *MemoryStore) MarkTestUser(ctx context.Context, userID int, test bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	if test {
		s.testUsers[userID] = struct{}{}
	} else {
		delete(s.testUsers, userID)
	}
	return nil
}

// TestUsers returns the IDs of users currently flagged as test users.
func (s *MemoryStore) TestUsers(ctx context.Context) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]int, 0, len(s.testUsers))
	for id := range s.testUsers {
		out = append(out, id)
	}
	sort.Ints(out)
	return out, nil
}

// Close releases resources. The memory store has none.
func (s *MemoryStore) Close(ctx context.Context) error { return nil }

func sortedKeys(m map[int]*entityState) []int {
	out := make([]int, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// Ensure interface compliance.
var _ GraphStore = (*MemoryStore)(nil)
