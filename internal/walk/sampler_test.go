// Recbench - Offline Recommender Strategy Evaluation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recbench

package walk

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/tomtom215/recbench/internal/store"
)

func testConfig(steps int, biased bool) Config {
	return Config{
		Walks:   100,
		Steps:   steps,
		Biased:  biased,
		UserSim: store.SimCosine,
		ItemSim: store.SimCosine,
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", testConfig(3, false), false},
		{"zero walks", Config{Steps: 3, UserSim: store.SimCosine, ItemSim: store.SimCosine}, true},
		{"zero steps", Config{Walks: 100, UserSim: store.SimCosine, ItemSim: store.SimCosine}, true},
		{"missing sim kind", Config{Walks: 100, Steps: 3}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %t", err, tt.wantErr)
			}
		})
	}
}

func TestUnbiasedFirstHopUniformity(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	for _, itemID := range []int{10, 11, 12, 13} {
		if err := s.AddRating(1, itemID, 4.0); err != nil {
			t.Fatalf("AddRating: %v", err)
		}
	}

	sampler, err := NewSampler(s, rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatalf("NewSampler: %v", err)
	}

	// One-step walks with nothing marked as already-rated: every item is
	// an eligible first hop, so terminal frequencies must converge to the
	// uniform distribution.
	const trials = 40000
	counts := make(map[int]int)
	cfg := testConfig(1, false)
	for i := 0; i < trials; i++ {
		terminal, ok, err := sampler.walk(ctx, 1, map[int]float64{}, cfg)
		if err != nil {
			t.Fatalf("walk: %v", err)
		}
		if !ok {
			t.Fatal("walk failed with eligible destinations available")
		}
		counts[terminal]++
	}

	want := float64(trials) / 4
	for _, itemID := range []int{10, 11, 12, 13} {
		got := float64(counts[itemID])
		if math.Abs(got-want)/want > 0.05 {
			t.Errorf("item %d visited %0.f times, want %0.f within 5%%", itemID, got, want)
		}
	}
}

func TestFinalStepExcludesRatedItems(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	for _, itemID := range []int{10, 11} {
		if err := s.AddRating(1, itemID, 4.0); err != nil {
			t.Fatalf("AddRating: %v", err)
		}
	}

	sampler, err := NewSampler(s, rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatalf("NewSampler: %v", err)
	}

	// All first-hop items are already rated by the origin, so a one-step
	// walk has nowhere eligible to land.
	rated, err := s.ActiveRatings(ctx, store.KindUser, 1)
	if err != nil {
		t.Fatalf("ActiveRatings: %v", err)
	}
	for i := 0; i < 50; i++ {
		_, ok, err := sampler.walk(ctx, 1, rated, testConfig(1, false))
		if err != nil {
			t.Fatalf("walk: %v", err)
		}
		if ok {
			t.Fatal("walk landed on an item the user already rated")
		}
	}
}

func TestStuckItemTerminatesEarly(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	// u1 rates i10; i10 is similar to i20, which has no edges of its own.
	// Any walk reaching i20 before its last hop must end there.
	if err := s.AddRating(1, 10, 5.0); err != nil {
		t.Fatalf("AddRating: %v", err)
	}
	if err := s.AddRating(2, 20, 1.0); err != nil {
		t.Fatalf("AddRating: %v", err)
	}
	if err := s.MaskRating(ctx, 2, 20); err != nil {
		t.Fatalf("MaskRating: %v", err)
	}
	if err := s.UpsertSimilarity(ctx, store.KindItem, store.SimCosine, 10, 20, 0.9); err != nil {
		t.Fatalf("UpsertSimilarity: %v", err)
	}

	sampler, err := NewSampler(s, rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatalf("NewSampler: %v", err)
	}

	rated, err := s.ActiveRatings(ctx, store.KindUser, 1)
	if err != nil {
		t.Fatalf("ActiveRatings: %v", err)
	}

	// Walks either bounce back to u1 and die on the final hop, or reach
	// the stuck item i20 and terminate early at it. No other terminal is
	// possible.
	succeeded := 0
	for i := 0; i < 200; i++ {
		terminal, ok, err := sampler.walk(ctx, 1, rated, testConfig(3, false))
		if err != nil {
			t.Fatalf("walk: %v", err)
		}
		if !ok {
			continue
		}
		if terminal != 20 {
			t.Fatalf("walk terminated at %d, want 20", terminal)
		}
		succeeded++
	}
	if succeeded == 0 {
		t.Error("no walk reached the stuck item in 200 trials")
	}
}

func TestBiasedPickProportionalToWeight(t *testing.T) {
	sampler, err := NewSampler(store.NewMemoryStore(), rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatalf("NewSampler: %v", err)
	}

	edges := []edge{
		{to: node{kind: store.KindItem, id: 1}, weight: 0.9},
		{to: node{kind: store.KindItem, id: 2}, weight: 0.1},
	}

	const trials = 40000
	counts := make(map[int]int)
	for i := 0; i < trials; i++ {
		counts[sampler.pick(edges, true).id]++
	}

	heavy := float64(counts[1]) / trials
	if math.Abs(heavy-0.9) > 0.02 {
		t.Errorf("heavy edge picked %.3f of the time, want 0.9 within 0.02", heavy)
	}
}

func TestBiasedPickFallsBackOnNonPositiveWeight(t *testing.T) {
	sampler, err := NewSampler(store.NewMemoryStore(), rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatalf("NewSampler: %v", err)
	}

	edges := []edge{
		{to: node{kind: store.KindItem, id: 1}, weight: -0.5},
		{to: node{kind: store.KindItem, id: 2}, weight: 0},
	}

	seen := make(map[int]bool)
	for i := 0; i < 200; i++ {
		seen[sampler.pick(edges, true).id] = true
	}
	if !seen[1] || !seen[2] {
		t.Errorf("uniform fallback did not reach every edge: %v", seen)
	}
}

func TestRecommendPersistsTopN(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	// u1 is similar to u2; u2 rated three items u1 never saw. Two-step
	// walks (u1 -> u2 -> novel item) terminate on those items.
	if err := s.AddRating(1, 10, 4.0); err != nil {
		t.Fatalf("AddRating: %v", err)
	}
	for itemID, value := range map[int]float64{20: 5.0, 21: 3.0, 22: 1.0} {
		if err := s.AddRating(2, itemID, value); err != nil {
			t.Fatalf("AddRating: %v", err)
		}
	}
	if err := s.UpsertSimilarity(ctx, store.KindUser, store.SimCosine, 1, 2, 0.8); err != nil {
		t.Fatalf("UpsertSimilarity: %v", err)
	}

	sampler, err := NewSampler(s, rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatalf("NewSampler: %v", err)
	}

	cfg := testConfig(2, true)
	cfg.Walks = 300
	if err := sampler.Recommend(ctx, 1, 2, cfg); err != nil {
		t.Fatalf("Recommend: %v", err)
	}

	recs, err := s.Recommendations(ctx, 1, store.WalkAlgorithm(2, true))
	if err != nil {
		t.Fatalf("Recommendations: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 recommendations, got %d", len(recs))
	}
	for itemID, score := range recs {
		if itemID != 20 && itemID != 21 && itemID != 22 {
			t.Errorf("unexpected recommended item %d", itemID)
		}
		if score < 1 {
			t.Errorf("item %d has visit count %f, want >= 1", itemID, score)
		}
	}
}

func TestNewSamplerRequiresRandomSource(t *testing.T) {
	if _, err := NewSampler(store.NewMemoryStore(), nil); err == nil {
		t.Error("expected error for nil random source")
	}
}
