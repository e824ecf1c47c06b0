// Recbench - Offline Recommender Strategy Evaluation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recbench

package similarity

import (
	"context"
	"math"
	"testing"

	"github.com/tomtom215/recbench/internal/store"
)

const tolerance = 1e-9

// fixtureStore builds the 3-user / 4-item rating graph used as the fixed
// regression fixture:
//
//	u1: m1=5, m2=3
//	u2: m1=4, m2=2, m3=5
//	u3: m2=1, m3=4, m4=5
func fixtureStore(t *testing.T) *store.MemoryStore {
	t.Helper()
	s := store.NewMemoryStore()
	ratings := []store.Rating{
		{UserID: 1, ItemID: 1, Value: 5},
		{UserID: 1, ItemID: 2, Value: 3},
		{UserID: 2, ItemID: 1, Value: 4},
		{UserID: 2, ItemID: 2, Value: 2},
		{UserID: 2, ItemID: 3, Value: 5},
		{UserID: 3, ItemID: 2, Value: 1},
		{UserID: 3, ItemID: 3, Value: 4},
		{UserID: 3, ItemID: 4, Value: 5},
	}
	for _, r := range ratings {
		if err := s.AddRating(r.UserID, r.ItemID, r.Value); err != nil {
			t.Fatalf("AddRating: %v", err)
		}
	}
	if err := s.RecomputeAverages(context.Background()); err != nil {
		t.Fatalf("RecomputeAverages: %v", err)
	}
	return s
}

func TestCosineRegressionFixture(t *testing.T) {
	// Shared items of u1 and u2 are {m1, m2} with avg(m1)=4.5, avg(m2)=2.
	// Centered deviations: u1 = (0.5, 1.0), u2 = (-0.5, 0.0), so the raw
	// cosine is -0.25 / (0.5 * sqrt(1.25)) = -1/sqrt(5).
	a := map[int]float64{1: 5, 2: 3}
	b := map[int]float64{1: 4, 2: 2, 3: 5}
	avgs := map[int]float64{1: 4.5, 2: 2.0}

	want := -1 / math.Sqrt(5)
	got := Cosine(a, b, avgs)
	if math.Abs(got-want) > tolerance {
		t.Errorf("Cosine = %.10f, want %.10f", got, want)
	}
}

func TestPearsonFixture(t *testing.T) {
	// Over the shared items both users deviate identically from their own
	// means, so the correlation is exactly 1.
	a := map[int]float64{1: 5, 2: 3}
	b := map[int]float64{1: 4, 2: 2, 3: 5}

	got := Pearson(a, b)
	if math.Abs(got-1) > tolerance {
		t.Errorf("Pearson = %.10f, want 1", got)
	}
}

func TestSimilarityInsufficientSupport(t *testing.T) {
	tests := []struct {
		name string
		a, b map[int]float64
	}{
		{"disjoint", map[int]float64{1: 5, 2: 3}, map[int]float64{3: 4, 4: 2}},
		{"single common", map[int]float64{1: 5, 2: 3}, map[int]float64{1: 4, 3: 2}},
		{"empty", map[int]float64{}, map[int]float64{1: 4}},
	}

	avgs := map[int]float64{1: 3, 2: 3, 3: 3, 4: 3}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Cosine(tt.a, tt.b, avgs); got != 0 {
				t.Errorf("Cosine = %f, want 0", got)
			}
			if got := Pearson(tt.a, tt.b); got != 0 {
				t.Errorf("Pearson = %f, want 0", got)
			}
		})
	}
}

func TestCosineZeroVariance(t *testing.T) {
	// Every rating sits exactly on the counterpart average: zero
	// denominator must yield 0, not NaN.
	a := map[int]float64{1: 3, 2: 3}
	b := map[int]float64{1: 3, 2: 3}
	avgs := map[int]float64{1: 3, 2: 3}

	got := Cosine(a, b, avgs)
	if got != 0 {
		t.Errorf("Cosine with zero variance = %f, want 0", got)
	}
	if math.IsNaN(got) {
		t.Error("Cosine returned NaN")
	}
}

func TestPearsonZeroVariance(t *testing.T) {
	a := map[int]float64{1: 4, 2: 4}
	b := map[int]float64{1: 2, 2: 5}

	got := Pearson(a, b)
	if got != 0 {
		t.Errorf("Pearson with flat vector = %f, want 0", got)
	}
}

func TestShrink(t *testing.T) {
	tests := []struct {
		name        string
		raw         float64
		support     int
		baseSupport int
		want        float64
	}{
		{"below base", 1.0, 10, 50, 0.2},
		{"at base", 1.0, 50, 50, 1.0},
		{"above base capped", 1.0, 80, 50, 1.0},
		{"negative raw", -0.8, 25, 50, -0.4},
		{"no base disables shrinkage", 0.9, 3, 0, 0.9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Shrink(tt.raw, tt.support, tt.baseSupport)
			if math.Abs(got-tt.want) > tolerance {
				t.Errorf("Shrink(%f, %d, %d) = %f, want %f", tt.raw, tt.support, tt.baseSupport, got, tt.want)
			}
		})
	}
}

func TestShrinkMonotone(t *testing.T) {
	prev := math.Inf(-1)
	for support := 0; support <= 100; support += 5 {
		w := Shrink(1.0, support, 50)
		if w < prev {
			t.Fatalf("shrinkage decreased at support %d: %f < %f", support, w, prev)
		}
		if w > 1 {
			t.Fatalf("shrinkage exceeded 1 at support %d: %f", support, w)
		}
		prev = w
	}
}

func TestEngineSymmetry(t *testing.T) {
	ctx := context.Background()
	s := fixtureStore(t)

	for _, kind := range store.SimilarityKinds {
		engine, err := NewEngine(s, store.KindUser, Config{Kind: kind, BaseSupport: 50, Threshold: 0})
		if err != nil {
			t.Fatalf("NewEngine(%s): %v", kind, err)
		}

		ab, err := engine.Similarity(ctx, 1, 2)
		if err != nil {
			t.Fatalf("Similarity(1, 2): %v", err)
		}
		ba, err := engine.Similarity(ctx, 2, 1)
		if err != nil {
			t.Fatalf("Similarity(2, 1): %v", err)
		}
		if ab != ba {
			t.Errorf("%s: similarity(1,2)=%f != similarity(2,1)=%f", kind, ab, ba)
		}
	}
}

func TestEngineShrunkFixture(t *testing.T) {
	ctx := context.Background()
	s := fixtureStore(t)

	engine, err := NewEngine(s, store.KindUser, Config{Kind: store.SimCosine, BaseSupport: 50, Threshold: 0})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	got, err := engine.Similarity(ctx, 1, 2)
	if err != nil {
		t.Fatalf("Similarity: %v", err)
	}
	// Raw -1/sqrt(5) shrunk by 2/50 shared items.
	want := -1 / math.Sqrt(5) * (2.0 / 50.0)
	if math.Abs(got-want) > tolerance {
		t.Errorf("shrunk similarity = %.10f, want %.10f", got, want)
	}
}

func TestEngineSelfPairRejected(t *testing.T) {
	s := fixtureStore(t)
	engine, err := NewEngine(s, store.KindUser, Config{Kind: store.SimCosine, BaseSupport: 50})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if _, err := engine.Similarity(context.Background(), 1, 1); err == nil {
		t.Error("expected error for self-pair")
	}
}

func TestConfigKeep(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		weighted float64
		want     bool
	}{
		{"signed keeps positive above", Config{Threshold: 0.5, Signed: true}, 0.7, true},
		{"signed drops negative", Config{Threshold: 0.5, Signed: true}, -0.9, false},
		{"signed drops at threshold", Config{Threshold: 0.5, Signed: true}, 0.5, false},
		{"magnitude keeps negative", Config{Threshold: 0.5, Signed: false}, -0.9, true},
		{"magnitude drops weak", Config{Threshold: 0.5, Signed: false}, 0.3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.Keep(tt.weighted); got != tt.want {
				t.Errorf("Keep(%f) = %t, want %t", tt.weighted, got, tt.want)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	if err := (Config{Kind: "BOGUS"}).Validate(); err == nil {
		t.Error("expected error for unknown kind")
	}
	if err := (Config{Kind: store.SimCosine, Threshold: -0.1}).Validate(); err == nil {
		t.Error("expected error for negative threshold")
	}
	if err := (Config{Kind: store.SimPearson, Threshold: 0.5}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestBuilderRebuild(t *testing.T) {
	ctx := context.Background()
	s := fixtureStore(t)

	// No shrinkage and no threshold so every measurable pair survives.
	cosEngine, err := NewEngine(s, store.KindUser, Config{Kind: store.SimCosine, BaseSupport: 0, Threshold: 0})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	builder, err := NewBuilder(s, store.KindUser, []*Engine{cosEngine}, 2)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}

	if err := builder.Rebuild(ctx); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	// u1-u2 share {m1, m2} with raw cosine -1/sqrt(5): magnitude filter at
	// threshold 0 keeps it.
	edges, err := s.Similarities(ctx, store.KindUser, store.SimCosine, 1)
	if err != nil {
		t.Fatalf("Similarities: %v", err)
	}
	want := -1 / math.Sqrt(5)
	if got, ok := edges[2]; !ok || math.Abs(got-want) > tolerance {
		t.Errorf("edge u1-u2 = %f (present=%t), want %f", got, ok, want)
	}

	// Rebuild is idempotent: a second run regenerates the same edge set.
	if err := builder.Rebuild(ctx); err != nil {
		t.Fatalf("second Rebuild: %v", err)
	}
	again, err := s.Similarities(ctx, store.KindUser, store.SimCosine, 1)
	if err != nil {
		t.Fatalf("Similarities: %v", err)
	}
	if len(again) != len(edges) {
		t.Errorf("second rebuild produced %d edges, want %d", len(again), len(edges))
	}
}

func TestBuilderRejectsMismatchedEngine(t *testing.T) {
	s := fixtureStore(t)
	itemEngine, err := NewEngine(s, store.KindItem, Config{Kind: store.SimCosine, BaseSupport: 61})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if _, err := NewBuilder(s, store.KindUser, []*Engine{itemEngine}, 1); err == nil {
		t.Error("expected error for engine on the wrong entity side")
	}
}
