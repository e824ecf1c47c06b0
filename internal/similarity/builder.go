// Recbench - Offline Recommender Strategy Evaluation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recbench

package similarity

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/recbench/internal/logging"
	"github.com/tomtom215/recbench/internal/metrics"
	"github.com/tomtom215/recbench/internal/store"
)

// Builder regenerates the full similarity edge set for one entity side.
// Edges are always rebuilt from scratch: masking changes the active rating
// population, which invalidates every previously stored score.
type Builder struct {
	store   store.GraphStore
	entity  store.EntityKind
	engines []*Engine
	workers int
}

// NewBuilder creates a builder over the given engines. All engines must
// compute for the same entity side as the builder. workers bounds the
// per-entity fan-out; values below 1 mean no concurrency.
func NewBuilder(gs store.GraphStore, entity store.EntityKind, engines []*Engine, workers int) (*Builder, error) {
	if len(engines) == 0 {
		return nil, fmt.Errorf("similarity: builder needs at least one engine")
	}
	seen := make(map[store.SimilarityKind]struct{}, len(engines))
	for _, e := range engines {
		if e.entity != entity {
			return nil, fmt.Errorf("similarity: engine side %s does not match builder side %s", e.entity, entity)
		}
		if _, dup := seen[e.Kind()]; dup {
			return nil, fmt.Errorf("similarity: duplicate engine for kind %s", e.Kind())
		}
		seen[e.Kind()] = struct{}{}
	}
	if workers < 1 {
		workers = 1
	}
	return &Builder{store: gs, entity: entity, engines: engines, workers: workers}, nil
}

// Rebuild clears and regenerates every edge kind the builder's engines
// cover. Each entity pair is visited once (from its lower ID), scored by
// every engine and persisted when it passes that engine's filter.
func (b *Builder) Rebuild(ctx context.Context) error {
	start := time.Now()

	kinds := make([]store.SimilarityKind, 0, len(b.engines))
	for _, e := range b.engines {
		e.Reset()
		kinds = append(kinds, e.Kind())
	}
	if err := b.store.ClearSimilarities(ctx, b.entity, kinds...); err != nil {
		return fmt.Errorf("similarity: clear %s edges: %w", b.entity, err)
	}

	var ids []int
	var err error
	switch b.entity {
	case store.KindUser:
		ids, err = b.store.Users(ctx)
	case store.KindItem:
		ids, err = b.store.Items(ctx)
	default:
		err = fmt.Errorf("unknown entity kind %d", b.entity)
	}
	if err != nil {
		return fmt.Errorf("similarity: list %s ids: %w", b.entity, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			return b.rebuildEntity(gctx, id)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	logging.Ctx(ctx).Debug().
		Str("entity", b.entity.String()).
		Int("entities", len(ids)).
		Dur("elapsed", time.Since(start)).
		Msg("similarity edges rebuilt")
	return nil
}

// rebuildEntity scores the entity against each co-rated neighbor with a
// higher ID. Visiting pairs from the low side only writes each undirected
// edge once.
func (b *Builder) rebuildEntity(ctx context.Context, id int) error {
	neighbors, err := b.store.CoRatedNeighbors(ctx, b.entity, id)
	if err != nil {
		return fmt.Errorf("similarity: neighbors of %s %d: %w", b.entity, id, err)
	}

	for _, neighbor := range neighbors {
		if neighbor <= id {
			continue
		}
		for _, engine := range b.engines {
			score, err := engine.Similarity(ctx, id, neighbor)
			if err != nil {
				return err
			}
			if !engine.Config().Keep(score) {
				continue
			}
			if err := b.store.UpsertSimilarity(ctx, b.entity, engine.Kind(), id, neighbor, score); err != nil {
				return fmt.Errorf("similarity: upsert %s edge (%d, %d): %w", engine.Kind(), id, neighbor, err)
			}
			metrics.SimilarityEdgesKept.WithLabelValues(b.entity.String(), string(engine.Kind())).Inc()
		}
	}
	return nil
}
