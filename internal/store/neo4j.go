// Recbench - Offline Recommender Strategy Evaluation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recbench

package store

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/tomtom215/recbench/internal/logging"
	"github.com/tomtom215/recbench/internal/metrics"
)

// Neo4jConfig holds connection settings for the Neo4j backend.
type Neo4jConfig struct {
	URI         string
	Username    string
	Password    string
	Database    string
	MaxPoolSize int
}

// Neo4jStore persists the rating graph in Neo4j.
//
// Graph shape: (:User {id})-[:RATES {rating}]->(:Item {id}), with masked
// ratings flipped to DISABLED_RATES. Similarity edges are COS_SIM / PEARS_SIM
// relationships stored once per pair with lo-ID as the start node.
// Recommendations are PROBABLY_LIKES_<ALG> relationships carrying a score.
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
}

// relTypePattern guards interpolated relationship types. Cypher cannot
// parameterize relationship types, so every interpolated name must come from
// a validated enum value.
var relTypePattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

func relType(name string) (string, error) {
	if !relTypePattern.MatchString(name) {
		return "", fmt.Errorf("invalid relationship type %q", name)
	}
	return name, nil
}

// NewNeo4jStore connects to Neo4j, verifies connectivity and ensures the
// uniqueness constraints the evaluation protocol relies on.
func NewNeo4jStore(ctx context.Context, cfg Neo4jConfig) (*Neo4jStore, error) {
	maxPool := cfg.MaxPoolSize
	if maxPool <= 0 {
		maxPool = 50
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""), func(c *neo4j.Config) {
		c.MaxConnectionPoolSize = maxPool
		c.SocketConnectTimeout = 10 * time.Second
	})
	if err != nil {
		return nil, fmt.Errorf("neo4j: init driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j: verify connectivity: %w", err)
	}

	s := &Neo4jStore{driver: driver, database: cfg.Database}
	if err := s.ensureSchema(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, err
	}

	logging.Info().Str("uri", cfg.URI).Str("database", cfg.Database).Msg("connected to neo4j")
	return s, nil
}

// Name returns the backend name.
func (s *Neo4jStore) Name() string { return "neo4j" }

func (s *Neo4jStore) ensureSchema(ctx context.Context) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	constraints := []string{
		`CREATE CONSTRAINT user_id_unique IF NOT EXISTS FOR (u:User) REQUIRE u.id IS UNIQUE`,
		`CREATE CONSTRAINT item_id_unique IF NOT EXISTS FOR (i:Item) REQUIRE i.id IS UNIQUE`,
	}
	for _, q := range constraints {
		res, err := session.Run(ctx, q, nil)
		if err != nil {
			// Restricted users may not hold schema privileges.
			logging.Warn().Err(err).Msg("neo4j schema init failed, continuing")
			continue
		}
		if _, err := res.Consume(ctx); err != nil {
			return fmt.Errorf("neo4j: ensure schema: %w", err)
		}
	}
	return nil
}

func (s *Neo4jStore) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: s.database,
	})
}

func (s *Neo4jStore) readIDs(ctx context.Context, op, query string) ([]int, error) {
	start := time.Now()
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, nil)
		if err != nil {
			return nil, err
		}
		var ids []int
		for result.Next(ctx) {
			v, ok := result.Record().Get("id")
			if !ok {
				continue
			}
			if id, ok := v.(int64); ok {
				ids = append(ids, int(id))
			}
		}
		return ids, result.Err()
	})
	metrics.ObserveStoreOp(s.Name(), op, start, err)
	if err != nil {
		return nil, fmt.Errorf("neo4j: %s: %w", op, err)
	}
	return out.([]int), nil
}

// Users returns all user IDs.
func (s *Neo4jStore) Users(ctx context.Context) ([]int, error) {
	return s.readIDs(ctx, "users", `MATCH (u:User) RETURN u.id AS id ORDER BY id`)
}

// Items returns all item IDs.
func (s *Neo4jStore) Items(ctx context.Context) ([]int, error) {
	return s.readIDs(ctx, "items", `MATCH (i:Item) RETURN i.id AS id ORDER BY id`)
}

func (s *Neo4jStore) readWeights(ctx context.Context, op, query string, params map[string]any) (map[int]float64, error) {
	start := time.Now()
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		rows := make(map[int]float64)
		for result.Next(ctx) {
			record := result.Record()
			idV, ok1 := record.Get("id")
			wV, ok2 := record.Get("value")
			if !ok1 || !ok2 {
				continue
			}
			id, ok1 := idV.(int64)
			if !ok1 {
				continue
			}
			switch w := wV.(type) {
			case float64:
				rows[int(id)] = w
			case int64:
				rows[int(id)] = float64(w)
			}
		}
		return rows, result.Err()
	})
	metrics.ObserveStoreOp(s.Name(), op, start, err)
	if err != nil {
		return nil, fmt.Errorf("neo4j: %s: %w", op, err)
	}
	return out.(map[int]float64), nil
}

// ActiveRatings returns the entity's active rating vector.
func (s *Neo4jStore) ActiveRatings(ctx context.Context, kind EntityKind, id int) (map[int]float64, error) {
	var query string
	switch kind {
	case KindUser:
		query = `MATCH (:User {id: $id})-[r:RATES]->(i:Item) RETURN i.id AS id, r.rating AS value`
	case KindItem:
		query = `MATCH (u:User)-[r:RATES]->(:Item {id: $id}) RETURN u.id AS id, r.rating AS value`
	default:
		return nil, fmt.Errorf("neo4j: active ratings: unknown entity kind %d", kind)
	}
	return s.readWeights(ctx, "active_ratings", query, map[string]any{"id": id})
}

// DisabledRatings returns the user's masked ratings keyed by item ID.
func (s *Neo4jStore) DisabledRatings(ctx context.Context, userID int) (map[int]float64, error) {
	query := `MATCH (:User {id: $id})-[r:DISABLED_RATES]->(i:Item) RETURN i.id AS id, r.rating AS value`
	return s.readWeights(ctx, "disabled_ratings", query, map[string]any{"id": userID})
}

// CoRatedNeighbors returns same-kind entities sharing an active counterpart.
func (s *Neo4jStore) CoRatedNeighbors(ctx context.Context, kind EntityKind, id int) ([]int, error) {
	var query string
	switch kind {
	case KindUser:
		query = `MATCH (:User {id: $id})-[:RATES]->(:Item)<-[:RATES]-(v:User)
			 RETURN DISTINCT v.id AS id ORDER BY id`
	case KindItem:
		query = `MATCH (:Item {id: $id})<-[:RATES]-(:User)-[:RATES]->(n:Item)
			 RETURN DISTINCT n.id AS id ORDER BY id`
	default:
		return nil, fmt.Errorf("neo4j: co-rated neighbors: unknown entity kind %d", kind)
	}

	start := time.Now()
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, map[string]any{"id": id})
		if err != nil {
			return nil, err
		}
		var ids []int
		for result.Next(ctx) {
			if v, ok := result.Record().Get("id"); ok {
				if n, ok := v.(int64); ok {
					ids = append(ids, int(n))
				}
			}
		}
		return ids, result.Err()
	})
	metrics.ObserveStoreOp(s.Name(), "co_rated_neighbors", start, err)
	if err != nil {
		return nil, fmt.Errorf("neo4j: co-rated neighbors: %w", err)
	}
	return out.([]int), nil
}

// flipRating rewrites a rating relationship from one type to the other,
// carrying the rating value across. Flipping preserves the single-edge
// invariant because the old relationship is deleted in the same transaction.
func (s *Neo4jStore) flipRating(ctx context.Context, op, from, to string, userID, itemID int) error {
	start := time.Now()
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	query := fmt.Sprintf(`
		MATCH (u:User {id: $userID})-[r:%s]->(i:Item {id: $itemID})
		MERGE (u)-[n:%s]->(i)
		SET n.rating = r.rating
		DELETE r
		RETURN count(n) AS flipped`, from, to)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		// Already in the target state: no-op.
		check := fmt.Sprintf(`MATCH (:User {id: $userID})-[r:%s]->(:Item {id: $itemID}) RETURN count(r) AS n`, to)
		result, err := tx.Run(ctx, check, map[string]any{"userID": userID, "itemID": itemID})
		if err != nil {
			return nil, err
		}
		if result.Next(ctx) {
			if v, ok := result.Record().Get("n"); ok {
				if n, ok := v.(int64); ok && n > 0 {
					return nil, nil
				}
			}
		}

		result, err = tx.Run(ctx, query, map[string]any{"userID": userID, "itemID": itemID})
		if err != nil {
			return nil, err
		}
		if result.Next(ctx) {
			if v, ok := result.Record().Get("flipped"); ok {
				if n, ok := v.(int64); ok && n > 0 {
					return nil, nil
				}
			}
		}
		return nil, fmt.Errorf("rating (%d, %d): %w", userID, itemID, ErrNotFound)
	})
	metrics.ObserveStoreOp(s.Name(), op, start, err)
	return err
}

// MaskRating disables an active rating.
func (s *Neo4jStore) MaskRating(ctx context.Context, userID, itemID int) error {
	return s.flipRating(ctx, "mask_rating", "RATES", "DISABLED_RATES", userID, itemID)
}

// UnmaskRating re-enables a masked rating.
func (s *Neo4jStore) UnmaskRating(ctx context.Context, userID, itemID int) error {
	return s.flipRating(ctx, "unmask_rating", "DISABLED_RATES", "RATES", userID, itemID)
}

// UnmaskAll re-enables every masked rating in the store.
func (s *Neo4jStore) UnmaskAll(ctx context.Context) error {
	query := `
		MATCH (u:User)-[r:DISABLED_RATES]->(i:Item)
		MERGE (u)-[n:RATES]->(i)
		SET n.rating = r.rating
		DELETE r`
	return s.write(ctx, "unmask_all", query, nil)
}

// RecomputeAverages recalculates per-entity averages and counts over the
// active rating population, storing them as node properties.
func (s *Neo4jStore) RecomputeAverages(ctx context.Context) error {
	queries := []string{
		`MATCH (u:User)
		 OPTIONAL MATCH (u)-[r:RATES]->(:Item)
		 WITH u, avg(r.rating) AS a, count(r) AS n
		 SET u.avgRating = a, u.ratingCount = n`,
		`MATCH (i:Item)
		 OPTIONAL MATCH (:User)-[r:RATES]->(i)
		 WITH i, avg(r.rating) AS a, count(r) AS n
		 SET i.avgRating = a, i.ratingCount = n`,
	}
	for _, q := range queries {
		if err := s.write(ctx, "recompute_averages", q, nil); err != nil {
			return err
		}
	}
	return nil
}

// AverageRating returns the entity's stored average rating.
func (s *Neo4jStore) AverageRating(ctx context.Context, kind EntityKind, id int) (float64, bool, error) {
	var query string
	switch kind {
	case KindUser:
		query = `MATCH (u:User {id: $id}) RETURN u.avgRating AS avg`
	case KindItem:
		query = `MATCH (i:Item {id: $id}) RETURN i.avgRating AS avg`
	default:
		return 0, false, fmt.Errorf("neo4j: average rating: unknown entity kind %d", kind)
	}

	start := time.Now()
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	type avgResult struct {
		avg float64
		ok  bool
	}

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, map[string]any{"id": id})
		if err != nil {
			return nil, err
		}
		if !result.Next(ctx) {
			if err := result.Err(); err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
		}
		v, _ := result.Record().Get("avg")
		if avg, ok := v.(float64); ok {
			return avgResult{avg: avg, ok: true}, nil
		}
		// avg is null until RecomputeAverages runs or when the entity
		// has no active ratings.
		return avgResult{}, nil
	})
	metrics.ObserveStoreOp(s.Name(), "average_rating", start, err)
	if err != nil {
		return 0, false, err
	}
	r := out.(avgResult)
	return r.avg, r.ok, nil
}

// UpsertSimilarity stores an undirected similarity edge. The start node is
// always the lower ID, so mirrored upserts hit the same relationship.
func (s *Neo4jStore) UpsertSimilarity(ctx context.Context, kind EntityKind, sim SimilarityKind, a, b int, weight float64) error {
	if a == b {
		return fmt.Errorf("neo4j: similarity self-edge on %s %d", kind, a)
	}
	rel, err := relType(string(sim))
	if err != nil {
		return fmt.Errorf("neo4j: upsert similarity: %w", err)
	}

	label := "User"
	if kind == KindItem {
		label = "Item"
	}
	pair := NewPairKey(a, b)

	query := fmt.Sprintf(`
		MATCH (lo:%s {id: $lo}), (hi:%s {id: $hi})
		MERGE (lo)-[r:%s]->(hi)
		SET r.weight = $weight`, label, label, rel)
	return s.write(ctx, "upsert_similarity", query, map[string]any{
		"lo":     pair.Lo,
		"hi":     pair.Hi,
		"weight": weight,
	})
}

// Similarities returns the entity's similarity neighbors for one edge kind.
// The undirected pattern sees edges stored under either ordering.
func (s *Neo4jStore) Similarities(ctx context.Context, kind EntityKind, sim SimilarityKind, id int) (map[int]float64, error) {
	rel, err := relType(string(sim))
	if err != nil {
		return nil, fmt.Errorf("neo4j: similarities: %w", err)
	}

	label := "User"
	if kind == KindItem {
		label = "Item"
	}
	query := fmt.Sprintf(`
		MATCH (:%s {id: $id})-[r:%s]-(n:%s)
		RETURN n.id AS id, r.weight AS value`, label, rel, label)
	return s.readWeights(ctx, "similarities", query, map[string]any{"id": id})
}

// ClearSimilarities removes similarity edges for one entity side.
func (s *Neo4jStore) ClearSimilarities(ctx context.Context, kind EntityKind, sims ...SimilarityKind) error {
	if len(sims) == 0 {
		sims = SimilarityKinds
	}

	label := "User"
	if kind == KindItem {
		label = "Item"
	}
	for _, sim := range sims {
		rel, err := relType(string(sim))
		if err != nil {
			return fmt.Errorf("neo4j: clear similarities: %w", err)
		}
		query := fmt.Sprintf(`MATCH (:%s)-[r:%s]-(:%s) DELETE r`, label, rel, label)
		if err := s.write(ctx, "clear_similarities", query, nil); err != nil {
			return err
		}
	}
	return nil
}

func recRelType(alg Algorithm) (string, error) {
	return relType("PROBABLY_LIKES_" + string(alg))
}

// UpsertRecommendation stores a scored recommendation edge.
func (s *Neo4jStore) UpsertRecommendation(ctx context.Context, userID, itemID int, alg Algorithm, score float64) error {
	rel, err := recRelType(alg)
	if err != nil {
		return fmt.Errorf("neo4j: upsert recommendation: %w", err)
	}

	query := fmt.Sprintf(`
		MATCH (u:User {id: $userID}), (i:Item {id: $itemID})
		MERGE (u)-[r:%s]->(i)
		SET r.score = $score`, rel)
	return s.write(ctx, "upsert_recommendation", query, map[string]any{
		"userID": userID,
		"itemID": itemID,
		"score":  score,
	})
}

// Recommendations returns the user's recommendations for one algorithm.
func (s *Neo4jStore) Recommendations(ctx context.Context, userID int, alg Algorithm) (map[int]float64, error) {
	rel, err := recRelType(alg)
	if err != nil {
		return nil, fmt.Errorf("neo4j: recommendations: %w", err)
	}

	query := fmt.Sprintf(`
		MATCH (:User {id: $id})-[r:%s]->(i:Item)
		RETURN i.id AS id, r.score AS value`, rel)
	return s.readWeights(ctx, "recommendations", query, map[string]any{"id": userID})
}

// TrimRecommendations deletes the lowest-scored rows until at most n remain.
func (s *Neo4jStore) TrimRecommendations(ctx context.Context, userID int, alg Algorithm, n int) error {
	if n < 0 {
		return fmt.Errorf("neo4j: trim to negative size %d", n)
	}
	rel, err := recRelType(alg)
	if err != nil {
		return fmt.Errorf("neo4j: trim recommendations: %w", err)
	}

	query := fmt.Sprintf(`
		MATCH (:User {id: $id})-[r:%s]->(:Item)
		WITH r ORDER BY r.score DESC
		SKIP $n
		DELETE r`, rel)
	return s.write(ctx, "trim_recommendations", query, map[string]any{"id": userID, "n": n})
}

// ClearRecommendations removes recommendation edges.
func (s *Neo4jStore) ClearRecommendations(ctx context.Context, algs ...Algorithm) error {
	if len(algs) == 0 {
		// All recommendation edges regardless of algorithm suffix.
		query := `
			MATCH (:User)-[r]->(:Item)
			WHERE type(r) STARTS WITH 'PROBABLY_LIKES_'
			DELETE r`
		return s.write(ctx, "clear_recommendations", query, nil)
	}

	for _, alg := range algs {
		rel, err := recRelType(alg)
		if err != nil {
			return fmt.Errorf("neo4j: clear recommendations: %w", err)
		}
		query := fmt.Sprintf(`MATCH (:User)-[r:%s]->(:Item) DELETE r`, rel)
		if err := s.write(ctx, "clear_recommendations", query, nil); err != nil {
			return err
		}
	}
	return nil
}

// MarkTestUser sets or clears the user's fold-membership flag.
func (s *Neo4jStore) MarkTestUser(ctx context.Context, userID int, test bool) error {
	start := time.Now()
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, `
			MATCH (u:User {id: $id})
			SET u.testUser = $test
			RETURN count(u) AS n`, map[string]any{"id": userID, "test": test})
		if err != nil {
			return nil, err
		}
		if result.Next(ctx) {
			if v, ok := result.Record().Get("n"); ok {
				if n, ok := v.(int64); ok && n > 0 {
					return nil, nil
				}
			}
		}
		return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	})
	metrics.ObserveStoreOp(s.Name(), "mark_test_user", start, err)
	return err
}

// TestUsers returns the IDs of users currently flagged as test users.
func (s *Neo4jStore) TestUsers(ctx context.Context) ([]int, error) {
	return s.readIDs(ctx, "test_users", `MATCH (u:User {testUser: true}) RETURN u.id AS id ORDER BY id`)
}

// Close shuts down the underlying driver.
func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Neo4jStore) write(ctx context.Context, op, query string, params map[string]any) error {
	start := time.Now()
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		_, err = result.Consume(ctx)
		return nil, err
	})
	metrics.ObserveStoreOp(s.Name(), op, start, err)
	if err != nil {
		return fmt.Errorf("neo4j: %s: %w", op, err)
	}
	return nil
}

var _ GraphStore = (*Neo4jStore)(nil)
