// Package postgres provides the PostgreSQL-backed turn archive. Keyword
// search uses a GIN full-text index; similarity search uses a pgvector
// HNSW index over the per-turn embeddings.
//
// The pgvector extension must be available in the target database;
// [Migrate] installs it via CREATE EXTENSION IF NOT EXISTS.
//
// Usage:
//
//	store, err := postgres.NewStore(ctx, dsn, 1536)
//	if err != nil { … }
//	defer store.Close()
//
//	_ = store.AppendTurn(ctx, &rec)
//	hits, _ := store.SearchSimilar(ctx, queryVec, 5, memory.SearchOpts{SessionID: id})
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/MrWong99/fableturn/pkg/memory"
)

var _ memory.Archive = (*Store)(nil)

// Store is the pgvector-backed [memory.Archive]. It holds a single
// [pgxpool.Pool]; all operations are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore establishes a connection pool to the database at dsn, registers
// pgvector types on every connection, and runs [Migrate].
//
// embeddingDimensions must match the output dimension of the embedding
// model producing [memory.TurnRecord.Embedding] values (e.g., 1536 for
// OpenAI text-embedding-3-small). Changing it after the first migration
// requires a manual schema change.
func NewStore(ctx context.Context, dsn string, embeddingDimensions int) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("turn archive: parse dsn: %w", err)
	}

	// Register pgvector types on every new connection so embedding columns
	// can be scanned into and inserted from pgvector.Vector values.
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("turn archive: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("turn archive: ping: %w", err)
	}

	if err := Migrate(ctx, pool, embeddingDimensions); err != nil {
		pool.Close()
		return nil, fmt.Errorf("turn archive: migrate: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close releases all connections held by the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// AppendTurn implements [memory.Archive].
func (s *Store) AppendTurn(ctx context.Context, rec *memory.TurnRecord) error {
	if rec.SessionID == "" {
		return fmt.Errorf("turn archive: append: empty session id")
	}

	const q = `
		INSERT INTO turns
		    (session_id, player_input, label, actions, world_result, narration, area_uid, embedding, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	var vec any
	if len(rec.Embedding) > 0 {
		vec = pgvector.NewVector(rec.Embedding)
	}
	err := s.pool.QueryRow(ctx, q,
		rec.SessionID,
		rec.PlayerInput,
		rec.Label,
		rec.Actions,
		rec.WorldResult,
		rec.Narration,
		rec.AreaUID,
		vec,
		rec.Timestamp,
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("turn archive: append turn: %w", err)
	}
	return nil
}

// RecentTurns implements [memory.Archive]. The newest limit turns are
// selected and then returned oldest first.
func (s *Store) RecentTurns(ctx context.Context, sessionID string, limit int) ([]memory.TurnRecord, error) {
	const q = `
		SELECT id, session_id, player_input, label, actions, world_result, narration, area_uid, embedding, timestamp
		FROM (
		    SELECT *
		    FROM   turns
		    WHERE  session_id = $1
		    ORDER  BY id DESC
		    LIMIT  $2
		) newest
		ORDER BY id`

	rows, err := s.pool.Query(ctx, q, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("turn archive: recent turns: %w", err)
	}
	return collectTurns(rows)
}

// Search implements [memory.Archive]. It runs a PostgreSQL full-text
// search over player input and narration; the query goes through
// plainto_tsquery so no operator syntax is required.
func (s *Store) Search(ctx context.Context, query string, opts memory.SearchOpts) ([]memory.TurnRecord, error) {
	args := []any{query} // $1 = FTS query string
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	conditions := []string{
		"to_tsvector('english', player_input || ' ' || narration) @@ plainto_tsquery('english', $1)",
	}
	conditions = appendOptConditions(conditions, next, opts)

	q := "SELECT id, session_id, player_input, label, actions, world_result, narration, area_uid, embedding, timestamp\n" +
		"FROM   turns\n" +
		"WHERE  " + strings.Join(conditions, "\n  AND  ") + "\n" +
		"ORDER  BY id"

	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		q += fmt.Sprintf("\nLIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("turn archive: search: %w", err)
	}
	return collectTurns(rows)
}

// SearchSimilar implements [memory.Archive] using pgvector cosine distance.
func (s *Store) SearchSimilar(ctx context.Context, embedding []float32, topK int, opts memory.SearchOpts) ([]memory.TurnResult, error) {
	args := []any{pgvector.NewVector(embedding)} // $1 = query vector
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	conditions := []string{"embedding IS NOT NULL"}
	conditions = appendOptConditions(conditions, next, opts)

	args = append(args, topK)
	limitArg := fmt.Sprintf("$%d", len(args))

	q := fmt.Sprintf(`
		SELECT id, session_id, player_input, label, actions, world_result, narration, area_uid, embedding, timestamp,
		       embedding <=> $1 AS distance
		FROM   turns
		WHERE  %s
		ORDER  BY distance
		LIMIT  %s`, strings.Join(conditions, "\n  AND  "), limitArg)

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("turn archive: similarity search: %w", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (memory.TurnResult, error) {
		var (
			tr  memory.TurnResult
			vec *pgvector.Vector
		)
		if err := scanTurn(row, &tr.Record, &vec, &tr.Distance); err != nil {
			return memory.TurnResult{}, err
		}
		if vec != nil {
			tr.Record.Embedding = vec.Slice()
		}
		return tr, nil
	})
	if err != nil {
		return nil, fmt.Errorf("turn archive: scan rows: %w", err)
	}
	if results == nil {
		results = []memory.TurnResult{}
	}
	return results, nil
}

// appendOptConditions translates SearchOpts into SQL predicates.
func appendOptConditions(conditions []string, next func(any) string, opts memory.SearchOpts) []string {
	if opts.SessionID != "" {
		conditions = append(conditions, "session_id = "+next(opts.SessionID))
	}
	if opts.AreaUID != "" {
		conditions = append(conditions, "area_uid = "+next(opts.AreaUID))
	}
	if !opts.After.IsZero() {
		conditions = append(conditions, "timestamp > "+next(opts.After))
	}
	if !opts.Before.IsZero() {
		conditions = append(conditions, "timestamp < "+next(opts.Before))
	}
	return conditions
}

// collectTurns scans pgx rows into a slice of TurnRecord values.
func collectTurns(rows pgx.Rows) ([]memory.TurnRecord, error) {
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (memory.TurnRecord, error) {
		var (
			r   memory.TurnRecord
			vec *pgvector.Vector
		)
		if err := scanTurn(row, &r, &vec); err != nil {
			return memory.TurnRecord{}, err
		}
		if vec != nil {
			r.Embedding = vec.Slice()
		}
		return r, nil
	})
	if err != nil {
		return nil, fmt.Errorf("turn archive: scan rows: %w", err)
	}
	if records == nil {
		records = []memory.TurnRecord{}
	}
	return records, nil
}

// scanTurn scans one turns row. extra receives trailing columns such as
// the computed distance.
func scanTurn(row pgx.CollectableRow, r *memory.TurnRecord, vec **pgvector.Vector, extra ...any) error {
	dest := []any{
		&r.ID,
		&r.SessionID,
		&r.PlayerInput,
		&r.Label,
		&r.Actions,
		&r.WorldResult,
		&r.Narration,
		&r.AreaUID,
		vec,
		&r.Timestamp,
	}
	dest = append(dest, extra...)
	return row.Scan(dest...)
}
