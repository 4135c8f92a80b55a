package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ddlTurns returns the turn-archive DDL with the embedding dimension
// substituted. The vector dimension is baked into the column type at
// schema creation time.
func ddlTurns(embeddingDimensions int) string {
	return fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS turns (
    id           BIGSERIAL    PRIMARY KEY,
    session_id   TEXT         NOT NULL,
    player_input TEXT         NOT NULL,
    label        TEXT         NOT NULL DEFAULT '',
    actions      TEXT[]       NOT NULL DEFAULT '{}',
    world_result TEXT         NOT NULL DEFAULT '',
    narration    TEXT         NOT NULL DEFAULT '',
    area_uid     TEXT         NOT NULL DEFAULT '',
    embedding    vector(%d),
    timestamp    TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_turns_session_id
    ON turns (session_id);

CREATE INDEX IF NOT EXISTS idx_turns_session_id_id
    ON turns (session_id, id);

CREATE INDEX IF NOT EXISTS idx_turns_fts
    ON turns USING GIN (to_tsvector('english', player_input || ' ' || narration));

CREATE INDEX IF NOT EXISTS idx_turns_embedding
    ON turns USING hnsw (embedding vector_cosine_ops);
`, embeddingDimensions)
}

// Migrate creates or ensures the archive tables and extensions exist. It is
// idempotent and safe to call on every application start.
//
// embeddingDimensions must match the vector model configured for the
// deployment (e.g., 1536 for OpenAI text-embedding-3-small, 768 for
// nomic-embed-text). Changing it after the first migration requires a
// manual schema update.
func Migrate(ctx context.Context, pool *pgxpool.Pool, embeddingDimensions int) error {
	if _, err := pool.Exec(ctx, ddlTurns(embeddingDimensions)); err != nil {
		return fmt.Errorf("turn archive migrate: %w", err)
	}
	return nil
}
