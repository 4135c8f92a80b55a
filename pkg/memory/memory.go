// Package memory defines the turn archive: a persistent, append-only log of
// completed game turns with keyword and vector similarity retrieval.
//
// The archive has two retrieval paths:
//
//   - [Archive.RecentTurns] and [Archive.Search] work on the raw records and
//     need no embedding provider.
//   - [Archive.SearchSimilar] works on pre-computed embeddings and powers
//     "what happened the last time I did this" style recall for the
//     storytelling collaborator.
//
// Implementations must be safe for concurrent use. The postgres subpackage
// provides the durable pgvector-backed implementation; [InMemory] serves
// single-process runs and tests.
package memory

import (
	"context"
	"time"
)

// TurnRecord is one completed turn as written to the archive.
type TurnRecord struct {
	// ID is assigned by the archive on append; zero before that.
	ID int64

	// SessionID groups the turns of one playthrough.
	SessionID string

	// PlayerInput is the raw text the player typed.
	PlayerInput string

	// Label is the precheck classification the input received.
	Label string

	// Actions holds the executed actions in wire form, one per step.
	Actions []string

	// WorldResult is the factual engine output for the turn.
	WorldResult string

	// Narration is the text shown to the player.
	Narration string

	// AreaUID is where the player stood when the turn resolved.
	AreaUID string

	// Embedding is the vector representation of the turn, if one was
	// computed. Dimension must match the archive configuration.
	Embedding []float32

	// Timestamp is when the turn completed.
	Timestamp time.Time
}

// SearchOpts narrows a keyword or similarity search.
// All non-zero fields are applied as AND conditions.
type SearchOpts struct {
	// SessionID restricts the search to a single playthrough.
	// Empty searches across all sessions.
	SessionID string

	// AreaUID restricts results to turns resolved in a specific area.
	AreaUID string

	// After filters turns recorded after this instant (exclusive).
	After time.Time

	// Before filters turns recorded before this instant (exclusive).
	Before time.Time

	// Limit caps the number of results. 0 lets the implementation pick
	// its own default.
	Limit int
}

// TurnResult pairs a retrieved record with its vector-space distance from
// the query embedding. Lower Distance means more similar.
type TurnResult struct {
	Record   TurnRecord
	Distance float64
}

// Archive is the turn log. Appends are durable before AppendTurn returns.
type Archive interface {
	// AppendTurn writes rec to the archive and fills in rec.ID.
	// rec.SessionID must be non-empty.
	AppendTurn(ctx context.Context, rec *TurnRecord) error

	// RecentTurns returns the newest limit turns for the session, oldest
	// first. Returns an empty (non-nil) slice when the session has none.
	RecentTurns(ctx context.Context, sessionID string, limit int) ([]TurnRecord, error)

	// Search performs keyword search over player input and narration.
	// Returns an empty (non-nil) slice when nothing matches.
	Search(ctx context.Context, query string, opts SearchOpts) ([]TurnRecord, error)

	// SearchSimilar finds the topK archived turns whose embeddings are
	// closest to the query embedding, ordered by ascending distance.
	// Records appended without an embedding are skipped.
	SearchSimilar(ctx context.Context, embedding []float32, topK int, opts SearchOpts) ([]TurnResult, error)
}
