package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
)

// InMemory is an Archive held entirely in process memory. It backs
// single-process runs without a database and doubles as the test
// implementation. Safe for concurrent use.
type InMemory struct {
	mu      sync.RWMutex
	records []TurnRecord
	nextID  int64
}

var _ Archive = (*InMemory)(nil)

// NewInMemory returns an empty in-process archive.
func NewInMemory() *InMemory {
	return &InMemory{nextID: 1}
}

// AppendTurn implements [Archive].
func (m *InMemory) AppendTurn(_ context.Context, rec *TurnRecord) error {
	if rec.SessionID == "" {
		return fmt.Errorf("turn archive: append: empty session id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = m.nextID
	m.nextID++
	m.records = append(m.records, cloneRecord(*rec))
	return nil
}

// RecentTurns implements [Archive].
func (m *InMemory) RecentTurns(_ context.Context, sessionID string, limit int) ([]TurnRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []TurnRecord{}
	for _, r := range m.records {
		if r.SessionID == sessionID {
			out = append(out, cloneRecord(r))
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// Search implements [Archive]. Matching is a case-insensitive substring
// test against player input and narration.
func (m *InMemory) Search(_ context.Context, query string, opts SearchOpts) ([]TurnRecord, error) {
	needle := strings.ToLower(query)

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []TurnRecord{}
	for _, r := range m.records {
		if !matchesOpts(r, opts) {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(r.PlayerInput), needle) &&
			!strings.Contains(strings.ToLower(r.Narration), needle) {
			continue
		}
		out = append(out, cloneRecord(r))
		if opts.Limit > 0 && len(out) == opts.Limit {
			break
		}
	}
	return out, nil
}

// SearchSimilar implements [Archive] using cosine distance.
func (m *InMemory) SearchSimilar(_ context.Context, embedding []float32, topK int, opts SearchOpts) ([]TurnResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []TurnResult{}
	for _, r := range m.records {
		if !matchesOpts(r, opts) || len(r.Embedding) == 0 {
			continue
		}
		d, ok := cosineDistance(embedding, r.Embedding)
		if !ok {
			continue
		}
		out = append(out, TurnResult{Record: cloneRecord(r), Distance: d})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func matchesOpts(r TurnRecord, opts SearchOpts) bool {
	if opts.SessionID != "" && r.SessionID != opts.SessionID {
		return false
	}
	if opts.AreaUID != "" && r.AreaUID != opts.AreaUID {
		return false
	}
	if !opts.After.IsZero() && !r.Timestamp.After(opts.After) {
		return false
	}
	if !opts.Before.IsZero() && !r.Timestamp.Before(opts.Before) {
		return false
	}
	return true
}

func cloneRecord(r TurnRecord) TurnRecord {
	r.Actions = append([]string(nil), r.Actions...)
	r.Embedding = append([]float32(nil), r.Embedding...)
	return r
}

// cosineDistance returns 1 - cosine similarity. ok is false when the
// vectors differ in dimension or either has zero magnitude.
func cosineDistance(a, b []float32) (float64, bool) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, false
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0, false
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb)), true
}
