package snapshot

import (
	"bytes"
	"fmt"
)

// Meta annotates a snapshot with how the game got there.
type Meta struct {
	// PlayerInput is the raw input that led to this state; "(start)" for
	// the initial snapshot.
	PlayerInput string `json:"player_input"`

	// PlayerArea names the player's area at capture time.
	PlayerArea string `json:"player_area"`
}

// Snapshot is one undo stack entry.
type Snapshot struct {
	State Document `json:"state"`
	Meta  Meta     `json:"meta"`
}

// Stack is the undo history. Append-only during normal play; truncated when
// the player confirms an undo. Entries are immutable after push.
type Stack struct {
	snaps []Snapshot
}

// Len returns the number of stored snapshots.
func (s *Stack) Len() int { return len(s.snaps) }

// Push appends the snapshot unless it is structurally identical to the
// current top. Reports whether it was stored.
func (s *Stack) Push(snap Snapshot) (bool, error) {
	if len(s.snaps) > 0 {
		prev, err := Canonical(s.snaps[len(s.snaps)-1].State)
		if err != nil {
			return false, err
		}
		cur, err := Canonical(snap.State)
		if err != nil {
			return false, err
		}
		if bytes.Equal(prev, cur) {
			return false, nil
		}
	}
	s.snaps = append(s.snaps, snap)
	return true, nil
}

// At returns the 1-based k-th snapshot.
func (s *Stack) At(k int) (Snapshot, error) {
	if k < 1 || k > len(s.snaps) {
		return Snapshot{}, fmt.Errorf("snapshot: index %d out of range 1..%d", k, len(s.snaps))
	}
	return s.snaps[k-1], nil
}

// TruncateTo drops every snapshot above the 1-based index k, making k the
// new top. Called after a confirmed undo to k.
func (s *Stack) TruncateTo(k int) error {
	if k < 1 || k > len(s.snaps) {
		return fmt.Errorf("snapshot: truncate to %d out of range 1..%d", k, len(s.snaps))
	}
	s.snaps = s.snaps[:k]
	return nil
}

// Summaries lists one line per snapshot, oldest first, for the undo
// selector prompt.
func (s *Stack) Summaries() []string {
	out := make([]string, len(s.snaps))
	for i, snap := range s.snaps {
		out[i] = fmt.Sprintf("%d: %q (in %s)", i+1, snap.Meta.PlayerInput, snap.Meta.PlayerArea)
	}
	return out
}
