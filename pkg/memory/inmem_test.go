package memory

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryAppendAssignsIDs(t *testing.T) {
	m := NewInMemory()
	ctx := context.Background()

	r1 := &TurnRecord{SessionID: "s1", PlayerInput: "look around"}
	r2 := &TurnRecord{SessionID: "s1", PlayerInput: "pick up the crowbar"}
	if err := m.AppendTurn(ctx, r1); err != nil {
		t.Fatal(err)
	}
	if err := m.AppendTurn(ctx, r2); err != nil {
		t.Fatal(err)
	}
	if r1.ID != 1 || r2.ID != 2 {
		t.Errorf("ids = %d, %d, want 1, 2", r1.ID, r2.ID)
	}

	if err := m.AppendTurn(ctx, &TurnRecord{}); err == nil {
		t.Error("append without session id should fail")
	}
}

func TestInMemoryRecentTurns(t *testing.T) {
	m := NewInMemory()
	ctx := context.Background()
	for _, in := range []string{"a", "b", "c"} {
		if err := m.AppendTurn(ctx, &TurnRecord{SessionID: "s1", PlayerInput: in}); err != nil {
			t.Fatal(err)
		}
	}
	if err := m.AppendTurn(ctx, &TurnRecord{SessionID: "other", PlayerInput: "x"}); err != nil {
		t.Fatal(err)
	}

	got, err := m.RecentTurns(ctx, "s1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].PlayerInput != "b" || got[1].PlayerInput != "c" {
		t.Errorf("recent = %+v, want newest two oldest-first", got)
	}

	empty, err := m.RecentTurns(ctx, "missing", 5)
	if err != nil {
		t.Fatal(err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("missing session should yield empty non-nil slice, got %v", empty)
	}
}

func TestInMemorySearch(t *testing.T) {
	m := NewInMemory()
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	records := []TurnRecord{
		{SessionID: "s1", PlayerInput: "hit the walker", Narration: "You swing the axe.", AreaUID: "area_store", Timestamp: base},
		{SessionID: "s1", PlayerInput: "talk to Kenny", Narration: "Kenny nods.", AreaUID: "area_back", Timestamp: base.Add(time.Minute)},
		{SessionID: "s2", PlayerInput: "hit the door", Narration: "It holds.", AreaUID: "area_store", Timestamp: base.Add(2 * time.Minute)},
	}
	for i := range records {
		if err := m.AppendTurn(ctx, &records[i]); err != nil {
			t.Fatal(err)
		}
	}

	got, err := m.Search(ctx, "hit", SearchOpts{SessionID: "s1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].PlayerInput != "hit the walker" {
		t.Errorf("search = %+v", got)
	}

	got, err = m.Search(ctx, "", SearchOpts{AreaUID: "area_store", After: base})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].SessionID != "s2" {
		t.Errorf("filtered search = %+v", got)
	}
}

func TestInMemorySearchSimilar(t *testing.T) {
	m := NewInMemory()
	ctx := context.Background()
	records := []TurnRecord{
		{SessionID: "s1", PlayerInput: "east", Embedding: []float32{1, 0}},
		{SessionID: "s1", PlayerInput: "northeast", Embedding: []float32{1, 1}},
		{SessionID: "s1", PlayerInput: "north", Embedding: []float32{0, 1}},
		{SessionID: "s1", PlayerInput: "no vector"},
	}
	for i := range records {
		if err := m.AppendTurn(ctx, &records[i]); err != nil {
			t.Fatal(err)
		}
	}

	got, err := m.SearchSimilar(ctx, []float32{1, 0}, 2, SearchOpts{SessionID: "s1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("results = %d, want 2", len(got))
	}
	if got[0].Record.PlayerInput != "east" || got[1].Record.PlayerInput != "northeast" {
		t.Errorf("order = %q, %q", got[0].Record.PlayerInput, got[1].Record.PlayerInput)
	}
	if got[0].Distance > got[1].Distance {
		t.Error("results not ordered by ascending distance")
	}
}
