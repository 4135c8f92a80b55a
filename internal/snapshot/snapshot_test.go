package snapshot

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/MrWong99/fableturn/internal/world"
)

func buildArena(t *testing.T) *world.Arena {
	t.Helper()
	a := world.NewArena()
	a.World = world.World{Title: "Drugstore in Macon", ChaosState: 3}
	for _, ar := range []*world.Area{
		{UID: "area_store", Name: "Storefront", Description: "Toppled shelves."},
		{UID: "area_back", Name: "Backroom"},
	} {
		if err := a.AddArea(ar); err != nil {
			t.Fatal(err)
		}
	}
	if err := a.AddLink(&world.Link{AreaA: "area_store", AreaB: "area_back", Description: "a door", Blocked: true}); err != nil {
		t.Fatal(err)
	}
	c := &world.Character{UID: "char_player", Name: "Morgan", AreaUID: "area_store",
		Health: 100, Alive: true, Controllable: true,
		Friendships: map[string]int{"char_kenny": 6}}
	if err := a.AddCharacter(c); err != nil {
		t.Fatal(err)
	}
	it := &world.Item{UID: "item_crowbar", Name: "Crowbar", Damage: 6, Robustness: 15, AreaUID: "area_store"}
	if err := a.AddItem(it); err != nil {
		t.Fatal(err)
	}
	a.Area("area_store").ItemUIDs = []string{"item_crowbar"}
	a.RefreshKnownState(c)
	return a
}

func TestCaptureIsDeepCopy(t *testing.T) {
	a := buildArena(t)
	doc, err := Capture(a)
	if err != nil {
		t.Fatal(err)
	}
	a.Character("char_player").Health = 10
	a.World.ChaosState = 9

	if doc.Characters[0].Health != 100 {
		t.Error("later mutation leaked into the captured document")
	}
	if doc.World.ChaosState != 3 {
		t.Error("world framing not deep-copied")
	}
}

func TestRoundTripCanonical(t *testing.T) {
	a := buildArena(t)
	doc, err := Capture(a)
	if err != nil {
		t.Fatal(err)
	}
	first, err := Canonical(doc)
	if err != nil {
		t.Fatal(err)
	}

	rebuilt, err := BuildArena(doc)
	if err != nil {
		t.Fatal(err)
	}
	doc2, err := Capture(rebuilt)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Canonical(doc2)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("canonical encodings differ:\n%s\n---\n%s", first, second)
	}

	// The rebuilt arena is live and consistent.
	if rebuilt.Character("char_player") == nil {
		t.Fatal("character missing after rebuild")
	}
	if l := rebuilt.LinkBetween("area_store", "area_back"); l == nil || !l.Blocked {
		t.Error("blocked link not preserved")
	}
	if got := rebuilt.CharactersIn("area_store"); len(got) != 1 {
		t.Errorf("residents = %d, want 1", len(got))
	}
}

func TestStackDedupAndTruncate(t *testing.T) {
	a := buildArena(t)
	var stack Stack

	doc, err := Capture(a)
	if err != nil {
		t.Fatal(err)
	}
	pushed, err := stack.Push(Snapshot{State: doc, Meta: Meta{PlayerInput: "(start)", PlayerArea: "Storefront"}})
	if err != nil || !pushed {
		t.Fatalf("first push = (%v, %v)", pushed, err)
	}

	// Structurally identical state is not pushed again.
	doc2, err := Capture(a)
	if err != nil {
		t.Fatal(err)
	}
	pushed, err = stack.Push(Snapshot{State: doc2, Meta: Meta{PlayerInput: "wait", PlayerArea: "Storefront"}})
	if err != nil {
		t.Fatal(err)
	}
	if pushed {
		t.Error("identical snapshot was pushed")
	}

	a.Character("char_player").Health = 60
	doc3, err := Capture(a)
	if err != nil {
		t.Fatal(err)
	}
	if pushed, _ := stack.Push(Snapshot{State: doc3, Meta: Meta{PlayerInput: "fight", PlayerArea: "Storefront"}}); !pushed {
		t.Error("changed snapshot was deduplicated")
	}
	if stack.Len() != 2 {
		t.Fatalf("len = %d, want 2", stack.Len())
	}

	snap, err := stack.At(1)
	if err != nil {
		t.Fatal(err)
	}
	if snap.State.Characters[0].Health != 100 {
		t.Error("wrong snapshot at index 1")
	}
	if err := stack.TruncateTo(1); err != nil {
		t.Fatal(err)
	}
	if stack.Len() != 1 {
		t.Errorf("len after truncate = %d, want 1", stack.Len())
	}
	if err := stack.TruncateTo(5); err == nil {
		t.Error("out-of-range truncate accepted")
	}
}

func TestSaveAndLoadFile(t *testing.T) {
	a := buildArena(t)
	doc, err := Capture(a)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "save.json")
	if err := SaveFile(path, doc); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	first, _ := Canonical(doc)
	second, _ := Canonical(loaded)
	if !bytes.Equal(first, second) {
		t.Error("loaded document differs from saved one")
	}
}
