package scenario

import (
	"strings"
	"testing"

	"github.com/MrWong99/fableturn/internal/event"
)

func TestDefaultLoadsAndValidates(t *testing.T) {
	f, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	if f.World.Title != "Drugstore in Macon" {
		t.Errorf("title = %q", f.World.Title)
	}
	if len(f.Areas) != 5 {
		t.Errorf("areas = %d, want 5", len(f.Areas))
	}
	if f.Win.ExitArea != "area_street" || f.Win.HealCharacter != "char_larry" || f.Win.HealThreshold != 30 {
		t.Errorf("win = %+v", f.Win)
	}
}

func TestLoadFromReaderRejectsUnknownKeys(t *testing.T) {
	yml := `
world:
  title: "Test"
  chaose_state: 3
areas:
  - uid: area_a
    name: A
characters:
  - uid: char_p
    name: P
    area: area_a
    health: 100
    controllable: true
`
	if _, err := LoadFromReader(strings.NewReader(yml)); err == nil {
		t.Fatal("misspelled key should be rejected")
	}
}

func TestValidateCatchesBrokenReferences(t *testing.T) {
	base := func() *File {
		return &File{
			Areas: []AreaDef{{UID: "area_a", Name: "A"}},
			Characters: []CharacterDef{
				{UID: "char_p", Name: "P", Area: "area_a", Health: 100, Controllable: true},
			},
		}
	}

	tests := []struct {
		name   string
		mutate func(*File)
	}{
		{"character in unknown area", func(f *File) { f.Characters[0].Area = "area_missing" }},
		{"no controllable character", func(f *File) { f.Characters[0].Controllable = false }},
		{"item with area and holder", func(f *File) {
			f.Items = []ItemDef{{UID: "item_x", Area: "area_a", Holder: "char_p"}}
		}},
		{"link to unknown area", func(f *File) {
			f.Links = []LinkDef{{Between: [2]string{"area_a", "area_missing"}}}
		}},
		{"win area unknown", func(f *File) { f.Win.ExitArea = "area_missing" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := base()
			tc.mutate(f)
			if err := f.Validate(); err == nil {
				t.Error("want validation error")
			}
		})
	}
}

func TestBuildConstructsArena(t *testing.T) {
	f, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	a, err := f.Build()
	if err != nil {
		t.Fatal(err)
	}

	lee := a.Protagonist()
	if lee == nil || lee.UID != "char_lee" {
		t.Fatalf("protagonist = %+v", lee)
	}
	if lee.AreaUID != "area_office" {
		t.Errorf("Lee starts in %q, want area_office", lee.AreaUID)
	}
	if !lee.InPartyWith("char_clementine") || !a.Character("char_clementine").InPartyWith("char_lee") {
		t.Error("Lee and Clementine should be a symmetric party")
	}
	if got := lee.FriendshipWith("char_larry"); got != 3 {
		t.Errorf("Lee->Larry friendship = %d, want 3", got)
	}

	bat := a.Item("item_baseball_bat")
	kenny := a.Character("char_kenny")
	if bat.HolderUID != "char_kenny" || !bat.Equipped || kenny.WeaponUID != "item_baseball_bat" {
		t.Errorf("Kenny's bat not equipped: %+v, weapon=%q", bat, kenny.WeaponUID)
	}

	axe := a.Item("item_fire_axe")
	if axe.AreaUID != "area_alley" {
		t.Errorf("axe lies in %q, want area_alley", axe.AreaUID)
	}

	if !a.Area("area_street").Exit {
		t.Error("street must be an exit area")
	}

	// Knowledge is seeded: Lee knows his office companions.
	if !lee.KnownPeople["char_carley"] {
		t.Error("Lee should know co-present Carley after the initial refresh")
	}
	if lee.KnownAreas["area_pharmacy"] {
		t.Error("Lee should not know the pharmacy yet")
	}
}

func TestSeedEventsCreatesBlockades(t *testing.T) {
	f, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	a, err := f.Build()
	if err != nil {
		t.Fatal(err)
	}
	events := event.NewManager(a, nil)

	if err := f.SeedEvents(a, events, false); err != nil {
		t.Fatal(err)
	}
	if events.BlockadeOn("area_office", "area_alley") == nil {
		t.Error("back door blockade missing")
	}
	if !a.LinkBetween("area_store", "area_pharmacy").Blocked {
		t.Error("pharmacy link should be blocked")
	}
	if a.LinkBetween("area_alley", "area_street").Blocked {
		t.Error("alley mouth should stay open")
	}

	// Idempotent on repeat.
	if err := f.SeedEvents(a, events, false); err != nil {
		t.Fatal(err)
	}
	count := 0
	for _, e := range events.Active() {
		if e.Kind() == event.KindBlockade {
			count++
		}
	}
	if count != 3 {
		t.Errorf("blockades = %d, want 3", count)
	}
}

func TestSeedEventsAfterRestoreSkipsBreached(t *testing.T) {
	f, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	a, err := f.Build()
	if err != nil {
		t.Fatal(err)
	}

	// Simulate a restored arena where the back door was already breached.
	a.LinkBetween("area_store", "area_pharmacy").Blocked = true
	a.LinkBetween("area_store", "area_street").Blocked = true

	events := event.NewManager(a, nil)
	if err := f.SeedEvents(a, events, true); err != nil {
		t.Fatal(err)
	}
	if events.BlockadeOn("area_office", "area_alley") != nil {
		t.Error("breached blockade must not return")
	}
	if events.BlockadeOn("area_store", "area_pharmacy") == nil {
		t.Error("unbreached blockade must be re-created")
	}
}

func TestBuildReturnsFreshArenas(t *testing.T) {
	f, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	a1, err := f.Build()
	if err != nil {
		t.Fatal(err)
	}
	a2, err := f.Build()
	if err != nil {
		t.Fatal(err)
	}

	a1.Character("char_lee").Health = 1
	if got := a2.Character("char_lee").Health; got != 85 {
		t.Errorf("second build shares state with first: health = %d", got)
	}
}
