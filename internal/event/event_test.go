package event

import (
	"strings"
	"testing"

	"github.com/MrWong99/fableturn/internal/world"
)

func testArena(t *testing.T) *world.Arena {
	t.Helper()
	a := world.NewArena()
	for _, ar := range []*world.Area{
		{UID: "area_store", Name: "Storefront"},
		{UID: "area_back", Name: "Backroom"},
	} {
		if err := a.AddArea(ar); err != nil {
			t.Fatal(err)
		}
	}
	if err := a.AddLink(&world.Link{AreaA: "area_store", AreaB: "area_back", Description: "a barricaded door"}); err != nil {
		t.Fatal(err)
	}
	for _, c := range []*world.Character{
		{UID: "char_rick", Name: "Rick", AreaUID: "area_store", Health: 100, Alive: true, Controllable: true},
		{UID: "char_glenn", Name: "Glenn", AreaUID: "area_store", Health: 80, Alive: true},
		{UID: "char_walker", Name: "Walker", AreaUID: "area_back", Health: 60, Alive: true, Hostile: true},
	} {
		if err := a.AddCharacter(c); err != nil {
			t.Fatal(err)
		}
	}
	return a
}

func TestFightTriggersOnCoLocatedHostiles(t *testing.T) {
	a := testArena(t)
	m := NewManager(a, nil)

	if notes := m.CheckTriggers(); len(notes) != 0 {
		t.Fatalf("separated hostiles triggered a fight: %v", notes)
	}

	walker := a.Character("char_walker")
	if err := a.PlaceCharacter(walker, "area_store"); err != nil {
		t.Fatal(err)
	}
	notes := m.CheckTriggers()
	if len(notes) != 2 {
		t.Fatalf("notes = %v, want an engagement per hostile pair", notes)
	}
	f := m.FightInvolving("char_walker")
	if f == nil {
		t.Fatal("no fight involving the walker")
	}
	if !f.Involves("char_rick") || !f.Involves("char_glenn") {
		t.Errorf("fight participants = %v, want all three merged", f.Participants())
	}
	// Re-scanning must not duplicate the fight.
	m.CheckTriggers()
	if n := len(m.Active()); n != 1 {
		t.Errorf("active events = %d, want 1", n)
	}
}

func TestFightResolvesOnDeath(t *testing.T) {
	a := testArena(t)
	m := NewManager(a, nil)
	f := NewFight("char_rick", "char_walker")
	m.Add(f)

	if notes := m.ResolvePending(); len(notes) != 0 {
		t.Fatalf("fight resolved early: %v", notes)
	}
	a.ApplyDamage(a.Character("char_walker"), 999)
	notes := m.ResolvePending()
	if len(notes) != 1 || !strings.Contains(notes[0], "Rick stands victorious") {
		t.Errorf("notes = %v, want victory note for Rick", notes)
	}
	if f.Active() {
		t.Error("fight still active after resolution")
	}
}

func TestFightResolvesOnSeparation(t *testing.T) {
	a := testArena(t)
	m := NewManager(a, nil)
	f := NewFight("char_rick", "char_glenn")
	m.Add(f)

	if err := a.PlaceCharacter(a.Character("char_glenn"), "area_back"); err != nil {
		t.Fatal(err)
	}
	notes := m.ResolvePending()
	if len(notes) != 1 || !strings.Contains(notes[0], "breaks off") {
		t.Errorf("notes = %v, want break-off note", notes)
	}
	if f.Active() {
		t.Error("fight still active after participants separated")
	}
}

func TestBlockadeGatesMovementAndBreach(t *testing.T) {
	a := testArena(t)
	m := NewManager(a, nil)
	link := a.LinkBetween("area_store", "area_back")
	b := NewBlockade("barricade", "planks nailed across the door", link, "Crowbar", "BreachBarricade")
	m.Add(b)

	if !link.Blocked {
		t.Fatal("link not flagged blocked")
	}
	if err := m.ValidateMovement("area_store", "area_back"); err == nil {
		t.Fatal("movement allowed through active blockade")
	}

	rick := a.Character("char_rick")
	bandage := &world.Item{UID: "item_bandage", Name: "Bandage", Robustness: 100}
	crowbar := &world.Item{UID: "item_crowbar", Name: "Crowbar", Robustness: 15}
	for _, it := range []*world.Item{bandage, crowbar} {
		if err := a.AddItem(it); err != nil {
			t.Fatal(err)
		}
		a.GiveItem(it, rick)
	}

	if _, used := m.HandleItemUse(rick, bandage); used {
		t.Error("blockade accepted an unrelated item")
	}
	note, used := m.HandleItemUse(rick, crowbar)
	if !used {
		t.Fatal("blockade rejected the required item")
	}
	if !strings.Contains(note, "breaks apart") {
		t.Errorf("note = %q, want fragile tool to break", note)
	}
	if a.Item("item_crowbar") != nil {
		t.Error("broken tool still in play")
	}
	if link.Blocked || b.Active() {
		t.Error("blockade still active after breach")
	}
	if err := m.ValidateMovement("area_store", "area_back"); err != nil {
		t.Errorf("movement still barred: %v", err)
	}
}

func TestBlockadeAcceptsAbilityMatch(t *testing.T) {
	a := testArena(t)
	link := a.LinkBetween("area_store", "area_back")
	b := NewBlockade("barricade", "planks", link, "", "BreachBarricade")

	axe := &world.Item{UID: "item_axe", Name: "Fire Axe", Robustness: 80,
		Abilities: []world.Ability{{Name: "BreachBarricade"}}}
	if !b.Accepts(axe) {
		t.Error("ability match rejected")
	}
	rick := a.Character("char_rick")
	note, used := b.TryBreach(a, rick, axe)
	if !used || strings.Contains(note, "breaks apart") {
		t.Errorf("sturdy tool: used=%v note=%q, want breach without breaking", used, note)
	}
}

func TestConversationFadesOnSeparation(t *testing.T) {
	a := testArena(t)
	m := NewManager(a, nil)
	c := NewConversation("supplies", "char_rick", "char_glenn")
	m.Add(c)

	m.ResolvePending()
	if !c.Active() {
		t.Fatal("conversation ended while both present")
	}
	if err := a.PlaceCharacter(a.Character("char_glenn"), "area_back"); err != nil {
		t.Fatal(err)
	}
	m.ResolvePending()
	if c.Active() {
		t.Error("conversation survived the participants separating")
	}
	if got := m.ConversationInvolving("char_rick"); got != nil {
		t.Error("resolved conversation still reported as involving Rick")
	}
}
