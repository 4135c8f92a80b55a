package action

import (
	"testing"

	"github.com/MrWong99/fableturn/internal/event"
	"github.com/MrWong99/fableturn/internal/world"
)

// fixture is the shared scene for action tests: a three-room drugstore with
// the player, a friendly NPC, a walker behind a barricaded door, and a few
// items in known places.
type fixture struct {
	arena  *world.Arena
	events *event.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	a := world.NewArena()
	for _, ar := range []*world.Area{
		{UID: "area_store", Name: "Storefront", Description: "Shelves lie toppled across the aisle."},
		{UID: "area_back", Name: "Backroom"},
		{UID: "area_street", Name: "Street", Exit: true},
	} {
		if err := a.AddArea(ar); err != nil {
			t.Fatal(err)
		}
	}
	for _, l := range []*world.Link{
		{AreaA: "area_store", AreaB: "area_back", Description: "a swinging door"},
		{AreaA: "area_store", AreaB: "area_street", Description: "the shattered entrance"},
	} {
		if err := a.AddLink(l); err != nil {
			t.Fatal(err)
		}
	}
	for _, c := range []*world.Character{
		{UID: "char_player", Name: "Morgan", AreaUID: "area_store", Health: 100, Alive: true, Controllable: true,
			Stats: world.Stats{Strength: 5, Skill: 5, Speed: 5}},
		{UID: "char_kenny", Name: "Kenny", AreaUID: "area_store", Health: 80, Alive: true,
			Stats: world.Stats{Speed: 6}},
		{UID: "char_walker", Name: "Walker", AreaUID: "area_back", Health: 40, Alive: true, Hostile: true,
			Stats: world.Stats{Speed: 2}},
	} {
		if err := a.AddCharacter(c); err != nil {
			t.Fatal(err)
		}
	}
	for _, it := range []*world.Item{
		{UID: "item_crowbar", Name: "Crowbar", Damage: 6, Robustness: 15},
		{UID: "item_kit", Name: "First Aid Kit", Robustness: 100, Abilities: []world.Ability{{Name: "Medicate"}}},
		{UID: "item_axe", Name: "Fire Axe", Damage: 12, Robustness: 70},
	} {
		if err := a.AddItem(it); err != nil {
			t.Fatal(err)
		}
	}
	// Crowbar and kit start on the storefront floor, axe with Kenny.
	store := a.Area("area_store")
	for _, uid := range []string{"item_crowbar", "item_kit"} {
		it := a.Item(uid)
		it.AreaUID = "area_store"
		store.ItemUIDs = append(store.ItemUIDs, uid)
	}
	a.GiveItem(a.Item("item_axe"), a.Character("char_kenny"))

	f := &fixture{arena: a, events: event.NewManager(a, nil)}
	a.RefreshKnownState(a.Character("char_player"))
	a.RefreshKnownState(a.Character("char_kenny"))
	return f
}

func (f *fixture) player() *world.Character { return f.arena.Character("char_player") }

func (f *fixture) validator() *Validator { return NewValidator(f.arena, f.events) }

func (f *fixture) executor(opts ...ExecutorOption) *Executor {
	return NewExecutor(f.arena, f.events, opts...)
}

// recordingQueue captures cascaded steps for assertions.
type recordingQueue struct {
	steps []queuedStep
}

type queuedStep struct {
	actorUID string
	env      Envelope
	origin   string
}

func (q *recordingQueue) QueueStep(actorUID string, env Envelope, origin string) {
	q.steps = append(q.steps, queuedStep{actorUID, env, origin})
}
