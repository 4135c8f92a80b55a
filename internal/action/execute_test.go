package action

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/MrWong99/fableturn/internal/event"
	"github.com/MrWong99/fableturn/internal/world"
)

func TestExecuteMoveWalksAndQueuesFollowers(t *testing.T) {
	f := newFixture(t)
	q := &recordingQueue{}
	e := f.executor(WithQueue(q))
	p := f.player()
	kenny := f.arena.Character("char_kenny")
	world.JoinParties(p, kenny)

	out, err := e.Execute(p, Envelope{Kind: KindMove, Location: "Backroom"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out, "Morgan moves from Storefront to Backroom.") {
		t.Errorf("out = %q, want per-hop move line", out)
	}
	if p.AreaUID != "area_back" {
		t.Errorf("player area = %q", p.AreaUID)
	}
	if len(q.steps) != 1 || q.steps[0].actorUID != "char_kenny" || q.steps[0].origin != OriginGroupMove {
		t.Fatalf("queued steps = %+v, want one group-move for Kenny", q.steps)
	}
	if q.steps[0].env.Kind != KindMove || q.steps[0].env.Location != "area_back" {
		t.Errorf("follower step = %+v", q.steps[0].env)
	}
	// Walking into the walker's room starts a fight.
	if f.events.FightInvolving("char_player") == nil {
		t.Error("no fight after moving into a hostile's room")
	}
}

func TestExecuteMoveBlockedByBlockade(t *testing.T) {
	f := newFixture(t)
	link := f.arena.LinkBetween("area_store", "area_back")
	f.events.Add(event.NewBlockade("barricade", "planks nailed across the door", link, "Crowbar", ""))
	e := f.executor()

	out, err := e.Execute(f.player(), Envelope{Kind: KindMove, Location: "Backroom"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out, "barred") {
		t.Errorf("out = %q, want blocked-way message", out)
	}
	if f.player().AreaUID != "area_store" {
		t.Error("player moved through an active blockade")
	}
}

func TestExecuteHarmFalloutAndCascade(t *testing.T) {
	f := newFixture(t)
	q := &recordingQueue{}
	e := f.executor(WithQueue(q), WithRand(rand.New(rand.NewSource(1))))
	p := f.player()
	kenny := f.arena.Character("char_kenny")
	clem := &world.Character{UID: "char_clem", Name: "Clementine", AreaUID: "area_store", Health: 90, Alive: true}
	if err := f.arena.AddCharacter(clem); err != nil {
		t.Fatal(err)
	}
	world.JoinParties(p, clem)

	out, err := e.Execute(p, Envelope{Kind: KindHarm, Target: "Kenny"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out, "strikes Kenny") {
		t.Errorf("out = %q", out)
	}
	// Unarmed: round(5 * (1 + 10/20)) = 8.
	if kenny.Health != 72 {
		t.Errorf("Kenny health = %d, want 72", kenny.Health)
	}
	if kenny.FriendshipWith("char_player") != 0 {
		t.Error("victim goodwill not pinned at 0")
	}
	// Clementine witnessed the attack on a stranger (friendship 5).
	if got := clem.FriendshipWith("char_player"); got >= world.DefaultFriendship {
		t.Errorf("witness friendship = %d, want a penalty", got)
	}
	if f.events.FightInvolving("char_player") == nil {
		t.Error("no fight event after the attack")
	}
	// Clementine is in the attacker's party and gets dragged in.
	if len(q.steps) != 1 || q.steps[0].actorUID != "char_clem" || q.steps[0].origin != OriginGroupJoin {
		t.Fatalf("queued steps = %+v, want one group-join harm for Clementine", q.steps)
	}
	if q.steps[0].env.Kind != KindHarm || q.steps[0].env.Target != "char_kenny" {
		t.Errorf("cascade step = %+v", q.steps[0].env)
	}
}

func TestExecuteGiveItemRules(t *testing.T) {
	f := newFixture(t)
	e := f.executor()
	p := f.player()
	kenny := f.arena.Character("char_kenny")
	kit := f.arena.Item("item_kit")
	f.arena.GiveItem(kit, p)

	// Default friendship 5 >= 3: glad acceptance, +1 goodwill.
	out, err := e.Execute(p, Envelope{Kind: KindGiveItem, Target: "Kenny", Item: "First Aid Kit"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "gladly accepts") {
		t.Errorf("out = %q", out)
	}
	if kit.HolderUID != "char_kenny" {
		t.Error("item not transferred")
	}
	if kenny.FriendshipWith("char_player") != 6 {
		t.Errorf("friendship = %d, want 6", kenny.FriendshipWith("char_player"))
	}

	// Unfriendly and healthy: refusal.
	f.arena.GiveItem(kit, p)
	kenny.SetFriendship("char_player", 2)
	out, err = e.Execute(p, Envelope{Kind: KindGiveItem, Target: "Kenny", Item: "First Aid Kit"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "refuses") || kit.HolderUID != "char_player" {
		t.Errorf("out = %q holder = %q, want refusal", out, kit.HolderUID)
	}

	// Unfriendly but desperate: reluctant acceptance, no goodwill gain.
	kenny.Health = 30
	out, err = e.Execute(p, Envelope{Kind: KindGiveItem, Target: "Kenny", Item: "First Aid Kit"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "no position to refuse") || kit.HolderUID != "char_kenny" {
		t.Errorf("out = %q holder = %q, want reluctant acceptance", out, kit.HolderUID)
	}
	if kenny.FriendshipWith("char_player") != 2 {
		t.Errorf("friendship = %d, want unchanged 2", kenny.FriendshipWith("char_player"))
	}
}

func TestExecuteStealCostsGoodwill(t *testing.T) {
	f := newFixture(t)
	e := f.executor()
	p := f.player()
	kenny := f.arena.Character("char_kenny")

	out, err := e.Execute(p, Envelope{Kind: KindSteal, Target: "Kenny", Item: "Fire Axe"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "steals the Fire Axe") {
		t.Errorf("out = %q", out)
	}
	axe := f.arena.Item("item_axe")
	if axe.HolderUID != "char_player" {
		t.Error("axe not transferred")
	}
	if kenny.FriendshipWith("char_player") != 4 {
		t.Errorf("friendship = %d, want 4", kenny.FriendshipWith("char_player"))
	}
	// The axe is a weapon and should be auto-equipped into a free hand.
	if p.WeaponUID != "item_axe" {
		t.Errorf("WeaponUID = %q, want item_axe", p.WeaponUID)
	}

	// Stealing from someone at friendship 1 pins them at hostile 0.
	kenny.SetFriendship("char_player", 1)
	f.arena.GiveItem(axe, kenny)
	if _, err := e.Execute(p, Envelope{Kind: KindSteal, Target: "Kenny", Item: "Fire Axe"}); err != nil {
		t.Fatal(err)
	}
	if kenny.FriendshipWith("char_player") != 0 {
		t.Errorf("friendship = %d, want hostile 0", kenny.FriendshipWith("char_player"))
	}
}

func TestExecuteUseItemMedicateAndBlockade(t *testing.T) {
	f := newFixture(t)
	e := f.executor()
	p := f.player()
	kenny := f.arena.Character("char_kenny")
	kenny.Health = 50
	kit := f.arena.Item("item_kit")
	f.arena.GiveItem(kit, p)

	out, err := e.Execute(p, Envelope{Kind: KindUseItem, Item: "First Aid Kit", Target: "Kenny"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "health 80") || kenny.Health != 80 {
		t.Errorf("out = %q, health = %d, want heal to 80", out, kenny.Health)
	}

	// A blockade consumes the matching item use before any other effect.
	link := f.arena.LinkBetween("area_store", "area_back")
	f.events.Add(event.NewBlockade("barricade", "planks", link, "Crowbar", ""))
	crowbar := f.arena.Item("item_crowbar")
	f.arena.GiveItem(crowbar, p)
	out, err = e.Execute(p, Envelope{Kind: KindUseItem, Item: "Crowbar"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "the way is open") {
		t.Errorf("out = %q, want breach note", out)
	}
	if f.arena.Item("item_crowbar") != nil {
		t.Error("fragile crowbar survived the breach")
	}
}

func TestExecuteJoinPartySharesKnowledge(t *testing.T) {
	f := newFixture(t)
	e := f.executor()
	p := f.player()
	kenny := f.arena.Character("char_kenny")

	out, err := e.Execute(p, Envelope{Kind: KindJoinParty, Target: "Kenny"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "join forces") {
		t.Errorf("out = %q", out)
	}
	if !p.InPartyWith("char_kenny") || !kenny.InPartyWith("char_player") {
		t.Error("party relation not symmetric")
	}
	// The player learns about Kenny's axe through the introduction.
	if !p.KnownItems["item_axe"] {
		t.Error("newcomer's items not shared")
	}

	// Low trust blocks admission.
	walker := f.arena.Character("char_walker")
	_ = f.arena.PlaceCharacter(walker, "area_store")
	walker.Hostile = false
	walker.SetFriendship("char_player", 2)
	out, err = e.Execute(p, Envelope{Kind: KindJoinParty, Target: "Walker"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "does not trust") || p.InPartyWith("char_walker") {
		t.Errorf("out = %q, want refusal", out)
	}
}

func TestExecuteSearchModes(t *testing.T) {
	f := newFixture(t)
	e := f.executor()
	p := f.player()

	out, err := e.Execute(p, Envelope{Kind: KindSearch})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Crowbar") || !strings.Contains(out, "Kenny") {
		t.Errorf("current-area search = %q, want items and people", out)
	}

	out, err = e.Execute(p, Envelope{Kind: KindSearch, Location: "Backroom"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "peers into Backroom") || !strings.Contains(out, "Walker") {
		t.Errorf("peek = %q", out)
	}
	entry, ok := p.Knowledge["char_walker"]
	if !ok || !entry.Outdated {
		t.Error("peeked character not recorded as outdated hearsay")
	}

	kenny := f.arena.Character("char_kenny")
	out, err = e.Execute(p, Envelope{Kind: KindSearch, Target: "Kenny"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Fire Axe") {
		t.Errorf("person search = %q, want inventory listing", out)
	}
	if kenny.FriendshipWith("char_player") != 4 {
		t.Errorf("friendship = %d, want 4 after being frisked", kenny.FriendshipWith("char_player"))
	}
}

func TestExecuteInformTruthAndHearsay(t *testing.T) {
	f := newFixture(t)
	e := f.executor()
	p := f.player()
	kenny := f.arena.Character("char_kenny")

	// The crowbar is in the room: truth view, fresh snapshots on both sides.
	if _, err := e.Execute(p, Envelope{Kind: KindInform, Target: "Kenny", Item: "Crowbar"}); err != nil {
		t.Fatal(err)
	}
	if entry := kenny.Knowledge["item_crowbar"]; entry.Outdated {
		t.Error("truth-view inform produced an outdated entry")
	}

	// The street: neither is there, so the player's stale snapshot is copied
	// and both entries flagged outdated.
	street := f.arena.Area("area_street")
	p.RememberArea(street, world.ReasonPresence)
	if _, err := e.Execute(p, Envelope{Kind: KindInform, Target: "Kenny", Location: "Street"}); err != nil {
		t.Fatal(err)
	}
	if entry := kenny.Knowledge["area_street"]; !entry.Outdated {
		t.Error("hearsay inform not flagged outdated for the receiver")
	}
	if entry := p.Knowledge["area_street"]; !entry.Outdated {
		t.Error("hearsay inform not flagged outdated for the giver")
	}
}

func TestExecuteAskAction(t *testing.T) {
	f := newFixture(t)
	e := f.executor()
	p := f.player()

	out, err := e.Execute(p, Envelope{Kind: KindAskAction, Target: "Kenny", Requested: KindGiveItem, Item: "Fire Axe"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "asks Kenny") {
		t.Errorf("out = %q", out)
	}
	if f.arena.Item("item_axe").HolderUID != "char_player" {
		t.Error("requested give did not default the receiver to the asker")
	}
}
