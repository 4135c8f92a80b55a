package turn

import (
	"strings"
	"testing"

	"github.com/MrWong99/fableturn/internal/action"
	"github.com/MrWong99/fableturn/internal/event"
	"github.com/MrWong99/fableturn/internal/world"
)

func newScene(t *testing.T) (*world.Arena, *event.Manager, *Scheduler) {
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
	if err := a.AddLink(&world.Link{AreaA: "area_store", AreaB: "area_back", Description: "a door"}); err != nil {
		t.Fatal(err)
	}
	for _, c := range []*world.Character{
		{UID: "char_fast", Name: "Ava", AreaUID: "area_store", Health: 100, Alive: true, Controllable: true,
			Stats: world.Stats{Speed: 9}},
		{UID: "char_mid", Name: "Ben", AreaUID: "area_store", Health: 100, Alive: true,
			Stats: world.Stats{Speed: 5}},
		{UID: "char_slow", Name: "Cal", AreaUID: "area_store", Health: 100, Alive: true,
			Stats: world.Stats{Speed: 1}},
	} {
		if err := a.AddCharacter(c); err != nil {
			t.Fatal(err)
		}
		a.RefreshKnownState(c)
	}
	ev := event.NewManager(a, nil)
	return a, ev, NewScheduler(a, ev, nil)
}

func TestRunRoundSpeedOrder(t *testing.T) {
	_, _, s := newScene(t)
	s.QueueStep("char_slow", action.Envelope{Kind: action.KindDoNothing}, action.OriginPlayer)
	s.QueueStep("char_fast", action.Envelope{Kind: action.KindDoNothing}, action.OriginGoodAI)
	s.QueueStep("char_mid", action.Envelope{Kind: action.KindDoNothing}, action.OriginGoodAI)

	lines := s.RunRound()
	if len(lines) != 3 {
		t.Fatalf("lines = %v, want 3", lines)
	}
	wantOrder := []string{"Ava", "Ben", "Cal"}
	for i, name := range wantOrder {
		if !strings.Contains(lines[i], name) {
			t.Errorf("lines[%d] = %q, want %s to act (descending speed)", i, lines[i], name)
		}
	}
	if s.HasPlan("char_fast") {
		t.Error("plans not cleared at end of round")
	}
}

func TestRunRoundEngagementInterrupts(t *testing.T) {
	a, _, s := newScene(t)
	// The fast actor attacks the slow one; the victim's queued retreat must
	// be interrupted because the attacker engaged them first.
	s.QueueStep("char_fast", action.Envelope{Kind: action.KindHarm, Target: "Cal"}, action.OriginPlayer)
	s.QueueStep("char_slow", action.Envelope{Kind: action.KindMove, Location: "Backroom"}, action.OriginGoodAI)

	lines := s.RunRound()
	joined := strings.Join(lines, " | ")
	if !strings.Contains(joined, "strikes Cal") {
		t.Fatalf("lines = %q, want the attack to land", joined)
	}
	if !strings.Contains(joined, "Cal is interrupted") {
		t.Errorf("lines = %q, want Cal's retreat interrupted", joined)
	}
	if cal := a.Character("char_slow"); cal.AreaUID != "area_store" {
		t.Error("engaged character escaped the area")
	}
}

func TestRunRoundEngagedStepAgainstEngagerRuns(t *testing.T) {
	_, _, s := newScene(t)
	s.QueueStep("char_fast", action.Envelope{Kind: action.KindHarm, Target: "Cal"}, action.OriginPlayer)
	s.QueueStep("char_slow", action.Envelope{Kind: action.KindHarm, Target: "Ava"}, action.OriginEvilAI)

	lines := s.RunRound()
	joined := strings.Join(lines, " | ")
	if !strings.Contains(joined, "Cal strikes Ava") {
		t.Errorf("lines = %q, want Cal's counterattack to run", joined)
	}
}

func TestRunRoundBlocksPoachingLockedPartner(t *testing.T) {
	_, _, s := newScene(t)
	// Ava engages Cal first; Ben (not in Ava's party) then tries to involve
	// Cal and is blocked.
	s.QueueStep("char_fast", action.Envelope{Kind: action.KindHarm, Target: "Cal"}, action.OriginPlayer)
	s.QueueStep("char_mid", action.Envelope{Kind: action.KindTalk, Target: "Cal", Topic: "the weather"}, action.OriginGoodAI)

	lines := s.RunRound()
	joined := strings.Join(lines, " | ")
	if !strings.Contains(joined, "too entangled") {
		t.Errorf("lines = %q, want Ben's step blocked", joined)
	}
}

func TestRunRoundCascadeRunsSameRound(t *testing.T) {
	a, _, s := newScene(t)
	ava := a.Character("char_fast")
	ben := a.Character("char_mid")
	world.JoinParties(ava, ben)

	// Ava moves away; Ben's follower step is queued mid-round and must run
	// in the same round with normalised narration.
	s.QueueStep("char_fast", action.Envelope{Kind: action.KindMove, Location: "Backroom"}, action.OriginPlayer)
	lines := s.RunRound()
	joined := strings.Join(lines, " | ")
	if !strings.Contains(joined, "Ben follows to Backroom.") {
		t.Fatalf("lines = %q, want normalised follower line", joined)
	}
	if ben.AreaUID != "area_back" {
		t.Error("follower did not arrive in the same round")
	}
}

func TestRunRoundValidationFailureConsumesStep(t *testing.T) {
	a, _, s := newScene(t)
	s.QueueStep("char_fast", action.Envelope{Kind: action.KindMove, Location: "Atlanta"}, action.OriginPlayer)
	lines := s.RunRound()
	if len(lines) != 1 || !strings.Contains(lines[0], "Atlanta") {
		t.Errorf("lines = %v, want one validation message", lines)
	}
	if a.Character("char_fast").HasActed {
		t.Error("acted flag not reset after round end")
	}
}
