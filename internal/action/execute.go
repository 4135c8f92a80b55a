package action

import (
	"fmt"
	"log/slog"
	"math/rand"
	"strings"

	"github.com/MrWong99/fableturn/internal/event"
	"github.com/MrWong99/fableturn/internal/world"
)

// Executor mutates the world for validated actions and produces narration
// fragments. It never raises across the caller boundary: internal
// inconsistencies come back as an error for the pipeline to wrap.
type Executor struct {
	arena   *world.Arena
	events  *event.Manager
	resolve *Resolver
	queue   StepQueuer
	log     *slog.Logger
	rng     *rand.Rand
}

// ExecutorOption customises an Executor.
type ExecutorOption func(*Executor)

// WithQueue attaches the step queue that receives group cascades.
func WithQueue(q StepQueuer) ExecutorOption {
	return func(e *Executor) { e.queue = q }
}

// WithLogger sets the executor's logger.
func WithLogger(log *slog.Logger) ExecutorOption {
	return func(e *Executor) { e.log = log }
}

// WithRand sets the random source used for cascade target selection.
// Mainly for deterministic tests.
func WithRand(rng *rand.Rand) ExecutorOption {
	return func(e *Executor) { e.rng = rng }
}

// NewExecutor returns an Executor over the arena and event manager.
func NewExecutor(a *world.Arena, ev *event.Manager, opts ...ExecutorOption) *Executor {
	e := &Executor{
		arena:   a,
		events:  ev,
		resolve: NewResolver(a),
		queue:   nopQueuer{},
		log:     slog.Default(),
		rng:     rand.New(rand.NewSource(rand.Int63())),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute performs one validated action for the actor and returns the
// narration fragment.
func (e *Executor) Execute(actor *world.Character, env Envelope) (string, error) {
	switch env.Kind {
	case KindDoNothing:
		return fmt.Sprintf("%s does nothing.", actor.Name), nil
	case KindMove:
		return e.move(actor, env)
	case KindHarm:
		return e.harm(actor, env)
	case KindPickUp:
		return e.pickUp(actor, env)
	case KindDropItem:
		return e.dropItem(actor, env)
	case KindGiveItem:
		return e.giveItem(actor, env)
	case KindSteal:
		return e.steal(actor, env)
	case KindUseItem:
		return e.useItem(actor, env)
	case KindEquipItem:
		return e.equipItem(actor, env)
	case KindUnequipItem:
		return e.unequipItem(actor, env)
	case KindJoinParty:
		return e.joinParty(actor, env)
	case KindQuitParty:
		return e.quitParty(actor, env)
	case KindTalk:
		return e.talk(actor, env)
	case KindInform:
		return e.inform(actor, env)
	case KindSearch:
		return e.search(actor, env)
	case KindExamine:
		return e.examine(actor, env)
	case KindAskAction:
		return e.askAction(actor, env)
	case KindStopEvent:
		return e.stopEvent(actor, env)
	}
	return "", fmt.Errorf("action: unknown kind %q", env.Kind)
}

// ─── Movement ────────────────────────────────────────────────────────────────

// move walks the actor along the shortest unblocked path to the destination,
// one hop at a time, refreshing knowledge and rechecking event triggers at
// each stop. Party members co-located at the start follow to the final
// destination via queued steps.
func (e *Executor) move(actor *world.Character, env Envelope) (string, error) {
	dest := e.resolve.Area(env.Location)
	if dest == nil {
		return "", fmt.Errorf("action: move destination %q vanished", env.Location)
	}
	if dest.UID == actor.AreaUID {
		return fmt.Sprintf("%s is already in %s.", actor.Name, dest.Name), nil
	}
	path := e.shortestPath(actor.AreaUID, dest.UID)
	if path == nil {
		if b := e.events.BlockadeOn(actor.AreaUID, dest.UID); b != nil {
			return fmt.Sprintf("The way to %s is barred: %s.", dest.Name, b.Description()), nil
		}
		return fmt.Sprintf("There is no open way from here to %s.", dest.Name), nil
	}

	followers := e.arena.PartyIn(actor, actor.AreaUID)

	var lines []string
	for i := 1; i < len(path); i++ {
		from := e.arena.Area(path[i-1])
		to := e.arena.Area(path[i])
		if err := e.arena.PlaceCharacter(actor, to.UID); err != nil {
			return "", fmt.Errorf("action: move: %w", err)
		}
		e.arena.RefreshKnownState(actor)
		lines = append(lines, fmt.Sprintf("%s moves from %s to %s.", actor.Name, from.Name, to.Name))
		lines = append(lines, e.events.CheckTriggers()...)
	}
	if actor.Controllable && dest.Description != "" {
		lines = append(lines, dest.Description)
	}

	for _, f := range followers {
		if f.UID == actor.UID || f.HasActed {
			continue
		}
		e.queue.QueueStep(f.UID, Envelope{Kind: KindMove, Location: dest.UID}, OriginGroupMove)
	}
	return strings.Join(lines, " "), nil
}

// shortestPath runs a BFS over linking points, skipping blocked edges.
// Returns the area uid path including both endpoints, or nil.
func (e *Executor) shortestPath(from, to string) []string {
	if from == to {
		return []string{from}
	}
	prev := map[string]string{from: ""}
	queue := []string{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, l := range e.arena.LinksOf(cur) {
			if l.Blocked {
				continue
			}
			next := l.Other(cur)
			if next == "" {
				continue
			}
			if _, seen := prev[next]; seen {
				continue
			}
			prev[next] = cur
			if next == to {
				var path []string
				for at := to; at != ""; at = prev[at] {
					path = append([]string{at}, path...)
				}
				return path
			}
			queue = append(queue, next)
		}
	}
	return nil
}

// stopEvent lets the actor bow out of an ongoing event. Conversations end
// on request; fights only break off when the combatants are already apart
// or down.
func (e *Executor) stopEvent(actor *world.Character, _ Envelope) (string, error) {
	for _, ev := range e.events.EventsInvolving(actor.UID) {
		switch v := ev.(type) {
		case *event.Conversation:
			v.End()
			return fmt.Sprintf("%s lets the conversation trail off.", actor.Name), nil
		case *event.Fight:
			if note := v.ResolveIfNeeded(e.arena); note != "" {
				return note, nil
			}
			return fmt.Sprintf("%s cannot simply walk away from the fight.", actor.Name), nil
		}
	}
	return fmt.Sprintf("Nothing involving %s is happening right now.", actor.Name), nil
}
