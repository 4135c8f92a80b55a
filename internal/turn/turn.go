// Package turn schedules one planned step per character per round and runs
// rounds in descending speed order, honouring engagement rules: once a
// faster actor has engaged you, your step this round must involve them.
package turn

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/MrWong99/fableturn/internal/action"
	"github.com/MrWong99/fableturn/internal/event"
	"github.com/MrWong99/fableturn/internal/world"
)

// plan is one queued step awaiting its slot in the round.
type plan struct {
	env    action.Envelope
	origin string
}

// Scheduler owns the per-round step queue. It implements
// [action.StepQueuer] so executors can cascade group steps back into the
// running round.
type Scheduler struct {
	arena     *world.Arena
	events    *event.Manager
	validator *action.Validator
	executor  *action.Executor
	log       *slog.Logger

	plans map[string]plan

	// engagements is symmetric: engagements[a][b] means a and b locked
	// each other this round.
	engagements map[string]map[string]bool
}

// NewScheduler returns a Scheduler wired to its own validator and executor.
func NewScheduler(a *world.Arena, ev *event.Manager, log *slog.Logger, execOpts ...action.ExecutorOption) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	s := &Scheduler{
		arena:       a,
		events:      ev,
		validator:   action.NewValidator(a, ev),
		log:         log,
		plans:       make(map[string]plan),
		engagements: make(map[string]map[string]bool),
	}
	opts := append([]action.ExecutorOption{action.WithQueue(s), action.WithLogger(log)}, execOpts...)
	s.executor = action.NewExecutor(a, ev, opts...)
	return s
}

// Executor exposes the scheduler's executor for out-of-round use (the
// pipeline's correction replay).
func (s *Scheduler) Executor() *action.Executor { return s.executor }

// Validator exposes the scheduler's validator.
func (s *Scheduler) Validator() *action.Validator { return s.validator }

// QueueStep records (or overwrites) the actor's single step for this round.
func (s *Scheduler) QueueStep(actorUID string, env action.Envelope, origin string) {
	s.plans[actorUID] = plan{env: env, origin: origin}
	s.log.Debug("step queued", "actor", actorUID, "kind", env.Kind, "origin", origin)
}

// QueueSteps batch-queues a step per actor under one origin.
func (s *Scheduler) QueueSteps(steps map[string]action.Envelope, origin string) {
	for uid, env := range steps {
		s.QueueStep(uid, env, origin)
	}
}

// HasPlan reports whether the actor has a step queued this round.
func (s *Scheduler) HasPlan(actorUID string) bool {
	_, ok := s.plans[actorUID]
	return ok
}

// RunRound executes every queued step in descending speed order (stable
// name tiebreak) and returns the narration lines in execution order. Steps
// queued during the round (group cascades) run in the same round when their
// actor has not acted yet. All plans are cleared when the round ends.
func (s *Scheduler) RunRound() []string {
	var lines []string

	for {
		progressed := false
		for _, actor := range s.sortedActors() {
			if actor.HasActed {
				continue
			}
			p, ok := s.plans[actor.UID]
			if !ok {
				continue
			}
			lines = append(lines, s.runStep(actor, p)...)
			s.consume(actor)
			progressed = true
		}
		if !progressed {
			break
		}
	}

	lines = append(lines, s.events.ResolvePending()...)
	s.endRound()
	return lines
}

// runStep applies engagement gating, validates, and executes one step.
func (s *Scheduler) runStep(actor *world.Character, p plan) []string {
	if !actor.Alive {
		return nil
	}
	partners := s.partnersOf(actor, p.env)

	// A combatant cannot turn their back on whoever engaged them.
	if locked := s.engagements[actor.UID]; len(locked) > 0 {
		involved := false
		for _, partner := range partners {
			if locked[partner.UID] {
				involved = true
				break
			}
		}
		if !involved {
			return []string{fmt.Sprintf("%s is interrupted and cannot follow through.", actor.Name)}
		}
	}
	// Nor can a step poach a partner who is locked by an outsider.
	for _, partner := range partners {
		for otherUID := range s.engagements[partner.UID] {
			if otherUID != actor.UID && !actor.InPartyWith(otherUID) {
				return []string{fmt.Sprintf("%s is too entangled with %s for that.",
					partner.Name, s.characterName(otherUID))}
			}
		}
	}

	env := p.env
	if msg := s.validator.Validate(actor, &env); msg != "" {
		return []string{msg}
	}
	out, err := s.executor.Execute(actor, env)
	if err != nil {
		s.log.Error("step execution failed", "actor", actor.UID, "kind", env.Kind, "error", err)
		return []string{fmt.Sprintf("(Internal execution error: %v)", err)}
	}
	if p.origin == action.OriginGroupMove {
		out = s.followerLine(actor, env)
	}

	for _, partner := range partners {
		s.engage(actor.UID, partner.UID)
	}
	notes := s.events.CheckTriggers()
	return append([]string{out}, notes...)
}

// consume removes the actor's plan and marks them acted for this round.
func (s *Scheduler) consume(actor *world.Character) {
	delete(s.plans, actor.UID)
	actor.HasActed = true
}

// endRound clears plans, engagements, and the acted flags.
func (s *Scheduler) endRound() {
	s.plans = make(map[string]plan)
	s.engagements = make(map[string]map[string]bool)
	for _, c := range s.arena.Characters() {
		c.HasActed = false
	}
}

// sortedActors orders every character by descending speed, ties broken by
// name for reproducible rounds.
func (s *Scheduler) sortedActors() []*world.Character {
	actors := s.arena.Characters()
	sort.SliceStable(actors, func(i, j int) bool {
		if actors[i].Stats.Speed != actors[j].Stats.Speed {
			return actors[i].Stats.Speed > actors[j].Stats.Speed
		}
		return actors[i].Name < actors[j].Name
	})
	return actors
}

// partnersOf resolves the characters a step involves.
func (s *Scheduler) partnersOf(actor *world.Character, env action.Envelope) []*world.Character {
	r := action.NewResolver(s.arena)
	var out []*world.Character
	for _, token := range []string{env.Target, env.IndirectTarget} {
		if action.IsSentinel(token) {
			continue
		}
		if c := r.Character(actor, token); c != nil && c.UID != actor.UID {
			out = append(out, c)
		}
	}
	return out
}

func (s *Scheduler) engage(a, b string) {
	if s.engagements[a] == nil {
		s.engagements[a] = make(map[string]bool)
	}
	if s.engagements[b] == nil {
		s.engagements[b] = make(map[string]bool)
	}
	s.engagements[a][b] = true
	s.engagements[b][a] = true
}

// followerLine normalises group-move narration, stripping path flavour.
func (s *Scheduler) followerLine(actor *world.Character, env action.Envelope) string {
	dest := action.NewResolver(s.arena).Area(env.Location)
	if dest == nil {
		return fmt.Sprintf("%s follows.", actor.Name)
	}
	return fmt.Sprintf("%s follows to %s.", actor.Name, dest.Name)
}

func (s *Scheduler) characterName(uid string) string {
	if c := s.arena.Character(uid); c != nil {
		return c.Name
	}
	return uid
}
