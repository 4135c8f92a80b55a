// Package event tracks in-world happenings that outlive a single step:
// fights, blockades, and conversations. The [Manager] is the only owner of
// event state; areas and characters never hold event references themselves,
// so an event exists exactly once no matter how many entities it touches.
package event

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/MrWong99/fableturn/internal/world"
)

// Event kinds as stored and reported by the manager.
const (
	KindFight        = "fight"
	KindBlockade     = "blockade"
	KindConversation = "conversation"
)

// Event is one ongoing happening. Implementations are [Fight], [Blockade],
// and [Conversation].
type Event interface {
	// Name is a short human-readable label used in narration context.
	Name() string
	// Kind is one of the Kind* constants.
	Kind() string
	// Description explains the event for prompt construction.
	Description() string
	// AreaUIDs are the areas the event currently touches.
	AreaUIDs(a *world.Arena) []string
	// Participants are the involved character uids, if any.
	Participants() []string
	// Active reports whether the event still constrains play.
	Active() bool
	// Involves reports whether the character uid takes part.
	Involves(uid string) bool
	// ResolveIfNeeded checks the event's own end condition and deactivates
	// it when met, returning a narration note for the resolution or "".
	ResolveIfNeeded(a *world.Arena) string
}

// Manager owns every event in a running game.
type Manager struct {
	arena  *world.Arena
	events []Event
	log    *slog.Logger
}

// NewManager returns a Manager bound to the arena.
func NewManager(a *world.Arena, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{arena: a, log: log}
}

// Add registers an event.
func (m *Manager) Add(e Event) {
	m.events = append(m.events, e)
	m.log.Debug("event started", "kind", e.Kind(), "name", e.Name())
}

// Active returns all currently active events.
func (m *Manager) Active() []Event {
	var out []Event
	for _, e := range m.events {
		if e.Active() {
			out = append(out, e)
		}
	}
	return out
}

// EventsIn returns the active events touching the given area.
func (m *Manager) EventsIn(areaUID string) []Event {
	var out []Event
	for _, e := range m.Active() {
		if slices.Contains(e.AreaUIDs(m.arena), areaUID) {
			out = append(out, e)
		}
	}
	return out
}

// EventsInvolving returns the active events the character takes part in.
func (m *Manager) EventsInvolving(uid string) []Event {
	var out []Event
	for _, e := range m.Active() {
		if e.Involves(uid) {
			out = append(out, e)
		}
	}
	return out
}

// FightInvolving returns the active fight the character takes part in, or nil.
func (m *Manager) FightInvolving(uid string) *Fight {
	for _, e := range m.Active() {
		if f, ok := e.(*Fight); ok && f.Involves(uid) {
			return f
		}
	}
	return nil
}

// ConversationInvolving returns the active conversation the character takes
// part in, or nil.
func (m *Manager) ConversationInvolving(uid string) *Conversation {
	for _, e := range m.Active() {
		if c, ok := e.(*Conversation); ok && c.Involves(uid) {
			return c
		}
	}
	return nil
}

// BlockadeOn returns the active blockade gating the link between the two
// areas, or nil.
func (m *Manager) BlockadeOn(areaA, areaB string) *Blockade {
	for _, e := range m.Active() {
		if b, ok := e.(*Blockade); ok && b.link.Connects(areaA, areaB) {
			return b
		}
	}
	return nil
}

// ValidateMovement reports whether a character may travel from one area to
// another, consulting active blockades.
func (m *Manager) ValidateMovement(from, dest string) error {
	if b := m.BlockadeOn(from, dest); b != nil {
		return fmt.Errorf("event: the way is barred: %s", b.Description())
	}
	return nil
}

// StartFight opens a fight between the two characters, merging into an
// existing fight when either is already engaged.
func (m *Manager) StartFight(a, b *world.Character) *Fight {
	if f := m.FightInvolving(a.UID); f != nil {
		f.AddParticipant(b.UID)
		return f
	}
	if f := m.FightInvolving(b.UID); f != nil {
		f.AddParticipant(a.UID)
		return f
	}
	f := NewFight(a.UID, b.UID)
	m.Add(f)
	return f
}

// CheckTriggers scans every area for co-located hostile pairs and opens or
// extends fights accordingly. Returns narration notes for newly engaged
// pairs. Called after each executed step so a hostile arrival is engaged
// within the same round.
func (m *Manager) CheckTriggers() []string {
	var notes []string
	for _, ar := range m.arena.Areas() {
		residents := m.arena.CharactersIn(ar.UID)
		for i, x := range residents {
			if !x.Alive {
				continue
			}
			for _, y := range residents[i+1:] {
				if !y.Alive {
					continue
				}
				if !x.IsHostileToward(y) && !y.IsHostileToward(x) {
					continue
				}
				if f := m.FightInvolving(x.UID); f != nil && f.Involves(y.UID) {
					continue
				}
				m.StartFight(x, y)
				notes = append(notes, fmt.Sprintf("%s and %s are locked in combat in %s.", x.Name, y.Name, ar.Name))
			}
		}
	}
	return notes
}

// ResolvePending runs every active event's end-condition check and returns
// the narration notes of those that resolved.
func (m *Manager) ResolvePending() []string {
	var notes []string
	for _, e := range m.Active() {
		if note := e.ResolveIfNeeded(m.arena); note != "" {
			notes = append(notes, note)
			m.log.Debug("event resolved", "kind", e.Kind(), "name", e.Name())
		}
	}
	return notes
}

// HandleItemUse offers an item use to the blockades in the actor's area.
// When a blockade accepts the item it resolves, the link unblocks, and a
// fragile tool breaks. Returns the narration note and whether any blockade
// consumed the use.
func (m *Manager) HandleItemUse(actor *world.Character, it *world.Item) (string, bool) {
	for _, e := range m.EventsIn(actor.AreaUID) {
		b, ok := e.(*Blockade)
		if !ok {
			continue
		}
		note, used := b.TryBreach(m.arena, actor, it)
		if used {
			return note, true
		}
	}
	return "", false
}
