package event

import (
	"fmt"
	"slices"
	"strings"

	"github.com/MrWong99/fableturn/internal/world"
)

// Fight is an active engagement between two or more characters. It ends on
// its own once fewer than two participants remain alive or the survivors no
// longer share an area.
type Fight struct {
	participants []string
	active       bool
}

// NewFight opens a fight between the listed characters.
func NewFight(participantUIDs ...string) *Fight {
	return &Fight{participants: slices.Clone(participantUIDs), active: true}
}

func (f *Fight) Name() string { return "fight" }
func (f *Fight) Kind() string { return KindFight }

func (f *Fight) Description() string {
	return fmt.Sprintf("a fight between %d combatants", len(f.participants))
}

// AreaUIDs returns the distinct areas holding a living participant. Computed
// on demand so the fight follows its combatants when someone flees.
func (f *Fight) AreaUIDs(a *world.Arena) []string {
	seen := make(map[string]bool)
	var out []string
	for _, uid := range f.participants {
		c := a.Character(uid)
		if c == nil || !c.Alive || seen[c.AreaUID] {
			continue
		}
		seen[c.AreaUID] = true
		out = append(out, c.AreaUID)
	}
	return out
}

func (f *Fight) Participants() []string { return slices.Clone(f.participants) }
func (f *Fight) Active() bool           { return f.active }

func (f *Fight) Involves(uid string) bool {
	return f.active && slices.Contains(f.participants, uid)
}

// AddParticipant pulls another character into the fight.
func (f *Fight) AddParticipant(uid string) {
	if !slices.Contains(f.participants, uid) {
		f.participants = append(f.participants, uid)
	}
}

// Opponents returns the living participants other than uid.
func (f *Fight) Opponents(a *world.Arena, uid string) []*world.Character {
	var out []*world.Character
	for _, p := range f.participants {
		if p == uid {
			continue
		}
		if c := a.Character(p); c != nil && c.Alive {
			out = append(out, c)
		}
	}
	return out
}

// ResolveIfNeeded ends the fight once fewer than two participants are alive
// or the survivors have split across areas.
func (f *Fight) ResolveIfNeeded(a *world.Arena) string {
	if !f.active {
		return ""
	}
	var alive []*world.Character
	for _, uid := range f.participants {
		if c := a.Character(uid); c != nil && c.Alive {
			alive = append(alive, c)
		}
	}
	if len(alive) >= 2 && len(f.AreaUIDs(a)) <= 1 {
		return ""
	}
	f.active = false
	if len(alive) == 0 {
		return "The fight is over; no one is left standing."
	}
	if len(alive) == 1 {
		return fmt.Sprintf("The fight is over. %s stands victorious.", alive[0].Name)
	}
	names := make([]string, len(alive))
	for i, c := range alive {
		names[i] = c.Name
	}
	return fmt.Sprintf("The fight breaks off as %s separate.", strings.Join(names, " and "))
}
