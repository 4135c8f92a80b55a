package event

import (
	"fmt"
	"strings"

	"github.com/MrWong99/fableturn/internal/world"
)

// fragileRobustness is the durability at or below which a tool breaks when
// it successfully clears a blockade.
const fragileRobustness = 20

// Blockade bars a linking point between two areas until breached with the
// right item or ability.
type Blockade struct {
	name        string
	description string
	link        *world.Link

	// requiredItem names the item that clears the blockade (matched
	// case-insensitively). Empty means any item with requiredAbility works.
	requiredItem string

	// requiredAbility names an item ability that clears the blockade,
	// e.g. "BreachBarricade".
	requiredAbility string

	active bool
}

// NewBlockade bars the given link. The link's Blocked flag mirrors the
// blockade's lifetime.
func NewBlockade(name, description string, link *world.Link, requiredItem, requiredAbility string) *Blockade {
	link.Blocked = true
	return &Blockade{
		name:            name,
		description:     description,
		link:            link,
		requiredItem:    requiredItem,
		requiredAbility: requiredAbility,
		active:          true,
	}
}

func (b *Blockade) Name() string        { return b.name }
func (b *Blockade) Kind() string        { return KindBlockade }
func (b *Blockade) Description() string { return b.description }

func (b *Blockade) AreaUIDs(a *world.Arena) []string {
	return []string{b.link.AreaA, b.link.AreaB}
}

func (b *Blockade) Participants() []string   { return nil }
func (b *Blockade) Active() bool             { return b.active }
func (b *Blockade) Involves(uid string) bool { return false }

// Link returns the gated linking point.
func (b *Blockade) Link() *world.Link { return b.link }

// ResolveIfNeeded is a no-op: blockades only resolve through [Blockade.TryBreach].
func (b *Blockade) ResolveIfNeeded(a *world.Arena) string { return "" }

// Accepts reports whether the item can clear this blockade.
func (b *Blockade) Accepts(it *world.Item) bool {
	if b.requiredItem != "" && strings.EqualFold(it.Name, b.requiredItem) {
		return true
	}
	return b.requiredAbility != "" && it.HasAbility(b.requiredAbility)
}

// TryBreach attempts to clear the blockade with the given item. On success
// the link unblocks and a fragile tool (robustness <= 20) breaks and is
// removed from play. Reports whether the item use was consumed.
func (b *Blockade) TryBreach(a *world.Arena, actor *world.Character, it *world.Item) (string, bool) {
	if !b.active || !b.Accepts(it) {
		return "", false
	}
	b.active = false
	b.link.Blocked = false
	note := fmt.Sprintf("%s clears the %s with the %s; the way is open.", actor.Name, b.name, it.Name)
	if it.Robustness <= fragileRobustness {
		a.DestroyItem(it)
		note += fmt.Sprintf(" The %s breaks apart from the strain.", it.Name)
	}
	return note, true
}
