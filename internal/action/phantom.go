package action

import (
	"fmt"
	"maps"
	"slices"

	"github.com/MrWong99/fableturn/internal/world"
)

// phantomSnapshot captures the minimal state a chain simulation may touch:
// character positions, inventories, parties and equipment, item placement,
// and area occupancy. Restored verbatim after validation so a rejected or
// accepted chain leaves no trace.
type phantomSnapshot struct {
	chars map[string]phantomChar
	items map[string]phantomItem
	areas map[string]phantomArea
}

type phantomChar struct {
	areaUID   string
	inventory []string
	party     []string
	equipment map[world.Slot]string
	weaponUID string
}

type phantomItem struct {
	areaUID   string
	holderUID string
	equipped  bool
	slot      world.Slot
}

type phantomArea struct {
	itemUIDs      []string
	characterUIDs []string
}

func capturePhantom(a *world.Arena) phantomSnapshot {
	s := phantomSnapshot{
		chars: make(map[string]phantomChar),
		items: make(map[string]phantomItem),
		areas: make(map[string]phantomArea),
	}
	for _, c := range a.Characters() {
		s.chars[c.UID] = phantomChar{
			areaUID:   c.AreaUID,
			inventory: slices.Clone(c.Inventory),
			party:     slices.Clone(c.Party),
			equipment: maps.Clone(c.Equipment),
			weaponUID: c.WeaponUID,
		}
	}
	for _, it := range a.Items() {
		s.items[it.UID] = phantomItem{
			areaUID:   it.AreaUID,
			holderUID: it.HolderUID,
			equipped:  it.Equipped,
			slot:      it.Slot,
		}
	}
	for _, ar := range a.Areas() {
		s.areas[ar.UID] = phantomArea{
			itemUIDs:      slices.Clone(ar.ItemUIDs),
			characterUIDs: slices.Clone(ar.CharacterUIDs),
		}
	}
	return s
}

func (s phantomSnapshot) restore(a *world.Arena) {
	for uid, pc := range s.chars {
		c := a.Character(uid)
		if c == nil {
			continue
		}
		c.AreaUID = pc.areaUID
		c.Inventory = pc.inventory
		c.Party = pc.party
		c.Equipment = pc.equipment
		c.WeaponUID = pc.weaponUID
	}
	for uid, pi := range s.items {
		it := a.Item(uid)
		if it == nil {
			continue
		}
		it.AreaUID = pi.areaUID
		it.HolderUID = pi.holderUID
		it.Equipped = pi.equipped
		it.Slot = pi.slot
	}
	for uid, pa := range s.areas {
		ar := a.Area(uid)
		if ar == nil {
			continue
		}
		ar.ItemUIDs = pa.itemUIDs
		ar.CharacterUIDs = pa.characterUIDs
	}
}

// ValidateSequence vets a multi-step chain by simulating each step's
// approximate effect on a phantom copy of the affected state, so that step
// N sees the world as steps 1..N-1 would leave it. The envelopes may be
// rewritten in place (inform degradation). Returns the 0-based index of
// the first failing step and its message, or (-1, "") on success. All
// simulated mutations are rolled back before returning.
func (v *Validator) ValidateSequence(actor *world.Character, envs []Envelope) (int, string) {
	snap := capturePhantom(v.arena)
	defer snap.restore(v.arena)

	for i := range envs {
		if msg := v.Validate(actor, &envs[i]); msg != "" {
			if len(envs) == 1 {
				return i, msg
			}
			return i, fmt.Sprintf("Action %d: %s", i+1, msg)
		}
		v.applyPhantom(actor, envs[i])
	}
	return -1, ""
}

// applyPhantom applies the step's approximate state effect. Kinds without a
// positional or ownership effect (harm, talk, search, use_item) simulate to
// nothing.
func (v *Validator) applyPhantom(actor *world.Character, env Envelope) {
	switch env.Kind {
	case KindMove:
		if ar := v.resolve.Area(env.Location); ar != nil {
			_ = v.arena.PlaceCharacter(actor, ar.UID)
		}
	case KindPickUp:
		if it := v.resolve.Item(actor, env.Item); it != nil {
			v.arena.GiveItem(it, actor)
		}
	case KindDropItem:
		if it := v.carriedItem(actor, env.Item); it != nil {
			_ = v.arena.PlaceItemOnFloor(it, actor.AreaUID)
		}
	case KindGiveItem:
		it := v.carriedItem(actor, env.Item)
		target := v.resolve.Character(actor, env.Target)
		if it != nil && target != nil {
			v.arena.GiveItem(it, target)
		}
	case KindSteal:
		if it := v.resolve.Item(actor, env.Item); it != nil {
			v.arena.GiveItem(it, actor)
		}
	case KindJoinParty:
		if target := v.resolve.Character(actor, env.Target); target != nil {
			world.JoinParties(actor, target)
		}
	case KindQuitParty:
		if target := v.resolve.Character(actor, env.Target); target != nil {
			world.LeaveParties(actor, target)
		}
	case KindAskAction:
		asked := v.resolve.Character(actor, env.Target)
		if asked == nil {
			return
		}
		nested := nestedEnvelope(actor, &env)
		v.applyPhantom(asked, nested)
	}
}
