package action

import (
	"fmt"

	"github.com/MrWong99/fableturn/internal/world"
)

// medicateHeal is the health restored by one use of a Medicate item.
const medicateHeal = 30

// Friendship thresholds for accepting a gift.
const (
	giftAcceptFriendship = 3
	giftDesperateHealth  = 40
)

func (e *Executor) pickUp(actor *world.Character, env Envelope) (string, error) {
	it := e.resolve.Item(actor, env.Item)
	if it == nil {
		return "", fmt.Errorf("action: pick_up item %q vanished", env.Item)
	}
	e.arena.GiveItem(it, actor)
	actor.RememberItem(it, world.ReasonPossession)
	return fmt.Sprintf("%s picks up the %s.", actor.Name, it.Name), nil
}

func (e *Executor) dropItem(actor *world.Character, env Envelope) (string, error) {
	it := e.resolve.Item(actor, env.Item)
	if it == nil {
		return "", fmt.Errorf("action: drop item %q vanished", env.Item)
	}
	if err := e.arena.PlaceItemOnFloor(it, actor.AreaUID); err != nil {
		return "", fmt.Errorf("action: drop: %w", err)
	}
	return fmt.Sprintf("%s drops the %s.", actor.Name, it.Name), nil
}

// giveItem hands an item over, subject to the recipient's goodwill: friends
// accept gladly, the desperate accept reluctantly, everyone else refuses.
func (e *Executor) giveItem(actor *world.Character, env Envelope) (string, error) {
	it := e.resolve.Item(actor, env.Item)
	recipient := e.resolve.Character(actor, env.Target)
	if it == nil || recipient == nil {
		return "", fmt.Errorf("action: give %q to %q: entity vanished", env.Item, env.Target)
	}

	friendship := recipient.FriendshipWith(actor.UID)
	switch {
	case friendship >= giftAcceptFriendship:
		e.arena.GiveItem(it, recipient)
		recipient.AdjustFriendship(actor.UID, 1)
		recipient.RememberItem(it, world.ReasonPossession)
		equipped := recipient.AutoEquip(e.arena, it)
		line := fmt.Sprintf("%s gladly accepts the %s from %s.", recipient.Name, it.Name, actor.Name)
		if equipped {
			line += fmt.Sprintf(" %s equips it right away.", recipient.Name)
		}
		return line, nil

	case recipient.Health <= giftDesperateHealth:
		e.arena.GiveItem(it, recipient)
		recipient.RememberItem(it, world.ReasonPossession)
		recipient.AutoEquip(e.arena, it)
		return fmt.Sprintf("%s eyes %s warily but is in no position to refuse the %s.",
			recipient.Name, actor.Name, it.Name), nil

	default:
		return fmt.Sprintf("%s refuses the %s from %s.", recipient.Name, it.Name, actor.Name), nil
	}
}

// steal transfers the item and costs a point of the victim's goodwill,
// down to and including the permanent floor of 0.
func (e *Executor) steal(actor *world.Character, env Envelope) (string, error) {
	it := e.resolve.Item(actor, env.Item)
	victim := e.resolve.Character(actor, env.Target)
	if it == nil || victim == nil {
		return "", fmt.Errorf("action: steal %q from %q: entity vanished", env.Item, env.Target)
	}
	e.arena.GiveItem(it, actor)
	actor.RememberItem(it, world.ReasonPossession)
	if victim.Alive {
		if v := victim.FriendshipWith(actor.UID); v > 0 {
			if v-1 <= 0 {
				victim.DeclareHostility(actor.UID)
			} else {
				victim.SetFriendship(actor.UID, v-1)
			}
		}
	}
	actor.AutoEquip(e.arena, it)
	if !victim.Alive {
		return fmt.Sprintf("%s takes the %s from %s's body.", actor.Name, it.Name, victim.Name), nil
	}
	return fmt.Sprintf("%s steals the %s from %s.", actor.Name, it.Name, victim.Name), nil
}

// useItem first offers the item to the events in the area (a crowbar against
// a barricade); failing that, Medicate items heal a co-present character,
// and anything else is narrated as a plain use.
func (e *Executor) useItem(actor *world.Character, env Envelope) (string, error) {
	it := e.resolve.Item(actor, env.Item)
	if it == nil {
		return "", fmt.Errorf("action: use item %q vanished", env.Item)
	}
	if note, used := e.events.HandleItemUse(actor, it); used {
		return note, nil
	}
	if it.HasAbility("Medicate") {
		target := actor
		if !IsSentinel(env.Target) {
			if t := e.resolve.Character(actor, env.Target); t != nil {
				target = t
			}
		}
		if target.Alive {
			target.Health = world.ClampHealth(target.Health + medicateHeal)
			if target.UID == actor.UID {
				return fmt.Sprintf("%s uses the %s and feels better (health %d).",
					actor.Name, it.Name, target.Health), nil
			}
			return fmt.Sprintf("%s treats %s with the %s (health %d).",
				actor.Name, target.Name, it.Name, target.Health), nil
		}
	}
	return fmt.Sprintf("%s uses the %s, to little visible effect.", actor.Name, it.Name), nil
}

func (e *Executor) equipItem(actor *world.Character, env Envelope) (string, error) {
	it := e.resolve.Item(actor, env.Item)
	if it == nil {
		return "", fmt.Errorf("action: equip item %q vanished", env.Item)
	}
	if err := actor.Equip(e.arena, it, ""); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s equips the %s (%s).", actor.Name, it.Name, it.Slot), nil
}

func (e *Executor) unequipItem(actor *world.Character, env Envelope) (string, error) {
	it := e.resolve.Item(actor, env.Item)
	if it == nil {
		return "", fmt.Errorf("action: unequip item %q vanished", env.Item)
	}
	if err := actor.Unequip(e.arena, it); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s puts the %s away.", actor.Name, it.Name), nil
}
