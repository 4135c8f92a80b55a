package action

import (
	"fmt"
	"strings"

	"github.com/MrWong99/fableturn/internal/world"
)

// search covers three modes: the current area (full reveal), an adjacent
// area (a peek recorded as hearsay), and a person (inventory reveal at the
// cost of a point of goodwill).
func (e *Executor) search(actor *world.Character, env Envelope) (string, error) {
	if !IsSentinel(env.Target) {
		return e.searchPerson(actor, env)
	}
	if !IsSentinel(env.Location) {
		if ar := e.resolve.Area(env.Location); ar != nil && ar.UID != actor.AreaUID {
			return e.peekArea(actor, ar)
		}
	}
	return e.searchCurrentArea(actor)
}

func (e *Executor) searchCurrentArea(actor *world.Character) (string, error) {
	ar := e.arena.Area(actor.AreaUID)
	if ar == nil {
		return "", fmt.Errorf("action: actor %s has no area", actor.Name)
	}
	actor.RememberArea(ar, world.ReasonPresence)

	var itemLines []string
	for _, it := range e.arena.ItemsIn(ar.UID) {
		actor.RememberItem(it, world.ReasonInRoom)
		desc := fmt.Sprintf("%s (robustness %d", it.Name, it.Robustness)
		if it.IsWeapon() {
			desc += fmt.Sprintf(", damage %d", it.Damage)
		}
		itemLines = append(itemLines, desc+")")
	}
	var people []string
	for _, c := range e.arena.CharactersIn(ar.UID) {
		if c.UID == actor.UID {
			continue
		}
		actor.RememberCharacter(c, world.ReasonCoPresent)
		name := c.Name
		if !c.Alive {
			name += " (dead)"
		}
		people = append(people, name)
	}

	line := fmt.Sprintf("%s searches %s.", actor.Name, ar.Name)
	if len(itemLines) > 0 {
		line += " Found: " + strings.Join(itemLines, ", ") + "."
	} else {
		line += " Nothing useful turns up."
	}
	if len(people) > 0 {
		line += " Also here: " + strings.Join(people, ", ") + "."
	}
	return line, nil
}

// peekArea records the adjacent area and its occupants as outdated hearsay;
// a glance through a doorway is not the same as being there.
func (e *Executor) peekArea(actor *world.Character, ar *world.Area) (string, error) {
	actor.RememberArea(ar, world.ReasonPresence)
	if entry, ok := actor.Knowledge[ar.UID]; ok {
		entry.Outdated = true
		actor.Knowledge[ar.UID] = entry
	}
	var people []string
	for _, c := range e.arena.CharactersIn(ar.UID) {
		actor.RememberCharacter(c, world.ReasonCoPresent)
		if entry, ok := actor.Knowledge[c.UID]; ok {
			entry.Outdated = true
			actor.Knowledge[c.UID] = entry
		}
		people = append(people, c.Name)
	}
	line := fmt.Sprintf("%s peers into %s.", actor.Name, ar.Name)
	if len(people) > 0 {
		line += " Glimpsed: " + strings.Join(people, ", ") + "."
	}
	return line, nil
}

func (e *Executor) searchPerson(actor *world.Character, env Envelope) (string, error) {
	target := e.resolve.Character(actor, env.Target)
	if target == nil {
		return "", fmt.Errorf("action: search target %q vanished", env.Target)
	}
	actor.RememberCharacter(target, world.ReasonCoPresent)

	var carried []string
	for _, uid := range target.Inventory {
		it := e.arena.Item(uid)
		if it == nil {
			continue
		}
		actor.RememberItem(it, world.ReasonInRoom)
		name := it.Name
		if it.Equipped {
			name += fmt.Sprintf(" (equipped, %s)", it.Slot)
		}
		carried = append(carried, name)
	}
	if target.Alive {
		target.AdjustFriendship(actor.UID, -1)
	}

	line := fmt.Sprintf("%s searches %s (health %d).", actor.Name, target.Name, target.Health)
	if len(carried) > 0 {
		line += " Carrying: " + strings.Join(carried, ", ") + "."
	} else {
		line += " They carry nothing."
	}
	return line, nil
}

// examine describes one known or visible entity and refreshes the actor's
// snapshot of it.
func (e *Executor) examine(actor *world.Character, env Envelope) (string, error) {
	if it := e.resolve.Item(actor, env.Item); it != nil {
		actor.RememberItem(it, world.ReasonInRoom)
		desc := it.Description
		if desc == "" {
			desc = "An unremarkable " + it.Name + "."
		}
		if it.IsWeapon() {
			desc += fmt.Sprintf(" It could deal %d damage.", it.Damage)
		}
		return desc, nil
	}
	if c := e.resolve.Character(actor, env.Target); c != nil {
		actor.RememberCharacter(c, world.ReasonCoPresent)
		desc := c.Description
		if desc == "" {
			desc = c.Name + " gives little away."
		}
		if !c.Alive {
			desc += " They are dead."
		}
		return desc, nil
	}
	if ar := e.resolve.Area(env.Location); ar != nil {
		actor.RememberArea(ar, world.ReasonPresence)
		if ar.Description != "" {
			return ar.Description, nil
		}
		return "There is little to say about " + ar.Name + ".", nil
	}
	return "", fmt.Errorf("action: examine subject did not resolve")
}
