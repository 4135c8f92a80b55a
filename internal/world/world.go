// Package world models the simulated game world: areas connected by linking
// points, characters with stats and relationships, items with ownership, and
// the per-character knowledge layer.
//
// All entities live in an [Arena] keyed by stable uid. Cross-references
// between entities (a character's current area, an item's holder, party
// membership) are stored as uid strings and resolved O(1) through the arena,
// which keeps the object graph acyclic and makes state snapshots trivial.
//
// The arena is not safe for concurrent use; callers serialise access at the
// session level.
package world

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
)

// ErrNotFound is returned when a uid does not resolve to an entity.
var ErrNotFound = errors.New("world: entity not found")

// ErrDuplicateID is returned when adding an entity whose uid already exists.
var ErrDuplicateID = errors.New("world: entity with that uid already exists")

// World carries the scenario-level framing of the simulation.
type World struct {
	// Title names the scenario (e.g., "Drugstore in Macon").
	Title string

	// RelationToProtagonist is free text describing how the setting relates
	// to the player character. Fed verbatim into narration context.
	RelationToProtagonist string

	// ChaosState rates how unstable the world currently is, 0..10.
	ChaosState int

	// CurrentDilemma and CurrentGoal steer the storyteller and the
	// periodic suggestion generator.
	CurrentDilemma string
	CurrentGoal    string

	// Map is an optional grid of area uids; empty cells are "".
	Map [][]string
}

// Arena owns every entity in a running game and resolves uid references.
type Arena struct {
	// World holds scenario framing; mutated only by executors (chaos state).
	World World

	characters map[string]*Character
	items      map[string]*Item
	areas      map[string]*Area
	links      []*Link
}

// NewArena returns an empty, ready-to-populate Arena.
func NewArena() *Arena {
	return &Arena{
		characters: make(map[string]*Character),
		items:      make(map[string]*Item),
		areas:      make(map[string]*Area),
	}
}

// AddCharacter registers c. Returns [ErrDuplicateID] if the uid is taken.
func (a *Arena) AddCharacter(c *Character) error {
	if c.UID == "" {
		return fmt.Errorf("world: character %q has empty uid", c.Name)
	}
	if _, ok := a.characters[c.UID]; ok {
		return ErrDuplicateID
	}
	a.characters[c.UID] = c
	if area := a.areas[c.AreaUID]; area != nil && !slices.Contains(area.CharacterUIDs, c.UID) {
		area.CharacterUIDs = append(area.CharacterUIDs, c.UID)
	}
	return nil
}

// AddItem registers it. Returns [ErrDuplicateID] if the uid is taken.
func (a *Arena) AddItem(it *Item) error {
	if it.UID == "" {
		return fmt.Errorf("world: item %q has empty uid", it.Name)
	}
	if _, ok := a.items[it.UID]; ok {
		return ErrDuplicateID
	}
	a.items[it.UID] = it
	return nil
}

// AddArea registers ar. Returns [ErrDuplicateID] if the uid is taken.
func (a *Arena) AddArea(ar *Area) error {
	if ar.UID == "" {
		return fmt.Errorf("world: area %q has empty uid", ar.Name)
	}
	if _, ok := a.areas[ar.UID]; ok {
		return ErrDuplicateID
	}
	a.areas[ar.UID] = ar
	return nil
}

// AddLink connects two registered areas with a new linking point.
func (a *Arena) AddLink(l *Link) error {
	if a.areas[l.AreaA] == nil || a.areas[l.AreaB] == nil {
		return fmt.Errorf("world: link %q..%q references unknown area", l.AreaA, l.AreaB)
	}
	a.links = append(a.links, l)
	return nil
}

// Character resolves a character uid; nil when absent.
func (a *Arena) Character(uid string) *Character { return a.characters[uid] }

// Item resolves an item uid; nil when absent.
func (a *Arena) Item(uid string) *Item { return a.items[uid] }

// Area resolves an area uid; nil when absent.
func (a *Arena) Area(uid string) *Area { return a.areas[uid] }

// Characters returns all characters sorted by name (ties broken by uid).
// The stable order matters for round scheduling and reproducible output.
func (a *Arena) Characters() []*Character {
	out := make([]*Character, 0, len(a.characters))
	for _, c := range a.characters {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].UID < out[j].UID
	})
	return out
}

// Items returns all items sorted by name then uid.
func (a *Arena) Items() []*Item {
	out := make([]*Item, 0, len(a.items))
	for _, it := range a.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].UID < out[j].UID
	})
	return out
}

// Areas returns all areas sorted by name then uid.
func (a *Arena) Areas() []*Area {
	out := make([]*Area, 0, len(a.areas))
	for _, ar := range a.areas {
		out = append(out, ar)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].UID < out[j].UID
	})
	return out
}

// Links returns every linking point in the world.
func (a *Arena) Links() []*Link { return a.links }

// LinksOf returns the linking points touching the given area.
func (a *Arena) LinksOf(areaUID string) []*Link {
	var out []*Link
	for _, l := range a.links {
		if l.AreaA == areaUID || l.AreaB == areaUID {
			out = append(out, l)
		}
	}
	return out
}

// LinkBetween returns the linking point connecting x and y, or nil.
func (a *Arena) LinkBetween(x, y string) *Link {
	for _, l := range a.links {
		if (l.AreaA == x && l.AreaB == y) || (l.AreaA == y && l.AreaB == x) {
			return l
		}
	}
	return nil
}

// LinkedAreas returns the neighbours of the area, deduplicated, sorted by name.
func (a *Arena) LinkedAreas(areaUID string) []*Area {
	seen := make(map[string]bool)
	var out []*Area
	for _, l := range a.LinksOf(areaUID) {
		other := l.Other(areaUID)
		if other == "" || seen[other] {
			continue
		}
		seen[other] = true
		if ar := a.areas[other]; ar != nil {
			out = append(out, ar)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// PlaceCharacter moves c into the area with the given uid, updating both the
// old and new resident lists.
func (a *Arena) PlaceCharacter(c *Character, areaUID string) error {
	dest := a.areas[areaUID]
	if dest == nil {
		return fmt.Errorf("world: place %q: %w", areaUID, ErrNotFound)
	}
	if old := a.areas[c.AreaUID]; old != nil {
		old.CharacterUIDs = removeUID(old.CharacterUIDs, c.UID)
	}
	c.AreaUID = areaUID
	if !slices.Contains(dest.CharacterUIDs, c.UID) {
		dest.CharacterUIDs = append(dest.CharacterUIDs, c.UID)
	}
	return nil
}

// PlaceItemOnFloor detaches it from any holder and drops it in the area.
func (a *Arena) PlaceItemOnFloor(it *Item, areaUID string) error {
	dest := a.areas[areaUID]
	if dest == nil {
		return fmt.Errorf("world: drop in %q: %w", areaUID, ErrNotFound)
	}
	a.detachItem(it)
	it.AreaUID = areaUID
	if !slices.Contains(dest.ItemUIDs, it.UID) {
		dest.ItemUIDs = append(dest.ItemUIDs, it.UID)
	}
	return nil
}

// GiveItem detaches it from floor or previous holder and puts it in c's
// inventory, unequipped.
func (a *Arena) GiveItem(it *Item, c *Character) {
	a.detachItem(it)
	it.HolderUID = c.UID
	if !slices.Contains(c.Inventory, it.UID) {
		c.Inventory = append(c.Inventory, it.UID)
	}
}

// DestroyItem removes it from the world entirely (e.g., a tool breaking).
// Knowledge entries referencing the item are kept as historical reads.
func (a *Arena) DestroyItem(it *Item) {
	a.detachItem(it)
	delete(a.items, it.UID)
}

// detachItem removes it from its current floor or holder, clearing the
// equipped state on the way out.
func (a *Arena) detachItem(it *Item) {
	if holder := a.characters[it.HolderUID]; holder != nil {
		holder.Inventory = removeUID(holder.Inventory, it.UID)
		for slot, uid := range holder.Equipment {
			if uid == it.UID {
				delete(holder.Equipment, slot)
			}
		}
		holder.recomputeWeapon(a)
	}
	if area := a.areas[it.AreaUID]; area != nil {
		area.ItemUIDs = removeUID(area.ItemUIDs, it.UID)
	}
	it.HolderUID = ""
	it.AreaUID = ""
	it.Equipped = false
	it.Slot = ""
}

// CharactersIn returns the residents of an area in list order.
func (a *Arena) CharactersIn(areaUID string) []*Character {
	area := a.areas[areaUID]
	if area == nil {
		return nil
	}
	out := make([]*Character, 0, len(area.CharacterUIDs))
	for _, uid := range area.CharacterUIDs {
		if c := a.characters[uid]; c != nil {
			out = append(out, c)
		}
	}
	return out
}

// ItemsIn returns the floor items of an area in list order.
func (a *Arena) ItemsIn(areaUID string) []*Item {
	area := a.areas[areaUID]
	if area == nil {
		return nil
	}
	out := make([]*Item, 0, len(area.ItemUIDs))
	for _, uid := range area.ItemUIDs {
		if it := a.items[uid]; it != nil {
			out = append(out, it)
		}
	}
	return out
}

// FindCharacterByName returns the first character whose name matches
// case-insensitively, or nil.
func (a *Arena) FindCharacterByName(name string) *Character {
	for _, c := range a.Characters() {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}

// FindItemByName returns the first item whose name matches
// case-insensitively, or nil.
func (a *Arena) FindItemByName(name string) *Item {
	for _, it := range a.Items() {
		if strings.EqualFold(it.Name, name) {
			return it
		}
	}
	return nil
}

// FindAreaByName returns the first area whose name matches
// case-insensitively, or nil.
func (a *Arena) FindAreaByName(name string) *Area {
	for _, ar := range a.Areas() {
		if strings.EqualFold(ar.Name, name) {
			return ar
		}
	}
	return nil
}

// Protagonist returns the first controllable character in stable order, or nil.
func (a *Arena) Protagonist() *Character {
	for _, c := range a.Characters() {
		if c.Controllable {
			return c
		}
	}
	return nil
}

func removeUID(list []string, uid string) []string {
	for i, v := range list {
		if v == uid {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}
