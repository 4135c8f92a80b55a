package world

import "sort"

// Knowledge reasons, recorded on every entry so prompts can explain how the
// character learned of the entity.
const (
	ReasonPossession = "possession"  // carries the item
	ReasonParty      = "party"       // party member
	ReasonPresence   = "presence"    // is in or has visited the area
	ReasonCoPresent  = "co_present"  // shares an area with the character
	ReasonInRoom     = "in_room"     // item lies in the character's area
	ReasonTold       = "told"        // learned through conversation
)

// ItemSnapshot is a character's remembered view of an item.
type ItemSnapshot struct {
	Name        string
	Description string
	Damage      int
	Robustness  int
	AreaUID     string
	HolderUID   string
	Abilities   []Ability
}

// CharacterSnapshot is a character's remembered view of another character.
type CharacterSnapshot struct {
	Name        string
	Description string
	AreaUID     string
	Health      int
	Alive       bool
	State       string
	Inventory   []string
	Topics      []string
}

// AreaSnapshot is a character's remembered view of an area.
type AreaSnapshot struct {
	Name          string
	Description   string
	ItemUIDs      []string
	CharacterUIDs []string
}

// KnowledgeEntry is one remembered entity. Exactly one of the snapshot
// pointers is set, matching Kind. Outdated entries preserve the stale
// snapshot; re-observation overwrites them with fresh data.
type KnowledgeEntry struct {
	Kind     EntityKind
	UID      string
	Name     string
	Reason   string
	Outdated bool

	Item      *ItemSnapshot
	Character *CharacterSnapshot
	Area      *AreaSnapshot
}

func snapshotItem(it *Item) *ItemSnapshot {
	return &ItemSnapshot{
		Name:        it.Name,
		Description: it.Description,
		Damage:      it.Damage,
		Robustness:  it.Robustness,
		AreaUID:     it.AreaUID,
		HolderUID:   it.HolderUID,
		Abilities:   append([]Ability(nil), it.Abilities...),
	}
}

func snapshotCharacter(c *Character) *CharacterSnapshot {
	return &CharacterSnapshot{
		Name:        c.Name,
		Description: c.Description,
		AreaUID:     c.AreaUID,
		Health:      c.Health,
		Alive:       c.Alive,
		State:       c.State,
		Inventory:   append([]string(nil), c.Inventory...),
		Topics:      append([]string(nil), c.Topics...),
	}
}

func snapshotArea(ar *Area) *AreaSnapshot {
	return &AreaSnapshot{
		Name:          ar.Name,
		Description:   ar.Description,
		ItemUIDs:      append([]string(nil), ar.ItemUIDs...),
		CharacterUIDs: append([]string(nil), ar.CharacterUIDs...),
	}
}

func (c *Character) ensureKnowledgeMaps() {
	if c.Knowledge == nil {
		c.Knowledge = make(map[string]KnowledgeEntry)
	}
	if c.KnownItems == nil {
		c.KnownItems = make(map[string]bool)
	}
	if c.KnownAreas == nil {
		c.KnownAreas = make(map[string]bool)
	}
	if c.KnownPeople == nil {
		c.KnownPeople = make(map[string]bool)
	}
}

// RememberItem stores a fresh snapshot of the item under the given reason.
func (c *Character) RememberItem(it *Item, reason string) {
	c.ensureKnowledgeMaps()
	c.Knowledge[it.UID] = KnowledgeEntry{
		Kind:   KindItem,
		UID:    it.UID,
		Name:   it.Name,
		Reason: reason,
		Item:   snapshotItem(it),
	}
	c.KnownItems[it.UID] = true
	it.MarkKnownBy(c.UID)
}

// RememberCharacter stores a fresh snapshot of the other character.
func (c *Character) RememberCharacter(other *Character, reason string) {
	if other.UID == c.UID {
		return
	}
	c.ensureKnowledgeMaps()
	c.Knowledge[other.UID] = KnowledgeEntry{
		Kind:      KindCharacter,
		UID:       other.UID,
		Name:      other.Name,
		Reason:    reason,
		Character: snapshotCharacter(other),
	}
	c.KnownPeople[other.UID] = true
}

// RememberArea stores a fresh snapshot of the area.
func (c *Character) RememberArea(ar *Area, reason string) {
	c.ensureKnowledgeMaps()
	c.Knowledge[ar.UID] = KnowledgeEntry{
		Kind:   KindArea,
		UID:    ar.UID,
		Name:   ar.Name,
		Reason: reason,
		Area:   snapshotArea(ar),
	}
	c.KnownAreas[ar.UID] = true
	ar.MarkKnownBy(c.UID)
}

// AdoptEntry copies an entry told by another character, preserving its
// possibly stale snapshot and marking the reason as hearsay. An existing
// fresh entry for the same uid is never downgraded.
func (c *Character) AdoptEntry(e KnowledgeEntry) {
	c.ensureKnowledgeMaps()
	if cur, ok := c.Knowledge[e.UID]; ok && !cur.Outdated {
		return
	}
	e.Reason = ReasonTold
	c.Knowledge[e.UID] = e
	switch e.Kind {
	case KindItem:
		c.KnownItems[e.UID] = true
	case KindCharacter:
		c.KnownPeople[e.UID] = true
	case KindArea:
		c.KnownAreas[e.UID] = true
	}
}

// KnownEntries returns the character's knowledge sorted by entity name then
// uid, for stable prompt construction.
func (c *Character) KnownEntries() []KnowledgeEntry {
	out := make([]KnowledgeEntry, 0, len(c.Knowledge))
	for _, e := range c.Knowledge {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].UID < out[j].UID
	})
	return out
}

// ─── Visibility ──────────────────────────────────────────────────────────────

// CanSeeCharacter reports whether c currently observes other directly.
func (a *Arena) CanSeeCharacter(c, other *Character) bool {
	return c.Alive && other.AreaUID == c.AreaUID
}

// CanSeeItem reports whether c currently observes the item directly: it is
// in c's inventory, on c's area floor, or visibly held by someone co-present.
func (a *Arena) CanSeeItem(c *Character, it *Item) bool {
	if !c.Alive {
		return false
	}
	if it.HolderUID == c.UID {
		return true
	}
	if it.AreaUID == c.AreaUID && it.AreaUID != "" {
		return true
	}
	if holder := a.Character(it.HolderUID); holder != nil {
		return holder.AreaUID == c.AreaUID && it.Equipped
	}
	return false
}

// ─── Refresh ─────────────────────────────────────────────────────────────────

// RefreshKnownState re-snapshots everything c can currently observe and
// marks the rest of c's knowledge outdated. Called after each executed step
// so later narration and conversation reflect only what the character has
// actually seen.
func (a *Arena) RefreshKnownState(c *Character) {
	if !c.Alive {
		return
	}
	c.ensureKnowledgeMaps()

	fresh := make(map[string]bool)

	if ar := a.Area(c.AreaUID); ar != nil {
		c.RememberArea(ar, ReasonPresence)
		fresh[ar.UID] = true
	}
	for _, uid := range c.Inventory {
		if it := a.Item(uid); it != nil {
			c.RememberItem(it, ReasonPossession)
			fresh[uid] = true
		}
	}
	for _, it := range a.ItemsIn(c.AreaUID) {
		c.RememberItem(it, ReasonInRoom)
		fresh[it.UID] = true
	}
	for _, other := range a.CharactersIn(c.AreaUID) {
		if other.UID == c.UID {
			continue
		}
		reason := ReasonCoPresent
		if c.InPartyWith(other.UID) {
			reason = ReasonParty
		}
		c.RememberCharacter(other, reason)
		fresh[other.UID] = true
		for _, it := range other.EquippedItems(a) {
			c.RememberItem(it, ReasonInRoom)
			fresh[it.UID] = true
		}
	}
	// Party members stay fresh even across areas; travelling together keeps
	// everyone informed.
	for _, uid := range c.Party {
		if m := a.Character(uid); m != nil && m.Alive {
			c.RememberCharacter(m, ReasonParty)
			fresh[uid] = true
		}
	}

	for uid, e := range c.Knowledge {
		if fresh[uid] || e.Outdated {
			continue
		}
		e.Outdated = true
		c.Knowledge[uid] = e
	}
}

// ShareKnowledge copies every entry of src into dst as hearsay. Used when a
// character joins a party.
func ShareKnowledge(src, dst *Character) {
	for _, e := range src.KnownEntries() {
		dst.AdoptEntry(e)
	}
}
