package world

import (
	"fmt"
	"math"
	"slices"
)

// DefaultFriendship is assumed for any pair of characters with no recorded
// relationship.
const DefaultFriendship = 5

// baseUnarmedDamage is the weapon damage used when nothing is equipped in
// either hand.
const baseUnarmedDamage = 5

// Character is a player- or NPC-controlled actor.
type Character struct {
	UID         string
	Name        string
	Description string

	// AreaUID is the character's current location.
	AreaUID string

	// Health is 0..100; reaching 0 kills the character.
	Health int
	Alive  bool

	// Controllable marks the player character(s).
	Controllable bool

	// Hostile marks characters that attack on sight regardless of
	// friendship values (e.g., the undead).
	Hostile bool

	// State is a free mood/stance tag ("alert", "scared", "attack", ...).
	// The values attack, hostile, and enemy imply hostility.
	State string

	// Inventory is the ordered list of carried item uids.
	Inventory []string

	// Equipment maps occupied slots to item uids. Absent slots are free.
	Equipment map[Slot]string

	// WeaponUID caches the strongest currently equipped hand item. Empty
	// means unarmed. Maintained by the equip/unequip paths.
	WeaponUID string

	// Party lists allied character uids. The relation is symmetric and
	// never contains the character itself.
	Party []string

	// Friendships maps character uid to a 0..10 affinity. 0 is permanent
	// hostility and never rises; all other updates clamp to 1..10.
	// Unrecorded pairs read as [DefaultFriendship].
	Friendships map[string]int

	// Topics are conversation hooks the character volunteers when talked to.
	Topics []string

	Personality Personality
	Stats       Stats
	Abilities   []Ability

	// HasActed is set once the character consumed their step this round.
	HasActed bool

	// Knowledge holds the character's last-observed snapshot per entity uid.
	Knowledge map[string]KnowledgeEntry

	// KnownItems, KnownAreas, and KnownPeople index Knowledge by kind.
	KnownItems  map[string]bool
	KnownAreas  map[string]bool
	KnownPeople map[string]bool
}

// IsHostileToward reports whether c would attack other on sight: the hostile
// flag, a hostile state tag, or friendship <= 1 in either direction.
func (c *Character) IsHostileToward(other *Character) bool {
	if c.Hostile {
		return true
	}
	switch c.State {
	case "attack", "hostile", "enemy":
		return true
	}
	return c.FriendshipWith(other.UID) <= 1 || other.FriendshipWith(c.UID) <= 1
}

// ─── Friendship ──────────────────────────────────────────────────────────────

// FriendshipWith returns c's affinity toward the given uid, defaulting to
// [DefaultFriendship] for unrecorded pairs.
func (c *Character) FriendshipWith(uid string) int {
	if v, ok := c.Friendships[uid]; ok {
		return v
	}
	return DefaultFriendship
}

// SetFriendship records an affinity. A current value of 0 is immutable;
// other assignments clamp into 1..10.
func (c *Character) SetFriendship(uid string, v int) {
	if c.Friendships == nil {
		c.Friendships = make(map[string]int)
	}
	if cur, ok := c.Friendships[uid]; ok && cur == 0 {
		return
	}
	if v < 1 {
		v = 1
	}
	if v > 10 {
		v = 10
	}
	c.Friendships[uid] = v
}

// AdjustFriendship shifts the affinity by delta under [SetFriendship] rules.
func (c *Character) AdjustFriendship(uid string, delta int) {
	c.SetFriendship(uid, c.FriendshipWith(uid)+delta)
}

// DeclareHostility pins the affinity at 0, the immutable hostile value.
// Unlike [SetFriendship] it may lower a positive value all the way to 0.
func (c *Character) DeclareHostility(uid string) {
	if c.Friendships == nil {
		c.Friendships = make(map[string]int)
	}
	c.Friendships[uid] = 0
}

// ─── Party ───────────────────────────────────────────────────────────────────

// InPartyWith reports whether uid is one of c's party members.
func (c *Character) InPartyWith(uid string) bool {
	return slices.Contains(c.Party, uid)
}

// JoinParties links c and other symmetrically.
func JoinParties(c, other *Character) {
	if c.UID == other.UID {
		return
	}
	if !c.InPartyWith(other.UID) {
		c.Party = append(c.Party, other.UID)
	}
	if !other.InPartyWith(c.UID) {
		other.Party = append(other.Party, c.UID)
	}
}

// LeaveParties unlinks c and other symmetrically.
func LeaveParties(c, other *Character) {
	c.Party = removeUID(c.Party, other.UID)
	other.Party = removeUID(other.Party, c.UID)
}

// SeverPartyLinks removes c from every party relation. Called on death.
func (a *Arena) SeverPartyLinks(c *Character) {
	for _, uid := range slices.Clone(c.Party) {
		if other := a.Character(uid); other != nil {
			LeaveParties(c, other)
		}
	}
	c.Party = nil
}

// PartyIn returns the members of c's party that are currently in the given
// area and alive.
func (a *Arena) PartyIn(c *Character, areaUID string) []*Character {
	var out []*Character
	for _, uid := range c.Party {
		m := a.Character(uid)
		if m != nil && m.Alive && m.AreaUID == areaUID {
			out = append(out, m)
		}
	}
	return out
}

// ─── Equipment ───────────────────────────────────────────────────────────────

// Equip places an inventory item into the given slot, displacing any current
// occupant back to plain inventory. An empty slot picks one automatically:
// weapons prefer a free hand, everything else the extra slot.
func (c *Character) Equip(a *Arena, it *Item, slot Slot) error {
	if it.HolderUID != c.UID || !slices.Contains(c.Inventory, it.UID) {
		return fmt.Errorf("world: %s does not carry %s", c.Name, it.Name)
	}
	if slot == "" {
		slot = c.pickSlot(it)
	}
	if !slot.IsValid() {
		return fmt.Errorf("world: invalid equipment slot %q", slot)
	}
	if c.Equipment == nil {
		c.Equipment = make(map[Slot]string)
	}
	// Displace the current occupant, and clear the item's old slot if it
	// was already equipped elsewhere.
	if prevUID, ok := c.Equipment[slot]; ok && prevUID != it.UID {
		if prev := a.Item(prevUID); prev != nil {
			prev.Equipped = false
			prev.Slot = ""
		}
	}
	for s, uid := range c.Equipment {
		if uid == it.UID {
			delete(c.Equipment, s)
		}
	}
	c.Equipment[slot] = it.UID
	it.Equipped = true
	it.Slot = slot
	c.recomputeWeapon(a)
	return nil
}

// AutoEquip equips the item only when a consistent slot is free: a hand for
// weapons, the extra slot otherwise. Reports whether the item was equipped.
func (c *Character) AutoEquip(a *Arena, it *Item) bool {
	if it.HolderUID != c.UID {
		return false
	}
	if it.IsWeapon() {
		for _, s := range HandSlots {
			if _, taken := c.Equipment[s]; !taken {
				return c.Equip(a, it, s) == nil
			}
		}
		return false
	}
	if _, taken := c.Equipment[SlotExtra]; !taken {
		return c.Equip(a, it, SlotExtra) == nil
	}
	return false
}

// Unequip removes the item from its slot; it stays in inventory.
func (c *Character) Unequip(a *Arena, it *Item) error {
	if !it.Equipped || it.HolderUID != c.UID {
		return fmt.Errorf("world: %s is not equipped by %s", it.Name, c.Name)
	}
	for s, uid := range c.Equipment {
		if uid == it.UID {
			delete(c.Equipment, s)
		}
	}
	it.Equipped = false
	it.Slot = ""
	c.recomputeWeapon(a)
	return nil
}

// pickSlot chooses a default slot for an item: weapons take the first free
// hand (right preferred, falling back to right even when occupied), other
// items the extra slot.
func (c *Character) pickSlot(it *Item) Slot {
	if it.IsWeapon() {
		for _, s := range HandSlots {
			if _, taken := c.Equipment[s]; !taken {
				return s
			}
		}
		return SlotRightHand
	}
	return SlotExtra
}

// recomputeWeapon refreshes WeaponUID to the strongest equipped hand item.
func (c *Character) recomputeWeapon(a *Arena) {
	best := ""
	bestDmg := -1
	for _, s := range HandSlots {
		uid, ok := c.Equipment[s]
		if !ok {
			continue
		}
		it := a.Item(uid)
		if it != nil && it.Damage > bestDmg {
			best = uid
			bestDmg = it.Damage
		}
	}
	c.WeaponUID = best
}

// EquippedItems returns the equipped items in slot display order.
func (c *Character) EquippedItems(a *Arena) map[Slot]*Item {
	out := make(map[Slot]*Item, len(c.Equipment))
	for s, uid := range c.Equipment {
		if it := a.Item(uid); it != nil {
			out[s] = it
		}
	}
	return out
}

// ─── Combat ──────────────────────────────────────────────────────────────────

// AttackDamage computes the damage c deals with the current weapon:
// max(1, round(weapon_damage * (1 + (strength+skill)/20))), with unarmed
// weapon damage of 5.
func (c *Character) AttackDamage(a *Arena) int {
	base := baseUnarmedDamage
	if w := a.Item(c.WeaponUID); w != nil && w.Damage > 0 {
		base = w.Damage
	}
	dmg := math.Round(float64(base) * (1 + float64(c.Stats.Strength+c.Stats.Skill)/20))
	if dmg < 1 {
		dmg = 1
	}
	return int(dmg)
}

// ApplyDamage subtracts dmg from health; at 0 the character dies, party
// links are severed, and a death notice is appended to the area description.
// Reports whether the character died from this hit.
func (a *Arena) ApplyDamage(victim *Character, dmg int) bool {
	if !victim.Alive {
		return false
	}
	victim.Health = ClampHealth(victim.Health - dmg)
	if victim.Health > 0 {
		return false
	}
	victim.Alive = false
	a.SeverPartyLinks(victim)
	if area := a.Area(victim.AreaUID); area != nil {
		area.AppendToDescription(fmt.Sprintf("The body of %s lies here.", victim.Name))
	}
	return true
}

// WitnessViolence lowers the witness's friendship toward the attacker in
// proportion to the harm done and how much the witness cares for the victim.
//
//	affinity = clamp01(friendship(victim) / 10)
//	penalty  = round((1 + round(4*severity)) * affinity) + round(3*affinity if killed)
//	penalty -= 2 when the witness dislikes the victim (friendship < 2)
//
// severity is the fraction of full health the hit removed (0..1).
func WitnessViolence(witness, attacker, victim *Character, severity float64, killed bool) {
	if witness.UID == attacker.UID || witness.UID == victim.UID {
		return
	}
	affinity := float64(witness.FriendshipWith(victim.UID)) / 10
	if affinity < 0 {
		affinity = 0
	}
	if affinity > 1 {
		affinity = 1
	}
	base := 1 + int(math.Round(4*severity))
	penalty := int(math.Round(float64(base) * affinity))
	if killed {
		penalty += int(math.Round(3 * affinity))
	}
	if witness.FriendshipWith(victim.UID) < 2 {
		penalty -= 2
	}
	if penalty <= 0 {
		return
	}
	witness.AdjustFriendship(attacker.UID, -penalty)
}
