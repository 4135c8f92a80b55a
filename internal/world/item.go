package world

// Item is a carryable or floor-bound object. At any moment exactly one of
// HolderUID and AreaUID is set (or neither, for an item removed from play).
type Item struct {
	UID         string
	Name        string
	Description string

	// Damage dealt when used as a weapon; 0 for non-weapons.
	Damage int

	// Robustness is the item's remaining durability, 0..100. Tools with
	// robustness <= 20 break when they successfully resolve a blockade.
	Robustness int

	// AreaUID is set while the item lies on an area floor.
	AreaUID string

	// HolderUID is set while a character carries the item.
	HolderUID string

	// Equipped is true while the item occupies one of the holder's slots.
	Equipped bool

	// Slot is the occupied slot when Equipped.
	Slot Slot

	Abilities []Ability

	// KnownBy holds the uids of characters aware of this item.
	KnownBy map[string]bool
}

// HasAbility reports whether the item carries the named ability.
func (it *Item) HasAbility(name string) bool {
	for _, ab := range it.Abilities {
		if ab.Name == name {
			return true
		}
	}
	return false
}

// MarkKnownBy records that the character with the given uid knows this item.
func (it *Item) MarkKnownBy(uid string) {
	if it.KnownBy == nil {
		it.KnownBy = make(map[string]bool)
	}
	it.KnownBy[uid] = true
}

// IsWeapon reports whether the item deals damage.
func (it *Item) IsWeapon() bool { return it.Damage > 0 }
