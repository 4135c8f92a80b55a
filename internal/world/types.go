package world

// EntityKind discriminates the three entity families tracked by the
// knowledge layer.
type EntityKind string

const (
	KindCharacter EntityKind = "character"
	KindItem      EntityKind = "item"
	KindArea      EntityKind = "area"
)

// IsValid reports whether k is a recognised entity kind.
func (k EntityKind) IsValid() bool {
	switch k {
	case KindCharacter, KindItem, KindArea:
		return true
	}
	return false
}

// Slot identifies an equipment position on a character.
type Slot string

const (
	SlotHead      Slot = "head"
	SlotTorso     Slot = "torso"
	SlotLegs      Slot = "legs"
	SlotLeftHand  Slot = "left_hand"
	SlotRightHand Slot = "right_hand"
	SlotExtra     Slot = "extra"
)

// AllSlots lists every equipment slot in display order.
var AllSlots = []Slot{SlotHead, SlotTorso, SlotLegs, SlotLeftHand, SlotRightHand, SlotExtra}

// HandSlots lists the two weapon-bearing slots, preferred order first.
var HandSlots = []Slot{SlotRightHand, SlotLeftHand}

// IsValid reports whether s is a recognised slot.
func (s Slot) IsValid() bool {
	switch s {
	case SlotHead, SlotTorso, SlotLegs, SlotLeftHand, SlotRightHand, SlotExtra:
		return true
	}
	return false
}

// Ability is a named trait carried by a character or item. Abilities gate
// special behaviour ("Medicate" heals, "BreachBarricade" resolves blockades);
// unrecognised names are narrative flavour only.
type Ability struct {
	Name        string
	Description string
}

// Stats are the combat-relevant attributes, each 0..10.
type Stats struct {
	Strength     int
	Intelligence int
	Skill        int
	Speed        int
	Endurance    int
}

// Personality holds the OCEAN trait values, each 0..10. They feed NPC
// behaviour prompts; the engine itself only stores and snapshots them.
type Personality struct {
	Openness          int
	Conscientiousness int
	Extraversion      int
	Agreeableness     int
	Neuroticism       int
}

// ClampStat forces v into the 0..10 stat range.
func ClampStat(v int) int {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}

// ClampHealth forces v into the 0..100 health range.
func ClampHealth(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
