package world

// Area is one navigable location. Residents and floor items are stored as
// uid lists; the invariant that every resident's AreaUID points back here is
// maintained by [Arena.PlaceCharacter].
type Area struct {
	UID         string
	Name        string
	Description string

	// Exit marks areas that end the game when the protagonist reaches them.
	Exit bool

	// ItemUIDs are the items lying on the floor ("key items").
	ItemUIDs []string

	// CharacterUIDs are the current residents, dead or alive.
	CharacterUIDs []string

	// KnownBy holds the uids of characters aware of this area.
	KnownBy map[string]bool
}

// MarkKnownBy records that the character with the given uid knows this area.
func (ar *Area) MarkKnownBy(uid string) {
	if ar.KnownBy == nil {
		ar.KnownBy = make(map[string]bool)
	}
	ar.KnownBy[uid] = true
}

// AppendToDescription tacks a sentence onto the area description. Used for
// lasting scene changes such as a death notice.
func (ar *Area) AppendToDescription(s string) {
	if s == "" {
		return
	}
	if ar.Description != "" {
		ar.Description += " "
	}
	ar.Description += s
}

// Link is a bidirectional connector between two areas. Both endpoints
// reference the same Link value.
type Link struct {
	Description string
	AreaA       string
	AreaB       string

	// Blocked mirrors an active blockade event gating this link.
	Blocked bool
}

// Other returns the uid of the far endpoint, or "" when uid is not an endpoint.
func (l *Link) Other(uid string) string {
	switch uid {
	case l.AreaA:
		return l.AreaB
	case l.AreaB:
		return l.AreaA
	}
	return ""
}

// Connects reports whether the link joins the two given areas in either order.
func (l *Link) Connects(x, y string) bool {
	return (l.AreaA == x && l.AreaB == y) || (l.AreaA == y && l.AreaB == x)
}
