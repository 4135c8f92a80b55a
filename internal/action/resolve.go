package action

import (
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/MrWong99/fableturn/internal/world"
)

// jaroWinklerFloor is the minimum similarity for a fuzzy name match. Below
// it a token stays unresolved rather than guessing.
const jaroWinklerFloor = 0.9

// phoneticFloor is the lower similarity bound applied when the token and
// the name share a Double Metaphone code. Sound-alike spellings ("Sindy"
// for "Cindy") clear this bar without reaching the plain fuzzy floor.
const phoneticFloor = 0.7

// sentinels are parser tokens meaning "no value".
var sentinels = map[string]bool{
	"": true, "0": true, "none": true, "null": true, "nil": true,
	"n/a": true, "na": true, "nothing": true,
}

// IsSentinel reports whether the token carries no value.
func IsSentinel(token string) bool {
	return sentinels[strings.ToLower(strings.TrimSpace(token))]
}

// Resolver binds textual tokens (uid or name) to live entities. Lookup
// order favours what the actor can plausibly mean: current area, then
// party, then inventory, then the whole world. Uid-prefixed tokens
// (char_, item_, area_) resolve directly.
type Resolver struct {
	arena *world.Arena
}

// NewResolver returns a Resolver over the arena.
func NewResolver(a *world.Arena) *Resolver {
	return &Resolver{arena: a}
}

// Character resolves a token to a character, or nil.
func (r *Resolver) Character(actor *world.Character, token string) *world.Character {
	token = strings.TrimSpace(token)
	if IsSentinel(token) {
		return nil
	}
	if uid, ok := uidToken(token, "char_"); ok {
		return r.arena.Character(uid)
	}

	var pool []*world.Character
	if actor != nil {
		pool = append(pool, r.arena.CharactersIn(actor.AreaUID)...)
		for _, uid := range actor.Party {
			if m := r.arena.Character(uid); m != nil {
				pool = append(pool, m)
			}
		}
	}
	pool = append(pool, r.arena.Characters()...)

	if c := matchCharacter(pool, token, exactName); c != nil {
		return c
	}
	if c := matchCharacter(pool, token, fuzzyName); c != nil {
		return c
	}
	return matchCharacter(pool, token, phoneticName)
}

// Item resolves a token to an item, or nil.
func (r *Resolver) Item(actor *world.Character, token string) *world.Item {
	token = strings.TrimSpace(token)
	if IsSentinel(token) {
		return nil
	}
	if uid, ok := uidToken(token, "item_"); ok {
		return r.arena.Item(uid)
	}

	var pool []*world.Item
	if actor != nil {
		pool = append(pool, r.arena.ItemsIn(actor.AreaUID)...)
		for _, uid := range actor.Inventory {
			if it := r.arena.Item(uid); it != nil {
				pool = append(pool, it)
			}
		}
	}
	pool = append(pool, r.arena.Items()...)

	if it := matchItem(pool, token, exactName); it != nil {
		return it
	}
	if it := matchItem(pool, token, fuzzyName); it != nil {
		return it
	}
	return matchItem(pool, token, phoneticName)
}

// Area resolves a token to an area, or nil.
func (r *Resolver) Area(token string) *world.Area {
	token = strings.TrimSpace(token)
	if IsSentinel(token) {
		return nil
	}
	if uid, ok := uidToken(token, "area_"); ok {
		return r.arena.Area(uid)
	}
	for _, ar := range r.arena.Areas() {
		if exactName(ar.Name, token) {
			return ar
		}
	}
	for _, ar := range r.arena.Areas() {
		if fuzzyName(ar.Name, token) {
			return ar
		}
	}
	for _, ar := range r.arena.Areas() {
		if phoneticName(ar.Name, token) {
			return ar
		}
	}
	return nil
}

// uidToken reports whether the token follows the uid convention for the
// given prefix, returning it lowercased for map lookup.
func uidToken(token, prefix string) (string, bool) {
	lower := strings.ToLower(token)
	if strings.HasPrefix(lower, prefix) {
		return lower, true
	}
	return "", false
}

func exactName(name, token string) bool {
	return strings.EqualFold(name, token)
}

func fuzzyName(name, token string) bool {
	return matchr.JaroWinkler(strings.ToLower(name), strings.ToLower(token), true) >= jaroWinklerFloor
}

// phoneticName matches sound-alike tokens. Any shared Double Metaphone
// code between the token's words and the name's words makes the pair a
// candidate, which then only needs to clear the lower phonetic floor.
func phoneticName(name, token string) bool {
	nameCodes := metaphoneCodes(strings.ToLower(name))
	for code := range metaphoneCodes(strings.ToLower(token)) {
		if nameCodes[code] {
			return matchr.JaroWinkler(strings.ToLower(name), strings.ToLower(token), true) >= phoneticFloor
		}
	}
	return false
}

// metaphoneCodes returns the union of Double Metaphone codes over the
// words of s.
func metaphoneCodes(s string) map[string]bool {
	codes := make(map[string]bool, 4)
	for _, w := range strings.Fields(s) {
		primary, secondary := matchr.DoubleMetaphone(w)
		if primary != "" {
			codes[primary] = true
		}
		if secondary != "" {
			codes[secondary] = true
		}
	}
	return codes
}

func matchCharacter(pool []*world.Character, token string, match func(name, token string) bool) *world.Character {
	for _, c := range pool {
		if match(c.Name, token) {
			return c
		}
	}
	return nil
}

func matchItem(pool []*world.Item, token string, match func(name, token string) bool) *world.Item {
	for _, it := range pool {
		if match(it.Name, token) {
			return it
		}
	}
	return nil
}
