// Package snapshot serialises the whole game state into a single document
// for the undo stack and save files. Equality between snapshots is
// structural: two documents are the same iff their canonical JSON encodings
// match.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/MrWong99/fableturn/internal/world"
)

// Document is the persisted shape of a game state.
type Document struct {
	World      world.World        `json:"world"`
	Characters []*world.Character `json:"characters"`
	Items      []*world.Item      `json:"items"`
	Areas      []*world.Area      `json:"areas"`
	Links      []Link             `json:"links"`
}

// Link is the serialised form of a linking point.
type Link struct {
	AreaA       string `json:"area_a"`
	AreaB       string `json:"area_b"`
	Description string `json:"description"`
	Blocked     bool   `json:"blocked"`
}

// Capture serialises the arena into a Document. The document is a deep
// copy: later arena mutations do not leak into it.
func Capture(a *world.Arena) (Document, error) {
	live := Document{
		World:      a.World,
		Characters: a.Characters(),
		Items:      a.Items(),
		Areas:      a.Areas(),
	}
	for _, l := range a.Links() {
		live.Links = append(live.Links, Link{
			AreaA:       l.AreaA,
			AreaB:       l.AreaB,
			Description: l.Description,
			Blocked:     l.Blocked,
		})
	}
	// Round-trip through JSON to sever aliasing with the live entities.
	raw, err := json.Marshal(live)
	if err != nil {
		return Document{}, fmt.Errorf("snapshot: capture: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Document{}, fmt.Errorf("snapshot: capture: %w", err)
	}
	return doc, nil
}

// BuildArena materialises a fresh arena from the document. The document is
// deep-copied on the way in, so applying the same snapshot twice is safe.
func BuildArena(doc Document) (*world.Arena, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("snapshot: apply: %w", err)
	}
	var copied Document
	if err := json.Unmarshal(raw, &copied); err != nil {
		return nil, fmt.Errorf("snapshot: apply: %w", err)
	}

	a := world.NewArena()
	a.World = copied.World
	for _, ar := range copied.Areas {
		// Resident lists are kept verbatim; AddCharacter below only appends
		// a uid when it is missing, so round-trips preserve list order.
		if err := a.AddArea(ar); err != nil {
			return nil, fmt.Errorf("snapshot: apply area %s: %w", ar.UID, err)
		}
	}
	for _, c := range copied.Characters {
		if err := a.AddCharacter(c); err != nil {
			return nil, fmt.Errorf("snapshot: apply character %s: %w", c.UID, err)
		}
	}
	for _, it := range copied.Items {
		if err := a.AddItem(it); err != nil {
			return nil, fmt.Errorf("snapshot: apply item %s: %w", it.UID, err)
		}
	}
	for _, l := range copied.Links {
		if err := a.AddLink(&world.Link{
			AreaA:       l.AreaA,
			AreaB:       l.AreaB,
			Description: l.Description,
			Blocked:     l.Blocked,
		}); err != nil {
			return nil, fmt.Errorf("snapshot: apply link: %w", err)
		}
	}
	return a, nil
}

// Canonical returns the document's canonical JSON encoding (struct fields
// in declaration order, map keys sorted). Used for structural equality.
func Canonical(doc Document) ([]byte, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("snapshot: canonical: %w", err)
	}
	return raw, nil
}

// SaveFile writes the document to disk as indented JSON.
func SaveFile(path string, doc Document) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("snapshot: save %s: %w", path, err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("snapshot: save %s: %w", path, err)
	}
	return nil
}

// LoadFile reads a document written by [SaveFile].
func LoadFile(path string) (Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("snapshot: load %s: %w", path, err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Document{}, fmt.Errorf("snapshot: load %s: %w", path, err)
	}
	return doc, nil
}
