// Package scenario loads game worlds from YAML campaign files and seeds
// their starting events. A default campaign is embedded so the engine can
// boot without any external files; see [Default].
package scenario

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/MrWong99/fableturn/internal/event"
	"github.com/MrWong99/fableturn/internal/world"
)

// File is the top-level structure of a campaign YAML file.
type File struct {
	World      WorldDef       `yaml:"world"`
	Areas      []AreaDef      `yaml:"areas"`
	Links      []LinkDef      `yaml:"links"`
	Items      []ItemDef      `yaml:"items"`
	Characters []CharacterDef `yaml:"characters"`
	Blockades  []BlockadeDef  `yaml:"blockades"`
	Win        WinDef         `yaml:"win"`
}

// WorldDef carries the scenario framing.
type WorldDef struct {
	Title                 string `yaml:"title"`
	RelationToProtagonist string `yaml:"relation_to_protagonist"`
	ChaosState            int    `yaml:"chaos_state"`
	CurrentDilemma        string `yaml:"current_dilemma"`
	CurrentGoal           string `yaml:"current_goal"`
}

// AreaDef defines one area.
type AreaDef struct {
	UID         string `yaml:"uid"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Exit        bool   `yaml:"exit"`
}

// LinkDef defines a bidirectional connection between two areas.
type LinkDef struct {
	Between     [2]string `yaml:"between"`
	Description string    `yaml:"description"`
}

// ItemDef defines one item and its starting placement. Exactly one of Area
// and Holder should be set.
type ItemDef struct {
	UID         string       `yaml:"uid"`
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	Damage      int          `yaml:"damage"`
	Robustness  int          `yaml:"robustness"`
	Area        string       `yaml:"area"`
	Holder      string       `yaml:"holder"`
	Equip       string       `yaml:"equip"`
	Abilities   []AbilityDef `yaml:"abilities"`
}

// AbilityDef defines a named trait on an item or character.
type AbilityDef struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// CharacterDef defines one actor and their starting state.
type CharacterDef struct {
	UID          string         `yaml:"uid"`
	Name         string         `yaml:"name"`
	Description  string         `yaml:"description"`
	Area         string         `yaml:"area"`
	Health       int            `yaml:"health"`
	Controllable bool           `yaml:"controllable"`
	Hostile      bool           `yaml:"hostile"`
	State        string         `yaml:"state"`
	Topics       []string       `yaml:"topics"`
	Party        []string       `yaml:"party"`
	Friendships  map[string]int `yaml:"friendships"`
	Stats        StatsDef       `yaml:"stats"`
	Personality  PersonalityDef `yaml:"personality"`
	Abilities    []AbilityDef   `yaml:"abilities"`
}

// StatsDef mirrors [world.Stats].
type StatsDef struct {
	Strength     int `yaml:"strength"`
	Intelligence int `yaml:"intelligence"`
	Skill        int `yaml:"skill"`
	Speed        int `yaml:"speed"`
	Endurance    int `yaml:"endurance"`
}

// PersonalityDef mirrors [world.Personality].
type PersonalityDef struct {
	Openness          int `yaml:"openness"`
	Conscientiousness int `yaml:"conscientiousness"`
	Extraversion      int `yaml:"extraversion"`
	Agreeableness     int `yaml:"agreeableness"`
	Neuroticism       int `yaml:"neuroticism"`
}

// BlockadeDef seeds a blockade event on the link between two areas.
type BlockadeDef struct {
	Name            string    `yaml:"name"`
	Description     string    `yaml:"description"`
	Between         [2]string `yaml:"between"`
	RequiredItem    string    `yaml:"required_item"`
	RequiredAbility string    `yaml:"required_ability"`
}

// WinDef defines the victory conditions: the protagonist reaching the exit
// area wins, as does healing the named character (if any) to at least the
// threshold.
type WinDef struct {
	ExitArea      string `yaml:"exit_area"`
	HealCharacter string `yaml:"heal_character"`
	HealThreshold int    `yaml:"heal_threshold"`
}

// Load reads and parses a campaign YAML file from disk.
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("scenario: open campaign file %q: %w", path, err)
	}
	defer f.Close()

	sf, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("scenario: parse campaign file %q: %w", path, err)
	}
	return sf, nil
}

// LoadFromReader parses campaign YAML from an [io.Reader].
// The reader is consumed entirely; the caller is responsible for closing it.
func LoadFromReader(r io.Reader) (*File, error) {
	var sf File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true) // reject unknown keys to catch typos
	if err := dec.Decode(&sf); err != nil {
		return nil, fmt.Errorf("scenario: decode campaign yaml: %w", err)
	}
	if err := sf.Validate(); err != nil {
		return nil, err
	}
	return &sf, nil
}

// Validate checks referential integrity: every uid reference must resolve
// and exactly one controllable character must exist.
func (f *File) Validate() error {
	areas := make(map[string]bool, len(f.Areas))
	for _, a := range f.Areas {
		if a.UID == "" {
			return fmt.Errorf("scenario: area %q has no uid", a.Name)
		}
		if areas[a.UID] {
			return fmt.Errorf("scenario: duplicate area uid %q", a.UID)
		}
		areas[a.UID] = true
	}

	chars := make(map[string]bool, len(f.Characters))
	controllable := 0
	for _, c := range f.Characters {
		if c.UID == "" {
			return fmt.Errorf("scenario: character %q has no uid", c.Name)
		}
		if chars[c.UID] {
			return fmt.Errorf("scenario: duplicate character uid %q", c.UID)
		}
		chars[c.UID] = true
		if !areas[c.Area] {
			return fmt.Errorf("scenario: character %q placed in unknown area %q", c.UID, c.Area)
		}
		if c.Controllable {
			controllable++
		}
	}
	if controllable != 1 {
		return fmt.Errorf("scenario: want exactly 1 controllable character, have %d", controllable)
	}

	for _, it := range f.Items {
		if it.UID == "" {
			return fmt.Errorf("scenario: item %q has no uid", it.Name)
		}
		if it.Area != "" && it.Holder != "" {
			return fmt.Errorf("scenario: item %q has both area and holder", it.UID)
		}
		if it.Area != "" && !areas[it.Area] {
			return fmt.Errorf("scenario: item %q placed in unknown area %q", it.UID, it.Area)
		}
		if it.Holder != "" && !chars[it.Holder] {
			return fmt.Errorf("scenario: item %q held by unknown character %q", it.UID, it.Holder)
		}
	}

	for _, l := range f.Links {
		if !areas[l.Between[0]] || !areas[l.Between[1]] {
			return fmt.Errorf("scenario: link %v references unknown area", l.Between)
		}
	}
	for _, b := range f.Blockades {
		if !areas[b.Between[0]] || !areas[b.Between[1]] {
			return fmt.Errorf("scenario: blockade %q references unknown area", b.Name)
		}
	}

	if f.Win.ExitArea != "" && !areas[f.Win.ExitArea] {
		return fmt.Errorf("scenario: win exit area %q unknown", f.Win.ExitArea)
	}
	if f.Win.HealCharacter != "" && !chars[f.Win.HealCharacter] {
		return fmt.Errorf("scenario: win heal character %q unknown", f.Win.HealCharacter)
	}
	return nil
}

// Build constructs a fresh [world.Arena] from the definitions. Starting
// knowledge is seeded by refreshing every character once, so everyone knows
// their surroundings on turn one.
func (f *File) Build() (*world.Arena, error) {
	a := world.NewArena()
	a.World = world.World{
		Title:                 f.World.Title,
		RelationToProtagonist: f.World.RelationToProtagonist,
		ChaosState:            f.World.ChaosState,
		CurrentDilemma:        f.World.CurrentDilemma,
		CurrentGoal:           f.World.CurrentGoal,
	}

	for _, def := range f.Areas {
		if err := a.AddArea(&world.Area{
			UID:         def.UID,
			Name:        def.Name,
			Description: def.Description,
			Exit:        def.Exit,
		}); err != nil {
			return nil, fmt.Errorf("scenario: %w", err)
		}
	}
	for _, def := range f.Links {
		if err := a.AddLink(&world.Link{
			AreaA:       def.Between[0],
			AreaB:       def.Between[1],
			Description: def.Description,
		}); err != nil {
			return nil, fmt.Errorf("scenario: %w", err)
		}
	}

	for _, def := range f.Characters {
		c := &world.Character{
			UID:          def.UID,
			Name:         def.Name,
			Description:  def.Description,
			Health:       world.ClampHealth(def.Health),
			Alive:        def.Health > 0,
			Controllable: def.Controllable,
			Hostile:      def.Hostile,
			State:        def.State,
			Topics:       def.Topics,
			Stats: world.Stats{
				Strength:     world.ClampStat(def.Stats.Strength),
				Intelligence: world.ClampStat(def.Stats.Intelligence),
				Skill:        world.ClampStat(def.Stats.Skill),
				Speed:        world.ClampStat(def.Stats.Speed),
				Endurance:    world.ClampStat(def.Stats.Endurance),
			},
			Personality: world.Personality{
				Openness:          def.Personality.Openness,
				Conscientiousness: def.Personality.Conscientiousness,
				Extraversion:      def.Personality.Extraversion,
				Agreeableness:     def.Personality.Agreeableness,
				Neuroticism:       def.Personality.Neuroticism,
			},
			Abilities: abilities(def.Abilities),
		}
		if err := a.AddCharacter(c); err != nil {
			return nil, fmt.Errorf("scenario: %w", err)
		}
		if err := a.PlaceCharacter(c, def.Area); err != nil {
			return nil, fmt.Errorf("scenario: %w", err)
		}
	}

	// Friendships and parties resolve after every character exists.
	for _, def := range f.Characters {
		c := a.Character(def.UID)
		for uid, v := range def.Friendships {
			if a.Character(uid) == nil {
				return nil, fmt.Errorf("scenario: %q records friendship with unknown %q", def.UID, uid)
			}
			if v == 0 {
				c.DeclareHostility(uid)
				continue
			}
			c.SetFriendship(uid, v)
		}
		for _, uid := range def.Party {
			other := a.Character(uid)
			if other == nil {
				return nil, fmt.Errorf("scenario: %q lists unknown party member %q", def.UID, uid)
			}
			world.JoinParties(c, other)
		}
	}

	for _, def := range f.Items {
		it := &world.Item{
			UID:         def.UID,
			Name:        def.Name,
			Description: def.Description,
			Damage:      def.Damage,
			Robustness:  def.Robustness,
			Abilities:   abilities(def.Abilities),
		}
		if err := a.AddItem(it); err != nil {
			return nil, fmt.Errorf("scenario: %w", err)
		}
		switch {
		case def.Area != "":
			if err := a.PlaceItemOnFloor(it, def.Area); err != nil {
				return nil, fmt.Errorf("scenario: %w", err)
			}
		case def.Holder != "":
			holder := a.Character(def.Holder)
			a.GiveItem(it, holder)
			if def.Equip != "" {
				if err := holder.Equip(a, it, world.Slot(def.Equip)); err != nil {
					return nil, fmt.Errorf("scenario: %w", err)
				}
			}
		}
	}

	for _, c := range a.Characters() {
		a.RefreshKnownState(c)
	}
	return a, nil
}

// SeedEvents registers the scenario's blockades with the event manager.
// restored marks an arena rebuilt from a snapshot: there a blockade is only
// re-created for links the restored state still marks blocked, so a breach
// survives the rewind of later turns.
func (f *File) SeedEvents(a *world.Arena, events *event.Manager, restored bool) error {
	for _, def := range f.Blockades {
		link := a.LinkBetween(def.Between[0], def.Between[1])
		if link == nil {
			return fmt.Errorf("scenario: blockade %q has no link between %s and %s", def.Name, def.Between[0], def.Between[1])
		}
		if events.BlockadeOn(def.Between[0], def.Between[1]) != nil {
			continue
		}
		if restored && !link.Blocked {
			continue
		}
		events.Add(event.NewBlockade(def.Name, def.Description, link, def.RequiredItem, def.RequiredAbility))
	}
	return nil
}

func abilities(defs []AbilityDef) []world.Ability {
	if len(defs) == 0 {
		return nil
	}
	out := make([]world.Ability, len(defs))
	for i, d := range defs {
		out[i] = world.Ability{Name: d.Name, Description: d.Description}
	}
	return out
}
