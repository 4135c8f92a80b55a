// Package story assembles the context handed to the language collaborators
// and wraps their calls in validation and retry loops. Everything the
// collaborators see about the world goes through [BuildWorldView], so the
// player's knowledge gates what the prompts can mention.
package story

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/MrWong99/fableturn/internal/world"
	"github.com/MrWong99/fableturn/pkg/provider/nl"
)

// BuildWorldView projects the player's current knowledge into the view the
// parser and conversation collaborators receive. Only known entities are
// listed; stale snapshots are flagged so the model does not present them as
// current fact.
func BuildWorldView(a *world.Arena, player *world.Character, previousNarration string) nl.WorldView {
	view := nl.WorldView{
		PreviousNarration: previousNarration,
	}
	if cur := a.Area(player.AreaUID); cur != nil {
		view.AreaName = cur.Name
	}

	for _, e := range player.KnownEntries() {
		label := fmt.Sprintf("%s (%s)", e.Name, e.UID)
		if e.Outdated {
			label += ", last known state"
		}
		switch e.Kind {
		case world.KindArea:
			view.Areas = append(view.Areas, label)
		case world.KindCharacter:
			view.Characters = append(view.Characters, label)
		case world.KindItem:
			view.Items = append(view.Items, label)
		}
	}
	return view
}

// ScrubNames replaces every controllable character's name in text with
// "The player". The raw engine output refers to characters by name; when it
// is shown directly (narrator fallback) the player's own name must not leak
// into second-person narration.
func ScrubNames(a *world.Arena, text string) string {
	var names []string
	for _, c := range a.Characters() {
		if c.Controllable && c.Name != "" {
			names = append(names, c.Name)
		}
	}
	// Longest first so "Lee Everett" wins over "Lee".
	sort.Slice(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })

	for _, name := range names {
		re, err := regexp.Compile(`\b` + regexp.QuoteMeta(name) + `\b`)
		if err != nil {
			continue
		}
		text = re.ReplaceAllString(text, "The player")
	}
	return text
}
