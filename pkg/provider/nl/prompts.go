package nl

import (
	"fmt"
	"strings"
)

const precheckSystem = `You classify one player input for a turn-based survival story.
Answer with exactly one word from this list:
clear - the input is an actionable instruction for the player character
long - the input crams in far too many things at once
insufficient - the input is too vague to act on
impossible - the input asks for something outside the fiction or the rules
question - the input asks a question instead of giving an instruction
undo - the input asks to take back or rewind earlier turns
No explanations, one word only.`

const parserSystem = `You translate one player input into engine actions for a turn-based survival story.
Valid actions: move, talk, search, pick_up, use_item, give_item, equip_item, unequip_item, harm, ask_action, steal, join_party, quit_party, drop_item, do_nothing, stop_event, examine, inform.
Reply with one line per intended action, in order, using exactly this format:
action:<id>,requested_action:<id>,target:<who>,indirect_target:<who>,item:<what>,location:<where>,topic_of_conversation:<text>
Use the literal token 0 for every slot that does not apply. Prefer the uids from the world state over names. Never invent entities that are not listed.`

const undoSystem = `The player wants to rewind the story. Below is the numbered list of past states, oldest first.
Pick the single state that best matches what the player asks to return to.
Answer with that number alone. Answer 0 if no state matches or the player seems to be cancelling.`

const converseSystem = `You are the inner voice of the player character in a grim survival story.
Reply to the player in at most two short sentences, staying inside the fiction.
Mention only people, places and things from the provided world state. Never invent new ones.`

const storySystem = `You narrate a grim survival story in the second person, present tense.
Rewrite the factual result below into narration of at most one sentence (never more than 70 words).
Never use the player character's real name; say "you". Do not add events that are not in the facts.`

const validatorSystem = `You review one piece of generated game text.
Answer 1 if the text is coherent second-person narration that sticks to the given facts, otherwise answer 0.
Answer with the single digit only.`

// renderWorldView flattens a WorldView into prompt text.
func renderWorldView(view WorldView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Current area: %s\n", view.AreaName)
	if len(view.Areas) > 0 {
		fmt.Fprintf(&b, "Known areas: %s\n", strings.Join(view.Areas, "; "))
	}
	if len(view.Characters) > 0 {
		fmt.Fprintf(&b, "Known characters: %s\n", strings.Join(view.Characters, "; "))
	}
	if len(view.Items) > 0 {
		fmt.Fprintf(&b, "Known items: %s\n", strings.Join(view.Items, "; "))
	}
	if view.PreviousNarration != "" {
		fmt.Fprintf(&b, "Previous narration: %s\n", view.PreviousNarration)
	}
	return b.String()
}
