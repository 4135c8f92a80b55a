// Package action defines the closed catalog of things a character can do,
// the validator that vets single actions and multi-step chains, and the
// executor that mutates the world and produces narration fragments.
package action

import "strings"

// Kind enumerates the action catalog. The set is closed; parsers normalise
// free-text verbs onto it via [ParseKind].
type Kind string

const (
	KindMove        Kind = "move"
	KindTalk        Kind = "talk"
	KindSearch      Kind = "search"
	KindPickUp      Kind = "pick_up"
	KindUseItem     Kind = "use_item"
	KindGiveItem    Kind = "give_item"
	KindEquipItem   Kind = "equip_item"
	KindUnequipItem Kind = "unequip_item"
	KindHarm        Kind = "harm"
	KindAskAction   Kind = "ask_action"
	KindSteal       Kind = "steal"
	KindJoinParty   Kind = "join_party"
	KindQuitParty   Kind = "quit_party"
	KindDropItem    Kind = "drop_item"
	KindDoNothing   Kind = "do_nothing"
	KindStopEvent   Kind = "stop_event"
	KindExamine     Kind = "examine"
	KindInform      Kind = "inform"
)

// All lists every action kind.
var All = []Kind{
	KindMove, KindTalk, KindSearch, KindPickUp, KindUseItem, KindGiveItem,
	KindEquipItem, KindUnequipItem, KindHarm, KindAskAction, KindSteal,
	KindJoinParty, KindQuitParty, KindDropItem, KindDoNothing, KindStopEvent,
	KindExamine, KindInform,
}

// IsValid reports whether k is a member of the catalog.
func (k Kind) IsValid() bool {
	for _, v := range All {
		if k == v {
			return true
		}
	}
	return false
}

// kindAliases maps parser spellings onto catalog kinds.
var kindAliases = map[string]Kind{
	"investigate":   KindSearch,
	"look":          KindSearch,
	"look_around":   KindSearch,
	"go":            KindMove,
	"move_area":     KindMove,
	"walk":          KindMove,
	"travel":        KindMove,
	"attack":        KindHarm,
	"hit":           KindHarm,
	"fight":         KindHarm,
	"speak":         KindTalk,
	"talk_to":       KindTalk,
	"say":           KindTalk,
	"take":          KindPickUp,
	"pickup":        KindPickUp,
	"grab":          KindPickUp,
	"drop":          KindDropItem,
	"give":          KindGiveItem,
	"equip":         KindEquipItem,
	"unequip":       KindUnequipItem,
	"use":           KindUseItem,
	"leave_party":   KindQuitParty,
	"ask":           KindAskAction,
	"request":       KindAskAction,
	"wait":          KindDoNothing,
	"nothing":       KindDoNothing,
	"inspect":       KindExamine,
	"tell":          KindInform,
	"tell_about":    KindInform,
	"inform_about":  KindInform,
	"stop":          KindStopEvent,
	"end_event":     KindStopEvent,
}

// ParseKind normalises a parser token onto the catalog. Unknown tokens
// report ok=false.
func ParseKind(s string) (Kind, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if k := Kind(s); k.IsValid() {
		return k, true
	}
	if k, ok := kindAliases[s]; ok {
		return k, true
	}
	return "", false
}

// Step origins, tagged on queued steps so follower narration can be
// normalised and AI-driven steps distinguished from player ones.
const (
	OriginPlayer    = "player"
	OriginGoodAI    = "goodAI"
	OriginEvilAI    = "evilAI"
	OriginGroupJoin = "group-join"
	OriginGroupMove = "group-move"
)

// Envelope is one parsed action with its semantic slots. Slots hold textual
// tokens (uid or name) resolved against the arena at validation time; empty
// means absent.
type Envelope struct {
	Kind Kind

	// Requested is the nested kind for ask_action.
	Requested Kind

	// Target is the primary character token.
	Target string

	// IndirectTarget is the secondary character token (e.g., the receiver
	// of a requested give).
	IndirectTarget string

	// Item is the item token.
	Item string

	// Location is the area token.
	Location string

	// Topic is the free-text conversation subject.
	Topic string
}

// StepQueuer accepts steps queued during execution (group-move and
// group-harm cascades). Implemented by the turn scheduler.
type StepQueuer interface {
	QueueStep(actorUID string, env Envelope, origin string)
}

// nopQueuer drops queued steps. Used where no scheduler is attached.
type nopQueuer struct{}

func (nopQueuer) QueueStep(string, Envelope, string) {}
