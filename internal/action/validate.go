package action

import (
	"fmt"
	"strings"

	"github.com/MrWong99/fableturn/internal/event"
	"github.com/MrWong99/fableturn/internal/world"
)

// Validator vets actions before execution. Validate returns "" on success
// or a single polite sentence naming the first blocking reason.
type Validator struct {
	arena   *world.Arena
	events  *event.Manager
	resolve *Resolver
}

// NewValidator returns a Validator over the arena and event manager.
func NewValidator(a *world.Arena, ev *event.Manager) *Validator {
	return &Validator{arena: a, events: ev, resolve: NewResolver(a)}
}

// Validate checks a single action for the given actor. The envelope may be
// rewritten in place (inform with an unknown subject degrades to talk).
func (v *Validator) Validate(actor *world.Character, env *Envelope) string {
	return polish(v.validate(actor, env))
}

func (v *Validator) validate(actor *world.Character, env *Envelope) string {
	if actor == nil || !actor.Alive {
		return "the actor is in no state to act"
	}
	switch env.Kind {
	case KindDoNothing:
		return ""

	case KindMove:
		if v.resolve.Area(env.Location) == nil {
			return fmt.Sprintf("I don't know of a place called %q", env.Location)
		}
		return ""

	case KindTalk:
		return v.requireAudience(actor, env.Target, true)

	case KindHarm:
		target := v.resolve.Character(actor, env.Target)
		if target == nil {
			return fmt.Sprintf("there is no one called %q here", env.Target)
		}
		if target.AreaUID != actor.AreaUID {
			return fmt.Sprintf("%s is not here", target.Name)
		}
		if !target.Alive {
			return fmt.Sprintf("%s is already dead", target.Name)
		}
		return ""

	case KindSteal:
		target := v.resolve.Character(actor, env.Target)
		if target == nil {
			return fmt.Sprintf("there is no one called %q here", env.Target)
		}
		if target.AreaUID != actor.AreaUID {
			return fmt.Sprintf("%s is not here", target.Name)
		}
		if IsSentinel(env.Item) {
			return "you need to say which item to take"
		}
		it := v.resolve.Item(actor, env.Item)
		if it == nil || it.HolderUID != target.UID {
			return fmt.Sprintf("%s does not carry %q", target.Name, env.Item)
		}
		return ""

	case KindGiveItem:
		if msg := v.requireAudience(actor, env.Target, true); msg != "" {
			return msg
		}
		if IsSentinel(env.Item) {
			return "you need to say which item to give"
		}
		if v.carriedItem(actor, env.Item) == nil {
			return fmt.Sprintf("you do not carry %q", env.Item)
		}
		return ""

	case KindPickUp:
		it := v.resolve.Item(actor, env.Item)
		if it == nil {
			return fmt.Sprintf("there is no %q here", env.Item)
		}
		if it.AreaUID != actor.AreaUID {
			return fmt.Sprintf("the %s is not lying here", it.Name)
		}
		if !actor.KnownItems[it.UID] && !it.KnownBy[actor.UID] {
			return fmt.Sprintf("you have not spotted any %s here yet", it.Name)
		}
		return ""

	case KindDropItem:
		if v.carriedItem(actor, env.Item) == nil {
			return fmt.Sprintf("you do not carry %q", env.Item)
		}
		return ""

	case KindUseItem:
		if v.carriedItem(actor, env.Item) == nil {
			return fmt.Sprintf("you do not carry %q", env.Item)
		}
		if !IsSentinel(env.Target) {
			target := v.resolve.Character(actor, env.Target)
			if target == nil || target.AreaUID != actor.AreaUID {
				return fmt.Sprintf("there is no one called %q here", env.Target)
			}
		}
		return ""

	case KindEquipItem:
		if v.carriedItem(actor, env.Item) == nil {
			return fmt.Sprintf("you do not carry %q", env.Item)
		}
		return ""

	case KindUnequipItem:
		it := v.carriedItem(actor, env.Item)
		if it == nil {
			return fmt.Sprintf("you do not carry %q", env.Item)
		}
		if !it.Equipped {
			return fmt.Sprintf("the %s is not equipped", it.Name)
		}
		return ""

	case KindJoinParty, KindQuitParty:
		return v.requireAudience(actor, env.Target, true)

	case KindSearch:
		if !IsSentinel(env.Target) {
			target := v.resolve.Character(actor, env.Target)
			if target == nil || target.AreaUID != actor.AreaUID {
				return fmt.Sprintf("there is no one called %q here", env.Target)
			}
			return ""
		}
		if !IsSentinel(env.Location) {
			ar := v.resolve.Area(env.Location)
			if ar == nil {
				return fmt.Sprintf("I don't know of a place called %q", env.Location)
			}
			if ar.UID != actor.AreaUID && v.arena.LinkBetween(actor.AreaUID, ar.UID) == nil {
				return fmt.Sprintf("%s is too far away to look into from here", ar.Name)
			}
			return ""
		}
		return "" // bare search means the current area

	case KindExamine:
		if v.examineSubject(actor, env) == "" {
			return "I can't tell what you want to examine"
		}
		return ""

	case KindInform:
		if msg := v.requireAudience(actor, env.Target, true); msg != "" {
			return msg
		}
		if v.informSubjectUID(actor, env) == "" {
			// Unknown subject degrades to small talk about it.
			raw := firstToken(env.Item, env.Location, env.IndirectTarget, env.Topic)
			env.Kind = KindTalk
			env.Topic = "asking about " + raw
			env.Item, env.Location, env.IndirectTarget = "", "", ""
		}
		return ""

	case KindAskAction:
		asked := v.resolve.Character(actor, env.Target)
		if asked == nil || asked.AreaUID != actor.AreaUID {
			return fmt.Sprintf("there is no one called %q here", env.Target)
		}
		if !asked.Alive {
			return fmt.Sprintf("%s is dead and past helping you", asked.Name)
		}
		if !env.Requested.IsValid() {
			return "I can't tell what you want them to do"
		}
		nested := nestedEnvelope(actor, env)
		return v.validate(asked, &nested)

	case KindStopEvent:
		if len(v.events.EventsInvolving(actor.UID)) == 0 {
			return "nothing is happening that you could stop"
		}
		return ""
	}
	return fmt.Sprintf("I don't know how to %q", string(env.Kind))
}

// requireAudience checks that the target resolves and is co-present or in
// the actor's party; mustLive additionally requires them alive.
func (v *Validator) requireAudience(actor *world.Character, token string, mustLive bool) string {
	target := v.resolve.Character(actor, token)
	if target == nil {
		return fmt.Sprintf("there is no one called %q here", token)
	}
	if target.AreaUID != actor.AreaUID && !actor.InPartyWith(target.UID) {
		return fmt.Sprintf("%s is not here", target.Name)
	}
	if mustLive && !target.Alive {
		return fmt.Sprintf("%s is dead", target.Name)
	}
	return ""
}

// carriedItem resolves the token to an item in the actor's inventory, or nil.
func (v *Validator) carriedItem(actor *world.Character, token string) *world.Item {
	it := v.resolve.Item(actor, token)
	if it == nil || it.HolderUID != actor.UID {
		return nil
	}
	return it
}

// examineSubject resolves the examine subject to a uid, preferring items,
// then characters, then areas.
func (v *Validator) examineSubject(actor *world.Character, env *Envelope) string {
	if it := v.resolve.Item(actor, env.Item); it != nil {
		return it.UID
	}
	if c := v.resolve.Character(actor, env.Target); c != nil {
		return c.UID
	}
	if ar := v.resolve.Area(env.Location); ar != nil {
		return ar.UID
	}
	return ""
}

// informSubjectUID resolves the inform subject anywhere in the world, or "".
func (v *Validator) informSubjectUID(actor *world.Character, env *Envelope) string {
	if it := v.resolve.Item(actor, env.Item); it != nil {
		return it.UID
	}
	if ar := v.resolve.Area(env.Location); ar != nil {
		return ar.UID
	}
	if c := v.resolve.Character(actor, env.IndirectTarget); c != nil {
		return c.UID
	}
	return ""
}

// nestedEnvelope builds the envelope executed by the asked character,
// defaulting omitted slots back onto the asker.
func nestedEnvelope(asker *world.Character, env *Envelope) Envelope {
	nested := Envelope{
		Kind:     env.Requested,
		Target:   env.IndirectTarget,
		Item:     env.Item,
		Location: env.Location,
		Topic:    env.Topic,
	}
	if IsSentinel(nested.Target) {
		switch nested.Kind {
		case KindTalk, KindGiveItem, KindHarm, KindInform, KindJoinParty, KindQuitParty:
			nested.Target = asker.UID
		}
	}
	return nested
}

func firstToken(tokens ...string) string {
	for _, t := range tokens {
		if !IsSentinel(t) {
			return t
		}
	}
	return "it"
}

// polish normalises a validation message into a polite sentence ending in
// terminal punctuation. "" passes through.
func polish(msg string) string {
	if msg == "" {
		return ""
	}
	msg = strings.TrimSpace(msg)
	msg = strings.ToUpper(msg[:1]) + msg[1:]
	switch msg[len(msg)-1] {
	case '.', '!', '?':
		return msg
	}
	return msg + "."
}
