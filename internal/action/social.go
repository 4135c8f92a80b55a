package action

import (
	"fmt"

	"github.com/MrWong99/fableturn/internal/event"
	"github.com/MrWong99/fableturn/internal/world"
)

// Party admission thresholds.
const (
	joinPartyFriendship = 5
	joinPartyMinHealth  = 30
)

// talk opens or continues a conversation with the target. The actual NPC
// reply is generated by the story layer; the executor only maintains the
// conversation event and produces the factual line.
func (e *Executor) talk(actor *world.Character, env Envelope) (string, error) {
	target := e.resolve.Character(actor, env.Target)
	if target == nil {
		return "", fmt.Errorf("action: talk target %q vanished", env.Target)
	}
	conv := e.events.ConversationInvolving(actor.UID)
	if conv != nil && conv.Involves(target.UID) {
		if env.Topic != "" {
			conv.SetTopic(env.Topic)
		}
	} else {
		e.events.Add(event.NewConversation(env.Topic, actor.UID, target.UID))
	}
	actor.RememberCharacter(target, world.ReasonCoPresent)
	target.RememberCharacter(actor, world.ReasonCoPresent)
	if env.Topic != "" {
		return fmt.Sprintf("%s talks to %s about %s.", actor.Name, target.Name, env.Topic), nil
	}
	return fmt.Sprintf("%s talks to %s.", actor.Name, target.Name), nil
}

// inform shares knowledge of a subject entity with the receiver. When either
// side currently has a truth view of the subject, both end up with a fresh
// snapshot; otherwise the giver's possibly stale snapshot is copied and both
// entries are flagged outdated.
func (e *Executor) inform(actor *world.Character, env Envelope) (string, error) {
	receiver := e.resolve.Character(actor, env.Target)
	if receiver == nil {
		return "", fmt.Errorf("action: inform receiver %q vanished", env.Target)
	}

	if it := e.resolve.Item(actor, env.Item); it != nil {
		truth := e.arena.CanSeeItem(actor, it) || e.arena.CanSeeItem(receiver, it)
		if truth {
			actor.RememberItem(it, world.ReasonPossession)
			receiver.RememberItem(it, world.ReasonTold)
		} else {
			e.copyStale(actor, receiver, it.UID)
		}
		return fmt.Sprintf("%s tells %s about the %s.", actor.Name, receiver.Name, it.Name), nil
	}
	if ar := e.resolve.Area(env.Location); ar != nil {
		truth := actor.AreaUID == ar.UID || receiver.AreaUID == ar.UID
		if truth {
			actor.RememberArea(ar, world.ReasonPresence)
			receiver.RememberArea(ar, world.ReasonTold)
		} else {
			e.copyStale(actor, receiver, ar.UID)
		}
		return fmt.Sprintf("%s tells %s about %s.", actor.Name, receiver.Name, ar.Name), nil
	}
	if subj := e.resolve.Character(actor, env.IndirectTarget); subj != nil {
		truth := subj.AreaUID == actor.AreaUID || subj.AreaUID == receiver.AreaUID
		if truth {
			actor.RememberCharacter(subj, world.ReasonCoPresent)
			receiver.RememberCharacter(subj, world.ReasonTold)
		} else {
			e.copyStale(actor, receiver, subj.UID)
		}
		return fmt.Sprintf("%s tells %s about %s.", actor.Name, receiver.Name, subj.Name), nil
	}
	return "", fmt.Errorf("action: inform subject did not resolve")
}

// copyStale hands the giver's snapshot of uid to the receiver, flagging
// both entries outdated. Nothing happens when the giver knows nothing.
func (e *Executor) copyStale(giver, receiver *world.Character, uid string) {
	entry, ok := giver.Knowledge[uid]
	if !ok {
		return
	}
	entry.Outdated = true
	giver.Knowledge[uid] = entry
	receiver.AdoptEntry(entry)
	if adopted, ok := receiver.Knowledge[uid]; ok {
		adopted.Outdated = true
		receiver.Knowledge[uid] = adopted
	}
}

// joinParty forms or extends a party. Admission needs goodwill of at least
// 5 from the target and both sides healthy enough to travel; on success
// everyone in both parties learns about everyone else and their gear.
func (e *Executor) joinParty(actor *world.Character, env Envelope) (string, error) {
	target := e.resolve.Character(actor, env.Target)
	if target == nil {
		return "", fmt.Errorf("action: join_party target %q vanished", env.Target)
	}
	if actor.InPartyWith(target.UID) {
		return fmt.Sprintf("%s and %s already travel together.", actor.Name, target.Name), nil
	}
	if target.FriendshipWith(actor.UID) < joinPartyFriendship {
		return fmt.Sprintf("%s does not trust %s enough to team up.", target.Name, actor.Name), nil
	}
	if actor.Health <= joinPartyMinHealth || target.Health <= joinPartyMinHealth {
		return "Neither of them is fit enough to watch the other's back right now.", nil
	}

	world.JoinParties(actor, target)
	e.introduceToParty(actor, target)
	e.introduceToParty(target, actor)
	return fmt.Sprintf("%s and %s join forces.", actor.Name, target.Name), nil
}

// introduceToParty makes the newcomer and every party member of anchor
// (anchor included) aware of each other and of each other's items.
func (e *Executor) introduceToParty(anchor, newcomer *world.Character) {
	members := []*world.Character{anchor}
	for _, uid := range anchor.Party {
		if m := e.arena.Character(uid); m != nil && m.UID != newcomer.UID {
			members = append(members, m)
		}
	}
	for _, m := range members {
		m.RememberCharacter(newcomer, world.ReasonParty)
		newcomer.RememberCharacter(m, world.ReasonParty)
		for _, uid := range newcomer.Inventory {
			if it := e.arena.Item(uid); it != nil {
				m.RememberItem(it, world.ReasonParty)
			}
		}
		for _, uid := range m.Inventory {
			if it := e.arena.Item(uid); it != nil {
				newcomer.RememberItem(it, world.ReasonParty)
			}
		}
	}
}

func (e *Executor) quitParty(actor *world.Character, env Envelope) (string, error) {
	target := e.resolve.Character(actor, env.Target)
	if target == nil {
		return "", fmt.Errorf("action: quit_party target %q vanished", env.Target)
	}
	if !actor.InPartyWith(target.UID) {
		return fmt.Sprintf("%s and %s were not travelling together.", actor.Name, target.Name), nil
	}
	world.LeaveParties(actor, target)
	return fmt.Sprintf("%s parts ways with %s.", actor.Name, target.Name), nil
}

// askAction relays a request: the asked character performs the nested
// action as if it were their own, with omitted slots defaulting back onto
// the asker.
func (e *Executor) askAction(actor *world.Character, env Envelope) (string, error) {
	asked := e.resolve.Character(actor, env.Target)
	if asked == nil {
		return "", fmt.Errorf("action: ask_action target %q vanished", env.Target)
	}
	nested := nestedEnvelope(actor, &env)
	result, err := e.Execute(asked, nested)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s asks %s to help. %s", actor.Name, asked.Name, result), nil
}
