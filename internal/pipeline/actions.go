package pipeline

import (
	"fmt"
	"strings"

	"github.com/MrWong99/fableturn/internal/action"
	"github.com/MrWong99/fableturn/internal/world"
	"github.com/MrWong99/fableturn/pkg/provider/nl"
)

// toEnvelopes converts parser records into engine envelopes. Records whose
// action does not normalise onto the catalog are dropped; sentinel tokens
// become empty slots.
func toEnvelopes(records []nl.ActionRecord) []action.Envelope {
	var envs []action.Envelope
	for _, rec := range records {
		kind, ok := action.ParseKind(rec.Action)
		if !ok {
			continue
		}
		env := action.Envelope{
			Kind:           kind,
			Target:         cleanToken(rec.Target),
			IndirectTarget: cleanToken(rec.IndirectTarget),
			Item:           cleanToken(rec.Item),
			Location:       cleanToken(rec.Location),
			Topic:          cleanToken(rec.Topic),
		}
		if requested, ok := action.ParseKind(rec.RequestedAction); ok {
			env.Requested = requested
		}
		envs = append(envs, env)
	}
	return envs
}

func cleanToken(tok string) string {
	if action.IsSentinel(tok) {
		return ""
	}
	return strings.TrimSpace(tok)
}

// mergeEnvelope folds a correction patch into the failing action: non-empty
// patch slots win, and a placeholder do_nothing adopts the patch's kind.
func mergeEnvelope(dst *action.Envelope, patch action.Envelope) {
	if dst.Kind == action.KindDoNothing && patch.Kind != "" && patch.Kind != action.KindDoNothing {
		dst.Kind = patch.Kind
	}
	if patch.Requested != "" {
		dst.Requested = patch.Requested
	}
	if patch.Target != "" {
		dst.Target = patch.Target
	}
	if patch.IndirectTarget != "" {
		dst.IndirectTarget = patch.IndirectTarget
	}
	if patch.Item != "" {
		dst.Item = patch.Item
	}
	if patch.Location != "" {
		dst.Location = patch.Location
	}
	if patch.Topic != "" {
		dst.Topic = patch.Topic
	}
}

// riskyQuestion returns the confirmation question for the chain's first
// action when it matches a risky pattern, or "" when the chain may run
// unconfirmed. Hostile targets never need a harm confirmation.
func (s *Session) riskyQuestion(envs []action.Envelope) string {
	if len(envs) == 0 {
		return ""
	}
	env := envs[0]
	player := s.player()
	r := action.NewResolver(s.arena)

	desc := s.riskyDescription(r, player, env.Kind, env.Target, env.Item, env.Location)
	if desc == "" && env.Kind == action.KindAskAction && env.Requested != "" {
		asked := r.Character(player, env.Target)
		actor := player
		if asked != nil {
			actor = asked
		}
		if nested := s.riskyDescription(r, actor, env.Requested, env.IndirectTarget, env.Item, env.Location); nested != "" {
			who := env.Target
			if asked != nil {
				who = asked.Name
			}
			desc = fmt.Sprintf("ask %s to %s", who, nested)
		}
	}
	if desc == "" {
		return ""
	}
	return fmt.Sprintf("Do I understand correctly that you want to %s? Write yes to continue, anything else to cancel.", desc)
}

// riskyDescription names the risky thing the step would do, or "" when the
// step is safe.
func (s *Session) riskyDescription(r *action.Resolver, actor *world.Character, kind action.Kind, targetTok, itemTok, locTok string) string {
	player := s.player()
	switch kind {
	case action.KindDoNothing:
		return "do nothing"
	case action.KindHarm:
		target := r.Character(actor, targetTok)
		if target == nil {
			return ""
		}
		if target.UID == player.UID {
			return "harm yourself"
		}
		if hostileEither(actor, target) || hostileEither(player, target) {
			return ""
		}
		return "harm " + target.Name
	case action.KindMove:
		ar := r.Area(locTok)
		if ar != nil && ar.UID == player.AreaUID {
			return fmt.Sprintf("travel to %s, where you already are", ar.Name)
		}
	case action.KindSearch:
		target := r.Character(actor, targetTok)
		if target != nil && target.Alive && target.UID != player.UID && !hostileEither(player, target) {
			return "search " + target.Name
		}
	case action.KindSteal:
		target := r.Character(actor, targetTok)
		if target != nil && target.Alive && !hostileEither(player, target) {
			if itemTok != "" {
				return fmt.Sprintf("steal %s from %s", itemTok, target.Name)
			}
			return "steal from " + target.Name
		}
	}
	return ""
}

// hostileEither reports open hostility or rock-bottom friendship in either
// direction.
func hostileEither(a, b *world.Character) bool {
	return a.IsHostileToward(b) || b.IsHostileToward(a) ||
		a.FriendshipWith(b.UID) <= 1 || b.FriendshipWith(a.UID) <= 1
}

// describeChain summarises the recognised actions for the storyteller
// prompt.
func describeChain(envs []action.Envelope) string {
	parts := make([]string, 0, len(envs))
	for _, env := range envs {
		parts = append(parts, describeEnvelope(env))
	}
	return strings.Join(parts, ", then ")
}

func describeEnvelope(env action.Envelope) string {
	switch env.Kind {
	case action.KindMove:
		return "move to " + env.Location
	case action.KindTalk:
		if env.Topic != "" {
			return fmt.Sprintf("talk to %s about %s", env.Target, env.Topic)
		}
		return "talk to " + env.Target
	case action.KindHarm:
		return "attack " + env.Target
	case action.KindPickUp:
		return "pick up " + env.Item
	case action.KindGiveItem:
		return fmt.Sprintf("give %s to %s", env.Item, env.Target)
	case action.KindSteal:
		return fmt.Sprintf("steal %s from %s", env.Item, env.Target)
	case action.KindUseItem:
		return "use " + env.Item
	case action.KindEquipItem:
		return "equip " + env.Item
	case action.KindUnequipItem:
		return "unequip " + env.Item
	case action.KindDropItem:
		return "drop " + env.Item
	case action.KindSearch:
		if env.Target != "" {
			return "search " + env.Target
		}
		if env.Location != "" {
			return "search " + env.Location
		}
		return "search the area"
	case action.KindExamine:
		subject := env.Item
		if subject == "" {
			subject = env.Target
		}
		return "examine " + subject
	case action.KindJoinParty:
		return "join forces with " + env.Target
	case action.KindQuitParty:
		return "part ways with " + env.Target
	case action.KindAskAction:
		nested := env
		nested.Kind = env.Requested
		nested.Target = env.IndirectTarget
		return fmt.Sprintf("ask %s to %s", env.Target, describeEnvelope(nested))
	case action.KindInform:
		return "tell " + env.Target + " what you know"
	case action.KindStopEvent:
		return "stop what is happening"
	case action.KindDoNothing:
		return "do nothing"
	}
	return strings.ReplaceAll(string(env.Kind), "_", " ")
}
