package action

import (
	"fmt"

	"github.com/MrWong99/fableturn/internal/world"
)

// harm resolves one attack: damage roll, death handling, relationship
// fallout for the victim and every witness, fight bookkeeping, and the
// group cascade that drags both parties into the brawl.
func (e *Executor) harm(actor *world.Character, env Envelope) (string, error) {
	victim := e.resolve.Character(actor, env.Target)
	if victim == nil {
		return "", fmt.Errorf("action: harm target %q vanished", env.Target)
	}

	before := victim.Health
	dmg := actor.AttackDamage(e.arena)
	killed := e.arena.ApplyDamage(victim, dmg)
	severity := float64(before-victim.Health) / 100

	// Being attacked ends any goodwill for good.
	if victim.FriendshipWith(actor.UID) > 0 {
		victim.DeclareHostility(actor.UID)
	}
	for _, witness := range e.arena.CharactersIn(actor.AreaUID) {
		if !witness.Alive || witness.UID == actor.UID || witness.UID == victim.UID {
			continue
		}
		world.WitnessViolence(witness, actor, victim, severity, killed)
	}

	e.events.StartFight(actor, victim)
	e.queueGroupHarm(actor, victim)

	weapon := "bare hands"
	if w := e.arena.Item(actor.WeaponUID); w != nil {
		weapon = w.Name
	}
	if killed {
		return fmt.Sprintf("%s strikes %s with the %s for %d damage. %s collapses, dead.",
			actor.Name, victim.Name, weapon, dmg, victim.Name), nil
	}
	return fmt.Sprintf("%s strikes %s with the %s for %d damage.",
		actor.Name, victim.Name, weapon, dmg), nil
}

// queueGroupHarm queues a harm step for every alive party member of the
// attacker in the same area, each against a random defender drawn from the
// victim's in-area party (or the victim when alone).
func (e *Executor) queueGroupHarm(actor, victim *world.Character) {
	defenders := e.arena.PartyIn(victim, actor.AreaUID)
	if victim.Alive {
		defenders = append(defenders, victim)
	}
	if len(defenders) == 0 {
		return
	}
	for _, ally := range e.arena.PartyIn(actor, actor.AreaUID) {
		if ally.UID == actor.UID || ally.HasActed {
			continue
		}
		pick := defenders[e.rng.Intn(len(defenders))]
		e.queue.QueueStep(ally.UID, Envelope{Kind: KindHarm, Target: pick.UID}, OriginGroupJoin)
	}
}
