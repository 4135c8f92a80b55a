package event

import (
	"fmt"
	"slices"

	"github.com/MrWong99/fableturn/internal/world"
)

// Conversation groups characters currently talking to each other. It ends
// when the participants stop sharing an area or fewer than two remain alive,
// and can also be ended explicitly when a participant turns to something else.
type Conversation struct {
	participants []string
	topic        string
	active       bool
}

// NewConversation opens a conversation between the listed characters.
func NewConversation(topic string, participantUIDs ...string) *Conversation {
	return &Conversation{
		participants: slices.Clone(participantUIDs),
		topic:        topic,
		active:       true,
	}
}

func (c *Conversation) Name() string { return "conversation" }
func (c *Conversation) Kind() string { return KindConversation }

func (c *Conversation) Description() string {
	if c.topic == "" {
		return "an ongoing conversation"
	}
	return fmt.Sprintf("an ongoing conversation about %s", c.topic)
}

// Topic returns the current subject of the conversation.
func (c *Conversation) Topic() string { return c.topic }

// SetTopic updates the subject as the exchange drifts.
func (c *Conversation) SetTopic(topic string) { c.topic = topic }

func (c *Conversation) AreaUIDs(a *world.Arena) []string {
	seen := make(map[string]bool)
	var out []string
	for _, uid := range c.participants {
		ch := a.Character(uid)
		if ch == nil || !ch.Alive || seen[ch.AreaUID] {
			continue
		}
		seen[ch.AreaUID] = true
		out = append(out, ch.AreaUID)
	}
	return out
}

func (c *Conversation) Participants() []string { return slices.Clone(c.participants) }
func (c *Conversation) Active() bool           { return c.active }

func (c *Conversation) Involves(uid string) bool {
	return c.active && slices.Contains(c.participants, uid)
}

// AddParticipant pulls another character into the exchange.
func (c *Conversation) AddParticipant(uid string) {
	if !slices.Contains(c.participants, uid) {
		c.participants = append(c.participants, uid)
	}
}

// End closes the conversation explicitly.
func (c *Conversation) End() { c.active = false }

// ResolveIfNeeded ends the conversation once the participants no longer
// share an area or fewer than two remain alive. Conversations fade without
// a narration note.
func (c *Conversation) ResolveIfNeeded(a *world.Arena) string {
	if !c.active {
		return ""
	}
	alive := 0
	for _, uid := range c.participants {
		if ch := a.Character(uid); ch != nil && ch.Alive {
			alive++
		}
	}
	if alive < 2 || len(c.AreaUIDs(a)) > 1 {
		c.active = false
	}
	return ""
}
