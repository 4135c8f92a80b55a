package story

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/MrWong99/fableturn/internal/observe"
	"github.com/MrWong99/fableturn/internal/world"
	"github.com/MrWong99/fableturn/pkg/provider/nl"
)

// SuggestEvery is the completed-turn cadence at which the engine offers the
// player an unsolicited next-step suggestion.
const SuggestEvery = 2

// defaultAttempts bounds the generate-validate loop per output.
const defaultAttempts = 3

// Narrator turns factual engine output into player-facing prose. Every
// generated text passes the output validator; rejected candidates are fed
// back so the next attempt differs. All collaborator failures are handled
// fail-open: the player always gets some text back.
type Narrator struct {
	collab   nl.Collaborators
	metrics  *observe.Metrics
	log      *slog.Logger
	attempts int
}

// Option customises a Narrator.
type Option func(*Narrator)

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(n *Narrator) { n.log = l }
}

// WithMetrics sets the metrics sink. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(n *Narrator) { n.metrics = m }
}

// WithAttempts overrides the generate-validate attempt bound.
func WithAttempts(k int) Option {
	return func(n *Narrator) {
		if k > 0 {
			n.attempts = k
		}
	}
}

// NewNarrator returns a Narrator over the collaborator bundle.
func NewNarrator(collab nl.Collaborators, opts ...Option) *Narrator {
	n := &Narrator{
		collab:   collab,
		log:      slog.Default(),
		attempts: defaultAttempts,
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.metrics == nil {
		n.metrics = observe.DefaultMetrics()
	}
	return n
}

// Tell narrates one executed turn. When every attempt fails or is rejected
// the raw world result is returned with controllable names scrubbed, so the
// factual outcome always reaches the player.
func (n *Narrator) Tell(ctx context.Context, a *world.Arena, playerInput, recognizedAction, worldResult string) string {
	rejected := ""
	for i := 0; i < n.attempts; i++ {
		text, err := n.timed(ctx, "storyteller", func() (string, error) {
			return n.collab.Storyteller.Narrate(ctx, playerInput, recognizedAction, worldResult, rejected)
		})
		if err != nil {
			n.log.Warn("storyteller call failed", "attempt", i+1, "error", err)
			continue
		}
		if text == "" {
			continue
		}
		if n.validate(ctx, nl.ModeStory, text) {
			return text
		}
		n.metrics.RecordNarrationRejection(ctx, nl.ModeStory)
		rejected = text
	}
	n.log.Warn("narration fell back to world text", "attempts", n.attempts)
	return ScrubNames(a, worldResult)
}

// Reply produces a short in-fiction reply for non-actionable input. Returns
// the empty string when no valid reply could be produced; callers fall back
// to their own stock phrasing.
func (n *Narrator) Reply(ctx context.Context, text string, label nl.Label, extra string) string {
	rejected := ""
	for i := 0; i < n.attempts; i++ {
		out, err := n.timed(ctx, "conversation", func() (string, error) {
			hint := extra
			if rejected != "" {
				hint += "\nDo not repeat this rejected reply: " + rejected
			}
			return n.collab.Conversation.Converse(ctx, text, label, hint)
		})
		if err != nil {
			n.log.Warn("conversation call failed", "attempt", i+1, "error", err)
			continue
		}
		if out == "" {
			continue
		}
		if n.validate(ctx, nl.ModeConversation, out) {
			return out
		}
		n.metrics.RecordNarrationRejection(ctx, nl.ModeConversation)
		rejected = out
	}
	return ""
}

// Suggest asks the conversation collaborator for one unsolicited next-step
// hint based on what the player currently knows. Returns "" on failure.
func (n *Narrator) Suggest(ctx context.Context, view nl.WorldView) string {
	extra := "Offer the player one short suggestion for what they could try next.\n" + RenderView(view)
	return n.Reply(ctx, "What could I do next?", nl.LabelQuestion, extra)
}

// validate runs the output validator fail-open: an erroring validator
// accepts.
func (n *Narrator) validate(ctx context.Context, mode, payload string) bool {
	ok, err := n.timed2(ctx, "validator", func() (bool, error) {
		return n.collab.Validator.ValidateOutput(ctx, mode, payload)
	})
	if err != nil {
		n.log.Warn("output validator failed, accepting", "mode", mode, "error", err)
		return true
	}
	return ok
}

// timed wraps a string-returning collaborator call with latency metrics.
func (n *Narrator) timed(ctx context.Context, role string, fn func() (string, error)) (string, error) {
	start := time.Now()
	out, err := fn()
	status := "ok"
	if err != nil {
		status = "error"
	}
	n.metrics.RecordCollaborator(ctx, role, status, time.Since(start).Seconds())
	return out, err
}

// timed2 is [Narrator.timed] for bool-returning calls.
func (n *Narrator) timed2(ctx context.Context, role string, fn func() (bool, error)) (bool, error) {
	start := time.Now()
	out, err := fn()
	status := "ok"
	if err != nil {
		status = "error"
	}
	n.metrics.RecordCollaborator(ctx, role, status, time.Since(start).Seconds())
	return out, err
}

// RenderView lists the view's known entities as prompt context for the
// conversation collaborator.
func RenderView(view nl.WorldView) string {
	s := "Current area: " + view.AreaName
	if len(view.Characters) > 0 {
		s += "\nKnown people: " + strings.Join(view.Characters, "; ")
	}
	if len(view.Items) > 0 {
		s += "\nKnown items: " + strings.Join(view.Items, "; ")
	}
	if len(view.Areas) > 0 {
		s += "\nKnown areas: " + strings.Join(view.Areas, "; ")
	}
	return s
}
