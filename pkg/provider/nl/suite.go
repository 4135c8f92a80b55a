package nl

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Suite implements every collaborator interface on top of a single
// [Completer]. Prompting details live here; transport details live in the
// backend packages.
type Suite struct {
	completer Completer

	// temperature used for creative calls (conversation, storytelling).
	// Classification calls always run at 0.
	temperature float64
}

// SuiteOption customises a Suite.
type SuiteOption func(*Suite)

// WithTemperature sets the sampling temperature for creative calls.
func WithTemperature(t float64) SuiteOption {
	return func(s *Suite) { s.temperature = t }
}

// NewSuite returns a Suite over the completer.
func NewSuite(c Completer, opts ...SuiteOption) *Suite {
	s := &Suite{completer: c, temperature: 0.7}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var (
	_ Precheck        = (*Suite)(nil)
	_ IntentParser    = (*Suite)(nil)
	_ UndoSelector    = (*Suite)(nil)
	_ Conversation    = (*Suite)(nil)
	_ Storyteller     = (*Suite)(nil)
	_ OutputValidator = (*Suite)(nil)
)

// Collaborators bundles the suite as every collaborator at once.
func (s *Suite) Collaborators() Collaborators {
	return Collaborators{
		Precheck:     s,
		Parser:       s,
		UndoSelector: s,
		Conversation: s,
		Storyteller:  s,
		Validator:    s,
	}
}

// Precheck classifies the input; unknown spellings normalise per the
// tolerant label mapping.
func (s *Suite) Precheck(ctx context.Context, text string) (Label, error) {
	out, err := s.completer.Complete(ctx, CompletionRequest{
		System:    precheckSystem,
		User:      text,
		MaxTokens: 8,
	})
	if err != nil {
		return "", fmt.Errorf("nl: precheck: %w", err)
	}
	return NormalizeLabel(out), nil
}

// ParseIntent translates the input into action records.
func (s *Suite) ParseIntent(ctx context.Context, text string, view WorldView) ([]ActionRecord, error) {
	user := renderWorldView(view) + "\nPlayer input: " + text
	out, err := s.completer.Complete(ctx, CompletionRequest{
		System:    parserSystem,
		User:      user,
		MaxTokens: 400,
	})
	if err != nil {
		return nil, fmt.Errorf("nl: parse intent: %w", err)
	}
	return DecodeActions(out), nil
}

// SelectUndo picks a snapshot index; out-of-range answers clamp to the
// nearest valid value and garbage reads as cancel.
func (s *Suite) SelectUndo(ctx context.Context, text string, summaries []string) (int, error) {
	user := strings.Join(summaries, "\n") + "\nPlayer request: " + text
	out, err := s.completer.Complete(ctx, CompletionRequest{
		System:    undoSystem,
		User:      user,
		MaxTokens: 8,
	})
	if err != nil {
		return 0, fmt.Errorf("nl: select undo: %w", err)
	}
	k, convErr := strconv.Atoi(strings.TrimSpace(out))
	if convErr != nil {
		return 0, nil
	}
	if k < 0 {
		k = 0
	}
	if k > len(summaries) {
		k = len(summaries)
	}
	return k, nil
}

// Converse produces a short in-fiction reply; extra carries label-specific
// guidance and the known-entity listing.
func (s *Suite) Converse(ctx context.Context, text string, label Label, extra string) (string, error) {
	user := text
	if extra != "" {
		user = extra + "\nPlayer input: " + text
	}
	out, err := s.completer.Complete(ctx, CompletionRequest{
		System:      converseSystem + labelGuidance(label),
		User:        user,
		Temperature: s.temperature,
		MaxTokens:   120,
	})
	if err != nil {
		return "", fmt.Errorf("nl: converse: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// labelGuidance appends per-label steering to the conversation prompt.
func labelGuidance(label Label) string {
	switch label {
	case LabelQuestion:
		return "\nThe player asked a question: answer it from what the character knows."
	case LabelLong:
		return "\nThe player crammed in too much at once: ask them to take it one step at a time."
	case LabelInsufficient:
		return "\nThe player was too vague: ask for the one missing detail."
	case LabelImpossible:
		return "\nThe player asked for something impossible here: say so gently, in character."
	}
	return ""
}

// Narrate rewrites the factual world result into second-person narration.
// A non-empty rejected candidate is fed back so the next attempt differs.
func (s *Suite) Narrate(ctx context.Context, playerInput, recognizedAction, worldResult, rejected string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Player wrote: %s\n", playerInput)
	fmt.Fprintf(&b, "Recognised action: %s\n", recognizedAction)
	fmt.Fprintf(&b, "Factual result: %s\n", worldResult)
	if rejected != "" {
		fmt.Fprintf(&b, "A previous attempt was rejected, write something different: %s\n", rejected)
	}
	out, err := s.completer.Complete(ctx, CompletionRequest{
		System:      storySystem,
		User:        b.String(),
		Temperature: s.temperature,
		MaxTokens:   150,
	})
	if err != nil {
		return "", fmt.Errorf("nl: narrate: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// ValidateOutput asks for a 1/0 verdict; anything unparseable accepts, so
// a flaky validator never blocks the story.
func (s *Suite) ValidateOutput(ctx context.Context, mode, payload string) (bool, error) {
	out, err := s.completer.Complete(ctx, CompletionRequest{
		System:    validatorSystem,
		User:      fmt.Sprintf("Mode: %s\nText: %s", mode, payload),
		MaxTokens: 4,
	})
	if err != nil {
		return false, fmt.Errorf("nl: validate output: %w", err)
	}
	return strings.TrimSpace(out) != "0", nil
}
