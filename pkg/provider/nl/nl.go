// Package nl defines the natural-language collaborator interfaces the
// engine leans on: input prechecking, intent parsing, undo selection,
// conversation, storytelling, and output validation. All collaborators are
// pure request/response; implementations may be LLM-backed (see the openai
// and anyllm subpackages) or scripted stubs.
//
// Collaborator failures are handled fail-open by the callers: a dead
// precheck reads as "clear", a dead output validator accepts, and an empty
// parse becomes a single do_nothing step.
package nl

import (
	"context"
	"strings"
)

// Label classifies a raw player input before parsing.
type Label string

const (
	LabelClear        Label = "clear"
	LabelLong         Label = "long"
	LabelInsufficient Label = "insufficient"
	LabelImpossible   Label = "impossible"
	LabelQuestion     Label = "question"
	LabelUndo         Label = "undo"
)

// NormalizeLabel maps a model's spelling onto the closed label set.
// Tolerated synonyms: redo means undo, unrelated/irrelevant mean
// impossible, unknown means insufficient. Anything unrecognised reads as
// clear so a confused classifier never blocks play.
func NormalizeLabel(s string) Label {
	s = strings.ToLower(strings.TrimSpace(strings.Trim(strings.TrimSpace(s), `."'`)))
	switch s {
	case "clear":
		return LabelClear
	case "long", "too_long", "too long":
		return LabelLong
	case "insufficient", "unknown", "unclear":
		return LabelInsufficient
	case "impossible", "unrelated", "irrelevant":
		return LabelImpossible
	case "question":
		return LabelQuestion
	case "undo", "redo":
		return LabelUndo
	}
	return LabelClear
}

// WorldView is the read-only context handed to the parser and conversation
// collaborators: names and uids only, no hidden state.
type WorldView struct {
	// AreaName is the player's current area.
	AreaName string

	// Areas, Characters, and Items list "Name (uid)" entries the player
	// knows about.
	Areas      []string
	Characters []string
	Items      []string

	// PreviousNarration is the last text shown to the player.
	PreviousNarration string
}

// ActionRecord is one parsed action in wire form. Slots hold entity tokens
// (uid or name); empty means absent.
type ActionRecord struct {
	Action          string
	RequestedAction string
	Target          string
	IndirectTarget  string
	Item            string
	Location        string
	Topic           string
}

// Precheck classifies raw input before any parsing happens.
type Precheck interface {
	Precheck(ctx context.Context, text string) (Label, error)
}

// IntentParser turns free text into zero or more action records.
type IntentParser interface {
	ParseIntent(ctx context.Context, text string, view WorldView) ([]ActionRecord, error)
}

// UndoSelector picks a snapshot 1..N from the listed summaries; 0 cancels.
type UndoSelector interface {
	SelectUndo(ctx context.Context, text string, summaries []string) (int, error)
}

// Conversation produces short in-character replies for inputs that are not
// actionable, plus NPC dialogue and next-step suggestions.
type Conversation interface {
	Converse(ctx context.Context, text string, label Label, extra string) (string, error)
}

// Storyteller rewrites factual world results into second-person narration.
type Storyteller interface {
	Narrate(ctx context.Context, playerInput, recognizedAction, worldResult, rejected string) (string, error)
}

// Validation modes for [OutputValidator].
const (
	ModeStory        = "story"
	ModeConversation = "conversation"
)

// OutputValidator accepts or rejects generated text.
type OutputValidator interface {
	ValidateOutput(ctx context.Context, mode, payload string) (bool, error)
}

// Collaborators bundles one implementation of every interface.
type Collaborators struct {
	Precheck     Precheck
	Parser       IntentParser
	UndoSelector UndoSelector
	Conversation Conversation
	Storyteller  Storyteller
	Validator    OutputValidator
}

// CompletionRequest is one prompt for a [Completer].
type CompletionRequest struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

// Completer is the minimal text-generation surface the [Suite] builds on.
// Implemented by the openai and anyllm subpackages.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Embedder turns text into vectors for the turn archive's similarity
// search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
