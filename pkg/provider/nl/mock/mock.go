// Package mock provides scripted collaborator implementations for tests.
package mock

import (
	"context"

	"github.com/MrWong99/fableturn/pkg/provider/nl"
)

// PrecheckFunc adapts a function to nl.Precheck.
type PrecheckFunc func(ctx context.Context, text string) (nl.Label, error)

func (f PrecheckFunc) Precheck(ctx context.Context, text string) (nl.Label, error) {
	return f(ctx, text)
}

// ParserFunc adapts a function to nl.IntentParser.
type ParserFunc func(ctx context.Context, text string, view nl.WorldView) ([]nl.ActionRecord, error)

func (f ParserFunc) ParseIntent(ctx context.Context, text string, view nl.WorldView) ([]nl.ActionRecord, error) {
	return f(ctx, text, view)
}

// UndoFunc adapts a function to nl.UndoSelector.
type UndoFunc func(ctx context.Context, text string, summaries []string) (int, error)

func (f UndoFunc) SelectUndo(ctx context.Context, text string, summaries []string) (int, error) {
	return f(ctx, text, summaries)
}

// ConverseFunc adapts a function to nl.Conversation.
type ConverseFunc func(ctx context.Context, text string, label nl.Label, extra string) (string, error)

func (f ConverseFunc) Converse(ctx context.Context, text string, label nl.Label, extra string) (string, error) {
	return f(ctx, text, label, extra)
}

// NarrateFunc adapts a function to nl.Storyteller.
type NarrateFunc func(ctx context.Context, playerInput, recognizedAction, worldResult, rejected string) (string, error)

func (f NarrateFunc) Narrate(ctx context.Context, playerInput, recognizedAction, worldResult, rejected string) (string, error) {
	return f(ctx, playerInput, recognizedAction, worldResult, rejected)
}

// ValidateFunc adapts a function to nl.OutputValidator.
type ValidateFunc func(ctx context.Context, mode, payload string) (bool, error)

func (f ValidateFunc) ValidateOutput(ctx context.Context, mode, payload string) (bool, error) {
	return f(ctx, mode, payload)
}

// Completer replays scripted responses in order, then repeats the last one.
type Completer struct {
	Responses []string
	Err       error

	// Requests records every request for assertions.
	Requests []nl.CompletionRequest

	next int
}

func (c *Completer) Complete(_ context.Context, req nl.CompletionRequest) (string, error) {
	c.Requests = append(c.Requests, req)
	if c.Err != nil {
		return "", c.Err
	}
	if len(c.Responses) == 0 {
		return "", nil
	}
	i := c.next
	if i >= len(c.Responses) {
		i = len(c.Responses) - 1
	}
	c.next++
	return c.Responses[i], nil
}

// Passthrough returns collaborators that never get in the way: precheck
// says clear, parsing echoes the given records, narration echoes the world
// result, and validation accepts everything.
func Passthrough(records ...nl.ActionRecord) nl.Collaborators {
	return nl.Collaborators{
		Precheck: PrecheckFunc(func(context.Context, string) (nl.Label, error) {
			return nl.LabelClear, nil
		}),
		Parser: ParserFunc(func(context.Context, string, nl.WorldView) ([]nl.ActionRecord, error) {
			return records, nil
		}),
		UndoSelector: UndoFunc(func(context.Context, string, []string) (int, error) {
			return 0, nil
		}),
		Conversation: ConverseFunc(func(_ context.Context, text string, _ nl.Label, _ string) (string, error) {
			return "", nil
		}),
		Storyteller: NarrateFunc(func(_ context.Context, _, _, worldResult, _ string) (string, error) {
			return worldResult, nil
		}),
		Validator: ValidateFunc(func(context.Context, string, string) (bool, error) {
			return true, nil
		}),
	}
}
