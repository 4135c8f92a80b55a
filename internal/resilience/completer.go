package resilience

import (
	"context"

	"github.com/MrWong99/fableturn/pkg/provider/nl"
)

// Completer implements [nl.Completer] with automatic failover across multiple
// text-generation backends. Each backend has its own circuit breaker; when the
// primary fails or its breaker is open, the next healthy fallback is tried.
//
// A tripped breaker makes every collaborator call fail fast instead of
// waiting out a timeout, so the engine's fail-open rules kick in immediately.
type Completer struct {
	group *FallbackGroup[nl.Completer]
}

// Compile-time interface assertion.
var _ nl.Completer = (*Completer)(nil)

// NewCompleter creates a [Completer] with primary as the preferred backend.
func NewCompleter(primary nl.Completer, primaryName string, cfg FallbackConfig) *Completer {
	return &Completer{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional backend as a fallback.
func (c *Completer) AddFallback(name string, backend nl.Completer) {
	c.group.AddFallback(name, backend)
}

// Complete sends the request to the first healthy backend and returns its
// response. If the primary fails, subsequent fallbacks are tried.
func (c *Completer) Complete(ctx context.Context, req nl.CompletionRequest) (string, error) {
	return ExecuteWithResult(c.group, func(backend nl.Completer) (string, error) {
		return backend.Complete(ctx, req)
	})
}
