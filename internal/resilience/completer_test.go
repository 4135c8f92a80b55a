package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/MrWong99/fableturn/pkg/provider/nl"
	nlmock "github.com/MrWong99/fableturn/pkg/provider/nl/mock"
)

func TestCompleterPrimarySuccess(t *testing.T) {
	primary := &nlmock.Completer{Responses: []string{"from primary"}}
	secondary := &nlmock.Completer{Responses: []string{"from secondary"}}

	c := NewCompleter(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	c.AddFallback("secondary", secondary)

	got, err := c.Complete(context.Background(), nl.CompletionRequest{User: "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "from primary" {
		t.Fatalf("response = %q, want 'from primary'", got)
	}
	if len(secondary.Requests) != 0 {
		t.Fatalf("secondary called %d times, want 0", len(secondary.Requests))
	}
}

func TestCompleterFailover(t *testing.T) {
	primary := &nlmock.Completer{Err: errors.New("primary down")}
	secondary := &nlmock.Completer{Responses: []string{"from secondary"}}

	c := NewCompleter(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	c.AddFallback("secondary", secondary)

	got, err := c.Complete(context.Background(), nl.CompletionRequest{User: "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "from secondary" {
		t.Fatalf("response = %q, want 'from secondary'", got)
	}
}

func TestCompleterAllFail(t *testing.T) {
	primary := &nlmock.Completer{Err: errors.New("primary down")}
	secondary := &nlmock.Completer{Err: errors.New("secondary down")}

	c := NewCompleter(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	c.AddFallback("secondary", secondary)

	if _, err := c.Complete(context.Background(), nl.CompletionRequest{User: "hi"}); !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestCompleterBreakerSkipsDeadPrimary(t *testing.T) {
	primary := &nlmock.Completer{Err: errors.New("primary down")}
	secondary := &nlmock.Completer{Responses: []string{"a", "b", "c"}}

	c := NewCompleter(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 2},
	})
	c.AddFallback("secondary", secondary)

	ctx := context.Background()
	for range 3 {
		if _, err := c.Complete(ctx, nl.CompletionRequest{User: "hi"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	// The first two calls reach the primary and trip its breaker; the third
	// must be routed straight to the fallback.
	if len(primary.Requests) != 2 {
		t.Fatalf("primary called %d times, want 2", len(primary.Requests))
	}
	if len(secondary.Requests) != 3 {
		t.Fatalf("secondary called %d times, want 3", len(secondary.Requests))
	}
}
