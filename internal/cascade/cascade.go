// Package cascade runs an ordered list of provider tiers until one attempt
// succeeds. Within a tier, only key-rotation errors (invalid key, permission
// or quota denied) advance to the next attempt; any other failure abandons
// the tier and moves on to the next one.
package cascade

import (
	"context"
	"errors"
	"log/slog"

	"deckforge/pkg/ai"
)

// ErrExhausted is returned when every tier failed; callers substitute their
// deterministic fallback on it.
var ErrExhausted = errors.New("cascade: all providers exhausted")

// Attempt is one provider call, typically bound to a single API key.
type Attempt[T any] func(ctx context.Context) (T, error)

// Tier is a provider with its attempts in key order.
type Tier[T any] struct {
	Name     string
	Attempts []Attempt[T]
}

// Run tries tiers in order and returns the first success.
func Run[T any](ctx context.Context, log *slog.Logger, tiers []Tier[T]) (T, error) {
	var zero T
	for _, tier := range tiers {
		for i, attempt := range tier.Attempts {
			out, err := attempt(ctx)
			if err == nil {
				return out, nil
			}
			if ctx.Err() != nil {
				return zero, ctx.Err()
			}
			class := ai.Classify(err)
			log.Warn("cascade attempt failed",
				"provider", tier.Name,
				"attempt", i,
				"class", class.String(),
				"err", err)
			if !ai.RotatesKey(err) {
				// The provider itself is misbehaving; a different key
				// would hit the same failure.
				break
			}
		}
	}
	return zero, ErrExhausted
}
