package geocode

import (
	"context"

	"go.uber.org/zap"
)

// Cascade tries providers in order until one matches. Unavailable providers
// are skipped and provider errors fall through to the next one.
type Cascade struct {
	providers []Provider
}

// NewCascade creates a Cascade over providers.
func NewCascade(providers ...Provider) *Cascade {
	return &Cascade{providers: providers}
}

// Name implements Provider.
func (c *Cascade) Name() string { return "cascade" }

// Available implements Provider.
func (c *Cascade) Available() bool {
	for _, p := range c.providers {
		if p.Available() {
			return true
		}
	}
	return false
}

// Geocode implements Provider.
func (c *Cascade) Geocode(ctx context.Context, addr AddressInput) (*Result, error) {
	var lastErr error
	for _, p := range c.providers {
		if !p.Available() {
			continue
		}
		result, err := p.Geocode(ctx, addr)
		if err != nil {
			zap.L().Debug("cascade: provider error, trying next",
				zap.String("provider", p.Name()),
				zap.Error(err),
			)
			lastErr = err
			continue
		}
		if result != nil && result.Matched {
			return result, nil
		}
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if lastErr != nil {
		zap.L().Debug("cascade: no provider matched", zap.Error(lastErr))
	}
	return &Result{Matched: false, Source: "cascade"}, nil
}
