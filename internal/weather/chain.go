package weather

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var errNoProviders = errors.New("no weather providers configured")

// Chain tries providers in order and returns the first successful snapshot.
type Chain struct {
	providers []Provider
	logger    *zap.SugaredLogger
}

// NewChain creates a Chain. A nil logger disables logging.
func NewChain(logger *zap.SugaredLogger, providers ...Provider) *Chain {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Chain{providers: providers, logger: logger}
}

func (c *Chain) Name() string {
	return "chain"
}

// FetchCurrent returns the snapshot from the first provider that succeeds.
// If all fail, the errors are joined.
func (c *Chain) FetchCurrent(ctx context.Context, lat, lon float64) (Snapshot, error) {
	if len(c.providers) == 0 {
		return Snapshot{}, errNoProviders
	}

	var errs []error
	for _, p := range c.providers {
		snap, err := p.FetchCurrent(ctx, lat, lon)
		if err == nil {
			return snap, nil
		}
		c.logger.Warnw("weather provider failed", "provider", p.Name(), "lat", lat, "lon", lon, "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		if ctx.Err() != nil {
			break
		}
	}
	return Snapshot{}, errors.Join(errs...)
}
