package scraper

import (
	"context"
	"time"

	"gonum.org/v1/gonum/stat/distuv"
)

// Delay samples how long to wait between two requests
type Delay interface {
	Next() time.Duration
}

// GammaDelay draws waits from a gamma distribution, so consecutive page
// requests don't arrive on a fixed beat
type GammaDelay struct {
	dist  distuv.Gamma
	scale time.Duration
}

// NewGammaDelay returns a sampler with the given shape; each unit is scale long
func NewGammaDelay(shape float64, scale time.Duration) *GammaDelay {
	if scale <= 0 {
		scale = time.Second
	}
	return &GammaDelay{
		dist:  distuv.Gamma{Alpha: shape, Beta: 1},
		scale: scale,
	}
}

// Next returns a sampled wait
func (g *GammaDelay) Next() time.Duration {
	return time.Duration(g.dist.Rand() * float64(g.scale))
}

// Mean is shape * scale
func (g *GammaDelay) Mean() time.Duration {
	return time.Duration(g.dist.Mean() * float64(g.scale))
}

// Fixed always waits the same amount
type Fixed time.Duration

// Next returns the fixed wait
func (f Fixed) Next() time.Duration {
	return time.Duration(f)
}

// Sleep waits for d or until ctx is done
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
