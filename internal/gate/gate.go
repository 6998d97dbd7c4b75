// Package gate admits remote capability calls through per-capability permit
// pools. Pools are sized once at startup and shared across all jobs in the
// process, so concurrent workflows together never exceed the provider limits.
package gate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/pablopedrosap/medical-ai-template/internal/ai"
	"github.com/pablopedrosap/medical-ai-template/internal/config"
	"github.com/pablopedrosap/medical-ai-template/internal/observability"
)

// Permit is a held admission slot. Release returns the slot to the pool and
// is safe to call more than once.
type Permit struct {
	release func()
	once    sync.Once
}

// Release returns the permit to its pool. Idempotent.
func (p *Permit) Release() {
	p.once.Do(p.release)
}

// pool pairs a counting semaphore with an optional request pacer.
type pool struct {
	slots   chan struct{}
	limiter *rate.Limiter
}

// Gate holds the capability pools for one worker process.
type Gate struct {
	pools   map[string]*pool
	metrics *observability.Metrics
}

// New builds the capability pools from configuration. The literature pool
// is serialized and paced to the configured requests per minute; the text
// capabilities share small fixed pools.
func New(ocrCfg config.OCRConfig, litCfg config.LiteratureConfig, metrics *observability.Metrics) *Gate {
	litPacer := rate.NewLimiter(rate.Limit(float64(litCfg.RateLimitRPM)/60.0), 1)
	return &Gate{
		metrics: metrics,
		pools: map[string]*pool{
			ai.CapabilityOCR:              {slots: make(chan struct{}, ocrCfg.ConcurrentCalls)},
			ai.CapabilityClassification:   {slots: make(chan struct{}, 2)},
			ai.CapabilityExtraction:       {slots: make(chan struct{}, 2)},
			ai.CapabilityQuestionPlanning: {slots: make(chan struct{}, 2)},
			ai.CapabilityLiteratureSearch: {slots: make(chan struct{}, 1), limiter: litPacer},
			ai.CapabilitySynthesis:        {slots: make(chan struct{}, 2)},
		},
	}
}

// Acquire blocks until a permit for the capability is available, then waits
// out the capability's pacing interval when one is configured. The returned
// permit must be released on every exit path.
func (g *Gate) Acquire(ctx context.Context, capability string) (*Permit, error) {
	p, ok := g.pools[capability]
	if !ok {
		return nil, fmt.Errorf("gate: unknown capability %q", capability)
	}

	start := time.Now()
	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("gate: waiting for %s permit: %w", capability, ctx.Err())
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			<-p.slots
			return nil, fmt.Errorf("gate: pacing %s: %w", capability, err)
		}
	}

	g.metrics.RecordGateWait(capability, time.Since(start).Seconds())
	return &Permit{release: func() { <-p.slots }}, nil
}

// Capacity returns the pool size for a capability, or 0 when unknown.
func (g *Gate) Capacity(capability string) int {
	p, ok := g.pools[capability]
	if !ok {
		return 0
	}
	return cap(p.slots)
}
