// Package health derives which processor should receive traffic from both
// processors' self-reported health, and shares that decision with every
// instance through a published value.
package health

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"paygate/internal/model"
)

type Prober interface {
	CheckHealth(ctx context.Context, processor model.ProcessorType) model.ProcessorHealth
}

type Leadership interface {
	IsLeader(ctx context.Context) bool
}

type Publisher interface {
	Publish(ctx context.Context, processor model.ProcessorType) error
}

// Decide picks the routing target. The default processor is cheaper, so it
// wins unless it is failing or its latency disadvantage against the fallback
// exceeds the multiplier.
func Decide(def, fall model.ProcessorHealth, multiplier float64) model.ProcessorType {
	switch {
	case def.Failing && fall.Failing:
		return model.ProcessorNone
	case def.Failing:
		return model.ProcessorFallback
	case fall.Failing:
		return model.ProcessorDefault
	case float64(def.MinResponseTime) > float64(fall.MinResponseTime)*multiplier:
		return model.ProcessorFallback
	default:
		return model.ProcessorDefault
	}
}

// Monitor runs the probe loop. Only the elected leader actually probes; the
// loop ticks on every instance but followers skip the round.
type Monitor struct {
	prober     Prober
	leadership Leadership
	publisher  Publisher
	interval   time.Duration
	multiplier float64
}

func NewMonitor(prober Prober, leadership Leadership, publisher Publisher, interval time.Duration, multiplier float64) *Monitor {
	return &Monitor{
		prober:     prober,
		leadership: leadership,
		publisher:  publisher,
		interval:   interval,
		multiplier: multiplier,
	}
}

func (m *Monitor) Run(ctx context.Context) {
	// First round immediately, not one interval in: a cold start should not
	// hold dispatch at NONE for a full probe cycle.
	m.RunOnce(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single leader-gated probe round. A publish failure
// leaves the previously published decision standing.
func (m *Monitor) RunOnce(ctx context.Context) {
	if !m.leadership.IsLeader(ctx) {
		return
	}

	var def, fall model.ProcessorHealth
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		def = m.prober.CheckHealth(ctx, model.ProcessorDefault)
	}()
	go func() {
		defer wg.Done()
		fall = m.prober.CheckHealth(ctx, model.ProcessorFallback)
	}()
	wg.Wait()

	decision := Decide(def, fall, m.multiplier)
	if err := m.publisher.Publish(ctx, decision); err != nil {
		slog.Warn("Failed to publish routing decision", "decision", decision, "err", err)
		return
	}

	slog.Debug("Published routing decision",
		"decision", decision,
		"defaultFailing", def.Failing, "defaultMinResponseTime", def.MinResponseTime,
		"fallbackFailing", fall.Failing, "fallbackMinResponseTime", fall.MinResponseTime)
}
