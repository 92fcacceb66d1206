// Package dispatch drains the work queue in batches and forwards each
// payment to the currently preferred processor.
package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"paygate/internal/circuitbreaker"
	"paygate/internal/model"
	"paygate/internal/queue"
	"paygate/internal/sentinel"
	"paygate/internal/store"
)

type Router interface {
	Current(ctx context.Context) model.ProcessorType
}

type Sender interface {
	Send(ctx context.Context, processor model.ProcessorType, p model.QueuedPayment, requestedAt time.Time) error
}

type Config struct {
	BatchSize    int
	IdleInterval time.Duration
}

type Dispatcher struct {
	queue    queue.Queue
	store    store.Store
	sender   Sender
	router   Router
	breakers map[model.ProcessorType]*circuitbreaker.Breaker

	batchSize int
	idle      time.Duration
	metrics   *Metrics
}

func New(q queue.Queue, st store.Store, sender Sender, router Router, cfg Config) *Dispatcher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 25
	}
	if cfg.IdleInterval <= 0 {
		cfg.IdleInterval = 15 * time.Millisecond
	}

	return &Dispatcher{
		queue:  q,
		store:  st,
		sender: sender,
		router: router,
		breakers: map[model.ProcessorType]*circuitbreaker.Breaker{
			model.ProcessorDefault:  circuitbreaker.New(10, 10*time.Second, 3),
			model.ProcessorFallback: circuitbreaker.New(10, 10*time.Second, 3),
		},
		batchSize: cfg.BatchSize,
		idle:      cfg.IdleInterval,
		metrics:   &Metrics{},
	}
}

// Run loops forever: drain a batch, resolve every item concurrently, go
// again. An empty queue sleeps one idle interval to avoid busy-spinning;
// that bounds enqueue-to-first-attempt latency without hot-looping Redis.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := d.DrainOnce(ctx)
		if err != nil {
			slog.Warn("Batch drain failed", "err", err)
			d.sleep(ctx)
			continue
		}
		if n == 0 {
			d.sleep(ctx)
		}
	}
}

// DrainOnce dequeues one batch and dispatches its items concurrently. At
// most one batch is in flight; within it, latency is bounded by the slowest
// item rather than the sum.
func (d *Dispatcher) DrainOnce(ctx context.Context) (int, error) {
	batch, err := d.queue.DequeueBatch(ctx, d.batchSize)
	if err != nil {
		return 0, err
	}
	if len(batch) == 0 {
		return 0, nil
	}

	var wg sync.WaitGroup
	for _, p := range batch {
		wg.Add(1)
		go func(p model.QueuedPayment) {
			defer wg.Done()
			d.dispatchOne(ctx, p)
		}(p)
	}
	wg.Wait()

	d.metrics.addBatch()
	return len(batch), nil
}

func (d *Dispatcher) dispatchOne(ctx context.Context, p model.QueuedPayment) {
	target := d.router.Current(ctx)
	if target == model.ProcessorNone {
		d.requeue(ctx, p)
		return
	}

	breaker := d.breakers[target]
	if breaker != nil && !breaker.Allow() {
		d.requeue(ctx, p)
		return
	}

	requestedAt := time.Now().UTC()
	err := d.sender.Send(ctx, target, p, requestedAt)
	switch {
	case err == nil:
		if breaker != nil {
			breaker.Success()
		}
	case sentinel.IsDuplicate(err):
		// The processor has this payment already; record it if we never
		// did and move on. The store write is idempotent either way.
		if breaker != nil {
			breaker.Success()
		}
		d.metrics.addDuplicate()
	default:
		if breaker != nil {
			breaker.Failure()
		}
		// Retry the original payment, not the stamped attempt.
		d.requeue(ctx, p)
		return
	}

	if d.record(ctx, target, p, requestedAt) {
		d.metrics.addDispatched()
	}
}

// record persists the processed payment. The upstream already accepted it,
// so the payment must not vanish on a storage failure: the write runs on a
// detached context, and if storage stays down past the in-place retries the
// payment goes back to the queue. The next attempt draws a duplicate
// acceptance upstream and the idempotent Record gets another chance.
func (d *Dispatcher) record(ctx context.Context, processor model.ProcessorType, p model.QueuedPayment, requestedAt time.Time) bool {
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()

	var err error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			time.Sleep(50 * time.Millisecond)
		}
		if err = d.store.Record(storeCtx, processor, p.CorrelationID, p.Amount, requestedAt); err == nil {
			return true
		}
	}

	slog.Error("Processor accepted payment but the processed record failed to persist, requeueing",
		"correlationId", p.CorrelationID, "processor", processor, "err", err)
	d.requeue(ctx, p)
	return false
}

// requeue puts a payment back on the tail. The entry is already off the
// durable queue, so the push must land even when the drain context was
// canceled mid-flight by a shutdown.
func (d *Dispatcher) requeue(ctx context.Context, p model.QueuedPayment) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()

	if err := d.queue.Requeue(ctx, p); err != nil {
		slog.Error("Requeue failed", "correlationId", p.CorrelationID, "err", err)
		return
	}
	d.metrics.addRequeued()
}

func (d *Dispatcher) sleep(ctx context.Context) {
	timer := time.NewTimer(d.idle)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (d *Dispatcher) Metrics() MetricsSnapshot {
	return d.metrics.snapshot()
}
