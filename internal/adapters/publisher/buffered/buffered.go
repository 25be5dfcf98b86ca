// Package buffered decouples the flush loop from slow sinks with a small
// worker pool.
package buffered

import (
	"context"
	"iter"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/vshulcz/Gometra/internal/domain"
	"github.com/vshulcz/Gometra/internal/ports"
)

// Publisher queues materialized cycles and forwards them to the wrapped sink
// from a fixed number of workers. Queue capacity is twice the worker count.
type Publisher struct {
	sink    ports.Publisher
	log     *zap.Logger
	workers int
	jobs    chan []domain.MetricValues
	wg      sync.WaitGroup
}

var _ ports.Publisher = (*Publisher)(nil)

// New builds a Publisher with the given worker count. Counts below one are
// raised to one.
func New(sink ports.Publisher, workers int, log *zap.Logger) *Publisher {
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{
		sink:    sink,
		log:     log,
		workers: workers,
		jobs:    make(chan []domain.MetricValues, workers*2),
	}
}

// Start launches the workers. ctx is handed to the sink on every forwarded
// cycle.
func (p *Publisher) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for batch := range p.jobs {
				if err := p.sink.Publish(ctx, slices.Values(batch)); err != nil {
					p.log.Warn("buffered publish failed",
						zap.Int("worker", id),
						zap.Int("records", len(batch)),
						zap.Error(err))
				}
			}
		}(i + 1)
	}
}

// Stop closes the queue and waits for the workers to drain it. Publish must
// not be called after Stop.
func (p *Publisher) Stop() {
	close(p.jobs)
	p.wg.Wait()
}

// Publish materializes the cycle and enqueues it. When the queue is full it
// blocks until a worker frees a slot or ctx is cancelled.
func (p *Publisher) Publish(ctx context.Context, values iter.Seq[domain.MetricValues]) error {
	var batch []domain.MetricValues
	for mv := range values {
		batch = append(batch, mv)
	}
	if len(batch) == 0 {
		return nil
	}

	select {
	case p.jobs <- batch:
		return nil
	default:
	}
	select {
	case p.jobs <- batch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
