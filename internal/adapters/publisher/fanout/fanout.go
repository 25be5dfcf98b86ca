// Package fanout replicates each flush cycle to several sinks.
package fanout

import (
	"context"
	"iter"
	"slices"

	"go.uber.org/multierr"

	"github.com/vshulcz/Gometra/internal/domain"
	"github.com/vshulcz/Gometra/internal/ports"
)

// Publisher forwards every cycle to all sinks in order. A failing sink does
// not keep the remaining ones from receiving the cycle; their errors are
// combined into one.
type Publisher struct {
	sinks []ports.Publisher
}

var _ ports.Publisher = (*Publisher)(nil)

func New(sinks ...ports.Publisher) *Publisher {
	return &Publisher{sinks: slices.Clone(sinks)}
}

// Publish materializes the single-pass cycle once and replays it to each
// sink.
func (p *Publisher) Publish(ctx context.Context, values iter.Seq[domain.MetricValues]) error {
	var batch []domain.MetricValues
	for mv := range values {
		batch = append(batch, mv)
	}
	if len(batch) == 0 {
		return nil
	}

	var errs error
	for _, sink := range p.sinks {
		errs = multierr.Append(errs, sink.Publish(ctx, slices.Values(batch)))
	}
	return errs
}
