// Package zaplog writes flush cycles to a structured logger. It serves as
// the fallback sink when no transport is configured.
package zaplog

import (
	"context"
	"iter"

	"go.uber.org/zap"

	"github.com/vshulcz/Gometra/internal/domain"
	"github.com/vshulcz/Gometra/internal/ports"
)

// Publisher logs one line per snapshot record.
type Publisher struct {
	log *zap.Logger
}

var _ ports.Publisher = (*Publisher)(nil)

func New(log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{log: log}
}

// Publish never fails; the whole cycle is written even when ctx is already
// cancelled, so the shutdown drain still reaches the log.
func (p *Publisher) Publish(_ context.Context, values iter.Seq[domain.MetricValues]) error {
	for mv := range values {
		p.log.Info("metrics",
			zap.Stringer("tags", mv.Tags),
			zap.Int64("timestamp", mv.Timestamp),
			zap.Any("values", mv.Metrics))
	}
	return nil
}
