package collect

import (
	"github.com/vshulcz/Gometra/internal/domain"
	"github.com/vshulcz/Gometra/internal/ports"
)

// metricsContext is a value handle over the shared table: child contexts
// copy the handle with an extended TagSet, the table is never copied.
type metricsContext struct {
	tags domain.TagSet
	tbl  *table
}

var _ ports.MetricsContext = metricsContext{}

func (c metricsContext) Increment(name string, delta int64) {
	c.tbl.increment(c.tags, name, delta)
}

func (c metricsContext) Gauge(name string, value int64) {
	c.tbl.put(c.tags, name, value)
}

func (c metricsContext) ChildContext(name, value string) (ports.MetricsContext, error) {
	tags, err := c.tags.Extend(name, value)
	if err != nil {
		return nil, err
	}
	return metricsContext{tags: tags, tbl: c.tbl}, nil
}

func (c metricsContext) Tags() domain.TagSet { return c.tags }
