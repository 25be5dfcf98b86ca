package ports

import (
	"github.com/vshulcz/Gometra/internal/domain"
)

// MetricsContext is a handle bound to one TagSet. Producers use it to emit
// counters and gauges into the shared aggregation table and to derive child
// contexts that extend the TagSet by one pair.
type MetricsContext interface {
	// Increment adds delta to the counter cell for (tags, name). It never
	// blocks and is safe under unbounded concurrent callers.
	Increment(name string, delta int64)
	// Gauge overwrites the gauge cell for (tags, name). The last writer
	// before a flush snapshot wins.
	Gauge(name string, value int64)
	// ChildContext derives a context whose TagSet carries one more pair and
	// which shares this context's aggregation table. It fails with
	// domain.ErrInvalidTag when name is already present in the lineage.
	ChildContext(name, value string) (MetricsContext, error)
	// Tags returns the TagSet this context writes under.
	Tags() domain.TagSet
}
