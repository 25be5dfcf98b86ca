package ports

import (
	"context"
	"iter"

	"github.com/vshulcz/Gometra/internal/domain"
)

// Publisher consumes the snapshot stream of one flush cycle. The sequence
// is lazy, finite and single-pass; implementations must fully consume it
// before returning and should honor ctx cancellation so a blocked publish
// can be interrupted during shutdown. A returned error drops the cycle's
// data; the next cycle runs with a fresh snapshot.
type Publisher interface {
	Publish(ctx context.Context, values iter.Seq[domain.MetricValues]) error
}
