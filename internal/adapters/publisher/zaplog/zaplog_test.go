package zaplog

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/vshulcz/Gometra/internal/domain"
)

func TestPublisher_ConsumesWholeCycle(t *testing.T) {
	t.Parallel()

	p := New(zap.NewNop())

	seen := 0
	seq := func(yield func(domain.MetricValues) bool) {
		for i := range 3 {
			seen++
			mv := domain.MetricValues{
				Tags:      domain.NewTagSet(map[string]string{domain.TagInstance: string(rune('a' + i))}),
				Timestamp: int64(i),
				Metrics:   []domain.MetricValue{{Name: "hits", Kind: domain.Counter, Value: 1}},
			}
			if !yield(mv) {
				return
			}
		}
	}

	// A cancelled context must not cut the cycle short: the shutdown drain
	// relies on this sink accepting the tail.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := p.Publish(ctx, seq); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if seen != 3 {
		t.Fatalf("consumed %d records, want 3", seen)
	}
}

func TestNew_NilLogger(t *testing.T) {
	t.Parallel()

	p := New(nil)
	if err := p.Publish(context.Background(), func(func(domain.MetricValues) bool) {}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
}
