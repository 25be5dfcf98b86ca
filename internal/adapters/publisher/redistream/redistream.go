// Package redistream appends flush cycles to a Redis stream so downstream
// consumers can tail the metrics feed.
package redistream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vshulcz/Gometra/internal/domain"
	"github.com/vshulcz/Gometra/internal/ports"
)

// DefaultStream is the stream key used when none is configured.
const DefaultStream = "gometra:metrics"

// The stream is capped so an unattended consumer cannot grow it without
// bound. XAdd trims approximately, which is what MAXLEN ~ does.
const defaultMaxLen = 10_000

// Publisher writes one stream entry per snapshot record. All entries of a
// cycle go out in a single pipelined round trip.
type Publisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

var _ ports.Publisher = (*Publisher)(nil)

// New connects to the Redis instance at addr and verifies the connection
// with a ping before returning.
func New(addr, stream string) (*Publisher, error) {
	if addr == "" {
		return nil, errors.New("redis address is required")
	}
	if stream == "" {
		stream = DefaultStream
	}

	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &Publisher{client: client, stream: stream, maxLen: defaultMaxLen}, nil
}

// Publish appends the cycle to the stream. Entry fields: tags as a JSON
// object, timestamp in epoch seconds, metrics as a JSON array.
func (p *Publisher) Publish(ctx context.Context, values iter.Seq[domain.MetricValues]) error {
	var batch []domain.MetricValues
	for mv := range values {
		batch = append(batch, mv)
	}
	if len(batch) == 0 {
		return nil
	}

	_, err := p.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, mv := range batch {
			tags, err := json.Marshal(mv.Tags)
			if err != nil {
				return fmt.Errorf("marshal tags: %w", err)
			}
			metrics, err := json.Marshal(mv.Metrics)
			if err != nil {
				return fmt.Errorf("marshal metrics: %w", err)
			}
			pipe.XAdd(ctx, &redis.XAddArgs{
				Stream: p.stream,
				MaxLen: p.maxLen,
				Approx: true,
				Values: map[string]any{
					"tags":      string(tags),
					"timestamp": mv.Timestamp,
					"metrics":   string(metrics),
				},
			})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("xadd %s: %w", p.stream, err)
	}
	return nil
}

// Close releases the underlying connection.
func (p *Publisher) Close() error {
	return p.client.Close()
}
