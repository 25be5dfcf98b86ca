// Package collect implements the aggregated metrics collection pipeline:
// producer contexts write counters and gauges into a shared table, and a
// single flush loop periodically drains the table into the configured
// publisher.
package collect

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/vshulcz/Gometra/internal/domain"
	"github.com/vshulcz/Gometra/internal/ports"
	"github.com/vshulcz/Gometra/internal/services/audit"
)

// State is the lifecycle phase of a Service.
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Defaults applied by Config.normalize for unset fields.
const (
	DefaultPeriod      = 10 * time.Second
	DefaultStopTimeout = 5 * time.Second
)

// Config controls the flush schedule.
type Config struct {
	// InitialDelay is the wait before the first flush. Zero means the first
	// flush fires immediately after Start.
	InitialDelay time.Duration
	// Period is the fixed interval between flushes.
	Period time.Duration
	// StopTimeout bounds Stop when the caller's context has no deadline.
	StopTimeout time.Duration
}

func (c Config) normalize() Config {
	if c.InitialDelay < 0 {
		c.InitialDelay = 0
	}
	if c.Period <= 0 {
		c.Period = DefaultPeriod
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = DefaultStopTimeout
	}
	return c
}

// Service owns the aggregation table and the flush loop. Producers obtain
// contexts via Context; one goroutine drains the table every Period and
// hands the snapshot stream to the publisher. Flushes never overlap: a
// tick that fires while the publisher is still busy is skipped. A Service
// is started at most once.
type Service struct {
	cfg Config
	pub ports.Publisher
	log *zap.Logger
	aud *audit.Subject

	tbl   *table
	cycle atomic.Uint64

	mu      sync.Mutex
	state   State
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// Option tweaks optional Service collaborators.
type Option func(*Service)

// WithLogger routes flush-loop warnings to l instead of a nop logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithAudit publishes one audit event per flush cycle to subj.
func WithAudit(subj *audit.Subject) Option {
	return func(s *Service) { s.aud = subj }
}

// New creates a stopped Service that flushes into pub.
func New(cfg Config, pub ports.Publisher, opts ...Option) *Service {
	s := &Service{
		cfg: cfg.normalize(),
		pub: pub,
		log: zap.NewNop(),
		tbl: newTable(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Context returns a root MetricsContext bound to tags. Contexts stay valid
// for the process lifetime; writes issued after Stop are accepted but no
// longer flushed.
func (s *Service) Context(tags map[string]string) ports.MetricsContext {
	return metricsContext{tags: domain.NewTagSet(tags), tbl: s.tbl}
}

// State reports the current lifecycle phase.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start launches the flush loop. A Service starts at most once; starting
// again, even after Stop, returns domain.ErrAlreadyStarted.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return domain.ErrAlreadyStarted
	}
	s.started = true
	s.state = StateStarting

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx)

	s.state = StateRunning
	s.log.Info("collection started",
		zap.Duration("initial_delay", s.cfg.InitialDelay),
		zap.Duration("period", s.cfg.Period))
	return nil
}

// Stop halts the flush loop, interrupting a publisher blocked in a
// ctx-aware wait, and waits for the loop to exit. The wait is bounded by
// the caller's deadline when ctx carries one, otherwise by
// Config.StopTimeout; on expiry domain.ErrShutdownTimeout is returned.
// After a successful Stop the table is discarded and no further publisher
// calls occur. Stopping a stopped or never-started Service is a no-op.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started || s.state == StateStopped {
		s.mu.Unlock()
		return nil
	}
	if s.state != StateStopping {
		s.state = StateStopping
		s.cancel()
	}
	done := s.done
	s.mu.Unlock()

	if err := s.await(ctx, done); err != nil {
		return err
	}

	s.mu.Lock()
	first := s.state != StateStopped
	s.state = StateStopped
	s.mu.Unlock()

	if first {
		s.tbl.clear()
		s.log.Info("collection stopped")
	}
	return nil
}

func (s *Service) await(ctx context.Context, done chan struct{}) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.StopTimeout)
		defer cancel()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: flush loop still running", domain.ErrShutdownTimeout)
	}
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	delay := time.NewTimer(s.cfg.InitialDelay)
	defer delay.Stop()
	select {
	case <-ctx.Done():
		s.flush(ctx)
		return
	case <-delay.C:
	}
	s.flush(ctx)

	tick := time.NewTicker(s.cfg.Period)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			// Shutdown drain. ctx is already cancelled, so ctx-honoring
			// publishers treat it as a no-op while synchronous sinks still
			// receive the tail of the data.
			s.flush(ctx)
			return
		case <-tick.C:
			s.flush(ctx)
		}
	}
}

func (s *Service) flush(ctx context.Context) {
	n := s.cycle.Add(1)
	ctx = audit.WithCycle(ctx, n)
	ts := time.Now().Unix()

	var (
		records int
		names   []string
	)
	seq := s.tbl.drain(ts)
	observed := func(yield func(domain.MetricValues) bool) {
		for mv := range seq {
			records++
			for _, m := range mv.Metrics {
				names = append(names, m.Name)
			}
			if !yield(mv) {
				return
			}
		}
	}

	err := s.pub.Publish(ctx, observed)
	failed := err != nil && ctx.Err() == nil
	if failed {
		s.log.Warn("publish failed, cycle dropped",
			zap.Uint64("cycle", n),
			zap.Int("records", records),
			zap.Error(err))
	}

	if s.aud != nil {
		evt := audit.Event{Cycle: n, Timestamp: ts, Records: records, Metrics: names}
		if failed {
			evt.Err = err.Error()
		}
		s.aud.Publish(ctx, evt)
	}
}
