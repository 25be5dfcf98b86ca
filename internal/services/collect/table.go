package collect

import (
	"iter"
	"slices"
	"sync"

	"github.com/vshulcz/Gometra/internal/domain"
)

// table is the process-wide aggregation state: one bucket per TagSet, one
// cell per metric name inside a bucket. Buckets and cells are created
// lazily on first write and live until the owning service stops. Writers
// contend per cell, never on a table-wide lock.
type table struct {
	mu      sync.RWMutex
	buckets map[string]*bucket
}

func newTable() *table {
	return &table{buckets: make(map[string]*bucket)}
}

func (t *table) increment(tags domain.TagSet, name string, delta int64) {
	t.bucket(tags).cell(name).add(delta)
}

func (t *table) put(tags domain.TagSet, name string, value int64) {
	t.bucket(tags).cell(name).set(value)
}

func (t *table) bucket(tags domain.TagSet) *bucket {
	key := tags.Key()

	t.mu.RLock()
	b, ok := t.buckets[key]
	t.mu.RUnlock()
	if ok {
		return b
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if b, ok := t.buckets[key]; ok {
		return b
	}
	b = &bucket{tags: tags, cells: make(map[string]*cell)}
	t.buckets[key] = b
	return b
}

// drain returns a lazy single-pass sequence with one MetricValues per
// bucket that saw activity since the previous drain. Cells are read and
// reset bucket by bucket as the consumer advances, each under its own
// lock, so a writer racing the drain lands in exactly one cycle.
func (t *table) drain(ts int64) iter.Seq[domain.MetricValues] {
	t.mu.RLock()
	buckets := make([]*bucket, 0, len(t.buckets))
	for _, b := range t.buckets {
		buckets = append(buckets, b)
	}
	t.mu.RUnlock()

	return func(yield func(domain.MetricValues) bool) {
		for _, b := range buckets {
			metrics := b.drain()
			if len(metrics) == 0 {
				continue
			}
			if !yield(domain.MetricValues{Tags: b.tags, Timestamp: ts, Metrics: metrics}) {
				return
			}
		}
	}
}

// clear drops every bucket. Contexts created earlier keep writing into the
// fresh maps without error, but nothing flushes them anymore.
func (t *table) clear() {
	t.mu.Lock()
	t.buckets = make(map[string]*bucket)
	t.mu.Unlock()
}

// bucket groups the cells of one TagSet. names keeps first-observed order
// so a bucket publishes its metrics in a stable order across cycles.
type bucket struct {
	tags domain.TagSet

	mu    sync.RWMutex
	cells map[string]*cell
	names []string
}

func (b *bucket) cell(name string) *cell {
	b.mu.RLock()
	c, ok := b.cells[name]
	b.mu.RUnlock()
	if ok {
		return c
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.cells[name]; ok {
		return c
	}
	c = &cell{name: name}
	b.cells[name] = c
	b.names = append(b.names, name)
	return c
}

func (b *bucket) drain() []domain.MetricValue {
	b.mu.RLock()
	names := slices.Clone(b.names)
	cells := make([]*cell, len(names))
	for i, n := range names {
		cells[i] = b.cells[n]
	}
	b.mu.RUnlock()

	out := make([]domain.MetricValue, 0, len(cells))
	for _, c := range cells {
		if mv, ok := c.drain(); ok {
			out = append(out, mv)
		}
	}
	return out
}

// cell is one accumulator. Its kind follows the last write: increments sum
// into the value, gauge writes overwrite it. dirty marks activity since
// the previous drain.
type cell struct {
	name string

	mu    sync.Mutex
	kind  domain.Kind
	value int64
	dirty bool
}

func (c *cell) add(delta int64) {
	c.mu.Lock()
	c.kind = domain.Counter
	c.value += delta
	c.dirty = true
	c.mu.Unlock()
}

func (c *cell) set(value int64) {
	c.mu.Lock()
	c.kind = domain.Gauge
	c.value = value
	c.dirty = true
	c.mu.Unlock()
}

// drain atomically reads and resets the cell. A counter hands out its sum
// and restarts from zero; a gauge keeps its value and only clears the
// dirty flag, so an unchanged gauge stays quiet next cycle. A clean cell
// or a counter that summed to zero yields nothing.
func (c *cell) drain() (domain.MetricValue, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.dirty {
		return domain.MetricValue{}, false
	}
	c.dirty = false

	v := c.value
	if c.kind == domain.Counter {
		c.value = 0
		if v == 0 {
			return domain.MetricValue{}, false
		}
	}
	return domain.MetricValue{Name: c.name, Kind: c.kind, Value: v}, true
}
