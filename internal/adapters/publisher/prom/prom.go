// Package prom re-exposes published snapshots as Prometheus series over a
// scrape endpoint.
package prom

import (
	"context"
	"iter"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vshulcz/Gometra/internal/domain"
	"github.com/vshulcz/Gometra/internal/ports"
)

const (
	namespace = "gometra"
	help      = "bridged from the aggregation pipeline"
)

type series struct {
	name   string
	kind   domain.Kind
	labels prometheus.Labels
	value  float64
}

// Publisher accumulates published values and serves them as const metrics.
// Counters keep a running total across cycles, gauges the last published
// value. Tags become labels on the series.
type Publisher struct {
	mu     sync.RWMutex
	series map[string]*series
	reg    *prometheus.Registry
}

var (
	_ ports.Publisher      = (*Publisher)(nil)
	_ prometheus.Collector = (*Publisher)(nil)
)

func New() *Publisher {
	p := &Publisher{
		series: make(map[string]*series),
		reg:    prometheus.NewRegistry(),
	}
	p.reg.MustRegister(p)
	return p
}

// Handler returns the scrape endpoint for the accumulated series.
func (p *Publisher) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{})
}

// Registry exposes the backing registry so callers can add their own
// collectors next to the bridged series.
func (p *Publisher) Registry() *prometheus.Registry {
	return p.reg
}

func (p *Publisher) Publish(_ context.Context, values iter.Seq[domain.MetricValues]) error {
	for mv := range values {
		labels := promLabels(mv.Tags)
		tagKey := mv.Tags.Key()
		for _, m := range mv.Metrics {
			p.record(m, labels, tagKey)
		}
	}
	return nil
}

func (p *Publisher) record(m domain.MetricValue, labels prometheus.Labels, tagKey string) {
	key := m.Name + "\xff" + tagKey

	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.series[key]
	if !ok {
		s = &series{name: fqName(m.Name), labels: labels}
		p.series[key] = s
	}
	s.kind = m.Kind
	if m.Kind == domain.Counter {
		s.value += float64(m.Value)
	} else {
		s.value = float64(m.Value)
	}
}

// Describe intentionally sends nothing. An unchecked collector lets the same
// metric name appear under different tag sets, which the aggregation
// pipeline allows.
func (p *Publisher) Describe(chan<- *prometheus.Desc) {}

// Collect emits one const metric per series. The gatherer requires every
// sample of a family to carry the same label names and type, so labels are
// padded to the per-name union with empty values and the family type is
// taken from the first series in key order.
func (p *Publisher) Collect(ch chan<- prometheus.Metric) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	keys := make([]string, 0, len(p.series))
	for k := range p.series {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	union := make(map[string]map[string]struct{})
	kinds := make(map[string]domain.Kind)
	for _, k := range keys {
		s := p.series[k]
		u, ok := union[s.name]
		if !ok {
			u = make(map[string]struct{})
			union[s.name] = u
			kinds[s.name] = s.kind
		}
		for lk := range s.labels {
			u[lk] = struct{}{}
		}
	}

	for _, k := range keys {
		s := p.series[k]
		labels := make(prometheus.Labels, len(union[s.name]))
		for lk := range union[s.name] {
			labels[lk] = s.labels[lk]
		}
		vt := prometheus.GaugeValue
		if kinds[s.name] == domain.Counter {
			vt = prometheus.CounterValue
		}
		m, err := prometheus.NewConstMetric(prometheus.NewDesc(s.name, help, nil, labels), vt, s.value)
		if err != nil {
			continue
		}
		ch <- m
	}
}

func fqName(name string) string {
	return namespace + "_" + strings.ReplaceAll(name, ".", "_")
}

func promLabels(tags domain.TagSet) prometheus.Labels {
	m := tags.Map()
	labels := make(prometheus.Labels, len(m))
	for k, v := range m {
		labels[strings.ReplaceAll(k, ".", "_")] = v
	}
	return labels
}
