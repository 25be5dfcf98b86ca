package domain

// Kind selects the accumulation strategy of a metric cell.
type Kind string

const (
	// Counter sums deltas between flushes and starts the next cycle from zero.
	Counter Kind = "counter"
	// Gauge keeps the last written value and is re-published only when written again.
	Gauge Kind = "gauge"
)

// MetricValue is a single measurement inside a snapshot.
type MetricValue struct {
	Name  string `json:"name"`
	Kind  Kind   `json:"kind"`
	Value int64  `json:"value"`
}

// MetricValues carries everything one TagSet produced within one flush
// cycle. Metrics keeps the order in which names were first observed, so a
// bucket publishes its metrics in a stable order across cycles.
type MetricValues struct {
	Tags      TagSet        `json:"tags"`
	Timestamp int64         `json:"timestamp"`
	Metrics   []MetricValue `json:"metrics"`
}
