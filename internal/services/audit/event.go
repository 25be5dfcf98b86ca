package audit

// Event describes the outcome of one flush cycle: how many records the
// cycle produced, which metric names it carried, and the publish error if
// the cycle was dropped.
type Event struct {
	Cycle     uint64   `json:"cycle"`
	Timestamp int64    `json:"ts"`
	Records   int      `json:"records"`
	Metrics   []string `json:"metrics,omitempty"`
	Err       string   `json:"err,omitempty"`
}
