package audit

import "context"

type ctxKey string

const cycleKey ctxKey = "audit_cycle"

// WithCycle stamps ctx with the flush cycle number so sinks can correlate
// their own logs with one cycle.
func WithCycle(ctx context.Context, n uint64) context.Context {
	return context.WithValue(ctx, cycleKey, n)
}

// CycleFromContext returns the cycle number stamped by WithCycle, or 0.
func CycleFromContext(ctx context.Context) uint64 {
	if ctx == nil {
		return 0
	}
	v, _ := ctx.Value(cycleKey).(uint64)
	return v
}
