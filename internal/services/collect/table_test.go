package collect

import (
	"sync"
	"testing"

	"github.com/vshulcz/Gometra/internal/domain"
)

func drainAll(tbl *table, ts int64) []domain.MetricValues {
	var out []domain.MetricValues
	for mv := range tbl.drain(ts) {
		out = append(out, mv)
	}
	return out
}

func single(t *testing.T, tbl *table, ts int64) domain.MetricValues {
	t.Helper()
	out := drainAll(tbl, ts)
	if len(out) != 1 {
		t.Fatalf("records=%d want 1", len(out))
	}
	return out[0]
}

func TestTable_EmptyDrain(t *testing.T) {
	t.Parallel()

	tbl := newTable()
	if out := drainAll(tbl, 1); out != nil {
		t.Fatalf("drain of empty table yielded %+v", out)
	}
}

func TestTable_CounterResetsAfterDrain(t *testing.T) {
	t.Parallel()

	tbl := newTable()
	tags := domain.NewTagSet(map[string]string{domain.TagApplication: "app"})

	tbl.increment(tags, "hits", 5)
	tbl.increment(tags, "hits", 2)

	rec := single(t, tbl, 10)
	if rec.Timestamp != 10 {
		t.Fatalf("ts=%d want 10", rec.Timestamp)
	}
	if m := rec.Metrics[0]; m.Kind != domain.Counter || m.Value != 7 {
		t.Fatalf("got %+v want counter 7", m)
	}

	if out := drainAll(tbl, 11); out != nil {
		t.Fatalf("untouched counter re-published: %+v", out)
	}

	tbl.increment(tags, "hits", 3)
	rec = single(t, tbl, 12)
	if m := rec.Metrics[0]; m.Value != 3 {
		t.Fatalf("sum=%d want 3, counter must not carry over", m.Value)
	}
}

func TestTable_ZeroCounterSuppressed(t *testing.T) {
	t.Parallel()

	tbl := newTable()
	tags := domain.NewTagSet(map[string]string{domain.TagApplication: "app"})

	tbl.increment(tags, "delta", 5)
	tbl.increment(tags, "delta", -5)

	if out := drainAll(tbl, 1); out != nil {
		t.Fatalf("zero counter published: %+v", out)
	}

	tbl.increment(tags, "delta", 1)
	rec := single(t, tbl, 2)
	if m := rec.Metrics[0]; m.Value != 1 {
		t.Fatalf("sum=%d want 1", m.Value)
	}
}

func TestTable_GaugeBehaviour(t *testing.T) {
	t.Parallel()

	tbl := newTable()
	tags := domain.NewTagSet(nil)

	tbl.put(tags, "depth", 8)
	tbl.put(tags, "depth", 12)

	rec := single(t, tbl, 1)
	if m := rec.Metrics[0]; m.Kind != domain.Gauge || m.Value != 12 {
		t.Fatalf("got %+v want gauge 12", m)
	}

	if out := drainAll(tbl, 2); out != nil {
		t.Fatalf("unchanged gauge re-published: %+v", out)
	}

	// Writing again publishes, even when the value is the same.
	tbl.put(tags, "depth", 12)
	rec = single(t, tbl, 3)
	if m := rec.Metrics[0]; m.Value != 12 {
		t.Fatalf("value=%d want 12", m.Value)
	}

	tbl.put(tags, "depth", 0)
	rec = single(t, tbl, 4)
	if m := rec.Metrics[0]; m.Kind != domain.Gauge || m.Value != 0 {
		t.Fatalf("got %+v want gauge 0", m)
	}
}

func TestTable_KindFollowsLastWrite(t *testing.T) {
	t.Parallel()

	tbl := newTable()
	tags := domain.NewTagSet(nil)

	tbl.increment(tags, "mixed", 3)
	tbl.put(tags, "mixed", 10)

	rec := single(t, tbl, 1)
	if m := rec.Metrics[0]; m.Kind != domain.Gauge || m.Value != 10 {
		t.Fatalf("got %+v want gauge 10", m)
	}
}

func TestTable_NameOrderIsFirstObserved(t *testing.T) {
	t.Parallel()

	tbl := newTable()
	tags := domain.NewTagSet(nil)

	names := []string{"zz", "aa", "mm", "bb"}
	for _, name := range names {
		tbl.increment(tags, name, 1)
	}

	rec := single(t, tbl, 1)
	if len(rec.Metrics) != len(names) {
		t.Fatalf("metrics=%d want %d", len(rec.Metrics), len(names))
	}
	for i, m := range rec.Metrics {
		if m.Name != names[i] {
			t.Fatalf("metric[%d]=%q want %q", i, m.Name, names[i])
		}
	}

	// The order survives later cycles and interleaved writes.
	tbl.increment(tags, "mm", 1)
	tbl.increment(tags, "zz", 1)
	rec = single(t, tbl, 2)
	if rec.Metrics[0].Name != "zz" || rec.Metrics[1].Name != "mm" {
		t.Fatalf("order=%q,%q want zz,mm", rec.Metrics[0].Name, rec.Metrics[1].Name)
	}
}

func TestTable_BucketsAreIndependent(t *testing.T) {
	t.Parallel()

	tbl := newTable()
	a := domain.NewTagSet(map[string]string{domain.TagApplication: "a"})
	b := domain.NewTagSet(map[string]string{domain.TagApplication: "b"})

	tbl.increment(a, "hits", 1)
	tbl.increment(b, "hits", 2)

	out := drainAll(tbl, 1)
	if len(out) != 2 {
		t.Fatalf("records=%d want 2", len(out))
	}
	sums := make(map[string]int64, 2)
	for _, rec := range out {
		app, _ := rec.Tags.Value(domain.TagApplication)
		sums[app] = rec.Metrics[0].Value
	}
	if sums["a"] != 1 || sums["b"] != 2 {
		t.Fatalf("sums=%+v want a=1 b=2", sums)
	}
}

func TestTable_Clear(t *testing.T) {
	t.Parallel()

	tbl := newTable()
	tbl.increment(domain.NewTagSet(nil), "hits", 9)
	tbl.clear()

	if out := drainAll(tbl, 1); out != nil {
		t.Fatalf("drain after clear yielded %+v", out)
	}
}

// Every increment lands in exactly one drain even when drains race with
// writers.
func TestTable_ConcurrentSumConservation(t *testing.T) {
	t.Parallel()

	const (
		writers       = 8
		perWriter     = 2000
		drainAttempts = 50
	)

	tbl := newTable()
	tags := domain.NewTagSet(map[string]string{domain.TagApplication: "app"})

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				tbl.increment(tags, "hits", 1)
			}
		}()
	}

	var drained int64
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < drainAttempts; i++ {
			for rec := range tbl.drain(int64(i)) {
				for _, m := range rec.Metrics {
					drained += m.Value
				}
			}
		}
	}()

	wg.Wait()
	<-done

	// Pick up whatever the racing drains missed.
	for rec := range tbl.drain(100) {
		for _, m := range rec.Metrics {
			drained += m.Value
		}
	}

	if want := int64(writers * perWriter); drained != want {
		t.Fatalf("drained=%d want %d", drained, want)
	}
}
