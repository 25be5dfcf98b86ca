// Package runtime samples Go runtime stats and host CPU/RAM usage into a
// metrics context.
package runtime

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/vshulcz/Gometra/internal/ports"
)

// Sampler periodically writes Go runtime stats plus host CPU/RAM metrics
// into the metrics context it was built with. Each runtime sample also
// increments the PollCount counter, so the published cycle reports how many
// samples went into it.
type Sampler struct {
	mctx ports.MetricsContext
	stop chan struct{}
	wg   sync.WaitGroup
}

// New creates a Sampler that emits through mctx.
func New(mctx ports.MetricsContext) *Sampler {
	return &Sampler{
		mctx: mctx,
		stop: make(chan struct{}),
	}
}

// Start launches background goroutines that sample runtime and host metrics at the given interval.
func (s *Sampler) Start(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer t.Stop()
		var ms runtime.MemStats
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-t.C:
				runtime.ReadMemStats(&ms)

				s.mctx.Gauge(MAlloc, int64(ms.Alloc))
				s.mctx.Gauge(MBuckHashSys, int64(ms.BuckHashSys))
				s.mctx.Gauge(MFrees, int64(ms.Frees))
				s.mctx.Gauge(MGCSys, int64(ms.GCSys))
				s.mctx.Gauge(MHeapAlloc, int64(ms.HeapAlloc))
				s.mctx.Gauge(MHeapIdle, int64(ms.HeapIdle))
				s.mctx.Gauge(MHeapInuse, int64(ms.HeapInuse))
				s.mctx.Gauge(MHeapObjects, int64(ms.HeapObjects))
				s.mctx.Gauge(MHeapReleased, int64(ms.HeapReleased))
				s.mctx.Gauge(MHeapSys, int64(ms.HeapSys))
				s.mctx.Gauge(MLastGC, int64(ms.LastGC))
				s.mctx.Gauge(MLookups, int64(ms.Lookups))
				s.mctx.Gauge(MMCacheInuse, int64(ms.MCacheInuse))
				s.mctx.Gauge(MMCacheSys, int64(ms.MCacheSys))
				s.mctx.Gauge(MMSpanInuse, int64(ms.MSpanInuse))
				s.mctx.Gauge(MMSpanSys, int64(ms.MSpanSys))
				s.mctx.Gauge(MMallocs, int64(ms.Mallocs))
				s.mctx.Gauge(MNextGC, int64(ms.NextGC))
				s.mctx.Gauge(MNumForcedGC, int64(ms.NumForcedGC))
				s.mctx.Gauge(MNumGC, int64(ms.NumGC))
				s.mctx.Gauge(MOtherSys, int64(ms.OtherSys))
				s.mctx.Gauge(MPauseTotalNs, int64(ms.PauseTotalNs))
				s.mctx.Gauge(MStackInuse, int64(ms.StackInuse))
				s.mctx.Gauge(MStackSys, int64(ms.StackSys))
				s.mctx.Gauge(MSys, int64(ms.Sys))
				s.mctx.Gauge(MTotalAlloc, int64(ms.TotalAlloc))

				s.mctx.Gauge(MGoroutines, int64(runtime.NumGoroutine()))
				s.mctx.Increment(MPollCount, 1)
			}
		}
	}()

	tSys := time.NewTicker(interval)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer tSys.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-tSys.C:
				if vm, err := mem.VirtualMemory(); err == nil && vm != nil {
					s.mctx.Gauge(TotalMemory, int64(vm.Total))
					s.mctx.Gauge(FreeMemory, int64(vm.Free))
				}
				if pct, err := cpu.Percent(0, true); err == nil {
					for i, p := range pct {
						s.mctx.Gauge(fmt.Sprintf("%s%d", CPUutilization, i+1), int64(math.Round(p)))
					}
				}
			}
		}
	}()

	return nil
}

// Stop signals every sampler goroutine to halt and waits for them to finish.
func (s *Sampler) Stop() {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	s.wg.Wait()
}
