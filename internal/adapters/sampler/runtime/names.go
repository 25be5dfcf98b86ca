package runtime

// Names of the metrics the sampler emits. The runtime gauges mirror the
// runtime.MemStats fields they are read from.
const (
	MAlloc        = "Alloc"
	MBuckHashSys  = "BuckHashSys"
	MFrees        = "Frees"
	MGCSys        = "GCSys"
	MHeapAlloc    = "HeapAlloc"
	MHeapIdle     = "HeapIdle"
	MHeapInuse    = "HeapInuse"
	MHeapObjects  = "HeapObjects"
	MHeapReleased = "HeapReleased"
	MHeapSys      = "HeapSys"
	MLastGC       = "LastGC"
	MLookups      = "Lookups"
	MMCacheInuse  = "MCacheInuse"
	MMCacheSys    = "MCacheSys"
	MMSpanInuse   = "MSpanInuse"
	MMSpanSys     = "MSpanSys"
	MMallocs      = "Mallocs"
	MNextGC       = "NextGC"
	MNumForcedGC  = "NumForcedGC"
	MNumGC        = "NumGC"
	MOtherSys     = "OtherSys"
	MPauseTotalNs = "PauseTotalNs"
	MStackInuse   = "StackInuse"
	MStackSys     = "StackSys"
	MSys          = "Sys"
	MTotalAlloc   = "TotalAlloc"

	MGoroutines = "Goroutines"
	MPollCount  = "PollCount"

	TotalMemory    = "TotalMemory"
	FreeMemory     = "FreeMemory"
	CPUutilization = "CPUutilization"
)
