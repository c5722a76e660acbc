package telemetry

import (
	"context"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
)

const perfStatsInterval = 30 * time.Second

var (
	cpuGauge, _       = meter.Float64Gauge("process.cpu_percent")
	heapGauge, _      = meter.Int64Gauge("process.heap_mb")
	goroutineGauge, _ = meter.Int64Gauge("process.goroutines")
	gcGauge, _        = meter.Int64Gauge("process.gc_cycles")
)

type perfSample struct {
	heapMb     int64
	goroutines int64
	gcCycles   int64
}

func samplePerf() perfSample {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	return perfSample{
		heapMb:     int64(mem.HeapAlloc / 1_000_000),
		goroutines: int64(runtime.NumGoroutine()),
		gcCycles:   int64(mem.NumGC),
	}
}

// InstrumentPerfStats records process stats on otel gauges until ctx is done.
func InstrumentPerfStats(ctx context.Context, tel API) {
	go func() {
		ticker := time.NewTicker(perfStatsInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				sample := samplePerf()
				heapGauge.Record(ctx, sample.heapMb)
				goroutineGauge.Record(ctx, sample.goroutines)
				gcGauge.Record(ctx, sample.gcCycles)
				tel.ReportDebug("perf stats", "heap_mb", sample.heapMb, "goroutines", sample.goroutines)

				usage, err := cpu.PercentWithContext(ctx, 5*time.Second, false)
				if err != nil {
					tel.ReportWarning("perf-stats.cpu", err)
					continue
				}
				if len(usage) > 0 {
					cpuGauge.Record(ctx, usage[0])
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}
