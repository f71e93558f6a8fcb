// Package benchmarks provides memory footprint benchmarks.
package benchmarks

import (
	"fmt"
	"runtime"
	"testing"

	"github.com/comalice/statesvc/internal/core"
	"github.com/comalice/statesvc/internal/primitives"
)

func memoryFootprint(b *testing.B, chart *core.Chart, initial string, numServices int) {
	b.Helper()
	var before runtime.MemStats
	runtime.ReadMemStats(&before)
	services := make([]*core.Service, numServices)
	for i := 0; i < numServices; i++ {
		services[i] = core.New(chart, primitives.NewState(initial, nil), core.WithID(fmt.Sprintf("svc-%d", i)))
		if err := services[i].Start(); err != nil {
			b.Fatal(err)
		}
	}
	runtime.GC()
	var after runtime.MemStats
	runtime.ReadMemStats(&after)
	bytesPerService := (after.TotalAlloc - before.TotalAlloc) / uint64(numServices)
	b.ReportMetric(float64(bytesPerService)/1024, "KB/service")
	for _, svc := range services {
		_ = svc.Dispose(false)
	}
}

func BenchmarkMemoryFootprint(b *testing.B) {
	chart := &core.Chart{States: map[string]*core.StateDef{"idle": {}}}
	for i := 0; i < b.N; i++ {
		memoryFootprint(b, chart, "idle", 1000)
	}
}

func BenchmarkMemoryFlat(b *testing.B) {
	for _, n := range []int{10, 100, 1000} {
		b.Run(fmt.Sprintf("states=%d", n), func(b *testing.B) {
			chart := GenFlatChart(n)
			for i := 0; i < b.N; i++ {
				memoryFootprint(b, chart, "s0", 100)
			}
		})
	}
}
