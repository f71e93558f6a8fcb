// Package benchmarks provides performance benchmarks for event throughput.
package benchmarks

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/comalice/statesvc/internal/core"
	"github.com/comalice/statesvc/internal/primitives"
)

func throughputChart(action core.Handler) *core.Chart {
	return &core.Chart{States: map[string]*core.StateDef{
		"idle": {On: map[string][]core.Handler{"tick": {action}}},
	}}
}

func BenchmarkEventThroughput(b *testing.B) {
	var processed int64
	action := func(*core.Context) error {
		atomic.AddInt64(&processed, 1)
		return nil
	}
	svc := core.New(throughputChart(action), primitives.NewState("idle", nil))
	if err := svc.Start(); err != nil {
		b.Fatal(err)
	}
	defer svc.Dispose(false)

	e := primitives.NewEvent("tick", nil)
	numWorkers := 8
	eventsPerWorker := b.N / numWorkers
	if eventsPerWorker == 0 {
		eventsPerWorker = 1
	}
	var wg sync.WaitGroup
	b.ResetTimer()
	b.ReportAllocs()
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < eventsPerWorker; i++ {
				if err := svc.Send(e); err != nil {
					b.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()
	// Send dispatches before returning, so every event has been handled.
	if got, want := atomic.LoadInt64(&processed), int64(numWorkers*eventsPerWorker); got != want {
		b.Fatalf("processed %d events, want %d", got, want)
	}
	b.ReportMetric(float64(processed)/b.Elapsed().Seconds(), "events/sec")
}

func BenchmarkInternalEventChain(b *testing.B) {
	// Each external "start" fans out into a chain of ten internal events.
	chart := &core.Chart{States: map[string]*core.StateDef{
		"idle": {On: map[string][]core.Handler{
			"start": {func(c *core.Context) error {
				c.Send(primitives.NewEvent("step", 1))
				return nil
			}},
			"step": {func(c *core.Context) error {
				e, _ := c.Event()
				if n, _ := primitives.DataAs[int](e.Data); n < 10 {
					c.Send(primitives.NewEvent("step", n+1))
				}
				return nil
			}},
		}},
	}}
	svc := core.New(chart, primitives.NewState("idle", nil))
	if err := svc.Start(); err != nil {
		b.Fatal(err)
	}
	defer svc.Dispose(false)
	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if err := svc.SendID("start"); err != nil {
			b.Fatal(err)
		}
	}
}
