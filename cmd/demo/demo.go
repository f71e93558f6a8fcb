package main

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/comalice/statesvc/internal/chartconfig"
	"github.com/comalice/statesvc/internal/config"
	"github.com/comalice/statesvc/internal/core"
	"github.com/comalice/statesvc/internal/extensibility"
	"github.com/comalice/statesvc/internal/primitives"
	"github.com/comalice/statesvc/internal/production"
	"github.com/comalice/statesvc/internal/telemetry"
)

//go:embed lights.yaml
var lightsYAML []byte

// errReload ends a machine run so the next one picks up the edited chart.
var errReload = errors.New("chart changed")

type demo struct {
	cfg    config.DemoConfig
	logger *zap.Logger
	reg    *chartconfig.Registry

	opts      []core.Option
	persister core.Persister
	records   chan core.TransitionRecord
	closers   *primitives.DisposableStore
	reload    chan struct{}
}

func newDemo(ctx context.Context, cfg config.DemoConfig, logger *zap.Logger) (*demo, error) {
	d := &demo{
		cfg:     cfg,
		logger:  logger,
		records: make(chan core.TransitionRecord, 64),
		reload:  make(chan struct{}, 1),
		closers: primitives.NewDisposableStore(),
	}
	d.reg = chartconfig.NewRegistry().
		Register("announce", func(c *core.Context) error {
			logger.Info("light", zap.String("state", c.State().ID))
			return nil
		}).
		Register("report", func(c *core.Context) error {
			logger.Info("status", zap.String("state", c.State().ID), zap.Uint64("sequence", c.Sequence()))
			return nil
		})

	if err := d.openSinks(ctx); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

func (d *demo) openSinks(ctx context.Context) error {
	d.opts = append(d.opts,
		core.WithID(d.cfg.MachineID),
		core.WithLogger(d.logger.Named("service")),
		core.WithTracer(telemetry.Tracer()),
		core.WithPublisher(production.NewChannelPublisher(d.records)),
	)

	if dir := d.cfg.PersistDir; dir != "" {
		var (
			p   core.Persister
			err error
		)
		if d.cfg.PersistFormat == "yaml" {
			p, err = production.NewYAMLPersister(dir)
		} else {
			p, err = production.NewJSONPersister(dir)
		}
		if err != nil {
			return err
		}
		d.persister = p
		d.opts = append(d.opts, core.WithPersister(p))
	}

	if path := d.cfg.SQLitePath; path != "" {
		store, err := production.OpenSQLite(path)
		if err != nil {
			return err
		}
		d.closers.Add(primitives.CloserDisposable(store, d.closeFailed))
		d.opts = append(d.opts, core.WithPersister(store), core.WithPublisher(store))
		if d.persister == nil {
			d.persister = store
		}
	}

	if d.cfg.RedisEnabled {
		store, err := production.ConnectRedis(ctx, d.cfg.Redis)
		if err != nil {
			return err
		}
		d.closers.Add(primitives.CloserDisposable(store, d.closeFailed))
		d.opts = append(d.opts, core.WithPersister(store), core.WithPublisher(store))
		if d.persister == nil {
			d.persister = store
		}
	}
	return nil
}

// Close releases the stores opened by the demo.
func (d *demo) Close() {
	d.closers.Dispose()
}

func (d *demo) closeFailed(err error) {
	d.logger.Warn("close store failed", zap.Error(err))
}

// Run runs the chart until ctx is done or the configured number of cycles has
// completed. With Watch set, edits to the chart file restart the machine.
func (d *demo) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d.logRecords(ctx)
		return nil
	})
	if d.cfg.Watch && d.cfg.ChartFile != "" {
		g.Go(func() error {
			return extensibility.WatchFile(ctx, d.cfg.ChartFile, extensibility.DefaultDebounce, d.requestReload, d.logger)
		})
	}
	g.Go(func() error {
		defer close(d.records)
		for {
			err := d.runMachine(ctx)
			if !errors.Is(err, errReload) {
				return err
			}
			d.logger.Info("reloading chart", zap.String("file", d.cfg.ChartFile))
		}
	})
	err := g.Wait()
	if errors.Is(err, errDone) {
		return nil
	}
	return err
}

func (d *demo) requestReload() {
	select {
	case d.reload <- struct{}{}:
	default:
	}
}

// errDone reports that the configured cycles completed.
var errDone = errors.New("cycles completed")

func (d *demo) runMachine(ctx context.Context) error {
	cfg, err := d.loadConfig()
	if err != nil {
		return err
	}
	chart, err := chartconfig.Compile(cfg, d.reg, chartconfig.WithWrapper(extensibility.LoggingWrapper(d.logger)))
	if err != nil {
		return err
	}
	version := chartconfig.ComputeVersion(cfg)

	opts := append([]core.Option{core.WithChartVersion(version)}, d.opts...)
	svc := core.New(chart, primitives.NewState(cfg.Initial, nil), opts...)
	defer func() {
		if err := svc.Dispose(true); err != nil {
			d.logger.Warn("dispose failed", zap.Error(err))
		}
		<-svc.Done()
	}()
	d.restore(ctx, svc, version)

	done := make(chan struct{})
	var once sync.Once
	finish := func() { once.Do(func() { close(done) }) }
	cycles := 0
	svc.OnStateChange(func(s primitives.State) {
		if sc := cfg.States[s.ID]; sc != nil && sc.Final {
			d.logger.Info("final state reached", zap.String("state", s.ID))
			finish()
			return
		}
		if s.ID != cfg.Initial {
			return
		}
		cycles++
		if d.cfg.Cycles > 0 && cycles >= d.cfg.Cycles {
			finish()
		}
	})

	viz := &production.DefaultVisualizer{}
	d.logger.Debug("chart", zap.String("dot", viz.ExportDOT(cfg, svc.State().ID)))

	if err := svc.Start(); err != nil {
		d.logger.Warn("start handlers failed", zap.Error(err))
	}

	heartbeat := extensibility.NewTimerEventSource(nil, "status", nil, scaleDuration(5*time.Second, d.cfg.TickScale))
	defer heartbeat.Stop()
	pumpCtx, stopPump := context.WithCancel(ctx)
	defer stopPump()
	go func() { _ = extensibility.Pump(pumpCtx, heartbeat, svc, d.logger) }()

	states := svc.Watch(ctx, 8)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-done:
			return errDone
		case <-d.reload:
			return errReload
		case s, ok := <-states:
			if !ok {
				return nil
			}
			d.logger.Debug("state", zap.String("state", s.ID), zap.Uint64("sequence", svc.Sequence()))
		}
	}
}

func (d *demo) restore(ctx context.Context, svc *core.Service, version string) {
	if d.persister == nil {
		return
	}
	snap, err := d.persister.Load(ctx, d.cfg.MachineID)
	switch {
	case errors.Is(err, production.ErrSnapshotNotFound):
		return
	case err != nil:
		d.logger.Warn("load snapshot failed", zap.Error(err))
		return
	case snap.ChartVersion != version:
		d.logger.Info("ignoring snapshot of another chart version",
			zap.String("snapshot", snap.ChartVersion), zap.String("chart", version))
		return
	}
	if err := svc.Restore(snap); err != nil {
		d.logger.Warn("restore failed", zap.Error(err))
		return
	}
	d.logger.Info("restored", zap.String("state", snap.State.ID), zap.Uint64("sequence", snap.Sequence))
}

func (d *demo) loadConfig() (*chartconfig.ChartConfig, error) {
	var (
		cfg *chartconfig.ChartConfig
		err error
	)
	if d.cfg.ChartFile != "" {
		cfg, err = chartconfig.LoadFile(d.cfg.ChartFile)
	} else {
		cfg, err = chartconfig.Load(bytes.NewReader(lightsYAML))
	}
	if err != nil {
		return nil, fmt.Errorf("load chart: %w", err)
	}
	scaleDelays(cfg, d.cfg.TickScale)
	return cfg, nil
}

func (d *demo) logRecords(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case rec, ok := <-d.records:
			if !ok {
				return
			}
			d.logger.Info("transition",
				zap.String("from", rec.From),
				zap.String("to", rec.To),
				zap.String("event", rec.Event),
				zap.Uint64("sequence", rec.Sequence),
			)
		}
	}
}

// scaleDelays multiplies every after and every delay in cfg by scale.
func scaleDelays(cfg *chartconfig.ChartConfig, scale float64) {
	if scale == 1 {
		return
	}
	scaleActions := func(actions []chartconfig.ActionConfig) {
		for i := range actions {
			a := &actions[i]
			if a.After > 0 {
				a.After = scaleDuration(a.After, scale)
			}
			if a.Every > 0 {
				a.Every = scaleDuration(a.Every, scale)
			}
		}
	}
	scaleOn := func(on map[string][]chartconfig.ActionConfig) {
		for _, actions := range on {
			scaleActions(actions)
		}
	}
	scaleActions(cfg.Entry)
	scaleOn(cfg.On)
	for _, s := range cfg.States {
		scaleActions(s.Entry)
		scaleOn(s.On)
	}
}

func scaleDuration(v time.Duration, scale float64) time.Duration {
	return max(time.Duration(float64(v)*scale), time.Millisecond)
}
