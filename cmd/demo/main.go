// Command demo runs a traffic light, or any YAML chart, as a statesvc Service.
//
// Configuration comes from STATESVC_-prefixed environment variables and an
// optional .env file; see internal/config.DemoConfig.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/comalice/statesvc/internal/config"
	"github.com/comalice/statesvc/internal/logging"
	"github.com/comalice/statesvc/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "demo:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadDemo()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.Setup(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	d, err := newDemo(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	logger.Info("demo finished")
	return nil
}
