// Package config loads settings from environment variables and an optional
// .env file.
package config

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/comalice/statesvc/internal/logging"
	"github.com/comalice/statesvc/internal/production"
)

// ErrNilPointer is returned by Load for a nil target.
var ErrNilPointer = errors.New("config: nil pointer")

var dotenvLoaded sync.Once

// Load fills v from the environment. The .env file in the working directory,
// if any, is read once on first use; variables already set take precedence.
func Load[T any](v *T) error {
	dotenvLoaded.Do(func() {
		_ = godotenv.Load()
	})
	if v == nil {
		return ErrNilPointer
	}
	if err := env.Parse(v); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// DemoConfig configures cmd/demo.
type DemoConfig struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"statesvc-demo"`
	MachineID   string `env:"MACHINE_ID" envDefault:"traffic-light"`

	// ChartFile, when set, replaces the built-in traffic light with a YAML
	// chart. With Watch, edits to the file restart the machine.
	ChartFile string `env:"CHART_FILE"`
	Watch     bool   `env:"WATCH" envDefault:"false"`

	// Cycles is the number of red lights after which the demo stops. Zero
	// runs until interrupted.
	Cycles int `env:"CYCLES" envDefault:"2"`
	// TickScale shrinks every light duration; 0.01 turns seconds into
	// hundredths.
	TickScale float64 `env:"TICK_SCALE" envDefault:"0.01"`

	PersistDir    string `env:"PERSIST_DIR"`
	PersistFormat string `env:"PERSIST_FORMAT" envDefault:"json"`
	SQLitePath    string `env:"SQLITE_PATH"`

	RedisEnabled bool                   `env:"REDIS_ENABLED" envDefault:"false"`
	Redis        production.RedisConfig `envPrefix:"REDIS_"`

	OTLPEndpoint string `env:"OTEL_ENDPOINT"`

	Log logging.Config `envPrefix:"LOG_"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// LoadDemo loads a DemoConfig from STATESVC_-prefixed variables.
func LoadDemo() (DemoConfig, error) {
	var cfg DemoConfig
	dotenvLoaded.Do(func() {
		_ = godotenv.Load()
	})
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "STATESVC_"}); err != nil {
		return DemoConfig{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return DemoConfig{}, err
	}
	return cfg, nil
}

// Validate checks values the environment parser cannot.
func (c DemoConfig) Validate() error {
	switch c.PersistFormat {
	case "json", "yaml":
	default:
		return fmt.Errorf("persist format %q: must be json or yaml", c.PersistFormat)
	}
	if c.TickScale <= 0 {
		return fmt.Errorf("tick scale must be positive, got %v", c.TickScale)
	}
	if c.Cycles < 0 {
		return fmt.Errorf("cycles must not be negative, got %d", c.Cycles)
	}
	return nil
}
