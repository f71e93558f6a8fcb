package extensibility

import (
	"go.uber.org/zap"

	"github.com/comalice/statesvc/internal/core"
)

// LoggingHandler wraps h and logs around its execution.
func LoggingHandler(logger *zap.Logger, name string, h core.Handler) core.Handler {
	return func(c *core.Context) error {
		fields := []zap.Field{
			zap.String("action", name),
			zap.String("state", c.State().ID),
			zap.String("phase", string(c.Phase())),
		}
		if e, ok := c.Event(); ok {
			fields = append(fields, zap.String("event", e.ID))
		}
		logger.Debug("executing action", fields...)
		start := c.Clock().Now()
		err := h(c)
		fields = append(fields, zap.Duration("elapsed", c.Clock().Since(start)))
		if err != nil {
			logger.Warn("action failed", append(fields, zap.Error(err))...)
			return err
		}
		logger.Debug("action completed", fields...)
		return nil
	}
}

// LoggingWrapper adapts LoggingHandler to the shape chart compilers take.
func LoggingWrapper(logger *zap.Logger) func(name string, h core.Handler) core.Handler {
	return func(name string, h core.Handler) core.Handler {
		return LoggingHandler(logger, name, h)
	}
}
