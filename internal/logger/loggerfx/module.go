package loggerfx

import (
	"context"

	"github.com/0x5457/ws-index/internal/config/configfx"
	"github.com/0x5457/ws-index/internal/logger"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// Params represents dependencies for the logger
type Params struct {
	fx.In

	Config    *configfx.Config
	Lifecycle fx.Lifecycle
}

// NewLogger builds the process logger from configuration and flushes it on stop.
func NewLogger(params Params) (*zap.Logger, error) {
	log, err := logger.New(logger.Options{
		Level: params.Config.LogLevel,
		File:  params.Config.LogFile,
	})
	if err != nil {
		return nil, err
	}
	params.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			// stderr cannot be synced on some platforms
			_ = log.Sync()
			return nil
		},
	})
	return log, nil
}

// EventLogger routes fx's own events into the zap logger at debug level.
func EventLogger(log *zap.Logger) fxevent.Logger {
	l := &fxevent.ZapLogger{Logger: log.Named("fx")}
	l.UseLogLevel(zap.DebugLevel)
	return l
}

// Module provides the logger
var Module = fx.Module("logger",
	fx.Provide(NewLogger),
)
