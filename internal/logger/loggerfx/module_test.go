package loggerfx

import (
	"context"
	"testing"

	"github.com/0x5457/ws-index/internal/config/configfx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func TestLoggerModule(t *testing.T) {
	var log *zap.Logger
	app := fx.New(
		Module,
		fx.Supply(&configfx.Config{LogLevel: "debug"}),
		fx.WithLogger(EventLogger),
		fx.Populate(&log),
	)

	ctx := context.Background()
	require.NoError(t, app.Start(ctx))
	defer func() {
		require.NoError(t, app.Stop(ctx))
	}()

	require.NotNil(t, log)
	assert.True(t, log.Core().Enabled(zap.DebugLevel))
}

func TestLoggerModule_BadLevel(t *testing.T) {
	var log *zap.Logger
	app := fx.New(
		Module,
		fx.Supply(&configfx.Config{LogLevel: "loud"}),
		fx.Populate(&log),
	)
	assert.Error(t, app.Err())
}
