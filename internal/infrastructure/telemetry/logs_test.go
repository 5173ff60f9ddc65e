package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLoggerProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	lp, err := NewLoggerProvider(ctx, LogsConfig{ServiceName: "hms-backend"}, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, lp.IsEnabled())
	assert.NoError(t, lp.Shutdown(ctx))
}

func TestBridge_DisabledReturnsSameLogger(t *testing.T) {
	lp := &LoggerProvider{}
	logger := zap.NewNop()
	assert.Same(t, logger, lp.Bridge(logger, zapcore.InfoLevel))

	var nilProvider *LoggerProvider
	assert.Same(t, logger, nilProvider.Bridge(logger, zapcore.InfoLevel))
}

func TestBridge_EnabledKeepsBaseOutput(t *testing.T) {
	ctx := context.Background()
	lp, err := NewLoggerProvider(ctx, LogsConfig{
		Enabled:           true,
		CollectorEndpoint: "localhost:14317",
		ServiceName:       "hms-backend",
		Insecure:          true,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_ = lp.Shutdown(cancelled)
	})

	core, logs := observer.New(zapcore.DebugLevel)
	bridged := lp.Bridge(zap.New(core), zapcore.WarnLevel)
	bridged.Info("bill generated", zap.Int("count", 3))

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "bill generated", logs.All()[0].Message)
}

func TestLevelFilterCore(t *testing.T) {
	observed, logs := observer.New(zapcore.DebugLevel)
	filtered := &levelFilterCore{Core: observed, minLevel: zapcore.WarnLevel}

	assert.False(t, filtered.Enabled(zapcore.InfoLevel))
	assert.True(t, filtered.Enabled(zapcore.ErrorLevel))

	logger := zap.New(filtered.With([]zapcore.Field{zap.String("component", "ledger")}))
	logger.Info("skipped")
	logger.Warn("deposit refund reverted")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "deposit refund reverted", entry.Message)
	assert.Equal(t, "ledger", entry.ContextMap()["component"])
}
