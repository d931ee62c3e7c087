package adapter

import (
	"context"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mateusmacedo/expresso-van/pkg/application"
)

func TestZapAdapterAddsRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewFromZap(zap.New(core))

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-42")
	logger.Info(ctx, "seat reserved", map[string]interface{}{"trip_id": "t-1"})

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "seat reserved", entry.Message)
	assert.Equal(t, "req-42", entry.ContextMap()["requestID"])
	assert.Equal(t, "t-1", entry.ContextMap()["trip_id"])
}

func TestZapAdapterLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewFromZap(zap.New(core))
	ctx := context.Background()

	logger.Debug(ctx, "debug", nil)
	logger.Trace(ctx, "trace", nil)
	logger.Warn(ctx, "warn", nil)
	application.LogError(ctx, logger, "boom", assert.AnError, nil)

	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, zapcore.DebugLevel, entries[1].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
	assert.Equal(t, assert.AnError.Error(), entries[3].ContextMap()["error"])
	_, hasRequestID := entries[0].ContextMap()["requestID"]
	assert.False(t, hasRequestID)
}

func TestNewZapAppLoggerFallsBackToInfo(t *testing.T) {
	logger, err := NewZapAppLogger(Config{AppName: "expresso-van", Level: "verbose"})
	require.NoError(t, err)
	assert.NotNil(t, logger)
}
