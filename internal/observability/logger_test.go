// internal/observability/logger_test.go
package observability_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/domlens/internal/config"
	"github.com/xkilldash9x/domlens/internal/observability"
)

// syncBuffer adapts bytes.Buffer to zapcore.WriteSyncer.
type syncBuffer struct {
	bytes.Buffer
}

func (s *syncBuffer) Sync() error { return nil }

func TestGetLoggerBeforeInitializeIsNoop(t *testing.T) {
	logger := observability.GetLogger()
	assert.NotNil(t, logger, "GetLogger must never return nil")
	assert.NotPanics(t, func() { logger.Info("safe before init") })
}

func TestInitializeWritesThroughConfiguredLevel(t *testing.T) {
	buf := &syncBuffer{}
	observability.Initialize(config.LoggerConfig{
		Level:       "debug",
		Format:      "json",
		ServiceName: "domlens-test",
	}, zapcore.AddSync(buf))

	logger := observability.GetLogger()
	logger.Debug("visible at debug level")
	_ = logger.Sync()

	assert.Contains(t, buf.String(), "visible at debug level")
	assert.Contains(t, buf.String(), "domlens-test")
}

func TestInitializeIsIdempotent(t *testing.T) {
	first := &syncBuffer{}
	second := &syncBuffer{}
	observability.Initialize(config.LoggerConfig{Level: "info", Format: "json"}, zapcore.AddSync(first))
	observability.Initialize(config.LoggerConfig{Level: "info", Format: "json"}, zapcore.AddSync(second))

	observability.GetLogger().Info("routed to the first writer")
	_ = observability.GetLogger().Sync()

	assert.Empty(t, second.String(), "re-initialization must not rebind the sink")
}
