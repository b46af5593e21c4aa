package logger_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/atforche/financial-tracker/logger"
)

func TestNew_DefaultsToInfo(t *testing.T) {
	log := logger.New("not-a-level")
	assert.Equal(t, zerolog.InfoLevel, log.GetLevel())
}

func TestNewWithWriter_RespectsLevel(t *testing.T) {
	// GIVEN: A logger at warn level
	buf := &bytes.Buffer{}
	log := logger.NewWithWriter(buf, "warn")

	// WHEN: Logging below and at the level
	log.Info().Msg("hidden")
	log.Warn().Msg("shown")

	// THEN: Only the warning is written
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := logger.WithContext(context.Background(), logger.NewWithWriter(buf, "debug"))

	log := logger.FromContext(ctx)
	log.Debug().Msg("from context")

	assert.Contains(t, buf.String(), "from context")
}

func TestFromContext_DefaultLogger(t *testing.T) {
	log := logger.FromContext(context.Background())
	assert.NotEqual(t, zerolog.Disabled, log.GetLevel())
}

func TestWithFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logger.WithFields(logger.NewWithWriter(buf, "info"), map[string]interface{}{
		"account_id": "acc-1",
		"period":     "2024-11",
	})

	log.Info().Msg("posted")

	assert.Contains(t, buf.String(), `"account_id":"acc-1"`)
	assert.Contains(t, buf.String(), `"period":"2024-11"`)
}
