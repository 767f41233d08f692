package logger_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentora/mentora/internal/logger"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("json output with static attrs", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(
			logger.WithOutput(&buf),
			logger.WithFormat(logger.FormatJSON),
			logger.WithAttr(slog.String("service", "mentora-api")),
		)

		log.Info("started", logger.Component("api"))

		var record map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
		assert.Equal(t, "started", record["msg"])
		assert.Equal(t, "mentora-api", record["service"])
		assert.Equal(t, "api", record["component"])
	})

	t.Run("level filtering", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(
			logger.WithOutput(&buf),
			logger.WithLevel(slog.LevelWarn),
		)

		log.Info("dropped")
		assert.Zero(t, buf.Len())

		log.Warn("kept")
		assert.NotZero(t, buf.Len())
	})

	t.Run("development preset uses text format", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(
			logger.WithDevelopment("mentora-api"),
			logger.WithOutput(&buf),
		)

		log.Debug("verbose")
		out := buf.String()
		assert.Contains(t, out, "verbose")
		assert.Contains(t, out, "env=development")
	})

	t.Run("invalid format panics", func(t *testing.T) {
		t.Parallel()

		assert.Panics(t, func() {
			logger.New(logger.WithFormat(logger.Format("yaml")))
		})
	})

	t.Run("nil output is ignored", func(t *testing.T) {
		t.Parallel()

		assert.NotPanics(t, func() {
			logger.New(logger.WithOutput(nil))
		})
	})
}

func TestAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(logger.WithOutput(&buf), logger.WithFormat(logger.FormatJSON))

	log.Info("login",
		logger.UserID("user-1"),
		logger.Role("student"),
		logger.Provider("google"),
		logger.Error(assert.AnError),
	)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "user-1", record["user_id"])
	assert.Equal(t, "student", record["role"])
	assert.Equal(t, "google", record["provider"])
	assert.Equal(t, assert.AnError.Error(), record["error"])
}
