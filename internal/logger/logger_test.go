package logger

import (
	"bytes"
	"context"
	"testing"

	charmlog "github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("Should write key-values with component context", func(t *testing.T) {
		var buf bytes.Buffer
		l := New(Config{Output: &buf}).With("component", "reconcile")
		l.Info("batch synced", "source", "lever", "jobs", 3)

		out := buf.String()
		assert.Contains(t, out, "batch synced")
		assert.Contains(t, out, "component=reconcile")
		assert.Contains(t, out, "source=lever")
	})

	t.Run("Should emit JSON when enabled", func(t *testing.T) {
		var buf bytes.Buffer
		New(Config{Output: &buf, JSON: true}).Warn("slow fetch")
		assert.Contains(t, buf.String(), `"msg":"slow fetch"`)
	})

	t.Run("Should filter below the configured level", func(t *testing.T) {
		var buf bytes.Buffer
		l := New(Config{Output: &buf, Level: "warn"})
		l.Info("hidden")
		l.Error("shown")
		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
	})
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, charmlog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, charmlog.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, charmlog.InfoLevel, ParseLevel("bogus"))
}

func TestFromContext(t *testing.T) {
	t.Run("Should return the stored logger", func(t *testing.T) {
		l := Nop()
		assert.Equal(t, l, FromContext(ContextWithLogger(context.Background(), l)))
	})

	t.Run("Should fall back to a default logger", func(t *testing.T) {
		require.NotNil(t, FromContext(context.Background()))
	})
}
