package logging

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"":        LevelInfo,
		"INFO":    LevelInfo,
		"warning": LevelWarn,
		" error ": LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestLoggerKeyValueFields(t *testing.T) {
	core, logs := observer.New(LevelDebug)
	l := FromZap(zap.New(core)).With("game", "g1")

	l.Info("ingested", "events", 12, "err", errors.New("boom"), "dangling")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "g1", fields["game"])
	assert.EqualValues(t, 12, fields["events"])
	assert.Equal(t, "boom", fields["err"])
	assert.Contains(t, fields, "dangling")
}

func TestDefaultNeverNil(t *testing.T) {
	SetDefault(nil)
	assert.NotNil(t, Default())

	var nilLogger *Logger
	assert.NotPanics(t, func() { nilLogger.Info("noop") })
}
