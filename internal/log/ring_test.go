package log

import (
	"bytes"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingHandler_KeepsLastRecords(t *testing.T) {
	ring := NewRingHandler()
	logger := slog.New(ring)

	for i := 0; i < RingCapacity+25; i++ {
		logger.Info(fmt.Sprintf("msg %d", i), "i", i)
	}

	recent := ring.Recent()
	require.Len(t, recent, RingCapacity)
	assert.Equal(t, "msg 25", recent[0].Message)
	assert.Equal(t, fmt.Sprintf("msg %d", RingCapacity+24), recent[len(recent)-1].Message)
	assert.Contains(t, recent[0].Attrs, "i=25")
}

func TestRingHandler_PartialFill(t *testing.T) {
	ring := NewRingHandler()
	logger := slog.New(ring)

	logger.Warn("first")
	logger.Error("second")

	recent := ring.Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, "first", recent[0].Message)
	assert.Equal(t, "WARN", recent[0].Level)
	assert.Equal(t, "ERROR", recent[1].Level)
}

func TestRingHandler_WithAttrsSharesRing(t *testing.T) {
	ring := NewRingHandler()
	derived := slog.New(ring).With("component", "worker")

	derived.Info("tick")

	recent := ring.Recent()
	require.Len(t, recent, 1)
	assert.Contains(t, recent[0].Attrs, "component=worker")
}

func TestTee_FansOut(t *testing.T) {
	var buf bytes.Buffer
	ring := NewRingHandler()
	text := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	logger := slog.New(NewTee(text, ring))

	logger.Info("hello", "k", "v")

	assert.Contains(t, buf.String(), "hello")
	recent := ring.Recent()
	require.Len(t, recent, 1)
	assert.Equal(t, "hello", recent[0].Message)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARNING"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}
