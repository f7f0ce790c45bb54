// Package testutil provides logging helpers shared by package tests.
package testutil

import (
	"log/slog"
	"strings"
	"testing"

	"github.com/leapstack-labs/deckforge/internal/logging"
)

// NewTestLogger returns a debug logger whose output goes to t.Log, so it
// only shows for failing tests or with -v.
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return logging.New(logging.Options{Level: "debug", Writer: testWriter{t}}).Logger
}

type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (n int, err error) {
	w.t.Helper()
	w.t.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
