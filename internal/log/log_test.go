package log

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilteringHandler(t *testing.T) {
	SetLevel(slog.LevelDebug)
	EnableSections("formula")
	var buf bytes.Buffer
	logger := slog.New(&filteringHandler{underlying: slog.NewTextHandler(&buf, LoggerOpts)})

	testCases := []struct {
		name    string
		log     func()
		written bool
	}{
		{name: "enabled section", log: func() { logger.Debug("saturated", "section", "formula") }, written: true},
		{name: "subsection", log: func() { logger.Debug("round", "section", "formula.saturate") }, written: true},
		{name: "disabled section", log: func() { logger.Debug("loop", "section", "analyzer.loop") }},
		{name: "no section", log: func() { logger.Info("hello") }},
		{name: "warnings always pass", log: func() { logger.Warn("careful", "section", "analyzer") }, written: true},
		{name: "section from With", log: func() { logger.With("section", "formula").Debug("negated") }, written: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			buf.Reset()
			tc.log()
			assert.Equal(t, tc.written, buf.Len() > 0)
		})
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}
