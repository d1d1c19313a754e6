// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package rnreport

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// LogLevel names a logging severity accepted in configuration.
type LogLevel string

const (
	// LogError logs failed runs only.
	LogError LogLevel = "ERROR"
	// LogWarn adds failed pages and aborted runs.
	LogWarn LogLevel = "WARN"
	// LogInfo adds one line per completed run.
	LogInfo LogLevel = "INFO"
	// LogDebug adds one line per page.
	LogDebug LogLevel = "DEBUG"
	// LogTrace is the most verbose level.
	LogTrace LogLevel = "TRACE"
)

// LevelTrace is the slog level used for LogTrace.
const LevelTrace = slog.LevelDebug - 4

// Level returns the slog level for l.
func (l LogLevel) Level() (slog.Level, error) {
	switch LogLevel(strings.ToUpper(strings.TrimSpace(string(l)))) {
	case LogError, "EXCEPTION":
		return slog.LevelError, nil
	case LogWarn, "WARNING":
		return slog.LevelWarn, nil
	case LogInfo, "":
		return slog.LevelInfo, nil
	case LogDebug:
		return slog.LevelDebug, nil
	case LogTrace:
		return LevelTrace, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", string(l))
	}
}

// NewLogger returns a logger writing to w at level. format is "text" or
// "json".
func NewLogger(w io.Writer, level LogLevel, format string) (*slog.Logger, error) {
	lvl, err := level.Level()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}
