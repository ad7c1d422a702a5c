// Copyright (c) 2025 The passkey authors
//
// This file is part of passkey.
//
// passkey is licensed under the MIT License.
// See the LICENSE file for details.

// Package logging configures the structured loggers used across the
// server.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Options controls logger construction.
type Options struct {
	// Debug lowers the level from Info to Debug. Debug output includes
	// the precise reasons ceremonies were rejected.
	Debug bool

	// JSON switches from the human-readable text handler to JSON output.
	JSON bool

	// Output defaults to os.Stderr.
	Output io.Writer
}

// New creates a logger with the given options.
func New(opts Options) *slog.Logger {
	output := opts.Output
	if output == nil {
		output = os.Stderr
	}

	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}

	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(output, handlerOpts)
	} else {
		handler = slog.NewTextHandler(output, handlerOpts)
	}

	return slog.New(handler)
}

// Default returns a text logger at Info level writing to stderr.
func Default() *slog.Logger {
	return New(Options{})
}

// Discard returns a logger that drops everything, for tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
