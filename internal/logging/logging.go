// Copyright 2025 Emin Salih Açıkgöz
// SPDX-License-Identifier: gpl3-or-later

// Package logging builds the explicit Logger value threaded through the
// orchestrator core. A Logger is constructed once at the outermost
// binary and passed by reference into every entry point; nothing in
// internal/plan or internal/executor reaches for global logging state.
//
// The underlying writer is a console-formatted zerolog.Logger, switched
// between Info and Debug level by a verbosity flag.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps a zerolog.Logger so call sites depend on this package's
// narrow surface rather than importing zerolog directly everywhere.
type Logger struct {
	zl zerolog.Logger
}

// New builds a Logger writing human-readable console output to w. When
// verbose is true the level is Debug, otherwise Info; Debug-level
// messages (manifest version-folder fallback, error detail before
// process exit) are only visible in verbose mode.
func New(w io.Writer, verbose bool) Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	console := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	zl := zerolog.New(console).Level(level).With().Timestamp().Logger()
	return Logger{zl: zl}
}

// Discard builds a Logger that writes nowhere, useful for tests that
// don't want to assert on log output.
func Discard() Logger {
	return Logger{zl: zerolog.Nop()}
}

func (l Logger) Info(msg string)  { l.zl.Info().Msg(msg) }
func (l Logger) Debug(msg string) { l.zl.Debug().Msg(msg) }
func (l Logger) Error(msg string) { l.zl.Error().Msg(msg) }

// Infof and Debugf format msg with args before logging.
func (l Logger) Infof(format string, args ...any) {
	l.zl.Info().Msgf(format, args...)
}

func (l Logger) Debugf(format string, args ...any) {
	l.zl.Debug().Msgf(format, args...)
}

// Default builds a Logger writing to stderr at Info level, for a
// caller that has no explicit Logger to hand in.
func Default() Logger {
	return New(os.Stderr, false)
}
