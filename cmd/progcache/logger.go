// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"io"
	"log/slog"

	"github.com/muesli/termenv"
)

// newLogger returns a text logger for w. Levels are colored when w is a
// terminal that supports it.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	out := termenv.NewOutput(w)
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			if a.Key == slog.LevelKey && len(groups) == 0 {
				if lvl, ok := a.Value.Any().(slog.Level); ok {
					a.Value = slog.StringValue(levelString(out, lvl))
				}
			}
			return a
		},
	}))
}

// levelString renders a level in its ANSI color: gray debug, cyan info,
// yellow warnings and red errors.
func levelString(out *termenv.Output, l slog.Level) string {
	var color string
	switch {
	case l >= slog.LevelError:
		color = "1"
	case l >= slog.LevelWarn:
		color = "3"
	case l >= slog.LevelInfo:
		color = "6"
	default:
		color = "8"
	}
	return out.String(l.String()).Foreground(out.Color(color)).String()
}
