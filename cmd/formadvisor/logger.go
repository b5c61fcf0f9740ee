package main

import (
	"io"
	"log/slog"
)

type logFormat string

const (
	formatText logFormat = "text"
	formatJSON logFormat = "json"
)

// newLogger builds the process logger. cfg must already be validated.
func newLogger(cfg Config, w io.Writer) *slog.Logger {
	level, _ := cfg.level()
	format, _ := cfg.format()

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if format == formatJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler).With(slog.String("component", "formadvisor"))
}
