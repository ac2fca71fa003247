// Package logging constructs the single process-wide *slog.Logger used by
// the CLI entrypoint, following maruel/record-videos's mainImpl setup:
// tint for colorized human output, go-isatty to detect a terminal, and
// go-colorable so color codes behave on Windows consoles too.
package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// New builds a logger writing to f (typically os.Stderr). If f is attached
// to a terminal, output is colorized; otherwise it is plain. verbose
// enables debug-level output.
func New(f *os.File, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	noColor := !isatty.IsTerminal(f.Fd())
	handler := tint.NewHandler(colorable.NewColorable(f), &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		NoColor:    noColor,
	})
	return slog.New(handler)
}

// NewPlain builds a non-colorized logger over any io.Writer, for use in
// tests and in contexts where no terminal is attached.
func NewPlain(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(w, &tint.Options{Level: level, TimeFormat: time.TimeOnly, NoColor: true}))
}
