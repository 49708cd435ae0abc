// Package logging builds the zerolog loggers used by the tmplkit command.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// New returns a logger writing to w at the named level ("debug", "info",
// "warn", "error"; empty means info). Terminals get human-readable colored
// output, everything else gets one JSON object per line.
func New(level string, w io.Writer) (zerolog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}

	out := w
	if f, ok := w.(*os.File); ok && isTerminal(f) {
		out = ConsoleWriter(f)
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}

// ParseLevel parses a level name, defaulting to info.
func ParseLevel(level string) (zerolog.Level, error) {
	level = strings.TrimSpace(strings.ToLower(level))
	if level == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return lvl, nil
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// ConsoleWriter returns a zerolog console writer for f. Color is only used
// when f is a terminal.
func ConsoleWriter(f *os.File) io.Writer {
	noColor := !isTerminal(f)

	w := zerolog.ConsoleWriter{Out: f, NoColor: noColor, TimeFormat: time.DateTime}

	if !noColor {
		w.FormatPrepare = func(m map[string]any) error {
			// request logs from the serve command
			if sys, ok := m["sys"]; ok && sys == "http" {
				m["message"] = fmt.Sprintf("%v %-5v %v", m["status"], m["method"], m["path"])
				delete(m, "sys")
				delete(m, "status")
				delete(m, "method")
				delete(m, "path")
			}
			return nil
		}
	}

	return w
}
