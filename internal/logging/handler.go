package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
)

type ConsoleOptions struct {
	// Format is "json" for machine-readable output; anything else selects colored text.
	Format string
	Level  slog.Leveler
	Writer io.Writer
}

// NewConsoleHandler builds the handler used for process output.
func NewConsoleHandler(opts ConsoleOptions) slog.Handler {
	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}

	if strings.EqualFold(strings.TrimSpace(opts.Format), "json") {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: opts.Level})
	}
	return tint.NewHandler(w, &tint.Options{
		Level:      opts.Level,
		TimeFormat: "15:04:05.000",
		NoColor:    w != os.Stdout && w != os.Stderr,
	})
}
