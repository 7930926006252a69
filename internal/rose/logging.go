package rose

import (
	"log/slog"
	"os"
)

// SetupLogging installs the default slog logger. output is "stderr" or
// a file path; anything else falls back to stderr. Mirrors the
// original implementation's initialize_logging leaf.
func SetupLogging(output string) {
	var handler slog.Handler
	switch output {
	case "", "stderr":
		handler = slog.NewTextHandler(os.Stderr, nil)
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			handler = slog.NewTextHandler(os.Stderr, nil)
			break
		}
		handler = slog.NewTextHandler(f, nil)
	}
	slog.SetDefault(slog.New(handler))
}
