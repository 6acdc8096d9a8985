package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process-wide logger on stdout. LOG_FORMAT=json selects
// the machine-readable handler; anything else gets the text handler for local
// reading. Source locations are always attached so trail-affecting writes can
// be traced back to the call site.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg != nil && cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
