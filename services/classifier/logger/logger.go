package logger

import (
	"os"

	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/config"
	"github.com/rs/zerolog"
)

// New returns a configured zerolog.Logger. Development gets a
// console writer; everything else gets structured JSON on stderr.
func New(cfg *config.Config) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	if cfg.IsDevelopment() && cfg.LogLevel == "" {
		lvl = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(lvl)

	var out zerolog.ConsoleWriter
	if cfg.IsDevelopment() {
		out = zerolog.ConsoleWriter{Out: os.Stderr}
		return zerolog.New(out).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
