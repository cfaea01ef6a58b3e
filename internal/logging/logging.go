package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"cardroom/internal/config"
)

var writer io.Writer = os.Stdout

// Init configures the global logger and returns it. When cfg.File is set,
// log lines also go to a size-capped file that truncates instead of
// rotating.
func Init(cfg config.LogConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	if parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level))); err == nil && cfg.Level != "" {
		level = parsed
	}

	var out io.Writer = os.Stdout
	if cfg.File != "" {
		if fw, err := newSizeLimitedWriter(cfg.File, cfg.MaxMB); err == nil {
			out = io.MultiWriter(os.Stdout, fw)
		}
	}
	writer = out
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out}
	}

	zerolog.SetGlobalLevel(level)
	logger := zerolog.New(out).With().Timestamp().Logger()
	if cfg.SampleEvery > 1 {
		logger = logger.Sample(&zerolog.BasicSampler{N: uint32(cfg.SampleEvery)})
	}
	log.Logger = logger
	return logger
}

// Writer is the sink Init selected, for handlers that log through slog.
func Writer() io.Writer { return writer }
