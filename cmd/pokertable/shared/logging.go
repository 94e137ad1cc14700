package shared

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// SetupLogger configures zerolog with pretty console output, or JSON when
// structured is set. An empty level means info.
func SetupLogger(level string, structured bool) (zerolog.Logger, error) {
	lvl := zerolog.InfoLevel
	if level != "" {
		parsed, err := zerolog.ParseLevel(level)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", level, err)
		}
		lvl = parsed
	}

	if structured {
		zerolog.TimeFieldFormat = time.RFC3339Nano
		return zerolog.New(os.Stderr).
			Level(lvl).
			With().
			Timestamp().
			Logger(), nil
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(lvl).
		With().
		Timestamp().
		Logger(), nil
}

// LevelFor returns "debug" when debug is set and fallback otherwise.
func LevelFor(debug bool, fallback string) string {
	if debug {
		return zerolog.DebugLevel.String()
	}
	return fallback
}
