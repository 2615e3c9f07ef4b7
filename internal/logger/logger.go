package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New: в production JSON в stdout уровня info, иначе человекочитаемый вывод уровня debug.
func New(env string) zerolog.Logger {
	if env == "production" {
		return zerolog.New(os.Stdout).
			Level(zerolog.InfoLevel).
			With().
			Timestamp().
			Logger()
	}

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	return zerolog.New(output).
		Level(zerolog.DebugLevel).
		With().
		Timestamp().
		Logger()
}
