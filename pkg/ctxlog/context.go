package ctxlog

import (
	"github.com/rs/zerolog"
)

// Op tags a logger with the operation it serves.
func Op(logger zerolog.Logger, op string) zerolog.Logger {
	return logger.With().Str("op", op).Logger()
}
