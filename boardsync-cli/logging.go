package boardsynccli

import (
	"os"

	"github.com/rs/zerolog"
)

func Logger(service Service) zerolog.Logger {
	return zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", service.Name).
		Str("version", service.Version).
		Str("env", CommonOpts.Env).
		Logger()
}
