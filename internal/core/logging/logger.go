package logging

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Install sets l, with the context hook attached, as the global logger and
// returns it.
func Install(l zerolog.Logger) zerolog.Logger {
	l = l.Hook(ContextHook{})
	log.Logger = l
	return l
}

// Component creates a new logger with a component identifier.
// Uses the "cmp" key for consistency with zerolog conventions.
func Component(name string) zerolog.Logger {
	return log.With().Str("cmp", name).Logger()
}
