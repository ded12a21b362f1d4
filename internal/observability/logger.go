package observability

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SessionLogger scopes the global logger to one device session.
func SessionLogger(sessionID, remote string) zerolog.Logger {
	return log.Logger.With().
		Str("session", sessionID).
		Str("remote", remote).
		Logger()
}
