package observability

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/slac-epics/streamdevice/internal/logging"
)

// InitLogger installs cfg as the global logger tagged with app.
func InitLogger(app string, cfg logging.Config) zerolog.Logger {
	logger := logging.New(cfg, os.Stderr).With().Str("app", app).Logger()
	log.Logger = logger
	return logger
}
