package bootstrap

import (
	"github.com/turtacn/BlindDock/internal/config"
	"github.com/turtacn/BlindDock/internal/infrastructure/monitoring/logging"
)

// NewLogger builds the process logger from its configuration section.
func NewLogger(cfg config.LogConfig) (logging.Logger, error) {
	return logging.NewLogger(logging.LogConfig{
		Level:       cfg.Level,
		Format:      cfg.Format,
		OutputPaths: cfg.OutputPaths,
	})
}

// WatchLogLevel applies log level edits of configPath to log without a
// restart.  Other settings in the file are ignored until the next start.
func WatchLogLevel(configPath string, log logging.Logger) error {
	if configPath == "" {
		return nil
	}
	return config.Watch(configPath, func(cfg *config.Config) {
		applyLogLevel(cfg.Log.Level, log)
	}, func(err error) {
		log.Warn("config reload rejected", logging.Err(err))
	})
}

func applyLogLevel(raw string, log logging.Logger) {
	level, err := logging.ParseLevel(raw)
	if err != nil {
		log.Warn("ignoring log level change", logging.Err(err))
		return
	}
	log.SetLevel(level)
	log.Info("log level applied", logging.String("level", level.String()))
}

//Personal.AI order the ending
