package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// New returns a console logger in development and a JSON logger elsewhere.
func New(appEnv string) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if appEnv == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger.With(zap.String("env", appEnv)), nil
}

// OrNop lets constructors accept a nil logger.
func OrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
