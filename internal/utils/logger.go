package utils

import (
	"go.uber.org/zap"
)

// NewLogger builds the service logger. Development mode gets the console
// encoder, everything else the production JSON config.
func NewLogger(env string) (*zap.Logger, error) {
	if env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
