// Package config carries the CLI-level runtime settings commands share.
package config

import (
	"github.com/systmms/noctivault/internal/logging"
)

// Config holds the runtime configuration
type Config struct {
	Logger         *logging.Logger
	NonInteractive bool
}
