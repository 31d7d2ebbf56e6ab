package host

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/runjs/runjs/runtime"
)

// DefaultAllowedOrigins is the allow-list used when none is configured.
var DefaultAllowedOrigins = []string{"https://example.com"}

// Config defines the configuration of a Driver.
type Config struct {
	// Path to the Wasm module file
	Path string

	// AllowedOrigins lists the origins the guest may call. Nil selects
	// DefaultAllowedOrigins; an empty slice denies everything.
	AllowedOrigins []string

	// HTTPTimeout bounds each outbound call. Zero means no timeout.
	HTTPTimeout time.Duration

	// Runtime selects the Wasm runtime.
	Runtime runtime.Config

	// Stdout and Stderr receive the guest's output. When both are nil the
	// process's own streams are passed through.
	Stdout io.Writer
	Stderr io.Writer

	// Transport overrides the network transport of outbound calls.
	Transport http.RoundTripper

	Logger *zap.Logger
}

// Validate validates the configuration
func (cfg *Config) Validate() error {
	if cfg.Path == "" {
		return fmt.Errorf("path is required")
	}
	if cfg.HTTPTimeout < 0 {
		return fmt.Errorf("http timeout must not be negative")
	}
	return nil
}

func (cfg *Config) allowedOrigins() []string {
	if cfg.AllowedOrigins == nil {
		return DefaultAllowedOrigins
	}
	return cfg.AllowedOrigins
}
