package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lydakis/kittyrc/internal/transport"
)

var logLevels = []string{"debug", "info", "warn", "error"}

// Validate checks configuration invariants and returns actionable errors.
func Validate(cfg *Config) error {
	if cfg == nil {
		return nil
	}

	var errs []error
	if _, err := transport.ParseAddress(cfg.ListenOn); err != nil {
		errs = append(errs, fmt.Errorf("listen_on: %w", err))
	}

	if len(cfg.Shell) == 0 || strings.TrimSpace(cfg.Shell[0]) == "" {
		errs = append(errs, errors.New("shell: must name a program"))
	}

	if cfg.AsyncPeerTimeout != "" {
		d, err := time.ParseDuration(cfg.AsyncPeerTimeout)
		if err != nil {
			errs = append(errs, fmt.Errorf("async_peer_timeout: invalid duration %q: %w", cfg.AsyncPeerTimeout, err))
		} else if d <= 0 {
			errs = append(errs, fmt.Errorf("async_peer_timeout: must be > 0, got %q", cfg.AsyncPeerTimeout))
		}
	}

	if !validLogLevel(cfg.LogLevel) {
		errs = append(errs, fmt.Errorf("log_level: %q is not one of %s", cfg.LogLevel, strings.Join(logLevels, ", ")))
	}

	return errors.Join(errs...)
}

func validLogLevel(level string) bool {
	for _, l := range logLevels {
		if level == l {
			return true
		}
	}
	return false
}
