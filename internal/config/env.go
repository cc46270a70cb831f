package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ClientEnv is the client configuration read from the environment.
type ClientEnv struct {
	// ListenOn is the host address used when --to is not given. A host
	// sets it for the programs it runs.
	ListenOn string `env:"KITTY_LISTEN_ON"`
}

// ListenOnEnvVar is the variable ClientEnv.ListenOn is read from.
const ListenOnEnvVar = "KITTY_LISTEN_ON"

// ParseClientEnv loads ClientEnv from environ, or from the process
// environment when environ is nil.
func ParseClientEnv(environ map[string]string) (ClientEnv, error) {
	var c ClientEnv
	if err := env.ParseWithOptions(&c, env.Options{Environment: environ}); err != nil {
		return ClientEnv{}, fmt.Errorf("parse env: %w", err)
	}
	return c, nil
}
