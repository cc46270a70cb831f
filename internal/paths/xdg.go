// Package paths locates the kittyrc config file and the host's default
// socket using the XDG base directory layout.
package paths

import (
	"os"
	"path/filepath"
)

const app = "kittyrc"

// base returns $envVar, or the home directory joined with fallback when the
// variable is unset.
func base(envVar string, fallback ...string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(append([]string{home}, fallback...)...)
}

// ConfigFile is $XDG_CONFIG_HOME/kittyrc/config.toml.
func ConfigFile() string {
	return filepath.Join(base("XDG_CONFIG_HOME", ".config"), app, "config.toml")
}

// RuntimeDir holds the host socket: $XDG_RUNTIME_DIR/kittyrc, or
// $XDG_STATE_HOME/kittyrc on systems without a runtime directory.
func RuntimeDir() string {
	if os.Getenv("XDG_RUNTIME_DIR") != "" {
		return filepath.Join(base("XDG_RUNTIME_DIR"), app)
	}
	return filepath.Join(base("XDG_STATE_HOME", ".local", "state"), app)
}

// DefaultListenOn is the host address used when listen_on is not configured.
func DefaultListenOn() string {
	return "unix:" + filepath.Join(RuntimeDir(), app+".sock")
}

// EnsureDir creates the socket directory, owner-only.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o700)
}
