package config

import "time"

// Config is the host configuration.
type Config struct {
	// AllowRemoteControl gates every remote-control command.
	AllowRemoteControl bool `toml:"allow_remote_control"`
	// ListenOn is the socket address the host accepts commands on.
	ListenOn string `toml:"listen_on"`
	// Shell is the program run by `kittyrc serve --shell`.
	Shell []string `toml:"shell"`
	// AsyncPeerTimeout bounds how long a socket peer waiting on an
	// asynchronous command is kept open.
	AsyncPeerTimeout string `toml:"async_peer_timeout"`
	LogLevel         string `toml:"log_level"`
}

const (
	defaultAsyncPeerTimeout = "5m"
	defaultLogLevel         = "info"
)

// PeerTimeout returns AsyncPeerTimeout as a duration, or the default when it
// is unset or invalid. Validate reports invalid values.
func (c *Config) PeerTimeout() time.Duration {
	if d, err := time.ParseDuration(c.AsyncPeerTimeout); err == nil && d > 0 {
		return d
	}
	d, _ := time.ParseDuration(defaultAsyncPeerTimeout)
	return d
}
