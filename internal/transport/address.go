package transport

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidAddress is wrapped by ParseAddress failures.
var ErrInvalidAddress = errors.New("invalid address")

// Address is a parsed listen/connect address.
type Address struct {
	Network string
	Addr    string
}

func (a Address) String() string {
	return a.Network + ":" + a.Addr
}

// ParseAddress parses unix:/path, unix:@abstract, tcp:host:port and
// tcp6:host:port addresses.
func ParseAddress(s string) (Address, error) {
	network, rest, ok := strings.Cut(s, ":")
	if !ok || rest == "" {
		return Address{}, fmt.Errorf("%w %q: expected unix:<path> or tcp:<host>:<port>", ErrInvalidAddress, s)
	}
	switch network {
	case "unix":
		return Address{Network: "unix", Addr: rest}, nil
	case "tcp", "tcp6":
		if !strings.Contains(rest, ":") {
			return Address{}, fmt.Errorf("%w %q: missing port", ErrInvalidAddress, s)
		}
		return Address{Network: network, Addr: rest}, nil
	default:
		return Address{}, fmt.Errorf("%w %q: unsupported network %q", ErrInvalidAddress, s, network)
	}
}
