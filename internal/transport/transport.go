// Package transport moves encoded frames between the client and the host,
// either over a socket or in-band through the controlling terminal.
package transport

import (
	"context"
	"errors"
	"iter"
	"time"
)

// ErrTimeout is returned by Receive when no complete frame arrived in time.
var ErrTimeout = errors.New("timed out waiting for a response frame")

// Transport opens channels to the host.
type Transport interface {
	Open(ctx context.Context) (Channel, error)
}

// Channel is one open conversation with the host. Close must be called on
// every path.
type Channel interface {
	// Send writes frames in order, stopping at the first error the sequence
	// yields.
	Send(frames iter.Seq2[[]byte, error]) error
	// Receive waits up to timeout for one complete response frame and
	// returns its JSON body.
	Receive(timeout time.Duration) ([]byte, error)
	Close() error
}

// Select picks the socket transport when an address is given and the
// in-band transport otherwise.
func Select(address string) Transport {
	if address != "" {
		return &Socket{Address: address}
	}
	return &InBand{}
}

// Frames yields each frame in turn.
func Frames(frames ...[]byte) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		for _, f := range frames {
			if !yield(f, nil) {
				return
			}
		}
	}
}
