// Package rc defines what a remote-control command is: its descriptor, the
// values it is executed with and the result it hands back to the dispatcher.
// Concrete commands live in internal/commands.
package rc

import (
	"context"
	"io"
	"iter"
	"time"

	"github.com/spf13/pflag"
)

// DefaultResponseTimeout applies to commands that do not set their own.
const DefaultResponseTimeout = 10 * time.Second

// Descriptor describes one command. Descriptors are registered once in a
// Catalog and never modified afterwards.
type Descriptor struct {
	Name      string
	ShortDesc string
	ArgSpec   string

	// NoResponse suppresses the response unless the command line overrides it.
	NoResponse bool
	// Asynchronous commands may finish after Execute returns.
	Asynchronous bool
	// StringReturnIsError makes the client treat string data as a failure.
	StringReturnIsError bool
	ResponseTimeout     time.Duration

	// Options registers command specific flags. A command that defines
	// "no-response" or "response-timeout" lets the caller override the
	// defaults above.
	Options      func(fs *pflag.FlagSet)
	BuildPayload func(req PayloadRequest) (any, error)
	Execute      func(ctx context.Context, call *Call) (Result, error)
	Cancel       func(ctx context.Context, call *Call)
}

// Timeout returns the response timeout, falling back to the default.
func (d *Descriptor) Timeout() time.Duration {
	if d.ResponseTimeout > 0 {
		return d.ResponseTimeout
	}
	return DefaultResponseTimeout
}

// Globals are the options given before the command name.
type Globals struct {
	To string
}

// PayloadRequest carries everything a command needs to build its payload on
// the client side.
type PayloadRequest struct {
	Globals Globals
	Flags   *pflag.FlagSet
	Args    []string
	Stdin   io.Reader
}

// Chunks is a payload produced lazily. Every chunk travels in its own
// envelope sharing the rest of the request's metadata.
type Chunks iter.Seq[any]

// Origin identifies where a request came from: a socket peer or a window
// talking over its own terminal stream.
type Origin struct {
	PeerID   uint64
	WindowID uint64
}

// Call is one execution of a command on the host.
type Call struct {
	Boss    Boss
	Payload Payload
	Origin  Origin
	AsyncID string
}

// ResultKind distinguishes the three things a command can hand back.
type ResultKind int

const (
	// KindValue results are answered with {ok: true, data: value}.
	KindValue ResultKind = iota
	// KindSuppressed results are never answered.
	KindSuppressed
	// KindDeferred results are answered later through completion delivery.
	KindDeferred
)

// Result is the outcome of Execute.
type Result struct {
	kind  ResultKind
	value any
}

var (
	// Suppressed tells the dispatcher not to answer, whatever the caller asked.
	Suppressed = Result{kind: KindSuppressed}
	// Deferred tells the dispatcher the answer will be delivered later.
	Deferred = Result{kind: KindDeferred}
)

// Respond wraps a value to be returned as response data. A nil value yields
// a bare {ok: true}.
func Respond(v any) Result {
	return Result{kind: KindValue, value: v}
}

// Kind returns which variant r is.
func (r Result) Kind() ResultKind { return r.kind }

// Data returns the value of a KindValue result.
func (r Result) Data() any { return r.value }
