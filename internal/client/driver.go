// Package client runs remote-control commands against a host: it builds the
// envelope, sends it, waits for the answer and cancels requests that time out.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lydakis/kittyrc/internal/config"
	"github.com/lydakis/kittyrc/internal/protocol"
	"github.com/lydakis/kittyrc/internal/rc"
	"github.com/lydakis/kittyrc/internal/transport"
	"github.com/spf13/pflag"
)

// CancelTimeout bounds the cancellation sent after a timed out request.
const CancelTimeout = 10 * time.Second

// Driver invokes commands. Zero-valued fields other than Catalog fall back
// to the process environment.
type Driver struct {
	Catalog rc.Resolver
	Stdin   io.Reader
	// Stderr receives host tracebacks.
	Stderr io.Writer
	// Environ replaces the process environment when set.
	Environ map[string]string

	Version    protocol.Version
	NewAsyncID func() string
	Select     func(address string) transport.Transport
}

// NewAsyncID returns a fresh asynchronous request id.
func NewAsyncID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NewFlagSet returns the option set of desc. Options end at the first
// positional argument.
func NewFlagSet(desc *rc.Descriptor) *pflag.FlagSet {
	fs := pflag.NewFlagSet(desc.Name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SetInterspersed(false)
	if desc.Options != nil {
		desc.Options(fs)
	}
	return fs
}

// Invoke runs the command name with its arguments argv. It returns the
// response data, or nil when no response was requested.
func (d *Driver) Invoke(ctx context.Context, globals rc.Globals, name string, argv []string) (any, error) {
	desc, err := d.Catalog.Resolve(name)
	if err != nil {
		return nil, &UsageError{Err: err}
	}

	fs := NewFlagSet(desc)
	if err := fs.Parse(argv); err != nil {
		return nil, &UsageError{Err: fmt.Errorf("%s: %w", desc.Name, err)}
	}
	noResponse := desc.NoResponse
	if f := fs.Lookup("no-response"); f != nil && f.Changed {
		noResponse, _ = fs.GetBool("no-response")
	}
	timeout := desc.Timeout()
	if f := fs.Lookup("response-timeout"); f != nil && f.Changed {
		timeout, _ = fs.GetDuration("response-timeout")
	}

	var payload any
	if desc.BuildPayload != nil {
		payload, err = desc.BuildPayload(rc.PayloadRequest{Globals: globals, Flags: fs, Args: fs.Args(), Stdin: d.stdin()})
		if err != nil {
			return nil, &UsageError{Err: fmt.Errorf("%s: %w", desc.Name, err)}
		}
	}

	env := &protocol.Envelope{Cmd: desc.Name, Version: d.version(), NoResponse: noResponse}
	if desc.Asynchronous {
		env.AsyncID = d.newAsyncID()
	}

	address, err := d.address(globals)
	if err != nil {
		return nil, err
	}
	tr := d.transport(address)

	resp, err := d.exchange(ctx, tr, commandFrames(env, payload), noResponse, timeout)
	if errors.Is(err, transport.ErrTimeout) {
		d.cancel(ctx, tr, env)
		return nil, &TimeoutError{Timeout: timeout}
	}
	if err != nil {
		return nil, err
	}
	if noResponse {
		return nil, nil
	}

	if !resp.OK {
		if resp.Traceback != "" {
			fmt.Fprintln(d.stderr(), resp.Traceback)
		}
		return nil, &ResponseError{Message: resp.Error}
	}
	if s, ok := resp.Data.(string); ok && desc.StringReturnIsError {
		return nil, &ResponseError{Message: s}
	}
	return resp.Data, nil
}

func (d *Driver) exchange(ctx context.Context, tr transport.Transport, frames iter.Seq2[[]byte, error], noResponse bool, timeout time.Duration) (*protocol.Response, error) {
	ch, err := tr.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer ch.Close()

	if err := ch.Send(frames); err != nil {
		return nil, err
	}
	if noResponse {
		return nil, nil
	}
	body, err := ch.Receive(timeout)
	if err != nil {
		return nil, err
	}
	return protocol.DecodeResponse(body)
}

// cancel tells the host to abandon env. Failures are ignored; the caller
// reports the timeout either way.
func (d *Driver) cancel(ctx context.Context, tr transport.Transport, env *protocol.Envelope) {
	ctx, stop := context.WithTimeout(context.WithoutCancel(ctx), CancelTimeout)
	defer stop()

	frame, err := protocol.EncodeCommand(env.CancelEnvelope())
	if err != nil {
		return
	}
	_, _ = d.exchange(ctx, tr, transport.Frames(frame), true, CancelTimeout)
}

// commandFrames encodes env with payload. A Chunks payload yields one
// envelope per chunk.
func commandFrames(env *protocol.Envelope, payload any) iter.Seq2[[]byte, error] {
	chunks, ok := payload.(rc.Chunks)
	if !ok {
		env.Payload = payload
		return func(yield func([]byte, error) bool) {
			yield(protocol.EncodeCommand(env))
		}
	}
	return func(yield func([]byte, error) bool) {
		for chunk := range chunks {
			e := *env
			e.Payload = chunk
			frame, err := protocol.EncodeCommand(&e)
			if !yield(frame, err) || err != nil {
				return
			}
		}
	}
}

func (d *Driver) address(globals rc.Globals) (string, error) {
	if globals.To != "" {
		if _, err := transport.ParseAddress(globals.To); err != nil {
			return "", &UsageError{Err: fmt.Errorf("invalid listen on address: %w", err)}
		}
		return globals.To, nil
	}

	ce, err := config.ParseClientEnv(d.Environ)
	if err != nil {
		return "", err
	}
	if ce.ListenOn == "" {
		return "", nil
	}
	if _, err := transport.ParseAddress(ce.ListenOn); err != nil {
		return "", &UsageError{Err: fmt.Errorf("invalid listen on address in %s: %w", config.ListenOnEnvVar, err)}
	}
	return ce.ListenOn, nil
}

func (d *Driver) transport(address string) transport.Transport {
	if d.Select != nil {
		return d.Select(address)
	}
	return transport.Select(address)
}

func (d *Driver) version() protocol.Version {
	if d.Version == (protocol.Version{}) {
		return protocol.Current
	}
	return d.Version
}

func (d *Driver) newAsyncID() string {
	if d.NewAsyncID != nil {
		return d.NewAsyncID()
	}
	return NewAsyncID()
}

func (d *Driver) stdin() io.Reader {
	if d.Stdin != nil {
		return d.Stdin
	}
	return os.Stdin
}

func (d *Driver) stderr() io.Writer {
	if d.Stderr != nil {
		return d.Stderr
	}
	return os.Stderr
}
