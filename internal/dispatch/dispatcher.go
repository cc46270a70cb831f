// Package dispatch executes decoded remote-control envelopes on the host and
// delivers the late answers of asynchronous commands.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/lydakis/kittyrc/internal/asyncreq"
	"github.com/lydakis/kittyrc/internal/protocol"
	"github.com/lydakis/kittyrc/internal/rc"
	"go.uber.org/zap"
)

// Sink carries completed responses back to whoever asked.
type Sink interface {
	SendToPeer(peerID uint64, frame []byte) error
	SendToWindow(windowID uint64, resp *protocol.Response) error
	// ReleasePeer closes a socket peer whose deferred request will never
	// be answered.
	ReleasePeer(peerID uint64)
}

// OutcomeKind says what the boundary should do after Handle.
type OutcomeKind int

const (
	// OutcomeNone means nothing is written back.
	OutcomeNone OutcomeKind = iota
	// OutcomeDeferred means the answer will arrive through Deliver.
	OutcomeDeferred
	// OutcomeRespond means Response must be written back now.
	OutcomeRespond
)

// Outcome is the result of dispatching one envelope.
type Outcome struct {
	Kind     OutcomeKind
	Response *protocol.Response
}

// ExecutionError wraps a failure raised by a command.
type ExecutionError struct {
	Command string
	Err     error
	// Stack is set when the command panicked.
	Stack string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Command, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Dispatcher runs envelopes against a command catalog. It owns the tracker of
// outstanding asynchronous requests. Handle and Deliver are expected to be
// called from the host's dispatch loop.
type Dispatcher struct {
	catalog rc.Resolver
	boss    rc.Boss
	sink    Sink
	tracker *asyncreq.Tracker
	// waiting maps a deferred async id to the socket peer holding it open.
	waiting map[string]uint64
	version protocol.Version
	log     *zap.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithVersion overrides the host version used by the compatibility gate.
func WithVersion(v protocol.Version) Option {
	return func(d *Dispatcher) { d.version = v }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(d *Dispatcher) { d.log = log }
}

// New creates a dispatcher.
func New(catalog rc.Resolver, boss rc.Boss, sink Sink, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		catalog: catalog,
		boss:    boss,
		sink:    sink,
		tracker: asyncreq.New(),
		waiting: make(map[string]uint64),
		version: protocol.Current,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Tracker returns the async request tracker.
func (d *Dispatcher) Tracker() *asyncreq.Tracker {
	return d.tracker
}

// Handle dispatches env. A returned error has not been turned into a
// response; the caller reports it with ErrorResponse.
func (d *Dispatcher) Handle(ctx context.Context, env *protocol.Envelope, origin rc.Origin) (Outcome, error) {
	if !env.Version.Compatible(d.version) {
		d.log.Warn("rejecting newer client", zap.String("cmd", env.Cmd), zap.Stringer("client_version", env.Version))
		if env.NoResponse {
			return Outcome{}, nil
		}
		return respond(protocol.Failure(protocol.VersionMismatchMessage)), nil
	}

	desc, err := d.catalog.Resolve(env.Cmd)
	if err != nil {
		return Outcome{}, err
	}

	payload, err := mergePayload(env.Payload, origin, env.AsyncID)
	if err != nil {
		if env.NoResponse {
			return Outcome{}, nil
		}
		return Outcome{}, fmt.Errorf("%s: %w", desc.Name, err)
	}
	call := &rc.Call{Boss: d.boss, Payload: payload, Origin: origin, AsyncID: env.AsyncID}

	if env.CancelAsync {
		if env.AsyncID != "" {
			d.tracker.Cancel(env.AsyncID)
			d.releaseWaiting(env.AsyncID)
			if desc.Cancel != nil {
				desc.Cancel(ctx, call)
			}
			d.log.Debug("async request cancelled", zap.String("cmd", desc.Name), zap.String("async_id", env.AsyncID))
		}
		return Outcome{}, nil
	}

	if env.AsyncID != "" {
		if evicted, ok := d.tracker.Register(env.AsyncID); ok {
			d.log.Info("async request evicted", zap.String("evicted", evicted), zap.Int("capacity", asyncreq.Capacity))
			d.releaseWaiting(evicted)
		}
	}

	result, err := d.execute(ctx, desc, call)
	if err != nil || result.Kind() != rc.KindDeferred {
		if env.AsyncID != "" {
			d.tracker.Cancel(env.AsyncID)
			d.releaseWaiting(env.AsyncID)
		}
	}
	if err != nil {
		if env.NoResponse {
			d.log.Debug("command failed without response", zap.String("cmd", desc.Name), zap.Error(err))
			return Outcome{}, nil
		}
		return Outcome{}, err
	}

	switch result.Kind() {
	case rc.KindSuppressed:
		return Outcome{}, nil
	case rc.KindDeferred:
		if env.AsyncID != "" && origin.PeerID > 0 {
			d.waiting[env.AsyncID] = origin.PeerID
		}
		return Outcome{Kind: OutcomeDeferred}, nil
	}
	if desc.NoResponse || env.NoResponse {
		return Outcome{}, nil
	}
	return respond(&protocol.Response{OK: true, Data: result.Data()}), nil
}

// releaseWaiting drops the socket peer still waiting on asyncID, if any.
func (d *Dispatcher) releaseWaiting(asyncID string) {
	peerID, ok := d.waiting[asyncID]
	if !ok {
		return
	}
	delete(d.waiting, asyncID)
	d.sink.ReleasePeer(peerID)
}

func (d *Dispatcher) execute(ctx context.Context, desc *rc.Descriptor, call *rc.Call) (result rc.Result, err error) {
	if desc.Execute == nil {
		return rc.Result{}, &ExecutionError{Command: desc.Name, Err: errors.New("command cannot be run on the host")}
	}
	defer func() {
		if r := recover(); r != nil {
			err = &ExecutionError{Command: desc.Name, Err: fmt.Errorf("panic: %v", r), Stack: string(debug.Stack())}
		}
	}()
	result, err = desc.Execute(ctx, call)
	if err != nil {
		return rc.Result{}, &ExecutionError{Command: desc.Name, Err: err}
	}
	return result, nil
}

// ErrorResponse reports err as a failed response.
func ErrorResponse(err error) *protocol.Response {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		resp := protocol.Failure(execErr.Err.Error())
		resp.Traceback = execErr.Stack
		return resp
	}
	return protocol.Failure(err.Error())
}

func respond(resp *protocol.Response) Outcome {
	return Outcome{Kind: OutcomeRespond, Response: resp}
}

func mergePayload(raw any, origin rc.Origin, asyncID string) (rc.Payload, error) {
	payload := rc.Payload{}
	switch v := raw.(type) {
	case nil:
	case map[string]any:
		for k, val := range v {
			payload[k] = val
		}
	case rc.Payload:
		for k, val := range v {
			payload[k] = val
		}
	default:
		return nil, fmt.Errorf("%w: payload must be an object, got %T", protocol.ErrMalformedPayload, raw)
	}
	payload[rc.KeyPeerID] = origin.PeerID
	payload[rc.KeyWindowID] = origin.WindowID
	if asyncID != "" {
		payload[rc.KeyAsyncID] = asyncID
	}
	return payload, nil
}
