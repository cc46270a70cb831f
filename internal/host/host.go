// Package host is a small reference host application: a set of windows
// driven by remote-control commands arriving over a socket or in-band from
// the programs running in those windows.
package host

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/lydakis/kittyrc/internal/dispatch"
	"github.com/lydakis/kittyrc/internal/ipc"
	"github.com/lydakis/kittyrc/internal/protocol"
	"github.com/lydakis/kittyrc/internal/rc"
	"go.uber.org/zap"
)

// ErrStopped is returned for work submitted to a stopped host.
var ErrStopped = errors.New("host stopped")

// DisabledMessage is the error answered while remote control is disabled.
const DisabledMessage = "remote control is disabled, set allow_remote_control = true in the kittyrc config"

// PeerSender delivers frames to socket peers.
type PeerSender interface {
	SendToPeer(peerID uint64, frame []byte) error
	ReleasePeer(peerID uint64)
}

// Host owns the window model and the dispatch loop. Every envelope and every
// async completion runs on the loop, one at a time.
type Host struct {
	log        *zap.Logger
	dispatcher *dispatch.Dispatcher
	timers     *Timers
	allow      bool

	jobs     chan func()
	quit     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once

	peersMu sync.Mutex
	peers   PeerSender

	mu      sync.Mutex
	windows []*Window
	nextID  uint64
	focused uint64
}

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(h *Host) { h.log = log }
}

// WithRemoteControl enables or disables remote control.
func WithRemoteControl(allow bool) Option {
	return func(h *Host) { h.allow = allow }
}

// New creates a host serving the commands of catalog. Start must be called
// before any request is handled.
func New(catalog rc.Resolver, opts ...Option) *Host {
	h := &Host{
		log:     zap.NewNop(),
		allow:   true,
		jobs:    make(chan func()),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.timers = NewTimers(h.post)
	h.dispatcher = dispatch.New(catalog, h, h, dispatch.WithLogger(h.log.Named("dispatch")))
	return h
}

// Start runs the dispatch loop.
func (h *Host) Start() {
	go h.loop()
}

// Stop ends the dispatch loop and cancels pending timers.
func (h *Host) Stop() {
	h.stopOnce.Do(func() {
		h.timers.Stop()
		close(h.quit)
	})
	<-h.stopped
}

// AttachPeers sets where responses for socket peers go.
func (h *Host) AttachPeers(p PeerSender) {
	h.peersMu.Lock()
	defer h.peersMu.Unlock()
	h.peers = p
}

// Dispatcher returns the host's dispatcher.
func (h *Host) Dispatcher() *dispatch.Dispatcher {
	return h.dispatcher
}

func (h *Host) loop() {
	defer close(h.stopped)
	for {
		select {
		case job := <-h.jobs:
			job()
		case <-h.quit:
			return
		}
	}
}

// do runs fn on the loop and waits for it.
func (h *Host) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case h.jobs <- func() { defer close(done); fn() }:
	case <-ctx.Done():
		return ctx.Err()
	case <-h.quit:
		return ErrStopped
	}
	select {
	case <-done:
		return nil
	case <-h.quit:
		return ErrStopped
	}
}

// post queues fn on the loop without waiting.
func (h *Host) post(fn func()) {
	go func() {
		select {
		case h.jobs <- fn:
		case <-h.quit:
		}
	}()
}

// HandlePeerFrame handles one request frame body from a socket peer. It is
// the ipc.Handler of the host's socket server.
func (h *Host) HandlePeerFrame(ctx context.Context, peerID uint64, body []byte) ipc.Reply {
	var (
		resp     *protocol.Response
		deferred bool
	)
	if err := h.do(ctx, func() {
		resp, deferred = h.handle(ctx, body, rc.Origin{PeerID: peerID})
	}); err != nil {
		h.log.Debug("peer request abandoned", zap.Uint64("peer_id", peerID), zap.Error(err))
		return ipc.Reply{}
	}
	if resp == nil {
		return ipc.Reply{Deferred: deferred}
	}
	frame, err := protocol.EncodeResponse(resp)
	if err != nil {
		h.log.Error("encoding response", zap.Uint64("peer_id", peerID), zap.Error(err))
		frame, _ = protocol.EncodeResponse(protocol.Failure(fmt.Sprintf("encoding response: %v", err)))
	}
	return ipc.Reply{Frame: frame}
}

// handle decodes and dispatches one envelope. It returns the response to
// write now, if any, and whether the answer was deferred.
func (h *Host) handle(ctx context.Context, body []byte, origin rc.Origin) (*protocol.Response, bool) {
	log := h.log.With(zap.Uint64("peer_id", origin.PeerID), zap.Uint64("window_id", origin.WindowID))
	env, err := protocol.DecodeEnvelope(body)
	if err != nil {
		log.Warn("malformed request", zap.Error(err))
		return protocol.Failure(err.Error()), false
	}
	log = log.With(zap.String("cmd", env.Cmd))

	if !h.allow {
		log.Info("remote control disabled, refusing command")
		if env.NoResponse {
			return nil, false
		}
		return protocol.Failure(DisabledMessage), false
	}

	out, err := h.dispatcher.Handle(ctx, env, origin)
	if err != nil {
		log.Info("command failed", zap.Error(err))
		if env.NoResponse {
			return nil, false
		}
		return dispatch.ErrorResponse(err), false
	}
	switch out.Kind {
	case dispatch.OutcomeRespond:
		return out.Response, false
	case dispatch.OutcomeDeferred:
		log.Debug("response deferred", zap.String("async_id", env.AsyncID))
		return nil, true
	}
	return nil, false
}

// SendToPeer implements dispatch.Sink.
func (h *Host) SendToPeer(peerID uint64, frame []byte) error {
	h.peersMu.Lock()
	p := h.peers
	h.peersMu.Unlock()
	if p == nil {
		return fmt.Errorf("peer %d: no socket server attached", peerID)
	}
	return p.SendToPeer(peerID, frame)
}

// ReleasePeer implements dispatch.Sink.
func (h *Host) ReleasePeer(peerID uint64) {
	h.peersMu.Lock()
	p := h.peers
	h.peersMu.Unlock()
	if p != nil {
		p.ReleasePeer(peerID)
	}
}

// SendToWindow implements dispatch.Sink.
func (h *Host) SendToWindow(windowID uint64, resp *protocol.Response) error {
	w := h.window(windowID)
	if w == nil {
		return fmt.Errorf("window %d: no such window", windowID)
	}
	frame, err := protocol.EncodeResponse(resp)
	if err != nil {
		return err
	}
	_, err = w.input.Write(frame)
	return err
}

// HandleWindowOutput scans output written by the program in windowID for
// command frames, dispatches them and returns the remaining bytes to be
// displayed. Calls for one window must not overlap.
func (h *Host) HandleWindowOutput(ctx context.Context, windowID uint64, data []byte) []byte {
	w := h.window(windowID)
	if w == nil {
		return data
	}
	passthrough, frames := w.parser.Feed(data)
	for _, body := range frames {
		h.handleWindowFrame(ctx, windowID, body)
	}
	return passthrough
}

func (h *Host) handleWindowFrame(ctx context.Context, windowID uint64, body []byte) {
	// A response echoed back by a terminal that is not in raw mode looks
	// like a frame without a command.
	if env, err := protocol.DecodeEnvelope(body); err == nil && env.Cmd == "" {
		return
	}
	var resp *protocol.Response
	if err := h.do(ctx, func() {
		resp, _ = h.handle(ctx, body, rc.Origin{WindowID: windowID})
	}); err != nil || resp == nil {
		return
	}
	if err := h.SendToWindow(windowID, resp); err != nil {
		h.log.Warn("writing in-band response", zap.Uint64("window_id", windowID), zap.Error(err))
	}
}
