package ipc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lydakis/kittyrc/internal/protocol"
	"github.com/lydakis/kittyrc/internal/transport"
	"go.uber.org/zap"
)

const (
	// requestReadTimeout bounds how long a peer may take to send its
	// request and close its write side.
	requestReadTimeout = 30 * time.Second
	writeTimeout       = 10 * time.Second

	// DefaultPeerTimeout is how long a peer waiting on a deferred response
	// is kept open.
	DefaultPeerTimeout = 5 * time.Minute
)

// ErrUnknownPeer is returned by SendToPeer when the peer is gone.
var ErrUnknownPeer = errors.New("unknown or closed peer")

// Reply is the handler's answer to one request frame.
type Reply struct {
	// Frame is written back to the peer when non-nil.
	Frame []byte
	// Deferred keeps the connection open until SendToPeer answers it.
	Deferred bool
}

// Handler processes the body of one request frame from peerID.
type Handler func(ctx context.Context, peerID uint64, body []byte) Reply

// Server accepts remote-control connections on a socket.
type Server struct {
	address     transport.Address
	handler     Handler
	peerTimeout time.Duration
	log         *zap.Logger

	listener net.Listener
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	nextPeer atomic.Uint64

	mu     sync.Mutex
	peers  map[uint64]*peer
	closed bool
}

type peer struct {
	conn  net.Conn
	timer *time.Timer
}

// Option configures a Server.
type Option func(*Server)

// WithPeerTimeout sets how long deferred peers are kept open.
func WithPeerTimeout(d time.Duration) Option {
	return func(s *Server) { s.peerTimeout = d }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Server) { s.log = log }
}

// NewServer creates a new IPC server.
func NewServer(address transport.Address, handler Handler, opts ...Option) *Server {
	s := &Server{
		address:     address,
		handler:     handler,
		peerTimeout: DefaultPeerTimeout,
		log:         zap.NewNop(),
		peers:       make(map[uint64]*peer),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) isSocketFile() bool {
	return s.address.Network == "unix" && !strings.HasPrefix(s.address.Addr, "@")
}

// Start begins listening for connections. It removes any stale socket file first.
func (s *Server) Start() error {
	if s.isSocketFile() {
		os.Remove(s.address.Addr)
	}

	ln, err := net.Listen(s.address.Network, s.address.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.address, err)
	}
	if s.isSocketFile() {
		if err := os.Chmod(s.address.Addr, 0600); err != nil {
			ln.Close()
			os.Remove(s.address.Addr)
			return fmt.Errorf("setting socket permissions: %w", err)
		}
	}
	s.listener = ln
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.acceptLoop()
	}()
	s.log.Info("listening", zap.Stringer("address", s.address))
	return nil
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Stop closes the listener, waits for in-flight requests and drops every
// peer still waiting for a deferred response.
func (s *Server) Stop() {
	if s.listener != nil {
		s.listener.Close()
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()

	s.mu.Lock()
	s.closed = true
	for id, p := range s.peers {
		p.close()
		delete(s.peers, id)
	}
	s.mu.Unlock()

	if s.isSocketFile() {
		os.Remove(s.address.Addr)
	}
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return // listener closed
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

func (s *Server) handleConn(conn net.Conn) {
	if ok, err := sameUser(conn); !ok {
		s.log.Warn("rejecting connection from another user", zap.Error(err))
		conn.Close()
		return
	}
	peerID := s.nextPeer.Add(1)
	if !s.register(peerID, conn) {
		conn.Close()
		return
	}
	log := s.log.With(zap.Uint64("peer_id", peerID))

	deferred := false
	defer func() {
		if deferred {
			s.arm(peerID)
		} else {
			s.release(peerID)
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(requestReadTimeout))
	data, err := io.ReadAll(conn)
	if err != nil && !errors.Is(err, os.ErrDeadlineExceeded) {
		log.Debug("reading request", zap.Error(err))
		return
	}

	for len(data) > 0 {
		body, rest, ok := protocol.FindFrame(data)
		if !ok {
			break
		}
		data = rest
		reply := s.handler(s.ctx, peerID, body)
		if reply.Frame != nil {
			if err := s.write(peerID, reply.Frame); err != nil {
				log.Debug("writing response", zap.Error(err))
				return
			}
		}
		if reply.Deferred {
			deferred = true
		}
	}
}

// SendToPeer writes frame to a peer held open for a deferred response and
// closes the connection.
func (s *Server) SendToPeer(peerID uint64, frame []byte) error {
	s.mu.Lock()
	p, ok := s.peers[peerID]
	if ok {
		delete(s.peers, peerID)
	}
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("peer %d: %w", peerID, ErrUnknownPeer)
	}
	defer p.close()
	return p.write(frame)
}

// ReleasePeer closes a deferred peer that will not be answered.
func (s *Server) ReleasePeer(peerID uint64) {
	s.log.Debug("releasing deferred peer", zap.Uint64("peer_id", peerID))
	s.release(peerID)
}

func (s *Server) register(peerID uint64, conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.peers[peerID] = &peer{conn: conn}
	return true
}

func (s *Server) write(peerID uint64, frame []byte) error {
	s.mu.Lock()
	p, ok := s.peers[peerID]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("peer %d: %w", peerID, ErrUnknownPeer)
	}
	return p.write(frame)
}

// arm starts the timer that drops a deferred peer nobody answered.
func (s *Server) arm(peerID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.peers[peerID]
	if !ok {
		return
	}
	p.timer = time.AfterFunc(s.peerTimeout, func() {
		s.log.Debug("dropping deferred peer", zap.Uint64("peer_id", peerID), zap.Duration("timeout", s.peerTimeout))
		s.release(peerID)
	})
}

func (s *Server) release(peerID uint64) {
	s.mu.Lock()
	p, ok := s.peers[peerID]
	if ok {
		delete(s.peers, peerID)
	}
	s.mu.Unlock()
	if ok {
		p.close()
	}
}

func (p *peer) write(frame []byte) error {
	_ = p.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_, err := p.conn.Write(frame)
	return err
}

func (p *peer) close() {
	if p.timer != nil {
		p.timer.Stop()
	}
	p.conn.Close()
}
