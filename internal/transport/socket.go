package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"net"
	"os"
	"time"

	"github.com/lydakis/kittyrc/internal/protocol"
)

// Socket reaches the host at Address.
type Socket struct {
	Address string
}

// Open dials the host.
func (s *Socket) Open(ctx context.Context) (Channel, error) {
	addr, err := ParseAddress(s.Address)
	if err != nil {
		return nil, err
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, addr.Network, addr.Addr)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", addr, err)
	}
	return &socketChannel{conn: conn}, nil
}

type socketChannel struct {
	conn net.Conn
}

func (c *socketChannel) Send(frames iter.Seq2[[]byte, error]) error {
	for frame, err := range frames {
		if err != nil {
			return err
		}
		if _, err := c.conn.Write(frame); err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
	}
	// The host reads until EOF.
	if cw, ok := c.conn.(interface{ CloseWrite() error }); ok {
		if err := cw.CloseWrite(); err != nil {
			return fmt.Errorf("closing write side: %w", err)
		}
	}
	return nil
}

func (c *socketChannel) Receive(timeout time.Duration) ([]byte, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, fmt.Errorf("setting read deadline: %w", err)
	}
	var data []byte
	buf := make([]byte, 32*1024)
	for {
		n, err := c.conn.Read(buf)
		data = append(data, buf[:n]...)
		if body, _, ok := protocol.FindFrame(data); ok {
			return body, nil
		}
		switch {
		case err == nil:
		case errors.Is(err, io.EOF), errors.Is(err, os.ErrDeadlineExceeded):
			return nil, ErrTimeout
		default:
			return nil, fmt.Errorf("reading response: %w", err)
		}
	}
}

func (c *socketChannel) Close() error {
	return c.conn.Close()
}
