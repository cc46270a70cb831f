package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"time"

	"github.com/lydakis/kittyrc/internal/protocol"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// Terminal is the controlling terminal of the client process.
type Terminal interface {
	io.ReadWriteCloser
	Fd() uintptr
}

var openControllingTerminal = func() (Terminal, error) {
	return os.OpenFile("/dev/tty", os.O_RDWR, 0)
}

// InBand talks to the host through the terminal the client runs in.
type InBand struct {
	// OpenTerminal overrides how the controlling terminal is opened.
	OpenTerminal func() (Terminal, error)
}

// Open opens the terminal and switches it to raw mode when it is one.
func (t *InBand) Open(ctx context.Context) (Channel, error) {
	open := t.OpenTerminal
	if open == nil {
		open = openControllingTerminal
	}
	tty, err := open()
	if err != nil {
		return nil, fmt.Errorf("opening controlling terminal: %w", err)
	}
	ch := &inBandChannel{tty: tty, parser: &protocol.StreamParser{}}
	fd := int(tty.Fd())
	if term.IsTerminal(fd) {
		state, err := term.MakeRaw(fd)
		if err != nil {
			tty.Close()
			return nil, fmt.Errorf("setting terminal raw mode: %w", err)
		}
		ch.restore = func() { _ = term.Restore(fd, state) }
	}
	return ch, nil
}

type inBandChannel struct {
	tty     Terminal
	parser  *protocol.StreamParser
	restore func()
}

func (c *inBandChannel) Send(frames iter.Seq2[[]byte, error]) error {
	for frame, err := range frames {
		if err != nil {
			return err
		}
		if _, err := c.tty.Write(frame); err != nil {
			return fmt.Errorf("writing to terminal: %w", err)
		}
	}
	return nil
}

func (c *inBandChannel) Receive(timeout time.Duration) ([]byte, error) {
	deadline := time.Now().Add(timeout)
	fd := int32(c.tty.Fd())
	buf := make([]byte, 4096)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, ErrTimeout
		}
		fds := []unix.PollFd{{Fd: fd, Events: unix.POLLIN}}
		n, err := unix.Poll(fds, int((remaining+time.Millisecond-1)/time.Millisecond))
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return nil, fmt.Errorf("waiting for terminal input: %w", err)
		}
		if n == 0 {
			continue
		}

		r, err := c.tty.Read(buf)
		if r > 0 {
			// Anything that is not a frame is keyboard input racing the
			// response; it is dropped.
			if _, frames := c.parser.Feed(buf[:r]); len(frames) > 0 {
				return frames[0], nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, ErrTimeout
			}
			return nil, fmt.Errorf("reading from terminal: %w", err)
		}
	}
}

func (c *inBandChannel) Close() error {
	if c.restore != nil {
		c.restore()
	}
	return c.tty.Close()
}
