package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/lydakis/kittyrc/internal/protocol"
)

func TestSelect(t *testing.T) {
	if _, ok := Select("unix:/tmp/k.sock").(*Socket); !ok {
		t.Fatal("Select(address) is not a socket transport")
	}
	if _, ok := Select("").(*InBand); !ok {
		t.Fatal("Select(\"\") is not an in-band transport")
	}
}

func TestParseAddress(t *testing.T) {
	cases := map[string]Address{
		"unix:/run/k.sock":  {Network: "unix", Addr: "/run/k.sock"},
		"unix:@kitty":       {Network: "unix", Addr: "@kitty"},
		"tcp:localhost:123": {Network: "tcp", Addr: "localhost:123"},
		"tcp6:[::1]:123":    {Network: "tcp6", Addr: "[::1]:123"},
	}
	for in, want := range cases {
		got, err := ParseAddress(in)
		if err != nil {
			t.Fatalf("ParseAddress(%q) error = %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseAddress(%q) = %+v, want %+v", in, got, want)
		}
	}

	for _, bad := range []string{"", "/tmp/k.sock", "unix:", "tcp:localhost", "udp:x:1"} {
		if _, err := ParseAddress(bad); !errors.Is(err, ErrInvalidAddress) {
			t.Fatalf("ParseAddress(%q) error = %v, want ErrInvalidAddress", bad, err)
		}
	}
}

// listen starts a one-shot unix socket host that hands every request to
// reply and writes back what it returns.
func listen(t *testing.T, reply func(req []byte) []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "k.sock")
	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	var wg sync.WaitGroup
	t.Cleanup(func() {
		ln.Close()
		wg.Wait()
	})
	wg.Add(1)
	go func() {
		defer wg.Done()
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		req, _ := io.ReadAll(conn)
		if out := reply(req); out != nil {
			conn.Write(out) //nolint: errcheck
		}
	}()
	return "unix:" + path
}

func TestSocketPing(t *testing.T) {
	addr := listen(t, func(req []byte) []byte {
		env := &protocol.Envelope{}
		if err := protocol.Decode(req, env); err != nil || env.Cmd != "ping" {
			return nil
		}
		frame, _ := protocol.EncodeResponse(&protocol.Response{OK: true, Data: "pong"})
		return frame
	})

	ch, err := (&Socket{Address: addr}).Open(context.Background())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer ch.Close()

	frame, err := protocol.EncodeCommand(&protocol.Envelope{Cmd: "ping", Version: protocol.Current})
	if err != nil {
		t.Fatalf("EncodeCommand() error = %v", err)
	}
	if err := ch.Send(Frames(frame)); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	body, err := ch.Receive(time.Second)
	if err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	resp, err := protocol.DecodeResponse(body)
	if err != nil {
		t.Fatalf("DecodeResponse() error = %v", err)
	}
	if !resp.OK || resp.Data != "pong" {
		t.Fatalf("response = %#v, want ok pong", resp)
	}
}

func TestSocketReceiveTimesOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "k.sock")
	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
	}()

	ch, err := (&Socket{Address: "unix:" + path}).Open(context.Background())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer ch.Close()
	defer func() {
		if conn := <-accepted; conn != nil {
			conn.Close()
		}
	}()

	if _, err := ch.Receive(50 * time.Millisecond); !errors.Is(err, ErrTimeout) {
		t.Fatalf("Receive() error = %v, want ErrTimeout", err)
	}
}

func TestSocketClosedWithoutFrame(t *testing.T) {
	addr := listen(t, func(req []byte) []byte { return []byte("garbage") })
	ch, err := (&Socket{Address: addr}).Open(context.Background())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer ch.Close()
	if err := ch.Send(Frames([]byte("x"))); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if _, err := ch.Receive(time.Second); !errors.Is(err, ErrTimeout) {
		t.Fatalf("Receive() error = %v, want ErrTimeout", err)
	}
}

func TestSocketSendStopsOnSequenceError(t *testing.T) {
	addr := listen(t, func(req []byte) []byte { return nil })
	ch, err := (&Socket{Address: addr}).Open(context.Background())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer ch.Close()

	boom := errors.New("chunk failed")
	err = ch.Send(func(yield func([]byte, error) bool) {
		if !yield([]byte("a"), nil) {
			return
		}
		yield(nil, boom)
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Send() error = %v, want %v", err, boom)
	}
}

func TestSocketOpenRejectsBadAddress(t *testing.T) {
	if _, err := (&Socket{Address: "nope"}).Open(context.Background()); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("Open() error = %v, want ErrInvalidAddress", err)
	}
}

// pipeTerminal reads from a pipe and records writes.
type pipeTerminal struct {
	r       *os.File
	written bytes.Buffer
}

func (p *pipeTerminal) Read(b []byte) (int, error)  { return p.r.Read(b) }
func (p *pipeTerminal) Write(b []byte) (int, error) { return p.written.Write(b) }
func (p *pipeTerminal) Close() error                { return p.r.Close() }
func (p *pipeTerminal) Fd() uintptr                 { return p.r.Fd() }

func newPipeTerminal(t *testing.T) (*pipeTerminal, *os.File) {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe() error = %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return &pipeTerminal{r: r}, w
}

func TestInBandRoundTrip(t *testing.T) {
	tty, input := newPipeTerminal(t)
	tr := &InBand{OpenTerminal: func() (Terminal, error) { return tty, nil }}
	ch, err := tr.Open(context.Background())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer ch.Close()

	frame, _ := protocol.EncodeCommand(&protocol.Envelope{Cmd: "ls", Version: protocol.Current})
	if err := ch.Send(Frames(frame)); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if !bytes.Equal(tty.written.Bytes(), frame) {
		t.Fatalf("terminal got %q, want %q", tty.written.Bytes(), frame)
	}

	resp, _ := protocol.EncodeResponse(&protocol.Response{OK: true, Data: "[]"})
	go func() {
		input.Write([]byte("typed keys")) //nolint: errcheck
		input.Write(resp[:7])             //nolint: errcheck
		time.Sleep(10 * time.Millisecond)
		input.Write(resp[7:]) //nolint: errcheck
	}()

	body, err := ch.Receive(time.Second)
	if err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	if want := `{"ok":true,"data":"[]"}`; string(body) != want {
		t.Fatalf("Receive() = %s, want %s", body, want)
	}
}

func TestInBandReceiveTimesOut(t *testing.T) {
	tty, _ := newPipeTerminal(t)
	ch, err := (&InBand{OpenTerminal: func() (Terminal, error) { return tty, nil }}).Open(context.Background())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer ch.Close()

	start := time.Now()
	if _, err := ch.Receive(50 * time.Millisecond); !errors.Is(err, ErrTimeout) {
		t.Fatalf("Receive() error = %v, want ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Fatalf("Receive() returned after %s, before the timeout", elapsed)
	}
}

func TestInBandOpenError(t *testing.T) {
	boom := errors.New("no tty")
	_, err := (&InBand{OpenTerminal: func() (Terminal, error) { return nil, boom }}).Open(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("Open() error = %v, want %v", err, boom)
	}
}
