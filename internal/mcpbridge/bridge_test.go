package mcpbridge

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/lydakis/kittyrc/internal/client"
	"github.com/lydakis/kittyrc/internal/commands"
	"github.com/lydakis/kittyrc/internal/protocol"
	"github.com/lydakis/kittyrc/internal/rc"
	"github.com/lydakis/kittyrc/internal/transport"
	"github.com/mark3labs/mcp-go/mcp"
)

type invocation struct {
	globals rc.Globals
	name    string
	argv    []string
}

type fakeInvoker struct {
	calls []invocation
	data  any
	err   error
}

func (f *fakeInvoker) Invoke(ctx context.Context, globals rc.Globals, name string, argv []string) (any, error) {
	f.calls = append(f.calls, invocation{globals: globals, name: name, argv: argv})
	return f.data, f.err
}

func testCatalog() *rc.Catalog {
	return rc.NewCatalog(
		&rc.Descriptor{Name: "ping", ShortDesc: "Check"},
		&rc.Descriptor{Name: "new-window", ShortDesc: "Open new window", ArgSpec: "[CMD ...]"},
	)
}

func callTool(t *testing.T, b *Bridge, command string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Name = ToolName(command)
	req.Params.Arguments = args
	res, err := b.handler(command)(context.Background(), req)
	if err != nil {
		t.Fatalf("handler() error = %v", err)
	}
	return res
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("content = %d items, want 1", len(res.Content))
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content = %T, want TextContent", res.Content[0])
	}
	return tc.Text
}

func TestToolCallInvokesCommand(t *testing.T) {
	inv := &fakeInvoker{data: uint64(7)}
	b, err := New(testCatalog(), inv, rc.Globals{To: "unix:/default"}, "test")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	res := callTool(t, b, "new-window", map[string]any{"args": []any{"--title", "x", "vim"}})
	if res.IsError {
		t.Fatalf("result is an error: %s", text(t, res))
	}
	if got := text(t, res); got != "7" {
		t.Fatalf("text = %q, want 7", got)
	}
	want := invocation{globals: rc.Globals{To: "unix:/default"}, name: "new-window", argv: []string{"--title", "x", "vim"}}
	if !reflect.DeepEqual(inv.calls[0], want) {
		t.Fatalf("invocation = %+v, want %+v", inv.calls[0], want)
	}
}

func TestToolCallAddressOverride(t *testing.T) {
	inv := &fakeInvoker{data: "pong"}
	b, _ := New(testCatalog(), inv, rc.Globals{}, "test")

	res := callTool(t, b, "ping", map[string]any{"to": "tcp:localhost:5000"})
	if got := text(t, res); got != "pong" {
		t.Fatalf("text = %q, want pong", got)
	}
	if inv.calls[0].globals.To != "tcp:localhost:5000" {
		t.Fatalf("To = %q", inv.calls[0].globals.To)
	}
}

func TestToolCallErrorIsToolResult(t *testing.T) {
	inv := &fakeInvoker{err: errors.New("timed out after 10s waiting for response from the terminal")}
	b, _ := New(testCatalog(), inv, rc.Globals{}, "test")

	res := callTool(t, b, "ping", nil)
	if !res.IsError {
		t.Fatal("IsError = false, want true")
	}
	if !strings.Contains(text(t, res), "timed out") {
		t.Fatalf("text = %q", text(t, res))
	}
}

func TestNilDataIsOK(t *testing.T) {
	b, _ := New(testCatalog(), &fakeInvoker{}, rc.Globals{}, "test")
	if got := text(t, callTool(t, b, "ping", map[string]any{})); got != "OK" {
		t.Fatalf("text = %q, want OK", got)
	}
}

func TestToolsListed(t *testing.T) {
	b, _ := New(testCatalog(), &fakeInvoker{}, rc.Globals{}, "test")
	msg := b.mcpServer.HandleMessage(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	out, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	for _, name := range []string{`"name":"ping"`, `"name":"new_window"`} {
		if !strings.Contains(string(out), name) {
			t.Fatalf("tools/list = %s, missing %s", out, name)
		}
	}
}

// blockingReader stands in for the MCP stream on stdin: reading it hangs.
type blockingReader struct{ read chan struct{} }

func (r blockingReader) Read([]byte) (int, error) {
	close(r.read)
	select {}
}

type recordingTransport struct{ frames [][]byte }

func (tr *recordingTransport) Open(context.Context) (transport.Channel, error) { return tr, nil }

func (tr *recordingTransport) Send(frames iter.Seq2[[]byte, error]) error {
	for f, err := range frames {
		if err != nil {
			return err
		}
		tr.frames = append(tr.frames, f)
	}
	return nil
}

func (tr *recordingTransport) Receive(time.Duration) ([]byte, error) {
	return nil, transport.ErrTimeout
}

func (tr *recordingTransport) Close() error { return nil }

func TestSendTextStdinDoesNotReadProcessStdin(t *testing.T) {
	tr := &recordingTransport{}
	stdin := blockingReader{read: make(chan struct{})}
	d := &client.Driver{
		Catalog: commands.Catalog(),
		Stdin:   stdin,
		Environ: map[string]string{},
		Select:  func(string) transport.Transport { return tr },
	}
	b, err := New(commands.Catalog(), d, rc.Globals{To: "unix:/tmp/k.sock"}, "test")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var req mcp.CallToolRequest
	req.Params.Name = ToolName("send-text")
	req.Params.Arguments = map[string]any{"args": []any{"--stdin", "hi"}}
	done := make(chan *mcp.CallToolResult, 1)
	go func() {
		res, _ := b.handler("send-text")(context.Background(), req)
		done <- res
	}()
	select {
	case res := <-done:
		if res == nil || res.IsError {
			t.Fatalf("result = %+v, want success", res)
		}
	case <-stdin.read:
		t.Fatal("send_text read the process stdin")
	case <-time.After(5 * time.Second):
		t.Fatal("send_text did not return")
	}

	if len(tr.frames) != 1 {
		t.Fatalf("frames = %d, want 1", len(tr.frames))
	}
	body, _, _ := protocol.FindFrame(tr.frames[0])
	env, err := protocol.DecodeEnvelope(body)
	if err != nil {
		t.Fatalf("DecodeEnvelope() error = %v", err)
	}
	if got := env.Payload.(map[string]any)["data"]; got != "text:hi" {
		t.Fatalf("data = %v, want text:hi", got)
	}
}
