// Package mcpbridge exposes the remote-control commands as MCP tools served
// over stdio. Every tool call runs the command through the client driver.
package mcpbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/lydakis/kittyrc/internal/client"
	"github.com/lydakis/kittyrc/internal/rc"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const serverName = "kittyrc"

// Invoker runs one command. *client.Driver implements it.
type Invoker interface {
	Invoke(ctx context.Context, globals rc.Globals, name string, argv []string) (any, error)
}

// Bridge is an MCP server with one tool per command.
type Bridge struct {
	mcpServer *server.MCPServer
	invoker   Invoker
	globals   rc.Globals
}

// ToolInput is the argument object of every tool.
type ToolInput struct {
	Args []string `json:"args"`
	To   string   `json:"to"`
}

// New creates a bridge for every command in catalog. globals are used for
// calls that do not name an address themselves.
func New(catalog rc.Resolver, invoker Invoker, globals rc.Globals, version string) (*Bridge, error) {
	// Stdin carries the MCP stream, so commands reading input see none.
	if d, ok := invoker.(*client.Driver); ok {
		detached := *d
		detached.Stdin = noInput{}
		invoker = &detached
	}
	b := &Bridge{
		mcpServer: server.NewMCPServer(serverName, version, server.WithToolCapabilities(false)),
		invoker:   invoker,
		globals:   globals,
	}
	for _, name := range catalog.Names() {
		desc, err := catalog.Resolve(name)
		if err != nil {
			return nil, err
		}
		b.mcpServer.AddTool(toolFor(desc), b.handler(desc.Name))
	}
	return b, nil
}

// Serve serves MCP on stdin/stdout until the client disconnects.
func (b *Bridge) Serve() error {
	if err := server.ServeStdio(b.mcpServer); err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}

type noInput struct{}

func (noInput) Read([]byte) (int, error) { return 0, io.EOF }

// ToolName is the MCP tool name of a command.
func ToolName(command string) string {
	return strings.ReplaceAll(command, "-", "_")
}

func toolFor(desc *rc.Descriptor) mcp.Tool {
	description := desc.ShortDesc
	if desc.ArgSpec != "" {
		description += ". Arguments: " + desc.ArgSpec
	}
	return mcp.NewTool(
		ToolName(desc.Name),
		mcp.WithDescription(description),
		mcp.WithArray("args",
			mcp.Description("Command line options and arguments, as given after the command name"),
			mcp.WithStringItems(),
		),
		mcp.WithString("to",
			mcp.Description("Address of the terminal, e.g. unix:/path/to/socket. Defaults to KITTY_LISTEN_ON"),
		),
	)
}

func (b *Bridge) handler(command string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var input ToolInput
		if err := request.BindArguments(&input); err != nil {
			return mcp.NewToolResultErrorFromErr("invalid arguments", err), nil
		}
		globals := b.globals
		if input.To != "" {
			globals.To = input.To
		}

		data, err := b.invoker.Invoke(ctx, globals, command, input.Args)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return resultText(data)
	}
}

func resultText(data any) (*mcp.CallToolResult, error) {
	switch v := data.(type) {
	case nil:
		return mcp.NewToolResultText("OK"), nil
	case string:
		return mcp.NewToolResultText(v), nil
	default:
		out, err := json.Marshal(v)
		if err != nil {
			return mcp.NewToolResultErrorFromErr("encoding result", err), nil
		}
		return mcp.NewToolResultText(string(out)), nil
	}
}
