// Package cli implements the kittyrc command line.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/lydakis/kittyrc/internal/client"
	"github.com/lydakis/kittyrc/internal/commands"
	"github.com/lydakis/kittyrc/internal/rc"
	"github.com/spf13/pflag"
)

// Exit codes.
const (
	ExitOK         = 0
	ExitCommandErr = 1
	ExitUsageErr   = 2
	ExitInternal   = 3
	ExitTimeout    = 4
)

var newDriver = func() *client.Driver {
	return &client.Driver{Catalog: commands.Catalog()}
}

// Run is the main CLI entry point. Returns an exit code.
func Run(args []string) int {
	if handled, code := handleRootFlags(args); handled {
		return code
	}

	globals, rest, err := parseGlobals(args)
	if err != nil {
		fmt.Fprintf(rootStderr, "kittyrc: %v\n", err)
		return ExitUsageErr
	}

	// No command: list them
	if len(rest) == 0 {
		printRootHelp(rootStdout)
		return ExitOK
	}

	switch rest[0] {
	case "serve":
		return runServe(rest[1:])
	case "mcp":
		return runMCP(globals, rest[1:])
	case "help":
		return runHelp(rest[1:])
	case "completion":
		return runCompletionCommand(rest[1:], rootStdout, rootStderr)
	case "__complete":
		return runInternalCompletion(rest[1:], rootStdout, rootStderr)
	}
	return runCommand(context.Background(), globals, rest[0], rest[1:])
}

func parseGlobals(args []string) (rc.Globals, []string, error) {
	var globals rc.Globals
	fs := pflag.NewFlagSet("kittyrc", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SetInterspersed(false)
	fs.StringVar(&globals.To, "to", "", "")
	if err := fs.Parse(args); err != nil {
		return rc.Globals{}, nil, err
	}
	return globals, fs.Args(), nil
}

func runCommand(ctx context.Context, globals rc.Globals, name string, argv []string) int {
	d := newDriver()
	data, err := d.Invoke(ctx, globals, name, argv)
	if errors.Is(err, pflag.ErrHelp) {
		desc, rerr := d.Catalog.Resolve(name)
		if rerr == nil {
			printCommandHelp(rootStdout, desc)
			return ExitOK
		}
	}
	if err != nil {
		fmt.Fprintf(rootStderr, "kittyrc: %v\n", err)
		return exitCode(err)
	}
	if err := printData(rootStdout, data); err != nil {
		fmt.Fprintf(rootStderr, "kittyrc: %v\n", err)
		return ExitInternal
	}
	return ExitOK
}

func exitCode(err error) int {
	var usageErr *client.UsageError
	var respErr *client.ResponseError
	var timeoutErr *client.TimeoutError
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &usageErr):
		return ExitUsageErr
	case errors.As(err, &respErr):
		return ExitCommandErr
	case errors.As(err, &timeoutErr):
		return ExitTimeout
	default:
		return ExitInternal
	}
}

func printData(w io.Writer, data any) error {
	switch v := data.(type) {
	case nil:
		return nil
	case string:
		_, err := fmt.Fprintln(w, v)
		return err
	default:
		out, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding response: %w", err)
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	}
}

func stdinOrDefault(r io.Reader) io.Reader {
	if r == nil {
		return os.Stdin
	}
	return r
}
