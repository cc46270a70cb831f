package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/lydakis/kittyrc/internal/commands"
	"github.com/lydakis/kittyrc/internal/config"
	"github.com/lydakis/kittyrc/internal/host"
	"github.com/lydakis/kittyrc/internal/logging"
	"github.com/lydakis/kittyrc/internal/mcpbridge"
	"github.com/lydakis/kittyrc/internal/rc"
	"github.com/spf13/pflag"
)

var serveHost = host.Serve

func runServe(args []string) int {
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	shell := fs.Bool("shell", false, "Run the configured shell and serve commands written to its terminal")
	configPath := fs.String("config", "", "Config file (default: $XDG_CONFIG_HOME/kittyrc/config.toml)")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintln(rootStdout, "Usage: kittyrc serve [OPTIONS]")
			fmt.Fprintln(rootStdout, "\nOptions:")
			fmt.Fprint(rootStdout, fs.FlagUsages())
			return ExitOK
		}
		fmt.Fprintf(rootStderr, "kittyrc: serve: %v\n", err)
		return ExitUsageErr
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(rootStderr, "kittyrc: %v\n", err)
		return ExitInternal
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(rootStderr, "kittyrc: invalid config: %v\n", err)
		return ExitUsageErr
	}

	log, err := logging.New(cfg.LogLevel, rootStderr)
	if err != nil {
		fmt.Fprintf(rootStderr, "kittyrc: %v\n", err)
		return ExitInternal
	}
	defer func() { _ = log.Sync() }()

	err = serveHost(context.Background(), host.ServeOptions{
		Config:  cfg,
		Catalog: commands.Catalog(),
		Log:     log,
		Shell:   *shell,
		Stdin:   stdinOrDefault(rootStdin),
		Stdout:  rootStdout,
	})
	if err != nil {
		fmt.Fprintf(rootStderr, "kittyrc: serve: %v\n", err)
		return ExitInternal
	}
	return ExitOK
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFrom(path)
}

func runMCP(globals rc.Globals, args []string) int {
	if len(args) > 0 {
		fmt.Fprintf(rootStderr, "kittyrc: mcp: unexpected argument %q\n", args[0])
		return ExitUsageErr
	}
	bridge, err := mcpbridge.New(commands.Catalog(), newDriver(), globals, buildVersion)
	if err != nil {
		fmt.Fprintf(rootStderr, "kittyrc: %v\n", err)
		return ExitInternal
	}
	if err := bridge.Serve(); err != nil {
		fmt.Fprintf(rootStderr, "kittyrc: %v\n", err)
		return ExitInternal
	}
	return ExitOK
}
