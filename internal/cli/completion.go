package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/lydakis/kittyrc/internal/client"
	"github.com/lydakis/kittyrc/internal/commands"
	"github.com/spf13/pflag"
)

func runCompletionCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(stderr, "kittyrc: usage: kittyrc completion <bash|zsh|fish>")
		return ExitUsageErr
	}

	script, ok := completionScripts[strings.ToLower(args[0])]
	if !ok {
		fmt.Fprintf(stderr, "kittyrc: unknown shell for completion: %s\n", args[0])
		return ExitUsageErr
	}

	_, _ = io.WriteString(stdout, script)
	return ExitOK
}

func runInternalCompletion(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "kittyrc: usage: kittyrc __complete <commands|flags> ...")
		return ExitUsageErr
	}

	switch args[0] {
	case "commands":
		if len(args) != 1 {
			fmt.Fprintln(stderr, "kittyrc: usage: kittyrc __complete commands")
			return ExitUsageErr
		}
		for _, name := range commands.Catalog().Names() {
			fmt.Fprintln(stdout, name)
		}
		return ExitOK
	case "flags":
		if len(args) != 2 {
			fmt.Fprintln(stderr, "kittyrc: usage: kittyrc __complete flags <command>")
			return ExitUsageErr
		}
		return completeFlags(args[1], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "kittyrc: unknown completion query: %s\n", args[0])
		return ExitUsageErr
	}
}

func completeFlags(command string, stdout, stderr io.Writer) int {
	desc, err := commands.Catalog().Resolve(command)
	if err != nil {
		fmt.Fprintf(stderr, "kittyrc: %v\n", err)
		return ExitUsageErr
	}
	client.NewFlagSet(desc).VisitAll(func(f *pflag.Flag) {
		fmt.Fprintf(stdout, "--%s\n", f.Name)
		if f.Shorthand != "" {
			fmt.Fprintf(stdout, "-%s\n", f.Shorthand)
		}
	})
	fmt.Fprintln(stdout, "--help")
	return ExitOK
}
