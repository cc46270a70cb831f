package cli

import (
	"fmt"
	"io"

	"github.com/lydakis/kittyrc/internal/client"
	"github.com/lydakis/kittyrc/internal/commands"
	"github.com/lydakis/kittyrc/internal/rc"
)

func printRootHelp(out io.Writer) {
	fmt.Fprintln(out, "Usage:")
	fmt.Fprintln(out, "  kittyrc [--to ADDRESS] <command> [OPTIONS] [ARGS]")
	fmt.Fprintln(out, "  kittyrc serve [--shell] [--config PATH]")
	fmt.Fprintln(out, "  kittyrc mcp")
	fmt.Fprintln(out, "  kittyrc help <command>")
	fmt.Fprintln(out, "  kittyrc completion <bash|zsh|fish>")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Commands:")
	catalog := commands.Catalog()
	for _, name := range catalog.Names() {
		desc, err := catalog.Resolve(name)
		if err != nil {
			continue
		}
		fmt.Fprintf(out, "  %-18s %s\n", desc.Name, desc.ShortDesc)
	}
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Global flags:")
	fmt.Fprintln(out, "  --to ADDRESS     Terminal to control (unix:PATH, tcp:HOST:PORT). Defaults to KITTY_LISTEN_ON,")
	fmt.Fprintln(out, "                   then to the controlling terminal")
	fmt.Fprintln(out, "  --help, -h       Show help")
	fmt.Fprintln(out, "  --version, -V    Show version")
}

func printCommandHelp(out io.Writer, desc *rc.Descriptor) {
	fmt.Fprintf(out, "Usage: kittyrc %s [OPTIONS]", desc.Name)
	if desc.ArgSpec != "" {
		fmt.Fprintf(out, " %s", desc.ArgSpec)
	}
	fmt.Fprintln(out)
	if desc.ShortDesc != "" {
		fmt.Fprintf(out, "\n%s\n", desc.ShortDesc)
	}

	usages := client.NewFlagSet(desc).FlagUsages()
	fmt.Fprintln(out, "\nOptions:")
	if usages == "" {
		fmt.Fprintln(out, "  (none)")
		return
	}
	fmt.Fprint(out, usages)
}

func runHelp(args []string) int {
	if len(args) == 0 {
		printRootHelp(rootStdout)
		return ExitOK
	}
	desc, err := commands.Catalog().Resolve(args[0])
	if err != nil {
		fmt.Fprintf(rootStderr, "kittyrc: %v\n", err)
		return ExitUsageErr
	}
	printCommandHelp(rootStdout, desc)
	return ExitOK
}
