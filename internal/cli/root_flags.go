package cli

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/lydakis/kittyrc/internal/protocol"
)

var (
	rootStdout io.Writer = os.Stdout
	rootStderr io.Writer = os.Stderr
	// rootStdin is os.Stdin when nil.
	rootStdin io.Reader
)

// buildVersion can be stamped with -ldflags "-X"; otherwise the module
// version recorded by the go command is used.
var buildVersion = "dev"

func init() {
	if buildVersion != "dev" {
		return
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		buildVersion = info.Main.Version
	}
}

// handleRootFlags answers a lone --version or --help.
func handleRootFlags(args []string) (bool, int) {
	if len(args) != 1 {
		return false, 0
	}
	switch args[0] {
	case "--version", "-V":
		fmt.Fprintf(rootStdout, "kittyrc %s (protocol %s)\n", buildVersion, protocol.Current)
		return true, ExitOK
	case "--help", "-h":
		printRootHelp(rootStdout)
		return true, ExitOK
	}
	return false, 0
}
