// Package commands is the reference remote-control command catalog.
package commands

import (
	"errors"

	"github.com/lydakis/kittyrc/internal/rc"
	"github.com/spf13/pflag"
)

// ErrNoMatch is returned when a match expression selects no window.
var ErrNoMatch = errors.New("no matching windows")

// Catalog returns every command.
func Catalog() *rc.Catalog {
	return rc.NewCatalog(
		ping,
		ls,
		newWindow,
		setWindowTitle,
		closeWindow,
		sendText,
		wait,
	)
}

func matchOption(fs *pflag.FlagSet) {
	fs.StringP("match", "m", "", "The window to act on: all, id:N or title:TEXT. Defaults to the calling or focused window.")
}

// basePayload copies the match option into a new payload.
func basePayload(req rc.PayloadRequest) map[string]any {
	m, _ := req.Flags.GetString("match")
	return map[string]any{"match": m}
}
