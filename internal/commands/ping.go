package commands

import (
	"context"

	"github.com/lydakis/kittyrc/internal/rc"
)

var ping = &rc.Descriptor{
	Name:      "ping",
	ShortDesc: "Check that the terminal is listening",
	Execute: func(ctx context.Context, call *rc.Call) (rc.Result, error) {
		return rc.Respond("pong"), nil
	},
}
