package commands

import (
	"context"

	"github.com/lydakis/kittyrc/internal/rc"
)

var closeWindow = &rc.Descriptor{
	Name:                "close-window",
	ShortDesc:           "Close the specified windows",
	StringReturnIsError: true,
	Options:             matchOption,
	BuildPayload: func(req rc.PayloadRequest) (any, error) {
		return basePayload(req), nil
	},
	Execute: func(ctx context.Context, call *rc.Call) (rc.Result, error) {
		n, err := call.Boss.CloseWindows(call.Payload.String("match"), call.Origin)
		if err != nil {
			return rc.Result{}, err
		}
		if n == 0 {
			return rc.Respond("No matching windows"), nil
		}
		return rc.Respond(nil), nil
	},
}
