package commands

import (
	"context"
	"errors"
	"strings"

	"github.com/lydakis/kittyrc/internal/rc"
)

var setWindowTitle = &rc.Descriptor{
	Name:      "set-window-title",
	ShortDesc: "Set the window title",
	ArgSpec:   "TITLE ...",
	Options:   matchOption,
	BuildPayload: func(req rc.PayloadRequest) (any, error) {
		if len(req.Args) == 0 {
			return nil, errors.New("a title is required")
		}
		p := basePayload(req)
		p["title"] = strings.Join(req.Args, " ")
		return p, nil
	},
	Execute: func(ctx context.Context, call *rc.Call) (rc.Result, error) {
		n, err := call.Boss.SetWindowTitle(call.Payload.String("match"), call.Payload.String("title"), call.Origin)
		if err != nil {
			return rc.Result{}, err
		}
		if n == 0 {
			return rc.Result{}, ErrNoMatch
		}
		return rc.Respond(nil), nil
	},
}
