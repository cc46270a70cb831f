package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lydakis/kittyrc/internal/rc"
	"github.com/spf13/pflag"
)

var wait = &rc.Descriptor{
	Name:         "wait",
	ShortDesc:    "Answer after a delay",
	Asynchronous: true,
	Options: func(fs *pflag.FlagSet) {
		fs.Duration("duration", time.Second, "How long the terminal waits before answering.")
		fs.Duration("response-timeout", rc.DefaultResponseTimeout, "How long to wait for the answer.")
		fs.Bool("no-response", false, "Don't wait for the answer.")
	},
	BuildPayload: func(req rc.PayloadRequest) (any, error) {
		d, _ := req.Flags.GetDuration("duration")
		if d < 0 {
			return nil, fmt.Errorf("--duration must not be negative, got %s", d)
		}
		return map[string]any{"duration": d.String()}, nil
	},
	Execute: func(ctx context.Context, call *rc.Call) (rc.Result, error) {
		if call.AsyncID == "" {
			return rc.Result{}, errors.New("wait must be sent as an asynchronous request")
		}
		d, err := call.Payload.Duration("duration")
		if err != nil {
			return rc.Result{}, err
		}
		boss, id, origin := call.Boss, call.AsyncID, call.Origin
		boss.After(id, d, func() {
			boss.Complete(id, fmt.Sprintf("waited %s", d), "", origin)
		})
		return rc.Deferred, nil
	},
	Cancel: func(ctx context.Context, call *rc.Call) {
		call.Boss.CancelAfter(call.AsyncID)
	},
}
