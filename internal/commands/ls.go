package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lydakis/kittyrc/internal/rc"
)

var ls = &rc.Descriptor{
	Name:      "ls",
	ShortDesc: "List windows",
	Execute: func(ctx context.Context, call *rc.Call) (rc.Result, error) {
		data, err := json.MarshalIndent(call.Boss.Windows(), "", "  ")
		if err != nil {
			return rc.Result{}, fmt.Errorf("encoding window list: %w", err)
		}
		return rc.Respond(string(data)), nil
	},
}
