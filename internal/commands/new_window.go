package commands

import (
	"context"
	"fmt"

	"github.com/lydakis/kittyrc/internal/rc"
	"github.com/spf13/pflag"
)

var newWindow = &rc.Descriptor{
	Name:      "new-window",
	ShortDesc: "Open new window",
	ArgSpec:   "[CMD ...]",
	Options: func(fs *pflag.FlagSet) {
		fs.StringP("match", "m", "", "The tab to open the new window in.")
		fs.String("title", "", "The title for the new window. Defaults to the program it runs.")
		fs.String("cwd", "", "The initial working directory for the new window.")
		fs.Bool("keep-focus", false, "Keep the current window focused instead of switching to the new one.")
		fs.Bool("dont-take-focus", false, "Alias for --keep-focus.")
		fs.String("window-type", "kitty", "What kind of window to open: kitty or os.")
		fs.Bool("new-tab", false, "Open a new tab.")
		fs.String("tab-title", "", "Set the title of the tab, when opening a new tab.")
		fs.Bool("no-response", false, "Don't wait for the id of the new window.")
	},
	BuildPayload: func(req rc.PayloadRequest) (any, error) {
		fs := req.Flags
		windowType, _ := fs.GetString("window-type")
		if windowType != "kitty" && windowType != "os" {
			return nil, fmt.Errorf("--window-type must be kitty or os, not %q", windowType)
		}
		keepFocus, _ := fs.GetBool("keep-focus")
		dontTakeFocus, _ := fs.GetBool("dont-take-focus")
		newTab, _ := fs.GetBool("new-tab")
		noResponse, _ := fs.GetBool("no-response")
		match, _ := fs.GetString("match")
		title, _ := fs.GetString("title")
		cwd, _ := fs.GetString("cwd")
		tabTitle, _ := fs.GetString("tab-title")

		kind := "window"
		switch {
		case newTab:
			kind = "tab"
		case windowType == "os":
			kind = "os-window"
		}
		args := req.Args
		if args == nil {
			args = []string{}
		}
		return map[string]any{
			"args":        args,
			"type":        kind,
			"match":       match,
			"title":       title,
			"cwd":         cwd,
			"keep_focus":  keepFocus || dontTakeFocus,
			"window_type": windowType,
			"tab_title":   tabTitle,
			"no_response": noResponse,
		}, nil
	},
	Execute: func(ctx context.Context, call *rc.Call) (rc.Result, error) {
		p := call.Payload
		id, err := call.Boss.OpenWindow(rc.WindowSpec{
			Title:     p.String("title"),
			Cwd:       p.String("cwd"),
			Args:      p.Strings("args"),
			Type:      p.String("type"),
			TabTitle:  p.String("tab_title"),
			KeepFocus: p.Bool("keep_focus"),
		})
		if err != nil {
			return rc.Result{}, err
		}
		if p.Bool("no_response") {
			return rc.Suppressed, nil
		}
		return rc.Respond(id), nil
	},
}
