package rc

import "time"

// Boss is the part of the host application commands act on. The reference
// implementation is internal/host.
type Boss interface {
	Windows() []WindowInfo
	OpenWindow(spec WindowSpec) (uint64, error)
	// SetWindowTitle renames every window matching match and returns how
	// many matched.
	SetWindowTitle(match, title string, origin Origin) (int, error)
	CloseWindows(match string, origin Origin) (int, error)
	SendText(match, text string, origin Origin) error

	// After runs fn once d has elapsed unless CancelAfter(asyncID) is called
	// first. fn runs on the host's dispatch loop.
	After(asyncID string, d time.Duration, fn func())
	CancelAfter(asyncID string)
	// Complete answers a deferred request.
	Complete(asyncID string, data any, errMsg string, origin Origin)
}

// WindowInfo describes a window as reported by the ls command.
type WindowInfo struct {
	ID       uint64   `json:"id"`
	Title    string   `json:"title"`
	Cwd      string   `json:"cwd,omitempty"`
	Args     []string `json:"cmdline,omitempty"`
	Type     string   `json:"type"`
	TabTitle string   `json:"tab_title,omitempty"`
	Focused  bool     `json:"is_focused"`
}

// WindowSpec asks the host for a new window.
type WindowSpec struct {
	Title     string
	Cwd       string
	Args      []string
	Type      string
	TabTitle  string
	KeepFocus bool
}
