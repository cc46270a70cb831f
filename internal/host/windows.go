package host

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lydakis/kittyrc/internal/protocol"
	"github.com/lydakis/kittyrc/internal/rc"
)

// Window is one window of the host.
type Window struct {
	ID       uint64
	Title    string
	Cwd      string
	Args     []string
	Type     string
	TabTitle string

	// input receives text sent to the window and in-band responses.
	input  io.Writer
	parser protocol.StreamParser
	close  func() error
}

// buffer collects the input of windows that run no program.
type buffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (w *Window) info(focused uint64) rc.WindowInfo {
	return rc.WindowInfo{
		ID:       w.ID,
		Title:    w.Title,
		Cwd:      w.Cwd,
		Args:     append([]string(nil), w.Args...),
		Type:     w.Type,
		TabTitle: w.TabTitle,
		Focused:  w.ID == focused,
	}
}

// addWindow registers w and returns its id. The first window gets focus.
func (h *Host) addWindow(w *Window, focus bool) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	w.ID = h.nextID
	if w.input == nil {
		w.input = &buffer{}
	}
	if w.Type == "" {
		w.Type = "window"
	}
	h.windows = append(h.windows, w)
	if focus || h.focused == 0 {
		h.focused = w.ID
	}
	return w.ID
}

func (h *Host) removeWindow(id uint64) *Window {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, w := range h.windows {
		if w.ID != id {
			continue
		}
		h.windows = append(h.windows[:i], h.windows[i+1:]...)
		if h.focused == id {
			h.focused = 0
			if len(h.windows) > 0 {
				h.focused = h.windows[len(h.windows)-1].ID
			}
		}
		return w
	}
	return nil
}

func (h *Host) window(id uint64) *Window {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, w := range h.windows {
		if w.ID == id {
			return w
		}
	}
	return nil
}

// match resolves a window match expression. An empty expression selects
// the window the request came from, or the focused window for socket
// peers. Supported forms: "all", "id:N", "title:SUBSTRING".
func (h *Host) match(expr string, origin rc.Origin) ([]*Window, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var pick func(w *Window) bool
	field, value, _ := strings.Cut(expr, ":")
	switch {
	case expr == "":
		target := origin.WindowID
		if target == 0 {
			target = h.focused
		}
		pick = func(w *Window) bool { return w.ID == target }
	case expr == "all":
		pick = func(*Window) bool { return true }
	case field == "id":
		id, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid window id %q in match", value)
		}
		pick = func(w *Window) bool { return w.ID == id }
	case field == "title":
		pick = func(w *Window) bool { return strings.Contains(w.Title, value) }
	default:
		return nil, fmt.Errorf("invalid match expression %q, expected all, id:N or title:TEXT", expr)
	}

	var out []*Window
	for _, w := range h.windows {
		if pick(w) {
			out = append(out, w)
		}
	}
	return out, nil
}

// Windows implements rc.Boss.
func (h *Host) Windows() []rc.WindowInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]rc.WindowInfo, 0, len(h.windows))
	for _, w := range h.windows {
		out = append(out, w.info(h.focused))
	}
	return out
}

// OpenWindow implements rc.Boss. The window runs no program; text sent to it
// is kept.
func (h *Host) OpenWindow(spec rc.WindowSpec) (uint64, error) {
	w := &Window{
		Title:    spec.Title,
		Cwd:      spec.Cwd,
		Args:     append([]string(nil), spec.Args...),
		Type:     spec.Type,
		TabTitle: spec.TabTitle,
	}
	if w.Title == "" && len(w.Args) > 0 {
		w.Title = w.Args[0]
	}
	return h.addWindow(w, !spec.KeepFocus), nil
}

// SetWindowTitle implements rc.Boss.
func (h *Host) SetWindowTitle(match, title string, origin rc.Origin) (int, error) {
	windows, err := h.match(match, origin)
	if err != nil {
		return 0, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, w := range windows {
		w.Title = title
	}
	return len(windows), nil
}

// CloseWindows implements rc.Boss.
func (h *Host) CloseWindows(match string, origin rc.Origin) (int, error) {
	windows, err := h.match(match, origin)
	if err != nil {
		return 0, err
	}
	for _, w := range windows {
		h.removeWindow(w.ID)
		if w.close != nil {
			if err := w.close(); err != nil {
				return 0, fmt.Errorf("closing window %d: %w", w.ID, err)
			}
		}
	}
	return len(windows), nil
}

// SendText implements rc.Boss.
func (h *Host) SendText(match, text string, origin rc.Origin) error {
	windows, err := h.match(match, origin)
	if err != nil {
		return err
	}
	if len(windows) == 0 {
		return fmt.Errorf("no windows matched %q", match)
	}
	for _, w := range windows {
		if _, err := io.WriteString(w.input, text); err != nil {
			return fmt.Errorf("sending text to window %d: %w", w.ID, err)
		}
	}
	return nil
}

// After implements rc.Boss. fn runs on the dispatch loop.
func (h *Host) After(asyncID string, d time.Duration, fn func()) {
	h.timers.After(asyncID, d, fn)
}

// CancelAfter implements rc.Boss.
func (h *Host) CancelAfter(asyncID string) {
	h.timers.Cancel(asyncID)
}

// Complete implements rc.Boss.
func (h *Host) Complete(asyncID string, data any, errMsg string, origin rc.Origin) {
	h.dispatcher.Deliver(asyncID, data, errMsg, origin)
}
