package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/creack/pty"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// Shell describes a program run in a window backed by a pseudo-terminal.
type Shell struct {
	Argv   []string
	Stdin  io.Reader
	Stdout io.Writer
}

// RunShell runs sh in a new window until it exits. The program's output is
// scanned for in-band commands; everything else is copied to sh.Stdout.
// KITTY_LISTEN_ON is removed from the program's environment so clients it
// starts talk to the host in-band.
func (h *Host) RunShell(ctx context.Context, sh Shell) error {
	if len(sh.Argv) == 0 {
		return errors.New("shell: no program given")
	}
	cmd := exec.CommandContext(ctx, sh.Argv[0], sh.Argv[1:]...)
	cmd.Env = childEnv(os.Environ())

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return fmt.Errorf("starting %s: %w", sh.Argv[0], err)
	}
	defer ptmx.Close()

	if f, ok := sh.Stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if err := pty.InheritSize(f, ptmx); err != nil {
			h.log.Debug("inheriting terminal size", zap.Error(err))
		}
		state, err := term.MakeRaw(int(f.Fd()))
		if err != nil {
			return fmt.Errorf("setting terminal raw mode: %w", err)
		}
		defer term.Restore(int(f.Fd()), state) //nolint: errcheck
	}

	cwd, _ := os.Getwd()
	id := h.addWindow(&Window{
		Title: filepath.Base(sh.Argv[0]),
		Cwd:   cwd,
		Args:  append([]string(nil), sh.Argv...),
		input: ptmx,
		close: func() error { return cmd.Process.Signal(syscall.SIGHUP) },
	}, true)
	defer h.removeWindow(id)
	h.log.Info("shell started", zap.Uint64("window_id", id), zap.Strings("argv", sh.Argv), zap.Int("pid", cmd.Process.Pid))

	if sh.Stdin != nil {
		go io.Copy(ptmx, sh.Stdin) //nolint: errcheck
	}

	buf := make([]byte, 32*1024)
	for {
		n, err := ptmx.Read(buf)
		if n > 0 {
			if out := h.HandleWindowOutput(ctx, id, buf[:n]); len(out) > 0 {
				if _, werr := sh.Stdout.Write(out); werr != nil {
					return fmt.Errorf("writing shell output: %w", werr)
				}
			}
		}
		if err != nil {
			// The pty reports EIO once the program has exited.
			break
		}
	}

	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			h.log.Info("shell exited", zap.Uint64("window_id", id), zap.Int("code", exitErr.ExitCode()))
			return nil
		}
		return fmt.Errorf("waiting for %s: %w", sh.Argv[0], err)
	}
	h.log.Info("shell exited", zap.Uint64("window_id", id), zap.Int("code", 0))
	return nil
}

func childEnv(environ []string) []string {
	out := make([]string, 0, len(environ))
	for _, kv := range environ {
		if strings.HasPrefix(kv, "KITTY_LISTEN_ON=") {
			continue
		}
		out = append(out, kv)
	}
	return out
}
