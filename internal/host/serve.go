package host

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/lydakis/kittyrc/internal/config"
	"github.com/lydakis/kittyrc/internal/ipc"
	"github.com/lydakis/kittyrc/internal/paths"
	"github.com/lydakis/kittyrc/internal/rc"
	"github.com/lydakis/kittyrc/internal/transport"
	"go.uber.org/zap"
)

// ServeOptions configure Serve.
type ServeOptions struct {
	Config  *config.Config
	Catalog rc.Resolver
	Log     *zap.Logger
	// Shell runs Config.Shell in a window and stops serving when it exits.
	Shell  bool
	Stdin  io.Reader
	Stdout io.Writer
}

// Serve runs a host listening on Config.ListenOn until ctx is done or the
// process is interrupted.
func Serve(ctx context.Context, opts ServeOptions) error {
	cfg := opts.Config
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	addr, err := transport.ParseAddress(cfg.ListenOn)
	if err != nil {
		return fmt.Errorf("listen_on: %w", err)
	}
	if addr.Network == "unix" && !strings.HasPrefix(addr.Addr, "@") {
		if err := paths.EnsureDir(filepath.Dir(addr.Addr)); err != nil {
			return fmt.Errorf("creating socket dir: %w", err)
		}
	}

	h := New(opts.Catalog, WithLogger(log), WithRemoteControl(cfg.AllowRemoteControl))
	h.Start()
	defer h.Stop()

	srv := ipc.NewServer(addr, h.HandlePeerFrame, ipc.WithPeerTimeout(cfg.PeerTimeout()), ipc.WithLogger(log.Named("ipc")))
	if err := srv.Start(); err != nil {
		return err
	}
	defer srv.Stop()
	h.AttachPeers(srv)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if opts.Shell {
		return h.RunShell(ctx, Shell{Argv: cfg.Shell, Stdin: opts.Stdin, Stdout: opts.Stdout})
	}
	<-ctx.Done()
	log.Info("shutting down")
	return nil
}
