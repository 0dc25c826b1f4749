// Command dashctl is a terminal client for the staff dashboard API. It keeps
// the signed-in session on disk, sealed for this device.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/staff-dashboard/internal/client"
	"github.com/example/staff-dashboard/internal/config"
	"github.com/example/staff-dashboard/internal/dashboard"
	"github.com/example/staff-dashboard/internal/datacache"
	"github.com/example/staff-dashboard/internal/logging"
	"github.com/example/staff-dashboard/internal/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, err)
		}
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.LoadClient()
	if err != nil {
		return err
	}

	logger := logging.New(stderr, "text", cfg.LogLevel)
	ctx = logging.ContextWithLogger(ctx, logger)

	sealer, err := session.NewSealer(cfg.DeviceSecret, session.DefaultKeyParams)
	if err != nil {
		return err
	}
	sessions := session.NewCache(
		session.NewSealedStorage(session.NewFileStorage(cfg.SessionDir), sealer),
		session.WithLogger(logger),
	)

	api, err := client.New(cfg.BaseURL, client.WithTimeout(cfg.RequestTimeout), client.WithLogger(logger))
	if err != nil {
		return err
	}

	app := dashboard.New(api, sessions, datacache.New(cfg.CacheTTL, nil),
		dashboard.WithLogger(logger),
		dashboard.WithNotifier(newConsoleNotifier(stderr)),
	)
	return newCLI(app, stdout).run(ctx, args)
}

// consoleNotifier prints user-facing notifications.
type consoleNotifier struct {
	w io.Writer
}

func newConsoleNotifier(w io.Writer) *consoleNotifier {
	return &consoleNotifier{w: w}
}

func (n *consoleNotifier) Notify(_ context.Context, note dashboard.Notification) {
	fmt.Fprintf(n.w, "[%s] %s\n", note.Kind, note.Message)
}

var _ dashboard.Notifier = (*consoleNotifier)(nil)
