// Package daemon assembles the long-running process: the accessibility
// capability, the notification poller, the registry, the observer, the TCP
// command server, and the config file watcher.
package daemon

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/winpin/winpin/internal/config"
	"github.com/winpin/winpin/internal/frame"
	"github.com/winpin/winpin/internal/ipc"
	"github.com/winpin/winpin/internal/layout"
	"github.com/winpin/winpin/internal/notify"
	"github.com/winpin/winpin/internal/observer"
	"github.com/winpin/winpin/internal/platform"
	"github.com/winpin/winpin/internal/registry"
)

// Options configures a daemon instance.
type Options struct {
	Config     *config.Config
	ConfigPath string // watched for live reloads; empty disables watching

	// Watch extends the configured watch list with bundle identifiers from
	// the command line.
	Watch []string

	Logger *slog.Logger

	// LogLevel, when set, is adjusted on config reload.
	LogLevel *slog.LevelVar

	// AX overrides the platform capability. Nil selects the host platform.
	AX platform.Accessibility
}

// Daemon owns the component lifecycle. Construct with New, then Run.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	opts   Options

	ax       platform.Accessibility
	poller   *notify.Poller
	registry *registry.Registry
	observer *observer.Observer
	server   *ipc.Server
	watcher  *config.Watcher
}

// New builds the daemon. It fails when the process lacks the accessibility
// permission: without it no window can ever be read or moved, so starting
// would only produce a stream of errors.
func New(opts Options) (*Daemon, error) {
	ax := opts.AX
	if ax == nil {
		var err error
		ax, err = platform.NewAccessibility()
		if err != nil {
			return nil, err
		}
	}
	if !ax.Trusted() {
		return nil, fmt.Errorf("accessibility permission not granted: enable it in System Settings > Privacy & Security > Accessibility, then restart")
	}

	cfg := opts.Config
	watch := cfg.WatchSet(opts.Watch...)
	logger := opts.Logger

	poller := notify.NewPoller(ax, watch, cfg.PollInterval(), logger)
	applier := frame.NewApplier(ax)
	reg := registry.New(ax, poller, applier, logger)
	obs := observer.New(ax, reg, applier, watch, poller.Events(), logger)

	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		opts:     opts,
		ax:       ax,
		poller:   poller,
		registry: reg,
		observer: obs,
	}

	d.server = ipc.NewServer(cfg.ListenAddr(), d.dispatch, logger)

	if opts.ConfigPath != "" {
		watcher, err := config.NewWatcher(opts.ConfigPath, cfg, d.applyReload, logger)
		if err != nil {
			return nil, fmt.Errorf("config watcher: %w", err)
		}
		d.watcher = watcher
	}

	return d, nil
}

// Run starts every component and blocks until the context is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Register already-running applications, then seed the poller with
	// exactly the pids that registration captured. An application launching
	// between the two calls is absent from the seed, so the first tick
	// announces it and the observer registers it.
	d.observer.Bootstrap()
	d.poller.Prime(d.registry.Tracked())

	if err := d.server.Start(); err != nil {
		return err
	}
	defer d.server.Stop()

	if d.watcher != nil {
		if err := d.watcher.Start(); err != nil {
			d.logger.Warn("config watcher unavailable, live reload disabled", "error", err)
			d.watcher.Stop()
		} else {
			defer d.watcher.Stop()
		}
	}

	go d.poller.Run(ctx)

	d.logger.Info("daemon started",
		"watch", d.cfg.WatchSet(d.opts.Watch...), "listen", d.server.Addr())
	d.observer.Run(ctx)
	return nil
}

// Addr returns the command server's bound address, once Run has started it.
func (d *Daemon) Addr() string {
	return d.server.Addr()
}

func (d *Daemon) dispatch(bundleID string, pos layout.Position) error {
	return d.observer.Submit(context.Background(), observer.Command{
		BundleID: bundleID,
		Position: pos,
	})
}

func (d *Daemon) applyReload(cfg *config.Config) {
	if d.opts.LogLevel != nil {
		d.opts.LogLevel.Set(cfg.SlogLevel())
	}
	d.poller.SetInterval(cfg.PollInterval())
}
