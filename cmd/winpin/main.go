package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/yaml.v3"

	"github.com/winpin/winpin/internal/config"
	"github.com/winpin/winpin/internal/daemon"
	"github.com/winpin/winpin/internal/ipc"
	"github.com/winpin/winpin/internal/layout"
	"github.com/winpin/winpin/internal/platform"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		runDaemon(os.Args[2:])
	case "move":
		os.Exit(runMove(os.Args[2:]))
	case "windows":
		os.Exit(runWindows(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: winpin <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon [bundleID...]  Start the winpin daemon (foreground); arguments")
	fmt.Fprintln(w, "                        extend the configured watch list")
	fmt.Fprintln(w, "  move                  Ask the daemon to move an application's windows")
	fmt.Fprintln(w, "  windows               List an application's on-screen windows")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate       Validate configuration")
	fmt.Fprintln(w, "  config print          Print configuration")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  mcp serve             Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'winpin <command> --help' for command-specific options.")
}

func runDaemon(args []string) {
	if len(args) > 0 && (args[0] == "help" || args[0] == "-h" || args[0] == "--help") {
		fmt.Fprintln(os.Stdout, "Usage: winpin daemon [bundleID...]")
		fmt.Fprintln(os.Stdout, "")
		fmt.Fprintln(os.Stdout, "Keeps the windows of watched applications pinned to their target")
		fmt.Fprintln(os.Stdout, "rectangle and serves move commands on the local TCP port.")
		os.Exit(0)
	}

	configPath, err := config.DefaultConfigPath()
	if err != nil {
		log.Fatalf("Failed to resolve config path: %v", err)
	}
	cfg, err := config.LoadFromPath(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	level := new(slog.LevelVar)
	level.Set(cfg.SlogLevel())
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	watch := cfg.WatchSet(args...)
	if len(watch) == 0 {
		log.Fatalf("Nothing to watch: configure 'watch' in %s or pass bundle IDs as arguments", configPath)
	}

	d, err := daemon.New(daemon.Options{
		Config:     cfg,
		ConfigPath: configPath,
		Watch:      args,
		Logger:     logger,
		LogLevel:   level,
	})
	if err != nil {
		log.Fatalf("Failed to start daemon: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("shutting down", "signal", sig.String())
		cancel()
	}()

	if err := d.Run(ctx); err != nil {
		log.Fatalf("Daemon error: %v", err)
	}
}

func runMove(args []string) int {
	fs := flag.NewFlagSet("move", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	position := fs.String("position", "", "Target position: left, right, or full (required)")
	port := fs.Int("port", ipc.DefaultPort, "Daemon command port")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: winpin move --position <left|right|full> <bundleID>")
		fmt.Fprintln(os.Stderr, "")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	bundleID := fs.Arg(0)

	pos, err := layout.ParsePosition(*position)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	client := ipc.NewClient(fmt.Sprintf("127.0.0.1:%d", *port))
	if err := client.Move(bundleID, pos); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("moved %s to %s\n", bundleID, pos)
	return 0
}

func runWindows(args []string) int {
	fs := flag.NewFlagSet("windows", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: winpin windows <bundleID...>")
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	ax, err := platform.NewAccessibility()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if !ax.Trusted() {
		fmt.Fprintln(os.Stderr, "accessibility permission not granted")
		return 1
	}

	for _, bundleID := range fs.Args() {
		apps, err := ax.RunningApplications(bundleID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", bundleID, err)
			return 1
		}
		if len(apps) == 0 {
			fmt.Printf("%s: not running\n", bundleID)
			continue
		}
		for _, app := range apps {
			windows, err := ax.Windows(app.PID)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s (pid %d): %v\n", bundleID, app.PID, err)
				return 1
			}
			fmt.Printf("%s (pid %d): %d windows\n", bundleID, app.PID, len(windows))
			for _, w := range windows {
				title := w.Title
				if title == "" {
					title = "-"
				}
				fmt.Printf("  %8d  %4dx%-4d at (%d,%d)  %s\n",
					w.ID, w.Bounds.Width, w.Bounds.Height, w.Bounds.X, w.Bounds.Y, title)
			}
		}
	}
	return 0
}

func runConfig(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  winpin config validate [--path PATH]")
		fmt.Fprintln(os.Stderr, "  winpin config print [--path PATH] [--defaults]")
		return 2
	}

	switch args[0] {
	case "validate":
		fs := flag.NewFlagSet("validate", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/winpin/config.yaml)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		var err error
		if *path == "" {
			_, err = config.Load()
		} else {
			_, err = config.LoadFromPath(*path)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println("config: ok")
		return 0

	case "print":
		fs := flag.NewFlagSet("print", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/winpin/config.yaml)")
		printDefaults := fs.Bool("defaults", false, "Print built-in defaults (no files)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		var cfg *config.Config
		var err error
		if *printDefaults {
			cfg = config.DefaultConfig()
		} else if *path == "" {
			cfg, err = config.Load()
		} else {
			cfg, err = config.LoadFromPath(*path)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Print(string(data))
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown config subcommand: %s\n", args[0])
		return 2
	}
}
