package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFromPathMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Errorf("got %+v, want defaults", cfg)
	}
}

func TestLoadFromPathOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
watch:
  - com.apple.Safari
  - com.googlecode.iterm2
listen_port: 23456
poll_interval_ms: 250
log_level: debug
`)
	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantWatch := []string{"com.apple.Safari", "com.googlecode.iterm2"}
	if !reflect.DeepEqual(cfg.Watch, wantWatch) {
		t.Errorf("watch = %v, want %v", cfg.Watch, wantWatch)
	}
	if cfg.ListenAddr() != "127.0.0.1:23456" {
		t.Errorf("listen addr = %q", cfg.ListenAddr())
	}
	if cfg.PollInterval() != 250*time.Millisecond {
		t.Errorf("poll interval = %v", cfg.PollInterval())
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("slog level = %v", cfg.SlogLevel())
	}
}

func TestLoadFromPathPartialFileKeepsRemainingDefaults(t *testing.T) {
	path := writeConfig(t, "watch: [com.apple.Safari]\n")
	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ListenPort != DefaultListenPort {
		t.Errorf("listen_port = %d, want default %d", cfg.ListenPort, DefaultListenPort)
	}
	if cfg.PollIntervalMs != DefaultPollIntervalMs {
		t.Errorf("poll_interval_ms = %d, want default %d", cfg.PollIntervalMs, DefaultPollIntervalMs)
	}
}

func TestLoadFromPathRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "wach: [com.apple.Safari]\n")
	if _, err := LoadFromPath(path); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{
			name:    "empty watch entry",
			mutate:  func(c *Config) { c.Watch = []string{"com.apple.Safari", "  "} },
			wantErr: "watch",
		},
		{
			name:    "port too low",
			mutate:  func(c *Config) { c.ListenPort = 0 },
			wantErr: "listen_port",
		},
		{
			name:    "port too high",
			mutate:  func(c *Config) { c.ListenPort = 70000 },
			wantErr: "listen_port",
		},
		{
			name:    "poll interval too small",
			mutate:  func(c *Config) { c.PollIntervalMs = 5 },
			wantErr: "poll_interval_ms",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.LogLevel = "verbose" },
			wantErr: "log_level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			verr, ok := err.(*ValidationError)
			if !ok {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if verr.Path != tt.wantErr {
				t.Errorf("path = %q, want %q", verr.Path, tt.wantErr)
			}
		})
	}
}

func TestWatchSetMergesAndDeduplicates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Watch = []string{"com.apple.Safari", "com.googlecode.iterm2"}

	got := cfg.WatchSet("com.apple.Safari", " ", "org.mozilla.firefox")
	want := []string{"com.apple.Safari", "com.googlecode.iterm2", "org.mozilla.firefox"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, "log_level: info\n")

	reloaded := make(chan *Config, 4)
	w, err := NewWatcher(path, DefaultConfig(), func(cfg *Config) {
		reloaded <- cfg
	}, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("start watcher: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte("log_level: debug\npoll_interval_ms: 100\n"), 0644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.LogLevel != "debug" {
			t.Errorf("log_level = %q, want debug", cfg.LogLevel)
		}
		if cfg.PollIntervalMs != 100 {
			t.Errorf("poll_interval_ms = %d, want 100", cfg.PollIntervalMs)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestWatcherKeepsPreviousConfigOnInvalidWrite(t *testing.T) {
	path := writeConfig(t, "log_level: info\n")

	reloaded := make(chan *Config, 4)
	w, err := NewWatcher(path, DefaultConfig(), func(cfg *Config) {
		reloaded <- cfg
	}, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("start watcher: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte("log_level: [broken\n"), 0644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case cfg := <-reloaded:
		t.Fatalf("unexpected reload with %+v", cfg)
	case <-time.After(500 * time.Millisecond):
	}
}
