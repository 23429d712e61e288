package config

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultListenPort     = 12345
	DefaultPollIntervalMs = 500
)

// ValidationError reports an invalid configuration value with its YAML path.
type ValidationError struct {
	Path string
	Err  error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Config holds the daemon configuration.
type Config struct {
	// Watch is the set of bundle identifiers whose windows the daemon keeps
	// pinned. Command-line arguments extend this set.
	Watch []string `yaml:"watch"`

	// ListenPort is the TCP port the command server binds on localhost.
	ListenPort int `yaml:"listen_port"`

	// PollIntervalMs controls how often window state is re-read.
	PollIntervalMs int `yaml:"poll_interval_ms"`

	LogLevel string `yaml:"log_level"`
}

func DefaultConfig() *Config {
	return &Config{
		Watch:          []string{},
		ListenPort:     DefaultListenPort,
		PollIntervalMs: DefaultPollIntervalMs,
		LogLevel:       "info",
	}
}

func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "winpin", "config.yaml"), nil
}

// Load reads the configuration from the standard location. A missing file
// yields the defaults.
func Load() (*Config, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

func LoadFromPath(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("%s: failed to read: %w", path, err)
	}

	if err := decodeStrictYAML(data, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func decodeStrictYAML(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}
	return nil
}

// Validate performs strict validation of the effective configuration.
func (c *Config) Validate() error {
	for _, bundleID := range c.Watch {
		if strings.TrimSpace(bundleID) == "" {
			return &ValidationError{Path: "watch", Err: fmt.Errorf("watch contains an empty bundle identifier")}
		}
	}
	if c.ListenPort < 1 || c.ListenPort > 65535 {
		return &ValidationError{Path: "listen_port", Err: fmt.Errorf("listen_port must be between 1 and 65535")}
	}
	if c.PollIntervalMs < 10 {
		return &ValidationError{Path: "poll_interval_ms", Err: fmt.Errorf("poll_interval_ms must be >= 10")}
	}
	if _, err := parseLogLevel(c.LogLevel); err != nil {
		return &ValidationError{Path: "log_level", Err: err}
	}
	return nil
}

// ListenAddr returns the localhost address the command server binds.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("127.0.0.1:%d", c.ListenPort)
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// SlogLevel maps the configured log level onto slog. Validate guarantees the
// value parses; unknown values fall back to info.
func (c *Config) SlogLevel() slog.Level {
	level, err := parseLogLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLogLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warning", "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("log_level must be one of: debug, info, warning, error")
	}
}

// WatchSet merges the configured watch list with extra bundle identifiers,
// deduplicated, preserving first-seen order.
func (c *Config) WatchSet(extra ...string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, bundleID := range append(append([]string{}, c.Watch...), extra...) {
		bundleID = strings.TrimSpace(bundleID)
		if bundleID == "" {
			continue
		}
		if _, ok := seen[bundleID]; ok {
			continue
		}
		seen[bundleID] = struct{}{}
		out = append(out, bundleID)
	}
	return out
}
