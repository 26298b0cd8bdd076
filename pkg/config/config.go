// Package config loads the project configuration from flowsmith.toml and
// FLOWSMITH_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultConfigFile = "flowsmith.toml"
	// DefaultLedgerPath is relative to the project directory.
	DefaultLedgerPath = ".flowsmith/ledger.json"

	EnvProject         = "FLOWSMITH_PROJECT"
	EnvFlowsDir        = "FLOWSMITH_FLOWS_DIR"
	EnvContentDir      = "FLOWSMITH_CONTENT_DIR"
	EnvLedgerURL       = "FLOWSMITH_LEDGER_URL"
	EnvNamespace       = "FLOWSMITH_NAMESPACE"
	EnvLogLevel        = "FLOWSMITH_LOG_LEVEL"
	EnvPushCommand     = "FLOWSMITH_PUSH_COMMAND"
	EnvPushConcurrency = "FLOWSMITH_PUSH_CONCURRENCY"
	EnvPushTimeout     = "FLOWSMITH_PUSH_TIMEOUT"
	EnvEventBus        = "FLOWSMITH_EVENT_BUS"
	EnvKafkaBrokers    = "FLOWSMITH_KAFKA_BROKERS"
	EnvWatchSchedule   = "FLOWSMITH_WATCH_SCHEDULE"
)

// Event bus kinds.
const (
	BusNone   = "none"
	BusMemory = "memory"
	BusKafka  = "kafka"
)

// ErrInvalidConfig marks a configuration that cannot be used.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the root configuration of a flowsmith project.
type Config struct {
	Project    string           `toml:"project"`
	FlowsDir   string           `toml:"flows_dir"`
	ContentDir string           `toml:"content_dir"`
	LedgerURL  string           `toml:"ledger_url"`
	Namespace  string           `toml:"namespace"`
	LogLevel   string           `toml:"log_level"`
	Push       PushConfig       `toml:"push"`
	Validation ValidationConfig `toml:"validation"`
	Events     EventsConfig     `toml:"events"`
	Watch      WatchConfig      `toml:"watch"`
}

// PushConfig configures the engine command and the batch pool.
type PushConfig struct {
	Command     string   `toml:"command"`
	Args        []string `toml:"args"`
	Concurrency int      `toml:"concurrency"`
	Timeout     string   `toml:"timeout"`
	AutoFix     *bool    `toml:"auto_fix"`
	Allow       []string `toml:"allow"`
	Deny        []string `toml:"deny"`
}

// ValidationConfig overrides the structural rules.
type ValidationConfig struct {
	AllowedFamilies []string `toml:"allowed_families"`
	BannedTokens    []string `toml:"banned_tokens"`
}

// EventsConfig selects the deployment event bus.
type EventsConfig struct {
	Bus     string   `toml:"bus"`
	Brokers []string `toml:"brokers"`
}

// WatchConfig configures scheduled sync.
type WatchConfig struct {
	Schedule string `toml:"schedule"`
}

// Load reads path when given, otherwise flowsmith.toml inside project when
// present. Environment variables override the file, overlays (command line
// flags) override both, then defaults fill the rest. An explicit path must
// exist.
func Load(path, project string, overlays ...*Config) (*Config, error) {
	cfg := &Config{}

	explicit := path != ""
	if !explicit {
		path = filepath.Join(project, DefaultConfigFile)
	}

	_, err := os.Stat(path)

	switch {
	case err == nil:
		loaded, err := load(path)
		if err != nil {
			return nil, err
		}

		cfg = loaded
	case explicit || !os.IsNotExist(err):
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	if project != "" && cfg.Project == "" {
		cfg.Project = project
	}

	if cfg.Project != "" && !filepath.IsAbs(cfg.Project) && explicit {
		cfg.Project = filepath.Join(filepath.Dir(path), cfg.Project)
	}

	err = cfg.loadEnv()
	if err != nil {
		return nil, err
	}

	for _, overlay := range overlays {
		if overlay != nil {
			cfg.Merge(overlay)
		}
	}

	cfg.loadDefaults()

	err = cfg.validate()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config

	err = toml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", ErrInvalidConfig, path, err)
	}

	return &cfg, nil
}

// Merge overwrites the non-zero fields of c with those of overlay.
func (c *Config) Merge(overlay *Config) {
	setString(&c.Project, overlay.Project)
	setString(&c.FlowsDir, overlay.FlowsDir)
	setString(&c.ContentDir, overlay.ContentDir)
	setString(&c.LedgerURL, overlay.LedgerURL)
	setString(&c.Namespace, overlay.Namespace)
	setString(&c.LogLevel, overlay.LogLevel)
	setString(&c.Push.Command, overlay.Push.Command)
	setString(&c.Push.Timeout, overlay.Push.Timeout)
	setString(&c.Events.Bus, overlay.Events.Bus)
	setString(&c.Watch.Schedule, overlay.Watch.Schedule)

	if len(overlay.Push.Args) > 0 {
		c.Push.Args = overlay.Push.Args
	}

	if overlay.Push.Concurrency > 0 {
		c.Push.Concurrency = overlay.Push.Concurrency
	}

	if overlay.Push.AutoFix != nil {
		c.Push.AutoFix = overlay.Push.AutoFix
	}

	if len(overlay.Events.Brokers) > 0 {
		c.Events.Brokers = overlay.Events.Brokers
	}
}

func (c *Config) loadEnv() error {
	setString(&c.Project, os.Getenv(EnvProject))
	setString(&c.FlowsDir, os.Getenv(EnvFlowsDir))
	setString(&c.ContentDir, os.Getenv(EnvContentDir))
	setString(&c.LedgerURL, os.Getenv(EnvLedgerURL))
	setString(&c.Namespace, os.Getenv(EnvNamespace))
	setString(&c.LogLevel, os.Getenv(EnvLogLevel))
	setString(&c.Push.Command, os.Getenv(EnvPushCommand))
	setString(&c.Push.Timeout, os.Getenv(EnvPushTimeout))
	setString(&c.Events.Bus, os.Getenv(EnvEventBus))
	setString(&c.Watch.Schedule, os.Getenv(EnvWatchSchedule))

	if v := os.Getenv(EnvPushConcurrency); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, EnvPushConcurrency, err)
		}

		c.Push.Concurrency = n
	}

	if v := os.Getenv(EnvKafkaBrokers); v != "" {
		c.Events.Brokers = strings.Split(v, ",")
	}

	return nil
}

func (c *Config) loadDefaults() {
	if c.Project == "" {
		c.Project = "."
	}

	if c.FlowsDir == "" {
		c.FlowsDir = "flows"
	}

	if c.ContentDir == "" {
		c.ContentDir = "content"
	}

	if c.LedgerURL == "" {
		c.LedgerURL = "file://" + DefaultLedgerPath
	}

	if c.Namespace == "" {
		abs, err := filepath.Abs(c.Project)
		if err == nil {
			c.Namespace = filepath.Base(abs)
		} else {
			c.Namespace = "default"
		}
	}

	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	if c.Push.Concurrency == 0 {
		c.Push.Concurrency = 4
	}

	if c.Push.Timeout == "" {
		c.Push.Timeout = "60s"
	}

	if c.Push.AutoFix == nil {
		autoFix := true
		c.Push.AutoFix = &autoFix
	}

	if c.Events.Bus == "" {
		c.Events.Bus = BusNone
	}

	if c.Watch.Schedule == "" {
		c.Watch.Schedule = "@every 5m"
	}
}

func (c *Config) validate() error {
	if c.Push.Concurrency < 0 {
		return fmt.Errorf("%w: push.concurrency must be positive", ErrInvalidConfig)
	}

	if _, err := time.ParseDuration(c.Push.Timeout); err != nil {
		return fmt.Errorf("%w: push.timeout: %w", ErrInvalidConfig, err)
	}

	switch c.Events.Bus {
	case BusNone, BusMemory:
	case BusKafka:
		if len(c.Events.Brokers) == 0 {
			return fmt.Errorf("%w: events.brokers is required for the kafka bus", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown event bus %q", ErrInvalidConfig, c.Events.Bus)
	}

	return nil
}

// TimeoutDuration returns Push.Timeout as a time.Duration.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Push.Timeout)

	return d
}

// AutoFix reports whether pushes apply deterministic fixes.
func (c *Config) AutoFix() bool {
	return c.Push.AutoFix == nil || *c.Push.AutoFix
}

// FlowsPath is the flows directory resolved against the project.
func (c *Config) FlowsPath() string {
	return c.resolve(c.FlowsDir)
}

// ContentPath is the content root resolved against the project.
func (c *Config) ContentPath() string {
	return c.resolve(c.ContentDir)
}

func (c *Config) resolve(dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}

	return filepath.Join(c.Project, dir)
}

func setString(target *string, value string) {
	if value != "" {
		*target = value
	}
}
