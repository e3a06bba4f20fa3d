// Package config loads the YAML configuration shared by the sitekeeper binaries.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/iudanet/sitekeeper/internal/client/grace"
	"github.com/iudanet/sitekeeper/internal/models"
	"github.com/iudanet/sitekeeper/internal/protocol"
)

const (
	// DefaultPath is the configuration file looked up when no path is given
	DefaultPath = "sitekeeper.yaml"

	minGraceWindow = time.Second
	maxGraceWindow = 5 * time.Minute
	maxSaveTimeout = 5 * time.Minute
)

// Duration is a time.Duration written as "20s" in YAML
type Duration time.Duration

// UnmarshalYAML parses a Go duration string
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML writes the duration as a string
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Tiers holds the DSN of each storage tier; an empty DSN disables the tier
type Tiers struct {
	Primary   string `yaml:"primary"`
	Backup    string `yaml:"backup"`
	Emergency string `yaml:"emergency"`
}

// Config holds settings for the embedded client, the host and the development backend
type Config struct {
	// AllowedOrigins host origins the embedded client accepts messages from
	AllowedOrigins []string `yaml:"allowed_origins"`
	// ClientOrigins site origins the host accepts connections from
	ClientOrigins []string `yaml:"client_origins"`

	Tiers Tiers `yaml:"tiers"`

	GraceScope string `yaml:"grace_scope"`
	EditorID   string `yaml:"editor_id"`
	SiteOrigin string `yaml:"site_origin"` // origin, которым представляется встроенный клиент
	HostURL    string `yaml:"host_url"`    // websocket endpoint host
	ListenAddr string `yaml:"listen_addr"` // адрес host
	BackendURL string `yaml:"backend_url"`
	ServerAddr string `yaml:"server_addr"` // адрес dev backend
	ServerDB   string `yaml:"server_db"`
	LogLevel   string `yaml:"log_level"`

	GraceWindow Duration `yaml:"grace_window"`
	SaveTimeout Duration `yaml:"save_timeout"`
}

// Default returns the configuration used for a local development setup
func Default() *Config {
	return &Config{
		AllowedOrigins: []string{"http://localhost:8090"},
		ClientOrigins:  []string{"http://localhost:3000"},
		Tiers: Tiers{
			Primary:   "sqlite://sitekeeper-primary.db",
			Backup:    "bolt://sitekeeper-backup.db",
			Emergency: "memory://",
		},
		GraceScope:  string(grace.ScopeField),
		EditorID:    uuid.NewString(),
		SiteOrigin:  "http://localhost:3000",
		HostURL:     "ws://localhost:8090/sync",
		ListenAddr:  ":8090",
		BackendURL:  "http://localhost:8080",
		ServerAddr:  ":8080",
		ServerDB:    "sitekeeper-server.db",
		LogLevel:    "info",
		GraceWindow: Duration(grace.DefaultWindow),
		SaveTimeout: Duration(10 * time.Second),
	}
}

// Load reads path over the defaults. A missing file at DefaultPath is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the engine cannot work with
func (c *Config) Validate() error {
	var errs []error

	if _, err := protocol.NewAllowList(c.AllowedOrigins...); err != nil {
		errs = append(errs, fmt.Errorf("allowed_origins: %w", err))
	}
	if _, err := protocol.NewAllowList(c.ClientOrigins...); err != nil {
		errs = append(errs, fmt.Errorf("client_origins: %w", err))
	}
	if window := c.GraceWindow.Std(); window < minGraceWindow || window > maxGraceWindow {
		errs = append(errs, fmt.Errorf("grace_window %s is outside %s..%s", window, minGraceWindow, maxGraceWindow))
	}
	if _, err := grace.ParseScope(c.GraceScope); err != nil {
		errs = append(errs, fmt.Errorf("grace_scope: %w", err))
	}
	if timeout := c.SaveTimeout.Std(); timeout <= 0 || timeout > maxSaveTimeout {
		errs = append(errs, fmt.Errorf("save_timeout %s is outside 0..%s", timeout, maxSaveTimeout))
	}
	if len(c.TierDSNs()) == 0 {
		errs = append(errs, errors.New("tiers: at least one tier is required"))
	}
	if strings.TrimSpace(c.EditorID) == "" {
		errs = append(errs, errors.New("editor_id is empty"))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// Scope returns the parsed grace scope
func (c *Config) Scope() grace.Scope {
	scope, err := grace.ParseScope(c.GraceScope)
	if err != nil {
		return grace.ScopeField
	}
	return scope
}

// TierDSNs returns the DSN of every enabled tier
func (c *Config) TierDSNs() map[models.Tier]string {
	dsns := make(map[models.Tier]string, 3)
	for tier, dsn := range map[models.Tier]string{
		models.TierPrimary:   c.Tiers.Primary,
		models.TierBackup:    c.Tiers.Backup,
		models.TierEmergency: c.Tiers.Emergency,
	} {
		if strings.TrimSpace(dsn) != "" {
			dsns[tier] = dsn
		}
	}
	return dsns
}

// Level returns the slog level named by LogLevel
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

// Logger builds a text logger writing to stderr at the configured level
func (c *Config) Logger() *slog.Logger {
	level, err := c.Level()
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
