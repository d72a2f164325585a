// ABOUTME: Configuration loading and parsing for the absolutelyright server
// ABOUTME: Supports YAML files with environment variable expansion, defaults, and env overrides

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables recognized by the server.
const (
	EnvConfig    = "ABSOLUTELYRIGHT_CONFIG"
	EnvSecret    = "ABSOLUTELYRIGHT_SECRET"
	EnvDataDir   = "ABSOLUTELYRIGHT_DATA_DIR"
	EnvDBPath    = "ABSOLUTELYRIGHT_DB_PATH"
	EnvLogPath   = "ABSOLUTELYRIGHT_LOG_PATH"
	EnvHTTPAddr  = "ABSOLUTELYRIGHT_HTTP_ADDR"
	EnvStaticDir = "ABSOLUTELYRIGHT_STATIC_DIR"
)

// Supported database drivers.
const (
	DriverModernc = "sqlite"  // modernc.org/sqlite, pure Go
	DriverCGO     = "sqlite3" // github.com/mattn/go-sqlite3, requires cgo
)

const (
	defaultHTTPAddr  = "0.0.0.0:3003"
	defaultStaticDir = "frontend"
	defaultDBFile    = "counts.db"
	defaultLogFile   = "pageviews.log"
)

// Config represents the complete server configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Pageview  PageviewConfig  `yaml:"pageview"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
}

// ServerConfig holds the HTTP listener and static frontend settings
type ServerConfig struct {
	HTTPAddr  string `yaml:"http_addr"`
	StaticDir string `yaml:"static_dir"`

	ShutdownTimeout   time.Duration `yaml:"-"`
	ReadHeaderTimeout time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	ShutdownTimeoutRaw   string `yaml:"shutdown_timeout"`
	ReadHeaderTimeoutRaw string `yaml:"read_header_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path   string `yaml:"path"`
	Driver string `yaml:"driver"`
}

// PageviewConfig holds the pageview log location
type PageviewConfig struct {
	LogPath string `yaml:"log_path"`
}

// AuthConfig holds the shared secret gating POST /api/set.
// An empty secret leaves the endpoint open. That includes
// ABSOLUTELYRIGHT_SECRET set to the empty string, which is treated
// as unset; writes without a "secret" field are then accepted rather than
// rejected with 401.
type AuthConfig struct {
	Secret string `yaml:"secret"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// TailscaleConfig holds Tailscale tsnet configuration
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Hostname  string `yaml:"hostname"`
	AuthKey   string `yaml:"auth_key"`
	StateDir  string `yaml:"state_dir"`
	Ephemeral bool   `yaml:"ephemeral"`
}

// Default returns the configuration used when no file is present.
// Data files live in the current directory unless ABSOLUTELYRIGHT_DATA_DIR is set.
func Default() *Config {
	dataDir := os.Getenv(EnvDataDir)
	return &Config{
		Server: ServerConfig{
			HTTPAddr:          defaultHTTPAddr,
			StaticDir:         defaultStaticDir,
			ShutdownTimeout:   5 * time.Second,
			ReadHeaderTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Path:   filepath.Join(dataDir, defaultDBFile),
			Driver: DriverModernc,
		},
		Pageview: PageviewConfig{
			LogPath: filepath.Join(dataDir, defaultLogFile),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Fields absent from the file keep their Default() values.
// Environment variables in the format ${VAR_NAME} are expanded, then the
// ABSOLUTELYRIGHT_* overrides are applied.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return finish(cfg)
}

// LoadOrDefault behaves like Load, but a missing file yields the defaults
// (with environment overrides) instead of an error.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return finish(Default())
}

func finish(cfg *Config) (*Config, error) {
	applyEnvOverrides(cfg)

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyEnvOverrides lets deployment environments override file settings.
// Only non-empty variables take effect.
func applyEnvOverrides(cfg *Config) {
	overrides := []struct {
		env    string
		target *string
	}{
		{EnvSecret, &cfg.Auth.Secret},
		{EnvDBPath, &cfg.Database.Path},
		{EnvLogPath, &cfg.Pageview.LogPath},
		{EnvHTTPAddr, &cfg.Server.HTTPAddr},
		{EnvStaticDir, &cfg.Server.StaticDir},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.target = v
		}
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if !c.Tailscale.Enabled && c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required (or enable tailscale)")
	}

	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	switch c.Database.Driver {
	case DriverModernc, DriverCGO:
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverModernc, DriverCGO, c.Database.Driver)
	}

	if c.Pageview.LogPath == "" {
		return fmt.Errorf("pageview.log_path is required")
	}

	if c.Metrics.Enabled && c.Metrics.Path == "" {
		return fmt.Errorf("metrics.path is required when metrics are enabled")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Server.ShutdownTimeoutRaw != "" {
		cfg.Server.ShutdownTimeout, err = time.ParseDuration(cfg.Server.ShutdownTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing shutdown_timeout %q: %w", cfg.Server.ShutdownTimeoutRaw, err)
		}
	}

	if cfg.Server.ReadHeaderTimeoutRaw != "" {
		cfg.Server.ReadHeaderTimeout, err = time.ParseDuration(cfg.Server.ReadHeaderTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing read_header_timeout %q: %w", cfg.Server.ReadHeaderTimeoutRaw, err)
		}
	}

	return nil
}

// DefaultYAML is the file written by `absolutelyright init`.
const DefaultYAML = `# absolutelyright server configuration

server:
  http_addr: "0.0.0.0:3003"
  static_dir: "frontend"
  shutdown_timeout: "5s"
  read_header_timeout: "10s"

database:
  path: "counts.db"
  driver: "sqlite"

pageview:
  log_path: "pageviews.log"

auth:
  # Leave empty to allow unauthenticated writes (local development only)
  secret: "${ABSOLUTELYRIGHT_SECRET}"

logging:
  level: "info"
  format: "text"

metrics:
  enabled: true
  path: "/metrics"

tailscale:
  enabled: false
  hostname: "absolutelyright"
`
