// ABOUTME: Configuration loading for the backfill tool
// ABOUTME: Merges TOML config, environment variables, and defaults

package main

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/2389/absolutelyright/internal/transcript"
)

type Config struct {
	Scan   ScanConfig   `toml:"scan"`
	Upload UploadConfig `toml:"upload"`
	Output OutputConfig `toml:"output"`
	Watch  WatchConfig  `toml:"watch"`
}

type ScanConfig struct {
	Projects          string `toml:"projects"`
	AbsolutelyPattern string `toml:"absolutely_pattern"`
	RightPattern      string `toml:"right_pattern"`
}

type UploadConfig struct {
	URL         string `toml:"url"`
	Secret      string `toml:"secret"`
	Concurrency int    `toml:"concurrency"`
}

type WatchConfig struct {
	Enabled     bool          `toml:"enabled"`
	Interval    time.Duration `toml:"-"`
	IntervalRaw string        `toml:"interval"`
}

type OutputConfig struct {
	// SavePath receives a JSON copy of the daily counts; empty disables it.
	SavePath string `toml:"save_path"`
}

// defaultConfig returns settings used when no file or flag says otherwise.
// CLAUDE_PROJECTS, PATTERN and PATTERN_RIGHT override the built-in values.
func defaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	cfg := &Config{
		Scan: ScanConfig{
			Projects:          filepath.Join(home, ".claude", "projects"),
			AbsolutelyPattern: transcript.DefaultAbsolutelyPattern,
			RightPattern:      transcript.DefaultRightPattern,
		},
		Upload: UploadConfig{
			Secret:      os.Getenv("ABSOLUTELYRIGHT_SECRET"),
			Concurrency: 4,
		},
		Output: OutputConfig{
			SavePath: filepath.Join(home, ".absolutelyright", "daily_counts.json"),
		},
		Watch: WatchConfig{
			Interval: 5 * time.Second,
		},
	}

	if v := os.Getenv("CLAUDE_PROJECTS"); v != "" {
		cfg.Scan.Projects = v
	}
	if v := os.Getenv("PATTERN"); v != "" {
		cfg.Scan.AbsolutelyPattern = v
	}
	if v := os.Getenv("PATTERN_RIGHT"); v != "" {
		cfg.Scan.RightPattern = v
	}
	return cfg
}

// LoadConfig reads a TOML file over the defaults, expanding ${VAR} references.
func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))
	if _, err := toml.Decode(expanded, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Watch.IntervalRaw != "" {
		d, err := time.ParseDuration(cfg.Watch.IntervalRaw)
		if err != nil {
			return nil, fmt.Errorf("parsing watch.interval: %w", err)
		}
		cfg.Watch.Interval = d
	}

	cfg.Scan.Projects = expandHome(cfg.Scan.Projects)
	cfg.Output.SavePath = expandHome(cfg.Output.SavePath)
	return cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} with environment variable values.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		return os.Getenv(varName)
	})
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// Validate checks the merged configuration.
func (c *Config) Validate() error {
	if c.Scan.Projects == "" {
		return fmt.Errorf("scan.projects is required")
	}
	if c.Upload.URL != "" {
		u, err := url.Parse(c.Upload.URL)
		if err != nil {
			return fmt.Errorf("upload.url is not a valid URL: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("upload.url must use http or https scheme")
		}
	}
	if c.Upload.Concurrency < 1 {
		return fmt.Errorf("upload.concurrency must be at least 1")
	}
	if c.Watch.Enabled && c.Watch.Interval <= 0 {
		return fmt.Errorf("watch.interval must be positive")
	}
	return nil
}
