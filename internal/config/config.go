package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/tor-expert-runner/internal/logger"
)

// Config holds settings shared by the tor-runner and tor-fetch binaries.
type Config struct {
	// DownloadDir is where bundle archives are cached and extracted.
	// Empty means the platform default cache location.
	DownloadDir string `yaml:"download_dir"`
	// TorVersion selects the bundle version: an explicit version string,
	// "latest", or "stable". Empty pins the built-in default version.
	TorVersion string `yaml:"tor_version"`
	// IndexURL is the directory listing used to resolve latest/stable.
	// Empty means the official release archive.
	IndexURL string `yaml:"index_url"`
	// Timeout bounds each HTTP request (index listing and archive fetch).
	Timeout time.Duration `yaml:"timeout"`
	// LogLevel is the minimum level for log output.
	LogLevel string `yaml:"log_level"`
}

const (
	// DefaultConfigFilename is the default filename for runner settings.
	DefaultConfigFilename = "tor-runner-settings.yaml"

	// DefaultTimeout is the default duration for HTTP operations. Bundle
	// archives are large, so it is generous.
	DefaultTimeout = 5 * time.Minute

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errUnknownLogLevel is returned for log levels ParseLogLevel rejects.
	errUnknownLogLevel = errors.New("unknown log level")
)

// Default returns a configuration with every field at its default.
func Default() *Config {
	return &Config{
		Timeout: DefaultTimeout,
	}
}

// Load reads configuration from the provided path and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadOrDefault reads configuration from path, falling back to defaults
// when the file does not exist. An explicit path that is missing is still
// an error; only the default filename may be absent.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" || path == DefaultConfigFilename {
		if _, err := os.Stat(DefaultConfigFilename); errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
	}

	return Load(path)
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings and fills defaulted fields.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.IndexURL != "" {
		if _, err := url.ParseRequestURI(cfg.IndexURL); err != nil {
			return fmt.Errorf("invalid index URL: %w", err)
		}
	}

	if cfg.LogLevel != "" {
		if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
			return fmt.Errorf("%q: %w", cfg.LogLevel, errUnknownLogLevel)
		}
	}

	return nil
}
