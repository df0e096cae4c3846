package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by all toolpin operations.
type Config struct {
	// Root is the installation root holding hashes/, installs/ and the
	// active-version symlink.
	Root string `yaml:"root"`
	// IndexURL is the endpoint serving the JSON release index.
	IndexURL string `yaml:"index_url"`
	// Profile is the shell profile file offered the PATH export line.
	Profile string `yaml:"profile"`
	// Timeout bounds every HTTP request (index fetch and tarball download).
	Timeout time.Duration `yaml:"timeout"`
}

const (
	// RootEnvVar overrides the installation root when set.
	RootEnvVar = "TOOLPIN_ROOT"

	// DefaultRootDirname is the default root directory under the user's home.
	DefaultRootDirname = ".toolpin"

	// DefaultIndexURL is the release index endpoint.
	DefaultIndexURL = "https://releases.toolpin.dev/index.json"

	// DefaultProfileFilename is the default shell profile under the user's home.
	DefaultProfileFilename = ".bashrc"

	// DefaultTimeout bounds HTTP requests when no timeout is configured.
	DefaultTimeout = 30 * time.Second

	// DefaultFilePermissions is the permission for files toolpin writes.
	DefaultFilePermissions = 0o644
)

// errConfigIsNotSet is returned when a nil configuration is provided.
var errConfigIsNotSet = errors.New("configuration is not set")

// Load reads settings from the provided path and fills in defaults.
// An empty path yields the default configuration; the TOOLPIN_ROOT
// environment variable overrides the root in either case.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		contents, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return nil, fmt.Errorf("read settings: %w", err)
		}

		if err = yaml.Unmarshal(contents, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
	}

	if root := os.Getenv(RootEnvVar); root != "" {
		cfg.Root = root
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills defaults and checks formats. It mutates the config in place.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	home, err := homedir.Dir()
	if err != nil {
		return fmt.Errorf("resolve home directory: %w", err)
	}

	if cfg.Root == "" {
		cfg.Root = filepath.Join(home, DefaultRootDirname)
	}

	if cfg.Root, err = homedir.Expand(cfg.Root); err != nil {
		return fmt.Errorf("expand root: %w", err)
	}

	if cfg.Profile == "" {
		cfg.Profile = filepath.Join(home, DefaultProfileFilename)
	}

	if cfg.Profile, err = homedir.Expand(cfg.Profile); err != nil {
		return fmt.Errorf("expand profile: %w", err)
	}

	if cfg.IndexURL == "" {
		cfg.IndexURL = DefaultIndexURL
	}

	if _, err := url.ParseRequestURI(cfg.IndexURL); err != nil {
		return fmt.Errorf("invalid index URL: %w", err)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return nil
}
