package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v2"
)

const (
	DefaultBaseURL       = "http://localhost:8096"
	DefaultInterval      = 30
	DefaultTimeout       = 10
	DefaultNamespace     = "jellyfin"
	DefaultListenAddress = ":8000"
)

var ErrMissingToken = errors.New("JELLYFIN_TOKEN must be defined")

// JellyfinServerConfig describes how to reach the Jellyfin API.
type JellyfinServerConfig struct {
	BaseURL  string `yaml:"url"`
	Token    string `yaml:"token"`
	Insecure *bool  `yaml:"insecure"`
}

// SkipVerify reports whether TLS certificate verification is disabled.
func (c JellyfinServerConfig) SkipVerify() bool {
	return c.Insecure != nil && *c.Insecure
}

// Config is the exporter configuration. Interval and Timeout are seconds.
// Booleans are pointers so that an explicit false still takes precedence
// over a true coming from a lower layer.
type Config struct {
	Server JellyfinServerConfig `yaml:",inline"`

	Interval             int    `yaml:"interval"`
	Timeout              int    `yaml:"timeout"`
	Namespace            string `yaml:"namespace"`
	ListenAddress        string `yaml:"listen_address"`
	UntranscodedAsDirect *bool  `yaml:"untranscoded_as_direct"`
}

// CountUntranscodedAsDirect reports whether sessions without transcoding
// info are counted as direct streams.
func (c Config) CountUntranscodedAsDirect() bool {
	return c.UntranscodedAsDirect != nil && *c.UntranscodedAsDirect
}

func Default() Config {
	return Config{
		Server: JellyfinServerConfig{
			BaseURL: DefaultBaseURL,
		},
		Interval:      DefaultInterval,
		Timeout:       DefaultTimeout,
		Namespace:     DefaultNamespace,
		ListenAddress: DefaultListenAddress,
	}
}

// CollectInterval is the time slept between two collection cycles.
func (c Config) CollectInterval() time.Duration {
	return time.Duration(c.Interval) * time.Second
}

// RequestTimeout bounds every request made to the Jellyfin API.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// LoadFile parses a YAML config file. Unknown keys are rejected.
func LoadFile(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read file: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse yaml: %w", err)
	}
	return cfg, nil
}

// Resolve layers the explicitly set values in flags over the config file at
// path (if any), then fills whatever is still unset from Default.
func Resolve(flags Config, path string) (*Config, error) {
	cfg := flags

	if path != "" {
		file, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		if err := mergo.Merge(&cfg, file, mergo.WithoutDereference); err != nil {
			return nil, fmt.Errorf("config: merge file: %w", err)
		}
	}
	if err := mergo.Merge(&cfg, Default(), mergo.WithoutDereference); err != nil {
		return nil, fmt.Errorf("config: merge defaults: %w", err)
	}

	cfg.Server.BaseURL = strings.TrimRight(cfg.Server.BaseURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c Config) Validate() error {
	if c.Server.Token == "" {
		return ErrMissingToken
	}
	u, err := url.Parse(c.Server.BaseURL)
	if err != nil {
		return fmt.Errorf("config: invalid jellyfin url %q: %w", c.Server.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("config: jellyfin url %q must use http or https", c.Server.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("config: jellyfin url %q has no host", c.Server.BaseURL)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("config: collect interval must be positive, got %d", c.Interval)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("config: request timeout must be positive, got %d", c.Timeout)
	}
	if c.Namespace == "" {
		return errors.New("config: metric namespace must not be empty")
	}
	return nil
}
