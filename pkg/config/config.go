package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Source kinds the controller can poll.
const (
	KindMarathon   = "marathon"
	KindKubernetes = "kubernetes"
)

// Duration wraps time.Duration so YAML values can use human-readable forms
// like "30s" or "1m".
type Duration time.Duration

// UnmarshalYAML parses a duration string
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("failed to parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the wrapped time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Config is the controller's runtime configuration
type Config struct {
	BigIP      BigIP    `yaml:"bigip"`
	Source     Source   `yaml:"source"`
	Partitions []string `yaml:"partitions"`

	PollInterval Duration `yaml:"poll-interval"`
	Concurrency  int      `yaml:"concurrency"`

	MetricsAddr string `yaml:"metrics-addr"`
	JournalPath string `yaml:"journal-path"`
	JournalKeep int    `yaml:"journal-keep"`

	LogLevel string `yaml:"log-level"`
	LogJSON  bool   `yaml:"log-json"`
}

// BigIP locates and authenticates the load balancer's management endpoint
type BigIP struct {
	URL       string `yaml:"url"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	VerifyTLS bool   `yaml:"verify-tls"`
}

// Source locates the orchestrator whose state drives the controller
type Source struct {
	Kind     string `yaml:"kind"`
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Default returns a config with operational defaults applied
func Default() *Config {
	return &Config{
		PollInterval: Duration(30 * time.Second),
		Concurrency:  1,
		MetricsAddr:  ":9090",
		JournalKeep:  256,
		LogLevel:     "info",
	}
}

// Load reads a YAML config file, applies defaults for anything unset, and
// lets environment variables override credentials so they can stay out of
// the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnv(cfg)
	return cfg, nil
}

// applyEnv overrides credential fields from the environment.
func applyEnv(cfg *Config) {
	if v := os.Getenv("BIGIP_USERNAME"); v != "" {
		cfg.BigIP.Username = v
	}
	if v := os.Getenv("BIGIP_PASSWORD"); v != "" {
		cfg.BigIP.Password = v
	}
	if v := os.Getenv("SOURCE_USERNAME"); v != "" {
		cfg.Source.Username = v
	}
	if v := os.Getenv("SOURCE_PASSWORD"); v != "" {
		cfg.Source.Password = v
	}
}

// Validate checks the config for completeness before the controller starts
func (c *Config) Validate() error {
	if c.BigIP.URL == "" {
		return fmt.Errorf("bigip url is required")
	}
	if _, err := url.Parse(c.BigIP.URL); err != nil {
		return fmt.Errorf("invalid bigip url: %w", err)
	}
	if c.BigIP.Username == "" || c.BigIP.Password == "" {
		return fmt.Errorf("bigip credentials are required")
	}

	switch c.Source.Kind {
	case KindMarathon, KindKubernetes:
	default:
		return fmt.Errorf("unknown source kind: %q", c.Source.Kind)
	}
	if c.Source.URL == "" {
		return fmt.Errorf("source url is required")
	}

	if len(c.Partitions) == 0 {
		return fmt.Errorf("at least one partition is required")
	}
	if c.PollInterval.Duration() <= 0 {
		return fmt.Errorf("poll-interval must be positive")
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1")
	}
	return nil
}
