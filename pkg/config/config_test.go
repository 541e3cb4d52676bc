package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
bigip:
  url: https://10.190.25.80
  username: admin
  password: default
  verify-tls: false
source:
  kind: marathon
  url: http://10.141.141.10:8080
partitions:
  - mesos
  - velcro
poll-interval: 15s
journal-path: /var/lib/bigip-ctlr/journal.db
`)

	cfg, err := Load(path)
	assert.NoError(t, err)

	assert.Equal(t, "https://10.190.25.80", cfg.BigIP.URL)
	assert.Equal(t, KindMarathon, cfg.Source.Kind)
	assert.Equal(t, []string{"mesos", "velcro"}, cfg.Partitions)
	assert.Equal(t, 15*time.Second, cfg.PollInterval.Duration())

	// Defaults survive for unset fields
	assert.Equal(t, 1, cfg.Concurrency)
	assert.Equal(t, 256, cfg.JournalKeep)
	assert.Equal(t, "info", cfg.LogLevel)

	assert.NoError(t, cfg.Validate())
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
bigip:
  url: https://10.190.25.80
  username: fileuser
  password: filepass
source:
  kind: kubernetes
  url: http://localhost:8001
partitions: ["k8s"]
`)

	t.Setenv("BIGIP_USERNAME", "envuser")
	t.Setenv("BIGIP_PASSWORD", "envpass")

	cfg, err := Load(path)
	assert.NoError(t, err)
	assert.Equal(t, "envuser", cfg.BigIP.Username, "Env credentials should win over the file")
	assert.Equal(t, "envpass", cfg.BigIP.Password)
}

func TestLoadBadDuration(t *testing.T) {
	path := writeConfig(t, `
poll-interval: often
`)
	_, err := Load(path)
	assert.Error(t, err, "Unparseable duration should fail")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.BigIP = BigIP{URL: "https://10.190.25.80", Username: "admin", Password: "default"}
		cfg.Source = Source{Kind: KindMarathon, URL: "http://10.141.141.10:8080"}
		cfg.Partitions = []string{"mesos"}
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing bigip url", func(c *Config) { c.BigIP.URL = "" }},
		{"missing credentials", func(c *Config) { c.BigIP.Password = "" }},
		{"unknown source kind", func(c *Config) { c.Source.Kind = "dcos" }},
		{"missing source url", func(c *Config) { c.Source.URL = "" }},
		{"no partitions", func(c *Config) { c.Partitions = nil }},
		{"zero poll interval", func(c *Config) { c.PollInterval = 0 }},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }},
	}

	assert.NoError(t, valid().Validate(), "Baseline config should validate")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
