package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type testConfig struct {
	HTTP struct {
		Port string `yaml:"port" env:"TEST_HTTP_PORT"`
	} `yaml:"http"`
	Feed struct {
		Brokers      []string      `yaml:"brokers"`
		RetryDelay   time.Duration `yaml:"retryDelay"`
		QoS          uint8         `yaml:"qos"`
		StatusAlerts bool          `yaml:"statusAlerts"`
	} `yaml:"feed"`
	Ratio float64 `yaml:"ratio"`
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("http:\n  port: \"9000\"\nfeed:\n  retryDelay: 3s\n  qos: 1\nratio: 0.5\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("DOTENV_FILE", filepath.Join(dir, "missing.env"))
	t.Setenv("TEST_HTTP_PORT", "9100")
	t.Setenv("FEED_BROKERS", "a:9092, b:9092 ,")
	t.Setenv("FEED_STATUSALERTS", "true")

	var cfg testConfig
	if err := LoadConfig(&cfg); err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.HTTP.Port != "9100" {
		t.Fatalf("expected env override for port, got %q", cfg.HTTP.Port)
	}
	if cfg.Feed.RetryDelay != 3*time.Second {
		t.Fatalf("expected retry delay from yaml, got %s", cfg.Feed.RetryDelay)
	}
	if cfg.Feed.QoS != 1 {
		t.Fatalf("expected qos 1, got %d", cfg.Feed.QoS)
	}
	if len(cfg.Feed.Brokers) != 2 || cfg.Feed.Brokers[0] != "a:9092" || cfg.Feed.Brokers[1] != "b:9092" {
		t.Fatalf("unexpected brokers %v", cfg.Feed.Brokers)
	}
	if !cfg.Feed.StatusAlerts {
		t.Fatalf("expected status alerts enabled from env")
	}
	if cfg.Ratio != 0.5 {
		t.Fatalf("expected ratio 0.5, got %v", cfg.Ratio)
	}
}

func TestLoadConfigDotenv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("FEED_RETRYDELAY=250ms\n"), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DOTENV_FILE", path)
	t.Cleanup(func() { os.Unsetenv("FEED_RETRYDELAY") })

	var cfg testConfig
	if err := LoadConfig(&cfg); err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Feed.RetryDelay != 250*time.Millisecond {
		t.Fatalf("expected 250ms from dotenv, got %s", cfg.Feed.RetryDelay)
	}
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DOTENV_FILE", filepath.Join(t.TempDir(), "none.env"))
	t.Setenv("FEED_RETRYDELAY", "soon")

	var cfg testConfig
	if err := LoadConfig(&cfg); err == nil {
		t.Fatalf("expected parse error for invalid duration")
	}
}

func TestLoadConfigTargetValidation(t *testing.T) {
	if err := LoadConfig(nil); err == nil {
		t.Fatalf("expected error for nil target")
	}
	var cfg testConfig
	if err := LoadConfig(cfg); err == nil {
		t.Fatalf("expected error for non-pointer target")
	}
}
