// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	xerrors "github.com/valpere/DataRetriever/internal/errors"
)

const validYAML = `
name: country-data
client:
  user_agent: test-agent
  rate_limit:
    calls: 1
    period: 1s
retrieve:
  saved_dir: /tmp/saved
  policy:
    save: true
sources:
  - url: https://example.com/countries.csv
    kind: rows
  - url: https://example.com/meta.json
    kind: json
    fallback: true
`

func TestLoadFromBytes(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(validYAML))
	if err != nil {
		t.Fatalf("LoadFromBytes() error: %v", err)
	}
	if cfg.Name != "country-data" {
		t.Errorf("Name = %q", cfg.Name)
	}
	if cfg.Client.UserAgent != "test-agent" {
		t.Errorf("UserAgent = %q", cfg.Client.UserAgent)
	}
	if cfg.Client.RateLimit == nil || cfg.Client.RateLimit.Calls != 1 {
		t.Errorf("RateLimit = %+v", cfg.Client.RateLimit)
	}
	if len(cfg.Sources) != 2 || cfg.Sources[0].Kind != "rows" {
		t.Errorf("Sources = %+v", cfg.Sources)
	}
}

func TestDefaultsApplied(t *testing.T) {
	cfg, err := LoadFromBytes([]byte("name: job\nclient:\n  user_agent: ua\n"))
	if err != nil {
		t.Fatalf("LoadFromBytes() error: %v", err)
	}
	if cfg.Client.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s default", cfg.Client.Timeout)
	}
	if cfg.Client.RetryAttempts != 5 {
		t.Errorf("RetryAttempts = %d, want 5", cfg.Client.RetryAttempts)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
}

func TestEnvironmentExpansion(t *testing.T) {
	t.Setenv("TEST_UA", "agent-from-env")
	cfg, err := LoadFromBytes([]byte("name: job\nclient:\n  user_agent: ${TEST_UA}\n"))
	if err != nil {
		t.Fatalf("LoadFromBytes() error: %v", err)
	}
	if cfg.Client.UserAgent != "agent-from-env" {
		t.Errorf("UserAgent = %q, want expanded env value", cfg.Client.UserAgent)
	}
}

func TestValidationRejectsConflictingPolicy(t *testing.T) {
	yaml := `
name: job
client:
  user_agent: ua
retrieve:
  saved_dir: /tmp/saved
  policy:
    save: true
    use_saved: true
`
	_, err := LoadFromBytes([]byte(yaml))
	if !xerrors.IsConfiguration(err) {
		t.Errorf("LoadFromBytes() error = %v, want ConfigurationError", err)
	}
}

func TestValidationRejectsUnknownKind(t *testing.T) {
	yaml := `
name: job
client:
  user_agent: ua
sources:
  - url: https://example.com/x
    kind: parquet
`
	_, err := LoadFromBytes([]byte(yaml))
	if err == nil || !strings.Contains(err.Error(), "unknown kind") {
		t.Errorf("LoadFromBytes() error = %v, want unknown kind", err)
	}
}

func TestValidationRejectsMissingName(t *testing.T) {
	_, err := LoadFromBytes([]byte("client:\n  user_agent: ua\n"))
	if !xerrors.IsConfiguration(err) {
		t.Errorf("LoadFromBytes() error = %v, want ConfigurationError", err)
	}
}

func TestLoadFromFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(validYAML), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}

	saved := filepath.Join(t.TempDir(), "out", "config.yaml")
	if err := SaveToFile(cfg, saved); err != nil {
		t.Fatalf("SaveToFile() error: %v", err)
	}
	reloaded, err := LoadFromFile(saved)
	if err != nil {
		t.Fatalf("reload error: %v", err)
	}
	if reloaded.Name != cfg.Name || len(reloaded.Sources) != len(cfg.Sources) {
		t.Errorf("round trip changed config: %+v vs %+v", reloaded, cfg)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("LoadFromFile() on missing file succeeded")
	}
}

func TestBuildClientConfig(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(validYAML))
	if err != nil {
		t.Fatal(err)
	}
	built := cfg.Client.Build()
	if built.UserAgent != "test-agent" {
		t.Errorf("Build().UserAgent = %q", built.UserAgent)
	}
	if built.Retry.MaxAttempts != 5 {
		t.Errorf("Build().Retry.MaxAttempts = %d, want default applied", built.Retry.MaxAttempts)
	}
}
