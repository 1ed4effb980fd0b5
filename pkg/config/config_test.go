package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const minimalYAML = `
environment: test
server:
  port: 8000
models:
  dir: ./models
  default_tag: dl_rf_w10
audit:
  backend: none
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMinimal(t *testing.T) {
	c, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Environment != "test" || c.Server.Port != 8000 {
		t.Fatalf("unexpected config %+v", c)
	}
	if c.Models.DefaultTag != "dl_rf_w10" {
		t.Fatalf("unexpected default tag %q", c.Models.DefaultTag)
	}
}

func TestLoadDurations(t *testing.T) {
	doc := minimalYAML + `
cache:
  enabled: true
  ttl: 90s
`
	c, err := Load(writeConfig(t, doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Cache.TTL != 90*time.Second {
		t.Fatalf("expected 90s, got %v", c.Cache.TTL)
	}
}

func TestLoadRejectsMissingModelsDir(t *testing.T) {
	doc := `
environment: test
models:
  default_tag: x
`
	if _, err := Load(writeConfig(t, doc)); err == nil {
		t.Fatalf("expected error")
	}
}

func TestLoadRejectsBadAuditBackend(t *testing.T) {
	doc := minimalYAML + `
audit:
  backend: postgres
`
	if _, err := Load(writeConfig(t, doc)); err == nil {
		t.Fatalf("expected error")
	}
}

func TestLoadRejectsKafkaWithoutBrokers(t *testing.T) {
	doc := `
environment: test
models:
  dir: ./models
  default_tag: x
audit:
  backend: kafka
`
	if _, err := Load(writeConfig(t, doc)); err == nil {
		t.Fatalf("expected error")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("MODELS_DIR", "/opt/models")
	t.Setenv("DEFAULT_MODEL_NAME", "dl_lin_w5")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	c, err := LoadWithEnv(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Server.Port != 9999 {
		t.Fatalf("expected port override, got %d", c.Server.Port)
	}
	if c.Models.Dir != "/opt/models" || c.Models.DefaultTag != "dl_lin_w5" {
		t.Fatalf("expected models overrides, got %+v", c.Models)
	}
	if len(c.CORS.Origins) != 2 || c.CORS.Origins[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", c.CORS.Origins)
	}
}
