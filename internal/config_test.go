package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/orrery/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenMode(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}

	cfg.Token = ""
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestStorageConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     StorageConfig
		wantErr bool
	}{
		{"sqlite", StorageConfig{Driver: DriverSQLite, SQLitePath: "x.db"}, false},
		{"sqlite without path", StorageConfig{Driver: DriverSQLite}, true},
		{"vault", StorageConfig{Driver: DriverVault, VaultPath: "./v"}, false},
		{"vault without path", StorageConfig{Driver: DriverVault, SQLitePath: "x.db"}, true},
		{"memory", StorageConfig{Driver: DriverMemory}, false},
		{"unknown driver", StorageConfig{Driver: "postgres"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFullConfig_SectionErrors(t *testing.T) {
	cases := map[string]func(*Config){
		"auth":   func(c *Config) { c.Auth.Mode = AuthModeToken; c.Auth.Token = "" },
		"notes":  func(c *Config) { c.Notes.SaveDelay = time.Hour },
		"ai":     func(c *Config) { c.AI.Temperature = 3 },
		"layout": func(c *Config) { c.Layout.Width = 0 },
		"http":   func(c *Config) { c.App.HTTP.Port = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	t.Setenv("ORRERY_TEST_KEY", "sk-test")
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
app:
  log_level: debug
  http:
    port: 9090
storage:
  driver: vault
  vault_path: ./notes
notes:
  save_delay: 250ms
ai:
  api_key: ${ORRERY_TEST_KEY}
  model: test-model
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.HTTP.Port != 9090 {
		t.Errorf("port = %d", cfg.App.HTTP.Port)
	}
	if cfg.App.LogLevel.String() != "DEBUG" {
		t.Errorf("log level = %s", cfg.App.LogLevel)
	}
	if cfg.Storage.Driver != DriverVault || cfg.Storage.VaultPath != "./notes" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.Notes.SaveDelay != 250*time.Millisecond {
		t.Errorf("save delay = %s", cfg.Notes.SaveDelay)
	}
	if cfg.AI.APIKey != "sk-test" || cfg.AI.Model != "test-model" {
		t.Errorf("ai = %+v", cfg.AI)
	}
	if cfg.Layout.Width != 1200 {
		t.Errorf("untouched defaults should survive, width = %v", cfg.Layout.Width)
	}
	if got := cfg.AI.Client(); got.APIKey != "sk-test" || got.Retries != 2 {
		t.Errorf("client config = %+v", got)
	}
}
