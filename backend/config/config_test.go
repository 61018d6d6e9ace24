package config

import (
	"os"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	t.Cleanup(func() { os.Remove(tmpFile.Name()) })

	if _, err := tmpFile.WriteString(content); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	tmpFile.Close()
	return tmpFile.Name()
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  rate_limit: 30
log:
  level: "debug"
  format: "json"
auth:
  jwt_secret: "test-secret"
  token_expire_hours: 48
users:
  - username: "corretor"
    password_hash: "$2a$10$abcdefghijklmnopqrstuv"
    agency: "imob-centro"
store:
  driver: "sqlite"
  dsn: "file:test.db"
  max_contracts: 50
minio:
  endpoint: "localhost:9000"
  access_key: "minioadmin"
  secret_key: "minioadmin"
  bucket: "contratos"
  expire_days: 14
backend:
  api_url: "https://api.imob.test"
  api_token: "backend-token"
webhook:
  seed: "seed-123"
reconcile:
  interval_minutes: 15
  concurrency: 4
redis:
  addr: "localhost:6379"
cors:
  allowed_origins: ["https://painel.imob.test"]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Server.RateLimit != 30 {
		t.Errorf("Expected rate_limit 30, got %d", cfg.Server.RateLimit)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Unexpected log config: %+v", cfg.Log)
	}
	if cfg.Auth.TokenExpireHours != 48 {
		t.Errorf("Expected token_expire_hours 48, got %d", cfg.Auth.TokenExpireHours)
	}
	if cfg.Store.Driver != "sqlite" || cfg.Store.MaxContracts != 50 {
		t.Errorf("Unexpected store config: %+v", cfg.Store)
	}
	if !cfg.Minio.Enabled() || cfg.Minio.ExpireDays != 14 {
		t.Errorf("Unexpected minio config: %+v", cfg.Minio)
	}
	if cfg.Backend.APIURL != "https://api.imob.test" {
		t.Errorf("Expected backend api_url, got %s", cfg.Backend.APIURL)
	}
	if cfg.Webhook.Seed != "seed-123" {
		t.Errorf("Expected webhook seed, got %s", cfg.Webhook.Seed)
	}
	if cfg.Reconcile.IntervalMinutes != 15 || cfg.Reconcile.Concurrency != 4 {
		t.Errorf("Unexpected reconcile config: %+v", cfg.Reconcile)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("Expected redis addr, got %s", cfg.Redis.Addr)
	}
	if len(cfg.CORS.AllowedOrigins) != 1 {
		t.Errorf("Expected 1 allowed origin, got %d", len(cfg.CORS.AllowedOrigins))
	}
	if len(cfg.Users) != 1 || cfg.Users[0].Agency != "imob-centro" {
		t.Errorf("Unexpected users: %+v", cfg.Users)
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
auth:
  jwt_secret: "secret"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.RateLimit != 100 {
		t.Errorf("Expected default rate_limit 100, got %d", cfg.Server.RateLimit)
	}
	if cfg.Auth.TokenExpireHours != 24 {
		t.Errorf("Expected default token_expire_hours 24, got %d", cfg.Auth.TokenExpireHours)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("Unexpected default log config: %+v", cfg.Log)
	}
	if cfg.Store.Driver != "memory" {
		t.Errorf("Expected default store driver memory, got %s", cfg.Store.Driver)
	}
	if cfg.Minio.Enabled() {
		t.Error("Expected minio to be disabled without endpoint")
	}
	if cfg.Minio.ExpireDays != 7 {
		t.Errorf("Expected default expire_days 7, got %d", cfg.Minio.ExpireDays)
	}
	if cfg.Reconcile.IntervalMinutes != 0 {
		t.Errorf("Expected scheduler disabled by default, got %d", cfg.Reconcile.IntervalMinutes)
	}
	if cfg.Reconcile.SyncTimeoutSeconds != 10 || cfg.Reconcile.Concurrency != 8 {
		t.Errorf("Unexpected reconcile defaults: %+v", cfg.Reconcile)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("LOCACOES_JWT_SECRET", "from-env")
	t.Setenv("LOCACOES_BACKEND_TOKEN", "env-token")
	t.Setenv("LOCACOES_PORT", "7070")

	path := writeConfig(t, `
auth:
  jwt_secret: "from-file"
backend:
  api_token: "file-token"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Auth.JWTSecret != "from-env" {
		t.Errorf("Expected jwt secret from env, got %s", cfg.Auth.JWTSecret)
	}
	if cfg.Backend.APIToken != "env-token" {
		t.Errorf("Expected backend token from env, got %s", cfg.Backend.APIToken)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Expected port 7070 from env, got %d", cfg.Server.Port)
	}
}

func TestLoadNonExistent(t *testing.T) {
	_, err := Load("nonexistent.yaml")
	if err == nil {
		t.Error("Expected error for non-existent file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "invalid: yaml: content:")

	_, err := Load(path)
	if err == nil {
		t.Error("Expected error for invalid YAML")
	}
}

func TestFindUser(t *testing.T) {
	cfg := &Config{
		Users: []User{
			{Username: "user1", PasswordHash: "hash1", Agency: "agency1"},
			{Username: "user2", PasswordHash: "hash2", Agency: "agency2"},
		},
	}

	user := cfg.FindUser("user1")
	if user == nil {
		t.Fatal("Expected to find user1")
	}
	if user.Agency != "agency1" {
		t.Errorf("Expected agency agency1, got %s", user.Agency)
	}

	if cfg.FindUser("nonexistent") != nil {
		t.Error("Expected nil for non-existent user")
	}
}
