package config

import (
	"strings"
	"testing"
)

const testSecret = "0123456789abcdef0123"

// clearEnv blanks every key Load reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoad_RequiresMongoURI(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", testSecret)

	_, err := Load(Options{})
	if err == nil || !strings.Contains(err.Error(), "MONGO_URI") {
		t.Fatalf("expected MONGO_URI error, got %v", err)
	}
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")

	_, err := Load(Options{})
	if err == nil || !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Fatalf("expected JWT_SECRET error, got %v", err)
	}
}

func TestLoad_RejectsShortSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", "secret")

	_, err := Load(Options{})
	if err == nil || !strings.Contains(err.Error(), "at least 16") {
		t.Fatalf("expected minimum length error, got %v", err)
	}
}

func TestLoad_SkipMongo(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", testSecret)

	if _, err := Load(Options{SkipMongo: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := Load(Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.MongoDatabase != "clinic" {
		t.Errorf("expected default database clinic, got %s", cfg.MongoDatabase)
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("expected default bcrypt cost 12, got %d", cfg.BcryptCost)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "http://localhost:3000" {
		t.Errorf("unexpected default CORS origins %v", cfg.CORSOrigins)
	}
	if cfg.ExposeErrors {
		t.Error("expected internal errors hidden outside development")
	}
	if cfg.RedisEnabled() {
		t.Error("expected redis disabled without REDIS_ADDR")
	}
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("MONGO_URI", "mongodb://db:27017")
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("ENV", "development")
	t.Setenv("API_PORT", "5000")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "2")

	cfg, err := Load(Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "5000" {
		t.Errorf("expected port 5000, got %s", cfg.Port)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "http://b.test" {
		t.Errorf("unexpected CORS origins %v", cfg.CORSOrigins)
	}
	if !cfg.ExposeErrors {
		t.Error("expected internal errors exposed in development")
	}
	if !cfg.RedisEnabled() || cfg.RedisDB != 2 {
		t.Errorf("unexpected redis settings %q db=%d", cfg.RedisAddr, cfg.RedisDB)
	}
}

func TestConfig_IsDev(t *testing.T) {
	c := &Config{Env: "development"}
	if !c.IsDev() {
		t.Error("expected IsDev() to return true for development")
	}

	c.Env = "production"
	if c.IsDev() {
		t.Error("expected IsDev() to return false for production")
	}
}
