package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port           string   `mapstructure:"API_PORT"`
	Env            string   `mapstructure:"ENV"`
	MongoURI       string   `mapstructure:"MONGO_URI"`
	MongoDatabase  string   `mapstructure:"MONGO_DATABASE"`
	JWTSecret      string   `mapstructure:"JWT_SECRET"`
	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	RedisAddr      string   `mapstructure:"REDIS_ADDR"`
	RedisPassword  string   `mapstructure:"REDIS_PASSWORD"`
	RedisDB        int      `mapstructure:"REDIS_DB"`
	TextbeltAPIKey string   `mapstructure:"TEXTBELT_API_KEY"`
	TextbeltURL    string   `mapstructure:"TEXTBELT_URL"`
	BcryptCost     int      `mapstructure:"BCRYPT_COST"`
	ExposeErrors   bool     `mapstructure:"EXPOSE_ERRORS"`
}

// MinSecretLength is the shortest JWT_SECRET the server accepts.
const MinSecretLength = 16

var keys = []string{
	"API_PORT", "ENV", "MONGO_URI", "MONGO_DATABASE", "JWT_SECRET",
	"CORS_ORIGINS", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
	"TEXTBELT_API_KEY", "TEXTBELT_URL", "BCRYPT_COST", "EXPOSE_ERRORS",
}

// Options tweak which keys Load insists on.
type Options struct {
	// SkipMongo drops the MONGO_URI requirement, for the in-memory store.
	SkipMongo bool
}

// Load reads configuration from the environment and an optional .env file.
// It refuses to return a config without a database URI or signing secret.
func Load(opts Options) (*Config, error) {
	// Populate the process env first so child tooling sees the same values.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("API_PORT", "8080")
	v.SetDefault("ENV", "production")
	v.SetDefault("MONGO_DATABASE", "clinic")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("TEXTBELT_URL", "https://textbelt.com/text")
	v.SetDefault("BCRYPT_COST", 12)

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// A missing .env is fine.
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	origins := v.GetString("CORS_ORIGINS")
	cfg.CORSOrigins = nil
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}

	if !v.IsSet("EXPOSE_ERRORS") {
		cfg.ExposeErrors = cfg.IsDev()
	}

	if err := cfg.Validate(opts); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is safe to run with.
func (c *Config) Validate(opts Options) error {
	if !opts.SkipMongo && c.MongoURI == "" {
		return fmt.Errorf("MONGO_URI is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.JWTSecret) < MinSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters, got %d", MinSecretLength, len(c.JWTSecret))
	}
	return nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// RedisEnabled reports whether token revocation should use Redis.
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}
