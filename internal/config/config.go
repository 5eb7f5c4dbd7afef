// Package config loads the server configuration from the environment.
//
// Values come from process environment variables, optionally seeded from a
// .env file (existing variables win). Every key has a default except
// JWT_SECRET, which must be set.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the complete server configuration.
type Config struct {
	Port      int
	DBPath    string
	StaticDir string

	LogLevel  slog.Level
	LogFormat string // "text" or "json"

	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int

	// Bootstrap account ensured at startup; empty disables it.
	AdminUsername string
	AdminPassword string

	GitHubClientID      string
	GitHubClientSecret  string
	GitHubCallbackURL   string
	GitHubAllowedLogins []string

	// RedisAddr enables token revocation on logout when set.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	LoginRateLimit float64 // attempts per second per client
	LoginBurst     int

	SnippetTypesFile string
	PageSize         int
}

// GitHubEnabled reports whether GitHub OAuth sign-in is configured.
func (c Config) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

// Load reads the configuration. envFile is loaded first if it exists; a
// missing file is not an error.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("config: loading %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", 8080)
	v.SetDefault("DB_PATH", "data/snippets.db")
	v.SetDefault("STATIC_DIR", "web/static")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("TOKEN_TTL", "8h")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("LOGIN_RATE_LIMIT", 0.2)
	v.SetDefault("LOGIN_BURST", 5)
	v.SetDefault("PAGE_SIZE", 20)

	cfg := Config{
		Port:      v.GetInt("PORT"),
		DBPath:    v.GetString("DB_PATH"),
		StaticDir: v.GetString("STATIC_DIR"),

		LogFormat: strings.ToLower(v.GetString("LOG_FORMAT")),

		JWTSecret:  v.GetString("JWT_SECRET"),
		TokenTTL:   v.GetDuration("TOKEN_TTL"),
		BcryptCost: v.GetInt("BCRYPT_COST"),

		AdminUsername: v.GetString("ADMIN_USERNAME"),
		AdminPassword: v.GetString("ADMIN_PASSWORD"),

		GitHubClientID:      v.GetString("GITHUB_CLIENT_ID"),
		GitHubClientSecret:  v.GetString("GITHUB_CLIENT_SECRET"),
		GitHubCallbackURL:   v.GetString("GITHUB_CALLBACK_URL"),
		GitHubAllowedLogins: splitList(v.GetString("GITHUB_ALLOWED_LOGINS")),

		RedisAddr:     v.GetString("REDIS_ADDR"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisDB:       v.GetInt("REDIS_DB"),

		LoginRateLimit: v.GetFloat64("LOGIN_RATE_LIMIT"),
		LoginBurst:     v.GetInt("LOGIN_BURST"),

		SnippetTypesFile: v.GetString("SNIPPET_TYPES_FILE"),
		PageSize:         v.GetInt("PAGE_SIZE"),
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString("LOG_LEVEL"))); err != nil {
		return Config{}, fmt.Errorf("config: LOG_LEVEL: %w", err)
	}
	if cfg.GitHubCallbackURL == "" {
		cfg.GitHubCallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch {
	case len(c.JWTSecret) < 16:
		return errors.New("config: JWT_SECRET must be set to at least 16 characters")
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("config: PORT %d out of range", c.Port)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("config: LOG_FORMAT must be text or json, got %q", c.LogFormat)
	case c.TokenTTL <= 0:
		return errors.New("config: TOKEN_TTL must be positive")
	case c.LoginRateLimit <= 0:
		return errors.New("config: LOGIN_RATE_LIMIT must be positive")
	}
	return nil
}

// splitList parses a comma-separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
