// Package config loads process configuration from the environment.
// Configuration is read once at startup and treated as immutable for the
// lifetime of the process.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds every runtime setting the service needs.
type Config struct {
	// Addr is the listen address of the HTTP server.
	Addr string

	// PostgresDSN points at the database holding whitelist, users and
	// entries.
	PostgresDSN string

	// RedisAddr enables the advisory user cache when non-empty.
	RedisAddr string

	// SessionSecret signs session tokens. Rotating it invalidates every
	// outstanding credential.
	SessionSecret string

	// SessionTTL bounds session credential lifetime. Zero issues
	// non-expiring credentials.
	SessionTTL time.Duration

	// DiscordClientID and DiscordClientSecret identify the OAuth
	// application at Discord.
	DiscordClientID     string
	DiscordClientSecret string

	// ServerURL is the public base URL of this service; the OAuth
	// redirect URI is derived from it and must match the Discord
	// application settings byte for byte.
	ServerURL string

	// ClientURL is where the browser lands after a successful login.
	ClientURL string

	// AccessDeniedURL is where non-whitelisted users are sent.
	AccessDeniedURL string

	// AllowedOrigins is the CORS allow-list.
	AllowedOrigins []string

	// UpstreamTimeout bounds Discord token and profile calls.
	UpstreamTimeout time.Duration

	// Debug relaxes cookie flags for local development.
	Debug bool
}

const (
	defaultAddr            = ":6969"
	defaultUpstreamTimeout = 10 * time.Second
)

var defaultOrigins = []string{"http://localhost:3000", "http://localhost:3001"}

// LoadFromEnv builds a Config from WOD_* environment variables.
func LoadFromEnv() (Config, error) {
	cfg := Config{
		Addr:                envOr("WOD_ADDR", defaultAddr),
		PostgresDSN:         os.Getenv("WOD_PG_DSN"),
		RedisAddr:           os.Getenv("WOD_REDIS_ADDR"),
		SessionSecret:       os.Getenv("WOD_SESSION_SECRET"),
		DiscordClientID:     os.Getenv("WOD_DISCORD_CLIENT_ID"),
		DiscordClientSecret: os.Getenv("WOD_DISCORD_CLIENT_SECRET"),
		ServerURL:           strings.TrimRight(os.Getenv("WOD_SERVER_URL"), "/"),
		ClientURL:           strings.TrimRight(os.Getenv("WOD_CLIENT_URL"), "/"),
		UpstreamTimeout:     defaultUpstreamTimeout,
		Debug:               os.Getenv("WOD_DEBUG") == "true",
	}

	var missing []string
	for _, req := range []struct {
		name  string
		value string
	}{
		{"WOD_PG_DSN", cfg.PostgresDSN},
		{"WOD_SESSION_SECRET", cfg.SessionSecret},
		{"WOD_DISCORD_CLIENT_ID", cfg.DiscordClientID},
		{"WOD_DISCORD_CLIENT_SECRET", cfg.DiscordClientSecret},
		{"WOD_SERVER_URL", cfg.ServerURL},
		{"WOD_CLIENT_URL", cfg.ClientURL},
	} {
		if strings.TrimSpace(req.value) == "" {
			missing = append(missing, req.name)
		}
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	if raw := os.Getenv("WOD_SESSION_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse WOD_SESSION_TTL: %w", err)
		}
		if ttl < 0 {
			return Config{}, errors.New("WOD_SESSION_TTL must not be negative")
		}
		cfg.SessionTTL = ttl
	}

	if raw := os.Getenv("WOD_UPSTREAM_TIMEOUT"); raw != "" {
		timeout, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse WOD_UPSTREAM_TIMEOUT: %w", err)
		}
		if timeout > 0 {
			cfg.UpstreamTimeout = timeout
		}
	}

	cfg.AccessDeniedURL = envOr("WOD_ACCESS_DENIED_URL", cfg.ClientURL+"/access-denied")

	if raw := os.Getenv("WOD_ALLOWED_ORIGINS"); raw != "" {
		for _, origin := range strings.Split(raw, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
			}
		}
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = append([]string(nil), defaultOrigins...)
	}

	return cfg, nil
}

// RedirectURI returns the OAuth callback URL registered with Discord.
func (c Config) RedirectURI() string {
	return c.ServerURL + "/auth/discord/callback"
}

// SecureCookies reports whether session cookies should carry the Secure
// flag. Debug mode relaxes it for plain-HTTP local development.
func (c Config) SecureCookies() bool {
	return !c.Debug && strings.HasPrefix(c.ServerURL, "https://")
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
