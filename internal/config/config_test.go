package config

import (
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("WOD_PG_DSN", "postgres://localhost/wod")
	t.Setenv("WOD_SESSION_SECRET", "secret")
	t.Setenv("WOD_DISCORD_CLIENT_ID", "client-id")
	t.Setenv("WOD_DISCORD_CLIENT_SECRET", "client-secret")
	t.Setenv("WOD_SERVER_URL", "https://api.example.com")
	t.Setenv("WOD_CLIENT_URL", "https://app.example.com")
}

func TestLoadFromEnvDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.Addr != ":6969" {
		t.Fatalf("unexpected addr: %s", cfg.Addr)
	}
	if cfg.SessionTTL != 0 {
		t.Fatalf("expected no default session expiry, got %v", cfg.SessionTTL)
	}
	if cfg.UpstreamTimeout != 10*time.Second {
		t.Fatalf("unexpected upstream timeout: %v", cfg.UpstreamTimeout)
	}
	if cfg.AccessDeniedURL != "https://app.example.com/access-denied" {
		t.Fatalf("unexpected access denied url: %s", cfg.AccessDeniedURL)
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Fatalf("expected default origins, got %v", cfg.AllowedOrigins)
	}
}

func TestLoadFromEnvMissingRequired(t *testing.T) {
	setRequired(t)
	t.Setenv("WOD_SESSION_SECRET", "")

	_, err := LoadFromEnv()
	if err == nil {
		t.Fatal("expected error for missing secret")
	}
	if !strings.Contains(err.Error(), "WOD_SESSION_SECRET") {
		t.Fatalf("error does not name the missing variable: %v", err)
	}
}

func TestLoadFromEnvSessionTTL(t *testing.T) {
	setRequired(t)
	t.Setenv("WOD_SESSION_TTL", "24h")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Fatalf("unexpected ttl: %v", cfg.SessionTTL)
	}
}

func TestLoadFromEnvBadTTL(t *testing.T) {
	setRequired(t)
	t.Setenv("WOD_SESSION_TTL", "yesterday")

	if _, err := LoadFromEnv(); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadFromEnvOrigins(t *testing.T) {
	setRequired(t)
	t.Setenv("WOD_ALLOWED_ORIGINS", "https://app.example.com, https://staging.example.com,")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	want := []string{"https://app.example.com", "https://staging.example.com"}
	if len(cfg.AllowedOrigins) != len(want) {
		t.Fatalf("unexpected origins: %v", cfg.AllowedOrigins)
	}
	for i := range want {
		if cfg.AllowedOrigins[i] != want[i] {
			t.Fatalf("origin %d = %s, want %s", i, cfg.AllowedOrigins[i], want[i])
		}
	}
}

func TestSecureCookies(t *testing.T) {
	cases := []struct {
		serverURL string
		debug     bool
		want      bool
	}{
		{"https://api.example.com", false, true},
		{"https://api.example.com", true, false},
		{"http://localhost:6969", false, false},
	}
	for _, tc := range cases {
		cfg := Config{ServerURL: tc.serverURL, Debug: tc.debug}
		if got := cfg.SecureCookies(); got != tc.want {
			t.Fatalf("SecureCookies(%s, debug=%v) = %v, want %v", tc.serverURL, tc.debug, got, tc.want)
		}
	}
}

func TestRedirectURI(t *testing.T) {
	setRequired(t)
	t.Setenv("WOD_SERVER_URL", "https://api.example.com/")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if got := cfg.RedirectURI(); got != "https://api.example.com/auth/discord/callback" {
		t.Fatalf("unexpected redirect uri: %s", got)
	}
}
