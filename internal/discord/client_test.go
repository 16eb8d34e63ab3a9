package discord

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func newFakeDiscord(t *testing.T, profileStatus int, profileBody string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse token form: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != "authorization_code" {
			t.Fatalf("unexpected grant_type: %s", got)
		}
		if got := r.PostForm.Get("code"); got != "good-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-123","token_type":"Bearer"}`))
	})
	mux.HandleFunc("/users/@me", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer at-123" {
			t.Fatalf("unexpected authorization header: %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(profileStatus)
		_, _ = w.Write([]byte(profileBody))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(srv *httptest.Server) *Client {
	return NewClient("client-id", "client-secret", "https://api.example.com/auth/discord/callback",
		5*time.Second, WithBaseURL(srv.URL))
}

func TestExchangeCodeSuccess(t *testing.T) {
	srv := newFakeDiscord(t, http.StatusOK, `{"id":"1","username":"alice","avatar":"a1"}`)
	client := newTestClient(srv)

	profile, err := client.ExchangeCode(context.Background(), "good-code")
	if err != nil {
		t.Fatalf("ExchangeCode: %v", err)
	}
	if profile.ID != "1" || profile.Username != "alice" || profile.Avatar != "a1" {
		t.Fatalf("unexpected profile: %+v", profile)
	}
}

func TestExchangeCodeNullAvatar(t *testing.T) {
	srv := newFakeDiscord(t, http.StatusOK, `{"id":"1","username":"alice","avatar":null}`)
	client := newTestClient(srv)

	profile, err := client.ExchangeCode(context.Background(), "good-code")
	if err != nil {
		t.Fatalf("ExchangeCode: %v", err)
	}
	if profile.Avatar != "" {
		t.Fatalf("expected empty avatar, got %q", profile.Avatar)
	}
}

func TestExchangeCodeBadCode(t *testing.T) {
	srv := newFakeDiscord(t, http.StatusOK, `{}`)
	client := newTestClient(srv)

	_, err := client.ExchangeCode(context.Background(), "bad-code")
	var exchangeErr *ExchangeError
	if !errors.As(err, &exchangeErr) {
		t.Fatalf("expected *ExchangeError, got %v", err)
	}
	if exchangeErr.Stage != "token" {
		t.Fatalf("unexpected stage: %s", exchangeErr.Stage)
	}
	if exchangeErr.Status != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", exchangeErr.Status)
	}
	if !strings.Contains(exchangeErr.Body, "invalid_grant") {
		t.Fatalf("expected upstream body, got %q", exchangeErr.Body)
	}
}

func TestExchangeCodeEmptyCode(t *testing.T) {
	srv := newFakeDiscord(t, http.StatusOK, `{}`)
	client := newTestClient(srv)

	if _, err := client.ExchangeCode(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty code")
	}
}

func TestExchangeCodeProfileFailure(t *testing.T) {
	srv := newFakeDiscord(t, http.StatusUnauthorized, `{"message":"401: Unauthorized"}`)
	client := newTestClient(srv)

	_, err := client.ExchangeCode(context.Background(), "good-code")
	var exchangeErr *ExchangeError
	if !errors.As(err, &exchangeErr) {
		t.Fatalf("expected *ExchangeError, got %v", err)
	}
	if exchangeErr.Stage != "profile" || exchangeErr.Status != http.StatusUnauthorized {
		t.Fatalf("unexpected error: %+v", exchangeErr)
	}
}

func TestExchangeCodeMalformedProfile(t *testing.T) {
	srv := newFakeDiscord(t, http.StatusOK, `{"username":"alice"}`)
	client := newTestClient(srv)

	_, err := client.ExchangeCode(context.Background(), "good-code")
	var exchangeErr *ExchangeError
	if !errors.As(err, &exchangeErr) {
		t.Fatalf("expected *ExchangeError, got %v", err)
	}
	if exchangeErr.Stage != "profile" {
		t.Fatalf("unexpected stage: %s", exchangeErr.Stage)
	}
}

func TestAuthURL(t *testing.T) {
	client := NewClient("client-id", "client-secret", "https://api.example.com/auth/discord/callback", 0)

	raw := client.AuthURL("")
	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse auth url: %v", err)
	}
	q := parsed.Query()
	if q.Get("client_id") != "client-id" {
		t.Fatalf("unexpected client_id: %s", q.Get("client_id"))
	}
	if q.Get("response_type") != "code" {
		t.Fatalf("unexpected response_type: %s", q.Get("response_type"))
	}
	if q.Get("scope") != "identify" {
		t.Fatalf("unexpected scope: %s", q.Get("scope"))
	}
	if q.Get("redirect_uri") != "https://api.example.com/auth/discord/callback" {
		t.Fatalf("unexpected redirect_uri: %s", q.Get("redirect_uri"))
	}
}
