package httpapi

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"wordsofdeath.app/internal/accounts"
	"wordsofdeath.app/internal/auth"
	"wordsofdeath.app/internal/discord"
	"wordsofdeath.app/internal/entries"
	"wordsofdeath.app/internal/ids"
)

// --- in-memory stores ---

type memAccounts struct {
	mu        sync.Mutex
	whitelist map[string]time.Time
	users     map[string]accounts.User // keyed by discord id
}

func newMemAccounts() *memAccounts {
	return &memAccounts{
		whitelist: make(map[string]time.Time),
		users:     make(map[string]accounts.User),
	}
}

func (m *memAccounts) IsWhitelisted(_ context.Context, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.whitelist[username]
	return ok, nil
}

func (m *memAccounts) AddToWhitelist(_ context.Context, username string) (accounts.WhitelistEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.whitelist[username]; ok {
		return accounts.WhitelistEntry{}, accounts.ErrConflict
	}
	now := time.Now().UTC()
	m.whitelist[username] = now
	return accounts.WhitelistEntry{Username: username, AddedAt: now}, nil
}

func (m *memAccounts) RemoveFromWhitelist(_ context.Context, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.whitelist[username]; !ok {
		return accounts.ErrNotFound
	}
	delete(m.whitelist, username)
	return nil
}

func (m *memAccounts) ListWhitelist(_ context.Context) ([]accounts.WhitelistEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []accounts.WhitelistEntry
	for username, addedAt := range m.whitelist {
		out = append(out, accounts.WhitelistEntry{Username: username, AddedAt: addedAt})
	}
	return out, nil
}

func (m *memAccounts) FindUserByDiscordID(_ context.Context, discordID string) (accounts.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[discordID]
	if !ok {
		return accounts.User{}, accounts.ErrNotFound
	}
	return user, nil
}

func (m *memAccounts) FindUserByID(_ context.Context, id string) (accounts.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return accounts.User{}, accounts.ErrNotFound
}

func (m *memAccounts) FindUserByUsername(_ context.Context, username string) (accounts.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Username == username {
			return user, nil
		}
	}
	return accounts.User{}, accounts.ErrNotFound
}

func (m *memAccounts) UpsertUserFromProfile(_ context.Context, discordID, username, avatar string) (accounts.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.users[discordID]; ok {
		existing.Avatar = avatar
		m.users[discordID] = existing
		return existing, nil
	}
	for _, user := range m.users {
		if user.Username == username {
			return accounts.User{}, accounts.ErrConflict
		}
	}
	user := accounts.User{
		ID:        ids.New(),
		DiscordID: discordID,
		Username:  username,
		Avatar:    avatar,
		Roles:     []string{},
		JoinedAt:  time.Now().UTC(),
	}
	m.users[discordID] = user
	return user, nil
}

func (m *memAccounts) AddRole(_ context.Context, username, role string) (accounts.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for discordID, user := range m.users {
		if user.Username == username {
			if !slices.Contains(user.Roles, role) {
				user.Roles = append(slices.Clone(user.Roles), role)
				m.users[discordID] = user
			}
			return user, nil
		}
	}
	return accounts.User{}, accounts.ErrNotFound
}

func (m *memAccounts) RemoveRole(_ context.Context, username, role string) (accounts.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for discordID, user := range m.users {
		if user.Username == username {
			user.Roles = slices.DeleteFunc(slices.Clone(user.Roles), func(r string) bool { return r == role })
			m.users[discordID] = user
			return user, nil
		}
	}
	return accounts.User{}, accounts.ErrNotFound
}

type memEntries struct {
	mu   sync.Mutex
	list []entries.Entry
}

func (m *memEntries) InsertEntry(_ context.Context, e entries.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.list = append(m.list, e)
	return nil
}

func (m *memEntries) FindEntryByID(_ context.Context, id string) (entries.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.list {
		if e.ID == id {
			return e, nil
		}
	}
	return entries.Entry{}, entries.ErrNotFound
}

func (m *memEntries) ListEntries(_ context.Context) ([]entries.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := slices.Clone(m.list)
	slices.Reverse(out)
	return out, nil
}

func (m *memEntries) ListEntriesByAuthor(_ context.Context, author string) ([]entries.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entries.Entry
	for _, e := range m.list {
		if e.Author == author {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memEntries) ListEntriesByCategory(_ context.Context, category string) ([]entries.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entries.Entry
	for _, e := range m.list {
		if slices.Contains(e.Categories, category) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memEntries) SearchEntries(_ context.Context, query string, limit int) ([]entries.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entries.Entry
	for _, e := range m.list {
		if strings.Contains(strings.ToLower(e.Entry), strings.ToLower(query)) {
			out = append(out, e)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *memEntries) ListCategories(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]struct{}{}
	var out []string
	for _, e := range m.list {
		for _, c := range e.Categories {
			if _, ok := seen[c]; !ok {
				seen[c] = struct{}{}
				out = append(out, c)
			}
		}
	}
	return out, nil
}

func (m *memEntries) DeleteEntry(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.list {
		if e.ID == id {
			m.list = slices.Delete(m.list, i, i+1)
			return nil
		}
	}
	return entries.ErrNotFound
}

// --- identity stub ---

type stubIdentity struct {
	profile discord.Profile
	err     error
}

func (s *stubIdentity) AuthURL(state string) string {
	return "https://discord.test/authorize?state=" + state
}

func (s *stubIdentity) ExchangeCode(_ context.Context, code string) (discord.Profile, error) {
	if s.err != nil {
		return discord.Profile{}, s.err
	}
	return s.profile, nil
}

// --- harness ---

type testEnv struct {
	api      *API
	handler  http.Handler
	store    *memAccounts
	entries  *memEntries
	sessions *auth.Sessions
	identity *stubIdentity
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := newMemAccounts()
	entryStore := &memEntries{}

	accountsSvc, err := accounts.NewService(store)
	if err != nil {
		t.Fatalf("accounts.NewService: %v", err)
	}
	entriesSvc, err := entries.NewService(entryStore)
	if err != nil {
		t.Fatalf("entries.NewService: %v", err)
	}
	sessions, err := auth.NewSessions("test-secret-test-secret-test-1234", time.Hour)
	if err != nil {
		t.Fatalf("auth.NewSessions: %v", err)
	}
	identity := &stubIdentity{}

	api, err := New(Options{
		Accounts:        accountsSvc,
		Entries:         entriesSvc,
		Sessions:        sessions,
		Identity:        identity,
		ClientURL:       "http://localhost:3000",
		AccessDeniedURL: "http://localhost:3000/access-denied",
		AllowedOrigins:  []string{"http://localhost:3000"},
		Version:         "test",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &testEnv{
		api:      api,
		handler:  api.Handler(),
		store:    store,
		entries:  entryStore,
		sessions: sessions,
		identity: identity,
	}
}

// provision whitelists the username, creates the account and returns a
// valid session token.
func (e *testEnv) provision(t *testing.T, discordID, username string, roles ...string) string {
	t.Helper()
	ctx := context.Background()
	if _, err := e.store.AddToWhitelist(ctx, username); err != nil {
		t.Fatalf("AddToWhitelist: %v", err)
	}
	if _, err := e.store.UpsertUserFromProfile(ctx, discordID, username, ""); err != nil {
		t.Fatalf("UpsertUserFromProfile: %v", err)
	}
	for _, role := range roles {
		if _, err := e.store.AddRole(ctx, username, role); err != nil {
			t.Fatalf("AddRole: %v", err)
		}
	}
	token, _, err := e.sessions.Issue(discordID, username, "")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return token
}
