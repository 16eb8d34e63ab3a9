package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Service wraps a Store with input validation, whitelist-gated account
// provisioning and the optional advisory user cache.
type Service struct {
	store Store
	cache UserCache
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithUserCache enables the advisory read-through cache for user lookups.
func WithUserCache(cache UserCache) ServiceOption {
	return func(s *Service) {
		s.cache = cache
	}
}

// NewService constructs a Service.
func NewService(store Store, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("accounts store is required")
	}
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// IsWhitelisted reports whether username may complete authentication.
func (s *Service) IsWhitelisted(ctx context.Context, username string) (bool, error) {
	if strings.TrimSpace(username) == "" {
		return false, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	return s.store.IsWhitelisted(ctx, username)
}

// AddToWhitelist inserts a username, failing with ErrConflict when it is
// already present.
func (s *Service) AddToWhitelist(ctx context.Context, username string) (WhitelistEntry, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return WhitelistEntry{}, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	return s.store.AddToWhitelist(ctx, username)
}

// RemoveFromWhitelist deletes a username, failing with ErrNotFound when it
// is absent.
func (s *Service) RemoveFromWhitelist(ctx context.Context, username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	return s.store.RemoveFromWhitelist(ctx, username)
}

// ListWhitelist returns every whitelist entry.
func (s *Service) ListWhitelist(ctx context.Context) ([]WhitelistEntry, error) {
	return s.store.ListWhitelist(ctx)
}

// Provision turns a verified upstream profile into a local account. The
// whitelist is consulted first; non-whitelisted identities never reach the
// user collection. The upsert never rewrites the username of an existing
// account.
func (s *Service) Provision(ctx context.Context, discordID, username, avatar string) (User, error) {
	discordID = strings.TrimSpace(discordID)
	username = strings.TrimSpace(username)
	if discordID == "" || username == "" {
		return User{}, fmt.Errorf("%w: discord id and username are required", ErrInvalidInput)
	}

	whitelisted, err := s.store.IsWhitelisted(ctx, username)
	if err != nil {
		return User{}, err
	}
	if !whitelisted {
		return User{}, ErrNotWhitelisted
	}

	user, err := s.store.UpsertUserFromProfile(ctx, discordID, username, avatar)
	if err != nil {
		return User{}, err
	}
	s.invalidate(ctx, user.Username)
	return user, nil
}

// UserByID looks a user up by its local identifier.
func (s *Service) UserByID(ctx context.Context, id string) (User, error) {
	if strings.TrimSpace(id) == "" {
		return User{}, fmt.Errorf("%w: id is required", ErrInvalidInput)
	}
	return s.store.FindUserByID(ctx, id)
}

// UserByUsername looks a user up by username, consulting the advisory
// cache first. A stale hit is acceptable; roles change rarely and the
// credential signature was already verified by the caller.
func (s *Service) UserByUsername(ctx context.Context, username string) (User, error) {
	if strings.TrimSpace(username) == "" {
		return User{}, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if s.cache != nil {
		if user, ok := s.cache.Get(ctx, username); ok {
			return user, nil
		}
	}
	user, err := s.store.FindUserByUsername(ctx, username)
	if err != nil {
		return User{}, err
	}
	if s.cache != nil {
		s.cache.Put(ctx, user)
	}
	return user, nil
}

// AddRole appends a role to the user's role set. Adding a role the user
// already has is a no-op, not an error.
func (s *Service) AddRole(ctx context.Context, username, role string) (User, error) {
	username, role, err := validateRoleArgs(username, role)
	if err != nil {
		return User{}, err
	}
	user, err := s.store.AddRole(ctx, username, role)
	if err != nil {
		return User{}, err
	}
	s.invalidate(ctx, username)
	return user, nil
}

// RemoveRole removes a role from the user's role set. Removing an absent
// role is a no-op, not an error.
func (s *Service) RemoveRole(ctx context.Context, username, role string) (User, error) {
	username, role, err := validateRoleArgs(username, role)
	if err != nil {
		return User{}, err
	}
	user, err := s.store.RemoveRole(ctx, username, role)
	if err != nil {
		return User{}, err
	}
	s.invalidate(ctx, username)
	return user, nil
}

// ListRoles returns the user's role set.
func (s *Service) ListRoles(ctx context.Context, username string) ([]string, error) {
	user, err := s.UserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user.Roles == nil {
		return []string{}, nil
	}
	return user.Roles, nil
}

func (s *Service) invalidate(ctx context.Context, username string) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, username)
	}
}

func validateRoleArgs(username, role string) (string, string, error) {
	username = strings.TrimSpace(username)
	role = strings.TrimSpace(role)
	if username == "" {
		return "", "", fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if role == "" {
		return "", "", fmt.Errorf("%w: role is required", ErrInvalidInput)
	}
	return username, role, nil
}
