package accounts

import (
	"slices"
	"time"
)

// Privileged role names recognized by the authorization guard.
const (
	RoleAdmin = "admin"
	RoleOwner = "owner"
)

// WhitelistEntry is a username permitted to complete authentication.
// Entries are created and deleted by admin actions and never mutated.
type WhitelistEntry struct {
	Username string    `json:"username"`
	AddedAt  time.Time `json:"added_at"`
}

// User is a local account provisioned on first successful login.
// Username is fixed at creation; only the avatar follows the upstream
// profile on later logins. Roles form a set from an open vocabulary.
type User struct {
	ID        string    `json:"id"`
	DiscordID string    `json:"discord_id"`
	Username  string    `json:"username"`
	Avatar    string    `json:"avatar,omitempty"`
	Roles     []string  `json:"roles"`
	JoinedAt  time.Time `json:"joined_at"`
}

// HasRole reports whether the user carries the exact role string.
func (u User) HasRole(role string) bool {
	return slices.Contains(u.Roles, role)
}

// Elevated reports whether the user may pass the admin/owner gate.
func (u User) Elevated() bool {
	return u.HasRole(RoleAdmin) || u.HasRole(RoleOwner)
}
