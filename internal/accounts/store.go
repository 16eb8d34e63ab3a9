package accounts

import "context"

// Store describes persistence operations required by the accounts
// subsystem. Every operation targets exactly one logical entity keyed by a
// unique field; no multi-document transaction is needed.
type Store interface {
	// Whitelist operations. Username matching is case-sensitive and exact.
	IsWhitelisted(ctx context.Context, username string) (bool, error)
	AddToWhitelist(ctx context.Context, username string) (WhitelistEntry, error)
	RemoveFromWhitelist(ctx context.Context, username string) error
	ListWhitelist(ctx context.Context) ([]WhitelistEntry, error)

	// User operations.
	FindUserByDiscordID(ctx context.Context, discordID string) (User, error)
	FindUserByID(ctx context.Context, id string) (User, error)
	FindUserByUsername(ctx context.Context, username string) (User, error)

	// UpsertUserFromProfile creates the account on first login and updates
	// only the avatar afterwards. The insert must be atomic on the unique
	// discord id so concurrent first logins cannot corrupt the record.
	UpsertUserFromProfile(ctx context.Context, discordID, username, avatar string) (User, error)

	// AddRole and RemoveRole are idempotent set mutations.
	AddRole(ctx context.Context, username, role string) (User, error)
	RemoveRole(ctx context.Context, username, role string) (User, error)
}

// UserCache is an advisory read-through cache for user lookups keyed by
// username. A stale hit is acceptable; implementations must never fail a
// request on cache errors.
type UserCache interface {
	Get(ctx context.Context, username string) (User, bool)
	Put(ctx context.Context, user User)
	Invalidate(ctx context.Context, username string)
}
