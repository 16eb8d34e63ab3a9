package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"wordsofdeath.app/internal/accounts"
	"wordsofdeath.app/internal/ids"
)

var _ accounts.Store = (*Store)(nil)

const userColumns = `id, discord_id, username, avatar, roles, joined_at`

func (s *Store) IsWhitelisted(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		select exists(select 1 from whitelist where username = $1)
	`, username).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (s *Store) AddToWhitelist(ctx context.Context, username string) (accounts.WhitelistEntry, error) {
	var entry accounts.WhitelistEntry
	err := s.db.QueryRowContext(ctx, `
		insert into whitelist (username)
		values ($1)
		returning username, added_at
	`, username).Scan(&entry.Username, &entry.AddedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return accounts.WhitelistEntry{}, accounts.ErrConflict
		}
		return accounts.WhitelistEntry{}, err
	}
	return entry, nil
}

func (s *Store) RemoveFromWhitelist(ctx context.Context, username string) error {
	res, err := s.db.ExecContext(ctx, `delete from whitelist where username = $1`, username)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return accounts.ErrNotFound
	}
	return nil
}

func (s *Store) ListWhitelist(ctx context.Context) ([]accounts.WhitelistEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		select username, added_at from whitelist order by added_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []accounts.WhitelistEntry
	for rows.Next() {
		var entry accounts.WhitelistEntry
		if err := rows.Scan(&entry.Username, &entry.AddedAt); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) FindUserByDiscordID(ctx context.Context, discordID string) (accounts.User, error) {
	return s.findUser(ctx, `select `+userColumns+` from users where discord_id = $1`, discordID)
}

func (s *Store) FindUserByID(ctx context.Context, id string) (accounts.User, error) {
	return s.findUser(ctx, `select `+userColumns+` from users where id = $1`, id)
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (accounts.User, error) {
	return s.findUser(ctx, `select `+userColumns+` from users where username = $1`, username)
}

func (s *Store) findUser(ctx context.Context, query string, arg string) (accounts.User, error) {
	row := s.db.QueryRowContext(ctx, query, arg)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return accounts.User{}, accounts.ErrNotFound
	}
	if err != nil {
		return accounts.User{}, err
	}
	return user, nil
}

// UpsertUserFromProfile provisions a user on first login. The insert rides
// on the discord_id unique key, so two racing first logins resolve in the
// database: the loser's insert turns into the avatar update. The username
// keeps its first-seen value.
func (s *Store) UpsertUserFromProfile(ctx context.Context, discordID, username, avatar string) (accounts.User, error) {
	row := s.db.QueryRowContext(ctx, `
		insert into users (id, discord_id, username, avatar, roles)
		values ($1, $2, $3, $4, '[]'::jsonb)
		on conflict (discord_id) do update set avatar = excluded.avatar
		returning `+userColumns+`
	`, ids.New(), discordID, username, nullIfEmpty(avatar))
	user, err := scanUser(row)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			// A different discord account already holds this username.
			return accounts.User{}, accounts.ErrConflict
		}
		return accounts.User{}, err
	}
	return user, nil
}

func (s *Store) AddRole(ctx context.Context, username, role string) (accounts.User, error) {
	row := s.db.QueryRowContext(ctx, `
		update users
		set roles = roles || to_jsonb($2::text)
		where username = $1 and not roles @> to_jsonb($2::text)
		returning `+userColumns+`
	`, username, role)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		// Either the user is unknown or the role was already present.
		return s.FindUserByUsername(ctx, username)
	}
	if err != nil {
		return accounts.User{}, err
	}
	return user, nil
}

func (s *Store) RemoveRole(ctx context.Context, username, role string) (accounts.User, error) {
	row := s.db.QueryRowContext(ctx, `
		update users
		set roles = roles - $2
		where username = $1
		returning `+userColumns+`
	`, username, role)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return accounts.User{}, accounts.ErrNotFound
	}
	if err != nil {
		return accounts.User{}, err
	}
	return user, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (accounts.User, error) {
	var (
		user     accounts.User
		avatar   sql.NullString
		rawRoles []byte
	)
	if err := row.Scan(&user.ID, &user.DiscordID, &user.Username, &avatar, &rawRoles, &user.JoinedAt); err != nil {
		return accounts.User{}, err
	}
	user.Avatar = avatar.String
	user.Roles = []string{}
	if len(rawRoles) > 0 {
		if err := json.Unmarshal(rawRoles, &user.Roles); err != nil {
			return accounts.User{}, fmt.Errorf("decode roles: %w", err)
		}
	}
	return user, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
