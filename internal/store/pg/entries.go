package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"wordsofdeath.app/internal/entries"
)

var _ entries.Store = (*Store)(nil)

const entryColumns = `id, entry, type, categories, variation, author, author_id, created_at`

func (s *Store) InsertEntry(ctx context.Context, e entries.Entry) error {
	categories, err := json.Marshal(e.Categories)
	if err != nil {
		return fmt.Errorf("encode categories: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		insert into entries (id, entry, type, categories, variation, author, author_id, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
	`, e.ID, e.Entry, e.Type, categories, e.Variation, e.Author, e.AuthorID, e.CreatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return fmt.Errorf("duplicate entry id %s", e.ID)
		}
		return err
	}
	return nil
}

func (s *Store) FindEntryByID(ctx context.Context, id string) (entries.Entry, error) {
	row := s.db.QueryRowContext(ctx, `select `+entryColumns+` from entries where id = $1`, id)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return entries.Entry{}, entries.ErrNotFound
	}
	if err != nil {
		return entries.Entry{}, err
	}
	return entry, nil
}

func (s *Store) ListEntries(ctx context.Context) ([]entries.Entry, error) {
	// ULIDs sort by creation time, so id desc is newest first.
	return s.listEntries(ctx, `select `+entryColumns+` from entries order by id desc`)
}

func (s *Store) ListEntriesByAuthor(ctx context.Context, author string) ([]entries.Entry, error) {
	return s.listEntries(ctx, `
		select `+entryColumns+` from entries where author = $1 order by created_at desc
	`, author)
}

func (s *Store) ListEntriesByCategory(ctx context.Context, category string) ([]entries.Entry, error) {
	return s.listEntries(ctx, `
		select `+entryColumns+` from entries
		where categories @> to_jsonb($1::text)
		order by id desc
	`, category)
}

func (s *Store) SearchEntries(ctx context.Context, query string, limit int) ([]entries.Entry, error) {
	return s.listEntries(ctx, `
		select `+entryColumns+` from entries
		where entry ilike '%' || $1 || '%'
		order by id desc
		limit $2
	`, query, limit)
}

func (s *Store) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		select distinct jsonb_array_elements_text(categories) as name
		from entries
		order by name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		result = append(result, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) DeleteEntry(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from entries where id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return entries.ErrNotFound
	}
	return nil
}

func (s *Store) listEntries(ctx context.Context, query string, args ...any) ([]entries.Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []entries.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanEntry(row rowScanner) (entries.Entry, error) {
	var (
		entry         entries.Entry
		rawCategories []byte
	)
	if err := row.Scan(&entry.ID, &entry.Entry, &entry.Type, &rawCategories,
		&entry.Variation, &entry.Author, &entry.AuthorID, &entry.CreatedAt); err != nil {
		return entries.Entry{}, err
	}
	entry.Categories = []string{}
	if len(rawCategories) > 0 {
		if err := json.Unmarshal(rawCategories, &entry.Categories); err != nil {
			return entries.Entry{}, fmt.Errorf("decode categories: %w", err)
		}
	}
	return entry, nil
}
