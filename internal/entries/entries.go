// Package entries holds the dictionary content: short user-submitted texts
// tagged with categories.
package entries

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"wordsofdeath.app/internal/ids"
)

var (
	ErrNotFound     = errors.New("entries: not found")
	ErrInvalidInput = errors.New("entries: invalid input")
)

// Entry is one dictionary entry. The id is a ULID, so listing by id
// descending matches creation order.
type Entry struct {
	ID         string    `json:"id"`
	Entry      string    `json:"entry"`
	Type       string    `json:"type"`
	Categories []string  `json:"categories"`
	Variation  string    `json:"variation"`
	Author     string    `json:"author"`
	AuthorID   string    `json:"author_id"`
	CreatedAt  time.Time `json:"timestamp"`
}

// SearchResult pairs matching entries with the full category list, which
// the client uses to offer refinements.
type SearchResult struct {
	Words      []Entry  `json:"words"`
	Categories []string `json:"categories"`
}

// Store describes persistence for entries.
type Store interface {
	InsertEntry(ctx context.Context, e Entry) error
	FindEntryByID(ctx context.Context, id string) (Entry, error)
	ListEntries(ctx context.Context) ([]Entry, error)
	ListEntriesByAuthor(ctx context.Context, author string) ([]Entry, error)
	ListEntriesByCategory(ctx context.Context, category string) ([]Entry, error)
	SearchEntries(ctx context.Context, query string, limit int) ([]Entry, error)
	ListCategories(ctx context.Context) ([]string, error)
	DeleteEntry(ctx context.Context, id string) error
}

// CreateInput is the caller-supplied part of a new entry; author identity
// comes from the verified session claims, never from the request body.
type CreateInput struct {
	Entry      string   `json:"entry"`
	Type       string   `json:"type"`
	Categories []string `json:"categories"`
	Variation  string   `json:"variation"`
}

const searchLimit = 10

// Service validates input and drives the Store.
type Service struct {
	store Store
	now   func() time.Time
	newID func() string
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithIDFunc overrides id generation (useful for tests).
func WithIDFunc(fn func() string) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// NewService constructs a Service.
func NewService(store Store, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("entries store is required")
	}
	s := &Service{
		store: store,
		now:   time.Now,
		newID: ids.New,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Create validates the input and stores a new entry authored by the given
// identity.
func (s *Service) Create(ctx context.Context, author, authorID string, in CreateInput) (Entry, error) {
	in.Entry = strings.TrimSpace(in.Entry)
	in.Type = strings.TrimSpace(in.Type)
	in.Variation = strings.TrimSpace(in.Variation)
	var categories []string
	for _, c := range in.Categories {
		c = strings.TrimSpace(c)
		if c != "" {
			categories = append(categories, c)
		}
	}
	if in.Entry == "" || in.Type == "" || in.Variation == "" || len(categories) == 0 {
		return Entry{}, fmt.Errorf("%w: all fields must be filled", ErrInvalidInput)
	}
	if strings.TrimSpace(author) == "" || strings.TrimSpace(authorID) == "" {
		return Entry{}, fmt.Errorf("%w: author identity is required", ErrInvalidInput)
	}

	e := Entry{
		ID:         s.newID(),
		Entry:      in.Entry,
		Type:       in.Type,
		Categories: categories,
		Variation:  in.Variation,
		Author:     author,
		AuthorID:   authorID,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.store.InsertEntry(ctx, e); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Get returns one entry by id. A string that does not even parse as a
// ULID is rejected without a store round trip.
func (s *Service) Get(ctx context.Context, id string) (Entry, error) {
	id = strings.TrimSpace(id)
	if !ids.IsValid(id) {
		return Entry{}, fmt.Errorf("%w: malformed entry id", ErrInvalidInput)
	}
	return s.store.FindEntryByID(ctx, id)
}

// List returns all entries, newest first.
func (s *Service) List(ctx context.Context) ([]Entry, error) {
	return s.store.ListEntries(ctx)
}

// ByAuthor returns the author's entries, newest first.
func (s *Service) ByAuthor(ctx context.Context, author string) ([]Entry, error) {
	if strings.TrimSpace(author) == "" {
		return nil, fmt.Errorf("%w: author is required", ErrInvalidInput)
	}
	return s.store.ListEntriesByAuthor(ctx, author)
}

// ByCategory returns entries tagged with the category.
func (s *Service) ByCategory(ctx context.Context, category string) ([]Entry, error) {
	if strings.TrimSpace(category) == "" {
		return nil, fmt.Errorf("%w: category is required", ErrInvalidInput)
	}
	return s.store.ListEntriesByCategory(ctx, category)
}

// Search finds entries whose text contains the query, case-insensitively,
// alongside the full category list.
func (s *Service) Search(ctx context.Context, query string) (SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return SearchResult{}, fmt.Errorf("%w: search query is required", ErrInvalidInput)
	}
	words, err := s.store.SearchEntries(ctx, query, searchLimit)
	if err != nil {
		return SearchResult{}, err
	}
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return SearchResult{}, err
	}
	if words == nil {
		words = []Entry{}
	}
	if categories == nil {
		categories = []string{}
	}
	return SearchResult{Words: words, Categories: categories}, nil
}

// Delete removes an entry by id.
func (s *Service) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if !ids.IsValid(id) {
		return fmt.Errorf("%w: malformed entry id", ErrInvalidInput)
	}
	return s.store.DeleteEntry(ctx, id)
}
