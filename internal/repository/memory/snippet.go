// Package memory is an in-process SnippetRepository, used as a test double
// for the service and handler layers.
package memory

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sakif/snippets-admin/internal/apperror"
	"github.com/sakif/snippets-admin/internal/model"
	"github.com/sakif/snippets-admin/internal/repository"
)

var _ repository.SnippetRepository = (*SnippetStore)(nil)

// SnippetStore keeps snippets in a map guarded by a RWMutex.
type SnippetStore struct {
	mu       sync.RWMutex
	snippets map[int64]*model.Snippet
	nextID   int64
}

// NewSnippetStore returns an empty store.
func NewSnippetStore() *SnippetStore {
	return &SnippetStore{snippets: make(map[int64]*model.Snippet)}
}

func (m *SnippetStore) Create(_ context.Context, snippet *model.Snippet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	now := time.Now()
	snippet.ID = m.nextID
	snippet.CreatedAt = now
	snippet.UpdatedAt = now
	m.snippets[snippet.ID] = snippet.Clone()
	return nil
}

func (m *SnippetStore) GetByID(_ context.Context, contentType string, id int64) (*model.Snippet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.snippets[id]
	if !ok || s.ContentType != contentType {
		return nil, apperror.NotFound(contentType, strconv.FormatInt(id, 10))
	}
	return s.Clone(), nil
}

func (m *SnippetStore) List(_ context.Context, contentType string, opts repository.ListOptions) ([]model.Snippet, error) {
	matched := m.matching(contentType, opts)

	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		return []model.Snippet{}, nil
	}
	matched = matched[offset:]
	if limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (m *SnippetStore) Count(_ context.Context, contentType string, opts repository.ListOptions) (int, error) {
	return len(m.matching(contentType, opts)), nil
}

func (m *SnippetStore) FilterByField(_ context.Context, contentType, field, value string) ([]model.Snippet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []model.Snippet{}
	for _, s := range m.snippets {
		if s.ContentType == contentType && s.Get(field) == value {
			out = append(out, *s.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *SnippetStore) Update(_ context.Context, snippet *model.Snippet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.snippets[snippet.ID]
	if !ok || existing.ContentType != snippet.ContentType {
		return apperror.NotFound(snippet.ContentType, strconv.FormatInt(snippet.ID, 10))
	}
	snippet.CreatedAt = existing.CreatedAt
	snippet.UpdatedAt = time.Now()
	m.snippets[snippet.ID] = snippet.Clone()
	return nil
}

func (m *SnippetStore) Delete(_ context.Context, contentType string, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.snippets[id]
	if !ok || s.ContentType != contentType {
		return apperror.NotFound(contentType, strconv.FormatInt(id, 10))
	}
	delete(m.snippets, id)
	return nil
}

// matching returns copies of the snippets selected by opts, newest first.
func (m *SnippetStore) matching(contentType string, opts repository.ListOptions) []model.Snippet {
	m.mu.RLock()
	defer m.mu.RUnlock()

	needle := repository.Fold(opts.Search)
	out := make([]model.Snippet, 0, len(m.snippets))
	for _, s := range m.snippets {
		if s.ContentType != contentType {
			continue
		}
		if opts.SearchField != "" && needle != "" &&
			!strings.Contains(repository.Fold(s.Get(opts.SearchField)), needle) {
			continue
		}
		out = append(out, *s.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}
