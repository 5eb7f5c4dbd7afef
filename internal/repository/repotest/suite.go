// Package repotest holds a re-usable set of tests that can be executed
// against any repository.SnippetRepository implementation.
package repotest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/snippets-admin/internal/apperror"
	"github.com/sakif/snippets-admin/internal/model"
	"github.com/sakif/snippets-admin/internal/repository"
)

const (
	advert = "tests.advert"
	banner = "promo.banner"
)

// SuiteBase runs snippet repository tests against the configured repo.
type SuiteBase struct {
	repo repository.SnippetRepository
}

// SetRepository configures the suite to run all tests against r.
func (s *SuiteBase) SetRepository(r repository.SnippetRepository) {
	s.repo = r
}

func (s *SuiteBase) create(t *testing.T, contentType, text, url string) *model.Snippet {
	t.Helper()
	snippet := &model.Snippet{
		ContentType: contentType,
		Fields:      map[string]string{"text": text, "url": url},
	}
	require.NoError(t, s.repo.Create(context.Background(), snippet))
	return snippet
}

// TestCreateAssignsIdentity verifies ids are assigned, distinct and increasing.
func (s *SuiteBase) TestCreateAssignsIdentity(t *testing.T) {
	first := s.create(t, advert, "first", "http://example.com/1")
	second := s.create(t, advert, "second", "http://example.com/2")

	assert.NotZero(t, first.ID)
	assert.Greater(t, second.ID, first.ID)
	assert.False(t, first.CreatedAt.IsZero(), "CreatedAt not set")
	assert.False(t, first.UpdatedAt.IsZero(), "UpdatedAt not set")
}

// TestGetByID verifies a round trip and the content-type scoping of ids.
func (s *SuiteBase) TestGetByID(t *testing.T) {
	ctx := context.Background()
	created := s.create(t, advert, "test_advert", "http://www.example.com/")

	found, err := s.repo.GetByID(ctx, advert, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, advert, found.ContentType)
	assert.Equal(t, "test_advert", found.Get("text"))
	assert.Equal(t, "http://www.example.com/", found.Get("url"))

	_, err = s.repo.GetByID(ctx, banner, created.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "id must not resolve under another type")

	_, err = s.repo.GetByID(ctx, advert, 999999)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

// TestListNewestFirstAndPaged verifies ordering, limits and offsets.
func (s *SuiteBase) TestListNewestFirstAndPaged(t *testing.T) {
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		s.create(t, advert, fmt.Sprintf("advert %d", i), "http://example.com/")
	}
	s.create(t, banner, "other type", "http://example.com/")

	all, err := s.repo.List(ctx, advert, repository.ListOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "advert 4", all[0].Get("text"))
	assert.Equal(t, "advert 0", all[4].Get("text"))

	page2, err := s.repo.List(ctx, advert, repository.ListOptions{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, page2, 2)
	assert.Equal(t, "advert 2", page2[0].Get("text"))

	n, err := s.repo.Count(ctx, advert, repository.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

// TestListSearch verifies case-insensitive substring search on one field.
func (s *SuiteBase) TestListSearch(t *testing.T) {
	ctx := context.Background()
	s.create(t, advert, "Summer Sale", "http://example.com/a")
	s.create(t, advert, "winter sale", "http://example.com/b")
	s.create(t, advert, "100% off", "http://example.com/c")

	opts := repository.ListOptions{Limit: 10, SearchField: "text", Search: "SALE"}
	found, err := s.repo.List(ctx, advert, opts)
	require.NoError(t, err)
	assert.Len(t, found, 2)

	n, err := s.repo.Count(ctx, advert, opts)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	percent, err := s.repo.List(ctx, advert, repository.ListOptions{Limit: 10, SearchField: "text", Search: "%"})
	require.NoError(t, err)
	require.Len(t, percent, 1, "search terms are literal")
	assert.Equal(t, "100% off", percent[0].Get("text"))
}

// TestListSearchFoldsUnicode verifies case folding beyond ASCII.
func (s *SuiteBase) TestListSearchFoldsUnicode(t *testing.T) {
	ctx := context.Background()
	s.create(t, advert, "École d'été", "http://example.com/fr")
	s.create(t, advert, "ÜBER DEAL", "http://example.com/de")
	s.create(t, advert, "plain", "http://example.com/en")

	for search, want := range map[string]string{
		"école": "École d'été",
		"ÉTÉ":   "École d'été",
		"über":  "ÜBER DEAL",
	} {
		opts := repository.ListOptions{Limit: 10, SearchField: "text", Search: search}
		found, err := s.repo.List(ctx, advert, opts)
		require.NoError(t, err)
		require.Len(t, found, 1, "search %q", search)
		assert.Equal(t, want, found[0].Get("text"))

		n, err := s.repo.Count(ctx, advert, opts)
		require.NoError(t, err)
		assert.Equal(t, 1, n, "search %q", search)
	}
}

// TestFilterByField verifies exact-match filtering.
func (s *SuiteBase) TestFilterByField(t *testing.T) {
	ctx := context.Background()
	s.create(t, advert, "test_advert", "http://www.example.com/")
	s.create(t, advert, "test_advert_2", "http://www.example.com/")
	s.create(t, banner, "test_advert", "http://www.example.com/")

	found, err := s.repo.FilterByField(ctx, advert, "text", "test_advert")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "http://www.example.com/", found[0].Get("url"))

	none, err := s.repo.FilterByField(ctx, advert, "text", "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

// TestUpdate verifies values change in place and the row count stays put.
func (s *SuiteBase) TestUpdate(t *testing.T) {
	ctx := context.Background()
	created := s.create(t, advert, "test_advert", "http://www.example.com/")

	created.Fields = map[string]string{"text": "edited_test_advert", "url": "http://www.example.com/edited"}
	require.NoError(t, s.repo.Update(ctx, created))

	found, err := s.repo.GetByID(ctx, advert, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited_test_advert", found.Get("text"))
	assert.Equal(t, "http://www.example.com/edited", found.Get("url"))

	n, err := s.repo.Count(ctx, advert, repository.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	missing := &model.Snippet{ID: 999999, ContentType: advert, Fields: map[string]string{}}
	assert.True(t, errors.Is(s.repo.Update(ctx, missing), apperror.ErrNotFound))
}

// TestDelete verifies removal and NotFound on a second attempt.
func (s *SuiteBase) TestDelete(t *testing.T) {
	ctx := context.Background()
	created := s.create(t, advert, "test_advert", "http://www.example.com/")

	require.NoError(t, s.repo.Delete(ctx, advert, created.ID))

	found, err := s.repo.FilterByField(ctx, advert, "text", "test_advert")
	require.NoError(t, err)
	assert.Empty(t, found)

	assert.True(t, errors.Is(s.repo.Delete(ctx, advert, created.ID), apperror.ErrNotFound))
}

// TestReturnedValuesAreCopies verifies callers can't reach stored state.
func (s *SuiteBase) TestReturnedValuesAreCopies(t *testing.T) {
	ctx := context.Background()
	created := s.create(t, advert, "test_advert", "http://www.example.com/")

	found, err := s.repo.GetByID(ctx, advert, created.ID)
	require.NoError(t, err)
	found.Fields["text"] = "mutated"
	created.Fields["text"] = "mutated too"

	again, err := s.repo.GetByID(ctx, advert, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "test_advert", again.Get("text"))
}
