package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/snippets-admin/internal/apperror"
	"github.com/sakif/snippets-admin/internal/forms"
	"github.com/sakif/snippets-admin/internal/model"
	"github.com/sakif/snippets-admin/internal/registry"
	"github.com/sakif/snippets-admin/internal/repository"
	"github.com/sakif/snippets-admin/internal/repository/memory"
)

// =========================================================================
// HELPERS
// =========================================================================

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// placement references an advert through a snippet chooser field.
var placement = registry.Type{
	AppLabel:     "promo",
	ModelName:    "placement",
	DisplayField: "slot",
	Fields: []registry.Field{
		{Name: "slot", Kind: registry.KindText, Required: true},
		{Name: "advert", Kind: registry.KindSnippet, Target: "tests.advert"},
	},
}

func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.Default()
	require.NoError(t, r.Register(placement))
	return r
}

func newTestService(t *testing.T, pageSize int) (*SnippetService, *memory.SnippetStore, *registry.Type) {
	t.Helper()
	store := memory.NewSnippetStore()
	svc := NewSnippetService(store, newTestRegistry(t), pageSize, discardLogger())
	advert, err := svc.Type("tests", "advert")
	require.NoError(t, err)
	return svc, store, advert
}

func advertForm(advert *registry.Type, text, link string) *forms.Form {
	return forms.Bind(advert, url.Values{"text": {text}, "url": {link}})
}

func countAdverts(t *testing.T, store *memory.SnippetStore) int {
	t.Helper()
	n, err := store.Count(context.Background(), "tests.advert", repository.ListOptions{})
	require.NoError(t, err)
	return n
}

// failingRepo fails every call, to exercise the error paths.
type failingRepo struct {
	repository.SnippetRepository
}

var errDBDown = errors.New("database is down")

func (failingRepo) Count(context.Context, string, repository.ListOptions) (int, error) {
	return 0, errDBDown
}

func (failingRepo) Create(context.Context, *model.Snippet) error { return errDBDown }

// =========================================================================
// TYPES
// =========================================================================

func TestType_Unknown(t *testing.T) {
	svc, _, _ := newTestService(t, 0)

	_, err := svc.Type("tests", "foo")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestTypes_ListsRegistered(t *testing.T) {
	svc, _, _ := newTestService(t, 0)

	var labels []string
	for _, typ := range svc.Types() {
		labels = append(labels, typ.Label())
	}
	assert.ElementsMatch(t, []string{"tests.advert", "promo.placement"}, labels)
}

func TestParseID(t *testing.T) {
	_, _, advert := newTestService(t, 0)

	id, err := ParseID(advert, "42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, raw := range []string{"", "abc", "0", "-3", "1.5"} {
		_, err := ParseID(advert, raw)
		assert.True(t, errors.Is(err, apperror.ErrNotFound), "raw %q", raw)
	}
}

// =========================================================================
// CREATE
// =========================================================================

func TestCreate_Success(t *testing.T) {
	svc, store, advert := newTestService(t, 0)

	s, err := svc.Create(context.Background(), advert, advertForm(advert, "test_advert", "http://www.example.com"))
	require.NoError(t, err)

	assert.NotZero(t, s.ID)
	assert.Equal(t, "tests.advert", s.ContentType)
	assert.Equal(t, "test_advert", s.Get("text"))
	assert.Equal(t, 1, countAdverts(t, store))
}

func TestCreate_MissingFieldsPersistNothing(t *testing.T) {
	svc, store, advert := newTestService(t, 0)
	form := advertForm(advert, "", "")

	_, err := svc.Create(context.Background(), advert, form)
	require.Error(t, err)

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.True(t, errors.Is(err, apperror.ErrValidation))
	assert.Equal(t, MsgCreateFailed, appErr.Message)
	assert.Equal(t, []string{forms.MsgRequired}, form.Field("text").Errors)
	assert.Equal(t, 0, countAdverts(t, store))
}

func TestCreate_ReferenceMustExist(t *testing.T) {
	svc, store, advert := newTestService(t, 0)
	ctx := context.Background()
	typ, err := svc.Type("promo", "placement")
	require.NoError(t, err)

	form := forms.Bind(typ, url.Values{"slot": {"sidebar"}, "advert": {"999"}})
	_, err = svc.Create(ctx, typ, form)
	require.Error(t, err)
	assert.Equal(t, []string{forms.MsgInvalidChoice}, form.Field("advert").Errors)

	ad, err := svc.Create(ctx, advert, advertForm(advert, "chosen", "http://example.com"))
	require.NoError(t, err)

	form = forms.Bind(typ, url.Values{"slot": {"sidebar"}, "advert": {fmt.Sprint(ad.ID)}})
	s, err := svc.Create(ctx, typ, form)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprint(ad.ID), s.Get("advert"))

	found, err := store.FilterByField(ctx, "promo.placement", "slot", "sidebar")
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestCreate_OversizedReferenceIsRejected(t *testing.T) {
	svc, store, _ := newTestService(t, 0)
	ctx := context.Background()
	typ, err := svc.Type("promo", "placement")
	require.NoError(t, err)

	form := forms.Bind(typ, url.Values{"slot": {"sidebar"}, "advert": {"99999999999999999999"}})
	_, err = svc.Create(ctx, typ, form)

	assert.True(t, errors.Is(err, apperror.ErrValidation))
	assert.Equal(t, []string{forms.MsgInvalidChoice}, form.Field("advert").Errors)
	n, err := store.Count(ctx, "promo.placement", repository.ListOptions{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCreate_ReferenceOfWrongTypeIsRejected(t *testing.T) {
	svc, _, _ := newTestService(t, 0)
	ctx := context.Background()
	typ, err := svc.Type("promo", "placement")
	require.NoError(t, err)

	// A placement is not an advert even if the id exists.
	other, err := svc.Create(ctx, typ, forms.Bind(typ, url.Values{"slot": {"top"}}))
	require.NoError(t, err)

	form := forms.Bind(typ, url.Values{"slot": {"footer"}, "advert": {fmt.Sprint(other.ID)}})
	_, err = svc.Create(ctx, typ, form)
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}

func TestCreate_RepositoryError(t *testing.T) {
	svc := NewSnippetService(failingRepo{}, newTestRegistry(t), 0, discardLogger())
	advert, err := svc.Type("tests", "advert")
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), advert, advertForm(advert, "x", "http://example.com"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errDBDown))
}

// =========================================================================
// UPDATE / DELETE
// =========================================================================

func TestUpdate_KeepsIdentityAndCount(t *testing.T) {
	svc, store, advert := newTestService(t, 0)
	ctx := context.Background()

	created, err := svc.Create(ctx, advert, advertForm(advert, "test_advert", "http://www.example.com"))
	require.NoError(t, err)

	updated, err := svc.Update(ctx, advert, created.ID, advertForm(advert, "edited_test_advert", "http://www.example.com/edited"))
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, 1, countAdverts(t, store))

	got, err := svc.Get(ctx, advert, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited_test_advert", got.Get("text"))
	assert.Equal(t, "http://www.example.com/edited", got.Get("url"))
}

func TestUpdate_InvalidLeavesRecord(t *testing.T) {
	svc, _, advert := newTestService(t, 0)
	ctx := context.Background()

	created, err := svc.Create(ctx, advert, advertForm(advert, "keep", "http://example.com"))
	require.NoError(t, err)

	_, err = svc.Update(ctx, advert, created.ID, advertForm(advert, "", ""))
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, MsgSaveFailed, appErr.Message)

	got, err := svc.Get(ctx, advert, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "keep", got.Get("text"))
}

func TestUpdate_NotFound(t *testing.T) {
	svc, _, advert := newTestService(t, 0)

	_, err := svc.Update(context.Background(), advert, 99, advertForm(advert, "x", "http://example.com"))
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestDelete(t *testing.T) {
	svc, store, advert := newTestService(t, 0)
	ctx := context.Background()

	created, err := svc.Create(ctx, advert, advertForm(advert, "test_advert", "http://www.example.com"))
	require.NoError(t, err)

	deleted, err := svc.Delete(ctx, advert, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "test_advert", deleted.Get("text"))

	found, err := svc.FilterByField(ctx, advert, "text", "test_advert")
	require.NoError(t, err)
	assert.Empty(t, found)
	assert.Equal(t, 0, countAdverts(t, store))

	_, err = svc.Delete(ctx, advert, created.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestDelete_ReferencedIsRefused(t *testing.T) {
	svc, store, advert := newTestService(t, 0)
	ctx := context.Background()
	typ, err := svc.Type("promo", "placement")
	require.NoError(t, err)

	ad, err := svc.Create(ctx, advert, advertForm(advert, "chosen", "http://example.com"))
	require.NoError(t, err)
	other, err := svc.Create(ctx, advert, advertForm(advert, "spare", "http://example.com"))
	require.NoError(t, err)
	ref, err := svc.Create(ctx, typ, forms.Bind(typ, url.Values{"slot": {"sidebar"}, "advert": {fmt.Sprint(ad.ID)}}))
	require.NoError(t, err)

	refs, err := svc.Referrers(ctx, advert, ad.ID)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, ref.ID, refs[0].Snippet.ID)
	assert.Equal(t, "promo.placement", refs[0].Type.Label())
	assert.Equal(t, "advert", refs[0].Field)

	_, err = svc.Delete(ctx, advert, ad.ID)
	assert.True(t, errors.Is(err, apperror.ErrConflict))
	assert.Equal(t, 2, countAdverts(t, store))

	// Unreferenced adverts still delete.
	_, err = svc.Delete(ctx, advert, other.ID)
	require.NoError(t, err)

	// Once the reference goes, so does the block.
	_, err = svc.Delete(ctx, typ, ref.ID)
	require.NoError(t, err)
	_, err = svc.Delete(ctx, advert, ad.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, countAdverts(t, store))
}

func TestFilterByField_UnknownField(t *testing.T) {
	svc, _, advert := newTestService(t, 0)

	_, err := svc.FilterByField(context.Background(), advert, "nope", "x")
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}

// =========================================================================
// LIST
// =========================================================================

func TestList_PagesAndClamps(t *testing.T) {
	svc, _, advert := newTestService(t, 2)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		_, err := svc.Create(ctx, advert, advertForm(advert, fmt.Sprintf("advert %d", i), "http://example.com"))
		require.NoError(t, err)
	}

	page, err := svc.List(ctx, advert, 1, "")
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 3, page.NumPages)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "advert 5", page.Items[0].Get("text"))
	assert.False(t, page.HasPrevious())
	assert.True(t, page.HasNext())

	last, err := svc.List(ctx, advert, 99, "")
	require.NoError(t, err)
	assert.Equal(t, 3, last.Number)
	require.Len(t, last.Items, 1)
	assert.Equal(t, "advert 1", last.Items[0].Get("text"))

	first, err := svc.List(ctx, advert, -1, "")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Number)
}

func TestList_Empty(t *testing.T) {
	svc, _, advert := newTestService(t, 0)

	page, err := svc.List(context.Background(), advert, 3, "")
	require.NoError(t, err)
	assert.Equal(t, 1, page.Number)
	assert.Equal(t, 1, page.NumPages)
	assert.Empty(t, page.Items)
}

func TestList_SearchesDisplayField(t *testing.T) {
	svc, _, advert := newTestService(t, 0)
	ctx := context.Background()

	for _, text := range []string{"Summer sale", "Winter sale", "Newsletter"} {
		_, err := svc.Create(ctx, advert, advertForm(advert, text, "http://example.com"))
		require.NoError(t, err)
	}

	page, err := svc.List(ctx, advert, 1, "SALE")
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, "SALE", page.Query)
}

func TestList_RepositoryError(t *testing.T) {
	svc := NewSnippetService(failingRepo{}, newTestRegistry(t), 0, discardLogger())
	advert, err := svc.Type("tests", "advert")
	require.NoError(t, err)

	_, err = svc.List(context.Background(), advert, 1, "")
	assert.True(t, errors.Is(err, errDBDown))
}

func TestResolve(t *testing.T) {
	svc, _, advert := newTestService(t, 0)
	ctx := context.Background()
	typ, err := svc.Type("promo", "placement")
	require.NoError(t, err)

	ad, err := svc.Create(ctx, advert, advertForm(advert, "chosen", "http://example.com"))
	require.NoError(t, err)

	chosen := svc.Resolve(ctx, forms.Bind(typ, url.Values{"advert": {fmt.Sprint(ad.ID)}}))
	require.Contains(t, chosen, "advert")
	assert.Equal(t, "chosen", chosen["advert"].Get("text"))

	assert.Empty(t, svc.Resolve(ctx, forms.Bind(typ, url.Values{"advert": {"404"}})))
	assert.Empty(t, svc.Resolve(ctx, forms.New(typ)))
}

func TestNewSnippetService_PageSizeBounds(t *testing.T) {
	r := newTestRegistry(t)
	store := memory.NewSnippetStore()

	assert.Equal(t, DefaultPageSize, NewSnippetService(store, r, 0, discardLogger()).pageSize)
	assert.Equal(t, MaxPageSize, NewSnippetService(store, r, 1000, discardLogger()).pageSize)
}
