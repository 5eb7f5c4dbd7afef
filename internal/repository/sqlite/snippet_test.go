package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/sakif/snippets-admin/internal/model"
	"github.com/sakif/snippets-admin/internal/repository"
	"github.com/sakif/snippets-admin/internal/repository/repotest"
)

// newTestDB returns a fresh in-memory database closed at test end.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSnippetRepository(t *testing.T) {
	suite.Run(t, new(SQLiteSnippetTestSuite))
}

type SQLiteSnippetTestSuite struct {
	suite.Suite
	base repotest.SuiteBase
}

func (s *SQLiteSnippetTestSuite) SetupTest() {
	s.base.SetRepository(newTestDB(s.T()))
}

func (s *SQLiteSnippetTestSuite) TestCreateAssignsIdentity() { s.base.TestCreateAssignsIdentity(s.T()) }
func (s *SQLiteSnippetTestSuite) TestGetByID() { s.base.TestGetByID(s.T()) }
func (s *SQLiteSnippetTestSuite) TestListNewestFirstAndPaged() { s.base.TestListNewestFirstAndPaged(s.T()) }
func (s *SQLiteSnippetTestSuite) TestListSearch() { s.base.TestListSearch(s.T()) }
func (s *SQLiteSnippetTestSuite) TestListSearchFoldsUnicode() { s.base.TestListSearchFoldsUnicode(s.T()) }
func (s *SQLiteSnippetTestSuite) TestFilterByField() { s.base.TestFilterByField(s.T()) }
func (s *SQLiteSnippetTestSuite) TestUpdate() { s.base.TestUpdate(s.T()) }
func (s *SQLiteSnippetTestSuite) TestDelete() { s.base.TestDelete(s.T()) }
func (s *SQLiteSnippetTestSuite) TestReturnedValuesAreCopies() { s.base.TestReturnedValuesAreCopies(s.T()) }

func TestList_DefaultLimit(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		require.NoError(t, db.Create(ctx, &model.Snippet{
			ContentType: "tests.advert",
			Fields:      map[string]string{"text": "advert"},
		}))
	}

	snippets, err := db.List(ctx, "tests.advert", repository.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, snippets, 20)
}

func TestCreate_NilFieldsStoredAsEmptyObject(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	s := &model.Snippet{ContentType: "tests.advert"}
	require.NoError(t, db.Create(ctx, s))

	found, err := db.GetByID(ctx, "tests.advert", s.ID)
	require.NoError(t, err)
	assert.NotNil(t, found.Fields)
	assert.Empty(t, found.Fields)
}

func TestFilterByField_OddFieldNames(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Create(ctx, &model.Snippet{
		ContentType: "tests.advert",
		Fields:      map[string]string{"alt_text": "hello"},
	}))

	found, err := db.FilterByField(ctx, "tests.advert", "alt_text", "hello")
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestNew_FileDatabaseReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snippets.db")
	ctx := context.Background()

	db, err := New(path)
	require.NoError(t, err)
	s := &model.Snippet{ContentType: "tests.advert", Fields: map[string]string{"text": "persisted"}}
	require.NoError(t, db.Create(ctx, s))
	require.NoError(t, db.Close())

	// Migrations must be safe to run against an existing schema.
	reopened, err := New(path)
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Close() })

	found, err := reopened.GetByID(ctx, "tests.advert", s.ID)
	require.NoError(t, err)
	assert.Equal(t, "persisted", found.Get("text"))
}

func TestPing(t *testing.T) {
	db := newTestDB(t)
	assert.NoError(t, db.Ping(context.Background()))
}
