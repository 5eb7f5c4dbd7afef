// Package repository declares the storage interfaces the service layer depends on.
// Implementations live in sub-packages (sqlite for production, memory for tests).
package repository

import (
	"context"
	"strings"

	"github.com/sakif/snippets-admin/internal/model"
)

// ListOptions selects a page of snippets of one content type.
type ListOptions struct {
	Limit  int
	Offset int

	// SearchField/Search filter to rows whose SearchField contains Search
	// after both are passed through Fold. Both empty means no filter.
	SearchField string
	Search      string
}

// Fold is the case folding every store applies to search terms and values.
func Fold(s string) string {
	return strings.ToLower(s)
}

type SnippetRepository interface {
	Create(ctx context.Context, snippet *model.Snippet) error
	GetByID(ctx context.Context, contentType string, id int64) (*model.Snippet, error)
	List(ctx context.Context, contentType string, opts ListOptions) ([]model.Snippet, error)
	Count(ctx context.Context, contentType string, opts ListOptions) (int, error)
	// FilterByField returns every snippet of contentType whose field equals value.
	FilterByField(ctx context.Context, contentType, field, value string) ([]model.Snippet, error)
	Update(ctx context.Context, snippet *model.Snippet) error
	Delete(ctx context.Context, contentType string, id int64) error
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	// UpsertGitHub creates or refreshes the account linked to user.GitHubID.
	UpsertGitHub(ctx context.Context, user *model.User) error
}
