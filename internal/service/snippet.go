// Package service contains the business logic layer of the application.
//
// Handlers call services; services enforce the rules and call repositories.
// Services know nothing about HTTP: they take plain values and return domain
// errors from package apperror, which the handler layer maps to statuses.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/sakif/snippets-admin/internal/apperror"
	"github.com/sakif/snippets-admin/internal/forms"
	"github.com/sakif/snippets-admin/internal/metrics"
	"github.com/sakif/snippets-admin/internal/model"
	"github.com/sakif/snippets-admin/internal/registry"
	"github.com/sakif/snippets-admin/internal/repository"
)

// Page-level messages shown above an invalid form.
const (
	MsgCreateFailed = "The snippet could not be created due to errors."
	MsgSaveFailed   = "The snippet could not be saved due to errors."
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page is one page of a snippet listing.
type Page struct {
	Items    []model.Snippet
	Number   int // 1-based
	NumPages int
	Total    int
	Query    string
}

// HasPrevious reports whether a page precedes this one.
func (p *Page) HasPrevious() bool { return p.Number > 1 }

// HasNext reports whether a page follows this one.
func (p *Page) HasNext() bool { return p.Number < p.NumPages }

// SnippetService handles the CRUD rules for every registered snippet type.
type SnippetService struct {
	repo     repository.SnippetRepository
	types    *registry.Registry
	pageSize int
	logger   *slog.Logger
}

// NewSnippetService creates a SnippetService. pageSize <= 0 selects the default.
func NewSnippetService(repo repository.SnippetRepository, types *registry.Registry, pageSize int, logger *slog.Logger) *SnippetService {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return &SnippetService{
		repo:     repo,
		types:    types,
		pageSize: pageSize,
		logger:   logger,
	}
}

// Types returns every registered snippet type.
func (s *SnippetService) Types() []*registry.Type {
	return s.types.All()
}

// Type resolves a URL (app_label, model_name) pair. Unknown pairs are ErrNotFound.
func (s *SnippetService) Type(appLabel, modelName string) (*registry.Type, error) {
	return s.types.Lookup(appLabel, modelName)
}

// ParseID parses a URL id segment. Anything that isn't a positive integer
// can't name a snippet, so it is ErrNotFound rather than a validation error.
func ParseID(t *registry.Type, raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.NotFound(t.VerboseName, raw)
	}
	return id, nil
}

// Get returns one snippet of type t.
func (s *SnippetService) Get(ctx context.Context, t *registry.Type, id int64) (*model.Snippet, error) {
	return s.repo.GetByID(ctx, t.Label(), id)
}

// List returns the requested page of t's snippets, optionally filtered by a
// search on the display field. Out-of-range pages clamp to the nearest page.
func (s *SnippetService) List(ctx context.Context, t *registry.Type, page int, query string) (*Page, error) {
	opts := repository.ListOptions{Limit: s.pageSize}
	if query != "" {
		opts.SearchField = t.DisplayField
		opts.Search = query
	}

	total, err := s.repo.Count(ctx, t.Label(), opts)
	if err != nil {
		s.logger.Error("failed to count snippets",
			slog.String("contentType", t.Label()),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("counting %s: %w", t.VerboseNamePlural, err)
	}

	numPages := (total + s.pageSize - 1) / s.pageSize
	if numPages < 1 {
		numPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > numPages {
		page = numPages
	}
	opts.Offset = (page - 1) * s.pageSize

	items, err := s.repo.List(ctx, t.Label(), opts)
	if err != nil {
		s.logger.Error("failed to list snippets",
			slog.String("contentType", t.Label()),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing %s: %w", t.VerboseNamePlural, err)
	}

	return &Page{
		Items:    items,
		Number:   page,
		NumPages: numPages,
		Total:    total,
		Query:    query,
	}, nil
}

// Create validates form and stores a new snippet of type t. An invalid form
// returns ErrValidation; the field messages are left on form.
func (s *SnippetService) Create(ctx context.Context, t *registry.Type, form *forms.Form) (*model.Snippet, error) {
	if !s.validate(ctx, form) {
		metrics.FormRejections.WithLabelValues(t.Label(), "create").Inc()
		return nil, apperror.FormInvalid(MsgCreateFailed)
	}

	snippet := &model.Snippet{
		ContentType: t.Label(),
		Fields:      form.Cleaned(),
	}
	if err := s.repo.Create(ctx, snippet); err != nil {
		s.logger.Error("failed to create snippet",
			slog.String("contentType", t.Label()),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating %s: %w", t.VerboseName, err)
	}

	metrics.SnippetMutations.WithLabelValues(t.Label(), "create").Inc()
	s.logger.Info("snippet created",
		slog.String("contentType", t.Label()),
		slog.Int64("id", snippet.ID),
	)
	return snippet, nil
}

// Update validates form and replaces the fields of snippet id. The record
// keeps its identity; the count of t's snippets is unchanged.
func (s *SnippetService) Update(ctx context.Context, t *registry.Type, id int64, form *forms.Form) (*model.Snippet, error) {
	snippet, err := s.repo.GetByID(ctx, t.Label(), id)
	if err != nil {
		return nil, err
	}

	if !s.validate(ctx, form) {
		metrics.FormRejections.WithLabelValues(t.Label(), "edit").Inc()
		return nil, apperror.FormInvalid(MsgSaveFailed)
	}

	snippet.Fields = form.Cleaned()
	if err := s.repo.Update(ctx, snippet); err != nil {
		s.logger.Error("failed to update snippet",
			slog.String("contentType", t.Label()),
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating %s: %w", t.VerboseName, err)
	}

	metrics.SnippetMutations.WithLabelValues(t.Label(), "edit").Inc()
	s.logger.Info("snippet updated",
		slog.String("contentType", t.Label()),
		slog.Int64("id", id),
	)
	return snippet, nil
}

// Delete removes snippet id and returns what was removed. A snippet that
// other snippets still reference is not deleted; the error is ErrConflict.
func (s *SnippetService) Delete(ctx context.Context, t *registry.Type, id int64) (*model.Snippet, error) {
	snippet, err := s.repo.GetByID(ctx, t.Label(), id)
	if err != nil {
		return nil, err
	}
	refs, err := s.Referrers(ctx, t, id)
	if err != nil {
		return nil, err
	}
	if len(refs) > 0 {
		s.logger.Info("snippet delete refused",
			slog.String("contentType", t.Label()),
			slog.Int64("id", id),
			slog.Int("referrers", len(refs)),
		)
		return nil, apperror.InUse(t.VerboseName, strconv.FormatInt(id, 10), len(refs))
	}
	if err := s.repo.Delete(ctx, t.Label(), id); err != nil {
		return nil, err
	}

	metrics.SnippetMutations.WithLabelValues(t.Label(), "delete").Inc()
	s.logger.Info("snippet deleted",
		slog.String("contentType", t.Label()),
		slog.Int64("id", id),
	)
	return snippet, nil
}

// Reference is a snippet that points at another through one of its fields.
type Reference struct {
	Type    *registry.Type
	Snippet model.Snippet
	Field   string
}

// Referrers returns the snippets, of any type, whose snippet fields hold
// (t, id).
func (s *SnippetService) Referrers(ctx context.Context, t *registry.Type, id int64) ([]Reference, error) {
	value := strconv.FormatInt(id, 10)
	var refs []Reference
	for _, other := range s.types.All() {
		for _, f := range other.Fields {
			if f.Kind != registry.KindSnippet || f.Target != t.Label() {
				continue
			}
			found, err := s.repo.FilterByField(ctx, other.Label(), f.Name, value)
			if err != nil {
				return nil, fmt.Errorf("finding references to %s %d: %w", t.VerboseName, id, err)
			}
			for _, snippet := range found {
				refs = append(refs, Reference{Type: other, Snippet: snippet, Field: f.Name})
			}
		}
	}
	return refs, nil
}

// FilterByField returns t's snippets whose field equals value.
func (s *SnippetService) FilterByField(ctx context.Context, t *registry.Type, field, value string) ([]model.Snippet, error) {
	if _, ok := t.Field(field); !ok {
		return nil, apperror.ValidationFailed(field, fmt.Sprintf("%s has no field %q", t.VerboseName, field))
	}
	return s.repo.FilterByField(ctx, t.Label(), field, value)
}

// Resolve loads the snippets referenced by form's snippet fields, keyed by
// field name. Missing or unparsable references are skipped.
func (s *SnippetService) Resolve(ctx context.Context, form *forms.Form) map[string]*model.Snippet {
	chosen := make(map[string]*model.Snippet)
	for _, fld := range form.Fields {
		id, ok, err := fld.ReferenceID()
		if err != nil || !ok {
			continue
		}
		if snippet, err := s.repo.GetByID(ctx, fld.Target, id); err == nil {
			chosen[fld.Name] = snippet
		}
	}
	return chosen
}

// validate runs field rules, then checks that snippet references exist.
func (s *SnippetService) validate(ctx context.Context, form *forms.Form) bool {
	if !form.Validate() {
		return false
	}
	for _, fld := range form.Fields {
		id, ok, err := fld.ReferenceID()
		if err != nil {
			form.AddError(fld.Name, forms.MsgInvalidChoice)
			continue
		}
		if !ok {
			continue
		}
		if _, err := s.repo.GetByID(ctx, fld.Target, id); err != nil {
			if !errors.Is(err, apperror.ErrNotFound) {
				s.logger.Warn("checking snippet reference failed",
					slog.String("field", fld.Name),
					slog.String("error", err.Error()),
				)
			}
			form.AddError(fld.Name, forms.MsgInvalidChoice)
		}
	}
	return form.Valid()
}
