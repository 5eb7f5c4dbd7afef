package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/sakif/snippets-admin/internal/apperror"
	"github.com/sakif/snippets-admin/internal/model"
	"github.com/sakif/snippets-admin/internal/repository"
)

var _ repository.SnippetRepository = (*DB)(nil)

const snippetColumns = `id, content_type, data, created_at, updated_at`

// Create inserts snippet and fills in its ID and timestamps.
func (db *DB) Create(ctx context.Context, snippet *model.Snippet) error {
	data, err := encodeFields(snippet.Fields)
	if err != nil {
		return err
	}

	now := time.Now()
	snippet.CreatedAt = now
	snippet.UpdatedAt = now

	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO snippets (content_type, data, created_at, updated_at)
		 VALUES (?, ?, ?, ?)`,
		snippet.ContentType,
		data,
		snippet.CreatedAt,
		snippet.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating snippet: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading snippet id: %w", err)
	}
	snippet.ID = id

	return nil
}

// GetByID returns apperror.ErrNotFound when no snippet of contentType has id.
func (db *DB) GetByID(ctx context.Context, contentType string, id int64) (*model.Snippet, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+snippetColumns+`
		 FROM snippets
		 WHERE content_type = ? AND id = ?`,
		contentType, id,
	)

	snippet, err := scanSnippet(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound(contentType, strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqlite: getting snippet %d: %w", id, err)
	}
	return snippet, nil
}

// List returns a page of snippets, newest first.
func (db *DB) List(ctx context.Context, contentType string, opts repository.ListOptions) ([]model.Snippet, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	where, args := searchClause(contentType, opts)
	args = append(args, limit, offset)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+snippetColumns+`
		 FROM snippets
		 WHERE `+where+`
		 ORDER BY id DESC
		 LIMIT ? OFFSET ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing snippets: %w", err)
	}
	defer rows.Close()

	return collect(rows, limit)
}

// Count returns how many snippets List would page through.
func (db *DB) Count(ctx context.Context, contentType string, opts repository.ListOptions) (int, error) {
	where, args := searchClause(contentType, opts)

	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM snippets WHERE `+where,
		args...,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting snippets: %w", err)
	}
	return n, nil
}

// FilterByField returns snippets whose field equals value exactly.
func (db *DB) FilterByField(ctx context.Context, contentType, field, value string) ([]model.Snippet, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+snippetColumns+`
		 FROM snippets
		 WHERE content_type = ? AND json_extract(data, ?) = ?
		 ORDER BY id`,
		contentType, jsonPath(field), value,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: filtering snippets on %s: %w", field, err)
	}
	defer rows.Close()

	return collect(rows, 0)
}

// Update replaces the snippet's field values.
func (db *DB) Update(ctx context.Context, snippet *model.Snippet) error {
	data, err := encodeFields(snippet.Fields)
	if err != nil {
		return err
	}
	snippet.UpdatedAt = time.Now()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE snippets
		 SET data = ?, updated_at = ?
		 WHERE content_type = ? AND id = ?`,
		data,
		snippet.UpdatedAt,
		snippet.ContentType,
		snippet.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating snippet %d: %w", snippet.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound(snippet.ContentType, strconv.FormatInt(snippet.ID, 10))
	}

	return nil
}

// Delete removes one snippet.
func (db *DB) Delete(ctx context.Context, contentType string, id int64) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM snippets WHERE content_type = ? AND id = ?`,
		contentType, id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting snippet %d: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound(contentType, strconv.FormatInt(id, 10))
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnippet(row scanner) (*model.Snippet, error) {
	var (
		s    model.Snippet
		data string
	)
	if err := row.Scan(&s.ID, &s.ContentType, &data, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(data), &s.Fields); err != nil {
		return nil, fmt.Errorf("sqlite: decoding snippet %d fields: %w", s.ID, err)
	}
	if s.Fields == nil {
		s.Fields = map[string]string{}
	}
	return &s, nil
}

func collect(rows *sql.Rows, capacity int) ([]model.Snippet, error) {
	snippets := make([]model.Snippet, 0, capacity)
	for rows.Next() {
		s, err := scanSnippet(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning snippet row: %w", err)
		}
		snippets = append(snippets, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating snippets: %w", err)
	}
	return snippets, nil
}

func encodeFields(fields map[string]string) (string, error) {
	if fields == nil {
		fields = map[string]string{}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("sqlite: encoding snippet fields: %w", err)
	}
	return string(data), nil
}

// jsonPath quotes the key so any field name is a single path step.
func jsonPath(field string) string {
	return `$."` + field + `"`
}

func searchClause(contentType string, opts repository.ListOptions) (string, []any) {
	if opts.SearchField == "" || opts.Search == "" {
		return "content_type = ?", []any{contentType}
	}
	return `content_type = ? AND instr(` + foldFunc + `(json_extract(data, ?)), ?) > 0`,
		[]any{contentType, jsonPath(opts.SearchField), repository.Fold(opts.Search)}
}
