package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wusb-radio/textpost/pkg/textpost"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Repository implements textpost.Repository on a SQLite database
type Repository struct {
	db *sql.DB
}

// New creates a new SQLite repository
func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

var _ textpost.Repository = (*Repository)(nil)

const postColumns = `id, slug, title, author_id, body, is_published, drafted_at,
	published_at, last_edited_at, edit_count, silent_edit, image_key, version, updated_at`

func (r *Repository) handleSQLiteError(operation string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return textpost.ErrPostNotFound
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		if strings.Contains(sqliteErr.Error(), "posts.slug") {
			return textpost.ErrSlugTaken
		}
		return fmt.Errorf("duplicate entry in %s: %w", operation, err)
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(row scanner) (*textpost.Post, error) {
	var (
		p            textpost.Post
		publishedAt  sql.NullTime
		lastEditedAt sql.NullTime
	)
	err := row.Scan(
		&p.ID, &p.Slug, &p.Title, &p.AuthorID, &p.Body, &p.IsPublished, &p.DraftedAt,
		&publishedAt, &lastEditedAt, &p.EditCount, &p.SilentEdit, &p.ImageKey,
		&p.Version, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	p.DraftedAt = p.DraftedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	p.PublishedAt = nullTime(publishedAt)
	p.LastEditedAt = nullTime(lastEditedAt)
	return &p, nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func timeArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func (r *Repository) CreatePost(ctx context.Context, post *textpost.Post) error {
	query := `INSERT INTO posts (` + postColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		post.ID.String(), post.Slug, post.Title, post.AuthorID.String(), post.Body, post.IsPublished,
		post.DraftedAt.UTC(), timeArg(post.PublishedAt), timeArg(post.LastEditedAt), post.EditCount,
		post.SilentEdit, post.ImageKey, post.Version, post.UpdatedAt.UTC())
	if err != nil {
		return r.handleSQLiteError("create post", err)
	}
	return nil
}

func (r *Repository) GetPost(ctx context.Context, id uuid.UUID) (*textpost.Post, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ?`, id.String())
	post, err := scanPost(row)
	if err != nil {
		return nil, r.handleSQLiteError("get post", err)
	}
	return post, nil
}

func (r *Repository) GetPostBySlug(ctx context.Context, slug string) (*textpost.Post, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE slug = ?`, slug)
	post, err := scanPost(row)
	if err != nil {
		return nil, r.handleSQLiteError("get post by slug", err)
	}
	return post, nil
}

func (r *Repository) UpdatePost(ctx context.Context, post *textpost.Post, expectedVersion int64) error {
	query := `UPDATE posts SET
			title = ?, body = ?, is_published = ?, published_at = ?,
			last_edited_at = ?, edit_count = ?, silent_edit = ?,
			image_key = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`

	res, err := r.db.ExecContext(ctx, query,
		post.Title, post.Body, post.IsPublished, timeArg(post.PublishedAt),
		timeArg(post.LastEditedAt), post.EditCount, post.SilentEdit,
		post.ImageKey, post.UpdatedAt.UTC(), post.ID.String(), expectedVersion)
	if err != nil {
		return r.handleSQLiteError("update post", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return r.handleSQLiteError("update post", err)
	}
	if n == 1 {
		post.Version = expectedVersion + 1
		return nil
	}

	var exists bool
	err = r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM posts WHERE id = ?)`, post.ID.String()).Scan(&exists)
	if err != nil {
		return r.handleSQLiteError("check post", err)
	}
	if !exists {
		return textpost.ErrPostNotFound
	}
	return textpost.ErrConflict
}

func (r *Repository) ClearSilentEdit(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `UPDATE posts SET silent_edit = 0 WHERE id = ?`, id.String())
	if err != nil {
		return r.handleSQLiteError("clear silent edit", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return textpost.ErrPostNotFound
	}
	return nil
}

func (r *Repository) ListPosts(ctx context.Context, filters textpost.PostListFilters) ([]*textpost.Post, error) {
	var conditions []string
	var args []any

	if filters.AuthorID != nil {
		conditions = append(conditions, "author_id = ?")
		args = append(args, filters.AuthorID.String())
	}
	if filters.PublishedOnly {
		conditions = append(conditions, "is_published = 1")
	}
	if filters.DraftsOnly {
		conditions = append(conditions, "is_published = 0")
	}

	query := `SELECT ` + postColumns + ` FROM posts`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	// SQLite sorts NULLs first on DESC
	query += " ORDER BY published_at IS NULL, published_at DESC, drafted_at DESC, id"

	return r.queryPosts(ctx, "list posts", query, args...)
}

func (r *Repository) ListPendingSilentEdits(ctx context.Context) ([]*textpost.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE silent_edit = 1 ORDER BY updated_at`
	return r.queryPosts(ctx, "list pending silent edits", query)
}

func (r *Repository) queryPosts(ctx context.Context, operation, query string, args ...any) ([]*textpost.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.handleSQLiteError(operation, err)
	}
	defer rows.Close()

	var posts []*textpost.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, r.handleSQLiteError("scan post", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handleSQLiteError("iterate post rows", err)
	}
	return posts, nil
}
