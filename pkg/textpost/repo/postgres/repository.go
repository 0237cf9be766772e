package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wusb-radio/textpost/pkg/textpost"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements textpost.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

var _ textpost.Repository = (*Repository)(nil)

const postColumns = `id, slug, title, author_id, body, is_published, drafted_at,
	published_at, last_edited_at, edit_count, silent_edit, image_key, version, updated_at`

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			if strings.Contains(pgErr.ConstraintName, "slug") {
				return textpost.ErrSlugTaken
			}
			return fmt.Errorf("duplicate entry in %s: %s", operation, pgErr.ConstraintName)
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "23514": // check_violation
			return fmt.Errorf("constraint %s violated in %s", pgErr.ConstraintName, operation)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return textpost.ErrPostNotFound
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

func scanPost(row pgx.Row) (*textpost.Post, error) {
	var p textpost.Post
	err := row.Scan(
		&p.ID, &p.Slug, &p.Title, &p.AuthorID, &p.Body, &p.IsPublished, &p.DraftedAt,
		&p.PublishedAt, &p.LastEditedAt, &p.EditCount, &p.SilentEdit, &p.ImageKey,
		&p.Version, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) CreatePost(ctx context.Context, post *textpost.Post) error {
	query := `
		INSERT INTO posts (` + postColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.db.Exec(ctx, query,
		post.ID, post.Slug, post.Title, post.AuthorID, post.Body, post.IsPublished, post.DraftedAt,
		post.PublishedAt, post.LastEditedAt, post.EditCount, post.SilentEdit, post.ImageKey,
		post.Version, post.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("create post", err)
	}
	return nil
}

func (r *Repository) GetPost(ctx context.Context, id uuid.UUID) (*textpost.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`

	post, err := scanPost(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, r.handlePostgresError("get post", err)
	}
	return post, nil
}

func (r *Repository) GetPostBySlug(ctx context.Context, slug string) (*textpost.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE slug = $1`

	post, err := scanPost(r.db.QueryRow(ctx, query, slug))
	if err != nil {
		return nil, r.handlePostgresError("get post by slug", err)
	}
	return post, nil
}

// UpdatePost is a compare-and-swap on the version column. The slug, author
// and draft time are never rewritten.
func (r *Repository) UpdatePost(ctx context.Context, post *textpost.Post, expectedVersion int64) error {
	query := `
		UPDATE posts SET
			title = $3, body = $4, is_published = $5, published_at = $6,
			last_edited_at = $7, edit_count = $8, silent_edit = $9,
			image_key = $10, version = version + 1, updated_at = $11
		WHERE id = $1 AND version = $2
		RETURNING version`

	var newVersion int64
	err := r.db.QueryRow(ctx, query,
		post.ID, expectedVersion, post.Title, post.Body, post.IsPublished, post.PublishedAt,
		post.LastEditedAt, post.EditCount, post.SilentEdit, post.ImageKey, post.UpdatedAt,
	).Scan(&newVersion)
	if err == nil {
		post.Version = newVersion
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return r.handlePostgresError("update post", err)
	}

	// No row matched: either the post is gone or another writer moved the version
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM posts WHERE id = $1)`, post.ID).Scan(&exists); err != nil {
		return r.handlePostgresError("check post", err)
	}
	if !exists {
		return textpost.ErrPostNotFound
	}
	return textpost.ErrConflict
}

func (r *Repository) ClearSilentEdit(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `UPDATE posts SET silent_edit = FALSE WHERE id = $1`, id)
	if err != nil {
		return r.handlePostgresError("clear silent edit", err)
	}
	if tag.RowsAffected() == 0 {
		return textpost.ErrPostNotFound
	}
	return nil
}

func (r *Repository) ListPosts(ctx context.Context, filters textpost.PostListFilters) ([]*textpost.Post, error) {
	var conditions []string
	var args []interface{}

	if filters.AuthorID != nil {
		args = append(args, *filters.AuthorID)
		conditions = append(conditions, fmt.Sprintf("author_id = $%d", len(args)))
	}
	if filters.PublishedOnly {
		conditions = append(conditions, "is_published")
	}
	if filters.DraftsOnly {
		conditions = append(conditions, "NOT is_published")
	}

	query := `SELECT ` + postColumns + ` FROM posts`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY published_at DESC NULLS LAST, drafted_at DESC, id"

	return r.queryPosts(ctx, "list posts", query, args...)
}

func (r *Repository) ListPendingSilentEdits(ctx context.Context) ([]*textpost.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE silent_edit ORDER BY updated_at`
	return r.queryPosts(ctx, "list pending silent edits", query)
}

func (r *Repository) queryPosts(ctx context.Context, operation, query string, args ...interface{}) ([]*textpost.Post, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.handlePostgresError(operation, err)
	}
	defer rows.Close()

	var posts []*textpost.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, r.handlePostgresError("scan post", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("iterate post rows", err)
	}
	return posts, nil
}
