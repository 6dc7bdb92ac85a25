// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/galleria-dev/galleria/internal/model"
)

const postColumns = `id, title, slug, excerpt, body, status, featured,
	author_id, published_at, created_at, updated_at`

func scanPost(row *sql.Row) (model.Post, error) {
	var p model.Post
	err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.Excerpt, &p.Body, &p.Status,
		&p.Featured, &p.AuthorID, &p.PublishedAt, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func scanPosts(rows *sql.Rows) ([]model.Post, error) {
	defer rows.Close()
	var posts []model.Post
	for rows.Next() {
		var p model.Post
		if err := rows.Scan(&p.ID, &p.Title, &p.Slug, &p.Excerpt, &p.Body, &p.Status,
			&p.Featured, &p.AuthorID, &p.PublishedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// CreatePostParams holds fields for creating a blog post.
type CreatePostParams struct {
	Title     string
	Slug      string
	Excerpt   string
	Body      string
	Status    string
	Featured  bool
	AuthorID  sql.NullInt64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreatePost inserts a new blog post and returns the stored row.
func (q *Queries) CreatePost(ctx context.Context, arg CreatePostParams) (model.Post, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO posts (title, slug, excerpt, body, status, featured,
			author_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+postColumns,
		arg.Title, arg.Slug, arg.Excerpt, arg.Body, arg.Status, arg.Featured,
		arg.AuthorID, arg.CreatedAt, arg.UpdatedAt)
	return scanPost(row)
}

// GetPostByID fetches a single post by primary key.
func (q *Queries) GetPostByID(ctx context.Context, id int64) (model.Post, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ?`, id)
	return scanPost(row)
}

// GetPostBySlug fetches a single post by unique slug.
func (q *Queries) GetPostBySlug(ctx context.Context, slug string) (model.Post, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE slug = ?`, slug)
	return scanPost(row)
}

// ListPostsParams holds filters for the admin post list.
type ListPostsParams struct {
	Status string // empty matches all
	Search string // matches title substring
	Limit  int64
	Offset int64
}

// ListPosts returns posts for the admin list, newest first.
func (q *Queries) ListPosts(ctx context.Context, arg ListPostsParams) ([]model.Post, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+postColumns+` FROM posts
		WHERE (? = '' OR status = ?)
		  AND (? = '' OR title LIKE '%' || ? || '%')
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`,
		arg.Status, arg.Status,
		arg.Search, arg.Search,
		arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return scanPosts(rows)
}

// CountPosts returns the number of posts matching the same filters as
// ListPosts.
func (q *Queries) CountPosts(ctx context.Context, arg ListPostsParams) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM posts
		WHERE (? = '' OR status = ?)
		  AND (? = '' OR title LIKE '%' || ? || '%')`,
		arg.Status, arg.Status,
		arg.Search, arg.Search).Scan(&count)
	return count, err
}

// UpdatePostParams holds fields for updating a blog post.
type UpdatePostParams struct {
	ID        int64
	Title     string
	Slug      string
	Excerpt   string
	Body      string
	Status    string
	Featured  bool
	UpdatedAt time.Time
}

// UpdatePost updates a post. The published_at column is managed only by
// PublishPost and is left untouched here.
func (q *Queries) UpdatePost(ctx context.Context, arg UpdatePostParams) (model.Post, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE posts SET title = ?, slug = ?, excerpt = ?, body = ?, status = ?,
			featured = ?, updated_at = ?
		WHERE id = ?
		RETURNING `+postColumns,
		arg.Title, arg.Slug, arg.Excerpt, arg.Body, arg.Status, arg.Featured,
		arg.UpdatedAt, arg.ID)
	return scanPost(row)
}

// PublishPost marks a post published. The published_at timestamp is set
// only the first time; COALESCE keeps the original on republish.
func (q *Queries) PublishPost(ctx context.Context, id int64, now time.Time) (model.Post, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE posts SET status = ?, published_at = COALESCE(published_at, ?), updated_at = ?
		WHERE id = ?
		RETURNING `+postColumns,
		model.StatusPublished, now, now, id)
	return scanPost(row)
}

// DeletePost removes a post.
func (q *Queries) DeletePost(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	return err
}

// ListPublishedPosts returns published posts newest first, for the blog
// delivery endpoint.
func (q *Queries) ListPublishedPosts(ctx context.Context, limit, offset int64) ([]model.Post, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+postColumns+` FROM posts
		WHERE status = ?
		ORDER BY published_at DESC, id DESC
		LIMIT ? OFFSET ?`, model.StatusPublished, limit, offset)
	if err != nil {
		return nil, err
	}
	return scanPosts(rows)
}

// CountPublishedPosts returns the number of published posts.
func (q *Queries) CountPublishedPosts(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM posts WHERE status = ?`, model.StatusPublished).Scan(&count)
	return count, err
}
