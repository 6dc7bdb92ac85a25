// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/galleria-dev/galleria/internal/handler"
	"github.com/galleria-dev/galleria/internal/model"
	"github.com/galleria-dev/galleria/internal/render"
)

// PostResponse represents a post in delivery payloads.
type PostResponse struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Excerpt     string     `json:"excerpt,omitempty"`
	BodyHTML    string     `json:"body_html,omitempty"`
	Featured    bool       `json:"featured"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func postToResponse(p model.Post) PostResponse {
	resp := PostResponse{
		ID:        p.ID,
		Title:     p.Title,
		Slug:      p.Slug,
		Excerpt:   p.Excerpt,
		BodyHTML:  render.Markdown(p.Body),
		Featured:  p.Featured,
		UpdatedAt: p.UpdatedAt,
	}
	if p.PublishedAt.Valid {
		resp.PublishedAt = &p.PublishedAt.Time
	}
	return resp
}

// ListPosts handles GET /api/v1/posts. Published posts, newest first.
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	page, perPage, offset := handler.Pagination(r)

	posts, total, err := handler.ListAndCount(
		func() ([]model.Post, error) {
			return h.queries.ListPublishedPosts(r.Context(), int64(perPage), offset)
		},
		func() (int64, error) {
			return h.queries.CountPublishedPosts(r.Context())
		},
	)
	if err != nil {
		handler.WriteInternalError(w, "Failed to list posts")
		return
	}

	resp := make([]PostResponse, 0, len(posts))
	for _, p := range posts {
		resp = append(resp, postToResponse(p))
	}

	handler.WriteSuccess(w, resp, handler.ListMeta(total, page, perPage))
}

// GetPost handles GET /api/v1/posts/{id}.
func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	post, ok := requireEntityByID(w, r, "post", func(id int64) (model.Post, error) {
		return h.queries.GetPostByID(r.Context(), id)
	})
	if !ok {
		return
	}
	if post.Status != model.StatusPublished {
		handler.WriteNotFound(w, "Post not found")
		return
	}

	handler.WriteSuccess(w, postToResponse(post), nil)
}

// GetPostBySlug handles GET /api/v1/posts/slug/{slug}.
func (h *Handler) GetPostBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		handler.WriteBadRequest(w, "Slug is required", nil)
		return
	}

	post, err := h.queries.GetPostBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			handler.WriteNotFound(w, "Post not found")
		} else {
			handler.WriteInternalError(w, "Failed to retrieve post")
		}
		return
	}
	if post.Status != model.StatusPublished {
		handler.WriteNotFound(w, "Post not found")
		return
	}

	handler.WriteSuccess(w, postToResponse(post), nil)
}
