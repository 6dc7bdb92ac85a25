// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/galleria-dev/galleria/internal/cache"
	"github.com/galleria-dev/galleria/internal/middleware"
	"github.com/galleria-dev/galleria/internal/model"
	"github.com/galleria-dev/galleria/internal/service"
	"github.com/galleria-dev/galleria/internal/store"
	"github.com/galleria-dev/galleria/internal/util"
)

// PostsHandler handles admin blog post routes.
type PostsHandler struct {
	queries      *store.Queries
	activity     *service.ActivityService
	cacheManager *cache.Manager
}

// NewPostsHandler creates a new PostsHandler.
func NewPostsHandler(db *sql.DB, activity *service.ActivityService, cm *cache.Manager) *PostsHandler {
	return &PostsHandler{
		queries:      store.New(db),
		activity:     activity,
		cacheManager: cm,
	}
}

// PostResponse represents a blog post in API responses.
type PostResponse struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Excerpt     string     `json:"excerpt,omitempty"`
	Body        string     `json:"body"`
	Status      string     `json:"status"`
	Featured    bool       `json:"featured"`
	AuthorID    *int64     `json:"author_id,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func postToResponse(p model.Post) PostResponse {
	return PostResponse{
		ID:          p.ID,
		Title:       p.Title,
		Slug:        p.Slug,
		Excerpt:     p.Excerpt,
		Body:        p.Body,
		Status:      p.Status,
		Featured:    p.Featured,
		AuthorID:    util.Int64PtrFromNull(p.AuthorID),
		PublishedAt: util.TimePtrFromNull(p.PublishedAt),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// CreatePostRequest is the request body for creating a blog post.
type CreatePostRequest struct {
	Title    string `json:"title"`
	Slug     string `json:"slug,omitempty"`
	Excerpt  string `json:"excerpt,omitempty"`
	Body     string `json:"body,omitempty"`
	Status   string `json:"status,omitempty"`
	Featured bool   `json:"featured"`
}

// UpdatePostRequest is the request body for partial post updates.
type UpdatePostRequest struct {
	Title    *string `json:"title,omitempty"`
	Slug     *string `json:"slug,omitempty"`
	Excerpt  *string `json:"excerpt,omitempty"`
	Body     *string `json:"body,omitempty"`
	Status   *string `json:"status,omitempty"`
	Featured *bool   `json:"featured,omitempty"`
}

// List handles GET /admin/api/v1/posts.
func (h *PostsHandler) List(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && status != model.StatusDraft && status != model.StatusPublished {
		WriteValidationError(w, map[string]string{"status": "Status must be one of: draft, published"})
		return
	}

	page, perPage, offset := Pagination(r)
	params := store.ListPostsParams{
		Status: status,
		Search: r.URL.Query().Get("search"),
		Limit:  int64(perPage),
		Offset: offset,
	}

	posts, total, err := ListAndCount(
		func() ([]model.Post, error) { return h.queries.ListPosts(r.Context(), params) },
		func() (int64, error) { return h.queries.CountPosts(r.Context(), params) },
	)
	if err != nil {
		slog.Error("failed to list posts", "error", err)
		WriteInternalError(w, "Failed to list posts")
		return
	}

	responses := make([]PostResponse, 0, len(posts))
	for _, p := range posts {
		responses = append(responses, postToResponse(p))
	}

	WriteSuccess(w, responses, ListMeta(total, page, perPage))
}

// Get handles GET /admin/api/v1/posts/{id}.
func (h *PostsHandler) Get(w http.ResponseWriter, r *http.Request) {
	post, ok := requireEntityByID(w, r, "post", func(id int64) (model.Post, error) {
		return h.queries.GetPostByID(r.Context(), id)
	})
	if !ok {
		return
	}
	WriteSuccess(w, postToResponse(post), nil)
}

// Create handles POST /admin/api/v1/posts. The signed-in user becomes
// the author.
func (h *PostsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePostRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	fieldErrors := make(map[string]string)
	if req.Title == "" {
		fieldErrors["title"] = "Title is required"
	}
	if req.Status == "" {
		req.Status = model.StatusDraft
	}
	if req.Status != model.StatusDraft && req.Status != model.StatusPublished {
		fieldErrors["status"] = "Status must be one of: draft, published"
	}
	if req.Slug == "" {
		req.Slug = util.Slugify(req.Title)
	}
	if !util.IsValidSlug(req.Slug) {
		fieldErrors["slug"] = "Slug may only contain lowercase letters, numbers and hyphens"
	}
	if len(fieldErrors) > 0 {
		WriteValidationError(w, fieldErrors)
		return
	}

	if !checkSlugUnique(w, h.slugOwner(r), req.Slug, 0) {
		return
	}

	now := time.Now().UTC()
	post, err := h.queries.CreatePost(r.Context(), store.CreatePostParams{
		Title:     req.Title,
		Slug:      req.Slug,
		Excerpt:   req.Excerpt,
		Body:      req.Body,
		Status:    req.Status,
		Featured:  req.Featured,
		AuthorID:  util.NullInt64FromPtr(middleware.GetUserIDPtr(r)),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		slog.Error("failed to create post", "error", err)
		WriteInternalError(w, "Failed to create post")
		return
	}

	// Creating directly as published counts as the first publish.
	if post.Status == model.StatusPublished {
		post, err = h.queries.PublishPost(r.Context(), post.ID, now)
		if err != nil {
			slog.Error("failed to stamp publish time", "error", err, "post_id", post.ID)
			WriteInternalError(w, "Failed to create post")
			return
		}
	}

	h.cacheManager.InvalidateContent(r.Context())
	_ = h.activity.LogContent(r.Context(), model.ActivityLevelInfo, "Post created: "+post.Title,
		middleware.GetUserIDPtr(r), middleware.ClientIP(r), r.UserAgent(),
		map[string]any{"post_id": post.ID, "slug": post.Slug})

	WriteCreated(w, postToResponse(post))
}

// Update handles PUT /admin/api/v1/posts/{id}.
func (h *PostsHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing, ok := requireEntityByID(w, r, "post", func(id int64) (model.Post, error) {
		return h.queries.GetPostByID(r.Context(), id)
	})
	if !ok {
		return
	}

	var req UpdatePostRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	now := time.Now().UTC()
	params := store.UpdatePostParams{
		ID:        existing.ID,
		Title:     existing.Title,
		Slug:      existing.Slug,
		Excerpt:   existing.Excerpt,
		Body:      existing.Body,
		Status:    existing.Status,
		Featured:  existing.Featured,
		UpdatedAt: now,
	}

	fieldErrors := make(map[string]string)
	if req.Title != nil {
		if *req.Title == "" {
			fieldErrors["title"] = "Title is required"
		}
		params.Title = *req.Title
	}
	if req.Slug != nil {
		if !util.IsValidSlug(*req.Slug) {
			fieldErrors["slug"] = "Slug may only contain lowercase letters, numbers and hyphens"
		}
		params.Slug = *req.Slug
	}
	if req.Status != nil {
		if *req.Status != model.StatusDraft && *req.Status != model.StatusPublished {
			fieldErrors["status"] = "Status must be one of: draft, published"
		}
		params.Status = *req.Status
	}
	if req.Excerpt != nil {
		params.Excerpt = *req.Excerpt
	}
	if req.Body != nil {
		params.Body = *req.Body
	}
	if req.Featured != nil {
		params.Featured = *req.Featured
	}
	if len(fieldErrors) > 0 {
		WriteValidationError(w, fieldErrors)
		return
	}

	if params.Slug != existing.Slug {
		if !checkSlugUnique(w, h.slugOwner(r), params.Slug, existing.ID) {
			return
		}
	}

	post, err := h.queries.UpdatePost(r.Context(), params)
	if err != nil {
		slog.Error("failed to update post", "error", err, "post_id", existing.ID)
		WriteInternalError(w, "Failed to update post")
		return
	}

	if post.Status == model.StatusPublished && !post.PublishedAt.Valid {
		post, err = h.queries.PublishPost(r.Context(), post.ID, now)
		if err != nil {
			slog.Error("failed to stamp publish time", "error", err, "post_id", existing.ID)
			WriteInternalError(w, "Failed to update post")
			return
		}
	}

	h.cacheManager.InvalidateContent(r.Context())
	_ = h.activity.LogContent(r.Context(), model.ActivityLevelInfo, "Post updated: "+post.Title,
		middleware.GetUserIDPtr(r), middleware.ClientIP(r), r.UserAgent(),
		map[string]any{"post_id": post.ID, "slug": post.Slug})

	WriteSuccess(w, postToResponse(post), nil)
}

// Publish handles POST /admin/api/v1/posts/{id}/publish.
func (h *PostsHandler) Publish(w http.ResponseWriter, r *http.Request) {
	existing, ok := requireEntityByID(w, r, "post", func(id int64) (model.Post, error) {
		return h.queries.GetPostByID(r.Context(), id)
	})
	if !ok {
		return
	}

	post, err := h.queries.PublishPost(r.Context(), existing.ID, time.Now().UTC())
	if err != nil {
		slog.Error("failed to publish post", "error", err, "post_id", existing.ID)
		WriteInternalError(w, "Failed to publish post")
		return
	}

	h.cacheManager.InvalidateContent(r.Context())
	_ = h.activity.LogContent(r.Context(), model.ActivityLevelInfo, "Post published: "+post.Title,
		middleware.GetUserIDPtr(r), middleware.ClientIP(r), r.UserAgent(),
		map[string]any{"post_id": post.ID, "slug": post.Slug})

	WriteSuccess(w, postToResponse(post), nil)
}

// Delete handles DELETE /admin/api/v1/posts/{id}.
func (h *PostsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	existing, ok := requireEntityByID(w, r, "post", func(id int64) (model.Post, error) {
		return h.queries.GetPostByID(r.Context(), id)
	})
	if !ok {
		return
	}

	if err := h.queries.DeletePost(r.Context(), existing.ID); err != nil {
		slog.Error("failed to delete post", "error", err, "post_id", existing.ID)
		WriteInternalError(w, "Failed to delete post")
		return
	}
	if err := h.queries.DeleteWhatsOnItemByRef(r.Context(), model.WhatsOnTypePost, existing.ID); err != nil {
		slog.Error("failed to remove feed entry for deleted post", "error", err, "post_id", existing.ID)
	}

	h.cacheManager.InvalidateContent(r.Context())
	_ = h.activity.LogContent(r.Context(), model.ActivityLevelInfo, "Post deleted: "+existing.Title,
		middleware.GetUserIDPtr(r), middleware.ClientIP(r), r.UserAgent(),
		map[string]any{"post_id": existing.ID, "slug": existing.Slug})

	WriteNoContent(w)
}

// slugOwner adapts the slug lookup for uniqueness checks.
func (h *PostsHandler) slugOwner(r *http.Request) SlugLookup {
	return func(slug string) (int64, error) {
		post, err := h.queries.GetPostBySlug(r.Context(), slug)
		if err != nil {
			return 0, err
		}
		return post.ID, nil
	}
}
