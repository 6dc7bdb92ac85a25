// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/galleria-dev/galleria/internal/middleware"
	"github.com/galleria-dev/galleria/internal/model"
	"github.com/galleria-dev/galleria/internal/service"
	"github.com/galleria-dev/galleria/internal/store"
	"github.com/galleria-dev/galleria/internal/util"
)

// APIKeysHandler handles admin routes for delivery API keys.
type APIKeysHandler struct {
	queries  *store.Queries
	activity *service.ActivityService
}

// NewAPIKeysHandler builds the API key management handler.
func NewAPIKeysHandler(db *sql.DB, activity *service.ActivityService) *APIKeysHandler {
	return &APIKeysHandler{
		queries:  store.New(db),
		activity: activity,
	}
}

// APIKeyResponse represents a delivery key in API responses. Only the
// prefix is ever shown after creation.
type APIKeyResponse struct {
	ID          int64      `json:"id"`
	UUID        string     `json:"uuid"`
	Name        string     `json:"name"`
	KeyPrefix   string     `json:"key_prefix"`
	Permissions []string   `json:"permissions"`
	IsActive    bool       `json:"is_active"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedBy   int64      `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CreatedAPIKeyResponse carries the plaintext key exactly once, in the
// creation response. It is not recoverable afterwards.
type CreatedAPIKeyResponse struct {
	APIKeyResponse
	Key string `json:"key"`
}

func apiKeyToResponse(k model.APIKey) APIKeyResponse {
	perms := k.GetPermissions()
	if perms == nil {
		perms = []string{}
	}
	return APIKeyResponse{
		ID:          k.ID,
		UUID:        k.UUID,
		Name:        k.Name,
		KeyPrefix:   k.KeyPrefix,
		Permissions: perms,
		IsActive:    k.IsActive,
		LastUsedAt:  util.TimePtrFromNull(k.LastUsedAt),
		ExpiresAt:   util.TimePtrFromNull(k.ExpiresAt),
		CreatedBy:   k.CreatedBy,
		CreatedAt:   k.CreatedAt,
		UpdatedAt:   k.UpdatedAt,
	}
}

// CreateAPIKeyRequest is the request body for minting a delivery key.
// ExpiresAt is optional RFC3339.
type CreateAPIKeyRequest struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
	ExpiresAt   string   `json:"expires_at,omitempty"`
}

// UpdateAPIKeyRequest is the request body for partial key updates. An
// empty expires_at string clears the expiry.
type UpdateAPIKeyRequest struct {
	Name        *string   `json:"name,omitempty"`
	Permissions *[]string `json:"permissions,omitempty"`
	IsActive    *bool     `json:"is_active,omitempty"`
	ExpiresAt   *string   `json:"expires_at,omitempty"`
}

// List handles GET /admin/api/v1/api-keys.
func (h *APIKeysHandler) List(w http.ResponseWriter, r *http.Request) {
	keys, err := h.queries.ListAPIKeys(r.Context())
	if err != nil {
		slog.Error("failed to list api keys", "error", err)
		WriteInternalError(w, "Failed to list API keys")
		return
	}

	responses := make([]APIKeyResponse, 0, len(keys))
	for _, k := range keys {
		responses = append(responses, apiKeyToResponse(k))
	}
	WriteSuccess(w, responses, nil)
}

// Get handles GET /admin/api/v1/api-keys/{id}.
func (h *APIKeysHandler) Get(w http.ResponseWriter, r *http.Request) {
	key, ok := requireEntityByID(w, r, "API key", func(id int64) (model.APIKey, error) {
		return h.queries.GetAPIKeyByID(r.Context(), id)
	})
	if !ok {
		return
	}
	WriteSuccess(w, apiKeyToResponse(key), nil)
}

// Create handles POST /admin/api/v1/api-keys. The response carries the
// plaintext key; only its hash is stored.
func (h *APIKeysHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateAPIKeyRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	fieldErrors := make(map[string]string)
	if req.Name == "" {
		fieldErrors["name"] = "Name is required"
	}
	if len(req.Permissions) == 0 {
		fieldErrors["permissions"] = "At least one permission is required"
	}
	for _, perm := range req.Permissions {
		if !model.ValidDeliveryPermission(perm) {
			fieldErrors["permissions"] = "Unknown delivery permission: " + perm
			break
		}
	}

	var expiresAt sql.NullTime
	if req.ExpiresAt != "" {
		t, ok := parseRFC3339(req.ExpiresAt)
		switch {
		case !ok:
			fieldErrors["expires_at"] = "Expiry must be RFC3339"
		case t.Before(time.Now().UTC()):
			fieldErrors["expires_at"] = "Expiry must be in the future"
		default:
			expiresAt = util.NullTimeFromValue(t)
		}
	}
	if len(fieldErrors) > 0 {
		WriteValidationError(w, fieldErrors)
		return
	}

	rawKey, prefix, err := model.GenerateAPIKey()
	if err != nil {
		slog.Error("failed to generate api key", "error", err)
		WriteInternalError(w, "Failed to create API key")
		return
	}

	now := time.Now().UTC()
	key, err := h.queries.CreateAPIKey(r.Context(), store.CreateAPIKeyParams{
		UUID:        uuid.NewString(),
		Name:        req.Name,
		KeyHash:     model.HashAPIKey(rawKey),
		KeyPrefix:   prefix,
		Permissions: model.PermissionsToJSON(req.Permissions),
		IsActive:    true,
		ExpiresAt:   expiresAt,
		CreatedBy:   middleware.GetUserID(r),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		slog.Error("failed to create api key", "error", err)
		WriteInternalError(w, "Failed to create API key")
		return
	}

	_ = h.activity.LogAPI(r.Context(), model.ActivityLevelInfo, "API key created: "+key.Name,
		middleware.GetUserIDPtr(r), middleware.ClientIP(r), r.UserAgent(),
		map[string]any{"api_key_id": key.ID, "key_prefix": key.KeyPrefix})

	WriteCreated(w, CreatedAPIKeyResponse{
		APIKeyResponse: apiKeyToResponse(key),
		Key:            rawKey,
	})
}

// Update handles PUT /admin/api/v1/api-keys/{id}. The key material is
// immutable; revoke and mint a new key to rotate.
func (h *APIKeysHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing, ok := requireEntityByID(w, r, "API key", func(id int64) (model.APIKey, error) {
		return h.queries.GetAPIKeyByID(r.Context(), id)
	})
	if !ok {
		return
	}

	var req UpdateAPIKeyRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	params := store.UpdateAPIKeyParams{
		ID:          existing.ID,
		Name:        existing.Name,
		Permissions: existing.Permissions,
		IsActive:    existing.IsActive,
		ExpiresAt:   existing.ExpiresAt,
		UpdatedAt:   time.Now().UTC(),
	}

	fieldErrors := make(map[string]string)
	if req.Name != nil {
		if *req.Name == "" {
			fieldErrors["name"] = "Name is required"
		}
		params.Name = *req.Name
	}
	if req.Permissions != nil {
		if len(*req.Permissions) == 0 {
			fieldErrors["permissions"] = "At least one permission is required"
		}
		for _, perm := range *req.Permissions {
			if !model.ValidDeliveryPermission(perm) {
				fieldErrors["permissions"] = "Unknown delivery permission: " + perm
				break
			}
		}
		params.Permissions = model.PermissionsToJSON(*req.Permissions)
	}
	if req.IsActive != nil {
		params.IsActive = *req.IsActive
	}
	if req.ExpiresAt != nil {
		if *req.ExpiresAt == "" {
			params.ExpiresAt = sql.NullTime{}
		} else if t, ok := parseRFC3339(*req.ExpiresAt); !ok {
			fieldErrors["expires_at"] = "Expiry must be RFC3339"
		} else {
			params.ExpiresAt = util.NullTimeFromValue(t)
		}
	}
	if len(fieldErrors) > 0 {
		WriteValidationError(w, fieldErrors)
		return
	}

	key, err := h.queries.UpdateAPIKey(r.Context(), params)
	if err != nil {
		slog.Error("failed to update api key", "error", err, "api_key_id", existing.ID)
		WriteInternalError(w, "Failed to update API key")
		return
	}

	_ = h.activity.LogAPI(r.Context(), model.ActivityLevelInfo, "API key updated: "+key.Name,
		middleware.GetUserIDPtr(r), middleware.ClientIP(r), r.UserAgent(),
		map[string]any{"api_key_id": key.ID, "is_active": key.IsActive})

	WriteSuccess(w, apiKeyToResponse(key), nil)
}

// Delete handles DELETE /admin/api/v1/api-keys/{id}.
func (h *APIKeysHandler) Delete(w http.ResponseWriter, r *http.Request) {
	existing, ok := requireEntityByID(w, r, "API key", func(id int64) (model.APIKey, error) {
		return h.queries.GetAPIKeyByID(r.Context(), id)
	})
	if !ok {
		return
	}

	if err := h.queries.DeleteAPIKey(r.Context(), existing.ID); err != nil {
		slog.Error("failed to delete api key", "error", err, "api_key_id", existing.ID)
		WriteInternalError(w, "Failed to delete API key")
		return
	}

	_ = h.activity.LogAPI(r.Context(), model.ActivityLevelWarning, "API key deleted: "+existing.Name,
		middleware.GetUserIDPtr(r), middleware.ClientIP(r), r.UserAgent(),
		map[string]any{"api_key_id": existing.ID, "key_prefix": existing.KeyPrefix})

	WriteNoContent(w)
}
