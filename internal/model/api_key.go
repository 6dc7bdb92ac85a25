package model

import (
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"slices"
	"time"
)

// APIKeyPrefixLength is the number of leading key characters stored in
// clear for display.
const APIKeyPrefixLength = 8

// DeliveryPermissions returns the module.action permissions an API key
// may carry. Delivery keys are read-only.
func DeliveryPermissions() []string {
	return []string{
		PermissionName(ModuleEvents, ActionRead),
		PermissionName(ModuleTenants, ActionRead),
		PermissionName(ModulePosts, ActionRead),
		PermissionName(ModulePromotions, ActionRead),
		PermissionName(ModuleVIPTiers, ActionRead),
		PermissionName(ModuleWhatsOn, ActionRead),
	}
}

// ValidDeliveryPermission reports whether perm can be granted to a key.
func ValidDeliveryPermission(perm string) bool {
	return slices.Contains(DeliveryPermissions(), perm)
}

// APIKey is a delivery API credential. Only the SHA-256 hash of the key
// is stored; the raw value is shown once at creation.
type APIKey struct {
	ID          int64        `json:"id"`
	UUID        string       `json:"uuid"`
	Name        string       `json:"name"`
	KeyHash     string       `json:"-"`
	KeyPrefix   string       `json:"key_prefix"`
	Permissions string       `json:"-"` // encoded with PermissionsToJSON
	LastUsedAt  sql.NullTime `json:"last_used_at,omitempty"`
	ExpiresAt   sql.NullTime `json:"expires_at,omitempty"`
	IsActive    bool         `json:"is_active"`
	CreatedBy   int64        `json:"created_by"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// GenerateAPIKey returns a fresh random key and its display prefix. The
// raw key is handed to the operator once and never stored.
func GenerateAPIKey() (rawKey, prefix string, err error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", "", err
	}
	rawKey = base64.URLEncoding.EncodeToString(raw)
	return rawKey, rawKey[:APIKeyPrefixLength], nil
}

// HashAPIKey returns the hex SHA-256 digest stored in place of the key.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// GetPermissions decodes the stored JSON permission array. Unparseable
// content reads as no permissions.
func (k *APIKey) GetPermissions() []string {
	var perms []string
	if err := json.Unmarshal([]byte(k.Permissions), &perms); err != nil {
		return nil
	}
	return perms
}

// HasPermission reports whether the key carries perm.
func (k *APIKey) HasPermission(perm string) bool {
	return slices.Contains(k.GetPermissions(), perm)
}

// HasAnyPermission reports whether the key carries at least one of perms.
func (k *APIKey) HasAnyPermission(perms ...string) bool {
	granted := k.GetPermissions()
	return slices.ContainsFunc(perms, func(p string) bool {
		return slices.Contains(granted, p)
	})
}

// IsExpired reports whether the key's optional expiry has passed.
func (k *APIKey) IsExpired() bool {
	return k.ExpiresAt.Valid && time.Now().After(k.ExpiresAt.Time)
}

// IsValid reports whether the key is active and unexpired.
func (k *APIKey) IsValid() bool {
	return k.IsActive && !k.IsExpired()
}

// PermissionsToJSON encodes perms for the permissions column. Empty
// input encodes as "[]" so the column is never NULL.
func PermissionsToJSON(perms []string) string {
	if len(perms) == 0 {
		return "[]"
	}
	data, _ := json.Marshal(perms)
	return string(data)
}
