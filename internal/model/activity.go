package model

import (
	"database/sql"
	"time"
)

// Activity levels
const (
	ActivityLevelInfo    = "info"
	ActivityLevelWarning = "warning"
	ActivityLevelError   = "error"
)

// Activity categories
const (
	ActivityCategoryAuth      = "auth"
	ActivityCategoryContent   = "content"
	ActivityCategoryTenant    = "tenant"
	ActivityCategoryPromotion = "promotion"
	ActivityCategoryUser      = "user"
	ActivityCategorySystem    = "system"
	ActivityCategoryCache     = "cache"
	ActivityCategoryAPI       = "api"
)

// Activity represents an audit log entry.
type Activity struct {
	ID        int64
	Level     string
	Category  string
	Message   string
	UserID    sql.NullInt64
	IPAddress string
	Country   sql.NullString
	UserAgent string
	Metadata  string // JSON string
	CreatedAt time.Time
}

// ActivityDaily is an aggregated per-day, per-category activity count
// maintained by the scheduler for dashboard trends.
type ActivityDaily struct {
	Day      string // YYYY-MM-DD
	Category string
	Count    int64
}
