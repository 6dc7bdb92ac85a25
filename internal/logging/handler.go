// Package logging provides a custom slog handler that mirrors warnings
// and errors into the database-backed activity log for auditing.
package logging

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/galleria-dev/galleria/internal/model"
	"github.com/galleria-dev/galleria/internal/store"
)

// ActivityLogHandler wraps another slog.Handler and additionally writes
// records at or above its threshold to the activity log.
type ActivityLogHandler struct {
	next    slog.Handler
	queries *store.Queries
	level   slog.Level
}

// NewActivityLogHandler wraps next with the default WARN threshold.
func NewActivityLogHandler(next slog.Handler, db *sql.DB) *ActivityLogHandler {
	return NewActivityLogHandlerWithLevel(next, db, slog.LevelWarn)
}

// NewActivityLogHandlerWithLevel wraps next, mirroring records at or
// above level into the activity log.
func NewActivityLogHandlerWithLevel(next slog.Handler, db *sql.DB, level slog.Level) *ActivityLogHandler {
	return &ActivityLogHandler{next: next, queries: store.New(db), level: level}
}

func (h *ActivityLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *ActivityLogHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.next.Handle(ctx, r); err != nil {
		return err
	}
	if r.Level >= h.level {
		h.record(r)
	}
	return nil
}

func (h *ActivityLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ActivityLogHandler{next: h.next.WithAttrs(attrs), queries: h.queries, level: h.level}
}

func (h *ActivityLogHandler) WithGroup(name string) slog.Handler {
	return &ActivityLogHandler{next: h.next.WithGroup(name), queries: h.queries, level: h.level}
}

// record persists one entry. It uses a background context so audit rows
// survive request cancellation.
func (h *ActivityLogHandler) record(r slog.Record) {
	_, _ = h.queries.CreateActivity(context.Background(), store.CreateActivityParams{
		Level:     activityLevel(r.Level),
		Category:  categoryFor(r),
		Message:   r.Message,
		UserID:    sql.NullInt64{}, // slog carries no user identity
		Metadata:  metadataJSON(r),
		CreatedAt: r.Time,
	})
}

func activityLevel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return model.ActivityLevelError
	case level >= slog.LevelWarn:
		return model.ActivityLevelWarning
	default:
		return model.ActivityLevelInfo
	}
}

// categoryFor prefers an explicit "category" attribute and otherwise
// guesses from the message text.
func categoryFor(r slog.Record) string {
	if c := attrValue(r, "category"); c != "" {
		return c
	}

	msg := strings.ToLower(r.Message)
	switch {
	case strings.Contains(msg, "auth"), strings.Contains(msg, "login"), strings.Contains(msg, "logout"):
		return model.ActivityCategoryAuth
	case strings.Contains(msg, "tenant"), strings.Contains(msg, "storefront"):
		return model.ActivityCategoryTenant
	case strings.Contains(msg, "promotion"):
		return model.ActivityCategoryPromotion
	case strings.Contains(msg, "event"), strings.Contains(msg, "post"), strings.Contains(msg, "feed"):
		return model.ActivityCategoryContent
	case strings.Contains(msg, "user"):
		return model.ActivityCategoryUser
	case strings.Contains(msg, "cache"):
		return model.ActivityCategoryCache
	case strings.Contains(msg, "api key"), strings.Contains(msg, "rate limit"):
		return model.ActivityCategoryAPI
	default:
		return model.ActivityCategorySystem
	}
}

// attrValue returns the value of the first top-level attribute named key.
func attrValue(r slog.Record, key string) string {
	var found string
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == key {
			found = a.Value.String()
			return false
		}
		return true
	})
	return found
}

// metadataJSON flattens the record attributes into a JSON object of
// strings. The category attribute lands in its own column and is
// skipped here.
func metadataJSON(r slog.Record) string {
	fields := make(map[string]string, r.NumAttrs())
	r.Attrs(func(a slog.Attr) bool {
		if a.Key != "category" {
			fields[a.Key] = a.Value.String()
		}
		return true
	})
	if len(fields) == 0 {
		return "{}"
	}

	data, err := json.Marshal(fields)
	if err != nil {
		return "{}"
	}
	return string(data)
}
