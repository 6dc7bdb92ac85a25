package middleware

import (
	"log/slog"
	"net/http"

	"filippo.io/csrf/gorilla"
)

// CSRFConfig configures cross-site request forgery protection for the
// session-backed admin routes. The underlying filippo.io/csrf/gorilla
// library validates Fetch metadata headers rather than cookies, so
// there are no cookie knobs here.
type CSRFConfig struct {
	// AuthKey authenticates tokens and must be 32 bytes. The session
	// secret doubles as this key.
	AuthKey []byte

	// ErrorHandler answers rejected requests. Nil selects the JSON 403
	// handler below.
	ErrorHandler http.Handler

	// TrustedOrigins lists host:port values allowed to send
	// cross-origin requests.
	TrustedOrigins []string
}

// DefaultCSRFConfig returns the CSRF settings for the given mode. In
// development the localhost origins are trusted so browser tooling on
// another port can reach the API.
func DefaultCSRFConfig(authKey []byte, isDev bool) CSRFConfig {
	cfg := CSRFConfig{AuthKey: authKey}
	if isDev {
		// Host-only values; the library rejects full URLs.
		cfg.TrustedOrigins = []string{"localhost:8080", "127.0.0.1:8080"}
	}
	return cfg
}

// CSRF builds the protection middleware from cfg.
func CSRF(cfg CSRFConfig) func(http.Handler) http.Handler {
	onError := cfg.ErrorHandler
	if onError == nil {
		onError = http.HandlerFunc(rejectCSRF)
	}

	opts := []csrf.Option{csrf.ErrorHandler(onError)}
	if len(cfg.TrustedOrigins) > 0 {
		opts = append(opts, csrf.TrustedOrigins(cfg.TrustedOrigins))
	}
	return csrf.Protect(cfg.AuthKey, opts...)
}

// rejectCSRF logs the failure with enough header context to debug a
// misconfigured origin, then answers 403.
func rejectCSRF(w http.ResponseWriter, r *http.Request) {
	reason := "unknown"
	if err := csrf.FailureReason(r); err != nil {
		reason = err.Error()
	}
	slog.Error("CSRF validation failed",
		"reason", reason,
		"method", r.Method,
		"path", r.URL.Path,
		"origin", r.Header.Get("Origin"),
		"sec_fetch_site", r.Header.Get("Sec-Fetch-Site"),
	)
	WriteAPIError(w, http.StatusForbidden, "forbidden", "CSRF validation failed", nil)
}
