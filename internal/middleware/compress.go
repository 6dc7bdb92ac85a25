package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"
)

// Compress gzip-encodes response bodies for clients that advertise
// support in Accept-Encoding. Every response here is JSON, so no
// content-type filtering is needed.
func Compress(level int) func(http.Handler) http.Handler {
	pool := sync.Pool{
		New: func() any {
			gz, err := gzip.NewWriterLevel(io.Discard, level)
			if err != nil {
				gz = gzip.NewWriter(io.Discard)
			}
			return gz
		},
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
				next.ServeHTTP(w, r)
				return
			}

			gz := pool.Get().(*gzip.Writer)
			gz.Reset(w)
			defer func() {
				_ = gz.Close()
				pool.Put(gz)
			}()

			h := w.Header()
			h.Set("Content-Encoding", "gzip")
			h.Set("Vary", "Accept-Encoding")
			// Content-Length no longer matches the encoded body.
			h.Del("Content-Length")

			next.ServeHTTP(&compressedWriter{ResponseWriter: w, gz: gz}, r)
		})
	}
}

// compressedWriter routes body writes through the request's gzip writer.
type compressedWriter struct {
	http.ResponseWriter
	gz *gzip.Writer
}

func (c *compressedWriter) Write(b []byte) (int, error) {
	return c.gz.Write(b)
}
