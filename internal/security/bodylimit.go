// Package security holds request hardening middleware.
package security

import (
	"bytes"
	"errors"
	"io"
	"net/http"
)

// BodyLimit caps request payload size. The webhook endpoint reads the whole
// body before verification, so an unbounded payload is a trivial memory DoS.
type BodyLimit struct {
	Max int64
}

// Middleware rejects requests exceeding the configured limit with HTTP 413.
// The body is buffered so downstream handlers can read it in full.
func (b BodyLimit) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.Max <= 0 || r.Body == nil {
			next.ServeHTTP(w, r)
			return
		}
		if r.ContentLength > b.Max {
			http.Error(w, "request entity too large", http.StatusRequestEntityTooLarge)
			return
		}
		buf, err := b.readCapped(r.Body)
		switch {
		case errors.Is(err, errBodyTooLarge):
			http.Error(w, "request entity too large", http.StatusRequestEntityTooLarge)
			return
		case err != nil:
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(buf))
		r.ContentLength = int64(len(buf))
		next.ServeHTTP(w, r)
	})
}

var errBodyTooLarge = errors.New("security: request body exceeds limit")

func (b BodyLimit) readCapped(body io.ReadCloser) ([]byte, error) {
	defer body.Close()
	buf, err := io.ReadAll(io.LimitReader(body, b.Max+1))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if int64(len(buf)) > b.Max {
		return nil, errBodyTooLarge
	}
	return buf, nil
}
