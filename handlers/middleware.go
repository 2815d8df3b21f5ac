package handlers

import (
	"log"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// AdminKeyHeader carries the plain admin key on mutating requests.
const AdminKeyHeader = "X-Admin-Key"

// AdminKeyMiddleware guards a route group with a shared key compared against a
// bcrypt hash. An empty hash disables the guard.
func AdminKeyMiddleware(keyHash string) func(http.Handler) http.Handler {
	if keyHash == "" {
		log.Printf("WARNING: ADMIN_KEY_HASH is not set, mutating endpoints are open")
		return func(next http.Handler) http.Handler { return next }
	}
	hash := []byte(keyHash)
	if _, err := bcrypt.Cost(hash); err != nil {
		log.Fatalf("FATAL: ADMIN_KEY_HASH is not a bcrypt hash: %v", err)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(AdminKeyHeader)
			if key == "" {
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", AdminKeyHeader+" header required")
				return
			}
			if err := bcrypt.CompareHashAndPassword(hash, []byte(key)); err != nil {
				WriteAPIError(w, http.StatusForbidden, "forbidden", "Invalid admin key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
