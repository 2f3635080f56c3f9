package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
)

// HeaderAdminToken guards the operator endpoints. Session auth for the
// back-office UI lives in front of this service; the shared token covers
// direct API access.
const HeaderAdminToken = "X-Admin-Token"

// AdminAuth rejects requests whose admin token does not match. An empty
// configured token disables the admin surface entirely rather than
// leaving it open.
func AdminAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := r.Header.Get(HeaderAdminToken)
			if token == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
