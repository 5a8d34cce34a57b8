// Package api serves a subset of the Firefly III REST API backed by the
// emulator store.
package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pigeonworks-llc/firefly-sync/pkg/emulator/store"
	"github.com/pigeonworks-llc/firefly-sync/pkg/firefly"
)

// AuthMiddleware rejects requests without a bearer token known to the store.
func AuthMiddleware(st *store.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				writeJSONError(w, http.StatusUnauthorized, "Unauthenticated.", nil)
				return
			}

			valid, err := st.ValidToken(token)
			switch {
			case err != nil:
				writeJSONError(w, http.StatusInternalServerError, "Failed to validate token.", nil)
			case !valid:
				writeJSONError(w, http.StatusUnauthorized, "Unauthenticated.", nil)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// writeJSONError writes an error in the Firefly III format.
func writeJSONError(w http.ResponseWriter, status int, message string, fields map[string][]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(firefly.ErrorResponse{
		Message: message,
		Errors:  fields,
	})
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/vnd.api+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
