package handler

import (
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/invoicesolv/silverback-shop-connect-sub000/internal/domain/auth"
)

// Security authenticates requests via HMAC-SHA256 hashed API keys and
// authorizes them by scope. Access control hangs off the key's scopes,
// not any particular identity.
type Security struct {
	apikeys auth.Repository
	pepper  []byte
}

// NewSecurity creates a Security with the given API key repository and
// HMAC pepper.
func NewSecurity(apikeys auth.Repository, pepper []byte) *Security {
	return &Security{
		apikeys: apikeys,
		pepper:  pepper,
	}
}

// RequireScope returns middleware that authenticates the Bearer token
// and rejects requests whose key lacks the given scope. Missing or
// unknown tokens answer 401; a valid key without the scope answers 403.
func (s *Security) RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			hexHash := auth.HashKey(token, s.pepper)
			info, err := s.apikeys.FindByHash(r.Context(), hexHash)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid api key")
				return
			}

			// Constant-time comparison guards against a repository
			// returning a stale or wrong row.
			stored, err := hex.DecodeString(info.KeyHash)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid api key")
				return
			}
			computed, _ := hex.DecodeString(hexHash)
			if subtle.ConstantTimeCompare(computed, stored) != 1 {
				writeError(w, http.StatusUnauthorized, "invalid api key")
				return
			}

			if !info.HasScope(scope) {
				writeError(w, http.StatusForbidden, "insufficient scope")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}
