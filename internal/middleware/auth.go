package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// AuthMiddleware guards the operator surface with a single shared token.
// Only the SHA-256 of the token is configured, so a leaked environment
// never reveals the token itself.
type AuthMiddleware struct {
	tokenHash string
}

func NewAuthMiddleware(tokenHash string) *AuthMiddleware {
	return &AuthMiddleware{tokenHash: strings.ToLower(tokenHash)}
}

func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Token não fornecido",
			})
			return
		}

		sum := sha256.Sum256([]byte(token))
		hash := hex.EncodeToString(sum[:])
		if subtle.ConstantTimeCompare([]byte(hash), []byte(m.tokenHash)) != 1 {
			log.Warn().Str("path", r.URL.Path).Msg("auth middleware: invalid token attempt")
			writeJSON(w, http.StatusForbidden, map[string]string{
				"error": "Token inválido",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func extractToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}

	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	return ""
}
