package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/edvin/backoffice/internal/api/response"
	"github.com/edvin/backoffice/internal/core"
	"github.com/edvin/backoffice/internal/model"
)

type contextKey string

const APIKeyIdentityKey contextKey = "api_key_identity"

// Authenticator resolves a raw API key. *core.APIKeyService satisfies it.
type Authenticator interface {
	Authenticate(ctx context.Context, rawKey string) (*model.APIKey, error)
}

// Auth returns a middleware that requires a valid operator API key, sent as
// X-API-Key or as a bearer token.
func Auth(keys Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get("X-API-Key")
			if raw == "" {
				raw = extractAPIKey(r)
			}
			if raw == "" {
				response.WriteError(w, http.StatusUnauthorized, "missing API key")
				return
			}

			key, err := keys.Authenticate(r.Context(), raw)
			if errors.Is(err, core.ErrInvalidAPIKey) {
				response.WriteError(w, http.StatusUnauthorized, "invalid API key")
				return
			}
			if err != nil {
				zerolog.Ctx(r.Context()).Error().Err(err).Msg("api key lookup failed")
				response.WriteError(w, http.StatusInternalServerError, "authentication unavailable")
				return
			}

			zerolog.Ctx(r.Context()).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("operator", key.Operator)
			})
			ctx := context.WithValue(r.Context(), APIKeyIdentityKey, key)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetIdentity returns the authenticated key, or nil outside Auth.
func GetIdentity(ctx context.Context) *model.APIKey {
	key, _ := ctx.Value(APIKeyIdentityKey).(*model.APIKey)
	return key
}

// GetOperator returns the operator of the authenticated key, or "".
func GetOperator(ctx context.Context) string {
	if key := GetIdentity(ctx); key != nil {
		return key.Operator
	}
	return ""
}

func extractAPIKey(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return token
	}
	return ""
}
