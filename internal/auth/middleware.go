package auth

import (
	"context"
	"net/http"
	"strings"

	"taskboard-backend/internal/api"
)

type ctxKey string

const identityKey ctxKey = "identity"

type Middleware struct {
	secret []byte
}

func New(secret []byte) Middleware {
	return Middleware{secret: secret}
}

// Wrap verifies the bearer token and attaches the caller's identity to
// the request context. The header must be exactly "Bearer <token>".
func (m Middleware) Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		if h == "" {
			api.WriteError(w, http.StatusUnauthorized, "missing auth header")
			return
		}

		parts := strings.Split(h, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			api.WriteError(w, http.StatusUnauthorized, "invalid auth header")
			return
		}

		identity, err := ParseToken(m.secret, parts[1])
		if err != nil {
			api.WriteError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, identity)
		next(w, r.WithContext(ctx))
	}
}

// RequireAdmin rejects callers whose verified identity is not ADMIN.
// Must run inside Wrap.
func RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			api.WriteError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		if identity.Role != RoleAdmin {
			api.WriteError(w, http.StatusForbidden, "admin required")
			return
		}
		next(w, r)
	}
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	v := ctx.Value(identityKey)
	if v == nil {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

// WithIdentity returns a context carrying the given identity.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}
