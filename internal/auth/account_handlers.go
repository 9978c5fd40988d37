package auth

import (
	"errors"
	"net/http"

	"taskboard-backend/internal/api"
)

// LogoutHandler is a stateless no-op: JWTs cannot be revoked server
// side, the client just drops its token.
func LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		api.WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}

func DeleteAccountHandler(store UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			api.WriteError(w, http.StatusUnauthorized, "not authenticated")
			return
		}

		err := store.DeleteAccount(r.Context(), identity.UserID)
		if errors.Is(err, ErrUserNotFound) {
			api.WriteError(w, http.StatusNotFound, "user not found")
			return
		}
		if err != nil {
			api.WriteError(w, http.StatusInternalServerError, "delete failed")
			return
		}

		api.WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}
