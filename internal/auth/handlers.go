package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"taskboard-backend/internal/analytics"
	"taskboard-backend/internal/api"
)

type tokenResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

func RegisterHandler(store UserStore, secret []byte, events *analytics.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
			Name     string `json:"name"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Email == "" || body.Password == "" {
			api.WriteError(w, http.StatusBadRequest, "email + password required")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			api.WriteError(w, http.StatusInternalServerError, "hash error")
			return
		}

		user, err := store.Create(r.Context(), body.Email, string(hash), body.Name)
		if errors.Is(err, ErrEmailTaken) {
			api.WriteError(w, http.StatusConflict, "email already used")
			return
		}
		if err != nil {
			api.WriteError(w, http.StatusInternalServerError, "db error")
			return
		}

		token, err := GenerateToken(secret, user.ID, user.Role)
		if err != nil {
			api.WriteError(w, http.StatusInternalServerError, "token error")
			return
		}

		events.Log(r.Context(), user.ID, "user_registered", map[string]any{
			"email_domain": emailDomain(user.Email),
		}, analytics.KeyFromRequest(r))

		api.WriteJSON(w, http.StatusOK, tokenResponse{Token: token, User: user})
	}
}

func LoginHandler(store UserStore, secret []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		// Same response for unknown email and wrong password.
		user, hash, err := store.FindByEmail(r.Context(), body.Email)
		if err != nil {
			api.WriteError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(body.Password)) != nil {
			api.WriteError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		token, err := GenerateToken(secret, user.ID, user.Role)
		if err != nil {
			api.WriteError(w, http.StatusInternalServerError, "token error")
			return
		}

		api.WriteJSON(w, http.StatusOK, tokenResponse{Token: token, User: user})
	}
}

// ListUsersHandler serves the admin users listing, tasks inline.
// Wire behind RequireAdmin: the listing enumerates every account.
func ListUsersHandler(store UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := store.List(r.Context())
		if err != nil {
			api.WriteError(w, http.StatusInternalServerError, "db error")
			return
		}
		api.WriteJSON(w, http.StatusOK, users)
	}
}

func MeHandler(store UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			api.WriteError(w, http.StatusUnauthorized, "not authenticated")
			return
		}

		user, err := store.Get(r.Context(), identity.UserID)
		if errors.Is(err, ErrUserNotFound) {
			api.WriteError(w, http.StatusNotFound, "user not found")
			return
		}
		if err != nil {
			api.WriteError(w, http.StatusInternalServerError, "db error")
			return
		}
		api.WriteJSON(w, http.StatusOK, user)
	}
}

func emailDomain(email string) string {
	for i := len(email) - 1; i >= 0; i-- {
		if email[i] == '@' {
			return email[i+1:]
		}
	}
	return ""
}
