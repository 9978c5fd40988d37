package tasks

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"taskboard-backend/internal/ai"
	"taskboard-backend/internal/analytics"
	"taskboard-backend/internal/api"
	"taskboard-backend/internal/auth"
)

// canAccess is the single authorization predicate for every mutation
// and read of a task: the owner has full rights regardless of role,
// ADMIN has full rights over everything.
func canAccess(identity auth.Identity, ownerID int) bool {
	return identity.Role == auth.RoleAdmin || identity.UserID == ownerID
}

func CreateTaskHandler(store Store, events *analytics.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := auth.IdentityFromContext(r.Context())
		if !ok {
			api.WriteError(w, http.StatusUnauthorized, "not authenticated")
			return
		}

		var body struct {
			Title       string `json:"title"`
			Description string `json:"description"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Title == "" {
			api.WriteError(w, http.StatusBadRequest, "title required")
			return
		}

		task, err := store.Create(r.Context(), identity.UserID, body.Title, body.Description)
		if err != nil {
			api.WriteError(w, http.StatusInternalServerError, "db error")
			return
		}

		events.Log(r.Context(), identity.UserID, "task_created", map[string]any{
			"task_id":         task.ID,
			"title_len":       len(task.Title),
			"has_description": task.Description != "",
		}, analytics.KeyFromRequest(r))

		api.WriteJSON(w, http.StatusOK, task)
	}
}

func ListTasksHandler(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := auth.IdentityFromContext(r.Context())
		if !ok {
			api.WriteError(w, http.StatusUnauthorized, "not authenticated")
			return
		}

		var (
			tasks []Task
			err   error
		)
		if identity.Role == auth.RoleAdmin {
			tasks, err = store.ListAll(r.Context())
		} else {
			tasks, err = store.ListByOwner(r.Context(), identity.UserID)
		}
		if err != nil {
			api.WriteError(w, http.StatusInternalServerError, "db error")
			return
		}

		api.WriteJSON(w, http.StatusOK, tasks)
	}
}

func UpdateTaskHandler(store Store, events *analytics.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, id, ok := identityAndID(w, r)
		if !ok {
			return
		}

		var patch Patch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			api.WriteError(w, http.StatusBadRequest, "invalid json")
			return
		}
		if patch.Status != nil && !validStatus(*patch.Status) {
			api.WriteError(w, http.StatusBadRequest, "invalid status")
			return
		}
		if patch.Title != nil && *patch.Title == "" {
			api.WriteError(w, http.StatusBadRequest, "title required")
			return
		}

		if !authorizeTask(w, r, store, id, identity) {
			return
		}

		task, err := store.Update(r.Context(), id, patch)
		if errors.Is(err, ErrNotFound) {
			api.WriteError(w, http.StatusNotFound, "task not found")
			return
		}
		if err != nil {
			api.WriteError(w, http.StatusInternalServerError, "db error")
			return
		}

		events.Log(r.Context(), identity.UserID, "task_updated", map[string]any{
			"task_id": task.ID,
			"status":  task.Status,
		}, analytics.KeyFromRequest(r))

		api.WriteJSON(w, http.StatusOK, task)
	}
}

func DeleteTaskHandler(store Store, events *analytics.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, id, ok := identityAndID(w, r)
		if !ok {
			return
		}

		if !authorizeTask(w, r, store, id, identity) {
			return
		}

		err := store.Delete(r.Context(), id)
		if errors.Is(err, ErrNotFound) {
			api.WriteError(w, http.StatusNotFound, "task not found")
			return
		}
		if err != nil {
			api.WriteError(w, http.StatusInternalServerError, "db error")
			return
		}

		events.Log(r.Context(), identity.UserID, "task_deleted", map[string]any{
			"task_id": id,
		}, analytics.KeyFromRequest(r))

		api.WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}

// SuggestHandler asks the configured provider for subtasks. Read-only
// preview: failures never touch stored state, and nothing is persisted
// until the client accepts via the subtasks endpoint.
func SuggestHandler(store Store, provider ai.Provider, events *analytics.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, id, ok := identityAndID(w, r)
		if !ok {
			return
		}

		task, ok := authorizedTask(w, r, store, id, identity)
		if !ok {
			return
		}

		prompt := ai.BuildSuggestPrompt(task.Title, task.Description)
		text, err := provider.Complete(r.Context(), prompt)
		if err != nil {
			log.Printf("[WARN] AI suggest failed task_id=%d: %v", id, err)
			api.WriteUpstreamError(w, "AI suggestion failed", err)
			return
		}

		suggestions := ai.ParseSuggestions(text)

		events.Log(r.Context(), identity.UserID, "subtasks_suggested", map[string]any{
			"task_id": id,
			"count":   len(suggestions),
		}, analytics.KeyFromRequest(r))

		api.WriteJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions})
	}
}

func AcceptSubtasksHandler(store Store, events *analytics.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, id, ok := identityAndID(w, r)
		if !ok {
			return
		}

		var body struct {
			Subtasks *[]string `json:"subtasks"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Subtasks == nil {
			api.WriteError(w, http.StatusBadRequest, "subtasks must be a list")
			return
		}

		if !authorizeTask(w, r, store, id, identity) {
			return
		}

		created, err := store.InsertSubtasks(r.Context(), id, *body.Subtasks)
		if err != nil {
			api.WriteError(w, http.StatusInternalServerError, "db error")
			return
		}

		events.Log(r.Context(), identity.UserID, "subtasks_accepted", map[string]any{
			"task_id": id,
			"count":   len(created),
		}, analytics.KeyFromRequest(r))

		api.WriteJSON(w, http.StatusOK, created)
	}
}

// identityAndID pulls the verified identity and the {id} path value,
// writing the error response itself when either is missing.
func identityAndID(w http.ResponseWriter, r *http.Request) (auth.Identity, int, bool) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, "not authenticated")
		return auth.Identity{}, 0, false
	}

	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "invalid task id")
		return auth.Identity{}, 0, false
	}
	return identity, id, true
}

func authorizedTask(w http.ResponseWriter, r *http.Request, store Store, id int, identity auth.Identity) (Task, bool) {
	task, err := store.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		api.WriteError(w, http.StatusNotFound, "task not found")
		return Task{}, false
	}
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "db error")
		return Task{}, false
	}
	if !canAccess(identity, task.OwnerID) {
		api.WriteError(w, http.StatusForbidden, "forbidden")
		return Task{}, false
	}
	return task, true
}

func authorizeTask(w http.ResponseWriter, r *http.Request, store Store, id int, identity auth.Identity) bool {
	_, ok := authorizedTask(w, r, store, id, identity)
	return ok
}
