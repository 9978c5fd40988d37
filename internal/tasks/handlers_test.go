package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"taskboard-backend/internal/ai"
	"taskboard-backend/internal/auth"
)

type fakeStore struct {
	tasks     map[int]Task
	subtasks  map[int][]Subtask
	nextID    int
	nextSubID int
	now       time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tasks:     map[int]Task{},
		subtasks:  map[int][]Subtask{},
		nextID:    1,
		nextSubID: 1,
		now:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *fakeStore) tick() time.Time {
	s.now = s.now.Add(time.Second)
	return s.now
}

func (s *fakeStore) Create(_ context.Context, ownerID int, title, description string) (Task, error) {
	now := s.tick()
	t := Task{
		ID:          s.nextID,
		OwnerID:     ownerID,
		Title:       title,
		Description: description,
		Status:      StatusTodo,
		CreatedAt:   now,
		UpdatedAt:   now,
		Subtasks:    []Subtask{},
	}
	s.nextID++
	s.tasks[t.ID] = t
	return t, nil
}

func (s *fakeStore) Get(_ context.Context, id int) (Task, error) {
	t, ok := s.tasks[id]
	if !ok {
		return Task{}, ErrNotFound
	}
	t.Subtasks = append([]Subtask{}, s.subtasks[id]...)
	return t, nil
}

func (s *fakeStore) list(filter func(Task) bool) []Task {
	out := []Task{}
	for _, t := range s.tasks {
		if filter(t) {
			t.Subtasks = append([]Subtask{}, s.subtasks[t.ID]...)
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (s *fakeStore) ListAll(_ context.Context) ([]Task, error) {
	return s.list(func(Task) bool { return true }), nil
}

func (s *fakeStore) ListByOwner(_ context.Context, ownerID int) ([]Task, error) {
	return s.list(func(t Task) bool { return t.OwnerID == ownerID }), nil
}

func (s *fakeStore) Update(_ context.Context, id int, p Patch) (Task, error) {
	t, ok := s.tasks[id]
	if !ok {
		return Task{}, ErrNotFound
	}
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	t.UpdatedAt = s.tick()
	s.tasks[id] = t
	t.Subtasks = append([]Subtask{}, s.subtasks[id]...)
	return t, nil
}

func (s *fakeStore) Delete(_ context.Context, id int) error {
	if _, ok := s.tasks[id]; !ok {
		return ErrNotFound
	}
	delete(s.tasks, id)
	delete(s.subtasks, id)
	return nil
}

func (s *fakeStore) InsertSubtasks(_ context.Context, taskID int, texts []string) ([]Subtask, error) {
	created := []Subtask{}
	for _, text := range texts {
		sub := Subtask{ID: s.nextSubID, TaskID: taskID, Text: text, CreatedAt: s.tick()}
		s.nextSubID++
		s.subtasks[taskID] = append(s.subtasks[taskID], sub)
		created = append(created, sub)
	}
	return created, nil
}

type stubProvider struct {
	text string
	err  error
}

func (p stubProvider) Complete(context.Context, string) (string, error) {
	return p.text, p.err
}

var (
	alice = auth.Identity{UserID: 1, Role: auth.RoleUser}
	bob   = auth.Identity{UserID: 2, Role: auth.RoleUser}
	admin = auth.Identity{UserID: 3, Role: auth.RoleAdmin}
)

// newMux wires the task routes the way cmd/api does, so path values
// resolve in tests.
func newMux(store Store, provider ai.Provider) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/tasks", CreateTaskHandler(store, nil))
	mux.HandleFunc("GET /api/tasks", ListTasksHandler(store))
	mux.HandleFunc("PUT /api/tasks/{id}", UpdateTaskHandler(store, nil))
	mux.HandleFunc("DELETE /api/tasks/{id}", DeleteTaskHandler(store, nil))
	mux.HandleFunc("POST /api/tasks/{id}/suggest", SuggestHandler(store, provider, nil))
	mux.HandleFunc("POST /api/tasks/{id}/subtasks", AcceptSubtasksHandler(store, nil))
	return mux
}

func do(mux *http.ServeMux, identity auth.Identity, method, target, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req = req.WithContext(auth.WithIdentity(req.Context(), identity))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func mustCreate(t *testing.T, store *fakeStore, owner auth.Identity, title string) Task {
	t.Helper()
	task, err := store.Create(context.Background(), owner.UserID, title, "")
	if err != nil {
		t.Fatal(err)
	}
	return task
}

func TestCreateTask(t *testing.T) {
	store := newFakeStore()
	mux := newMux(store, nil)

	rec := do(mux, alice, http.MethodPost, "/api/tasks", `{"title":"Plan trip","description":"to Norway"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var task Task
	_ = json.Unmarshal(rec.Body.Bytes(), &task)
	if task.OwnerID != alice.UserID {
		t.Errorf("owner = %d, want %d", task.OwnerID, alice.UserID)
	}
	if task.Status != StatusTodo {
		t.Errorf("status = %q, want TODO", task.Status)
	}

	rec = do(mux, alice, http.MethodPost, "/api/tasks", `{"description":"no title"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing title: status = %d, want 400", rec.Code)
	}
}

func TestListTasksVisibility(t *testing.T) {
	store := newFakeStore()
	mux := newMux(store, nil)

	mustCreate(t, store, alice, "alice 1")
	mustCreate(t, store, alice, "alice 2")
	mustCreate(t, store, bob, "bob 1")

	t.Run("user sees only own tasks", func(t *testing.T) {
		rec := do(mux, alice, http.MethodGet, "/api/tasks", "")
		var got []Task
		_ = json.Unmarshal(rec.Body.Bytes(), &got)
		if len(got) != 2 {
			t.Fatalf("got %d tasks, want 2", len(got))
		}
		for _, task := range got {
			if task.OwnerID != alice.UserID {
				t.Errorf("leaked task %d owned by %d", task.ID, task.OwnerID)
			}
		}
		// Newest first.
		if got[0].Title != "alice 2" || got[1].Title != "alice 1" {
			t.Errorf("order = [%s, %s]", got[0].Title, got[1].Title)
		}
	})

	t.Run("admin sees everything", func(t *testing.T) {
		rec := do(mux, admin, http.MethodGet, "/api/tasks", "")
		var got []Task
		_ = json.Unmarshal(rec.Body.Bytes(), &got)
		if len(got) != 3 {
			t.Fatalf("got %d tasks, want 3", len(got))
		}
	})

	t.Run("empty list is a list", func(t *testing.T) {
		rec := do(mux, auth.Identity{UserID: 99, Role: auth.RoleUser}, http.MethodGet, "/api/tasks", "")
		if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
			t.Errorf("body = %s, want []", body)
		}
	})
}

func TestUpdateTask(t *testing.T) {
	store := newFakeStore()
	mux := newMux(store, nil)
	task := mustCreate(t, store, alice, "original")

	t.Run("owner patches title only", func(t *testing.T) {
		rec := do(mux, alice, http.MethodPut, fmt.Sprintf("/api/tasks/%d", task.ID), `{"title":"renamed"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var got Task
		_ = json.Unmarshal(rec.Body.Bytes(), &got)
		if got.Title != "renamed" {
			t.Errorf("title = %q", got.Title)
		}
		if got.Status != StatusTodo {
			t.Errorf("status changed to %q", got.Status)
		}
		if !got.UpdatedAt.After(got.CreatedAt) {
			t.Error("updated_at not refreshed")
		}
	})

	t.Run("status patch", func(t *testing.T) {
		rec := do(mux, alice, http.MethodPut, fmt.Sprintf("/api/tasks/%d", task.ID), `{"status":"DONE"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var got Task
		_ = json.Unmarshal(rec.Body.Bytes(), &got)
		if got.Status != StatusDone {
			t.Errorf("status = %q", got.Status)
		}
		if got.Title != "renamed" {
			t.Errorf("title changed to %q", got.Title)
		}
	})

	t.Run("invalid status rejected", func(t *testing.T) {
		rec := do(mux, alice, http.MethodPut, fmt.Sprintf("/api/tasks/%d", task.ID), `{"status":"WONTFIX"}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("non-owner forbidden", func(t *testing.T) {
		rec := do(mux, bob, http.MethodPut, fmt.Sprintf("/api/tasks/%d", task.ID), `{"title":"hijack"}`)
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rec.Code)
		}
	})

	t.Run("admin allowed", func(t *testing.T) {
		rec := do(mux, admin, http.MethodPut, fmt.Sprintf("/api/tasks/%d", task.ID), `{"title":"admin edit"}`)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("missing task", func(t *testing.T) {
		rec := do(mux, alice, http.MethodPut, "/api/tasks/9999", `{"title":"x"}`)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

func TestDeleteTask(t *testing.T) {
	store := newFakeStore()
	mux := newMux(store, nil)

	t.Run("non-owner forbidden", func(t *testing.T) {
		task := mustCreate(t, store, alice, "keep")
		rec := do(mux, bob, http.MethodDelete, fmt.Sprintf("/api/tasks/%d", task.ID), "")
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rec.Code)
		}
	})

	t.Run("owner deletes", func(t *testing.T) {
		task := mustCreate(t, store, alice, "gone")
		rec := do(mux, alice, http.MethodDelete, fmt.Sprintf("/api/tasks/%d", task.ID), "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"ok":true`) {
			t.Errorf("body = %s", rec.Body.String())
		}
		if _, err := store.Get(context.Background(), task.ID); !errors.Is(err, ErrNotFound) {
			t.Error("task still present after delete")
		}
	})

	t.Run("admin deletes someone else's task", func(t *testing.T) {
		task := mustCreate(t, store, bob, "bob task")
		rec := do(mux, admin, http.MethodDelete, fmt.Sprintf("/api/tasks/%d", task.ID), "")
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("missing task", func(t *testing.T) {
		rec := do(mux, alice, http.MethodDelete, "/api/tasks/9999", "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

func TestAcceptSubtasks(t *testing.T) {
	store := newFakeStore()
	mux := newMux(store, nil)
	task := mustCreate(t, store, alice, "host a dinner")

	t.Run("bulk insert preserves order", func(t *testing.T) {
		rec := do(mux, alice, http.MethodPost, fmt.Sprintf("/api/tasks/%d/subtasks", task.ID),
			`{"subtasks":["a","b","c"]}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
		var created []Subtask
		_ = json.Unmarshal(rec.Body.Bytes(), &created)
		if len(created) != 3 {
			t.Fatalf("created %d subtasks, want 3", len(created))
		}
		for i, want := range []string{"a", "b", "c"} {
			if created[i].Text != want {
				t.Errorf("subtask[%d] = %q, want %q", i, created[i].Text, want)
			}
			if created[i].TaskID != task.ID {
				t.Errorf("subtask[%d].TaskID = %d, want %d", i, created[i].TaskID, task.ID)
			}
		}
	})

	t.Run("empty list is fine", func(t *testing.T) {
		rec := do(mux, alice, http.MethodPost, fmt.Sprintf("/api/tasks/%d/subtasks", task.ID),
			`{"subtasks":[]}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
			t.Errorf("body = %s, want []", body)
		}
	})

	t.Run("missing list rejected", func(t *testing.T) {
		for _, body := range []string{`{}`, `{"subtasks":null}`, `{"subtasks":"a"}`} {
			rec := do(mux, alice, http.MethodPost, fmt.Sprintf("/api/tasks/%d/subtasks", task.ID), body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("body %s: status = %d, want 400", body, rec.Code)
			}
		}
	})

	t.Run("non-owner forbidden", func(t *testing.T) {
		rec := do(mux, bob, http.MethodPost, fmt.Sprintf("/api/tasks/%d/subtasks", task.ID),
			`{"subtasks":["x"]}`)
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rec.Code)
		}
	})

	t.Run("missing task", func(t *testing.T) {
		rec := do(mux, alice, http.MethodPost, "/api/tasks/9999/subtasks", `{"subtasks":["x"]}`)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

func TestSuggest(t *testing.T) {
	store := newFakeStore()
	task := mustCreate(t, store, alice, "plan launch")

	t.Run("success", func(t *testing.T) {
		mux := newMux(store, stubProvider{text: "1. Draft announcement\n2. Pick a date\n\n- Dry run"})
		rec := do(mux, alice, http.MethodPost, fmt.Sprintf("/api/tasks/%d/suggest", task.ID), "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
		var resp struct {
			Suggestions []string `json:"suggestions"`
		}
		_ = json.Unmarshal(rec.Body.Bytes(), &resp)
		want := []string{"Draft announcement", "Pick a date", "Dry run"}
		if len(resp.Suggestions) != len(want) {
			t.Fatalf("suggestions = %v", resp.Suggestions)
		}
		for i := range want {
			if resp.Suggestions[i] != want[i] {
				t.Errorf("suggestions[%d] = %q, want %q", i, resp.Suggestions[i], want[i])
			}
		}
		// Preview only: nothing persisted.
		got, _ := store.Get(context.Background(), task.ID)
		if len(got.Subtasks) != 0 {
			t.Error("suggest persisted subtasks")
		}
	})

	t.Run("upstream failure surfaces detail", func(t *testing.T) {
		mux := newMux(store, stubProvider{err: errors.New("connection refused")})
		rec := do(mux, alice, http.MethodPost, fmt.Sprintf("/api/tasks/%d/suggest", task.ID), "")
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d, want 500", rec.Code)
		}
		var resp struct {
			Error  string `json:"error"`
			Detail string `json:"detail"`
		}
		_ = json.Unmarshal(rec.Body.Bytes(), &resp)
		if resp.Error != "AI suggestion failed" {
			t.Errorf("error = %q", resp.Error)
		}
		if !strings.Contains(resp.Detail, "connection refused") {
			t.Errorf("detail = %q", resp.Detail)
		}
	})

	t.Run("misconfigured provider", func(t *testing.T) {
		mux := newMux(store, ai.Unavailable(ai.ErrNoAPIKey))
		rec := do(mux, alice, http.MethodPost, fmt.Sprintf("/api/tasks/%d/suggest", task.ID), "")
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", rec.Code)
		}
	})

	t.Run("non-owner forbidden", func(t *testing.T) {
		mux := newMux(store, stubProvider{text: "x"})
		rec := do(mux, bob, http.MethodPost, fmt.Sprintf("/api/tasks/%d/suggest", task.ID), "")
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rec.Code)
		}
	})

	t.Run("missing task", func(t *testing.T) {
		mux := newMux(store, stubProvider{text: "x"})
		rec := do(mux, alice, http.MethodPost, "/api/tasks/9999/suggest", "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}
