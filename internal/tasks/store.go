package tasks

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

var ErrNotFound = errors.New("task not found")

// Store is the task repository. Handlers depend on this interface, not
// on *sql.DB, so authorization logic is testable without a database.
// No operation spans a transaction: a race between concurrent updates
// of the same task is an accepted property of the design.
type Store interface {
	Create(ctx context.Context, ownerID int, title, description string) (Task, error)
	Get(ctx context.Context, id int) (Task, error)
	ListAll(ctx context.Context) ([]Task, error)
	ListByOwner(ctx context.Context, ownerID int) ([]Task, error)
	Update(ctx context.Context, id int, p Patch) (Task, error)
	Delete(ctx context.Context, id int) error
	InsertSubtasks(ctx context.Context, taskID int, texts []string) ([]Subtask, error)
}

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Create(ctx context.Context, ownerID int, title, description string) (Task, error) {
	var t Task
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO tasks (owner_id, title, description)
		VALUES ($1, $2, NULLIF($3, ''))
		RETURNING id, owner_id, title, COALESCE(description, ''), status, created_at, updated_at
	`, ownerID, title, description).Scan(
		&t.ID, &t.OwnerID, &t.Title, &t.Description, &t.Status, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return Task{}, err
	}
	t.Subtasks = []Subtask{}
	return t, nil
}

func (s *SQLStore) Get(ctx context.Context, id int) (Task, error) {
	var t Task
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, title, COALESCE(description, ''), status, created_at, updated_at
		FROM tasks
		WHERE id = $1
	`, id).Scan(&t.ID, &t.OwnerID, &t.Title, &t.Description, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, ErrNotFound
	}
	if err != nil {
		return Task{}, err
	}

	subtasks, err := s.loadSubtasks(ctx, []int64{int64(t.ID)})
	if err != nil {
		return Task{}, err
	}
	t.Subtasks = subtasks[t.ID]
	if t.Subtasks == nil {
		t.Subtasks = []Subtask{}
	}
	return t, nil
}

// ListAll returns every task across all owners, newest first, with the
// owner's email and subtasks inline. Admin view only.
func (s *SQLStore) ListAll(ctx context.Context) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.owner_id, u.email, t.title, COALESCE(t.description, ''),
		       t.status, t.created_at, t.updated_at
		FROM tasks t
		JOIN users u ON u.id = t.owner_id
		ORDER BY t.created_at DESC, t.id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []Task{}
	for rows.Next() {
		var t Task
		if err := rows.Scan(
			&t.ID, &t.OwnerID, &t.OwnerEmail, &t.Title, &t.Description,
			&t.Status, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return s.attachSubtasks(ctx, tasks)
}

func (s *SQLStore) ListByOwner(ctx context.Context, ownerID int) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, title, COALESCE(description, ''), status, created_at, updated_at
		FROM tasks
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []Task{}
	for rows.Next() {
		var t Task
		if err := rows.Scan(
			&t.ID, &t.OwnerID, &t.Title, &t.Description,
			&t.Status, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return s.attachSubtasks(ctx, tasks)
}

// Update applies only the non-nil patch fields and always refreshes
// updated_at.
func (s *SQLStore) Update(ctx context.Context, id int, p Patch) (Task, error) {
	var t Task
	err := s.db.QueryRowContext(ctx, `
		UPDATE tasks
		SET title       = COALESCE($2, title),
		    description = COALESCE($3, description),
		    status      = COALESCE($4, status),
		    updated_at  = now()
		WHERE id = $1
		RETURNING id, owner_id, title, COALESCE(description, ''), status, created_at, updated_at
	`, id, p.Title, p.Description, p.Status).Scan(
		&t.ID, &t.OwnerID, &t.Title, &t.Description, &t.Status, &t.CreatedAt, &t.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, ErrNotFound
	}
	if err != nil {
		return Task{}, err
	}

	subtasks, err := s.loadSubtasks(ctx, []int64{int64(t.ID)})
	if err != nil {
		return Task{}, err
	}
	t.Subtasks = subtasks[t.ID]
	if t.Subtasks == nil {
		t.Subtasks = []Subtask{}
	}
	return t, nil
}

// Delete removes the task; subtasks go with it via ON DELETE CASCADE.
func (s *SQLStore) Delete(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertSubtasks creates one subtask per element of texts, preserving
// input order. An empty input yields an empty result.
func (s *SQLStore) InsertSubtasks(ctx context.Context, taskID int, texts []string) ([]Subtask, error) {
	created := []Subtask{}
	for _, text := range texts {
		sub := Subtask{TaskID: taskID, Text: text}
		err := s.db.QueryRowContext(ctx, `
			INSERT INTO subtasks (task_id, text)
			VALUES ($1, $2)
			RETURNING id, created_at
		`, taskID, text).Scan(&sub.ID, &sub.CreatedAt)
		if err != nil {
			return nil, err
		}
		created = append(created, sub)
	}
	return created, nil
}

func (s *SQLStore) attachSubtasks(ctx context.Context, tasks []Task) ([]Task, error) {
	ids := make([]int64, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, int64(t.ID))
	}

	subtasks, err := s.loadSubtasks(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range tasks {
		tasks[i].Subtasks = subtasks[tasks[i].ID]
		if tasks[i].Subtasks == nil {
			tasks[i].Subtasks = []Subtask{}
		}
	}
	return tasks, nil
}

func (s *SQLStore) loadSubtasks(ctx context.Context, taskIDs []int64) (map[int][]Subtask, error) {
	result := map[int][]Subtask{}
	if len(taskIDs) == 0 {
		return result, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, task_id, text, created_at
		FROM subtasks
		WHERE task_id = ANY($1)
		ORDER BY id
	`, pq.Array(taskIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var sub Subtask
		if err := rows.Scan(&sub.ID, &sub.TaskID, &sub.Text, &sub.CreatedAt); err != nil {
			return nil, err
		}
		result[sub.TaskID] = append(result[sub.TaskID], sub)
	}
	return result, rows.Err()
}
