package tasks

import "time"

const (
	StatusTodo       = "TODO"
	StatusInProgress = "IN_PROGRESS"
	StatusDone       = "DONE"
)

type Task struct {
	ID          int       `json:"id"`
	OwnerID     int       `json:"owner_id"`
	OwnerEmail  string    `json:"owner_email,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Subtasks    []Subtask `json:"subtasks"`
}

type Subtask struct {
	ID        int       `json:"id"`
	TaskID    int       `json:"task_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Patch carries the fields of an update request. Nil means "leave
// unchanged".
type Patch struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

func validStatus(s string) bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}
