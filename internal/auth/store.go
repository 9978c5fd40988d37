package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
)

var (
	ErrEmailTaken   = errors.New("email already in use")
	ErrUserNotFound = errors.New("user not found")
)

// User is the public shape of a user record. The password hash is
// deliberately not part of this struct so it can never leak into a
// response body.
type User struct {
	ID        int       `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// UserTask is the slim task view embedded in the admin users listing.
type UserTask struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type UserWithTasks struct {
	User
	Tasks []UserTask `json:"tasks"`
}

type UserStore interface {
	Create(ctx context.Context, email, passwordHash, name string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, string, error)
	Get(ctx context.Context, id int) (User, error)
	List(ctx context.Context) ([]UserWithTasks, error)
	DeleteAccount(ctx context.Context, id int) error
}

type SQLUserStore struct {
	db *sql.DB
}

func NewSQLUserStore(db *sql.DB) *SQLUserStore {
	return &SQLUserStore{db: db}
}

func (s *SQLUserStore) Create(ctx context.Context, email, passwordHash, name string) (User, error) {
	u := User{Email: email, Name: name, Role: RoleUser}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (email, password, name)
		VALUES ($1, $2, NULLIF($3, ''))
		RETURNING id, role, created_at
	`, email, passwordHash, name).Scan(&u.ID, &u.Role, &u.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return User{}, ErrEmailTaken
		}
		return User{}, err
	}
	return u, nil
}

func (s *SQLUserStore) FindByEmail(ctx context.Context, email string) (User, string, error) {
	var u User
	var hash string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, COALESCE(name, ''), role, password, created_at
		FROM users
		WHERE email = $1
	`, email).Scan(&u.ID, &u.Email, &u.Name, &u.Role, &hash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, "", ErrUserNotFound
	}
	if err != nil {
		return User{}, "", err
	}
	return u, hash, nil
}

func (s *SQLUserStore) Get(ctx context.Context, id int) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, COALESCE(name, ''), role, created_at
		FROM users
		WHERE id = $1
	`, id).Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *SQLUserStore) List(ctx context.Context) ([]UserWithTasks, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, COALESCE(name, ''), role, created_at
		FROM users
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []UserWithTasks{}
	index := map[int]int{}
	ids := []int64{}

	for rows.Next() {
		var u UserWithTasks
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.CreatedAt); err != nil {
			return nil, err
		}
		u.Tasks = []UserTask{}
		index[u.ID] = len(users)
		ids = append(ids, int64(u.ID))
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return users, nil
	}

	taskRows, err := s.db.QueryContext(ctx, `
		SELECT owner_id, id, title, status, created_at
		FROM tasks
		WHERE owner_id = ANY($1)
		ORDER BY created_at DESC, id DESC
	`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer taskRows.Close()

	for taskRows.Next() {
		var ownerID int
		var t UserTask
		if err := taskRows.Scan(&ownerID, &t.ID, &t.Title, &t.Status, &t.CreatedAt); err != nil {
			return nil, err
		}
		if i, ok := index[ownerID]; ok {
			users[i].Tasks = append(users[i].Tasks, t)
		}
	}
	return users, taskRows.Err()
}

// DeleteAccount removes the user and everything hanging off them in a
// single transaction: subtasks, tasks, analytics events, user row.
func (s *SQLUserStore) DeleteAccount(ctx context.Context, id int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM subtasks
		WHERE task_id IN (SELECT id FROM tasks WHERE owner_id = $1)
	`, id); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE owner_id = $1`, id); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM analytics_events WHERE user_id = $1`, id); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrUserNotFound
	}

	return tx.Commit()
}
