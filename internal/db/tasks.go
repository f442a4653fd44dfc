package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Task represents a row in the tasks table.
type Task struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
}

const upsertTaskSQL = `
	INSERT INTO tasks (id, user_id, title) VALUES (?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		user_id = excluded.user_id,
		title = excluded.title`

func upsertTask(ex execer, t Task) error {
	if strings.TrimSpace(t.ID) == "" {
		return errors.New("upserting task: missing id")
	}
	if _, err := ex.Exec(upsertTaskSQL, t.ID, t.UserID, t.Title); err != nil {
		return fmt.Errorf("upserting task %s: %w", t.ID, err)
	}
	return nil
}

// UpsertTask inserts or updates a task.
func (db *DB) UpsertTask(t Task) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return upsertTask(db.writer, t)
}

// UpsertTasks writes a batch of tasks in one transaction.
func (db *DB) UpsertTasks(tasks []Task) error {
	if len(tasks) == 0 {
		return nil
	}
	return db.Update(func(tx *sql.Tx) error {
		for _, t := range tasks {
			if err := upsertTask(tx, t); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListTasks returns the user's tasks ordered by title.
func (db *DB) ListTasks(
	ctx context.Context, userID string,
) ([]Task, error) {
	rows, err := db.reader.QueryContext(ctx, `
		SELECT id, user_id, title, created_at
		FROM tasks WHERE user_id = ?
		ORDER BY title, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	tasks := []Task{}
	for rows.Next() {
		var t Task
		if err := rows.Scan(
			&t.ID, &t.UserID, &t.Title, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// GetTask returns a single task by ID, or ErrNotFound.
func (db *DB) GetTask(ctx context.Context, id string) (*Task, error) {
	var t Task
	err := db.reader.QueryRowContext(ctx, `
		SELECT id, user_id, title, created_at
		FROM tasks WHERE id = ?`, id,
	).Scan(&t.ID, &t.UserID, &t.Title, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting task %s: %w", id, err)
	}
	return &t, nil
}
