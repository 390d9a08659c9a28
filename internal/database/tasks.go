package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"thumbsweep/internal/thumbnail"
)

// UpsertTask inserts or updates a task and replaces its option list.
// LastRun is left as stored; use UpdateLastRun to change it.
func (d *Database) UpsertTask(ctx context.Context, task thumbnail.Task) (err error) {
	start := time.Now()
	defer func() { recordQuery("upsert_task", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err = d.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tasks (id, name, work_path, updated_at)
			VALUES (?, ?, ?, strftime('%s', 'now'))
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				work_path = excluded.work_path,
				updated_at = strftime('%s', 'now')
		`, task.ID, task.Name, task.WorkPath); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM task_options WHERE task_id = ?", task.ID); err != nil {
			return err
		}
		for i, optID := range task.OptionIDs {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO task_options (task_id, option_id, position) VALUES (?, ?, ?)",
				task.ID, optID, i,
			); err != nil {
				return fmt.Errorf("option %s: %w", optID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save task %s: %w", task.ID, err)
	}
	return nil
}

// DeleteTask removes a task.
func (d *Database) DeleteTask(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { recordQuery("delete_task", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := d.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete task %s: %w", id, err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return nil
}

// ListTasks returns every task ordered by id.
func (d *Database) ListTasks(ctx context.Context) ([]thumbnail.Task, error) {
	return d.queryTasks(ctx, "list_tasks", "")
}

// GetTask returns one task.
func (d *Database) GetTask(ctx context.Context, id string) (thumbnail.Task, error) {
	tasks, err := d.queryTasks(ctx, "get_task", "WHERE id = ?", id)
	if err != nil {
		return thumbnail.Task{}, err
	}
	if len(tasks) == 0 {
		return thumbnail.Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return tasks[0], nil
}

// GetTasks returns the named tasks in the order given. Any unknown id fails
// the whole lookup.
func (d *Database) GetTasks(ctx context.Context, ids []string) ([]thumbnail.Task, error) {
	if len(ids) == 0 {
		return []thumbnail.Task{}, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	found, err := d.queryTasks(ctx, "get_tasks", "WHERE id IN ("+placeholders(len(ids))+")", args...)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]thumbnail.Task, len(found))
	for _, t := range found {
		byID[t.ID] = t
	}
	out := make([]thumbnail.Task, 0, len(ids))
	for _, id := range ids {
		t, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
		}
		out = append(out, t)
	}
	return out, nil
}

// UpdateLastRun stamps a task's last successful pass.
func (d *Database) UpdateLastRun(ctx context.Context, taskID string, lastRun time.Time) (err error) {
	start := time.Now()
	defer func() { recordQuery("update_last_run", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := d.db.ExecContext(ctx,
		"UPDATE tasks SET last_run = ? WHERE id = ?",
		lastRun.UTC().UnixNano(), taskID,
	)
	if err != nil {
		return fmt.Errorf("failed to update last run for %s: %w", taskID, err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	return nil
}

// queryTasks loads tasks matching where together with their ordered options.
func (d *Database) queryTasks(ctx context.Context, operation, where string, args ...any) (tasks []thumbnail.Task, err error) {
	start := time.Now()
	defer func() { recordQuery(operation, start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, "SELECT id, name, work_path, last_run FROM tasks "+where+" ORDER BY id", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}

	tasks = []thumbnail.Task{}
	index := make(map[string]int)
	for rows.Next() {
		var t thumbnail.Task
		var lastRun sql.NullInt64
		if err = rows.Scan(&t.ID, &t.Name, &t.WorkPath, &lastRun); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to read task: %w", err)
		}
		if lastRun.Valid {
			at := time.Unix(0, lastRun.Int64).UTC()
			t.LastRun = &at
		}
		t.OptionIDs = []string{}
		index[t.ID] = len(tasks)
		tasks = append(tasks, t)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	if len(tasks) == 0 {
		return tasks, nil
	}

	optRows, err := d.db.QueryContext(ctx, "SELECT task_id, option_id FROM task_options ORDER BY task_id, position")
	if err != nil {
		return nil, fmt.Errorf("failed to query task options: %w", err)
	}
	defer optRows.Close()

	for optRows.Next() {
		var taskID, optionID string
		if err = optRows.Scan(&taskID, &optionID); err != nil {
			return nil, fmt.Errorf("failed to read task option: %w", err)
		}
		if i, ok := index[taskID]; ok {
			tasks[i].OptionIDs = append(tasks[i].OptionIDs, optionID)
		}
	}
	if err = optRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to query task options: %w", err)
	}
	return tasks, nil
}
