package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pipecraft/campd/pkg/models"
	"github.com/pipecraft/campd/pkg/persistence"
)

// TaskRepository handles the ephemeral transition queue.
type TaskRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewTaskRepository creates a new task repository.
func NewTaskRepository(db *sql.DB, logger *slog.Logger) *TaskRepository {
	return &TaskRepository{db: db, logger: logger}
}

// Enqueue inserts a task. The deterministic (node, desired-status) id makes
// re-enqueueing idempotent: scheduler passes over the same actionable node
// collapse into one queue entry. A conflict with a finished row reopens it —
// the node became actionable again (an operator fired retry), so the old
// attempt's timestamps are cleared. With allowReset even a live task is
// reset, which lets tests replay claimed transitions. Reports whether a live
// (unfinished) task exists after the call.
func (tr *TaskRepository) Enqueue(ctx context.Context, task *models.Task, allowReset bool) (bool, error) {
	query := `
		INSERT INTO tasks (id, namespace, node_id, desired_status, previous_status, priority, site, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE
		SET previous_status = EXCLUDED.previous_status,
		    priority = EXCLUDED.priority,
		    site = EXCLUDED.site,
		    created_at = EXCLUDED.created_at,
		    submitted_at = NULL,
		    finished_at = NULL
		WHERE tasks.finished_at IS NOT NULL
	`
	if allowReset {
		query = `
			INSERT INTO tasks (id, namespace, node_id, desired_status, previous_status, priority, site, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO UPDATE
			SET previous_status = EXCLUDED.previous_status,
			    priority = EXCLUDED.priority,
			    site = EXCLUDED.site,
			    submitted_at = NULL,
			    finished_at = NULL
		`
	}

	result, err := tr.db.ExecContext(ctx, query,
		task.ID,
		task.Namespace,
		task.NodeID,
		task.DesiredStatus,
		task.PreviousStatus,
		task.Priority,
		task.Site,
		task.CreatedAt,
	)
	if err != nil {
		return false, &persistence.TaskError{Op: "Enqueue", TaskID: task.ID, Err: err}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, &persistence.TaskError{Op: "Enqueue", TaskID: task.ID, Err: err}
	}

	if affected > 0 {
		return true, nil
	}

	// The insert was a no-op: the conflicting row is still live (unfinished
	// rows are never touched in normal mode). Confirm against the row itself.
	var finishedAt sql.NullTime

	err = tr.db.QueryRowContext(ctx, `SELECT finished_at FROM tasks WHERE id = $1`, task.ID).Scan(&finishedAt)
	if err != nil {
		return false, &persistence.TaskError{Op: "Enqueue", TaskID: task.ID, Err: err}
	}

	return !finishedAt.Valid, nil
}

// ClaimUnsubmitted selects up to limit unsubmitted tasks with FOR UPDATE SKIP
// LOCKED and stamps submitted_at inside the claim transaction, so two racing
// daemons never hand the same task to their workers.
func (tr *TaskRepository) ClaimUnsubmitted(ctx context.Context, limit int) ([]*models.Task, error) {
	tx, err := tr.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin claim transaction: %w", err)
	}

	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		SELECT id, namespace, node_id, desired_status, previous_status, priority, site, created_at, submitted_at, finished_at
		FROM tasks
		WHERE submitted_at IS NULL
		ORDER BY priority DESC, created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`

	rows, err := tx.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim tasks: %w", err)
	}

	var tasks []*models.Task

	for rows.Next() {
		task, err := tr.scanTask(rows)
		if err != nil {
			_ = rows.Close()

			return nil, fmt.Errorf("failed to scan claimed task: %w", err)
		}

		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		_ = rows.Close()

		return nil, fmt.Errorf("error iterating claimed tasks: %w", err)
	}

	_ = rows.Close()

	for _, task := range tasks {
		var submittedAt sql.NullTime

		err := tx.QueryRowContext(ctx,
			`UPDATE tasks SET submitted_at = NOW() WHERE id = $1 RETURNING submitted_at`,
			task.ID,
		).Scan(&submittedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to stamp task %s submitted: %w", task.ID, err)
		}

		if submittedAt.Valid {
			task.SubmittedAt = &submittedAt.Time
		}
	}

	err = tx.Commit()
	if err != nil {
		return nil, fmt.Errorf("failed to commit claim transaction: %w", err)
	}

	return tasks, nil
}

// MarkFinished stamps a task finished after its transition was attempted.
func (tr *TaskRepository) MarkFinished(ctx context.Context, id string) error {
	query := `UPDATE tasks SET finished_at = NOW() WHERE id = $1`

	result, err := tr.db.ExecContext(ctx, query, id)
	if err != nil {
		return &persistence.TaskError{Op: "MarkFinished", TaskID: id, Err: err}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return &persistence.TaskError{Op: "MarkFinished", TaskID: id, Err: err}
	}

	if affected == 0 {
		return &persistence.TaskError{Op: "MarkFinished", TaskID: id, Err: persistence.ErrTaskNotFound}
	}

	return nil
}

// Release returns a claimed-but-uncommitted task to the unsubmitted pool.
// Finished tasks stay finished.
func (tr *TaskRepository) Release(ctx context.Context, id string) error {
	query := `UPDATE tasks SET submitted_at = NULL WHERE id = $1 AND finished_at IS NULL`

	result, err := tr.db.ExecContext(ctx, query, id)
	if err != nil {
		return &persistence.TaskError{Op: "Release", TaskID: id, Err: err}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return &persistence.TaskError{Op: "Release", TaskID: id, Err: err}
	}

	if affected == 0 {
		return &persistence.TaskError{Op: "Release", TaskID: id, Err: persistence.ErrTaskNotFound}
	}

	return nil
}

// ListByNamespace returns every task of a campaign namespace, newest first.
func (tr *TaskRepository) ListByNamespace(ctx context.Context, namespace string) ([]*models.Task, error) {
	query := `
		SELECT id, namespace, node_id, desired_status, previous_status, priority, site, created_at, submitted_at, finished_at
		FROM tasks
		WHERE namespace = $1
		ORDER BY created_at DESC
	`

	rows, err := tr.db.QueryContext(ctx, query, namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			tr.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	var tasks []*models.Task

	for rows.Next() {
		task, err := tr.scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}

		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	return tasks, nil
}

// CountUnsubmitted returns the number of queued-but-unclaimed tasks in a
// namespace.
func (tr *TaskRepository) CountUnsubmitted(ctx context.Context, namespace string) (int, error) {
	query := `SELECT COUNT(*) FROM tasks WHERE namespace = $1 AND submitted_at IS NULL`

	var count int

	err := tr.db.QueryRowContext(ctx, query, namespace).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}

		return 0, fmt.Errorf("failed to count unsubmitted tasks: %w", err)
	}

	return count, nil
}

// scanTask scans a task from a database row.
func (tr *TaskRepository) scanTask(scanner interface {
	Scan(dest ...any) error
}) (*models.Task, error) {
	var (
		task        models.Task
		submittedAt sql.NullTime
		finishedAt  sql.NullTime
	)

	err := scanner.Scan(
		&task.ID,
		&task.Namespace,
		&task.NodeID,
		&task.DesiredStatus,
		&task.PreviousStatus,
		&task.Priority,
		&task.Site,
		&task.CreatedAt,
		&submittedAt,
		&finishedAt,
	)
	if err != nil {
		return nil, err
	}

	if submittedAt.Valid {
		task.SubmittedAt = &submittedAt.Time
	}

	if finishedAt.Valid {
		task.FinishedAt = &finishedAt.Time
	}

	return &task, nil
}
