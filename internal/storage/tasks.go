package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/sirupsen/logrus"
	"github.com/valter-silva-au/taskdesk/internal/core"
	"github.com/valter-silva-au/taskdesk/pkg/models"
)

// TaskFilter narrows List. Empty fields match everything.
type TaskFilter struct {
	AssignedTo string
}

// TaskRepository is the authoritative task table.
type TaskRepository interface {
	Create(ctx context.Context, task models.Task) (*models.Task, error)
	Get(ctx context.Context, id string) (*models.Task, error)
	List(ctx context.Context, filter TaskFilter) ([]models.Task, error)
	// Update loads the task, checks expectedVersion, applies mutate and
	// writes the result with the version incremented, all in one
	// transaction. An error from mutate aborts the write and is returned
	// as is.
	Update(ctx context.Context, id string, expectedVersion int64, mutate func(t *models.Task) error) (*models.Task, error)
	Delete(ctx context.Context, id string) error
}

// sqlCommand is satisfied by both *sql.DB and *sql.Tx.
type sqlCommand interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

var taskColumns = []string{
	"t.id", "t.title", "t.description",
	"t.assigned_to", "e.username", "e.full_name",
	"t.assigned_by", "t.deadline", "t.status", "t.request_status",
	"t.notes", "t.approve_review", "t.decline_reason", "t.rating",
	"t.version", "t.created_at", "t.updated_at",
}

type sqliteTaskRepository struct {
	db     *sql.DB
	logger logrus.FieldLogger
	now    func() time.Time
}

// NewTaskRepository returns a TaskRepository over db.
func NewTaskRepository(db *DB, logger logrus.FieldLogger) TaskRepository {
	return &sqliteTaskRepository{
		db:     db.db,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (r *sqliteTaskRepository) selectTasks() sq.SelectBuilder {
	return sq.Select(taskColumns...).
		From("tasks t").
		Join("employees e ON e.id = t.assigned_to")
}

func (r *sqliteTaskRepository) Create(ctx context.Context, task models.Task) (*models.Task, error) {
	stmt, args, err := sq.Insert("tasks").
		Columns("id", "title", "description", "assigned_to", "assigned_by", "deadline",
			"status", "request_status", "notes", "approve_review", "decline_reason",
			"rating", "version", "created_at", "updated_at").
		Values(task.ID, task.Title, task.Description, task.AssignedTo.ID, task.AssignedBy, task.Deadline.UTC(),
			string(task.Status), string(task.RequestStatus), task.Notes, task.ApproveReview, task.DeclineReason,
			task.Rating, task.Version, task.CreatedAt.UTC(), task.UpdatedAt.UTC()).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building insert for task %s: %w", task.ID, err)
	}
	if _, err := r.db.ExecContext(ctx, stmt, args...); err != nil {
		r.logger.WithError(err).WithField("task_id", task.ID).Debug("insert task failed")
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("creating task %s: %w", task.ID, ErrDuplicate)
		}
		return nil, fmt.Errorf("creating task %s: %w", task.ID, err)
	}
	return r.Get(ctx, task.ID)
}

func (r *sqliteTaskRepository) Get(ctx context.Context, id string) (*models.Task, error) {
	return r.get(ctx, r.db, id)
}

func (r *sqliteTaskRepository) get(ctx context.Context, cmd sqlCommand, id string) (*models.Task, error) {
	stmt, args, err := r.selectTasks().Where(sq.Eq{"t.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select for task %s: %w", id, err)
	}
	tasks, err := r.query(ctx, cmd, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("loading task %s: %w", id, err)
	}
	if len(tasks) == 0 {
		return nil, fmt.Errorf("loading task %s: %w", id, core.ErrNotFound)
	}
	return &tasks[0], nil
}

func (r *sqliteTaskRepository) List(ctx context.Context, filter TaskFilter) ([]models.Task, error) {
	b := r.selectTasks().OrderBy("t.created_at", "t.id")
	if filter.AssignedTo != "" {
		b = b.Where(sq.Eq{"t.assigned_to": filter.AssignedTo})
	}
	stmt, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building task list query: %w", err)
	}
	tasks, err := r.query(ctx, r.db, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return tasks, nil
}

func (r *sqliteTaskRepository) Update(ctx context.Context, id string, expectedVersion int64, mutate func(t *models.Task) error) (*models.Task, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("updating task %s: beginning transaction: %w", id, err)
	}
	defer func() {
		// No-op once committed.
		_ = tx.Rollback()
	}()

	current, err := r.get(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if current.Version != expectedVersion {
		return nil, fmt.Errorf("updating task %s: have version %d, caller sent %d: %w",
			id, current.Version, expectedVersion, core.ErrVersionConflict)
	}

	next := current.Clone()
	if err := mutate(&next); err != nil {
		return nil, err
	}
	next.Version = current.Version + 1
	next.UpdatedAt = r.now()

	stmt, args, err := sq.Update("tasks").
		Set("title", next.Title).
		Set("description", next.Description).
		Set("deadline", next.Deadline.UTC()).
		Set("status", string(next.Status)).
		Set("request_status", string(next.RequestStatus)).
		Set("notes", next.Notes).
		Set("approve_review", next.ApproveReview).
		Set("decline_reason", next.DeclineReason).
		Set("rating", next.Rating).
		Set("version", next.Version).
		Set("updated_at", next.UpdatedAt).
		Where(sq.Eq{"id": id, "version": expectedVersion}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building update for task %s: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, stmt, args...)
	if err != nil {
		r.logger.WithError(err).WithField("task_id", id).Debug("update task failed")
		return nil, fmt.Errorf("updating task %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("updating task %s: %w", id, core.ErrVersionConflict)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("updating task %s: committing: %w", id, err)
	}
	return &next, nil
}

func (r *sqliteTaskRepository) Delete(ctx context.Context, id string) error {
	stmt, args, err := sq.Delete("tasks").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("building delete for task %s: %w", id, err)
	}
	res, err := r.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("deleting task %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting task %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("deleting task %s: %w", id, core.ErrNotFound)
	}
	return nil
}

func (r *sqliteTaskRepository) query(ctx context.Context, cmd sqlCommand, query string, args ...any) ([]models.Task, error) {
	rows, err := cmd.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.WithError(err).Debug(query)
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.WithError(err).Debug(query)
		}
	}()

	var tasks []models.Task
	for rows.Next() {
		var (
			t             models.Task
			status        string
			requestStatus string
		)
		err := rows.Scan(
			&t.ID, &t.Title, &t.Description,
			&t.AssignedTo.ID, &t.AssignedTo.Username, &t.AssignedTo.FullName,
			&t.AssignedBy, &t.Deadline, &status, &requestStatus,
			&t.Notes, &t.ApproveReview, &t.DeclineReason, &t.Rating,
			&t.Version, &t.CreatedAt, &t.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning task row: %w", err)
		}
		t.Status = models.WorkStatus(status)
		t.RequestStatus = models.RequestStatus(requestStatus)
		t.Deadline = t.Deadline.UTC()
		t.CreatedAt = t.CreatedAt.UTC()
		t.UpdatedAt = t.UpdatedAt.UTC()
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

