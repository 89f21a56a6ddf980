package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/sirupsen/logrus"
	"github.com/valter-silva-au/taskdesk/internal/core"
	"github.com/valter-silva-au/taskdesk/pkg/models"
)

// TodoRepository stores each employee's personal to-do list. Items are
// removed with their owner.
type TodoRepository interface {
	List(ctx context.Context, ownerID string) ([]models.Todo, error)
	Get(ctx context.Context, id string) (*models.Todo, error)
	Create(ctx context.Context, ownerID, title string) (*models.Todo, error)
	Update(ctx context.Context, id string, patch models.TodoPatch) (*models.Todo, error)
	Delete(ctx context.Context, id string) error
}

var todoColumns = []string{"id", "owner_id", "title", "completed", "created_at", "updated_at"}

type sqliteTodoRepository struct {
	db     *sql.DB
	logger logrus.FieldLogger
	now    func() time.Time
}

// NewTodoRepository returns a TodoRepository over db.
func NewTodoRepository(db *DB, logger logrus.FieldLogger) TodoRepository {
	return &sqliteTodoRepository{
		db:     db.db,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (r *sqliteTodoRepository) List(ctx context.Context, ownerID string) ([]models.Todo, error) {
	stmt, args, err := sq.Select(todoColumns...).From("todos").
		Where(sq.Eq{"owner_id": ownerID}).
		OrderBy("created_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building todo list query: %w", err)
	}
	todos, err := r.query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("listing todos of %s: %w", ownerID, err)
	}
	if todos == nil {
		todos = []models.Todo{}
	}
	return todos, nil
}

func (r *sqliteTodoRepository) Get(ctx context.Context, id string) (*models.Todo, error) {
	stmt, args, err := sq.Select(todoColumns...).From("todos").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select for todo %s: %w", id, err)
	}
	todos, err := r.query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("loading todo %s: %w", id, err)
	}
	if len(todos) == 0 {
		return nil, fmt.Errorf("loading todo %s: %w", id, core.ErrNotFound)
	}
	return &todos[0], nil
}

func (r *sqliteTodoRepository) Create(ctx context.Context, ownerID, title string) (*models.Todo, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("creating todo: %w", core.NewValidationError("title", "is required"))
	}
	id, err := NewID()
	if err != nil {
		return nil, fmt.Errorf("creating todo: %w", err)
	}
	now := r.now()
	todo := models.Todo{ID: id, OwnerID: ownerID, Title: title, CreatedAt: now, UpdatedAt: now}

	stmt, args, err := sq.Insert("todos").
		Columns(todoColumns...).
		Values(todo.ID, todo.OwnerID, todo.Title, todo.Completed, todo.CreatedAt, todo.UpdatedAt).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building insert for todo: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, stmt, args...); err != nil {
		return nil, fmt.Errorf("creating todo for %s: %w", ownerID, err)
	}
	r.logger.WithField("todo_id", id).WithField("owner_id", ownerID).Debug("todo created")
	return &todo, nil
}

func (r *sqliteTodoRepository) Update(ctx context.Context, id string, patch models.TodoPatch) (*models.Todo, error) {
	if patch.IsEmpty() {
		return nil, fmt.Errorf("updating todo %s: %w", id, core.NewValidationError("request", "no fields to update"))
	}
	todo, err := r.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("updating todo %s: %w", id, err)
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, fmt.Errorf("updating todo %s: %w", id, core.NewValidationError("title", "must not be empty"))
		}
		todo.Title = title
	}
	if patch.Completed != nil {
		todo.Completed = *patch.Completed
	}
	todo.UpdatedAt = r.now()

	stmt, args, err := sq.Update("todos").
		Set("title", todo.Title).
		Set("completed", todo.Completed).
		Set("updated_at", todo.UpdatedAt).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building update for todo %s: %w", id, err)
	}
	if _, err := r.db.ExecContext(ctx, stmt, args...); err != nil {
		return nil, fmt.Errorf("updating todo %s: %w", id, err)
	}
	return todo, nil
}

func (r *sqliteTodoRepository) Delete(ctx context.Context, id string) error {
	stmt, args, err := sq.Delete("todos").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("building delete for todo %s: %w", id, err)
	}
	res, err := r.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("deleting todo %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("deleting todo %s: %w", id, core.ErrNotFound)
	}
	return nil
}

func (r *sqliteTodoRepository) query(ctx context.Context, query string, args ...any) ([]models.Todo, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.WithError(err).Debug(query)
		return nil, err
	}
	defer rows.Close()

	var todos []models.Todo
	for rows.Next() {
		var t models.Todo
		if err := rows.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Completed, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning todo row: %w", err)
		}
		t.CreatedAt = t.CreatedAt.UTC()
		t.UpdatedAt = t.UpdatedAt.UTC()
		todos = append(todos, t)
	}
	return todos, rows.Err()
}
