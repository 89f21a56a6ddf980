package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/sirupsen/logrus"
	"github.com/valter-silva-au/taskdesk/internal/core"
	"github.com/valter-silva-au/taskdesk/pkg/models"
	"golang.org/x/crypto/bcrypt"
)

// EmployeeRepository is the employee directory used to resolve assignees
// and authenticate sign-ins.
type EmployeeRepository interface {
	Create(ctx context.Context, emp models.Employee, password string) (*models.Employee, error)
	Get(ctx context.Context, id string) (*models.Employee, error)
	GetByUsername(ctx context.Context, username string) (*models.Employee, error)
	List(ctx context.Context) ([]models.Employee, error)
	Authenticate(ctx context.Context, username, password string) (*models.Employee, error)
	// Update changes profile fields and the role. The username and password
	// are not touched.
	Update(ctx context.Context, id string, upd models.EmployeeUpdate) (*models.Employee, error)
	// Delete removes an employee and their to-do items. An employee who is
	// still assigned tasks cannot be deleted; the tasks must be removed
	// first.
	Delete(ctx context.Context, id string) error
	// ChangePassword replaces the password after checking the current one.
	ChangePassword(ctx context.Context, id, current, next string) error
}

var employeeColumns = []string{
	"id", "username", "full_name", "email", "phone", "job_title", "location", "job_category",
	"role", "password_hash", "created_at",
}

const minPasswordLen = 8

type sqliteEmployeeRepository struct {
	db     *sql.DB
	logger logrus.FieldLogger
	cost   int
}

// NewEmployeeRepository returns an EmployeeRepository over db.
func NewEmployeeRepository(db *DB, logger logrus.FieldLogger) EmployeeRepository {
	return &sqliteEmployeeRepository{db: db.db, logger: logger, cost: bcrypt.DefaultCost}
}

func (r *sqliteEmployeeRepository) Create(ctx context.Context, emp models.Employee, password string) (*models.Employee, error) {
	emp.Username = strings.TrimSpace(emp.Username)
	verr := &core.ValidationError{}
	if emp.Username == "" {
		verr.Add("username", "is required")
	}
	if strings.TrimSpace(emp.FullName) == "" {
		verr.Add("fullName", "is required")
	}
	if !emp.Role.Valid() {
		verr.Add("role", fmt.Sprintf("%q is not a role", emp.Role))
	}
	if len(password) < minPasswordLen {
		verr.Add("password", fmt.Sprintf("must be at least %d characters", minPasswordLen))
	}
	if err := verr.OrNil(); err != nil {
		return nil, fmt.Errorf("creating employee: %w", err)
	}

	if emp.ID == "" {
		id, err := NewID()
		if err != nil {
			return nil, fmt.Errorf("creating employee %s: %w", emp.Username, err)
		}
		emp.ID = id
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), r.cost)
	if err != nil {
		return nil, fmt.Errorf("hashing password for %s: %w", emp.Username, err)
	}
	emp.PasswordHash = string(hash)
	if emp.CreatedAt.IsZero() {
		emp.CreatedAt = time.Now().UTC()
	}

	stmt, args, err := sq.Insert("employees").
		Columns(employeeColumns...).
		Values(emp.ID, emp.Username, emp.FullName, emp.Email, emp.Phone, emp.JobTitle, emp.Location, emp.JobCategory,
			string(emp.Role), emp.PasswordHash, emp.CreatedAt.UTC()).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building insert for employee %s: %w", emp.Username, err)
	}
	if _, err := r.db.ExecContext(ctx, stmt, args...); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("creating employee %s: %w", emp.Username, ErrDuplicate)
		}
		return nil, fmt.Errorf("creating employee %s: %w", emp.Username, err)
	}
	r.logger.WithField("employee_id", emp.ID).WithField("role", emp.Role).Info("employee created")
	return &emp, nil
}

func (r *sqliteEmployeeRepository) Get(ctx context.Context, id string) (*models.Employee, error) {
	return r.getOne(ctx, sq.Eq{"id": id}, id)
}

func (r *sqliteEmployeeRepository) GetByUsername(ctx context.Context, username string) (*models.Employee, error) {
	return r.getOne(ctx, sq.Eq{"username": strings.TrimSpace(username)}, username)
}

func (r *sqliteEmployeeRepository) getOne(ctx context.Context, where sq.Eq, key string) (*models.Employee, error) {
	stmt, args, err := sq.Select(employeeColumns...).From("employees").Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building employee query: %w", err)
	}
	emps, err := r.query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("loading employee %s: %w", key, err)
	}
	if len(emps) == 0 {
		return nil, fmt.Errorf("loading employee %s: %w", key, core.ErrNotFound)
	}
	return &emps[0], nil
}

func (r *sqliteEmployeeRepository) List(ctx context.Context) ([]models.Employee, error) {
	stmt, args, err := sq.Select(employeeColumns...).From("employees").OrderBy("username").ToSql()
	if err != nil {
		return nil, fmt.Errorf("building employee list query: %w", err)
	}
	emps, err := r.query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("listing employees: %w", err)
	}
	if emps == nil {
		emps = []models.Employee{}
	}
	return emps, nil
}

// Authenticate returns the employee when password matches the stored hash.
// Unknown usernames and wrong passwords both yield core.ErrInvalidCredentials.
func (r *sqliteEmployeeRepository) Authenticate(ctx context.Context, username, password string) (*models.Employee, error) {
	emp, err := r.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(emp.PasswordHash), []byte(password)); err != nil {
		return nil, core.ErrInvalidCredentials
	}
	return emp, nil
}

func (r *sqliteEmployeeRepository) Update(ctx context.Context, id string, upd models.EmployeeUpdate) (*models.Employee, error) {
	if upd.IsEmpty() {
		return nil, fmt.Errorf("updating employee %s: %w", id, core.NewValidationError("request", "no fields to update"))
	}
	emp, err := r.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("updating employee %s: %w", id, err)
	}
	upd.Apply(emp)
	emp.FullName = strings.TrimSpace(emp.FullName)

	verr := &core.ValidationError{}
	if emp.FullName == "" {
		verr.Add("fullName", "must not be empty")
	}
	if !emp.Role.Valid() {
		verr.Add("role", fmt.Sprintf("%q is not a role", emp.Role))
	}
	if err := verr.OrNil(); err != nil {
		return nil, fmt.Errorf("updating employee %s: %w", id, err)
	}

	stmt, args, err := sq.Update("employees").SetMap(map[string]any{
		"full_name":    emp.FullName,
		"email":        emp.Email,
		"phone":        emp.Phone,
		"job_title":    emp.JobTitle,
		"location":     emp.Location,
		"job_category": emp.JobCategory,
		"role":         string(emp.Role),
	}).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building update for employee %s: %w", id, err)
	}
	if _, err := r.db.ExecContext(ctx, stmt, args...); err != nil {
		return nil, fmt.Errorf("updating employee %s: %w", id, err)
	}
	r.logger.WithField("employee_id", id).Info("employee updated")
	return emp, nil
}

func (r *sqliteEmployeeRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("deleting employee %s: %w", id, err)
	}
	defer tx.Rollback()

	stmt, args, err := sq.Select("COUNT(*)").From("tasks").Where(sq.Eq{"assigned_to": id}).ToSql()
	if err != nil {
		return fmt.Errorf("building task count for employee %s: %w", id, err)
	}
	var assigned int
	if err := tx.QueryRowContext(ctx, stmt, args...).Scan(&assigned); err != nil {
		return fmt.Errorf("counting tasks of employee %s: %w", id, err)
	}
	if assigned > 0 {
		return fmt.Errorf("deleting employee %s: still assigned %d task(s): %w", id, assigned, core.ErrPreconditionFailed)
	}

	stmt, args, err = sq.Delete("employees").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("building delete for employee %s: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("deleting employee %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("deleting employee %s: %w", id, core.ErrNotFound)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing delete of employee %s: %w", id, err)
	}
	r.logger.WithField("employee_id", id).Info("employee deleted")
	return nil
}

func (r *sqliteEmployeeRepository) ChangePassword(ctx context.Context, id, current, next string) error {
	emp, err := r.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("changing password of %s: %w", id, err)
	}
	// A wrong current password is a form error, not a failed sign-in; the
	// caller's session stays valid.
	if err := bcrypt.CompareHashAndPassword([]byte(emp.PasswordHash), []byte(current)); err != nil {
		return fmt.Errorf("changing password of %s: %w", emp.Username, core.NewValidationError("currentPassword", "is incorrect"))
	}
	if len(next) < minPasswordLen {
		return fmt.Errorf("changing password of %s: %w", emp.Username,
			core.NewValidationError("newPassword", fmt.Sprintf("must be at least %d characters", minPasswordLen)))
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), r.cost)
	if err != nil {
		return fmt.Errorf("hashing password for %s: %w", emp.Username, err)
	}

	stmt, args, err := sq.Update("employees").Set("password_hash", string(hash)).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("building password update for %s: %w", emp.Username, err)
	}
	if _, err := r.db.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("changing password of %s: %w", emp.Username, err)
	}
	r.logger.WithField("employee_id", id).Info("password changed")
	return nil
}

func (r *sqliteEmployeeRepository) query(ctx context.Context, query string, args ...any) ([]models.Employee, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.WithError(err).Debug(query)
		return nil, err
	}
	defer rows.Close()

	var emps []models.Employee
	for rows.Next() {
		var (
			e    models.Employee
			role string
		)
		if err := rows.Scan(&e.ID, &e.Username, &e.FullName, &e.Email, &e.Phone, &e.JobTitle, &e.Location, &e.JobCategory,
			&role, &e.PasswordHash, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning employee row: %w", err)
		}
		e.Role = models.Role(role)
		e.CreatedAt = e.CreatedAt.UTC()
		emps = append(emps, e)
	}
	return emps, rows.Err()
}
