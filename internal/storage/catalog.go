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

// CatalogRepository holds the locations and job categories an employee
// record may name. Names are unique per kind, ignoring case.
type CatalogRepository interface {
	List(ctx context.Context, kind models.CatalogKind) ([]models.CatalogEntry, error)
	Add(ctx context.Context, kind models.CatalogKind, name string) (*models.CatalogEntry, error)
	Exists(ctx context.Context, kind models.CatalogKind, name string) (bool, error)
}

type sqliteCatalogRepository struct {
	db     *sql.DB
	logger logrus.FieldLogger
}

// NewCatalogRepository returns a CatalogRepository over db.
func NewCatalogRepository(db *DB, logger logrus.FieldLogger) CatalogRepository {
	return &sqliteCatalogRepository{db: db.db, logger: logger}
}

func (r *sqliteCatalogRepository) List(ctx context.Context, kind models.CatalogKind) ([]models.CatalogEntry, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("listing %s: %w", kind, core.ErrNotFound)
	}
	stmt, args, err := sq.Select("id", "name", "created_at").From("catalog_entries").
		Where(sq.Eq{"kind": string(kind)}).
		OrderBy("name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building %s query: %w", kind, err)
	}
	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", kind, err)
	}
	defer rows.Close()

	entries := []models.CatalogEntry{}
	for rows.Next() {
		var e models.CatalogEntry
		if err := rows.Scan(&e.ID, &e.Name, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", kind, err)
		}
		e.CreatedAt = e.CreatedAt.UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *sqliteCatalogRepository) Add(ctx context.Context, kind models.CatalogKind, name string) (*models.CatalogEntry, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("adding to %s: %w", kind, core.ErrNotFound)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("adding %s: %w", kind.Singular(), core.NewValidationError("name", "is required"))
	}
	id, err := NewID()
	if err != nil {
		return nil, fmt.Errorf("adding %s %q: %w", kind.Singular(), name, err)
	}
	entry := models.CatalogEntry{ID: id, Name: name, CreatedAt: time.Now().UTC()}

	stmt, args, err := sq.Insert("catalog_entries").
		Columns("id", "kind", "name", "created_at").
		Values(entry.ID, string(kind), entry.Name, entry.CreatedAt).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building insert for %s: %w", kind.Singular(), err)
	}
	if _, err := r.db.ExecContext(ctx, stmt, args...); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("adding %s %q: %w", kind.Singular(), name, ErrDuplicate)
		}
		return nil, fmt.Errorf("adding %s %q: %w", kind.Singular(), name, err)
	}
	r.logger.WithField("kind", kind).WithField("name", name).Info("catalog entry added")
	return &entry, nil
}

func (r *sqliteCatalogRepository) Exists(ctx context.Context, kind models.CatalogKind, name string) (bool, error) {
	stmt, args, err := sq.Select("COUNT(*)").From("catalog_entries").
		Where(sq.Eq{"kind": string(kind), "name": strings.TrimSpace(name)}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("building %s lookup: %w", kind, err)
	}
	var n int
	if err := r.db.QueryRowContext(ctx, stmt, args...).Scan(&n); err != nil {
		return false, fmt.Errorf("looking up %s %q: %w", kind.Singular(), name, err)
	}
	return n > 0, nil
}
