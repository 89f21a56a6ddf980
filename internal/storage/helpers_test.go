package storage

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/valter-silva-au/taskdesk/internal/core"
	"github.com/valter-silva-au/taskdesk/pkg/models"
	"golang.org/x/crypto/bcrypt"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// createTestDB opens a fresh database file under t.TempDir.
func createTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestEmployees(t *testing.T, db *DB) EmployeeRepository {
	t.Helper()
	repo := NewEmployeeRepository(db, quietLogger())
	repo.(*sqliteEmployeeRepository).cost = bcrypt.MinCost
	return repo
}

func seedEmployee(t *testing.T, repo EmployeeRepository, username string, role models.Role) *models.Employee {
	t.Helper()
	emp, err := repo.Create(context.Background(), models.Employee{
		Username: username,
		FullName: "Test " + username,
		Role:     role,
	}, "correct horse")
	require.NoError(t, err)
	return emp
}

func newStoredTask(t *testing.T, assignee *models.Employee, created time.Time) models.Task {
	t.Helper()
	id, err := NewID()
	require.NoError(t, err)
	return core.BuildTask(id, models.NewTask{
		Title:       "Stock take",
		Description: "Count the shelves",
		AssignedTo:  assignee.ID,
		AssignedBy:  "boss",
		Deadline:    created.Add(72 * time.Hour),
	}, assignee.Assignee(), created)
}
