package taskapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/valter-silva-au/taskdesk/pkg/models"
)

// GetEmployee loads one directory record. Employees may only load their own.
func (c *Client) GetEmployee(ctx context.Context, id string) (*models.Employee, error) {
	var emp models.Employee
	if err := c.do(ctx, http.MethodGet, "/api/users/"+url.PathEscape(id), 0, nil, &emp); err != nil {
		return nil, fmt.Errorf("loading employee %s: %w", id, err)
	}
	return &emp, nil
}

func (c *Client) UpdateEmployee(ctx context.Context, id string, upd models.EmployeeUpdate) (*models.Employee, error) {
	var emp models.Employee
	if err := c.do(ctx, http.MethodPut, "/api/users/update-user/"+url.PathEscape(id), 0, upd, &emp); err != nil {
		return nil, fmt.Errorf("updating employee %s: %w", id, err)
	}
	return &emp, nil
}

// DeleteEmployee fails with core.ErrPreconditionFailed while the employee
// still has tasks assigned.
func (c *Client) DeleteEmployee(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/api/users/delete-user/"+url.PathEscape(id), 0, nil, nil); err != nil {
		return fmt.Errorf("deleting employee %s: %w", id, err)
	}
	return nil
}

// ChangePassword changes the signed-in employee's password. A wrong
// current password comes back as a *core.ValidationError, not as an
// expired session.
func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	body := models.PasswordChange{CurrentPassword: current, NewPassword: next}
	if err := c.do(ctx, http.MethodPut, "/api/users/change-password", 0, body, nil); err != nil {
		return fmt.Errorf("changing password: %w", err)
	}
	return nil
}

func (c *Client) ListCatalog(ctx context.Context, kind models.CatalogKind) ([]models.CatalogEntry, error) {
	var entries []models.CatalogEntry
	if err := c.do(ctx, http.MethodGet, "/api/"+string(kind), 0, nil, &entries); err != nil {
		return nil, fmt.Errorf("listing %s: %w", kind, err)
	}
	return entries, nil
}

func (c *Client) AddCatalogEntry(ctx context.Context, kind models.CatalogKind, name string) (*models.CatalogEntry, error) {
	var entry models.CatalogEntry
	if err := c.do(ctx, http.MethodPost, "/api/"+string(kind), 0, models.CatalogEntryRequest{Name: name}, &entry); err != nil {
		return nil, fmt.Errorf("adding %s %q: %w", kind.Singular(), name, err)
	}
	return &entry, nil
}
