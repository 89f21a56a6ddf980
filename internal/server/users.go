package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/valter-silva-au/taskdesk/internal/core"
	"github.com/valter-silva-au/taskdesk/pkg/models"
)

func (s *Server) signIn(c *gin.Context) {
	var req models.SignInRequest
	if !s.bind(c, &req) {
		return
	}
	emp, err := s.employees.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		s.writeError(c, err)
		return
	}
	token, err := s.issueToken(emp)
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.logger.WithField("employee_id", emp.ID).Info("employee signed in")
	c.JSON(http.StatusOK, models.SignInResponse{Token: token, User: *emp})
}

func (s *Server) listEmployees(c *gin.Context) {
	emps, err := s.employees.List(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, emps)
}

func (s *Server) getEmployee(c *gin.Context) {
	caller := callerFrom(c)
	id := c.Param("id")
	if caller.Role != models.RoleAdmin && caller.ID != id {
		s.writeError(c, fmt.Errorf("reading employee %s: %w", id, core.ErrForbidden))
		return
	}
	emp, err := s.employees.Get(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, emp)
}

func (s *Server) createEmployee(c *gin.Context) {
	var req models.NewEmployee
	if !s.bind(c, &req) {
		return
	}
	if err := s.checkCatalogRefs(c.Request.Context(), req.Location, req.JobCategory); err != nil {
		s.writeError(c, err)
		return
	}
	emp, err := s.employees.Create(c.Request.Context(), req.Employee(), req.Password)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, emp)
}

func (s *Server) updateEmployee(c *gin.Context) {
	ctx := c.Request.Context()
	var upd models.EmployeeUpdate
	if !s.bind(c, &upd) {
		return
	}
	if err := s.checkCatalogRefs(ctx, deref(upd.Location), deref(upd.JobCategory)); err != nil {
		s.writeError(c, err)
		return
	}
	emp, err := s.employees.Update(ctx, c.Param("id"), upd)
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.logEvent("employee.updated", map[string]any{"employee_id": emp.ID, "by": callerFrom(c).Username})
	c.JSON(http.StatusOK, emp)
}

// deleteEmployee refuses while the employee still holds tasks; the admin
// deletes or reassigns those first. Their to-do items go with them.
func (s *Server) deleteEmployee(c *gin.Context) {
	caller := callerFrom(c)
	id := c.Param("id")
	if caller.ID == id {
		s.writeError(c, fmt.Errorf("deleting employee %s: cannot delete your own account: %w", id, core.ErrPreconditionFailed))
		return
	}
	if err := s.employees.Delete(c.Request.Context(), id); err != nil {
		s.writeError(c, err)
		return
	}
	s.logEvent("employee.deleted", map[string]any{"employee_id": id, "by": caller.Username})
	c.JSON(http.StatusOK, gin.H{"message": "Employee deleted successfully"})
}

func (s *Server) changePassword(c *gin.Context) {
	caller := callerFrom(c)
	var req models.PasswordChange
	if !s.bind(c, &req) {
		return
	}
	if err := s.employees.ChangePassword(c.Request.Context(), caller.ID, req.CurrentPassword, req.NewPassword); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}

// checkCatalogRefs requires a non-empty location or job category to name
// an existing catalog entry.
func (s *Server) checkCatalogRefs(ctx context.Context, location, jobCategory string) error {
	verr := &core.ValidationError{}
	refs := []struct {
		field string
		kind  models.CatalogKind
		name  string
	}{
		{"location", models.CatalogLocations, location},
		{"jobCategory", models.CatalogJobCategories, jobCategory},
	}
	for _, ref := range refs {
		if strings.TrimSpace(ref.name) == "" {
			continue
		}
		ok, err := s.catalog.Exists(ctx, ref.kind, ref.name)
		if err != nil {
			return err
		}
		if !ok {
			verr.Add(ref.field, fmt.Sprintf("%q is not a known %s", ref.name, ref.kind.Singular()))
		}
	}
	return verr.OrNil()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
