package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/valter-silva-au/taskdesk/internal/core"
	"github.com/valter-silva-au/taskdesk/internal/storage"
	"github.com/valter-silva-au/taskdesk/pkg/models"
)

func (s *Server) listTasks(c *gin.Context) {
	tasks, err := s.tasks.List(c.Request.Context(), storage.TaskFilter{})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (s *Server) listAssigned(c *gin.Context) {
	caller := callerFrom(c)
	employeeID := c.Param("employeeId")
	if caller.Role != models.RoleAdmin && caller.ID != employeeID {
		s.writeError(c, fmt.Errorf("listing tasks of %s: %w", employeeID, core.ErrForbidden))
		return
	}
	tasks, err := s.tasks.List(c.Request.Context(), storage.TaskFilter{AssignedTo: employeeID})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (s *Server) getTask(c *gin.Context) {
	caller := callerFrom(c)
	task, err := s.tasks.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	if caller.Role != models.RoleAdmin && task.AssignedTo.ID != caller.ID {
		s.writeError(c, fmt.Errorf("reading task %s: %w", task.ID, core.ErrNotAssignee))
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) createTask(c *gin.Context) {
	ctx := c.Request.Context()
	caller := callerFrom(c)

	var nt models.NewTask
	if !s.bind(c, &nt) {
		return
	}
	if err := core.ValidateNewTask(nt); err != nil {
		s.writeError(c, err)
		return
	}
	assignee, err := s.employees.Get(ctx, nt.AssignedTo)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			err = core.NewValidationError("assignedTo", "is not a known employee")
		}
		s.writeError(c, err)
		return
	}
	if nt.AssignedBy == "" {
		nt.AssignedBy = caller.Username
	}

	id, err := storage.NewID()
	if err != nil {
		s.writeError(c, err)
		return
	}
	created, err := s.tasks.Create(ctx, core.BuildTask(id, nt, assignee.Assignee(), s.now()))
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.logEvent(core.EventTaskCreated, map[string]any{
		"task_id":     created.ID,
		"title":       created.Title,
		"assignee_id": created.AssignedTo.ID,
		"assigned_by": caller.ID,
		"deadline":    created.Deadline,
	})
	c.JSON(http.StatusCreated, created)
}

// patchTask serves both the administrator edit and the assignee progress
// update; each half is authorised on its own.
func (s *Server) patchTask(c *gin.Context) {
	caller := callerFrom(c)
	taskID := c.Param("id")

	var patch models.TaskPatch
	if !s.bind(c, &patch) {
		return
	}
	if !patch.IsEdit() && !patch.IsStatusUpdate() {
		s.writeError(c, core.NewValidationError("body", "must change title, description, deadline, status or notes"))
		return
	}
	if patch.IsEdit() && caller.Role != models.RoleAdmin {
		s.writeError(c, fmt.Errorf("editing task %s: %w", taskID, core.ErrForbidden))
		return
	}

	var before models.Task
	updated, err := s.update(c, taskID, patch.Version, func(t *models.Task) error {
		before = *t
		if patch.IsEdit() {
			if err := core.ApplyEdit(t, patch.Edit()); err != nil {
				return err
			}
		}
		if patch.IsStatusUpdate() {
			return core.ApplyStatusUpdate(t, caller.ID, patch.StatusUpdate())
		}
		return nil
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	if patch.IsEdit() {
		s.logEvent(core.EventTaskEdited, map[string]any{
			"task_id":     updated.ID,
			"employee_id": caller.ID,
		})
	}
	if patch.IsStatusUpdate() {
		s.logEvent(core.EventStatusChanged, map[string]any{
			"task_id":     updated.ID,
			"employee_id": caller.ID,
			"old_status":  string(before.Status),
			"new_status":  string(updated.Status),
		})
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) requestApproval(c *gin.Context) {
	caller := callerFrom(c)
	taskID := c.Param("id")

	var req models.ApprovalRequest
	if c.Request.ContentLength != 0 {
		if !s.bind(c, &req) {
			return
		}
	}
	if req.RequestStatus != "" && req.RequestStatus != models.RequestRequested {
		s.writeError(c, core.NewValidationError("requestStatus", fmt.Sprintf("must be %q", models.RequestRequested)))
		return
	}

	updated, err := s.update(c, taskID, req.Version, func(t *models.Task) error {
		return core.ApplyApprovalRequest(t, caller.ID)
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.logEvent(core.EventApprovalRequested, map[string]any{
		"task_id":     updated.ID,
		"employee_id": caller.ID,
	})
	c.JSON(http.StatusOK, updated)
}

func (s *Server) decideTask(c *gin.Context) {
	caller := callerFrom(c)
	taskID := c.Param("id")

	var req models.DecisionRequest
	if !s.bind(c, &req) {
		return
	}
	review, err := core.NormalizeReview(req.Review())
	if err != nil {
		s.writeError(c, err)
		return
	}

	updated, err := s.update(c, taskID, req.Version, func(t *models.Task) error {
		return core.ApplyReview(t, review)
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.logEvent(core.EventTaskDecided, map[string]any{
		"task_id":     updated.ID,
		"assignee_id": updated.AssignedTo.ID,
		"decided_by":  caller.ID,
		"decision":    string(review.Decision),
		"rating":      review.Rating,
	})
	c.JSON(http.StatusOK, updated)
}

func (s *Server) deleteTask(c *gin.Context) {
	caller := callerFrom(c)
	taskID := c.Param("id")
	if err := s.tasks.Delete(c.Request.Context(), taskID); err != nil {
		s.writeError(c, err)
		return
	}
	s.logEvent(core.EventTaskDeleted, map[string]any{
		"task_id":     taskID,
		"employee_id": caller.ID,
	})
	c.JSON(http.StatusOK, gin.H{"message": "Task deleted"})
}

// update runs mutate against the version the caller saw. The version comes
// from the body or the If-Match header; a request carrying neither is
// applied to whatever version is current.
func (s *Server) update(c *gin.Context, taskID string, bodyVersion int64, mutate func(*models.Task) error) (*models.Task, error) {
	ctx := c.Request.Context()
	version, err := expectedVersion(c, bodyVersion)
	if err != nil {
		return nil, err
	}
	if version == 0 {
		version, err = s.currentVersion(ctx, taskID)
		if err != nil {
			return nil, err
		}
	}
	return s.tasks.Update(ctx, taskID, version, mutate)
}

func (s *Server) currentVersion(ctx context.Context, taskID string) (int64, error) {
	t, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return 0, err
	}
	return t.Version, nil
}

func expectedVersion(c *gin.Context, bodyVersion int64) (int64, error) {
	if bodyVersion > 0 {
		return bodyVersion, nil
	}
	header := strings.TrimSpace(c.GetHeader("If-Match"))
	if header == "" {
		return 0, nil
	}
	header = strings.Trim(strings.TrimPrefix(header, "W/"), `"`)
	v, err := strconv.ParseInt(header, 10, 64)
	if err != nil || v <= 0 {
		return 0, core.NewValidationError("If-Match", "must be a positive task version")
	}
	return v, nil
}
