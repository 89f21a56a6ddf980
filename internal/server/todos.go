package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/valter-silva-au/taskdesk/internal/core"
	"github.com/valter-silva-au/taskdesk/pkg/models"
)

func (s *Server) listTodos(c *gin.Context) {
	caller := callerFrom(c)
	ownerID := c.Param("userId")
	if caller.Role != models.RoleAdmin && caller.ID != ownerID {
		s.writeError(c, fmt.Errorf("listing todos of %s: %w", ownerID, core.ErrForbidden))
		return
	}
	todos, err := s.todos.List(c.Request.Context(), ownerID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, todos)
}

// createTodo always files the item under the caller; a userId in the body
// is ignored.
func (s *Server) createTodo(c *gin.Context) {
	var req models.NewTodo
	if !s.bind(c, &req) {
		return
	}
	todo, err := s.todos.Create(c.Request.Context(), callerFrom(c).ID, req.Title)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, todo)
}

func (s *Server) patchTodo(c *gin.Context) {
	var patch models.TodoPatch
	if !s.bind(c, &patch) {
		return
	}
	if !s.ownTodo(c) {
		return
	}
	todo, err := s.todos.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, todo)
}

func (s *Server) deleteTodo(c *gin.Context) {
	if !s.ownTodo(c) {
		return
	}
	if err := s.todos.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Todo deleted successfully"})
}

// ownTodo writes an error and returns false unless the caller owns the
// to-do item named in the path. Administrators get no exception.
func (s *Server) ownTodo(c *gin.Context) bool {
	todo, err := s.todos.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return false
	}
	if todo.OwnerID != callerFrom(c).ID {
		s.writeError(c, fmt.Errorf("changing todo %s: %w", todo.ID, core.ErrForbidden))
		return false
	}
	return true
}
