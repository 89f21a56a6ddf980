package taskapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/valter-silva-au/taskdesk/pkg/models"
)

func todoPath(id string) string {
	return "/api/todos/" + url.PathEscape(id)
}

// ListTodos returns the to-do list of ownerID, oldest first.
func (c *Client) ListTodos(ctx context.Context, ownerID string) ([]models.Todo, error) {
	var todos []models.Todo
	if err := c.do(ctx, http.MethodGet, todoPath(ownerID), 0, nil, &todos); err != nil {
		return nil, fmt.Errorf("listing todos: %w", err)
	}
	return todos, nil
}

// CreateTodo adds an item to the signed-in employee's list.
func (c *Client) CreateTodo(ctx context.Context, title string) (*models.Todo, error) {
	var todo models.Todo
	if err := c.do(ctx, http.MethodPost, "/api/todos", 0, models.NewTodo{Title: title}, &todo); err != nil {
		return nil, fmt.Errorf("creating todo: %w", err)
	}
	return &todo, nil
}

func (c *Client) UpdateTodo(ctx context.Context, id string, patch models.TodoPatch) (*models.Todo, error) {
	var todo models.Todo
	if err := c.do(ctx, http.MethodPatch, todoPath(id), 0, patch, &todo); err != nil {
		return nil, fmt.Errorf("updating todo %s: %w", id, err)
	}
	return &todo, nil
}

func (c *Client) DeleteTodo(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, todoPath(id), 0, nil, nil); err != nil {
		return fmt.Errorf("deleting todo %s: %w", id, err)
	}
	return nil
}
