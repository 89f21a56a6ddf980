package core

import (
	"sync"

	"github.com/valter-silva-au/taskdesk/pkg/models"
)

// taskCache is a view's local copy of the task list. It is only ever a
// projection of the store: every entry is either a store response or an
// optimistic edit awaiting confirmation.
type taskCache struct {
	mu     sync.RWMutex
	tasks  []models.Task
	loaded bool
}

func (c *taskCache) replaceAll(tasks []models.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasks = append(make([]models.Task, 0, len(tasks)), tasks...)
	c.loaded = true
}

func (c *taskCache) isLoaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// list returns a copy of the cached tasks in store order.
func (c *taskCache) list() []models.Task {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append(make([]models.Task, 0, len(c.tasks)), c.tasks...)
}

func (c *taskCache) get(id string) (models.Task, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, t := range c.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return models.Task{}, false
}

// put replaces the task with t's id, or appends t when absent.
func (c *taskCache) put(t models.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.tasks {
		if c.tasks[i].ID == t.ID {
			c.tasks[i] = t
			return
		}
	}
	c.tasks = append(c.tasks, t)
}

// remove deletes the task with id and returns it with its former index.
func (c *taskCache) remove(id string) (models.Task, int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, t := range c.tasks {
		if t.ID == id {
			c.tasks = append(c.tasks[:i:i], c.tasks[i+1:]...)
			return t, i, true
		}
	}
	return models.Task{}, -1, false
}

// insertAt puts t back at index i, clamped to the current length.
func (c *taskCache) insertAt(i int, t models.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i > len(c.tasks) {
		i = len(c.tasks)
	}
	c.tasks = append(c.tasks[:i:i], append([]models.Task{t}, c.tasks[i:]...)...)
}
