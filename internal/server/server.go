// Package server is the reference taskdesk REST server. It owns the
// authoritative task state in SQLite and enforces the same workflow rules
// as the client views.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"github.com/valter-silva-au/taskdesk/internal/core"
	"github.com/valter-silva-au/taskdesk/internal/storage"
	"github.com/valter-silva-au/taskdesk/pkg/models"
)

// Config holds server settings.
type Config struct {
	JWTSecret      []byte
	TokenTTL       time.Duration
	AllowedOrigins []string
}

// Stores bundles the repositories the server reads and writes.
type Stores struct {
	Tasks     storage.TaskRepository
	Employees storage.EmployeeRepository
	Todos     storage.TodoRepository
	Catalog   storage.CatalogRepository
}

// StoresFor returns the SQLite repositories over db.
func StoresFor(db *storage.DB, logger logrus.FieldLogger) Stores {
	return Stores{
		Tasks:     storage.NewTaskRepository(db, logger),
		Employees: storage.NewEmployeeRepository(db, logger),
		Todos:     storage.NewTodoRepository(db, logger),
		Catalog:   storage.NewCatalogRepository(db, logger),
	}
}

// Server serves the /api routes.
type Server struct {
	cfg       Config
	tasks     storage.TaskRepository
	employees storage.EmployeeRepository
	todos     storage.TodoRepository
	catalog   storage.CatalogRepository
	events    core.EventLogger
	logger    *logrus.Logger
	router    *gin.Engine
	now       func() time.Time
}

// New builds a server over the given repositories. events may be nil.
func New(cfg Config, stores Stores, events core.EventLogger, logger *logrus.Logger) (*Server, error) {
	if len(cfg.JWTSecret) == 0 {
		return nil, fmt.Errorf("creating server: jwt secret must not be empty")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}

	s := &Server{
		cfg:       cfg,
		tasks:     stores.Tasks,
		employees: stores.Employees,
		todos:     stores.Todos,
		catalog:   stores.Catalog,
		events:    events,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(requestLogger(s.logger), recovery(s.logger))

	api := r.Group("/api")
	api.POST("/users/login", s.signIn)

	authed := api.Group("")
	authed.Use(s.authenticate())

	admin := authed.Group("")
	admin.Use(requireRole(adminRole))
	admin.GET("/users", s.listEmployees)
	admin.POST("/users", s.createEmployee)
	admin.PUT("/users/update-user/:id", s.updateEmployee)
	admin.DELETE("/users/delete-user/:id", s.deleteEmployee)
	admin.POST("/locations", s.addCatalogEntry(models.CatalogLocations))
	admin.POST("/job-categories", s.addCatalogEntry(models.CatalogJobCategories))
	admin.GET("/tasks", s.listTasks)
	admin.POST("/tasks", s.createTask)
	admin.PATCH("/tasks/:id/approve-reject", s.decideTask)
	admin.DELETE("/tasks/:id", s.deleteTask)

	authed.GET("/tasks/assigned/:employeeId", s.listAssigned)
	authed.GET("/tasks/:id", s.getTask)
	authed.PATCH("/tasks/:id", s.patchTask)
	authed.PATCH("/tasks/:id/request-approval", s.requestApproval)
	authed.GET("/users/:id", s.getEmployee)
	authed.PUT("/users/change-password", s.changePassword)
	authed.GET("/todos/:userId", s.listTodos)
	authed.POST("/todos", s.createTodo)
	authed.PATCH("/todos/:id", s.patchTodo)
	authed.DELETE("/todos/:id", s.deleteTodo)
	authed.GET("/locations", s.listCatalog(models.CatalogLocations))
	authed.GET("/job-categories", s.listCatalog(models.CatalogJobCategories))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": "route not found"})
	})
	return r
}

// Handler returns the HTTP handler with CORS applied.
func (s *Server) Handler() http.Handler {
	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowedHeaders: []string{"Origin", "Accept", "Content-Type", "Authorization", "If-Match"},
	}).Handler(s.router)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("taskdesk server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving on %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

func (s *Server) logEvent(eventType string, data map[string]any) {
	if s.events == nil {
		return
	}
	if err := s.events.LogEvent(eventType, data); err != nil {
		s.logger.WithError(err).WithField("event", eventType).Warn("writing event log")
	}
}
