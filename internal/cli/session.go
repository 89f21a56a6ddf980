package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/taskdesk/internal/core"
	"github.com/valter-silva-au/taskdesk/internal/storage"
	"github.com/valter-silva-au/taskdesk/internal/taskapi"
	"github.com/valter-silva-au/taskdesk/pkg/models"
)

// apiClient returns an unauthenticated client for the configured backend.
func apiClient() (*taskapi.Client, error) {
	if Config == nil {
		return nil, fmt.Errorf("configuration not initialized")
	}
	opts := []taskapi.Option{taskapi.WithLogger(logger())}
	if Config.RequestTimeout > 0 {
		opts = append(opts, taskapi.WithTimeout(time.Duration(Config.RequestTimeout)*time.Second))
	}
	return taskapi.New(Config.BackendURL, opts...), nil
}

// currentSession loads the signed-in session.
func currentSession() (*models.Session, error) {
	if Sessions == nil {
		return nil, fmt.Errorf("session store not initialized")
	}
	session, err := Sessions.Load()
	if err != nil {
		if errors.Is(err, storage.ErrNoSession) {
			return nil, fmt.Errorf("not signed in: run `taskdesk signin` first")
		}
		return nil, err
	}
	return session, nil
}

func sessionClient() (*taskapi.Client, *models.Session, error) {
	session, err := currentSession()
	if err != nil {
		return nil, nil, err
	}
	client, err := apiClient()
	if err != nil {
		return nil, nil, err
	}
	return client.ForSession(session), session, nil
}

func employeeView() (*core.EmployeeView, error) {
	client, session, err := sessionClient()
	if err != nil {
		return nil, err
	}
	return core.NewEmployeeView(client, session, Events), nil
}

func adminView() (*core.AdminView, error) {
	client, session, err := sessionClient()
	if err != nil {
		return nil, err
	}
	view, err := core.NewAdminView(client, session, Events)
	if err != nil {
		return nil, fmt.Errorf("%s is not an administrator: %w", session.Employee.Username, err)
	}
	return view, nil
}

// checkSession clears the stored session when err says the server no
// longer accepts its token.
func checkSession(err error) error {
	if err == nil || !errors.Is(err, core.ErrSessionExpired) {
		return err
	}
	if Sessions != nil {
		if clearErr := Sessions.Clear(); clearErr != nil {
			logger().WithError(clearErr).Warn("clearing expired session")
		}
	}
	return fmt.Errorf("%w: run `taskdesk signin` again", err)
}

// withSession wraps a RunE so session expiry is handled in one place.
func withSession(run func(cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return checkSession(run(cmd, args))
	}
}
