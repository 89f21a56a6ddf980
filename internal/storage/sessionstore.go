package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/valter-silva-au/taskdesk/pkg/models"
	"gopkg.in/yaml.v3"
)

// ErrNoSession is returned by Load when nobody is signed in.
var ErrNoSession = errors.New("not signed in")

// SessionStore persists the CLI's signed-in session between invocations.
type SessionStore interface {
	Load() (*models.Session, error)
	Save(session *models.Session) error
	Clear() error
}

type fileSessionStore struct {
	basePath string
}

// NewSessionStore creates a SessionStore backed by session.yaml in the
// given base directory.
func NewSessionStore(basePath string) SessionStore {
	return &fileSessionStore{basePath: basePath}
}

func (s *fileSessionStore) filePath() string {
	return filepath.Join(s.basePath, "session.yaml")
}

func (s *fileSessionStore) Load() (*models.Session, error) {
	data, err := os.ReadFile(s.filePath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("loading session: %w", err)
	}

	session := &models.Session{}
	if err := yaml.Unmarshal(data, session); err != nil {
		return nil, fmt.Errorf("loading session: parsing YAML: %w", err)
	}
	if session.Token == "" {
		return nil, ErrNoSession
	}
	return session, nil
}

// Save writes the session with owner-only permissions. The file is written
// to a temporary name first so a crash never leaves a truncated token.
func (s *fileSessionStore) Save(session *models.Session) error {
	if session == nil || session.Token == "" {
		return fmt.Errorf("saving session: token must not be empty")
	}
	if err := os.MkdirAll(s.basePath, 0o700); err != nil {
		return fmt.Errorf("saving session: creating directory: %w", err)
	}

	data, err := yaml.Marshal(session)
	if err != nil {
		return fmt.Errorf("saving session: marshalling YAML: %w", err)
	}
	tmp := s.filePath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	if err := os.Rename(tmp, s.filePath()); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// Clear removes the stored session. Clearing when nobody is signed in is
// not an error.
func (s *fileSessionStore) Clear() error {
	if err := os.Remove(s.filePath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}
