package taskapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/valter-silva-au/taskdesk/internal/core"
	"github.com/valter-silva-au/taskdesk/pkg/models"
)

// decodeError maps a non-2xx response onto the core error taxonomy.
func decodeError(status int, body []byte) error {
	var payload models.ErrorResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		payload.Message = strings.TrimSpace(string(body))
	}
	msg := payload.Message

	if status == http.StatusUnauthorized || msg == InvalidTokenMessage {
		return wrapSentinel(msg, core.ErrSessionExpired)
	}

	switch status {
	case http.StatusForbidden:
		return wrapSentinel(msg, core.ErrForbidden)
	case http.StatusNotFound:
		return wrapSentinel(msg, core.ErrNotFound)
	case http.StatusConflict:
		if payload.Code == models.ErrorCodeDuplicate {
			return wrapSentinel(msg, core.ErrDuplicate)
		}
		return wrapSentinel(msg, core.ErrVersionConflict)
	case http.StatusPreconditionFailed:
		return wrapSentinel(msg, core.ErrPreconditionFailed)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		verr := &core.ValidationError{}
		for field, problem := range payload.Fields {
			verr.Add(field, problem)
		}
		if len(verr.Fields) == 0 {
			if msg == "" {
				msg = http.StatusText(status)
			}
			verr.Add("request", msg)
		}
		return verr
	}
	return &core.ServerError{Status: status, Message: msg}
}

func wrapSentinel(msg string, sentinel error) error {
	if msg == "" || strings.EqualFold(msg, sentinel.Error()) {
		return sentinel
	}
	return fmt.Errorf("%s: %w", msg, sentinel)
}

func isSessionExpired(err error) bool {
	return errors.Is(err, core.ErrSessionExpired)
}
