package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/valter-silva-au/taskdesk/internal/core"
	"github.com/valter-silva-au/taskdesk/pkg/models"
)

// statusFor maps an error onto the HTTP status the client decodes back
// into the same error.
func statusFor(err error) int {
	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrInvalidCredentials), errors.Is(err, core.ErrSessionExpired):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrVersionConflict), errors.Is(err, core.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, core.ErrPreconditionFailed):
		return http.StatusPreconditionFailed
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	resp := models.ErrorResponse{Message: err.Error()}

	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		resp.Fields = verr.Fields
	case errors.Is(err, core.ErrSessionExpired):
		resp.Message = InvalidTokenMessage
	case errors.Is(err, core.ErrInvalidCredentials):
		resp.Message = core.ErrInvalidCredentials.Error()
	case errors.Is(err, core.ErrDuplicate):
		resp.Code = models.ErrorCodeDuplicate
	case errors.Is(err, core.ErrVersionConflict):
		resp.Code = models.ErrorCodeVersionConflict
	case status == http.StatusInternalServerError:
		s.logger.WithError(err).WithField("path", c.Request.URL.Path).Error("request failed")
		resp.Message = "internal server error"
	}
	c.AbortWithStatusJSON(status, resp)
}

// bind decodes the JSON body into dst and validates it. Malformed JSON is
// answered with 422 and failed validation with 400.
func (s *Server) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, models.ErrorResponse{
			Message: fmt.Sprintf("invalid request body: %v", err),
		})
		return false
	}
	if err := s.validateStruct(dst); err != nil {
		s.writeError(c, err)
		return false
	}
	return true
}

func (s *Server) validateStruct(v any) error {
	return core.ValidateStruct(v)
}
