package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/valter-silva-au/taskdesk/internal/core"
	"github.com/valter-silva-au/taskdesk/pkg/models"
)

// InvalidTokenMessage is sent with every 401 caused by a bad bearer token.
const InvalidTokenMessage = "Invalid or expired token"

const (
	callerKey = "caller"
	adminRole = models.RoleAdmin
)

type tokenClaims struct {
	EmployeeID string      `json:"employee_id"`
	Role       models.Role `json:"role"`
	jwt.RegisteredClaims
}

func (s *Server) issueToken(emp *models.Employee) (string, error) {
	now := s.now()
	claims := tokenClaims{
		EmployeeID: emp.ID,
		Role:       emp.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   emp.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.cfg.JWTSecret)
	if err != nil {
		return "", fmt.Errorf("signing token for %s: %w", emp.Username, err)
	}
	return signed, nil
}

func (s *Server) parseToken(raw string) (*tokenClaims, error) {
	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return s.cfg.JWTSecret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.EmployeeID == "" {
		return nil, errors.New("token carries no employee")
	}
	return claims, nil
}

// authenticate resolves the bearer token to the calling employee. The
// employee is reloaded on every request so a role change takes effect
// immediately.
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, raw, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
			abortUnauthorized(c)
			return
		}
		claims, err := s.parseToken(strings.TrimSpace(raw))
		if err != nil {
			s.logger.WithError(err).Debug("rejecting bearer token")
			abortUnauthorized(c)
			return
		}
		emp, err := s.employees.Get(c.Request.Context(), claims.EmployeeID)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				abortUnauthorized(c)
				return
			}
			s.writeError(c, err)
			c.Abort()
			return
		}
		c.Set(callerKey, emp)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Message: InvalidTokenMessage})
}

func requireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := callerFrom(c)
		for _, r := range roles {
			if caller != nil && caller.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, models.ErrorResponse{
			Message: "You do not have permission to access this resource",
		})
	}
}

func callerFrom(c *gin.Context) *models.Employee {
	v, ok := c.Get(callerKey)
	if !ok {
		return nil
	}
	emp, _ := v.(*models.Employee)
	return emp
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).Round(time.Microsecond),
			"client":  c.ClientIP(),
		})
		if caller := callerFrom(c); caller != nil {
			entry = entry.WithField("employee_id", caller.ID)
		}
		switch {
		case c.Writer.Status() >= 500:
			entry.Error("request")
		case c.Writer.Status() >= 400:
			entry.Warn("request")
		default:
			entry.Info("request")
		}
	}
}

func recovery(logger *logrus.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.WithField("panic", recovered).Error("handler panicked")
		c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse{Message: "internal server error"})
	})
}
