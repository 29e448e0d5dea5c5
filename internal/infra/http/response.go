package http

import (
	"errors"
	"net/http"

	"docsign/internal/domain"
	"docsign/internal/infra/auth/rbac"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type envelope struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

type errorEnvelope struct {
	StatusCode int      `json:"statusCode"`
	Data       any      `json:"data"`
	Message    string   `json:"message"`
	Success    bool     `json:"success"`
	Code       string   `json:"code"`
	Errors     []string `json:"errors,omitempty"`
	Stack      string   `json:"stack,omitempty"`
}

func writeSuccess(c *gin.Context, status int, data any, message string) {
	c.JSON(status, envelope{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    true,
	})
}

func writeErrorCode(c *gin.Context, status int, code, message string, details ...string) {
	c.AbortWithStatusJSON(status, errorEnvelope{
		StatusCode: status,
		Message:    message,
		Code:       code,
		Errors:     details,
	})
}

// writeError is the only place errors become HTTP responses.
func (s *Server) writeError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	if authz, ok := rbac.IsAuthzError(err); ok {
		writeErrorCode(c, http.StatusForbidden, authz.Code, "Access denied")
		return
	}
	if apiErr, ok := domain.AsAPIError(err); ok {
		details := apiErr.Details
		if errors.Is(apiErr, domain.ErrStorage) {
			s.log.Error("object storage failure",
				zap.String("request_id", requestID(c)),
				zap.String("message", apiErr.Message),
				zap.Strings("cause", apiErr.Details))
			details = nil
		}
		resp := errorEnvelope{
			StatusCode: apiErr.Status,
			Message:    apiErr.Message,
			Code:       apiErr.Code,
			Errors:     details,
		}
		if apiErr.Status >= http.StatusInternalServerError && !s.cfg.IsProduction() {
			resp.Stack = err.Error()
		}
		c.AbortWithStatusJSON(apiErr.Status, resp)
		return
	}

	status, code, message := http.StatusInternalServerError, "INTERNAL", "Internal server error"
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		status, code, message = http.StatusBadRequest, "INVALID_ARGUMENT", "Invalid request"
	case errors.Is(err, domain.ErrNotFound):
		status, code, message = http.StatusNotFound, "NOT_FOUND", "Resource not found"
	case errors.Is(err, domain.ErrConflict):
		status, code, message = http.StatusConflict, "CONFLICT", "Resource already exists"
	case errors.Is(err, domain.ErrForbidden):
		status, code, message = http.StatusForbidden, "FORBIDDEN", "Unauthorized access"
	case errors.Is(err, domain.ErrUnauthorized):
		status, code, message = http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized request"
	}
	resp := errorEnvelope{StatusCode: status, Message: message, Code: code}
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", zap.String("request_id", requestID(c)), zap.Error(err))
		if !s.cfg.IsProduction() {
			resp.Stack = err.Error()
		}
	}
	c.AbortWithStatusJSON(status, resp)
}
