package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/trainerauth/internal/common"
)

type errorResponse struct {
	Error      string              `json:"error"`
	Fields     []common.FieldError `json:"fields,omitempty"`
	RetryAfter int64               `json:"retryAfter,omitempty"`
}

// statusFor maps a service error onto its HTTP status. Anything not
// recognised is a 500.
func statusFor(err error) int {
	var (
		validation *common.ValidationError
		locked     *common.LockedError
		limited    *common.RateLimitedError
	)

	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &locked):
		return http.StatusLocked
	case errors.As(err, &limited):
		return http.StatusTooManyRequests
	case errors.Is(err, common.ErrInvalidCredentials),
		errors.Is(err, common.ErrInvalidOrExpiredToken),
		errors.Is(err, common.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrUnauthorized), errors.Is(err, common.ErrSelfDemotion):
		return http.StatusForbidden
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrArchiveDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(c *gin.Context, err error) {
	if statusFor(err) == http.StatusInternalServerError && !errors.Is(err, common.ErrStorage) {
		s.logger.Error(c.Request.Context(), "request failed", "route", c.FullPath(), "error", err)
	}
	abortWith(c, err)
}

func abortWith(c *gin.Context, err error) {
	status := statusFor(err)
	body := errorResponse{Error: err.Error()}

	var (
		validation *common.ValidationError
		locked     *common.LockedError
		limited    *common.RateLimitedError
	)
	switch {
	case errors.As(err, &validation):
		body.Error = "Validation failed"
		body.Fields = validation.Fields
	case errors.As(err, &locked):
		body.RetryAfter = locked.Seconds()
		c.Header("Retry-After", strconv.FormatInt(body.RetryAfter, 10))
	case errors.As(err, &limited):
		body.RetryAfter = limited.Seconds()
		c.Header("Retry-After", strconv.FormatInt(body.RetryAfter, 10))
	case errors.Is(err, common.ErrorNotFound):
		body.Error = "Account not found"
	case status == http.StatusInternalServerError:
		body.Error = common.ErrStorage.Error()
	}

	c.AbortWithStatusJSON(status, body)
}

func malformedBody() error {
	return common.NewValidationError("body", "Request body must be valid JSON")
}
