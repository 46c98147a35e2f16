// Package httperr maps domain errors onto HTTP responses.
package httperr

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/warranty-register/internal/domain"
	"github.com/gin-gonic/gin"
)

const (
	MsgInternalServer = "Internal server error"
	MsgUnavailable    = "Service temporarily unavailable"
	MsgNotAuth        = "Not authenticated"
	MsgForbidden      = "Forbidden"
	MsgConflict       = "Conflict"
	MsgNotFound       = "Not found"
)

// Specific sentinels first, so their wording wins over the broader kind.
var messages = []struct {
	err error
	msg string
}{
	{domain.ErrBadCredentials, "Incorrect email or password"},
	{domain.ErrCredentialNeeded, "Valid API key or bearer token required"},
	{domain.ErrTokenInvalid, "Could not validate credentials"},
	{domain.ErrAccountInactive, "User account is inactive"},
	{domain.ErrAdminRequired, "Admin privileges required"},
	{domain.ErrEmailTaken, "Email already registered"},
	{domain.ErrDuplicateAsset, "Warranty already registered for this asset"},
	{domain.ErrUserNotFound, "User not found"},
	{domain.ErrWarrantyNotFound, "Warranty not found"},
	{domain.ErrInvalidStatus, "Invalid status value"},
	{domain.ErrPasswordTooLong, "Password must be at most 72 bytes"},
}

// Classify returns the status code and public message for err.
func Classify(err error) (int, string) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		if status == http.StatusServiceUnavailable {
			return status, MsgUnavailable
		}
		return status, MsgInternalServer
	}
	for _, m := range messages {
		if errors.Is(err, m.err) {
			return status, m.msg
		}
	}
	switch status {
	case http.StatusUnauthorized:
		return status, MsgNotAuth
	case http.StatusForbidden:
		return status, MsgForbidden
	case http.StatusConflict:
		return status, MsgConflict
	case http.StatusNotFound:
		return status, MsgNotFound
	default:
		// Invalid input messages are written for callers.
		return status, err.Error()
	}
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrDependencyUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Abort writes the JSON error for err and stops the handler chain. Server
// side failures are logged with op; client errors are not.
func Abort(c *gin.Context, logger *slog.Logger, op string, err error) {
	status, msg := Classify(err)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(c.Request.Context(), op, "error", err)
	}
	if status == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", "Bearer")
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
