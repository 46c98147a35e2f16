package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ErlanBelekov/warranty-register/internal/auth"
	"github.com/ErlanBelekov/warranty-register/internal/domain"
	"github.com/ErlanBelekov/warranty-register/internal/metrics"
	"github.com/ErlanBelekov/warranty-register/internal/transport/http/httperr"
	"github.com/gin-gonic/gin"
)

const (
	APIKeyHeader  = "X-API-Key"
	SessionCookie = "session_id"
)

// Resolver is implemented by *auth.Resolver.
type Resolver interface {
	ResolveToken(ctx context.Context, rawToken string) (domain.Principal, error)
	ResolveServiceKey(candidate string) (domain.Principal, error)
	ResolveEither(ctx context.Context, p auth.Presented) (domain.Principal, error)
	ResolveSession(ctx context.Context, handle string) (domain.Principal, bool, error)
}

// RequireToken admits requests carrying a valid bearer token for an active account.
func RequireToken(r Resolver, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := r.ResolveToken(c.Request.Context(), bearerToken(c))
		if err != nil {
			deny(c, logger, "token", err)
			return
		}
		allow(c, "token", p)
	}
}

// RequireServiceKey admits requests carrying the static service key in X-API-Key.
func RequireServiceKey(r Resolver, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := r.ResolveServiceKey(c.GetHeader(APIKeyHeader))
		if err != nil {
			deny(c, logger, "service_key", err)
			return
		}
		allow(c, "service_key", p)
	}
}

// RequireServiceOrToken admits either credential. The service key is tried first.
func RequireServiceOrToken(r Resolver, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := r.ResolveEither(c.Request.Context(), auth.Presented{
			ServiceKey:  c.GetHeader(APIKeyHeader),
			BearerToken: bearerToken(c),
		})
		if err != nil {
			deny(c, logger, "either", err)
			return
		}
		allow(c, "either", p)
	}
}

// RequireAdmin runs after a gate and admits only active admin users.
func RequireAdmin(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, _ := domain.PrincipalFromContext(c.Request.Context())
		if err := auth.RequireAdmin(p); err != nil {
			deny(c, logger, "admin", err)
			return
		}
		metrics.AuthDecisionsTotal.WithLabelValues("admin", "allowed").Inc()
		c.Next()
	}
}

// RequireSession resolves the browser session cookie. Requests without a
// live session are redirected to loginPath and a stale cookie is cleared.
func RequireSession(r Resolver, loginPath string, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		handle, _ := c.Cookie(SessionCookie)

		p, ok, err := r.ResolveSession(c.Request.Context(), handle)
		if err != nil {
			metrics.AuthDecisionsTotal.WithLabelValues("session", "error").Inc()
			logger.ErrorContext(c.Request.Context(), "resolve session", "error", err)
			status := http.StatusInternalServerError
			if errors.Is(err, domain.ErrDependencyUnavailable) {
				status = http.StatusServiceUnavailable
			}
			c.AbortWithStatus(status)
			return
		}
		if !ok {
			metrics.AuthDecisionsTotal.WithLabelValues("session", "denied").Inc()
			if handle != "" {
				ClearSessionCookie(c)
			}
			c.Redirect(http.StatusSeeOther, loginPath)
			c.Abort()
			return
		}
		allow(c, "session", p)
	}
}

// ClearSessionCookie expires the session cookie on the client.
func ClearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", false, true)
}

func allow(c *gin.Context, gate string, p domain.Principal) {
	metrics.AuthDecisionsTotal.WithLabelValues(gate, "allowed").Inc()
	c.Request = c.Request.WithContext(domain.WithPrincipal(c.Request.Context(), p))
	c.Next()
}

func deny(c *gin.Context, logger *slog.Logger, gate string, err error) {
	result := "denied"
	if errors.Is(err, domain.ErrDependencyUnavailable) {
		result = "unavailable"
	}
	metrics.AuthDecisionsTotal.WithLabelValues(gate, result).Inc()
	httperr.Abort(c, logger, gate+" gate", err)
}

// bearerToken returns the token from "Authorization: Bearer <token>", or "".
func bearerToken(c *gin.Context) string {
	scheme, token, found := strings.Cut(c.GetHeader("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
