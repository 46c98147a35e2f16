package handler

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ErlanBelekov/warranty-register/internal/domain"
	"github.com/ErlanBelekov/warranty-register/internal/transport/http/middleware"
	"github.com/ErlanBelekov/warranty-register/internal/usecase"
	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templateFS embed.FS

var templateFuncs = template.FuncMap{
	"add": func(a, b int) int { return a + b },
	"sub": func(a, b int) int { return a - b },
	"date": func(v any) string {
		switch t := v.(type) {
		case time.Time:
			if !t.IsZero() {
				return t.Format("2006-01-02")
			}
		case *time.Time:
			if t != nil && !t.IsZero() {
				return t.Format("2006-01-02")
			}
		}
		return "-"
	},
	"money": func(v *float64) string {
		if v == nil {
			return "-"
		}
		return fmt.Sprintf("%.2f", *v)
	},
}

// Templates parses the embedded HTML pages. The router installs the result
// with gin's SetHTMLTemplate.
func Templates() (*template.Template, error) {
	return template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
}

const (
	webLoginPath     = "/web/login"
	webDashboardPath = "/web/dashboard"
	webPageSize      = 20
)

type webAuthUsecaser interface {
	WebLogin(ctx context.Context, email, password string) (string, error)
	WebLogout(handle string)
}

type serviceKeyResolver interface {
	ResolveServiceKey(candidate string) (domain.Principal, error)
}

// WebHandler serves the server-rendered dashboard behind the session gate.
type WebHandler struct {
	auth         webAuthUsecaser
	warranties   warrantyUsecaser
	keys         serviceKeyResolver
	sessionTTL   time.Duration
	secureCookie bool
	logger       *slog.Logger
}

func NewWebHandler(auth webAuthUsecaser, warranties warrantyUsecaser, keys serviceKeyResolver, sessionTTL time.Duration, secureCookie bool, logger *slog.Logger) *WebHandler {
	return &WebHandler{
		auth:         auth,
		warranties:   warranties,
		keys:         keys,
		sessionTTL:   sessionTTL,
		secureCookie: secureCookie,
		logger:       logger.With("component", "web_handler"),
	}
}

// page builds template data with the signed-in user and a title.
func page(c *gin.Context, title string, kv ...any) gin.H {
	data := gin.H{"Title": title}
	if p, ok := domain.PrincipalFromContext(c.Request.Context()); ok && p.User != nil {
		data["User"] = p.User
		data["IsAdmin"] = p.IsAdmin()
	}
	for i := 0; i+1 < len(kv); i += 2 {
		data[kv[i].(string)] = kv[i+1]
	}
	return data
}

// GET /web/login
func (h *WebHandler) LoginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", page(c, "Sign in"))
}

// POST /web/login
func (h *WebHandler) Login(c *gin.Context) {
	email := c.PostForm("email")
	handle, err := h.auth.WebLogin(c.Request.Context(), email, c.PostForm("password"))
	if err != nil {
		status, msg := http.StatusInternalServerError, "Something went wrong, please try again"
		switch {
		case errors.Is(err, domain.ErrBadCredentials):
			status, msg = http.StatusUnauthorized, "Invalid email or password"
		case errors.Is(err, domain.ErrAccountInactive):
			status, msg = http.StatusForbidden, "Account is inactive"
		case errors.Is(err, domain.ErrDependencyUnavailable):
			status, msg = http.StatusServiceUnavailable, "Service temporarily unavailable"
		default:
			h.logger.ErrorContext(c.Request.Context(), "web login", "error", err)
		}
		c.HTML(status, "login.html", page(c, "Sign in", "Error", msg, "Email", email))
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, handle, int(h.sessionTTL.Seconds()), "/", "", h.secureCookie, true)
	c.Redirect(http.StatusSeeOther, webDashboardPath)
}

// GET /web/logout
func (h *WebHandler) Logout(c *gin.Context) {
	if handle, err := c.Cookie(middleware.SessionCookie); err == nil {
		h.auth.WebLogout(handle)
	}
	middleware.ClearSessionCookie(c)
	c.Redirect(http.StatusSeeOther, webLoginPath)
}

// GET /web/ (session gate already passed)
func (h *WebHandler) Root(c *gin.Context) {
	c.Redirect(http.StatusSeeOther, webDashboardPath)
}

// GET /web/dashboard?page=
func (h *WebHandler) Dashboard(c *gin.Context) {
	n, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || n < 1 {
		n = 1
	}

	result, err := h.warranties.List(c.Request.Context(), usecase.ListWarrantiesInput{Page: n, PageSize: webPageSize})
	if err != nil {
		h.fail(c, "dashboard", err)
		return
	}
	c.HTML(http.StatusOK, "dashboard.html", page(c, "Dashboard", "Page", result))
}

// GET /web/warranty/:id
func (h *WebHandler) Detail(c *gin.Context) {
	w, ok := h.load(c)
	if !ok {
		return
	}
	c.HTML(http.StatusOK, "warranty_detail.html", page(c, w.AssetName, "Warranty", w))
}

// GET /web/warranty/:id/status
func (h *WebHandler) StatusPage(c *gin.Context) {
	p, _ := domain.PrincipalFromContext(c.Request.Context())
	if !p.IsAdmin() {
		c.Redirect(http.StatusSeeOther, "/web/warranty/"+c.Param("id"))
		return
	}
	w, ok := h.load(c)
	if !ok {
		return
	}
	c.HTML(http.StatusOK, "warranty_status.html", page(c, "Update status", "Warranty", w, "Statuses", domain.WarrantyStatuses))
}

// POST /web/warranty/:id/status
func (h *WebHandler) UpdateStatus(c *gin.Context) {
	p, _ := domain.PrincipalFromContext(c.Request.Context())
	newStatus := c.PostForm("new_status")

	updated, err := h.warranties.UpdateStatus(c.Request.Context(), p, c.Param("id"), newStatus)
	switch {
	case err == nil:
		c.HTML(http.StatusOK, "warranty_status.html", page(c, "Update status",
			"Warranty", updated, "Statuses", domain.WarrantyStatuses,
			"Message", fmt.Sprintf("Status updated to '%s' successfully!", updated.Status), "Success", true))
	case errors.Is(err, domain.ErrForbidden):
		c.Redirect(http.StatusSeeOther, "/web/warranty/"+c.Param("id"))
	case errors.Is(err, domain.ErrInvalidStatus):
		w, ok := h.load(c)
		if !ok {
			return
		}
		c.HTML(http.StatusBadRequest, "warranty_status.html", page(c, "Update status",
			"Warranty", w, "Statuses", domain.WarrantyStatuses,
			"Message", fmt.Sprintf("Invalid status: %s", newStatus), "Success", false))
	case errors.Is(err, domain.ErrNotFound):
		c.Redirect(http.StatusSeeOther, webDashboardPath)
	default:
		h.fail(c, "web update status", err)
	}
}

// GET /web/check-asset
func (h *WebHandler) CheckAssetPage(c *gin.Context) {
	c.HTML(http.StatusOK, "check_asset.html", page(c, "Check asset"))
}

// POST /web/check-asset
// The form carries the service key, so a signed-in user still has to know it.
func (h *WebHandler) CheckAsset(c *gin.Context) {
	assetID := c.PostForm("asset_id")
	if _, err := h.keys.ResolveServiceKey(c.PostForm("api_key")); err != nil {
		c.HTML(http.StatusOK, "check_asset.html", page(c, "Check asset", "AssetID", assetID, "Error", "Invalid API key"))
		return
	}

	w, err := h.warranties.Check(c.Request.Context(), assetID)
	if err != nil {
		h.fail(c, "web check asset", err)
		return
	}
	if w == nil {
		c.HTML(http.StatusOK, "check_asset.html", page(c, "Check asset", "AssetID", assetID,
			"Message", "No warranty registered for this asset."))
		return
	}
	c.HTML(http.StatusOK, "check_asset.html", page(c, "Check asset", "AssetID", assetID,
		"Warranty", w, "Found", true, "Message", "Warranty found for this asset!"))
}

// load fetches :id, redirecting to the dashboard when it does not exist.
func (h *WebHandler) load(c *gin.Context) (*domain.Warranty, bool) {
	w, err := h.warranties.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, domain.ErrNotFound) {
		c.Redirect(http.StatusSeeOther, webDashboardPath)
		return nil, false
	}
	if err != nil {
		h.fail(c, "web load warranty", err)
		return nil, false
	}
	return w, true
}

func (h *WebHandler) fail(c *gin.Context, op string, err error) {
	h.logger.ErrorContext(c.Request.Context(), op, "error", err)
	status := http.StatusInternalServerError
	if errors.Is(err, domain.ErrDependencyUnavailable) {
		status = http.StatusServiceUnavailable
	}
	c.String(status, http.StatusText(status))
}
