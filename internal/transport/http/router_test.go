package httptransport_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ErlanBelekov/warranty-register/internal/auth"
	"github.com/ErlanBelekov/warranty-register/internal/domain"
	httptransport "github.com/ErlanBelekov/warranty-register/internal/transport/http"
	"github.com/ErlanBelekov/warranty-register/internal/transport/http/handler"
	"github.com/ErlanBelekov/warranty-register/internal/transport/http/middleware"
	"github.com/ErlanBelekov/warranty-register/internal/usecase"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var (
	member = &domain.User{ID: "u-1", Email: "member@x.io", IsActive: true}
	owner  = &domain.User{ID: "u-2", Email: "owner@x.io", IsActive: true, IsAdmin: true}
)

// stubResolver accepts "member-token", "owner-token", the key "svc" and the
// session handle "sess".
type stubResolver struct{}

func (stubResolver) ResolveToken(_ context.Context, raw string) (domain.Principal, error) {
	switch raw {
	case "member-token":
		return domain.UserPrincipal(member), nil
	case "owner-token":
		return domain.UserPrincipal(owner), nil
	}
	return domain.Principal{}, domain.ErrUnauthenticated
}

func (stubResolver) ResolveServiceKey(candidate string) (domain.Principal, error) {
	if candidate == "svc" {
		return domain.ServicePrincipal(), nil
	}
	return domain.Principal{}, domain.ErrUnauthenticated
}

func (s stubResolver) ResolveEither(ctx context.Context, p auth.Presented) (domain.Principal, error) {
	if pr, err := s.ResolveServiceKey(p.ServiceKey); err == nil {
		return pr, nil
	}
	if pr, err := s.ResolveToken(ctx, p.BearerToken); err == nil {
		return pr, nil
	}
	return domain.Principal{}, domain.ErrCredentialNeeded
}

func (stubResolver) ResolveSession(_ context.Context, handle string) (domain.Principal, bool, error) {
	if handle == "sess" {
		return domain.UserPrincipal(member), true, nil
	}
	return domain.Principal{}, false, nil
}

type stubAuth struct{}

func (stubAuth) Register(context.Context, usecase.RegisterUserInput) (*usecase.AuthResult, error) {
	return &usecase.AuthResult{User: member, AccessToken: "member-token"}, nil
}

func (stubAuth) Login(context.Context, string, string) (*usecase.AuthResult, error) {
	return nil, domain.ErrBadCredentials
}

func (stubAuth) CreateAdmin(_ context.Context, _ domain.Principal, in usecase.RegisterUserInput) (*domain.User, error) {
	return &domain.User{ID: "u-3", Email: in.Email, IsActive: true, IsAdmin: true}, nil
}

func (stubAuth) WebLogin(context.Context, string, string) (string, error) { return "sess", nil }
func (stubAuth) WebLogout(string)                                         {}

type stubWarranties struct{}

func (stubWarranties) Register(_ context.Context, caller domain.Principal, in usecase.RegisterWarrantyInput) (*usecase.RegistrationResult, error) {
	return &usecase.RegistrationResult{Success: true, Message: "Warranty registered successfully", WarrantyID: "w-1", Status: domain.StatusRegistered}, nil
}

func (stubWarranties) Check(context.Context, string) (*domain.Warranty, error) { return nil, nil }

func (stubWarranties) List(_ context.Context, in usecase.ListWarrantiesInput) (*usecase.WarrantyPage, error) {
	return &usecase.WarrantyPage{Page: 1, PageSize: 20}, nil
}

func (stubWarranties) Get(context.Context, string) (*domain.Warranty, error) {
	return nil, domain.ErrWarrantyNotFound
}

func (stubWarranties) UpdateStatus(_ context.Context, _ domain.Principal, id, s string) (*domain.Warranty, error) {
	return &domain.Warranty{ID: id, Status: domain.WarrantyStatus(s)}, nil
}

func newRouter(t *testing.T, origins []string) *gin.Engine {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := httptransport.Handlers{
		Info:     handler.NewInfoHandler("test"),
		Auth:     handler.NewAuthHandler(stubAuth{}, logger),
		Warranty: handler.NewWarrantyHandler(stubWarranties{}, logger),
		Web:      handler.NewWebHandler(stubAuth{}, stubWarranties{}, stubResolver{}, time.Hour, false, logger),
	}
	r, err := httptransport.NewRouter(logger, stubResolver{}, h, httptransport.Options{Origins: origins})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	return r
}

func do(r *gin.Engine, method, path string, header http.Header, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func bearer(tok string) http.Header { return http.Header{"Authorization": {"Bearer " + tok}} }

func TestRouter_Gates(t *testing.T) {
	r := newRouter(t, nil)
	regBody := `{"asset_id":"a-1","asset_name":"Laptop"}`

	cases := []struct {
		name   string
		method string
		path   string
		header http.Header
		body   string
		want   int
	}{
		{"health is public", http.MethodGet, "/health", nil, "", http.StatusOK},
		{"api info is public", http.MethodGet, "/api", nil, "", http.StatusOK},
		{"root redirects", http.MethodGet, "/", nil, "", http.StatusTemporaryRedirect},
		{"me needs token", http.MethodGet, "/api/v1/auth/me", nil, "", http.StatusUnauthorized},
		{"me with token", http.MethodGet, "/api/v1/auth/me", bearer("member-token"), "", http.StatusOK},
		{"create-admin as member", http.MethodPost, "/api/v1/auth/create-admin", bearer("member-token"),
			`{"email":"n@x.io","password":"password1","full_name":"N"}`, http.StatusForbidden},
		{"create-admin as admin", http.MethodPost, "/api/v1/auth/create-admin", bearer("owner-token"),
			`{"email":"n@x.io","password":"password1","full_name":"N"}`, http.StatusCreated},
		{"register without credentials", http.MethodPost, "/api/v1/warranties/register", nil, regBody, http.StatusUnauthorized},
		{"register with key", http.MethodPost, "/api/v1/warranties/register", http.Header{"X-Api-Key": {"svc"}}, regBody, http.StatusOK},
		{"register with token", http.MethodPost, "/api/v1/warranties/register", bearer("member-token"), regBody, http.StatusOK},
		{"check refuses tokens", http.MethodGet, "/api/v1/warranties/check/a-1", bearer("member-token"), "", http.StatusUnauthorized},
		{"check with key", http.MethodGet, "/api/v1/warranties/check/a-1", http.Header{"X-Api-Key": {"svc"}}, "", http.StatusOK},
		{"list refuses key", http.MethodGet, "/api/v1/warranties", http.Header{"X-Api-Key": {"svc"}}, "", http.StatusUnauthorized},
		{"list with token", http.MethodGet, "/api/v1/warranties", bearer("member-token"), "", http.StatusOK},
		{"get missing", http.MethodGet, "/api/v1/warranties/w-9", bearer("member-token"), "", http.StatusNotFound},
		{"status as member", http.MethodPut, "/api/v1/warranties/w-1/status?new_status=claimed", bearer("member-token"), "", http.StatusForbidden},
		{"status as admin", http.MethodPut, "/api/v1/warranties/w-1/status?new_status=claimed", bearer("owner-token"), "", http.StatusOK},
		{"login page is public", http.MethodGet, "/web/login", nil, "", http.StatusOK},
		{"dashboard without session", http.MethodGet, "/web/dashboard", nil, "", http.StatusSeeOther},
		{"dashboard with session", http.MethodGet, "/web/dashboard", http.Header{"Cookie": {middleware.SessionCookie + "=sess"}}, "", http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(r, tc.method, tc.path, tc.header, tc.body)
			if w.Code != tc.want {
				t.Errorf("status = %d, want %d: %s", w.Code, tc.want, w.Body.String())
			}
		})
	}
}

func TestRouter_UnauthenticatedCarriesChallenge(t *testing.T) {
	w := do(newRouter(t, nil), http.MethodGet, "/api/v1/warranties", nil, "")

	if w.Header().Get("WWW-Authenticate") != "Bearer" {
		t.Errorf("WWW-Authenticate = %q", w.Header().Get("WWW-Authenticate"))
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
}

func TestRouter_DashboardWithoutSessionGoesToLogin(t *testing.T) {
	w := do(newRouter(t, nil), http.MethodGet, "/web/dashboard", nil, "")

	if loc := w.Header().Get("Location"); loc != "/web/login" {
		t.Errorf("Location = %q", loc)
	}
}

func TestRouter_CORS(t *testing.T) {
	preflight := http.Header{
		"Origin":                         {"https://portal.example.com"},
		"Access-Control-Request-Method":  {"POST"},
		"Access-Control-Request-Headers": {"X-API-Key"},
	}

	w := do(newRouter(t, nil), http.MethodOptions, "/api/v1/warranties/register", preflight, "")
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("wildcard: Allow-Origin = %q", got)
	}
	if w.Header().Get("Access-Control-Allow-Credentials") == "true" {
		t.Error("wildcard origin must not allow credentials")
	}

	w = do(newRouter(t, []string{"https://portal.example.com"}), http.MethodOptions, "/api/v1/warranties/register", preflight, "")
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://portal.example.com" {
		t.Errorf("listed: Allow-Origin = %q", got)
	}
	if w.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Error("listed origin should allow credentials")
	}
}
