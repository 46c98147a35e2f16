package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/warranty-register/internal/domain"
	"github.com/ErlanBelekov/warranty-register/internal/transport/http/httperr"
	"github.com/ErlanBelekov/warranty-register/internal/usecase"
	"github.com/gin-gonic/gin"
)

// authUsecaser is the subset of AuthUsecase the handler needs.
// Defined here (point of use) so tests can inject a fake.
type authUsecaser interface {
	Register(ctx context.Context, input usecase.RegisterUserInput) (*usecase.AuthResult, error)
	Login(ctx context.Context, email, password string) (*usecase.AuthResult, error)
	CreateAdmin(ctx context.Context, caller domain.Principal, input usecase.RegisterUserInput) (*domain.User, error)
}

type AuthHandler struct {
	authUsecase authUsecaser
	logger      *slog.Logger
}

func NewAuthHandler(authUsecase authUsecaser, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authUsecase: authUsecase,
		logger:      logger.With("component", "auth_handler"),
	}
}

type registerRequest struct {
	Email    string `json:"email"     binding:"required,email,max=255"`
	Password string `json:"password"  binding:"required,min=8,max=72"`
	FullName string `json:"full_name" binding:"max=255"`
}

type loginRequest struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type authResponse struct {
	User        userResponse `json:"user"`
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
}

func newAuthResponse(res *usecase.AuthResult) authResponse {
	return authResponse{User: toUserResponse(res.User), AccessToken: res.AccessToken, TokenType: "bearer"}
}

// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.authUsecase.Register(c.Request.Context(), usecase.RegisterUserInput{
		Email: req.Email, Password: req.Password, FullName: req.FullName,
	})
	if err != nil {
		httperr.Abort(c, h.logger, "register user", err)
		return
	}
	c.JSON(http.StatusCreated, newAuthResponse(res))
}

// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.authUsecase.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		httperr.Abort(c, h.logger, "login", err)
		return
	}
	c.JSON(http.StatusOK, newAuthResponse(res))
}

// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	p, ok := domain.PrincipalFromContext(c.Request.Context())
	if !ok || p.User == nil {
		httperr.Abort(c, h.logger, "me", domain.ErrUnauthenticated)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(p.User))
}

// POST /api/v1/auth/create-admin
func (h *AuthHandler) CreateAdmin(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, _ := domain.PrincipalFromContext(c.Request.Context())
	user, err := h.authUsecase.CreateAdmin(c.Request.Context(), p, usecase.RegisterUserInput{
		Email: req.Email, Password: req.Password, FullName: req.FullName,
	})
	if err != nil {
		httperr.Abort(c, h.logger, "create admin", err)
		return
	}
	c.JSON(http.StatusCreated, toUserResponse(user))
}
