package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ErlanBelekov/warranty-register/internal/auth"
	"github.com/ErlanBelekov/warranty-register/internal/domain"
	"github.com/ErlanBelekov/warranty-register/internal/repository"
)

type passwordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
	BurnVerify(password string)
}

type tokenIssuer interface {
	Issue(claims domain.TokenClaims, ttl time.Duration) (string, error)
}

type sessionStore interface {
	Create(ownerEmail string) (string, error)
	Destroy(handle string)
}

type AuthUsecase struct {
	users    repository.UserRepository
	hasher   passwordHasher
	tokens   tokenIssuer
	sessions sessionStore
	tokenTTL time.Duration
	logger   *slog.Logger
}

func NewAuthUsecase(users repository.UserRepository, hasher passwordHasher, tokens tokenIssuer, sessions sessionStore, tokenTTL time.Duration, logger *slog.Logger) *AuthUsecase {
	return &AuthUsecase{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		sessions: sessions,
		tokenTTL: tokenTTL,
		logger:   logger.With("component", "auth_usecase"),
	}
}

type RegisterUserInput struct {
	Email    string
	Password string
	FullName string
}

// AuthResult is returned by every operation that hands out an access token.
type AuthResult struct {
	User        *domain.User
	AccessToken string
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an active, non-admin account and signs it in.
func (u *AuthUsecase) Register(ctx context.Context, input RegisterUserInput) (*AuthResult, error) {
	user, err := u.createUser(ctx, input, true, false)
	if err != nil {
		return nil, err
	}
	return u.issue(user)
}

// Login checks email and password. Unknown emails and wrong passwords both
// return domain.ErrBadCredentials after a bcrypt comparison of similar cost.
func (u *AuthUsecase) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := u.authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return u.issue(user)
}

// CreateAdmin lets an existing admin create another admin account.
func (u *AuthUsecase) CreateAdmin(ctx context.Context, caller domain.Principal, input RegisterUserInput) (*domain.User, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return nil, err
	}
	user, err := u.createUser(ctx, input, true, true)
	if err != nil {
		return nil, err
	}
	u.logger.InfoContext(ctx, "admin account created", "user_id", user.ID, "by", caller.User.ID)
	return user, nil
}

// EnsureDefaultAdmin creates the bootstrap admin when no admin exists yet.
// It reports whether an account was created.
func (u *AuthUsecase) EnsureDefaultAdmin(ctx context.Context, email, password string) (bool, error) {
	exists, err := u.users.AdminExists(ctx)
	if err != nil {
		return false, fmt.Errorf("check admin: %w", err)
	}
	if exists {
		return false, nil
	}

	user, err := u.createUser(ctx, RegisterUserInput{Email: email, Password: password, FullName: "System Administrator"}, true, true)
	if errors.Is(err, domain.ErrEmailTaken) {
		// The address exists as a non-admin account. Leave it alone.
		u.logger.WarnContext(ctx, "default admin email already registered without admin rights", "email", normalizeEmail(email))
		return false, nil
	}
	if err != nil {
		return false, err
	}
	u.logger.InfoContext(ctx, "default admin created", "email", user.Email)
	return true, nil
}

// WebLogin authenticates like Login and opens a browser session instead of
// issuing a token.
func (u *AuthUsecase) WebLogin(ctx context.Context, email, password string) (string, error) {
	user, err := u.authenticate(ctx, email, password)
	if err != nil {
		return "", err
	}
	handle, err := u.sessions.Create(user.Email)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return handle, nil
}

func (u *AuthUsecase) WebLogout(handle string) {
	if handle != "" {
		u.sessions.Destroy(handle)
	}
}

func (u *AuthUsecase) authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := u.users.FindByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, domain.ErrUserNotFound) {
		u.hasher.BurnVerify(password)
		return nil, domain.ErrBadCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !u.hasher.Verify(password, user.PasswordHash) {
		return nil, domain.ErrBadCredentials
	}
	if !user.IsActive {
		return nil, domain.ErrAccountInactive
	}
	return user, nil
}

func (u *AuthUsecase) createUser(ctx context.Context, input RegisterUserInput, active, admin bool) (*domain.User, error) {
	email := normalizeEmail(input.Email)
	// The system account is only ever created inactive by the warranty usecase.
	if email == SystemAccountEmail {
		return nil, fmt.Errorf("create user: %w", domain.ErrEmailTaken)
	}
	hash, err := u.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}
	user, err := u.users.Create(ctx, &domain.User{
		Email:        email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(input.FullName),
		IsActive:     active,
		IsAdmin:      admin,
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (u *AuthUsecase) issue(user *domain.User) (*AuthResult, error) {
	token, err := u.tokens.Issue(domain.TokenClaims{Email: user.Email, UserID: user.ID}, u.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &AuthResult{User: user, AccessToken: token}, nil
}
