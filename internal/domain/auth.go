package domain

import (
	"errors"
	"time"
)

// Error taxonomy shared by every layer. Transport maps these with errors.Is.
var (
	ErrUnauthenticated       = errors.New("unauthenticated")
	ErrForbidden             = errors.New("forbidden")
	ErrConflict              = errors.New("conflict")
	ErrNotFound              = errors.New("not found")
	ErrInvalidInput          = errors.New("invalid input")
	ErrDependencyUnavailable = errors.New("dependency unavailable")

	ErrTokenInvalid     = errors.New("token is invalid or expired")
	ErrUserNotFound     = errorWrap("user not found", ErrNotFound)
	ErrEmailTaken       = errorWrap("email already registered", ErrConflict)
	ErrAccountInactive  = errorWrap("user account is inactive", ErrForbidden)
	ErrAdminRequired    = errorWrap("admin privileges required", ErrForbidden)
	ErrPasswordTooLong  = errorWrap("password exceeds 72 bytes", ErrInvalidInput)
	ErrBadCredentials   = errorWrap("incorrect email or password", ErrUnauthenticated)
	ErrCredentialNeeded = errorWrap("valid API key or bearer token required", ErrUnauthenticated)
)

// kindError is a sentinel that also matches a broader taxonomy kind.
type kindError struct {
	msg  string
	kind error
}

func errorWrap(msg string, kind error) error { return &kindError{msg: msg, kind: kind} }

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

type User struct {
	ID           string
	Email        string
	PasswordHash string
	FullName     string
	IsActive     bool
	IsAdmin      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type PrincipalKind string

const (
	PrincipalUser    PrincipalKind = "user"
	PrincipalService PrincipalKind = "service"
)

// Principal is the identity resolved for a single request. It is rebuilt on
// every request and never stored. Service principals carry no User.
type Principal struct {
	Kind PrincipalKind
	User *User
}

func UserPrincipal(u *User) Principal {
	return Principal{Kind: PrincipalUser, User: u}
}

func ServicePrincipal() Principal {
	return Principal{Kind: PrincipalService}
}

func (p Principal) IsService() bool { return p.Kind == PrincipalService }

func (p Principal) IsAdmin() bool {
	return p.Kind == PrincipalUser && p.User != nil && p.User.IsActive && p.User.IsAdmin
}

// TokenClaims is the identity embedded in an access token.
type TokenClaims struct {
	Email     string
	UserID    string
	ExpiresAt time.Time
}
