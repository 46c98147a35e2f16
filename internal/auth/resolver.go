package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ErlanBelekov/warranty-register/internal/domain"
)

const DefaultLookupTimeout = 3 * time.Second

// AccountFinder is the subset of the user repository the resolver needs.
type AccountFinder interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
}

// SessionLookup is satisfied by *session.Store.
type SessionLookup interface {
	Resolve(handle string) (string, bool)
}

type tokenDecoder interface {
	Decode(raw string) (domain.TokenClaims, error)
}

type secretVerifier interface {
	VerifyServiceSecret(candidate string) bool
}

// Presented holds whatever credentials the transport extracted from a request.
type Presented struct {
	ServiceKey  string
	BearerToken string
}

// Resolver turns presented credentials into a domain.Principal. Each Resolve*
// method implements one gate.
type Resolver struct {
	tokens        tokenDecoder
	secrets       secretVerifier
	accounts      AccountFinder
	sessions      SessionLookup
	lookupTimeout time.Duration
	logger        *slog.Logger
}

func NewResolver(tokens tokenDecoder, secrets secretVerifier, accounts AccountFinder, sessions SessionLookup, lookupTimeout time.Duration, logger *slog.Logger) *Resolver {
	if lookupTimeout <= 0 {
		lookupTimeout = DefaultLookupTimeout
	}
	return &Resolver{
		tokens:        tokens,
		secrets:       secrets,
		accounts:      accounts,
		sessions:      sessions,
		lookupTimeout: lookupTimeout,
		logger:        logger.With("component", "identity_resolver"),
	}
}

// ResolveToken requires a bearer token naming an existing, active account.
func (r *Resolver) ResolveToken(ctx context.Context, rawToken string) (domain.Principal, error) {
	if rawToken == "" {
		return domain.Principal{}, domain.ErrUnauthenticated
	}
	claims, err := r.tokens.Decode(rawToken)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: %w", domain.ErrUnauthenticated, err)
	}

	user, err := r.lookup(ctx, claims.Email)
	if err != nil {
		return domain.Principal{}, err
	}
	if user == nil {
		return domain.Principal{}, fmt.Errorf("%w: no account for token subject", domain.ErrUnauthenticated)
	}
	if !user.IsActive {
		return domain.Principal{}, domain.ErrAccountInactive
	}
	return domain.UserPrincipal(user), nil
}

// ResolveServiceKey requires the static service secret.
func (r *Resolver) ResolveServiceKey(candidate string) (domain.Principal, error) {
	if !r.secrets.VerifyServiceSecret(candidate) {
		return domain.Principal{}, domain.ErrUnauthenticated
	}
	return domain.ServicePrincipal(), nil
}

// ResolveEither accepts the service secret or a bearer token. The secret wins
// when valid. A failed token attempt is dropped and the caller only ever sees
// domain.ErrCredentialNeeded, whichever path failed.
func (r *Resolver) ResolveEither(ctx context.Context, p Presented) (domain.Principal, error) {
	if p.ServiceKey != "" && r.secrets.VerifyServiceSecret(p.ServiceKey) {
		return domain.ServicePrincipal(), nil
	}

	if p.BearerToken != "" {
		principal, err := r.ResolveToken(ctx, p.BearerToken)
		if err == nil {
			return principal, nil
		}
		r.logger.DebugContext(ctx, "token attempt rejected on either gate", "error", err)
	}

	return domain.Principal{}, domain.ErrCredentialNeeded
}

// ResolveSession maps a browser session handle to an active user. ok is false
// for a missing session, a missing account or an inactive account; err is set
// only when the account store could not be queried.
func (r *Resolver) ResolveSession(ctx context.Context, handle string) (principal domain.Principal, ok bool, err error) {
	if handle == "" {
		return domain.Principal{}, false, nil
	}
	email, found := r.sessions.Resolve(handle)
	if !found {
		return domain.Principal{}, false, nil
	}

	user, err := r.lookup(ctx, email)
	if err != nil {
		return domain.Principal{}, false, err
	}
	if user == nil || !user.IsActive {
		return domain.Principal{}, false, nil
	}
	return domain.UserPrincipal(user), true, nil
}

// lookup returns (nil, nil) when the account does not exist.
func (r *Resolver) lookup(ctx context.Context, email string) (*domain.User, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, r.lookupTimeout)
	defer cancel()

	user, err := r.accounts.FindByEmail(lookupCtx, email)
	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, domain.ErrUserNotFound):
		return nil, nil
	case errors.Is(err, context.DeadlineExceeded), errors.Is(lookupCtx.Err(), context.DeadlineExceeded):
		return nil, fmt.Errorf("%w: account lookup: %w", domain.ErrDependencyUnavailable, err)
	default:
		return nil, fmt.Errorf("account lookup: %w", err)
	}
}
