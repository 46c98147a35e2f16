package auth

import (
	"fmt"
	"time"

	"github.com/ErlanBelekov/warranty-register/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

const DefaultTokenTTL = 30 * time.Minute

// accessClaims is the wire form of domain.TokenClaims. sub carries the email.
type accessClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
}

// TokenService issues and decodes HMAC-signed access tokens.
type TokenService struct {
	key    []byte
	method jwt.SigningMethod
	ttl    time.Duration
	now    func() time.Time
}

type TokenOption func(*TokenService)

// WithClock overrides time.Now for issuing and validating.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) { s.now = now }
}

// NewTokenService accepts HS256, HS384 or HS512.
func NewTokenService(key []byte, algorithm string, ttl time.Duration, opts ...TokenOption) (*TokenService, error) {
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", algorithm)
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("empty signing key")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	s := &TokenService{key: key, method: method, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue signs claims with expiry now+ttl. ttl<=0 falls back to the service default.
func (s *TokenService) Issue(claims domain.TokenClaims, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.ttl
	}
	now := s.now()
	t := jwt.NewWithClaims(s.method, accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: claims.UserID,
	})
	signed, err := t.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

// Decode verifies signature, algorithm and expiry. Every failure is reported
// as domain.ErrTokenInvalid so callers cannot tell expired from tampered.
func (s *TokenService) Decode(raw string) (domain.TokenClaims, error) {
	claims := &accessClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return domain.TokenClaims{}, domain.ErrTokenInvalid
	}
	if claims.Subject == "" || claims.UserID == "" {
		return domain.TokenClaims{}, domain.ErrTokenInvalid
	}
	return domain.TokenClaims{
		Email:     claims.Subject,
		UserID:    claims.UserID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
