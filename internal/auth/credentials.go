package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/ErlanBelekov/warranty-register/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// Credentials hashes account passwords and checks the static service secret.
type Credentials struct {
	cost          int
	serviceSecret []byte
}

func NewCredentials(serviceSecret string, cost int) *Credentials {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Credentials{cost: cost, serviceSecret: []byte(serviceSecret)}
}

func (c *Credentials) Hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), c.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", domain.ErrPasswordTooLong
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

func (c *Credentials) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// VerifyServiceSecret compares in constant time. An empty candidate never
// matches, even if the configured secret is empty.
func (c *Credentials) VerifyServiceSecret(candidate string) bool {
	if candidate == "" || len(c.serviceSecret) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(candidate), c.serviceSecret) == 1
}

// dummyHash is compared against when the account does not exist so that
// unknown emails cost the same as wrong passwords.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// BurnVerify runs a comparison whose result is discarded.
func (c *Credentials) BurnVerify(password string) {
	_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
}
