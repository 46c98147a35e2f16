package auth

import "github.com/ErlanBelekov/warranty-register/internal/domain"

// RequireAdmin passes only active admin users. Service principals are a
// privileged tier but never admin.
func RequireAdmin(p domain.Principal) error {
	if !p.IsAdmin() {
		return domain.ErrAdminRequired
	}
	return nil
}

// RequireAuthenticated rejects the zero Principal (anonymous).
func RequireAuthenticated(p domain.Principal) error {
	switch p.Kind {
	case domain.PrincipalService:
		return nil
	case domain.PrincipalUser:
		if p.User != nil && p.User.IsActive {
			return nil
		}
		return domain.ErrAccountInactive
	default:
		return domain.ErrUnauthenticated
	}
}
