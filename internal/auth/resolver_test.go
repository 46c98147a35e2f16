package auth_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ErlanBelekov/warranty-register/internal/auth"
	"github.com/ErlanBelekov/warranty-register/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// ---- fakes ----

type fakeAccounts struct {
	findByEmail func(ctx context.Context, email string) (*domain.User, error)
}

func (f *fakeAccounts) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return f.findByEmail(ctx, email)
}

func accountsOf(users ...*domain.User) *fakeAccounts {
	return &fakeAccounts{findByEmail: func(_ context.Context, email string) (*domain.User, error) {
		for _, u := range users {
			if u.Email == email {
				return u, nil
			}
		}
		return nil, domain.ErrUserNotFound
	}}
}

type fakeSessions map[string]string

func (f fakeSessions) Resolve(handle string) (string, bool) {
	email, ok := f[handle]
	return email, ok
}

// ---- helpers ----

const testServiceKey = "resolver-test-service-key"

var (
	activeUser   = &domain.User{ID: "u-1", Email: "alice@x.io", IsActive: true}
	inactiveUser = &domain.User{ID: "u-2", Email: "bob@x.io", IsActive: false}
	adminUser    = &domain.User{ID: "u-3", Email: "root@x.io", IsActive: true, IsAdmin: true}
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type resolverFixture struct {
	resolver *auth.Resolver
	tokens   *auth.TokenService
}

func newResolver(t *testing.T, accounts auth.AccountFinder, sessions auth.SessionLookup, timeout time.Duration) resolverFixture {
	t.Helper()
	tokens, err := auth.NewTokenService([]byte(testSigningKey), "HS256", 30*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	creds := auth.NewCredentials(testServiceKey, bcrypt.MinCost)
	return resolverFixture{
		resolver: auth.NewResolver(tokens, creds, accounts, sessions, timeout, discard()),
		tokens:   tokens,
	}
}

func (f resolverFixture) tokenFor(t *testing.T, u *domain.User) string {
	t.Helper()
	raw, err := f.tokens.Issue(domain.TokenClaims{Email: u.Email, UserID: u.ID}, 0)
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

// ---- ResolveToken ----

func TestResolveToken_ActiveUser(t *testing.T) {
	f := newResolver(t, accountsOf(activeUser), fakeSessions{}, 0)

	p, err := f.resolver.ResolveToken(context.Background(), f.tokenFor(t, activeUser))
	if err != nil {
		t.Fatalf("ResolveToken: %v", err)
	}
	if p.Kind != domain.PrincipalUser || p.User.ID != activeUser.ID {
		t.Errorf("principal = %+v", p)
	}
}

func TestResolveToken_Failures(t *testing.T) {
	f := newResolver(t, accountsOf(activeUser, inactiveUser), fakeSessions{}, 0)
	ghost := &domain.User{ID: "u-9", Email: "ghost@x.io"}

	cases := []struct {
		name  string
		token string
		want  error
	}{
		{"missing", "", domain.ErrUnauthenticated},
		{"garbage", "not.a.jwt", domain.ErrUnauthenticated},
		{"unknown account", f.tokenFor(t, ghost), domain.ErrUnauthenticated},
		{"inactive account", f.tokenFor(t, inactiveUser), domain.ErrForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.resolver.ResolveToken(context.Background(), tc.token)
			if !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestResolveToken_UnknownAccountIsNotNotFound(t *testing.T) {
	f := newResolver(t, accountsOf(), fakeSessions{}, 0)

	_, err := f.resolver.ResolveToken(context.Background(), f.tokenFor(t, activeUser))
	if errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v must not map to not found", err)
	}
}

func TestResolveToken_LookupTimeout(t *testing.T) {
	slow := &fakeAccounts{findByEmail: func(ctx context.Context, _ string) (*domain.User, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	f := newResolver(t, slow, fakeSessions{}, 20*time.Millisecond)

	_, err := f.resolver.ResolveToken(context.Background(), f.tokenFor(t, activeUser))
	if !errors.Is(err, domain.ErrDependencyUnavailable) {
		t.Errorf("err = %v, want ErrDependencyUnavailable", err)
	}
}

func TestResolveToken_StoreError(t *testing.T) {
	boom := errors.New("connection reset")
	broken := &fakeAccounts{findByEmail: func(context.Context, string) (*domain.User, error) {
		return nil, boom
	}}
	f := newResolver(t, broken, fakeSessions{}, 0)

	_, err := f.resolver.ResolveToken(context.Background(), f.tokenFor(t, activeUser))
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped %v", err, boom)
	}
}

// ---- ResolveServiceKey ----

func TestResolveServiceKey(t *testing.T) {
	f := newResolver(t, accountsOf(), fakeSessions{}, 0)

	p, err := f.resolver.ResolveServiceKey(testServiceKey)
	if err != nil || !p.IsService() {
		t.Errorf("valid key: principal = %+v, err = %v", p, err)
	}
	if p.User != nil {
		t.Error("service principal carries a user")
	}

	for _, bad := range []string{"", "wrong"} {
		if _, err := f.resolver.ResolveServiceKey(bad); !errors.Is(err, domain.ErrUnauthenticated) {
			t.Errorf("ResolveServiceKey(%q) err = %v, want ErrUnauthenticated", bad, err)
		}
	}
}

// ---- ResolveEither ----

func TestResolveEither(t *testing.T) {
	f := newResolver(t, accountsOf(activeUser, inactiveUser), fakeSessions{}, 0)

	expiredIssuer, err := auth.NewTokenService([]byte(testSigningKey), "HS256", time.Minute,
		auth.WithClock(fixed(time.Now().Add(-time.Hour))))
	if err != nil {
		t.Fatal(err)
	}
	expired, _ := expiredIssuer.Issue(domain.TokenClaims{Email: activeUser.Email, UserID: activeUser.ID}, 0)

	cases := []struct {
		name      string
		presented auth.Presented
		wantKind  domain.PrincipalKind
		wantErr   error
	}{
		{"service key only", auth.Presented{ServiceKey: testServiceKey}, domain.PrincipalService, nil},
		{"token only", auth.Presented{BearerToken: f.tokenFor(t, activeUser)}, domain.PrincipalUser, nil},
		{"both valid prefers service", auth.Presented{ServiceKey: testServiceKey, BearerToken: f.tokenFor(t, activeUser)}, domain.PrincipalService, nil},
		{"bad key falls through to token", auth.Presented{ServiceKey: "nope", BearerToken: f.tokenFor(t, activeUser)}, domain.PrincipalUser, nil},
		{"neither", auth.Presented{}, "", domain.ErrCredentialNeeded},
		{"bad key no token", auth.Presented{ServiceKey: "nope"}, "", domain.ErrCredentialNeeded},
		{"expired token", auth.Presented{BearerToken: expired}, "", domain.ErrCredentialNeeded},
		{"inactive account", auth.Presented{BearerToken: f.tokenFor(t, inactiveUser)}, "", domain.ErrCredentialNeeded},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := f.resolver.ResolveEither(context.Background(), tc.presented)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("err = %v, want %v", err, tc.wantErr)
				}
				if !errors.Is(err, domain.ErrUnauthenticated) {
					t.Errorf("err = %v, want it to be ErrUnauthenticated", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if p.Kind != tc.wantKind {
				t.Errorf("kind = %q, want %q", p.Kind, tc.wantKind)
			}
		})
	}
}

// ---- ResolveSession ----

func TestResolveSession(t *testing.T) {
	sessions := fakeSessions{
		"h-active":   activeUser.Email,
		"h-inactive": inactiveUser.Email,
		"h-ghost":    "ghost@x.io",
	}
	f := newResolver(t, accountsOf(activeUser, inactiveUser), sessions, 0)

	cases := []struct {
		handle string
		wantOK bool
	}{
		{"", false},
		{"h-unknown", false},
		{"h-ghost", false},
		{"h-inactive", false},
		{"h-active", true},
	}
	for _, tc := range cases {
		p, ok, err := f.resolver.ResolveSession(context.Background(), tc.handle)
		if err != nil {
			t.Errorf("%q: unexpected err %v", tc.handle, err)
		}
		if ok != tc.wantOK {
			t.Errorf("%q: ok = %v, want %v", tc.handle, ok, tc.wantOK)
		}
		if ok && p.User.Email != activeUser.Email {
			t.Errorf("%q: user = %+v", tc.handle, p.User)
		}
	}
}

func TestResolveSession_LookupTimeout(t *testing.T) {
	slow := &fakeAccounts{findByEmail: func(ctx context.Context, _ string) (*domain.User, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	f := newResolver(t, slow, fakeSessions{"h": activeUser.Email}, 20*time.Millisecond)

	_, ok, err := f.resolver.ResolveSession(context.Background(), "h")
	if ok || !errors.Is(err, domain.ErrDependencyUnavailable) {
		t.Errorf("ok = %v, err = %v, want false + ErrDependencyUnavailable", ok, err)
	}
}
