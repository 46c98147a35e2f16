package usecase_test

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/ErlanBelekov/warranty-register/internal/domain"
	"github.com/ErlanBelekov/warranty-register/internal/repository"
)

// ---- fakes ----

// memUsers is an in-memory UserRepository keyed by email.
type memUsers struct {
	mu      sync.Mutex
	byEmail map[string]*domain.User
	findErr error
	next    int
}

func newMemUsers(users ...*domain.User) *memUsers {
	m := &memUsers{byEmail: make(map[string]*domain.User)}
	for _, u := range users {
		m.byEmail[u.Email] = u
	}
	return m
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	u, ok := m.byEmail[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (m *memUsers) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[u.Email]; ok {
		return nil, domain.ErrEmailTaken
	}
	m.next++
	created := *u
	created.ID = "user-" + strconv.Itoa(m.next)
	m.byEmail[u.Email] = &created
	return &created, nil
}

func (m *memUsers) AdminExists(context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byEmail {
		if u.IsAdmin {
			return true, nil
		}
	}
	return false, nil
}

type fakeWarrantyRepo struct {
	findByAssetID func(ctx context.Context, assetID string) (*domain.Warranty, error)
	create        func(ctx context.Context, w *domain.Warranty) (*domain.Warranty, error)
	getByID       func(ctx context.Context, id string) (*domain.Warranty, error)
	list          func(ctx context.Context, input repository.ListWarrantiesInput) ([]*domain.Warranty, int, error)
	updateStatus  func(ctx context.Context, id string, status domain.WarrantyStatus) (*domain.Warranty, error)
	expireDue     func(ctx context.Context, now time.Time, limit int) (int, error)
}

func (r *fakeWarrantyRepo) FindByAssetID(ctx context.Context, assetID string) (*domain.Warranty, error) {
	return r.findByAssetID(ctx, assetID)
}

func (r *fakeWarrantyRepo) Create(ctx context.Context, w *domain.Warranty) (*domain.Warranty, error) {
	return r.create(ctx, w)
}

func (r *fakeWarrantyRepo) GetByID(ctx context.Context, id string) (*domain.Warranty, error) {
	return r.getByID(ctx, id)
}

func (r *fakeWarrantyRepo) List(ctx context.Context, input repository.ListWarrantiesInput) ([]*domain.Warranty, int, error) {
	return r.list(ctx, input)
}

func (r *fakeWarrantyRepo) UpdateStatus(ctx context.Context, id string, status domain.WarrantyStatus) (*domain.Warranty, error) {
	return r.updateStatus(ctx, id, status)
}

func (r *fakeWarrantyRepo) ExpireDue(ctx context.Context, now time.Time, limit int) (int, error) {
	return r.expireDue(ctx, now, limit)
}

// memWarranties is a small in-memory WarrantyRepository keyed by asset id.
func memWarranties() *fakeWarrantyRepo {
	var mu sync.Mutex
	byAsset := map[string]*domain.Warranty{}
	n := 0
	return &fakeWarrantyRepo{
		findByAssetID: func(_ context.Context, assetID string) (*domain.Warranty, error) {
			mu.Lock()
			defer mu.Unlock()
			if w, ok := byAsset[assetID]; ok {
				return w, nil
			}
			return nil, domain.ErrWarrantyNotFound
		},
		create: func(_ context.Context, w *domain.Warranty) (*domain.Warranty, error) {
			mu.Lock()
			defer mu.Unlock()
			if _, ok := byAsset[w.AssetID]; ok {
				return nil, domain.ErrDuplicateAsset
			}
			n++
			created := *w
			created.ID = "w-" + strconv.Itoa(n)
			byAsset[w.AssetID] = &created
			return &created, nil
		},
	}
}

type fakeEmailSender struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (s *fakeEmailSender) Send(_ context.Context, to, _, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, to)
	return s.err
}

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }
