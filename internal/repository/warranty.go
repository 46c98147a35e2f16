package repository

import (
	"context"
	"time"

	"github.com/ErlanBelekov/warranty-register/internal/domain"
)

type ListWarrantiesInput struct {
	Status domain.WarrantyStatus // empty = all statuses
	Offset int
	Limit  int
}

type WarrantyRepository interface {
	// Create returns domain.ErrDuplicateAsset when the asset already has a warranty.
	Create(ctx context.Context, w *domain.Warranty) (*domain.Warranty, error)
	FindByAssetID(ctx context.Context, assetID string) (*domain.Warranty, error)
	GetByID(ctx context.Context, id string) (*domain.Warranty, error)
	// List returns one page ordered by registered_at DESC plus the total row count.
	List(ctx context.Context, input ListWarrantiesInput) ([]*domain.Warranty, int, error)
	UpdateStatus(ctx context.Context, id string, status domain.WarrantyStatus) (*domain.Warranty, error)

	// ExpireDue marks registered/active warranties whose end date is before now as expired.
	ExpireDue(ctx context.Context, now time.Time, limit int) (int, error)
}
