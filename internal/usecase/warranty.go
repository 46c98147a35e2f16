package usecase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ErlanBelekov/warranty-register/internal/auth"
	"github.com/ErlanBelekov/warranty-register/internal/domain"
	"github.com/ErlanBelekov/warranty-register/internal/email"
	"github.com/ErlanBelekov/warranty-register/internal/metrics"
	"github.com/ErlanBelekov/warranty-register/internal/repository"
	"github.com/google/uuid"
)

const (
	// SystemAccountEmail owns warranties registered with the service key.
	SystemAccountEmail = "system@warranty-api.local"

	DefaultWarrantyDays = 365
	DefaultPageSize     = 20
	MaxPageSize         = 100
)

var errSystemAccountUsable = errors.New("system account is active or admin, refusing to attribute service registrations to it")

type WarrantyOption func(*WarrantyUsecase)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) WarrantyOption {
	return func(u *WarrantyUsecase) { u.now = now }
}

type WarrantyUsecase struct {
	warranties   repository.WarrantyRepository
	users        repository.UserRepository
	hasher       passwordHasher
	email        email.Sender
	durationDays int
	now          func() time.Time
	logger       *slog.Logger
}

func NewWarrantyUsecase(
	warranties repository.WarrantyRepository,
	users repository.UserRepository,
	hasher passwordHasher,
	sender email.Sender,
	durationDays int,
	logger *slog.Logger,
	opts ...WarrantyOption,
) *WarrantyUsecase {
	if durationDays <= 0 {
		durationDays = DefaultWarrantyDays
	}
	u := &WarrantyUsecase{
		warranties:   warranties,
		users:        users,
		hasher:       hasher,
		email:        sender,
		durationDays: durationDays,
		now:          time.Now,
		logger:       logger.With("component", "warranty_usecase"),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}


type RegisterWarrantyInput struct {
	AssetID           string
	AssetName         string
	Category          string
	Department        string
	Cost              *float64
	DatePurchased     *time.Time
	Notes             string
	RegisteredByEmail string
}

type RegistrationResult struct {
	Success    bool
	Message    string
	WarrantyID string
	Status     domain.WarrantyStatus
}

const (
	msgRegistered = "Warranty registered successfully"
	msgDuplicate  = "Warranty already registered for this asset"
)

// Register records a warranty for an asset. Registration is idempotent per
// asset id: a second call returns the existing record with Success=false.
func (u *WarrantyUsecase) Register(ctx context.Context, caller domain.Principal, input RegisterWarrantyInput) (*RegistrationResult, error) {
	if err := auth.RequireAuthenticated(caller); err != nil {
		return nil, err
	}
	input.AssetID = strings.TrimSpace(input.AssetID)
	if input.AssetID == "" || strings.TrimSpace(input.AssetName) == "" {
		return nil, fmt.Errorf("%w: asset_id and asset_name are required", domain.ErrInvalidInput)
	}
	if input.Cost != nil && *input.Cost < 0 {
		return nil, fmt.Errorf("%w: cost must not be negative", domain.ErrInvalidInput)
	}

	res, err := u.register(ctx, caller, input)
	outcome := "error"
	switch {
	case err != nil:
	case res.Success:
		outcome = "created"
	default:
		outcome = "duplicate"
	}
	metrics.WarrantyRegistrationsTotal.WithLabelValues(string(caller.Kind), outcome).Inc()
	return res, err
}

func (u *WarrantyUsecase) register(ctx context.Context, caller domain.Principal, input RegisterWarrantyInput) (*RegistrationResult, error) {
	existing, err := u.warranties.FindByAssetID(ctx, input.AssetID)
	if err == nil {
		return duplicateResult(existing), nil
	}
	if !errors.Is(err, domain.ErrWarrantyNotFound) {
		return nil, fmt.Errorf("find warranty: %w", err)
	}

	registeredBy, err := u.ownerFor(ctx, caller)
	if err != nil {
		return nil, err
	}

	now := u.now().UTC()
	end := now.AddDate(0, 0, u.durationDays)
	created, err := u.warranties.Create(ctx, &domain.Warranty{
		AssetID:           input.AssetID,
		AssetName:         strings.TrimSpace(input.AssetName),
		Category:          input.Category,
		Department:        input.Department,
		Cost:              input.Cost,
		DatePurchased:     input.DatePurchased,
		Status:            domain.StatusRegistered,
		StartDate:         now,
		EndDate:           &end,
		Notes:             input.Notes,
		RegisteredBy:      registeredBy,
		RegisteredByEmail: input.RegisteredByEmail,
	})
	if errors.Is(err, domain.ErrDuplicateAsset) {
		// Lost a race with a concurrent registration of the same asset.
		existing, ferr := u.warranties.FindByAssetID(ctx, input.AssetID)
		if ferr != nil {
			return nil, fmt.Errorf("find warranty after conflict: %w", ferr)
		}
		return duplicateResult(existing), nil
	}
	if err != nil {
		return nil, fmt.Errorf("create warranty: %w", err)
	}

	u.logger.InfoContext(ctx, "warranty registered", "warranty_id", created.ID, "asset_id", created.AssetID)
	u.notify(ctx, created)

	return &RegistrationResult{
		Success:    true,
		Message:    msgRegistered,
		WarrantyID: created.ID,
		Status:     created.Status,
	}, nil
}

func duplicateResult(w *domain.Warranty) *RegistrationResult {
	return &RegistrationResult{
		Success:    false,
		Message:    msgDuplicate,
		WarrantyID: w.ID,
		Status:     w.Status,
	}
}

func (u *WarrantyUsecase) ownerFor(ctx context.Context, caller domain.Principal) (string, error) {
	if !caller.IsService() {
		return caller.User.ID, nil
	}
	sys, err := u.systemAccount(ctx)
	if err != nil {
		return "", fmt.Errorf("system account: %w", err)
	}
	return sys.ID, nil
}

// systemAccount finds or creates the inactive account that owns service
// registrations. Its password is random and never stored anywhere.
func (u *WarrantyUsecase) systemAccount(ctx context.Context) (*domain.User, error) {
	user, err := u.users.FindByEmail(ctx, SystemAccountEmail)
	if err == nil {
		return u.checkSystemAccount(ctx, user)
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("generate password: %w", err)
	}
	hash, err := u.hasher.Hash(hex.EncodeToString(raw))
	if err != nil {
		return nil, err
	}

	user, err = u.users.Create(ctx, &domain.User{
		Email:        SystemAccountEmail,
		PasswordHash: hash,
		FullName:     "System User",
		IsActive:     false,
	})
	if errors.Is(err, domain.ErrEmailTaken) {
		user, err = u.users.FindByEmail(ctx, SystemAccountEmail)
		if err != nil {
			return nil, err
		}
		return u.checkSystemAccount(ctx, user)
	}
	if err != nil {
		return nil, err
	}
	u.logger.InfoContext(ctx, "system account created", "user_id", user.ID)
	return user, nil
}

// checkSystemAccount rejects a stored system account that could sign in.
func (u *WarrantyUsecase) checkSystemAccount(ctx context.Context, user *domain.User) (*domain.User, error) {
	if user.IsActive || user.IsAdmin {
		u.logger.ErrorContext(ctx, "system account is usable", "user_id", user.ID, "active", user.IsActive, "admin", user.IsAdmin)
		return nil, errSystemAccountUsable
	}
	return user, nil
}

// notify is best effort. The registration has already been committed.
func (u *WarrantyUsecase) notify(ctx context.Context, w *domain.Warranty) {
	if w.RegisteredByEmail == "" || u.email == nil {
		return
	}
	subject, body, err := email.RegistrationConfirmation(w)
	if err == nil {
		err = u.email.Send(ctx, w.RegisteredByEmail, subject, body)
	}
	if err != nil {
		u.logger.WarnContext(ctx, "registration confirmation not sent", "warranty_id", w.ID, "error", err)
	}
}

// Check returns the warranty for assetID, or nil when none is registered.
func (u *WarrantyUsecase) Check(ctx context.Context, assetID string) (*domain.Warranty, error) {
	w, err := u.warranties.FindByAssetID(ctx, strings.TrimSpace(assetID))
	if errors.Is(err, domain.ErrWarrantyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("check warranty: %w", err)
	}
	return w, nil
}

type ListWarrantiesInput struct {
	Page     int
	PageSize int
	Status   string // empty = all
}

type WarrantyPage struct {
	Warranties []*domain.Warranty
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

func (u *WarrantyUsecase) List(ctx context.Context, input ListWarrantiesInput) (*WarrantyPage, error) {
	if input.Page == 0 {
		input.Page = 1
	}
	if input.PageSize == 0 {
		input.PageSize = DefaultPageSize
	}
	if input.Page < 1 {
		return nil, fmt.Errorf("%w: page must be >= 1", domain.ErrInvalidInput)
	}
	if input.PageSize < 1 || input.PageSize > MaxPageSize {
		return nil, fmt.Errorf("%w: page_size must be between 1 and %d", domain.ErrInvalidInput, MaxPageSize)
	}

	var status domain.WarrantyStatus
	if input.Status != "" {
		s, err := domain.ParseWarrantyStatus(input.Status)
		if err != nil {
			return nil, err
		}
		status = s
	}

	items, total, err := u.warranties.List(ctx, repository.ListWarrantiesInput{
		Status: status,
		Offset: (input.Page - 1) * input.PageSize,
		Limit:  input.PageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("list warranties: %w", err)
	}

	totalPages := (total + input.PageSize - 1) / input.PageSize
	if totalPages < 1 {
		totalPages = 1
	}
	return &WarrantyPage{
		Warranties: items,
		Total:      total,
		Page:       input.Page,
		PageSize:   input.PageSize,
		TotalPages: totalPages,
	}, nil
}

func (u *WarrantyUsecase) Get(ctx context.Context, id string) (*domain.Warranty, error) {
	if uuid.Validate(id) != nil {
		return nil, domain.ErrWarrantyNotFound
	}
	w, err := u.warranties.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get warranty: %w", err)
	}
	return w, nil
}

// UpdateStatus is admin only. Service principals are rejected too.
func (u *WarrantyUsecase) UpdateStatus(ctx context.Context, caller domain.Principal, id, newStatus string) (*domain.Warranty, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return nil, err
	}
	if uuid.Validate(id) != nil {
		return nil, domain.ErrWarrantyNotFound
	}
	status, err := domain.ParseWarrantyStatus(newStatus)
	if err != nil {
		return nil, err
	}

	w, err := u.warranties.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, fmt.Errorf("update warranty status: %w", err)
	}
	u.logger.InfoContext(ctx, "warranty status updated", "warranty_id", id, "status", status, "by", caller.User.ID)
	return w, nil
}
