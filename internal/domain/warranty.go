package domain

import (
	"fmt"
	"time"
)

var (
	ErrWarrantyNotFound = errorWrap("warranty not found", ErrNotFound)
	ErrInvalidStatus    = errorWrap("invalid warranty status", ErrInvalidInput)
	ErrDuplicateAsset   = errorWrap("warranty already registered for this asset", ErrConflict)
)

type WarrantyStatus string

const (
	StatusRegistered WarrantyStatus = "registered"
	StatusActive     WarrantyStatus = "active"
	StatusExpired    WarrantyStatus = "expired"
	StatusClaimed    WarrantyStatus = "claimed"
)

var WarrantyStatuses = []WarrantyStatus{StatusRegistered, StatusActive, StatusExpired, StatusClaimed}

func ParseWarrantyStatus(s string) (WarrantyStatus, error) {
	for _, st := range WarrantyStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

type Warranty struct {
	ID                string
	AssetID           string // idempotency key for registration
	AssetName         string
	Category          string
	Department        string
	Cost              *float64
	DatePurchased     *time.Time
	Status            WarrantyStatus
	StartDate         time.Time
	EndDate           *time.Time
	Notes             string
	RegisteredBy      string
	RegisteredByEmail string
	RegisteredAt      time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
