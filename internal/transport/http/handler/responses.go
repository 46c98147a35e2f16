package handler

import (
	"time"

	"github.com/ErlanBelekov/warranty-register/internal/domain"
)

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  *string   `json:"full_name"`
	IsActive  bool      `json:"is_active"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

type warrantyResponse struct {
	ID                string                `json:"id"`
	AssetID           string                `json:"asset_id"`
	AssetName         string                `json:"asset_name"`
	Category          *string               `json:"category"`
	Department        *string               `json:"department"`
	Cost              *float64              `json:"cost"`
	DatePurchased     *time.Time            `json:"date_purchased"`
	Status            domain.WarrantyStatus `json:"warranty_status"`
	StartDate         time.Time             `json:"warranty_start_date"`
	EndDate           *time.Time            `json:"warranty_end_date"`
	Notes             *string               `json:"warranty_notes"`
	RegisteredBy      string                `json:"registered_by"`
	RegisteredByEmail *string               `json:"registered_by_email"`
	RegisteredAt      time.Time             `json:"registered_at"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
}

// nullable renders empty optional text columns as JSON null.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  nullable(u.FullName),
		IsActive:  u.IsActive,
		IsAdmin:   u.IsAdmin,
		CreatedAt: u.CreatedAt,
	}
}

func toWarrantyResponse(w *domain.Warranty) warrantyResponse {
	return warrantyResponse{
		ID:                w.ID,
		AssetID:           w.AssetID,
		AssetName:         w.AssetName,
		Category:          nullable(w.Category),
		Department:        nullable(w.Department),
		Cost:              w.Cost,
		DatePurchased:     w.DatePurchased,
		Status:            w.Status,
		StartDate:         w.StartDate,
		EndDate:           w.EndDate,
		Notes:             nullable(w.Notes),
		RegisteredBy:      w.RegisteredBy,
		RegisteredByEmail: nullable(w.RegisteredByEmail),
		RegisteredAt:      w.RegisteredAt,
		CreatedAt:         w.CreatedAt,
		UpdatedAt:         w.UpdatedAt,
	}
}
