package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ErlanBelekov/warranty-register/internal/domain"
	"github.com/ErlanBelekov/warranty-register/internal/transport/http/httperr"
	"github.com/ErlanBelekov/warranty-register/internal/usecase"
	"github.com/gin-gonic/gin"
)

type warrantyUsecaser interface {
	Register(ctx context.Context, caller domain.Principal, input usecase.RegisterWarrantyInput) (*usecase.RegistrationResult, error)
	Check(ctx context.Context, assetID string) (*domain.Warranty, error)
	List(ctx context.Context, input usecase.ListWarrantiesInput) (*usecase.WarrantyPage, error)
	Get(ctx context.Context, id string) (*domain.Warranty, error)
	UpdateStatus(ctx context.Context, caller domain.Principal, id, newStatus string) (*domain.Warranty, error)
}

type WarrantyHandler struct {
	warranties warrantyUsecaser
	logger     *slog.Logger
}

func NewWarrantyHandler(warranties warrantyUsecaser, logger *slog.Logger) *WarrantyHandler {
	return &WarrantyHandler{warranties: warranties, logger: logger.With("component", "warranty_handler")}
}

// flexTime accepts RFC 3339 timestamps and bare dates.
type flexTime struct{ time.Time }

func (t *flexTime) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", time.DateOnly} {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("invalid date %q", s)
}

type registerWarrantyRequest struct {
	AssetID           string    `json:"asset_id"            binding:"required,max=255"`
	AssetName         string    `json:"asset_name"          binding:"required,max=255"`
	Category          string    `json:"category"            binding:"max=100"`
	Department        string    `json:"department"          binding:"max=100"`
	Cost              *float64  `json:"cost"                binding:"omitempty,gte=0"`
	DatePurchased     *flexTime `json:"date_purchased"`
	WarrantyNotes     string    `json:"warranty_notes"`
	RegisteredByEmail string    `json:"registered_by_email" binding:"omitempty,email,max=255"`
}

type registrationResponse struct {
	Success        bool    `json:"success"`
	Message        string  `json:"message"`
	WarrantyID     *string `json:"warranty_id"`
	WarrantyStatus *string `json:"warranty_status"`
}

type listWarrantiesQuery struct {
	Page         int    `form:"page"          binding:"omitempty,min=1"`
	PageSize     int    `form:"page_size"     binding:"omitempty,min=1,max=100"`
	StatusFilter string `form:"status_filter"`
}

type listWarrantiesResponse struct {
	Warranties []warrantyResponse `json:"warranties"`
	Total      int                `json:"total"`
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`
	TotalPages int                `json:"total_pages"`
}

type updateStatusRequest struct {
	NewStatus string `json:"new_status"`
}

// POST /api/v1/warranties/register
// Registering an asset twice is not an error: the second call reports
// success=false with the existing warranty's id and status.
func (h *WarrantyHandler) Register(c *gin.Context) {
	var req registerWarrantyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input := usecase.RegisterWarrantyInput{
		AssetID:           req.AssetID,
		AssetName:         req.AssetName,
		Category:          req.Category,
		Department:        req.Department,
		Cost:              req.Cost,
		Notes:             req.WarrantyNotes,
		RegisteredByEmail: req.RegisteredByEmail,
	}
	if req.DatePurchased != nil && !req.DatePurchased.IsZero() {
		input.DatePurchased = &req.DatePurchased.Time
	}

	p, _ := domain.PrincipalFromContext(c.Request.Context())
	res, err := h.warranties.Register(c.Request.Context(), p, input)
	if err != nil {
		httperr.Abort(c, h.logger, "register warranty", err)
		return
	}

	status := string(res.Status)
	c.JSON(http.StatusOK, registrationResponse{
		Success:        res.Success,
		Message:        res.Message,
		WarrantyID:     nullable(res.WarrantyID),
		WarrantyStatus: nullable(status),
	})
}

// GET /api/v1/warranties/check/:asset_id
// Responds with the warranty, or JSON null when the asset has none.
func (h *WarrantyHandler) Check(c *gin.Context) {
	w, err := h.warranties.Check(c.Request.Context(), c.Param("asset_id"))
	if err != nil {
		httperr.Abort(c, h.logger, "check warranty", err)
		return
	}
	if w == nil {
		c.JSON(http.StatusOK, nil)
		return
	}
	c.JSON(http.StatusOK, toWarrantyResponse(w))
}

// GET /api/v1/warranties
func (h *WarrantyHandler) List(c *gin.Context) {
	var q listWarrantiesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	page, err := h.warranties.List(c.Request.Context(), usecase.ListWarrantiesInput{
		Page: q.Page, PageSize: q.PageSize, Status: q.StatusFilter,
	})
	if err != nil {
		httperr.Abort(c, h.logger, "list warranties", err)
		return
	}

	items := make([]warrantyResponse, len(page.Warranties))
	for i, w := range page.Warranties {
		items[i] = toWarrantyResponse(w)
	}
	c.JSON(http.StatusOK, listWarrantiesResponse{
		Warranties: items,
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
	})
}

// GET /api/v1/warranties/:id
func (h *WarrantyHandler) Get(c *gin.Context) {
	w, err := h.warranties.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		httperr.Abort(c, h.logger, "get warranty", err)
		return
	}
	c.JSON(http.StatusOK, toWarrantyResponse(w))
}

// PUT /api/v1/warranties/:id/status?new_status=<status>
// A JSON body {"new_status": ...} is accepted when the query is absent.
func (h *WarrantyHandler) UpdateStatus(c *gin.Context) {
	newStatus := c.Query("new_status")
	if newStatus == "" {
		var req updateStatusRequest
		if err := c.ShouldBindJSON(&req); err == nil {
			newStatus = req.NewStatus
		}
	}
	if newStatus == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "new_status is required"})
		return
	}

	p, _ := domain.PrincipalFromContext(c.Request.Context())
	w, err := h.warranties.UpdateStatus(c.Request.Context(), p, c.Param("id"), newStatus)
	if err != nil {
		httperr.Abort(c, h.logger, "update warranty status", err)
		return
	}
	c.JSON(http.StatusOK, toWarrantyResponse(w))
}
