package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ErlanBelekov/warranty-register/internal/domain"
	"github.com/ErlanBelekov/warranty-register/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const warrantyColumns = `
	id, asset_id, asset_name, COALESCE(category, ''), COALESCE(department, ''),
	cost, date_purchased, warranty_status, warranty_start_date, warranty_end_date,
	COALESCE(warranty_notes, ''), registered_by, COALESCE(registered_by_email, ''),
	registered_at, created_at, updated_at`

type WarrantyRepository struct {
	db DBTX
}

func NewWarrantyRepository(db DBTX) *WarrantyRepository {
	return &WarrantyRepository{db: db}
}

func (r *WarrantyRepository) Create(ctx context.Context, w *domain.Warranty) (*domain.Warranty, error) {
	query := `
		INSERT INTO warranties (
			asset_id, asset_name, category, department, cost, date_purchased,
			warranty_status, warranty_start_date, warranty_end_date, warranty_notes,
			registered_by, registered_by_email
		) VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7, $8, $9, NULLIF($10, ''), $11, NULLIF($12, ''))
		RETURNING ` + warrantyColumns

	row := r.db.QueryRow(ctx, query,
		w.AssetID,
		w.AssetName,
		w.Category,
		w.Department,
		w.Cost,
		w.DatePurchased,
		w.Status,
		w.StartDate,
		w.EndDate,
		w.Notes,
		w.RegisteredBy,
		w.RegisteredByEmail,
	)

	created, err := scanWarranty(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, domain.ErrDuplicateAsset
		}
		return nil, err
	}
	return created, nil
}

func (r *WarrantyRepository) FindByAssetID(ctx context.Context, assetID string) (*domain.Warranty, error) {
	row := r.db.QueryRow(ctx, `SELECT `+warrantyColumns+` FROM warranties WHERE asset_id = $1`, assetID)
	return scanWarranty(row)
}

func (r *WarrantyRepository) GetByID(ctx context.Context, id string) (*domain.Warranty, error) {
	row := r.db.QueryRow(ctx, `SELECT `+warrantyColumns+` FROM warranties WHERE id = $1`, id)
	return scanWarranty(row)
}

func (r *WarrantyRepository) List(ctx context.Context, input repository.ListWarrantiesInput) ([]*domain.Warranty, int, error) {
	var (
		args  []any
		where []string
	)
	if input.Status != "" {
		args = append(args, input.Status)
		where = append(where, fmt.Sprintf("warranty_status = $%d", len(args)))
	}
	filter := ""
	if len(where) > 0 {
		filter = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM warranties`+filter, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count warranties: %w", err)
	}

	args = append(args, input.Limit, input.Offset)
	query := fmt.Sprintf(`SELECT %s FROM warranties%s
		ORDER BY registered_at DESC, id DESC
		LIMIT $%d OFFSET $%d`,
		warrantyColumns, filter, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list warranties: %w", err)
	}
	defer rows.Close()

	var out []*domain.Warranty
	for rows.Next() {
		w, err := scanWarranty(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list warranties: %w", err)
	}
	return out, total, nil
}

func (r *WarrantyRepository) UpdateStatus(ctx context.Context, id string, status domain.WarrantyStatus) (*domain.Warranty, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE warranties SET warranty_status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+warrantyColumns, id, status)
	return scanWarranty(row)
}

func (r *WarrantyRepository) ExpireDue(ctx context.Context, now time.Time, limit int) (int, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE warranties
		SET    warranty_status = 'expired',
		       updated_at      = NOW()
		WHERE id IN (
			SELECT id FROM warranties
			WHERE  warranty_status IN ('registered', 'active')
			  AND  warranty_end_date < $1
			ORDER BY warranty_end_date ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)`, now, limit)
	if err != nil {
		return 0, fmt.Errorf("expire warranties: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// pgx.Row and pgx.Rows both implement this.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanWarranty(row rowScanner) (*domain.Warranty, error) {
	var w domain.Warranty
	err := row.Scan(
		&w.ID, &w.AssetID, &w.AssetName, &w.Category, &w.Department,
		&w.Cost, &w.DatePurchased, &w.Status, &w.StartDate, &w.EndDate,
		&w.Notes, &w.RegisteredBy, &w.RegisteredByEmail,
		&w.RegisteredAt, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWarrantyNotFound
		}
		return nil, fmt.Errorf("scan warranty: %w", err)
	}
	return &w, nil
}
