package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/partpulse/partpulse/internal/core/domain"
	"github.com/partpulse/partpulse/internal/core/ports"
)

const claimColumns = `c.id, c.date, c.chiller_model, c.chiller_serial, c.ssid_job_number, c.building_name, c.site_name,
	c.technician_name, COALESCE(c.technician_id, ''), c.comments, c.covered_by_warranty, c.technician_signature,
	c.admin_signature, c.admin_processed_stamp, c.admin_date, c.status, c.pdf_path, c.created_at, c.updated_at`

const (
	insertClaimSQL = `INSERT INTO warranty_claims (id, date, chiller_model, chiller_serial, ssid_job_number,
		building_name, site_name, technician_name, technician_id, comments, covered_by_warranty,
		technician_signature, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10, $11, $12, $13, $14, $15)`
	insertClaimItemSQL = `INSERT INTO warranty_items (id, claim_id, position, part_no, quantity, failed_part_serial,
		replaced_part_serial, date_of_failure, date_of_repair)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	selectClaimFromSQL  = `SELECT ` + claimColumns + ` FROM warranty_claims c`
	countClaimsSQL      = `SELECT COUNT(*) FROM warranty_claims c`
	selectClaimItemsSQL = `SELECT id, claim_id, part_no, quantity, failed_part_serial, replaced_part_serial,
		date_of_failure, date_of_repair FROM warranty_items WHERE claim_id = ANY($1) ORDER BY claim_id, position`
	updateClaimPDFSQL    = `UPDATE warranty_claims SET pdf_path = $2, updated_at = NOW() WHERE id = $1`
	updateClaimReviewSQL = `UPDATE warranty_claims SET status = $2, admin_signature = $3, admin_processed_stamp = $4,
		admin_date = $5, updated_at = $6 WHERE id = $1`
)

// ClaimRepository implements ports.ClaimRepository.
type ClaimRepository struct {
	pool *pgxpool.Pool
}

func NewClaimRepository(pool *pgxpool.Pool) *ClaimRepository {
	return &ClaimRepository{pool: pool}
}

// Create writes the claim and its items in one transaction.
func (r *ClaimRepository) Create(ctx context.Context, c *domain.WarrantyClaim) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, insertClaimSQL, c.ID, c.Date, c.ChillerModel, c.ChillerSerial, c.SSIDJobNumber,
			c.BuildingName, c.SiteName, c.TechnicianName, c.TechnicianID, c.Comments, c.CoveredByWarranty,
			c.TechnicianSignature, string(c.Status), c.CreatedAt, c.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert claim: %w", err)
		}

		batch := &pgx.Batch{}
		for i, it := range c.Items {
			batch.Queue(insertClaimItemSQL, it.ID, c.ID, i, it.PartNo, it.Quantity, it.FailedPartSerial,
				it.ReplacedPartSerial, it.DateOfFailure, it.DateOfRepair)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert claim items: %w", err)
		}
		return nil
	})
}

func scanClaim(row pgx.Row) (*domain.WarrantyClaim, error) {
	var (
		c      domain.WarrantyClaim
		status string
	)
	err := row.Scan(&c.ID, &c.Date, &c.ChillerModel, &c.ChillerSerial, &c.SSIDJobNumber, &c.BuildingName,
		&c.SiteName, &c.TechnicianName, &c.TechnicianID, &c.Comments, &c.CoveredByWarranty, &c.TechnicianSignature,
		&c.AdminSignature, &c.AdminProcessedStamp, &c.AdminDate, &status, &c.PDFPath, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.Status = domain.ClaimStatus(status)
	c.Items = []domain.WarrantyItem{}
	return &c, nil
}

func (r *ClaimRepository) FindByID(ctx context.Context, id string) (*domain.WarrantyClaim, error) {
	c, err := scanClaim(r.pool.QueryRow(ctx, selectClaimFromSQL+` WHERE c.id = $1`, id))
	if isNoRows(err) {
		return nil, domain.ErrClaimNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select claim: %w", err)
	}
	if err := r.loadItems(ctx, []*domain.WarrantyClaim{c}); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *ClaimRepository) List(ctx context.Context, f ports.RecordFilter) ([]*domain.WarrantyClaim, int64, error) {
	w := recordWhere(f, "c.")
	var total int64
	if err := r.pool.QueryRow(ctx, countClaimsSQL+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count claims: %w", err)
	}

	query := selectClaimFromSQL + w.sql() + recordOrder(f, "c.") + recordPage(w, f)
	rows, err := r.pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list claims: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.WarrantyClaim, 0)
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan claim: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if err := r.loadItems(ctx, out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *ClaimRepository) loadItems(ctx context.Context, claims []*domain.WarrantyClaim) error {
	if len(claims) == 0 {
		return nil
	}
	byID := make(map[string]*domain.WarrantyClaim, len(claims))
	ids := make([]string, 0, len(claims))
	for _, c := range claims {
		byID[c.ID] = c
		ids = append(ids, c.ID)
	}

	rows, err := r.pool.Query(ctx, selectClaimItemsSQL, ids)
	if err != nil {
		return fmt.Errorf("select claim items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it domain.WarrantyItem
		if err := rows.Scan(&it.ID, &it.ClaimID, &it.PartNo, &it.Quantity, &it.FailedPartSerial,
			&it.ReplacedPartSerial, &it.DateOfFailure, &it.DateOfRepair); err != nil {
			return fmt.Errorf("scan claim item: %w", err)
		}
		if c, ok := byID[it.ClaimID]; ok {
			c.Items = append(c.Items, it)
		}
	}
	return rows.Err()
}

func (r *ClaimRepository) UpdatePDFPath(ctx context.Context, id, path string) error {
	tag, err := r.pool.Exec(ctx, updateClaimPDFSQL, id, path)
	if err != nil {
		return fmt.Errorf("update claim pdf: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrClaimNotFound
	}
	return nil
}

func (r *ClaimRepository) UpdateReview(ctx context.Context, c *domain.WarrantyClaim) error {
	tag, err := r.pool.Exec(ctx, updateClaimReviewSQL, c.ID, string(c.Status), c.AdminSignature,
		c.AdminProcessedStamp, c.AdminDate, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update claim review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrClaimNotFound
	}
	return nil
}
