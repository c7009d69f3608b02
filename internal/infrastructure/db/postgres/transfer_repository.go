package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/partpulse/partpulse/internal/core/domain"
	"github.com/partpulse/partpulse/internal/core/ports"
)

const transferColumns = `t.id, t.date, t.ssid, t.site_name, t.po_number, t.technician_name, COALESCE(t.technician_id, ''),
	t.client_name, t.client_date, t.client_signature, t.status, t.pdf_path, t.admin_stamp, t.approved_by,
	t.approved_at, t.created_at, t.updated_at, u.id, u.name, u.email`

const (
	insertTransferSQL = `INSERT INTO internal_transfers (id, date, ssid, site_name, po_number, technician_name,
		technician_id, client_name, client_date, client_signature, status, pdf_path, admin_stamp, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $10, $11, $12, $13, $14, $15)`
	insertTransferItemSQL = `INSERT INTO internal_transfer_items (id, transfer_id, position, qty, part_no, description)
		VALUES ($1, $2, $3, $4, $5, $6)`
	selectTransferFromSQL = `SELECT ` + transferColumns + ` FROM internal_transfers t
		LEFT JOIN users u ON u.id = t.technician_id`
	countTransfersSQL      = `SELECT COUNT(*) FROM internal_transfers t`
	selectTransferItemsSQL = `SELECT id, transfer_id, qty, part_no, description FROM internal_transfer_items
		WHERE transfer_id = ANY($1) ORDER BY transfer_id, position`
	updateTransferPDFSQL    = `UPDATE internal_transfers SET pdf_path = $2, updated_at = NOW() WHERE id = $1`
	updateTransferStatusSQL = `UPDATE internal_transfers SET status = $2, admin_stamp = $3, approved_by = $4,
		approved_at = $5, updated_at = $6 WHERE id = $1`
)

// TransferRepository implements ports.TransferRepository.
type TransferRepository struct {
	pool *pgxpool.Pool
}

func NewTransferRepository(pool *pgxpool.Pool) *TransferRepository {
	return &TransferRepository{pool: pool}
}

// Create writes the transfer and its items in one transaction.
func (r *TransferRepository) Create(ctx context.Context, t *domain.InternalTransfer) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, insertTransferSQL, t.ID, t.Date, t.SSID, t.SiteName, t.PONumber, t.TechnicianName,
			t.TechnicianID, t.ClientName, t.ClientDate, t.ClientSignature, string(t.Status), t.PDFPath, t.AdminStamp,
			t.CreatedAt, t.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert transfer: %w", err)
		}

		batch := &pgx.Batch{}
		for i, it := range t.Items {
			batch.Queue(insertTransferItemSQL, it.ID, t.ID, i, it.Qty, it.PartNo, it.Description)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert transfer items: %w", err)
		}
		return nil
	})
}

func scanTransfer(row pgx.Row) (*domain.InternalTransfer, error) {
	var (
		t                   domain.InternalTransfer
		status              string
		techID, name, email *string
	)
	err := row.Scan(&t.ID, &t.Date, &t.SSID, &t.SiteName, &t.PONumber, &t.TechnicianName, &t.TechnicianID,
		&t.ClientName, &t.ClientDate, &t.ClientSignature, &status, &t.PDFPath, &t.AdminStamp, &t.ApprovedBy,
		&t.ApprovedAt, &t.CreatedAt, &t.UpdatedAt, &techID, &name, &email)
	if err != nil {
		return nil, err
	}
	t.Status = domain.TransferStatus(status)
	if techID != nil {
		t.Technician = &domain.UserSummary{ID: *techID, Name: deref(name), Email: deref(email)}
	}
	t.Items = []domain.InternalTransferItem{}
	return &t, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (r *TransferRepository) FindByID(ctx context.Context, id string) (*domain.InternalTransfer, error) {
	t, err := scanTransfer(r.pool.QueryRow(ctx, selectTransferFromSQL+` WHERE t.id = $1`, id))
	if isNoRows(err) {
		return nil, domain.ErrTransferNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select transfer: %w", err)
	}
	if err := r.loadItems(ctx, []*domain.InternalTransfer{t}); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *TransferRepository) List(ctx context.Context, f ports.RecordFilter) ([]*domain.InternalTransfer, int64, error) {
	w := recordWhere(f, "t.")
	var total int64
	if err := r.pool.QueryRow(ctx, countTransfersSQL+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transfers: %w", err)
	}

	query := selectTransferFromSQL + w.sql() + recordOrder(f, "t.") + recordPage(w, f)
	rows, err := r.pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list transfers: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.InternalTransfer, 0)
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan transfer: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if err := r.loadItems(ctx, out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *TransferRepository) loadItems(ctx context.Context, transfers []*domain.InternalTransfer) error {
	if len(transfers) == 0 {
		return nil
	}
	byID := make(map[string]*domain.InternalTransfer, len(transfers))
	ids := make([]string, 0, len(transfers))
	for _, t := range transfers {
		byID[t.ID] = t
		ids = append(ids, t.ID)
	}

	rows, err := r.pool.Query(ctx, selectTransferItemsSQL, ids)
	if err != nil {
		return fmt.Errorf("select transfer items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it domain.InternalTransferItem
		if err := rows.Scan(&it.ID, &it.TransferID, &it.Qty, &it.PartNo, &it.Description); err != nil {
			return fmt.Errorf("scan transfer item: %w", err)
		}
		if t, ok := byID[it.TransferID]; ok {
			t.Items = append(t.Items, it)
		}
	}
	return rows.Err()
}

func (r *TransferRepository) UpdatePDFPath(ctx context.Context, id, path string) error {
	tag, err := r.pool.Exec(ctx, updateTransferPDFSQL, id, path)
	if err != nil {
		return fmt.Errorf("update transfer pdf: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTransferNotFound
	}
	return nil
}

func (r *TransferRepository) UpdateStatus(ctx context.Context, t *domain.InternalTransfer) error {
	tag, err := r.pool.Exec(ctx, updateTransferStatusSQL, t.ID, string(t.Status), t.AdminStamp, t.ApprovedBy, t.ApprovedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update transfer status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTransferNotFound
	}
	return nil
}
