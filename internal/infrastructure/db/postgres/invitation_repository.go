package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/partpulse/partpulse/internal/core/domain"
	"github.com/partpulse/partpulse/internal/core/ports"
)

const invitationColumns = `id, email, name, role, token_hash, invited_by, expires_at, accepted_at, created_at`

const (
	insertInvitationSQL = `INSERT INTO invitations (` + invitationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	selectInvitationByTokenSQL = `SELECT ` + invitationColumns + ` FROM invitations WHERE token_hash = $1`
	acceptInvitationSQL        = `UPDATE invitations SET accepted_at = $2 WHERE id = $1 AND accepted_at IS NULL`
	listInvitationsSQL         = `SELECT ` + invitationColumns + ` FROM invitations ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	countInvitationsSQL        = `SELECT
		COUNT(*),
		COUNT(*) FILTER (WHERE accepted_at IS NULL AND expires_at > $1),
		COUNT(*) FILTER (WHERE accepted_at IS NOT NULL),
		COUNT(*) FILTER (WHERE accepted_at IS NULL AND expires_at <= $1)
		FROM invitations`
)

// InvitationRepository implements ports.InvitationRepository.
type InvitationRepository struct {
	pool *pgxpool.Pool
}

func NewInvitationRepository(pool *pgxpool.Pool) *InvitationRepository {
	return &InvitationRepository{pool: pool}
}

func scanInvitation(row pgx.Row) (*domain.Invitation, error) {
	var inv domain.Invitation
	err := row.Scan(&inv.ID, &inv.Email, &inv.Name, &inv.Role, &inv.TokenHash, &inv.InvitedBy,
		&inv.ExpiresAt, &inv.AcceptedAt, &inv.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *InvitationRepository) Create(ctx context.Context, inv *domain.Invitation) error {
	_, err := r.pool.Exec(ctx, insertInvitationSQL, inv.ID, inv.Email, inv.Name, inv.Role, inv.TokenHash,
		inv.InvitedBy, inv.ExpiresAt, inv.AcceptedAt, inv.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert invitation: %w", err)
	}
	return nil
}

func (r *InvitationRepository) FindByTokenHash(ctx context.Context, hash string) (*domain.Invitation, error) {
	inv, err := scanInvitation(r.pool.QueryRow(ctx, selectInvitationByTokenSQL, hash))
	if isNoRows(err) {
		return nil, domain.ErrInvitationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select invitation: %w", err)
	}
	return inv, nil
}

// MarkAccepted fails with ErrInvitationAccepted when the invitation was
// already redeemed.
func (r *InvitationRepository) MarkAccepted(ctx context.Context, id string, at time.Time) error {
	tag, err := r.pool.Exec(ctx, acceptInvitationSQL, id, at)
	if err != nil {
		return fmt.Errorf("accept invitation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInvitationAccepted
	}
	return nil
}

func (r *InvitationRepository) ListRecent(ctx context.Context, limit, offset int) ([]*domain.Invitation, error) {
	rows, err := r.pool.Query(ctx, listInvitationsSQL, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Invitation, 0, limit)
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invitation: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (r *InvitationRepository) Counts(ctx context.Context, now time.Time) (ports.InvitationCounts, error) {
	var c ports.InvitationCounts
	err := r.pool.QueryRow(ctx, countInvitationsSQL, now).Scan(&c.Total, &c.Pending, &c.Accepted, &c.Expired)
	if err != nil {
		return c, fmt.Errorf("count invitations: %w", err)
	}
	return c, nil
}
