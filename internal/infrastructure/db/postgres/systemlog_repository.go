package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/partpulse/partpulse/internal/core/domain"
	"github.com/partpulse/partpulse/internal/core/ports"
)

const (
	insertSystemLogSQL = `INSERT INTO system_logs (id, event_type, action, user_id, user_name, details, ip_address,
		user_agent, success, error_message, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	selectSystemLogsSQL = `SELECT id, event_type, action, user_id, user_name, details, ip_address, user_agent,
		success, error_message, timestamp FROM system_logs`
	countSystemLogsSQL = `SELECT COUNT(*) FROM system_logs`
)

// SystemLogRepository stores audit rows in the system_logs table.
type SystemLogRepository struct {
	pool *pgxpool.Pool
}

func NewSystemLogRepository(pool *pgxpool.Pool) *SystemLogRepository {
	return &SystemLogRepository{pool: pool}
}

func (r *SystemLogRepository) Insert(ctx context.Context, e *domain.SystemLog) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	var details []byte
	if e.Details != nil {
		b, err := json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("encode log details: %w", err)
		}
		details = b
	}
	_, err := r.pool.Exec(ctx, insertSystemLogSQL, e.ID, string(e.EventType), e.Action, e.UserID, e.UserName,
		details, e.IPAddress, e.UserAgent, e.Success, e.ErrorMessage, e.Timestamp)
	if err != nil {
		return fmt.Errorf("insert system log: %w", err)
	}
	return nil
}

func systemLogWhere(f ports.SystemLogFilter) *whereBuilder {
	w := &whereBuilder{}
	if f.EventType != "" {
		w.add("event_type = ?", string(f.EventType))
	}
	if f.UserID != "" {
		w.add("user_id = ?", f.UserID)
	}
	if f.Action != "" {
		w.add("action = ?", f.Action)
	}
	if f.ActionPrefix != "" {
		w.add("action LIKE ?", likeEscape(f.ActionPrefix)+"%")
	}
	if f.ActionSuffix != "" {
		w.add("action LIKE ?", "%"+likeEscape(f.ActionSuffix))
	}
	if f.ActionContains != "" {
		w.add("action LIKE ?", "%"+likeEscape(f.ActionContains)+"%")
	}
	if f.Success != nil {
		w.add("success = ?", *f.Success)
	}
	if !f.Since.IsZero() {
		w.add("timestamp >= ?", f.Since)
	}
	return w
}

func (r *SystemLogRepository) Count(ctx context.Context, f ports.SystemLogFilter) (int64, error) {
	w := systemLogWhere(f)
	var n int64
	if err := r.pool.QueryRow(ctx, countSystemLogsSQL+w.sql(), w.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count system logs: %w", err)
	}
	return n, nil
}

func (r *SystemLogRepository) Query(ctx context.Context, f ports.SystemLogFilter) ([]*domain.SystemLog, int64, error) {
	total, err := r.Count(ctx, f)
	if err != nil {
		return nil, 0, err
	}

	w := systemLogWhere(f)
	query := selectSystemLogsSQL + w.sql() + " ORDER BY timestamp DESC" +
		recordPage(w, ports.RecordFilter{Limit: f.Limit, Offset: f.Offset})
	rows, err := r.pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query system logs: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.SystemLog, 0)
	for rows.Next() {
		var (
			e         domain.SystemLog
			eventType string
			details   []byte
		)
		if err := rows.Scan(&e.ID, &eventType, &e.Action, &e.UserID, &e.UserName, &details, &e.IPAddress,
			&e.UserAgent, &e.Success, &e.ErrorMessage, &e.Timestamp); err != nil {
			return nil, 0, fmt.Errorf("scan system log: %w", err)
		}
		e.EventType = domain.EventType(eventType)
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, 0, fmt.Errorf("decode log details: %w", err)
			}
		}
		out = append(out, &e)
	}
	return out, total, rows.Err()
}
