package postgres

import (
	"context"
	"fmt"
	"strings"

	"trust-ledger/internal/core/domain"
	"trust-ledger/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// AuditRepo implements ports.AuditRepository. Audit events are
// write-once: inserts only, no updates.
type AuditRepo struct {
	pool Pool
}

// NewAuditRepo creates a new AuditRepo.
func NewAuditRepo(pool Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

// InsertBatch writes a batch of audit events in one round trip.
func (r *AuditRepo) InsertBatch(ctx context.Context, events []domain.AuditEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `INSERT INTO audit_events (id, transaction_id, wallet_id, action, prior_state, new_state, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	for _, e := range events {
		batch.Queue(query,
			e.ID, e.TransactionID, e.WalletID, e.Action,
			e.PriorState, e.NewState, e.Detail, e.CreatedAt,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range events {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert audit event: %w", err)
		}
	}
	return nil
}

// Query fetches audit events with filtering and pagination.
func (r *AuditRepo) Query(ctx context.Context, params ports.AuditQueryParams) ([]domain.AuditEvent, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	if params.TransactionID != "" {
		conditions = append(conditions, fmt.Sprintf("transaction_id = $%d", argIdx))
		args = append(args, params.TransactionID)
		argIdx++
	}
	if params.WalletID != nil {
		conditions = append(conditions, fmt.Sprintf("wallet_id = $%d", argIdx))
		args = append(args, *params.WalletID)
		argIdx++
	}
	if params.Action != nil {
		conditions = append(conditions, fmt.Sprintf("action = $%d", argIdx))
		args = append(args, *params.Action)
		argIdx++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM audit_events %s", where)
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit events: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	dataQuery := fmt.Sprintf(`SELECT id, transaction_id, wallet_id, action, prior_state, new_state, detail, created_at
		FROM audit_events %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, where, argIdx, argIdx+1)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []domain.AuditEvent
	for rows.Next() {
		e := domain.AuditEvent{}
		err := rows.Scan(
			&e.ID, &e.TransactionID, &e.WalletID, &e.Action,
			&e.PriorState, &e.NewState, &e.Detail, &e.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan audit event row: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate audit event rows: %w", err)
	}
	return events, total, nil
}
