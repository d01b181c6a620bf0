package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// StatusHistoryRepository stores the append-only status audit log.
type StatusHistoryRepository interface {
	Create(ctx context.Context, entry *domain.StatusHistory) error
	ListByTicket(ctx context.Context, ticketCode string) ([]domain.StatusHistory, error)
}

type statusHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewStatusHistoryRepository builds repository.
func NewStatusHistoryRepository(pool *pgxpool.Pool) StatusHistoryRepository {
	return &statusHistoryRepository{pool: pool}
}

func (r *statusHistoryRepository) Create(ctx context.Context, entry *domain.StatusHistory) error {
	const query = `
        INSERT INTO status_history (ticket_code, previous_status, new_status, changed_by, notes, is_automatic)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, changed_at`
	return r.pool.QueryRow(ctx, query,
		entry.TicketCode,
		entry.PreviousStatus,
		entry.NewStatus,
		entry.ChangedBy,
		entry.Notes,
		entry.IsAutomatic,
	).Scan(&entry.ID, &entry.ChangedAt)
}

func (r *statusHistoryRepository) ListByTicket(ctx context.Context, ticketCode string) ([]domain.StatusHistory, error) {
	const query = `
        SELECT id, ticket_code, previous_status, new_status, changed_by, changed_at, notes, is_automatic
        FROM status_history WHERE ticket_code=$1 ORDER BY changed_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StatusHistory
	for rows.Next() {
		var entry domain.StatusHistory
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketCode,
			&entry.PreviousStatus,
			&entry.NewStatus,
			&entry.ChangedBy,
			&entry.ChangedAt,
			&entry.Notes,
			&entry.IsAutomatic,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
