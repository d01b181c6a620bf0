package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// TicketFilter captures listing parameters. Results are newest-first.
type TicketFilter struct {
	StudentID  *string
	Department *string
	Statuses   []domain.TicketStatus
	Limit      int
}

// TicketRepository encapsulates ticket persistence. Create mints the ticket
// code from the shared counter in the same transaction as the insert.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByCode(ctx context.Context, code string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `ticket_code, student_id, student_email, student_name, original_text,
               classification, location, status, assigned_to, assigned_department,
               created_at, updated_at, resolved_at, expected_resolution_at,
               is_duplicate, duplicate_of, related_tickets, attachments,
               is_anonymous, priority, status_notes`

// Create inserts the ticket and mints its code atomically: the counter
// increment and the row commit together or not at all.
func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	seq, err := nextCounterValue(ctx, tx, CounterTickets)
	if err != nil {
		return err
	}
	ticket.TicketCode = domain.FormatTicketCode(time.Now().Year(), seq)

	const query = `
        INSERT INTO tickets (ticket_code, student_id, student_email, student_name, original_text,
                             classification, location, status, assigned_to, assigned_department,
                             expected_resolution_at, is_duplicate, duplicate_of, related_tickets,
                             attachments, is_anonymous, priority, status_notes)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
        RETURNING created_at, updated_at`
	if err := tx.QueryRow(ctx, query,
		ticket.TicketCode,
		ticket.StudentID,
		ticket.StudentEmail,
		ticket.StudentName,
		ticket.OriginalText,
		ticket.Classification,
		ticket.Location,
		ticket.Status,
		ticket.AssignedTo,
		ticket.AssignedDepartment,
		ticket.ExpectedResolutionAt,
		ticket.IsDuplicate,
		ticket.DuplicateOf,
		ticket.RelatedTickets,
		ticket.Attachments,
		ticket.IsAnonymous,
		ticket.Priority,
		ticket.StatusNotes,
	).Scan(&ticket.CreatedAt, &ticket.UpdatedAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Update writes the mutable fields. resolved_at is COALESCEd: once set it is
// never cleared, even when the ticket is reopened.
func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET status=$1, assigned_to=$2, assigned_department=$3,
            is_duplicate=$4, duplicate_of=$5, related_tickets=$6, attachments=$7,
            status_notes=$8, resolved_at=COALESCE(resolved_at, $9), updated_at=NOW()
        WHERE ticket_code=$10
        RETURNING updated_at, resolved_at`
	if err := r.pool.QueryRow(ctx, query,
		ticket.Status,
		ticket.AssignedTo,
		ticket.AssignedDepartment,
		ticket.IsDuplicate,
		ticket.DuplicateOf,
		ticket.RelatedTickets,
		ticket.Attachments,
		ticket.StatusNotes,
		ticket.ResolvedAt,
		ticket.TicketCode,
	).Scan(&ticket.UpdatedAt, &ticket.ResolvedAt); err != nil {
		return err
	}
	return nil
}

func (r *ticketRepository) GetByCode(ctx context.Context, code string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE ticket_code=$1`, ticketColumns)
	rows, err := r.pool.Query(ctx, query, code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tickets, err := scanTickets(rows)
	if err != nil {
		return nil, err
	}
	if len(tickets) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &tickets[0], nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.StudentID != nil {
		args = append(args, *filter.StudentID)
		clauses = append(clauses, fmt.Sprintf("student_id=$%d", len(args)))
	}
	if filter.Department != nil {
		args = append(args, *filter.Department)
		clauses = append(clauses, fmt.Sprintf("assigned_department=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC LIMIT %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.TicketCode,
			&ticket.StudentID,
			&ticket.StudentEmail,
			&ticket.StudentName,
			&ticket.OriginalText,
			&ticket.Classification,
			&ticket.Location,
			&ticket.Status,
			&ticket.AssignedTo,
			&ticket.AssignedDepartment,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
			&ticket.ResolvedAt,
			&ticket.ExpectedResolutionAt,
			&ticket.IsDuplicate,
			&ticket.DuplicateOf,
			&ticket.RelatedTickets,
			&ticket.Attachments,
			&ticket.IsAnonymous,
			&ticket.Priority,
			&ticket.StatusNotes,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
