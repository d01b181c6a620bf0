package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// CounterTickets is the series used to mint ticket codes. The counter is
// global and never reset, so sequence numbers stay monotonic across years.
const CounterTickets = "tickets"

// nextCounterValue atomically increments and reads a named counter inside
// the caller's transaction. Two concurrent creators can never observe the
// same value: the row lock taken by UPDATE serializes them, and the value
// is only consumed if the surrounding transaction commits.
func nextCounterValue(ctx context.Context, tx pgx.Tx, name string) (int64, error) {
	const query = `UPDATE counters SET value = value + 1 WHERE name = $1 RETURNING value`
	var value int64
	if err := tx.QueryRow(ctx, query, name).Scan(&value); err != nil {
		return 0, err
	}
	return value, nil
}
