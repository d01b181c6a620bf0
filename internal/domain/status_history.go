package domain

import "time"

// StatusHistory is an append-only audit entry for a status mutation.
// Entries are written on every status change, including same-status
// updates, and are never modified afterwards.
type StatusHistory struct {
	ID             int64
	TicketCode     string
	PreviousStatus TicketStatus
	NewStatus      TicketStatus
	ChangedBy      string
	ChangedAt      time.Time
	Notes          string
	IsAutomatic    bool
}
