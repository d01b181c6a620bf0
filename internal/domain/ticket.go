package domain

import (
	"fmt"
	"time"
)

// TicketStatus enumerates lifecycle states for grievance tickets.
type TicketStatus string

const (
	TicketStatusOpen        TicketStatus = "open"
	TicketStatusAssigned    TicketStatus = "assigned"
	TicketStatusInProgress  TicketStatus = "in_progress"
	TicketStatusPendingInfo TicketStatus = "pending_info"
	TicketStatusEscalated   TicketStatus = "escalated"
	TicketStatusResolved    TicketStatus = "resolved"
	TicketStatusClosed      TicketStatus = "closed"
	TicketStatusReopened    TicketStatus = "reopened"
)

// KnownStatuses lists every recognized status value.
var KnownStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusAssigned,
	TicketStatusInProgress,
	TicketStatusPendingInfo,
	TicketStatusEscalated,
	TicketStatusResolved,
	TicketStatusClosed,
	TicketStatusReopened,
}

// IsKnownStatus reports whether the value is a recognized status.
func IsKnownStatus(status TicketStatus) bool {
	for _, s := range KnownStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// IsResolvedFamily reports whether the status counts as resolved for
// dashboards and escalation (resolved or closed).
func (s TicketStatus) IsResolvedFamily() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// Location is the optional structured location attached to a ticket.
// It is stored as a JSON blob on the ticket row.
type Location struct {
	Type  string `json:"type"`
	Block string `json:"block,omitempty"`
	Floor string `json:"floor,omitempty"`
	Room  string `json:"room,omitempty"`
}

// Ticket is the aggregate for a submitted grievance.
type Ticket struct {
	TicketCode           string
	StudentID            string
	StudentEmail         string
	StudentName          string
	OriginalText         string
	Classification       *Classification
	Location             *Location
	Status               TicketStatus
	AssignedTo           *string
	AssignedDepartment   string
	CreatedAt            time.Time
	UpdatedAt            time.Time
	ResolvedAt           *time.Time
	ExpectedResolutionAt *time.Time
	IsDuplicate          bool
	DuplicateOf          *string
	RelatedTickets       []string
	Attachments          []string
	IsAnonymous          bool
	Priority             int
	StatusNotes          string
}

// AnonymousName is substituted for the submitter's display name on
// anonymous tickets. The real identity stays on the row for audit.
const AnonymousName = "Anonymous"

// DisplayName returns the name shown for the submitter, honoring anonymity.
func (t *Ticket) DisplayName() string {
	if t.IsAnonymous {
		return AnonymousName
	}
	return t.StudentName
}

// Department returns the department handling the ticket, falling back to
// the classified department when no explicit assignment exists.
func (t *Ticket) Department() string {
	if t.AssignedDepartment != "" {
		return t.AssignedDepartment
	}
	if t.Classification != nil {
		return t.Classification.Department
	}
	return ""
}

// FormatTicketCode renders a ticket code from the wall-clock year and a
// counter value, e.g. GRV-2026-00042. The counter is global across years,
// so sequence numbers never repeat even at a year boundary.
func FormatTicketCode(year int, seq int64) string {
	return fmt.Sprintf("GRV-%d-%05d", year, seq)
}
