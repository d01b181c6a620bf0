package dto

import (
	"time"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// CreateGrievanceRequest payload.
type CreateGrievanceRequest struct {
	Text        string `json:"text"`
	Location    string `json:"location"`
	Block       string `json:"block"`
	IsAnonymous bool   `json:"isAnonymous"`
}

// StatusUpdateRequest payload.
type StatusUpdateRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

// TicketSummary response.
type TicketSummary struct {
	TicketCode           string              `json:"ticketCode"`
	StudentName          string              `json:"studentName"`
	Status               domain.TicketStatus `json:"status"`
	Category             string              `json:"category"`
	Urgency              string              `json:"urgency"`
	Department           string              `json:"department"`
	Priority             int                 `json:"priority"`
	EscalationLevel      string              `json:"escalationLevel"`
	CreatedAt            time.Time           `json:"createdAt"`
	UpdatedAt            time.Time           `json:"updatedAt"`
	ExpectedResolutionAt *time.Time          `json:"expectedResolutionAt"`
}

// TicketDetail provides full ticket info.
type TicketDetail struct {
	TicketCode           string                 `json:"ticketCode"`
	StudentName          string                 `json:"studentName"`
	StudentEmail         string                 `json:"studentEmail,omitempty"`
	OriginalText         string                 `json:"originalText"`
	Classification       *domain.Classification `json:"classification"`
	Location             *domain.Location       `json:"location"`
	Status               domain.TicketStatus    `json:"status"`
	StatusNotes          string                 `json:"statusNotes,omitempty"`
	Department           string                 `json:"department"`
	Priority             int                    `json:"priority"`
	EscalationLevel      string                 `json:"escalationLevel"`
	IsAnonymous          bool                   `json:"isAnonymous"`
	CreatedAt            time.Time              `json:"createdAt"`
	UpdatedAt            time.Time              `json:"updatedAt"`
	ResolvedAt           *time.Time             `json:"resolvedAt"`
	ExpectedResolutionAt *time.Time             `json:"expectedResolutionAt"`
}

// CreateGrievanceResponse is returned to the submitting student.
type CreateGrievanceResponse struct {
	Ticket          TicketSummary         `json:"ticket"`
	Classification  domain.Classification `json:"classification"`
	Acknowledgement string                `json:"acknowledgement"`
	UsedFallback    bool                  `json:"usedFallback"`
}

// StatusHistoryEntry response.
type StatusHistoryEntry struct {
	PreviousStatus domain.TicketStatus `json:"previousStatus"`
	NewStatus      domain.TicketStatus `json:"newStatus"`
	ChangedBy      string              `json:"changedBy"`
	ChangedAt      time.Time           `json:"changedAt"`
	Notes          string              `json:"notes,omitempty"`
	IsAutomatic    bool                `json:"isAutomatic"`
}
