package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/classify"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/events"
	"github.com/spec-kit/grievance-service/internal/repository"
	apperrors "github.com/spec-kit/grievance-service/pkg/util"
)

// TicketService is the grievance lifecycle engine: creation with AI routing,
// status transitions with audit history, and escalation derivation.
type TicketService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	history    repository.StatusHistoryRepository
	classifier classify.Classifier
	responder  classify.Responder
	dispatcher events.Dispatcher
	logger     *zap.Logger

	classifyTimeout   time.Duration
	strictTransitions bool
	now               func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo        repository.TicketRepository
	UserRepo          repository.UserRepository
	HistoryRepo       repository.StatusHistoryRepository
	Classifier        classify.Classifier
	Responder         classify.Responder
	Dispatcher        events.Dispatcher
	Logger            *zap.Logger
	ClassifyTimeout   time.Duration
	StrictTransitions bool
	Now               func() time.Time
}

// TicketCreateInput describes one grievance submission.
type TicketCreateInput struct {
	Text        string
	Location    string
	Block       string
	IsAnonymous bool
	StudentID   string
}

// TicketCreateResult is returned to the submitting student.
type TicketCreateResult struct {
	Ticket          *domain.Ticket
	Classification  domain.Classification
	Acknowledgement string
	UsedFallback    bool
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	svc := &TicketService{
		tickets:           deps.TicketRepo,
		users:             deps.UserRepo,
		history:           deps.HistoryRepo,
		classifier:        deps.Classifier,
		responder:         deps.Responder,
		dispatcher:        deps.Dispatcher,
		logger:            deps.Logger,
		classifyTimeout:   deps.ClassifyTimeout,
		strictTransitions: deps.StrictTransitions,
		now:               deps.Now,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	if svc.classifyTimeout <= 0 {
		svc.classifyTimeout = 12 * time.Second
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc
}

// CreateTicket classifies the grievance, mints a ticket code, computes the
// SLA deadline and persists the ticket. Classification failures degrade to
// the fallback classification; only invalid input or a store failure can
// make creation fail, and a store failure leaves no partial state behind.
func (s *TicketService) CreateTicket(ctx context.Context, input TicketCreateInput) (*TicketCreateResult, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return nil, apperrors.NewValidationError("grievance text required", nil)
	}

	user, err := s.users.GetByUserID(ctx, input.StudentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewValidationError("unknown submitter", map[string]any{"student_id": input.StudentID})
		}
		return nil, apperrors.NewPersistenceError(err)
	}

	now := s.now()
	classification, usedFallback := s.classifyOrFallback(ctx, text, input.Location, now)

	studentName := user.DisplayName
	if input.IsAnonymous {
		studentName = domain.AnonymousName
	}

	deadline := domain.ComputeDeadline(classification.Urgency, now)
	ticket := &domain.Ticket{
		StudentID:            user.UserID,
		StudentEmail:         user.Email,
		StudentName:          studentName,
		OriginalText:         text,
		Classification:       &classification,
		Location:             buildLocation(classification.Category, input.Block),
		Status:               domain.TicketStatusOpen,
		AssignedDepartment:   classification.Department,
		ExpectedResolutionAt: &deadline,
		RelatedTickets:       []string{},
		Attachments:          []string{},
		IsAnonymous:          input.IsAnonymous,
		Priority:             domain.PriorityForUrgency(classification.Urgency),
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:       events.EventTicketCreated,
		TicketCode: ticket.TicketCode,
		ActorID:    user.UserID,
		Payload: events.TicketCreatedPayload{
			StudentID:    ticket.StudentID,
			StudentEmail: ticket.StudentEmail,
			StudentName:  ticket.StudentName,
			Department:   ticket.AssignedDepartment,
			Urgency:      classification.Urgency,
			Priority:     ticket.Priority,
			Status:       ticket.Status,
			UsedFallback: usedFallback,
		},
	})

	return &TicketCreateResult{
		Ticket:          ticket,
		Classification:  classification,
		Acknowledgement: s.acknowledge(ctx, ticket, classification),
		UsedFallback:    usedFallback,
	}, nil
}

// UpdateStatus applies a status change, stamps resolution time when the new
// status is resolved, and appends an audit entry. Same-status updates are
// permitted and still logged.
func (s *TicketService) UpdateStatus(ctx context.Context, ticketCode string, newStatus domain.TicketStatus, actorID, notes string) (*domain.Ticket, error) {
	if !domain.IsKnownStatus(newStatus) {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": string(newStatus)})
	}

	ticket, err := s.tickets.GetByCode(ctx, ticketCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_code": ticketCode})
		}
		return nil, apperrors.NewPersistenceError(err)
	}

	if s.strictTransitions && newStatus != ticket.Status && !domain.CanTransition(ticket.Status, newStatus) {
		return nil, apperrors.NewValidationError("status transition not allowed", map[string]any{
			"from": string(ticket.Status),
			"to":   string(newStatus),
		})
	}

	previous := ticket.Status
	ticket.Status = newStatus
	if notes != "" {
		ticket.StatusNotes = notes
	}
	// ResolvedAt is stamped when entering resolved and never cleared
	// afterwards; the store keeps the earliest value.
	if newStatus == domain.TicketStatusResolved && ticket.ResolvedAt == nil {
		resolvedAt := s.now()
		ticket.ResolvedAt = &resolvedAt
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_code": ticketCode})
		}
		return nil, apperrors.NewPersistenceError(err)
	}

	entry := &domain.StatusHistory{
		TicketCode:     ticket.TicketCode,
		PreviousStatus: previous,
		NewStatus:      newStatus,
		ChangedBy:      actorID,
		Notes:          notes,
	}
	if err := s.history.Create(ctx, entry); err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:       events.EventTicketStatusChanged,
		TicketCode: ticket.TicketCode,
		ActorID:    actorID,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: previous,
			NewStatus: newStatus,
			Notes:     notes,
		},
	})
	if newStatus == domain.TicketStatusResolved && ticket.ResolvedAt != nil {
		s.publishEvent(ctx, events.Event{
			Type:       events.EventTicketResolved,
			TicketCode: ticket.TicketCode,
			ActorID:    actorID,
			Payload: events.TicketResolvedPayload{
				ResolvedAt: *ticket.ResolvedAt,
				Department: ticket.Department(),
			},
		})
	}

	return ticket, nil
}

// GetTicket fetches one ticket by code.
func (s *TicketService) GetTicket(ctx context.Context, ticketCode string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByCode(ctx, ticketCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_code": ticketCode})
		}
		return nil, apperrors.NewPersistenceError(err)
	}
	return ticket, nil
}

// ListAllTickets returns the newest tickets across all students.
func (s *TicketService) ListAllTickets(ctx context.Context, limit int) ([]domain.Ticket, error) {
	tickets, err := s.tickets.List(ctx, repository.TicketFilter{Limit: limit})
	if err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}
	return tickets, nil
}

// ListStudentTickets returns the newest tickets submitted by one student.
func (s *TicketService) ListStudentTickets(ctx context.Context, studentID string, limit int) ([]domain.Ticket, error) {
	tickets, err := s.tickets.List(ctx, repository.TicketFilter{StudentID: &studentID, Limit: limit})
	if err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}
	return tickets, nil
}

// ListHistory returns the audit trail for a ticket, oldest first.
func (s *TicketService) ListHistory(ctx context.Context, ticketCode string) ([]domain.StatusHistory, error) {
	if _, err := s.GetTicket(ctx, ticketCode); err != nil {
		return nil, err
	}
	entries, err := s.history.ListByTicket(ctx, ticketCode)
	if err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}
	return entries, nil
}

// EscalationLevel derives the current escalation signal for a ticket.
func (s *TicketService) EscalationLevel(ticket *domain.Ticket) domain.EscalationLevel {
	return domain.DeriveEscalationLevel(ticket, s.now())
}

// classifyOrFallback runs the classifier under its own deadline. Any error,
// timeout or unparsable output yields the fallback classification; creation
// never fails because classification did.
func (s *TicketService) classifyOrFallback(ctx context.Context, text, location string, submittedAt time.Time) (domain.Classification, bool) {
	if s.classifier == nil {
		return domain.FallbackClassification(text), true
	}

	classifyCtx, cancel := context.WithTimeout(ctx, s.classifyTimeout)
	defer cancel()

	classification, err := s.classifier.Classify(classifyCtx, classify.Input{
		Text:        text,
		Location:    location,
		SubmittedAt: submittedAt,
	})
	if err != nil {
		s.logger.Warn("classification failed, using fallback",
			zap.Error(apperrors.NewCollaboratorError(err)))
		return domain.FallbackClassification(text), true
	}
	return classification, false
}

// acknowledge generates the student-facing acknowledgement, degrading to a
// deterministic template when the responder is unavailable or fails.
func (s *TicketService) acknowledge(ctx context.Context, ticket *domain.Ticket, classification domain.Classification) string {
	req := classify.AckRequest{
		TicketCode:  ticket.TicketCode,
		StudentName: ticket.StudentName,
		Text:        ticket.OriginalText,
		Category:    classification.Category,
		Department:  classification.Department,
		Urgency:     classification.Urgency,
	}
	if s.responder == nil {
		return classify.FallbackAcknowledgement(req)
	}

	ackCtx, cancel := context.WithTimeout(ctx, s.classifyTimeout)
	defer cancel()

	message, err := s.responder.Acknowledge(ackCtx, req)
	if err != nil {
		s.logger.Warn("acknowledgement generation failed, using template",
			zap.String("ticket_code", ticket.TicketCode), zap.Error(err))
		return classify.FallbackAcknowledgement(req)
	}
	return message
}

func buildLocation(category, block string) *domain.Location {
	if category == "" && block == "" {
		return nil
	}
	return &domain.Location{Type: category, Block: block}
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
