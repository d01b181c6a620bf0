package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/grievance-service/internal/api/dto"
	"github.com/spec-kit/grievance-service/internal/auth"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/service"
	apperrors "github.com/spec-kit/grievance-service/pkg/util"
)

// TicketsHandler manages grievance ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// Create POST /tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CreateGrievanceRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	result, err := h.service.CreateTicket(c.UserContext(), service.TicketCreateInput{
		Text:        req.Text,
		Location:    req.Location,
		Block:       req.Block,
		IsAnonymous: req.IsAnonymous,
		StudentID:   principal.User.UserID,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.CreateGrievanceResponse{
		Ticket:          h.ticketSummary(result.Ticket),
		Classification:  result.Classification,
		Acknowledgement: result.Acknowledgement,
		UsedFallback:    result.UsedFallback,
	}})
}

// List GET /tickets. Students see their own tickets; admins may pass
// ?scope=all to see every ticket.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}

	limit := parseInt(c.Query("limit"), 100)
	var (
		tickets []domain.Ticket
		err     error
	)
	if c.Query("scope") == "all" {
		if !principal.Role.IsAdmin() {
			return apperrors.NewForbidden("admin role required")
		}
		tickets, err = h.service.ListAllTickets(c.UserContext(), limit)
	} else {
		tickets, err = h.service.ListStudentTickets(c.UserContext(), principal.User.UserID, limit)
	}
	if err != nil {
		return err
	}

	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, h.ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /tickets/:code.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}

	ticket, err := h.service.GetTicket(c.UserContext(), c.Params("code"))
	if err != nil {
		return err
	}
	if !principal.Role.IsAdmin() && ticket.StudentID != principal.User.UserID {
		return apperrors.NewForbidden("not your ticket")
	}
	return c.JSON(fiber.Map{"data": h.ticketDetail(ticket)})
}

// UpdateStatus PATCH /tickets/:code/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.StatusUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Status == "" {
		return apperrors.NewValidationError("status required", nil)
	}

	ticket, err := h.service.UpdateStatus(c.UserContext(), c.Params("code"),
		domain.TicketStatus(req.Status), principal.User.UserID, req.Notes)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.ticketDetail(ticket)})
}

// History GET /tickets/:code/history.
func (h *TicketsHandler) History(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}

	ticket, err := h.service.GetTicket(c.UserContext(), c.Params("code"))
	if err != nil {
		return err
	}
	if !principal.Role.IsAdmin() && ticket.StudentID != principal.User.UserID {
		return apperrors.NewForbidden("not your ticket")
	}

	entries, err := h.service.ListHistory(c.UserContext(), ticket.TicketCode)
	if err != nil {
		return err
	}
	items := make([]dto.StatusHistoryEntry, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.StatusHistoryEntry{
			PreviousStatus: entry.PreviousStatus,
			NewStatus:      entry.NewStatus,
			ChangedBy:      entry.ChangedBy,
			ChangedAt:      entry.ChangedAt,
			Notes:          entry.Notes,
			IsAutomatic:    entry.IsAutomatic,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func (h *TicketsHandler) ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	var category, urgency string
	if ticket.Classification != nil {
		category = ticket.Classification.Category
		urgency = string(ticket.Classification.Urgency)
	}
	return dto.TicketSummary{
		TicketCode:           ticket.TicketCode,
		StudentName:          ticket.DisplayName(),
		Status:               ticket.Status,
		Category:             category,
		Urgency:              urgency,
		Department:           ticket.Department(),
		Priority:             ticket.Priority,
		EscalationLevel:      string(h.service.EscalationLevel(ticket)),
		CreatedAt:            ticket.CreatedAt,
		UpdatedAt:            ticket.UpdatedAt,
		ExpectedResolutionAt: ticket.ExpectedResolutionAt,
	}
}

func (h *TicketsHandler) ticketDetail(ticket *domain.Ticket) dto.TicketDetail {
	email := ticket.StudentEmail
	if ticket.IsAnonymous {
		email = ""
	}
	return dto.TicketDetail{
		TicketCode:           ticket.TicketCode,
		StudentName:          ticket.DisplayName(),
		StudentEmail:         email,
		OriginalText:         ticket.OriginalText,
		Classification:       ticket.Classification,
		Location:             ticket.Location,
		Status:               ticket.Status,
		StatusNotes:          ticket.StatusNotes,
		Department:           ticket.Department(),
		Priority:             ticket.Priority,
		EscalationLevel:      string(h.service.EscalationLevel(ticket)),
		IsAnonymous:          ticket.IsAnonymous,
		CreatedAt:            ticket.CreatedAt,
		UpdatedAt:            ticket.UpdatedAt,
		ResolvedAt:           ticket.ResolvedAt,
		ExpectedResolutionAt: ticket.ExpectedResolutionAt,
	}
}
