package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/grievance-service/internal/auth"
	"github.com/spec-kit/grievance-service/internal/service"
	apperrors "github.com/spec-kit/grievance-service/pkg/util"
)

// StatsHandler exposes dashboard aggregation endpoints.
type StatsHandler struct {
	stats *service.StatsService
}

// NewStatsHandler constructs handler.
func NewStatsHandler(statsService *service.StatsService) *StatsHandler {
	return &StatsHandler{stats: statsService}
}

// Dashboard GET /stats/dashboard.
func (h *StatsHandler) Dashboard(c *fiber.Ctx) error {
	stats, err := h.stats.GetDashboardStats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}

// Mine GET /stats/me. Scoped to the caller's own tickets.
func (h *StatsHandler) Mine(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	stats, err := h.stats.GetStudentStats(c.UserContext(), principal.User.UserID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}

// Departments GET /stats/departments.
func (h *StatsHandler) Departments(c *fiber.Ctx) error {
	cards, err := h.stats.GetDepartmentScorecards(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": cards})
}
