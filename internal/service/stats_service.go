package service

import (
	"context"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/cache"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/repository"
	apperrors "github.com/spec-kit/grievance-service/pkg/util"
)

// DashboardStats is the derived dashboard snapshot. It is recomputed in full
// from the current ticket set on every request; nothing here is persisted.
type DashboardStats struct {
	TotalTickets       int             `json:"totalTickets"`
	ResolvedTickets    int             `json:"resolvedTickets"`
	PendingTickets     int             `json:"pendingTickets"`
	AvgResolutionHours float64         `json:"avgResolutionTime"`
	SLACompliance      float64         `json:"slaCompliance"`
	TicketsByCategory  map[string]int  `json:"ticketsByCategory"`
	TicketsByUrgency   map[string]int  `json:"ticketsByUrgency"`
	TicketsByStatus    map[string]int  `json:"ticketsByStatus"`
	RecentTickets      []domain.Ticket `json:"recentTickets"`
}

// DepartmentScorecard is the per-department SLA performance summary.
type DepartmentScorecard struct {
	DepartmentID       string  `json:"departmentId"`
	Name               string  `json:"name"`
	TotalTickets       int     `json:"totalTickets"`
	Resolved           int     `json:"resolved"`
	Pending            int     `json:"pending"`
	AvgResolutionHours float64 `json:"avgResolutionHours"`
	SLACompliance      float64 `json:"slaCompliance"`
	Grade              string  `json:"grade"`
	Trend              string  `json:"trend"`
}

// StatsService computes dashboard statistics and department scorecards.
type StatsService struct {
	tickets repository.TicketRepository
	cache   *cache.StatsCache
	logger  *zap.Logger
	recentN int
	now     func() time.Time
}

// StatsDependencies bundles collaborators for the stats service.
type StatsDependencies struct {
	TicketRepo repository.TicketRepository
	Cache      *cache.StatsCache
	Logger     *zap.Logger
	RecentN    int
	Now        func() time.Time
}

// NewStatsService constructs the service.
func NewStatsService(deps StatsDependencies) *StatsService {
	svc := &StatsService{
		tickets: deps.TicketRepo,
		cache:   deps.Cache,
		logger:  deps.Logger,
		recentN: deps.RecentN,
		now:     deps.Now,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	if svc.recentN <= 0 {
		svc.recentN = 5
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc
}

const statsListLimit = 1000

// GetDashboardStats computes the admin dashboard over all tickets, serving
// from the optional Redis cache when enabled.
func (s *StatsService) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	const key = "dashboard:all"
	if s.cache.Enabled() {
		var cached DashboardStats
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		} else if err != cache.ErrMiss {
			s.logger.Warn("stats cache read failed", zap.Error(err))
		}
	}

	tickets, err := s.tickets.List(ctx, repository.TicketFilter{Limit: statsListLimit})
	if err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}
	stats := ComputeDashboardStats(tickets, s.now(), s.recentN)

	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, key, stats); err != nil {
			s.logger.Warn("stats cache write failed", zap.Error(err))
		}
	}
	return stats, nil
}

// GetStudentStats computes the dashboard over one student's tickets.
func (s *StatsService) GetStudentStats(ctx context.Context, studentID string) (*DashboardStats, error) {
	tickets, err := s.tickets.List(ctx, repository.TicketFilter{StudentID: &studentID, Limit: statsListLimit})
	if err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}
	return ComputeDashboardStats(tickets, s.now(), s.recentN), nil
}

// GetDepartmentScorecards computes per-department SLA scorecards.
func (s *StatsService) GetDepartmentScorecards(ctx context.Context) ([]DepartmentScorecard, error) {
	tickets, err := s.tickets.List(ctx, repository.TicketFilter{Limit: statsListLimit})
	if err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}
	return ComputeDepartmentScorecards(tickets, s.now()), nil
}

// ComputeDashboardStats is a pure function over a ticket collection.
// Tickets missing optional fields are excluded only from the aggregates that
// need them, never from the totals.
func ComputeDashboardStats(tickets []domain.Ticket, now time.Time, recentN int) *DashboardStats {
	stats := &DashboardStats{
		TicketsByCategory: map[string]int{},
		TicketsByUrgency:  map[string]int{},
		TicketsByStatus:   map[string]int{},
		RecentTickets:     []domain.Ticket{},
	}

	stats.TotalTickets = len(tickets)
	for i := range tickets {
		t := &tickets[i]
		if t.Status.IsResolvedFamily() {
			stats.ResolvedTickets++
		}

		category := "other"
		urgency := string(domain.UrgencyMedium)
		if t.Classification != nil {
			if t.Classification.Category != "" {
				category = t.Classification.Category
			}
			if t.Classification.Urgency != "" {
				urgency = string(t.Classification.Urgency)
			}
		}
		stats.TicketsByCategory[category]++
		stats.TicketsByUrgency[urgency]++
		stats.TicketsByStatus[string(t.Status)]++
	}
	stats.PendingTickets = stats.TotalTickets - stats.ResolvedTickets
	stats.AvgResolutionHours = avgResolutionHours(tickets, 1)
	stats.SLACompliance = slaCompliance(tickets, now)

	if recentN > len(tickets) {
		recentN = len(tickets)
	}
	stats.RecentTickets = append(stats.RecentTickets, tickets[:recentN]...)
	return stats
}

// ComputeDepartmentScorecards partitions tickets by handling department and
// grades each partition on SLA compliance. Departments without tickets are
// omitted; results are ordered best-first.
func ComputeDepartmentScorecards(tickets []domain.Ticket, now time.Time) []DepartmentScorecard {
	byDept := map[string][]domain.Ticket{}
	for _, t := range tickets {
		dept := t.Department()
		if dept == "" {
			continue
		}
		byDept[dept] = append(byDept[dept], t)
	}

	cards := make([]DepartmentScorecard, 0, len(byDept))
	for dept, deptTickets := range byDept {
		var resolved, pending int
		for _, t := range deptTickets {
			switch {
			case t.Status.IsResolvedFamily():
				resolved++
			case t.Status == domain.TicketStatusOpen || t.Status == domain.TicketStatusInProgress:
				pending++
			}
		}
		compliance := math.Round(slaCompliance(deptTickets, now))
		cards = append(cards, DepartmentScorecard{
			DepartmentID:       dept,
			Name:               domain.DepartmentName(dept),
			TotalTickets:       len(deptTickets),
			Resolved:           resolved,
			Pending:            pending,
			AvgResolutionHours: math.Round(avgResolutionHours(deptTickets, 0)),
			SLACompliance:      compliance,
			Grade:              gradeForCompliance(compliance),
			Trend:              trendForCompliance(compliance),
		})
	}

	sort.Slice(cards, func(i, j int) bool {
		if cards[i].SLACompliance != cards[j].SLACompliance {
			return cards[i].SLACompliance > cards[j].SLACompliance
		}
		return cards[i].DepartmentID < cards[j].DepartmentID
	})
	return cards
}

// avgResolutionHours is the mean wall-clock resolution time over tickets
// that carry both timestamps, rounded to the given number of decimals.
// Zero when no ticket qualifies.
func avgResolutionHours(tickets []domain.Ticket, decimals int) float64 {
	var totalHours float64
	var count int
	for _, t := range tickets {
		if t.ResolvedAt == nil || t.CreatedAt.IsZero() {
			continue
		}
		totalHours += t.ResolvedAt.Sub(t.CreatedAt).Hours()
		count++
	}
	if count == 0 {
		return 0
	}
	factor := math.Pow10(decimals)
	return math.Round(totalHours/float64(count)*factor) / factor
}

// slaCompliance counts a ticket as meeting SLA when it resolved before its
// deadline, or is unresolved with the deadline still ahead. Tickets without
// a deadline are excluded; an empty denominator is vacuously 100%.
func slaCompliance(tickets []domain.Ticket, now time.Time) float64 {
	var withDeadline, met int
	for _, t := range tickets {
		if t.ExpectedResolutionAt == nil {
			continue
		}
		withDeadline++
		deadline := *t.ExpectedResolutionAt
		if t.ResolvedAt != nil {
			if !t.ResolvedAt.After(deadline) {
				met++
			}
			continue
		}
		if !now.After(deadline) {
			met++
		}
	}
	if withDeadline == 0 {
		return 100
	}
	return float64(met) / float64(withDeadline) * 100
}

func gradeForCompliance(compliance float64) string {
	switch {
	case compliance >= 95:
		return "A+"
	case compliance >= 90:
		return "A"
	case compliance >= 80:
		return "B"
	case compliance >= 70:
		return "C"
	case compliance >= 60:
		return "D"
	default:
		return "F"
	}
}

func trendForCompliance(compliance float64) string {
	switch {
	case compliance > 80:
		return "up"
	case compliance > 50:
		return "stable"
	default:
		return "down"
	}
}
