package domain

import "time"

// slaHours maps urgency to the resolution window in hours.
var slaHours = map[Urgency]int{
	UrgencyCritical: 4,
	UrgencyHigh:     24,
	UrgencyMedium:   72,
	UrgencyLow:      168,
}

// defaultSLAHours is applied when urgency is unknown.
const defaultSLAHours = 72

// ComputeDeadline returns the expected resolution time for a ticket created
// at t0 with the given urgency.
func ComputeDeadline(urgency Urgency, t0 time.Time) time.Time {
	hours, ok := slaHours[urgency]
	if !ok {
		hours = defaultSLAHours
	}
	return t0.Add(time.Duration(hours) * time.Hour)
}

// priorityByUrgency maps urgency to the stored priority integer.
// Lower is more urgent.
var priorityByUrgency = map[Urgency]int{
	UrgencyCritical: 0,
	UrgencyHigh:     1,
	UrgencyMedium:   2,
	UrgencyLow:      3,
}

// defaultPriority is applied when urgency is unknown.
const defaultPriority = 2

// PriorityForUrgency derives the priority integer from urgency. Priority is
// computed once at creation and not recomputed unless urgency is overridden.
func PriorityForUrgency(urgency Urgency) int {
	if p, ok := priorityByUrgency[urgency]; ok {
		return p
	}
	return defaultPriority
}

// EscalationLevel is a read-only, time-derived severity signal. It is
// recomputed on each observation and never persisted as ticket state.
type EscalationLevel string

const (
	EscalationNone      EscalationLevel = "none"
	EscalationWarning   EscalationLevel = "warning"
	EscalationCritical  EscalationLevel = "critical"
	EscalationEscalated EscalationLevel = "escalated"
)

// Escalation thresholds relative to the SLA deadline.
const (
	escalationCriticalWindow = 2 * time.Hour
	escalationWarningWindow  = 6 * time.Hour
)

// DeriveEscalationLevel computes the escalation signal for a ticket at the
// given instant. Resolved and closed tickets never escalate.
func DeriveEscalationLevel(t *Ticket, now time.Time) EscalationLevel {
	if t.Status.IsResolvedFamily() {
		return EscalationNone
	}
	if t.ExpectedResolutionAt == nil {
		return EscalationNone
	}
	deadline := *t.ExpectedResolutionAt
	if now.After(deadline) {
		return EscalationEscalated
	}
	remaining := deadline.Sub(now)
	if remaining <= escalationCriticalWindow {
		return EscalationCritical
	}
	if remaining <= escalationWarningWindow {
		return EscalationWarning
	}
	return EscalationNone
}

// allowedTransitions is the status graph. It is only enforced when strict
// transitions are enabled; the default mode accepts any recognized status
// to stay compatible with the historical behavior.
var allowedTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusOpen:        {TicketStatusAssigned, TicketStatusInProgress},
	TicketStatusAssigned:    {TicketStatusInProgress},
	TicketStatusInProgress:  {TicketStatusPendingInfo, TicketStatusEscalated, TicketStatusResolved},
	TicketStatusPendingInfo: {TicketStatusInProgress},
	TicketStatusEscalated:   {TicketStatusInProgress, TicketStatusResolved},
	TicketStatusResolved:    {TicketStatusClosed, TicketStatusReopened},
	TicketStatusClosed:      {TicketStatusReopened},
	TicketStatusReopened:    {TicketStatusInProgress},
}

// CanTransition reports whether the status graph permits current -> next.
func CanTransition(current, next TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}
