// Package classify wraps the external LLM calls the grievance service
// depends on: grievance classification and acknowledgement generation.
// Both are capability interfaces with a production Gemini implementation;
// callers own the fallback behavior when a call fails.
package classify

import (
	"context"
	"time"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// Input carries the raw material for one classification call.
type Input struct {
	Text        string
	Location    string
	SubmittedAt time.Time
}

// Classifier maps free-form grievance text to a structured classification.
// Implementations must honor ctx cancellation; any error is treated by the
// lifecycle engine as "use the fallback classification".
type Classifier interface {
	Classify(ctx context.Context, input Input) (domain.Classification, error)
}

// AckRequest describes one acknowledgement message to generate.
type AckRequest struct {
	TicketCode  string
	StudentName string
	Text        string
	Category    string
	Department  string
	Urgency     domain.Urgency
}

// Responder generates the student-facing acknowledgement for a new ticket.
type Responder interface {
	Acknowledge(ctx context.Context, req AckRequest) (string, error)
}

// FallbackAcknowledgement is the deterministic message used when the
// responder fails. Mirrors the tone of the generated one.
func FallbackAcknowledgement(req AckRequest) string {
	name := req.StudentName
	if name == "" || name == domain.AnonymousName {
		name = "Student"
	}
	return "Dear " + name + ",\n\n" +
		"Thank you for submitting your grievance. It has been registered as " +
		req.TicketCode + " and routed to " + domain.DepartmentName(req.Department) + ".\n\n" +
		"You will receive updates on your registered email.\n\n" +
		"Best regards,\nCampus Support Team"
}
