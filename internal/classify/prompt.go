package classify

import (
	"strings"
	"time"
)

const classificationPrompt = `You are an AI assistant for a university campus grievance system. Analyze the student's grievance and provide a structured classification.

### DEPARTMENTS:
- hostel: Hostel issues (rooms, water, electricity, food, cleanliness, laundry)
- academics: Academic matters (exams, grades, professors, courses, library)
- transport: Bus, shuttle, parking issues
- it: WiFi, computer labs, email, software
- admin: Fee payment, certificates, ID cards, general administration
- security: Safety concerns, theft, unauthorized access

### URGENCY LEVELS:
- critical: Immediate safety risk, medical emergency, security threat
- high: Affecting daily routine significantly, time-sensitive
- medium: Inconvenient but manageable, can wait 2-3 days
- low: Minor issues, suggestions, general feedback

### INPUT:
Student Grievance: "{grievanceText}"
Student Location (if provided): "{location}"
Submission Time: "{timestamp}"

### OUTPUT FORMAT (JSON only):
{
  "category": "string",
  "subCategory": "string",
  "department": "string",
  "urgency": "string",
  "urgencyScore": number,
  "summary": "string (max 100 chars)",
  "suggestedAction": "string",
  "keywords": ["array"],
  "sentiment": "string",
  "confidence": number,
  "requiresImmediate": boolean
}

Respond ONLY with valid JSON, no additional text.`

const acknowledgementPrompt = `You are a polite and professional campus support assistant. Generate an appropriate acknowledgement for the student.

### CONTEXT:
Ticket ID: {ticketId}
Student Name: {studentName}
Original Grievance: "{originalText}"
Category: {category}
Department: {department}
Urgency: {urgency}

### GUIDELINES:
1. Be empathetic and professional
2. Use student's name
3. Reference the specific issue
4. Provide clear next steps or timeline
5. Include ticket ID for reference
6. Keep response under 150 words

Respond with the message text only, no JSON.`

func buildClassificationPrompt(input Input) string {
	ts := input.SubmittedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	r := strings.NewReplacer(
		"{grievanceText}", input.Text,
		"{location}", input.Location,
		"{timestamp}", ts.UTC().Format(time.RFC3339),
	)
	return r.Replace(classificationPrompt)
}

func buildAcknowledgementPrompt(req AckRequest) string {
	r := strings.NewReplacer(
		"{ticketId}", req.TicketCode,
		"{studentName}", req.StudentName,
		"{originalText}", req.Text,
		"{category}", req.Category,
		"{department}", req.Department,
		"{urgency}", string(req.Urgency),
	)
	return r.Replace(acknowledgementPrompt)
}
