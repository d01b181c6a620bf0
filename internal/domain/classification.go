package domain

// Urgency enumerates classification urgency levels.
type Urgency string

const (
	UrgencyCritical Urgency = "critical"
	UrgencyHigh     Urgency = "high"
	UrgencyMedium   Urgency = "medium"
	UrgencyLow      Urgency = "low"
)

// IsKnownUrgency reports whether the value is one of the four levels.
func IsKnownUrgency(u Urgency) bool {
	switch u {
	case UrgencyCritical, UrgencyHigh, UrgencyMedium, UrgencyLow:
		return true
	}
	return false
}

// Classification is the structured output of the grievance classifier,
// stored as a JSON blob on the ticket row.
type Classification struct {
	Category          string   `json:"category"`
	SubCategory       string   `json:"subCategory"`
	Department        string   `json:"department"`
	Urgency           Urgency  `json:"urgency"`
	UrgencyScore      float64  `json:"urgencyScore"`
	Summary           string   `json:"summary"`
	SuggestedAction   string   `json:"suggestedAction"`
	Keywords          []string `json:"keywords"`
	Sentiment         string   `json:"sentiment"`
	Confidence        float64  `json:"confidence"`
	RequiresImmediate bool     `json:"requiresImmediate"`
}

// FallbackClassification is used whenever the classifier fails, times out,
// or returns unparsable output. Ticket creation must never fail because
// classification did.
func FallbackClassification(text string) Classification {
	return Classification{
		Category:        "general",
		SubCategory:     "other",
		Department:      "admin",
		Urgency:         UrgencyMedium,
		UrgencyScore:    0.5,
		Summary:         Truncate(text, 100),
		SuggestedAction: "Manual review required",
		Keywords:        []string{},
		Sentiment:       "neutral",
		Confidence:      0.3,
	}
}

// Truncate clips s to at most max bytes.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
