package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spec-kit/grievance-service/internal/config"
	"github.com/spec-kit/grievance-service/internal/domain"
)

// ErrNotConfigured is returned when no API key is present. Callers treat it
// like any other classification failure and fall back.
var ErrNotConfigured = errors.New("gemini: api key not configured")

// GeminiClient calls the Gemini generateContent REST endpoint. It implements
// both Classifier and Responder.
type GeminiClient struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
}

// NewGeminiClient builds a client with its own enforced timeout, independent
// of the surrounding HTTP request deadline.
func NewGeminiClient(cfg config.GeminiConfig) *GeminiClient {
	return &GeminiClient{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout()},
	}
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// Classify sends the classification prompt and parses the JSON reply.
func (g *GeminiClient) Classify(ctx context.Context, input Input) (domain.Classification, error) {
	text, err := g.generate(ctx, buildClassificationPrompt(input))
	if err != nil {
		return domain.Classification{}, err
	}
	return parseClassification(text)
}

// Acknowledge generates the student-facing acknowledgement message.
func (g *GeminiClient) Acknowledge(ctx context.Context, req AckRequest) (string, error) {
	text, err := g.generate(ctx, buildAcknowledgementPrompt(req))
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("gemini: empty acknowledgement")
	}
	return text, nil
}

func (g *GeminiClient) generate(ctx context.Context, prompt string) (string, error) {
	if g.apiKey == "" {
		return "", ErrNotConfigured
	}

	payload, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini: status %d: %s", resp.StatusCode, domain.Truncate(string(body), 200))
	}

	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("gemini: decode response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("gemini: no candidates returned")
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

// parseClassification extracts and validates the JSON object from the model
// reply. Models regularly wrap the JSON in prose or code fences.
func parseClassification(text string) (domain.Classification, error) {
	raw, ok := extractJSON(text)
	if !ok {
		return domain.Classification{}, errors.New("gemini: no JSON object in reply")
	}

	var c domain.Classification
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return domain.Classification{}, fmt.Errorf("gemini: parse classification: %w", err)
	}
	if !domain.IsKnownUrgency(c.Urgency) {
		return domain.Classification{}, fmt.Errorf("gemini: unknown urgency %q", c.Urgency)
	}
	if c.Category == "" || c.Department == "" {
		return domain.Classification{}, errors.New("gemini: classification missing category or department")
	}
	c.Summary = domain.Truncate(c.Summary, 100)
	if c.Keywords == nil {
		c.Keywords = []string{}
	}
	return c, nil
}

// extractJSON returns the first balanced top-level JSON object in s.
func extractJSON(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
