// Package gemini is the text-refinement collaborator: it asks the Gemini API
// to rewrite an invoice subject line per a user instruction, constrained to a
// JSON response so the answer can be applied mechanically.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/onlinelabs/urenwerk/internal/models"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

var ErrNotConfigured = errors.New("gemini: API key not configured")

type Client struct {
	APIKey     string
	Model      string
	BaseURL    string // overridable for tests
	HTTPClient *http.Client
}

func NewClient(apiKey, model string) *Client {
	return &Client{
		APIKey:     apiKey,
		Model:      model,
		BaseURL:    defaultBaseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMimeType string          `json:"responseMimeType,omitempty"`
	ResponseSchema   json.RawMessage `json:"responseSchema,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

var subjectSchema = json.RawMessage(`{
	"type": "OBJECT",
	"properties": {
		"newSubject": {
			"type": "STRING",
			"description": "De nieuwe, aangepaste onderwerpregel van de factuur."
		}
	},
	"required": ["newSubject"]
}`)

// RefineInvoiceSubject asks the model for a rewritten subject line. Any
// failure is returned to the caller; the invoice is never changed implicitly.
func (c *Client) RefineInvoiceSubject(ctx context.Context, project models.Project, invoice models.Invoice, instruction string) (string, error) {
	if c.APIKey == "" {
		return "", ErrNotConfigured
	}

	var details strings.Builder
	for _, item := range invoice.LineItems {
		fmt.Fprintf(&details, "- %s (%.2f uur/stuks)\n", item.Description, item.Quantity)
	}

	prompt := fmt.Sprintf(`Je bent een AI-assistent voor een administratieprogramma. Jouw taak is om de onderwerpregel van een factuur aan te passen op basis van de instructies van de gebruiker. Behoud een professionele en vriendelijke toon.

CONTEXT:
- Projectnaam: %s
- Huidig onderwerp: %s
- Factuurregels:
%s
GEBRUIKERSINSTRUCTIE:
"%s"

Jouw taak:
Pas het onderwerp aan op basis van de gebruikersinstructie. Geef de output als een geldig JSON-object. Wijzig alleen het onderwerp.`,
		project.Name, invoice.Subject, details.String(), instruction)

	reqBody := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: &generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   subjectSchema,
		},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("gemini: encode request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.BaseURL, c.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("gemini: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini: call failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("gemini: read response: %w", err)
	}

	var out generateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("gemini: decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if out.Error != nil {
			return "", fmt.Errorf("gemini: %s", out.Error.Message)
		}
		return "", fmt.Errorf("gemini: unexpected status %d", resp.StatusCode)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("gemini: empty response")
	}

	var result struct {
		NewSubject string `json:"newSubject"`
	}
	if err := json.Unmarshal([]byte(out.Candidates[0].Content.Parts[0].Text), &result); err != nil {
		return "", fmt.Errorf("gemini: malformed model output: %w", err)
	}
	if strings.TrimSpace(result.NewSubject) == "" {
		return "", errors.New("gemini: model returned an empty subject")
	}
	return result.NewSubject, nil
}
