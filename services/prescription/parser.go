package prescription

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"pawsewa/apperrors"
	"pawsewa/config"
	prescriptionModel "pawsewa/models/prescription"

	"google.golang.org/genai"
)

// Parsed is what a parser could read off a prescription photo.
type Parsed struct {
	Medications  []prescriptionModel.Medication `json:"medications"`
	Instructions string                         `json:"instructions"`
	RawText      string                         `json:"raw_text"`
}

// Parser turns a prescription image into structured data.
type Parser interface {
	Parse(ctx context.Context, image []byte, mimeType string) (*Parsed, error)
}

const prompt = `Analyze this handwritten or printed veterinary prescription image and extract the following information. Return ONLY valid JSON.

If a field is missing or unclear, use an empty string. Do not guess drug names.

Required JSON format:
{
  "medications": [
    {
      "name": string,       // drug name as written
      "dosage": string,     // e.g. "250mg" or "1 tablet"
      "frequency": string,  // e.g. "twice daily"
      "duration": string    // e.g. "7 days"
    }
  ],
  "instructions": string,   // any other directions for the owner
  "raw_text": string        // the full text you could read, line by line
}`

// GeminiParser reads prescriptions with the Gemini vision API.
type GeminiParser struct {
	client *genai.Client
	model  string
}

func NewGeminiParser(ctx context.Context, cfg config.Gemini) (*GeminiParser, error) {
	if cfg.APIKey == "" {
		return nil, apperrors.ErrNotConfigured
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiParser{client: client, model: cfg.Model}, nil
}

func (p *GeminiParser) Parse(ctx context.Context, image []byte, mimeType string) (*Parsed, error) {
	content := &genai.Content{
		Parts: []*genai.Part{
			{Text: prompt},
			{InlineData: &genai.Blob{MIMEType: mimeType, Data: image}},
		},
	}

	result, err := p.client.Models.GenerateContent(ctx, p.model, []*genai.Content{content}, &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(0.1)),
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate content with OCR: %w", err)
	}
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no content generated by OCR")
	}

	text := result.Candidates[0].Content.Parts[0].Text
	if text == "" {
		return nil, fmt.Errorf("empty response from OCR")
	}
	return decodeParsed(text)
}

func decodeParsed(text string) (*Parsed, error) {
	raw := extractJSON(text)
	var parsed Parsed
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w, response: %s", err, raw)
	}
	return &parsed, nil
}

// extractJSON strips a markdown code fence the model sometimes wraps its answer in.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") || !strings.HasSuffix(text, "```") {
		return text
	}
	text = strings.TrimSuffix(strings.TrimPrefix(text, "```"), "```")
	// drop the language tag on the opening fence
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[i+1:]
	} else {
		text = strings.TrimPrefix(text, "json")
	}
	return strings.TrimSpace(text)
}

var imageTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
}

func isValidImageType(contentType string) bool {
	return imageTypes[contentType]
}
