package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const defaultPhotoPrompt = "Describe this image and give helpful career advice based on it."

// Multimodal handles the generation calls that carry non-text payloads:
// image turns and voice transcription. Both go straight to Gemini rather
// than through the candidate fallback chain.
type Multimodal struct {
	client *genai.Client
	model  string
}

// NewMultimodal builds the Gemini-backed multimodal client.
func NewMultimodal(ctx context.Context, apiKey, model string) (*Multimodal, error) {
	if apiKey == "" {
		return nil, errors.New("api key required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	return &Multimodal{client: client, model: model}, nil
}

// DescribeImage answers the caption (or a default prompt) against the
// image payload in a single vision call.
func (m *Multimodal) DescribeImage(ctx context.Context, caption string, image []byte, mimeType string) (string, error) {
	prompt := strings.TrimSpace(caption)
	if prompt == "" {
		prompt = defaultPhotoPrompt
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	resp, err := m.client.Models.GenerateContent(ctx, m.model, []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: prompt},
				{InlineData: &genai.Blob{MIMEType: mimeType, Data: image}},
			},
		},
	}, nil)
	if err != nil {
		return "", fmt.Errorf("vision generate: %w", err)
	}
	return collectText(resp), nil
}

// Transcribe converts a voice payload to text. An empty transcription is
// reported as an error so callers can short-circuit the turn.
func (m *Multimodal) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if mimeType == "" {
		mimeType = "audio/ogg"
	}
	resp, err := m.client.Models.GenerateContent(ctx, m.model, []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: "Transcribe this audio verbatim. Output only the spoken words."},
				{InlineData: &genai.Blob{MIMEType: mimeType, Data: audio}},
			},
		},
	}, nil)
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	text := strings.TrimSpace(collectText(resp))
	if text == "" {
		return "", errors.New("empty transcription")
	}
	return text, nil
}

func collectText(resp *genai.GenerateContentResponse) string {
	var sb strings.Builder
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}
