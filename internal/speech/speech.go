package speech

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Recognizer converts a voice payload to text.
type Recognizer interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// Synthesizer converts text plus a language code to an audio payload.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, lang string) ([]byte, error)
}

const (
	defaultTTSBaseURL = "https://translate.google.com/translate_tts"
	ttsTimeout        = 15 * time.Second

	// The TTS endpoint rejects long inputs; text is chunked and the MP3
	// segments concatenated.
	ttsChunkRunes = 180
)

// HTTPSynthesizer speaks text through a translate-tts style endpoint.
type HTTPSynthesizer struct {
	baseURL string
	client  *http.Client
}

func NewHTTPSynthesizer(baseURL string) *HTTPSynthesizer {
	if baseURL == "" {
		baseURL = defaultTTSBaseURL
	}
	return &HTTPSynthesizer{
		baseURL: baseURL,
		client:  &http.Client{Timeout: ttsTimeout},
	}
}

func (s *HTTPSynthesizer) Synthesize(ctx context.Context, text, lang string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("empty text")
	}
	if lang == "" {
		lang = "en"
	}

	var audio []byte
	for _, chunk := range chunkText(text, ttsChunkRunes) {
		segment, err := s.fetchChunk(ctx, chunk, lang)
		if err != nil {
			return nil, err
		}
		audio = append(audio, segment...)
	}
	return audio, nil
}

func (s *HTTPSynthesizer) fetchChunk(ctx context.Context, chunk, lang string) ([]byte, error) {
	params := url.Values{}
	params.Set("ie", "UTF-8")
	params.Set("client", "tw-ob")
	params.Set("tl", lang)
	params.Set("q", chunk)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build tts request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tts service returned %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

func chunkText(text string, size int) []string {
	runes := []rune(text)
	var chunks []string
	for len(runes) > size {
		cut := size
		// Prefer breaking on whitespace near the limit.
		for i := size; i > size/2; i-- {
			if runes[i] == ' ' || runes[i] == '\n' {
				cut = i
				break
			}
		}
		chunks = append(chunks, strings.TrimSpace(string(runes[:cut])))
		runes = runes[cut:]
	}
	if trimmed := strings.TrimSpace(string(runes)); trimmed != "" {
		chunks = append(chunks, trimmed)
	}
	return chunks
}
