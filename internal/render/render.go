package render

import (
	"context"
	"log"
	"regexp"
	"strings"

	"pathsetu/internal/models"
	"pathsetu/internal/speech"
)

// voiceCaptionCap bounds the text accompanying a voice reply. The primary
// text path is never truncated.
const voiceCaptionCap = 200

const diagramPlaceholder = "I have drawn a roadmap diagram for you."

var (
	mermaidFenceRe = regexp.MustCompile("(?s)```mermaid.*?```")
	codeFenceRe    = regexp.MustCompile("(?s)```.*?```")
	emphasisRe     = regexp.MustCompile("[*_`#]+")
)

// Renderer decides between text and synthesized-speech delivery.
type Renderer struct {
	tts speech.Synthesizer
}

func NewRenderer(tts speech.Synthesizer) *Renderer {
	return &Renderer{tts: tts}
}

// Render produces the outbound reply. Voice turns are answered in voice
// when synthesis succeeds and downgrade to text when it does not.
func (r *Renderer) Render(ctx context.Context, text string, wasVoice bool) *models.Reply {
	if !wasVoice || r.tts == nil {
		return &models.Reply{Kind: models.ReplyText, Text: text}
	}

	spoken := SpeakableText(text)
	audio, err := r.tts.Synthesize(ctx, spoken, DetectLang(spoken))
	if err != nil || len(audio) == 0 {
		if err != nil {
			log.Printf("speech synthesis failed: %v", err)
		}
		return &models.Reply{Kind: models.ReplyText, Text: text}
	}

	return &models.Reply{
		Kind:    models.ReplyVoice,
		Text:    text,
		Caption: truncateRunes(text, voiceCaptionCap),
		Voice:   audio,
	}
}

// SpeakableText prepares a reply for synthesis: diagram fences become a
// short spoken placeholder, remaining code fences are dropped, and
// markdown emphasis markers are removed.
func SpeakableText(text string) string {
	text = mermaidFenceRe.ReplaceAllString(text, diagramPlaceholder)
	text = codeFenceRe.ReplaceAllString(text, "")
	text = emphasisRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// DetectLang selects the Hindi voice when the text contains any character
// in the Devanagari block, otherwise the default English voice.
func DetectLang(text string) string {
	for _, r := range text {
		if r >= 0x0900 && r <= 0x097F {
			return "hi"
		}
	}
	return "en"
}

func truncateRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
