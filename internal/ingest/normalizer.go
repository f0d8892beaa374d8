package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"pathsetu/internal/models"
	"pathsetu/internal/speech"
)

const (
	// documentCharBudget caps how much extracted text enters the context.
	documentCharBudget = 12000

	// scannedTextThreshold: shorter extractions are treated as scanned
	// (image-only) documents.
	scannedTextThreshold = 50
)

// Short-circuit conditions: the turn stops before generation and nothing
// is persisted. Callers map these to fixed user-facing messages.
var (
	ErrUnintelligibleAudio = errors.New("audio could not be transcribed")
	ErrScannedDocument     = errors.New("document has no extractable text")
	ErrUnsupportedDocument = errors.New("unsupported document type")
)

// Normalized is the canonical form of one inbound message: the prompt the
// model reasons over, the text persisted as the user's turn, and any
// attachment context folded into generation.
type Normalized struct {
	Prompt            string
	Display           string
	AttachmentContext []string
}

// Normalizer converts a heterogeneous inbound message into Normalized
// form. Photo messages never reach it; they bypass the main pipeline.
type Normalizer struct {
	recognizer speech.Recognizer
	documents  DocumentParser
}

func NewNormalizer(recognizer speech.Recognizer, documents DocumentParser) *Normalizer {
	return &Normalizer{recognizer: recognizer, documents: documents}
}

func (n *Normalizer) Normalize(ctx context.Context, in *models.Inbound) (*Normalized, error) {
	switch in.Modality {
	case models.ModalityText:
		return &Normalized{Prompt: in.Text, Display: in.Text}, nil
	case models.ModalityVoice:
		return n.normalizeVoice(ctx, in)
	case models.ModalityDocument:
		return n.normalizeDocument(ctx, in)
	default:
		return nil, fmt.Errorf("modality %q not handled by normalizer", in.Modality)
	}
}

func (n *Normalizer) normalizeVoice(ctx context.Context, in *models.Inbound) (*Normalized, error) {
	if n.recognizer == nil {
		return nil, ErrUnintelligibleAudio
	}
	text, err := n.recognizer.Transcribe(ctx, in.Media, in.MimeType)
	if err != nil || strings.TrimSpace(text) == "" {
		return nil, ErrUnintelligibleAudio
	}
	return &Normalized{
		Prompt:  text,
		Display: "🎤 " + text,
	}, nil
}

func (n *Normalizer) normalizeDocument(ctx context.Context, in *models.Inbound) (*Normalized, error) {
	var text string
	switch {
	case isPDF(in):
		if n.documents == nil {
			return nil, ErrUnsupportedDocument
		}
		extracted, err := n.documents.Extract(ctx, in.FileName, in.Media)
		if err != nil {
			return nil, fmt.Errorf("extract document: %w", err)
		}
		if len(extracted) < scannedTextThreshold {
			return nil, ErrScannedDocument
		}
		text = extracted
	case utf8.Valid(in.Media):
		text = string(in.Media)
	default:
		return nil, ErrUnsupportedDocument
	}

	if len(text) > documentCharBudget {
		cut := documentCharBudget
		// Back off so the cut never splits a multi-byte rune.
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}

	question := strings.TrimSpace(in.Text)
	if question == "" {
		question = "Summarize this document and give me advice based on it."
	}
	return &Normalized{
		Prompt:            question,
		Display:           "📄 " + in.FileName,
		AttachmentContext: []string{fmt.Sprintf("[DOCUMENT: %s]\n%s", in.FileName, text)},
	}, nil
}

func isPDF(in *models.Inbound) bool {
	if strings.EqualFold(in.MimeType, "application/pdf") {
		return true
	}
	return strings.HasSuffix(strings.ToLower(in.FileName), ".pdf")
}
