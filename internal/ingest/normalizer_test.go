package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"pathsetu/internal/models"
)

type fakeRecognizer struct {
	text string
	err  error
}

func (f *fakeRecognizer) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	return f.text, f.err
}

type fakeParser struct {
	text  string
	err   error
	calls int
}

func (f *fakeParser) Extract(ctx context.Context, name string, data []byte) (string, error) {
	f.calls++
	return f.text, f.err
}

func TestNormalizeTextPassesThrough(t *testing.T) {
	n := NewNormalizer(nil, nil)
	got, err := n.Normalize(context.Background(), &models.Inbound{
		ChatID:   1,
		Modality: models.ModalityText,
		Text:     "plain question",
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got.Prompt != "plain question" || got.Display != "plain question" {
		t.Fatalf("text turn altered: %+v", got)
	}
	if len(got.AttachmentContext) != 0 {
		t.Fatalf("text turn should carry no attachment context")
	}
}

func TestNormalizeVoicePrefixesDisplay(t *testing.T) {
	n := NewNormalizer(&fakeRecognizer{text: "what is gravity"}, nil)
	got, err := n.Normalize(context.Background(), &models.Inbound{
		ChatID:   1,
		Modality: models.ModalityVoice,
		Media:    []byte("ogg"),
		MimeType: "audio/ogg",
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got.Prompt != "what is gravity" {
		t.Fatalf("prompt = %q", got.Prompt)
	}
	if got.Display != "🎤 what is gravity" {
		t.Fatalf("display = %q, want voice marker prefix", got.Display)
	}
}

func TestNormalizeVoiceFailureIsUnintelligible(t *testing.T) {
	cases := []struct {
		name string
		rec  *fakeRecognizer
	}{
		{"transcription error", &fakeRecognizer{err: errors.New("bad audio")}},
		{"empty transcription", &fakeRecognizer{text: "   "}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n := NewNormalizer(tc.rec, nil)
			_, err := n.Normalize(context.Background(), &models.Inbound{
				Modality: models.ModalityVoice,
				Media:    []byte("ogg"),
			})
			if !errors.Is(err, ErrUnintelligibleAudio) {
				t.Fatalf("err = %v, want ErrUnintelligibleAudio", err)
			}
		})
	}
}

func TestNormalizePDFDocument(t *testing.T) {
	parser := &fakeParser{text: strings.Repeat("useful syllabus text ", 10)}
	n := NewNormalizer(nil, parser)
	got, err := n.Normalize(context.Background(), &models.Inbound{
		ChatID:   1,
		Modality: models.ModalityDocument,
		Media:    []byte("%PDF-1.7"),
		FileName: "syllabus.pdf",
		MimeType: "application/pdf",
		Text:     "make me a study plan",
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if parser.calls != 1 {
		t.Fatalf("parser calls = %d, want 1", parser.calls)
	}
	if got.Prompt != "make me a study plan" {
		t.Fatalf("prompt = %q", got.Prompt)
	}
	if got.Display != "📄 syllabus.pdf" {
		t.Fatalf("display = %q, want filename marker", got.Display)
	}
	if len(got.AttachmentContext) != 1 || !strings.HasPrefix(got.AttachmentContext[0], "[DOCUMENT: syllabus.pdf]") {
		t.Fatalf("attachment context wrong: %#v", got.AttachmentContext)
	}
}

func TestNormalizeShortExtractionIsScanned(t *testing.T) {
	parser := &fakeParser{text: "tiny"}
	n := NewNormalizer(nil, parser)
	_, err := n.Normalize(context.Background(), &models.Inbound{
		Modality: models.ModalityDocument,
		Media:    []byte("%PDF-1.7"),
		FileName: "scan.pdf",
		MimeType: "application/pdf",
	})
	if !errors.Is(err, ErrScannedDocument) {
		t.Fatalf("err = %v, want ErrScannedDocument", err)
	}
}

func TestNormalizePlainTextDocument(t *testing.T) {
	n := NewNormalizer(nil, &fakeParser{})
	got, err := n.Normalize(context.Background(), &models.Inbound{
		Modality: models.ModalityDocument,
		Media:    []byte("line one\nline two"),
		FileName: "notes.txt",
		MimeType: "text/plain",
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if !strings.Contains(got.AttachmentContext[0], "line two") {
		t.Fatalf("text content missing: %#v", got.AttachmentContext)
	}
	// No caption means the default document question is used.
	if !strings.Contains(got.Prompt, "Summarize") {
		t.Fatalf("default document prompt missing: %q", got.Prompt)
	}
}

func TestNormalizeBinaryDocumentUnsupported(t *testing.T) {
	n := NewNormalizer(nil, &fakeParser{})
	_, err := n.Normalize(context.Background(), &models.Inbound{
		Modality: models.ModalityDocument,
		Media:    []byte{0xff, 0xfe, 0x00, 0x80},
		FileName: "blob.bin",
		MimeType: "application/octet-stream",
	})
	if !errors.Is(err, ErrUnsupportedDocument) {
		t.Fatalf("err = %v, want ErrUnsupportedDocument", err)
	}
}

func TestNormalizeDocumentBudgetIsRuneSafe(t *testing.T) {
	// A long run of multi-byte runes pushes past the byte budget; the cut
	// must still land on a rune boundary.
	parser := &fakeParser{text: strings.Repeat("ज्ञान ", 3000)}
	n := NewNormalizer(nil, parser)
	got, err := n.Normalize(context.Background(), &models.Inbound{
		Modality: models.ModalityDocument,
		Media:    []byte("%PDF-1.7"),
		FileName: "hindi.pdf",
		MimeType: "application/pdf",
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	ctx := got.AttachmentContext[0]
	if len(ctx) > documentCharBudget+len("[DOCUMENT: hindi.pdf]\n") {
		t.Fatalf("budget not applied: %d bytes", len(ctx))
	}
	for _, r := range ctx {
		if r == '�' {
			t.Fatalf("truncation split a rune")
		}
	}
}
