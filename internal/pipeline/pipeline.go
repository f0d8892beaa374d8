package pipeline

import (
	"context"
	"errors"
	"log"

	"pathsetu/internal/history"
	"pathsetu/internal/ingest"
	"pathsetu/internal/models"
	"pathsetu/internal/prompt"

	"github.com/cloudwego/eino/schema"
)

// Fixed user-facing messages for the short-circuit and failure cases.
const (
	MsgCouldNotHear        = "⚠️ Couldn't hear you."
	MsgScannedDocument     = "⚠️ This document looks scanned. Please send a photo of it instead."
	MsgUnsupportedDocument = "⚠️ I can't read this file type. Please send text, a PDF, or a photo."
	MsgGenericError        = "⚠️ Something went wrong. Please try again."
)

// Normalizer converts an inbound message into canonical form.
type Normalizer interface {
	Normalize(ctx context.Context, in *models.Inbound) (*ingest.Normalized, error)
}

// Generator produces a reply for an assembled message list. It never
// fails: total model failure yields a sentinel reply.
type Generator interface {
	Generate(ctx context.Context, messages []*schema.Message) string
}

// Vision answers a caption against an image payload.
type Vision interface {
	DescribeImage(ctx context.Context, caption string, image []byte, mimeType string) (string, error)
}

// Searcher supplies best-effort web context.
type Searcher interface {
	ShouldSearch(prompt string, hasAttachment bool) bool
	Context(ctx context.Context, query string) string
}

// Extractor strips diagram blocks and renders the first one to an image.
type Extractor interface {
	Process(ctx context.Context, reply string) (string, []byte)
}

// Renderer turns reply text into the outbound delivery form.
type Renderer interface {
	Render(ctx context.Context, text string, wasVoice bool) *models.Reply
}

// Pipeline sequences one conversational turn: normalize, gather context,
// generate with fallback, extract structured content, render, persist.
type Pipeline struct {
	normalizer Normalizer
	assembler  *prompt.Assembler
	engine     Generator
	vision     Vision
	search     Searcher
	extractor  Extractor
	renderer   Renderer
	store      history.Store
}

type Config struct {
	Normalizer Normalizer
	Assembler  *prompt.Assembler
	Engine     Generator
	Vision     Vision
	Search     Searcher
	Extractor  Extractor
	Renderer   Renderer
	Store      history.Store
}

func New(cfg Config) *Pipeline {
	return &Pipeline{
		normalizer: cfg.Normalizer,
		assembler:  cfg.Assembler,
		engine:     cfg.Engine,
		vision:     cfg.Vision,
		search:     cfg.Search,
		extractor:  cfg.Extractor,
		renderer:   cfg.Renderer,
		store:      cfg.Store,
	}
}

// HandleTurn runs one turn end to end and always produces a reply. The
// recover boundary here is the outermost one: whatever breaks inside a
// turn, the user gets the generic error message and nothing more runs.
func (p *Pipeline) HandleTurn(ctx context.Context, in *models.Inbound) (reply *models.Reply) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("turn for chat %d panicked: %v", in.ChatID, r)
			reply = textReply(MsgGenericError)
		}
	}()

	if in.Modality == models.ModalityPhoto {
		return p.photoTurn(ctx, in)
	}

	norm, err := p.normalizer.Normalize(ctx, in)
	if err != nil {
		// Unintelligible input stops the turn before generation and
		// persists nothing.
		switch {
		case errors.Is(err, ingest.ErrUnintelligibleAudio):
			return textReply(MsgCouldNotHear)
		case errors.Is(err, ingest.ErrScannedDocument):
			return textReply(MsgScannedDocument)
		case errors.Is(err, ingest.ErrUnsupportedDocument):
			return textReply(MsgUnsupportedDocument)
		default:
			log.Printf("normalize chat %d: %v", in.ChatID, err)
			return textReply(MsgGenericError)
		}
	}

	mode, err := p.store.Mode(ctx, in.ChatID)
	if err != nil {
		log.Printf("read mode for chat %d: %v", in.ChatID, err)
		mode = ""
	}

	contextBlocks := norm.AttachmentContext
	if p.search != nil && p.search.ShouldSearch(norm.Prompt, len(contextBlocks) > 0) {
		if sc := p.search.Context(ctx, norm.Prompt); sc != "" {
			contextBlocks = append(contextBlocks, sc)
		}
	}

	turns, err := p.store.History(ctx, in.ChatID, p.assembler.Window())
	if err != nil {
		log.Printf("read history for chat %d: %v", in.ChatID, err)
		turns = nil
	}

	messages := p.assembler.Assemble(mode, turns, norm.Prompt, contextBlocks)
	generated := p.engine.Generate(ctx, messages)

	stripped := generated
	var image []byte
	if p.extractor != nil {
		stripped, image = p.extractor.Process(ctx, generated)
	}

	// History keeps the diagram-stripped form so it stays purely textual.
	p.persist(ctx, in.ChatID, norm.Display, stripped)

	reply = p.renderer.Render(ctx, stripped, in.Modality == models.ModalityVoice)
	reply.Image = image
	return reply
}

// photoTurn bypasses context assembly, search, and diagram extraction:
// the image goes straight to a vision call and the answer is persisted
// and returned as-is.
func (p *Pipeline) photoTurn(ctx context.Context, in *models.Inbound) *models.Reply {
	if p.vision == nil {
		return textReply(MsgGenericError)
	}
	answer, err := p.vision.DescribeImage(ctx, in.Text, in.Media, in.MimeType)
	if err != nil || answer == "" {
		log.Printf("vision turn for chat %d: %v", in.ChatID, err)
		return textReply(MsgGenericError)
	}

	display := "🖼️ [photo]"
	if in.Text != "" {
		display = "🖼️ " + in.Text
	}
	p.persist(ctx, in.ChatID, display, answer)
	return textReply(answer)
}

// persist is fire-and-forget: a write failure is logged and swallowed,
// never surfaced, never retried.
func (p *Pipeline) persist(ctx context.Context, chatID int64, userText, assistantText string) {
	if err := p.store.Append(ctx, chatID, userText, assistantText); err != nil {
		log.Printf("persist turn for chat %d: %v", chatID, err)
	}
}

func textReply(text string) *models.Reply {
	return &models.Reply{Kind: models.ReplyText, Text: text}
}
