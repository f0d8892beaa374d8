package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"pathsetu/internal/config"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"
)

// BusySentinel is returned when every candidate model fails. It is a
// normal generation result, not an error: it is persisted and delivered
// like any other reply.
const BusySentinel = "⚠️ I am having trouble thinking right now."

// ChatModel is the narrow slice of an eino chat model the engine needs.
type ChatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// Candidate pairs a display name with a constructed chat model.
type Candidate struct {
	Name  string
	Model ChatModel
}

// Engine tries an ordered list of candidate models and returns the first
// successful completion.
type Engine struct {
	candidates  []Candidate
	temperature float32
	maxTokens   int
}

// NewEngine constructs chat models for every configured candidate. A
// candidate that fails to construct is a startup error: the fallback
// order is part of the service contract and must be complete.
func NewEngine(cfg *config.Config) (*Engine, error) {
	if cfg == nil || len(cfg.Candidates) == 0 {
		return nil, errors.New("at least one candidate model required")
	}

	candidates := make([]Candidate, 0, len(cfg.Candidates))
	for _, cand := range cfg.Candidates {
		chatModel, err := buildChatModel(cand)
		if err != nil {
			return nil, fmt.Errorf("build candidate %s/%s: %w", cand.Provider, cand.Model, err)
		}
		candidates = append(candidates, Candidate{
			Name:  fmt.Sprintf("%s/%s", cand.Provider, cand.Model),
			Model: chatModel,
		})
	}

	return &Engine{
		candidates:  candidates,
		temperature: cfg.Generation.Temperature,
		maxTokens:   cfg.Generation.MaxTokens,
	}, nil
}

// NewEngineWithCandidates wires pre-built models, mainly for tests.
func NewEngineWithCandidates(candidates []Candidate, temperature float32, maxTokens int) *Engine {
	return &Engine{candidates: candidates, temperature: temperature, maxTokens: maxTokens}
}

func buildChatModel(cand config.CandidateConfig) (ChatModel, error) {
	ctx := context.Background()
	switch strings.ToLower(cand.Provider) {
	case "openai":
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL: cand.BaseURL,
			Model:   cand.Model,
			APIKey:  cand.APIKey,
		})
	case "gemini":
		client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cand.APIKey})
		if err != nil {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		return gemini.NewChatModel(ctx, &gemini.Config{
			Client: client,
			Model:  cand.Model,
		})
	case "claude":
		var baseURLPtr *string
		if cand.BaseURL != "" {
			baseURLPtr = &cand.BaseURL
		}
		return claude.NewChatModel(ctx, &claude.Config{
			APIKey:    cand.APIKey,
			Model:     cand.Model,
			BaseURL:   baseURLPtr,
			MaxTokens: 3000,
		})
	default:
		return nil, fmt.Errorf("invalid provider: %s", cand.Provider)
	}
}

// Generate runs the assembled messages through the candidates strictly in
// order and returns the first successful reply. Individual failures are
// logged, never surfaced; if every candidate fails the busy sentinel is
// the result.
func (e *Engine) Generate(ctx context.Context, messages []*schema.Message) string {
	for _, cand := range e.candidates {
		resp, err := cand.Model.Generate(ctx, messages,
			model.WithTemperature(e.temperature),
			model.WithMaxTokens(e.maxTokens),
		)
		if err != nil {
			log.Printf("candidate %s failed: %v", cand.Name, err)
			continue
		}
		if resp == nil || resp.Content == "" {
			log.Printf("candidate %s returned empty reply", cand.Name)
			continue
		}
		return resp.Content
	}
	return BusySentinel
}
