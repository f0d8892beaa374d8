package search

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"pathsetu/internal/config"

	"github.com/cloudwego/eino-ext/components/tool/duckduckgo/v2"
	"github.com/cloudwego/eino-ext/components/tool/googlesearch"
	"github.com/cloudwego/eino/components/tool"
)

// TriggerFunc decides whether a prompt warrants a web search.
type TriggerFunc func(prompt string) bool

// DefaultKeywords mirror the topics where stale model knowledge hurts most.
var DefaultKeywords = []string{
	"news", "price", "weather", "latest", "today", "salary", "job", "hiring", "vacancy", "stock",
}

// KeywordTrigger returns a TriggerFunc matching any of the given keywords,
// case-insensitively, as substrings of the prompt.
func KeywordTrigger(keywords ...string) TriggerFunc {
	lowered := make([]string, len(keywords))
	for i, kw := range keywords {
		lowered[i] = strings.ToLower(kw)
	}
	return func(prompt string) bool {
		p := strings.ToLower(prompt)
		for _, kw := range lowered {
			if strings.Contains(p, kw) {
				return true
			}
		}
		return false
	}
}

// Service fetches best-effort web context for a prompt. All provider
// failures are silent: callers get an empty context, never an error.
type Service struct {
	google  tool.InvokableTool
	duck    tool.InvokableTool
	trigger TriggerFunc
}

// NewService builds the provider chain from config. Google search is
// optional; DuckDuckGo needs no credentials and is always attempted.
func NewService(cfg *config.Config, trigger TriggerFunc) *Service {
	if trigger == nil {
		trigger = KeywordTrigger(DefaultKeywords...)
	}
	return &Service{
		google:  initGoogleSearch(cfg),
		duck:    initDuckSearch(cfg),
		trigger: trigger,
	}
}

// NewServiceWithTools wires pre-built tools, mainly for tests.
func NewServiceWithTools(google, duck tool.InvokableTool, trigger TriggerFunc) *Service {
	if trigger == nil {
		trigger = KeywordTrigger(DefaultKeywords...)
	}
	return &Service{google: google, duck: duck, trigger: trigger}
}

// ShouldSearch applies the trigger predicate. Document attachments
// suppress search for the turn: the attachment is the context.
func (s *Service) ShouldSearch(prompt string, hasAttachment bool) bool {
	if hasAttachment {
		return false
	}
	return s.trigger(prompt)
}

// Context runs the provider chain and formats results for prompt
// injection. An empty string means no context is available.
func (s *Service) Context(ctx context.Context, query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return ""
	}
	payloadBytes, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		log.Printf("marshal search params: %v", err)
		return ""
	}
	payload := string(payloadBytes)

	var result string
	if s.google != nil {
		if out, err := s.google.InvokableRun(ctx, payload); err == nil && strings.TrimSpace(out) != "" {
			result = out
		} else if err != nil {
			log.Printf("google search failed: %v", err)
		}
	}
	if result == "" && s.duck != nil {
		if out, err := s.duck.InvokableRun(ctx, payload); err == nil && strings.TrimSpace(out) != "" {
			result = out
		} else if err != nil {
			log.Printf("duckduckgo search failed: %v", err)
		}
	}
	if result == "" {
		return ""
	}
	return "[WEB_SEARCH_RESULTS]:\n" + strings.TrimSpace(result)
}

func initDuckSearch(cfg *config.Config) tool.InvokableTool {
	maxResults := 3
	if cfg != nil && cfg.Search.MaxResults > 0 {
		maxResults = cfg.Search.MaxResults
	}
	duckTool, err := duckduckgo.NewTextSearchTool(context.Background(), &duckduckgo.Config{
		ToolName:   "web_search_ddg",
		ToolDesc:   "DuckDuckGo Search Tool (no token required)",
		MaxResults: maxResults,
		Region:     duckduckgo.RegionWT,
		Timeout:    10 * time.Second,
	})
	if err != nil {
		log.Printf("duckduckgo search disabled: %v", err)
		return nil
	}
	return duckTool
}

func initGoogleSearch(cfg *config.Config) tool.InvokableTool {
	if cfg == nil || cfg.Search.GoogleAPIKey == "" || cfg.Search.GoogleSearchEngineID == "" {
		return nil
	}
	googleTool, err := googlesearch.NewTool(context.Background(), &googlesearch.Config{
		ToolName:       "web_search_google",
		ToolDesc:       "Google Search Tool",
		APIKey:         cfg.Search.GoogleAPIKey,
		SearchEngineID: cfg.Search.GoogleSearchEngineID,
		Lang:           "en",
		Num:            5,
	})
	if err != nil {
		log.Printf("google search disabled: %v", err)
		return nil
	}
	return googleTool
}
