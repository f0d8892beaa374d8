package search

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
)

type fakeTool struct {
	out   string
	err   error
	calls int
	query string
}

func (f *fakeTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{Name: "fake"}, nil
}

func (f *fakeTool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...tool.Option) (string, error) {
	f.calls++
	var params map[string]string
	if err := json.Unmarshal([]byte(argumentsInJSON), &params); err != nil {
		return "", err
	}
	f.query = params["query"]
	return f.out, f.err
}

func TestKeywordTriggerMatchesCaseInsensitively(t *testing.T) {
	trigger := KeywordTrigger("news", "salary")
	if !trigger("What is the LATEST News about AI?") {
		t.Fatalf("expected keyword match")
	}
	if trigger("explain photosynthesis") {
		t.Fatalf("unexpected match for unrelated prompt")
	}
}

func TestShouldSearchSuppressedByAttachment(t *testing.T) {
	svc := NewServiceWithTools(nil, nil, KeywordTrigger("news"))
	if !svc.ShouldSearch("any news today?", false) {
		t.Fatalf("expected search for news prompt")
	}
	if svc.ShouldSearch("any news today?", true) {
		t.Fatalf("attachment context must suppress search")
	}
}

func TestContextPrefersGoogle(t *testing.T) {
	google := &fakeTool{out: "google results"}
	duck := &fakeTool{out: "duck results"}
	svc := NewServiceWithTools(google, duck, nil)

	got := svc.Context(context.Background(), "latest jobs")
	if !strings.HasPrefix(got, "[WEB_SEARCH_RESULTS]:\n") {
		t.Fatalf("missing result header: %q", got)
	}
	if !strings.Contains(got, "google results") {
		t.Fatalf("expected google results, got %q", got)
	}
	if duck.calls != 0 {
		t.Fatalf("duckduckgo should not run when google succeeds")
	}
	if google.query != "latest jobs" {
		t.Fatalf("query not forwarded: %q", google.query)
	}
}

func TestContextFallsBackToDuck(t *testing.T) {
	google := &fakeTool{err: errors.New("quota")}
	duck := &fakeTool{out: "duck results"}
	svc := NewServiceWithTools(google, duck, nil)

	got := svc.Context(context.Background(), "today weather")
	if !strings.Contains(got, "duck results") {
		t.Fatalf("expected duck fallback, got %q", got)
	}
}

func TestContextSilentOnTotalFailure(t *testing.T) {
	google := &fakeTool{err: errors.New("down")}
	duck := &fakeTool{err: errors.New("also down")}
	svc := NewServiceWithTools(google, duck, nil)

	if got := svc.Context(context.Background(), "today weather"); got != "" {
		t.Fatalf("expected empty context, got %q", got)
	}
}

func TestContextSkipsEmptyQuery(t *testing.T) {
	google := &fakeTool{out: "never"}
	svc := NewServiceWithTools(google, nil, nil)

	if got := svc.Context(context.Background(), "   "); got != "" {
		t.Fatalf("expected empty context for blank query, got %q", got)
	}
	if google.calls != 0 {
		t.Fatalf("no provider should run for a blank query")
	}
}
