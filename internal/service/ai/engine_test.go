package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

type fakeModel struct {
	reply string
	err   error
	calls int
}

func (f *fakeModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func userMessages(text string) []*schema.Message {
	return []*schema.Message{schema.UserMessage(text)}
}

func TestGenerateUsesFirstHealthyCandidate(t *testing.T) {
	first := &fakeModel{reply: "from first"}
	second := &fakeModel{reply: "from second"}
	engine := NewEngineWithCandidates([]Candidate{
		{Name: "one", Model: first},
		{Name: "two", Model: second},
	}, 0.7, 1000)

	got := engine.Generate(context.Background(), userMessages("hi"))
	if got != "from first" {
		t.Fatalf("got %q, want reply from first candidate", got)
	}
	if second.calls != 0 {
		t.Fatalf("second candidate should not be tried, got %d calls", second.calls)
	}
}

func TestGenerateFallsThroughFailures(t *testing.T) {
	first := &fakeModel{err: errors.New("quota exhausted")}
	second := &fakeModel{reply: ""}
	third := &fakeModel{reply: "third saves the day"}
	engine := NewEngineWithCandidates([]Candidate{
		{Name: "one", Model: first},
		{Name: "two", Model: second},
		{Name: "three", Model: third},
	}, 0.7, 1000)

	got := engine.Generate(context.Background(), userMessages("hi"))
	if got != "third saves the day" {
		t.Fatalf("got %q, want reply from third candidate", got)
	}
	if first.calls != 1 || second.calls != 1 || third.calls != 1 {
		t.Fatalf("candidates tried %d/%d/%d times, want 1/1/1", first.calls, second.calls, third.calls)
	}
}

func TestGenerateAllFailuresYieldsSentinel(t *testing.T) {
	engine := NewEngineWithCandidates([]Candidate{
		{Name: "one", Model: &fakeModel{err: errors.New("down")}},
		{Name: "two", Model: &fakeModel{err: errors.New("also down")}},
	}, 0.7, 1000)

	got := engine.Generate(context.Background(), userMessages("hi"))
	if got != BusySentinel {
		t.Fatalf("got %q, want busy sentinel", got)
	}
}

func TestNewEngineRejectsEmptyCandidateList(t *testing.T) {
	if _, err := NewEngine(nil); err == nil {
		t.Fatalf("expected error for missing config")
	}
}
