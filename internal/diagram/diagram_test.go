package diagram

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const sampleReply = "Here is your roadmap:\n```mermaid\ngraph LR\nA --> B\n```\nFollow it step by step."

func TestNormalizeInjectsInitAndForcesTopDown(t *testing.T) {
	got := Normalize("graph LR\nA --> B")
	if !strings.HasPrefix(got, "%%{init:") {
		t.Fatalf("init directive not injected: %q", got)
	}
	if strings.Contains(got, "graph LR") {
		t.Fatalf("left-right layout not rewritten: %q", got)
	}
	if !strings.Contains(got, "graph TD") {
		t.Fatalf("top-down layout missing: %q", got)
	}
}

func TestNormalizeKeepsExistingInit(t *testing.T) {
	code := "%%{init: {'theme': 'dark'}}%%\ngraph TD\nA --> B"
	got := Normalize(code)
	if strings.Count(got, "%%{init:") != 1 {
		t.Fatalf("init directive duplicated: %q", got)
	}
	if !strings.Contains(got, "'theme': 'dark'") {
		t.Fatalf("existing init overridden: %q", got)
	}
}

func TestExtractAndStrip(t *testing.T) {
	blocks := ExtractBlocks(sampleReply)
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	if !strings.Contains(blocks[0], "A --> B") {
		t.Fatalf("block content wrong: %q", blocks[0])
	}

	stripped := Strip(sampleReply)
	if strings.Contains(stripped, "mermaid") || strings.Contains(stripped, "A --> B") {
		t.Fatalf("block not removed: %q", stripped)
	}
	if !strings.Contains(stripped, "Here is your roadmap:") || !strings.Contains(stripped, "Follow it step by step.") {
		t.Fatalf("surrounding text damaged: %q", stripped)
	}
}

func TestRenderSendsNormalizedPayload(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte("png-bytes"))
	}))
	defer server.Close()

	r := NewRenderer(server.URL)
	image, err := r.Render(context.Background(), "graph LR\nA --> B")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if string(image) != "png-bytes" {
		t.Fatalf("unexpected image payload: %q", image)
	}

	encoded := strings.TrimPrefix(gotPath, "/")
	decoded, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if !strings.Contains(string(decoded), "graph TD") {
		t.Fatalf("payload not normalized before encoding: %q", decoded)
	}
	if !strings.HasPrefix(string(decoded), "%%{init:") {
		t.Fatalf("payload missing init directive: %q", decoded)
	}
}

func TestProcessStripsEvenWhenRenderFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	e := NewExtractor(NewRenderer(server.URL))
	stripped, image := e.Process(context.Background(), sampleReply)
	if image != nil {
		t.Fatalf("expected no image on render failure")
	}
	if strings.Contains(stripped, "mermaid") {
		t.Fatalf("blocks must be stripped regardless of render outcome: %q", stripped)
	}
}

func TestProcessPassesThroughPlainReplies(t *testing.T) {
	e := NewExtractor(NewRenderer("http://unused.invalid"))
	reply := "No diagrams here."
	stripped, image := e.Process(context.Background(), reply)
	if stripped != reply || image != nil {
		t.Fatalf("plain reply altered: %q image=%v", stripped, image)
	}
}
