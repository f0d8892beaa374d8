package diagram

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const (
	renderTimeout = 20 * time.Second
	defaultInit   = "%%{init: {'theme': 'neutral', 'scale': 3}}%%"
)

var blockRe = regexp.MustCompile("(?s)```mermaid(.*?)```")

// Renderer converts a mermaid graph description into an image via an
// external rendering service (mermaid.ink compatible).
type Renderer struct {
	baseURL string
	client  *http.Client
}

func NewRenderer(baseURL string) *Renderer {
	return &Renderer{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: renderTimeout},
	}
}

// Render normalizes the graph code and fetches the rendered image. The
// payload travels URL-embedded as URL-safe base64.
func (r *Renderer) Render(ctx context.Context, code string) ([]byte, error) {
	normalized := Normalize(code)
	encoded := base64.URLEncoding.EncodeToString([]byte(normalized))
	url := fmt.Sprintf("%s/%s?bgColor=FFFFFF", r.baseURL, encoded)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build render request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("render request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("render service returned %s", resp.Status)
	}
	image, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read rendered image: %w", err)
	}
	return image, nil
}

// Normalize forces a top-down layout and injects the default theme when
// the description does not carry its own init directive.
func Normalize(code string) string {
	code = strings.TrimSpace(code)
	if !strings.Contains(code, "%%{init:") {
		code = defaultInit + "\n" + code
	}
	return strings.ReplaceAll(code, "graph LR", "graph TD")
}

// ExtractBlocks returns the inner text of every fenced mermaid block.
func ExtractBlocks(reply string) []string {
	matches := blockRe.FindAllStringSubmatch(reply, -1)
	blocks := make([]string, 0, len(matches))
	for _, m := range matches {
		blocks = append(blocks, strings.TrimSpace(m[1]))
	}
	return blocks
}

// Strip removes every fenced mermaid block from the reply.
func Strip(reply string) string {
	return strings.TrimSpace(blockRe.ReplaceAllString(reply, ""))
}

// Extractor applies the diagram policy to a generated reply: once at
// least one block is detected the blocks are stripped from the text,
// whether or not the render succeeds. A render failure only costs the
// image attachment, never the turn.
type Extractor struct {
	renderer *Renderer
}

func NewExtractor(renderer *Renderer) *Extractor {
	return &Extractor{renderer: renderer}
}

// Process returns the block-stripped reply and, when rendering succeeds,
// the image payload for the first block.
func (e *Extractor) Process(ctx context.Context, reply string) (string, []byte) {
	blocks := ExtractBlocks(reply)
	if len(blocks) == 0 {
		return reply, nil
	}
	stripped := Strip(reply)

	image, err := e.renderer.Render(ctx, blocks[0])
	if err != nil {
		log.Printf("diagram render failed: %v", err)
		return stripped, nil
	}
	return stripped, image
}
