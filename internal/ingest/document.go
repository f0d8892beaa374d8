package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cloudwego/eino-ext/components/document/loader/file"
	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	"github.com/cloudwego/eino/components/document"
	"github.com/cloudwego/eino/components/document/parser"
)

// maxDocumentPages bounds how much of a large PDF is read.
const maxDocumentPages = 12

// DocumentParser extracts readable text from an uploaded document payload.
type DocumentParser interface {
	Extract(ctx context.Context, name string, data []byte) (string, error)
}

// FileDocumentParser extracts text through the eino file loader, with a
// dedicated PDF parser and a plain-text fallback for everything else.
type FileDocumentParser struct {
	loader *file.FileLoader
}

func NewFileDocumentParser(ctx context.Context) (*FileDocumentParser, error) {
	pdfParser, err := pdf.NewPDFParser(ctx, &pdf.Config{ToPages: true})
	if err != nil {
		return nil, fmt.Errorf("pdf parser: %w", err)
	}
	extParser, err := parser.NewExtParser(ctx, &parser.ExtParserConfig{
		Parsers:        map[string]parser.Parser{".pdf": pdfParser},
		FallbackParser: parser.TextParser{},
	})
	if err != nil {
		return nil, fmt.Errorf("ext parser: %w", err)
	}
	loader, err := file.NewFileLoader(ctx, &file.FileLoaderConfig{
		UseNameAsID: true,
		Parser:      extParser,
	})
	if err != nil {
		return nil, fmt.Errorf("file loader: %w", err)
	}
	return &FileDocumentParser{loader: loader}, nil
}

// Extract writes the payload to a scratch file for the loader and removes
// it before returning, success or not.
func (p *FileDocumentParser) Extract(ctx context.Context, name string, data []byte) (string, error) {
	ext := filepath.Ext(name)
	tmp, err := os.CreateTemp("", "pathsetu-doc-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create scratch file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write scratch file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close scratch file: %w", err)
	}

	docs, err := p.loader.Load(ctx, document.Source{URI: tmpPath})
	if err != nil {
		return "", fmt.Errorf("load document: %w", err)
	}
	if len(docs) > maxDocumentPages {
		docs = docs[:maxDocumentPages]
	}

	var builder strings.Builder
	for _, doc := range docs {
		content := strings.TrimSpace(doc.Content)
		if content == "" {
			continue
		}
		builder.WriteString(content)
		builder.WriteString("\n\n")
	}
	return strings.TrimSpace(builder.String()), nil
}
