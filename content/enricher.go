package content

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
)

const (
	defaultFetchTimeout   = 30 * time.Second
	defaultMaxContentSize = 5 * 1024 * 1024 // 5MB
	defaultMaxChars       = 8000
)

// Enricher turns a linked page into readable markdown suitable for
// inclusion in an LLM prompt. Boilerplate is stripped with readability
// extraction before conversion, and the output is capped so one huge
// page cannot swamp the prompt.
type Enricher struct {
	fetcher   *Fetcher
	converter *Converter
	maxChars  int
	logger    *slog.Logger
}

// NewEnricher creates an enricher with default limits.
func NewEnricher(logger *slog.Logger) *Enricher {
	return &Enricher{
		fetcher:   NewFetcher(defaultFetchTimeout, defaultMaxContentSize),
		converter: NewConverter(),
		maxChars:  defaultMaxChars,
		logger:    logger.With("component", "content-enricher"),
	}
}

// Fetch retrieves the page and returns it as capped markdown headed by
// the page title.
func (e *Enricher) Fetch(ctx context.Context, urlStr string) (string, error) {
	page, err := e.fetcher.Fetch(ctx, urlStr)
	if err != nil {
		return "", err
	}

	if !strings.Contains(page.ContentType, "html") && page.ContentType != "" {
		// Plain text and similar pass through directly.
		return capText(string(page.Body), e.maxChars), nil
	}

	article, err := readability.FromReader(bytes.NewReader(page.Body), page.FinalURL)
	if err != nil {
		return "", fmt.Errorf("extract readable content: %w", err)
	}

	result, err := e.converter.Convert(article.Content)
	if err != nil {
		return "", fmt.Errorf("convert to markdown: %w", err)
	}

	title := article.Title
	if title == "" {
		title = result.Title
	}

	text := result.Markdown
	if title != "" {
		text = "# " + title + "\n\n" + text
	}

	e.logger.Debug("page enriched", "url", urlStr, "title", title, "chars", len(text))
	return capText(text, e.maxChars), nil
}

// capText truncates text at a word boundary near max.
func capText(text string, max int) string {
	if len(text) <= max {
		return text
	}
	cut := text[:max]
	if idx := strings.LastIndexByte(cut, ' '); idx > max/2 {
		cut = cut[:idx]
	}
	return cut + "\n\n[content truncated]"
}
