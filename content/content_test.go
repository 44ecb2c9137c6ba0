package content

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html>
<head><title>Sample Article</title></head>
<body>
<nav>Home | About</nav>
<article>
<h1>Sample Article</h1>
<p>This is the first paragraph of the article, with enough text that the
readability extraction treats it as real content rather than boilerplate.
It keeps going for a while so the scoring has something to work with.</p>
<p>The second paragraph adds <strong>emphasis</strong> and a
<a href="https://example.com/more">link</a> so the markdown conversion
has structure to preserve when it rewrites the page.</p>
</article>
<footer>Copyright</footer>
</body>
</html>`

func TestConverterConvert(t *testing.T) {
	c := NewConverter()

	result, err := c.Convert("<html><head><title>Doc Title</title></head><body><h1>Heading</h1><p>Some <b>bold</b> text.</p></body></html>")
	require.NoError(t, err)

	assert.Equal(t, "Doc Title", result.Title)
	assert.Contains(t, result.Markdown, "# Heading")
	assert.Contains(t, result.Markdown, "**bold**")
}

func TestConverterTitleFromMarkdown(t *testing.T) {
	c := NewConverter()

	result, err := c.Convert("<body><h1>Only Heading</h1><p>Body text here.</p></body>")
	require.NoError(t, err)
	assert.Equal(t, "Only Heading", result.Title)
}

func TestFetcherLimits(t *testing.T) {
	big := strings.Repeat("x", 2048)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(big))
	}))
	defer srv.Close()

	f := NewFetcher(5*time.Second, 1024)
	_, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestFetcherRejectsNonHTTP(t *testing.T) {
	f := NewFetcher(time.Second, 1024)
	_, err := f.Fetch(context.Background(), "file:///etc/passwd")
	assert.Error(t, err)
}

func TestFetcherNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewFetcher(time.Second, 1024)
	_, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestEnricherFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	e := NewEnricher(slog.Default())
	text, err := e.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Contains(t, text, "Sample Article")
	assert.Contains(t, text, "first paragraph")
	assert.NotContains(t, text, "Home | About", "navigation is stripped")
}

func TestEnricherPlainText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("just plain text"))
	}))
	defer srv.Close()

	e := NewEnricher(slog.Default())
	text, err := e.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "just plain text", text)
}

func TestCapText(t *testing.T) {
	long := strings.Repeat("word ", 100)
	capped := capText(long, 50)
	assert.LessOrEqual(t, len(capped), 50+len("\n\n[content truncated]"))
	assert.Contains(t, capped, "[content truncated]")

	short := "short text"
	assert.Equal(t, short, capText(short, 50))
}
