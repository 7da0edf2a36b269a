package markup_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/siteindex/internal/logger"
	"github.com/jonesrussell/siteindex/internal/markup"
)

const namespacedXHTML = `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:dc="http://purl.org/dc/elements/1.1/">
  <head><dc:title>Namespaced Title</dc:title></head>
  <body><div id="content"><h1>Hello</h1></div></body>
</html>`

func TestIsMarkup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		contentType string
		want        bool
	}{
		{"text/html", true},
		{"text/html; charset=utf-8", true},
		{"application/xhtml+xml", true},
		{"application/xml", true},
		{"text/xml", true},
		{"application/pdf", false},
		{"text/plain", false},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, markup.IsMarkup(tt.contentType))
		})
	}
}

func TestParseStripsNamespaces(t *testing.T) {
	t.Parallel()

	doc, err := markup.Parse(strings.NewReader(namespacedXHTML), "application/xhtml+xml")
	require.NoError(t, err)

	titles, err := markup.Query(doc, "//title")
	require.NoError(t, err)
	require.Len(t, titles, 1)
	assert.Equal(t, "Namespaced Title", titles[0])
}

func TestParseLenientHTML(t *testing.T) {
	t.Parallel()

	// Unclosed tags must not fail the parse.
	broken := `<html><body><div id="content"><h1>Hello</body></html>`
	doc, err := markup.Parse(strings.NewReader(broken), "text/html")
	require.NoError(t, err)

	texts, err := markup.Query(doc, "//div[@id='content']/h1")
	require.NoError(t, err)
	require.Len(t, texts, 1)
	assert.Equal(t, "Hello", texts[0])
}

func TestParseLatin1Fallback(t *testing.T) {
	t.Parallel()

	// 0xE9 is "é" in Latin-1 and invalid on its own in UTF-8.
	latin1 := []byte("<html><body><h1>caf\xe9</h1></body></html>")
	doc, err := markup.Parse(strings.NewReader(string(latin1)), "text/html")
	require.NoError(t, err)

	texts, err := markup.Query(doc, "//h1")
	require.NoError(t, err)
	require.Len(t, texts, 1)
	assert.Equal(t, "café", texts[0])
}

func TestQueryDocumentOrder(t *testing.T) {
	t.Parallel()

	doc, err := markup.Parse(strings.NewReader(
		`<html><body><p>one</p><p>two</p><p>three</p></body></html>`), "text/html")
	require.NoError(t, err)

	texts, err := markup.Query(doc, "//p")
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two", "three"}, texts)
}

func TestQueryFirst(t *testing.T) {
	t.Parallel()

	doc, err := markup.Parse(strings.NewReader(
		`<html><body><p>one</p><p>two</p></body></html>`), "text/html")
	require.NoError(t, err)

	text, ok, err := markup.QueryFirst(doc, "//p", logger.NewNoOp())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "one", text)

	_, ok, err = markup.QueryFirst(doc, "//h1", logger.NewNoOp())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestQueryInvalidExpression(t *testing.T) {
	t.Parallel()

	doc, err := markup.Parse(strings.NewReader(`<html></html>`), "text/html")
	require.NoError(t, err)

	_, err = markup.Query(doc, "//[broken")
	require.Error(t, err)
}
