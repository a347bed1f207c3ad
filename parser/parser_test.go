package parser

import (
	"net/url"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/poiesic/gleaner/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var longBody = strings.Repeat("Body content here. ", 20)

func TestParse_OpenGraphMeta(t *testing.T) {
	html := `<html>
<head>
  <meta property="og:title" content="My Title" />
  <meta property="article:author" content="Jane Doe" />
  <meta property="article:section" content="Essays" />
  <meta property="article:published_time" content="2024-05-06T10:00:00Z" />
  <link rel="canonical" href="/article/foo/" />
</head>
<body><article><p>` + longBody + `</p><script>var x = 1;</script></article></body>
</html>`

	article, ok := Parse([]byte(html), "https://example.com/article/foo?utm=1")
	require.True(t, ok)
	assert.Equal(t, "My Title", article.Title)
	assert.Equal(t, "Jane Doe", article.Author)
	assert.Equal(t, "Essays", article.Section)
	assert.Equal(t, "2024-05-06", article.Published)
	assert.Equal(t, "https://example.com/article/foo/", article.CanonicalURL)
	assert.Equal(t, "https://example.com/article/foo?utm=1", article.URL)
	assert.Equal(t, strings.TrimSpace(longBody), article.Body)
	assert.NotContains(t, article.Body, "var x")
	assert.Equal(t, core.ContentHash(article.Body), article.ContentHash)
}

func TestParse_JSONLDFallbacks(t *testing.T) {
	html := `<html><head>
<script type="application/ld+json">{"@context":"https://schema.org","@graph":[
  {"@type":"WebPage","name":"ignored"},
  {"@type":["Article"],"headline":"LD Headline","datePublished":"2023-01-02T00:00:00+00:00",
   "author":[{"@type":"Person","name":"LD Author"}]}
]}</script>
</head><body><h1>H1 Title</h1><div class="post-content">` + longBody + `</div></body></html>`

	article, ok := Parse([]byte(html), "https://example.com/blogs/some-blog/post")
	require.True(t, ok)
	assert.Equal(t, "LD Headline", article.Title)
	assert.Equal(t, "LD Author", article.Author)
	assert.Equal(t, "2023-01-02", article.Published)
	assert.Equal(t, "Blogs", article.Section)
	assert.Equal(t, "https://example.com/blogs/some-blog/post", article.CanonicalURL)
}

func TestParse_MarkupFallbacks(t *testing.T) {
	html := `<html><head><title>Doc Title</title></head><body>
<span class="byline">By Someone</span>
<main>` + longBody + `</main></body></html>`

	article, ok := Parse([]byte(html), "https://example.com/article/2024/")
	require.True(t, ok)
	assert.Equal(t, "Doc Title", article.Title)
	assert.Equal(t, "By Someone", article.Author)
	assert.Equal(t, "General", article.Section)
	assert.Empty(t, article.Published)
}

func TestParse_Defaults(t *testing.T) {
	html := `<html><body><article>` + longBody + `</article></body></html>`

	article, ok := Parse([]byte(html), "https://example.com/")
	require.True(t, ok)
	assert.Equal(t, "Untitled", article.Title)
	assert.Equal(t, "Unknown", article.Author)
	assert.Equal(t, "General", article.Section)
}

func TestParse_RejectsShortBody(t *testing.T) {
	_, ok := Parse([]byte(`<html><body><article><p>Hi</p></article></body></html>`), "https://example.com/foo")
	assert.False(t, ok)

	_, ok = Parse([]byte(`<html><body><ul><li><a href="/a">A</a></li></ul></body></html>`), "https://example.com/index")
	assert.False(t, ok)
}

func TestParse_Deterministic(t *testing.T) {
	html := []byte(`<html><head><meta property="og:title" content="T"/></head><body><article>` + longBody + `</article></body></html>`)

	a, ok := Parse(html, "https://example.com/article/x")
	require.True(t, ok)
	b, ok := Parse(html, "https://example.com/article/x")
	require.True(t, ok)
	assert.Equal(t, a, b)
}

func TestSectionFromURL(t *testing.T) {
	tests := map[string]string{
		"https://e.org/article/2024/05/":         "",
		"https://e.org/essays/title":             "Essays",
		"https://e.org/article/faith-and-work/x": "Faith And Work",
		"https://e.org/":                         "",
	}
	for raw, want := range tests {
		t.Run(raw, func(t *testing.T) {
			assert.Equal(t, want, sectionFromURL(mustParse(t, raw)))
		})
	}
}

func TestDatePart(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "timestamp", in: "2024-05-06T10:00:00Z", want: "2024-05-06"},
		{name: "bare date", in: " 2024-05-06 ", want: "2024-05-06"},
		{name: "empty", in: "", want: ""},
		{name: "prose", in: "May 6, 2024", want: ""},
		{name: "partial", in: "2024-05", want: ""},
		{name: "multibyte", in: "6 мая 2024 года", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := datePart(tt.in)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}
