// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package parser

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/poiesic/gleaner/core"
)

const (
	// MinBodyChars is the shortest body accepted as an article.
	MinBodyChars = 100

	// preferredBodyChars ends the container search early once a candidate is this long.
	preferredBodyChars = 200

	untitled      = "Untitled"
	unknownAuthor = "Unknown"
	generalSec    = "General"
)

// isoDate matches the calendar date that leads an ISO 8601 timestamp.
var isoDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)

// bodySelectors are tried in order; the first container with more than
// preferredBodyChars of text wins.
var bodySelectors = []string{
	"article",
	".post-content",
	".entry-content",
	".article-body",
	"[class*=content]",
	"main",
}

var authorSelectors = []string{".author", ".byline", "[rel=author]", ".post-author"}

// Parse extracts an Article from HTML fetched from pageURL.
// It returns false for pages without a recognizable article body, such as
// index pages or stubs. The same input always yields the same result.
func Parse(content []byte, pageURL string) (*core.Article, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, false
	}
	base, _ := url.Parse(pageURL)
	ld := findJSONLD(doc)

	body := extractBody(doc)
	if utf8.RuneCountInString(body) < MinBodyChars {
		return nil, false
	}

	article := &core.Article{
		URL:          pageURL,
		CanonicalURL: canonicalURL(doc, base, pageURL),
		Title:        firstNonEmpty(metaProperty(doc, "og:title"), ld.headline(), firstText(doc, "h1"), firstText(doc, "title"), untitled),
		Author:       firstNonEmpty(metaProperty(doc, "article:author"), ld.author(), selectorText(doc, authorSelectors), unknownAuthor),
		Section:      firstNonEmpty(metaProperty(doc, "article:section"), sectionFromURL(base), breadcrumbSection(doc), generalSec),
		Published:    datePart(firstNonEmpty(metaProperty(doc, "article:published_time"), ld.datePublished())),
		Body:         body,
	}
	article.ContentHash = core.ContentHash(article.Body)

	if core.ValidateArticle(article) != nil {
		return nil, false
	}
	return article, true
}

func extractBody(doc *goquery.Document) string {
	var body string
	for _, sel := range bodySelectors {
		el := doc.Find(sel).First()
		if el.Length() == 0 {
			continue
		}
		el.Find("script, style, nav").Remove()
		body = collapseText(el.Nodes[0])
		if utf8.RuneCountInString(body) > preferredBodyChars {
			return body
		}
	}
	if body == "" {
		if el := doc.Find("article").First(); el.Length() > 0 {
			body = collapseText(el.Nodes[0])
		}
	}
	return body
}

func canonicalURL(doc *goquery.Document, base *url.URL, pageURL string) string {
	for _, candidate := range []string{
		attr(doc, "link[rel=canonical]", "href"),
		metaProperty(doc, "og:url"),
	} {
		if resolved, ok := absolute(candidate, base); ok {
			return resolved
		}
	}
	return pageURL
}

func absolute(ref string, base *url.URL) (string, bool) {
	if ref == "" {
		return "", false
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", false
	}
	return u.String(), true
}

func metaProperty(doc *goquery.Document, prop string) string {
	return attr(doc, `meta[property="`+prop+`"]`, "content")
}

func attr(doc *goquery.Document, selector, name string) string {
	var out string
	doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if v, ok := s.Attr(name); ok && strings.TrimSpace(v) != "" {
			out = strings.TrimSpace(v)
			return false
		}
		return true
	})
	return out
}

func firstText(doc *goquery.Document, selector string) string {
	el := doc.Find(selector).First()
	if el.Length() == 0 {
		return ""
	}
	return strings.TrimSpace(el.Text())
}

func selectorText(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		el := doc.Find(sel).First()
		if el.Length() > 0 {
			return strings.TrimSpace(el.Text())
		}
	}
	return ""
}

func breadcrumbSection(doc *goquery.Document) string {
	nav := doc.Find("nav[aria-label=breadcrumb], .breadcrumb, [class*=breadcrumb]").First()
	links := nav.Find("a")
	if links.Length() < 2 {
		return ""
	}
	return strings.TrimSpace(links.Eq(links.Length() - 2).Text())
}

// datePart returns the YYYY-MM-DD prefix of s, or "" when s does not start with one.
func datePart(s string) string {
	return isoDate.FindString(strings.TrimSpace(s))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
