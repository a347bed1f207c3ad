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

package sitemap

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"
)

// document matches both <urlset> and <sitemapindex>. Field tags carry no
// namespace so namespaced and bare documents decode alike.
type document struct {
	XMLName  xml.Name
	Sitemaps []location `xml:"sitemap"`
	URLs     []location `xml:"url"`
}

type location struct {
	Loc string `xml:"loc"`
}

// parsed is the content of one sitemap document.
type parsed struct {
	index bool     // true for <sitemapindex>
	locs  []string // child sitemaps or document URLs, in document order
}

// parseDocument decodes a sitemap and resolves every <loc> against base.
// Locations that are not absolute http(s) URLs are dropped and returned as invalid.
func parseDocument(data []byte, base *url.URL) (*parsed, []string, error) {
	var doc document
	if err := xml.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		return nil, nil, fmt.Errorf("decode sitemap: %w", err)
	}

	var raw []location
	out := &parsed{}
	switch doc.XMLName.Local {
	case "sitemapindex":
		out.index = true
		raw = doc.Sitemaps
	case "urlset":
		raw = doc.URLs
	default:
		return nil, nil, fmt.Errorf("%w: root element <%s>", ErrNotSitemap, doc.XMLName.Local)
	}

	var invalid []string
	for _, l := range raw {
		loc := strings.TrimSpace(l.Loc)
		if loc == "" {
			continue
		}
		resolved, ok := resolveLoc(loc, base)
		if !ok {
			invalid = append(invalid, loc)
			continue
		}
		out.locs = append(out.locs, resolved)
	}
	return out, invalid, nil
}

func resolveLoc(loc string, base *url.URL) (string, bool) {
	u, err := url.Parse(loc)
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

// dedupKey treats URLs differing only by a trailing slash as the same document.
func dedupKey(u string) string {
	return strings.TrimSuffix(u, "/")
}
