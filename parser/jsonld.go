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
	"encoding/json"

	"github.com/PuerkitoBio/goquery"
)

var articleTypes = map[string]bool{
	"Article":     true,
	"NewsArticle": true,
	"BlogPosting": true,
}

// jsonLD is the first Article-like JSON-LD object of a page, or nil.
type jsonLD map[string]any

func findJSONLD(doc *goquery.Document) jsonLD {
	var found jsonLD
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var data any
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return true
		}
		found = pickArticle(data)
		return found == nil
	})
	return found
}

func pickArticle(data any) jsonLD {
	switch v := data.(type) {
	case []any:
		for _, item := range v {
			if ld := pickArticle(item); ld != nil {
				return ld
			}
		}
	case map[string]any:
		if isArticleType(v["@type"]) {
			return v
		}
		if graph, ok := v["@graph"]; ok {
			return pickArticle(graph)
		}
	}
	return nil
}

func isArticleType(t any) bool {
	switch v := t.(type) {
	case string:
		return articleTypes[v]
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && articleTypes[s] {
				return true
			}
		}
	}
	return false
}

func (ld jsonLD) str(key string) string {
	if s, ok := ld[key].(string); ok {
		return s
	}
	return ""
}

func (ld jsonLD) headline() string {
	return ld.str("headline")
}

func (ld jsonLD) datePublished() string {
	return ld.str("datePublished")
}

// author accepts a name string, a Person object, or a list of either.
func (ld jsonLD) author() string {
	return authorName(ld["author"])
}

func authorName(v any) string {
	switch a := v.(type) {
	case string:
		return a
	case map[string]any:
		if name, ok := a["name"].(string); ok {
			return name
		}
	case []any:
		if len(a) > 0 {
			return authorName(a[0])
		}
	}
	return ""
}
