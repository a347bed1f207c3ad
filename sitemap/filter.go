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
	"net/url"
	"strings"
)

// Filter restricts discovered URLs by path. An empty Filter passes everything.
type Filter struct {
	// Include lists path prefixes. When non-empty a URL must match one.
	Include []string
	// Exclude lists path substrings. A URL matching any is dropped.
	Exclude []string
}

// DefaultArticleFilter keeps editorial content paths and drops storefront,
// account, pagination and listing pages.
func DefaultArticleFilter() Filter {
	return Filter{
		Include: []string{
			"/article/", "/articles/", "/essays/", "/essay/",
			"/blogs/", "/blog/", "/commentary/", "/topics/",
		},
		Exclude: []string{
			"/churches/", "/store/", "/donate/", "/courses/", "/course/",
			"/auth", "/login", "/register", "/page/", "/feed/", "/tag/", "/author/",
		},
	}
}

// IsZero reports whether the filter passes every URL.
func (f Filter) IsZero() bool {
	return len(f.Include) == 0 && len(f.Exclude) == 0
}

// Match reports whether rawURL passes the filter. Paths compare case-insensitively.
func (f Filter) Match(rawURL string) bool {
	if f.IsZero() {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := strings.ToLower(u.Path)

	if len(f.Include) > 0 {
		included := false
		for _, p := range f.Include {
			p = strings.ToLower(p)
			if strings.HasPrefix(path, p) || path == strings.TrimSuffix(p, "/") {
				included = true
				break
			}
		}
		if !included {
			return false
		}
	}

	for _, ex := range f.Exclude {
		if strings.Contains(path, strings.ToLower(ex)) {
			return false
		}
	}
	return true
}
