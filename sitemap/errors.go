package sitemap

import "errors"

var (
	// ErrNoURLs is returned when discovery yields zero document URLs.
	ErrNoURLs = errors.New("no URLs discovered")

	// ErrNoSitemap is returned when none of the well-known sitemap paths answers.
	ErrNoSitemap = errors.New("no sitemap found")

	// ErrNotSitemap indicates a document whose root is neither <urlset> nor <sitemapindex>.
	ErrNotSitemap = errors.New("document is not a sitemap")

	// ErrUnexpectedStatus indicates a non-2xx response for a sitemap.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrInvalidOption is returned for out-of-range resolver options.
	ErrInvalidOption = errors.New("invalid resolver option")
)
