// Package extract locates the lead image in article HTML.
package extract

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CandidateSource proposes an image URL from a parsed document.
// Sources are consulted in priority order; the first usable candidate
// wins.
type CandidateSource interface {
	Candidate(doc *goquery.Document) string
}

// Extractor resolves the best lead-image candidate for a page.
type Extractor struct {
	sources []CandidateSource
}

// New builds an Extractor with the default source priority: social
// preview meta tags, then images inside known article regions, then
// the first plausible image anywhere in the document.
func New() *Extractor {
	return NewWithSources(
		MetaTagSource{},
		ArticleImageSource{},
		FirstImageSource{},
	)
}

// NewWithSources builds an Extractor with a custom source order.
func NewWithSources(sources ...CandidateSource) *Extractor {
	return &Extractor{sources: sources}
}

// Extract parses body and returns the lead image URL resolved against
// pageURL. ok is false when nothing plausible is found. Malformed HTML
// degrades to a miss, never an error.
func (e *Extractor) Extract(body []byte, pageURL string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", false
	}
	for _, source := range e.sources {
		candidate := strings.TrimSpace(source.Candidate(doc))
		if candidate == "" || strings.HasPrefix(candidate, "data:") {
			continue
		}
		if resolved := resolveURL(pageURL, candidate); resolved != "" {
			return resolved, true
		}
	}
	return "", false
}

// resolveURL makes candidate absolute against the page URL. Already
// absolute candidates pass through; an unresolvable relative
// candidate yields "".
func resolveURL(base, candidate string) string {
	ref, err := url.Parse(candidate)
	if err != nil {
		return ""
	}
	if ref.IsAbs() {
		return ref.String()
	}
	baseURL, err := url.Parse(base)
	if err != nil || baseURL.Scheme == "" {
		return ""
	}
	return baseURL.ResolveReference(ref).String()
}
