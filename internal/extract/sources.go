package extract

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// MetaTagSource reads social preview meta tags. Open Graph images are
// curated by the publisher, so they outrank anything in the markup.
type MetaTagSource struct{}

var metaSelectors = []string{
	`meta[property="og:image"]`,
	`meta[name="og:image"]`,
	`meta[property="og:image:url"]`,
	`meta[name="twitter:image"]`,
	`meta[property="twitter:image"]`,
}

// Candidate returns the first non-empty content attribute among the
// known preview tags.
func (MetaTagSource) Candidate(doc *goquery.Document) string {
	for _, selector := range metaSelectors {
		content, ok := doc.Find(selector).First().Attr("content")
		if ok && strings.TrimSpace(content) != "" {
			return content
		}
	}
	return ""
}

// ArticleImageSource walks known article content regions and returns
// the first image inside one.
type ArticleImageSource struct{}

var articleRegions = []string{
	"article img",
	"div.ms-rtestate-field img",
	"main img",
	`[role="main"] img`,
	"div.article-body img",
}

// Candidate returns the first image source found inside an article
// region, in region priority order.
func (ArticleImageSource) Candidate(doc *goquery.Document) string {
	for _, selector := range articleRegions {
		var found string
		doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if src := imageSrc(s); src != "" {
				found = src
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	return ""
}

// FirstImageSource falls back to the first document image that does
// not look like an icon, logo or tracking pixel.
type FirstImageSource struct{}

// Candidate scans every img element in document order.
func (FirstImageSource) Candidate(doc *goquery.Document) string {
	var found string
	doc.Find("img").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src := imageSrc(s)
		if src == "" || !plausibleImage(s, src) {
			return true
		}
		found = src
		return false
	})
	return found
}

// imageSrc returns the image source, preferring src and falling back
// to the lazy-loading data-src attribute. Inline data: URIs are never
// usable as a stored image URL.
func imageSrc(s *goquery.Selection) string {
	for _, attr := range []string{"src", "data-src"} {
		raw, ok := s.Attr(attr)
		if !ok {
			continue
		}
		src := strings.TrimSpace(raw)
		if src == "" || strings.HasPrefix(src, "data:") {
			continue
		}
		return src
	}
	return ""
}

var implausibleHints = []string{"sprite", "icon", "logo", "pixel", "blank", "spacer"}

func plausibleImage(s *goquery.Selection, src string) bool {
	lower := strings.ToLower(src)
	for _, hint := range implausibleHints {
		if strings.Contains(lower, hint) {
			return false
		}
	}
	if declaredTooSmall(s, "width") || declaredTooSmall(s, "height") {
		return false
	}
	return true
}

// declaredTooSmall treats dimensions of two pixels or less as tracking
// pixels. Images without declared dimensions pass.
func declaredTooSmall(s *goquery.Selection, attr string) bool {
	raw, ok := s.Attr(attr)
	if !ok {
		return false
	}
	size, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return size <= 2
}
