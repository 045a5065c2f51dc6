package download

import (
	"net/http"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/openpress/newsimg/internal/hash/sha256"
)

// fallbackIDLength is the number of hex digits taken from the URL
// digest when a row has no usable article ID.
const fallbackIDLength = 10

var (
	hasher        = sha256.New()
	unsafeIDChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)
)

var contentTypeExtensions = map[string]string{
	"image/jpeg":    ".jpg",
	"image/jpg":     ".jpg",
	"image/png":     ".png",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/bmp":     ".bmp",
	"image/svg+xml": ".svg",
}

// FileName derives the stored name for an image: news_<id><ext>. The
// id is the sanitized article ID, or a short digest of the URL when
// the row has none. The extension comes from the URL path when it
// looks like an image extension, then from sniffing the payload, and
// defaults to .jpg.
func FileName(id, rawURL string, body []byte) string {
	clean := sanitizeID(id)
	if clean == "" {
		clean = fallbackID(rawURL)
	}
	return "news_" + clean + extensionFor(rawURL, body)
}

func sanitizeID(id string) string {
	return strings.Trim(unsafeIDChars.ReplaceAllString(strings.TrimSpace(id), "_"), "_")
}

func fallbackID(rawURL string) string {
	digest, err := hasher.ShortHash([]byte(rawURL), fallbackIDLength)
	if err != nil || digest == "" {
		return "image"
	}
	return digest
}

func extensionFor(rawURL string, body []byte) string {
	if u, err := url.Parse(rawURL); err == nil {
		if ext := strings.ToLower(filepath.Ext(u.Path)); knownImageExtension(ext) {
			return ext
		}
	}
	if len(body) > 0 {
		mediaType := http.DetectContentType(body)
		if i := strings.Index(mediaType, ";"); i >= 0 {
			mediaType = mediaType[:i]
		}
		if ext, ok := contentTypeExtensions[strings.TrimSpace(mediaType)]; ok {
			return ext
		}
	}
	return ".jpg"
}

func knownImageExtension(ext string) bool {
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".svg":
		return true
	default:
		return false
	}
}
