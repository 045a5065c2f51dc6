package extract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const pageURL = "https://news.example.com/articles/2026/story.html"

func TestExtractPrefersOpenGraphImage(t *testing.T) {
	t.Parallel()

	body := `<html><head>
		<meta property="og:image" content="https://cdn.example.com/lead.jpg">
	</head><body>
		<article><img src="/inline.jpg"></article>
	</body></html>`

	got, ok := New().Extract([]byte(body), pageURL)
	require.True(t, ok)
	require.Equal(t, "https://cdn.example.com/lead.jpg", got)
}

func TestExtractMetaTagVariants(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		head string
		want string
	}{
		{
			"og:image as name attribute",
			`<meta name="og:image" content="https://cdn.example.com/a.jpg">`,
			"https://cdn.example.com/a.jpg",
		},
		{
			"og:image:url",
			`<meta property="og:image:url" content="https://cdn.example.com/b.jpg">`,
			"https://cdn.example.com/b.jpg",
		},
		{
			"twitter:image fallback",
			`<meta name="twitter:image" content="https://cdn.example.com/c.jpg">`,
			"https://cdn.example.com/c.jpg",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			body := "<html><head>" + tc.head + "</head><body></body></html>"
			got, ok := New().Extract([]byte(body), pageURL)
			require.True(t, ok)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestExtractArticleRegionBeatsStrayImages(t *testing.T) {
	t.Parallel()

	body := `<html><body>
		<header><img src="/masthead.png"></header>
		<article><p>text</p><img src="/story-photo.jpg"></article>
	</body></html>`

	got, ok := New().Extract([]byte(body), pageURL)
	require.True(t, ok)
	require.Equal(t, "https://news.example.com/story-photo.jpg", got)
}

func TestExtractLegacyContentRegion(t *testing.T) {
	t.Parallel()

	body := `<html><body>
		<div class="ms-rtestate-field"><img data-src="images/photo.jpg"></div>
	</body></html>`

	got, ok := New().Extract([]byte(body), pageURL)
	require.True(t, ok)
	require.Equal(t, "https://news.example.com/articles/2026/images/photo.jpg", got)
}

func TestExtractFallsBackToFirstPlausibleImage(t *testing.T) {
	t.Parallel()

	body := `<html><body>
		<img src="/assets/sprite-nav.png">
		<img src="data:image/gif;base64,R0lGODlhAQABAAAAACw=">
		<img src="/track.gif" width="1" height="1">
		<img src="/photos/west-wing.jpg" width="640">
	</body></html>`

	got, ok := New().Extract([]byte(body), pageURL)
	require.True(t, ok)
	require.Equal(t, "https://news.example.com/photos/west-wing.jpg", got)
}

func TestExtractSkipsImplausibleNames(t *testing.T) {
	t.Parallel()

	testCases := []string{
		"/assets/logo.png",
		"/img/icon-share.svg",
		"/1x1-pixel.gif",
		"/blank.gif",
		"/spacer.png",
	}
	for _, src := range testCases {
		body := `<html><body><img src="` + src + `"></body></html>`
		_, ok := New().Extract([]byte(body), pageURL)
		require.False(t, ok, "src %s should be rejected", src)
	}
}

func TestExtractResolvesRelativeURLs(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		src  string
		want string
	}{
		{"root relative", "/media/pic.jpg", "https://news.example.com/media/pic.jpg"},
		{"document relative", "pic.jpg", "https://news.example.com/articles/2026/pic.jpg"},
		{"protocol relative", "//cdn.example.com/pic.jpg", "https://cdn.example.com/pic.jpg"},
		{"already absolute", "http://other.example.com/pic.jpg", "http://other.example.com/pic.jpg"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			body := `<html><body><article><img src="` + tc.src + `"></article></body></html>`
			got, ok := New().Extract([]byte(body), pageURL)
			require.True(t, ok)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestExtractNothingFound(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		body string
	}{
		{"no images", "<html><body><p>words only</p></body></html>"},
		{"empty body", ""},
		{"empty src", `<html><body><img src=""></body></html>`},
		{"truncated markup", "<html><bo"},
		{"binary junk", "\x00\x01\x02PNG not html"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, ok := New().Extract([]byte(tc.body), pageURL)
			require.False(t, ok)
		})
	}
}

func TestExtractRelativeCandidateWithBadBase(t *testing.T) {
	t.Parallel()

	body := `<html><body><article><img src="pic.jpg"></article></body></html>`
	_, ok := New().Extract([]byte(body), "::not-a-url::")
	require.False(t, ok)
}
