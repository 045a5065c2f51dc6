// Package download fetches the images located by the fetch stage and
// stores them on disk.
package download

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/openpress/newsimg/internal/pipeline"
)

// DefaultTimeout bounds a single image download.
const DefaultTimeout = 20 * time.Second

// FetcherConfig controls the download HTTP clients.
type FetcherConfig struct {
	UserAgent string
	Timeout   time.Duration
	// Transport replaces the verifying transport. Tests use it to
	// inject a mock; when set it also serves insecure fetches.
	Transport http.RoundTripper
}

// Fetcher implements pipeline.Fetcher for image payloads using resty.
// Like the page fetcher it keeps one verifying and one skipping
// client so the retry engine can switch modes per attempt.
type Fetcher struct {
	secure   *resty.Client
	insecure *resty.Client
}

// NewFetcher builds a Fetcher.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	build := func(skipVerify bool) *resty.Client {
		client := resty.New()
		client.SetTimeout(cfg.Timeout)
		if cfg.UserAgent != "" {
			client.SetHeader("User-Agent", cfg.UserAgent)
		}
		if cfg.Transport != nil {
			client.SetTransport(cfg.Transport)
		} else if skipVerify {
			client.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
		}
		return client
	}

	return &Fetcher{
		secure:   build(false),
		insecure: build(true),
	}
}

// Fetch downloads url and returns the payload. Failures are
// classified into the pipeline error taxonomy.
func (f *Fetcher) Fetch(ctx context.Context, url string, insecure bool) ([]byte, error) {
	client := f.secure
	if insecure {
		client = f.insecure
	}

	resp, err := client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, pipeline.Classify(err)
	}
	status := resp.StatusCode()
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return nil, &pipeline.FetchError{Kind: pipeline.ErrorHTTPStatus, Code: status}
	}
	return resp.Body(), nil
}
