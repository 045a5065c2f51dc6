// Package collyfetcher implements the pipeline Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/openpress/newsimg/internal/pipeline"
)

// DefaultTimeout bounds a single page fetch when no timeout is
// configured.
const DefaultTimeout = 12 * time.Second

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	// Transport replaces the verifying transport. Tests use it to
	// inject a mock; when set it also serves insecure fetches.
	Transport http.RoundTripper
}

// Fetcher implements pipeline.Fetcher using the Colly collector. It
// keeps two prepared collectors, one verifying certificates and one
// not, and clones the right one per request so concurrent fetches
// never share hook state.
type Fetcher struct {
	cfg      Config
	secure   *colly.Collector
	insecure *colly.Collector
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	verifying := cfg.Transport
	if verifying == nil {
		verifying = newHTTPTransport(false)
	}
	skipping := cfg.Transport
	if skipping == nil {
		skipping = newHTTPTransport(true)
	}

	return &Fetcher{
		cfg:      cfg,
		secure:   newCollector(cfg, verifying),
		insecure: newCollector(cfg, skipping),
	}
}

func newCollector(cfg Config, transport http.RoundTripper) *colly.Collector {
	// Synchronous collection relies on the default: colly v2.1.0's
	// Async option ignores its argument and always enables async.
	c := colly.NewCollector()
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	// Retries revisit the same URL, and non-2xx statuses must reach
	// OnResponse so they classify as http_status failures.
	c.AllowURLRevisit = true
	c.ParseHTTPErrorResponse = true
	c.IgnoreRobotsTxt = true
	c.SetRequestTimeout(cfg.Timeout)
	c.WithTransport(transport)
	return c
}

// Fetch executes a single HTTP GET. The returned body is only valid
// for 2xx responses; every failure is a *pipeline.FetchError.
func (f *Fetcher) Fetch(ctx context.Context, url string, insecure bool) ([]byte, error) {
	base := f.secure
	if insecure {
		base = f.insecure
	}
	collector := base.Clone()

	var (
		statusCode int
		body       []byte
		fetchErr   error
	)
	collector.OnResponse(func(r *colly.Response) {
		statusCode = r.StatusCode
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return nil, &pipeline.FetchError{Kind: pipeline.ErrorCanceled, Err: ctx.Err()}
	case visitErr := <-done:
		if fetchErr != nil {
			return nil, pipeline.Classify(fetchErr)
		}
		if visitErr != nil {
			return nil, pipeline.Classify(visitErr)
		}
	}

	if statusCode == 0 {
		return nil, &pipeline.FetchError{Kind: pipeline.ErrorOther, Err: errors.New("no response received")}
	}
	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		return nil, &pipeline.FetchError{Kind: pipeline.ErrorHTTPStatus, Code: statusCode}
	}
	return body, nil
}

func newHTTPTransport(insecureSkipVerify bool) *http.Transport {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
	if insecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return transport
}
