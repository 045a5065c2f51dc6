package collyfetcher

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/require"

	"github.com/openpress/newsimg/internal/pipeline"
)

func newMockedFetcher(t *testing.T) (*Fetcher, *httpmock.MockTransport) {
	t.Helper()
	transport := httpmock.NewMockTransport()
	f := New(Config{
		UserAgent: "test-agent/1.0",
		Timeout:   2 * time.Second,
		Transport: transport,
	})
	return f, transport
}

func TestFetchReturnsBody(t *testing.T) {
	t.Parallel()

	f, transport := newMockedFetcher(t)
	transport.RegisterResponder(http.MethodGet, "http://article.test/ok",
		httpmock.NewStringResponder(http.StatusOK, "<html><body>hello</body></html>"))

	body, err := f.Fetch(context.Background(), "http://article.test/ok", false)

	require.NoError(t, err)
	require.Contains(t, string(body), "hello")
}

func TestFetchSendsUserAgent(t *testing.T) {
	t.Parallel()

	f, transport := newMockedFetcher(t)
	var gotAgent string
	transport.RegisterResponder(http.MethodGet, "http://article.test/ua",
		func(req *http.Request) (*http.Response, error) {
			gotAgent = req.Header.Get("User-Agent")
			return httpmock.NewStringResponse(http.StatusOK, "ok"), nil
		})

	_, err := f.Fetch(context.Background(), "http://article.test/ua", false)

	require.NoError(t, err)
	require.Equal(t, "test-agent/1.0", gotAgent)
}

func TestFetchClientErrorStatus(t *testing.T) {
	t.Parallel()

	f, transport := newMockedFetcher(t)
	transport.RegisterResponder(http.MethodGet, "http://article.test/missing",
		httpmock.NewStringResponder(http.StatusNotFound, "not here"))

	_, err := f.Fetch(context.Background(), "http://article.test/missing", false)

	require.Error(t, err)
	var fetchErr *pipeline.FetchError
	require.ErrorAs(t, err, &fetchErr)
	require.Equal(t, pipeline.ErrorHTTPStatus, fetchErr.Kind)
	require.Equal(t, http.StatusNotFound, fetchErr.Code)
	require.False(t, fetchErr.Retryable())
}

func TestFetchServerErrorStatusIsRetryable(t *testing.T) {
	t.Parallel()

	f, transport := newMockedFetcher(t)
	transport.RegisterResponder(http.MethodGet, "http://article.test/busy",
		httpmock.NewStringResponder(http.StatusServiceUnavailable, "try later"))

	_, err := f.Fetch(context.Background(), "http://article.test/busy", false)

	var fetchErr *pipeline.FetchError
	require.ErrorAs(t, err, &fetchErr)
	require.Equal(t, pipeline.ErrorHTTPStatus, fetchErr.Kind)
	require.Equal(t, http.StatusServiceUnavailable, fetchErr.Code)
	require.True(t, fetchErr.Retryable())
}

func TestFetchClassifiesTimeout(t *testing.T) {
	t.Parallel()

	f, transport := newMockedFetcher(t)
	transport.RegisterResponder(http.MethodGet, "http://article.test/slow",
		httpmock.NewErrorResponder(&net.DNSError{Err: "i/o timeout", IsTimeout: true}))

	_, err := f.Fetch(context.Background(), "http://article.test/slow", false)

	var fetchErr *pipeline.FetchError
	require.ErrorAs(t, err, &fetchErr)
	require.Equal(t, pipeline.ErrorTimeout, fetchErr.Kind)
}

func TestFetchClassifiesConnectionFailure(t *testing.T) {
	t.Parallel()

	f, transport := newMockedFetcher(t)
	transport.RegisterResponder(http.MethodGet, "http://article.test/down",
		httpmock.NewErrorResponder(&net.OpError{Op: "dial", Net: "tcp", Err: &net.DNSError{Err: "no such host"}}))

	_, err := f.Fetch(context.Background(), "http://article.test/down", false)

	var fetchErr *pipeline.FetchError
	require.ErrorAs(t, err, &fetchErr)
	require.Equal(t, pipeline.ErrorConnection, fetchErr.Kind)
}

func TestFetchCanceledContext(t *testing.T) {
	t.Parallel()

	f, transport := newMockedFetcher(t)
	transport.RegisterResponder(http.MethodGet, "http://article.test/hang",
		func(req *http.Request) (*http.Response, error) {
			time.Sleep(500 * time.Millisecond)
			return httpmock.NewStringResponse(http.StatusOK, "late"), nil
		})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := f.Fetch(ctx, "http://article.test/hang", false)

	var fetchErr *pipeline.FetchError
	require.ErrorAs(t, err, &fetchErr)
	require.Equal(t, pipeline.ErrorCanceled, fetchErr.Kind)
}

func TestFetchRevisitsSameURL(t *testing.T) {
	t.Parallel()

	f, transport := newMockedFetcher(t)
	transport.RegisterResponder(http.MethodGet, "http://article.test/again",
		httpmock.NewStringResponder(http.StatusOK, "ok"))

	for i := 0; i < 3; i++ {
		_, err := f.Fetch(context.Background(), "http://article.test/again", false)
		require.NoError(t, err, "fetch %d", i+1)
	}
	require.Equal(t, 3, transport.GetTotalCallCount())
}

func TestNewAppliesDefaultTimeout(t *testing.T) {
	t.Parallel()

	f := New(Config{UserAgent: "x"})
	require.Equal(t, DefaultTimeout, f.cfg.Timeout)
}
