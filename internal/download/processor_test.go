package download

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openpress/newsimg/internal/pipeline"
)

type staticImageFetcher struct {
	body  []byte
	err   error
	calls int
}

func (f *staticImageFetcher) Fetch(_ context.Context, _ string, _ bool) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.body, nil
}

func newTestRetrier() *pipeline.Retrier {
	return pipeline.NewRetrier(pipeline.RetrierConfig{
		Policy: pipeline.NewRetryPolicy(3, time.Millisecond, 2*time.Millisecond),
	})
}

func TestProcessorStoresImage(t *testing.T) {
	t.Parallel()

	sink, err := NewSink(t.TempDir())
	require.NoError(t, err)

	fetcher := &staticImageFetcher{body: []byte("\x89PNG\r\n\x1a\npayload")}
	proc := NewProcessor(newTestRetrier(), fetcher, sink, nil)

	task := pipeline.Task{Index: 0, URL: "https://img.example.com/pic.png", Ref: "42"}
	outcome := proc.Process(context.Background(), task)

	require.Equal(t, pipeline.OutcomeSuccess, outcome.Kind)
	require.Equal(t, 1, outcome.Attempts)
	require.Equal(t, filepath.Join(sink.BaseDir(), "news_42.png"), outcome.Value)

	content, err := os.ReadFile(outcome.Value)
	require.NoError(t, err)
	require.Equal(t, fetcher.body, content)
}

func TestProcessorFailsWhenFetchFails(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sink, err := NewSink(dir)
	require.NoError(t, err)

	fetcher := &staticImageFetcher{
		err: &pipeline.FetchError{Kind: pipeline.ErrorHTTPStatus, Code: http.StatusNotFound},
	}
	proc := NewProcessor(newTestRetrier(), fetcher, sink, nil)

	outcome := proc.Process(context.Background(), pipeline.Task{URL: "https://img.example.com/gone.png", Ref: "7"})

	require.Equal(t, pipeline.OutcomeFailed, outcome.Kind)
	var fetchErr *pipeline.FetchError
	require.ErrorAs(t, outcome.Err, &fetchErr)
	require.Equal(t, pipeline.ErrorHTTPStatus, fetchErr.Kind)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestProcessorFailsWhenStoreFails(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "images")
	sink, err := NewSink(dir)
	require.NoError(t, err)
	// Yank the directory out from under the sink to force a write error.
	require.NoError(t, os.RemoveAll(dir))

	fetcher := &staticImageFetcher{body: []byte("bytes")}
	proc := NewProcessor(newTestRetrier(), fetcher, sink, nil)

	outcome := proc.Process(context.Background(), pipeline.Task{URL: "https://img.example.com/pic.jpg", Ref: "9"})

	require.Equal(t, pipeline.OutcomeFailed, outcome.Kind)
	var fetchErr *pipeline.FetchError
	require.ErrorAs(t, outcome.Err, &fetchErr)
	require.Equal(t, pipeline.ErrorOther, fetchErr.Kind)
}
