package pipeline

import (
	"context"
	"time"
)

// Fetcher performs a single HTTP GET and returns the response body.
// A nil error means the status was in the 2xx range; every other
// failure is reported as a *FetchError. insecure disables certificate
// verification for the request.
type Fetcher interface {
	Fetch(ctx context.Context, url string, insecure bool) ([]byte, error)
}

// Extractor locates the lead image URL in an HTML body. ok is false
// when no plausible candidate exists; malformed HTML is a miss, not
// an error.
type Extractor interface {
	Extract(body []byte, pageURL string) (imageURL string, ok bool)
}

// Limiter throttles outbound requests.
type Limiter interface {
	Wait(ctx context.Context, url string) error
}

// Clock abstracts time.Now for deterministic tests.
type Clock interface {
	Now() time.Time
}

// Processor settles one task. Implementations must return exactly one
// outcome per call and must not panic on malformed input.
type Processor interface {
	Process(ctx context.Context, task Task) Outcome
}
