// Package pipeline implements the concurrent fetch pipeline: a worker
// pool that drives every CSV row through rate limiting, retried
// fetching and result collection, settling exactly one outcome per
// task.
package pipeline

// Task is one unit of work derived from a CSV row.
type Task struct {
	// Index is the zero-based position of the source row, used to
	// restore output order regardless of completion order.
	Index int
	// URL is the absolute URL to fetch.
	URL string
	// Ref is an opaque caller reference carried through to the
	// outcome, such as the article ID used to name downloaded files.
	Ref string
}

// OutcomeKind classifies how a task settled.
type OutcomeKind int

const (
	// OutcomeSuccess means the fetch succeeded and produced a value.
	OutcomeSuccess OutcomeKind = iota
	// OutcomeNotFound means the page was fetched but held no usable image.
	OutcomeNotFound
	// OutcomeFailed means the task failed permanently.
	OutcomeFailed
)

// String returns the snake_case status label used in logs and metrics.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the terminal result of exactly one Task.
type Outcome struct {
	Index int
	URL   string
	Ref   string
	Kind  OutcomeKind
	// Value holds the extracted image URL for the fetch stage, or the
	// stored file path for the download stage, when Kind is
	// OutcomeSuccess.
	Value string
	// Attempts counts every fetch invocation made for the task,
	// including any insecure fallback attempts.
	Attempts int
	// Insecure reports whether certificate verification was disabled
	// when the task settled.
	Insecure bool
	// Err carries the last failure when Kind is OutcomeFailed.
	Err *FetchError
}
