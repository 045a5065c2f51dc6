package download

import (
	"context"

	"go.uber.org/zap"

	"github.com/openpress/newsimg/internal/pipeline"
)

// Processor settles one download task: fetch the image bytes under the
// retry policy, then store them in the sink. The outcome Value is the
// stored file path.
type Processor struct {
	retrier *pipeline.Retrier
	fetcher pipeline.Fetcher
	sink    *Sink
	logger  *zap.Logger
}

// NewProcessor builds a Processor.
func NewProcessor(retrier *pipeline.Retrier, fetcher pipeline.Fetcher, sink *Sink, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		retrier: retrier,
		fetcher: fetcher,
		sink:    sink,
		logger:  logger,
	}
}

// Process implements pipeline.Processor.
func (p *Processor) Process(ctx context.Context, task pipeline.Task) pipeline.Outcome {
	result := p.retrier.Do(ctx, p.fetcher, task.URL)
	outcome := pipeline.Outcome{
		Index:    task.Index,
		URL:      task.URL,
		Ref:      task.Ref,
		Attempts: result.Attempts,
		Insecure: result.Insecure,
	}
	if result.Err != nil {
		outcome.Kind = pipeline.OutcomeFailed
		outcome.Err = result.Err
		return outcome
	}

	name := FileName(task.Ref, task.URL, result.Body)
	path, err := p.sink.Put(name, result.Body)
	if err != nil {
		p.logger.Warn("image store failed",
			zap.String("url", task.URL),
			zap.String("name", name),
			zap.Error(err),
		)
		outcome.Kind = pipeline.OutcomeFailed
		outcome.Err = &pipeline.FetchError{Kind: pipeline.ErrorOther, Err: err}
		return outcome
	}

	outcome.Kind = pipeline.OutcomeSuccess
	outcome.Value = path
	return outcome
}
