package pipeline

import (
	"context"

	"go.uber.org/zap"
)

// PageProcessor settles one page task: fetch the HTML under the retry
// policy, then locate the lead image.
type PageProcessor struct {
	retrier   *Retrier
	fetcher   Fetcher
	extractor Extractor
	logger    *zap.Logger
}

// NewPageProcessor builds a PageProcessor.
func NewPageProcessor(retrier *Retrier, fetcher Fetcher, extractor Extractor, logger *zap.Logger) *PageProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PageProcessor{
		retrier:   retrier,
		fetcher:   fetcher,
		extractor: extractor,
		logger:    logger,
	}
}

// Process implements Processor. A page that fetches cleanly but holds
// no plausible image settles as OutcomeNotFound.
func (p *PageProcessor) Process(ctx context.Context, task Task) Outcome {
	result := p.retrier.Do(ctx, p.fetcher, task.URL)
	outcome := Outcome{
		Index:    task.Index,
		URL:      task.URL,
		Ref:      task.Ref,
		Attempts: result.Attempts,
		Insecure: result.Insecure,
	}
	if result.Err != nil {
		outcome.Kind = OutcomeFailed
		outcome.Err = result.Err
		return outcome
	}

	imageURL, ok := p.extractor.Extract(result.Body, task.URL)
	if !ok {
		p.logger.Debug("no image located",
			zap.String("url", task.URL),
			zap.Int("attempts", result.Attempts),
		)
		outcome.Kind = OutcomeNotFound
		return outcome
	}

	outcome.Kind = OutcomeSuccess
	outcome.Value = imageURL
	return outcome
}
