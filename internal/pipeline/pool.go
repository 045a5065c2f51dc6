package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/openpress/newsimg/internal/metrics"
)

// DefaultWorkers is the worker count used when none is configured.
const DefaultWorkers = 8

// Pool fans tasks out to a fixed set of workers and collects exactly
// one outcome per task. Duplicate URLs within a run settle once; later
// tasks reuse the cached outcome.
type Pool struct {
	workers   int
	processor Processor
	cache     *lru.Cache[string, Outcome]
	logger    *zap.Logger
}

// PoolConfig wires a Pool.
type PoolConfig struct {
	Workers   int
	Processor Processor
	// CacheSize bounds the duplicate-URL outcome cache. Zero disables
	// coalescing.
	CacheSize int
	Logger    *zap.Logger
}

// NewPool builds a Pool.
func NewPool(cfg PoolConfig) (*Pool, error) {
	if cfg.Processor == nil {
		return nil, errors.New("pool requires a processor")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	var cache *lru.Cache[string, Outcome]
	if cfg.CacheSize > 0 {
		c, err := lru.New[string, Outcome](cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("build outcome cache: %w", err)
		}
		cache = c
	}
	return &Pool{
		workers:   cfg.Workers,
		processor: cfg.Processor,
		cache:     cache,
		logger:    cfg.Logger,
	}, nil
}

// Run processes every task and returns the settled outcomes keyed by
// row index. When ctx is canceled, in-flight tasks settle through
// their processor and tasks never handed to a worker settle as failed
// with a canceled error, so the map always covers every task.
func (p *Pool) Run(ctx context.Context, tasks []Task) map[int]Outcome {
	outcomes := make(map[int]Outcome, len(tasks))
	if len(tasks) == 0 {
		return outcomes
	}

	taskCh := make(chan Task)
	resultCh := make(chan Outcome, p.workers)

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.work(ctx, taskCh, resultCh)
		}()
	}

	go func() {
		defer close(taskCh)
		for _, task := range tasks {
			select {
			case taskCh <- task:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	for outcome := range resultCh {
		outcomes[outcome.Index] = outcome
		metrics.ObserveOutcome(outcome.Kind.String())
	}

	// Tasks the feeder never handed out still need a terminal outcome.
	for _, task := range tasks {
		if _, settled := outcomes[task.Index]; settled {
			continue
		}
		outcomes[task.Index] = Outcome{
			Index: task.Index,
			URL:   task.URL,
			Ref:   task.Ref,
			Kind:  OutcomeFailed,
			Err:   &FetchError{Kind: ErrorCanceled, Err: ctx.Err()},
		}
		metrics.ObserveOutcome(OutcomeFailed.String())
	}
	return outcomes
}

func (p *Pool) work(ctx context.Context, tasks <-chan Task, results chan<- Outcome) {
	for task := range tasks {
		metrics.IncActiveWorkers()
		results <- p.settle(ctx, task)
		metrics.DecActiveWorkers()
	}
}

func (p *Pool) settle(ctx context.Context, task Task) Outcome {
	if cached, ok := p.cachedOutcome(task); ok {
		p.logger.Debug("reusing settled outcome",
			zap.String("url", task.URL),
			zap.Int("row", task.Index),
		)
		return cached
	}
	outcome := p.processor.Process(ctx, task)
	p.rememberOutcome(outcome)
	return outcome
}

func (p *Pool) cachedOutcome(task Task) (Outcome, bool) {
	if p.cache == nil {
		return Outcome{}, false
	}
	cached, ok := p.cache.Get(task.URL)
	if !ok {
		return Outcome{}, false
	}
	cached.Index = task.Index
	cached.Ref = task.Ref
	return cached, true
}

func (p *Pool) rememberOutcome(outcome Outcome) {
	if p.cache == nil {
		return
	}
	// A canceled task is not a settled verdict on the URL.
	if outcome.Err != nil && outcome.Err.Kind == ErrorCanceled {
		return
	}
	p.cache.Add(outcome.URL, outcome)
}
