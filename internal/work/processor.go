package work

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/custodianhq/custodian/internal/domain"
)

// Processor is the main work processor that executes work items.
// It processes one work item at a time; concurrency within an item (e.g.
// parallel external calls) is the item's own business.
type Processor struct {
	registry *Registry
	store    *Store
	timeout  time.Duration
	log      zerolog.Logger

	trigger  chan struct{}
	done     chan struct{}
	stop     chan struct{}
	stopped  chan struct{}
	inFlight map[string]bool // Track currently executing work
	mu       sync.Mutex
}

// NewProcessor creates a new work processor.
func NewProcessor(registry *Registry, store *Store, log zerolog.Logger) *Processor {
	return NewProcessorWithTimeout(registry, store, WorkTimeout, log)
}

// NewProcessorWithTimeout creates a new work processor with a custom timeout.
// This is primarily used for testing.
func NewProcessorWithTimeout(registry *Registry, store *Store, timeout time.Duration, log zerolog.Logger) *Processor {
	return &Processor{
		registry: registry,
		store:    store,
		timeout:  timeout,
		log:      log.With().Str("service", "work_processor").Logger(),
		trigger:  make(chan struct{}, 1),
		done:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
		inFlight: make(map[string]bool),
	}
}

// Run starts the processor loop. This blocks until Stop() is called.
func (p *Processor) Run() {
	// Catch up on anything left pending from a previous run.
	p.Trigger()

	defer close(p.stopped)

	for {
		select {
		case <-p.stop:
			return
		case <-p.trigger:
			p.processOne()
		case <-p.done:
			p.processOne()
		}
	}
}

// Stop stops the processor.
func (p *Processor) Stop() {
	close(p.stop)
	<-p.stopped
}

// Trigger wakes up the processor to check for work.
// This is non-blocking and can be called from any goroutine.
func (p *Processor) Trigger() {
	select {
	case p.trigger <- struct{}{}:
	default:
		// Trigger already pending
	}
}

// ExecuteNow immediately executes a specific work type, bypassing the queue.
// Serves the manual trigger endpoint; the caller waits for the result.
func (p *Processor) ExecuteNow(workTypeID string, subject string) error {
	wt := p.registry.Get(workTypeID)
	if wt == nil {
		return domain.NotFoundf("unknown work type: %s", workTypeID)
	}

	item := NewWorkItem(wt, subject)
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	return wt.Execute(ctx, item.Subject)
}

// processOne finds and executes the next eligible work item.
func (p *Processor) processOne() {
	p.mu.Lock()
	// Check if we're already executing something
	if len(p.inFlight) > 0 {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	item, wt := p.findNextWork()
	if item == nil {
		return
	}

	// Mark as in-flight
	p.mu.Lock()
	p.inFlight[item.ID] = true
	p.mu.Unlock()

	if err := p.store.MarkRunning(item.ID); err != nil {
		p.log.Error().Err(err).Str("work", item.ID).Msg("Failed to claim work item")
		p.mu.Lock()
		delete(p.inFlight, item.ID)
		p.mu.Unlock()
		return
	}

	// Execute asynchronously
	go func() {
		defer func() {
			p.mu.Lock()
			delete(p.inFlight, item.ID)
			p.mu.Unlock()

			// Signal done to trigger next work
			select {
			case p.done <- struct{}{}:
			default:
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()

		err := wt.Execute(ctx, item.Subject)
		if err != nil {
			if ctx.Err() == context.DeadlineExceeded {
				p.log.Error().Str("work", item.ID).Msg("Work timed out")
			} else {
				p.log.Error().Err(err).Str("work", item.ID).Msg("Work failed")
			}
			p.handleFailure(item)
			return
		}

		if err := p.store.MarkDone(item.ID); err != nil {
			p.log.Error().Err(err).Str("work", item.ID).Msg("Failed to mark work done")
		}
	}()
}

// findNextWork finds the next work item to execute, highest priority first.
func (p *Processor) findNextWork() (*WorkItem, *WorkType) {
	for _, wt := range p.registry.ByPriority() {
		subjects := wt.FindSubjects()
		if len(subjects) == 0 {
			continue
		}
		return NewWorkItem(wt, subjects[0]), wt
	}

	return nil, nil
}

// handleFailure records the failure and requeues the item while it still has
// retries left. The retry count lives in the store, so a restart doesn't
// reset the budget.
func (p *Processor) handleFailure(item *WorkItem) {
	if err := p.store.MarkFailed(item.ID); err != nil {
		p.log.Error().Err(err).Str("work", item.ID).Msg("Failed to record work failure")
		return
	}

	retries, err := p.store.Retries(item.ID)
	if err != nil {
		p.log.Error().Err(err).Str("work", item.ID).Msg("Failed to read retry count")
		return
	}

	if retries < MaxRetries {
		if err := p.store.Requeue(item.ID); err != nil {
			p.log.Error().Err(err).Str("work", item.ID).Msg("Failed to requeue work item")
		}
		return
	}

	p.log.Warn().Str("work", item.ID).Int("retries", retries).Msg("Max retries reached, giving up")
}
