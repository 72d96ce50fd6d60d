package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/config"
	"github.com/spec-kit/triage-service/internal/events"
	"github.com/spec-kit/triage-service/internal/observability"
	"github.com/spec-kit/triage-service/internal/service"
)

// TicketProcessor runs the triage pipeline for one ticket.
type TicketProcessor interface {
	ProcessTicketCreation(ctx context.Context, cfg config.AssistantConfig, in service.TicketCreation) service.TicketProcessingResult
}

// SettingsSource yields the effective assistant configuration.
type SettingsSource interface {
	Current(ctx context.Context) config.AssistantConfig
}

// TriageWorker runs the triage pipeline in the background for every created ticket so ticket
// creation never waits on it.
type TriageWorker struct {
	processor TicketProcessor
	settings  SettingsSource
	metrics   *observability.Metrics
	logger    *zap.Logger

	base context.Context
	sem  chan struct{}
	wg   sync.WaitGroup

	mu       sync.Mutex
	draining bool
}

// NewTriageWorker bounds concurrent pipelines to maxConcurrency. Pipelines derive their context
// from base, so cancelling base stops in-flight work.
func NewTriageWorker(base context.Context, processor TicketProcessor, settings SettingsSource, maxConcurrency int, metrics *observability.Metrics, logger *zap.Logger) *TriageWorker {
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TriageWorker{
		processor: processor,
		settings:  settings,
		metrics:   metrics,
		logger:    logger,
		base:      base,
		sem:       make(chan struct{}, maxConcurrency),
	}
}

// Subscribe registers the worker for ticket creation events.
func (w *TriageWorker) Subscribe(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EventTicketCreated, w.handleTicketCreated)
}

func (w *TriageWorker) handleTicketCreated(_ context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.TicketCreatedPayload)
	w.Enqueue(service.TicketCreation{
		TicketID:    event.TicketID,
		Number:      payload.Number,
		CreatorName: payload.RequesterName,
		Title:       payload.Title,
		Description: payload.Description,
	})
	return nil
}

// Enqueue schedules triage for a ticket and returns immediately. Tickets arriving after
// Drain started are dropped and stay untriaged.
func (w *TriageWorker) Enqueue(in service.TicketCreation) {
	w.mu.Lock()
	if w.draining {
		w.mu.Unlock()
		w.logger.Warn("triage worker draining; ticket left untriaged", zap.String("ticket_id", in.TicketID))
		return
	}
	w.wg.Add(1)
	w.mu.Unlock()
	go func() {
		defer w.wg.Done()
		select {
		case w.sem <- struct{}{}:
		case <-w.base.Done():
			return
		}
		defer func() { <-w.sem }()
		w.process(in)
	}()
}

func (w *TriageWorker) process(in service.TicketCreation) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("triage pipeline panicked", zap.String("ticket_id", in.TicketID), zap.Any("panic", r))
			w.metrics.RecordTriage(string(service.OutcomeFailed))
		}
	}()

	cfg := w.settings.Current(w.base)
	ctx, cancel := context.WithTimeout(w.base, cfg.PipelineTimeout())
	defer cancel()

	res := w.processor.ProcessTicketCreation(ctx, cfg, in)
	w.metrics.RecordTriage(string(res.Outcome))
	if res.Escalated {
		w.metrics.RecordTriage("escalated")
	}
	if res.Assignment != nil && res.Assignment.Success {
		w.metrics.RecordTriage("assigned")
	}
	if res.Knowledge != nil && res.Knowledge.AutoResolved {
		w.metrics.RecordTriage("kb_auto_resolved")
	}
	if res.Outcome == service.OutcomeFailed {
		w.logger.Warn("triage failed", zap.String("ticket_id", in.TicketID), zap.String("reason", res.Reason))
	}
}

// Wait blocks until every enqueued pipeline has finished.
func (w *TriageWorker) Wait() {
	w.wg.Wait()
}

// Drain stops accepting tickets and waits for queued and running pipelines until ctx ends.
// It returns ctx.Err() when pipelines are still running at the deadline.
func (w *TriageWorker) Drain(ctx context.Context) error {
	w.mu.Lock()
	w.draining = true
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
