package service

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/analyzer"
	"github.com/spec-kit/triage-service/internal/composer"
	"github.com/spec-kit/triage-service/internal/config"
	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/events"
	"github.com/spec-kit/triage-service/internal/repository"
)

// ProcessingOutcome discriminates triage results.
type ProcessingOutcome string

const (
	OutcomeProcessed ProcessingOutcome = "processed"
	OutcomeDisabled  ProcessingOutcome = "disabled"
	OutcomeFailed    ProcessingOutcome = "failed"
)

// TicketCreation identifies a freshly created ticket. Empty fields are filled from the stored
// ticket.
type TicketCreation struct {
	TicketID    string
	Number      string
	CreatorName string
	Title       string
	Description string
}

// TicketProcessingResult is the outcome of the triage pipeline for one ticket.
type TicketProcessingResult struct {
	Outcome    ProcessingOutcome         `json:"outcome"`
	Reason     string                    `json:"reason,omitempty"`
	Analysis   *analyzer.ContentAnalysis `json:"analysis,omitempty"`
	Assignment *AssignmentResult         `json:"assignment,omitempty"`
	Knowledge  *KBResponseResult         `json:"knowledge,omitempty"`
	MessageID  string                    `json:"message_id,omitempty"`
	Escalated  bool                      `json:"escalated"`
}

// AssistantService runs the triage pipeline for new tickets.
type AssistantService struct {
	tickets    repository.TicketRepository
	messages   repository.TicketMessageRepository
	history    repository.TicketHistoryRepository
	agents     repository.AgentRepository
	assignment *AssignmentService
	knowledge  *KnowledgeService
	dispatcher events.Dispatcher
	composer   *composer.Composer
	logger     *zap.Logger
	now        Clock
	sleep      Sleeper

	mu  sync.Mutex
	rnd composer.Source
}

// AssistantDependencies bundles collaborators of the assistant.
type AssistantDependencies struct {
	TicketRepo        repository.TicketRepository
	MessageRepo       repository.TicketMessageRepository
	HistoryRepo       repository.TicketHistoryRepository
	AgentRepo         repository.AgentRepository
	AssignmentService *AssignmentService
	KnowledgeService  *KnowledgeService
	Dispatcher        events.Dispatcher
	Composer          *composer.Composer
	Logger            *zap.Logger
	Clock             Clock
	Sleeper           Sleeper
	// Random drives the reply delay jitter.
	Random composer.Source
}

// NewAssistantService builds the service.
func NewAssistantService(deps AssistantDependencies) *AssistantService {
	s := &AssistantService{
		tickets:    deps.TicketRepo,
		messages:   deps.MessageRepo,
		history:    deps.HistoryRepo,
		agents:     deps.AgentRepo,
		assignment: deps.AssignmentService,
		knowledge:  deps.KnowledgeService,
		dispatcher: deps.Dispatcher,
		composer:   deps.Composer,
		logger:     deps.Logger,
		now:        deps.Clock,
		sleep:      deps.Sleeper,
		rnd:        deps.Random,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.sleep == nil {
		s.sleep = contextSleep
	}
	if s.rnd == nil {
		s.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return s
}

// Analyze previews the content analysis of a ticket text.
func (s *AssistantService) Analyze(title, description string) analyzer.ContentAnalysis {
	return analyzer.Analyze(title, description)
}

// ProcessTicketCreation classifies, escalates, routes and answers a new ticket. It never returns an
// error; each step logs its own failure and the pipeline continues where it can.
func (s *AssistantService) ProcessTicketCreation(ctx context.Context, cfg config.AssistantConfig, in TicketCreation) TicketProcessingResult {
	log := s.logger.With(zap.String("ticket_id", in.TicketID))
	if !cfg.Enabled {
		log.Debug("assistant disabled; ticket not processed")
		return TicketProcessingResult{Outcome: OutcomeDisabled, Reason: "assistant disabled"}
	}

	assistant, err := s.agents.GetAssistant(ctx)
	if err != nil {
		log.Error("assistant account unavailable", zap.Error(err))
		return TicketProcessingResult{Outcome: OutcomeFailed, Reason: "assistant account not configured"}
	}

	ticket, err := s.tickets.GetByID(ctx, in.TicketID)
	if err != nil {
		log.Error("load ticket", zap.Error(err))
		return TicketProcessingResult{Outcome: OutcomeFailed, Reason: "ticket not found"}
	}
	fillCreation(&in, ticket)

	analysis := analyzer.Analyze(in.Title, in.Description)
	result := TicketProcessingResult{Outcome: OutcomeProcessed, Analysis: &analysis}

	if err := s.applyClassification(ctx, assistant, ticket, analysis); err != nil {
		log.Error("persist classification", zap.Error(err))
	}

	if ticket.Priority == domain.TicketPriorityCritical || analysis.Sentiment == domain.SentimentNegative {
		result.Escalated = true
		publishEvent(ctx, s.dispatcher, s.now, events.Event{
			Type:     events.EventTicketEscalated,
			TicketID: ticket.ID,
			Actor:    systemActor(assistant.ID),
			Payload: events.TicketEscalatedPayload{
				Number:    in.Number,
				Title:     in.Title,
				Language:  analysis.Language,
				Priority:  ticket.Priority,
				Sentiment: analysis.Sentiment,
			},
		})
		log.Info("ticket escalated", zap.String("priority", string(ticket.Priority)), zap.String("sentiment", string(analysis.Sentiment)))
	}

	assignment := s.assignment.AutoAssign(ctx, cfg, AssignmentRequest{
		TicketID:    ticket.ID,
		ActorID:     assistant.ID,
		Category:    analysis.Category,
		Language:    analysis.Language,
		Title:       in.Title,
		Description: in.Description,
	})
	result.Assignment = &assignment

	kb := s.knowledge.GenerateKBResponse(ctx, cfg, KBRequest{
		TicketID:    ticket.ID,
		ActorID:     assistant.ID,
		Title:       in.Title,
		Description: in.Description,
		Language:    analysis.Language,
	})
	result.Knowledge = &kb

	replied, err := s.messages.HasAuthorMessageSince(ctx, ticket.ID, domain.AuthorTypeSystem, assistant.ID, ticket.CreatedAt.Add(-time.Nanosecond))
	if err != nil {
		log.Error("check previous replies", zap.Error(err))
		result.Reason = "reply not sent"
		return result
	}
	if replied {
		result.Reason = "reply already sent"
		return result
	}

	s.sleep(ctx, s.responseDelay(cfg))
	if ctx.Err() != nil {
		log.Warn("triage cancelled before reply", zap.Error(ctx.Err()))
		result.Reason = "reply not sent"
		return result
	}

	notice := ""
	if assignment.Success {
		notice = assignment.Reason
	}
	body := s.composer.Compose(composer.Reply{
		Language:         analysis.Language,
		CustomerName:     in.CreatorName,
		TicketNumber:     in.Number,
		Priority:         ticket.Priority,
		PriorityChanged:  analysis.PriorityChanged,
		Negative:         analysis.Sentiment == domain.SentimentNegative,
		AssignmentNotice: notice,
		KnowledgeText:    kb.Message,
		AfterHours:       composer.OutsideBusinessHours(ticket.CreatedAt, cfg.BusinessHoursStart, cfg.BusinessHoursEnd),
		HoursStart:       cfg.BusinessHoursStart,
		HoursEnd:         cfg.BusinessHoursEnd,
		Signature:        cfg.Name,
	})

	msg := &domain.TicketMessage{
		TicketID:    ticket.ID,
		AuthorType:  domain.AuthorTypeSystem,
		AuthorID:    &assistant.ID,
		MessageType: domain.MessageTypePublicReply,
		Body:        body,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		log.Error("persist assistant reply", zap.Error(err))
		result.Reason = "reply not sent"
		return result
	}
	result.MessageID = msg.ID
	publishEvent(ctx, s.dispatcher, s.now, events.Event{
		Type:     events.EventTicketMessageAdded,
		TicketID: ticket.ID,
		Actor:    systemActor(assistant.ID),
		Payload: events.TicketMessageAddedPayload{
			MessageID:   msg.ID,
			MessageType: msg.MessageType,
			AuthorType:  msg.AuthorType,
			AuthorID:    msg.AuthorID,
			Kind:        events.MessageKindReply,
			Body:        body,
		},
	})

	log.Info("ticket triaged",
		zap.String("category", string(analysis.Category)),
		zap.String("language", analysis.Language),
		zap.Bool("assigned", assignment.Success),
		zap.Bool("kb_auto_resolved", kb.AutoResolved),
	)
	return result
}

// applyClassification stores the analysis on the ticket. Priority is only overwritten when the
// analyzer produced one. Unchanged classifications are not written again.
func (s *AssistantService) applyClassification(ctx context.Context, assistant *domain.Agent, ticket *domain.Ticket, analysis analyzer.ContentAnalysis) error {
	old := classificationOf(ticket)
	oldPriority := ticket.Priority

	ticket.Language = analysis.Language
	ticket.Sentiment = analysis.Sentiment
	ticket.Category = analysis.Category
	if analysis.Priority != nil {
		ticket.Priority = *analysis.Priority
	}

	updated := classificationOf(ticket)
	if equalClassification(old, updated) {
		return nil
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return err
	}
	if err := s.history.Create(ctx, &domain.TicketHistory{
		TicketID:      ticket.ID,
		ChangedByType: domain.AuthorTypeSystem,
		ChangedByID:   &assistant.ID,
		ChangeType:    domain.ChangeTypeClassification,
		OldValue:      old,
		NewValue:      updated,
	}); err != nil {
		return err
	}
	if oldPriority != ticket.Priority {
		publishEvent(ctx, s.dispatcher, s.now, events.Event{
			Type:     events.EventTicketPriorityChanged,
			TicketID: ticket.ID,
			Actor:    systemActor(assistant.ID),
			Payload: events.TicketPriorityChangedPayload{
				OldPriority: oldPriority,
				NewPriority: ticket.Priority,
			},
		})
	}
	return nil
}

// responseDelay draws a uniform delay in [mean-variation, mean+variation] milliseconds.
func (s *AssistantService) responseDelay(cfg config.AssistantConfig) time.Duration {
	ms := cfg.ResponseDelayMeanMs
	if v := cfg.ResponseDelayVariationMs; v > 0 {
		s.mu.Lock()
		ms += s.rnd.Intn(2*v+1) - v
		s.mu.Unlock()
	}
	if ms < 0 {
		ms = 0
	}
	return time.Duration(ms) * time.Millisecond
}

func fillCreation(in *TicketCreation, ticket *domain.Ticket) {
	if strings.TrimSpace(in.Number) == "" {
		in.Number = ticket.Number
	}
	if strings.TrimSpace(in.CreatorName) == "" {
		in.CreatorName = ticket.RequesterName
	}
	if strings.TrimSpace(in.Title) == "" {
		in.Title = ticket.Title
	}
	if strings.TrimSpace(in.Description) == "" {
		in.Description = ticket.Description
	}
}

func classificationOf(t *domain.Ticket) map[string]any {
	return map[string]any{
		"language":  t.Language,
		"sentiment": string(t.Sentiment),
		"category":  string(t.Category),
		"priority":  string(t.Priority),
	}
}

func equalClassification(a, b map[string]any) bool {
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return len(a) == len(b)
}
