package service

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/composer"
	"github.com/spec-kit/triage-service/internal/config"
	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/events"
	"github.com/spec-kit/triage-service/internal/lexicon"
	"github.com/spec-kit/triage-service/internal/repository"
	apperrors "github.com/spec-kit/triage-service/pkg/util/errorutil"
)

const (
	maxSearchTerms     = 8
	minTermRunes       = 5
	minMatchedTerms    = 2
	minArticleScore    = 30
	titleHitPoints     = 30
	bodyHitPoints      = 10
	excerptRunes       = 200
	defaultMatchLimit  = 3
	candidateQueryCap  = 50
	methodKBAutoAnswer = "kb-auto-response"
)

// KBArticleMatch is a scored article.
type KBArticleMatch struct {
	Article      domain.KBArticle `json:"article"`
	Score        int              `json:"score"`
	MatchedTerms []string         `json:"matched_terms"`
	Excerpt      string           `json:"excerpt"`
	URL          string           `json:"url"`
}

// KBResponseResult is the knowledge-base outcome for a ticket.
type KBResponseResult struct {
	Disabled           bool             `json:"disabled,omitempty"`
	HasRelevantArticle bool             `json:"has_relevant_article"`
	TopMatch           *KBArticleMatch  `json:"top_match,omitempty"`
	Suggestions        []KBArticleMatch `json:"suggestions,omitempty"`
	AutoResolved       bool             `json:"auto_resolved"`
	// Message is the text to embed in the reply; empty when nothing relevant was found.
	Message string `json:"message,omitempty"`
}

// KBRequest identifies the ticket being answered. An empty TicketID previews without side effects.
type KBRequest struct {
	TicketID    string
	ActorID     string
	Title       string
	Description string
	Language    string
}

// KnowledgeService matches tickets against published articles.
type KnowledgeService struct {
	articles   repository.KBArticleRepository
	tickets    repository.TicketRepository
	history    repository.TicketHistoryRepository
	dispatcher events.Dispatcher
	composer   *composer.Composer
	logger     *zap.Logger
	now        Clock
}

// KnowledgeDependencies bundles repositories for the knowledge service.
type KnowledgeDependencies struct {
	ArticleRepo repository.KBArticleRepository
	TicketRepo  repository.TicketRepository
	HistoryRepo repository.TicketHistoryRepository
	Dispatcher  events.Dispatcher
	Composer    *composer.Composer
	Logger      *zap.Logger
	Clock       Clock
}

// NewKnowledgeService builds the service.
func NewKnowledgeService(deps KnowledgeDependencies) *KnowledgeService {
	s := &KnowledgeService{
		articles:   deps.ArticleRepo,
		tickets:    deps.TicketRepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
		composer:   deps.Composer,
		logger:     deps.Logger,
		now:        deps.Clock,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// FindRelevantArticles returns up to limit articles that match at least two search terms with a
// normalized score of 30 or more, best first. Nothing matches while the assistant is disabled.
func (s *KnowledgeService) FindRelevantArticles(ctx context.Context, cfg config.AssistantConfig, title, description string, limit int) []KBArticleMatch {
	if !cfg.Enabled {
		return nil
	}
	if limit <= 0 {
		limit = defaultMatchLimit
	}
	terms := ExtractTerms(title + " " + description)
	if len(terms) < minMatchedTerms {
		return nil
	}

	candidates, err := s.articles.SearchPublished(ctx, terms, candidateQueryCap)
	if err != nil {
		s.logger.Error("search kb articles", zap.Error(err))
		return nil
	}

	var matches []KBArticleMatch
	for _, article := range candidates {
		score, matched := ScoreArticle(article, terms)
		if score < minArticleScore || len(matched) < minMatchedTerms {
			continue
		}
		matches = append(matches, KBArticleMatch{
			Article:      article,
			Score:        score,
			MatchedTerms: matched,
			Excerpt:      Excerpt(article.Content, matched),
			URL:          ArticleURL(cfg.KBBaseURL, article.Slug),
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// GetArticle returns a published article by slug with its public URL.
func (s *KnowledgeService) GetArticle(ctx context.Context, cfg config.AssistantConfig, slug string) (*KBArticleMatch, error) {
	article, err := s.articles.GetBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("kb article", map[string]any{"slug": slug})
		}
		return nil, apperrors.ToDomainError(err)
	}
	if !article.Published {
		return nil, apperrors.NewNotFound("kb article", map[string]any{"slug": slug})
	}
	return &KBArticleMatch{
		Article: *article,
		Excerpt: Excerpt(article.Content, nil),
		URL:     ArticleURL(cfg.KBBaseURL, article.Slug),
	}, nil
}

// SuggestArticles lists matching articles without composing a reply or touching any ticket.
func (s *KnowledgeService) SuggestArticles(ctx context.Context, cfg config.AssistantConfig, title, description string, limit int) KBResponseResult {
	if !cfg.Enabled {
		return KBResponseResult{Disabled: true}
	}
	matches := s.FindRelevantArticles(ctx, cfg, title, description, limit)
	if len(matches) == 0 {
		return KBResponseResult{}
	}
	top := matches[0]
	return KBResponseResult{HasRelevantArticle: true, TopMatch: &top, Suggestions: matches}
}

// GenerateKBResponse decides between an automatic answer and a list of suggestions. An
// automatic answer moves the ticket to WAITING_CUSTOMER. A disabled assistant changes nothing.
func (s *KnowledgeService) GenerateKBResponse(ctx context.Context, cfg config.AssistantConfig, req KBRequest) KBResponseResult {
	if !cfg.Enabled {
		return KBResponseResult{Disabled: true}
	}
	lang := lexicon.NormalizeLanguage(req.Language)
	matches := s.FindRelevantArticles(ctx, cfg, req.Title, req.Description, defaultMatchLimit)
	if len(matches) == 0 {
		return KBResponseResult{}
	}

	top := matches[0]
	result := KBResponseResult{
		HasRelevantArticle: true,
		TopMatch:           &top,
		Suggestions:        matches,
	}

	if top.Score >= cfg.KBThreshold {
		result.AutoResolved = true
		result.Message = s.composer.KBAutoResponse(lang, top.Article.Title, top.Excerpt, top.URL)
		if req.TicketID != "" {
			if err := s.markWaitingCustomer(ctx, req); err != nil {
				s.logger.Error("set ticket waiting for customer",
					zap.String("ticket_id", req.TicketID), zap.Error(err))
			}
		}
		return result
	}

	links := make([]composer.Link, len(matches))
	for i, m := range matches {
		links[i] = composer.Link{Title: m.Article.Title, URL: m.URL}
	}
	result.Message = s.composer.KBSuggestions(lang, links)
	return result
}

func (s *KnowledgeService) markWaitingCustomer(ctx context.Context, req KBRequest) error {
	ticket, err := s.tickets.GetByID(ctx, req.TicketID)
	if err != nil {
		return err
	}
	if ticket.Status != domain.TicketStatusOpen && ticket.Status != domain.TicketStatusInProgress {
		return nil
	}
	oldStatus := ticket.Status
	ticket.Status = domain.TicketStatusWaitingCustomer
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return err
	}
	if err := s.history.Create(ctx, &domain.TicketHistory{
		TicketID:      ticket.ID,
		ChangedByType: domain.AuthorTypeSystem,
		ChangedByID:   optionalID(req.ActorID),
		ChangeType:    domain.ChangeTypeStatus,
		OldValue:      map[string]any{"status": oldStatus},
		NewValue:      map[string]any{"status": ticket.Status, "method": methodKBAutoAnswer},
	}); err != nil {
		return err
	}
	publishEvent(ctx, s.dispatcher, s.now, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Actor:    systemActor(req.ActorID),
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: ticket.Status,
			Method:    methodKBAutoAnswer,
		},
	})
	return nil
}

// ExtractTerms builds the search terms of a ticket: lower-cased words of at least five runes,
// stop-words removed, de-duplicated, at most eight.
func ExtractTerms(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, text)

	seen := map[string]struct{}{}
	var terms []string
	for _, word := range strings.Fields(cleaned) {
		if len([]rune(word)) < minTermRunes {
			continue
		}
		if _, stop := lexicon.KBStopWords[word]; stop {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		terms = append(terms, word)
		if len(terms) == maxSearchTerms {
			break
		}
	}
	return terms
}

// ScoreArticle awards 30 points per term found in the title and 10 per term found in the body,
// normalized to 0-100 against the best possible total.
func ScoreArticle(article domain.KBArticle, terms []string) (int, []string) {
	if len(terms) == 0 {
		return 0, nil
	}
	title := strings.ToLower(article.Title)
	body := strings.ToLower(article.Content)

	raw := 0
	var matched []string
	for _, term := range terms {
		inTitle := strings.Contains(title, term)
		inBody := strings.Contains(body, term)
		if inTitle {
			raw += titleHitPoints
		}
		if inBody {
			raw += bodyHitPoints
		}
		if inTitle || inBody {
			matched = append(matched, term)
		}
	}
	best := float64(len(terms) * (titleHitPoints + bodyHitPoints))
	return int(math.Round(float64(raw) / best * 100)), matched
}

// Excerpt cuts about 200 runes of content around the earliest occurrence of any term, marking
// truncated sides with "...".
func Excerpt(content string, terms []string) string {
	runes := []rune(strings.TrimSpace(content))
	if len(runes) <= excerptRunes {
		return string(runes)
	}
	lowered := make([]rune, len(runes))
	for i, r := range runes {
		lowered[i] = unicode.ToLower(r)
	}

	pos := -1
	for _, term := range terms {
		if idx := runeIndex(lowered, []rune(term)); idx >= 0 && (pos < 0 || idx < pos) {
			pos = idx
		}
	}
	if pos < 0 {
		pos = 0
	}

	start := pos - excerptRunes/2
	if start < 0 {
		start = 0
	}
	end := start + excerptRunes
	if end > len(runes) {
		end = len(runes)
		start = end - excerptRunes
	}

	out := strings.TrimSpace(string(runes[start:end]))
	if start > 0 {
		out = "..." + out
	}
	if end < len(runes) {
		out += "..."
	}
	return out
}

// ArticleURL is the public link of an article.
func ArticleURL(baseURL, slug string) string {
	return strings.TrimRight(baseURL, "/") + "/kb/" + slug
}

func runeIndex(haystack, needle []rune) int {
	if len(needle) == 0 {
		return -1
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
