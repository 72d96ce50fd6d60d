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

// scoreGap is the skill-score difference above which score alone decides the ranking.
const scoreGap = 20

const methodAutoAssignment = "auto-assignment"

// AssignmentResult describes the outcome of automatic routing.
type AssignmentResult struct {
	Success   bool   `json:"success"`
	Disabled  bool   `json:"disabled,omitempty"`
	AgentID   string `json:"agent_id,omitempty"`
	AgentName string `json:"agent_name,omitempty"`
	// Reason is a customer-facing sentence in the ticket language.
	Reason string `json:"reason"`
}

// AssignmentRequest identifies the ticket to route. ActorID is the assistant account recorded
// as the author of the change.
type AssignmentRequest struct {
	TicketID    string
	ActorID     string
	Category    domain.TicketCategory
	Language    string
	Title       string
	Description string
}

// AssignmentService routes tickets to agents.
type AssignmentService struct {
	tickets     repository.TicketRepository
	agents      repository.AgentRepository
	departments repository.DepartmentRepository
	historyRepo repository.TicketHistoryRepository
	dispatcher  events.Dispatcher
	composer    *composer.Composer
	logger      *zap.Logger
	now         Clock
}

// AssignmentDependencies bundles repositories.
type AssignmentDependencies struct {
	TicketRepo     repository.TicketRepository
	AgentRepo      repository.AgentRepository
	DepartmentRepo repository.DepartmentRepository
	HistoryRepo    repository.TicketHistoryRepository
	Dispatcher     events.Dispatcher
	Composer       *composer.Composer
	Logger         *zap.Logger
	Clock          Clock
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	s := &AssignmentService{
		tickets:     deps.TicketRepo,
		agents:      deps.AgentRepo,
		departments: deps.DepartmentRepo,
		historyRepo: deps.HistoryRepo,
		dispatcher:  deps.Dispatcher,
		composer:    deps.Composer,
		logger:      deps.Logger,
		now:         deps.Clock,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

type scoredCandidate struct {
	agent repository.AgentWorkload
	score int
}

// AutoAssign picks the best agent for the ticket and records the assignment. It never returns
// an error; failures are folded into an unsuccessful result. Nothing is written while the
// assistant is disabled.
func (s *AssignmentService) AutoAssign(ctx context.Context, cfg config.AssistantConfig, req AssignmentRequest) AssignmentResult {
	if !cfg.Enabled {
		return AssignmentResult{Disabled: true, Reason: "assistant disabled"}
	}
	lang := lexicon.NormalizeLanguage(req.Language)
	log := s.logger.With(zap.String("ticket_id", req.TicketID), zap.String("category", string(req.Category)))

	deptName, routed := lexicon.DepartmentFor(req.Category)
	if !routed {
		return s.assignServiceOfficer(ctx, req, lang, "")
	}

	dept, err := s.departments.GetByName(ctx, deptName)
	if err != nil {
		if apperrors.IsNotFound(err) {
			log.Warn("department not found; falling back to service officers", zap.String("department", deptName))
			return s.assignServiceOfficer(ctx, req, lang, deptName)
		}
		log.Error("load department", zap.Error(err))
		return AssignmentResult{Reason: s.composer.NoDepartmentAgent(lang, deptName)}
	}

	candidates, err := s.agents.ListWithWorkload(ctx, repository.AgentFilter{
		Roles:           domain.DepartmentRoles,
		DepartmentID:    &dept.ID,
		Active:          ptrBool(true),
		ExcludeTicketID: &req.TicketID,
	})
	if err != nil {
		log.Error("list department agents", zap.Error(err))
		return AssignmentResult{Reason: s.composer.NoDepartmentAgent(lang, dept.Name)}
	}
	if len(candidates) == 0 {
		log.Info("department has no eligible agents; falling back to service officers", zap.String("department", dept.Name))
		return s.assignServiceOfficer(ctx, req, lang, dept.Name)
	}

	keywords := SkillKeywords(req.Title + " " + req.Description)
	scored := make([]scoredCandidate, len(candidates))
	for i, c := range candidates {
		scored[i] = scoredCandidate{agent: c, score: SkillScore(keywords, c.Agent.Skills)}
	}
	rankCandidates(scored)
	winner := scored[0].agent.Agent

	if err := s.applyAssignment(ctx, req, &winner, &dept.ID); err != nil {
		log.Error("apply assignment", zap.String("agent_id", winner.ID), zap.Error(err))
		return AssignmentResult{Reason: s.composer.NoDepartmentAgent(lang, dept.Name)}
	}

	log.Info("ticket auto-assigned",
		zap.String("agent_id", winner.ID),
		zap.String("department", dept.Name),
		zap.Int("skill_score", scored[0].score),
	)
	return AssignmentResult{
		Success:   true,
		AgentID:   winner.ID,
		AgentName: winner.Name,
		Reason:    s.composer.AssignmentNotice(lang, winner.Name, lexicon.CategoryLabel(req.Category, lang), dept.Name),
	}
}

// assignServiceOfficer routes to the least-loaded active service officer. deptName is set
// when the department route was tried first and came up empty.
func (s *AssignmentService) assignServiceOfficer(ctx context.Context, req AssignmentRequest, lang, deptName string) AssignmentResult {
	log := s.logger.With(zap.String("ticket_id", req.TicketID))
	noAgent := func() AssignmentResult {
		if deptName != "" {
			return AssignmentResult{Reason: s.composer.NoDepartmentAgent(lang, deptName)}
		}
		return AssignmentResult{Reason: s.composer.NoServiceOfficer(lang)}
	}

	officers, err := s.agents.ListWithWorkload(ctx, repository.AgentFilter{
		Roles:           []domain.AgentRole{domain.RoleServiceOfficer},
		Active:          ptrBool(true),
		ExcludeTicketID: &req.TicketID,
	})
	if err != nil {
		log.Error("list service officers", zap.Error(err))
		return noAgent()
	}
	if len(officers) == 0 {
		log.Warn("no active service officers")
		return noAgent()
	}

	sort.SliceStable(officers, func(i, j int) bool {
		return officers[i].ActiveTickets < officers[j].ActiveTickets
	})
	winner := officers[0].Agent

	if err := s.applyAssignment(ctx, req, &winner, nil); err != nil {
		log.Error("apply assignment", zap.String("agent_id", winner.ID), zap.Error(err))
		return noAgent()
	}
	log.Info("ticket assigned to service officer", zap.String("agent_id", winner.ID))
	return AssignmentResult{
		Success:   true,
		AgentID:   winner.ID,
		AgentName: winner.Name,
		Reason:    s.composer.ServiceOfficerNotice(lang, winner.Name),
	}
}

// applyAssignment persists the assignee. Re-assigning the current assignee is a no-op: no write,
// no audit entry and no event.
func (s *AssignmentService) applyAssignment(ctx context.Context, req AssignmentRequest, agent *domain.Agent, departmentID *string) error {
	ticket, err := s.tickets.GetByID(ctx, req.TicketID)
	if err != nil {
		return err
	}
	if ticket.AssigneeID != nil && *ticket.AssigneeID == agent.ID {
		return nil
	}

	oldAssignee := ticket.AssigneeID
	ticket.AssigneeID = &agent.ID
	if departmentID != nil {
		ticket.DepartmentID = departmentID
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return err
	}
	if err := s.recordAssigneeChange(ctx, req, oldAssignee, agent.ID); err != nil {
		return err
	}
	publishEvent(ctx, s.dispatcher, s.now, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		Actor:    systemActor(req.ActorID),
		Payload: events.TicketAssignedPayload{
			AssigneeID:   agent.ID,
			AssigneeName: agent.Name,
			DepartmentID: ticket.DepartmentID,
			Category:     req.Category,
			Method:       methodAutoAssignment,
		},
	})
	return nil
}

func (s *AssignmentService) recordAssigneeChange(ctx context.Context, req AssignmentRequest, oldAssignee *string, newAssignee string) error {
	return s.historyRepo.Create(ctx, &domain.TicketHistory{
		TicketID:      req.TicketID,
		ChangedByType: domain.AuthorTypeSystem,
		ChangedByID:   optionalID(req.ActorID),
		ChangeType:    domain.ChangeTypeAssignee,
		OldValue: map[string]any{
			"assignedTo": oldAssignee,
		},
		NewValue: map[string]any{
			"assignedTo": newAssignee,
			"method":     methodAutoAssignment,
			"category":   req.Category,
		},
	})
}

// rankCandidates orders candidates best first. Candidates within scoreGap of the top score are
// ranked by role seniority, then by workload; the rest follow by score.
func rankCandidates(cands []scoredCandidate) {
	if len(cands) == 0 {
		return
	}
	top := cands[0].score
	for _, c := range cands[1:] {
		if c.score > top {
			top = c.score
		}
	}
	inBand := func(c scoredCandidate) bool { return top-c.score <= scoreGap }

	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		ab, bb := inBand(a), inBand(b)
		if ab != bb {
			return ab
		}
		if !ab && a.score != b.score {
			return a.score > b.score
		}
		if ra, rb := domain.RoleIndex(a.agent.Agent.Role), domain.RoleIndex(b.agent.Agent.Role); ra != rb {
			return ra < rb
		}
		if a.agent.ActiveTickets != b.agent.ActiveTickets {
			return a.agent.ActiveTickets < b.agent.ActiveTickets
		}
		return a.score > b.score
	})
}

// SkillKeywords extracts matching keywords from ticket text: lower-cased, punctuation removed,
// at least four runes, noise words dropped, first occurrence order.
func SkillKeywords(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, text)

	seen := map[string]struct{}{}
	var out []string
	for _, word := range strings.Fields(cleaned) {
		if len([]rune(word)) < 4 {
			continue
		}
		if _, noise := lexicon.SkillNoiseWords[word]; noise {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		out = append(out, word)
	}
	return out
}

// SkillScore rates how well skills cover keywords on a 0-100 scale: the percentage of matched
// keywords plus 10 per matching skill.
func SkillScore(keywords, skills []string) int {
	if len(keywords) == 0 || len(skills) == 0 {
		return 0
	}
	normalized := make([]string, 0, len(skills))
	for _, s := range skills {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			normalized = append(normalized, s)
		}
	}
	if len(normalized) == 0 {
		return 0
	}

	matchedKeywords := 0
	matchingSkills := map[string]struct{}{}
	for _, kw := range keywords {
		hit := false
		for _, skill := range normalized {
			if strings.Contains(skill, kw) || strings.Contains(kw, skill) {
				hit = true
				matchingSkills[skill] = struct{}{}
			}
		}
		if hit {
			matchedKeywords++
		}
	}

	score := int(math.Round(float64(matchedKeywords)/float64(len(keywords))*100)) + 10*len(matchingSkills)
	if score > 100 {
		score = 100
	}
	return score
}
