package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/triage-service/internal/composer"
	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/events"
	"github.com/spec-kit/triage-service/internal/repository"
)

var errStoreDown = errors.New("store down")

// memStore backs every fake repository so services observe each other's writes.
type memStore struct {
	mu          sync.Mutex
	now         func() time.Time
	seq         int
	tickets     map[string]*domain.Ticket
	messages    []domain.TicketMessage
	history     []domain.TicketHistory
	agents      []domain.Agent
	departments []domain.Department
	articles    []domain.KBArticle
	settings    map[string]string

	failTicketUpdate map[string]bool
	failList         bool
	failSettings     bool
}

func newMemStore(now func() time.Time) *memStore {
	return &memStore{
		now:              now,
		tickets:          map[string]*domain.Ticket{},
		settings:         map[string]string{},
		failTicketUpdate: map[string]bool{},
	}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memStore) addTicket(t domain.Ticket) *domain.Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == "" {
		t.ID = m.nextID("ticket")
	}
	cp := t
	m.tickets[t.ID] = &cp
	return &cp
}

func (m *memStore) ticket(id string) domain.Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.tickets[id]
}

func (m *memStore) messagesFor(ticketID string) []domain.TicketMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.TicketMessage
	for _, msg := range m.messages {
		if msg.TicketID == ticketID {
			out = append(out, msg)
		}
	}
	return out
}

func (m *memStore) historyFor(ticketID string, change domain.TicketChangeType) []domain.TicketHistory {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.TicketHistory
	for _, h := range m.history {
		if h.TicketID == ticketID && h.ChangeType == change {
			out = append(out, h)
		}
	}
	return out
}

func (m *memStore) activeTickets(agentID string, exclude *string) int {
	n := 0
	for _, t := range m.tickets {
		if exclude != nil && t.ID == *exclude {
			continue
		}
		if t.AssigneeID != nil && *t.AssigneeID == agentID && t.IsActive() {
			n++
		}
	}
	return n
}

type fakeTicketRepo struct{ m *memStore }

func (r fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	ticket.ID = r.m.nextID("ticket")
	ticket.CreatedAt = r.m.now()
	ticket.UpdatedAt = ticket.CreatedAt
	cp := *ticket
	r.m.tickets[ticket.ID] = &cp
	return nil
}

func (r fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failTicketUpdate[ticket.ID] {
		return errStoreDown
	}
	if _, ok := r.m.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = r.m.now()
	cp := *ticket
	r.m.tickets[ticket.ID] = &cp
	return nil
}

func (r fakeTicketRepo) CloseIfIdle(_ context.Context, id string, status domain.TicketStatus, idleSince, closedAt time.Time) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failTicketUpdate[id] {
		return false, errStoreDown
	}
	t, ok := r.m.tickets[id]
	if !ok || t.Status != status || t.UpdatedAt.After(idleSince) {
		return false, nil
	}
	t.Status = domain.TicketStatusClosed
	t.ClosedAt = &closedAt
	t.UpdatedAt = r.m.now()
	return true, nil
}

func (r fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	t, ok := r.m.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

func (r fakeTicketRepo) GetByNumber(_ context.Context, number string) (*domain.Ticket, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, t := range r.m.tickets {
		if t.Number == number {
			cp := *t
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r fakeTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []domain.Ticket
	for _, t := range r.m.tickets {
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, t.Status) {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (r fakeTicketRepo) ListByStatus(_ context.Context, status domain.TicketStatus) ([]domain.Ticket, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failList {
		return nil, errStoreDown
	}
	var out []domain.Ticket
	for _, t := range r.m.tickets {
		if t.Status == status {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}

func containsStatus(list []domain.TicketStatus, s domain.TicketStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

type fakeMessageRepo struct{ m *memStore }

func (r fakeMessageRepo) Create(_ context.Context, msg *domain.TicketMessage) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	msg.ID = r.m.nextID("msg")
	msg.CreatedAt = r.m.now()
	r.m.messages = append(r.m.messages, *msg)
	return nil
}

func (r fakeMessageRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketMessage, error) {
	return r.m.messagesFor(ticketID), nil
}

func (r fakeMessageRepo) HasAuthorMessageSince(_ context.Context, ticketID string, authorType domain.MessageAuthorType, authorID string, since time.Time) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, msg := range r.m.messages {
		if msg.TicketID != ticketID || msg.AuthorType != authorType {
			continue
		}
		if msg.AuthorID == nil || *msg.AuthorID != authorID {
			continue
		}
		if msg.CreatedAt.After(since) {
			return true, nil
		}
	}
	return false, nil
}

type fakeHistoryRepo struct{ m *memStore }

func (r fakeHistoryRepo) Create(_ context.Context, h *domain.TicketHistory) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	h.ID = r.m.nextID("hist")
	h.CreatedAt = r.m.now()
	r.m.history = append(r.m.history, *h)
	return nil
}

func (r fakeHistoryRepo) ListByTicket(_ context.Context, ticketID string, filter repository.HistoryFilter) ([]domain.TicketHistory, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []domain.TicketHistory
	for _, h := range r.m.history {
		if h.TicketID == ticketID && filter.Matches(h) {
			out = append(out, h)
		}
	}
	return out, nil
}

type fakeAgentRepo struct{ m *memStore }

func (r fakeAgentRepo) GetByID(_ context.Context, id string) (*domain.Agent, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, a := range r.m.agents {
		if a.ID == id {
			cp := a
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r fakeAgentRepo) GetByEmail(_ context.Context, email string) (*domain.Agent, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, a := range r.m.agents {
		if strings.EqualFold(a.Email, email) {
			cp := a
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r fakeAgentRepo) GetAssistant(_ context.Context) (*domain.Agent, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, a := range r.m.agents {
		if a.IsAssistant && a.Active {
			cp := a
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r fakeAgentRepo) ListWithWorkload(_ context.Context, filter repository.AgentFilter) ([]repository.AgentWorkload, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []repository.AgentWorkload
	for _, a := range r.m.agents {
		if a.IsAssistant {
			continue
		}
		if filter.Active != nil && a.Active != *filter.Active {
			continue
		}
		if filter.DepartmentID != nil && (a.DepartmentID == nil || *a.DepartmentID != *filter.DepartmentID) {
			continue
		}
		if len(filter.Roles) > 0 && !containsRole(filter.Roles, a.Role) {
			continue
		}
		out = append(out, repository.AgentWorkload{Agent: a, ActiveTickets: r.m.activeTickets(a.ID, filter.ExcludeTicketID)})
	}
	return out, nil
}

func containsRole(list []domain.AgentRole, role domain.AgentRole) bool {
	for _, v := range list {
		if v == role {
			return true
		}
	}
	return false
}

type fakeDepartmentRepo struct{ m *memStore }

func (r fakeDepartmentRepo) GetByName(_ context.Context, name string) (*domain.Department, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, d := range r.m.departments {
		if d.IsActive && strings.EqualFold(d.Name, name) {
			cp := d
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type fakeArticleRepo struct{ m *memStore }

func (r fakeArticleRepo) SearchPublished(_ context.Context, terms []string, limit int) ([]domain.KBArticle, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []domain.KBArticle
	for _, a := range r.m.articles {
		if !a.Published {
			continue
		}
		text := strings.ToLower(a.Title + " " + a.Content)
		for _, term := range terms {
			if strings.Contains(text, term) {
				out = append(out, a)
				break
			}
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r fakeArticleRepo) GetBySlug(_ context.Context, slug string) (*domain.KBArticle, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, a := range r.m.articles {
		if a.Slug == slug {
			cp := a
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type fakeSettingsRepo struct{ m *memStore }

func (r fakeSettingsRepo) Load(_ context.Context) (map[string]string, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failSettings {
		return nil, errStoreDown
	}
	out := make(map[string]string, len(r.m.settings))
	for k, v := range r.m.settings {
		out[k] = v
	}
	return out, nil
}

func (r fakeSettingsRepo) Save(_ context.Context, fields map[string]string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failSettings {
		return errStoreDown
	}
	for k, v := range fields {
		r.m.settings[k] = v
	}
	return nil
}

// eventRecorder captures every published event in order.
type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (e *eventRecorder) Publish(_ context.Context, event events.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return nil
}

func (e *eventRecorder) Subscribe(events.EventType, events.EventHandler) {}

func (e *eventRecorder) ofType(t events.EventType) []events.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []events.Event
	for _, ev := range e.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// firstPick always chooses the first phrase variant.
type firstPick struct{}

func (firstPick) Intn(int) int { return 0 }

func testComposer() *composer.Composer {
	return composer.New(firstPick{}, "Asistente Virtual")
}

// harness wires every service over one memStore with a fixed clock.
type harness struct {
	store      *memStore
	recorder   *eventRecorder
	clock      time.Time
	assignment *AssignmentService
	knowledge  *KnowledgeService
	followup   *FollowupService
	assistant  *AssistantService
	tickets    *TicketService
}

func newHarness(now time.Time) *harness {
	h := &harness{recorder: &eventRecorder{}, clock: now}
	h.store = newMemStore(func() time.Time { return h.clock })
	clock := func() time.Time { return h.clock }
	comp := testComposer()

	ticketRepo := fakeTicketRepo{h.store}
	messageRepo := fakeMessageRepo{h.store}
	historyRepo := fakeHistoryRepo{h.store}
	agentRepo := fakeAgentRepo{h.store}

	h.assignment = NewAssignmentService(AssignmentDependencies{
		TicketRepo:     ticketRepo,
		AgentRepo:      agentRepo,
		DepartmentRepo: fakeDepartmentRepo{h.store},
		HistoryRepo:    historyRepo,
		Dispatcher:     h.recorder,
		Composer:       comp,
		Clock:          clock,
	})
	h.knowledge = NewKnowledgeService(KnowledgeDependencies{
		ArticleRepo: fakeArticleRepo{h.store},
		TicketRepo:  ticketRepo,
		HistoryRepo: historyRepo,
		Dispatcher:  h.recorder,
		Composer:    comp,
		Clock:       clock,
	})
	h.followup = NewFollowupService(FollowupDependencies{
		TicketRepo:  ticketRepo,
		MessageRepo: messageRepo,
		HistoryRepo: historyRepo,
		AgentRepo:   agentRepo,
		Dispatcher:  h.recorder,
		Composer:    comp,
		Clock:       clock,
	})
	h.assistant = NewAssistantService(AssistantDependencies{
		TicketRepo:        ticketRepo,
		MessageRepo:       messageRepo,
		HistoryRepo:       historyRepo,
		AgentRepo:         agentRepo,
		AssignmentService: h.assignment,
		KnowledgeService:  h.knowledge,
		Dispatcher:        h.recorder,
		Composer:          comp,
		Clock:             clock,
		Sleeper:           func(context.Context, time.Duration) {},
		Random:            firstPick{},
	})
	h.tickets = NewTicketService(TicketDependencies{
		TicketRepo:  ticketRepo,
		MessageRepo: messageRepo,
		HistoryRepo: historyRepo,
		Dispatcher:  h.recorder,
		Clock:       clock,
	})
	return h
}

const assistantID = "agent-assistant"

func (h *harness) withAssistant() *harness {
	h.store.agents = append(h.store.agents, domain.Agent{
		ID:          assistantID,
		Name:        "Asistente Virtual",
		Email:       "assistant@example.com",
		Role:        domain.RoleVirtualAssistant,
		IsAssistant: true,
		Active:      true,
	})
	return h
}

func (h *harness) addDepartment(id, name string) {
	h.store.departments = append(h.store.departments, domain.Department{ID: id, Name: name, IsActive: true})
}

func (h *harness) addAgent(a domain.Agent) {
	a.Active = true
	h.store.agents = append(h.store.agents, a)
}

func strPtr(s string) *string { return &s }
