package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/api/http/handlers"
	"github.com/spec-kit/triage-service/internal/auth"
	"github.com/spec-kit/triage-service/internal/config"
	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/observability"
	"github.com/spec-kit/triage-service/internal/repository"
	"github.com/spec-kit/triage-service/internal/service"
	"github.com/spec-kit/triage-service/internal/worker"
)

type stubAgents struct {
	agents map[string]*domain.Agent
}

func (s stubAgents) GetByID(_ context.Context, id string) (*domain.Agent, error) {
	if a, ok := s.agents[id]; ok {
		return a, nil
	}
	return nil, pgx.ErrNoRows
}

func (s stubAgents) GetByEmail(_ context.Context, email string) (*domain.Agent, error) {
	for _, a := range s.agents {
		if a.Email == email {
			return a, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s stubAgents) GetAssistant(context.Context) (*domain.Agent, error) {
	return nil, pgx.ErrNoRows
}

func (s stubAgents) ListWithWorkload(context.Context, repository.AgentFilter) ([]repository.AgentWorkload, error) {
	return nil, nil
}

type stubArticles struct {
	articles []domain.KBArticle
}

func (s stubArticles) SearchPublished(_ context.Context, terms []string, limit int) ([]domain.KBArticle, error) {
	var out []domain.KBArticle
	for _, a := range s.articles {
		text := strings.ToLower(a.Title + " " + a.Content)
		for _, term := range terms {
			if a.Published && strings.Contains(text, term) {
				out = append(out, a)
				break
			}
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s stubArticles) GetBySlug(_ context.Context, slug string) (*domain.KBArticle, error) {
	for _, a := range s.articles {
		if a.Slug == slug {
			cp := a
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type stubSettings struct {
	mu     sync.Mutex
	fields map[string]string
}

func (s *stubSettings) Load(context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.fields))
	for k, v := range s.fields {
		out[k] = v
	}
	return out, nil
}

func (s *stubSettings) Save(_ context.Context, fields map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range fields {
		s.fields[k] = v
	}
	return nil
}

type stubSweeper struct{ calls int }

func (s *stubSweeper) ProcessAutoFollowup(context.Context, config.AssistantConfig) service.FollowupResult {
	s.calls++
	return service.FollowupResult{Reminders: 2, Closed: 1}
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type testServer struct {
	app     *fiber.App
	tokens  *auth.TokenManager
	sweeper *stubSweeper
	metrics *observability.Metrics
}

const testPassword = "s3cret-pass"

func newTestServer(t *testing.T, redisErr error) *testServer {
	t.Helper()

	hash, err := auth.HashPassword(testPassword, 4)
	require.NoError(t, err)
	agents := stubAgents{agents: map[string]*domain.Agent{
		"lead-1": {ID: "lead-1", Name: "Laura", Email: "laura@example.com", PasswordHash: hash, Role: domain.RoleTeamLead, Active: true},
		"tech-1": {ID: "tech-1", Name: "Tomás", Email: "tomas@example.com", PasswordHash: hash, Role: domain.RoleTechnician, Active: true},
		"bot":    {ID: "bot", Name: "Asistente", Email: "bot@example.com", PasswordHash: hash, Role: domain.RoleVirtualAssistant, IsAssistant: true, Active: true},
	}}

	metrics := observability.NewMetrics()
	authService := service.NewAuthService(config.AuthConfig{JWTSecret: "test", AccessTokenTTLMinutes: 5}, service.AuthDependencies{AgentRepo: agents})
	settings := service.NewSettingsService(&stubSettings{fields: map[string]string{}}, config.DefaultAssistantConfig(), zap.NewNop())
	assistant := service.NewAssistantService(service.AssistantDependencies{})
	knowledge := service.NewKnowledgeService(service.KnowledgeDependencies{
		ArticleRepo: stubArticles{articles: []domain.KBArticle{
			{ID: "kb-1", Slug: "reset-vpn", Title: "Reset the VPN client", Content: "Restart the client and reconnect the tunnel.", Published: true},
			{ID: "kb-2", Slug: "draft-vpn", Title: "VPN draft", Content: "Unpublished notes.", Published: false},
		}},
	})
	sweeper := &stubSweeper{}
	followups := worker.NewFollowupScheduler(sweeper, settings, metrics, zap.NewNop())

	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), metrics, 0)
	RegisterRoutes(app, RouteConfig{
		Health: handlers.NewHealthHandler("triage-service", "test", map[string]handlers.Pinger{
			"postgres": stubPinger{},
			"redis":    stubPinger{err: redisErr},
		}),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(service.NewTicketService(service.TicketDependencies{}), assistant, settings),
		Assistant:      handlers.NewAssistantHandler(assistant, knowledge, settings, followups, metrics),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), agents),
	})
	return &testServer{app: app, tokens: authService.TokenManager(), sweeper: sweeper, metrics: metrics}
}

func (s *testServer) token(t *testing.T, agentID string, role domain.AgentRole) string {
	t.Helper()
	tok, _, err := s.tokens.GenerateToken(agentID, domain.SubjectTypeStaff, &role)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, path, token, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var payload map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &payload), string(raw))
	}
	return resp.StatusCode, payload
}

func errorCode(payload map[string]any) string {
	errObj, _ := payload["error"].(map[string]any)
	code, _ := errObj["code"].(string)
	return code
}

func TestHealthRoutes(t *testing.T) {
	srv := newTestServer(t, nil)
	status, body := srv.do(t, http.MethodGet, "/health/live", "", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alive", body["status"])

	status, body = srv.do(t, http.MethodGet, "/health/ready", "", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ready", body["status"])

	down := newTestServer(t, errors.New("connection refused"))
	status, body = down.do(t, http.MethodGet, "/health/ready", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "DEPENDENCY_UNAVAILABLE", errorCode(body))
}

func TestStaffLogin(t *testing.T) {
	srv := newTestServer(t, nil)

	status, body := srv.do(t, http.MethodPost, "/auth/staff/login", "", `{"email":"laura@example.com","password":"`+testPassword+`"}`)
	require.Equal(t, http.StatusOK, status)
	data := body["data"].(map[string]any)
	assert.Equal(t, "lead-1", data["agent"].(map[string]any)["id"])
	assert.NotEmpty(t, data["auth"].(map[string]any)["token"])

	status, body = srv.do(t, http.MethodPost, "/auth/staff/login", "", `{"email":"laura@example.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))

	status, _ = srv.do(t, http.MethodPost, "/auth/staff/login", "", `{"email":"bot@example.com","password":"`+testPassword+`"}`)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = srv.do(t, http.MethodPost, "/auth/staff/login", "", `{"email":""}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t, nil)

	status, body := srv.do(t, http.MethodGet, "/api/tickets", "", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))

	status, _ = srv.do(t, http.MethodGet, "/api/metrics", "not-a-token", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	assistantToken := srv.token(t, "bot", domain.RoleVirtualAssistant)
	status, _ = srv.do(t, http.MethodGet, "/api/metrics", assistantToken, "")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAnalyzeEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)
	tok := srv.token(t, "tech-1", domain.RoleTechnician)

	status, body := srv.do(t, http.MethodPost, "/api/assistant/analyze", tok, `{"title":"Urgent: server down","description":"The server is not working, this is unacceptable"}`)
	require.Equal(t, http.StatusOK, status)
	data := body["data"].(map[string]any)
	assert.Equal(t, "en", data["language"])
	assert.Equal(t, "NEGATIVE", data["sentiment"])

	status, body = srv.do(t, http.MethodPost, "/api/assistant/analyze", tok, `{}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))
}

func TestSettingsEndpoints(t *testing.T) {
	srv := newTestServer(t, nil)
	lead := srv.token(t, "lead-1", domain.RoleTeamLead)
	tech := srv.token(t, "tech-1", domain.RoleTechnician)

	status, body := srv.do(t, http.MethodGet, "/api/assistant/settings", lead, "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 80, body["data"].(map[string]any)["kb_threshold"])

	status, _ = srv.do(t, http.MethodGet, "/api/assistant/settings", tech, "")
	assert.Equal(t, http.StatusForbidden, status)

	status, body = srv.do(t, http.MethodPut, "/api/assistant/settings", tech, `{"kb_threshold":70}`)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", errorCode(body))

	status, body = srv.do(t, http.MethodPut, "/api/assistant/settings", lead, `{"kb_threshold":150}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))

	status, body = srv.do(t, http.MethodPut, "/api/assistant/settings", lead, `{"kb_threshold":70}`)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 70, body["data"].(map[string]any)["kb_threshold"])

	_, body = srv.do(t, http.MethodGet, "/api/assistant/settings", lead, "")
	assert.EqualValues(t, 70, body["data"].(map[string]any)["kb_threshold"])
}

func TestKBEndpoints(t *testing.T) {
	srv := newTestServer(t, nil)
	tech := srv.token(t, "tech-1", domain.RoleTechnician)
	lead := srv.token(t, "lead-1", domain.RoleTeamLead)

	status, body := srv.do(t, http.MethodGet, "/api/assistant/kb/articles/reset-vpn", tech, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "http://localhost:3000/kb/reset-vpn", body["data"].(map[string]any)["url"])

	status, body = srv.do(t, http.MethodGet, "/api/assistant/kb/articles/draft-vpn", tech, "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))

	search := `{"title":"Reset client","description":"tunnel keeps dropping","limit":3}`
	status, body = srv.do(t, http.MethodPost, "/api/assistant/kb/suggestions", tech, search)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["data"].(map[string]any)["has_relevant_article"])

	status, _ = srv.do(t, http.MethodPut, "/api/assistant/settings", lead, `{"enabled":false}`)
	require.Equal(t, http.StatusOK, status)

	status, body = srv.do(t, http.MethodPost, "/api/assistant/kb/suggestions", tech, search)
	require.Equal(t, http.StatusOK, status)
	data := body["data"].(map[string]any)
	assert.Equal(t, true, data["disabled"])
	assert.Equal(t, false, data["has_relevant_article"])
	assert.Nil(t, data["suggestions"])
}

func TestRunFollowupsEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)

	status, _ := srv.do(t, http.MethodPost, "/api/assistant/followups/run", srv.token(t, "tech-1", domain.RoleTechnician), "")
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, 0, srv.sweeper.calls)

	status, body := srv.do(t, http.MethodPost, "/api/assistant/followups/run", srv.token(t, "lead-1", domain.RoleTeamLead), "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, srv.sweeper.calls)
	assert.EqualValues(t, 2, body["data"].(map[string]any)["reminders"])
	assert.Equal(t, int64(1), srv.metrics.Snapshot().FollowupActions["closed"])
}

func TestErrorEnvelope(t *testing.T) {
	srv := newTestServer(t, nil)
	tok := srv.token(t, "tech-1", domain.RoleTechnician)

	status, body := srv.do(t, http.MethodPatch, "/api/tickets/abc/status", tok, `{}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))

	status, body = srv.do(t, http.MethodGet, "/no/such/route", "", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))

	snap := srv.metrics.Snapshot()
	assert.NotEmpty(t, snap.Errors)
}
