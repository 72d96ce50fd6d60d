package main

import (
	"context"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/triage-service/internal/api/http"
	"github.com/spec-kit/triage-service/internal/api/http/handlers"
	"github.com/spec-kit/triage-service/internal/auth"
	"github.com/spec-kit/triage-service/internal/composer"
	"github.com/spec-kit/triage-service/internal/config"
	"github.com/spec-kit/triage-service/internal/events"
	"github.com/spec-kit/triage-service/internal/messaging"
	"github.com/spec-kit/triage-service/internal/observability"
	"github.com/spec-kit/triage-service/internal/persistence"
	"github.com/spec-kit/triage-service/internal/repository"
	"github.com/spec-kit/triage-service/internal/service"
	"github.com/spec-kit/triage-service/internal/worker"
)

// triageDrainTimeout bounds how long shutdown waits for in-flight triage pipelines.
const triageDrainTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Postgres.DSN == "" {
		logger.Fatal("POSTGRES_DSN is required")
	}
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	mailer, err := messaging.NewMailer(cfg.Broker, logger)
	if err != nil {
		logger.Fatal("failed to init mailer", zap.Error(err))
	}
	defer mailer.Close() //nolint:errcheck

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	messageRepo := repository.NewTicketMessageRepository(pool)
	historyRepo := repository.NewTicketHistoryRepository(pool)
	agentRepo := repository.NewAgentRepository(pool)
	departmentRepo := repository.NewDepartmentRepository(pool)
	articleRepo := repository.NewKBArticleRepository(pool)
	settingsRepo := repository.NewSettingsRepository(redis.Client, redis.SettingsKey)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	replies := composer.New(rand.New(rand.NewSource(time.Now().UnixNano())), cfg.Assistant.Name)

	settingsService := service.NewSettingsService(settingsRepo, cfg.Assistant, logger)
	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{AgentRepo: agentRepo})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  ticketRepo,
		MessageRepo: messageRepo,
		HistoryRepo: historyRepo,
		Dispatcher:  dispatcher,
	})
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		TicketRepo:     ticketRepo,
		AgentRepo:      agentRepo,
		DepartmentRepo: departmentRepo,
		HistoryRepo:    historyRepo,
		Dispatcher:     dispatcher,
		Composer:       replies,
		Logger:         logger,
	})
	knowledgeService := service.NewKnowledgeService(service.KnowledgeDependencies{
		ArticleRepo: articleRepo,
		TicketRepo:  ticketRepo,
		HistoryRepo: historyRepo,
		Dispatcher:  dispatcher,
		Composer:    replies,
		Logger:      logger,
	})
	assistantService := service.NewAssistantService(service.AssistantDependencies{
		TicketRepo:        ticketRepo,
		MessageRepo:       messageRepo,
		HistoryRepo:       historyRepo,
		AgentRepo:         agentRepo,
		AssignmentService: assignmentService,
		KnowledgeService:  knowledgeService,
		Dispatcher:        dispatcher,
		Composer:          replies,
		Logger:            logger,
	})
	followupService := service.NewFollowupService(service.FollowupDependencies{
		TicketRepo:  ticketRepo,
		MessageRepo: messageRepo,
		HistoryRepo: historyRepo,
		AgentRepo:   agentRepo,
		Dispatcher:  dispatcher,
		Composer:    replies,
		Logger:      logger,
	})
	notificationService := service.NewNotificationService(service.NotificationDependencies{
		Dispatcher: dispatcher,
		Mailer:     mailer,
		TicketRepo: ticketRepo,
		AgentRepo:  agentRepo,
		Composer:   replies,
		Logger:     logger,
		Config:     cfg.Notification,
	})

	worker.StartNotificationWorker(notificationService, logger)

	triage := worker.NewTriageWorker(ctx, assistantService, settingsService, cfg.Assistant.MaxConcurrency, metrics, logger)
	triage.Subscribe(dispatcher)

	followups := worker.NewFollowupScheduler(followupService, settingsService, metrics, logger)
	go followups.Run(ctx)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), agentRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService, assistantService, settingsService),
		Assistant:      handlers.NewAssistantHandler(assistantService, knowledgeService, settingsService, followups, metrics),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}

	drainCtx, drainCancel := context.WithTimeout(context.Background(), triageDrainTimeout)
	if err := triage.Drain(drainCtx); err != nil {
		logger.Warn("triage pipelines still running at shutdown; cancelling", zap.Error(err))
	}
	drainCancel()
	cancel()
	triage.Wait()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
