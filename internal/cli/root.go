// Package cli provides the triagectl operator command line.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/composer"
	"github.com/spec-kit/triage-service/internal/config"
	"github.com/spec-kit/triage-service/internal/events"
	"github.com/spec-kit/triage-service/internal/observability"
	"github.com/spec-kit/triage-service/internal/persistence"
	"github.com/spec-kit/triage-service/internal/repository"
	"github.com/spec-kit/triage-service/internal/service"
)

// Version is set at build time.
var Version = "dev"

var verbose bool

// runtime holds lazily opened connections shared by subcommands.
type runtime struct {
	cfg    *config.Config
	logger *zap.Logger
	pg     *persistence.Postgres
	redis  *persistence.Redis
}

var rt runtime

// NewRootCommand builds the triagectl command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "triagectl",
		Short: "Operate the ticket triage assistant",
		Long: `triagectl inspects and drives the ticket triage assistant.

Offline commands (analyze, agents hash-password) need no infrastructure. The others read the same
environment as the API server (POSTGRES_DSN, REDIS_ADDR, ASSISTANT_*).`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			rt.close()
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	root.AddCommand(newAnalyzeCmd())
	root.AddCommand(newKBCmd())
	root.AddCommand(newFollowupsCmd())
	root.AddCommand(newSettingsCmd())
	root.AddCommand(newAgentsCmd())
	return root
}

// Execute runs the command tree.
func Execute() error {
	return NewRootCommand().Execute()
}

func (r *runtime) load() (*config.Config, *zap.Logger, error) {
	if r.cfg != nil {
		return r.cfg, r.logger, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger := zap.NewNop()
	if verbose {
		logger, err = observability.NewLogger(config.LoggerConfig{Level: "debug", Encoding: "console"})
		if err != nil {
			return nil, nil, fmt.Errorf("init logger: %w", err)
		}
	}
	r.cfg, r.logger = cfg, logger
	return cfg, logger, nil
}

func (r *runtime) settings(ctx context.Context) (*service.SettingsService, error) {
	cfg, logger, err := r.load()
	if err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if r.redis == nil {
		r.redis = persistence.NewRedis(ctx, cfg.Redis, logger)
	}
	repo := repository.NewSettingsRepository(r.redis.Client, r.redis.SettingsKey)
	return service.NewSettingsService(repo, cfg.Assistant, logger), nil
}

func (r *runtime) postgres(ctx context.Context) (*persistence.Postgres, error) {
	cfg, logger, err := r.load()
	if err != nil {
		return nil, err
	}
	if r.pg != nil {
		return r.pg, nil
	}
	if cfg.Postgres.DSN == "" {
		return nil, fmt.Errorf("POSTGRES_DSN is required")
	}
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	r.pg = pg
	return pg, nil
}

// services wires the repositories the database-backed subcommands need. Events go to a
// dispatcher with no subscribers so no emails leave the CLI.
func (r *runtime) services(ctx context.Context, signature string) (*service.KnowledgeService, *service.FollowupService, error) {
	pg, err := r.postgres(ctx)
	if err != nil {
		return nil, nil, err
	}
	_, logger, _ := r.load()
	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	historyRepo := repository.NewTicketHistoryRepository(pool)
	dispatcher := events.NewInMemoryDispatcher(logger)
	replies := composer.New(rand.New(rand.NewSource(time.Now().UnixNano())), signature)

	knowledge := service.NewKnowledgeService(service.KnowledgeDependencies{
		ArticleRepo: repository.NewKBArticleRepository(pool),
		TicketRepo:  ticketRepo,
		HistoryRepo: historyRepo,
		Dispatcher:  dispatcher,
		Composer:    replies,
		Logger:      logger,
	})
	followups := service.NewFollowupService(service.FollowupDependencies{
		TicketRepo:  ticketRepo,
		MessageRepo: repository.NewTicketMessageRepository(pool),
		HistoryRepo: historyRepo,
		AgentRepo:   repository.NewAgentRepository(pool),
		Dispatcher:  dispatcher,
		Composer:    replies,
		Logger:      logger,
	})
	return knowledge, followups, nil
}

func (r *runtime) close() {
	if r.pg != nil {
		r.pg.Close()
	}
	if r.redis != nil {
		r.redis.Close()
	}
	if r.logger != nil {
		_ = r.logger.Sync()
	}
	*r = runtime{}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ExitWithError prints an error message and exits with code 1.
func ExitWithError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
