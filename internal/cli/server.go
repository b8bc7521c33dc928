package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"case-reasons-training/internal/app"
	"case-reasons-training/internal/auth"
	"case-reasons-training/internal/config"
	"case-reasons-training/internal/infra/memory"
	"case-reasons-training/internal/infra/postgres"
	redisinfra "case-reasons-training/internal/infra/redis"
	"case-reasons-training/internal/infra/sheets"
	"case-reasons-training/internal/infra/sqlite"
	"case-reasons-training/internal/llm"
	"case-reasons-training/internal/narrator"
	"case-reasons-training/internal/taxonomy"
	transport "case-reasons-training/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the training server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// Without a taxonomy there is nothing to train on.
	tax, err := taxonomy.NewSource(cfg.Taxonomy.Path).Load()
	if err != nil {
		logger.Error("taxonomy unavailable", zap.String("path", cfg.Taxonomy.Path), zap.Error(err))
		return fmt.Errorf("load taxonomy: %w", err)
	}
	logger.Info("taxonomy loaded",
		zap.String("path", cfg.Taxonomy.Path),
		zap.Int("records", tax.Len()),
		zap.Int("scenarios", len(tax.Scenarios())))

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	board, closeBoard, err := buildLeaderboard(ctx, cfg, redisClient)
	if err != nil {
		return err
	}
	defer closeBoard()

	sessionTTL := config.TTLDuration(cfg.Quiz.SessionTTL, 2*time.Hour)
	var store app.SessionRepository
	if redisClient != nil {
		store = redisinfra.NewSessionStore(redisClient, sessionTTL)
	} else {
		store = memory.NewSessionStore()
	}

	service := app.NewQuizService(store, board, tax, app.Options{
		Authenticator: auth.NewBcryptAuthenticator(auth.Options{
			AdminSecretHash: cfg.Auth.AdminSecretHash,
			Countries:       cfg.Auth.Countries,
			RequireCountry:  cfg.Auth.RequireCountry,
		}),
		Narrator: buildNarrator(ctx, cfg, redisClient),
		Logger:   logger,
		Length:   cfg.Quiz.Length,
		Top:      cfg.Leaderboard.Top,
	})
	if cfg.Auth.AdminSecretHash == "" {
		logger.Warn("admin role disabled: auth.admin_secret_hash is empty")
	}

	mux := http.NewServeMux()
	transport.NewAPIHandler(service, logger).Register(mux)
	mux.HandleFunc("GET /ws", transport.NewWSHandler(service, logger).ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting training server", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func buildLeaderboard(ctx context.Context, cfg config.Config, redisClient *redis.Client) (app.LeaderboardStore, func(), error) {
	noop := func() {}
	switch cfg.Leaderboard.Backend {
	case "memory":
		logger.Warn("leaderboard kept in memory; scores are lost on restart")
		return memory.NewLeaderboardStore(), noop, nil
	case "redis":
		if redisClient == nil {
			return nil, nil, fmt.Errorf("leaderboard backend redis needs redis.addr")
		}
		return redisinfra.NewLeaderboardStore(redisClient), noop, nil
	case "postgres":
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return nil, nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		return postgres.NewLeaderboardStore(pool), pool.Close, nil
	case "sqlite":
		path := cfg.SQLite.Path
		if path == "" {
			path = "data/leaderboard.db"
		}
		store, err := sqlite.Open(ctx, path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	case "sheets":
		if cfg.Leaderboard.SheetID == "" {
			return nil, nil, fmt.Errorf("leaderboard backend sheets needs leaderboard.sheet_id")
		}
		var opts []option.ClientOption
		if cfg.Leaderboard.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.Leaderboard.CredentialsFile))
		}
		store, err := sheets.New(ctx, cfg.Leaderboard.SheetID, cfg.Leaderboard.SheetRange, opts...)
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown leaderboard backend %q", cfg.Leaderboard.Backend)
	}
}

// buildNarrator assembles fallback(cache(llm)). Without a provider the plain
// description is shown.
func buildNarrator(ctx context.Context, cfg config.Config, redisClient *redis.Client) narrator.Narrator {
	timeout := config.TTLDuration(cfg.LLM.Timeout, 8*time.Second)
	provider, err := llm.NewProvider(ctx, llm.ProviderConfig{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
		Retry:    llm.DefaultRetry(),
	})
	if errors.Is(err, llm.ErrNotConfigured) {
		return narrator.NewResilient(nil, timeout, logger)
	}
	if err != nil {
		logger.Warn("text generation disabled", zap.String("provider", cfg.LLM.Provider), zap.Error(err))
		return narrator.NewResilient(nil, timeout, logger)
	}
	logger.Info("text generation enabled",
		zap.String("provider", cfg.LLM.Provider),
		zap.String("model", provider.ModelID()))

	var inner narrator.Narrator = narrator.NewLLM(provider)
	cacheTTL := config.TTLDuration(cfg.LLM.CacheTTL, 24*time.Hour)
	if redisClient != nil {
		inner = redisinfra.NewNarrationCache(redisClient, inner, cacheTTL)
	} else {
		inner = memory.NewNarrationCache(inner, cacheTTL)
	}
	return narrator.NewResilient(inner, timeout, logger)
}
