package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"quizlive/internal/config"
	"quizlive/internal/domain"
	"quizlive/internal/engine"
	"quizlive/internal/infra/memory"
	pgload "quizlive/internal/infra/postgres"
	rediscache "quizlive/internal/infra/redis"
	transport "quizlive/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz session server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
			return err
		}
	}

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
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	if pool != nil {
		loader = pgload.NewQuizLoader(pool)
	}

	quizTTL := config.Duration(cfg.Quiz.TTL, 10*time.Minute)
	var content engine.ContentStore
	if redisClient != nil {
		content = rediscache.NewContentStore(redisClient, loader, quizTTL)
	} else {
		content = memory.NewContentStore(loader, quizTTL)
	}

	var store engine.SessionRepository
	if redisClient != nil {
		sessionTTL := config.Duration(cfg.Redis.TTL, 10*time.Minute)
		store = rediscache.NewSessionStore(redisClient, sessionTTL)
	} else {
		store = memory.NewSessionStore()
	}

	engineCfg := engine.Config{
		Countdown:       config.Duration(cfg.Engine.Countdown, 5*time.Second),
		RevealDwell:     config.Duration(cfg.Engine.RevealDwell, 5*time.Second),
		MinParticipants: cfg.Engine.MinParticipants,
		AllowLateJoin:   cfg.Engine.AllowLateJoin,
		Scoring:         engine.ScoringPolicy{DecayFraction: cfg.Engine.DecayFraction},
	}

	service := engine.NewService(store, content, engineCfg, clockwork.NewRealClock(), logger)
	handler := transport.NewHandler(service, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/sessions", handler.CreateSession)
	mux.HandleFunc("/ws", handler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info().Str("port", finalPort).Msg("starting quiz session server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info().Msg("shutting down server")
	case <-ctx.Done():
		logger.Info().Msg("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuizzes provides a minimal set of quiz content; the postgres loader
// replaces this when a database is configured.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:    "quiz-1",
			Title: "General Knowledge",
			Questions: []domain.Question{
				{
					ID:           "q1",
					Prompt:       "What is the chemical symbol for gold?",
					Options:      []string{"Au", "Ag", "Fe", "Cu"},
					CorrectIndex: 0,
					TimeLimitSec: 30,
					Points:       100,
				},
				{
					ID:           "q2",
					Prompt:       "Which planet is known as the Red Planet?",
					Options:      []string{"Venus", "Mars", "Jupiter", "Saturn"},
					CorrectIndex: 1,
					TimeLimitSec: 30,
					Points:       100,
				},
			},
		},
	}
}
