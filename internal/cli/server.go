package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"trivia-room-service/internal/app"
	"trivia-room-service/internal/config"
	"trivia-room-service/internal/domain"
	"trivia-room-service/internal/infra/memory"
	pgstore "trivia-room-service/internal/infra/postgres"
	redisstore "trivia-room-service/internal/infra/redis"
	transport "trivia-room-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trivia room server",
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

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
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

	var bank app.QuestionBank = memory.NewQuestionBank(sampleQuestions())
	if pool != nil {
		bank = pgstore.NewQuestionStore(pool)
	}
	cacheTTL := config.TTLDuration(cfg.Questions.CacheTTL, 10*time.Minute)
	bank = memory.NewCachedQuestionBank(bank, cacheTTL)

	var rooms app.RoomStore = memory.NewRoomStore()
	if redisClient != nil {
		rooms = redisstore.NewRoomStore(redisClient)
	}

	hub := transport.NewHub()
	service := app.NewGameService(rooms, bank, hub, cfg.Admin.Password)
	wsHandler := transport.NewWSHandler(service, hub)
	adminHandler := transport.NewAdminHandler(service, bank)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	adminHandler.Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("port", finalPort).Msg("starting trivia room service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info().Msg("shutting down server")
	case <-ctx.Done():
		log.Info().Msg("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuestions seeds the in-memory bank for local runs without Postgres.
func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			Type:          domain.QuestionTypeText,
			Content:       "\"The committee will revert back to you at the earliest convenience.\"",
			CorrectAnswer: domain.AnswerAI,
		},
		{
			Type:          domain.QuestionTypeText,
			Content:       "\"honestly the bus was late again so i just walked, took forever\"",
			CorrectAnswer: domain.AnswerReal,
		},
		{
			Type:          domain.QuestionTypeImage,
			Content:       "https://example.com/portraits/042.jpg",
			ImageURL:      "https://example.com/portraits/042.jpg",
			CorrectAnswer: domain.AnswerAI,
		},
	}
}
