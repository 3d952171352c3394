package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"wedding-quiz-service/internal/app"
	"wedding-quiz-service/internal/channel"
	"wedding-quiz-service/internal/config"
	"wedding-quiz-service/internal/domain"
	"wedding-quiz-service/internal/infra/memory"
	pgstore "wedding-quiz-service/internal/infra/postgres"
	redisstore "wedding-quiz-service/internal/infra/redis"
	"wedding-quiz-service/internal/metrics"
	transport "wedding-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "wedding-quiz").Logger()

	cfg, err := config.Load(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		logger.Warn().Str("path", configPath).Msg("config file not found, using defaults")
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
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	broker, err := buildBroker(cfg, redisClient, logger)
	if err != nil {
		return err
	}
	defer broker.Close()

	m := metrics.New()
	broker = m.WrapBroker(broker)

	var loader memory.QuestionSetLoader = memory.NewStaticQuestionSetLoader(sampleQuestionSets())
	if pool != nil {
		loader = pgstore.NewQuestionSetLoader(pool)
	}

	cacheTTL := config.TTLDuration(cfg.Quiz.CacheTTL, 10*time.Minute)
	var questionRepo app.QuestionRepository
	if redisClient != nil {
		questionRepo = redisstore.NewQuestionRepository(redisClient, loader, cacheTTL)
	} else {
		questionRepo = memory.NewQuestionRepository(loader, cacheTTL)
	}

	var store app.SessionRepository
	if redisClient != nil {
		store = redisstore.NewSessionStore(redisClient, redisTTL)
	} else {
		store = memory.NewSessionStore()
	}

	service := app.NewQuizService(store, questionRepo, broker, nil, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/ws", transport.NewWSHandler(service, logger).ServeWS)
	transport.NewAdminHandler(service, logger).Register(mux)

	allowedOrigins := cfg.Server.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	handler := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info().Str("port", finalPort).Msg("starting quiz service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("server stopped")
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

// buildBroker picks the broadcast backend. Redis pub/sub is the default when
// an address is configured; NATS and in-process memory are opt-in.
func buildBroker(cfg config.Config, redisClient *redis.Client, logger zerolog.Logger) (channel.Broker, error) {
	backend := cfg.Channel.Backend
	if backend == "" {
		if redisClient != nil {
			backend = "redis"
		} else {
			backend = "memory"
		}
	}
	switch backend {
	case "redis":
		if redisClient == nil {
			return nil, fmt.Errorf("channel backend redis requires redis.addr")
		}
		return channel.NewRedisBroker(redisClient, logger), nil
	case "nats":
		url := cfg.NATS.URL
		if url == "" {
			url = nats.DefaultURL
		}
		conn, err := nats.Connect(url)
		if err != nil {
			return nil, err
		}
		return channel.NewNATSBroker(conn, logger), nil
	default:
		return channel.NewMemoryBroker(), nil
	}
}

// sampleQuestionSets seeds a demo bank when no Postgres is configured.
func sampleQuestionSets() map[string]domain.QuestionSet {
	return map[string]domain.QuestionSet{
		"wedding-demo": {
			ID: "wedding-demo",
			Questions: []domain.Question{
				{
					ID:               "q1",
					Prompt:           "Where did the couple first meet?",
					Options:          domain.Options{A: "At work", B: "A concert", C: "Online", D: "A wedding"},
					CorrectOption:    domain.OptionB,
					DisplayOrder:     1,
					TimeLimitSeconds: 15,
				},
				{
					ID:               "q2",
					Prompt:           "What was the destination of the first trip together?",
					Options:          domain.Options{A: "Lisbon", B: "Kyoto", C: "Rome", D: "Oslo"},
					CorrectOption:    domain.OptionC,
					DisplayOrder:     2,
					TimeLimitSeconds: 15,
				},
			},
		},
	}
}
