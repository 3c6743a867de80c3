package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"nonoji-quiz-service/internal/app"
	"nonoji-quiz-service/internal/config"
	"nonoji-quiz-service/internal/domain"
	"nonoji-quiz-service/internal/infra/csvfile"
	"nonoji-quiz-service/internal/infra/memory"
	pgstore "nonoji-quiz-service/internal/infra/postgres"
	redisstore "nonoji-quiz-service/internal/infra/redis"
	transport "nonoji-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz room server",
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
	redisTTL := config.Duration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	// Facility data degrades gracefully: no CSV (or a broken one) just
	// means fewer question types.
	var facilities []domain.Facility
	if cfg.Facility.CSVPath != "" {
		facilities, err = csvfile.Load(cfg.Facility.CSVPath)
		if err != nil {
			log.Printf("facility csv %s unusable, continuing without: %v", cfg.Facility.CSVPath, err)
		} else {
			log.Printf("loaded %d facility rows from %s", len(facilities), cfg.Facility.CSVPath)
		}
	}

	var userQuestions app.UserQuestionSource
	var stats app.StatsRecorder
	var profiles app.ProfileStore
	var stamps app.StampInventory
	if pool != nil {
		userQuestions = pgstore.NewUserQuestionSource(pool)
		stats = pgstore.NewStatsRecorder(pool)
		profiles = pgstore.NewProfileStore(pool)
		stamps = pgstore.NewStampInventory(pool)
	} else {
		userQuestions = memory.NewUserQuestionSource(nil)
		stats = memory.NewStatsRecorder()
		profiles = memory.NewProfileStore()
		stamps = memory.NewStampInventory()
	}

	var dir app.Directory
	if redisClient != nil {
		stamps = redisstore.NewStampInventory(redisClient, stamps, redisTTL)
		dir = redisstore.NewDirectory(redisClient, redisTTL)
	}

	settings := settingsFromConfig(cfg.Quiz)
	tiers := tiersFromConfig(cfg.Challenge)

	userProb := cfg.Quiz.UserQuestionProb
	if userProb <= 0 {
		userProb = 0.5
	}
	bank := app.NewQuestionBank(facilities, userQuestions, userProb)

	rooms := app.NewRoomManager(app.RoomDeps{
		Bank:       bank,
		Stats:      stats,
		Profiles:   profiles,
		Settings:   settings,
		Challenges: tiers,
	}, dir)

	queue := app.NewMatchQueue(settings.NeededPlayers, config.Duration(cfg.Quiz.MatchGrace, 10*time.Second), rooms)
	queue.Start()
	defer queue.Stop()

	stampDir := cfg.Quiz.StampDir
	if stampDir == "" {
		stampDir = "assets/stamps"
	}
	registry := app.NewStampRegistry(stampDir)

	wsHandler := transport.NewWSHandler(rooms, queue, stamps, registry)
	apiHandler := transport.NewAPIHandler(rooms, queue, stamps, registry)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /ws/quiz/{code}", wsHandler.ServeWS)
	apiHandler.Register(mux)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     mux,
		ReadTimeout: 0, // websocket connections stay open
	}

	go func() {
		log.Printf("starting quiz room server on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func settingsFromConfig(qc config.QuizConfig) app.Settings {
	def := app.DefaultSettings()
	return app.Settings{
		RoundMax:           config.IntOr(qc.RoundMax, def.RoundMax),
		NeededPlayers:      config.IntOr(qc.NeededPlayers, def.NeededPlayers),
		ReadyHumans:        config.IntOr(qc.ReadyHumans, def.ReadyHumans),
		PrestartCountdown:  config.Duration(qc.PrestartCountdown, def.PrestartCountdown),
		QuestionTimeLimit:  config.Duration(qc.QuestionTimeLimit, def.QuestionTimeLimit),
		AnswerOpenDelay:    config.Duration(qc.AnswerOpenDelay, def.AnswerOpenDelay),
		RevealHold:         config.Duration(qc.RevealHold, def.RevealHold),
		MinRoundDisplay:    config.Duration(qc.MinRoundDisplay, def.MinRoundDisplay),
		FirstCorrectPoints: config.IntOr(qc.FirstCorrectPoints, def.FirstCorrectPoints),
		LaterCorrectPoints: config.IntOr(qc.LaterCorrectPoints, def.LaterCorrectPoints),
		CPUCorrectProb:     config.FloatOr(qc.CPUCorrectProb, def.CPUCorrectProb),
		CPUMinDelay:        config.Duration(qc.CPUMinDelay, def.CPUMinDelay),
		CPUMaxDelay:        config.Duration(qc.CPUMaxDelay, def.CPUMaxDelay),
		StampCooldown:      config.Duration(qc.StampCooldown, def.StampCooldown),
		StampMaxPerRound:   config.IntOr(qc.StampMaxPerRound, def.StampMaxPerRound),
	}
}

func tiersFromConfig(cc map[string]config.ChallengeConfig) map[string]app.ChallengeTier {
	tiers := app.DefaultChallengeTiers()
	for level, override := range cc {
		tier, ok := tiers[level]
		if !ok {
			continue
		}
		tier.CorrectProb = config.FloatOr(override.CorrectProb, tier.CorrectProb)
		tier.MinDelay = config.Duration(override.MinDelay, tier.MinDelay)
		tier.MaxDelay = config.Duration(override.MaxDelay, tier.MaxDelay)
		tier.Rounds = config.IntOr(override.Rounds, tier.Rounds)
		tiers[level] = tier
	}
	return tiers
}
