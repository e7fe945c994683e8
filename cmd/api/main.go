package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/shinyyama/social-market/internal/ai"
	"github.com/shinyyama/social-market/internal/auth"
	"github.com/shinyyama/social-market/internal/chat"
	"github.com/shinyyama/social-market/internal/config"
	"github.com/shinyyama/social-market/internal/db"
	"github.com/shinyyama/social-market/internal/jobs"
	"github.com/shinyyama/social-market/internal/logger"
	appmw "github.com/shinyyama/social-market/internal/middleware"
	"github.com/shinyyama/social-market/internal/repository"
	"github.com/shinyyama/social-market/internal/server"
	"github.com/shinyyama/social-market/internal/service"
	"github.com/shinyyama/social-market/internal/storage"
)

// set with -ldflags at build time
var (
	gitSHA    = "dev"
	buildTime = ""
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New(os.Getenv("APP_ENV"), "info")
		bootLog.Fatal().Err(err).Msg("config load error")
	}
	log := logger.New(cfg.AppEnv, cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Connect(cfg)
	if err != nil {
		return err
	}
	if err := db.Migrate(conn); err != nil {
		return err
	}

	hub := chat.NewHub(0, log)
	var publisher chat.Publisher = hub
	if cfg.RedisURL != "" {
		broker, err := chat.NewRedisBroker(ctx, cfg.RedisURL, hub, log)
		if err != nil {
			return err
		}
		defer broker.Close()
		go func() {
			if err := broker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("redis relay stopped")
			}
		}()
		publisher = broker
		log.Info().Msg("chat events relayed through redis")
	}

	var images storage.ImageStore
	if cfg.StorageBucket != "" {
		gcs, err := storage.NewGCSStore(ctx, cfg.StorageBucket, cfg.CredentialsFile)
		if err != nil {
			return err
		}
		defer gcs.Close()
		images = gcs
	} else {
		local, err := storage.NewLocalStore(cfg.MediaRoot, cfg.MediaBaseURL)
		if err != nil {
			log.Warn().Err(err).Msg("local media store unavailable; image uploads disabled")
		} else {
			images = local
		}
	}

	var answerer service.ItemAnswerer
	if cfg.GeminiAPIKey != "" {
		assistant, err := ai.NewItemAssistant(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, log)
		if err != nil {
			log.Warn().Err(err).Msg("item assistant disabled")
		} else {
			answerer = assistant
		}
	}

	userRepo := repository.NewUserRepository(conn)
	roomRepo := repository.NewRoomRepository(conn)

	users := service.NewUserService(userRepo)
	notifications := service.NewNotificationService(repository.NewNotificationRepository(conn), log)
	chatSvc := service.NewChatService(roomRepo, publisher, log)
	market := service.NewMarketService(service.MarketDeps{
		Items:    repository.NewItemRepository(conn),
		Rooms:    roomRepo,
		Chat:     chatSvc,
		Notifier: notifications,
		Images:   images,
		Answerer: answerer,
		Log:      log,
	})
	blog := service.NewBlogService(repository.NewPostRepository(conn), repository.NewReactionRepository(conn))

	sessions, err := auth.NewSessions(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		return err
	}
	if cfg.SessionSecret == "" {
		log.Warn().Msg("SESSION_SECRET not set; sessions will not survive a restart")
	}
	authMw := appmw.NewAuthMiddleware(sessions, users, log)
	if cfg.FirebaseProjectID != "" {
		if err := authMw.EnableFirebase(ctx, cfg.FirebaseProjectID, cfg.CredentialsFile); err != nil {
			return err
		}
		log.Info().Str("project_id", cfg.FirebaseProjectID).Msg("firebase id tokens accepted")
	}

	limiter := appmw.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, log)
	limiter.StartCleanup(ctx, 5*time.Minute)

	scheduler := jobs.NewScheduler(log)
	if err := scheduler.AddNotificationPrune(cfg.NotificationPruneSchedule, notifications, cfg.NotificationRetention); err != nil {
		return err
	}
	scheduler.Start()

	srv := server.New(cfg, server.Deps{
		Users:         users,
		Market:        market,
		Blog:          blog,
		Chat:          chatSvc,
		Notifications: notifications,
		Sessions:      sessions,
		Auth:          authMw,
		Limiter:       limiter,
		Hub:           hub,
	}, log, gitSHA, buildTime)

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Str("git_sha", gitSHA).Msg("starting server")
		errCh <- srv.Start(addr)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	scheduler.Stop(shutdownCtx)
	return srv.Shutdown(shutdownCtx)
}
