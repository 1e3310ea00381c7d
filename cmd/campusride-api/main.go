// README: Entry point; loads config, wires services, starts the HTTP server and the rating retry loop.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"campusride/internal/config"
	httptransport "campusride/internal/http"
	"campusride/internal/http/handlers"
	"campusride/internal/infra"
	"campusride/internal/modules/booking"
	"campusride/internal/modules/feed"
	"campusride/internal/modules/rating"
	"campusride/internal/modules/user"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := infra.NewLogger(cfg.Env)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("campusride-api stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	verifier, err := newVerifier(ctx, cfg)
	if err != nil {
		return err
	}

	var (
		bookingRepo booking.Repository
		userRepo    user.Repository
	)
	switch cfg.Store {
	case config.StorePostgres:
		pool, err := infra.NewDB(ctx, cfg.DB.DSN, cfg.DB.MaxConns)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := infra.Migrate(ctx, pool); err != nil {
			return err
		}
		bookingRepo = booking.NewStore(pool)
		userRepo = user.NewStore(pool)
	default:
		logger.Warn("using in-memory store; data is lost on restart")
		bookingRepo = booking.NewMemoryStore()
		userRepo = user.NewMemoryStore()
	}

	var (
		notifier booking.Notifier
		source   handlers.FeedSource
	)
	if cfg.Redis.Addr != "" {
		client, err := infra.NewRedis(ctx, cfg.Redis.Addr)
		if err != nil {
			return err
		}
		defer client.Close()
		notifier = feed.NewPublisher(client, cfg.Feed.Channel)
		source = feed.NewSubscriber(client, cfg.Feed.Channel, logger)
	} else {
		hub := feed.NewHub(32)
		notifier = hub
		source = hub
	}

	userSvc := user.NewService(userRepo, logger)
	ratingSvc := rating.NewService(bookingRepo, userRepo, logger)
	bookingSvc := booking.NewService(bookingRepo, ratingSvc, notifier, logger)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httptransport.NewRouter(httptransport.RouterDeps{
		Booking:     bookingSvc,
		Users:       userSvc,
		Feed:        source,
		Verifier:    verifier,
		Log:         logger,
		CORSOrigins: cfg.HTTP.CORSOrigins,
	})
	server := httptransport.NewServer(cfg, router)

	go ratingSvc.RunRetryLoop(ctx, cfg.Rating.RetryInterval)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening",
			zap.String("addr", cfg.HTTP.Addr),
			zap.String("store", cfg.Store),
			zap.String("auth", cfg.Auth.Provider),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newVerifier(ctx context.Context, cfg config.Config) (infra.TokenVerifier, error) {
	if cfg.Auth.Provider == config.AuthFirebase {
		return infra.NewFirebaseVerifier(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	}
	return infra.NewJWTVerifier(cfg.Auth.JWTSecret)
}
