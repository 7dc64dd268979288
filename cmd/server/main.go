package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	httpapi "github.com/shelfswap/shelfswap/internal/api/http"
	"github.com/shelfswap/shelfswap/internal/application/auth"
	"github.com/shelfswap/shelfswap/internal/application/book"
	"github.com/shelfswap/shelfswap/internal/application/dispute"
	"github.com/shelfswap/shelfswap/internal/application/notification"
	"github.com/shelfswap/shelfswap/internal/application/overdue"
	"github.com/shelfswap/shelfswap/internal/application/review"
	"github.com/shelfswap/shelfswap/internal/application/trade"
	"github.com/shelfswap/shelfswap/internal/application/user"
	"github.com/shelfswap/shelfswap/internal/config"
	"github.com/shelfswap/shelfswap/internal/infrastructure/postgres"
)

func main() {
	_ = godotenv.Load()

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.ConnectionString())
	if err != nil {
		log.Fatalf("db error: %v", err)
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool, "internal/migrations"); err != nil {
		log.Fatalf("migration error: %v", err)
	}

	// repositories
	userRepo := postgres.NewUserRepository(pool)
	sessionRepo := postgres.NewSessionRepository(pool)
	bookRepo := postgres.NewBookRepository(pool)
	tradeRepo := postgres.NewTradeRepository(pool)
	disputeRepo := postgres.NewDisputeRepository(pool)
	reviewRepo := postgres.NewReviewRepository(pool)
	notificationRepo := postgres.NewNotificationRepository(pool)
	convRepo := postgres.NewConversationRepository(pool)

	// services
	notificationSvc := notification.NewService(notificationRepo, &notification.LogSink{Logger: logger}, logger)
	userSvc := user.NewService(userRepo, logger)
	authSvc := auth.NewService(userRepo, sessionRepo, cfg.Session.TTL, logger)
	bookSvc := book.NewService(bookRepo, logger)
	guard := book.NewGuard(bookRepo, logger)
	tradeSvc := trade.NewService(tradeRepo, bookRepo, guard, convRepo, notificationSvc, logger)
	disputeSvc := dispute.NewService(disputeRepo, tradeRepo, guard, notificationSvc, logger)
	reviewSvc := review.NewService(reviewRepo, tradeRepo, notificationSvc, logger)

	sweeper, err := overdue.NewSweeper(tradeRepo, notificationSvc, cfg.Overdue.FeeExpression, cfg.Overdue.DailyFee, logger)
	if err != nil {
		log.Fatalf("overdue sweeper error: %v", err)
	}

	// API server
	apiServer := httpapi.NewServer(
		authSvc,
		userSvc,
		bookSvc,
		tradeSvc,
		disputeSvc,
		reviewSvc,
		notificationSvc,
		convRepo,
		cfg.CORS.AllowedOrigins,
		cfg.Session.CookieName,
		cfg.Session.CookieSecure,
	)

	httpServer := &http.Server{
		Addr:         cfg.App.Addr,
		Handler:      apiServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// background loops
	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	go sweeper.Run(sweepCtx, cfg.Overdue.SweepInterval)

	// start server
	go func() {
		logger.Info().Str("addr", cfg.App.Addr).Msg("http server started")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	stopSweeper()
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctxShutdown)
}
