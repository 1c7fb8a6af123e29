package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/event-ticket-reservation/internal/config"
	"github.com/iliyamo/event-ticket-reservation/internal/database"
	"github.com/iliyamo/event-ticket-reservation/internal/handler"
	"github.com/iliyamo/event-ticket-reservation/internal/middleware"
	"github.com/iliyamo/event-ticket-reservation/internal/queue"
	"github.com/iliyamo/event-ticket-reservation/internal/repository"
	"github.com/iliyamo/event-ticket-reservation/internal/router"
	"github.com/iliyamo/event-ticket-reservation/internal/scheduler"
	"github.com/iliyamo/event-ticket-reservation/internal/service"
)

func main() {
	cfg := config.Load() // Load environment config
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("database: migrate: %v", err)
	}

	// Redis backs the expiry scheduler, the rate limiter and the response
	// cache.  The HTTP middlewares degrade to pass-through without it.
	redisCfg := config.LoadRedisConfig()
	rdb := config.NewRedisClient(redisCfg)
	if rdb != nil {
		defer rdb.Close()
	}
	redisOpt := scheduler.RedisOpt(redisCfg)

	sched := scheduler.NewClient(redisOpt)
	defer sched.Close()

	pub := queue.NewPublisher(cfg.RabbitMQURL)
	defer pub.Close()

	eng := service.New(repository.NewStore(db), sched,
		service.WithPublisher(pub),
		service.WithLogger(logger),
		service.WithOfferWindow(cfg.OfferWindow),
		service.WithHoldWindow(cfg.HoldWindow),
	)

	// Expiry worker and the periodic sweep that catches lost timers.
	srv := scheduler.NewServer(redisOpt, cfg.WorkerConcurrency, logger)
	mux := scheduler.NewServeMux(&scheduler.Worker{
		Offers:     eng.Offers,
		Holds:      eng.Holds,
		SweepGrace: cfg.SweepGrace,
		Log:        logger,
	})
	if err := srv.Start(mux); err != nil {
		log.Fatalf("scheduler: start worker: %v", err)
	}
	defer srv.Shutdown()

	periodic, err := scheduler.NewPeriodic(redisOpt, cfg.SweepInterval)
	if err != nil {
		log.Fatalf("scheduler: register sweep: %v", err)
	}
	if err := periodic.Start(); err != nil {
		log.Fatalf("scheduler: start periodic: %v", err)
	}
	defer periodic.Shutdown()

	go func() {
		if err := queue.NewConsumer(cfg.RabbitMQURL, "logs").Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("ledger-consumer: stopped: %v", err)
		}
	}()

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Use(echomw.Logger(), echomw.Recover())

	router.RegisterRoutes(e, db)
	router.RegisterPublic(e, handler.NewPublicHandler(eng), middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	router.RegisterCustomer(e, handler.NewCustomerHandler(eng), cfg.JWTSecret, middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	router.RegisterOrganizer(e, handler.NewOrganizerHandler(eng), cfg.JWTSecret)

	addr := ":" + cfg.Port
	go func() {
		logger.Info("listening", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err) // Log and exit if server fails
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "err", err)
	}
}
