package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/larp-planner/internal/config"
	"github.com/iliyamo/larp-planner/internal/database"
	"github.com/iliyamo/larp-planner/internal/handler"
	"github.com/iliyamo/larp-planner/internal/queue"
	"github.com/iliyamo/larp-planner/internal/router"
	"github.com/iliyamo/larp-planner/internal/scheduler"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Printf("config: .env: %v", err)
	}
	cfg := config.Load()
	policy, err := config.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient(config.OSEnv)
	if rdb == nil {
		log.Printf("redis: unavailable; rate limiting and response cache disabled")
	} else {
		defer rdb.Close()
	}

	pub := queue.NewPublisher(config.LoadQueueConfig(config.OSEnv))
	svc := scheduler.NewService(database.NewStore(db), policy, scheduler.WithNotifier(pub))

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	router.RegisterRoutes(e, router.Deps{
		Planning:  handler.NewPlanningHandler(svc, pub),
		DB:        db,
		JWTSecret: cfg.JWTSecret,
		Redis:     rdb,
		RateLimit: config.LoadRateLimitConfig(config.OSEnv),
		Cache:     config.LoadCacheConfig(config.OSEnv),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := ":" + cfg.Port
	go func() {
		log.Printf("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
