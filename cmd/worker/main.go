// Command worker consumes the planning queues and runs the nightly
// conflict re-scan.
package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/iliyamo/larp-planner/internal/config"
	"github.com/iliyamo/larp-planner/internal/database"
	"github.com/iliyamo/larp-planner/internal/middleware"
	"github.com/iliyamo/larp-planner/internal/queue"
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

	qcfg := config.LoadQueueConfig(config.OSEnv)
	cacheCfg := config.LoadCacheConfig(config.OSEnv)
	rdb := config.NewRedisClient(config.OSEnv)
	if rdb != nil {
		defer rdb.Close()
	}
	svc := scheduler.NewService(database.NewStore(db), policy, scheduler.WithNotifier(queue.NewPublisher(qcfg)))

	// Cached conflict lists of a re-scanned LARP are stale.
	after := func(ctx context.Context, rep scheduler.RescanReport) {
		if err := middleware.InvalidateLarp(ctx, cacheCfg, rdb, strconv.FormatUint(rep.LarpID, 10)); err != nil {
			log.Printf("cache: invalidate larp=%d: %v", rep.LarpID, err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := queue.NewRescanCron(ctx, cfg.RescanCron, svc, time.Hour, after)
	if err != nil {
		log.Fatalf("rescan-cron: invalid schedule %q: %v", cfg.RescanCron, err)
	}
	c.Start()
	log.Printf("rescan-cron: scheduled %q", cfg.RescanCron)

	consumer := queue.NewConsumer(qcfg, svc, after)
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("planning-consumer: %v", err)
	}
	<-c.Stop().Done()
	log.Printf("worker: stopped")
}
