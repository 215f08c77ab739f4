package queue

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// NewRescanCron schedules RescanAll on spec (standard five-field cron).
// Overlapping runs are skipped.  Each run is bounded by timeout; after is
// called per LARP report and may be nil.
func NewRescanCron(ctx context.Context, spec string, svc Rescanner, timeout time.Duration, after AfterRescan) (*cron.Cron, error) {
	logger := cron.PrintfLogger(log.Default())
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	_, err := c.AddFunc(spec, func() {
		runCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		started := time.Now()
		reports, err := svc.RescanAll(runCtx)
		if err != nil {
			log.Printf("rescan-cron: run failed after %d larps: %v", len(reports), err)
		}
		for _, rep := range reports {
			if after != nil {
				after(runCtx, rep)
			}
		}
		log.Printf("rescan-cron: %d larps re-scanned in %s", len(reports), time.Since(started).Round(time.Millisecond))
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}
