package services

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"

	"ebook-assistant/internal/logger"
	"ebook-assistant/internal/visitors"
)

const visitorSweepTag = "visitor-sweep"

// CronService runs periodic housekeeping: expiring idle visitor sessions and
// pruning process-local caches.
type CronService struct {
	scheduler *gocron.Scheduler
	interval  time.Duration
	tracker   *visitors.Tracker
	totals    *visitors.TotalVisits
	history   *MemoryHistoryStore
}

// NewCronService builds the scheduler. totals and history may be nil.
func NewCronService(interval time.Duration, tracker *visitors.Tracker, totals *visitors.TotalVisits, history *MemoryHistoryStore) *CronService {
	s := gocron.NewScheduler(time.UTC)
	s.TagsUnique()

	return &CronService{
		scheduler: s,
		interval:  interval,
		tracker:   tracker,
		totals:    totals,
		history:   history,
	}
}

// Start registers the jobs and starts the scheduler in the background.
func (c *CronService) Start() error {
	_, err := c.scheduler.Every(c.interval).Tag(visitorSweepTag).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		c.SweepOnce(ctx)
	})
	if err != nil {
		return err
	}

	logger.Info("Starting housekeeping cron", "interval", c.interval.String())
	c.scheduler.StartAsync()
	return nil
}

func (c *CronService) Stop() {
	logger.Info("Stopping housekeeping cron")
	c.scheduler.Stop()
}

// SweepOnce is the job body.
func (c *CronService) SweepOnce(ctx context.Context) {
	if c.tracker != nil {
		n, err := c.tracker.Sweep(ctx)
		if err != nil {
			logger.Error("Visitor sweep failed", "error", err)
		} else if n > 0 {
			logger.Debug("Expired visitor sessions", "removed", n)
		}
	}
	if c.totals != nil {
		if n := c.totals.Sweep(); n > 0 {
			logger.Debug("Pruned visit ledger", "removed", n)
		}
	}
	if c.history != nil {
		if n := c.history.Prune(); n > 0 {
			logger.Debug("Pruned chat histories", "removed", n)
		}
	}
}

// Jobs lists scheduled jobs.
func (c *CronService) Jobs() []*gocron.Job {
	return c.scheduler.Jobs()
}
