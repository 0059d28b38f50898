package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/mlnotify/internal/monitoring"
	"github.com/charlesng35/mlnotify/pkg/logger"
)

const (
	defaultSweepSpec      = "@hourly"
	defaultCachePurgeSpec = "@daily"
	jobTimeout            = 5 * time.Minute

	// Job names reported to the JobTracker.
	JobNotificationExpiry = "notification_expiry"
	JobCachePurge         = "cache_purge"
)

// NotificationSweeper deactivates notifications whose expiry date has passed.
type NotificationSweeper interface {
	ExpireSweep(ctx context.Context) (int64, error)
}

// CachePurger removes expired cache entries from persistent storage.
type CachePurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Cleaner coordinates background maintenance tasks such as expiring
// notifications and pruning stale rate limit counters.
type Cleaner struct {
	sweeper NotificationSweeper
	purger  CachePurger
	cron    *cron.Cron
	tracker *monitoring.JobTracker
	log     *zap.Logger

	sweepSchedule string
	purgeSchedule string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithJobTracker records each scheduled run so health checks can report on it.
func WithJobTracker(tracker *monitoring.JobTracker) Option {
	return func(cleaner *Cleaner) {
		cleaner.tracker = tracker
	}
}

// WithSweepSchedule overrides the cron expression for the expiry sweep.
func WithSweepSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.sweepSchedule = spec
		}
	}
}

// WithCachePurgeSchedule overrides the cron expression for the cache purge.
func WithCachePurgeSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.purgeSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner. A nil dependency skips the corresponding job.
func NewCleaner(sweeper NotificationSweeper, purger CachePurger, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		sweeper:       sweeper,
		purger:        purger,
		sweepSchedule: defaultSweepSpec,
		purgeSchedule: defaultCachePurgeSpec,
		log:           logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Start registers the maintenance jobs and launches the scheduler when at least one is configured.
func (c *Cleaner) Start() error {
	if c.sweeper == nil && c.purger == nil {
		return nil
	}

	if c.sweeper != nil {
		if _, err := c.cron.AddFunc(c.sweepSchedule, c.runSweep); err != nil {
			return err
		}
		c.tracker.Expect(JobNotificationExpiry)
	}

	if c.purger != nil {
		if _, err := c.cron.AddFunc(c.purgeSchedule, c.runPurge); err != nil {
			return err
		}
		c.tracker.Expect(JobCachePurge)
	}

	c.cron.Start()
	c.log.Info("maintenance scheduler started",
		zap.String("sweep_schedule", c.sweepSchedule),
		zap.String("cache_purge_schedule", c.purgeSchedule),
	)
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured maintenance routines sequentially.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.sweeper != nil {
		if _, err := c.sweeper.ExpireSweep(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.purger != nil {
		if _, err := c.purger.PurgeExpired(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}

func (c *Cleaner) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	_, err := c.sweeper.ExpireSweep(ctx)
	if err != nil {
		c.log.Warn("notification expiry sweep failed", zap.Error(err))
	}
	c.tracker.Record(JobNotificationExpiry, err, time.Since(start))
}

func (c *Cleaner) runPurge() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	_, err := c.purger.PurgeExpired(ctx)
	if err != nil {
		c.log.Warn("cache purge failed", zap.Error(err))
	}
	c.tracker.Record(JobCachePurge, err, time.Since(start))
}
