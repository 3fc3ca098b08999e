package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Purger deletes up to limit expired uploads after skipping the first offset.
// It reports how many went and how many failed and are still in place.
type Purger interface {
	PurgeExpired(ctx context.Context, offset, limit int) (purged, failed int, err error)
}

type Config struct {
	Interval   time.Duration // how often a purge run starts
	BatchSize  int           // files per PurgeExpired call
	BatchDelay time.Duration // pause between batches of one run
	RunTimeout time.Duration // upper bound for a whole run
}

// DefaultConfig runs once a day, 100 files per batch.
func DefaultConfig() Config {
	return Config{
		Interval:   24 * time.Hour,
		BatchSize:  100,
		BatchDelay: 100 * time.Millisecond,
		RunTimeout: 10 * time.Minute,
	}
}

// RetentionPurge removes uploads whose retention period has passed.
type RetentionPurge struct {
	purger Purger
	cfg    Config
	log    *slog.Logger

	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func NewRetentionPurge(purger Purger, cfg Config, log *slog.Logger) *RetentionPurge {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = def.RunTimeout
	}

	return &RetentionPurge{
		purger: purger,
		cfg:    cfg,
		log:    log.With(slog.String("job", "retention_purge")),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start runs a purge immediately and then every Interval until Stop.
func (j *RetentionPurge) Start() {
	j.log.Info("starting retention purge job",
		slog.Duration("interval", j.cfg.Interval),
		slog.Int("batch_size", j.cfg.BatchSize),
	)

	go j.loop()
}

// Stop ends the loop and waits for a running purge to return. It must only
// be called after Start.
func (j *RetentionPurge) Stop() {
	j.stopOnce.Do(func() {
		close(j.stopCh)
	})
	<-j.done
	j.log.Info("retention purge job stopped")
}

func (j *RetentionPurge) loop() {
	defer close(j.done)

	j.RunOnce()

	ticker := time.NewTicker(j.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.RunOnce()
		case <-j.stopCh:
			return
		}
	}
}

// RunOnce purges batch after batch until a batch comes back short, nothing
// could be read or the run times out. Files that fail stay where they are and
// later batches skip past them. It returns the number of purged files.
func (j *RetentionPurge) RunOnce() int {
	ctx, cancel := context.WithTimeout(context.Background(), j.cfg.RunTimeout)
	defer cancel()

	total, skip := 0, 0
	for {
		n, failed, err := j.purger.PurgeExpired(ctx, skip, j.cfg.BatchSize)
		total += n
		skip += failed
		if err != nil {
			if n+failed == 0 {
				j.log.Error("retention purge failed", slog.Int("purged", total), slog.Any("error", err))
				return total
			}
			j.log.Warn("retention purge batch had failures", slog.Int("failed", failed), slog.Any("error", err))
		}

		if n+failed < j.cfg.BatchSize {
			break
		}

		select {
		case <-ctx.Done():
			j.log.Warn("retention purge cancelled", slog.Int("purged", total))
			return total
		case <-j.stopCh:
			return total
		case <-time.After(j.cfg.BatchDelay):
		}
	}

	if total > 0 {
		j.log.Info("retention purge complete", slog.Int("purged", total), slog.Int("failed", skip))
	} else {
		j.log.Debug("retention purge complete: nothing expired")
	}
	return total
}
