package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"daybrief/internal/services"

	"github.com/go-co-op/gocron/v2"
)

// FeedExpiryJob periodically sweeps expired feed items. The sweep itself is
// idempotent, so overlapping or missed runs are harmless.
type FeedExpiryJob struct {
	scheduler   gocron.Scheduler
	feedService *services.FeedService
	interval    time.Duration
}

// NewFeedExpiryJob creates the expiry sweep job
func NewFeedExpiryJob(feedService *services.FeedService, interval time.Duration) (*FeedExpiryJob, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &FeedExpiryJob{
		scheduler:   scheduler,
		feedService: feedService,
		interval:    interval,
	}, nil
}

// Start registers the sweep and begins running it on the interval
func (j *FeedExpiryJob) Start() error {
	_, err := j.scheduler.NewJob(
		gocron.DurationJob(j.interval),
		gocron.NewTask(j.run),
		gocron.WithName("feed-expiry-sweep"),
	)
	if err != nil {
		return fmt.Errorf("failed to register expiry sweep: %w", err)
	}

	j.scheduler.Start()
	log.Printf("✅ Feed expiry sweep scheduled every %v", j.interval)
	return nil
}

// Stop shuts the scheduler down
func (j *FeedExpiryJob) Stop() error {
	log.Println("⏹️ Stopping feed expiry sweep...")
	return j.scheduler.Shutdown()
}

func (j *FeedExpiryJob) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := j.feedService.ExpireSweep(ctx); err != nil {
		log.Printf("⚠️ [JOBS] Expiry sweep failed: %v", err)
	}
}
