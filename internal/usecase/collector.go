package usecase

import (
	"context"
	"fmt"
	"time"

	"opinionpointer/internal/domain/models"
	domrepo "opinionpointer/internal/domain/repository"
	domsvc "opinionpointer/internal/domain/service"
	"opinionpointer/internal/service/ratelimit"
	applogger "opinionpointer/pkg/logger"
	"opinionpointer/pkg/queue"
)

const collectMsgType = "collect_channel"

// CollectPayload is the queue message for one channel collection run.
type CollectPayload struct {
	JobID   int64          `json:"job_id"`
	Channel models.Channel `json:"channel"`
}

// Collector schedules collection jobs for active channels and processes them
// off the work queue.
type Collector struct {
	store    domrepo.Store
	fetcher  domsvc.ChannelFetcher
	events   domrepo.EventPublisher
	queue    queue.QueueService
	metrics  domrepo.Metrics
	logger   *applogger.Logger
	limiter  *ratelimit.Limiter
	interval time.Duration
	maxRPS   float64
}

func NewCollector(
	store domrepo.Store,
	fetcher domsvc.ChannelFetcher,
	events domrepo.EventPublisher,
	q queue.QueueService,
	metrics domrepo.Metrics,
	logger *applogger.Logger,
	interval time.Duration,
	maxRPS float64,
) *Collector {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	if maxRPS <= 0 {
		maxRPS = 1
	}
	return &Collector{
		store:    store,
		fetcher:  fetcher,
		events:   events,
		queue:    q,
		metrics:  metrics,
		logger:   logger,
		limiter:  ratelimit.New(),
		interval: interval,
		maxRPS:   maxRPS,
	}
}

// Start runs the scheduling loop until ctx is cancelled.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := c.ScheduleOnce(ctx); err != nil {
					c.logger.Error("collection scheduling failed", applogger.Error(err))
				}
			}
		}
	}()
	c.logger.Info("collector started", applogger.Duration("interval", c.interval))
}

// ScheduleOnce creates one pending job per active channel and enqueues it.
func (c *Collector) ScheduleOnce(ctx context.Context) error {
	channels, err := c.store.ListActiveChannels(ctx)
	if err != nil {
		return fmt.Errorf("schedule collections: %w", err)
	}

	scheduled := 0
	for _, ch := range channels {
		jobID, err := c.store.CreateJob(ctx, ch.ID)
		if err != nil {
			c.metrics.RecordError("schedule")
			c.logger.Error("create job failed",
				applogger.String("channel", ch.Name), applogger.Error(err))
			continue
		}
		payload := CollectPayload{JobID: jobID, Channel: ch}
		if err := c.queue.PublishMessage(ctx, collectMsgType, payload); err != nil {
			c.metrics.RecordError("enqueue")
			_ = c.store.MarkJobFailed(ctx, jobID, "enqueue: "+err.Error())
			continue
		}
		scheduled++
	}
	c.logger.Info("collection jobs scheduled",
		applogger.Int("channels", len(channels)), applogger.Int("scheduled", scheduled))
	return nil
}

// Job returns the queue job handler for collection messages.
func (c *Collector) Job() queue.Job {
	return &collectJob{c: c}
}

type collectJob struct {
	c *Collector
}

func (j *collectJob) Name() string { return "channel-collector" }
func (j *collectJob) Type() string { return collectMsgType }

// Handle runs one collection: fetch the channel payload, record the
// collection, and publish the event. A returned error triggers the queue's
// retry policy.
func (j *collectJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[CollectPayload](payload)
	if err != nil {
		return fmt.Errorf("collect payload: %w", err)
	}
	c := j.c

	if !c.limiter.Allow(p.Channel.Name, c.maxRPS, c.maxRPS) {
		return fmt.Errorf("channel %s rate limited", p.Channel.Name)
	}

	if err := c.store.MarkJobRunning(ctx, p.JobID); err != nil {
		return err
	}

	start := time.Now()
	items, err := c.fetcher.FetchChannel(ctx, p.Channel)
	if err != nil {
		c.metrics.RecordCollection(p.Channel.Name, "error")
		_ = c.store.MarkJobFailed(ctx, p.JobID, err.Error())
		return err
	}

	collectedAt := time.Now().UTC()
	if err := c.store.InsertCollection(ctx, p.Channel.ID, items, collectedAt); err != nil {
		c.metrics.RecordCollection(p.Channel.Name, "error")
		_ = c.store.MarkJobFailed(ctx, p.JobID, err.Error())
		return err
	}
	if err := c.store.MarkJobDone(ctx, p.JobID); err != nil {
		return err
	}

	c.metrics.RecordCollection(p.Channel.Name, "ok")
	c.metrics.RecordLatency("collect", time.Since(start).Seconds())

	ev := &models.CollectionEvent{
		JobID:       p.JobID,
		ChannelID:   p.Channel.ID,
		ChannelName: p.Channel.Name,
		Items:       items,
		Status:      models.JobDone,
		CollectedAt: collectedAt,
	}
	if err := c.events.PublishCollection(ctx, ev); err != nil {
		// the collection is stored; event loss is logged, not retried
		c.metrics.RecordError("publish_event")
		c.logger.Warn("collection event publish failed",
			applogger.String("channel", p.Channel.Name), applogger.Error(err))
	}
	return nil
}
