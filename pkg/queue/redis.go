package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"opinionpointer/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const (
	popTimeout    = time.Second
	retryInterval = 5 * time.Second
)

// RedisQueue is a redis-list work queue with delayed retries and a dead
// letter list. Every instance both publishes and consumes; handlers are
// attached with RegisterJob before Start.
type RedisQueue struct {
	logger   *logger.Logger
	config   *QueueConfig
	client   *redis.Client
	handlers map[string]Job

	mu      sync.RWMutex
	running bool
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc

	taskKey  string
	retryKey string
	deadKey  string
}

// RedisQueueOption configures RedisQueue.
type RedisQueueOption func(*RedisQueue)

// WithKeyPrefix sets the redis key prefix for the task, retry, and dead
// letter lists.
func WithKeyPrefix(prefix string) RedisQueueOption {
	return func(r *RedisQueue) {
		r.taskKey = prefix + ":tasks"
		r.retryKey = prefix + ":retries"
		r.deadKey = prefix + ":dead"
	}
}

// NewRedisQueue creates a work queue on the given redis client.
func NewRedisQueue(lgr *logger.Logger, config *QueueConfig, client *redis.Client, opts ...RedisQueueOption) *RedisQueue {
	if config == nil {
		config = &QueueConfig{}
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = 10 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	rq := &RedisQueue{
		logger:   lgr,
		config:   config,
		client:   client,
		handlers: make(map[string]Job),
		ctx:      ctx,
		cancel:   cancel,
	}
	WithKeyPrefix("opinionpointer:queue")(rq)

	for _, opt := range opts {
		opt(rq)
	}
	return rq
}

// RegisterJob attaches a handler for its message type. Later registrations
// for the same type are ignored.
func (r *RedisQueue) RegisterJob(job Job) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.handlers[job.Type()]; dup {
		r.logger.Warn("job already registered", logger.String("job", job.Name()))
		return
	}
	r.handlers[job.Type()] = job
	r.logger.Info("job registered",
		logger.String("job", job.Name()),
		logger.String("type", job.Type()))
}

// Start pings redis and launches the worker pool and the retry mover.
func (r *RedisQueue) Start() error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("queue already running")
	}
	r.running = true
	r.mu.Unlock()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.client.Ping(pingCtx).Err(); err != nil {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
		return fmt.Errorf("redis ping: %w", err)
	}

	for i := 0; i < r.config.Workers; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}
	r.wg.Add(1)
	go r.retryMover()

	r.logger.Info("work queue started",
		logger.Int("workers", r.config.Workers),
		logger.String("tasks", r.taskKey))
	return nil
}

// Stop cancels workers and waits for them until ctx expires.
func (r *RedisQueue) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	r.mu.Unlock()

	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		r.logger.Warn("queue workers did not drain in time", logger.Error(ctx.Err()))
		return fmt.Errorf("stop queue: %w", ctx.Err())
	case <-done:
		r.logger.Info("work queue stopped")
		return nil
	}
}

// PublishMessage pushes a task onto the queue. The message type must have a
// registered handler.
func (r *RedisQueue) PublishMessage(ctx context.Context, msgType string, payload interface{}) error {
	r.mu.RLock()
	running := r.running
	_, known := r.handlers[msgType]
	r.mu.RUnlock()

	if !running {
		return fmt.Errorf("queue not running")
	}
	if !known {
		return fmt.Errorf("no handler for message type %q", msgType)
	}

	msg := Message{
		ID:        strconv.FormatInt(time.Now().UnixNano(), 36),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now(),
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	if err := r.client.LPush(ctx, r.taskKey, raw).Err(); err != nil {
		return fmt.Errorf("push task: %w", err)
	}
	return nil
}

func (r *RedisQueue) worker(id int) {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Info("queue worker stopped", logger.Int("worker", id))
			return
		default:
		}

		msg, ok := r.pop()
		if !ok {
			continue
		}
		r.dispatch(msg)
	}
}

// pop blocks on the task list for up to popTimeout. A false return means
// the list was empty or redis errored; the worker loop just retries.
func (r *RedisQueue) pop() (Message, bool) {
	res, err := r.client.BRPop(r.ctx, popTimeout, r.taskKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) ||
			errors.Is(err, context.DeadlineExceeded) {
			return Message{}, false
		}
		r.logger.Error("pop task", logger.Error(err))
		time.Sleep(popTimeout)
		return Message{}, false
	}
	if len(res) < 2 {
		return Message{}, false
	}

	var msg Message
	if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
		r.logger.Error("decode task", logger.Error(err))
		return Message{}, false
	}
	return msg, true
}

func (r *RedisQueue) dispatch(msg Message) {
	r.mu.RLock()
	job, ok := r.handlers[msg.Type]
	r.mu.RUnlock()
	if !ok {
		r.logger.Error("no handler for task",
			logger.String("type", msg.Type),
			logger.String("id", msg.ID))
		return
	}

	payload := msg.Payload
	if m, isMap := payload.(map[string]interface{}); isMap {
		if raw, err := json.Marshal(m); err == nil {
			payload = json.RawMessage(raw)
		}
	}

	start := time.Now()
	err := job.Handle(r.ctx, payload)
	if err == nil {
		return
	}
	if errors.Is(err, context.Canceled) {
		r.logger.Warn("task cancelled",
			logger.String("id", msg.ID),
			logger.String("job", job.Name()))
		return
	}

	r.logger.Error("task failed",
		logger.String("id", msg.ID),
		logger.String("job", job.Name()),
		logger.Int("attempt", msg.Attempts+1),
		logger.Duration("elapsed", time.Since(start)),
		logger.Error(err))
	r.requeueOrBury(msg)
}

// requeueOrBury schedules a delayed retry, or moves the task to the dead
// letter list once the retry limit is spent.
func (r *RedisQueue) requeueOrBury(msg Message) {
	if msg.Attempts >= r.config.RetryLimit {
		raw, err := json.Marshal(msg)
		if err != nil {
			r.logger.Error("encode dead task", logger.Error(err))
			return
		}
		if err := r.client.LPush(context.Background(), r.deadKey, raw).Err(); err != nil {
			r.logger.Error("bury task", logger.Error(err))
			return
		}
		r.logger.Error("task moved to dead letter list",
			logger.String("id", msg.ID),
			logger.Int("attempts", msg.Attempts))
		return
	}

	msg.Attempts++
	raw, err := json.Marshal(msg)
	if err != nil {
		r.logger.Error("encode retry task", logger.Error(err))
		return
	}
	due := time.Now().Add(r.config.RetryDelay)
	err = r.client.ZAdd(context.Background(), r.retryKey, redis.Z{
		Score:  float64(due.Unix()),
		Member: raw,
	}).Err()
	if err != nil {
		r.logger.Error("schedule retry", logger.Error(err))
		return
	}
	r.logger.Info("task retry scheduled",
		logger.String("id", msg.ID),
		logger.Int("attempt", msg.Attempts),
		logger.String("due", due.Format(time.RFC3339)))
}

// retryMover periodically moves due retries back onto the task list.
func (r *RedisQueue) retryMover() {
	defer r.wg.Done()

	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.moveDueRetries()
		}
	}
}

func (r *RedisQueue) moveDueRetries() {
	due, err := r.client.ZRangeByScore(r.ctx, r.retryKey, &redis.ZRangeBy{
		Min: "0",
		Max: strconv.FormatInt(time.Now().Unix(), 10),
	}).Result()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		r.logger.Error("list due retries", logger.Error(err))
		return
	}

	for _, raw := range due {
		select {
		case <-r.ctx.Done():
			return
		default:
		}

		pipe := r.client.TxPipeline()
		pipe.ZRem(r.ctx, r.retryKey, raw)
		pipe.LPush(r.ctx, r.taskKey, raw)
		if _, err := pipe.Exec(r.ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Error("requeue retry", logger.Error(err))
		}
	}
}
