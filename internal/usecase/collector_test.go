package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"opinionpointer/internal/domain/models"
	internalrepo "opinionpointer/internal/repository"
	"opinionpointer/pkg/queue"
)

type fakeQueue struct {
	published []queue.Message
	failNext  bool
}

func (q *fakeQueue) PublishMessage(_ context.Context, msgType string, payload interface{}) error {
	if q.failNext {
		q.failNext = false
		return errors.New("queue full")
	}
	q.published = append(q.published, queue.Message{Type: msgType, Payload: payload})
	return nil
}

type fakeFetcher struct {
	items   int
	err     error
	fetched []string
}

func (f *fakeFetcher) FetchChannel(_ context.Context, ch models.Channel) (int, error) {
	f.fetched = append(f.fetched, ch.Name)
	return f.items, f.err
}

func newTestCollector(t *testing.T, store *fakeStore, fetcher *fakeFetcher, q *fakeQueue, m *fakeMetrics) *Collector {
	t.Helper()
	return NewCollector(store, fetcher, internalrepo.NopEventPublisher{}, q, m, testLogger(t),
		time.Minute, 100)
}

func TestScheduleOnceEnqueuesPerChannel(t *testing.T) {
	store := &fakeStore{activeChannels: []models.Channel{
		{ID: 1, Name: "alpha", URL: "http://example.test/a"},
		{ID: 2, Name: "beta", URL: "http://example.test/b"},
	}}
	q := &fakeQueue{}
	c := newTestCollector(t, store, &fakeFetcher{}, q, &fakeMetrics{})

	if err := c.ScheduleOnce(context.Background()); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if len(store.createdJobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(store.createdJobs))
	}
	if len(q.published) != 2 {
		t.Fatalf("expected 2 enqueued messages, got %d", len(q.published))
	}
	if q.published[0].Type != collectMsgType {
		t.Fatalf("unexpected message type %s", q.published[0].Type)
	}
}

func TestScheduleOnceMarksFailedOnEnqueueError(t *testing.T) {
	store := &fakeStore{activeChannels: []models.Channel{{ID: 1, Name: "alpha"}}}
	q := &fakeQueue{failNext: true}
	c := newTestCollector(t, store, &fakeFetcher{}, q, &fakeMetrics{})

	if err := c.ScheduleOnce(context.Background()); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if len(store.failedReasons) != 1 {
		t.Fatalf("expected 1 failed job, got %d", len(store.failedReasons))
	}
}

func TestCollectJobSuccess(t *testing.T) {
	store := &fakeStore{}
	fetcher := &fakeFetcher{items: 42}
	m := &fakeMetrics{}
	c := newTestCollector(t, store, fetcher, &fakeQueue{}, m)

	payload := CollectPayload{JobID: 7, Channel: models.Channel{ID: 3, Name: "alpha"}}
	if err := c.Job().Handle(context.Background(), payload); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if store.insertions != 1 {
		t.Fatalf("expected 1 collection insert, got %d", store.insertions)
	}
	if len(fetcher.fetched) != 1 || fetcher.fetched[0] != "alpha" {
		t.Fatalf("unexpected fetches: %v", fetcher.fetched)
	}
}

func TestCollectJobFetchFailureMarksJob(t *testing.T) {
	store := &fakeStore{}
	fetcher := &fakeFetcher{err: errors.New("timeout")}
	c := newTestCollector(t, store, fetcher, &fakeQueue{}, &fakeMetrics{})

	payload := CollectPayload{JobID: 9, Channel: models.Channel{ID: 1, Name: "beta"}}
	if err := c.Job().Handle(context.Background(), payload); err == nil {
		t.Fatalf("expected error")
	}
	if store.failedReasons[9] == "" {
		t.Fatalf("expected job 9 marked failed")
	}
	if store.insertions != 0 {
		t.Fatalf("no collection should be stored on failure")
	}
}

func TestCollectJobParsesMapPayload(t *testing.T) {
	store := &fakeStore{}
	c := newTestCollector(t, store, &fakeFetcher{items: 3}, &fakeQueue{}, &fakeMetrics{})

	// queue delivery decodes JSON into a generic map
	payload := map[string]interface{}{
		"job_id":  float64(11),
		"channel": map[string]interface{}{"id": float64(2), "name": "gamma"},
	}
	if err := c.Job().Handle(context.Background(), payload); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if store.insertions != 1 {
		t.Fatalf("expected 1 insert, got %d", store.insertions)
	}
}
