// Package scheduler keeps the durable list of scheduled posts and dispatches
// the ones that come due.
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"tiktok-signin-go/internal/metrics"
	"tiktok-signin-go/internal/worker"
)

// Publisher performs the actual publication of a due post.
type Publisher interface {
	Publish(ctx context.Context, post *Post) error
}

// LogPublisher is the default Publisher: it only records the dispatch.
// Posting to the provider's content API is a separate concern.
type LogPublisher struct {
	Logger *log.Logger
}

// Publish logs the post being dispatched.
func (p *LogPublisher) Publish(ctx context.Context, post *Post) error {
	p.Logger.Printf("scheduler: publishing post %s for %s", post.ID, post.OpenID)
	return nil
}

// Scheduler polls for due posts and hands them to the worker pool.
type Scheduler struct {
	store     *PostStore
	pool      *worker.Pool
	publisher Publisher
	interval  time.Duration
	logger    *log.Logger

	// inFlight tracks posts already handed to the pool so a later poll
	// cannot submit the same post a second time.
	inFlightMu sync.Mutex
	inFlight   map[string]struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a Scheduler polling at the given interval.
func NewScheduler(store *PostStore, pool *worker.Pool, publisher Publisher, interval time.Duration, logger *log.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		store:     store,
		pool:      pool,
		publisher: publisher,
		interval:  interval,
		logger:    logger,
		inFlight:  make(map[string]struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Schedule validates and stores a new post.
func (s *Scheduler) Schedule(ctx context.Context, post *Post) error {
	if err := s.store.Create(ctx, post); err != nil {
		return err
	}
	metrics.PostsScheduled.Inc()
	s.logger.Printf("scheduler: post %s scheduled for %s", post.ID, post.ScheduledAt.Format(time.RFC3339))
	return nil
}

// List returns the posts for an account.
func (s *Scheduler) List(ctx context.Context, openID string) ([]*Post, error) {
	return s.store.List(ctx, openID)
}

// Start launches the polling loop.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.run()
}

// Stop halts the polling loop and waits for it to exit.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) run() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.DispatchDue(s.ctx, time.Now())
		}
	}
}

// DispatchDue submits every due post to the worker pool. Exported so tests
// and the polling loop share one path. Posts already in flight are skipped;
// their row still reads scheduled until the task records the outcome.
func (s *Scheduler) DispatchDue(ctx context.Context, now time.Time) {
	due, err := s.store.Due(ctx, now)
	if err != nil {
		s.logger.Printf("scheduler: failed to query due posts: %v", err)
		return
	}
	for _, post := range due {
		if !s.markInFlight(post.ID) {
			continue
		}
		task := &publishTask{store: s.store, publisher: s.publisher, post: post, logger: s.logger, done: s.clearInFlight}
		if !s.pool.Submit(task) {
			s.clearInFlight(post.ID)
			s.logger.Printf("scheduler: worker queue full, post %s stays scheduled", post.ID)
		}
	}
}

// markInFlight claims a post for dispatch. Returns false when it is already
// claimed.
func (s *Scheduler) markInFlight(id string) bool {
	s.inFlightMu.Lock()
	defer s.inFlightMu.Unlock()
	if _, ok := s.inFlight[id]; ok {
		return false
	}
	s.inFlight[id] = struct{}{}
	return true
}

func (s *Scheduler) clearInFlight(id string) {
	s.inFlightMu.Lock()
	defer s.inFlightMu.Unlock()
	delete(s.inFlight, id)
}

// publishTask publishes one post and records the status transition.
type publishTask struct {
	store     *PostStore
	publisher Publisher
	post      *Post
	logger    *log.Logger
	done      func(id string)

	published bool
	status    string
}

// Process implements worker.Task. The publish attempt happens exactly once;
// its outcome is latched on the task so pool retries re-run only the status
// write. Publication failure is terminal for the post (it transitions to
// failed). A post whose status write never lands stays claimed, keeping later
// polls from publishing it again.
func (t *publishTask) Process(ctx context.Context) error {
	if !t.published {
		t.status = StatusPosted
		if err := t.publisher.Publish(ctx, t.post); err != nil {
			t.logger.Printf("scheduler: failed to publish post %s: %v", t.post.ID, err)
			t.status = StatusFailed
		}
		t.published = true
	}
	if err := t.store.UpdateStatus(ctx, t.post.ID, t.status); err != nil {
		return err
	}
	metrics.PostsDispatched.WithLabelValues(t.status).Inc()
	if t.done != nil {
		t.done(t.post.ID)
	}
	return nil
}
