package worker

import (
	"context"
	"sync"
)

// Task is a unit of work. Process returns an error to request a retry.
type Task interface {
	Process(ctx context.Context) error
}

// Pool manages a fixed set of worker goroutines draining a bounded queue.
// Tasks that keep failing end up in the dead-letter list.
type Pool struct {
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	workers      int
	tasks        chan Task
	maxRetries   int
	deadLetter   []Task
	deadLetterMu sync.Mutex
}

// Stats holds monitoring information about the pool.
type Stats struct {
	Workers     int
	QueueLength int
	DeadLetters int
}

// NewPool creates a Pool with the given worker count and queue capacity.
func NewPool(workers, queueCap int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueCap < 1 {
		queueCap = 10
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		ctx:        ctx,
		cancel:     cancel,
		workers:    workers,
		tasks:      make(chan Task, queueCap),
		maxRetries: 3,
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.workerLoop()
	}
}

// Stop signals all workers to exit and waits for them to finish.
func (p *Pool) Stop() {
	p.cancel()
	close(p.tasks)
	p.wg.Wait()
}

// Submit queues a task, returning false when the queue is full.
func (p *Pool) Submit(task Task) bool {
	select {
	case p.tasks <- task:
		return true
	default:
		return false // backpressure: queue is full
	}
}

func (p *Pool) workerLoop() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			p.processWithRetry(task)
		}
	}
}

func (p *Pool) processWithRetry(task Task) {
	for attempt := 0; attempt < p.maxRetries; attempt++ {
		select {
		case <-p.ctx.Done():
			return
		default:
		}
		if err := task.Process(p.ctx); err == nil {
			return
		}
	}
	p.deadLetterMu.Lock()
	p.deadLetter = append(p.deadLetter, task)
	p.deadLetterMu.Unlock()
}

// DeadLetterCount returns the number of tasks that exhausted their retries.
func (p *Pool) DeadLetterCount() int {
	p.deadLetterMu.Lock()
	defer p.deadLetterMu.Unlock()
	return len(p.deadLetter)
}

// Stats returns current statistics about the pool.
func (p *Pool) Stats() Stats {
	return Stats{
		Workers:     p.workers,
		QueueLength: len(p.tasks),
		DeadLetters: p.DeadLetterCount(),
	}
}
