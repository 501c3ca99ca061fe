// Package dispatcher implements the bounded worker-pool pattern shared by
// the PR-review, issue-copier and issue-scorer workers: a fixed number of
// goroutines pull jobs off a bounded FIFO queue, serialise execution per key
// (so two webhooks for the same PR or issue never run concurrently), and
// retry transient failures with exponential backoff.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// ErrQueueFull is returned by Enqueue when the bounded queue has no room.
// Callers (the webhook handlers) translate this into a 503 so GitHub retries.
var ErrQueueFull = errors.New("dispatcher: queue is full")

// ErrQueueClosed is returned by Enqueue after Shutdown has been called.
var ErrQueueClosed = errors.New("dispatcher: queue is closed")

// Job is anything that can be dispatched. Key identifies the serialisation
// group: jobs sharing a Key never run concurrently (e.g. "owner/repo#42").
type Job interface {
	Key() string
}

// Executor runs a single job to completion.
type Executor[T Job] interface {
	Execute(ctx context.Context, job T) error
}

// Config controls dispatcher behaviour.
type Config struct {
	Workers           int
	QueueSize         int
	MaxAttempts       int
	InitialBackoff    time.Duration
	BackoffMultiplier float64
	MaxBackoff        time.Duration
}

func normalizeConfig(cfg Config) Config {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = cfg.Workers * 8
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = time.Second
	}
	if cfg.BackoffMultiplier <= 1 {
		cfg.BackoffMultiplier = 4
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 16 * time.Second
	}
	return cfg
}

// Dispatcher serialises execution per key and retries failed jobs with backoff.
type Dispatcher[T Job] struct {
	executor       Executor[T]
	cfg            Config
	isNonRetryable func(error) bool

	queue      chan queueItem[T]
	keyedLocks *keyedMutex

	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

type queueItem[T Job] struct {
	job     T
	attempt int
}

// New creates a dispatcher and starts its worker pool. isNonRetryable may be
// nil, in which case every failure is retried up to cfg.MaxAttempts.
func New[T Job](executor Executor[T], cfg Config, isNonRetryable func(error) bool) *Dispatcher[T] {
	if isNonRetryable == nil {
		isNonRetryable = func(error) bool { return false }
	}
	d := &Dispatcher[T]{
		executor:       executor,
		cfg:            normalizeConfig(cfg),
		isNonRetryable: isNonRetryable,
		keyedLocks:     newKeyedMutex(),
		stopCh:         make(chan struct{}),
	}
	d.queue = make(chan queueItem[T], d.cfg.QueueSize)
	d.startWorkers()
	return d
}

func (d *Dispatcher[T]) startWorkers() {
	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

// Enqueue queues a job for execution. Returns ErrQueueFull if the bounded
// queue has no capacity (the caller should answer the webhook with 503) and
// ErrQueueClosed once Shutdown has started.
func (d *Dispatcher[T]) Enqueue(job T) error {
	select {
	case <-d.stopCh:
		return ErrQueueClosed
	default:
	}

	select {
	case d.queue <- queueItem[T]{job: job, attempt: 1}:
		return nil
	default:
		return ErrQueueFull
	}
}

func (d *Dispatcher[T]) worker() {
	defer d.wg.Done()

	for {
		select {
		case <-d.stopCh:
			return
		case item, ok := <-d.queue:
			if !ok {
				return
			}
			d.process(item)
		}
	}
}

func (d *Dispatcher[T]) process(item queueItem[T]) {
	key := item.job.Key()
	d.keyedLocks.Lock(key)

	// Lock is held only across Execute, never across anything else: blocking
	// I/O (GitHub calls, CLI subprocess) happens inside Execute, so the lock
	// is released the moment that returns.
	ctx := context.Background()
	err := d.executor.Execute(ctx, item.job)

	d.keyedLocks.Unlock(key)

	if err != nil {
		log.Printf("[Dispatcher] job %q attempt %d failed: %v", key, item.attempt, err)
		if d.isNonRetryable(err) {
			log.Printf("[Dispatcher] job %q non-retryable, giving up", key)
			return
		}
		d.handleRetry(item, err)
		return
	}

	log.Printf("[Dispatcher] job %q attempt %d succeeded", key, item.attempt)
}

func (d *Dispatcher[T]) handleRetry(item queueItem[T], execErr error) {
	if item.attempt >= d.cfg.MaxAttempts {
		log.Printf("[Dispatcher] job %q exceeded max attempts (%d): %v", item.job.Key(), d.cfg.MaxAttempts, execErr)
		return
	}

	nextAttempt := item.attempt + 1
	delay := d.backoffDuration(nextAttempt)
	log.Printf("[Dispatcher] scheduling retry %d for %q in %s", nextAttempt, item.job.Key(), delay)

	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-timer.C:
			d.enqueueRetry(queueItem[T]{job: item.job, attempt: nextAttempt})
		case <-d.stopCh:
			return
		}
	}()
}

func (d *Dispatcher[T]) enqueueRetry(item queueItem[T]) {
	for {
		select {
		case <-d.stopCh:
			return
		case d.queue <- item:
			return
		default:
			time.Sleep(50 * time.Millisecond)
		}
	}
}

func (d *Dispatcher[T]) backoffDuration(attempt int) time.Duration {
	backoff := float64(d.cfg.InitialBackoff)
	for i := 1; i < attempt; i++ {
		backoff *= d.cfg.BackoffMultiplier
		if backoff >= float64(d.cfg.MaxBackoff) {
			return d.cfg.MaxBackoff
		}
	}
	return time.Duration(backoff)
}

// Shutdown stops accepting new jobs and waits (bounded by ctx) for in-flight
// workers to drain.
func (d *Dispatcher[T]) Shutdown(ctx context.Context) {
	d.once.Do(func() {
		close(d.stopCh)
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		d.wg.Wait()
	}()

	select {
	case <-ctx.Done():
	case <-done:
	}
}

// String renders the config for log lines identifying which pool reports.
func (cfg Config) String() string {
	return fmt.Sprintf("workers=%d queue=%d maxAttempts=%d", cfg.Workers, cfg.QueueSize, cfg.MaxAttempts)
}

type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) Lock(key string) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
}

func (k *keyedMutex) Unlock(key string) {
	k.mu.Lock()
	m, ok := k.locks[key]
	k.mu.Unlock()

	if !ok {
		return
	}

	m.Unlock()
}
