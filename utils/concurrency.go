package utils

import (
	"sync"
	"time"
)

// WorkerPool runs submitted jobs on at most maxWorkers goroutines, optionally
// spacing job starts by rateLimitMs.
type WorkerPool struct {
	maxWorkers  int
	rateLimitMs int
	semaphore   chan struct{}
	wg          sync.WaitGroup
	mu          sync.Mutex
	lastRequest time.Time
}

// NewWorkerPool creates a WorkerPool with the given concurrency and rate limit.
// A non-positive maxWorkers is treated as 1.
func NewWorkerPool(maxWorkers, rateLimitMs int) *WorkerPool {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	return &WorkerPool{
		maxWorkers:  maxWorkers,
		rateLimitMs: rateLimitMs,
		semaphore:   make(chan struct{}, maxWorkers),
	}
}

// Submit enqueues a job for execution in the pool. It blocks while all
// workers are busy.
func (wp *WorkerPool) Submit(job func()) {
	wp.wg.Add(1)
	wp.semaphore <- struct{}{}

	go func() {
		defer wp.wg.Done()
		defer func() { <-wp.semaphore }()

		wp.enforceRateLimit()
		job()
	}()
}

// Wait blocks until all submitted jobs have completed.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

func (wp *WorkerPool) enforceRateLimit() {
	if wp.rateLimitMs <= 0 {
		return
	}
	wp.mu.Lock()
	defer wp.mu.Unlock()

	minInterval := time.Duration(wp.rateLimitMs) * time.Millisecond
	elapsed := time.Since(wp.lastRequest)
	if elapsed < minInterval {
		time.Sleep(minInterval - elapsed)
	}
	wp.lastRequest = time.Now()
}

// StringSet is a thread-safe set of strings, used to drop listing IDs that
// were already seen.
type StringSet struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewStringSet creates an empty StringSet.
func NewStringSet() *StringSet {
	return &StringSet{seen: make(map[string]struct{})}
}

// Add returns true if s was newly added, false if already present.
func (s *StringSet) Add(v string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.seen[v]; exists {
		return false
	}
	s.seen[v] = struct{}{}
	return true
}

// Contains reports whether v has been added.
func (s *StringSet) Contains(v string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.seen[v]
	return exists
}

// Size returns the number of unique values tracked.
func (s *StringSet) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}
