package utils

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestStringSetNoDuplicates(t *testing.T) {
	s := NewStringSet()

	if !s.Add("12345") {
		t.Error("first Add should return true")
	}
	if s.Add("12345") {
		t.Error("second Add of same ID should return false")
	}
	if !s.Contains("12345") {
		t.Error("Contains should report an added ID")
	}
	if s.Size() != 1 {
		t.Errorf("size: got %d, want 1", s.Size())
	}
}

func TestStringSetConcurrency(t *testing.T) {
	s := NewStringSet()
	var added int64

	pool := NewWorkerPool(10, 0)
	for i := 0; i < 100; i++ {
		pool.Submit(func() {
			if s.Add("same") {
				atomic.AddInt64(&added, 1)
			}
		})
	}
	pool.Wait()

	if added != 1 {
		t.Errorf("expected exactly 1 successful add, got %d", added)
	}
}

func TestWorkerPoolBoundsConcurrency(t *testing.T) {
	const workers = 3
	pool := NewWorkerPool(workers, 0)

	var running, peak int64
	for i := 0; i < 20; i++ {
		pool.Submit(func() {
			n := atomic.AddInt64(&running, 1)
			for {
				p := atomic.LoadInt64(&peak)
				if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt64(&running, -1)
		})
	}
	pool.Wait()

	if peak > workers {
		t.Errorf("peak concurrency %d exceeds pool size %d", peak, workers)
	}
}

func TestWorkerPoolRateLimit(t *testing.T) {
	rateLimitMs := 100
	pool := NewWorkerPool(1, rateLimitMs)

	var mu sync.Mutex
	var timestamps []time.Time

	for i := 0; i < 3; i++ {
		pool.Submit(func() {
			mu.Lock()
			timestamps = append(timestamps, time.Now())
			mu.Unlock()
		})
	}
	pool.Wait()

	// The first job may start immediately; later ones must respect the spacing.
	min := time.Duration(rateLimitMs) * time.Millisecond
	for i := 2; i < len(timestamps); i++ {
		gap := timestamps[i].Sub(timestamps[i-1])
		if gap < min-5*time.Millisecond {
			t.Errorf("gap between job %d and %d: %v < minimum %v", i-1, i, gap, min)
		}
	}
}
