package utils

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestWorkerPoolConcurrencyBound(t *testing.T) {
	const maxWorkers = 3
	pool := NewWorkerPool(maxWorkers, 0)

	var current, peak int64
	for i := 0; i < 30; i++ {
		pool.Submit(func() {
			n := atomic.AddInt64(&current, 1)
			for {
				p := atomic.LoadInt64(&peak)
				if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond) // simulated UI delay
			atomic.AddInt64(&current, -1)
		})
	}
	pool.Wait()

	if peak > maxWorkers {
		t.Errorf("observed %d concurrent jobs, bound is %d", peak, maxWorkers)
	}
}

func TestWorkerPoolRateLimit(t *testing.T) {
	rateLimitMs := 100
	pool := NewWorkerPool(1, rateLimitMs)

	var timestamps []time.Time
	mu := make(chan struct{}, 1)
	mu <- struct{}{}

	for i := 0; i < 3; i++ {
		pool.Submit(func() {
			<-mu
			timestamps = append(timestamps, time.Now())
			mu <- struct{}{}
		})
	}
	pool.Wait()

	for i := 1; i < len(timestamps); i++ {
		gap := timestamps[i].Sub(timestamps[i-1])
		min := time.Duration(rateLimitMs) * time.Millisecond
		if gap < min {
			t.Errorf("gap between job %d and %d: %v < minimum %v", i-1, i, gap, min)
		}
	}
}

func TestIDSetNoDuplicates(t *testing.T) {
	s := NewIDSet()

	if !s.Add("D01_N01__D02_N01") {
		t.Error("first Add should return true")
	}
	if s.Add("D01_N01__D02_N01") {
		t.Error("second Add of same ID should return false")
	}
	if s.Size() != 1 {
		t.Errorf("size: got %d, want 1", s.Size())
	}
}

func TestIDSetConcurrency(t *testing.T) {
	s := NewIDSet()
	var added int64

	pool := NewWorkerPool(10, 0)
	for i := 0; i < 100; i++ {
		pool.Submit(func() {
			if s.Add("D01_N01__D02_N01") {
				atomic.AddInt64(&added, 1)
			}
		})
	}
	pool.Wait()

	if added != 1 {
		t.Errorf("expected exactly 1 successful add, got %d", added)
	}
}
