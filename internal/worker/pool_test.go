package worker

import (
	"context"
	"sync"
	"testing"
)

func TestPoolRunsSubmittedJobs(t *testing.T) {
	pool := NewPool(2)
	pool.Start()

	var mu sync.Mutex
	ran := 0
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		ok := pool.Submit(Job{
			Name: "test",
			Run: func(ctx context.Context) {
				defer wg.Done()
				mu.Lock()
				ran++
				mu.Unlock()
			},
		})
		if !ok {
			wg.Done()
		}
	}

	wg.Wait()
	pool.Stop()

	if ran != 10 {
		t.Errorf("expected 10 jobs to run, got %d", ran)
	}
}

func TestPoolRecoversFromPanics(t *testing.T) {
	pool := NewPool(1)
	pool.Start()

	var wg sync.WaitGroup
	wg.Add(2)

	pool.Submit(Job{Name: "boom", Run: func(ctx context.Context) {
		defer wg.Done()
		panic("job exploded")
	}})

	ran := false
	pool.Submit(Job{Name: "after", Run: func(ctx context.Context) {
		defer wg.Done()
		ran = true
	}})

	wg.Wait()
	pool.Stop()

	if !ran {
		t.Error("a panicking job must not kill the worker")
	}
}

func TestPoolDropsWhenQueueFull(t *testing.T) {
	pool := NewPool(1) // never started, so the queue only drains by capacity

	dropped := false
	for i := 0; i < 600; i++ {
		if !pool.Submit(Job{Name: "fill", Run: func(ctx context.Context) {}}) {
			dropped = true
			break
		}
	}
	if !dropped {
		t.Error("submit must be non-blocking and report a full queue")
	}
}
