package worker

import (
	"context"
	"log"
	"sync"
)

// Job is one unit of background work, typically a per-user sync run
type Job struct {
	Name string
	Run  func(ctx context.Context)
}

// Pool processes background jobs on a fixed set of workers. The queue is
// buffered and submission is non-blocking: when the queue is full the job is
// dropped and the caller is told, since sync jobs are re-triggered by the
// next push notification anyway.
type Pool struct {
	jobQueue    chan Job
	workerWg    sync.WaitGroup
	workerCount int
	started     bool
	mu          sync.Mutex
}

// NewPool creates a new worker pool
func NewPool(workerCount int) *Pool {
	if workerCount <= 0 {
		workerCount = 3
	}

	return &Pool{
		jobQueue:    make(chan Job, 500),
		workerCount: workerCount,
	}
}

// Start starts the workers
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return
	}

	for i := 0; i < p.workerCount; i++ {
		p.workerWg.Add(1)
		go p.worker(i)
	}
	p.started = true
	log.Printf("[WorkerPool] Started %d workers", p.workerCount)
}

// Stop stops all workers gracefully, draining the queue first
func (p *Pool) Stop() {
	close(p.jobQueue)
	p.workerWg.Wait()
	log.Println("[WorkerPool] All workers stopped")
}

func (p *Pool) worker(id int) {
	defer p.workerWg.Done()

	for job := range p.jobQueue {
		p.runJob(job)
	}

	log.Printf("[WorkerPool] Worker %d stopped", id)
}

func (p *Pool) runJob(job Job) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[WorkerPool] Job %s panicked: %v", job.Name, r)
		}
	}()
	job.Run(context.Background())
}

// Submit adds a job to the queue (non-blocking)
func (p *Pool) Submit(job Job) bool {
	select {
	case p.jobQueue <- job:
		return true
	default:
		log.Printf("[WorkerPool] Queue full, dropping job %s", job.Name)
		return false
	}
}
