package worker

import (
	"context"
	"sync"
)

// Job represents a unit of work to be executed
type Job interface {
	Execute(ctx context.Context) Result
}

// Result represents the result of a job execution
type Result interface {
	GetError() error
}

type indexedJob struct {
	index int
	job   Job
}

// canceledResult stands in for jobs that never ran
type canceledResult struct {
	err error
}

func (r *canceledResult) GetError() error { return r.err }

// Pool executes jobs on a fixed number of workers.
// Wait returns results in submission order.
type Pool struct {
	workers    int
	jobQueue   chan indexedJob
	results    []Result
	submitted  int
	mu         sync.Mutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	closeOnce  sync.Once
}

// NewPool creates a new worker pool bound to ctx
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Pool{
		workers:    workers,
		jobQueue:   make(chan indexedJob, workers*2),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start starts the worker pool
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case ij, ok := <-p.jobQueue:
			if !ok {
				return
			}
			result := ij.job.Execute(p.ctx)
			p.mu.Lock()
			p.results[ij.index] = result
			p.mu.Unlock()
		}
	}
}

// Submit submits a job to the pool. It is a no-op after Shutdown.
func (p *Pool) Submit(job Job) {
	p.mu.Lock()
	idx := p.submitted
	p.submitted++
	p.results = append(p.results, nil)
	p.mu.Unlock()

	select {
	case <-p.ctx.Done():
	case p.jobQueue <- indexedJob{index: idx, job: job}:
	}
}

// Wait waits for all submitted jobs and returns their results in submission order
func (p *Pool) Wait() []Result {
	p.closeQueue()
	p.wg.Wait()
	p.cancelFunc()
	return p.collect()
}

// Shutdown stops the pool without waiting for queued jobs
func (p *Pool) Shutdown() {
	p.cancelFunc()
	p.wg.Wait()
}

func (p *Pool) closeQueue() {
	p.closeOnce.Do(func() {
		close(p.jobQueue)
	})
}

func (p *Pool) collect() []Result {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Result, len(p.results))
	for i, r := range p.results {
		if r == nil {
			r = &canceledResult{err: context.Canceled}
			if err := p.ctx.Err(); err != nil {
				r = &canceledResult{err: err}
			}
		}
		out[i] = r
	}
	return out
}
