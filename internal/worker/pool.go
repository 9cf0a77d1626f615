package worker

import (
	"context"
	"sync"
)

// Task is a unit of work producing a value of type T
type Task[T any] func(ctx context.Context) T

type indexed[T any] struct {
	index int
	task  Task[T]
}

type outcome[T any] struct {
	index int
	value T
}

// Pool runs tasks on a fixed number of goroutines. Wait returns values in
// submission order regardless of completion order.
type Pool[T any] struct {
	workers    int
	jobQueue   chan indexed[T]
	results    chan outcome[T]
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	closeOnce  sync.Once

	mu        sync.Mutex
	submitted int
	collected map[int]T
	collector chan struct{}
}

// NewPool creates a pool bound to ctx; cancelling ctx stops the workers
func NewPool[T any](ctx context.Context, workers int) *Pool[T] {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Pool[T]{
		workers:    workers,
		jobQueue:   make(chan indexed[T], workers*2),
		results:    make(chan outcome[T], workers*2),
		ctx:        ctx,
		cancelFunc: cancel,
		collected:  make(map[int]T),
		collector:  make(chan struct{}),
	}
}

// Start starts the worker goroutines and the result collector
func (p *Pool[T]) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	go p.collect()
}

// collect drains results while tasks are still being submitted
func (p *Pool[T]) collect() {
	defer close(p.collector)
	for out := range p.results {
		p.mu.Lock()
		p.collected[out.index] = out.value
		p.mu.Unlock()
	}
}

func (p *Pool[T]) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			value := job.task(p.ctx)
			select {
			case p.results <- outcome[T]{index: job.index, value: value}:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// Submit queues a task. It returns false when the pool has been shut down.
// Submit must not be called concurrently with Wait.
func (p *Pool[T]) Submit(task Task[T]) bool {
	if p.ctx.Err() != nil {
		return false
	}

	p.mu.Lock()
	index := p.submitted
	p.submitted++
	p.mu.Unlock()

	select {
	case <-p.ctx.Done():
		return false
	case p.jobQueue <- indexed[T]{index: index, task: task}:
		return true
	}
}

// Wait closes the queue, waits for every task and returns the values in
// submission order. Slots of tasks that never ran hold the zero value.
func (p *Pool[T]) Wait() []T {
	close(p.jobQueue)

	p.wg.Wait()
	p.closeResults()
	<-p.collector
	p.cancelFunc()

	p.mu.Lock()
	defer p.mu.Unlock()

	values := make([]T, p.submitted)
	for index, value := range p.collected {
		values[index] = value
	}
	return values
}

// Shutdown stops the pool without waiting for queued tasks
func (p *Pool[T]) Shutdown() {
	p.cancelFunc()
	p.wg.Wait()
	p.closeResults()
	<-p.collector
}

func (p *Pool[T]) closeResults() {
	p.closeOnce.Do(func() {
		close(p.results)
	})
}

// Map applies fn to every index in [0,n) using up to workers goroutines and
// returns the values in index order. With one worker it runs inline.
func Map[T any](ctx context.Context, workers, n int, fn func(ctx context.Context, i int) T) []T {
	if n == 0 {
		return []T{}
	}

	if workers <= 1 || n == 1 {
		values := make([]T, n)
		for i := 0; i < n; i++ {
			values[i] = fn(ctx, i)
		}
		return values
	}

	if workers > n {
		workers = n
	}

	pool := NewPool[T](ctx, workers)
	pool.Start()
	for i := 0; i < n; i++ {
		i := i
		pool.Submit(func(ctx context.Context) T { return fn(ctx, i) })
	}
	return pool.Wait()
}
