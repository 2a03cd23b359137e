// Package coordinate schedules tile work: request fingerprinting,
// single-flight collapse of duplicate renders, a bounded CPU pool for
// decode/resample/encode stages, neighbor prefetch, and startup warming.
package coordinate

import (
	"context"
	"fmt"
	"runtime"
	"sync"
)

// Pool is a long-lived bounded worker pool for CPU-bound stages.
//
// Render tasks are submitted from request goroutines that are otherwise
// parked on I/O; running decode and encode here keeps them off the
// serving goroutines and caps concurrent CPU work at the worker count.
type Pool struct {
	tasks  chan poolTask
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

type poolTask struct {
	run  func() error
	done chan error
}

// NewPool starts a pool with workers goroutines (NumCPU when <= 0).
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		tasks:  make(chan poolTask, workers*2),
		ctx:    ctx,
		cancel: cancel,
	}
	for range workers {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case t, ok := <-p.tasks:
			if !ok {
				return
			}
			t.done <- t.run()
		}
	}
}

// Run submits fn and waits for it. Submission and completion both
// respect ctx: a caller past its deadline stops waiting, but a task
// already running completes (its result feeds the cache either way).
func (p *Pool) Run(ctx context.Context, fn func() error) error {
	t := poolTask{run: fn, done: make(chan error, 1)}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return fmt.Errorf("pool closed")
	case p.tasks <- t:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-t.done:
		return err
	}
}

// Close stops the workers after in-flight tasks finish.
func (p *Pool) Close() {
	p.cancel()
	p.wg.Wait()
}
