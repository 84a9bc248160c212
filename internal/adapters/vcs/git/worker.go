package git

import (
	"context"
	"sync"

	perr "activitymirror/internal/platform/errors"
)

type job struct {
	fn   func() error
	done chan error
}

// worker serializes blocking git work onto one goroutine
type worker struct {
	jobs chan job
	quit chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

func newWorker() *worker {
	w := &worker{jobs: make(chan job), quit: make(chan struct{})}
	w.wg.Add(1)
	go w.loop()
	return w
}

func (w *worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.quit:
			return
		case j := <-w.jobs:
			j.done <- j.fn()
		}
	}
}

// do runs fn on the worker, giving up while queued if ctx ends
// a job already running is left to finish; its ctx-aware commands stop on their own
func (w *worker) do(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	j := job{fn: fn, done: make(chan error, 1)}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-w.quit:
		return perr.Unavailablef("git worker stopped")
	case w.jobs <- j:
	}
	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *worker) stop() {
	w.once.Do(func() { close(w.quit) })
	w.wg.Wait()
}
