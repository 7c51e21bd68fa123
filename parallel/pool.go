// Package parallel runs independent jobs on a bounded set of goroutines.
package parallel

import (
	"runtime"
	"sync"
)

// Pool runs submitted jobs on a fixed number of workers. With a single
// worker jobs run inline in Do.
type Pool struct {
	wg   sync.WaitGroup
	jobs chan func()
	stop func()
}

// Start launches numWorkers workers. numWorkers < 1 uses GOMAXPROCS.
func Start(numWorkers int) *Pool {
	if numWorkers < 1 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	pool := &Pool{
		stop: func() {},
	}

	if numWorkers > 1 {
		pool.jobs = make(chan func(), numWorkers)

		for range numWorkers {
			pool.wg.Go(func() {
				for f := range pool.jobs {
					f()
				}
			})
		}

		pool.stop = sync.OnceFunc(func() { close(pool.jobs) })
	}

	return pool
}

// Do submits f. It blocks while all workers are busy and the queue is full.
// Do must not be called after Wait.
func (p *Pool) Do(f func()) {
	if p.jobs == nil {
		f()
		return
	}

	p.jobs <- f
}

// Wait stops accepting jobs and returns once every submitted job finished.
func (p *Pool) Wait() {
	p.stop()
	p.wg.Wait()
}
