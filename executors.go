package fio

import (
	"context"
	"sync"

	"github.com/brickingsoft/rxp"
)

var (
	executors     rxp.Executors
	executorsErr  error
	executorsOnce sync.Once
)

// Startup
// starts the blocking executor pool with custom options.
//
// The fallback path runs every logical operation on rxp.Executors. A default
// pool is created lazily, call Startup at program start when it needs to be
// tuned, later calls have no effect on the already created pool.
func Startup(options ...rxp.Option) error {
	executorsOnce.Do(func() {
		executors, executorsErr = rxp.New(options...)
	})
	return executorsErr
}

// Shutdown
// closes the executor pool, running tasks are given no grace.
func Shutdown() error {
	if exec := Executors(); exec != nil {
		return exec.Close()
	}
	return executorsErr
}

// Executors
// returns the process-wide executor pool, nil when its creation failed.
func Executors() rxp.Executors {
	executorsOnce.Do(func() {
		executors, executorsErr = rxp.New()
	})
	return executors
}

// fnTask adapts a plain func to the executor task contract.
type fnTask func()

func (task fnTask) Handle(_ context.Context) {
	task()
}
