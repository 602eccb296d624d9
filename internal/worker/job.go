package worker

import (
	"context"
	"fmt"
	"sync/atomic"
)

type JobType int

const (
	Run JobType = iota
	Stop
)

const (
	jobPending int32 = iota
	jobRunning
	jobAbandoned
)

// Job is one unit of work handed to a worker.
type Job struct {
	Type  JobType
	key   string
	ctx   context.Context
	fn    func(context.Context) error
	done  chan error
	state *atomic.Int32
}

func newJob(ctx context.Context, key string, fn func(context.Context) error) Job {
	return Job{
		Type:  Run,
		key:   key,
		ctx:   ctx,
		fn:    fn,
		done:  make(chan error, 1),
		state: new(atomic.Int32),
	}
}

// abandon marks a queued job as not wanted anymore. It fails once a worker
// has started the job.
func (j Job) abandon() bool {
	return j.state.CompareAndSwap(jobPending, jobAbandoned)
}

// execute runs the job unless its caller gave up while it was queued.
// It reports whether fn was called.
func (j Job) execute() bool {
	if !j.state.CompareAndSwap(jobPending, jobRunning) {
		return false
	}
	if err := j.ctx.Err(); err != nil {
		j.done <- err
		return true
	}
	j.done <- j.call()
	return true
}

func (j Job) call() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return j.fn(j.ctx)
}
