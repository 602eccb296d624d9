package worker

import (
	"container/list"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrDispatcherBusy means the job was not accepted because the queue or
	// the caller's share of it is full.
	ErrDispatcherBusy = errors.New("dispatcher busy")
	// ErrDispatcherClosed is returned after Close.
	ErrDispatcherClosed = errors.New("dispatcher closed")
)

// DispatcherConfig sizes the worker pool and the queue in front of it.
type DispatcherConfig struct {
	MinWorkers        int
	MaxWorkers        int
	QueueSize         int
	MaxPerKey         int
	WorkerIdleTimeout time.Duration
	// OnWorkersChanged, when set, observes the number of running workers.
	OnWorkersChanged func(running int)
}

const defaultMaxPerKey = 2

type keyQueue struct {
	jobs     []Job
	enqueued bool
}

// Dispatcher runs jobs on a bounded pool, taking turns between keys so one
// client cannot starve the others.
type Dispatcher struct {
	pool      *jobChannelPool
	JobQueue  chan Job // interface for outer jobs get in the dispatcher
	maxPerKey int
	logger    zerolog.Logger

	mu        sync.Mutex
	queues    map[string]*keyQueue // job queue for each key
	ready     *list.List           // round-robin queue of keys
	positions map[string]*list.Element
	inflight  map[string]int
	quit      chan struct{}
	closeOnce sync.Once
}

func NewDispatcher(cfg DispatcherConfig, logger zerolog.Logger) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.MaxPerKey <= 0 {
		cfg.MaxPerKey = defaultMaxPerKey
	}
	d := &Dispatcher{
		JobQueue:  make(chan Job, cfg.QueueSize),
		maxPerKey: cfg.MaxPerKey,
		logger:    logger,
		queues:    make(map[string]*keyQueue),
		ready:     list.New(),
		positions: make(map[string]*list.Element),
		inflight:  make(map[string]int),
		quit:      make(chan struct{}),
	}
	d.pool = newJobChannelPool(cfg.MinWorkers, cfg.MaxWorkers, cfg.WorkerIdleTimeout, d)
	d.pool.onResize = cfg.OnWorkersChanged

	// Warm up workers.
	for i := 0; i < d.pool.min; i++ {
		d.pool.spawnWorker()
	}

	go d.run()
	return d
}

// Do runs fn on a worker and waits for it. If ctx ends while the job is
// still queued, Do returns ctx.Err() and fn is never called; once fn has
// started Do waits for it to return.
func (d *Dispatcher) Do(ctx context.Context, key string, fn func(context.Context) error) error {
	select {
	case <-d.quit:
		return ErrDispatcherClosed
	default:
	}
	if !d.reserve(key) {
		d.logger.Debug().Str("key", key).Msg("[dispatcher] per-key limit reached")
		return ErrDispatcherBusy
	}
	job := newJob(ctx, key, fn)
	select {
	case d.JobQueue <- job:
	default:
		d.finish(key)
		d.logger.Debug().Str("key", key).Msg("[dispatcher] queue full")
		return ErrDispatcherBusy
	}

	select {
	case err := <-job.done:
		return err
	case <-ctx.Done():
		if job.abandon() {
			return ctx.Err()
		}
		return <-job.done
	case <-d.quit:
		if job.abandon() {
			return ErrDispatcherClosed
		}
		return <-job.done
	}
}

func (d *Dispatcher) reserve(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.inflight[key] >= d.maxPerKey {
		return false
	}
	d.inflight[key]++
	return true
}

// finish releases the key's slot once its job is done or dropped.
func (d *Dispatcher) finish(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n := d.inflight[key]; n <= 1 {
		delete(d.inflight, key)
	} else {
		d.inflight[key] = n - 1
	}
}

func (d *Dispatcher) run() {
	for {
		// dispatch one job of the key in the front of the ready queue
		if !d.dispatchOne() {
			select {
			case job := <-d.JobQueue: // force congestion
				d.enqueueJob(job)
			case <-d.quit:
				return
			}
			continue
		}
		// if we have a new job, enqueue it and its key
		select {
		case job := <-d.JobQueue: // non-congestion
			d.enqueueJob(job)
		case <-d.quit:
			return
		default:
		}
	}
}

func (d *Dispatcher) enqueueJob(job Job) {
	d.mu.Lock()
	defer d.mu.Unlock()

	q := d.queues[job.key]
	if q == nil {
		q = &keyQueue{}
		d.queues[job.key] = q
	}
	q.jobs = append(q.jobs, job)
	if q.enqueued {
		// key already queued, skip
		return
	}
	// new key, enqueue
	q.enqueued = true
	elem := d.ready.PushBack(job.key)
	d.positions[job.key] = elem
}

// dispatchOne get first key in the ready queue and dispatch its job
func (d *Dispatcher) dispatchOne() bool {
	job, ok := d.next()
	if !ok {
		return false
	}
	workerChan := d.pool.acquire()
	if workerChan == nil {
		if job.abandon() {
			job.done <- ErrDispatcherClosed
		}
		d.finish(job.key)
		return false
	}
	d.logger.Debug().Str("key", job.key).Msg("[dispatcher] assign job")
	workerChan <- job
	return true
}

// next pops the job of the key at the front and moves that key to the back.
func (d *Dispatcher) next() (Job, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	elem := d.ready.Front()
	if elem == nil {
		return Job{}, false
	}
	key := elem.Value.(string)
	q := d.queues[key]
	// get job from the first key
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	if len(q.jobs) == 0 {
		// key only has one job, it'll be handled, key needs to quit queue
		q.enqueued = false
		d.ready.Remove(elem)
		delete(d.positions, key)
		delete(d.queues, key)
	} else {
		// get to the back of queue
		d.ready.MoveToBack(elem)
	}
	return job, true
}

// Stats reports the pool size and the number of admitted jobs.
type Stats struct {
	Workers int `json:"workers"`
	Idle    int `json:"idle"`
	Pending int `json:"pending"`
}

func (d *Dispatcher) Stats() Stats {
	running, idle := d.pool.size()
	d.mu.Lock()
	pending := 0
	for _, n := range d.inflight {
		pending += n
	}
	d.mu.Unlock()
	return Stats{Workers: running, Idle: idle, Pending: pending}
}

// Close stops accepting jobs. Running jobs finish; queued ones fail with
// ErrDispatcherClosed.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.quit)
		d.pool.close()
	})
}
