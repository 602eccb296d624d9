package worker

// Worker runs jobs from its own channel until it is retired.
type Worker struct {
	pool       *jobChannelPool
	dispatcher *Dispatcher
	jobChannel chan Job
}

func NewWorker(pool *jobChannelPool, dispatcher *Dispatcher) *Worker {
	return &Worker{
		pool:       pool,
		dispatcher: dispatcher,
		// one slot so a Stop never blocks the sender
		jobChannel: make(chan Job, 1),
	}
}

func (w *Worker) Start() {
	go func() {
		for {
			if !w.pool.Release(w.jobChannel) {
				w.pool.retire(w.jobChannel)
				return
			}
			job := <-w.jobChannel
			if job.Type == Stop {
				w.pool.retire(w.jobChannel)
				return
			}
			job.execute()
			w.dispatcher.finish(job.key)
		}
	}()
}
