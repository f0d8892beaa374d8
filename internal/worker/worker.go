package worker

// Job is one unit of turn work bound to a chat. Jobs of the same chat are
// executed strictly in submission order; jobs of different chats run
// concurrently.
type Job struct {
	ChatID int64
	Run    func()

	stop bool
}

type Worker struct {
	pool       *jobChannelPool
	jobChannel chan Job
	quit       chan struct{}
}

func NewWorker(pool *jobChannelPool) *Worker {
	return &Worker{
		pool:       pool,
		jobChannel: make(chan Job),
		quit:       make(chan struct{}),
	}
}

func (w *Worker) Start() {
	go func() {
		for {
			select {
			case job := <-w.jobChannel:
				if job.stop {
					w.pool.retire(w.jobChannel)
					return
				}
				if job.Run != nil {
					job.Run()
				}
				w.pool.Release(w.jobChannel)
			case <-w.quit:
				w.pool.retire(w.jobChannel)
				return
			}
		}
	}()
}

func (w *Worker) Stop() {
	close(w.quit)
}
