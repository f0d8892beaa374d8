package worker

import (
	"container/list"
	"errors"
	"sync"
	"time"
)

// ErrDispatcherBusy reports a full intake queue.
var ErrDispatcherBusy = errors.New("dispatcher queue full")

type chatQueue struct {
	jobs     []Job
	enqueued bool
}

type DispatcherConfig struct {
	MinWorkers  int
	MaxWorkers  int
	QueueSize   int
	IdleTimeout time.Duration
}

// Dispatcher serializes jobs per chat while letting distinct chats run
// concurrently on the worker pool. It is the component that upholds the
// at-most-one-in-flight-turn-per-conversation obligation.
type Dispatcher struct {
	pool     *jobChannelPool
	jobQueue chan Job
	kick     chan struct{}

	mu        sync.Mutex
	queues    map[int64]*chatQueue // pending jobs for each chat
	ready     *list.List           // round-robin queue of chat IDs with pending jobs
	positions map[int64]*list.Element
	inflight  map[int64]bool
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.MinWorkers <= 0 {
		cfg.MinWorkers = 2
	}
	if cfg.MaxWorkers < cfg.MinWorkers {
		cfg.MaxWorkers = cfg.MinWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}

	d := &Dispatcher{
		queues:    make(map[int64]*chatQueue),
		ready:     list.New(),
		positions: make(map[int64]*list.Element),
		inflight:  make(map[int64]bool),
		pool:      newJobChannelPool(cfg.MinWorkers, cfg.MaxWorkers, cfg.IdleTimeout),
		jobQueue:  make(chan Job, cfg.QueueSize),
		kick:      make(chan struct{}, 1),
	}

	// Warm up workers so the first turns do not pay spawn latency.
	for i := 0; i < cfg.MinWorkers; i++ {
		d.pool.spawnWorker()
	}

	go d.run()
	return d
}

// Submit hands a job to the dispatcher without blocking.
func (d *Dispatcher) Submit(job Job) error {
	select {
	case d.jobQueue <- job:
		return nil
	default:
		return ErrDispatcherBusy
	}
}

func (d *Dispatcher) run() {
	for {
		// dispatch one job of the first ready chat
		if !d.dispatchOne() {
			select {
			case job := <-d.jobQueue: // force congestion
				d.enqueueJob(job)
			case <-d.kick: // a chat finished its in-flight job
			}
			continue
		}
		// if we have a new job, enqueue it and its chat
		select {
		case job := <-d.jobQueue: // non-congestion
			d.enqueueJob(job)
		default:
		}
	}
}

// CancelChat drops all pending jobs for a chat.
func (d *Dispatcher) CancelChat(chatID int64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.queues, chatID)
	if elem, ok := d.positions[chatID]; ok {
		d.ready.Remove(elem)
		delete(d.positions, chatID)
	}
}

func (d *Dispatcher) enqueueJob(job Job) {
	d.mu.Lock()
	defer d.mu.Unlock()

	q := d.queues[job.ChatID]
	if q == nil {
		q = &chatQueue{}
		d.queues[job.ChatID] = q
	}
	q.jobs = append(q.jobs, job)
	if q.enqueued {
		// chat already enqueued, skip
		return
	}
	q.enqueued = true
	elem := d.ready.PushBack(job.ChatID)
	d.positions[job.ChatID] = elem
}

// dispatchOne runs the oldest job of the first ready chat that has no
// job in flight. One in-flight job per chat keeps turns of the same
// conversation strictly ordered.
func (d *Dispatcher) dispatchOne() bool {
	d.mu.Lock()
	for elem := d.ready.Front(); elem != nil; elem = elem.Next() {
		chatID := elem.Value.(int64)
		if d.inflight[chatID] {
			continue
		}
		q := d.queues[chatID]
		job := q.jobs[0]
		q.jobs = q.jobs[1:]
		if len(q.jobs) == 0 {
			// chat has no more pending jobs, leave the ready queue
			q.enqueued = false
			d.ready.Remove(elem)
			delete(d.positions, chatID)
		} else {
			// move to the back of the queue
			d.ready.MoveToBack(elem)
		}
		d.inflight[chatID] = true
		d.mu.Unlock()

		run := job.Run
		job.Run = func() {
			if run != nil {
				run()
			}
			d.jobDone(chatID)
		}

		workerChan := d.pool.acquire()
		debugLog("[dispatcher] assign job for chat %d", chatID)
		workerChan <- job
		return true
	}
	d.mu.Unlock()
	return false
}

func (d *Dispatcher) jobDone(chatID int64) {
	d.mu.Lock()
	delete(d.inflight, chatID)
	d.mu.Unlock()

	select {
	case d.kick <- struct{}{}:
	default:
	}
}
