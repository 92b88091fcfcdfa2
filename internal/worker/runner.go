// Package worker runs long computations off the engine goroutine and reports
// their lifecycle as events.
package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"terragraph/internal/core"
)

// Outcome is how a job ended.
type Outcome int

const (
	Done Outcome = iota
	Stopped
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Done:
		return "done"
	case Stopped:
		return "stopped"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// EventKind distinguishes lifecycle events.
type EventKind int

const (
	Started EventKind = iota
	Progress
	Finished
)

// Event reports a change in a job's lifecycle. Seq identifies the job so that
// consumers can ignore events from jobs that have since been replaced.
type Event[K comparable] struct {
	Key     K
	Seq     uint64
	Kind    EventKind
	Percent int
	Outcome Outcome
	Result  any
	Err     error
}

// Job is a unit of background work. It must check ctx at least once per unit
// of work (a row or a pixel) and return ctx.Err() when cancelled.
type Job func(ctx context.Context, progress func(percent int)) (any, error)

var jobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "terragraph_worker_jobs_total",
	Help: "Background jobs by outcome.",
}, []string{"outcome"})

type running struct {
	seq    uint64
	cancel context.CancelFunc
}

// Runner starts at most one job per key. Starting a new job for a key cancels
// the previous one; the cancelled job still reports a Stopped outcome.
type Runner[K comparable] struct {
	mu      sync.Mutex
	seq     uint64
	jobs    map[K]running
	latest  map[K]uint64
	events  chan Event[K]
	closing chan struct{}
	closed  bool
	wg      sync.WaitGroup
}

// NewRunner creates a runner whose event channel holds buffer events.
func NewRunner[K comparable](buffer int) *Runner[K] {
	if buffer <= 0 {
		buffer = 64
	}
	return &Runner[K]{
		jobs:    map[K]running{},
		latest:  map[K]uint64{},
		events:  make(chan Event[K], buffer),
		closing: make(chan struct{}),
	}
}

// Events returns the channel lifecycle events are delivered on. It is closed
// by Close once every job has exited.
func (r *Runner[K]) Events() <-chan Event[K] { return r.events }

// Start launches job under key and returns its sequence number. It returns 0
// if the runner is closed.
func (r *Runner[K]) Start(key K, job Job) uint64 {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return 0
	}
	if prev, ok := r.jobs[key]; ok {
		prev.cancel()
	}
	r.seq++
	seq := r.seq
	ctx, cancel := context.WithCancel(context.Background())
	r.jobs[key] = running{seq: seq, cancel: cancel}
	r.latest[key] = seq
	r.wg.Add(1)
	r.mu.Unlock()

	go r.run(ctx, cancel, key, seq, job)
	return seq
}

func (r *Runner[K]) run(ctx context.Context, cancel context.CancelFunc, key K, seq uint64, job Job) {
	defer r.wg.Done()
	defer cancel()

	log := core.Logger()
	r.send(Event[K]{Key: key, Seq: seq, Kind: Started}, true)

	var pmu sync.Mutex
	last := -1
	result, err := job(ctx, func(percent int) {
		pmu.Lock()
		defer pmu.Unlock()
		if percent <= last {
			return
		}
		last = percent
		r.send(Event[K]{Key: key, Seq: seq, Kind: Progress, Percent: percent}, false)
	})
	pmu.Lock()
	defer pmu.Unlock()

	ev := Event[K]{Key: key, Seq: seq, Kind: Finished, Percent: 100}
	switch {
	case err == nil && ctx.Err() == nil:
		ev.Outcome = Done
		ev.Result = result
	case errors.Is(err, context.Canceled) || ctx.Err() != nil:
		ev.Outcome = Stopped
		ev.Percent = max(last, 0)
	default:
		ev.Outcome = Failed
		ev.Err = err
		log.Warn("worker: job failed", "key", key, "seq", seq, "err", err)
	}
	jobsTotal.WithLabelValues(ev.Outcome.String()).Inc()

	r.mu.Lock()
	if cur, ok := r.jobs[key]; ok && cur.seq == seq {
		delete(r.jobs, key)
	}
	r.mu.Unlock()

	r.send(ev, true)
}

// send delivers ev. Progress events are dropped when the buffer is full;
// lifecycle events block until delivered or the runner closes.
func (r *Runner[K]) send(ev Event[K], wait bool) {
	if !wait {
		select {
		case r.events <- ev:
		default:
		}
		return
	}
	select {
	case r.events <- ev:
	case <-r.closing:
	}
}

// Stop cancels the job running under key and reports whether one was running.
func (r *Runner[K]) Stop(key K) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.jobs[key]
	if ok {
		cur.cancel()
	}
	return ok
}

// Busy reports whether a job is running under key.
func (r *Runner[K]) Busy(key K) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.jobs[key]
	return ok
}

// Running returns the number of jobs that have not finished.
func (r *Runner[K]) Running() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// IsLatest reports whether seq is the most recent job started under key.
func (r *Runner[K]) IsLatest(key K, seq uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.latest[key] == seq
}

// Forget drops bookkeeping for key, cancelling any running job.
func (r *Runner[K]) Forget(key K) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.jobs[key]; ok {
		cur.cancel()
	}
	delete(r.latest, key)
}

// Close cancels every job, waits for them to exit and closes the event
// channel. Pending events not yet read are discarded.
func (r *Runner[K]) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	for _, j := range r.jobs {
		j.cancel()
	}
	close(r.closing)
	r.mu.Unlock()

	r.wg.Wait()
	close(r.events)
}
