package ui

import (
	"sort"
	"sync"

	"terragraph/internal/graph"
	"terragraph/internal/worker"
)

// Job is the display state of one background computation.
type Job struct {
	ID      graph.ID
	Kind    string
	Percent int
}

// Progress tracks running background computations. It implements
// graph.Observer and is safe to read from a render loop.
type Progress struct {
	mu   sync.Mutex
	jobs map[graph.ID]Job
	last worker.Outcome
}

// NewProgress returns an empty tracker.
func NewProgress() *Progress { return &Progress{jobs: map[graph.ID]Job{}} }

func (p *Progress) ComputeStarted(id graph.ID, kind string) {
	p.mu.Lock()
	p.jobs[id] = Job{ID: id, Kind: kind}
	p.mu.Unlock()
}

func (p *Progress) ComputeProgress(id graph.ID, percent int) {
	p.mu.Lock()
	if j, ok := p.jobs[id]; ok {
		j.Percent = percent
		p.jobs[id] = j
	}
	p.mu.Unlock()
}

func (p *Progress) ComputeFinished(id graph.ID, _ string, outcome worker.Outcome) {
	p.mu.Lock()
	delete(p.jobs, id)
	p.last = outcome
	p.mu.Unlock()
}

// Jobs returns the running computations ordered by node ID.
func (p *Progress) Jobs() []Job {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Job, 0, len(p.jobs))
	for _, j := range p.jobs {
		out = append(out, j)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Busy reports whether any computation is running.
func (p *Progress) Busy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.jobs) > 0
}

// LastOutcome returns the outcome of the most recently finished job.
func (p *Progress) LastOutcome() worker.Outcome {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

var _ graph.Observer = (*Progress)(nil)
