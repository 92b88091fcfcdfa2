// Package graph owns a set of nodes and the edges between them and keeps
// every cached output consistent with its inputs and parameters.
package graph

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"terragraph/internal/core"
	"terragraph/internal/node"
	"terragraph/internal/worker"
)

// ID identifies a node within an engine. IDs are never reused.
type ID int

// Edge connects an output slot of one node to an input slot of another.
type Edge struct {
	From     ID
	FromSlot int
	To       ID
	ToSlot   int
}

func (e Edge) String() string {
	return fmt.Sprintf("%d:%d -> %d:%d", e.From, e.FromSlot, e.To, e.ToSlot)
}

// Observer receives the lifecycle of background computations.
type Observer interface {
	ComputeStarted(id ID, kind string)
	ComputeProgress(id ID, percent int)
	ComputeFinished(id ID, kind string, outcome worker.Outcome)
}

// Engine is not safe for concurrent use. Every method must be called from
// the goroutine that owns it; Run serializes calls from elsewhere.
type Engine struct {
	catalog  *node.Catalog
	settings *core.Settings

	next     ID
	nodes    map[ID]node.Node
	incoming map[ID]map[int]Edge
	outgoing map[ID][]Edge

	runner    *worker.Runner[ID]
	pending   map[ID]uint64
	observers []Observer

	dirty atomic.Bool
	wake  chan struct{}
}

// New creates an engine that builds nodes from cat. When the catalog's
// environment carries Settings, resolution changes regenerate every node
// whose output size follows the resolution.
func New(cat *node.Catalog) *Engine {
	e := &Engine{
		catalog:  cat,
		nodes:    map[ID]node.Node{},
		incoming: map[ID]map[int]Edge{},
		outgoing: map[ID][]Edge{},
		runner:   worker.NewRunner[ID](256),
		pending:  map[ID]uint64{},
		wake:     make(chan struct{}, 1),
	}
	if cat != nil {
		e.settings = cat.Env().Settings
	}
	if e.settings != nil {
		e.settings.Subscribe(func() {
			e.dirty.Store(true)
			select {
			case e.wake <- struct{}{}:
			default:
			}
		})
	}
	return e
}

// Observe registers o for background compute notifications.
func (e *Engine) Observe(o Observer) { e.observers = append(e.observers, o) }

// Settings returns the settings service shared with the nodes, if any.
func (e *Engine) Settings() *core.Settings { return e.settings }

// Add takes ownership of n, computes its initial outputs and returns its ID.
func (e *Engine) Add(n node.Node) ID {
	e.next++
	id := e.next
	e.nodes[id] = n
	e.incoming[id] = map[int]Edge{}
	nodesGauge.Inc()
	e.propagate(id)
	return id
}

// AddKind builds a node of kind from the catalog and adds it.
func (e *Engine) AddKind(kind string) (ID, error) {
	if e.catalog == nil {
		return 0, fmt.Errorf("graph: no catalog: %w", node.ErrUnknownKind)
	}
	n, err := e.catalog.New(kind)
	if err != nil {
		return 0, err
	}
	return e.Add(n), nil
}

// Remove deletes a node and its edges. Dependents fall back to their
// defaults and are recomputed.
func (e *Engine) Remove(id ID) error {
	if _, ok := e.nodes[id]; !ok {
		return errorf(ErrUnknownNode, "remove %d", id)
	}
	for _, edge := range e.incoming[id] {
		e.dropOutgoing(edge)
	}
	out := e.outgoing[id]
	delete(e.outgoing, id)
	delete(e.incoming, id)
	delete(e.nodes, id)
	delete(e.pending, id)
	e.runner.Forget(id)
	nodesGauge.Dec()

	seeds := make([]ID, 0, len(out))
	for _, edge := range out {
		delete(e.incoming[edge.To], edge.ToSlot)
		e.nodes[edge.To].Unbind(edge.ToSlot)
		seeds = append(seeds, edge.To)
	}
	e.propagate(seeds...)
	return nil
}

// Node returns the node registered under id.
func (e *Engine) Node(id ID) (node.Node, bool) {
	n, ok := e.nodes[id]
	return n, ok
}

// Nodes returns every node ID in ascending order.
func (e *Engine) Nodes() []ID {
	ids := make([]ID, 0, len(e.nodes))
	for id := range e.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Edges returns every edge ordered by destination and slot.
func (e *Engine) Edges() []Edge {
	var edges []Edge
	for _, in := range e.incoming {
		for _, edge := range in {
			edges = append(edges, edge)
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].To != edges[j].To {
			return edges[i].To < edges[j].To
		}
		return edges[i].ToSlot < edges[j].ToSlot
	})
	return edges
}

// Output returns the cached value of an output slot.
func (e *Engine) Output(id ID, slot int) (node.Value, error) {
	n, ok := e.nodes[id]
	if !ok {
		return node.Value{}, errorf(ErrUnknownNode, "output of %d", id)
	}
	if slot < 0 || slot >= len(n.Outputs()) {
		return node.Value{}, errorf(ErrSlotRange, "output %d of %s %d", slot, n.Kind(), id)
	}
	return n.Output(slot), nil
}

// Connect adds an edge after validating both endpoints, port types, that
// the input slot is free and that no cycle results. A rejected edit leaves
// the graph unchanged. On success the source's cached output is pushed into
// the destination and dependents are recomputed.
func (e *Engine) Connect(from ID, fromSlot int, to ID, toSlot int) (Edge, error) {
	edge := Edge{From: from, FromSlot: fromSlot, To: to, ToSlot: toSlot}
	if err := e.validate(edge); err != nil {
		var ge *Error
		if errors.As(err, &ge) {
			rejectedEdits.WithLabelValues(ge.Kind.Error()).Inc()
		}
		return Edge{}, err
	}
	e.incoming[to][toSlot] = edge
	e.outgoing[from] = append(e.outgoing[from], edge)
	core.Logger().Debug("graph: connect", "edge", edge.String())
	e.propagate(to)
	return edge, nil
}

func (e *Engine) validate(edge Edge) error {
	src, ok := e.nodes[edge.From]
	if !ok {
		return errorf(ErrUnknownNode, "source %d", edge.From)
	}
	dst, ok := e.nodes[edge.To]
	if !ok {
		return errorf(ErrUnknownNode, "destination %d", edge.To)
	}
	outs, ins := src.Outputs(), dst.Inputs()
	if edge.FromSlot < 0 || edge.FromSlot >= len(outs) {
		return errorf(ErrSlotRange, "output %d of %s has %d slots", edge.FromSlot, src.Kind(), len(outs))
	}
	if edge.ToSlot < 0 || edge.ToSlot >= len(ins) {
		return errorf(ErrSlotRange, "input %d of %s has %d slots", edge.ToSlot, dst.Kind(), len(ins))
	}
	if outs[edge.FromSlot].Type != ins[edge.ToSlot].Type {
		return errorf(ErrTypeMismatch, "%s %s -> %s %s",
			src.Kind(), outs[edge.FromSlot].Type, dst.Kind(), ins[edge.ToSlot].Type)
	}
	if prev, ok := e.incoming[edge.To][edge.ToSlot]; ok {
		return errorf(ErrSlotOccupied, "input %d of %s fed by %s", edge.ToSlot, dst.Kind(), prev)
	}
	if edge.From == edge.To || e.reaches(edge.To, edge.From) {
		return errorf(ErrCycle, "%d -> %d", edge.From, edge.To)
	}
	return nil
}

// reaches reports whether target is downstream of start.
func (e *Engine) reaches(start, target ID) bool {
	seen := map[ID]bool{start: true}
	stack := []ID{start}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, edge := range e.outgoing[id] {
			if edge.To == target {
				return true
			}
			if !seen[edge.To] {
				seen[edge.To] = true
				stack = append(stack, edge.To)
			}
		}
	}
	return false
}

// Disconnect removes edge, reverts the destination slot to its default and
// recomputes dependents.
func (e *Engine) Disconnect(edge Edge) error {
	cur, ok := e.incoming[edge.To][edge.ToSlot]
	if !ok || cur != edge {
		return errorf(ErrUnknownEdge, "%s", edge)
	}
	delete(e.incoming[edge.To], edge.ToSlot)
	e.dropOutgoing(edge)
	e.nodes[edge.To].Unbind(edge.ToSlot)
	core.Logger().Debug("graph: disconnect", "edge", edge.String())
	e.propagate(edge.To)
	return nil
}

func (e *Engine) dropOutgoing(edge Edge) {
	out := e.outgoing[edge.From]
	for i, o := range out {
		if o == edge {
			e.outgoing[edge.From] = append(out[:i:i], out[i+1:]...)
			return
		}
	}
}

// SetParameter updates a node parameter and recomputes the node and its
// dependents.
func (e *Engine) SetParameter(id ID, key string, v core.ParamValue) error {
	n, ok := e.nodes[id]
	if !ok {
		return errorf(ErrUnknownNode, "set %s on %d", key, id)
	}
	if err := n.Params().Set(key, v); err != nil {
		return fmt.Errorf("%s %d: %w", n.Kind(), id, err)
	}
	e.propagate(id)
	return nil
}

// SetParameterString parses s for the parameter's declared type and sets it.
func (e *Engine) SetParameterString(id ID, key, s string) error {
	n, ok := e.nodes[id]
	if !ok {
		return errorf(ErrUnknownNode, "set %s on %d", key, id)
	}
	if err := n.Params().SetString(key, s); err != nil {
		return fmt.Errorf("%s %d: %w", n.Kind(), id, err)
	}
	e.propagate(id)
	return nil
}

// Trigger asks a triggerable node to run and recomputes its dependents.
func (e *Engine) Trigger(id ID) error {
	n, ok := e.nodes[id]
	if !ok {
		return errorf(ErrUnknownNode, "trigger %d", id)
	}
	t, ok := n.(node.Triggerable)
	if !ok {
		return errorf(ErrNotTriggerable, "%s %d", n.Kind(), id)
	}
	t.Trigger()
	e.propagate(id)
	return nil
}

// SetRenderMode switches between preview and render resolution.
func (e *Engine) SetRenderMode(on bool) {
	if e.settings != nil && e.settings.SetRenderMode(on) {
		e.refresh()
	}
}

// SetPreviewResolution changes the preview resolution.
func (e *Engine) SetPreviewResolution(n int) {
	if e.settings != nil && e.settings.SetPreviewResolution(n) {
		e.refresh()
	}
}

// SetRenderResolution changes the render resolution.
func (e *Engine) SetRenderResolution(n int) {
	if e.settings != nil && e.settings.SetRenderResolution(n) {
		e.refresh()
	}
}

// refresh regenerates resolution-dependent nodes if settings changed since
// the last call.
func (e *Engine) refresh() {
	if !e.dirty.Swap(false) {
		return
	}
	var seeds []ID
	for id, n := range e.nodes {
		if r, ok := n.(node.ResolutionUser); ok && r.UsesResolution() {
			seeds = append(seeds, id)
		}
	}
	core.Logger().Debug("graph: resolution changed", "nodes", len(seeds))
	e.propagate(seeds...)
}

// propagate recomputes seeds and everything downstream of them. Nodes run in
// topological order with ties broken by lowest ID; each binds all of its
// upstream values and computes exactly once. A non-seed node only runs if
// at least one of its predecessors produced a new value, so dependents of a
// node that handed its work to the background keep their previous values
// until that work completes.
func (e *Engine) propagate(seeds ...ID) {
	if len(seeds) == 0 {
		return
	}
	start := time.Now()

	affected := map[ID]bool{}
	stack := make([]ID, 0, len(seeds))
	isSeed := map[ID]bool{}
	for _, id := range seeds {
		if _, ok := e.nodes[id]; ok && !affected[id] {
			affected[id] = true
			isSeed[id] = true
			stack = append(stack, id)
		}
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, edge := range e.outgoing[id] {
			if !affected[edge.To] {
				affected[edge.To] = true
				stack = append(stack, edge.To)
			}
		}
	}

	indeg := make(map[ID]int, len(affected))
	for id := range affected {
		for _, edge := range e.incoming[id] {
			if affected[edge.From] {
				indeg[id]++
			}
		}
	}
	ready := &idMinHeap{}
	for id := range affected {
		if indeg[id] == 0 {
			heap.Push(ready, id)
		}
	}

	fresh := map[ID]bool{}
	computed := 0
	for ready.Len() > 0 {
		id := heap.Pop(ready).(ID)
		run := isSeed[id]
		for _, edge := range e.incoming[id] {
			if fresh[edge.From] {
				run = true
			}
		}
		if run {
			fresh[id] = e.compute(id)
			computed++
		}
		for _, edge := range e.outgoing[id] {
			if !affected[edge.To] {
				continue
			}
			indeg[edge.To]--
			if indeg[edge.To] == 0 {
				heap.Push(ready, edge.To)
			}
		}
	}
	propagationSeconds.Observe(time.Since(start).Seconds())
	core.Logger().Debug("graph: propagate", "seeds", len(seeds), "affected", len(affected), "computed", computed)
}

// compute binds every connected input of id, recomputes it and reports
// whether its outputs are now current. A Deferred node that started a job
// reports false.
func (e *Engine) compute(id ID) bool {
	n := e.nodes[id]
	for slot, edge := range e.incoming[id] {
		n.Bind(slot, e.nodes[edge.From].Output(edge.FromSlot))
	}
	n.Compute()
	computesTotal.WithLabelValues(n.Kind()).Inc()
	for slot := range n.Outputs() {
		if !n.Output(slot).Valid() {
			panic(fmt.Sprintf("graph: %s node %d has no value on output %d", n.Kind(), id, slot))
		}
	}

	d, ok := n.(node.Deferred)
	if !ok {
		return true
	}
	job, ok := d.Job()
	if !ok {
		return true
	}
	seq := e.runner.Start(id, job)
	if seq == 0 {
		return false
	}
	e.pending[id] = seq
	core.Logger().Info("graph: job started", "kind", n.Kind(), "node", int(id), "seq", seq)
	return false
}

// Cancel stops the background job of id, if any. Its observers see a
// Stopped outcome and its dependents keep their previous values.
func (e *Engine) Cancel(id ID) bool {
	if _, ok := e.pending[id]; !ok {
		return false
	}
	return e.runner.Stop(id)
}

// Busy reports whether any background job is outstanding.
func (e *Engine) Busy() bool { return len(e.pending) > 0 }

// Apply handles one runner event. Events from superseded jobs or removed
// nodes are ignored. A Done result is published and the node's dependents
// are recomputed.
func (e *Engine) Apply(ev worker.Event[ID]) {
	n, ok := e.nodes[ev.Key]
	if !ok || e.pending[ev.Key] != ev.Seq {
		return
	}
	switch ev.Kind {
	case worker.Started:
		for _, o := range e.observers {
			o.ComputeStarted(ev.Key, n.Kind())
		}
	case worker.Progress:
		for _, o := range e.observers {
			o.ComputeProgress(ev.Key, ev.Percent)
		}
	case worker.Finished:
		delete(e.pending, ev.Key)
		core.Logger().Info("graph: job finished", "kind", n.Kind(), "node", int(ev.Key), "outcome", ev.Outcome.String())
		if ev.Outcome == worker.Done {
			n.(node.Deferred).Finish(ev.Result)
			seeds := make([]ID, 0, len(e.outgoing[ev.Key]))
			for _, edge := range e.outgoing[ev.Key] {
				seeds = append(seeds, edge.To)
			}
			e.propagate(seeds...)
		}
		for _, o := range e.observers {
			o.ComputeFinished(ev.Key, n.Kind(), ev.Outcome)
		}
	}
}

// Poll applies every event already queued without blocking and returns how
// many were applied.
func (e *Engine) Poll() int {
	e.refresh()
	applied := 0
	for {
		select {
		case ev, ok := <-e.runner.Events():
			if !ok {
				return applied
			}
			e.Apply(ev)
			applied++
		default:
			return applied
		}
	}
}

// Settle blocks until no background job is outstanding, applying events as
// they arrive. It returns ctx.Err() if ctx ends first.
func (e *Engine) Settle(ctx context.Context) error {
	e.refresh()
	for len(e.pending) > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-e.runner.Events():
			if !ok {
				return nil
			}
			e.Apply(ev)
		}
		e.refresh()
	}
	return nil
}

// Run owns the engine until ctx ends: it applies runner events, regenerates
// after settings changes and executes functions received on calls.
func (e *Engine) Run(ctx context.Context, calls <-chan func(*Engine)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-calls:
			fn(e)
		case ev, ok := <-e.runner.Events():
			if !ok {
				return nil
			}
			e.Apply(ev)
		case <-e.wake:
		}
		e.refresh()
	}
}

// Close cancels background jobs and releases the runner. The engine must not
// be used afterwards.
func (e *Engine) Close() {
	e.runner.Close()
	nodesGauge.Sub(float64(len(e.nodes)))
}

type idMinHeap []ID

func (h idMinHeap) Len() int           { return len(h) }
func (h idMinHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h idMinHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *idMinHeap) Push(x any)        { *h = append(*h, x.(ID)) }
func (h *idMinHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
