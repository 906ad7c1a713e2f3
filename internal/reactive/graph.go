// Package reactive is a small dependency graph for derived values.
//
// Sources hold the latest snapshot of an input. Derived nodes name the nodes
// they read from when they are created and are recomputed whenever any of
// those inputs changes. Because a node can only depend on nodes created
// before it, creation order is a valid topological order.
package reactive

import (
	"sync"
	"sync/atomic"
)

// Node is any value in a graph.
type Node interface {
	node() *base
}

type base struct {
	id      int
	ready   atomic.Bool
	deps    []*base
	compute func()
	notify  func()
}

func (b *base) node() *base { return b }

// Graph serializes all writes and recomputation. Reads are lock-free.
type Graph struct {
	mu    sync.Mutex
	nodes []*base
}

func New() *Graph {
	return &Graph{}
}

func (g *Graph) add(b *base) {
	g.mu.Lock()
	defer g.mu.Unlock()
	b.id = len(g.nodes)
	g.nodes = append(g.nodes, b)
}

// propagate recomputes every transitive dependent of changed, in creation
// order, then runs watchers. Callers must hold g.mu.
func (g *Graph) propagate(changed *base) {
	dirty := map[int]bool{changed.id: true}
	touched := []*base{changed}
	for _, n := range g.nodes[changed.id+1:] {
		if n.compute == nil {
			continue
		}
		hit := false
		for _, d := range n.deps {
			if dirty[d.id] {
				hit = true
				break
			}
		}
		if !hit || !allReady(n.deps) {
			continue
		}
		n.compute()
		dirty[n.id] = true
		touched = append(touched, n)
	}
	for _, n := range touched {
		if n.notify != nil {
			n.notify()
		}
	}
}

func allReady(deps []*base) bool {
	for _, d := range deps {
		if !d.ready.Load() {
			return false
		}
	}
	return true
}

type cell[T any] struct {
	base
	value    atomic.Pointer[T]
	watchMu  sync.Mutex
	watchers map[int]func(T)
	nextID   int
}

func (c *cell[T]) Value() (T, bool) {
	p := c.value.Load()
	if p == nil {
		var zero T
		return zero, false
	}
	return *p, true
}

// Get returns the current value or the zero value when none is set yet.
func (c *cell[T]) Get() T {
	v, _ := c.Value()
	return v
}

// Watch registers fn to run after every change of the node. It returns a
// function that removes the watcher. Watchers run on the goroutine that
// triggered the change while the graph is locked, so they may read any
// node but must not Set a source.
func (c *cell[T]) Watch(fn func(T)) func() {
	c.watchMu.Lock()
	defer c.watchMu.Unlock()
	if c.watchers == nil {
		c.watchers = map[int]func(T){}
	}
	id := c.nextID
	c.nextID++
	c.watchers[id] = fn
	return func() {
		c.watchMu.Lock()
		defer c.watchMu.Unlock()
		delete(c.watchers, id)
	}
}

func (c *cell[T]) fire() {
	v, ok := c.Value()
	if !ok {
		return
	}
	c.watchMu.Lock()
	fns := make([]func(T), 0, len(c.watchers))
	for _, fn := range c.watchers {
		fns = append(fns, fn)
	}
	c.watchMu.Unlock()
	for _, fn := range fns {
		fn(v)
	}
}

func (c *cell[T]) store(v T) {
	c.value.Store(&v)
	c.ready.Store(true)
}

// Source is an input node replaced wholesale by Set.
type Source[T any] struct {
	cell[T]
	g *Graph
}

// NewSource adds an unset input to the graph.
func NewSource[T any](g *Graph) *Source[T] {
	s := &Source[T]{g: g}
	s.notify = s.fire
	g.add(&s.base)
	return s
}

// Set replaces the snapshot and synchronously recomputes its dependents.
func (s *Source[T]) Set(v T) {
	s.g.mu.Lock()
	defer s.g.mu.Unlock()
	s.store(v)
	s.g.propagate(&s.base)
}

// Derived is computed from other nodes.
type Derived[T any] struct {
	cell[T]
}

// NewDerived adds a node computed by fn from deps. fn runs only once every
// dependency holds a value; it reads them with Get.
func NewDerived[T any](g *Graph, fn func() T, deps ...Node) *Derived[T] {
	d := &Derived[T]{}
	for _, dep := range deps {
		d.deps = append(d.deps, dep.node())
	}
	d.compute = func() { d.store(fn()) }
	d.notify = d.fire
	g.add(&d.base)

	g.mu.Lock()
	defer g.mu.Unlock()
	if allReady(d.deps) {
		d.compute()
	}
	return d
}
