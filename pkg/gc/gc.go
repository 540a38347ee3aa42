// Package gc implements the stop-the-world mark-and-sweep collector that
// fronts every pkg/object.Heap allocator. It never moves an object — a
// slab.Handle stays valid for as long as the object is reachable — and it
// marks with an explicit work queue rather than host recursion, since a
// long chain of class instances could otherwise overflow the Go stack
// during mark (spec design note on deep recursion).
package gc

import (
	"log"
	"time"

	"github.com/momodeve/mslvm/pkg/object"
	"github.com/momodeve/mslvm/pkg/slab"
)

// RootProvider supplies the collector's root set: namespace and class
// wrappers, every class's static instance, every frame's `this` and
// locals, and the live object stack. The Null/True/False singletons are
// not slab-allocated and need no entry. The VM implements this directly
// over its own state.
type RootProvider interface {
	Roots() []object.Value
}

// Metrics is reported after every collection cycle (spec §4.D).
type Metrics struct {
	ClearedObjects int
	ClearedBytes   uint64
	ManagedBytes   uint64
	Iteration      int
	SinceLast      time.Duration
}

// Collector owns the mark-and-sweep policy over one heap.
type Collector struct {
	heap         *object.Heap
	logger       *log.Logger
	minMemory    uint64
	maxMemory    uint64
	allowCollect bool
	iteration    int
	lastRun      time.Time
}

// New creates a collector over heap. logger may be nil to suppress metric
// emission; maxMemory is the high-water mark that triggers an automatic
// collection via ShouldCollect.
func New(heap *object.Heap, logger *log.Logger, minMemory, maxMemory uint64, allowCollect bool) *Collector {
	return &Collector{
		heap:         heap,
		logger:       logger,
		minMemory:    minMemory,
		maxMemory:    maxMemory,
		allowCollect: allowCollect,
		lastRun:      time.Time{},
	}
}

func (c *Collector) SetAllowCollect(allow bool) { c.allowCollect = allow }
func (c *Collector) AllowCollect() bool         { return c.allowCollect }
func (c *Collector) SetMinMemory(n uint64)      { c.minMemory = n }
func (c *Collector) SetMaxMemory(n uint64)      { c.maxMemory = n }

func (c *Collector) managedBytes() uint64 {
	return c.heap.Integers.TotalMemory() + c.heap.Floats.TotalMemory() +
		c.heap.Strings.TotalMemory() + c.heap.Arrays.TotalMemory() +
		c.heap.ClassObjects.TotalMemory() + c.heap.Attributes.TotalMemory() +
		c.heap.Locals.TotalMemory() + c.heap.Unknowns.TotalMemory()
}

// ShouldCollect reports whether total managed bytes have crossed the
// configured high-water mark. The VM consults this once at the start of
// every instruction step to decide whether to invoke Collect; individual
// allocations do not check it.
func (c *Collector) ShouldCollect() bool {
	return c.allowCollect && c.managedBytes() > c.maxMemory
}

func heapBacked(k object.Kind) bool {
	switch k {
	case object.KindInteger, object.KindFloat, object.KindString, object.KindArray,
		object.KindClassObject, object.KindAttribute, object.KindLocal, object.KindUnknown:
		return true
	default:
		return false
	}
}

func stateOf(h *object.Heap, v object.Value) slab.State {
	switch v.Kind {
	case object.KindInteger:
		return h.Integers.State(v.H)
	case object.KindFloat:
		return h.Floats.State(v.H)
	case object.KindString:
		return h.Strings.State(v.H)
	case object.KindArray:
		return h.Arrays.State(v.H)
	case object.KindClassObject:
		return h.ClassObjects.State(v.H)
	case object.KindAttribute:
		return h.Attributes.State(v.H)
	case object.KindLocal:
		return h.Locals.State(v.H)
	case object.KindUnknown:
		return h.Unknowns.State(v.H)
	default:
		return slab.Free
	}
}

func mark(h *object.Heap, v object.Value) {
	switch v.Kind {
	case object.KindInteger:
		h.Integers.SetState(v.H, slab.Marked)
	case object.KindFloat:
		h.Floats.SetState(v.H, slab.Marked)
	case object.KindString:
		h.Strings.SetState(v.H, slab.Marked)
	case object.KindArray:
		h.Arrays.SetState(v.H, slab.Marked)
	case object.KindClassObject:
		h.ClassObjects.SetState(v.H, slab.Marked)
	case object.KindAttribute:
		h.Attributes.SetState(v.H, slab.Marked)
	case object.KindLocal:
		h.Locals.SetState(v.H, slab.Marked)
	case object.KindUnknown:
		h.Unknowns.SetState(v.H, slab.Marked)
	}
}

// children returns the Values a composite value owns a reference to.
func children(h *object.Heap, v object.Value) []object.Value {
	switch v.Kind {
	case object.KindArray:
		a, ok := h.Array(v)
		if !ok {
			return nil
		}
		return a.Elems
	case object.KindClassObject:
		co, ok := h.ClassObject(v)
		if !ok {
			return nil
		}
		kids := make([]object.Value, 0, len(co.Attrs))
		for _, attrHandle := range co.Attrs {
			kids = append(kids, object.Value{Kind: object.KindAttribute, H: attrHandle})
		}
		return kids
	case object.KindAttribute:
		a, ok := h.Attribute(v)
		if !ok {
			return nil
		}
		return []object.Value{a.Val}
	case object.KindLocal:
		l, ok := h.Local(v)
		if !ok {
			return nil
		}
		return []object.Value{l.Val}
	default:
		return nil
	}
}

// markAll runs the mark phase over the root set with an explicit
// slice-backed work queue.
func markAll(h *object.Heap, roots []object.Value) {
	queue := append([]object.Value(nil), roots...)
	for len(queue) > 0 {
		v := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		if !heapBacked(v.Kind) {
			continue
		}
		if stateOf(h, v) == slab.Marked {
			continue
		}
		mark(h, v)
		queue = append(queue, children(h, v)...)
	}
}

// Collect runs one full mark-and-sweep cycle: mark every value reachable
// from rp.Roots(), then sweep every allocator, reclaiming anything left
// Unmarked, and compact slab-list membership via ReallocateSlabs.
func (c *Collector) Collect(rp RootProvider) Metrics {
	markAll(c.heap, rp.Roots())

	keep := func(_ slab.Handle, state slab.State) bool { return state == slab.Marked }

	var cleared int
	var clearedBytes uint64
	sweepOne := func(n int, b uint64) {
		cleared += n
		clearedBytes += b
	}
	sweepOne(c.heap.Integers.Sweep(keep))
	sweepOne(c.heap.Floats.Sweep(keep))
	sweepOne(c.heap.Strings.Sweep(keep))
	sweepOne(c.heap.Arrays.Sweep(keep))
	sweepOne(c.heap.ClassObjects.Sweep(keep))
	sweepOne(c.heap.Attributes.Sweep(keep))
	sweepOne(c.heap.Locals.Sweep(keep))
	sweepOne(c.heap.Unknowns.Sweep(keep))

	c.heap.Integers.ReallocateSlabs()
	c.heap.Floats.ReallocateSlabs()
	c.heap.Strings.ReallocateSlabs()
	c.heap.Arrays.ReallocateSlabs()
	c.heap.ClassObjects.ReallocateSlabs()
	c.heap.Attributes.ReallocateSlabs()
	c.heap.Locals.ReallocateSlabs()
	c.heap.Unknowns.ReallocateSlabs()

	c.iteration++
	var sinceLast time.Duration
	if !c.lastRun.IsZero() {
		sinceLast = time.Since(c.lastRun)
	}
	c.lastRun = time.Now()

	m := Metrics{
		ClearedObjects: cleared,
		ClearedBytes:   clearedBytes,
		ManagedBytes:   c.managedBytes(),
		Iteration:      c.iteration,
		SinceLast:      sinceLast,
	}
	if c.logger != nil {
		c.logger.Printf("gc: iteration=%d cleared=%d clearedBytes=%d managedBytes=%d sinceLast=%s",
			m.Iteration, m.ClearedObjects, m.ClearedBytes, m.ManagedBytes, m.SinceLast)
	}
	return m
}

// ReleaseFreeSlabs drops every allocator's free-slab list, returning their
// memory to the host. Exposed to bytecode via System.GC.ReleaseMemory.
func (c *Collector) ReleaseFreeSlabs() {
	c.heap.Integers.ReleaseFreeSlabs()
	c.heap.Floats.ReleaseFreeSlabs()
	c.heap.Strings.ReleaseFreeSlabs()
	c.heap.Arrays.ReleaseFreeSlabs()
	c.heap.ClassObjects.ReleaseFreeSlabs()
	c.heap.Attributes.ReleaseFreeSlabs()
	c.heap.Locals.ReleaseFreeSlabs()
	c.heap.Unknowns.ReleaseFreeSlabs()
}
