package slab

import "testing"

type sizedInt struct{ v int }

func (s sizedInt) ByteSize() uint64 { return 8 }

func TestAllocGetFree(t *testing.T) {
	a := NewAllocator[sizedInt]()
	h, err := a.Alloc(sizedInt{v: 42})
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	got, ok := a.Get(h)
	if !ok || got.v != 42 {
		t.Fatalf("Get(%v) = %v, %v", h, got, ok)
	}
	a.Free(h)
	if _, ok := a.Get(h); ok {
		t.Fatalf("Get after Free should report not-ok")
	}
	a.Free(h) // idempotent
}

func TestSlabPromotion(t *testing.T) {
	a := NewAllocator[sizedInt]()
	handles := make([]Handle, 0, Capacity+1)
	for i := 0; i < Capacity+1; i++ {
		h, err := a.Alloc(sizedInt{v: i})
		if err != nil {
			t.Fatalf("Alloc #%d: %v", i, err)
		}
		handles = append(handles, h)
	}
	if a.SlabCount() != 2 {
		t.Fatalf("expected 2 slabs after overflowing one, got %d", a.SlabCount())
	}
	if a.LiveObjects() != Capacity+1 {
		t.Fatalf("LiveObjects = %d, want %d", a.LiveObjects(), Capacity+1)
	}
	for _, h := range handles[:Capacity] {
		a.Free(h)
	}
	a.ReallocateSlabs()
	if a.LiveObjects() != 1 {
		t.Fatalf("LiveObjects after freeing = %d, want 1", a.LiveObjects())
	}
}

func TestSweepReleasesUnmarked(t *testing.T) {
	a := NewAllocator[sizedInt]()
	keep, err := a.Alloc(sizedInt{v: 1})
	if err != nil {
		t.Fatal(err)
	}
	drop, err := a.Alloc(sizedInt{v: 2})
	if err != nil {
		t.Fatal(err)
	}
	a.SetState(keep, Marked)

	cleared, bytes := a.Sweep(func(h Handle, state State) bool {
		return state == Marked
	})
	if cleared != 1 || bytes != 8 {
		t.Fatalf("Sweep cleared=%d bytes=%d, want 1,8", cleared, bytes)
	}
	if _, ok := a.Get(drop); ok {
		t.Fatalf("dropped handle should no longer be live")
	}
	if _, ok := a.Get(keep); !ok {
		t.Fatalf("kept handle should still be live")
	}
	if a.State(keep) != Unmarked {
		t.Fatalf("kept handle should reset to Unmarked after sweep, got %v", a.State(keep))
	}
}

func TestTotalMemory(t *testing.T) {
	a := NewAllocator[sizedInt]()
	h1, _ := a.Alloc(sizedInt{v: 1})
	_, _ = a.Alloc(sizedInt{v: 2})
	if a.TotalMemory() != 16 {
		t.Fatalf("TotalMemory = %d, want 16", a.TotalMemory())
	}
	a.Free(h1)
	if a.TotalMemory() != 8 {
		t.Fatalf("TotalMemory after Free = %d, want 8", a.TotalMemory())
	}
}

func TestReleaseFreeSlabs(t *testing.T) {
	a := NewAllocator[sizedInt]()
	h, _ := a.Alloc(sizedInt{v: 1})
	a.Free(h)
	a.ReallocateSlabs()
	if len(a.free) == 0 {
		t.Fatalf("expected a free slab before ReleaseFreeSlabs")
	}
	a.ReleaseFreeSlabs()
	if len(a.free) != 0 {
		t.Fatalf("ReleaseFreeSlabs should empty the free list")
	}
}

// TestSweepAfterReleaseFreeSlabs covers a released (now-nil) slab slot
// surviving a later Sweep/ReallocateSlabs pass without a nil dereference,
// the way System.GC.ReleaseMemory followed by an automatic collection
// would drive it in practice.
func TestSweepAfterReleaseFreeSlabs(t *testing.T) {
	a := NewAllocator[sizedInt]()
	h, _ := a.Alloc(sizedInt{v: 1})
	a.Free(h)
	a.ReallocateSlabs()
	a.ReleaseFreeSlabs()

	keep, err := a.Alloc(sizedInt{v: 2})
	if err != nil {
		t.Fatal(err)
	}
	a.SetState(keep, Marked)

	cleared, _ := a.Sweep(func(h Handle, state State) bool {
		return state == Marked
	})
	if cleared != 0 {
		t.Fatalf("Sweep cleared=%d, want 0", cleared)
	}
	if _, ok := a.Get(keep); !ok {
		t.Fatalf("kept handle should still be live")
	}
	a.ReallocateSlabs()
}
