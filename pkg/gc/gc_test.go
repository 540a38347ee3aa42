package gc

import (
	"testing"

	"github.com/momodeve/mslvm/pkg/bigint"
	"github.com/momodeve/mslvm/pkg/object"
	"github.com/momodeve/mslvm/pkg/slab"
)

type fakeRoots struct{ roots []object.Value }

func (f fakeRoots) Roots() []object.Value { return f.roots }

func TestCollectFreesUnreachable(t *testing.T) {
	heap := object.NewHeap()
	kept, err := heap.NewInteger(bigint.FromInt64(1))
	if err != nil {
		t.Fatal(err)
	}
	_, err = heap.NewInteger(bigint.FromInt64(2)) // unreachable
	if err != nil {
		t.Fatal(err)
	}

	col := New(heap, nil, 0, 0, true)
	metrics := col.Collect(fakeRoots{roots: []object.Value{kept}})

	if metrics.ClearedObjects != 1 {
		t.Fatalf("ClearedObjects = %d, want 1", metrics.ClearedObjects)
	}
	if _, ok := heap.Integer(kept); !ok {
		t.Fatalf("kept value should survive collection")
	}
}

func TestCollectFollowsClassObjectAttributes(t *testing.T) {
	heap := object.NewHeap()
	ns := object.NewNamespaceType("N")
	class := object.NewClassType("C", ns, 0)

	obj, err := heap.NewClassObject(class)
	if err != nil {
		t.Fatal(err)
	}
	inner, err := heap.NewInteger(bigint.FromInt64(99))
	if err != nil {
		t.Fatal(err)
	}
	attr, err := heap.NewAttribute("x", 0, inner)
	if err != nil {
		t.Fatal(err)
	}
	heap.SetClassObjectAttrs(obj, map[string]slab.Handle{"x": attr.H})

	col := New(heap, nil, 0, 0, true)
	col.Collect(fakeRoots{roots: []object.Value{obj}})

	if _, ok := heap.Integer(inner); !ok {
		t.Fatalf("attribute value reachable through a class object should survive")
	}
}

func TestShouldCollectRespectsThreshold(t *testing.T) {
	heap := object.NewHeap()
	col := New(heap, nil, 0, 10, true)
	if col.ShouldCollect() {
		t.Fatal("fresh heap should not need collection")
	}
	for i := 0; i < 5; i++ {
		if _, err := heap.NewInteger(bigint.FromInt64(int64(i))); err != nil {
			t.Fatal(err)
		}
	}
	if !col.ShouldCollect() {
		t.Fatal("heap over max memory should request collection")
	}
	col.SetAllowCollect(false)
	if col.ShouldCollect() {
		t.Fatal("ShouldCollect must respect allowCollect=false")
	}
}

func TestReleaseFreeSlabsIsSafe(t *testing.T) {
	heap := object.NewHeap()
	col := New(heap, nil, 0, 0, true)
	col.ReleaseFreeSlabs()
}
