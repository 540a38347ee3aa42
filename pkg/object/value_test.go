package object

import (
	"testing"

	"github.com/momodeve/mslvm/pkg/bigint"
)

func TestSingletonsCompareByKind(t *testing.T) {
	if Null() != Null() {
		t.Fatal("Null() should compare equal to itself")
	}
	if True() == False() {
		t.Fatal("True and False must not compare equal")
	}
	if BoolValue(true) != True() || BoolValue(false) != False() {
		t.Fatal("BoolValue mismatch")
	}
}

func TestHeapIntegerRoundTrip(t *testing.T) {
	h := NewHeap()
	v, err := h.NewInteger(bigint.FromInt64(42))
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind != KindInteger {
		t.Fatalf("Kind = %v, want Integer", v.Kind)
	}
	got, ok := h.Integer(v)
	if !ok || got.String() != "42" {
		t.Fatalf("Integer(v) = %v, %v", got, ok)
	}
	if h.ToText(v) != "42" {
		t.Fatalf("ToText = %q", h.ToText(v))
	}
}

func TestHeapArrayMutation(t *testing.T) {
	h := NewHeap()
	v, err := h.NewArray(nil)
	if err != nil {
		t.Fatal(err)
	}
	ten, _ := h.NewInteger(bigint.FromInt64(10))
	a, _ := h.Array(v)
	h.SetArray(v, append(a.Elems, ten))
	a2, _ := h.Array(v)
	if len(a2.Elems) != 1 {
		t.Fatalf("expected 1 element after append, got %d", len(a2.Elems))
	}
}

func TestClassWrapperIdentity(t *testing.T) {
	ns := NewNamespaceType("N")
	c1 := NewClassType("C", ns, 0)
	c2 := NewClassType("C", ns, 0)
	w1 := ClassWrapper(c1)
	w1b := ClassWrapper(c1)
	w2 := ClassWrapper(c2)
	if w1 != w1b {
		t.Fatal("wrappers over the same ClassType should compare equal")
	}
	if w1 == w2 {
		t.Fatal("wrappers over distinct ClassTypes must not compare equal")
	}
}

func TestMangle(t *testing.T) {
	if Mangle("Foo", 2, false) != "Foo_2" {
		t.Fatalf("Mangle mismatch: %s", Mangle("Foo", 2, false))
	}
	if Mangle("Init", 0, true) != "Init_0_static" {
		t.Fatalf("Mangle static-ctor mismatch: %s", Mangle("Init", 0, true))
	}
}

func TestFrameCallPath(t *testing.T) {
	ns := NewNamespaceType("A")
	c := NewClassType("B", ns, 0)
	m := &MethodType{Name: "Main_0", Class: c}
	f := NewFrame(m, c, ns)
	if f.CallPath() != "A.B.Main_0" {
		t.Fatalf("CallPath = %q", f.CallPath())
	}
}
