// Package object defines the runtime value model shared by the loader, the
// virtual machine, and the garbage collector: a tagged-variant Value plus
// the slab-backed heap that owns every composite payload, and the static
// metadata (classes, namespaces, methods) the loader builds once and the
// VM never mutates.
//
// Every Value is a small, comparable struct rather than an interface with
// downcasts: dispatch happens by switching on Kind, and the few operations
// that genuinely vary per-variant (text rendering, member marking, byte
// accounting) live as functions taking a *Heap, not methods on an
// interface, since rendering a ClassObject requires calling back into user
// bytecode (the VM's job, not this package's).
package object

import (
	"fmt"

	"github.com/momodeve/mslvm/pkg/bigint"
	"github.com/momodeve/mslvm/pkg/slab"
)

// Kind is the type tag every Value carries.
type Kind byte

const (
	KindNull Kind = iota
	KindTrue
	KindFalse
	KindInteger
	KindFloat
	KindString
	KindArray
	KindClassObject
	KindClassWrapper
	KindNamespaceWrapper
	KindLocal
	KindAttribute
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindTrue:
		return "True"
	case KindFalse:
		return "False"
	case KindInteger:
		return "Integer"
	case KindFloat:
		return "Float"
	case KindString:
		return "String"
	case KindArray:
		return "Array"
	case KindClassObject:
		return "ClassObject"
	case KindClassWrapper:
		return "ClassWrapper"
	case KindNamespaceWrapper:
		return "NamespaceWrapper"
	case KindLocal:
		return "Local"
	case KindAttribute:
		return "Attribute"
	case KindUnknown:
		return "Unknown"
	default:
		return "Base"
	}
}

// Value is the universal runtime cell. Null, True and False carry no
// payload (they are singletons, never slab allocated). ClassWrapper
// and NamespaceWrapper carry a direct pointer to their metadata, since that
// metadata's lifetime already spans the whole run — there's no separate
// slab for them. Every other Kind carries a handle into the matching Heap
// allocator.
type Value struct {
	Kind Kind
	H    slab.Handle
	Meta any // *ClassType for ClassWrapper, *NamespaceType for NamespaceWrapper
}

// Null, True and False are built on demand and returned by value; Value
// itself is a small comparable struct so this is cheap and each of the
// three singletons compares equal to every other copy by Kind alone.
func Null() Value  { return Value{Kind: KindNull} }
func True() Value  { return Value{Kind: KindTrue} }
func False() Value { return Value{Kind: KindFalse} }

func BoolValue(b bool) Value {
	if b {
		return True()
	}
	return False()
}

func ClassWrapper(c *ClassType) Value {
	return Value{Kind: KindClassWrapper, Meta: c}
}

func NamespaceWrapper(n *NamespaceType) Value {
	return Value{Kind: KindNamespaceWrapper, Meta: n}
}

func (v Value) Class() *ClassType {
	c, _ := v.Meta.(*ClassType)
	return c
}

func (v Value) Namespace() *NamespaceType {
	n, _ := v.Meta.(*NamespaceType)
	return n
}

// IntegerCell is the heap payload for Kind == KindInteger.
type IntegerCell struct{ Val bigint.Int }

func (c IntegerCell) ByteSize() uint64 { return c.Val.ByteSize() }

// FloatCell is the heap payload for Kind == KindFloat.
type FloatCell struct{ Val float64 }

func (c FloatCell) ByteSize() uint64 { return 0 }

// StringCell is the heap payload for Kind == KindString.
type StringCell struct{ Val string }

func (c StringCell) ByteSize() uint64 { return uint64(len(c.Val)) }

// ArrayCell is the heap payload for Kind == KindArray. Elements are plain
// Values rather than the original's Local-wrapped cells: Go slices already
// give growable, independently assignable storage, so the extra
// indirection the C++ model used for uniformity buys nothing here (see
// DESIGN.md).
type ArrayCell struct{ Elems []Value }

func (c ArrayCell) ByteSize() uint64 { return uint64(len(c.Elems)) * 24 }

// ClassObjectCell is the heap payload for Kind == KindClassObject: an
// instance of a user class, with a map from attribute name to a handle in
// the Attributes allocator.
type ClassObjectCell struct {
	Class *ClassType
	Attrs map[string]slab.Handle
}

func (c ClassObjectCell) ByteSize() uint64 { return uint64(len(c.Attrs)) * 16 }

// AttributeCell is the heap payload for Kind == KindAttribute: a named
// slot inside a class instance or a class's static scope. It is the slot
// itself, not a reference to one.
type AttributeCell struct {
	Name string
	Mods AttributeModifiers
	Val  Value
}

func (c AttributeCell) ByteSize() uint64 { return uint64(len(c.Name)) }

// LocalCell is the heap payload for Kind == KindLocal: a named reference
// bound to a slot in a frame's local table.
type LocalCell struct {
	Name  string
	Const bool
	Val   Value
}

func (c LocalCell) ByteSize() uint64 { return uint64(len(c.Name)) }

// UnknownCell is the heap payload for Kind == KindUnknown: a name-only
// stand-in produced by PUSH_OBJECT, resolved at next use.
type UnknownCell struct{ Name string }

func (c UnknownCell) ByteSize() uint64 { return uint64(len(c.Name)) }

// Heap owns every composite Value ever constructed. One allocator per
// variant, mirroring the original's per-type SlabAllocator instances.
type Heap struct {
	Integers     *slab.Allocator[IntegerCell]
	Floats       *slab.Allocator[FloatCell]
	Strings      *slab.Allocator[StringCell]
	Arrays       *slab.Allocator[ArrayCell]
	ClassObjects *slab.Allocator[ClassObjectCell]
	Attributes   *slab.Allocator[AttributeCell]
	Locals       *slab.Allocator[LocalCell]
	Unknowns     *slab.Allocator[UnknownCell]
}

func NewHeap() *Heap {
	return &Heap{
		Integers:     slab.NewAllocator[IntegerCell](),
		Floats:       slab.NewAllocator[FloatCell](),
		Strings:      slab.NewAllocator[StringCell](),
		Arrays:       slab.NewAllocator[ArrayCell](),
		ClassObjects: slab.NewAllocator[ClassObjectCell](),
		Attributes:   slab.NewAllocator[AttributeCell](),
		Locals:       slab.NewAllocator[LocalCell](),
		Unknowns:     slab.NewAllocator[UnknownCell](),
	}
}

func (h *Heap) NewInteger(v bigint.Int) (Value, error) {
	handle, err := h.Integers.Alloc(IntegerCell{Val: v})
	if err != nil {
		return Value{}, err
	}
	return Value{Kind: KindInteger, H: handle}, nil
}

func (h *Heap) NewFloat(v float64) (Value, error) {
	handle, err := h.Floats.Alloc(FloatCell{Val: v})
	if err != nil {
		return Value{}, err
	}
	return Value{Kind: KindFloat, H: handle}, nil
}

func (h *Heap) NewString(v string) (Value, error) {
	handle, err := h.Strings.Alloc(StringCell{Val: v})
	if err != nil {
		return Value{}, err
	}
	return Value{Kind: KindString, H: handle}, nil
}

func (h *Heap) NewArray(elems []Value) (Value, error) {
	handle, err := h.Arrays.Alloc(ArrayCell{Elems: elems})
	if err != nil {
		return Value{}, err
	}
	return Value{Kind: KindArray, H: handle}, nil
}

func (h *Heap) NewClassObject(class *ClassType) (Value, error) {
	handle, err := h.ClassObjects.Alloc(ClassObjectCell{Class: class, Attrs: map[string]slab.Handle{}})
	if err != nil {
		return Value{}, err
	}
	return Value{Kind: KindClassObject, H: handle}, nil
}

func (h *Heap) NewAttribute(name string, mods AttributeModifiers, val Value) (Value, error) {
	handle, err := h.Attributes.Alloc(AttributeCell{Name: name, Mods: mods, Val: val})
	if err != nil {
		return Value{}, err
	}
	return Value{Kind: KindAttribute, H: handle}, nil
}

func (h *Heap) NewLocal(name string, isConst bool, val Value) (Value, error) {
	handle, err := h.Locals.Alloc(LocalCell{Name: name, Const: isConst, Val: val})
	if err != nil {
		return Value{}, err
	}
	return Value{Kind: KindLocal, H: handle}, nil
}

func (h *Heap) NewUnknown(name string) (Value, error) {
	handle, err := h.Unknowns.Alloc(UnknownCell{Name: name})
	if err != nil {
		return Value{}, err
	}
	return Value{Kind: KindUnknown, H: handle}, nil
}

func (h *Heap) Integer(v Value) (bigint.Int, bool) {
	c, ok := h.Integers.Get(v.H)
	return c.Val, ok
}

func (h *Heap) Float(v Value) (float64, bool) {
	c, ok := h.Floats.Get(v.H)
	return c.Val, ok
}

func (h *Heap) String(v Value) (string, bool) {
	c, ok := h.Strings.Get(v.H)
	return c.Val, ok
}

func (h *Heap) Array(v Value) (*ArrayCell, bool) {
	c, ok := h.Arrays.Get(v.H)
	if !ok {
		return nil, false
	}
	return &c, true
}

func (h *Heap) SetArray(v Value, elems []Value) {
	h.Arrays.Set(v.H, ArrayCell{Elems: elems})
}

func (h *Heap) ClassObject(v Value) (*ClassObjectCell, bool) {
	c, ok := h.ClassObjects.Get(v.H)
	if !ok {
		return nil, false
	}
	return &c, true
}

func (h *Heap) SetClassObjectAttrs(v Value, attrs map[string]slab.Handle) {
	c, ok := h.ClassObjects.Get(v.H)
	if !ok {
		return
	}
	c.Attrs = attrs
	h.ClassObjects.Set(v.H, c)
}

func (h *Heap) Attribute(v Value) (*AttributeCell, bool) {
	c, ok := h.Attributes.Get(v.H)
	if !ok {
		return nil, false
	}
	return &c, true
}

func (h *Heap) SetAttributeValue(v Value, val Value) {
	c, ok := h.Attributes.Get(v.H)
	if !ok {
		return
	}
	c.Val = val
	h.Attributes.Set(v.H, c)
}

func (h *Heap) Local(v Value) (*LocalCell, bool) {
	c, ok := h.Locals.Get(v.H)
	if !ok {
		return nil, false
	}
	return &c, true
}

func (h *Heap) SetLocalValue(v Value, val Value) {
	c, ok := h.Locals.Get(v.H)
	if !ok {
		return
	}
	c.Val = val
	h.Locals.Set(v.H, c)
}

func (h *Heap) Unknown(v Value) (*UnknownCell, bool) {
	c, ok := h.Unknowns.Get(v.H)
	if !ok {
		return nil, false
	}
	return &c, true
}

// ToText renders the human-readable form of a primitive or wrapper value.
// ClassObject rendering requires invoking the user's ToString_1 method and
// is therefore the VM's responsibility (see vm.renderText), which falls back
// to this for every other Kind.
func (h *Heap) ToText(v Value) string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindTrue:
		return "true"
	case KindFalse:
		return "false"
	case KindInteger:
		i, _ := h.Integer(v)
		return i.String()
	case KindFloat:
		f, _ := h.Float(v)
		return fmt.Sprintf("%g", f)
	case KindString:
		s, _ := h.String(v)
		return s
	case KindArray:
		a, _ := h.Array(v)
		return fmt.Sprintf("Array[%d]", len(a.Elems))
	case KindClassWrapper:
		return v.Class().Name
	case KindNamespaceWrapper:
		return v.Namespace().Name
	case KindClassObject:
		co, _ := h.ClassObject(v)
		if co != nil && co.Class != nil {
			return fmt.Sprintf("<%s instance>", co.Class.Name)
		}
		return "<instance>"
	case KindUnknown:
		u, _ := h.Unknown(v)
		return u.Name
	default:
		return v.Kind.String()
	}
}
