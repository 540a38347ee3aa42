// Package vm implements the MSL bytecode interpreter: the fetch-decode-
// execute loop, the call and object stacks, the ALU, and the System native
// call bridge. It is the consumer of pkg/loader's AssemblyType and
// pkg/gc's collector; pkg/object supplies the shared value vocabulary.
package vm

import (
	"bufio"
	"fmt"
	"log"

	"github.com/momodeve/mslvm/pkg/bytecode"
	"github.com/momodeve/mslvm/pkg/config"
	"github.com/momodeve/mslvm/pkg/gc"
	"github.com/momodeve/mslvm/pkg/object"
)

// VM is the single-threaded interpreter. Every native call bridge method
// takes the VM explicitly (spec §9 "global mutable state") rather than
// reaching for a package-level singleton.
type VM struct {
	Heap     *object.Heap
	Assembly *object.AssemblyType
	GC       *gc.Collector
	Config   config.Configuration
	Log      *log.Logger

	ObjectStack []object.Value
	CallStack   []*object.Frame
	ErrorWord   ErrorBits
	aluIncr     bool
	consoleIn   *bufio.Reader

	systemClasses map[string]*object.ClassType
}

// New builds a VM over a fresh heap, ready to load assemblies into.
func New(cfg config.Configuration) *VM {
	heap := object.NewHeap()
	var logger *log.Logger
	if cfg.GCLog != nil {
		logger = log.New(cfg.GCLog, "", 0)
	}
	vm := &VM{
		Heap:          heap,
		Assembly:      object.NewAssembly(),
		GC:            gc.New(heap, logger, cfg.MinMemory, cfg.MaxMemory, cfg.AllowCollect),
		Config:        cfg,
		Log:           logger,
		systemClasses: map[string]*object.ClassType{},
	}
	vm.registerSystemClasses()
	return vm
}

// Roots implements gc.RootProvider: singletons need no root entry (they
// are never slab-allocated), every namespace wrapper, the call stack's
// `this`/locals, and the live object stack.
func (vm *VM) Roots() []object.Value {
	var roots []object.Value
	for _, ns := range vm.Assembly.Namespaces {
		roots = append(roots, ns.Wrapper)
		for _, class := range ns.Classes {
			roots = append(roots, class.Wrapper, class.StaticInstance)
		}
	}
	for _, frame := range vm.CallStack {
		roots = append(roots, frame.This)
		for _, local := range frame.Locals {
			roots = append(roots, local)
		}
	}
	roots = append(roots, vm.ObjectStack...)
	return roots
}

func (vm *VM) fail(bit ErrorBits) {
	vm.ErrorWord |= bit
	if vm.Log != nil {
		vm.Log.Printf("vm: %s at %s", bit, vm.callPath())
	}
}

func (vm *VM) callPath() string {
	if len(vm.CallStack) == 0 {
		return ""
	}
	return vm.CallStack[len(vm.CallStack)-1].CallPath()
}

func (vm *VM) currentFrame() *object.Frame {
	if len(vm.CallStack) == 0 {
		return nil
	}
	return vm.CallStack[len(vm.CallStack)-1]
}

func (vm *VM) push(v object.Value) { vm.ObjectStack = append(vm.ObjectStack, v) }

func (vm *VM) pop() (object.Value, bool) {
	if len(vm.ObjectStack) == 0 {
		vm.fail(OBJECTSTACK_EMPTY)
		return object.Null(), false
	}
	v := vm.ObjectStack[len(vm.ObjectStack)-1]
	vm.ObjectStack = vm.ObjectStack[:len(vm.ObjectStack)-1]
	return v, true
}

func (vm *VM) top() (object.Value, bool) {
	if len(vm.ObjectStack) == 0 {
		vm.fail(OBJECTSTACK_EMPTY)
		return object.Null(), false
	}
	return vm.ObjectStack[len(vm.ObjectStack)-1], true
}

// resolve turns an Unknown value into the slot it names (a Local or
// Attribute cell, or whatever else SearchForObject finds), using
// SearchForObject (spec §4.F "Name resolution"). Any other Kind passes
// through unchanged. This is the slot itself, not its contents — ASSIGN_OP
// is the only caller that wants that, since it needs the cell to check
// const-ness and rebind it.
func (vm *VM) resolve(v object.Value) object.Value {
	if v.Kind != object.KindUnknown {
		return v
	}
	u, ok := vm.Heap.Unknown(v)
	if !ok {
		vm.fail(OBJECT_NOT_FOUND)
		return object.Null()
	}
	resolved, found := vm.SearchForObject(u.Name)
	if !found {
		vm.fail(OBJECT_NOT_FOUND)
		return object.Null()
	}
	return resolved
}

// resolveValue is resolve plus a further deref through Local/Attribute
// cells to their stored contents. Every read site that wants a usable
// value rather than an assignment slot (ALU operands, call arguments and
// receivers, index/member targets, return values, branch conditions) goes
// through this instead of resolve.
func (vm *VM) resolveValue(v object.Value) object.Value {
	v = vm.resolve(v)
	for {
		switch v.Kind {
		case object.KindLocal:
			lc, ok := vm.Heap.Local(v)
			if !ok {
				vm.fail(INVALID_STACKOBJECT)
				return object.Null()
			}
			v = lc.Val
		case object.KindAttribute:
			ac, ok := vm.Heap.Attribute(v)
			if !ok {
				vm.fail(INVALID_STACKOBJECT)
				return object.Null()
			}
			v = ac.Val
		default:
			return v
		}
	}
}

// SetAssembly installs an assembly (already read from bytes by pkg/loader)
// as the VM's metadata image. Wiring the loader itself here would import a
// package the VM doesn't otherwise need; cmd/mslvm owns that call and
// passes the populated AssemblyType in via SetAssembly.
func (vm *VM) SetAssembly(asm *object.AssemblyType) {
	if sys, ok := vm.Assembly.Namespaces["System"]; ok {
		asm.Namespaces["System"] = sys
	}
	vm.Assembly = asm
	for _, ns := range asm.Namespaces {
		if ns.Wrapper == (object.Value{}) {
			ns.Wrapper = object.NamespaceWrapper(ns)
		}
		for _, class := range ns.Classes {
			if class.Wrapper == (object.Value{}) {
				class.Wrapper = object.ClassWrapper(class)
			}
			if class.StaticInstance == (object.Value{}) {
				inst, err := vm.Heap.NewClassObject(class)
				if err == nil {
					if attrs, ok := vm.newAttrTable(class.StaticAttributes); ok {
						vm.Heap.SetClassObjectAttrs(inst, attrs)
					}
					class.StaticInstance = inst
				}
			}
		}
	}
}

// RunEntryPoint resolves the assembly's designated entry-point method
// (marked EntryPoint by the loader) and runs it to completion.
func (vm *VM) RunEntryPoint(entry *object.MethodType) error {
	if entry == nil {
		vm.fail(INVALID_METHOD_SIGNATURE)
		return vm.finish()
	}
	if !vm.callMethod(entry, object.Null(), nil) {
		return vm.finish()
	}
	vm.Run()
	return vm.finish()
}

func (vm *VM) finish() error {
	if vm.ErrorWord == 0 {
		return nil
	}
	e := &VMError{Bits: vm.ErrorWord, CallPath: vm.callPath()}
	for i := len(vm.ObjectStack) - 1; i >= 0 && len(e.StackTop) < 8; i-- {
		e.StackTop = append(e.StackTop, vm.Heap.ToText(vm.ObjectStack[i]))
	}
	return e
}

// ExitCode implements the Exit contract of spec §6: an Integer on top of
// the final object stack yields its decimal value, Null yields 0,
// anything else is INVALID_STACKOBJECT unless CheckExitCode is disabled.
func (vm *VM) ExitCode() (int, error) {
	if !vm.Config.CheckExitCode {
		return 0, nil
	}
	if len(vm.ObjectStack) != 1 {
		return 0, fmt.Errorf("mslvm: exit requires exactly one value on the stack, found %d", len(vm.ObjectStack))
	}
	top := vm.ObjectStack[0]
	switch top.Kind {
	case object.KindNull:
		return 0, nil
	case object.KindInteger:
		i, _ := vm.Heap.Integer(top)
		return int(i.Float64()), nil
	default:
		vm.fail(INVALID_STACKOBJECT)
		return 0, fmt.Errorf("mslvm: %s", INVALID_STACKOBJECT)
	}
}

// Run drives the fetch-decode-execute loop until the call stack empties or
// the error word becomes non-zero.
func (vm *VM) Run() {
	for len(vm.CallStack) > 0 && vm.ErrorWord == 0 {
		vm.step()
	}
}

func (vm *VM) step() {
	frame := vm.currentFrame()
	if frame.IP >= len(frame.Method.Body) {
		vm.fail(INVALID_STACKFRAME_OFFSET)
		return
	}
	op := bytecode.Opcode(frame.Method.Body[frame.IP])
	frame.IP++

	if vm.GC.ShouldCollect() {
		vm.GC.Collect(vm)
	}

	switch {
	case op == bytecode.PUSH_STACKFRAME:
		// no-op marker consumed at frame entry
	case op == bytecode.PUSH_NULL:
		vm.push(object.Null())
	case op == bytecode.PUSH_TRUE:
		vm.push(object.True())
	case op == bytecode.PUSH_FALSE:
		vm.push(object.False())
	case op == bytecode.PUSH_THIS:
		vm.push(frame.This)
	case op == bytecode.PUSH_STRING, op == bytecode.PUSH_INTEGER, op == bytecode.PUSH_FLOAT, op == bytecode.PUSH_OBJECT:
		vm.execPush(op, frame)
	case op == bytecode.ALLOC_VAR, op == bytecode.ALLOC_CONST_VAR:
		vm.execAllocVar(op == bytecode.ALLOC_CONST_VAR)
	case op.IsALUOp():
		vm.execALU(op)
	case op == bytecode.SET_ALU_INCR:
		vm.aluIncr = true
	case op == bytecode.GET_MEMBER:
		vm.execGetMember()
	case op == bytecode.GET_INDEX:
		vm.execGetIndex()
	case op == bytecode.CALL_FUNCTION:
		vm.execCallFunction(frame)
	case op == bytecode.JUMP, op == bytecode.JUMP_IF_TRUE, op == bytecode.JUMP_IF_FALSE:
		vm.execJump(op, frame)
	case op == bytecode.RETURN:
		vm.execReturn(frame, false)
	case op == bytecode.POP_TO_RETURN:
		vm.execReturn(frame, true)
	case op == bytecode.POP_STACK_TOP:
		if v, ok := vm.pop(); ok {
			vm.resolveValue(v)
		}
	default:
		vm.fail(INVALID_OPCODE)
	}
}

func readU64(body []byte, ip int) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(body[ip+i]) << (8 * i)
	}
	return v
}

func readU16(body []byte, ip int) uint16 {
	return uint16(body[ip]) | uint16(body[ip+1])<<8
}

func (vm *VM) execPush(op bytecode.Opcode, frame *object.Frame) {
	ordinal := readU64(frame.Method.Body, frame.IP)
	frame.IP += 8
	if int(ordinal) >= len(frame.Method.Dependencies) {
		vm.fail(INVALID_HASH_VALUE)
		return
	}
	dep := frame.Method.Dependencies[ordinal]

	var v object.Value
	var err error
	switch op {
	case bytecode.PUSH_STRING:
		v, err = vm.Heap.NewString(dep)
	case bytecode.PUSH_INTEGER:
		n, parseErr := parseDependencyInt(dep)
		if parseErr != nil {
			vm.fail(INVALID_HASH_VALUE)
			return
		}
		v, err = vm.Heap.NewInteger(n)
	case bytecode.PUSH_FLOAT:
		f, parseErr := parseDependencyFloat(dep)
		if parseErr != nil {
			vm.fail(INVALID_HASH_VALUE)
			return
		}
		v, err = vm.Heap.NewFloat(f)
	case bytecode.PUSH_OBJECT:
		v, err = vm.Heap.NewUnknown(dep)
	}
	if err != nil {
		vm.fail(OUT_OF_MEMORY)
		return
	}
	vm.push(v)
}

// execAllocVar reads the new local's name from the method's dependency
// pool via an inline 8-byte ordinal, the same operand shape PUSH_STRING
// uses (spec §4.F "Locals"; bytecode.Opcode.OperandWidth reports 8 for
// both ALLOC_VAR and ALLOC_CONST_VAR) — it never touches the object stack
// on the way in, only to push the resulting LocalObject.
func (vm *VM) execAllocVar(isConst bool) {
	frame := vm.currentFrame()
	ordinal := readU64(frame.Method.Body, frame.IP)
	frame.IP += 8
	if int(ordinal) >= len(frame.Method.Dependencies) {
		vm.fail(INVALID_HASH_VALUE)
		return
	}
	name := frame.Method.Dependencies[ordinal]
	local, err := vm.Heap.NewLocal(name, isConst, object.Null())
	if err != nil {
		vm.fail(OUT_OF_MEMORY)
		return
	}
	frame.Locals[name] = local
	vm.push(local)
}

func (vm *VM) execJump(op bytecode.Opcode, frame *object.Frame) {
	label := readU16(frame.Method.Body, frame.IP)
	frame.IP += 2
	if int(label) >= len(frame.Method.Labels) {
		vm.fail(INVALID_STACKFRAME_OFFSET)
		return
	}
	target := frame.Method.Labels[label]

	if op == bytecode.JUMP {
		frame.IP = target
		return
	}
	v, ok := vm.pop()
	if !ok {
		return
	}
	v = vm.resolveValue(v)
	b, ok := vm.truthy(v)
	if !ok {
		vm.fail(INVALID_METHOD_CALL)
		return
	}
	if (op == bytecode.JUMP_IF_TRUE && b) || (op == bytecode.JUMP_IF_FALSE && !b) {
		frame.IP = target
	}
}

// truthy coerces a Value for JUMP_IF_TRUE/JUMP_IF_FALSE, per spec §4.F.
func (vm *VM) truthy(v object.Value) (bool, bool) {
	switch v.Kind {
	case object.KindTrue:
		return true, true
	case object.KindFalse, object.KindNull:
		return false, true
	case object.KindClassObject:
		result, ok := vm.invokeUserMethod(v, "ToBoolean_1", nil)
		if !ok {
			return false, false
		}
		return vm.truthy(result)
	default:
		return false, false
	}
}

func (vm *VM) execReturn(frame *object.Frame, resolveTop bool) {
	var result object.Value
	if resolveTop {
		v, ok := vm.pop()
		if !ok {
			return
		}
		result = vm.resolveValue(v)
	} else if frame.Method.Is(object.MethodConstructor) {
		result = frame.This
	} else {
		result = object.Null()
	}
	vm.popFrame()
	vm.push(result)
}

func (vm *VM) popFrame() {
	if len(vm.CallStack) == 0 {
		vm.fail(CALLSTACK_EMPTY)
		return
	}
	vm.CallStack = vm.CallStack[:len(vm.CallStack)-1]
}
