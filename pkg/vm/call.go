package vm

import (
	"github.com/momodeve/mslvm/pkg/object"
	"github.com/momodeve/mslvm/pkg/slab"
)

func (vm *VM) staticAttrCell(class *object.ClassType, name string) (object.Value, bool) {
	co, ok := vm.Heap.ClassObject(class.StaticInstance)
	if !ok {
		return object.Value{}, false
	}
	handle, ok := co.Attrs[name]
	if !ok {
		return object.Value{}, false
	}
	return object.Value{Kind: object.KindAttribute, H: handle}, true
}

func (vm *VM) resolveMethod(class *object.ClassType, name string, arity int) (*object.MethodType, bool) {
	m, ok := class.Methods[object.Mangle(name, arity, false)]
	return m, ok
}

func (vm *VM) accessAllowed(caller *object.Frame, class *object.ClassType) bool {
	if caller == nil {
		return false
	}
	return caller.Class == class || (caller.Namespace != nil && caller.Namespace == class.Namespace)
}

func (vm *VM) namespaceAllowed(caller *object.Frame, ns *object.NamespaceType) bool {
	if caller == nil {
		return false
	}
	return caller.Namespace == ns || ns.Friends[namespaceNameOf(caller)]
}

func namespaceNameOf(f *object.Frame) string {
	if f.Namespace == nil {
		return ""
	}
	return f.Namespace.Name
}

// constructInstance runs the zero-or-N-arg constructor rewrite of spec
// §4.F "Frame initialization": allocate a fresh instance, bind it as
// `this`, and run the matching constructor.
func (vm *VM) constructInstance(class *object.ClassType, args []object.Value) {
	if class.Is(object.ClassAbstract) {
		vm.fail(ABSTRACT_MEMBER_CALL)
		return
	}
	if class.Is(object.ClassStatic) || class.Is(object.ClassInterface) {
		vm.fail(MEMBER_NOT_FOUND)
		return
	}
	ctor, found := class.Methods[object.Mangle(class.Name, len(args), false)]
	if !found {
		vm.fail(MEMBER_NOT_FOUND)
		return
	}
	if !ctor.Is(object.MethodConstructor) {
		vm.fail(INVALID_METHOD_CALL)
		return
	}
	instance, err := vm.Heap.NewClassObject(class)
	if err != nil {
		vm.fail(OUT_OF_MEMORY)
		return
	}
	attrs, ok := vm.newAttrTable(class.ObjectAttributes)
	if !ok {
		return
	}
	vm.Heap.SetClassObjectAttrs(instance, attrs)
	vm.callMethod(ctor, instance, args)
}

// newAttrTable allocates one Attribute cell per declared attribute
// descriptor, all initialized to Null per spec invariant 4.
func (vm *VM) newAttrTable(defs map[string]*object.AttributeType) (map[string]slab.Handle, bool) {
	handles := map[string]slab.Handle{}
	for name, def := range defs {
		v, err := vm.Heap.NewAttribute(name, def.Modifiers, object.Null())
		if err != nil {
			vm.fail(OUT_OF_MEMORY)
			return nil, false
		}
		handles[name] = v.H
	}
	return handles, true
}

// callMethod pushes a new frame for method, binding `this` and the
// declared parameters in order, after the recursion-depth and
// abstract/static-constructor checks of spec §4.F. It does not itself
// advance the interpreter over method's body; the main loop picks up at
// the new frame's IP 0 on the next step. Two cases do run code here: a
// System-class method runs natively at once and its result is pushed, and
// a class's pending static constructor is stepped to completion before the
// frame for method is pushed.
func (vm *VM) callMethod(method *object.MethodType, this object.Value, args []object.Value) bool {
	if method.Class != nil && method.Class.Is(object.ClassSystem) {
		v, ok := vm.callNative(method.Class.Name, method.Name, this, args)
		if ok {
			vm.push(v)
		}
		return ok
	}
	if len(vm.CallStack) >= vm.Config.RecursionLimit {
		vm.fail(STACKOVERFLOW)
		return false
	}
	if method.Is(object.MethodAbstract) {
		vm.fail(ABSTRACT_MEMBER_CALL)
		return false
	}
	if method.Is(object.MethodStaticConstructor) {
		if method.Class.StaticConstructorCalled {
			vm.fail(INVALID_METHOD_CALL)
			return false
		}
		method.Class.StaticConstructorCalled = true
	} else if method.Class != nil && method.Class.Is(object.ClassHasStaticConstructor) && !method.Class.StaticConstructorCalled {
		sc, ok := method.Class.Methods[object.Mangle(method.Class.Name, 0, true)]
		if ok {
			depth := len(vm.CallStack)
			if !vm.callMethod(sc, object.Null(), nil) {
				return false
			}
			for len(vm.CallStack) > depth && vm.ErrorWord == 0 {
				vm.step()
			}
			if vm.ErrorWord != 0 {
				return false
			}
			vm.pop() // static constructor result (Null) is discarded
		}
	}

	var ns *object.NamespaceType
	if method.Class != nil {
		ns = method.Class.Namespace
	}
	frame := object.NewFrame(method, method.Class, ns)
	frame.This = this
	for i, pname := range method.Params {
		var val object.Value
		if i < len(args) {
			val = args[i]
		} else {
			val = object.Null()
		}
		local, err := vm.Heap.NewLocal(pname, false, val)
		if err != nil {
			vm.fail(OUT_OF_MEMORY)
			return false
		}
		frame.Locals[pname] = local
	}
	vm.CallStack = append(vm.CallStack, frame)
	return true
}

// constructInstanceSync runs constructInstance to completion and returns
// the constructed instance, for reentrant callers (Reflection.CreateInstance)
// that must return a value synchronously rather than let the main loop
// drive the new frame.
func (vm *VM) constructInstanceSync(class *object.ClassType, args []object.Value) (object.Value, bool) {
	depth := len(vm.CallStack)
	vm.constructInstance(class, args)
	if vm.ErrorWord != 0 {
		return object.Null(), false
	}
	for len(vm.CallStack) > depth && vm.ErrorWord == 0 {
		vm.step()
	}
	if vm.ErrorWord != 0 {
		return object.Null(), false
	}
	v, ok := vm.pop()
	if !ok {
		return object.Null(), false
	}
	return vm.resolveValue(v), true
}

// invokeUserMethod runs a ClassObject method to completion and returns its
// result, for reentrant callers (ALU operator dispatch, JUMP_IF truthiness,
// Console/Array native bridges rendering via ToString_1). Spec §5 requires
// the nested frames to finish before the native caller returns.
func (vm *VM) invokeUserMethod(receiver object.Value, mangledName string, args []object.Value) (object.Value, bool) {
	co, ok := vm.Heap.ClassObject(receiver)
	if !ok {
		vm.fail(INVALID_STACKOBJECT)
		return object.Null(), false
	}
	method, found := co.Class.Methods[mangledName]
	if !found {
		vm.fail(MEMBER_NOT_FOUND)
		return object.Null(), false
	}
	if method.Class != nil && method.Class.Is(object.ClassSystem) {
		return vm.callNative(method.Class.Name, method.Name, receiver, args)
	}
	depth := len(vm.CallStack)
	if !vm.callMethod(method, receiver, args) {
		return object.Null(), false
	}
	for len(vm.CallStack) > depth && vm.ErrorWord == 0 {
		vm.step()
	}
	if vm.ErrorWord != 0 {
		return object.Null(), false
	}
	v, ok := vm.pop()
	if !ok {
		return object.Null(), false
	}
	return vm.resolveValue(v), true
}

// dispatch resolves and invokes a call whose receiver and already-resolved
// arguments were just popped off the object stack by CALL_FUNCTION, and
// whose method name came from the dependency pool via the instruction's
// inline ordinal (spec §4.F "Call").
func (vm *VM) dispatch(receiver object.Value, name string, args []object.Value, caller *object.Frame) {
	switch receiver.Kind {
	case object.KindClassObject:
		co, ok := vm.Heap.ClassObject(receiver)
		if !ok {
			vm.fail(INVALID_STACKOBJECT)
			return
		}
		if co.Class.Is(object.ClassSystem) {
			v, ok := vm.callNative(co.Class.Name, name, receiver, args)
			if ok {
				vm.push(v)
			}
			return
		}
		// Instance methods mangle with this counted into arity (spec
		// GLOSSARY "Mangled method name"), so a receiver-bound call looks
		// up len(args)+1, not the raw explicit-argument count.
		method, found := vm.resolveMethod(co.Class, name, len(args)+1)
		if !found {
			vm.fail(MEMBER_NOT_FOUND)
			return
		}
		if !method.Is(object.MethodPublic) && !vm.accessAllowed(caller, method.Class) {
			vm.fail(PRIVATE_MEMBER_ACCESS)
			return
		}
		vm.callMethod(method, receiver, args)

	case object.KindArray:
		v, ok := vm.callNative("Array", name, receiver, args)
		if ok {
			vm.push(v)
		}

	case object.KindInteger, object.KindFloat, object.KindString, object.KindTrue, object.KindFalse, object.KindNull:
		v, ok := vm.callNative(primitiveClassName(receiver.Kind), name, receiver, args)
		if ok {
			vm.push(v)
		}

	case object.KindClassWrapper:
		class := receiver.Class()
		if class.Is(object.ClassSystem) {
			v, ok := vm.callNative(class.Name, name, object.Null(), args)
			if ok {
				vm.push(v)
			}
			return
		}
		if method, found := vm.resolveMethod(class, name, len(args)); found {
			if !method.Is(object.MethodStatic) {
				vm.fail(INVALID_METHOD_CALL)
				return
			}
			if !method.Is(object.MethodPublic) && !vm.accessAllowed(caller, class) {
				vm.fail(PRIVATE_MEMBER_ACCESS)
				return
			}
			vm.callMethod(method, object.Null(), args)
			return
		}
		if name == class.Name {
			vm.constructInstance(class, args)
			return
		}
		vm.fail(MEMBER_NOT_FOUND)

	case object.KindNamespaceWrapper:
		ns := receiver.Namespace()
		class, ok := ns.Classes[name]
		if !ok {
			vm.fail(OBJECT_NOT_FOUND)
			return
		}
		if class.Is(object.ClassInternal) && !vm.namespaceAllowed(caller, ns) {
			vm.fail(PRIVATE_MEMBER_ACCESS)
			return
		}
		vm.constructInstance(class, args)

	default:
		vm.fail(INVALID_STACKOBJECT)
	}
}

func primitiveClassName(k object.Kind) string {
	switch k {
	case object.KindInteger:
		return "Integer"
	case object.KindFloat:
		return "Float"
	case object.KindString:
		return "String"
	case object.KindTrue, object.KindFalse:
		return "Boolean"
	default:
		return "Null"
	}
}

// execCallFunction decodes CALL_FUNCTION's operand (an 8-byte ordinal into
// the method's dependency pool naming the callee, an 1-byte argument
// count), pops the receiver and arguments, and dispatches.
func (vm *VM) execCallFunction(frame *object.Frame) {
	body := frame.Method.Body
	if frame.IP+9 > len(body) {
		vm.fail(INVALID_STACKFRAME_OFFSET)
		return
	}
	ordinal := readU64(body, frame.IP)
	arity := int(body[frame.IP+8])
	frame.IP += 9

	if int(ordinal) >= len(frame.Method.Dependencies) {
		vm.fail(INVALID_HASH_VALUE)
		return
	}
	name := frame.Method.Dependencies[ordinal]

	args := make([]object.Value, arity)
	for i := arity - 1; i >= 0; i-- {
		v, ok := vm.pop()
		if !ok {
			return
		}
		args[i] = vm.resolveValue(v)
	}
	receiverVal, ok := vm.pop()
	if !ok {
		return
	}
	receiver := vm.resolveValue(receiverVal)

	vm.dispatch(receiver, name, args, frame)
}
