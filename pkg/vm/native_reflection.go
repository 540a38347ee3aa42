package vm

import "github.com/momodeve/mslvm/pkg/object"

func (vm *VM) nativeReflection(methodName string, args []object.Value) (object.Value, bool) {
	switch methodName {
	case "GetType_1":
		if len(args) < 1 {
			vm.fail(INVALID_CALL_ARGUMENT)
			return object.Null(), false
		}
		return vm.typeOf(args[0])

	case "CreateInstance_1":
		if len(args) < 1 || args[0].Kind != object.KindClassWrapper {
			vm.fail(INVALID_CALL_ARGUMENT)
			return object.Null(), false
		}
		return vm.constructInstanceSync(args[0].Class(), nil)

	case "Invoke_2":
		if len(args) < 2 {
			vm.fail(INVALID_CALL_ARGUMENT)
			return object.Null(), false
		}
		name, ok := vm.literalName(args[1])
		if !ok {
			vm.fail(INVALID_STACKOBJECT)
			return object.Null(), false
		}
		if args[0].Kind == object.KindClassObject {
			// Invoke always calls a zero-explicit-arg instance method here;
			// the mangled key still counts the implicit this (arity 1).
			return vm.invokeUserMethod(args[0], object.Mangle(name, 1, false), nil)
		}
		vm.fail(INVALID_STACKOBJECT)
		return object.Null(), false

	case "ContainsMember_2":
		if len(args) < 2 {
			vm.fail(INVALID_CALL_ARGUMENT)
			return object.Null(), false
		}
		return vm.containsMember(args[0], args[1])

	case "ContainsMethod_2":
		if len(args) < 2 {
			vm.fail(INVALID_CALL_ARGUMENT)
			return object.Null(), false
		}
		return vm.containsMethod(args[0], args[1])

	case "GetMember_2":
		if len(args) < 2 {
			vm.fail(INVALID_CALL_ARGUMENT)
			return object.Null(), false
		}
		name, ok := vm.literalName(args[1])
		if !ok {
			vm.fail(INVALID_STACKOBJECT)
			return object.Null(), false
		}
		return vm.memberLookup(args[0], name, vm.currentFrame())

	case "GetNamespace_1":
		if len(args) < 1 {
			vm.fail(INVALID_CALL_ARGUMENT)
			return object.Null(), false
		}
		name, ok := vm.literalName(args[0])
		if !ok {
			vm.fail(INVALID_STACKOBJECT)
			return object.Null(), false
		}
		ns, ok := vm.Assembly.Namespaces[name]
		if !ok {
			vm.fail(OBJECT_NOT_FOUND)
			return object.Null(), false
		}
		return ns.Wrapper, true

	case "IsNamespaceExists_1":
		if len(args) < 1 {
			vm.fail(INVALID_CALL_ARGUMENT)
			return object.Null(), false
		}
		name, ok := vm.literalName(args[0])
		if !ok {
			vm.fail(INVALID_STACKOBJECT)
			return object.Null(), false
		}
		_, exists := vm.Assembly.Namespaces[name]
		return object.BoolValue(exists), true

	default:
		vm.fail(MEMBER_NOT_FOUND)
		return object.Null(), false
	}
}

func (vm *VM) typeOf(v object.Value) (object.Value, bool) {
	switch v.Kind {
	case object.KindClassObject:
		co, ok := vm.Heap.ClassObject(v)
		if !ok {
			vm.fail(INVALID_STACKOBJECT)
			return object.Null(), false
		}
		return co.Class.Wrapper, true
	case object.KindArray:
		return vm.systemClasses["Array"].Wrapper, true
	default:
		if class, ok := vm.systemClasses[primitiveClassName(v.Kind)]; ok {
			return class.Wrapper, true
		}
		vm.fail(INVALID_STACKOBJECT)
		return object.Null(), false
	}
}

func (vm *VM) containsMember(target, nameVal object.Value) (object.Value, bool) {
	name, ok := vm.literalName(nameVal)
	if !ok {
		vm.fail(INVALID_STACKOBJECT)
		return object.Null(), false
	}
	var class *object.ClassType
	switch target.Kind {
	case object.KindClassWrapper:
		class = target.Class()
	case object.KindClassObject:
		co, ok := vm.Heap.ClassObject(target)
		if !ok {
			vm.fail(INVALID_STACKOBJECT)
			return object.Null(), false
		}
		class = co.Class
	default:
		vm.fail(INVALID_STACKOBJECT)
		return object.Null(), false
	}
	_, inObj := class.ObjectAttributes[name]
	_, inStatic := class.StaticAttributes[name]
	return object.BoolValue(inObj || inStatic), true
}

func (vm *VM) containsMethod(target, nameVal object.Value) (object.Value, bool) {
	name, ok := vm.literalName(nameVal)
	if !ok {
		vm.fail(INVALID_STACKOBJECT)
		return object.Null(), false
	}
	var class *object.ClassType
	switch target.Kind {
	case object.KindClassWrapper:
		class = target.Class()
	case object.KindClassObject:
		co, ok := vm.Heap.ClassObject(target)
		if !ok {
			vm.fail(INVALID_STACKOBJECT)
			return object.Null(), false
		}
		class = co.Class
	default:
		vm.fail(INVALID_STACKOBJECT)
		return object.Null(), false
	}
	for arity := 0; arity <= 16; arity++ {
		if _, ok := class.Methods[object.Mangle(name, arity, false)]; ok {
			return object.True(), true
		}
	}
	return object.False(), true
}
