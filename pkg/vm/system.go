package vm

import "github.com/momodeve/mslvm/pkg/object"

// systemClassNames lists every class the VM declares at start-up under the
// System namespace (spec §4.G). Integer/Float/String/Boolean/Null exist
// only to anchor primitive method dispatch (ToString/GetByIndex on a bare
// value) and are never constructed directly.
var systemClassNames = []string{
	"Console", "Reflection", "Array", "Math", "GC",
	"Integer", "Float", "String", "Boolean", "Null",
}

func (vm *VM) registerSystemClasses() {
	ns := object.NewNamespaceType("System")
	for _, name := range systemClassNames {
		class := object.NewClassType(name, ns, object.ClassSystem|object.ClassStatic)
		class.Wrapper = object.ClassWrapper(class)
		ns.Classes[name] = class
		vm.systemClasses[name] = class
	}
	ns.Wrapper = object.NamespaceWrapper(ns)
	vm.Assembly.Namespaces["System"] = ns
}

// callNative dispatches a (class, method) pair to its native implementation.
// methodName is mangled (Mangle(name, len(args), false)) here, once, so
// every native_*.go switch matches the same "Name_arity" keys resolveMethod
// uses for user classes — CALL_FUNCTION's dependency-pool entry itself
// carries no arity suffix. Every native function returns (result, ok); ok
// is false exactly when it has already set an error-word bit via vm.fail.
func (vm *VM) callNative(className, methodName string, receiver object.Value, args []object.Value) (object.Value, bool) {
	methodName = object.Mangle(methodName, len(args), false)
	switch className {
	case "Console":
		return vm.nativeConsole(methodName, args)
	case "Reflection":
		return vm.nativeReflection(methodName, args)
	case "Array":
		return vm.nativeArray(methodName, receiver, args)
	case "Math":
		return vm.nativeMath(methodName, args)
	case "GC":
		return vm.nativeGC(methodName, args)
	case "Integer", "Float", "String", "Boolean", "Null":
		return vm.nativePrimitive(className, methodName, receiver, args)
	default:
		vm.fail(MEMBER_NOT_FOUND)
		return object.Null(), false
	}
}

// nativePrimitive backs the thin System wrapper classes for Integer, Float,
// String, Boolean and Null: just enough to render text and index a String
// by character, the operations GET_INDEX/ToString need on a bare value.
func (vm *VM) nativePrimitive(className, methodName string, receiver object.Value, args []object.Value) (object.Value, bool) {
	switch methodName {
	case "ToString_0":
		return vm.newString(vm.Heap.ToText(receiver))
	case "GetByIndex_1":
		if className != "String" {
			vm.fail(MEMBER_NOT_FOUND)
			return object.Null(), false
		}
		if len(args) < 1 {
			vm.fail(INVALID_CALL_ARGUMENT)
			return object.Null(), false
		}
		s, ok := vm.Heap.String(receiver)
		if !ok {
			vm.fail(INVALID_STACKOBJECT)
			return object.Null(), false
		}
		idx, ok := vm.asIndex(args[0])
		if !ok || idx < 0 || idx >= len(s) {
			vm.fail(INVALID_STACKOBJECT)
			return object.Null(), false
		}
		return vm.newString(string(s[idx]))
	default:
		vm.fail(MEMBER_NOT_FOUND)
		return object.Null(), false
	}
}

func (vm *VM) asIndex(v object.Value) (int, bool) {
	switch v.Kind {
	case object.KindInteger:
		i, ok := vm.Heap.Integer(v)
		if !ok {
			return 0, false
		}
		return int(i.Float64()), true
	case object.KindFloat:
		f, ok := vm.Heap.Float(v)
		if !ok {
			return 0, false
		}
		return int(f), true
	default:
		return 0, false
	}
}

// renderText is Console/Array's text-coercion helper: ClassObject values
// go through ToString_1, everything else through the Heap's direct
// rendering.
func (vm *VM) renderText(v object.Value) string {
	if v.Kind == object.KindClassObject {
		if r, ok := vm.invokeUserMethod(v, "ToString_1", nil); ok {
			return vm.Heap.ToText(r)
		}
		return ""
	}
	return vm.Heap.ToText(v)
}
