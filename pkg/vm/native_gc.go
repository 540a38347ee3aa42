package vm

import "github.com/momodeve/mslvm/pkg/object"

func (vm *VM) nativeGC(methodName string, args []object.Value) (object.Value, bool) {
	switch methodName {
	case "Collect_0":
		vm.GC.Collect(vm)
		return object.Null(), true

	case "Enable_0":
		if vm.Config.SafeMode {
			vm.fail(PRIVATE_MEMBER_ACCESS)
			return object.Null(), false
		}
		vm.GC.SetAllowCollect(true)
		return object.Null(), true

	case "Disable_0":
		if vm.Config.SafeMode {
			vm.fail(PRIVATE_MEMBER_ACCESS)
			return object.Null(), false
		}
		vm.GC.SetAllowCollect(false)
		return object.Null(), true

	case "ReleaseMemory_0":
		vm.GC.ReleaseFreeSlabs()
		return object.Null(), true

	case "SetMinimalMemory_1":
		n, ok := vm.asIndex(argOrNull(args, 0))
		if !ok || n < 0 {
			vm.fail(INVALID_CALL_ARGUMENT)
			return object.Null(), false
		}
		vm.GC.SetMinMemory(uint64(n))
		return object.Null(), true

	case "SetMaximalMemory_1":
		n, ok := vm.asIndex(argOrNull(args, 0))
		if !ok || n < 0 {
			vm.fail(INVALID_CALL_ARGUMENT)
			return object.Null(), false
		}
		vm.GC.SetMaxMemory(uint64(n))
		return object.Null(), true

	case "SetLogPermissions_1":
		return object.Null(), true

	default:
		vm.fail(MEMBER_NOT_FOUND)
		return object.Null(), false
	}
}

func argOrNull(args []object.Value, i int) object.Value {
	if i < len(args) {
		return args[i]
	}
	return object.Null()
}
