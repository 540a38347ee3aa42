package vm

import (
	"sort"
	"strings"

	"github.com/momodeve/mslvm/pkg/bigint"
	"github.com/momodeve/mslvm/pkg/bytecode"
	"github.com/momodeve/mslvm/pkg/object"
)

func (vm *VM) nativeArray(methodName string, receiver object.Value, args []object.Value) (object.Value, bool) {
	if receiver == object.Null() && strings.HasPrefix(methodName, "Array_") {
		elems := make([]object.Value, len(args))
		copy(elems, args)
		v, err := vm.Heap.NewArray(elems)
		if err != nil {
			vm.fail(OUT_OF_MEMORY)
			return object.Null(), false
		}
		return v, true
	}

	cell, ok := vm.Heap.Array(receiver)
	if !ok {
		vm.fail(INVALID_STACKOBJECT)
		return object.Null(), false
	}

	switch methodName {
	case "Size_0":
		return vm.newInt(bigint.FromInt64(int64(len(cell.Elems))))

	case "Empty_0":
		return object.BoolValue(len(cell.Elems) == 0), true

	case "Append_1":
		if len(args) < 1 {
			vm.fail(INVALID_CALL_ARGUMENT)
			return object.Null(), false
		}
		vm.Heap.SetArray(receiver, append(cell.Elems, args[0]))
		return object.Null(), true

	case "Pop_0":
		if len(cell.Elems) == 0 {
			vm.fail(INVALID_STACKOBJECT)
			return object.Null(), false
		}
		last := cell.Elems[len(cell.Elems)-1]
		vm.Heap.SetArray(receiver, cell.Elems[:len(cell.Elems)-1])
		return last, true

	case "GetByIndex_1", "GetByIter_1":
		if len(args) < 1 {
			vm.fail(INVALID_CALL_ARGUMENT)
			return object.Null(), false
		}
		idx, ok := vm.asIndex(args[0])
		if !ok || idx < 0 || idx >= len(cell.Elems) {
			vm.fail(INVALID_STACKOBJECT)
			return object.Null(), false
		}
		return cell.Elems[idx], true

	case "Begin_0":
		return vm.newInt(bigint.Zero())

	case "End_0":
		return vm.newInt(bigint.FromInt64(int64(len(cell.Elems))))

	case "Next_1":
		if len(args) < 1 {
			vm.fail(INVALID_CALL_ARGUMENT)
			return object.Null(), false
		}
		idx, ok := vm.asIndex(args[0])
		if !ok {
			vm.fail(INVALID_STACKOBJECT)
			return object.Null(), false
		}
		return vm.newInt(bigint.FromInt64(int64(idx + 1)))

	case "ToString_0", "ToString_1":
		parts := make([]string, len(cell.Elems))
		for i, e := range cell.Elems {
			parts[i] = vm.renderText(e)
		}
		return vm.newString("[" + strings.Join(parts, ", ") + "]")

	case "Sort_0":
		return vm.arraySort(receiver, cell.Elems)

	default:
		vm.fail(MEMBER_NOT_FOUND)
		return object.Null(), false
	}
}

// arraySort sorts in place via sort.SliceStable, comparing elements through
// the VM's own ALU (CMP_L) so a ClassObject element's user-defined IsLess_2
// operator drives ordering exactly as it would from user bytecode (spec §5
// reentrant native call). A comparison failure latches vm.ErrorWord and the
// remaining comparisons become no-ops; the caller checks ErrorWord after.
func (vm *VM) arraySort(receiver object.Value, elems []object.Value) (object.Value, bool) {
	out := make([]object.Value, len(elems))
	copy(out, elems)
	sort.SliceStable(out, func(i, j int) bool {
		if vm.ErrorWord != 0 {
			return false
		}
		less, ok := vm.applyBinary(bytecode.CMP_L, out[i], out[j])
		if !ok {
			return false
		}
		return less.Kind == object.KindTrue
	})
	if vm.ErrorWord != 0 {
		return object.Null(), false
	}
	vm.Heap.SetArray(receiver, out)
	return object.Null(), true
}
