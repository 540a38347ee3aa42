package vm

import (
	"math"

	"github.com/momodeve/mslvm/pkg/object"
)

func (vm *VM) asFloat(v object.Value) (float64, bool) {
	switch v.Kind {
	case object.KindFloat:
		f, ok := vm.Heap.Float(v)
		return f, ok
	case object.KindInteger:
		i, ok := vm.Heap.Integer(v)
		if !ok {
			return 0, false
		}
		return i.Float64(), true
	default:
		return 0, false
	}
}

var mathUnary = map[string]func(float64) float64{
	"Sqrt_1":  math.Sqrt,
	"Abs_1":   math.Abs,
	"Sin_1":   math.Sin,
	"Cos_1":   math.Cos,
	"Tan_1":   math.Tan,
	"Exp_1":   math.Exp,
	"Atan_1":  math.Atan,
	"Acos_1":  math.Acos,
	"Asin_1":  math.Asin,
	"Log10_1": math.Log10,
	"Log2_1":  math.Log2,
	"Log_1":   math.Log,
}

func (vm *VM) nativeMath(methodName string, args []object.Value) (object.Value, bool) {
	fn, ok := mathUnary[methodName]
	if !ok {
		vm.fail(MEMBER_NOT_FOUND)
		return object.Null(), false
	}
	if len(args) < 1 {
		vm.fail(INVALID_CALL_ARGUMENT)
		return object.Null(), false
	}
	x, ok := vm.asFloat(args[0])
	if !ok {
		vm.fail(INVALID_STACKOBJECT)
		return object.Null(), false
	}
	return vm.newFloat(fn(x))
}
