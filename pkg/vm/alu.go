package vm

import (
	"math"
	"strings"

	"github.com/momodeve/mslvm/pkg/bigint"
	"github.com/momodeve/mslvm/pkg/bytecode"
	"github.com/momodeve/mslvm/pkg/object"
)

// operatorMethod maps an ALU opcode to the fixed operator-method name a
// ClassObject left operand is dispatched to, per spec §4.F "ALU".
var operatorMethod = map[bytecode.Opcode]string{
	bytecode.SUM_OP:    "SumOperator_2",
	bytecode.SUB_OP:    "SubOperator_2",
	bytecode.MULT_OP:   "MultOperator_2",
	bytecode.DIV_OP:    "DivOperator_2",
	bytecode.MOD_OP:    "ModOperator_2",
	bytecode.POWER_OP:  "PowerOperator_2",
	bytecode.CMP_EQ:    "IsEqual_2",
	bytecode.CMP_NEQ:   "IsNotEqual_2",
	bytecode.CMP_L:     "IsLess_2",
	bytecode.CMP_G:     "IsGreater_2",
	bytecode.CMP_LE:    "IsLessEqual_2",
	bytecode.CMP_GE:    "IsGreaterEqual_2",
	bytecode.CMP_AND:   "AndOperator_2",
	bytecode.CMP_OR:    "OrOperator_2",
}

func (vm *VM) newInt(i bigint.Int) (object.Value, bool) {
	v, err := vm.Heap.NewInteger(i)
	if err != nil {
		vm.fail(OUT_OF_MEMORY)
		return object.Null(), false
	}
	return v, true
}

func (vm *VM) newFloat(f float64) (object.Value, bool) {
	v, err := vm.Heap.NewFloat(f)
	if err != nil {
		vm.fail(OUT_OF_MEMORY)
		return object.Null(), false
	}
	return v, true
}

func (vm *VM) newString(s string) (object.Value, bool) {
	v, err := vm.Heap.NewString(s)
	if err != nil {
		vm.fail(OUT_OF_MEMORY)
		return object.Null(), false
	}
	return v, true
}

// execALU routes one arithmetic/logic opcode through the ALU (spec §4.F),
// honoring the ALU-increment flag set by a preceding SET_ALU_INCR.
func (vm *VM) execALU(op bytecode.Opcode) {
	incr := vm.aluIncr
	vm.aluIncr = false

	if op == bytecode.ASSIGN_OP {
		vm.execAssign()
		return
	}

	if op.Unary() {
		raw, ok := vm.pop()
		if !ok {
			return
		}
		operand := vm.resolveValue(raw)
		result, ok := vm.applyUnary(op, operand)
		if !ok {
			return
		}
		if incr {
			vm.push(raw)
			vm.push(result)
			vm.execAssign()
			return
		}
		vm.push(result)
		return
	}

	rightRaw, ok := vm.pop()
	if !ok {
		return
	}
	leftRaw, ok := vm.pop()
	if !ok {
		return
	}
	right := vm.resolveValue(rightRaw)
	left := vm.resolveValue(leftRaw)

	result, ok := vm.applyBinary(op, left, right)
	if !ok {
		return
	}

	if incr {
		vm.push(leftRaw)
		vm.push(result)
		vm.execAssign()
		return
	}
	vm.push(result)
}

// execAssign implements ASSIGN_OP: pop (cell, value), reject assignment to
// a non-Null const slot, rebind the slot, and push the cell back.
func (vm *VM) execAssign() {
	valueRaw, ok := vm.pop()
	if !ok {
		return
	}
	cellRaw, ok := vm.pop()
	if !ok {
		return
	}
	value := vm.resolveValue(valueRaw)
	cell := vm.resolve(cellRaw)

	switch cell.Kind {
	case object.KindLocal:
		lc, ok := vm.Heap.Local(cell)
		if !ok {
			vm.fail(INVALID_STACKOBJECT)
			return
		}
		if lc.Const && lc.Val.Kind != object.KindNull {
			vm.fail(CONST_MEMBER_MODIFICATION)
			return
		}
		vm.Heap.SetLocalValue(cell, value)
	case object.KindAttribute:
		ac, ok := vm.Heap.Attribute(cell)
		if !ok {
			vm.fail(INVALID_STACKOBJECT)
			return
		}
		if ac.Mods.Has(object.AttributeConst) && ac.Val.Kind != object.KindNull {
			vm.fail(CONST_MEMBER_MODIFICATION)
			return
		}
		vm.Heap.SetAttributeValue(cell, value)
	default:
		vm.fail(INVALID_STACKOBJECT)
		return
	}
	vm.push(cell)
}

func (vm *VM) applyUnary(op bytecode.Opcode, v object.Value) (object.Value, bool) {
	switch op {
	case bytecode.NEGATION_OP:
		switch v.Kind {
		case object.KindTrue:
			return object.False(), true
		case object.KindFalse:
			return object.True(), true
		case object.KindClassObject:
			return vm.invokeUserMethod(v, "NegationOperator_1", nil)
		default:
			vm.fail(INVALID_OPCODE)
			return object.Null(), false
		}
	case bytecode.NEGATIVE_OP:
		switch v.Kind {
		case object.KindInteger:
			i, _ := vm.Heap.Integer(v)
			return vm.newInt(bigint.Neg(i))
		case object.KindFloat:
			f, _ := vm.Heap.Float(v)
			return vm.newFloat(-f)
		case object.KindClassObject:
			return vm.invokeUserMethod(v, "NegOperator_2", nil)
		default:
			vm.fail(INVALID_STACKOBJECT)
			return object.Null(), false
		}
	case bytecode.POSITIVE_OP:
		switch v.Kind {
		case object.KindInteger, object.KindFloat:
			return v, true
		case object.KindClassObject:
			return vm.invokeUserMethod(v, "PosOperator_2", nil)
		default:
			vm.fail(INVALID_STACKOBJECT)
			return object.Null(), false
		}
	default:
		vm.fail(INVALID_OPCODE)
		return object.Null(), false
	}
}

func (vm *VM) applyBinary(op bytecode.Opcode, left, right object.Value) (object.Value, bool) {
	switch left.Kind {
	case object.KindClassObject:
		name, ok := operatorMethod[op]
		if !ok {
			vm.fail(INVALID_OPCODE)
			return object.Null(), false
		}
		return vm.invokeUserMethod(left, name, []object.Value{right})
	case object.KindInteger:
		return vm.applyIntegerBinary(op, left, right)
	case object.KindFloat:
		return vm.applyFloatBinary(op, left, right)
	case object.KindString:
		return vm.applyStringBinary(op, left, right)
	case object.KindClassWrapper:
		switch op {
		case bytecode.CMP_EQ:
			return object.BoolValue(sameClassWrapper(left, right)), true
		case bytecode.CMP_NEQ:
			return object.BoolValue(!sameClassWrapper(left, right)), true
		default:
			vm.fail(INVALID_OPCODE)
			return object.Null(), false
		}
	case object.KindTrue, object.KindFalse:
		return vm.applyBoolBinary(op, left, right)
	default:
		vm.fail(INVALID_STACKOBJECT)
		return object.Null(), false
	}
}

func sameClassWrapper(left, right object.Value) bool {
	return right.Kind == object.KindClassWrapper && left.Class() == right.Class()
}

func (vm *VM) applyIntegerBinary(op bytecode.Opcode, left, right object.Value) (object.Value, bool) {
	if right.Kind == object.KindClassObject {
		converted, ok := vm.invokeUserMethod(right, "ToInteger_1", nil)
		if !ok {
			return object.Null(), false
		}
		right = converted
	}
	switch right.Kind {
	case object.KindInteger:
		a, _ := vm.Heap.Integer(left)
		b, _ := vm.Heap.Integer(right)
		return vm.intOp(op, a, b)
	case object.KindFloat:
		a, _ := vm.Heap.Integer(left)
		b, _ := vm.Heap.Float(right)
		return vm.floatOp(op, a.Float64(), b)
	default:
		vm.fail(INVALID_STACKOBJECT)
		return object.Null(), false
	}
}

func (vm *VM) intOp(op bytecode.Opcode, a, b bigint.Int) (object.Value, bool) {
	switch op {
	case bytecode.SUM_OP:
		return vm.newInt(bigint.Add(a, b))
	case bytecode.SUB_OP:
		return vm.newInt(bigint.Sub(a, b))
	case bytecode.MULT_OP:
		return vm.newInt(bigint.Mul(a, b))
	case bytecode.DIV_OP:
		return vm.newInt(bigint.Div(a, b))
	case bytecode.MOD_OP:
		return vm.newInt(bigint.Mod(a, b))
	case bytecode.POWER_OP:
		return vm.newInt(bigint.Pow(a, b))
	case bytecode.CMP_EQ:
		return object.BoolValue(bigint.Equal(a, b)), true
	case bytecode.CMP_NEQ:
		return object.BoolValue(!bigint.Equal(a, b)), true
	case bytecode.CMP_L:
		return object.BoolValue(bigint.Cmp(a, b) < 0), true
	case bytecode.CMP_G:
		return object.BoolValue(bigint.Cmp(a, b) > 0), true
	case bytecode.CMP_LE:
		return object.BoolValue(bigint.Cmp(a, b) <= 0), true
	case bytecode.CMP_GE:
		return object.BoolValue(bigint.Cmp(a, b) >= 0), true
	default:
		vm.fail(INVALID_OPCODE)
		return object.Null(), false
	}
}

func (vm *VM) applyFloatBinary(op bytecode.Opcode, left, right object.Value) (object.Value, bool) {
	a, _ := vm.Heap.Float(left)
	if right.Kind == object.KindClassObject {
		converted, ok := vm.invokeUserMethod(right, "ToFloat_1", nil)
		if !ok {
			return object.Null(), false
		}
		right = converted
	}
	switch right.Kind {
	case object.KindFloat:
		b, _ := vm.Heap.Float(right)
		return vm.floatOp(op, a, b)
	case object.KindInteger:
		b, _ := vm.Heap.Integer(right)
		return vm.floatOp(op, a, b.Float64())
	default:
		vm.fail(INVALID_STACKOBJECT)
		return object.Null(), false
	}
}

func (vm *VM) floatOp(op bytecode.Opcode, a, b float64) (object.Value, bool) {
	switch op {
	case bytecode.SUM_OP:
		return vm.newFloat(a + b)
	case bytecode.SUB_OP:
		return vm.newFloat(a - b)
	case bytecode.MULT_OP:
		return vm.newFloat(a * b)
	case bytecode.DIV_OP:
		return vm.newFloat(a / b)
	case bytecode.MOD_OP:
		return vm.newFloat(math.Mod(a, b))
	case bytecode.POWER_OP:
		return vm.newFloat(math.Pow(a, b))
	case bytecode.CMP_EQ:
		return object.BoolValue(a == b), true
	case bytecode.CMP_NEQ:
		return object.BoolValue(a != b), true
	case bytecode.CMP_L:
		return object.BoolValue(a < b), true
	case bytecode.CMP_G:
		return object.BoolValue(a > b), true
	case bytecode.CMP_LE:
		return object.BoolValue(a <= b), true
	case bytecode.CMP_GE:
		return object.BoolValue(a >= b), true
	default:
		vm.fail(INVALID_OPCODE)
		return object.Null(), false
	}
}

func (vm *VM) applyStringBinary(op bytecode.Opcode, left, right object.Value) (object.Value, bool) {
	ls, _ := vm.Heap.String(left)

	if right.Kind == object.KindClassObject {
		converted, ok := vm.invokeUserMethod(right, "ToString_1", nil)
		if !ok {
			return object.Null(), false
		}
		right = converted
	}

	switch right.Kind {
	case object.KindString:
		rs, _ := vm.Heap.String(right)
		switch op {
		case bytecode.SUM_OP:
			return vm.newString(ls + rs)
		case bytecode.CMP_EQ:
			return object.BoolValue(ls == rs), true
		case bytecode.CMP_NEQ:
			return object.BoolValue(ls != rs), true
		case bytecode.CMP_L:
			return object.BoolValue(strings.Compare(ls, rs) < 0), true
		case bytecode.CMP_G:
			return object.BoolValue(strings.Compare(ls, rs) > 0), true
		case bytecode.CMP_LE:
			return object.BoolValue(strings.Compare(ls, rs) <= 0), true
		case bytecode.CMP_GE:
			return object.BoolValue(strings.Compare(ls, rs) >= 0), true
		default:
			vm.fail(INVALID_OPCODE)
			return object.Null(), false
		}
	case object.KindInteger:
		ri, _ := vm.Heap.Integer(right)
		switch op {
		case bytecode.MULT_OP:
			n := int(ri.Float64())
			if n < 0 {
				n = 0
			}
			return vm.newString(strings.Repeat(ls, n))
		case bytecode.SUM_OP:
			return vm.newString(ls + ri.String())
		default:
			vm.fail(INVALID_OPCODE)
			return object.Null(), false
		}
	case object.KindFloat, object.KindTrue, object.KindFalse, object.KindNull:
		if op != bytecode.SUM_OP {
			vm.fail(INVALID_OPCODE)
			return object.Null(), false
		}
		return vm.newString(ls + vm.Heap.ToText(right))
	default:
		vm.fail(INVALID_STACKOBJECT)
		return object.Null(), false
	}
}

func (vm *VM) applyBoolBinary(op bytecode.Opcode, left, right object.Value) (object.Value, bool) {
	lb := left.Kind == object.KindTrue
	switch op {
	case bytecode.CMP_AND, bytecode.CMP_OR:
		rb, ok := vm.truthy(right)
		if !ok {
			vm.fail(INVALID_METHOD_CALL)
			return object.Null(), false
		}
		if op == bytecode.CMP_AND {
			return object.BoolValue(lb && rb), true
		}
		return object.BoolValue(lb || rb), true
	case bytecode.CMP_EQ, bytecode.CMP_NEQ:
		sameType := right.Kind == object.KindTrue || right.Kind == object.KindFalse
		eq := sameType && lb == (right.Kind == object.KindTrue)
		if op == bytecode.CMP_NEQ {
			eq = !eq
		}
		return object.BoolValue(eq), true
	default:
		vm.fail(INVALID_OPCODE)
		return object.Null(), false
	}
}
