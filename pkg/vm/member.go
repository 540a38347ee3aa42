package vm

import "github.com/momodeve/mslvm/pkg/object"

// literalName reads the plain text of a member-name operand: an Unknown
// cell's stored name, or a String's contents. It deliberately does not go
// through resolve/SearchForObject — a member name is never itself a
// variable reference.
func (vm *VM) literalName(v object.Value) (string, bool) {
	switch v.Kind {
	case object.KindUnknown:
		u, ok := vm.Heap.Unknown(v)
		if !ok {
			return "", false
		}
		return u.Name, true
	case object.KindString:
		return vm.Heap.String(v)
	default:
		return "", false
	}
}

// memberLookup implements GET_MEMBER's target-type table (spec §4.F
// "Member access"), shared between the GET_MEMBER opcode and
// Reflection.GetMember.
func (vm *VM) memberLookup(target object.Value, name string, caller *object.Frame) (object.Value, bool) {
	switch target.Kind {
	case object.KindNamespaceWrapper:
		ns := target.Namespace()
		class, ok := ns.Classes[name]
		if !ok {
			vm.fail(OBJECT_NOT_FOUND)
			return object.Null(), false
		}
		return class.Wrapper, true

	case object.KindClassWrapper:
		class := target.Class()
		attr, ok := class.StaticAttributes[name]
		if !ok {
			vm.fail(MEMBER_NOT_FOUND)
			return object.Null(), false
		}
		if !attr.Modifiers.Has(object.AttributePublic) && !vm.accessAllowed(caller, class) {
			vm.fail(PRIVATE_MEMBER_ACCESS)
			return object.Null(), false
		}
		cell, ok := vm.staticAttrCell(class, name)
		if !ok {
			vm.fail(MEMBER_NOT_FOUND)
			return object.Null(), false
		}
		return cell, true

	case object.KindClassObject:
		co, ok := vm.Heap.ClassObject(target)
		if !ok {
			vm.fail(INVALID_STACKOBJECT)
			return object.Null(), false
		}
		if attr, exists := co.Class.ObjectAttributes[name]; exists {
			if !attr.Modifiers.Has(object.AttributePublic) && !vm.accessAllowed(caller, co.Class) {
				vm.fail(PRIVATE_MEMBER_ACCESS)
				return object.Null(), false
			}
			handle, ok := co.Attrs[name]
			if !ok {
				vm.fail(MEMBER_NOT_FOUND)
				return object.Null(), false
			}
			return object.Value{Kind: object.KindAttribute, H: handle}, true
		}
		if attr, exists := co.Class.StaticAttributes[name]; exists {
			if !attr.Modifiers.Has(object.AttributePublic) && !vm.accessAllowed(caller, co.Class) {
				vm.fail(PRIVATE_MEMBER_ACCESS)
				return object.Null(), false
			}
			cell, ok := vm.staticAttrCell(co.Class, name)
			if !ok {
				vm.fail(MEMBER_NOT_FOUND)
				return object.Null(), false
			}
			return cell, true
		}
		vm.fail(MEMBER_NOT_FOUND)
		return object.Null(), false

	default:
		vm.fail(INVALID_STACKOBJECT)
		return object.Null(), false
	}
}

// execGetMember implements GET_MEMBER: pop (target, member-name), push the
// resolved slot or wrapper.
func (vm *VM) execGetMember() {
	memberVal, ok := vm.pop()
	if !ok {
		return
	}
	targetVal, ok := vm.pop()
	if !ok {
		return
	}
	name, ok := vm.literalName(memberVal)
	if !ok {
		vm.fail(INVALID_STACKOBJECT)
		return
	}
	target := vm.resolveValue(targetVal)
	result, ok := vm.memberLookup(target, name, vm.currentFrame())
	if ok {
		vm.push(result)
	}
}

// execGetIndex implements GET_INDEX: pop (receiver, index); ClassObject
// receivers delegate to GetByIndex_2, primitives and Arrays to their
// System class's GetByIndex_1.
func (vm *VM) execGetIndex() {
	indexVal, ok := vm.pop()
	if !ok {
		return
	}
	receiverVal, ok := vm.pop()
	if !ok {
		return
	}
	index := vm.resolveValue(indexVal)
	receiver := vm.resolveValue(receiverVal)

	switch receiver.Kind {
	case object.KindClassObject:
		v, ok := vm.invokeUserMethod(receiver, "GetByIndex_2", []object.Value{index})
		if ok {
			vm.push(v)
		}
	case object.KindArray:
		v, ok := vm.callNative("Array", "GetByIndex", receiver, []object.Value{index})
		if ok {
			vm.push(v)
		}
	case object.KindInteger, object.KindFloat, object.KindString, object.KindTrue, object.KindFalse, object.KindNull:
		v, ok := vm.callNative(primitiveClassName(receiver.Kind), "GetByIndex", receiver, []object.Value{index})
		if ok {
			vm.push(v)
		}
	default:
		vm.fail(INVALID_STACKOBJECT)
	}
}
