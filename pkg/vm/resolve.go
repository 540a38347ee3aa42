package vm

import "github.com/momodeve/mslvm/pkg/object"

// SearchForObject implements the six-step name resolution order of spec
// §4.F: local, this-attribute, static-attribute, same-namespace class,
// friend-namespace class, namespace.
func (vm *VM) SearchForObject(name string) (object.Value, bool) {
	frame := vm.currentFrame()
	if frame != nil {
		if local, ok := frame.Locals[name]; ok {
			return local, true
		}
		if frame.This.Kind == object.KindClassObject && (frame.Method == nil || !frame.Method.Is(object.MethodStatic)) {
			if co, ok := vm.Heap.ClassObject(frame.This); ok {
				if handle, ok := co.Attrs[name]; ok {
					return object.Value{Kind: object.KindAttribute, H: handle}, true
				}
			}
		}
		if frame.Class != nil {
			if cell, ok := vm.staticAttrCell(frame.Class, name); ok {
				return cell, true
			}
			if class, ok := frame.Class.Namespace.Classes[name]; ok {
				return class.Wrapper, true
			}
			var match object.Value
			found := false
			for friendName := range frame.Class.Namespace.Friends {
				friendNs, ok := vm.Assembly.Namespaces[friendName]
				if !ok {
					continue
				}
				class, ok := friendNs.Classes[name]
				if !ok || class.Is(object.ClassInternal) {
					continue
				}
				if found {
					vm.fail(INVALID_CALL_ARGUMENT)
					return object.Null(), false
				}
				match = class.Wrapper
				found = true
			}
			if found {
				return match, true
			}
		}
	}
	if ns, ok := vm.Assembly.Namespaces[name]; ok {
		return ns.Wrapper, true
	}
	return object.Null(), false
}
