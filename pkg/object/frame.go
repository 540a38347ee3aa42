package object

// Frame is the per-call record pushed by CALL_FUNCTION and popped by
// RETURN/POP_TO_RETURN: the method and class being executed, the bound
// `this`, the local-name table, the instruction offset, and a Scratch
// string for ad-hoc names, which the VM neither reads nor writes.
type Frame struct {
	Method    *MethodType
	Class     *ClassType
	Namespace *NamespaceType
	This      Value
	Locals    map[string]Value // name -> Value of Kind KindLocal
	IP        int
	Scratch   string
}

func NewFrame(method *MethodType, class *ClassType, ns *NamespaceType) *Frame {
	return &Frame{
		Method:    method,
		Class:     class,
		Namespace: ns,
		This:      Null(),
		Locals:    map[string]Value{},
	}
}

// CallPath renders "namespace.class.method" for stack traces and error
// frame dumps (spec §7).
func (f *Frame) CallPath() string {
	ns := "?"
	if f.Namespace != nil {
		ns = f.Namespace.Name
	}
	cls := "?"
	if f.Class != nil {
		cls = f.Class.Name
	}
	method := "?"
	if f.Method != nil {
		method = f.Method.Name
	}
	return ns + "." + cls + "." + method
}
