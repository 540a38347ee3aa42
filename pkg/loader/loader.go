// Package loader implements the assembly-stream deserializer (spec §4.E,
// §6): a streaming reader that turns a sequence of opcode-prefixed records
// into an in-memory object.AssemblyType. It is the only component that
// understands the wire grammar; the VM never parses bytes, only the
// already-materialized metadata and method bodies this package produces.
package loader

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/momodeve/mslvm/pkg/bytecode"
	"github.com/momodeve/mslvm/pkg/object"
)

// Error is a load-time failure: malformed bytecode, a duplicate
// declaration, an out-of-range label, or a second entry point. These are
// distinct from the VM's error-word bitset (spec §7) — the assembly never
// starts executing if loading fails.
type Error struct {
	Kind    string
	Message string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Message) }

func errInvalidOpcode(context string, got, want bytecode.Opcode) error {
	return &Error{Kind: "INVALID_OPCODE", Message: fmt.Sprintf("%s: got %s, expected %s", context, got, want)}
}

func errDuplicate(what, name string) error {
	return &Error{Kind: "DECLARATION_DUPLICATE", Message: fmt.Sprintf("duplicate %s %q", what, name)}
}

func errLabel(method string, label int) error {
	return &Error{Kind: "INVALID_METHOD_LABEL", Message: fmt.Sprintf("method %s: label %d out of range", method, label)}
}

func errEntryPointDuplicate(method string) error {
	return &Error{Kind: "ENTRY_POINT_DUPLICATE", Message: fmt.Sprintf("second entry point at %s", method)}
}

// Loader accumulates state across possibly multiple Load calls into the
// same assembly, matching the merge semantics of spec §4.E: the entry
// point must stay unique across every stream loaded, not just one.
type Loader struct {
	EntryPoint *object.MethodType
}

func New() *Loader { return &Loader{} }

type reader struct {
	r io.Reader
}

func (rd reader) opcode() (bytecode.Opcode, error) {
	var b [1]byte
	if _, err := io.ReadFull(rd.r, b[:]); err != nil {
		return 0, err
	}
	return bytecode.Opcode(b[0]), nil
}

func (rd reader) expect(context string, want bytecode.Opcode) error {
	got, err := rd.opcode()
	if err != nil {
		return err
	}
	if got != want {
		return errInvalidOpcode(context, got, want)
	}
	return nil
}

func (rd reader) u8() (uint8, error) {
	var b [1]byte
	_, err := io.ReadFull(rd.r, b[:])
	return b[0], err
}

func (rd reader) u16() (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(rd.r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}

func (rd reader) u64() (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(rd.r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

func (rd reader) bytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(rd.r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// string reads a STRING_DECL record's payload (the opcode itself is
// expected by the caller via expect()).
func (rd reader) string() (string, error) {
	if err := rd.expect("STRING_DECL", bytecode.STRING_DECL); err != nil {
		return "", err
	}
	length, err := rd.u8()
	if err != nil {
		return "", err
	}
	buf, err := rd.bytes(int(length))
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

func (rd reader) modifiers() (uint8, error) {
	if err := rd.expect("MODIFIERS_DECL", bytecode.MODIFIERS_DECL); err != nil {
		return 0, err
	}
	return rd.u8()
}

// Load reads one assembly stream from r and merges it into asm. Per spec
// §4.E merge semantics, every namespace in the stream must be new relative
// to asm's current contents.
func (l *Loader) Load(r io.Reader, asm *object.AssemblyType) error {
	rd := reader{r: r}

	if err := rd.expect("assembly", bytecode.ASSEMBLY_BEGIN_DECL); err != nil {
		return err
	}

	if err := rd.expect("namespace pool", bytecode.NAMESPACE_POOL_DECL_SIZE); err != nil {
		return err
	}
	nsCount, err := rd.u64()
	if err != nil {
		return err
	}

	for i := uint64(0); i < nsCount; i++ {
		if err := l.loadNamespace(rd, asm); err != nil {
			return err
		}
	}

	return rd.expect("assembly", bytecode.ASSEMBLY_END_DECL)
}

func (l *Loader) loadNamespace(rd reader, asm *object.AssemblyType) error {
	name, err := rd.string()
	if err != nil {
		return err
	}
	if _, exists := asm.Namespaces[name]; exists {
		return errDuplicate("namespace", name)
	}
	ns := object.NewNamespaceType(name)
	asm.Namespaces[name] = ns

	if err := rd.expect("friend pool", bytecode.FRIEND_POOL_DECL_SIZE); err != nil {
		return err
	}
	friendCount, err := rd.u64()
	if err != nil {
		return err
	}
	for i := uint64(0); i < friendCount; i++ {
		friend, err := rd.string()
		if err != nil {
			return err
		}
		ns.Friends[friend] = true
	}

	if err := rd.expect("class pool", bytecode.CLASS_POOL_DECL_SIZE); err != nil {
		return err
	}
	classCount, err := rd.u64()
	if err != nil {
		return err
	}
	for i := uint64(0); i < classCount; i++ {
		if err := l.loadClass(rd, ns); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader) loadClass(rd reader, ns *object.NamespaceType) error {
	name, err := rd.string()
	if err != nil {
		return err
	}
	if _, exists := ns.Classes[name]; exists {
		return errDuplicate("class", ns.Name+"."+name)
	}
	mods, err := rd.modifiers()
	if err != nil {
		return err
	}
	class := object.NewClassType(name, ns, object.ClassModifiers(mods))
	ns.Classes[name] = class

	if err := rd.expect("attribute pool", bytecode.ATTRIBUTE_POOL_DECL_SIZE); err != nil {
		return err
	}
	attrCount, err := rd.u64()
	if err != nil {
		return err
	}
	for i := uint64(0); i < attrCount; i++ {
		attrName, err := rd.string()
		if err != nil {
			return err
		}
		attrMods, err := rd.modifiers()
		if err != nil {
			return err
		}
		at := &object.AttributeType{Name: attrName, Modifiers: object.AttributeModifiers(attrMods)}
		table := class.ObjectAttributes
		if at.Modifiers.Has(object.AttributeStatic) {
			table = class.StaticAttributes
		}
		if _, exists := table[attrName]; exists {
			return errDuplicate("attribute", class.Name+"."+attrName)
		}
		table[attrName] = at
	}

	if err := rd.expect("method pool", bytecode.METHOD_POOL_DECL_SIZE); err != nil {
		return err
	}
	methodCount, err := rd.u64()
	if err != nil {
		return err
	}
	for i := uint64(0); i < methodCount; i++ {
		if err := l.loadMethod(rd, class); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader) loadMethod(rd reader, class *object.ClassType) error {
	name, err := rd.string()
	if err != nil {
		return err
	}
	modByte, err := rd.modifiers()
	if err != nil {
		return err
	}
	mods := object.MethodModifiers(modByte)

	if err := rd.expect("method params", bytecode.METHOD_PARAMS_DECL_SIZE); err != nil {
		return err
	}
	paramCount, err := rd.u64()
	if err != nil {
		return err
	}
	params := make([]string, paramCount)
	for i := range params {
		p, err := rd.string()
		if err != nil {
			return err
		}
		params[i] = p
	}

	if err := rd.expect("dependency pool", bytecode.DEPENDENCY_POOL_DECL_SIZE); err != nil {
		return err
	}
	depCount, err := rd.u64()
	if err != nil {
		return err
	}
	deps := make([]string, depCount)
	for i := range deps {
		d, err := rd.string()
		if err != nil {
			return err
		}
		deps[i] = d
	}

	// Mangling counts this as part of arity for non-static, non-constructor
	// methods (spec invariant 2, GLOSSARY "Mangled method name"); the
	// declared parameter list itself never carries a synthetic this entry,
	// so the extra slot is added here rather than stored in Params.
	mangleArity := len(params)
	if !mods.Has(object.MethodStatic) && !mods.Has(object.MethodConstructor) && !mods.Has(object.MethodStaticConstructor) {
		mangleArity++
	}
	mangled := object.Mangle(name, mangleArity, mods.Has(object.MethodStaticConstructor))
	if _, exists := class.Methods[mangled]; exists {
		return errDuplicate("method", class.Name+"."+mangled)
	}

	body, labels, err := l.loadBody(rd, mangled)
	if err != nil {
		return err
	}

	method := &object.MethodType{
		Name:         mangled,
		Params:       params,
		Dependencies: deps,
		Labels:       labels,
		Body:         body,
		Modifiers:    mods,
		Class:        class,
	}
	class.Methods[mangled] = method

	if mods.Has(object.MethodEntryPoint) {
		if l.EntryPoint != nil {
			return errEntryPointDuplicate(class.Namespace.Name + "." + class.Name + "." + mangled)
		}
		l.EntryPoint = method
	}
	return nil
}

// loadBody reads a method body: the mandatory PUSH_STACKFRAME opener, then
// instructions until METHOD_BODY_END_DECL. SET_LABEL is a loader artifact:
// it is consumed here and recorded in the returned label table rather than
// copied into the body bytes.
func (l *Loader) loadBody(rd reader, methodName string) ([]byte, []int, error) {
	if err := rd.expect("method body", bytecode.METHOD_BODY_BEGIN_DECL); err != nil {
		return nil, nil, err
	}

	op, err := rd.opcode()
	if err != nil {
		return nil, nil, err
	}
	if op != bytecode.PUSH_STACKFRAME {
		return nil, nil, errInvalidOpcode("method body opener", op, bytecode.PUSH_STACKFRAME)
	}

	var body []byte
	var labels []int
	body = append(body, byte(op))

	for {
		op, err := rd.opcode()
		if err != nil {
			return nil, nil, err
		}
		if op == bytecode.METHOD_BODY_END_DECL {
			break
		}

		if op == bytecode.SET_LABEL {
			index, err := rd.u16()
			if err != nil {
				return nil, nil, err
			}
			for len(labels) <= int(index) {
				labels = append(labels, -1)
			}
			labels[index] = len(body)
			continue
		}

		body = append(body, byte(op))
		if op == bytecode.CALL_FUNCTION {
			operand, err := rd.bytes(9)
			if err != nil {
				return nil, nil, err
			}
			body = append(body, operand...)
			continue
		}
		width := op.OperandWidth()
		if width > 0 {
			operand, err := rd.bytes(width)
			if err != nil {
				return nil, nil, err
			}
			body = append(body, operand...)
		}
	}

	for i, offset := range labels {
		if offset < 0 || offset >= len(body) {
			return nil, nil, errLabel(methodName, i)
		}
	}
	return body, labels, nil
}
