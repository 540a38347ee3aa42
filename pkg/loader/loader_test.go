package loader

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/momodeve/mslvm/pkg/bytecode"
	"github.com/momodeve/mslvm/pkg/object"
)

type encoder struct{ buf bytes.Buffer }

func (e *encoder) op(op bytecode.Opcode)    { e.buf.WriteByte(byte(op)) }
func (e *encoder) u8(v uint8)               { e.buf.WriteByte(v) }
func (e *encoder) u16(v uint16)             { binary.Write(&e.buf, binary.LittleEndian, v) }
func (e *encoder) u64(v uint64)             { binary.Write(&e.buf, binary.LittleEndian, v) }
func (e *encoder) raw(b []byte)             { e.buf.Write(b) }
func (e *encoder) str(s string) {
	e.op(bytecode.STRING_DECL)
	e.u8(uint8(len(s)))
	e.buf.WriteString(s)
}
func (e *encoder) mods(m uint8) {
	e.op(bytecode.MODIFIERS_DECL)
	e.u8(m)
}

// encodeMinimalAssembly builds one namespace "N", one class "C" (no
// modifiers), zero attributes, and one entry-point method "Main" with an
// empty body (just PUSH_NULL; RETURN) and no labels.
func encodeMinimalAssembly() []byte {
	e := &encoder{}
	e.op(bytecode.ASSEMBLY_BEGIN_DECL)
	e.op(bytecode.NAMESPACE_POOL_DECL_SIZE)
	e.u64(1)

	e.str("N")
	e.op(bytecode.FRIEND_POOL_DECL_SIZE)
	e.u64(0)
	e.op(bytecode.CLASS_POOL_DECL_SIZE)
	e.u64(1)

	e.str("C")
	e.mods(0)
	e.op(bytecode.ATTRIBUTE_POOL_DECL_SIZE)
	e.u64(0)
	e.op(bytecode.METHOD_POOL_DECL_SIZE)
	e.u64(1)

	e.str("Main")
	e.mods(uint8(object.MethodPublic | object.MethodStatic | object.MethodEntryPoint))
	e.op(bytecode.METHOD_PARAMS_DECL_SIZE)
	e.u64(0)
	e.op(bytecode.DEPENDENCY_POOL_DECL_SIZE)
	e.u64(0)

	e.op(bytecode.METHOD_BODY_BEGIN_DECL)
	e.op(bytecode.PUSH_STACKFRAME)
	e.op(bytecode.PUSH_NULL)
	e.op(bytecode.RETURN)
	e.op(bytecode.METHOD_BODY_END_DECL)

	e.op(bytecode.ASSEMBLY_END_DECL)
	return e.buf.Bytes()
}

func TestLoadMinimalAssembly(t *testing.T) {
	asm := object.NewAssembly()
	l := New()
	if err := l.Load(bytes.NewReader(encodeMinimalAssembly()), asm); err != nil {
		t.Fatalf("Load: %v", err)
	}

	ns, ok := asm.Namespaces["N"]
	if !ok {
		t.Fatal("namespace N not loaded")
	}
	class, ok := ns.Classes["C"]
	if !ok {
		t.Fatal("class C not loaded")
	}
	method, ok := class.Methods["Main_0"]
	if !ok {
		t.Fatalf("method Main_0 not loaded, have: %v", class.Methods)
	}
	if len(method.Body) != 3 {
		t.Fatalf("body length = %d, want 3 (PUSH_STACKFRAME, PUSH_NULL, RETURN)", len(method.Body))
	}
	if l.EntryPoint != method {
		t.Fatal("entry point should resolve to Main_0")
	}
}

func TestLoadDuplicateNamespaceRejected(t *testing.T) {
	asm := object.NewAssembly()
	l := New()
	data := encodeMinimalAssembly()
	if err := l.Load(bytes.NewReader(data), asm); err != nil {
		t.Fatalf("first load: %v", err)
	}
	err := l.Load(bytes.NewReader(data), asm)
	if err == nil {
		t.Fatal("expected a duplicate-namespace error on reload")
	}
	loadErr, ok := err.(*Error)
	if !ok || loadErr.Kind != "DECLARATION_DUPLICATE" {
		t.Fatalf("error = %v, want DECLARATION_DUPLICATE", err)
	}
}

func TestLoadBadOpeningOpcode(t *testing.T) {
	asm := object.NewAssembly()
	l := New()
	err := l.Load(bytes.NewReader([]byte{byte(bytecode.ASSEMBLY_END_DECL)}), asm)
	if err == nil {
		t.Fatal("expected an INVALID_OPCODE error")
	}
	if loadErr, ok := err.(*Error); !ok || loadErr.Kind != "INVALID_OPCODE" {
		t.Fatalf("error = %v, want INVALID_OPCODE", err)
	}
}
