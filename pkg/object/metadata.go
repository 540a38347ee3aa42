package object

import "strconv"

// Modifier bitsets. Values match the bytecode format (spec §6) exactly so
// the loader can copy the on-wire byte straight into these types.

type AttributeModifiers uint8

const (
	AttributeStatic AttributeModifiers = 1 << iota
	AttributeConst
	AttributePublic
)

func (m AttributeModifiers) Has(bit AttributeModifiers) bool { return m&bit != 0 }

type MethodModifiers uint8

const (
	MethodAbstract MethodModifiers = 1 << iota
	MethodStatic
	MethodPublic
	MethodConstructor
	MethodStaticConstructor
	_ // bit 32 unused in the wire format
	_ // bit 64 unused in the wire format
	MethodEntryPoint
)

func (m MethodModifiers) Has(bit MethodModifiers) bool { return m&bit != 0 }

type ClassModifiers uint8

const (
	ClassStatic ClassModifiers = 1 << iota
	ClassInterface
	ClassAbstract
	ClassConst
	ClassInternal
	ClassHasStaticConstructor
	_ // bit 64 unused in the wire format
	ClassSystem
)

func (m ClassModifiers) Has(bit ClassModifiers) bool { return m&bit != 0 }

// AttributeType is the static descriptor for one attribute declared on a
// class (object- or static-scoped, per its modifiers).
type AttributeType struct {
	Name      string
	Modifiers AttributeModifiers
}

// MethodType is the static descriptor for one method: its mangled name
// (Name_Arity, plus _static for static constructors), the bytecode body,
// and the pools the body indexes into.
type MethodType struct {
	Name         string
	Params       []string
	Dependencies []string // ordinal-indexed name/literal pool, see DESIGN.md
	Labels       []int    // label index -> byte offset into Body
	Body         []byte
	Modifiers    MethodModifiers
	Class        *ClassType
}

func (m *MethodType) Is(bit MethodModifiers) bool { return m.Modifiers.Has(bit) }

// Arity returns the declared explicit parameter count. This is Params'
// length, not the mangled name's arity suffix: mangling counts an implicit
// `this` for non-static, non-constructor methods, but `this` is bound to
// the frame separately (see callMethod) and never appears in Params.
func (m *MethodType) Arity() int { return len(m.Params) }

// ClassType is the static descriptor for one class: its attribute and
// method tables, and the singleton ClassObject/ClassWrapper values used
// whenever the class's static state or identity is referenced.
type ClassType struct {
	Name                    string
	Namespace               *NamespaceType
	StaticAttributes        map[string]*AttributeType
	ObjectAttributes        map[string]*AttributeType
	Methods                 map[string]*MethodType // keyed by mangled name
	StaticInstance          Value                  // ClassObject holding static state
	Wrapper                 Value                  // singleton ClassWrapper
	StaticConstructorCalled bool
	Modifiers               ClassModifiers
}

func (c *ClassType) Is(bit ClassModifiers) bool { return c.Modifiers.Has(bit) }

func NewClassType(name string, ns *NamespaceType, mods ClassModifiers) *ClassType {
	return &ClassType{
		Name:             name,
		Namespace:        ns,
		StaticAttributes: map[string]*AttributeType{},
		ObjectAttributes: map[string]*AttributeType{},
		Methods:          map[string]*MethodType{},
		Modifiers:        mods,
	}
}

// NamespaceType groups classes under one name and tracks which other
// namespaces it grants friend (cross-namespace private) access to.
type NamespaceType struct {
	Name    string
	Classes map[string]*ClassType
	Friends map[string]bool
	Wrapper Value // singleton NamespaceWrapper
}

func NewNamespaceType(name string) *NamespaceType {
	return &NamespaceType{
		Name:    name,
		Classes: map[string]*ClassType{},
		Friends: map[string]bool{},
	}
}

// AssemblyType is the complete loaded metadata image: every namespace and,
// transitively, every class, attribute and method in the program.
type AssemblyType struct {
	Namespaces map[string]*NamespaceType
}

func NewAssembly() *AssemblyType {
	return &AssemblyType{Namespaces: map[string]*NamespaceType{}}
}

// Mangle produces the call-site method name for a source name, arity, and
// static-constructor flag, per spec invariant 1.
func Mangle(name string, arity int, staticConstructor bool) string {
	m := name + "_" + strconv.Itoa(arity)
	if staticConstructor {
		m += "_static"
	}
	return m
}
