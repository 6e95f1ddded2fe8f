// Package semantic holds the closed set of semantic types and a lightweight inference engine
// for Python documents.
package semantic

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/uber/tsp-lsp/src/tspd/internal/analysis/syntax"
	"go.lsp.dev/protocol"
)

// BuiltinsModule is the module of builtin classes and functions.
const BuiltinsModule = "builtins"

// Kind identifies a semantic type variant.
type Kind int

// Semantic type variants.
const (
	KindLiteral Kind = iota
	KindNone
	KindInstance
	KindClassLiteral
	KindFunction
	KindModule
	KindUnion
	KindGenericAlias
	KindDynamic
)

var _kindNames = [...]string{
	KindLiteral:      "literal",
	KindNone:         "none",
	KindInstance:     "instance",
	KindClassLiteral: "class_literal",
	KindFunction:     "function",
	KindModule:       "module",
	KindUnion:        "union",
	KindGenericAlias: "generic_alias",
	KindDynamic:      "dynamic",
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if int(k) < len(_kindNames) {
		return _kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Type is a semantic type. The set of implementations is closed.
type Type interface {
	Kind() Kind
	// Describe renders the structure of the type. Equal types have equal descriptions.
	Describe() string
	// Hash is a deterministic hash of the kind and description.
	Hash() uint64
	isType()
}

func hashOf(k Kind, description string) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(k.String())
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(description)
	return d.Sum64()
}

// Document is a parsed module.
type Document struct {
	URI protocol.DocumentURI
	// Module is the dotted module name, empty when unknown.
	Module string
	// Package is set for __init__ modules.
	Package bool
	Tree    *syntax.Tree
}

// Definition locates a user defined function or class.
type Definition struct {
	Document *Document
	// Node is the function_definition or class_definition node.
	Node *syntax.Node
}

// NameNode returns the identifier naming the definition.
func (d *Definition) NameNode() *syntax.Node {
	return d.Node.ChildByField("name")
}

// Class is a nominal class.
type Class struct {
	Module string
	Name   string
	Def    *Definition
}

// QualifiedName returns the dotted name of the class.
func (c *Class) QualifiedName() string {
	if c.Module == "" {
		return c.Name
	}
	return c.Module + "." + c.Name
}

// IsBuiltin reports whether the class is a builtin.
func (c *Class) IsBuiltin() bool {
	return c.Module == BuiltinsModule
}

// LiteralKind is the kind of a literal value.
type LiteralKind int

// Literal kinds.
const (
	LiteralInt LiteralKind = iota
	LiteralStr
	LiteralFloat
	LiteralBool
)

// Literal is the type of a literal value.
type Literal struct {
	LitKind LiteralKind
	Value   string
}

// None is the type of None.
type None struct{}

// Instance is an instance of a class, with optional type arguments.
type Instance struct {
	Class *Class
	Args  []Type
}

// ClassLiteral is a class object itself.
type ClassLiteral struct {
	Class *Class
}

// Function is a function or bound method. Returns is nil when the return type has to be
// inferred from the definition.
type Function struct {
	// Name is qualified within the module, e.g. "MyClass.get_value".
	Name    string
	Module  string
	Def     *Definition
	Returns Type
}

// Module is an imported module.
type Module struct {
	Name string
}

// Union is an ordered set of at least two types.
type Union struct {
	Elements []Type
}

// GenericAlias is a parameterized class used as a value, e.g. list[int].
type GenericAlias struct {
	Origin *Class
	Args   []Type
}

// Dynamic is Any or an unknown type.
type Dynamic struct {
	Unknown bool
}

// Any and Unknown are the two dynamic types.
var (
	Any     Type = Dynamic{}
	Unknown Type = Dynamic{Unknown: true}
)

func (Literal) Kind() Kind      { return KindLiteral }
func (None) Kind() Kind         { return KindNone }
func (Instance) Kind() Kind     { return KindInstance }
func (ClassLiteral) Kind() Kind { return KindClassLiteral }
func (Function) Kind() Kind     { return KindFunction }
func (Module) Kind() Kind       { return KindModule }
func (Union) Kind() Kind        { return KindUnion }
func (GenericAlias) Kind() Kind { return KindGenericAlias }
func (Dynamic) Kind() Kind      { return KindDynamic }

func (Literal) isType()      {}
func (None) isType()         {}
func (Instance) isType()     {}
func (ClassLiteral) isType() {}
func (Function) isType()     {}
func (Module) isType()       {}
func (Union) isType()        {}
func (GenericAlias) isType() {}
func (Dynamic) isType()      {}

func (t Literal) Describe() string {
	switch t.LitKind {
	case LiteralStr:
		return "StringLiteral(" + strconv.Quote(t.Value) + ")"
	case LiteralFloat:
		return "FloatLiteral(" + t.Value + ")"
	case LiteralBool:
		return "BooleanLiteral(" + t.Value + ")"
	default:
		return "IntLiteral(" + t.Value + ")"
	}
}

func (None) Describe() string { return "None" }

func (t Instance) Describe() string {
	return "NominalInstance(" + t.Class.QualifiedName() + describeArgs(t.Args) + ")"
}

func (t ClassLiteral) Describe() string {
	return "ClassLiteral(" + t.Class.QualifiedName() + ")"
}

func (t Function) Describe() string {
	if t.Module == "" {
		return "Function(" + t.Name + ")"
	}
	return "Function(" + t.Module + "." + t.Name + ")"
}

func (t Module) Describe() string { return "Module(" + t.Name + ")" }

func (t Union) Describe() string {
	parts := make([]string, len(t.Elements))
	for i, e := range t.Elements {
		parts[i] = e.Describe()
	}
	return "Union(" + strings.Join(parts, " | ") + ")"
}

func (t GenericAlias) Describe() string {
	return "GenericAlias(" + t.Origin.QualifiedName() + describeArgs(t.Args) + ")"
}

func (t Dynamic) Describe() string {
	if t.Unknown {
		return "Dynamic(Unknown)"
	}
	return "Dynamic(Any)"
}

func (t Literal) Hash() uint64      { return hashOf(t.Kind(), t.Describe()) }
func (t None) Hash() uint64         { return hashOf(t.Kind(), t.Describe()) }
func (t Instance) Hash() uint64     { return hashOf(t.Kind(), t.Describe()) }
func (t ClassLiteral) Hash() uint64 { return hashOf(t.Kind(), t.Describe()) }
func (t Function) Hash() uint64     { return hashOf(t.Kind(), t.Describe()) }
func (t Module) Hash() uint64       { return hashOf(t.Kind(), t.Describe()) }
func (t Union) Hash() uint64        { return hashOf(t.Kind(), t.Describe()) }
func (t GenericAlias) Hash() uint64 { return hashOf(t.Kind(), t.Describe()) }
func (t Dynamic) Hash() uint64      { return hashOf(t.Kind(), t.Describe()) }

// NewUnion builds the union of the given types. Nested unions are flattened and duplicates
// dropped while keeping the first occurrence. A single remaining type is returned as is.
func NewUnion(types ...Type) Type {
	var elements []Type
	seen := map[uint64]bool{}
	var add func(t Type)
	add = func(t Type) {
		if t == nil {
			return
		}
		if u, ok := t.(Union); ok {
			for _, e := range u.Elements {
				add(e)
			}
			return
		}
		h := t.Hash()
		if seen[h] {
			return
		}
		seen[h] = true
		elements = append(elements, t)
	}
	for _, t := range types {
		add(t)
	}

	switch len(elements) {
	case 0:
		return Unknown
	case 1:
		return elements[0]
	default:
		return Union{Elements: elements}
	}
}

// Widen replaces literal types by instances of their class.
func Widen(t Type) Type {
	switch t := t.(type) {
	case Literal:
		return Instance{Class: t.Class()}
	case Union:
		widened := make([]Type, len(t.Elements))
		for i, e := range t.Elements {
			widened[i] = Widen(e)
		}
		return NewUnion(widened...)
	default:
		return t
	}
}

// Class returns the builtin class of the literal.
func (t Literal) Class() *Class {
	switch t.LitKind {
	case LiteralStr:
		return ClassStr
	case LiteralFloat:
		return ClassFloat
	case LiteralBool:
		return ClassBool
	default:
		return ClassInt
	}
}

// Display renders a type the way it is written in Python annotations.
func Display(t Type) string {
	switch t := t.(type) {
	case Literal:
		switch t.LitKind {
		case LiteralFloat:
			return "float"
		case LiteralStr:
			return "Literal[" + strconv.Quote(t.Value) + "]"
		default:
			return "Literal[" + t.Value + "]"
		}
	case None:
		return "None"
	case Instance:
		return t.Class.Name + displayArgs(t.Args)
	case ClassLiteral:
		return "type[" + t.Class.Name + "]"
	case Function:
		name := t.Name
		if i := strings.LastIndexByte(name, '.'); i >= 0 {
			name = name[i+1:]
		}
		return "def " + name + "(...)"
	case Module:
		return "<module '" + t.Name + "'>"
	case Union:
		parts := make([]string, len(t.Elements))
		for i, e := range t.Elements {
			parts[i] = Display(e)
		}
		return strings.Join(parts, " | ")
	case GenericAlias:
		return "type[" + t.Origin.Name + displayArgs(t.Args) + "]"
	case Dynamic:
		if t.Unknown {
			return "Unknown"
		}
		return "Any"
	default:
		return "Unknown"
	}
}

func describeArgs(args []Type) string {
	if len(args) == 0 {
		return ""
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.Describe()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func displayArgs(args []Type) string {
	if len(args) == 0 {
		return ""
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = Display(a)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
