package semantic

import (
	"context"
	"strconv"
	"strings"

	"github.com/uber/tsp-lsp/src/tspd/internal/analysis/syntax"
)

const _maxDepth = 32

// Loader resolves imported modules.
type Loader interface {
	// Load returns the document of an absolute dotted module name.
	Load(ctx context.Context, module string) (*Document, bool)
}

// Engine infers types of expressions. An Engine memoizes per document state and is meant to
// serve a single request; it is not safe for concurrent use.
type Engine struct {
	ctx    context.Context
	loader Loader
	depth  int

	scopes    map[*syntax.Node][]*binding
	inferring map[*binding]bool
	returns   map[*syntax.Node]Type
	classes   map[*syntax.Node]*Class
	modules   map[string]*Document
}

// NewEngine creates an engine. The loader may be nil, in which case imports stay unresolved.
func NewEngine(ctx context.Context, loader Loader) *Engine {
	return &Engine{
		ctx:       ctx,
		loader:    loader,
		scopes:    make(map[*syntax.Node][]*binding),
		inferring: make(map[*binding]bool),
		returns:   make(map[*syntax.Node]Type),
		classes:   make(map[*syntax.Node]*Class),
		modules:   make(map[string]*Document),
	}
}

// TypeOf infers the type of a node of doc. Nodes that are neither expressions nor names of
// bindings yield Unknown.
func (e *Engine) TypeOf(doc *Document, n *syntax.Node) Type {
	if n == nil || doc == nil || e.depth >= _maxDepth || e.ctx.Err() != nil {
		return Unknown
	}
	e.depth++
	defer func() { e.depth-- }()

	if t := e.infer(doc, n); t != nil {
		return t
	}
	return Unknown
}

func (e *Engine) infer(doc *Document, n *syntax.Node) Type {
	src := doc.Tree.Source
	switch n.Kind {
	case syntax.KindIdentifier, "keyword_identifier":
		return e.identifier(doc, n)
	case "integer":
		return Literal{LitKind: LiteralInt, Value: n.Text(src)}
	case "float":
		return Literal{LitKind: LiteralFloat, Value: n.Text(src)}
	case "true":
		return Literal{LitKind: LiteralBool, Value: "True"}
	case "false":
		return Literal{LitKind: LiteralBool, Value: "False"}
	case "none":
		return None{}
	case "string":
		if isBytes(n, src) {
			return _bytes
		}
		if n.FirstNamedChild("interpolation") != nil {
			return _str
		}
		return Literal{LitKind: LiteralStr, Value: stringValue(n, src)}
	case "concatenated_string":
		if first := n.FirstNamedChild("string"); first != nil && isBytes(first, src) {
			return _bytes
		}
		return _str
	case "list", "list_pattern":
		return Instance{Class: ClassList, Args: []Type{e.elements(doc, n)}}
	case "set":
		return Instance{Class: ClassSet, Args: []Type{e.elements(doc, n)}}
	case "tuple", "expression_list", "pattern_list", "tuple_pattern":
		var args []Type
		for _, child := range expressions(n) {
			args = append(args, e.TypeOf(doc, child))
		}
		return Instance{Class: ClassTuple, Args: args}
	case "dictionary":
		var keys, values []Type
		for _, pair := range n.NamedChildren() {
			if pair.Kind != "pair" {
				continue
			}
			keys = append(keys, Widen(e.TypeOf(doc, pair.ChildByField("key"))))
			values = append(values, Widen(e.TypeOf(doc, pair.ChildByField("value"))))
		}
		return Instance{Class: ClassDict, Args: []Type{NewUnion(keys...), NewUnion(values...)}}
	case "list_comprehension":
		return Instance{Class: ClassList, Args: []Type{Widen(e.TypeOf(doc, n.ChildByField("body")))}}
	case "set_comprehension":
		return Instance{Class: ClassSet, Args: []Type{Widen(e.TypeOf(doc, n.ChildByField("body")))}}
	case "generator_expression":
		return Instance{Class: ClassGenerator, Args: []Type{Widen(e.TypeOf(doc, n.ChildByField("body")))}}
	case "dictionary_comprehension":
		args := []Type{Unknown, Unknown}
		if pair := n.ChildByField("body"); pair != nil {
			args[0] = Widen(e.TypeOf(doc, pair.ChildByField("key")))
			args[1] = Widen(e.TypeOf(doc, pair.ChildByField("value")))
		}
		return Instance{Class: ClassDict, Args: args}
	case "parenthesized_expression", "type", syntax.KindExpressionStmt:
		if inner := expressions(n); len(inner) == 1 {
			return e.TypeOf(doc, inner[0])
		}
		return Unknown
	case "call":
		return e.call(doc, n)
	case "attribute":
		return e.attribute(doc, n)
	case "subscript":
		return e.subscript(doc, n)
	case "binary_operator":
		op := n.ChildByField("operator")
		return binaryResult(e.TypeOf(doc, n.ChildByField("left")), op.Text(src), e.TypeOf(doc, n.ChildByField("right")))
	case "comparison_operator", "not_operator":
		return _bool
	case "boolean_operator":
		return NewUnion(e.TypeOf(doc, n.ChildByField("left")), e.TypeOf(doc, n.ChildByField("right")))
	case "unary_operator":
		return unaryResult(n.ChildByField("operator").Text(src), e.TypeOf(doc, n.ChildByField("argument")))
	case "conditional_expression":
		parts := expressions(n)
		if len(parts) != 3 {
			return Unknown
		}
		return NewUnion(e.TypeOf(doc, parts[0]), e.TypeOf(doc, parts[2]))
	case "named_expression":
		return e.TypeOf(doc, n.ChildByField("value"))
	case syntax.KindLambda:
		return Function{Name: "<lambda>", Module: doc.Module, Returns: e.TypeOf(doc, n.ChildByField("body"))}
	case syntax.KindFunctionDefinition:
		return e.functionValue(doc, n)
	case syntax.KindClassDefinition:
		return ClassLiteral{Class: e.classOf(doc, n)}
	case syntax.KindDecorated:
		return e.TypeOf(doc, n.ChildByField("definition"))
	default:
		return Unknown
	}
}

// expressions returns the named children of n that are not comments.
func expressions(n *syntax.Node) []*syntax.Node {
	var result []*syntax.Node
	for _, c := range n.NamedChildren() {
		if c.Kind != "comment" {
			result = append(result, c)
		}
	}
	return result
}

// isBytes reports whether the string literal carries a b prefix, as in b"x" or Rb'x'.
func isBytes(n *syntax.Node, src []byte) bool {
	text := n.Text(src)
	quote := strings.IndexAny(text, "\"'")
	if quote < 0 {
		return false
	}
	return strings.ContainsAny(text[:quote], "bB")
}

func stringValue(n *syntax.Node, src []byte) string {
	var b strings.Builder
	for _, c := range n.Children {
		if c.Kind == "string_content" {
			b.WriteString(c.Text(src))
		}
	}
	return b.String()
}

func (e *Engine) elements(doc *Document, n *syntax.Node) Type {
	var types []Type
	for _, child := range expressions(n) {
		types = append(types, Widen(e.TypeOf(doc, child)))
	}
	return NewUnion(types...)
}

func (e *Engine) identifier(doc *Document, n *syntax.Node) Type {
	name := n.Text(doc.Tree.Source)
	if syntax.IsBindingName(n) {
		return e.bindingName(doc, n, name)
	}
	if t, ok := e.comprehensionVariable(doc, n, name); ok {
		return t
	}
	return e.lookup(doc, n, name, n.Start)
}

// bindingName types an identifier that names a binding instead of referencing one.
func (e *Engine) bindingName(doc *Document, n *syntax.Node, name string) Type {
	p := n.Parent
	switch p.Kind {
	case syntax.KindFunctionDefinition:
		return e.functionValue(doc, p)
	case syntax.KindClassDefinition:
		return ClassLiteral{Class: e.classOf(doc, p)}
	case "attribute":
		return e.TypeOf(doc, p)
	case "keyword_argument", "global_statement", "nonlocal_statement":
		return e.lookup(doc, p, name, n.Start)
	case syntax.KindDottedName:
		return e.importPath(doc, n)
	}
	return e.lookup(doc, n, name, n.End)
}

// importPath types an identifier within the dotted path of an import.
func (e *Engine) importPath(doc *Document, n *syntax.Node) Type {
	dotted := n.Parent
	stmt := dotted.Parent
	for stmt != nil && (stmt.Kind == syntax.KindRelativeImport || stmt.Kind == syntax.KindAliasedImport) {
		stmt = stmt.Parent
	}
	if stmt == nil {
		return Unknown
	}

	src := doc.Tree.Source
	if stmt.Kind == syntax.KindImportFrom && dotted.Field == "name" {
		return e.lookup(doc, n, n.Text(src), n.End)
	}
	if stmt.Kind == syntax.KindImportFrom && dotted.Parent.Kind == syntax.KindAliasedImport {
		module := e.importedModule(doc, stmt.ChildByField("module_name"))
		return e.importMember(module, dotted.Text(src))
	}

	prefix := string(src[dotted.Start:n.End])
	if dotted.Parent.Kind == syntax.KindRelativeImport {
		dots := dotted.Parent.FirstNamedChild(syntax.KindImportPrefix)
		return Module{Name: e.absoluteModule(doc, len(dots.Text(src)), prefix)}
	}
	return Module{Name: prefix}
}

func (e *Engine) functionValue(doc *Document, def *syntax.Node) Function {
	return Function{
		Name:   qualifiedName(def, doc.Tree.Source),
		Module: doc.Module,
		Def:    &Definition{Document: doc, Node: def},
	}
}

func (e *Engine) classOf(doc *Document, def *syntax.Node) *Class {
	if c, ok := e.classes[def]; ok {
		return c
	}
	c := &Class{
		Module: doc.Module,
		Name:   qualifiedName(def, doc.Tree.Source),
		Def:    &Definition{Document: doc, Node: def},
	}
	e.classes[def] = c
	return c
}

func (e *Engine) bindingType(doc *Document, b *binding) Type {
	if e.inferring[b] {
		return Unknown
	}
	e.inferring[b] = true
	defer delete(e.inferring, b)

	switch b.kind {
	case bindAssign:
		if b.annotation != nil {
			return e.annotation(doc, b.annotation)
		}
		return e.unpack(doc, b.value, b.path)
	case bindAugmented:
		previous := e.lookup(doc, b.stmt, b.name, b.stmt.Start)
		return binaryResult(previous, b.operator, e.TypeOf(doc, b.value))
	case bindDef:
		return e.functionValue(doc, b.value)
	case bindClass:
		return ClassLiteral{Class: e.classOf(doc, b.value)}
	case bindImport:
		return Module{Name: b.module}
	case bindImportFrom:
		return e.importMember(b.module, b.member)
	case bindParam:
		return e.parameter(doc, b)
	case bindFor:
		return unpackType(elementType(e.TypeOf(doc, b.value)), b.path)
	case bindWith:
		return e.TypeOf(doc, b.value)
	default:
		return Unknown
	}
}

// unpack types the element of value selected by path, following literal tuples and lists
// before falling back to their types.
func (e *Engine) unpack(doc *Document, value *syntax.Node, path []int) Type {
	if value == nil {
		return Unknown
	}
	for len(path) > 0 {
		switch value.Kind {
		case "tuple", "expression_list", "list", "parenthesized_expression":
		default:
			return unpackType(e.TypeOf(doc, value), path)
		}
		children := expressions(value)
		if value.Kind == "parenthesized_expression" {
			if len(children) != 1 {
				return Unknown
			}
			value = children[0]
			continue
		}
		if path[0] >= len(children) {
			return Unknown
		}
		value, path = children[path[0]], path[1:]
	}
	return e.TypeOf(doc, value)
}

func unpackType(t Type, path []int) Type {
	for _, i := range path {
		inst, ok := t.(Instance)
		if !ok {
			return Unknown
		}
		if inst.Class == ClassTuple {
			if i >= len(inst.Args) {
				return Unknown
			}
			t = inst.Args[i]
			continue
		}
		t = elementType(inst)
	}
	return t
}

func (e *Engine) parameter(doc *Document, b *binding) Type {
	var declared Type
	if b.annotation != nil {
		declared = e.annotation(doc, b.annotation)
	}
	switch b.star {
	case 1:
		if declared == nil {
			declared = Unknown
		}
		return Instance{Class: ClassTuple, Args: []Type{declared}}
	case 2:
		if declared == nil {
			declared = Unknown
		}
		return Instance{Class: ClassDict, Args: []Type{_str, declared}}
	}
	if declared != nil {
		return declared
	}
	if b.value != nil {
		return Widen(e.TypeOf(doc, b.value))
	}

	def := b.stmt.Parent
	if b.paramIndex == 0 && def != nil && def.Kind == syntax.KindFunctionDefinition {
		if class := enclosingClass(def); class != nil {
			cls := e.classOf(doc, class)
			for _, d := range decorators(def, doc.Tree.Source) {
				switch d {
				case "staticmethod":
					return Unknown
				case "classmethod":
					return ClassLiteral{Class: cls}
				}
			}
			return Instance{Class: cls}
		}
	}
	return Unknown
}

// ReturnType returns the type produced by calling fn. Functions without a return annotation
// are inferred from their return statements.
func (e *Engine) ReturnType(fn Function) Type {
	if fn.Returns != nil {
		return fn.Returns
	}
	if fn.Def == nil {
		return Unknown
	}
	def := fn.Def.Node
	if t, ok := e.returns[def]; ok {
		if t == nil {
			return Unknown
		}
		return t
	}
	e.returns[def] = nil

	doc := fn.Def.Document
	var result Type
	if annotation := def.ChildByField("return_type"); annotation != nil {
		result = e.annotation(doc, annotation)
	} else {
		result = e.inferReturns(doc, def)
	}
	e.returns[def] = result
	return result
}

func (e *Engine) inferReturns(doc *Document, def *syntax.Node) Type {
	body := def.ChildByField("body")
	if body == nil {
		return Unknown
	}
	var types []Type
	body.Walk(func(n *syntax.Node) bool {
		switch n.Kind {
		case syntax.KindFunctionDefinition, syntax.KindClassDefinition, syntax.KindLambda:
			return false
		case syntax.KindReturn:
			if values := expressions(n); len(values) > 0 {
				types = append(types, e.TypeOf(doc, values[0]))
			} else {
				types = append(types, None{})
			}
			return false
		}
		return true
	})
	if len(types) == 0 {
		return None{}
	}
	return NewUnion(types...)
}

func (e *Engine) call(doc *Document, n *syntax.Node) Type {
	return e.callResult(e.TypeOf(doc, n.ChildByField("function")))
}

func (e *Engine) callResult(callee Type) Type {
	switch c := callee.(type) {
	case ClassLiteral:
		if c.Class.Module == TypingModule {
			if alias, ok := typingAliases[c.Class.Name]; ok {
				return Instance{Class: alias}
			}
			return Unknown
		}
		return Instance{Class: c.Class}
	case Function:
		return e.ReturnType(c)
	case GenericAlias:
		return Instance{Class: c.Origin, Args: c.Args}
	case Union:
		results := make([]Type, len(c.Elements))
		for i, element := range c.Elements {
			results[i] = e.callResult(element)
		}
		return NewUnion(results...)
	case Dynamic:
		return c
	default:
		return Unknown
	}
}

func (e *Engine) attribute(doc *Document, n *syntax.Node) Type {
	name := n.ChildByField("attribute")
	if name == nil {
		return Unknown
	}
	return e.member(e.TypeOf(doc, n.ChildByField("object")), name.Text(doc.Tree.Source))
}

func (e *Engine) member(t Type, name string) Type {
	switch t := t.(type) {
	case Module:
		return e.importMember(t.Name, name)
	case Instance:
		if t.Class.Def != nil {
			return e.classMember(t.Class, name, true)
		}
		if m, ok := builtinMethod(t, name); ok {
			return m
		}
		return Unknown
	case ClassLiteral:
		if t.Class.Def != nil {
			return e.classMember(t.Class, name, false)
		}
		return Unknown
	case Literal:
		return e.member(Instance{Class: t.Class()}, name)
	case Union:
		members := make([]Type, len(t.Elements))
		for i, element := range t.Elements {
			members[i] = e.member(element, name)
		}
		return NewUnion(members...)
	default:
		return Unknown
	}
}

// classMember looks a name up in a class body, then in attributes assigned through self in its
// methods, then in its base classes.
func (e *Engine) classMember(cls *Class, name string, instance bool) Type {
	if e.depth >= _maxDepth {
		return Unknown
	}
	e.depth++
	defer func() { e.depth-- }()

	doc, class := cls.Def.Document, cls.Def.Node
	var found *binding
	for _, b := range e.bindings(doc, class) {
		if b.name == name {
			found = b
		}
	}
	if found != nil {
		return e.bindingType(doc, found)
	}

	if instance {
		if t, ok := e.selfAttribute(doc, class, name); ok {
			return t
		}
	}

	if superclasses := class.ChildByField("superclasses"); superclasses != nil {
		for _, base := range expressions(superclasses) {
			if b, ok := e.TypeOf(doc, base).(ClassLiteral); ok && b.Class.Def != nil {
				if t := e.classMember(b.Class, name, instance); t != Unknown {
					return t
				}
			}
		}
	}
	return Unknown
}

func (e *Engine) selfAttribute(doc *Document, class *syntax.Node, name string) (Type, bool) {
	body := class.ChildByField("body")
	if body == nil {
		return nil, false
	}
	src := doc.Tree.Source
	for _, stmt := range body.NamedChildren() {
		def := stmt
		if def.Kind == syntax.KindDecorated {
			def = def.ChildByField("definition")
		}
		if def == nil || def.Kind != syntax.KindFunctionDefinition {
			continue
		}
		self := e.selfName(doc, def)
		if self == "" {
			continue
		}

		var result Type
		if method := def.ChildByField("body"); method != nil {
			method.Walk(func(n *syntax.Node) bool {
				if result != nil {
					return false
				}
				switch n.Kind {
				case syntax.KindFunctionDefinition, syntax.KindClassDefinition, syntax.KindLambda:
					return false
				case syntax.KindAssignment:
					left := n.ChildByField("left")
					if left == nil || left.Kind != "attribute" {
						return true
					}
					object, attr := left.ChildByField("object"), left.ChildByField("attribute")
					if object == nil || attr == nil || object.Text(src) != self || attr.Text(src) != name {
						return true
					}
					if annotation := n.ChildByField("type"); annotation != nil {
						result = e.annotation(doc, annotation)
					} else {
						result = e.TypeOf(doc, n.ChildByField("right"))
					}
					return false
				}
				return true
			})
		}
		if result != nil {
			return result, true
		}
	}
	return nil, false
}

func (e *Engine) selfName(doc *Document, def *syntax.Node) string {
	for _, d := range decorators(def, doc.Tree.Source) {
		if d == "staticmethod" || d == "classmethod" {
			return ""
		}
	}
	for _, b := range e.bindings(doc, def) {
		if b.kind == bindParam && b.paramIndex == 0 && b.star == 0 {
			return b.name
		}
	}
	return ""
}

func (e *Engine) subscript(doc *Document, n *syntax.Node) Type {
	indices := n.ChildrenByField("subscript")
	if len(indices) == 0 {
		return Unknown
	}

	switch v := e.TypeOf(doc, n.ChildByField("value")).(type) {
	case ClassLiteral:
		origin := v.Class
		if v.Class.Module == TypingModule {
			alias, ok := typingAliases[v.Class.Name]
			if !ok {
				return Unknown
			}
			origin = alias
		}
		args := make([]Type, len(indices))
		for i, index := range indices {
			args[i] = e.annotation(doc, index)
		}
		return GenericAlias{Origin: origin, Args: args}
	case Literal:
		if v.LitKind == LiteralStr {
			return _str
		}
		return Unknown
	case Instance:
		index := indices[0]
		switch v.Class {
		case ClassList:
			if index.Kind == "slice" {
				return v
			}
			return typeArg(0)(v)
		case ClassTuple:
			if index.Kind == "slice" {
				return Instance{Class: ClassTuple}
			}
			if i, ok := intIndex(index, doc.Tree.Source); ok {
				if i < 0 {
					i += len(v.Args)
				}
				if i >= 0 && i < len(v.Args) {
					return v.Args[i]
				}
				return Unknown
			}
			return NewUnion(v.Args...)
		case ClassDict:
			return typeArg(1)(v)
		case ClassStr:
			return _str
		case ClassBytes:
			return _int
		}
		if v.Class.Def != nil {
			if getter, ok := e.classMember(v.Class, "__getitem__", true).(Function); ok {
				return e.ReturnType(getter)
			}
		}
		return Unknown
	case Dynamic:
		return v
	default:
		return Unknown
	}
}

func intIndex(n *syntax.Node, src []byte) (int, bool) {
	text := strings.ReplaceAll(n.Text(src), " ", "")
	i, err := strconv.Atoi(text)
	return i, err == nil && (n.Kind == "integer" || n.Kind == "unary_operator")
}

func elementType(t Type) Type {
	switch t := t.(type) {
	case Instance:
		switch t.Class {
		case ClassList, ClassSet, ClassFrozenSet, ClassGenerator, ClassDictKeys, ClassDict:
			return typeArg(0)(t)
		case ClassDictValues:
			return typeArg(1)(t)
		case ClassDictItems:
			if len(t.Args) == 2 {
				return Instance{Class: ClassTuple, Args: t.Args}
			}
			return Instance{Class: ClassTuple}
		case ClassTuple:
			return NewUnion(t.Args...)
		case ClassStr:
			return _str
		case ClassBytes, ClassRange:
			return _int
		}
	case Literal:
		if t.LitKind == LiteralStr {
			return _str
		}
	}
	return Unknown
}

var _numericRank = map[*Class]int{
	ClassBool:    0,
	ClassInt:     1,
	ClassFloat:   2,
	ClassComplex: 3,
}

var _rankedNumeric = []*Class{ClassInt, ClassInt, ClassFloat, ClassComplex}

func binaryResult(left Type, op string, right Type) Type {
	if l, ok := left.(Literal); ok && l.LitKind == LiteralInt {
		if r, ok := right.(Literal); ok && r.LitKind == LiteralInt {
			if folded, ok := foldInt(l.Value, op, r.Value); ok {
				return folded
			}
		}
	}

	l, lok := Widen(left).(Instance)
	r, rok := Widen(right).(Instance)
	if !lok || !rok {
		return Unknown
	}

	lrank, lnum := _numericRank[l.Class]
	rrank, rnum := _numericRank[r.Class]
	switch {
	case lnum && rnum:
		rank := lrank
		if rrank > rank {
			rank = rrank
		}
		switch op {
		case "/":
			if rank < 2 {
				return Instance{Class: ClassFloat}
			}
		case "&", "|", "^", "<<", ">>":
			if rank > 1 {
				return Unknown
			}
		}
		return Instance{Class: _rankedNumeric[rank]}
	case l.Class == ClassStr && op == "%":
		return _str
	case op == "+" && l.Class == r.Class && (l.Class == ClassStr || l.Class == ClassBytes):
		return l
	case op == "+" && l.Class == r.Class && (l.Class == ClassList || l.Class == ClassTuple):
		if l.Class == ClassTuple {
			return Instance{Class: ClassTuple, Args: append(append([]Type(nil), l.Args...), r.Args...)}
		}
		return Instance{Class: ClassList, Args: []Type{NewUnion(append(append([]Type(nil), l.Args...), r.Args...)...)}}
	case op == "*" && (r.Class == ClassInt || r.Class == ClassBool) && (l.Class == ClassStr || l.Class == ClassList || l.Class == ClassBytes):
		return l
	case op == "*" && (l.Class == ClassInt || l.Class == ClassBool) && (r.Class == ClassStr || r.Class == ClassList || r.Class == ClassBytes):
		return r
	}
	return Unknown
}

func foldInt(left, op, right string) (Type, bool) {
	l, err := strconv.ParseInt(left, 0, 32)
	if err != nil {
		return nil, false
	}
	r, err := strconv.ParseInt(right, 0, 32)
	if err != nil {
		return nil, false
	}
	var v int64
	switch op {
	case "+":
		v = l + r
	case "-":
		v = l - r
	case "*":
		v = l * r
	default:
		return nil, false
	}
	return Literal{LitKind: LiteralInt, Value: strconv.FormatInt(v, 10)}, true
}

func unaryResult(op string, operand Type) Type {
	if l, ok := operand.(Literal); ok && op == "-" && (l.LitKind == LiteralInt || l.LitKind == LiteralFloat) {
		if strings.HasPrefix(l.Value, "-") {
			return Literal{LitKind: l.LitKind, Value: strings.TrimPrefix(l.Value, "-")}
		}
		return Literal{LitKind: l.LitKind, Value: "-" + l.Value}
	}
	switch op {
	case "~":
		return _int
	case "not":
		return _bool
	}
	return Widen(operand)
}
