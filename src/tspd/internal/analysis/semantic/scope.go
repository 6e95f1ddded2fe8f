package semantic

import (
	"strings"

	"github.com/uber/tsp-lsp/src/tspd/internal/analysis/syntax"
)

type bindingKind int

const (
	bindAssign bindingKind = iota
	bindAugmented
	bindDef
	bindClass
	bindImport
	bindImportFrom
	bindParam
	bindFor
	bindWith
)

// binding is a single place where a scope binds a name.
type binding struct {
	kind bindingKind
	name string
	// node is the identifier naming the binding.
	node *syntax.Node
	// stmt is the statement holding the binding. Bindings are visible after it ends.
	stmt *syntax.Node
	// value is the assigned value, the iterable, the default value or the definition.
	value      *syntax.Node
	annotation *syntax.Node
	// path indexes into tuple unpacking targets.
	path []int

	module   string
	member   string
	operator string

	paramIndex int
	// star is 1 for *args and 2 for **kwargs.
	star int
}

var compoundStatements = map[string]bool{
	"if_statement":        true,
	"elif_clause":         true,
	"else_clause":         true,
	"while_statement":     true,
	"try_statement":       true,
	"except_clause":       true,
	"except_group_clause": true,
	"finally_clause":      true,
	"with_statement":      true,
	"match_statement":     true,
	"case_clause":         true,
	"block":               true,
}

var comprehensions = map[string]bool{
	"list_comprehension":       true,
	"set_comprehension":        true,
	"dictionary_comprehension": true,
	"generator_expression":     true,
}

// bindings returns every binding of a scope node in document order.
func (e *Engine) bindings(doc *Document, scope *syntax.Node) []*binding {
	if cached, ok := e.scopes[scope]; ok {
		return cached
	}

	c := &collector{doc: doc, engine: e}
	switch scope.Kind {
	case syntax.KindModule:
		c.statements(scope.Children)
	case syntax.KindClassDefinition:
		if body := scope.ChildByField("body"); body != nil {
			c.statements(body.Children)
		}
	case syntax.KindFunctionDefinition:
		if params := scope.ChildByField("parameters"); params != nil {
			c.parameters(params)
		}
		if body := scope.ChildByField("body"); body != nil {
			c.statements(body.Children)
		}
	case syntax.KindLambda:
		if params := scope.ChildByField("parameters"); params != nil {
			c.parameters(params)
		}
	}

	e.scopes[scope] = c.result
	return c.result
}

type collector struct {
	doc    *Document
	engine *Engine
	result []*binding
}

func (c *collector) add(b *binding) {
	b.name = b.node.Text(c.doc.Tree.Source)
	c.result = append(c.result, b)
}

func (c *collector) statements(stmts []*syntax.Node) {
	for _, stmt := range stmts {
		c.statement(stmt)
	}
}

func (c *collector) statement(stmt *syntax.Node) {
	switch stmt.Kind {
	case syntax.KindExpressionStmt:
		for _, child := range stmt.NamedChildren() {
			switch child.Kind {
			case syntax.KindAssignment:
				c.assignment(child, stmt)
			case syntax.KindAugAssignment:
				if left := child.ChildByField("left"); left != nil && left.Kind == syntax.KindIdentifier {
					op := child.ChildByField("operator")
					c.add(&binding{
						kind:     bindAugmented,
						node:     left,
						stmt:     stmt,
						value:    child.ChildByField("right"),
						operator: strings.TrimSuffix(op.Text(c.doc.Tree.Source), "="),
					})
				}
			}
		}
	case syntax.KindFunctionDefinition:
		if name := stmt.ChildByField("name"); name != nil {
			c.add(&binding{kind: bindDef, node: name, stmt: stmt, value: stmt})
		}
	case syntax.KindClassDefinition:
		if name := stmt.ChildByField("name"); name != nil {
			c.add(&binding{kind: bindClass, node: name, stmt: stmt, value: stmt})
		}
	case syntax.KindDecorated:
		if def := stmt.ChildByField("definition"); def != nil {
			c.statement(def)
		}
	case syntax.KindImport:
		c.importStatement(stmt)
	case syntax.KindImportFrom:
		c.importFrom(stmt)
	case syntax.KindFor:
		if left := stmt.ChildByField("left"); left != nil {
			c.target(bindFor, left, stmt, stmt.ChildByField("right"), nil, nil)
		}
		if body := stmt.ChildByField("body"); body != nil {
			c.statements(body.Children)
		}
		for _, child := range stmt.NamedChildren() {
			if child.Kind == "else_clause" {
				c.statement(child)
			}
		}
	case "with_clause":
		for _, item := range stmt.NamedChildren() {
			c.withItem(item, stmt)
		}
	default:
		if compoundStatements[stmt.Kind] {
			for _, child := range stmt.NamedChildren() {
				c.statement(child)
			}
		}
	}
}

func (c *collector) assignment(a, stmt *syntax.Node) {
	left := a.ChildByField("left")
	right := a.ChildByField("right")
	if left == nil {
		return
	}
	value := right
	for value != nil && value.Kind == syntax.KindAssignment {
		c.assignment(value, stmt)
		value = value.ChildByField("right")
	}
	c.target(bindAssign, left, stmt, value, a.ChildByField("type"), nil)
}

func (c *collector) target(kind bindingKind, target, stmt, value, annotation *syntax.Node, path []int) {
	switch target.Kind {
	case syntax.KindIdentifier:
		c.add(&binding{kind: kind, node: target, stmt: stmt, value: value, annotation: annotation, path: path})
	case "pattern_list", "tuple_pattern", "list_pattern", "tuple", "list", "expression_list", "parenthesized_expression":
		i := 0
		for _, child := range target.NamedChildren() {
			if child.Kind == "comment" {
				continue
			}
			if target.Kind == "parenthesized_expression" {
				c.target(kind, child, stmt, value, nil, path)
				return
			}
			elementPath := append(append([]int(nil), path...), i)
			c.target(kind, child, stmt, value, nil, elementPath)
			i++
		}
	}
}

func (c *collector) withItem(item, stmt *syntax.Node) {
	if item.Kind != "with_item" {
		return
	}
	pattern := item.FirstNamedChild("as_pattern")
	if pattern == nil {
		return
	}
	children := pattern.NamedChildren()
	if len(children) < 2 {
		return
	}
	alias := children[len(children)-1]
	if alias.Kind == "as_pattern_target" {
		if id := alias.FirstNamedChild(syntax.KindIdentifier); id != nil {
			c.add(&binding{kind: bindWith, node: id, stmt: stmt, value: children[0]})
		}
	}
}

func (c *collector) importStatement(stmt *syntax.Node) {
	src := c.doc.Tree.Source
	for _, name := range stmt.ChildrenByField("name") {
		switch name.Kind {
		case syntax.KindDottedName:
			first := name.FirstNamedChild(syntax.KindIdentifier)
			if first != nil {
				c.add(&binding{kind: bindImport, node: first, stmt: stmt, module: first.Text(src)})
			}
		case syntax.KindAliasedImport:
			path, alias := name.ChildByField("name"), name.ChildByField("alias")
			if path != nil && alias != nil {
				c.add(&binding{kind: bindImport, node: alias, stmt: stmt, module: path.Text(src)})
			}
		}
	}
}

func (c *collector) importFrom(stmt *syntax.Node) {
	src := c.doc.Tree.Source
	module := c.engine.importedModule(c.doc, stmt.ChildByField("module_name"))
	for _, name := range stmt.ChildrenByField("name") {
		switch name.Kind {
		case syntax.KindDottedName:
			if id := name.FirstNamedChild(syntax.KindIdentifier); id != nil {
				c.add(&binding{kind: bindImportFrom, node: id, stmt: stmt, module: module, member: name.Text(src)})
			}
		case syntax.KindAliasedImport:
			path, alias := name.ChildByField("name"), name.ChildByField("alias")
			if path != nil && alias != nil {
				c.add(&binding{kind: bindImportFrom, node: alias, stmt: stmt, module: module, member: path.Text(src)})
			}
		}
	}
}

func (c *collector) parameters(params *syntax.Node) {
	index := 0
	for _, p := range params.NamedChildren() {
		b := &binding{kind: bindParam, stmt: params, paramIndex: index}
		switch p.Kind {
		case syntax.KindIdentifier:
			b.node = p
		case "typed_parameter":
			b.annotation = p.ChildByField("type")
			for _, child := range p.NamedChildren() {
				switch child.Kind {
				case syntax.KindIdentifier:
					b.node = child
				case "list_splat_pattern":
					b.node, b.star = child.FirstNamedChild(syntax.KindIdentifier), 1
				case "dictionary_splat_pattern":
					b.node, b.star = child.FirstNamedChild(syntax.KindIdentifier), 2
				}
				if b.node != nil {
					break
				}
			}
		case "default_parameter":
			b.node, b.value = p.ChildByField("name"), p.ChildByField("value")
		case "typed_default_parameter":
			b.node, b.value, b.annotation = p.ChildByField("name"), p.ChildByField("value"), p.ChildByField("type")
		case "list_splat_pattern":
			b.node, b.star = p.FirstNamedChild(syntax.KindIdentifier), 1
		case "dictionary_splat_pattern":
			b.node, b.star = p.FirstNamedChild(syntax.KindIdentifier), 2
		}
		if b.node == nil || b.node.Kind != syntax.KindIdentifier {
			continue
		}
		c.add(b)
		index++
	}
}

// scopeChain returns the scopes in which a reference at n resolves, innermost first.
// Class bodies are only visible to references directly inside them.
func scopeChain(n *syntax.Node) []*syntax.Node {
	var chain []*syntax.Node
	for p := n.Parent; p != nil; p = p.Parent {
		switch p.Kind {
		case syntax.KindFunctionDefinition, syntax.KindLambda:
			// parameters and the body belong to the function; its name and decorators do not
			if n.Field == "name" && n.Parent == p {
				continue
			}
			chain = append(chain, p)
		case syntax.KindClassDefinition:
			if len(chain) == 0 && !(n.Field == "name" && n.Parent == p) {
				chain = append(chain, p)
			}
		case syntax.KindModule:
			chain = append(chain, p)
		}
	}
	return chain
}

// findBinding picks the binding of name in scope that is visible at offset: the binding site
// itself, else the last binding completed before offset, else the last binding of the scope.
func (e *Engine) findBinding(doc *Document, scope *syntax.Node, name string, at *syntax.Node, offset uint32) *binding {
	var visible, last *binding
	for _, b := range e.bindings(doc, scope) {
		if b.name != name {
			continue
		}
		if b.node == at {
			return b
		}
		last = b
		if b.stmt.End <= offset {
			visible = b
		}
	}
	if visible != nil {
		return visible
	}
	return last
}

// lookup resolves a name referenced at node at.
func (e *Engine) lookup(doc *Document, at *syntax.Node, name string, offset uint32) Type {
	for _, scope := range scopeChain(at) {
		if b := e.findBinding(doc, scope, name, at, offset); b != nil {
			return e.bindingType(doc, b)
		}
	}
	if t, ok := LookupBuiltin(name); ok {
		return t
	}
	return Unknown
}

// comprehensionVariable resolves names bound by the for clauses of enclosing comprehensions.
func (e *Engine) comprehensionVariable(doc *Document, n *syntax.Node, name string) (Type, bool) {
	src := doc.Tree.Source
	for p := n.Parent; p != nil; p = p.Parent {
		switch {
		case comprehensions[p.Kind]:
		case p.Kind == syntax.KindFunctionDefinition, p.Kind == syntax.KindClassDefinition, p.Kind == syntax.KindLambda:
			return nil, false
		default:
			continue
		}
		for _, clause := range p.NamedChildren() {
			if clause.Kind != "for_in_clause" {
				continue
			}
			left, right := clause.ChildByField("left"), clause.ChildByField("right")
			if left == nil || right == nil {
				continue
			}
			if path, ok := targetPath(left, name, src); ok {
				return unpackType(elementType(e.TypeOf(doc, right)), path), true
			}
		}
	}
	return nil, false
}

func targetPath(target *syntax.Node, name string, src []byte) ([]int, bool) {
	switch target.Kind {
	case syntax.KindIdentifier:
		return nil, target.Text(src) == name
	case "pattern_list", "tuple_pattern", "list_pattern":
		for i, child := range target.NamedChildren() {
			if path, ok := targetPath(child, name, src); ok {
				return append([]int{i}, path...), true
			}
		}
	}
	return nil, false
}

// enclosingClass returns the class whose body directly holds a function definition.
func enclosingClass(def *syntax.Node) *syntax.Node {
	holder := def
	if holder.Parent != nil && holder.Parent.Kind == syntax.KindDecorated {
		holder = holder.Parent
	}
	if block := holder.Parent; block != nil && block.Kind == syntax.KindBlock {
		if class := block.Parent; class != nil && class.Kind == syntax.KindClassDefinition {
			return class
		}
	}
	return nil
}

func decorators(def *syntax.Node, src []byte) []string {
	holder := def.Parent
	if holder == nil || holder.Kind != syntax.KindDecorated {
		return nil
	}
	var result []string
	for _, child := range holder.NamedChildren() {
		if child.Kind == "decorator" {
			result = append(result, strings.TrimSpace(strings.TrimPrefix(child.Text(src), "@")))
		}
	}
	return result
}

// qualifiedName joins the names of the enclosing classes and functions with the definition name.
func qualifiedName(def *syntax.Node, src []byte) string {
	var parts []string
	for n := def; n != nil; n = n.Parent {
		if n.Kind == syntax.KindFunctionDefinition || n.Kind == syntax.KindClassDefinition {
			if name := n.ChildByField("name"); name != nil {
				parts = append([]string{name.Text(src)}, parts...)
			}
		}
	}
	return strings.Join(parts, ".")
}
