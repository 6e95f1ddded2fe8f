package semantic

import (
	"strings"

	"github.com/uber/tsp-lsp/src/tspd/internal/analysis/syntax"
)

// annotation evaluates a type expression to the type of the values it describes.
func (e *Engine) annotation(doc *Document, n *syntax.Node) Type {
	if n == nil {
		return Unknown
	}
	if n.Kind == "type" {
		inner := expressions(n)
		if len(inner) != 1 {
			return Unknown
		}
		n = inner[0]
	}

	src := doc.Tree.Source
	switch n.Kind {
	case "none":
		return None{}
	case "string":
		name := strings.TrimSpace(stringValue(n, src))
		if name == "" || strings.ContainsAny(name, "[]|. ") {
			return Unknown
		}
		return typeExpression(e.lookup(doc, n, name, n.Start))
	case "binary_operator":
		if op := n.ChildByField("operator"); op != nil && op.Text(src) == "|" {
			return NewUnion(e.annotation(doc, n.ChildByField("left")), e.annotation(doc, n.ChildByField("right")))
		}
		return Unknown
	case "subscript":
		return e.annotationSubscript(doc, n)
	case "parenthesized_expression":
		if inner := expressions(n); len(inner) == 1 {
			return e.annotation(doc, inner[0])
		}
		return Unknown
	default:
		return typeExpression(e.TypeOf(doc, n))
	}
}

// typeExpression converts the value of a name used in an annotation.
func typeExpression(t Type) Type {
	switch t := t.(type) {
	case ClassLiteral:
		if t.Class.Module == TypingModule {
			if alias, ok := typingAliases[t.Class.Name]; ok {
				return Instance{Class: alias}
			}
			if t.Class.Name == "Any" {
				return Any
			}
			return Unknown
		}
		return Instance{Class: t.Class}
	case GenericAlias:
		return Instance{Class: t.Origin, Args: t.Args}
	case None, Dynamic:
		return t
	default:
		return Unknown
	}
}

func (e *Engine) annotationSubscript(doc *Document, n *syntax.Node) Type {
	base, ok := e.TypeOf(doc, n.ChildByField("value")).(ClassLiteral)
	if !ok {
		return Unknown
	}
	indices := n.ChildrenByField("subscript")
	if len(indices) == 0 {
		return Unknown
	}
	args := func() []Type {
		result := make([]Type, len(indices))
		for i, index := range indices {
			result[i] = e.annotation(doc, index)
		}
		return result
	}

	class := base.Class
	if class.Module == TypingModule {
		switch class.Name {
		case "Optional":
			return NewUnion(append(args(), None{})...)
		case "Union":
			return NewUnion(args()...)
		case "Literal":
			values := make([]Type, len(indices))
			for i, index := range indices {
				values[i] = e.TypeOf(doc, index)
			}
			return NewUnion(values...)
		case "Type":
			if inst, ok := e.annotation(doc, indices[0]).(Instance); ok {
				return ClassLiteral{Class: inst.Class}
			}
			return Unknown
		}
		alias, ok := typingAliases[class.Name]
		if !ok {
			return Unknown
		}
		class = alias
	}
	if class == ClassType {
		if inst, ok := e.annotation(doc, indices[0]).(Instance); ok {
			return ClassLiteral{Class: inst.Class}
		}
	}
	return Instance{Class: class, Args: args()}
}

// importedModule returns the absolute name of the module_name node of a from import.
func (e *Engine) importedModule(doc *Document, n *syntax.Node) string {
	if n == nil {
		return ""
	}
	src := doc.Tree.Source
	if n.Kind != syntax.KindRelativeImport {
		return n.Text(src)
	}
	dots := 0
	if prefix := n.FirstNamedChild(syntax.KindImportPrefix); prefix != nil {
		dots = len(strings.TrimSpace(prefix.Text(src)))
	}
	var name string
	if dotted := n.FirstNamedChild(syntax.KindDottedName); dotted != nil {
		name = dotted.Text(src)
	}
	return e.absoluteModule(doc, dots, name)
}

// absoluteModule resolves a relative module reference against the importing document.
// It returns "" when the reference leaves the top level package.
func (e *Engine) absoluteModule(doc *Document, dots int, name string) string {
	if dots == 0 {
		return name
	}
	var parts []string
	if doc.Module != "" {
		parts = strings.Split(doc.Module, ".")
	}
	if !doc.Package {
		if len(parts) == 0 {
			return ""
		}
		parts = parts[:len(parts)-1]
	}
	if dots-1 > len(parts) {
		return ""
	}
	parts = parts[:len(parts)-(dots-1)]
	if name != "" {
		parts = append(parts, name)
	}
	return strings.Join(parts, ".")
}

func (e *Engine) load(module string) (*Document, bool) {
	if module == "" || e.loader == nil {
		return nil, false
	}
	if doc, ok := e.modules[module]; ok {
		return doc, doc != nil
	}
	doc, ok := e.loader.Load(e.ctx, module)
	if !ok {
		doc = nil
	}
	e.modules[module] = doc
	return doc, doc != nil
}

// importMember types a member of a module: a module level binding, else a submodule.
func (e *Engine) importMember(module, member string) Type {
	if doc, ok := e.load(module); ok {
		var found *binding
		for _, b := range e.bindings(doc, doc.Tree.Root) {
			if b.name == member {
				found = b
			}
		}
		if found != nil {
			return e.bindingType(doc, found)
		}
	}
	if _, ok := e.load(module + "." + member); ok {
		return Module{Name: module + "." + member}
	}
	if module == TypingModule {
		return typingForm(member)
	}
	return Unknown
}
