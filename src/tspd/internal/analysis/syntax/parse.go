package syntax

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// fields lists the grammar fields recovered for each node kind.
var fields = map[string][]string{
	"assignment":               {"left", "right", "type"},
	"augmented_assignment":     {"left", "operator", "right"},
	"function_definition":      {"name", "parameters", "return_type", "body"},
	"class_definition":         {"name", "superclasses", "body"},
	"decorated_definition":     {"definition"},
	"call":                     {"function", "arguments"},
	"attribute":                {"object", "attribute"},
	"subscript":                {"value", "subscript"},
	"binary_operator":          {"left", "operator", "right"},
	"boolean_operator":         {"left", "operator", "right"},
	"unary_operator":           {"operator", "argument"},
	"not_operator":             {"argument"},
	"import_from_statement":    {"module_name", "name"},
	"import_statement":         {"name"},
	"aliased_import":           {"name", "alias"},
	"default_parameter":        {"name", "value"},
	"typed_default_parameter":  {"name", "type", "value"},
	"typed_parameter":          {"type"},
	"keyword_argument":         {"name", "value"},
	"lambda":                   {"parameters", "body"},
	"for_statement":            {"left", "right", "body"},
	"pair":                     {"key", "value"},
	"list_comprehension":       {"body"},
	"set_comprehension":        {"body"},
	"dictionary_comprehension": {"body"},
	"generator_expression":     {"body"},
	"for_in_clause":            {"left", "right"},
	"named_expression":         {"name", "value"},
}

// repeated fields can hold several children while tree-sitter only reports the first one.
// Unlabeled named children following the first labeled one inherit the field.
var repeated = map[string]string{
	"subscript":             "subscript",
	"import_from_statement": "name",
	"import_statement":      "name",
}

// Parse parses Python source. Syntax errors do not fail the parse; they are reported in
// Tree.Errors and the tree contains ERROR nodes at the recovery points.
func Parse(ctx context.Context, src []byte) (*Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// A parser per call keeps Parse safe for concurrent use.
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parsing python source: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, fmt.Errorf("parser returned no tree")
	}

	result := &Tree{Source: src}
	result.Root = convert(root, nil, "")
	if root.HasError() {
		collectErrors(root, &result.Errors)
	}
	return result, nil
}

func convert(n *sitter.Node, parent *Node, field string) *Node {
	node := &Node{
		Kind:   n.Type(),
		Field:  field,
		Named:  n.IsNamed(),
		Start:  n.StartByte(),
		End:    n.EndByte(),
		Parent: parent,
	}

	labels := fieldLabels(n)
	inherit, hasRepeated := repeated[node.Kind]
	labeled := false
	count := int(n.ChildCount())
	node.Children = make([]*Node, 0, count)
	for i := 0; i < count; i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		label := labels[childKey(child)]
		switch {
		case label != "":
			labeled = true
		case !child.IsNamed():
			continue
		case hasRepeated && (labeled || node.Kind == "import_statement"):
			label = inherit
		}
		node.Children = append(node.Children, convert(child, node, label))
	}
	return node
}

type key struct {
	start, end uint32
	kind       string
}

func childKey(n *sitter.Node) key {
	return key{start: n.StartByte(), end: n.EndByte(), kind: n.Type()}
}

func fieldLabels(n *sitter.Node) map[key]string {
	names, ok := fields[n.Type()]
	if !ok || len(names) == 0 {
		return nil
	}
	labels := make(map[key]string, len(names))
	for _, name := range names {
		if child := n.ChildByFieldName(name); child != nil {
			labels[childKey(child)] = name
		}
	}
	return labels
}

func collectErrors(n *sitter.Node, errs *[]Error) {
	if n.IsError() || n.IsMissing() {
		*errs = append(*errs, Error{
			Start:   n.StartByte(),
			End:     n.EndByte(),
			Missing: n.IsMissing(),
			Kind:    n.Type(),
		})
		if n.IsMissing() {
			return
		}
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if child := n.Child(i); child != nil {
			collectErrors(child, errs)
		}
	}
}
