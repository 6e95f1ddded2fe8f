package syntax

// ScopeKind is the kind of a scope introducing node.
type ScopeKind int

// Scope kinds.
const (
	ScopeNone ScopeKind = iota
	ScopeModule
	ScopeClass
	ScopeFunction
)

// String implements fmt.Stringer.
func (k ScopeKind) String() string {
	switch k {
	case ScopeModule:
		return "module"
	case ScopeClass:
		return "class"
	case ScopeFunction:
		return "function"
	default:
		return "none"
	}
}

// Node kinds referenced by the analysis packages.
const (
	KindModule             = "module"
	KindClassDefinition    = "class_definition"
	KindFunctionDefinition = "function_definition"
	KindDecorated          = "decorated_definition"
	KindIdentifier         = "identifier"
	KindAssignment         = "assignment"
	KindAugAssignment      = "augmented_assignment"
	KindExpressionStmt     = "expression_statement"
	KindImport             = "import_statement"
	KindImportFrom         = "import_from_statement"
	KindDottedName         = "dotted_name"
	KindAliasedImport      = "aliased_import"
	KindRelativeImport     = "relative_import"
	KindImportPrefix       = "import_prefix"
	KindReturn             = "return_statement"
	KindFor                = "for_statement"
	KindBlock              = "block"
	KindParameters         = "parameters"
	KindLambda             = "lambda"
)

// ScopeOf returns the scope kind introduced by a node.
func ScopeOf(n *Node) ScopeKind {
	switch n.Kind {
	case KindModule:
		return ScopeModule
	case KindClassDefinition:
		return ScopeClass
	case KindFunctionDefinition:
		return ScopeFunction
	default:
		return ScopeNone
	}
}

var expressionKinds = map[string]struct{}{
	"identifier":               {},
	"keyword_identifier":       {},
	"integer":                  {},
	"float":                    {},
	"string":                   {},
	"concatenated_string":      {},
	"true":                     {},
	"false":                    {},
	"none":                     {},
	"ellipsis":                 {},
	"list":                     {},
	"tuple":                    {},
	"dictionary":               {},
	"set":                      {},
	"list_comprehension":       {},
	"set_comprehension":        {},
	"dictionary_comprehension": {},
	"generator_expression":     {},
	"call":                     {},
	"attribute":                {},
	"subscript":                {},
	"slice":                    {},
	"binary_operator":          {},
	"boolean_operator":         {},
	"unary_operator":           {},
	"not_operator":             {},
	"comparison_operator":      {},
	"conditional_expression":   {},
	"parenthesized_expression": {},
	"lambda":                   {},
	"await":                    {},
	"named_expression":         {},
	"expression_list":          {},
	"pattern_list":             {},
	"tuple_pattern":            {},
	"list_pattern":             {},
	"list_splat":               {},
	"dictionary_splat":         {},
	"yield":                    {},
}

// parents whose identifier children are names rather than expressions
var nameOnlyParents = map[string]struct{}{
	"parameters":               {},
	"lambda_parameters":        {},
	"typed_parameter":          {},
	"list_splat_pattern":       {},
	"dictionary_splat_pattern": {},
	"dotted_name":              {},
	"aliased_import":           {},
	"relative_import":          {},
	"global_statement":         {},
	"nonlocal_statement":       {},
}

// IsExpression reports whether a node is an expression. Identifiers that only name a binding
// (definition names, parameters, import paths, attribute and keyword names) are not.
func IsExpression(n *Node) bool {
	if _, ok := expressionKinds[n.Kind]; !ok {
		return false
	}
	if n.Kind != KindIdentifier && n.Kind != "keyword_identifier" {
		return true
	}
	return !IsBindingName(n)
}

// IsBindingName reports whether an identifier names a definition, a parameter or an import
// path instead of referencing a value.
func IsBindingName(n *Node) bool {
	p := n.Parent
	if p == nil {
		return false
	}
	if _, ok := nameOnlyParents[p.Kind]; ok {
		return true
	}
	switch p.Kind {
	case KindFunctionDefinition, KindClassDefinition:
		return n.Field == "name"
	case "default_parameter", "typed_default_parameter", "keyword_argument":
		return n.Field == "name"
	case "attribute":
		return n.Field == "attribute"
	}
	return false
}
