// Package syntax holds the syntax tree model used by the analysis packages.
// Trees are produced by Parse and are immutable afterwards, so they can be shared between workers.
package syntax

// Node is a syntax tree node with byte offsets into the parsed source.
type Node struct {
	Kind string
	// Field is the name under which the parent holds this node, if any.
	Field    string
	Named    bool
	Start    uint32
	End      uint32
	Children []*Node
	Parent   *Node
}

// Error is a syntax error reported by the parser.
type Error struct {
	Start uint32
	End   uint32
	// Missing is set when the parser inserted a zero-width node to recover.
	Missing bool
	// Kind is the node kind that was missing or "ERROR".
	Kind string
}

// Tree is a parsed document.
type Tree struct {
	Root   *Node
	Source []byte
	Errors []Error
}

// ChildByField returns the first child held under the given field.
func (n *Node) ChildByField(field string) *Node {
	for _, c := range n.Children {
		if c.Field == field {
			return c
		}
	}
	return nil
}

// ChildrenByField returns every child held under the given field.
func (n *Node) ChildrenByField(field string) []*Node {
	var result []*Node
	for _, c := range n.Children {
		if c.Field == field {
			result = append(result, c)
		}
	}
	return result
}

// NamedChildren returns the named children in document order.
func (n *Node) NamedChildren() []*Node {
	result := make([]*Node, 0, len(n.Children))
	for _, c := range n.Children {
		if c.Named {
			result = append(result, c)
		}
	}
	return result
}

// FirstNamedChild returns the first named child of the given kind.
func (n *Node) FirstNamedChild(kind string) *Node {
	for _, c := range n.Children {
		if c.Named && c.Kind == kind {
			return c
		}
	}
	return nil
}

// Text returns the source text covered by the node.
func (n *Node) Text(src []byte) string {
	if n == nil || int(n.End) > len(src) || n.Start > n.End {
		return ""
	}
	return string(src[n.Start:n.End])
}

// Contains reports whether offset lies within the node, end inclusive.
func (n *Node) Contains(offset uint32) bool {
	return n.Start <= offset && offset <= n.End
}

// ContainsRange reports whether [start, end] lies within the node.
func (n *Node) ContainsRange(start, end uint32) bool {
	return n.Start <= start && end <= n.End
}

// Walk visits n and its descendants in document order. Returning false from fn skips the
// children of the visited node.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Ancestor returns the closest ancestor of one of the given kinds.
func (n *Node) Ancestor(kinds ...string) *Node {
	for p := n.Parent; p != nil; p = p.Parent {
		for _, k := range kinds {
			if p.Kind == k {
				return p
			}
		}
	}
	return nil
}
