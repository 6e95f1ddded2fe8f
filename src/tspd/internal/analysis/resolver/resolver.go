// Package resolver maps document offsets to syntax nodes.
package resolver

import (
	"github.com/uber/tsp-lsp/src/tspd/internal/analysis/syntax"
)

const (
	scoreContains  = 0
	scoreContained = 1
	scoreOverlap   = 2
	scoreGapBase   = 3
	maxGap         = 1000
)

// Resolved is a node found by the resolver together with its enclosing scope.
type Resolved struct {
	Node *syntax.Node
	// Scope is the closest module, class or function node enclosing Node.
	Scope     *syntax.Node
	ScopeKind syntax.ScopeKind
}

// Exact returns the narrowest node whose range contains offset. The root itself is never a
// result, it only provides the outermost scope.
func Exact(root *syntax.Node, offset uint32) (Resolved, bool) {
	if root == nil {
		return Resolved{}, false
	}

	var result Resolved
	scope := root
	current := root
	for {
		next := containingChild(current, offset)
		if next == nil {
			break
		}
		if syntax.ScopeOf(next) != syntax.ScopeNone {
			scope = next
		}
		result = Resolved{Node: next, Scope: scope, ScopeKind: syntax.ScopeOf(scope)}
		current = next
	}
	return result, result.Node != nil
}

func containingChild(n *syntax.Node, offset uint32) *syntax.Node {
	for _, c := range n.Children {
		if !c.Named || c.Kind == "comment" {
			continue
		}
		if c.Contains(offset) {
			return c
		}
	}
	return nil
}

// Nearest returns the expression best matching the byte range [start, end]. Expressions are
// visited in document order. The first one that contains, is contained in or touches the range
// is returned immediately. Otherwise the closest expression wins, ties going to the first.
func Nearest(root *syntax.Node, start, end uint32) (Resolved, bool) {
	if root == nil {
		return Resolved{}, false
	}
	if end < start {
		start, end = end, start
	}

	f := &finder{start: start, end: end}
	f.visit(root, root)
	if f.best == nil {
		return Resolved{}, false
	}
	return Resolved{Node: f.best, Scope: f.bestScope, ScopeKind: syntax.ScopeOf(f.bestScope)}, true
}

type finder struct {
	start, end uint32

	best      *syntax.Node
	bestScope *syntax.Node
	bestScore uint32
	accepted  bool
}

func (f *finder) visit(n, scope *syntax.Node) {
	if f.accepted {
		return
	}

	if syntax.IsExpression(n) {
		score := f.score(n)
		if score <= scoreOverlap {
			f.best, f.bestScope, f.accepted = n, scope, true
			return
		}
		if f.best == nil || score < f.bestScore {
			f.best, f.bestScope, f.bestScore = n, scope, score
		}
	}

	if syntax.ScopeOf(n) != syntax.ScopeNone {
		scope = n
	}
	for _, c := range n.Children {
		if f.accepted {
			return
		}
		f.visit(c, scope)
	}
}

func (f *finder) score(n *syntax.Node) uint32 {
	switch {
	case n.ContainsRange(f.start, f.end):
		return scoreContains
	case f.start <= n.Start && n.End <= f.end:
		return scoreContained
	case n.Start <= f.end && f.start <= n.End:
		return scoreOverlap
	}

	var gap uint32
	if f.start < n.Start {
		gap = n.Start - f.end
	} else {
		gap = f.start - n.End
	}
	if gap > maxGap {
		gap = maxGap
	}
	return scoreGapBase + gap
}
