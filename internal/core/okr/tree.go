package okr

import (
	"slices"
	"strings"
)

// Node is one objective in the parent/child hierarchy.
type Node struct {
	Objective Objective
	Children  []*Node
}

// BuildTree arranges objectives by ParentID. An objective whose parent is
// not in the input, or whose parent chain loops back to it, becomes a root.
// Roots and children keep the input order.
func BuildTree(objectives []Objective) []*Node {
	nodes := make(map[string]*Node, len(objectives))
	for _, o := range objectives {
		nodes[o.ID] = &Node{Objective: o}
	}

	var roots []*Node
	for _, o := range objectives {
		n := nodes[o.ID]
		parent, ok := nodes[o.ParentID]
		if o.ParentID == "" || !ok || o.ParentID == o.ID || createsCycle(nodes, o.ID, o.ParentID) {
			roots = append(roots, n)
			continue
		}
		parent.Children = append(parent.Children, n)
	}

	return roots
}

// createsCycle walks up from parentID and reports whether id is reached.
func createsCycle(nodes map[string]*Node, id, parentID string) bool {
	seen := map[string]bool{}
	for cur := parentID; cur != ""; {
		if cur == id {
			return true
		}
		if seen[cur] {
			return true
		}
		seen[cur] = true

		n, ok := nodes[cur]
		if !ok {
			return false
		}
		cur = n.Objective.ParentID
	}
	return false
}

// Walk visits every node depth-first, passing its depth from the root.
func Walk(roots []*Node, fn func(n *Node, depth int)) {
	var visit func(n *Node, depth int)
	visit = func(n *Node, depth int) {
		fn(n, depth)
		for _, c := range n.Children {
			visit(c, depth+1)
		}
	}
	for _, r := range roots {
		visit(r, 0)
	}
}

// Quarters returns the distinct non-empty quarter labels ("1404-Q1"),
// newest first.
func Quarters(objectives []Objective) []string {
	set := map[string]struct{}{}
	for _, o := range objectives {
		if q := strings.TrimSpace(o.Quarter); q != "" {
			set[q] = struct{}{}
		}
	}

	out := make([]string, 0, len(set))
	for q := range set {
		out = append(out, q)
	}
	slices.Sort(out)
	slices.Reverse(out)
	return out
}
