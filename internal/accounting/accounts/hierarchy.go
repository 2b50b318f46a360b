package accounts

import (
	"sort"

	"github.com/google/uuid"
)

// Node is an account with its children attached, for tree listings.
type Node struct {
	Account
	Children []*Node
}

// Hierarchy arranges a flat account list into roots ordered by code.
// Accounts whose parent is missing from all are treated as roots.
func Hierarchy(all []Account) []*Node {
	nodes := make(map[uuid.UUID]*Node, len(all))
	for _, a := range all {
		nodes[a.ID] = &Node{Account: a}
	}
	var roots []*Node
	for _, a := range all {
		n := nodes[a.ID]
		if a.ParentID != nil {
			if parent, ok := nodes[*a.ParentID]; ok {
				parent.Children = append(parent.Children, n)
				continue
			}
		}
		roots = append(roots, n)
	}
	sortNodes(roots)
	return roots
}

func sortNodes(nodes []*Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Code < nodes[j].Code })
	for _, n := range nodes {
		sortNodes(n.Children)
	}
}
