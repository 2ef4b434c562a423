package graph

import (
	"strings"

	"github.com/skelly-dev/typenav/internal/parser"
)

// assignDisplayNames gives every node the shortest name that is unambiguous
// in the workspace: the nested name with type parameters, prefixed by as
// many trailing namespace segments as needed to tell same-named types apart.
func (w *Workspace) assignDisplayNames() {
	groups := make(map[string][]*Node)
	for _, id := range w.sortedIDs() {
		node := w.Nodes[id]
		short := shortDisplay(node)
		node.Display = short
		groups[short] = append(groups[short], node)
	}

	for short, nodes := range groups {
		if len(nodes) < 2 {
			continue
		}
		for depth := 1; ; depth++ {
			seen := make(map[string]int, len(nodes))
			exhausted := true
			for _, node := range nodes {
				prefix, more := namespaceSuffix(node.Namespace, depth)
				if more {
					exhausted = false
				}
				node.Display = parser.JoinQualified(prefix, short)
				seen[node.Display]++
			}
			if exhausted || allUnique(seen) {
				break
			}
		}
	}
}

func shortDisplay(node *Node) string {
	name := node.NestedName()
	if len(node.TypeParams) == 0 {
		return name
	}
	return name + "<" + strings.Join(node.TypeParams, ", ") + ">"
}

// namespaceSuffix returns the last depth segments of namespace and whether
// more segments remain.
func namespaceSuffix(namespace string, depth int) (string, bool) {
	if namespace == "" {
		return "", false
	}
	segments := strings.Split(namespace, ".")
	if depth >= len(segments) {
		return namespace, false
	}
	return strings.Join(segments[len(segments)-depth:], "."), true
}

func allUnique(counts map[string]int) bool {
	for _, count := range counts {
		if count > 1 {
			return false
		}
	}
	return true
}
