package graph

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// WriteDOT writes the graph in Graphviz DOT format. Nodes are emitted in a stable
// order so the output can be diffed.
func (g *DependencyGraph) WriteDOT(w io.Writer) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	ids := make([]string, 0, len(g.labels))
	for id := range g.labels {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	nodeIDs := make(map[string]string, len(ids))
	var b strings.Builder
	b.WriteString("digraph beans {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box];\n")

	for i, id := range ids {
		nodeIDs[id] = fmt.Sprintf("n%d", i)
		color := "lightgreen"
		if len(g.edges[id]) > 0 {
			color = "lightblue"
		}
		fmt.Fprintf(&b, "  %s [label=%q, fillcolor=%q, style=filled];\n", nodeIDs[id], g.labels[id], color)
	}

	for _, from := range ids {
		for _, to := range g.edges[from] {
			fmt.Fprintf(&b, "  %s -> %s;\n", nodeIDs[from], nodeIDs[to])
		}
	}

	b.WriteString("}\n")

	_, err := io.WriteString(w, b.String())
	return err
}
