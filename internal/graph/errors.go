package graph

import (
	"fmt"
	"strings"
)

// CircularDependencyError describes a dependency cycle. Path lists the beans on the
// cycle in order; the last one depends on the first.
type CircularDependencyError struct {
	Path []string
}

func (e *CircularDependencyError) Error() string {
	var b strings.Builder
	b.WriteString("circular dependency detected:\n\n")

	for _, node := range e.Path {
		b.WriteString(fmt.Sprintf("    %s\n", node))
		b.WriteString("      ↓\n")
	}
	if len(e.Path) > 0 {
		b.WriteString(fmt.Sprintf("    %s (cycle)\n", e.Path[0]))
	}

	b.WriteString("\nTo resolve this:\n")
	b.WriteString("  • Mark one argument on the cycle as nullable\n")
	b.WriteString("  • Move one dependency from the constructor to a field or method injection\n")
	b.WriteString("  • Restructure to remove the circular relationship\n")

	return b.String()
}
