package compiler

import (
	"strings"

	"github.com/AaronLay10/ScriptGraph/internal/catalog"
	"github.com/AaronLay10/ScriptGraph/internal/graph"
)

// Generate emits the script for the execution path starting at startID.
// Each call is an independent walk: calling it twice on the same context
// yields the same text and appends the same diagnostics again.
func (c *Context) Generate(startID string) string {
	c.begin()
	return c.generateEntry(startID)
}

// generateEntry walks from startID within the current limits, so entries
// compiled together share one budget.
func (c *Context) generateEntry(startID string) string {
	c.exceeded = false

	n := c.index.Node(startID)
	if n == nil {
		c.errorf(startID, "entry node %s does not exist", startID)
		return ""
	}
	return c.generate(n, 0)
}

func (c *Context) generate(n *graph.Node, depth int) string {
	if !c.enter(n.ID, depth) {
		return ""
	}

	def, ok := c.definition(n)
	if !ok {
		return ""
	}
	if def.IsExpression() {
		c.errorf(n.ID, "%s node produces a value and cannot be executed", def.Type)
		return ""
	}

	in := c.resolveInputs(n, def, depth)
	fragment := def.Compile(n, in)

	if def.IsBranch() {
		fragment = c.branch(n, fragment, depth)
	} else if def.HasFlowOutput() {
		fragment = joinLines(fragment, c.follow(n, catalog.FlowPort, depth))
	}
	if !c.charge(n.ID, len(fragment)) {
		return ""
	}
	return fragment
}

// branch wraps both arms of a conditional under header.
func (c *Context) branch(n *graph.Node, header string, depth int) string {
	whenTrue := c.follow(n, catalog.BranchTrue, depth)
	whenFalse := c.follow(n, catalog.BranchFalse, depth)

	var b strings.Builder
	b.WriteString(header)
	b.WriteString(" {\n")
	if whenTrue != "" {
		b.WriteString(indent(whenTrue))
		b.WriteString("\n")
	}
	b.WriteString("}")
	if whenFalse != "" {
		b.WriteString(" else {\n")
		b.WriteString(indent(whenFalse))
		b.WriteString("\n}")
	}
	return b.String()
}

// follow generates whatever the given flow output of n leads to.
func (c *Context) follow(n *graph.Node, port string, depth int) string {
	edges := c.index.EdgesFrom(n.ID, port)
	if len(edges) == 0 {
		return ""
	}
	if len(edges) > 1 {
		c.warnf(n.ID, "flow output %q has %d connections, following the one to %s", port, len(edges), edges[0].Target)
	}

	next := c.index.Node(edges[0].Target)
	if next == nil {
		if !c.checked {
			c.errorf(n.ID, "flow output %q leads to missing node %s", port, edges[0].Target)
		}
		return ""
	}
	return c.generate(next, depth+1)
}

func joinLines(head, tail string) string {
	switch {
	case head == "":
		return tail
	case tail == "":
		return head
	default:
		return head + "\n" + tail
	}
}

// indent prefixes every non-empty line with one indentation unit.
func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = indentUnit + line
		}
	}
	return strings.Join(lines, "\n")
}
