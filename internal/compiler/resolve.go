package compiler

import (
	"github.com/AaronLay10/ScriptGraph/internal/catalog"
	"github.com/AaronLay10/ScriptGraph/internal/graph"
)

// ResolveInputs returns the source expression for every data input of n
// that has a value. An incoming edge wins over a literal property; a
// literal wins over the catalog default. Required inputs with no value
// are reported and left out of the result.
func (c *Context) ResolveInputs(n *graph.Node, depth int) catalog.Inputs {
	c.begin()
	def, ok := c.definition(n)
	if !ok {
		return catalog.Inputs{}
	}
	return c.resolveInputs(n, def, depth)
}

func (c *Context) resolveInputs(n *graph.Node, def *catalog.Definition, depth int) catalog.Inputs {
	in := make(catalog.Inputs, len(def.Inputs))
	for _, port := range def.Inputs {
		if port.Kind == catalog.KindVoid {
			continue
		}

		edges := c.index.EdgesInto(n.ID, port.ID)
		if len(edges) > 0 {
			if len(edges) > 1 {
				c.warnf(n.ID, "input %q has %d incoming connections, using the one from %s", port.ID, len(edges), edges[0].Source)
			}
			if expr, ok := c.resolveEdge(n, port, edges[0], depth); ok {
				in[port.ID] = expr
			}
			continue
		}

		if v, ok := n.Property(port.ID); ok {
			in[port.ID] = formatLiteral(v, port.Raw)
			continue
		}

		if !port.Required {
			if v, ok := def.Defaults[port.ID]; ok {
				in[port.ID] = formatLiteral(v, port.Raw)
			}
			continue
		}

		c.errorf(n.ID, "required input %q is not connected and has no value", port.ID)
	}
	return in
}

func (c *Context) resolveEdge(n *graph.Node, port catalog.Port, e graph.Edge, depth int) (string, bool) {
	upstream := c.index.Node(e.Source)
	if upstream == nil {
		if !c.checked {
			c.errorf(n.ID, "input %q is connected to missing node %s", port.ID, e.Source)
		}
		return "", false
	}

	def, ok := c.catalog.Lookup(upstream.Type)
	if ok && !def.IsExpression() {
		if c.checked {
			return "", false
		}
		c.errorf(n.ID, "input %q is connected to %s, which is a %s node and has no value", port.ID, upstream.ID, def.Category)
		return "", false
	}

	wasExceeded := c.exceeded
	c.inData++
	expr := c.compileOutput(upstream, e.SourceHandle, depth+1)
	c.inData--
	if c.inData == 0 && !wasExceeded {
		c.exceeded = false
	}
	if expr == "" {
		return "", false
	}
	return expr, true
}

// CompileOutput renders the value of one output of an expression node.
// Flow nodes have no value and yield "".
func (c *Context) CompileOutput(n *graph.Node, outputID string, depth int) string {
	c.begin()
	return c.compileOutput(n, outputID, depth)
}

func (c *Context) compileOutput(n *graph.Node, outputID string, depth int) string {
	if !c.enter(n.ID, depth) {
		return ""
	}

	def, ok := c.definition(n)
	if !ok || !def.IsExpression() {
		return ""
	}
	if def.Output(outputID) == nil {
		c.warnf(n.ID, "node type %s has no output %q", def.Type, outputID)
	}

	in := c.resolveInputs(n, def, depth)
	expr := def.Compile(n, in)
	if !c.charge(n.ID, len(expr)) {
		return ""
	}
	return expr
}
