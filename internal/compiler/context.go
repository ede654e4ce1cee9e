// Package compiler turns a visual script graph into a script for the
// player sandbox. Compilation never fails outright: problems with the
// graph are collected as diagnostics next to a best-effort script.
package compiler

import (
	"fmt"

	"github.com/AaronLay10/ScriptGraph/internal/catalog"
	"github.com/AaronLay10/ScriptGraph/internal/graph"
)

// MaxDepth bounds recursion through flow and data edges. Graphs may
// contain cycles, so this ceiling is what guarantees termination.
const MaxDepth = 120

// Expansion limits for one walk. A shared upstream node is compiled once
// per consumer, so chained fan-in grows exponentially without them.
const (
	MaxSteps       = 1 << 16
	MaxOutputBytes = 16 << 20
)

const indentUnit = "  "

// Context is the state of one compile pass: the catalog, an index over
// the graph and the diagnostics gathered so far. A Context must not be
// shared between goroutines.
type Context struct {
	catalog *catalog.Catalog
	index   *graph.Index
	diags   []Diagnostic

	// exceeded is set when a walk hits MaxDepth so the recursion that
	// overflowed unwinds instead of revisiting every branch of the cycle.
	// An overflow inside a data expression is cleared once the outermost
	// input resolution returns; inData counts those nested resolutions.
	exceeded bool
	inData   int

	// steps and built measure the current walk against MaxSteps and
	// MaxOutputBytes. Once either is spent, overBudget stops the walk.
	steps      int
	built      int
	overBudget bool

	// checked is set once the whole graph has been validated up
	// front, after which walks stop re-reporting the same problems.
	checked bool
}

// NewContext prepares a compile pass over g. A nil catalog means the
// built-in one.
func NewContext(cat *catalog.Catalog, g *graph.Graph) *Context {
	if cat == nil {
		cat = catalog.Default()
	}
	return &Context{
		catalog: cat,
		index:   graph.NewIndex(g),
	}
}

// Diagnostics returns a copy of everything recorded so far.
func (c *Context) Diagnostics() []Diagnostic {
	return append([]Diagnostic(nil), c.diags...)
}

// Node returns the node with the given id, or nil.
func (c *Context) Node(id string) *graph.Node {
	return c.index.Node(id)
}

func (c *Context) errorf(nodeID, format string, args ...interface{}) {
	c.diags = append(c.diags, Diagnostic{NodeID: nodeID, Message: fmt.Sprintf(format, args...), Severity: SeverityError})
}

func (c *Context) warnf(nodeID, format string, args ...interface{}) {
	c.diags = append(c.diags, Diagnostic{NodeID: nodeID, Message: fmt.Sprintf(format, args...), Severity: SeverityWarning})
}

// definition looks up the node's type, recording an error when the type
// is not registered.
func (c *Context) definition(n *graph.Node) (*catalog.Definition, bool) {
	def, ok := c.catalog.Lookup(n.Type)
	if !ok && !c.checked {
		c.unknownType(n)
	}
	return def, ok
}

func (c *Context) unknownType(n *graph.Node) {
	if s := c.catalog.Suggest(n.Type); s != "" {
		c.errorf(n.ID, "unknown node type %q (did you mean %q?)", n.Type, s)
		return
	}
	c.errorf(n.ID, "unknown node type %q", n.Type)
}

// begin starts a new top-level walk.
func (c *Context) begin() {
	c.exceeded = false
	c.inData = 0
	c.steps = 0
	c.built = 0
	c.overBudget = false
}

// enter reports whether the walk may visit a node at depth. It applies
// the depth ceiling and the step limit, recording each error once.
func (c *Context) enter(nodeID string, depth int) bool {
	if c.exceeded || c.overBudget {
		return false
	}
	if depth > MaxDepth {
		c.exceeded = true
		c.errorf(nodeID, "maximum nesting depth exceeded (%d)", MaxDepth)
		return false
	}
	c.steps++
	if c.steps > MaxSteps {
		c.overBudget = true
		c.errorf(nodeID, "expansion limit reached (%d node visits)", MaxSteps)
		return false
	}
	return true
}

// charge accounts n bytes of built text and reports whether the walk is
// still within MaxOutputBytes.
func (c *Context) charge(nodeID string, n int) bool {
	if c.overBudget {
		return false
	}
	c.built += n
	if c.built > MaxOutputBytes {
		c.overBudget = true
		c.errorf(nodeID, "expansion limit reached (%d bytes of code)", MaxOutputBytes)
		return false
	}
	return true
}
