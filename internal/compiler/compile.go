package compiler

import (
	"strings"

	"github.com/AaronLay10/ScriptGraph/internal/catalog"
	"github.com/AaronLay10/ScriptGraph/internal/graph"
)

// entrySeparator goes between the scripts of separate entry points.
const entrySeparator = "\n\n"

// Result is the output of one compile: the script and every diagnostic
// gathered while producing it.
type Result struct {
	Code        string       `json:"code"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// HasErrors reports whether the result carries error diagnostics.
func (r *Result) HasErrors() bool {
	return HasErrors(r.Diagnostics)
}

// Compiler compiles graphs against a fixed catalog. It holds no per-call
// state and is safe for concurrent use.
type Compiler struct {
	catalog *catalog.Catalog
}

// New returns a compiler for cat. A nil catalog means the built-in one.
func New(cat *catalog.Catalog) *Compiler {
	if cat == nil {
		cat = catalog.Default()
	}
	return &Compiler{catalog: cat}
}

// Catalog returns the catalog the compiler uses.
func (c *Compiler) Catalog() *catalog.Catalog {
	return c.catalog
}

// Compile validates g, then generates code from each entry in order.
// With no entries given, every execution node without an incoming flow
// edge is an entry, in declaration order.
func (c *Compiler) Compile(g *graph.Graph, entries ...string) *Result {
	ctx := NewContext(c.catalog, g)
	ctx.Check()

	if len(entries) == 0 {
		entries = ctx.EntryPoints()
	}

	ctx.begin()
	var parts []string
	for _, id := range entries {
		if code := ctx.generateEntry(id); code != "" {
			parts = append(parts, code)
		}
	}

	diags := ctx.Diagnostics()
	if diags == nil {
		diags = []Diagnostic{}
	}
	return &Result{Code: strings.Join(parts, entrySeparator), Diagnostics: diags}
}

// Check validates the whole graph once: duplicate ids, unknown node
// types and edges whose endpoints or ports do not exist. Problems found
// here are not reported again by later walks.
func (c *Context) Check() {
	for _, id := range c.index.Duplicates() {
		c.errorf(id, "duplicate node id %s, using the first declaration", id)
	}

	for _, n := range c.index.Nodes() {
		if _, ok := c.catalog.Lookup(n.Type); !ok {
			c.unknownType(n)
		}
	}

	for _, e := range c.index.Edges() {
		c.checkEdge(e)
	}

	c.checked = true
}

func (c *Context) checkEdge(e graph.Edge) {
	src := c.index.Node(e.Source)
	dst := c.index.Node(e.Target)
	switch {
	case src == nil && dst == nil:
		c.errorf(e.Source, "edge %s connects two missing nodes %s and %s", edgeName(e), e.Source, e.Target)
		return
	case src == nil:
		c.errorf(e.Target, "input %q is connected to missing node %s", e.TargetHandle, e.Source)
		return
	case dst == nil:
		c.errorf(e.Source, "output %q leads to missing node %s", e.SourceHandle, e.Target)
		return
	}

	srcDef, srcOK := c.catalog.Lookup(src.Type)
	dstDef, dstOK := c.catalog.Lookup(dst.Type)
	if !srcOK || !dstOK {
		return
	}

	out := srcDef.Output(e.SourceHandle)
	if out == nil {
		c.errorf(src.ID, "%s node has no output %q", srcDef.Type, e.SourceHandle)
		return
	}
	in := dstDef.Input(e.TargetHandle)
	if in == nil {
		c.errorf(dst.ID, "%s node has no input %q", dstDef.Type, e.TargetHandle)
		return
	}
	if out.Kind != in.Kind {
		c.errorf(dst.ID, "input %q expects a %s connection but %s.%s is %s", in.ID, in.Kind, src.ID, out.ID, out.Kind)
	}
}

func edgeName(e graph.Edge) string {
	if e.ID != "" {
		return e.ID
	}
	return e.Source + "." + e.SourceHandle + "->" + e.Target + "." + e.TargetHandle
}

// EntryPoints returns the ids of execution nodes that no flow edge
// enters, in declaration order.
func (c *Context) EntryPoints() []string {
	var ids []string
	for _, n := range c.index.Nodes() {
		def, ok := c.catalog.Lookup(n.Type)
		if !ok || def.IsExpression() {
			continue
		}
		if c.hasIncomingFlow(n.ID, def) {
			continue
		}
		ids = append(ids, n.ID)
	}
	return ids
}

func (c *Context) hasIncomingFlow(nodeID string, def *catalog.Definition) bool {
	for _, e := range c.index.EdgesIntoNode(nodeID) {
		if p := def.Input(e.TargetHandle); p != nil && p.Kind == catalog.KindVoid {
			return true
		}
	}
	return false
}
