// Package catalog describes every node type a visual script may use:
// its ports, its default properties and how it renders to source.
package catalog

import (
	"fmt"
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/AaronLay10/ScriptGraph/internal/graph"
)

// ValueKind tells execution-flow ports apart from value ports.
type ValueKind string

const (
	KindVoid ValueKind = "void"
	KindData ValueKind = "data"
)

// FlowPort is the conventional id of the execution continuation port.
const FlowPort = "exec"

// Port describes one input or output of a node type.
// Raw marks inputs whose literal property is author-written code and is
// emitted verbatim instead of as a quoted string.
type Port struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Kind     ValueKind `json:"kind"`
	Required bool      `json:"required,omitempty"`
	Raw      bool      `json:"raw,omitempty"`
}

// Category groups node types for the editor palette and decides whether
// a node drives execution or produces a value.
type Category string

const (
	CategoryEvent    Category = "event"
	CategoryAction   Category = "action"
	CategoryFlow     Category = "flow"
	CategoryValue    Category = "value"
	CategoryMath     Category = "math"
	CategoryLogic    Category = "logic"
	CategoryText     Category = "text"
	CategoryVariable Category = "variable"
)

// CompileFunc renders a node to source. in holds only the inputs that
// resolved; the function picks its own fallback for the rest. It must
// not touch anything but its arguments.
type CompileFunc func(n *graph.Node, in Inputs) string

// Definition is the static description of one node type.
type Definition struct {
	Type        string                 `json:"type"`
	Category    Category               `json:"category"`
	Description string                 `json:"description,omitempty"`
	Inputs      []Port                 `json:"inputs"`
	Outputs     []Port                 `json:"outputs"`
	Defaults    map[string]interface{} `json:"defaults,omitempty"`
	Compile     CompileFunc            `json:"-"`
}

// IsExpression reports whether nodes of this type produce a value rather
// than drive execution.
func (d *Definition) IsExpression() bool {
	switch d.Category {
	case CategoryValue, CategoryMath, CategoryLogic, CategoryText, CategoryVariable:
		return true
	}
	return false
}

// IsBranch reports whether the node splits execution into true/false paths.
func (d *Definition) IsBranch() bool {
	return d.Category == CategoryFlow && d.output(BranchTrue) != nil && d.output(BranchFalse) != nil
}

// HasFlowOutput reports whether the node declares a void "exec" output.
func (d *Definition) HasFlowOutput() bool {
	p := d.output(FlowPort)
	return p != nil && p.Kind == KindVoid
}

// Input returns the input port with the given id, or nil.
func (d *Definition) Input(id string) *Port {
	for i := range d.Inputs {
		if d.Inputs[i].ID == id {
			return &d.Inputs[i]
		}
	}
	return nil
}

// Output returns the output port with the given id, or nil.
func (d *Definition) Output(id string) *Port {
	return d.output(id)
}

func (d *Definition) output(id string) *Port {
	for i := range d.Outputs {
		if d.Outputs[i].ID == id {
			return &d.Outputs[i]
		}
	}
	return nil
}

// Catalog maps node type names to definitions. It is never modified
// after New returns, so concurrent readers need no locking.
type Catalog struct {
	defs  map[string]*Definition
	types []string
}

// New builds a catalog and checks every definition for completeness.
func New(defs ...Definition) (*Catalog, error) {
	c := &Catalog{defs: make(map[string]*Definition, len(defs))}
	for i := range defs {
		def := defs[i]
		if err := check(&def); err != nil {
			return nil, err
		}
		if _, exists := c.defs[def.Type]; exists {
			return nil, fmt.Errorf("node type %s is registered twice", def.Type)
		}
		c.defs[def.Type] = &def
		c.types = append(c.types, def.Type)
	}
	sort.Strings(c.types)
	return c, nil
}

// MustNew is like New but panics on an invalid definition.
func MustNew(defs ...Definition) *Catalog {
	c, err := New(defs...)
	if err != nil {
		panic(fmt.Sprintf("invalid node catalog: %v", err))
	}
	return c
}

func check(def *Definition) error {
	if def.Type == "" {
		return fmt.Errorf("node type cannot be empty")
	}
	if def.Compile == nil {
		return fmt.Errorf("node type %s has no compile function", def.Type)
	}
	if err := checkPorts(def.Type, "input", def.Inputs); err != nil {
		return err
	}
	if err := checkPorts(def.Type, "output", def.Outputs); err != nil {
		return err
	}
	for key := range def.Defaults {
		if def.Input(key) == nil {
			return fmt.Errorf("node type %s: default %q does not name an input port", def.Type, key)
		}
	}
	return nil
}

func checkPorts(nodeType, direction string, ports []Port) error {
	seen := make(map[string]struct{}, len(ports))
	for _, p := range ports {
		if p.ID == "" {
			return fmt.Errorf("node type %s: %s port with empty id", nodeType, direction)
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("node type %s: duplicate %s port %q", nodeType, direction, p.ID)
		}
		seen[p.ID] = struct{}{}
		if p.Kind != KindVoid && p.Kind != KindData {
			return fmt.Errorf("node type %s: %s port %q has unknown kind %q", nodeType, direction, p.ID, p.Kind)
		}
		if p.Kind == KindVoid && p.Required {
			return fmt.Errorf("node type %s: flow port %q cannot be required", nodeType, p.ID)
		}
	}
	return nil
}

// Lookup returns the definition registered for nodeType.
func (c *Catalog) Lookup(nodeType string) (*Definition, bool) {
	def, ok := c.defs[nodeType]
	return def, ok
}

// Types returns the registered type names, sorted.
func (c *Catalog) Types() []string {
	return append([]string(nil), c.types...)
}

// Definitions returns every definition ordered by type name.
func (c *Catalog) Definitions() []*Definition {
	out := make([]*Definition, 0, len(c.types))
	for _, t := range c.types {
		out = append(out, c.defs[t])
	}
	return out
}

// Suggest returns the registered type closest to nodeType, or "" when
// nothing is close.
func (c *Catalog) Suggest(nodeType string) string {
	if nodeType == "" {
		return ""
	}
	ranks := fuzzy.RankFindNormalizedFold(nodeType, c.types)
	if len(ranks) == 0 {
		return ""
	}
	sort.Sort(ranks)
	return ranks[0].Target
}
