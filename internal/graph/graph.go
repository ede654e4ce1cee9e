// Package graph holds the authored form of a visual script: typed nodes
// connected port-to-port by directed edges.
package graph

// Graph is a snapshot of an authored script as saved by the editor.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node is one step of a visual script.
// Properties hold literal values keyed by input port id.
type Node struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Properties map[string]interface{} `json:"properties,omitempty"`
	Position   *Position              `json:"position,omitempty"`
}

// Position is the editor canvas location. The compiler ignores it.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Edge connects an output port of Source to an input port of Target.
type Edge struct {
	ID           string `json:"id,omitempty"`
	Source       string `json:"source"`
	SourceHandle string `json:"sourceHandle"`
	Target       string `json:"target"`
	TargetHandle string `json:"targetHandle"`
}

// Property returns the literal stored for key, if any.
func (n *Node) Property(key string) (interface{}, bool) {
	if n.Properties == nil {
		return nil, false
	}
	v, ok := n.Properties[key]
	return v, ok
}

// StringProperty returns the property as a string, or def when it is
// missing or not a string.
func (n *Node) StringProperty(key, def string) string {
	v, ok := n.Property(key)
	if !ok {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return def
}
