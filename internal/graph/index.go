package graph

// PortRef addresses one port of one node.
type PortRef struct {
	NodeID string
	PortID string
}

// Index is a read-only lookup structure over a Graph. Nodes live in a
// slice and are addressed by position; edges are bucketed by the port
// they enter and the port they leave so traversal never scans the full
// edge list.
type Index struct {
	nodes      []Node
	edges      []Edge
	byID       map[string]int
	inbound    map[PortRef][]int
	outbound   map[PortRef][]int
	intoNode   map[string][]int
	duplicates []string
}

// NewIndex builds an index for g. When two nodes share an id the first
// declaration wins and the id is reported by Duplicates.
func NewIndex(g *Graph) *Index {
	idx := &Index{
		byID:     make(map[string]int),
		inbound:  make(map[PortRef][]int),
		outbound: make(map[PortRef][]int),
		intoNode: make(map[string][]int),
	}
	if g == nil {
		return idx
	}

	idx.nodes = g.Nodes
	idx.edges = g.Edges

	for i := range g.Nodes {
		id := g.Nodes[i].ID
		if _, exists := idx.byID[id]; exists {
			idx.duplicates = append(idx.duplicates, id)
			continue
		}
		idx.byID[id] = i
	}

	for i, e := range g.Edges {
		in := PortRef{NodeID: e.Target, PortID: e.TargetHandle}
		out := PortRef{NodeID: e.Source, PortID: e.SourceHandle}
		idx.inbound[in] = append(idx.inbound[in], i)
		idx.outbound[out] = append(idx.outbound[out], i)
		idx.intoNode[e.Target] = append(idx.intoNode[e.Target], i)
	}

	return idx
}

// Node returns the node with the given id, or nil.
func (x *Index) Node(id string) *Node {
	i, ok := x.byID[id]
	if !ok {
		return nil
	}
	return &x.nodes[i]
}

// Nodes returns every indexed node in declaration order, duplicates excluded.
func (x *Index) Nodes() []*Node {
	out := make([]*Node, 0, len(x.byID))
	for i := range x.nodes {
		if x.byID[x.nodes[i].ID] == i {
			out = append(out, &x.nodes[i])
		}
	}
	return out
}

// EdgesInto returns the edges entering the given input port, in declaration order.
func (x *Index) EdgesInto(nodeID, portID string) []Edge {
	return x.collect(x.inbound[PortRef{NodeID: nodeID, PortID: portID}])
}

// EdgesFrom returns the edges leaving the given output port, in declaration order.
func (x *Index) EdgesFrom(nodeID, portID string) []Edge {
	return x.collect(x.outbound[PortRef{NodeID: nodeID, PortID: portID}])
}

// EdgesIntoNode returns every edge whose target is nodeID.
func (x *Index) EdgesIntoNode(nodeID string) []Edge {
	return x.collect(x.intoNode[nodeID])
}

// Duplicates returns node ids declared more than once.
func (x *Index) Duplicates() []string {
	return x.duplicates
}

func (x *Index) collect(positions []int) []Edge {
	if len(positions) == 0 {
		return nil
	}
	out := make([]Edge, len(positions))
	for i, p := range positions {
		out[i] = x.edges[p]
	}
	return out
}

// Edges returns every edge in declaration order.
func (x *Index) Edges() []Edge {
	return append([]Edge(nil), x.edges...)
}
