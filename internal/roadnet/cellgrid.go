package roadnet

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

// edgeInfo is one row of the edge arena.
type edgeInfo struct {
	id     EdgeID
	from   int // node index
	to     int // node index
	length float64
	cells  int
}

// CellGrid is the discretised street network. Every directed edge owns
// max(1, round(length/cellLength)) cells; every node owns the ordered list
// of its outgoing edges (the adjacency consulted at intersections).
//
// Nodes and edges live in integer-indexed arenas rather than a
// mutual-reference object graph: street networks are cyclic, and dense
// indices double as gonum node IDs for the routing graph.
type CellGrid struct {
	cellLength float64

	nodes     []Node
	nodeIndex map[NodeID]int

	edges     []edgeInfo
	edgeIndex map[EdgeID]int

	out [][]int // node index → outgoing edge indices, input order

	// Routing graph. Parallel edges collapse to the shortest one and
	// self-loops are excluded; both stay in the arena for cell occupancy
	// and free routing.
	routing *simple.WeightedDirectedGraph
	between map[[2]int]int // (from,to) node indices → edge index used for routing

	totalCells int
}

// NewCellGrid builds a CellGrid from data, discretising each edge into
// cells of cellLength metres. It fails on a non-positive cell length and
// on any integrity defect in the input graph.
func NewCellGrid(data NetworkData, cellLength float64) (*CellGrid, error) {
	if cellLength <= 0 {
		return nil, fmt.Errorf("%w: got %g", ErrCellLength, cellLength)
	}

	g := &CellGrid{
		cellLength: cellLength,
		nodeIndex:  make(map[NodeID]int, len(data.Nodes)),
		edgeIndex:  make(map[EdgeID]int, len(data.Edges)),
		between:    make(map[[2]int]int),
		routing:    simple.NewWeightedDirectedGraph(0, math.Inf(1)),
	}

	for _, n := range data.Nodes {
		if _, dup := g.nodeIndex[n.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate node %q", ErrIntegrity, n.ID)
		}
		g.nodeIndex[n.ID] = len(g.nodes)
		g.nodes = append(g.nodes, n)
	}
	g.out = make([][]int, len(g.nodes))
	for i := range g.nodes {
		g.routing.AddNode(simple.Node(int64(i)))
	}

	for _, e := range data.Edges {
		if _, dup := g.edgeIndex[e.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate edge %q", ErrIntegrity, e.ID)
		}
		from, ok := g.nodeIndex[e.From]
		if !ok {
			return nil, fmt.Errorf("%w: edge %q references unknown node %q", ErrIntegrity, e.ID, e.From)
		}
		to, ok := g.nodeIndex[e.To]
		if !ok {
			return nil, fmt.Errorf("%w: edge %q references unknown node %q", ErrIntegrity, e.ID, e.To)
		}
		if e.Length <= 0 {
			return nil, fmt.Errorf("%w: edge %q has non-positive length %g", ErrIntegrity, e.ID, e.Length)
		}

		idx := len(g.edges)
		cells := int(math.Round(e.Length / cellLength))
		if cells < 1 {
			cells = 1
		}
		g.edges = append(g.edges, edgeInfo{id: e.ID, from: from, to: to, length: e.Length, cells: cells})
		g.edgeIndex[e.ID] = idx
		g.out[from] = append(g.out[from], idx)
		g.totalCells += cells

		if from == to {
			continue // self-loop: reachable by free routing only
		}
		key := [2]int{from, to}
		if prev, ok := g.between[key]; !ok || e.Length < g.edges[prev].length {
			g.between[key] = idx
			g.routing.SetWeightedEdge(simple.WeightedEdge{
				F: simple.Node(int64(from)),
				T: simple.Node(int64(to)),
				W: e.Length,
			})
		}
	}

	return g, nil
}

// CellLength returns the metre length of one cell.
func (g *CellGrid) CellLength() float64 { return g.cellLength }

// NumNodes returns the node count.
func (g *CellGrid) NumNodes() int { return len(g.nodes) }

// NumEdges returns the edge count.
func (g *CellGrid) NumEdges() int { return len(g.edges) }

// TotalCells returns the sum of cell counts over all edges.
func (g *CellGrid) TotalCells() int { return g.totalCells }

// CellCount returns the number of cells on edge e.
func (g *CellGrid) CellCount(e int) int { return g.edges[e].cells }

// EdgeID returns the external identifier of edge e.
func (g *CellGrid) EdgeID(e int) EdgeID { return g.edges[e].id }

// EdgeLength returns the metre length of edge e.
func (g *CellGrid) EdgeLength(e int) float64 { return g.edges[e].length }

// FromNode returns the node index edge e leaves from.
func (g *CellGrid) FromNode(e int) int { return g.edges[e].from }

// ToNode returns the node index edge e arrives at.
func (g *CellGrid) ToNode(e int) int { return g.edges[e].to }

// NodeID returns the external identifier of node n.
func (g *CellGrid) NodeID(n int) NodeID { return g.nodes[n].ID }

// Outgoing returns the edge indices leaving node n, in input order. An
// empty result means n is a dead end.
func (g *CellGrid) Outgoing(n int) []int { return g.out[n] }

// ResolveNode maps an external node identifier to its index.
func (g *CellGrid) ResolveNode(id NodeID) (int, error) {
	n, ok := g.nodeIndex[id]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownNode, id)
	}
	return n, nil
}

// ResolveEdge maps an external edge identifier to its index.
func (g *CellGrid) ResolveEdge(id EdgeID) (int, bool) {
	e, ok := g.edgeIndex[id]
	return e, ok
}

// ShortestRoute returns the edge indices of the minimum-length directed
// path from node src to node dst, using edge length as weight. It returns
// ErrUnreachable when no path exists and an empty route when src == dst.
func (g *CellGrid) ShortestRoute(src, dst int) ([]int, error) {
	if src == dst {
		return nil, nil
	}
	sp := path.DijkstraFrom(g.routing.Node(int64(src)), g.routing)
	nodes, _ := sp.To(int64(dst))
	if len(nodes) < 2 {
		return nil, fmt.Errorf("%w: %q -> %q", ErrUnreachable, g.nodes[src].ID, g.nodes[dst].ID)
	}
	route := make([]int, 0, len(nodes)-1)
	for i := 1; i < len(nodes); i++ {
		u, v := int(nodes[i-1].ID()), int(nodes[i].ID())
		e, ok := g.between[[2]int{u, v}]
		if !ok {
			return nil, fmt.Errorf("%w: %q -> %q", ErrUnreachable, g.nodes[src].ID, g.nodes[dst].ID)
		}
		route = append(route, e)
	}
	return route, nil
}
