package bcsnet

// routes.go provides functions to check and walk shortest path routes through the
// physical links of a DualGraph

import (
	"math"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// The physical links are converted into the data structures of the gonum graph
// package, which has built-in path discovery algorithms.  Every device is a node
// labeled by its flat index.  Weighting each link by 1, a shortest path minimizes the
// number of hops.
//   The Dijkstra algorithm computes a tree of shortest paths from a named node, so
// a route from src to dst is read off a tree rooted in src, or off a cached tree rooted
// in dst and reversed.

// Routes answers connectivity and shortest path questions about the physical links
type Routes struct {
	numHosts int

	// gNodes[i] is the graph node of the device with flat index i
	gNodes []simple.Node

	connGraph *simple.WeightedDirectedGraph

	// cachedSP saves the result of computing shortest-path trees, keyed by the flat index of the root
	cachedSP map[int]path.Shortest
}

// BuildRoutes is a constructor.  Each physical link becomes a pair of directed unit weight
// edges; duplicated links collapse into one
func BuildRoutes(dg *DualGraph) *Routes {
	rts := &Routes{numHosts: dg.NumHosts, cachedSP: make(map[int]path.Shortest)}
	rts.connGraph = simple.NewWeightedDirectedGraph(0, math.Inf(1))

	rts.gNodes = make([]simple.Node, dg.NumDevices())
	for id := range rts.gNodes {
		rts.gNodes[id] = simple.Node(id)
		rts.connGraph.AddNode(rts.gNodes[id])
	}

	for _, edge := range dg.Physical {
		a := rts.gNodes[edge.A.Flat(dg.NumHosts)]
		b := rts.gNodes[edge.B.Flat(dg.NumHosts)]
		rts.connGraph.SetWeightedEdge(simple.WeightedEdge{F: a, T: b, W: 1.0})
		rts.connGraph.SetWeightedEdge(simple.WeightedEdge{F: b, T: a, W: 1.0})
	}
	return rts
}

// undirected returns the physical links as an undirected graph, the form
// the connected components search wants
func (rts *Routes) undirected() graph.Undirected {
	ug := simple.NewUndirectedGraph()
	for _, node := range rts.gNodes {
		ug.AddNode(node)
	}
	edges := rts.connGraph.Edges()
	for edges.Next() {
		edge := edges.Edge()
		if edge.From().ID() == edge.To().ID() || ug.HasEdgeBetween(edge.From().ID(), edge.To().ID()) {
			continue
		}
		ug.SetEdge(simple.Edge{F: edge.From(), T: edge.To()})
	}
	return ug
}

// IsConnected is true when every device can reach every other through physical links
func (rts *Routes) IsConnected() bool {
	if len(rts.gNodes) < 2 {
		return true
	}
	return len(topo.ConnectedComponents(rts.undirected())) == 1
}

// getSPTree returns the shortest path tree rooted in device 'from'. If the tree is
// found in the cache it is returned, if not it is computed, saved, and returned.
func (rts *Routes) getSPTree(from int) path.Shortest {
	spTree, present := rts.cachedSP[from]
	if present {
		return spTree
	}
	spTree = path.DijkstraFrom(rts.gNodes[from], rts.connGraph)
	rts.cachedSP[from] = spTree
	return spTree
}

// convertNodeSeq extracts device references from a sequence of graph nodes
func (rts *Routes) convertNodeSeq(nodeSeq []graph.Node) []NodeRef {
	route := make([]NodeRef, len(nodeSeq))
	for idx, node := range nodeSeq {
		route[idx] = refFromFlat(int(node.ID()), rts.numHosts)
	}
	return route
}

// Route returns the devices on a shortest path from src to dst, both included.
// The result is empty when dst cannot be reached from src
func (rts *Routes) Route(src, dst NodeRef) []NodeRef {
	srcID, dstID := src.Flat(rts.numHosts), dst.Flat(rts.numHosts)
	if srcID < 0 || srcID >= len(rts.gNodes) || dstID < 0 || dstID >= len(rts.gNodes) {
		return []NodeRef{}
	}
	if srcID == dstID {
		return []NodeRef{src}
	}

	// by symmetry a tree already rooted in dst holds the reversed route
	if spTree, present := rts.cachedSP[dstID]; present {
		revNodeSeq, _ := spTree.To(int64(srcID))
		revRoute := rts.convertNodeSeq(revNodeSeq)
		lenR := len(revRoute)
		route := make([]NodeRef, lenR)
		for idx := 0; idx < lenR; idx++ {
			route[idx] = revRoute[lenR-idx-1]
		}
		return route
	}

	nodeSeq, _ := rts.getSPTree(srcID).To(int64(dstID))
	return rts.convertNodeSeq(nodeSeq)
}

// Hops is the number of links on a shortest route from src to dst, -1 if there is none
func (rts *Routes) Hops(src, dst NodeRef) int {
	return len(rts.Route(src, dst)) - 1
}

// CheckReachability lists the overlay edges whose hosts cannot reach each other
// through the physical links
func (rts *Routes) CheckReachability(overlay []Edge) []Edge {
	unreachable := make([]Edge, 0)
	for _, edge := range overlay {
		if rts.Hops(edge.A, edge.B) < 0 {
			unreachable = append(unreachable, edge)
		}
	}
	return unreachable
}
