// Copyright (C) 2019-2025, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package meshtrust

import (
	"math"

	"github.com/ava-labs/avalanchego/utils/set"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"
)

// ConnectivityGraph is the undirected proximity graph of a topology.
// The edge structure is immutable once built. The malicious labelling is
// attached by Annotate, which returns a new graph sharing the edges.
type ConnectivityGraph struct {
	g         *simple.UndirectedGraph
	positions map[NodeID]Position
	threshold float64
	malicious set.Set[NodeID]
}

// BuildGraph connects every pair of distinct nodes whose Euclidean distance
// is strictly less than threshold.
func BuildGraph(positions map[NodeID]Position, threshold float64) (*ConnectivityGraph, error) {
	if math.IsNaN(threshold) || math.IsInf(threshold, 0) || threshold <= 0 {
		return nil, configErrorf("threshold", "must be a positive finite distance, got %v", threshold)
	}

	g := simple.NewUndirectedGraph()
	nodes := nodeIDsOf(positions)
	for _, id := range nodes {
		g.AddNode(simple.Node(id))
	}

	for i, a := range nodes {
		for _, b := range nodes[i+1:] {
			if positions[a].Distance(positions[b]) < threshold {
				g.SetEdge(simple.Edge{F: simple.Node(a), T: simple.Node(b)})
			}
		}
	}

	copied := make(map[NodeID]Position, len(positions))
	for id, pos := range positions {
		copied[id] = pos
	}

	return &ConnectivityGraph{
		g:         g,
		positions: copied,
		threshold: threshold,
	}, nil
}

// Annotate labels each node malicious or honest without altering edges.
func (cg *ConnectivityGraph) Annotate(malicious set.Set[NodeID]) (*ConnectivityGraph, error) {
	var missing NodeIDs
	for id := range malicious {
		if _, exists := cg.positions[id]; !exists {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, &DataInconsistencyError{What: "malicious set", Missing: missing.Sorted()}
	}

	labels := set.NewSet[NodeID](malicious.Len())
	labels.Union(malicious)

	return &ConnectivityGraph{
		g:         cg.g,
		positions: cg.positions,
		threshold: cg.threshold,
		malicious: labels,
	}, nil
}

// Graph exposes the underlying gonum graph for read-only use.
func (cg *ConnectivityGraph) Graph() graph.Undirected {
	return cg.g
}

func (cg *ConnectivityGraph) Threshold() float64 {
	return cg.threshold
}

func (cg *ConnectivityGraph) Len() int {
	return cg.g.Nodes().Len()
}

func (cg *ConnectivityGraph) EdgeCount() int {
	return cg.g.Edges().Len()
}

// Nodes returns the sorted node set, which equals the topology's key set.
func (cg *ConnectivityGraph) Nodes() NodeIDs {
	return nodeIDsOf(cg.positions)
}

func (cg *ConnectivityGraph) Position(id NodeID) (Position, bool) {
	pos, ok := cg.positions[id]
	return pos, ok
}

func (cg *ConnectivityGraph) HasNode(id NodeID) bool {
	_, ok := cg.positions[id]
	return ok
}

func (cg *ConnectivityGraph) HasEdge(a, b NodeID) bool {
	return cg.g.HasEdgeBetween(int64(a), int64(b))
}

// Neighbors returns the sorted neighbours of id.
func (cg *ConnectivityGraph) Neighbors(id NodeID) NodeIDs {
	it := cg.g.From(int64(id))
	neighbors := make(NodeIDs, 0, it.Len())
	for it.Next() {
		neighbors = append(neighbors, NodeID(it.Node().ID()))
	}
	return neighbors.Sorted()
}

func (cg *ConnectivityGraph) IsMalicious(id NodeID) bool {
	return cg.malicious.Contains(id)
}

// Malicious returns the malicious labelling attached by Annotate.
func (cg *ConnectivityGraph) Malicious() set.Set[NodeID] {
	return cg.malicious
}

// CountIsolatedFromMalicious counts the nodes none of whose neighbours is
// malicious.
func (cg *ConnectivityGraph) CountIsolatedFromMalicious() int {
	var count int
	nodes := cg.g.Nodes()
	for nodes.Next() {
		isolated := true
		neighbors := cg.g.From(nodes.Node().ID())
		for neighbors.Next() {
			if cg.malicious.Contains(NodeID(neighbors.Node().ID())) {
				isolated = false
				break
			}
		}
		if isolated {
			count++
		}
	}
	return count
}

// HonestComponents labels every honest node with the connected component
// it belongs to in the subgraph induced by honest nodes. Two honest nodes
// share a label iff a path of honest nodes joins them. Malicious nodes are
// absent from the result.
func (cg *ConnectivityGraph) HonestComponents(malicious set.Set[NodeID]) map[NodeID]int {
	components := make(map[NodeID]int, len(cg.positions))
	label := -1
	bfs := traverse.BreadthFirst{
		Traverse: func(e graph.Edge) bool {
			return !malicious.Contains(NodeID(e.To().ID()))
		},
	}
	for _, id := range cg.Nodes() {
		if malicious.Contains(id) || bfs.Visited(simple.Node(id)) {
			continue
		}
		label++
		bfs.Walk(cg.g, simple.Node(id), func(n graph.Node, _ int) bool {
			components[NodeID(n.ID())] = label
			return false
		})
	}
	return components
}
