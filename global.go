// Copyright (C) 2019-2025, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package meshtrust

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

// NodeID identifies a simulated mote. Zero is reserved by the trace format
// to mean "no attesting node".
type NodeID int64

func (node NodeID) String() string {
	return fmt.Sprintf("%d", int64(node))
}

type NodeIDs []NodeID

func (nodes NodeIDs) String() string {
	nodeStrings := make([]string, 0, len(nodes))
	for _, node := range nodes {
		nodeStrings = append(nodeStrings, node.String())
	}
	return "{" + strings.Join(nodeStrings, ", ") + "}"
}

// Sorted returns a sorted copy of the nodes.
func (nodes NodeIDs) Sorted() NodeIDs {
	sorted := slices.Clone(nodes)
	slices.Sort(sorted)
	return sorted
}

func (nodes NodeIDs) IndexOf(node NodeID) int {
	for i, n := range nodes {
		if n == node {
			return i
		}
	}
	return -1
}

// Position is a mote coordinate in the simulated space.
type Position struct {
	X, Y, Z float64
}

// Distance returns the Euclidean distance between two positions.
func (p Position) Distance(other Position) float64 {
	dx := other.X - p.X
	dy := other.Y - p.Y
	dz := other.Z - p.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

func (p Position) String() string {
	return fmt.Sprintf("(%g, %g, %g)", p.X, p.Y, p.Z)
}

// Topology is the node universe together with the radio transmitting range.
type Topology struct {
	Positions         map[NodeID]Position
	TransmittingRange float64
	// InterferenceRange is carried through from the scenario but does not
	// affect connectivity.
	InterferenceRange float64
}

// NodeIDs returns the sorted node universe.
func (t *Topology) NodeIDs() NodeIDs {
	return nodeIDsOf(t.Positions)
}

func nodeIDsOf(positions map[NodeID]Position) NodeIDs {
	nodes := make(NodeIDs, 0, len(positions))
	for id := range positions {
		nodes = append(nodes, id)
	}
	slices.Sort(nodes)
	return nodes
}
