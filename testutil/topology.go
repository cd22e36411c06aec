// Copyright (C) 2019-2025, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package testutil

import (
	"github.com/ava-labs/meshtrust"
)

// NodeRange returns the nodes from, from+1, ..., to.
func NodeRange(from, to meshtrust.NodeID) meshtrust.NodeIDs {
	nodes := make(meshtrust.NodeIDs, 0, max(int(to-from+1), 0))
	for id := from; id <= to; id++ {
		nodes = append(nodes, id)
	}
	return nodes
}

// LineTopology places n nodes one unit apart on the x axis, starting with
// node 1 at the origin.
func LineTopology(n int, transmittingRange float64) *meshtrust.Topology {
	positions := make(map[meshtrust.NodeID]meshtrust.Position, n)
	for i := 0; i < n; i++ {
		positions[meshtrust.NodeID(i+1)] = meshtrust.Position{X: float64(i)}
	}
	return &meshtrust.Topology{Positions: positions, TransmittingRange: transmittingRange}
}

// GridTopology places rows*cols nodes one unit apart, numbered row by row
// starting from 1.
func GridTopology(rows, cols int, transmittingRange float64) *meshtrust.Topology {
	positions := make(map[meshtrust.NodeID]meshtrust.Position, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			positions[meshtrust.NodeID(r*cols+c+1)] = meshtrust.Position{X: float64(c), Y: float64(r)}
		}
	}
	return &meshtrust.Topology{Positions: positions, TransmittingRange: transmittingRange}
}

// CompleteTopology places n nodes close enough for every pair to be in range.
func CompleteTopology(n int) *meshtrust.Topology {
	return LineTopology(n, float64(n))
}
