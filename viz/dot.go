// Copyright (C) 2019-2025, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package viz renders connectivity graphs and bridge counterexamples as
// Graphviz DOT documents.
package viz

import (
	"fmt"

	"github.com/ava-labs/avalanchego/utils/set"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/ava-labs/meshtrust"
)

const (
	colorHonest    = "lightgray"
	colorMalicious = "red"
	colorC1        = "lightblue"
	colorC2        = "lightgreen"
	colorBoth      = "orchid"
)

type node struct {
	id    meshtrust.NodeID
	pos   meshtrust.Position
	color string
	label string
	shape string
}

func (n *node) ID() int64 { return int64(n.id) }

func (n *node) DOTID() string { return fmt.Sprintf("n%d", n.id) }

func (n *node) Attributes() []encoding.Attribute {
	return []encoding.Attribute{
		{Key: "label", Value: n.label},
		{Key: "pos", Value: fmt.Sprintf("%g,%g!", n.pos.X, n.pos.Y)},
		{Key: "style", Value: "filled"},
		{Key: "fillcolor", Value: n.color},
		{Key: "shape", Value: n.shape},
	}
}

// diagram carries graph level attributes for the DOT encoder.
type diagram struct {
	*simple.UndirectedGraph
	graphAttrs encoding.Attributes
}

func (d *diagram) DOTAttributers() (graph, node, edge encoding.Attributer) {
	return &d.graphAttrs, nil, nil
}

// Options selects how nodes are highlighted.
type Options struct {
	Name      string
	Malicious set.Set[meshtrust.NodeID]
	C1, C2    *meshtrust.TrustSet
	// Highlight nodes are drawn with a double border.
	Highlight set.Set[meshtrust.NodeID]
}

// Marshal renders g with nodes placed at their simulated positions.
func Marshal(g *meshtrust.ConnectivityGraph, opts Options) ([]byte, error) {
	name := opts.Name
	if name == "" {
		name = "mesh"
	}

	d := &diagram{
		UndirectedGraph: simple.NewUndirectedGraph(),
		graphAttrs: encoding.Attributes{
			{Key: "layout", Value: "neato"},
			{Key: "overlap", Value: "false"},
		},
	}

	nodes := make(map[meshtrust.NodeID]*node, g.Len())
	for _, id := range g.Nodes() {
		pos, _ := g.Position(id)
		n := &node{id: id, pos: pos, label: id.String(), color: colorHonest, shape: "circle"}

		inC1 := opts.C1 != nil && opts.C1.Contains(id)
		inC2 := opts.C2 != nil && opts.C2.Contains(id)
		switch {
		case inC1 && inC2:
			n.color = colorBoth
		case inC1:
			n.color = colorC1
		case inC2:
			n.color = colorC2
		}
		if opts.Malicious.Contains(id) {
			n.color = colorMalicious
			n.label += " (m)"
		}
		if opts.Highlight.Contains(id) {
			n.shape = "doublecircle"
		}

		nodes[id] = n
		d.AddNode(n)
	}

	for _, id := range g.Nodes() {
		for _, neighbor := range g.Neighbors(id) {
			if id < neighbor {
				d.SetEdge(simple.Edge{F: nodes[id], T: nodes[neighbor]})
			}
		}
	}

	return dot.Marshal(d, name, "", "\t")
}

// BridgeViolation renders the pair of trust sets a bridge check failed on.
// Members of C1 whose whole neighbourhood is honest are highlighted.
func BridgeViolation(g *meshtrust.ConnectivityGraph, violation *meshtrust.BridgeViolation, malicious set.Set[meshtrust.NodeID]) ([]byte, error) {
	var highlight set.Set[meshtrust.NodeID]
	for _, c := range violation.C1.Members() {
		honestNeighborhood := true
		for _, neighbor := range g.Neighbors(c) {
			if malicious.Contains(neighbor) {
				honestNeighborhood = false
				break
			}
		}
		if honestNeighborhood {
			highlight.Add(c)
		}
	}

	return Marshal(g, Options{
		Name:      "bridge_violation",
		Malicious: malicious,
		C1:        &violation.C1,
		C2:        &violation.C2,
		Highlight: highlight,
	})
}
