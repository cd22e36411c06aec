// Copyright (C) 2019-2025, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package scenario reads the Cooja simulation and mote log files an
// analysis run starts from.
package scenario

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ava-labs/meshtrust"
)

var errNoRadioMedium = errors.New("simulation has no radio medium")

type simconf struct {
	Simulation simulation `xml:"simulation"`
}

type simulation struct {
	Title       string       `xml:"title"`
	RadioMedium *radioMedium `xml:"radiomedium"`
	MoteTypes   []moteType   `xml:"motetype"`
}

type radioMedium struct {
	TransmittingRange string `xml:"transmitting_range"`
	InterferenceRange string `xml:"interference_range"`
}

type moteType struct {
	Motes []mote `xml:"mote"`
}

type mote struct {
	InterfaceConfigs []interfaceConfig `xml:"interface_config"`
}

type interfaceConfig struct {
	ID  *string   `xml:"id"`
	Pos *position `xml:"pos"`
}

type position struct {
	X string `xml:"x,attr"`
	Y string `xml:"y,attr"`
	Z string `xml:"z,attr"`
}

// ParseSimulation reads node positions and radio ranges from a Cooja .csc
// document. Motes lacking an id or a position are skipped.
func ParseSimulation(r io.Reader) (*meshtrust.Topology, error) {
	var doc simconf
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed decoding simulation: %w", err)
	}
	if doc.Simulation.RadioMedium == nil {
		return nil, errNoRadioMedium
	}

	transmittingRange, err := parseFloat("transmitting_range", doc.Simulation.RadioMedium.TransmittingRange)
	if err != nil {
		return nil, err
	}
	interferenceRange, err := parseFloat("interference_range", doc.Simulation.RadioMedium.InterferenceRange)
	if err != nil {
		return nil, err
	}

	positions := make(map[meshtrust.NodeID]meshtrust.Position)
	for _, mt := range doc.Simulation.MoteTypes {
		for _, m := range mt.Motes {
			id, pos, ok, err := m.parse()
			if err != nil {
				return nil, err
			}
			if ok {
				positions[id] = pos
			}
		}
	}

	return &meshtrust.Topology{
		Positions:         positions,
		TransmittingRange: transmittingRange,
		InterferenceRange: interferenceRange,
	}, nil
}

func (m *mote) parse() (meshtrust.NodeID, meshtrust.Position, bool, error) {
	var (
		rawID *string
		pos   *position
	)
	for _, ic := range m.InterfaceConfigs {
		if ic.ID != nil && rawID == nil {
			rawID = ic.ID
		}
		if ic.Pos != nil && pos == nil {
			pos = ic.Pos
		}
	}
	if rawID == nil || pos == nil {
		return 0, meshtrust.Position{}, false, nil
	}

	id, err := strconv.ParseInt(strings.TrimSpace(*rawID), 10, 64)
	if err != nil {
		return 0, meshtrust.Position{}, false, fmt.Errorf("invalid mote id %q: %w", *rawID, err)
	}
	var p meshtrust.Position
	if p.X, err = parseFloat("x", pos.X); err != nil {
		return 0, p, false, err
	}
	if p.Y, err = parseFloat("y", pos.Y); err != nil {
		return 0, p, false, err
	}
	// Cooja omits z for planar simulations.
	if pos.Z != "" {
		if p.Z, err = parseFloat("z", pos.Z); err != nil {
			return 0, p, false, err
		}
	}
	return meshtrust.NodeID(id), p, true, nil
}

func parseFloat(name, s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	return f, nil
}

// SimulationFile is a meshtrust.TopologySource reading a .csc file.
type SimulationFile string

func (path SimulationFile) Topology() (*meshtrust.Topology, error) {
	f, err := os.Open(string(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	topology, err := ParseSimulation(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return topology, nil
}
