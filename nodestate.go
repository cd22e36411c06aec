// Copyright (C) 2019-2025, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package meshtrust

import (
	"slices"
)

type Attestation struct {
	Attester  NodeID
	Timestamp float64
}

// TxRecord is a message transmitted by its originating node together with
// the distinct nodes observed attesting it.
type TxRecord struct {
	MessageNum    uint64
	BroadcastTime uint64
	Timestamp     float64
	Attestations  []Attestation
}

// AttestedBy reports whether node attested the message.
func (r *TxRecord) AttestedBy(node NodeID) bool {
	for _, a := range r.Attestations {
		if a.Attester == node {
			return true
		}
	}
	return false
}

// Attesters returns the attesting nodes in the order they were observed.
func (r *TxRecord) Attesters() NodeIDs {
	attesters := make(NodeIDs, len(r.Attestations))
	for i, a := range r.Attestations {
		attesters[i] = a.Attester
	}
	return attesters
}

type RxRecord struct {
	MessageNum    uint64
	Origin        NodeID
	Attester      NodeID
	From          *NodeID
	BroadcastTime uint64
	Timestamp     float64
}

// NodeState is the transmit and receive history of one node, in trace order.
type NodeState struct {
	Tx []TxRecord
	Rx []RxRecord
}

// NodeStates maps every node that appears in a trace to its history.
type NodeStates map[NodeID]*NodeState

// Replay folds the ordered trace into per-node histories. It returns a new
// map and never retains or mutates the events.
func Replay(events []Event) NodeStates {
	states := make(NodeStates)
	for _, e := range events {
		states = states.apply(e)
	}
	return states
}

// apply is the fold step. It mutates only state owned by the fold.
func (states NodeStates) apply(e Event) NodeStates {
	node := e.EventNode()
	state, ok := states[node]
	if !ok {
		state = &NodeState{}
		states[node] = state
	}

	switch e := e.(type) {
	case TxEvent:
		state.Tx = append(state.Tx, TxRecord{
			MessageNum:    e.MessageNum,
			BroadcastTime: e.BroadcastTime,
			Timestamp:     e.Timestamp,
		})
	case RxEvent:
		rx := RxRecord{
			MessageNum:    e.MessageNum,
			Origin:        e.Origin,
			Attester:      e.Attester,
			BroadcastTime: e.BroadcastTime,
			Timestamp:     e.Timestamp,
		}
		if e.From != nil {
			from := *e.From
			rx.From = &from
		}
		state.Rx = append(state.Rx, rx)

		// An attested copy of one of our own messages came back: credit the
		// attester on every message transmitted so far.
		if e.Origin == node && e.Attester != NoAttester {
			for i := range state.Tx {
				if !state.Tx[i].AttestedBy(e.Attester) {
					state.Tx[i].Attestations = append(state.Tx[i].Attestations, Attestation{
						Attester:  e.Attester,
						Timestamp: e.Timestamp,
					})
				}
			}
		}
	}
	return states
}

// Nodes returns the sorted nodes that appear in the trace.
func (states NodeStates) Nodes() NodeIDs {
	nodes := make(NodeIDs, 0, len(states))
	for id := range states {
		nodes = append(nodes, id)
	}
	slices.Sort(nodes)
	return nodes
}

// State returns the history of node, or an empty history if the node never
// appears in the trace.
func (states NodeStates) State(node NodeID) *NodeState {
	if state, ok := states[node]; ok {
		return state
	}
	return &NodeState{}
}

// TxCount returns the total number of transmitted messages in the trace.
func (states NodeStates) TxCount() int {
	var count int
	for _, state := range states {
		count += len(state.Tx)
	}
	return count
}
