// Copyright (C) 2019-2025, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package meshtrust

import (
	"fmt"
)

// NoAttester is the attesting node value carried by messages that have not
// been attested.
const NoAttester NodeID = 0

// Event is one entry of the execution trace. It is either a TxEvent or an
// RxEvent.
type Event interface {
	// EventNode is the node that logged the event.
	EventNode() NodeID
	EventTime() float64
	isEvent()
}

// TxEvent records a node broadcasting one of its own messages.
type TxEvent struct {
	Timestamp     float64
	Node          NodeID
	MessageNum    uint64
	BroadcastTime uint64
}

// RxEvent records a node receiving a message. From is nil when the trace
// line does not name the forwarding neighbour.
type RxEvent struct {
	Timestamp     float64
	Node          NodeID
	MessageNum    uint64
	Origin        NodeID
	Attester      NodeID
	BroadcastTime uint64
	From          *NodeID
}

func (e TxEvent) EventNode() NodeID  { return e.Node }
func (e TxEvent) EventTime() float64 { return e.Timestamp }
func (TxEvent) isEvent()             {}

func (e RxEvent) EventNode() NodeID  { return e.Node }
func (e RxEvent) EventTime() float64 { return e.Timestamp }
func (RxEvent) isEvent()             {}

func (e TxEvent) String() string {
	return fmt.Sprintf("Tx{t: %g, node: %d, msg: %d, bt: %d}", e.Timestamp, e.Node, e.MessageNum, e.BroadcastTime)
}

func (e RxEvent) String() string {
	from := "-"
	if e.From != nil {
		from = e.From.String()
	}
	return fmt.Sprintf("Rx{t: %g, node: %d, msg: %d|%d|%d|%d, from: %s}",
		e.Timestamp, e.Node, e.MessageNum, e.Origin, e.Attester, e.BroadcastTime, from)
}
