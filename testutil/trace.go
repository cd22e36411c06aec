// Copyright (C) 2019-2025, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package testutil

import (
	"github.com/ava-labs/meshtrust"
)

// TraceBuilder assembles an ordered trace. Each event is stamped with the
// next tick of a logical clock.
type TraceBuilder struct {
	events []meshtrust.Event
	clock  float64
}

func (b *TraceBuilder) tick() float64 {
	b.clock += 0.1
	return b.clock
}

// Tx records node transmitting message.
func (b *TraceBuilder) Tx(node meshtrust.NodeID, message uint64) *TraceBuilder {
	b.events = append(b.events, meshtrust.TxEvent{
		Timestamp:     b.tick(),
		Node:          node,
		MessageNum:    message,
		BroadcastTime: uint64(b.clock * 1000),
	})
	return b
}

// Attest records origin receiving its own message back, attested by attester.
func (b *TraceBuilder) Attest(origin meshtrust.NodeID, message uint64, attester meshtrust.NodeID) *TraceBuilder {
	from := attester
	b.events = append(b.events, meshtrust.RxEvent{
		Timestamp:     b.tick(),
		Node:          origin,
		MessageNum:    message,
		Origin:        origin,
		Attester:      attester,
		BroadcastTime: uint64(b.clock * 1000),
		From:          &from,
	})
	return b
}

// Rx records node receiving a message from origin without attestation.
func (b *TraceBuilder) Rx(node meshtrust.NodeID, message uint64, origin meshtrust.NodeID) *TraceBuilder {
	b.events = append(b.events, meshtrust.RxEvent{
		Timestamp:     b.tick(),
		Node:          node,
		MessageNum:    message,
		Origin:        origin,
		Attester:      meshtrust.NoAttester,
		BroadcastTime: uint64(b.clock * 1000),
	})
	return b
}

func (b *TraceBuilder) Events() ([]meshtrust.Event, error) {
	return b.events, nil
}

// Build returns the trace built so far.
func (b *TraceBuilder) Build() []meshtrust.Event {
	return b.events
}
