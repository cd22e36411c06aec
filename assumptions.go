// Copyright (C) 2019-2025, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package meshtrust

import (
	"context"
	"fmt"

	"github.com/ava-labs/avalanchego/utils/set"
)

// The checks below are pure functions of their inputs. None of them mutates
// the sampler, the graph, the node states or the malicious set, so they may
// run concurrently over shared inputs. Each returns on the first
// counterexample it finds.

// CheckMembership verifies A1: every member of every trust set is a node of
// the topology.
func CheckMembership(nodes NodeIDs, sampler *Sampler) Result {
	universe := set.Of(nodes...)
	cursor := sampler.Cursor()
	var examined int
	for cursor.Next() {
		examined++
		ts := cursor.TrustSet()
		if !ts.IsSubsetOf(universe) {
			return violated(A1, examined, &MembershipViolation{
				TrustSet: ts,
				Missing:  ts.Difference(universe),
			})
		}
	}
	return holds(A1, examined)
}

// CheckNoMaliciousTrustSet verifies A2: no trust set consists only of
// malicious nodes.
func CheckNoMaliciousTrustSet(sampler *Sampler, malicious set.Set[NodeID]) Result {
	cursor := sampler.Cursor()
	var examined int
	for cursor.Next() {
		examined++
		ts := cursor.TrustSet()
		if ts.IsSubsetOf(malicious) {
			return violated(A2, examined, &MaliciousTrustSetViolation{
				TrustSet:  ts,
				Malicious: NodeIDs(malicious.List()).Sorted(),
			})
		}
	}
	return holds(A2, examined)
}

// CheckHonestTrustSetExists verifies A3: at least one trust set is disjoint
// from the malicious nodes.
func CheckHonestTrustSetExists(sampler *Sampler, malicious set.Set[NodeID]) Result {
	cursor := sampler.Cursor()
	var examined int
	for cursor.Next() {
		examined++
		if cursor.TrustSet().IsDisjointFrom(malicious) {
			return holds(A3, examined)
		}
	}
	return violated(A3, examined, &NoHonestTrustSetViolation{
		Malicious: NodeIDs(malicious.List()).Sorted(),
	})
}

// FullyHonestNodes returns the union of all trust sets that are disjoint
// from the malicious nodes.
func FullyHonestNodes(sampler *Sampler, malicious set.Set[NodeID]) set.Set[NodeID] {
	var fullyHonest set.Set[NodeID]
	cursor := sampler.Cursor()
	for cursor.Next() {
		ts := cursor.TrustSet()
		if ts.IsDisjointFrom(malicious) {
			fullyHonest.Add(ts.members...)
		}
	}
	return fullyHonest
}

// CheckHonestAttestations verifies A4: every message transmitted by an
// honest node was attested by at least one fully honest node.
// A4 depends on A3. When no trust set is fully honest the result is
// PreconditionUnmet rather than Violated.
func CheckHonestAttestations(states NodeStates, sampler *Sampler, malicious set.Set[NodeID]) Result {
	fullyHonest := FullyHonestNodes(sampler, malicious)
	if fullyHonest.Len() == 0 {
		return Result{
			ID:      A4,
			Outcome: PreconditionUnmet,
			Diagnostic: &PreconditionDiagnostic{
				Requires: A3,
				Reason:   "no trust set is disjoint from the malicious nodes",
			},
		}
	}

	var examined int
	for _, node := range HonestNodes(states.Nodes(), malicious) {
		state := states.State(node)
		for i := range state.Tx {
			examined++
			message := &state.Tx[i]
			if !attestedByAny(message, fullyHonest) {
				return violated(A4, examined, &HonestAttestationViolation{
					Node:        node,
					Message:     *message,
					FullyHonest: NodeIDs(fullyHonest.List()).Sorted(),
					Malicious:   NodeIDs(malicious.List()).Sorted(),
				})
			}
		}
	}
	return holds(A4, examined)
}

func attestedByAny(message *TxRecord, nodes set.Set[NodeID]) bool {
	for _, a := range message.Attestations {
		if nodes.Contains(a.Attester) {
			return true
		}
	}
	return false
}

// CheckMaliciousAttestations verifies A6: every message transmitted by a
// malicious node was attested, for every trust set, by at least one honest
// member of that trust set. Honest attesters are the trace nodes outside the
// malicious set; an attester that never logs anything does not count.
func CheckMaliciousAttestations(states NodeStates, sampler *Sampler, malicious set.Set[NodeID]) Result {
	honest := set.Of(HonestNodes(states.Nodes(), malicious)...)
	var examined int
	cursor := sampler.Cursor()
	for _, node := range NodeIDs(malicious.List()).Sorted() {
		state := states.State(node)
		for i := range state.Tx {
			message := &state.Tx[i]
			cursor.Reset()
			for cursor.Next() {
				examined++
				ts := cursor.TrustSet()
				if !attestedByHonestMember(message, ts, honest) {
					return violated(A6, examined, &MaliciousAttestationViolation{
						Node:     node,
						Message:  *message,
						TrustSet: ts,
					})
				}
			}
		}
	}
	return holds(A6, examined)
}

func attestedByHonestMember(message *TxRecord, ts TrustSet, honest set.Set[NodeID]) bool {
	for _, a := range message.Attestations {
		if ts.Contains(a.Attester) && honest.Contains(a.Attester) {
			return true
		}
	}
	return false
}

// BridgeMode selects the predicate used by CheckBridges to decide whether
// a member of one trust set bridges into another.
type BridgeMode uint8

const (
	// BridgeNeighbor accepts c1 in C1 if c1 is an honest member of C2, or if
	// every neighbour of c1 is an honest member of C2.
	BridgeNeighbor BridgeMode = iota
	// BridgeMembership accepts c1 in C1 only if c1 is an honest member of C2.
	BridgeMembership
	// BridgePath accepts c1 in C1 if c1 is an honest member of C2, or if c1
	// is honest and a path of honest nodes joins it to an honest member of C2.
	BridgePath
)

func (m BridgeMode) String() string {
	switch m {
	case BridgeNeighbor:
		return "neighbor"
	case BridgeMembership:
		return "membership"
	case BridgePath:
		return "path"
	default:
		return fmt.Sprintf("BridgeMode(%d)", uint8(m))
	}
}

// ParseBridgeMode is the inverse of BridgeMode.String.
func ParseBridgeMode(s string) (BridgeMode, error) {
	switch s {
	case "neighbor", "":
		return BridgeNeighbor, nil
	case "membership":
		return BridgeMembership, nil
	case "path":
		return BridgePath, nil
	default:
		return 0, configErrorf("bridge mode", "unknown mode %q", s)
	}
}

// CheckBridges verifies A5: for every ordered pair (C1, C2) of distinct
// trust sets some member of C1 bridges into C2 under mode.
// Two cursors walk the same collection; the scan may be cancelled through
// ctx between outer trust sets.
func CheckBridges(ctx context.Context, g *ConnectivityGraph, sampler *Sampler, malicious set.Set[NodeID], mode BridgeMode, progress Progress) (Result, error) {
	if progress == nil {
		progress = NoProgress
	}

	var components map[NodeID]int
	if mode == BridgePath {
		components = g.HonestComponents(malicious)
	}

	b := bridger{
		graph:      g,
		malicious:  malicious,
		mode:       mode,
		components: components,
	}

	task := progress.Start("Checking bridges", int64(sampler.Len()))
	defer task.Done()

	outer, inner := sampler.Cursor(), sampler.Cursor()
	var examined int
	for outer.Next() {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		c1 := outer.TrustSet()
		inner.Reset()
		for inner.Next() {
			c2 := inner.TrustSet()
			if c1.Equals(c2) {
				continue
			}
			examined++
			if _, ok := b.bridge(c1, c2); !ok {
				return violated(A5, examined, &BridgeViolation{C1: c1, C2: c2, Mode: mode}), nil
			}
		}
		task.Advance(1)
	}
	return holds(A5, examined), nil
}

// FindBridge returns a member of c1 that bridges into c2 under mode.
func FindBridge(g *ConnectivityGraph, c1, c2 TrustSet, malicious set.Set[NodeID], mode BridgeMode) (NodeID, bool) {
	b := bridger{graph: g, malicious: malicious, mode: mode}
	if mode == BridgePath {
		b.components = g.HonestComponents(malicious)
	}
	return b.bridge(c1, c2)
}

type bridger struct {
	graph      *ConnectivityGraph
	malicious  set.Set[NodeID]
	mode       BridgeMode
	components map[NodeID]int
}

func (b *bridger) bridge(c1, c2 TrustSet) (NodeID, bool) {
	// Shared honest members are the cheap case every mode accepts.
	for _, c := range c1.members {
		if c2.Contains(c) && !b.malicious.Contains(c) {
			return c, true
		}
	}

	switch b.mode {
	case BridgeNeighbor:
		for _, c := range c1.members {
			if b.neighborhoodWithin(c, c2) {
				return c, true
			}
		}
	case BridgePath:
		for _, c := range c1.members {
			if b.honestPathInto(c, c2) {
				return c, true
			}
		}
	}
	return 0, false
}

func (b *bridger) neighborhoodWithin(c NodeID, c2 TrustSet) bool {
	for _, neighbor := range b.graph.Neighbors(c) {
		if !c2.Contains(neighbor) || b.malicious.Contains(neighbor) {
			return false
		}
	}
	return true
}

func (b *bridger) honestPathInto(c NodeID, c2 TrustSet) bool {
	component, honest := b.components[c]
	if !honest {
		return false
	}
	for _, target := range c2.members {
		if label, ok := b.components[target]; ok && label == component {
			return true
		}
	}
	return false
}
