// Copyright (C) 2019-2025, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package meshtrust_test

import (
	"context"
	"testing"

	"github.com/ava-labs/avalanchego/utils/set"
	"github.com/stretchr/testify/require"

	. "github.com/ava-labs/meshtrust"
	"github.com/ava-labs/meshtrust/testutil"
)

func samplerOf(t *testing.T, nodes NodeIDs, trustSets ...TrustSet) *Sampler {
	sampler, err := FromTrustSets(nodes, trustSets)
	require.NoError(t, err)
	return sampler
}

func graphOf(t *testing.T, topology *Topology, malicious set.Set[NodeID]) *ConnectivityGraph {
	g, err := BuildGraph(topology.Positions, topology.TransmittingRange)
	require.NoError(t, err)
	g, err = g.Annotate(malicious)
	require.NoError(t, err)
	return g
}

func TestCheckMembership(t *testing.T) {
	require := require.New(t)
	nodes := testutil.NodeRange(1, 4)

	result := CheckMembership(nodes, samplerOf(t, nodes, NewTrustSet(1, 2, 3), NewTrustSet(1, 2, 5)))
	require.Equal(Violated, result.Outcome)
	require.Equal(2, result.Examined)
	diagnostic, ok := result.Diagnostic.(*MembershipViolation)
	require.True(ok)
	require.Equal(NewTrustSet(1, 2, 5), diagnostic.TrustSet)
	require.Equal(NodeIDs{5}, diagnostic.Missing)

	result = CheckMembership(nodes, samplerOf(t, nodes, NewTrustSet(1, 2, 3), NewTrustSet(2, 3, 4)))
	require.True(result.Holds())
	require.Equal(2, result.Examined)
}

func TestCheckNoMaliciousTrustSet(t *testing.T) {
	require := require.New(t)
	nodes := testutil.NodeRange(1, 4)
	sampler := samplerOf(t, nodes, NewTrustSet(1, 2), NewTrustSet(2, 3))

	result := CheckNoMaliciousTrustSet(sampler, set.Of[NodeID](1, 2))
	require.Equal(Violated, result.Outcome)
	diagnostic, ok := result.Diagnostic.(*MaliciousTrustSetViolation)
	require.True(ok)
	require.Equal(NewTrustSet(1, 2), diagnostic.TrustSet)
	require.Equal(NodeIDs{1, 2}, diagnostic.Malicious)

	require.True(CheckNoMaliciousTrustSet(sampler, set.Of[NodeID](2)).Holds())
	require.True(CheckNoMaliciousTrustSet(sampler, nil).Holds())
}

func TestCheckHonestTrustSetExists(t *testing.T) {
	require := require.New(t)
	nodes := testutil.NodeRange(1, 4)

	result := CheckHonestTrustSetExists(samplerOf(t, nodes, NewTrustSet(1, 3), NewTrustSet(3, 4)), set.Of[NodeID](1, 2))
	require.True(result.Holds())
	require.Equal(2, result.Examined)

	result = CheckHonestTrustSetExists(samplerOf(t, nodes, NewTrustSet(1, 3), NewTrustSet(2, 4)), set.Of[NodeID](1, 2))
	require.Equal(Violated, result.Outcome)
	require.IsType(&NoHonestTrustSetViolation{}, result.Diagnostic)
}

func TestFullyHonestNodes(t *testing.T) {
	sampler := samplerOf(t, testutil.NodeRange(1, 5), NewTrustSet(1, 2), NewTrustSet(3, 4), NewTrustSet(4, 5))
	fullyHonest := FullyHonestNodes(sampler, set.Of[NodeID](1, 5))
	require.Equal(t, NodeIDs{3, 4}, NodeIDs(fullyHonest.List()).Sorted())
}

func TestCheckHonestAttestations(t *testing.T) {
	nodes := testutil.NodeRange(1, 4)
	malicious := set.Of[NodeID](1)
	sampler := samplerOf(t, nodes, NewTrustSet(1, 2), NewTrustSet(3, 4))

	t.Run("attested by fully honest node", func(t *testing.T) {
		require := require.New(t)

		states := Replay((&testutil.TraceBuilder{}).
			Tx(2, 1).
			Attest(2, 1, 3).
			Tx(3, 1).
			Attest(3, 1, 4).
			Tx(1, 1).
			Build())

		result := CheckHonestAttestations(states, sampler, malicious)
		require.True(result.Holds())
		require.Equal(2, result.Examined)
	})

	t.Run("attested only by malicious node", func(t *testing.T) {
		require := require.New(t)

		states := Replay((&testutil.TraceBuilder{}).
			Tx(2, 1).
			Attest(2, 1, 1).
			Tx(3, 1).
			Attest(3, 1, 4).
			Build())

		result := CheckHonestAttestations(states, sampler, malicious)
		require.Equal(Violated, result.Outcome)
		diagnostic, ok := result.Diagnostic.(*HonestAttestationViolation)
		require.True(ok)
		require.Equal(NodeID(2), diagnostic.Node)
		require.Equal(uint64(1), diagnostic.Message.MessageNum)
		require.Equal(NodeIDs{3, 4}, diagnostic.FullyHonest)
	})

	t.Run("never attested", func(t *testing.T) {
		states := Replay((&testutil.TraceBuilder{}).Tx(4, 9).Build())
		result := CheckHonestAttestations(states, sampler, malicious)
		require.Equal(t, Violated, result.Outcome)
	})

	t.Run("no fully honest trust set", func(t *testing.T) {
		require := require.New(t)

		states := Replay((&testutil.TraceBuilder{}).Tx(2, 1).Build())
		result := CheckHonestAttestations(states, samplerOf(t, nodes, NewTrustSet(1, 2), NewTrustSet(1, 3)), malicious)
		require.Equal(PreconditionUnmet, result.Outcome)
		diagnostic, ok := result.Diagnostic.(*PreconditionDiagnostic)
		require.True(ok)
		require.Equal(A3, diagnostic.Requires)
	})
}

func TestCheckMaliciousAttestations(t *testing.T) {
	nodes := testutil.NodeRange(1, 3)
	malicious := set.Of[NodeID](1)
	sampler := samplerOf(t, nodes, NewTrustSet(1, 2), NewTrustSet(1, 3), NewTrustSet(2, 3))

	// Attesters only count once they appear in the trace themselves.
	honestLogged := func() *testutil.TraceBuilder {
		return (&testutil.TraceBuilder{}).Rx(2, 1, 1).Rx(3, 1, 1)
	}

	t.Run("missing trust set", func(t *testing.T) {
		require := require.New(t)

		states := Replay(honestLogged().
			Tx(1, 1).
			Attest(1, 1, 2).
			Build())

		result := CheckMaliciousAttestations(states, sampler, malicious)
		require.Equal(Violated, result.Outcome)
		require.Equal(2, result.Examined)
		diagnostic, ok := result.Diagnostic.(*MaliciousAttestationViolation)
		require.True(ok)
		require.Equal(NodeID(1), diagnostic.Node)
		require.Equal(NewTrustSet(1, 3), diagnostic.TrustSet)
	})

	t.Run("self attestation does not count", func(t *testing.T) {
		states := Replay(honestLogged().
			Tx(1, 1).
			Attest(1, 1, 1).
			Attest(1, 1, 2).
			Build())

		result := CheckMaliciousAttestations(states, sampler, malicious)
		require.Equal(t, Violated, result.Outcome)
	})

	t.Run("every trust set attests", func(t *testing.T) {
		require := require.New(t)

		states := Replay(honestLogged().
			Tx(1, 1).
			Attest(1, 1, 2).
			Attest(1, 1, 3).
			Tx(1, 2).
			Build())

		// Attestations only credit messages already transmitted.
		result := CheckMaliciousAttestations(states, sampler, malicious)
		require.Equal(Violated, result.Outcome)
		diagnostic, ok := result.Diagnostic.(*MaliciousAttestationViolation)
		require.True(ok)
		require.Equal(uint64(2), diagnostic.Message.MessageNum)

		states = Replay(honestLogged().
			Tx(1, 1).
			Tx(1, 2).
			Attest(1, 1, 2).
			Attest(1, 2, 3).
			Build())
		result = CheckMaliciousAttestations(states, sampler, malicious)
		require.True(result.Holds())
		require.Equal(6, result.Examined)
	})

	t.Run("malicious node absent from trace", func(t *testing.T) {
		result := CheckMaliciousAttestations(Replay(nil), sampler, malicious)
		require.True(t, result.Holds())
	})

	t.Run("attester missing from trace", func(t *testing.T) {
		require := require.New(t)

		external := samplerOf(t, nodes, NewTrustSet(1, 9))
		trace := (&testutil.TraceBuilder{}).
			Tx(1, 1).
			Attest(1, 1, 9)

		result := CheckMaliciousAttestations(Replay(trace.Build()), external, malicious)
		require.Equal(Violated, result.Outcome)
		diagnostic, ok := result.Diagnostic.(*MaliciousAttestationViolation)
		require.True(ok)
		require.Equal(NewTrustSet(1, 9), diagnostic.TrustSet)

		result = CheckMaliciousAttestations(Replay(trace.Rx(9, 1, 1).Build()), external, malicious)
		require.True(result.Holds())
	})
}

func TestFindBridge(t *testing.T) {
	complete := graphOf(t, testutil.CompleteTopology(3), nil)
	line := graphOf(t, testutil.LineTopology(4, 1.5), nil)

	for _, testCase := range []struct {
		name      string
		graph     *ConnectivityGraph
		c1, c2    TrustSet
		malicious set.Set[NodeID]
		mode      BridgeMode
		bridge    NodeID
		found     bool
	}{
		{
			name:   "every neighbour in the other trust set",
			graph:  complete,
			c1:     NewTrustSet(1),
			c2:     NewTrustSet(2, 3),
			mode:   BridgeNeighbor,
			bridge: 1,
			found:  true,
		},
		{
			name:  "membership requires a shared node",
			graph: complete,
			c1:    NewTrustSet(1),
			c2:    NewTrustSet(2, 3),
			mode:  BridgeMembership,
		},
		{
			name:   "shared honest member",
			graph:  line,
			c1:     NewTrustSet(1, 2),
			c2:     NewTrustSet(2, 3),
			mode:   BridgeMembership,
			bridge: 2,
			found:  true,
		},
		{
			name:      "shared malicious member",
			graph:     complete,
			c1:        NewTrustSet(1, 2),
			c2:        NewTrustSet(1, 3),
			malicious: set.Of[NodeID](1),
			mode:      BridgeNeighbor,
		},
		{
			name:  "neighbour outside the other trust set",
			graph: line,
			c1:    NewTrustSet(1, 2),
			c2:    NewTrustSet(3, 4),
			mode:  BridgeNeighbor,
		},
		{
			name:   "honest path",
			graph:  line,
			c1:     NewTrustSet(1, 2),
			c2:     NewTrustSet(3, 4),
			mode:   BridgePath,
			bridge: 1,
			found:  true,
		},
		{
			name:      "path cut by malicious node",
			graph:     line,
			c1:        NewTrustSet(1, 2),
			c2:        NewTrustSet(3, 4),
			malicious: set.Of[NodeID](2),
			mode:      BridgePath,
		},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			bridge, found := FindBridge(testCase.graph, testCase.c1, testCase.c2, testCase.malicious, testCase.mode)
			require.Equal(t, testCase.found, found)
			require.Equal(t, testCase.bridge, bridge)
		})
	}
}

func TestFindBridgeIsolatedNode(t *testing.T) {
	topology := &Topology{
		Positions:         map[NodeID]Position{1: {}, 2: {X: 100}},
		TransmittingRange: 1,
	}
	g := graphOf(t, topology, nil)

	// A node with no neighbours has every neighbour in any trust set.
	bridge, found := FindBridge(g, NewTrustSet(1), NewTrustSet(2), nil, BridgeNeighbor)
	require.True(t, found)
	require.Equal(t, NodeID(1), bridge)

	_, found = FindBridge(g, NewTrustSet(1), NewTrustSet(2), nil, BridgePath)
	require.False(t, found)
}

func TestCheckBridges(t *testing.T) {
	nodes := testutil.NodeRange(1, 4)
	sampler := samplerOf(t, nodes, NewTrustSet(1, 2), NewTrustSet(3, 4))

	for _, testCase := range []struct {
		mode      BridgeMode
		malicious set.Set[NodeID]
		outcome   Outcome
	}{
		{mode: BridgeMembership, outcome: Violated},
		{mode: BridgeNeighbor, outcome: Violated},
		{mode: BridgePath, outcome: Holds},
		{mode: BridgePath, malicious: set.Of[NodeID](2), outcome: Violated},
	} {
		t.Run(testCase.mode.String(), func(t *testing.T) {
			require := require.New(t)

			g := graphOf(t, testutil.LineTopology(4, 1.5), testCase.malicious)
			result, err := CheckBridges(context.Background(), g, sampler, testCase.malicious, testCase.mode, nil)
			require.NoError(err)
			require.Equal(testCase.outcome, result.Outcome)
			if testCase.outcome == Violated {
				diagnostic, ok := result.Diagnostic.(*BridgeViolation)
				require.True(ok)
				require.Equal(NewTrustSet(1, 2), diagnostic.C1)
				require.Equal(NewTrustSet(3, 4), diagnostic.C2)
				require.Equal(testCase.mode, diagnostic.Mode)
			}
		})
	}
}

func TestCheckBridgesProgress(t *testing.T) {
	require := require.New(t)

	sampler, err := NewSampler(testutil.NodeRange(1, 4), SamplerConfig{Fraction: 0.5, MaxSamples: 10})
	require.NoError(err)
	g := graphOf(t, testutil.CompleteTopology(4), nil)

	progress := &testutil.RecordingProgress{}
	result, err := CheckBridges(context.Background(), g, sampler, nil, BridgePath, progress)
	require.NoError(err)
	require.True(result.Holds())
	require.Equal(30, result.Examined)

	task, ok := progress.Task("Checking bridges")
	require.True(ok)
	require.Equal(int64(6), task.Total)
	require.Equal(int64(6), task.Advanced)
	require.True(task.Finished)
}

func TestCheckBridgesCancelled(t *testing.T) {
	sampler, err := NewSampler(testutil.NodeRange(1, 4), SamplerConfig{Fraction: 0.5, MaxSamples: 10})
	require.NoError(t, err)
	g := graphOf(t, testutil.CompleteTopology(4), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = CheckBridges(ctx, g, sampler, nil, BridgePath, nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestParseBridgeMode(t *testing.T) {
	for _, mode := range []BridgeMode{BridgeNeighbor, BridgeMembership, BridgePath} {
		parsed, err := ParseBridgeMode(mode.String())
		require.NoError(t, err)
		require.Equal(t, mode, parsed)
	}

	parsed, err := ParseBridgeMode("")
	require.NoError(t, err)
	require.Equal(t, BridgeNeighbor, parsed)

	_, err = ParseBridgeMode("flood")
	require.ErrorIs(t, err, ErrConfiguration)
}
