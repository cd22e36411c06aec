// Copyright (C) 2019-2025, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package meshtrust_test

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ava-labs/avalanchego/utils/set"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	. "github.com/ava-labs/meshtrust"
	"github.com/ava-labs/meshtrust/testutil"
)

func newTestChecker(t *testing.T, malicious set.Set[NodeID], trace *testutil.TraceBuilder, assumptions ...AssumptionID) (*Checker, *atomic.Int32) {
	nodes := testutil.NodeRange(1, 4)
	sampler, err := NewSampler(nodes, SamplerConfig{Fraction: 0.5, MaxSamples: 10})
	require.NoError(t, err)

	logger := testutil.MakeLogger(t)
	var warnings atomic.Int32
	logger.Intercept(func(entry zapcore.Entry) error {
		if entry.Level == zapcore.WarnLevel {
			warnings.Add(1)
		}
		return nil
	})

	checker, err := NewChecker(CheckerConfig{
		Logger:      logger,
		Progress:    &testutil.RecordingProgress{},
		Graph:       graphOf(t, testutil.CompleteTopology(4), malicious),
		Sampler:     sampler,
		Malicious:   malicious,
		States:      Replay(trace.Build()),
		BridgeMode:  BridgePath,
		TRep:        DefaultTRep,
		Assumptions: assumptions,
	})
	require.NoError(t, err)
	return checker, &warnings
}

func TestCheckerAllHold(t *testing.T) {
	require := require.New(t)

	checker, warnings := newTestChecker(t, nil, (&testutil.TraceBuilder{}).Tx(1, 1).Attest(1, 1, 2))
	require.Equal(NodeIDs{1, 2, 3, 4}, checker.Nodes)

	report, err := checker.Run(context.Background())
	require.NoError(err)
	require.True(report.AllHold())
	require.Empty(report.Failed())
	require.Len(report.Results, len(Assumptions))
	for i, result := range report.Results {
		require.Equal(Assumptions[i], result.ID)
	}
	require.Zero(warnings.Load())
	require.True(strings.HasSuffix(report.String(), "6/6 assumptions hold"))
}

func TestCheckerReportsEveryFailure(t *testing.T) {
	require := require.New(t)

	checker, warnings := newTestChecker(t, set.Of[NodeID](1), (&testutil.TraceBuilder{}).Tx(2, 1).Attest(2, 1, 1))

	report, err := checker.Run(context.Background())
	require.NoError(err)
	require.False(report.AllHold())

	failed := report.Failed()
	require.Len(failed, 1)
	require.Equal(A4, failed[0].ID)
	require.Equal(Violated, failed[0].Outcome)
	require.Equal(int32(1), warnings.Load())

	result, ok := report.Result(A5)
	require.True(ok)
	require.True(result.Holds())
	require.True(strings.HasSuffix(report.String(), "5/6 assumptions hold"))
}

func TestCheckerSubset(t *testing.T) {
	require := require.New(t)

	checker, _ := newTestChecker(t, nil, &testutil.TraceBuilder{}, A3, A1)
	report, err := checker.Run(context.Background())
	require.NoError(err)
	require.Len(report.Results, 2)
	require.Equal(A1, report.Results[0].ID)
	require.Equal(A3, report.Results[1].ID)

	_, ok := report.Result(A5)
	require.False(ok)
}

func TestCheckerCancelled(t *testing.T) {
	checker, _ := newTestChecker(t, nil, &testutil.TraceBuilder{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := checker.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewCheckerErrors(t *testing.T) {
	sampler := samplerOf(t, testutil.NodeRange(1, 3), NewTrustSet(1, 2))

	for _, testCase := range []struct {
		name   string
		config CheckerConfig
	}{
		{name: "missing sampler", config: CheckerConfig{}},
		{name: "bridges without graph", config: CheckerConfig{Sampler: sampler}},
		{name: "bridges selected without graph", config: CheckerConfig{Sampler: sampler, Assumptions: []AssumptionID{A2, A5}}},
		{name: "unknown assumption", config: CheckerConfig{Sampler: sampler, Assumptions: []AssumptionID{A1, AssumptionID(9)}}},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := NewChecker(testCase.config)
			require.ErrorIs(t, err, ErrConfiguration)
		})
	}

	_, err := NewChecker(CheckerConfig{
		Nodes:       testutil.NodeRange(1, 3),
		Sampler:     sampler,
		Malicious:   set.Of[NodeID](2, 7),
		Assumptions: []AssumptionID{A2, A6},
	})
	require.ErrorIs(t, err, ErrDataInconsistency)
	var inconsistency *DataInconsistencyError
	require.ErrorAs(t, err, &inconsistency)
	require.Equal(t, NodeIDs{7}, inconsistency.Missing)

	checker, err := NewChecker(CheckerConfig{Sampler: sampler, Assumptions: []AssumptionID{A2}})
	require.NoError(t, err)
	report, err := checker.Run(context.Background())
	require.NoError(t, err)
	require.True(t, report.AllHold())
}

func TestParseAssumptionID(t *testing.T) {
	for _, id := range Assumptions {
		parsed, err := ParseAssumptionID(id.String())
		require.NoError(t, err)
		require.Equal(t, id, parsed)
	}

	parsed, err := ParseAssumptionID("a4")
	require.NoError(t, err)
	require.Equal(t, A4, parsed)

	for _, s := range []string{"", "A0", "A7", "B1", "A12"} {
		_, err := ParseAssumptionID(s)
		require.ErrorIs(t, err, ErrConfiguration)
	}
}
