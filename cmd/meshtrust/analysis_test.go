// Copyright (C) 2019-2025, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/ava-labs/meshtrust"
	"github.com/ava-labs/meshtrust/config"
	"github.com/ava-labs/meshtrust/testutil"
	"github.com/ava-labs/meshtrust/wal"
)

// writeLineScenario writes a .csc file with n motes one unit apart.
func writeLineScenario(t *testing.T, n int, transmittingRange float64) string {
	var sb strings.Builder
	sb.WriteString("<simconf><simulation><radiomedium>")
	fmt.Fprintf(&sb, "<transmitting_range>%g</transmitting_range><interference_range>%g</interference_range>", transmittingRange, 2*transmittingRange)
	sb.WriteString("</radiomedium><motetype>")
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&sb, `<mote><interface_config><id>%d</id></interface_config><interface_config><pos x="%d" y="0" z="0"/></interface_config></mote>`, i, i-1)
	}
	sb.WriteString("</motetype></simulation></simconf>")

	path := filepath.Join(t.TempDir(), "sim.csc")
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o644))
	return path
}

func writeLog(t *testing.T, lines ...string) string {
	path := filepath.Join(t.TempDir(), "loglistener.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func TestCheckCompleteMesh(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Scenario = writeLineScenario(t, 3, 10)
	cfg.Log = writeLog(t,
		"00:01.000	ID:1	Tx: '1|1|0|1000'",
		"00:01.100	ID:1	Rx: '1|1|2|1000' from node: '2'",
		"00:01.200	ID:1	Rx: '1|1|3|1000' from node: '3'",
	)
	cfg.DBPath = filepath.Join(dir, "trustsets.db")
	cfg.TrustSetsFile = filepath.Join(dir, "trustsets.json")
	require.NoError(cfg.Validate())

	a, err := loadTopology(cfg, testutil.MakeLogger(t), meshtrust.NoProgress)
	require.NoError(err)
	require.Equal(3, a.graph.EdgeCount())

	report, err := a.check(context.Background())
	require.NoError(err)
	require.Len(report.Results, len(meshtrust.Assumptions))

	// Three nodes give n/3-1 = 0 malicious nodes and trust sets of size 2,
	// so any two trust sets share an honest member.
	require.Zero(a.malicious.Len())
	for _, result := range report.Results {
		require.True(result.Holds(), result.String())
	}

	data, err := os.ReadFile(cfg.TrustSetsFile)
	require.NoError(err)
	trustSets, err := meshtrust.UnmarshalTrustSets(data)
	require.NoError(err)
	require.Len(trustSets, 3)

	// A second run is served from the cache.
	report, err = a.check(context.Background())
	require.NoError(err)
	require.True(report.AllHold())
}

func TestCheckWritesBridgeDiagram(t *testing.T) {
	require := require.New(t)

	cfg := config.DefaultConfig()
	cfg.Scenario = writeLineScenario(t, 6, 1.5)
	cfg.Fraction = 0.5
	cfg.MaliciousCount = 0
	cfg.BridgeMode = meshtrust.BridgeMembership.String()
	cfg.Assumptions = []string{"A5"}
	cfg.DotDir = t.TempDir()
	require.NoError(cfg.Validate())

	a, err := loadTopology(cfg, testutil.MakeLogger(t), meshtrust.NoProgress)
	require.NoError(err)

	report, err := a.check(context.Background())
	require.NoError(err)
	require.False(report.AllHold())

	result, ok := report.Result(meshtrust.A5)
	require.True(ok)
	require.Equal(meshtrust.Violated, result.Outcome)

	data, err := os.ReadFile(filepath.Join(cfg.DotDir, "A5.dot"))
	require.NoError(err)
	require.Contains(string(data), "strict graph bridge_violation {")
}

func TestLoadTopologyRejectsUnknownMalicious(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Scenario = writeLineScenario(t, 3, 10)
	cfg.Malicious = []int64{9}

	_, err := loadTopology(cfg, testutil.MakeLogger(t), meshtrust.NoProgress)
	require.ErrorIs(t, err, meshtrust.ErrDataInconsistency)
}

func TestLoadTopologyRequiresScenario(t *testing.T) {
	_, err := loadTopology(config.DefaultConfig(), testutil.MakeLogger(t), meshtrust.NoProgress)
	require.ErrorIs(t, err, errNoScenario)
}

func TestCheckExternalTrustSetsWithUnknownNode(t *testing.T) {
	require := require.New(t)

	path := filepath.Join(t.TempDir(), "trustsets.json")
	require.NoError(os.WriteFile(path, []byte(`[[1,2],[2,5]]`), 0o644))

	cfg := config.DefaultConfig()
	cfg.Scenario = writeLineScenario(t, 4, 10)
	cfg.TrustSetsIn = path
	cfg.Assumptions = []string{"A1", "A2"}
	require.NoError(cfg.Validate())

	a, err := loadTopology(cfg, testutil.MakeLogger(t), meshtrust.NoProgress)
	require.NoError(err)

	report, err := a.check(context.Background())
	require.NoError(err)

	result, ok := report.Result(meshtrust.A1)
	require.True(ok)
	require.Equal(meshtrust.Violated, result.Outcome)
	diagnostic, ok := result.Diagnostic.(*meshtrust.MembershipViolation)
	require.True(ok)
	require.Equal(meshtrust.NewTrustSet(2, 5), diagnostic.TrustSet)
	require.Equal(meshtrust.NodeIDs{5}, diagnostic.Missing)

	result, ok = report.Result(meshtrust.A2)
	require.True(ok)
	require.True(result.Holds())
}

func TestCheckExternalTrustSetsMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trustsets.json")
	require.NoError(t, os.WriteFile(path, []byte(`[[1,2],[3]]`), 0o644))

	cfg := config.DefaultConfig()
	cfg.Scenario = writeLineScenario(t, 3, 10)
	cfg.TrustSetsIn = path

	a, err := loadTopology(cfg, testutil.MakeLogger(t), meshtrust.NoProgress)
	require.NoError(t, err)

	_, err = a.sampler(context.Background())
	require.ErrorIs(t, err, meshtrust.ErrConfiguration)
}

func TestSamplerCheckpoint(t *testing.T) {
	require := require.New(t)

	cfg := config.DefaultConfig()
	cfg.Scenario = writeLineScenario(t, 3, 10)
	cfg.WALPath = filepath.Join(t.TempDir(), "trustsets"+wal.Extension)
	require.NoError(cfg.Validate())

	logger := testutil.MakeLogger(t)
	var loadedFromLog int
	logger.Intercept(func(entry zapcore.Entry) error {
		if entry.Message == "Loaded trust sets from log" {
			loadedFromLog++
		}
		return nil
	})

	a, err := loadTopology(cfg, logger, meshtrust.NoProgress)
	require.NoError(err)

	built, err := a.sampler(context.Background())
	require.NoError(err)
	require.Equal(3, built.Len())
	require.Zero(loadedFromLog)

	replayed, err := a.sampler(context.Background())
	require.NoError(err)
	require.Equal(1, loadedFromLog)
	require.Equal(built.TrustSets(), replayed.TrustSets())
	require.Equal(built.Config(), replayed.Config())

	// Other parameters rewrite the log instead of reusing it.
	cfg.Fraction = 1
	rebuilt, err := a.sampler(context.Background())
	require.NoError(err)
	require.Equal(1, loadedFromLog)
	require.Equal(1, rebuilt.Len())

	w, err := wal.New(cfg.WALPath)
	require.NoError(err)
	defer w.Close()
	logged, err := meshtrust.LoadSampler(w)
	require.NoError(err)
	require.Equal(cfg.SamplerConfig(), logged.Config())
	require.Equal(rebuilt.TrustSets(), logged.TrustSets())
}
