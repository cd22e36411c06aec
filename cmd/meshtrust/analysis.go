// Copyright (C) 2019-2025, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/ava-labs/avalanchego/utils/set"
	"go.uber.org/zap"

	"github.com/ava-labs/meshtrust"
	"github.com/ava-labs/meshtrust/config"
	"github.com/ava-labs/meshtrust/scenario"
	"github.com/ava-labs/meshtrust/store"
	"github.com/ava-labs/meshtrust/viz"
	"github.com/ava-labs/meshtrust/wal"
)

var (
	errAssumptionsViolated = errors.New("not every trust assumption holds")
	errNoScenario          = errors.New("no scenario given")
)

// analysis holds the inputs shared by every command.
type analysis struct {
	cfg      *config.Config
	logger   meshtrust.Logger
	progress meshtrust.Progress

	topology  *meshtrust.Topology
	nodes     meshtrust.NodeIDs
	malicious set.Set[meshtrust.NodeID]
	graph     *meshtrust.ConnectivityGraph
}

// loadTopology reads the scenario, assigns malicious nodes and builds the
// annotated connectivity graph.
func loadTopology(cfg *config.Config, logger meshtrust.Logger, progress meshtrust.Progress) (*analysis, error) {
	if cfg.Scenario == "" {
		return nil, errNoScenario
	}
	topology, err := scenario.SimulationFile(cfg.Scenario).Topology()
	if err != nil {
		return nil, err
	}
	nodes := topology.NodeIDs()
	logger.Info("Loaded scenario",
		zap.String("path", cfg.Scenario),
		zap.Int("nodes", len(nodes)),
		zap.Float64("transmittingRange", topology.TransmittingRange),
		zap.Float64("interferenceRange", topology.InterferenceRange))

	var malicious set.Set[meshtrust.NodeID]
	if len(cfg.Malicious) > 0 {
		malicious = set.Of(cfg.MaliciousNodes()...)
	} else {
		count := cfg.MaliciousCount
		if count == config.DefaultMaliciousCount {
			count = meshtrust.DefaultMaliciousCount(len(nodes))
		}
		if malicious, err = meshtrust.AssignMalicious(nodes, count, cfg.MaliciousSeed); err != nil {
			return nil, err
		}
	}

	g, err := meshtrust.BuildGraph(topology.Positions, cfg.Threshold(topology.TransmittingRange))
	if err != nil {
		return nil, err
	}
	if g, err = g.Annotate(malicious); err != nil {
		return nil, err
	}
	logger.Info("Built connectivity graph",
		zap.Int("edges", g.EdgeCount()),
		zap.Float64("threshold", g.Threshold()),
		zap.Stringer("malicious", meshtrust.NodeIDs(malicious.List()).Sorted()),
		zap.Int("isolatedFromMalicious", g.CountIsolatedFromMalicious()))

	return &analysis{
		cfg:       cfg,
		logger:    logger,
		progress:  progress,
		topology:  topology,
		nodes:     nodes,
		malicious: malicious,
		graph:     g,
	}, nil
}

// sampler provides the trust sets: read from a JSON file, replayed from the
// record log of an earlier run, or built (through the cache when one is
// configured). It exports them when asked to.
func (a *analysis) sampler(ctx context.Context) (*meshtrust.Sampler, error) {
	var (
		sampler *meshtrust.Sampler
		err     error
	)
	switch {
	case a.cfg.TrustSetsIn != "":
		sampler, err = a.readTrustSets()
	case a.cfg.WALPath != "":
		sampler, err = a.checkpointed(ctx)
	default:
		sampler, err = a.build(ctx)
	}
	if err != nil {
		return nil, err
	}

	if a.cfg.TrustSetsFile != "" {
		data, err := meshtrust.MarshalTrustSets(sampler.TrustSets())
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(a.cfg.TrustSetsFile, data, 0o644); err != nil {
			return nil, err
		}
		a.logger.Info("Saved trust sets", zap.String("path", a.cfg.TrustSetsFile), zap.Int("trustSets", sampler.Len()))
	}
	return sampler, nil
}

func (a *analysis) build(ctx context.Context) (*meshtrust.Sampler, error) {
	build := func() (*meshtrust.Sampler, error) {
		return meshtrust.NewSamplerWithContext(ctx, a.nodes, a.cfg.SamplerConfig(),
			meshtrust.WithSamplerLogger(a.logger),
			meshtrust.WithSamplerProgress(a.progress))
	}
	if a.cfg.DBPath == "" {
		return build()
	}
	s, err := store.Open(a.cfg.DBPath, a.logger)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return s.LoadOrBuild(a.nodes, a.cfg.SamplerConfig(), build)
}

// readTrustSets loads externally produced trust sets. Their members are not
// checked against the topology here; that is what A1 reports on.
func (a *analysis) readTrustSets() (*meshtrust.Sampler, error) {
	data, err := os.ReadFile(a.cfg.TrustSetsIn)
	if err != nil {
		return nil, err
	}
	trustSets, err := meshtrust.UnmarshalTrustSets(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.cfg.TrustSetsIn, err)
	}
	sampler, err := meshtrust.FromTrustSets(a.nodes, trustSets)
	if err != nil {
		return nil, err
	}
	a.logger.Info("Loaded trust sets",
		zap.String("path", a.cfg.TrustSetsIn),
		zap.Int("trustSets", sampler.Len()),
		zap.Int("trustSetSize", sampler.TrustSetSize()))
	return sampler, nil
}

// checkpointed reuses the trust sets logged by an earlier run over the same
// nodes with the same sampling parameters, or builds and logs them.
func (a *analysis) checkpointed(ctx context.Context) (*meshtrust.Sampler, error) {
	w, err := wal.New(a.cfg.WALPath)
	if err != nil {
		return nil, err
	}
	defer w.Close()

	sampler, err := meshtrust.LoadSampler(w)
	switch {
	case errors.Is(err, meshtrust.ErrNoRecords):
	case err != nil:
		a.logger.Warn("Discarding unreadable trust set log", zap.String("path", w.Path()), zap.Error(err))
	case sampler.Config() == a.cfg.SamplerConfig() && slices.Equal(sampler.Nodes(), a.nodes):
		a.logger.Info("Loaded trust sets from log",
			zap.String("path", w.Path()),
			zap.Int("trustSets", sampler.Len()))
		return sampler, nil
	default:
		a.logger.Info("Trust set log was built with other parameters", zap.String("path", w.Path()))
	}
	if err := w.Truncate(); err != nil {
		return nil, err
	}

	sampler, err = a.build(ctx)
	if err != nil {
		return nil, err
	}
	if err := meshtrust.SaveSampler(w, sampler); err != nil {
		return nil, err
	}
	a.logger.Debug("Logged trust sets", zap.String("path", w.Path()), zap.Int("trustSets", sampler.Len()))
	return sampler, nil
}

func (a *analysis) states() (meshtrust.NodeStates, error) {
	if a.cfg.Log == "" {
		a.logger.Warn("No mote log given, attestation checks see an empty trace")
		return meshtrust.NodeStates{}, nil
	}
	source := &scenario.LogFile{Path: a.cfg.Log, Logger: a.logger, Progress: a.progress}
	events, err := source.Events()
	if err != nil {
		return nil, err
	}
	states := meshtrust.Replay(events)
	a.logger.Info("Replayed trace",
		zap.Int("events", len(events)),
		zap.Int("nodes", len(states)),
		zap.Int("messages", states.TxCount()))
	return states, nil
}

// check runs the configured assumption checks.
func (a *analysis) check(ctx context.Context) (*meshtrust.Report, error) {
	sampler, err := a.sampler(ctx)
	if err != nil {
		return nil, err
	}
	states, err := a.states()
	if err != nil {
		return nil, err
	}
	mode, err := meshtrust.ParseBridgeMode(a.cfg.BridgeMode)
	if err != nil {
		return nil, err
	}
	ids, err := a.cfg.AssumptionIDs()
	if err != nil {
		return nil, err
	}

	checker, err := meshtrust.NewChecker(meshtrust.CheckerConfig{
		Logger:      a.logger,
		Progress:    a.progress,
		Nodes:       a.nodes,
		Graph:       a.graph,
		Sampler:     sampler,
		Malicious:   a.malicious,
		States:      states,
		BridgeMode:  mode,
		TRep:        a.cfg.TRep,
		Assumptions: ids,
	})
	if err != nil {
		return nil, err
	}
	report, err := checker.Run(ctx)
	if err != nil {
		return nil, err
	}

	if a.cfg.DotDir != "" {
		if err := a.writeDiagrams(report); err != nil {
			return nil, err
		}
	}
	return report, nil
}

// writeDiagrams hands bridge counterexamples over as DOT files.
func (a *analysis) writeDiagrams(report *meshtrust.Report) error {
	result, ok := report.Result(meshtrust.A5)
	if !ok {
		return nil
	}
	violation, ok := result.Diagnostic.(*meshtrust.BridgeViolation)
	if !ok {
		return nil
	}
	data, err := viz.BridgeViolation(a.graph, violation, a.malicious)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(a.cfg.DotDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(a.cfg.DotDir, fmt.Sprintf("%s.dot", meshtrust.A5))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	a.logger.Info("Saved bridge counterexample", zap.String("path", path))
	return nil
}
