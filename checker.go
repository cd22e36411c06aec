// Copyright (C) 2019-2025, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package meshtrust

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ava-labs/avalanchego/utils/set"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultTRep is the repetition timeout the attestation protocol is
// configured with by default.
const DefaultTRep = 5 * time.Second

type CheckerConfig struct {
	Logger   Logger
	Progress Progress

	// Nodes is the node universe of the topology.
	Nodes     NodeIDs
	Graph     *ConnectivityGraph
	Sampler   *Sampler
	Malicious set.Set[NodeID]
	States    NodeStates

	BridgeMode BridgeMode
	// TRep is the protocol's repetition timeout. It is recorded with the
	// attestation checks and does not change their outcome.
	TRep time.Duration
	// Assumptions restricts the run to a subset of the checks.
	// All of them run when it is empty.
	Assumptions []AssumptionID
}

// Checker evaluates the trust assumptions over a frozen set of inputs.
type Checker struct {
	CheckerConfig
}

func NewChecker(config CheckerConfig) (*Checker, error) {
	if config.Logger == nil {
		config.Logger = NopLogger
	}
	if config.Progress == nil {
		config.Progress = NoProgress
	}
	if config.Sampler == nil {
		return nil, configErrorf("sampler", "is required")
	}
	if config.Graph == nil && config.wants(A5) {
		return nil, configErrorf("graph", "is required to check %s", A5)
	}
	if config.States == nil {
		config.States = NodeStates{}
	}
	if len(config.Nodes) == 0 && config.Graph != nil {
		config.Nodes = config.Graph.Nodes()
	}
	if len(config.Nodes) > 0 {
		universe := set.Of(config.Nodes...)
		var missing NodeIDs
		for id := range config.Malicious {
			if !universe.Contains(id) {
				missing = append(missing, id)
			}
		}
		if len(missing) > 0 {
			return nil, &DataInconsistencyError{What: "malicious set", Missing: missing.Sorted()}
		}
	}
	for _, id := range config.Assumptions {
		if !slices.Contains(Assumptions, id) {
			return nil, configErrorf("assumptions", "unknown assumption %s", id)
		}
	}
	return &Checker{CheckerConfig: config}, nil
}

func (config *CheckerConfig) wants(id AssumptionID) bool {
	return len(config.Assumptions) == 0 || slices.Contains(config.Assumptions, id)
}

// Run executes the selected checks concurrently and collects every result.
// A violated or unmet assumption never stops the other checks; only
// cancellation of ctx makes Run return an error.
func (c *Checker) Run(ctx context.Context) (*Report, error) {
	c.Logger.Info("Checking trust assumptions",
		zap.Int("nodes", len(c.Nodes)),
		zap.Int("trustSets", c.Sampler.Len()),
		zap.Int("trustSetSize", c.Sampler.TrustSetSize()),
		zap.Int("malicious", c.Malicious.Len()),
		zap.Int("messages", c.States.TxCount()),
		zap.Stringer("bridgeMode", c.BridgeMode))

	var ids []AssumptionID
	for _, id := range Assumptions {
		if c.wants(id) {
			ids = append(ids, id)
		}
	}

	results := make([]Result, len(ids))
	eg, ctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		eg.Go(func() error {
			start := time.Now()
			result, err := c.check(ctx, id)
			if err != nil {
				c.Logger.Warn("Check aborted", zap.Stringer("assumption", id), zap.Error(err))
				return err
			}
			results[i] = result
			c.logResult(result, time.Since(start))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return &Report{Results: results}, nil
}

func (c *Checker) check(ctx context.Context, id AssumptionID) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	switch id {
	case A1:
		return CheckMembership(c.Nodes, c.Sampler), nil
	case A2:
		return CheckNoMaliciousTrustSet(c.Sampler, c.Malicious), nil
	case A3:
		return CheckHonestTrustSetExists(c.Sampler, c.Malicious), nil
	case A4:
		c.Logger.Debug("Checking honest attestations", zap.Duration("tRep", c.TRep))
		return CheckHonestAttestations(c.States, c.Sampler, c.Malicious), nil
	case A5:
		return CheckBridges(ctx, c.Graph, c.Sampler, c.Malicious, c.BridgeMode, c.Progress)
	case A6:
		c.Logger.Debug("Checking malicious attestations", zap.Duration("tRep", c.TRep))
		return CheckMaliciousAttestations(c.States, c.Sampler, c.Malicious), nil
	default:
		return Result{}, fmt.Errorf("unknown assumption %s", id)
	}
}

func (c *Checker) logResult(result Result, elapsed time.Duration) {
	fields := []zap.Field{
		zap.Stringer("assumption", result.ID),
		zap.Stringer("outcome", result.Outcome),
		zap.Int("examined", result.Examined),
		zap.Duration("elapsed", elapsed),
	}
	if result.Diagnostic != nil {
		fields = append(fields, zap.Stringer("diagnostic", result.Diagnostic))
	}
	if result.Holds() {
		c.Logger.Info("Assumption holds", fields...)
		return
	}
	c.Logger.Warn("Assumption does not hold", fields...)
}

// Report holds the results of one run in assumption order.
type Report struct {
	Results []Result
}

func (r *Report) AllHold() bool {
	for _, result := range r.Results {
		if !result.Holds() {
			return false
		}
	}
	return true
}

// Result returns the result for id, if it was checked.
func (r *Report) Result(id AssumptionID) (Result, bool) {
	for _, result := range r.Results {
		if result.ID == id {
			return result, true
		}
	}
	return Result{}, false
}

// Failed returns the results that do not hold.
func (r *Report) Failed() []Result {
	var failed []Result
	for _, result := range r.Results {
		if !result.Holds() {
			failed = append(failed, result)
		}
	}
	return failed
}

func (r *Report) String() string {
	var sb strings.Builder
	for _, result := range r.Results {
		sb.WriteString(result.String())
		sb.WriteByte('\n')
	}
	fmt.Fprintf(&sb, "%d/%d assumptions hold", len(r.Results)-len(r.Failed()), len(r.Results))
	return sb.String()
}
