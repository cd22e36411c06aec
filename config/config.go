// Copyright (C) 2019-2025, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/ava-labs/meshtrust"
)

// DefaultMaliciousCount asks for n/3 - 1 malicious nodes.
const DefaultMaliciousCount = -1

// Config holds the parameters of one analysis run
type Config struct {
	// Scenario is the Cooja simulation file describing the topology.
	Scenario string `yaml:"scenario"`
	// Log is the mote output captured from the simulation.
	Log string `yaml:"log"`

	Fraction   float64 `yaml:"fraction"`
	MaxSamples int     `yaml:"max_samples"`
	Seed       int64   `yaml:"seed"`

	// MaliciousCount is the number of randomly chosen malicious nodes.
	// DefaultMaliciousCount selects n/3 - 1. Ignored when Malicious is set.
	MaliciousCount int     `yaml:"malicious_count"`
	MaliciousSeed  int64   `yaml:"malicious_seed"`
	Malicious      []int64 `yaml:"malicious"`

	BridgeMode string        `yaml:"bridge_mode"`
	TRep       time.Duration `yaml:"t_rep"`
	// ThresholdOverride replaces the scenario's transmitting range when
	// positive.
	ThresholdOverride float64  `yaml:"threshold_override"`
	Assumptions       []string `yaml:"assumptions"`

	// DBPath enables the trust set cache.
	DBPath string `yaml:"db_path"`
	// TrustSetsFile, when set, receives the trust sets as JSON.
	TrustSetsFile string `yaml:"trustsets_file"`
	// TrustSetsIn, when set, replaces sampling with the trust sets read
	// from this JSON file. The sampling parameters are then ignored.
	TrustSetsIn string `yaml:"trustsets_in"`
	// WALPath, when set, checkpoints the trust sets to a record log and
	// reuses them on later runs with the same parameters.
	WALPath string `yaml:"wal"`
	// DotDir, when set, receives a DOT rendering of every bridge violation.
	DotDir string `yaml:"dot_dir"`
}

func DefaultConfig() *Config {
	return &Config{
		Fraction:       meshtrust.DefaultTrustSetFraction,
		MaxSamples:     meshtrust.DefaultMaxSamples,
		Seed:           meshtrust.DefaultSamplerSeed,
		MaliciousCount: DefaultMaliciousCount,
		MaliciousSeed:  meshtrust.DefaultSamplerSeed,
		BridgeMode:     meshtrust.BridgeNeighbor.String(),
		TRep:           meshtrust.DefaultTRep,
	}
}

// ParseConfig reads a YAML file over the defaults.
func ParseConfig(cfgPath string) (*Config, error) {
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed parsing %s: %w", cfgPath, err)
	}
	return cfg, nil
}

// Validate reports every invalid parameter at once.
func (c *Config) Validate() error {
	var errs error
	if math.IsNaN(c.Fraction) || c.Fraction <= 0 || c.Fraction > 1 {
		errs = multierr.Append(errs, invalid("fraction", "must be in (0, 1], got %v", c.Fraction))
	}
	if c.MaxSamples <= 0 {
		errs = multierr.Append(errs, invalid("max_samples", "must be positive, got %d", c.MaxSamples))
	}
	if c.MaliciousCount < DefaultMaliciousCount {
		errs = multierr.Append(errs, invalid("malicious_count", "must be %d or non-negative, got %d", DefaultMaliciousCount, c.MaliciousCount))
	}
	if _, err := meshtrust.ParseBridgeMode(c.BridgeMode); err != nil {
		errs = multierr.Append(errs, err)
	}
	if c.TRep < 0 {
		errs = multierr.Append(errs, invalid("t_rep", "must not be negative, got %s", c.TRep))
	}
	if math.IsNaN(c.ThresholdOverride) || math.IsInf(c.ThresholdOverride, 0) || c.ThresholdOverride < 0 {
		errs = multierr.Append(errs, invalid("threshold_override", "must be finite and non-negative, got %v", c.ThresholdOverride))
	}
	if _, err := c.AssumptionIDs(); err != nil {
		errs = multierr.Append(errs, err)
	}
	if c.TrustSetsIn != "" && (c.WALPath != "" || c.DBPath != "") {
		errs = multierr.Append(errs, invalid("trustsets_in", "cannot be combined with wal or db_path"))
	}
	return errs
}

// SamplerConfig returns the trust set sampling parameters.
func (c *Config) SamplerConfig() meshtrust.SamplerConfig {
	return meshtrust.SamplerConfig{
		Fraction:   c.Fraction,
		MaxSamples: c.MaxSamples,
		Seed:       c.Seed,
	}
}

// AssumptionIDs returns the selected assumptions, or nil for all of them.
func (c *Config) AssumptionIDs() ([]meshtrust.AssumptionID, error) {
	var ids []meshtrust.AssumptionID
	for _, s := range c.Assumptions {
		id, err := meshtrust.ParseAssumptionID(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// MaliciousNodes returns the explicit malicious list as node ids.
func (c *Config) MaliciousNodes() meshtrust.NodeIDs {
	nodes := make(meshtrust.NodeIDs, len(c.Malicious))
	for i, id := range c.Malicious {
		nodes[i] = meshtrust.NodeID(id)
	}
	return nodes
}

// Threshold returns the override if set, or the scenario's range.
func (c *Config) Threshold(transmittingRange float64) float64 {
	if c.ThresholdOverride > 0 {
		return c.ThresholdOverride
	}
	return transmittingRange
}

func invalid(parameter, format string, args ...any) error {
	return &meshtrust.ConfigurationError{Parameter: parameter, Reason: fmt.Sprintf(format, args...)}
}
