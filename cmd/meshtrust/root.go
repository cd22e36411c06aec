// Copyright (C) 2019-2025, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"github.com/spf13/cobra"

	"github.com/ava-labs/meshtrust/config"
)

var (
	flagConfig     string
	flagLogLevel   string
	flagNoProgress bool

	flagScenario       string
	flagLog            string
	flagFraction       float64
	flagMaxSamples     int
	flagSeed           int64
	flagMaliciousCount int
	flagMaliciousSeed  int64
	flagMalicious      []int64
	flagBridgeMode     string
	flagThreshold      float64
	flagAssumptions    []string
	flagDBPath         string
	flagTrustSetsFile  string
	flagTrustSetsIn    string
	flagWALPath        string
	flagDotDir         string
)

var rootCmd = &cobra.Command{
	Use:           "meshtrust",
	Short:         "Verify the trust assumptions of a simulated attestation mesh",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "",
		"YAML configuration file; flags override its values")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&flagNoProgress, "no-progress", false,
		"disable progress bars")

	rootCmd.PersistentFlags().StringVar(&flagScenario, "scenario", "",
		"Cooja simulation file (.csc)")
	rootCmd.PersistentFlags().Float64Var(&flagFraction, "fraction", 0,
		"fraction of the nodes forming a trust set")
	rootCmd.PersistentFlags().IntVar(&flagMaxSamples, "max-samples", 0,
		"maximum number of trust sets to materialize")
	rootCmd.PersistentFlags().Int64Var(&flagSeed, "seed", 0,
		"seed of the trust set sampler")
	rootCmd.PersistentFlags().IntVar(&flagMaliciousCount, "malicious-count", 0,
		"number of randomly chosen malicious nodes (-1 for n/3-1)")
	rootCmd.PersistentFlags().Int64Var(&flagMaliciousSeed, "malicious-seed", 0,
		"seed of the malicious node assignment")
	rootCmd.PersistentFlags().Int64SliceVar(&flagMalicious, "malicious", nil,
		"explicit malicious node ids, overriding --malicious-count")
	rootCmd.PersistentFlags().Float64Var(&flagThreshold, "threshold", 0,
		"connectivity threshold overriding the scenario's transmitting range")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "",
		"bolt database caching built trust sets")
	rootCmd.PersistentFlags().StringVar(&flagWALPath, "wal", "",
		"record log checkpointing the trust sets between runs")

	rootCmd.AddCommand(checkCmd, sampleCmd, graphCmd)
}

// loadConfig layers the config file, then any flag the user set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if flagConfig != "" {
		var err error
		if cfg, err = config.ParseConfig(flagConfig); err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("scenario") {
		cfg.Scenario = flagScenario
	}
	if flags.Changed("log") {
		cfg.Log = flagLog
	}
	if flags.Changed("fraction") {
		cfg.Fraction = flagFraction
	}
	if flags.Changed("max-samples") {
		cfg.MaxSamples = flagMaxSamples
	}
	if flags.Changed("seed") {
		cfg.Seed = flagSeed
	}
	if flags.Changed("malicious-count") {
		cfg.MaliciousCount = flagMaliciousCount
	}
	if flags.Changed("malicious-seed") {
		cfg.MaliciousSeed = flagMaliciousSeed
	}
	if flags.Changed("malicious") {
		cfg.Malicious = flagMalicious
	}
	if flags.Changed("bridge-mode") {
		cfg.BridgeMode = flagBridgeMode
	}
	if flags.Changed("threshold") {
		cfg.ThresholdOverride = flagThreshold
	}
	if flags.Changed("assumptions") {
		cfg.Assumptions = flagAssumptions
	}
	if flags.Changed("db") {
		cfg.DBPath = flagDBPath
	}
	if flags.Changed("trustsets") {
		cfg.TrustSetsFile = flagTrustSetsFile
	}
	if flags.Changed("trustsets-in") {
		cfg.TrustSetsIn = flagTrustSetsIn
	}
	if flags.Changed("wal") {
		cfg.WALPath = flagWALPath
	}
	if flags.Changed("dot-dir") {
		cfg.DotDir = flagDotDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
