// Copyright (C) 2019-2025, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the trust assumptions against a scenario and its mote log",
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&flagLog, "log", "",
		"mote log captured from the simulation")
	checkCmd.Flags().StringVar(&flagBridgeMode, "bridge-mode", "",
		"bridge predicate: neighbor, membership or path")
	checkCmd.Flags().StringSliceVar(&flagAssumptions, "assumptions", nil,
		"assumptions to check, e.g. A1,A5 (default all)")
	checkCmd.Flags().StringVar(&flagTrustSetsFile, "trustsets", "",
		"write the trust sets to this JSON file")
	checkCmd.Flags().StringVar(&flagTrustSetsIn, "trustsets-in", "",
		"check the trust sets read from this JSON file instead of sampling")
	checkCmd.Flags().StringVar(&flagDotDir, "dot-dir", "",
		"write DOT diagrams of bridge counterexamples to this directory")
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(flagLogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	a, err := loadTopology(cfg, log, newProgress(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	report, err := a.check(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), report)
	if !report.AllHold() {
		return errAssumptionsViolated
	}
	return nil
}
