// Copyright (C) 2019-2025, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Build the trust sets of a scenario and write them as JSON",
	RunE:  runSample,
}

func init() {
	sampleCmd.Flags().StringVar(&flagTrustSetsFile, "trustsets", "trustsets.json",
		"output file")
}

func runSample(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.TrustSetsFile == "" {
		cfg.TrustSetsFile = flagTrustSetsFile
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
	sampler, err := a.sampler(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), sampler)
	return nil
}
