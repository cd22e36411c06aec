// Copyright (C) 2019-2025, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"github.com/spf13/cobra"

	"github.com/ava-labs/meshtrust/viz"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the connectivity graph of a scenario as DOT",
	RunE:  runGraph,
}

func runGraph(cmd *cobra.Command, _ []string) error {
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
	data, err := viz.Marshal(a.graph, viz.Options{Malicious: a.malicious})
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
