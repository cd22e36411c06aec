// Copyright (C) 2019-2025, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package meshtrust

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is returned for invalid analysis parameters. It is
	// raised before any assumption check executes.
	ErrConfiguration = errors.New("configuration error")
	// ErrDataInconsistency is returned when a node set references ids that
	// are absent from the topology.
	ErrDataInconsistency = errors.New("data inconsistency")
)

type ConfigurationError struct {
	Parameter string
	Reason    string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrConfiguration, e.Parameter, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

func configErrorf(parameter string, format string, args ...any) error {
	return &ConfigurationError{Parameter: parameter, Reason: fmt.Sprintf(format, args...)}
}

type DataInconsistencyError struct {
	What    string
	Missing NodeIDs
}

func (e *DataInconsistencyError) Error() string {
	return fmt.Sprintf("%s: %s references unknown nodes %s", ErrDataInconsistency, e.What, e.Missing)
}

func (e *DataInconsistencyError) Unwrap() error {
	return ErrDataInconsistency
}
