// Copyright (C) 2019-2025, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package meshtrust

import (
	"go.uber.org/zap"
)

type Logger interface {
	// Log that a fatal error has occurred. The program should likely exit soon
	// after this is called
	Fatal(msg string, fields ...zap.Field)
	// Log that an error has occurred. The program should be able to recover
	// from this error
	Error(msg string, fields ...zap.Field)
	// Log that an event has occurred that may indicate a future error or
	// vulnerability
	Warn(msg string, fields ...zap.Field)
	// Log an event that may be useful for a user to see to measure the progress
	// of the analysis
	Info(msg string, fields ...zap.Field)
	// Log an event that may be useful for understanding the order of the
	// execution of the analysis
	Trace(msg string, fields ...zap.Field)
	// Log an event that may be useful for a programmer to see when debuging the
	// execution of the analysis
	Debug(msg string, fields ...zap.Field)
	// Log extremely detailed events that can be useful for inspecting every
	// aspect of the program
	Verbo(msg string, fields ...zap.Field)
}

// Progress receives incremental progress of long running work such as
// building a sampler or scanning trust set pairs.
// Implementations must be safe for concurrent use, since checks may run
// in parallel and each reports its own task.
type Progress interface {
	// Start announces a task with the given label and expected number of steps.
	// It returns a handle the task advances.
	Start(label string, total int64) ProgressTask
}

type ProgressTask interface {
	Advance(n int64)
	Done()
}

// TopologySource yields the node universe and the transmitting range.
type TopologySource interface {
	Topology() (*Topology, error)
}

// TraceSource yields the ordered execution trace.
type TraceSource interface {
	Events() ([]Event, error)
}

// WriteAheadLog is a sequence of opaque records.
type WriteAheadLog interface {
	Append([]byte) error
	ReadAll() ([][]byte, error)
}

type noProgress struct{}

func (noProgress) Start(string, int64) ProgressTask { return noProgress{} }
func (noProgress) Advance(int64)                    {}
func (noProgress) Done()                            {}

// NoProgress discards all progress reports.
var NoProgress Progress = noProgress{}

type nopLogger struct{}

func (nopLogger) Fatal(string, ...zap.Field) {}
func (nopLogger) Error(string, ...zap.Field) {}
func (nopLogger) Warn(string, ...zap.Field)  {}
func (nopLogger) Info(string, ...zap.Field)  {}
func (nopLogger) Trace(string, ...zap.Field) {}
func (nopLogger) Debug(string, ...zap.Field) {}
func (nopLogger) Verbo(string, ...zap.Field) {}

// NopLogger discards all log entries.
var NopLogger Logger = nopLogger{}
