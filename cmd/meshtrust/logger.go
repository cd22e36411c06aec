// Copyright (C) 2019-2025, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ava-labs/meshtrust"
)

var _ meshtrust.Logger = (*logger)(nil)

// logger adds the finer levels meshtrust.Logger expects to a zap logger.
type logger struct {
	*zap.Logger
}

func (l *logger) Trace(msg string, fields ...zap.Field) {
	l.Logger.Debug(msg, fields...)
}

func (l *logger) Verbo(msg string, fields ...zap.Field) {
	l.Logger.Debug(msg, fields...)
}

// newLogger writes console formatted entries at or above level to stderr.
func newLogger(level string) (*logger, error) {
	atomicLevel, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	config := zap.NewDevelopmentEncoderConfig()
	config.EncodeTime = zapcore.TimeEncoderOfLayout("[01-02|15:04:05.000]")
	config.EncodeLevel = zapcore.CapitalLevelEncoder
	config.ConsoleSeparator = " "

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(config), zapcore.Lock(os.Stderr), atomicLevel)
	return &logger{Logger: zap.New(core)}, nil
}
