// Copyright (C) 2019-2025, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wal

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/ava-labs/meshtrust"
)

var _ meshtrust.WriteAheadLog = (*InMemWAL)(nil)

// InMemWAL keeps records in memory. The zero value is ready to use.
type InMemWAL struct {
	mu     sync.Mutex
	buffer bytes.Buffer
}

func (wal *InMemWAL) Append(b []byte) error {
	wal.mu.Lock()
	defer wal.mu.Unlock()

	return writeRecord(&wal.buffer, b)
}

func (wal *InMemWAL) ReadAll() ([][]byte, error) {
	wal.mu.Lock()
	defer wal.mu.Unlock()

	records, err := readAll(bytes.NewReader(wal.buffer.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("failed reading in-memory record: %w", err)
	}
	return records, nil
}

// Truncate drops every record.
func (wal *InMemWAL) Truncate() error {
	wal.mu.Lock()
	defer wal.mu.Unlock()

	wal.buffer.Reset()
	return nil
}
