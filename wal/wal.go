// Copyright (C) 2019-2025, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wal

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/ava-labs/meshtrust"
)

const (
	// Extension of trust set log files.
	Extension = ".wal"

	walFlags       = os.O_APPEND | os.O_CREATE | os.O_RDWR
	walPermissions = 0o644
)

var _ meshtrust.WriteAheadLog = (*WriteAheadLog)(nil)

// WriteAheadLog is a file backed log of records. Every append is synced to
// disk before it returns.
type WriteAheadLog struct {
	// one writer multiple readers lock
	rwMutex sync.RWMutex
	file    *os.File
	path    string
}

// New opens the log at path, creating it if it does not exist.
func New(path string) (*WriteAheadLog, error) {
	file, err := os.OpenFile(path, walFlags, walPermissions)
	if err != nil {
		return nil, fmt.Errorf("failed opening %s: %w", path, err)
	}
	return &WriteAheadLog{file: file, path: path}, nil
}

func (w *WriteAheadLog) Path() string {
	return w.path
}

func (w *WriteAheadLog) Append(b []byte) error {
	w.rwMutex.Lock()
	defer w.rwMutex.Unlock()

	if err := writeRecord(w.file, b); err != nil {
		return fmt.Errorf("failed writing record: %w", err)
	}
	return w.file.Sync()
}

// ReadAll returns every record in append order. A truncated or corrupt
// record fails the whole read with ErrReadingRecord.
func (w *WriteAheadLog) ReadAll() ([][]byte, error) {
	w.rwMutex.RLock()
	defer w.rwMutex.RUnlock()

	section := io.NewSectionReader(w.file, 0, 1<<62)
	return readAll(bufio.NewReader(section))
}

// Truncate drops every record.
func (w *WriteAheadLog) Truncate() error {
	w.rwMutex.Lock()
	defer w.rwMutex.Unlock()

	if err := w.file.Truncate(0); err != nil {
		return err
	}
	return w.file.Sync()
}

func (w *WriteAheadLog) Close() error {
	w.rwMutex.Lock()
	defer w.rwMutex.Unlock()

	return w.file.Close()
}

// Delete closes the log and removes its file.
func (w *WriteAheadLog) Delete() error {
	if err := w.Close(); err != nil {
		return err
	}
	return os.Remove(w.path)
}
