// Copyright (C) 2019-2025, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wal

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc64"
	"io"
)

const (
	recordSizeLen     = 4
	recordChecksumLen = 8

	// maxRecordSize bounds the payload length a reader trusts from disk.
	maxRecordSize = 1 << 28
)

var (
	ErrInvalidCRC    = errors.New("invalid CRC checksum")
	ErrReadingRecord = errors.New("failed reading record")

	crcTable = crc64.MakeTable(crc64.ECMA)
)

// writeRecord writes a length-prefixed and check-summed record to the writer.
// The checksum covers both the size prefix and the payload.
func writeRecord(w io.Writer, payload []byte) error {
	buff := make([]byte, recordSizeLen+len(payload)+recordChecksumLen)
	binary.BigEndian.PutUint32(buff, uint32(len(payload)))
	copy(buff[recordSizeLen:], payload)

	checksum := crc64.Checksum(buff[:recordSizeLen+len(payload)], crcTable)
	binary.BigEndian.PutUint64(buff[recordSizeLen+len(payload):], checksum)

	_, err := w.Write(buff)
	return err
}

// readRecord reads a record written by writeRecord.
// It returns io.EOF only when the reader is exhausted at a record boundary.
func readRecord(r io.Reader, maxSize uint32) ([]byte, error) {
	sizeBuff := make([]byte, recordSizeLen)
	if _, err := io.ReadFull(r, sizeBuff); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: %w", ErrReadingRecord, err)
	}

	payloadLen := binary.BigEndian.Uint32(sizeBuff)
	if payloadLen > maxSize {
		return nil, fmt.Errorf("%w: record indicates payload is %d bytes long", ErrReadingRecord, payloadLen)
	}

	rest := make([]byte, int(payloadLen)+recordChecksumLen)
	if _, err := io.ReadFull(r, rest); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadingRecord, io.ErrUnexpectedEOF)
	}
	payload := rest[:payloadLen]

	crc := crc64.New(crcTable)
	_, _ = crc.Write(sizeBuff)
	_, _ = crc.Write(payload)
	if !bytes.Equal(rest[payloadLen:], crc.Sum(nil)) {
		return nil, fmt.Errorf("%w: %w", ErrReadingRecord, ErrInvalidCRC)
	}
	return payload, nil
}

// readAll decodes consecutive records until the reader is exhausted.
func readAll(r io.Reader) ([][]byte, error) {
	var records [][]byte
	for {
		payload, err := readRecord(r, maxRecordSize)
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		records = append(records, payload)
	}
}
