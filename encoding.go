// Copyright (C) 2019-2025, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package meshtrust

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/ava-labs/meshtrust/record"
)

// ErrNoRecords is returned when loading a sampler from an empty log.
var ErrNoRecords = errors.New("no sampler records")

var (
	errRecordTooShort = errors.New("record too short")
	errNoHeader       = errors.New("no sampler header record")
)

// Bytes encodes the trust set as a TrustSetRecordType record.
func (ts TrustSet) Bytes() []byte {
	buff := make([]byte, record.TypeLen+record.CountLen+record.NodeIDLen*len(ts.members))
	binary.BigEndian.PutUint16(buff, record.TrustSetRecordType)
	putNodeIDs(buff[record.TypeLen:], ts.members)
	return buff
}

// TrustSetFromBytes decodes a record produced by TrustSet.Bytes.
func TrustSetFromBytes(buff []byte) (TrustSet, error) {
	if err := expectRecordType(buff, record.TrustSetRecordType); err != nil {
		return TrustSet{}, err
	}
	members, _, err := readNodeIDs(buff[record.TypeLen:])
	if err != nil {
		return TrustSet{}, fmt.Errorf("failed decoding trust set: %w", err)
	}
	return NewTrustSet(members...), nil
}

func putNodeIDs(buff []byte, nodes NodeIDs) int {
	binary.BigEndian.PutUint32(buff, uint32(len(nodes)))
	pos := record.CountLen
	for _, node := range nodes {
		binary.BigEndian.PutUint64(buff[pos:], uint64(node))
		pos += record.NodeIDLen
	}
	return pos
}

func readNodeIDs(buff []byte) (NodeIDs, int, error) {
	if len(buff) < record.CountLen {
		return nil, 0, errRecordTooShort
	}
	count := binary.BigEndian.Uint32(buff)
	if count > record.MaxTrustSetSize {
		return nil, 0, fmt.Errorf("record indicates %d nodes", count)
	}
	end := record.CountLen + int(count)*record.NodeIDLen
	if len(buff) < end {
		return nil, 0, errRecordTooShort
	}
	nodes := make(NodeIDs, count)
	for i := range nodes {
		nodes[i] = NodeID(binary.BigEndian.Uint64(buff[record.CountLen+i*record.NodeIDLen:]))
	}
	return nodes, end, nil
}

func expectRecordType(buff []byte, recordType uint16) error {
	if len(buff) < record.TypeLen {
		return errRecordTooShort
	}
	if got := binary.BigEndian.Uint16(buff); got != recordType {
		return fmt.Errorf("expected record type %d, got %d", recordType, got)
	}
	return nil
}

// samplerHeader is the first record of a persisted sampler.
type samplerHeader struct {
	config SamplerConfig
	size   int
	nodes  NodeIDs
}

func (h *samplerHeader) Bytes() []byte {
	const fixedLen = record.TypeLen + 8 + 8 + 8 + 4
	buff := make([]byte, fixedLen+record.CountLen+record.NodeIDLen*len(h.nodes))
	binary.BigEndian.PutUint16(buff, record.SamplerHeaderRecordType)
	binary.BigEndian.PutUint64(buff[2:], math.Float64bits(h.config.Fraction))
	binary.BigEndian.PutUint64(buff[10:], uint64(h.config.MaxSamples))
	binary.BigEndian.PutUint64(buff[18:], uint64(h.config.Seed))
	binary.BigEndian.PutUint32(buff[26:], uint32(h.size))
	putNodeIDs(buff[fixedLen:], h.nodes)
	return buff
}

func (h *samplerHeader) FromBytes(buff []byte) error {
	const fixedLen = record.TypeLen + 8 + 8 + 8 + 4
	if err := expectRecordType(buff, record.SamplerHeaderRecordType); err != nil {
		return err
	}
	if len(buff) < fixedLen {
		return errRecordTooShort
	}
	h.config.Fraction = math.Float64frombits(binary.BigEndian.Uint64(buff[2:]))
	h.config.MaxSamples = int(binary.BigEndian.Uint64(buff[10:]))
	h.config.Seed = int64(binary.BigEndian.Uint64(buff[18:]))
	h.size = int(binary.BigEndian.Uint32(buff[26:]))
	nodes, _, err := readNodeIDs(buff[fixedLen:])
	if err != nil {
		return fmt.Errorf("failed decoding sampler universe: %w", err)
	}
	h.nodes = nodes
	return nil
}

// Records encodes the sampler as a header record followed by one record per
// trust set in iteration order.
func (s *Sampler) Records() [][]byte {
	header := samplerHeader{config: s.config, size: s.size, nodes: s.nodes}
	records := make([][]byte, 0, len(s.trustSets)+1)
	records = append(records, header.Bytes())
	for _, ts := range s.trustSets {
		records = append(records, ts.Bytes())
	}
	return records
}

// SamplerFromRecords rebuilds a sampler from the output of Records.
func SamplerFromRecords(records [][]byte) (*Sampler, error) {
	if len(records) == 0 {
		return nil, ErrNoRecords
	}
	var header samplerHeader
	if err := header.FromBytes(records[0]); err != nil {
		return nil, fmt.Errorf("%w: %w", errNoHeader, err)
	}
	trustSets, err := trustSetsFromRecords(records[1:])
	if err != nil {
		return nil, err
	}
	s, err := FromTrustSets(header.nodes, trustSets)
	if err != nil {
		return nil, err
	}
	if s.size != header.size {
		return nil, fmt.Errorf("header declares trust sets of size %d, records hold size %d", header.size, s.size)
	}
	s.config = header.config
	return s, nil
}

func trustSetsFromRecords(records [][]byte) ([]TrustSet, error) {
	trustSets := make([]TrustSet, 0, len(records))
	for i, r := range records {
		ts, err := TrustSetFromBytes(r)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		trustSets = append(trustSets, ts)
	}
	return trustSets, nil
}

// SaveSampler appends the sampler's records to the log.
func SaveSampler(w WriteAheadLog, s *Sampler) error {
	for _, r := range s.Records() {
		if err := w.Append(r); err != nil {
			return fmt.Errorf("failed appending sampler record: %w", err)
		}
	}
	return nil
}

// LoadSampler reads back a sampler written by SaveSampler.
func LoadSampler(w WriteAheadLog) (*Sampler, error) {
	records, err := w.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed reading sampler records: %w", err)
	}
	return SamplerFromRecords(records)
}

// MarshalTrustSets encodes trust sets as a JSON array of node id arrays.
func MarshalTrustSets(trustSets []TrustSet) ([]byte, error) {
	flat := make([][]NodeID, len(trustSets))
	for i, ts := range trustSets {
		flat[i] = ts.Members()
	}
	return json.Marshal(flat)
}

// UnmarshalTrustSets decodes the output of MarshalTrustSets. Duplicate
// trust sets collapse into one, so the result is a set of sets.
func UnmarshalTrustSets(data []byte) ([]TrustSet, error) {
	var flat [][]NodeID
	if err := json.Unmarshal(data, &flat); err != nil {
		return nil, fmt.Errorf("failed decoding trust sets: %w", err)
	}
	seen := make(map[string]struct{}, len(flat))
	trustSets := make([]TrustSet, 0, len(flat))
	for _, members := range flat {
		ts := NewTrustSet(members...)
		if _, exists := seen[ts.Key()]; exists {
			continue
		}
		seen[ts.Key()] = struct{}{}
		trustSets = append(trustSets, ts)
	}
	return trustSets, nil
}
