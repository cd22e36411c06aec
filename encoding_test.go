// Copyright (C) 2019-2025, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package meshtrust_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	. "github.com/ava-labs/meshtrust"
	"github.com/ava-labs/meshtrust/record"
	"github.com/ava-labs/meshtrust/testutil"
	"github.com/ava-labs/meshtrust/wal"
)

func TestTrustSetRecord(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ts := NewTrustSet(drawNodes(t, 1, 32)...)

		buff := ts.Bytes()
		require.Equal(t, record.TrustSetRecordType, binary.BigEndian.Uint16(buff))

		decoded, err := TrustSetFromBytes(buff)
		require.NoError(t, err)
		require.True(t, ts.Equals(decoded))
		require.Equal(t, ts.Members(), decoded.Members())
	})
}

func TestTrustSetRecordErrors(t *testing.T) {
	buff := NewTrustSet(1, 2, 3).Bytes()

	for _, testCase := range []struct {
		name string
		buff []byte
	}{
		{name: "empty", buff: nil},
		{name: "type only", buff: buff[:record.TypeLen]},
		{name: "truncated members", buff: buff[:len(buff)-1]},
		{name: "wrong type", buff: append([]byte{0, byte(record.SamplerHeaderRecordType)}, buff[record.TypeLen:]...)},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := TrustSetFromBytes(testCase.buff)
			require.Error(t, err)
		})
	}
}

func TestSaveLoadSampler(t *testing.T) {
	require := require.New(t)

	config := SamplerConfig{Fraction: 0.5, MaxSamples: 50, Seed: 11}
	sampler, err := NewSampler(testutil.NodeRange(1, 12), config)
	require.NoError(err)

	var log wal.InMemWAL
	require.NoError(SaveSampler(&log, sampler))

	records, err := log.ReadAll()
	require.NoError(err)
	require.Len(records, sampler.Len()+1)

	loaded, err := LoadSampler(&log)
	require.NoError(err)
	require.Equal(config, loaded.Config())
	require.Equal(sampler.Nodes(), loaded.Nodes())
	require.Equal(sampler.TrustSetSize(), loaded.TrustSetSize())
	require.Equal(sampler.TrustSets(), loaded.TrustSets())
	require.False(loaded.Exhaustive())
}

func TestLoadSamplerErrors(t *testing.T) {
	sampler, err := NewSampler(testutil.NodeRange(1, 4), SamplerConfig{Fraction: 0.5, MaxSamples: 10})
	require.NoError(t, err)
	records := sampler.Records()

	t.Run("empty log", func(t *testing.T) {
		_, err := LoadSampler(&wal.InMemWAL{})
		require.ErrorIs(t, err, ErrNoRecords)
	})

	t.Run("missing header", func(t *testing.T) {
		_, err := SamplerFromRecords(records[1:])
		require.Error(t, err)
	})

	t.Run("header size mismatch", func(t *testing.T) {
		mixed := [][]byte{records[0], NewTrustSet(1, 2, 3).Bytes()}
		_, err := SamplerFromRecords(mixed)
		require.Error(t, err)
	})

	t.Run("corrupted trust set", func(t *testing.T) {
		corrupted := append([][]byte{}, records...)
		corrupted[2] = corrupted[2][:5]
		_, err := SamplerFromRecords(corrupted)
		require.Error(t, err)
	})
}

func TestTrustSetsJSON(t *testing.T) {
	require := require.New(t)

	trustSets := []TrustSet{NewTrustSet(3, 1), NewTrustSet(2, 4)}
	data, err := MarshalTrustSets(trustSets)
	require.NoError(err)
	require.JSONEq(`[[1,3],[2,4]]`, string(data))

	decoded, err := UnmarshalTrustSets([]byte(`[[3,1],[2,4],[1,3,3]]`))
	require.NoError(err)
	require.Equal(trustSets[0].Members(), decoded[0].Members())
	require.Equal(trustSets[1].Members(), decoded[1].Members())
	require.Len(decoded, 2)

	_, err = UnmarshalTrustSets([]byte(`{"not": "a list"}`))
	require.Error(err)
}
