// Copyright (C) 2019-2025, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package store caches built trust set collections across runs so that a
// sampler over a large universe is only drawn once per set of parameters.
package store

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/ava-labs/meshtrust"
)

var (
	manifestsBucket = []byte("manifests")
	recordsBucket   = []byte("records")

	ErrNotFound = errors.New("sampler not found")
)

// Key identifies a sampler by the inputs it is a deterministic function of.
type Key string

type keyMaterial struct {
	Nodes      []int64 `cbor:"1,keyasint"`
	Fraction   float64 `cbor:"2,keyasint"`
	MaxSamples int     `cbor:"3,keyasint"`
	Seed       int64   `cbor:"4,keyasint"`
}

// KeyFor derives the cache key of a sampler built over nodes with config.
func KeyFor(nodes meshtrust.NodeIDs, config meshtrust.SamplerConfig) (Key, error) {
	sorted := nodes.Sorted()
	material := keyMaterial{
		Nodes:      make([]int64, len(sorted)),
		Fraction:   config.Fraction,
		MaxSamples: config.MaxSamples,
		Seed:       config.Seed,
	}
	for i, node := range sorted {
		material.Nodes[i] = int64(node)
	}
	encoded, err := encMode.Marshal(material)
	if err != nil {
		return "", fmt.Errorf("failed encoding key material: %w", err)
	}
	digest := sha256.Sum256(encoded)
	return Key(hex.EncodeToString(digest[:])), nil
}

// Manifest describes a cached sampler without loading its trust sets.
type Manifest struct {
	Nodes      int       `cbor:"1,keyasint"`
	Size       int       `cbor:"2,keyasint"`
	Count      int       `cbor:"3,keyasint"`
	Fraction   float64   `cbor:"4,keyasint"`
	MaxSamples int       `cbor:"5,keyasint"`
	Seed       int64     `cbor:"6,keyasint"`
	Exhaustive bool      `cbor:"7,keyasint"`
	StoredAt   time.Time `cbor:"8,keyasint"`
}

// Canonical encoding keeps digests stable across runs.
var encMode, _ = cbor.CanonicalEncOptions().EncMode()

type Store struct {
	db     *bbolt.DB
	logger meshtrust.Logger
}

// Open opens or creates the bolt database at path.
func Open(path string, logger meshtrust.Logger) (*Store, error) {
	if logger == nil {
		logger = meshtrust.NopLogger
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed opening store %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(manifestsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(recordsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed initializing store %s: %w", path, err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Put stores the sampler under key, replacing any previous entry.
func (s *Store) Put(key Key, sampler *meshtrust.Sampler) error {
	config := sampler.Config()
	manifest := Manifest{
		Nodes:      len(sampler.Nodes()),
		Size:       sampler.TrustSetSize(),
		Count:      sampler.Len(),
		Fraction:   config.Fraction,
		MaxSamples: config.MaxSamples,
		Seed:       config.Seed,
		Exhaustive: sampler.Exhaustive(),
		StoredAt:   time.Now().UTC(),
	}
	encoded, err := encMode.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("failed encoding manifest: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(manifestsBucket).Put([]byte(key), encoded); err != nil {
			return err
		}

		records := tx.Bucket(recordsBucket)
		if records.Bucket([]byte(key)) != nil {
			if err := records.DeleteBucket([]byte(key)); err != nil {
				return err
			}
		}
		b, err := records.CreateBucket([]byte(key))
		if err != nil {
			return err
		}
		for i, r := range sampler.Records() {
			if err := b.Put(sequenceKey(uint64(i)), r); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed storing sampler %s: %w", key, err)
	}

	s.logger.Debug("Stored sampler", zap.String("key", string(key)), zap.Int("trustSets", manifest.Count))
	return nil
}

// Get loads the sampler stored under key, or returns ErrNotFound.
func (s *Store) Get(key Key) (*meshtrust.Sampler, error) {
	var records [][]byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(recordsBucket).Bucket([]byte(key))
		if b == nil {
			return ErrNotFound
		}
		// Values are only valid for the life of the transaction.
		return b.ForEach(func(_, v []byte) error {
			records = append(records, append([]byte(nil), v...))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sampler, err := meshtrust.SamplerFromRecords(records)
	if err != nil {
		return nil, fmt.Errorf("failed decoding sampler %s: %w", key, err)
	}
	s.logger.Debug("Loaded sampler", zap.String("key", string(key)), zap.Int("trustSets", sampler.Len()))
	return sampler, nil
}

// Manifest returns the manifest stored under key, or ErrNotFound.
func (s *Store) Manifest(key Key) (Manifest, error) {
	var manifest Manifest
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(manifestsBucket).Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}
		return cbor.Unmarshal(v, &manifest)
	})
	return manifest, err
}

// Keys lists every stored key in byte order.
func (s *Store) Keys() ([]Key, error) {
	var keys []Key
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(manifestsBucket).ForEach(func(k, _ []byte) error {
			keys = append(keys, Key(k))
			return nil
		})
	})
	return keys, err
}

// Delete removes the entry under key. Deleting a missing key is a no-op.
func (s *Store) Delete(key Key) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(manifestsBucket).Delete([]byte(key)); err != nil {
			return err
		}
		records := tx.Bucket(recordsBucket)
		if records.Bucket([]byte(key)) == nil {
			return nil
		}
		return records.DeleteBucket([]byte(key))
	})
}

// LoadOrBuild returns the cached sampler for (nodes, config), building and
// caching it with build on a miss.
func (s *Store) LoadOrBuild(nodes meshtrust.NodeIDs, config meshtrust.SamplerConfig, build func() (*meshtrust.Sampler, error)) (*meshtrust.Sampler, error) {
	key, err := KeyFor(nodes, config)
	if err != nil {
		return nil, err
	}
	sampler, err := s.Get(key)
	if err == nil {
		s.logger.Info("Using cached trust sets", zap.String("key", string(key)), zap.Int("trustSets", sampler.Len()))
		return sampler, nil
	}
	if !errors.Is(err, ErrNotFound) {
		s.logger.Warn("Discarding unreadable cached trust sets", zap.String("key", string(key)), zap.Error(err))
	}

	sampler, err = build()
	if err != nil {
		return nil, err
	}
	if err := s.Put(key, sampler); err != nil {
		return nil, err
	}
	return sampler, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func sequenceKey(i uint64) []byte {
	buff := make([]byte, 8)
	binary.BigEndian.PutUint64(buff, i)
	return buff
}
