// Copyright (C) 2019-2025, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package meshtrust

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"math/rand"
	"slices"

	"github.com/ava-labs/avalanchego/utils/set"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat/combin"
)

const (
	DefaultTrustSetFraction = 2.0 / 3.0
	DefaultMaxSamples       = 100_000
	DefaultSamplerSeed      = 42

	// cancellation is polled once per this many draws while sampling
	drawsPerCancellationCheck = 1024
)

type SamplerConfig struct {
	// Fraction of the node universe that forms a trust set, in (0, 1].
	Fraction float64
	// MaxSamples caps the number of distinct trust sets materialized.
	MaxSamples int
	// Seed of the random source used when the universe of trust sets
	// is too large to enumerate.
	Seed int64
}

func DefaultSamplerConfig() SamplerConfig {
	return SamplerConfig{
		Fraction:   DefaultTrustSetFraction,
		MaxSamples: DefaultMaxSamples,
		Seed:       DefaultSamplerSeed,
	}
}

// TrustSetSize returns floor(fraction * n).
func TrustSetSize(n int, fraction float64) int {
	return int(math.Floor(fraction * float64(n)))
}

// Sampler is a frozen, ordered collection of distinct trust sets of equal
// size. It stands in for the set of all size-k subsets of the node universe:
// the collection is exhaustive when C(n, k) <= MaxSamples and a seeded
// sample otherwise. A Sampler is read-only after construction and is safe
// for concurrent use.
type Sampler struct {
	nodes      NodeIDs
	config     SamplerConfig
	size       int
	total      *big.Int
	expected   int
	exhaustive bool

	trustSets []TrustSet
	index     map[string]int
}

type samplerOptions struct {
	logger   Logger
	progress Progress
}

type SamplerOption func(*samplerOptions)

func WithSamplerLogger(logger Logger) SamplerOption {
	return func(o *samplerOptions) {
		o.logger = logger
	}
}

func WithSamplerProgress(progress Progress) SamplerOption {
	return func(o *samplerOptions) {
		o.progress = progress
	}
}

func NewSampler(nodes NodeIDs, config SamplerConfig, opts ...SamplerOption) (*Sampler, error) {
	return NewSamplerWithContext(context.Background(), nodes, config, opts...)
}

// NewSamplerWithContext builds a sampler, aborting with the context's error
// if ctx is cancelled while sampling.
func NewSamplerWithContext(ctx context.Context, nodes NodeIDs, config SamplerConfig, opts ...SamplerOption) (*Sampler, error) {
	options := samplerOptions{logger: NopLogger, progress: NoProgress}
	for _, opt := range opts {
		opt(&options)
	}

	universe := NodeIDs(set.Of(nodes...).List()).Sorted()
	n := len(universe)

	if math.IsNaN(config.Fraction) || config.Fraction <= 0 || config.Fraction > 1 {
		return nil, configErrorf("fraction", "must be in (0, 1], got %v", config.Fraction)
	}
	if config.MaxSamples <= 0 {
		return nil, configErrorf("max samples", "must be positive, got %d", config.MaxSamples)
	}
	k := TrustSetSize(n, config.Fraction)
	if k <= 0 {
		return nil, configErrorf("fraction", "%v of %d nodes yields an empty trust set", config.Fraction, n)
	}
	if k > n {
		return nil, configErrorf("fraction", "%v of %d nodes yields trust sets larger than the network", config.Fraction, n)
	}

	total := new(big.Int).Binomial(int64(n), int64(k))

	s := &Sampler{
		nodes:  universe,
		config: config,
		size:   k,
		total:  total,
	}

	if total.IsInt64() && total.Int64() <= int64(config.MaxSamples) {
		s.expected = int(total.Int64())
		s.exhaustive = true
	} else {
		s.expected = config.MaxSamples
	}

	options.logger.Info("Building trust sets",
		zap.Int("nodes", n),
		zap.Int("trustSetSize", k),
		zap.Stringer("totalCombinations", total),
		zap.Int("expectedCombinations", s.expected),
		zap.Bool("exhaustive", s.exhaustive),
		zap.Int64("seed", config.Seed))

	task := options.progress.Start("Building trust sets", int64(s.expected))
	defer task.Done()

	var err error
	if s.exhaustive {
		s.trustSets, err = s.enumerate(ctx, task)
	} else {
		s.trustSets, err = s.sample(ctx, task)
	}
	if err != nil {
		return nil, err
	}

	slices.SortFunc(s.trustSets, TrustSet.Compare)
	s.index = make(map[string]int, len(s.trustSets))
	for i, ts := range s.trustSets {
		s.index[ts.Key()] = i
	}

	options.logger.Debug("Trust sets built", zap.Int("count", len(s.trustSets)))

	return s, nil
}

func (s *Sampler) enumerate(ctx context.Context, task ProgressTask) ([]TrustSet, error) {
	trustSets := make([]TrustSet, 0, s.expected)
	gen := combin.NewCombinationGenerator(len(s.nodes), s.size)
	indices := make([]int, s.size)
	members := make(NodeIDs, s.size)
	for gen.Next() {
		if len(trustSets)%drawsPerCancellationCheck == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		gen.Combination(indices)
		for i, idx := range indices {
			members[i] = s.nodes[idx]
		}
		trustSets = append(trustSets, NewTrustSet(members...))
		task.Advance(1)
	}
	return trustSets, nil
}

// sample draws uniform k-subsets with a seeded source, keeping only subsets
// not already collected, until the expected count is reached.
func (s *Sampler) sample(ctx context.Context, task ProgressTask) ([]TrustSet, error) {
	r := rand.New(rand.NewSource(s.config.Seed))
	perm := slices.Clone(s.nodes)
	seen := make(map[string]struct{}, s.expected)
	trustSets := make([]TrustSet, 0, s.expected)

	for draws := 0; len(trustSets) < s.expected; draws++ {
		if draws%drawsPerCancellationCheck == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		// A partial Fisher-Yates shuffle of any arrangement leaves a uniform
		// k-subset in the first k slots.
		for i := 0; i < s.size; i++ {
			j := i + r.Intn(len(perm)-i)
			perm[i], perm[j] = perm[j], perm[i]
		}

		ts := NewTrustSet(perm[:s.size]...)
		if _, exists := seen[ts.Key()]; exists {
			continue
		}
		seen[ts.Key()] = struct{}{}
		trustSets = append(trustSets, ts)
		task.Advance(1)
	}
	return trustSets, nil
}

// FromTrustSets wraps an already materialized collection, for instance one
// loaded from disk, in a sampler over the given node universe. All trust
// sets must have the same non-zero size. Members are not required to be in
// the universe; that is what the membership check verifies.
func FromTrustSets(nodes NodeIDs, trustSets []TrustSet) (*Sampler, error) {
	if len(trustSets) == 0 {
		return nil, configErrorf("trust sets", "collection is empty")
	}
	universe := NodeIDs(set.Of(nodes...).List()).Sorted()

	k := trustSets[0].Len()
	if k == 0 {
		return nil, configErrorf("trust sets", "contains an empty trust set")
	}

	s := &Sampler{
		nodes: universe,
		size:  k,
		index: make(map[string]int, len(trustSets)),
	}
	for _, ts := range trustSets {
		if ts.Len() != k {
			return nil, configErrorf("trust sets", "mixed sizes %d and %d", k, ts.Len())
		}
		if _, exists := s.index[ts.Key()]; exists {
			continue
		}
		s.index[ts.Key()] = len(s.trustSets)
		s.trustSets = append(s.trustSets, ts)
	}
	slices.SortFunc(s.trustSets, TrustSet.Compare)
	for i, ts := range s.trustSets {
		s.index[ts.Key()] = i
	}

	if k <= len(universe) {
		s.total = new(big.Int).Binomial(int64(len(universe)), int64(k))
	} else {
		s.total = new(big.Int)
	}
	s.expected = len(s.trustSets)
	s.exhaustive = s.total.IsInt64() && s.total.Int64() == int64(s.expected)
	s.config = SamplerConfig{
		Fraction:   float64(k) / float64(max(len(universe), 1)),
		MaxSamples: s.expected,
	}
	return s, nil
}

func (s *Sampler) Nodes() NodeIDs {
	return slices.Clone(s.nodes)
}

func (s *Sampler) Config() SamplerConfig {
	return s.config
}

// TrustSetSize is the common size of every trust set in the collection.
func (s *Sampler) TrustSetSize() int {
	return s.size
}

// TotalCombinations is the exact binomial coefficient C(n, k).
func (s *Sampler) TotalCombinations() *big.Int {
	return new(big.Int).Set(s.total)
}

// ExpectedCombinations is min(MaxSamples, C(n, k)).
func (s *Sampler) ExpectedCombinations() int {
	return s.expected
}

// Exhaustive reports whether the collection holds every size-k subset.
func (s *Sampler) Exhaustive() bool {
	return s.exhaustive
}

func (s *Sampler) Len() int {
	return len(s.trustSets)
}

// At returns the i-th trust set in iteration order.
func (s *Sampler) At(i int) TrustSet {
	return s.trustSets[i]
}

func (s *Sampler) Contains(ts TrustSet) bool {
	_, ok := s.index[ts.Key()]
	return ok
}

// TrustSets returns a copy of the collection in iteration order.
func (s *Sampler) TrustSets() []TrustSet {
	return slices.Clone(s.trustSets)
}

// Cursor returns a new independent view positioned before the first trust set.
func (s *Sampler) Cursor() *Cursor {
	return &Cursor{trustSets: s.trustSets}
}

func (s *Sampler) String() string {
	return fmt.Sprintf("Sampler{nodes: %d, size: %d, total: %s, expected: %d, exhaustive: %t}",
		len(s.nodes), s.size, s.total, s.expected, s.exhaustive)
}

// Cursor is a rewindable view over a sampler's collection. Any number of
// cursors over the same sampler may be live at once; each keeps its own
// position and none mutates the collection.
type Cursor struct {
	trustSets []TrustSet
	pos       int
}

// Next advances the cursor and reports whether a trust set is available.
func (c *Cursor) Next() bool {
	if c.pos >= len(c.trustSets) {
		return false
	}
	c.pos++
	return true
}

// TrustSet returns the trust set the cursor is positioned on.
// It panics if called before Next.
func (c *Cursor) TrustSet() TrustSet {
	if c.pos == 0 {
		panic("meshtrust: TrustSet called before Next")
	}
	return c.trustSets[c.pos-1]
}

// Len returns the number of trust sets not yet visited.
func (c *Cursor) Len() int {
	return len(c.trustSets) - c.pos
}

// Reset rewinds the cursor to before the first trust set.
func (c *Cursor) Reset() {
	c.pos = 0
}
