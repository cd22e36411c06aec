// Copyright (C) 2019-2025, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package meshtrust

import (
	"math/rand"

	"github.com/ava-labs/avalanchego/utils/set"
)

// AssignMalicious picks count distinct nodes uniformly at random without
// replacement. The same node universe and seed always yield the same set.
func AssignMalicious(nodes NodeIDs, count int, seed int64) (set.Set[NodeID], error) {
	universe := set.Of(nodes...)
	if count < 0 {
		return nil, configErrorf("malicious count", "must not be negative, got %d", count)
	}
	if count > universe.Len() {
		return nil, configErrorf("malicious count", "%d exceeds the number of nodes %d", count, universe.Len())
	}

	candidates := NodeIDs(universe.List()).Sorted()
	r := rand.New(rand.NewSource(seed))
	// Partial Fisher-Yates: the first count slots end up holding the sample.
	for i := 0; i < count; i++ {
		j := i + r.Intn(len(candidates)-i)
		candidates[i], candidates[j] = candidates[j], candidates[i]
	}

	return set.Of(candidates[:count]...), nil
}

// DefaultMaliciousCount is the largest adversary strictly below a third of
// the population, n/3 - 1, floored at zero.
func DefaultMaliciousCount(n int) int {
	return max(n/3-1, 0)
}

// HonestNodes returns the sorted nodes not in malicious.
func HonestNodes(nodes NodeIDs, malicious set.Set[NodeID]) NodeIDs {
	honest := make(NodeIDs, 0, len(nodes))
	for _, n := range nodes {
		if !malicious.Contains(n) {
			honest = append(honest, n)
		}
	}
	return honest.Sorted()
}
