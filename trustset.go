// Copyright (C) 2019-2025, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package meshtrust

import (
	"encoding/binary"
	"slices"

	"github.com/ava-labs/avalanchego/utils/set"
)

// TrustSet is an immutable set of nodes whose collective attestations are
// relied upon to validate a message. Members are kept sorted so that two
// trust sets with the same contents are equal member by member.
type TrustSet struct {
	members NodeIDs
	key     string
}

// NewTrustSet builds a trust set from the given nodes, dropping duplicates.
func NewTrustSet(nodes ...NodeID) TrustSet {
	members := slices.Clone(nodes)
	slices.Sort(members)
	members = slices.Compact(members)
	return TrustSet{members: members, key: trustSetKey(members)}
}

func trustSetKey(members NodeIDs) string {
	buff := make([]byte, 8*len(members))
	for i, m := range members {
		binary.BigEndian.PutUint64(buff[8*i:], uint64(m))
	}
	return string(buff)
}

// Key returns a comparable value identifying the trust set by its contents.
func (ts TrustSet) Key() string {
	return ts.key
}

func (ts TrustSet) Len() int {
	return len(ts.members)
}

// Members returns a sorted copy of the members.
func (ts TrustSet) Members() NodeIDs {
	return slices.Clone(ts.members)
}

func (ts TrustSet) Contains(node NodeID) bool {
	_, found := slices.BinarySearch(ts.members, node)
	return found
}

func (ts TrustSet) Equals(other TrustSet) bool {
	return ts.key == other.key
}

// IsSubsetOf reports whether every member is in nodes.
func (ts TrustSet) IsSubsetOf(nodes set.Set[NodeID]) bool {
	for _, m := range ts.members {
		if !nodes.Contains(m) {
			return false
		}
	}
	return true
}

// IsDisjointFrom reports whether no member is in nodes.
func (ts TrustSet) IsDisjointFrom(nodes set.Set[NodeID]) bool {
	for _, m := range ts.members {
		if nodes.Contains(m) {
			return false
		}
	}
	return true
}

// Difference returns the sorted members that are not in nodes.
func (ts TrustSet) Difference(nodes set.Set[NodeID]) NodeIDs {
	var missing NodeIDs
	for _, m := range ts.members {
		if !nodes.Contains(m) {
			missing = append(missing, m)
		}
	}
	return missing
}

// Compare orders trust sets lexicographically by their sorted members.
func (ts TrustSet) Compare(other TrustSet) int {
	return slices.Compare(ts.members, other.members)
}

func (ts TrustSet) String() string {
	return ts.members.String()
}
