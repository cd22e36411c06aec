// Copyright (C) 2019-2025, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package record

// Record types prefix every persisted payload as a big endian uint16.
const (
	UndefinedRecordType uint16 = iota
	// SamplerHeaderRecordType carries the parameters and node universe a
	// collection of trust sets was built from.
	SamplerHeaderRecordType
	TrustSetRecordType
)

const (
	TypeLen   = 2
	CountLen  = 4
	NodeIDLen = 8

	// MaxTrustSetSize bounds the member count a decoder accepts.
	MaxTrustSetSize = 1 << 20
)
