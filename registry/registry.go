// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package registry documents the precompile address scheme for the DEX/Markets
// family and holds the canonical addresses of the zap engine and its
// companion precompiles.
package registry

import (
	"fmt"

	"github.com/luxfi/geth/common"
)

// ============================================================================
// PRECOMPILE ADDRESS SCHEME - Aligned with LP Numbering
// ============================================================================
//
// All native precompiles use trailing-significant 20-byte addresses:
//   Format: 0x0000000000000000000000000000000000PCII
//
// The address ends with the 16-bit LP number (PCII) for easy identification.
//   P nibble = family page (P=9 -> DEX/Markets)
//   C nibble = chain slot
//   II byte  = item within the family
const (
	// Core DEX (LP-9010 series)
	PoolAddress   = "0x0000000000000000000000000000000000009010" // LP-9010 pool manager (singleton AMM)
	OracleAddress = "0x0000000000000000000000000000000000009011" // LP-9011 price aggregation
	RouterAddress = "0x0000000000000000000000000000000000009012" // LP-9012 swap routing

	// Zap engine (LP-9016 series)
	ZapAddress         = "0x0000000000000000000000000000000000009016" // LP-9016 multi-venue zap engine
	AssetLedgerAddress = "0x0000000000000000000000000000000000009017" // LP-9017 fungible asset ledger
)

// addressesByName maps human-readable precompile names to their addresses,
// for tooling and config validation.
var addressesByName = map[string]string{
	"pool":        PoolAddress,
	"oracle":      OracleAddress,
	"router":      RouterAddress,
	"zap":         ZapAddress,
	"assetledger": AssetLedgerAddress,
}

// AddressOf returns the precompile address registered under name.
func AddressOf(name string) (common.Address, error) {
	hexAddr, ok := addressesByName[name]
	if !ok {
		return common.Address{}, fmt.Errorf("no precompile registered under %q", name)
	}
	return common.HexToAddress(hexAddr), nil
}

// Names returns the known precompile names.
func Names() []string {
	names := make([]string, 0, len(addressesByName))
	for name := range addressesByName {
		names = append(names, name)
	}
	return names
}
