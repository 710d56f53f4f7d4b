// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package contract defines the interfaces a stateful precompile consumes:
// the EVM state it reads and writes, the block context it executes in, and
// the contract/configurator pair the module system wires together.
package contract

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/tracing"
	ethtypes "github.com/luxfi/geth/core/types"

	"github.com/luxfi/zap/precompileconfig"
)

// StateDB is the subset of EVM state access a precompile needs. Snapshot and
// RevertToSnapshot bound an all-or-nothing unit of work: every storage write,
// balance movement, and log emitted after a snapshot is discarded by the
// matching revert.
type StateDB interface {
	GetState(addr common.Address, key common.Hash) common.Hash
	SetState(addr common.Address, key common.Hash, value common.Hash)

	GetBalance(addr common.Address) *uint256.Int
	AddBalance(addr common.Address, amount *uint256.Int, reason tracing.BalanceChangeReason)
	SubBalance(addr common.Address, amount *uint256.Int, reason tracing.BalanceChangeReason)

	Exist(addr common.Address) bool
	CreateAccount(addr common.Address)

	AddLog(log *ethtypes.Log)

	Snapshot() int
	RevertToSnapshot(id int)
}

// BlockContext provides block metadata to a running precompile.
type BlockContext interface {
	Number() *big.Int
	Timestamp() uint64
}

// ConfigurationBlockContext is the block context available while a module is
// being configured at an upgrade boundary.
type ConfigurationBlockContext = BlockContext

// AccessibleState is everything a precompile may touch during Run.
type AccessibleState interface {
	GetStateDB() StateDB
	GetBlockContext() BlockContext
}

// StatefulPrecompiledContract is the interface for executing a precompile.
type StatefulPrecompiledContract interface {
	// Run executes the precompiled contract.
	Run(accessibleState AccessibleState, caller common.Address, addr common.Address,
		input []byte, suppliedGas uint64, readOnly bool) (ret []byte, remainingGas uint64, err error)

	// RequiredGas returns the gas charged for the given input.
	RequiredGas(input []byte) uint64
}

// Configurator updates a precompile's initial state from its parsed config.
type Configurator interface {
	MakeConfig() precompileconfig.Config
	Configure(
		chainConfig precompileconfig.ChainConfig,
		precompileConfig precompileconfig.Config,
		state StateDB,
		blockContext ConfigurationBlockContext,
	) error
}
