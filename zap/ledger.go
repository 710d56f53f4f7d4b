// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package zap

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/tracing"

	"github.com/luxfi/zap/contract"
)

// TokenLedger is the asset custody surface the engine moves funds through.
// Every balance mutation goes through the StateDB so a snapshot revert
// unwinds it together with the rest of the transaction.
type TokenLedger interface {
	BalanceOf(state contract.StateDB, token, holder common.Address) *big.Int
	Transfer(state contract.StateDB, token, from, to common.Address, amount *big.Int) error

	// Deposit wraps native value held by holder into the wrapper token.
	Deposit(state contract.StateDB, wrapper, holder common.Address, amount *big.Int) error
	// Withdraw unwraps wrapper tokens held by holder back into native value.
	Withdraw(state contract.StateDB, wrapper, holder common.Address, amount *big.Int) error
}

var balancePrefix = []byte("bal")

// StateLedger keeps token balances in the asset ledger precompile's storage.
// One slot per (token, holder) pair, keyed by hashing both identities.
type StateLedger struct{}

// NewStateLedger returns the storage-backed ledger.
func NewStateLedger() *StateLedger { return &StateLedger{} }

func balanceKey(token, holder common.Address) common.Hash {
	id := make([]byte, 0, 2*common.AddressLength)
	id = append(id, token.Bytes()...)
	id = append(id, holder.Bytes()...)
	return makeStorageKey(balancePrefix, id)
}

// BalanceOf returns holder's balance of token.
func (l *StateLedger) BalanceOf(state contract.StateDB, token, holder common.Address) *big.Int {
	return state.GetState(assetLedgerAddr, balanceKey(token, holder)).Big()
}

func (l *StateLedger) setBalance(state contract.StateDB, token, holder common.Address, amount *big.Int) {
	state.SetState(assetLedgerAddr, balanceKey(token, holder), common.BigToHash(amount))
}

// Transfer moves amount of token from one holder to another.
func (l *StateLedger) Transfer(state contract.StateDB, token, from, to common.Address, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	fromBal := l.BalanceOf(state, token, from)
	if fromBal.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	l.setBalance(state, token, from, new(big.Int).Sub(fromBal, amount))
	toBal := l.BalanceOf(state, token, to)
	l.setBalance(state, token, to, new(big.Int).Add(toBal, amount))
	return nil
}

// Deposit burns native value from holder's account balance and credits an
// equal amount of the wrapper token.
func (l *StateLedger) Deposit(state contract.StateDB, wrapper, holder common.Address, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	value, overflow := uint256.FromBig(amount)
	if overflow {
		return ErrInvalidInputAmount
	}
	if state.GetBalance(holder).Cmp(value) < 0 {
		return ErrInsufficientBalance
	}
	state.SubBalance(holder, value, tracing.BalanceChangeTransfer)
	bal := l.BalanceOf(state, wrapper, holder)
	l.setBalance(state, wrapper, holder, new(big.Int).Add(bal, amount))
	return nil
}

// Withdraw burns wrapper tokens held by holder and credits an equal amount
// of native value to the account balance.
func (l *StateLedger) Withdraw(state contract.StateDB, wrapper, holder common.Address, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	bal := l.BalanceOf(state, wrapper, holder)
	if bal.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	value, overflow := uint256.FromBig(amount)
	if overflow {
		return ErrInvalidInputAmount
	}
	l.setBalance(state, wrapper, holder, new(big.Int).Sub(bal, amount))
	state.AddBalance(holder, value, tracing.BalanceChangeTransfer)
	return nil
}
