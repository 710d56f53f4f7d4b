// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package zap

import (
	"math/big"

	"github.com/luxfi/geth/common"
)

// Structural validation of zap requests. Everything here is checked before
// the first state mutation so rejected requests cost nothing to unwind.

// validateZapInLegs checks the two swap legs of a zap in against each other
// and against the native value attached to the call. Both legs must draw
// from the same source asset, both amounts must be set, and the declared
// amounts must sum to a positive gross. When the source is the native
// sentinel the attached value must equal that gross exactly; otherwise no
// value may be attached.
func validateZapInLegs(legA, legB *SwapTx, nativeValue *big.Int) (gross *big.Int, err error) {
	if legA == nil || legB == nil || len(legA.Path) == 0 || len(legB.Path) == 0 {
		return nil, ErrInvalidStartPath
	}
	if legA.Amount == nil || legB.Amount == nil || legA.Amount.Sign() < 0 || legB.Amount.Sign() < 0 {
		return nil, ErrInvalidInputAmount
	}
	if legA.first() != legB.first() {
		return nil, ErrInvalidStartPath
	}

	gross = new(big.Int).Add(legA.Amount, legB.Amount)
	if gross.Sign() <= 0 {
		return nil, ErrInvalidInputAmount
	}

	if nativeValue == nil {
		nativeValue = big.NewInt(0)
	}
	if IsNativeToken(legA.first()) {
		if nativeValue.Cmp(gross) != 0 {
			return nil, ErrInvalidInputAmount
		}
	} else if nativeValue.Sign() != 0 {
		return nil, ErrInvalidInputAmount
	}
	return gross, nil
}

// validateZapOutLegs checks the two swap legs of a zap out. Each leg starts
// at one of the position's constituents and both must end at the same
// target asset.
func validateZapOutLegs(legA, legB *SwapTx) error {
	if legA == nil || legB == nil || len(legA.Path) == 0 || len(legB.Path) == 0 {
		return ErrInvalidStartPath
	}
	if legA.last() != legB.last() {
		return ErrInvalidTargetPath
	}
	return nil
}

// validatePairMembership checks that tokenA and tokenB are exactly the two
// constituents of pair, in either order.
func validatePairMembership(pair Pair, tokenA, tokenB common.Address) error {
	t0, t1 := pair.Token0(), pair.Token1()
	if (tokenA == t0 && tokenB == t1) || (tokenA == t1 && tokenB == t0) {
		return nil
	}
	return ErrInvalidPair
}

// checkZapInAmounts validates the zap-in floor parameters.
func checkZapInAmounts(tx *ZapInTx) error {
	if tx == nil || tx.AmountAMin == nil || tx.AmountBMin == nil || tx.AmountLPMin == nil {
		return ErrInvalidInputAmount
	}
	return nil
}

// checkZapOutAmounts validates the zap-out position size and floor.
func checkZapOutAmounts(tx *ZapOutTx) error {
	if tx == nil || tx.AmountLPFrom == nil || tx.AmountTokenToMin == nil {
		return ErrInvalidInputAmount
	}
	if tx.AmountLPFrom.Sign() <= 0 {
		return ErrInvalidInputAmount
	}
	return nil
}
