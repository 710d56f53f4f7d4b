// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package zap

import (
	"math/big"

	"github.com/luxfi/geth/common"
	ethtypes "github.com/luxfi/geth/core/types"

	"github.com/luxfi/zap/contract"
)

// ZapIn converts a single input asset into a liquidity position in one
// atomic flow: split the input across two swap legs, swap each leg on its
// declared venue, deposit the pair on the liquidity venue, and mint the
// position to the recipient. On any failure the StateDB reverts to the
// snapshot taken at entry and the in-memory undo log unwinds, so a failed
// zap leaves no trace.
func (e *Engine) ZapIn(
	state contract.StateDB,
	caller common.Address,
	legA, legB *SwapTx,
	zapTx *ZapInTx,
	nativeValue *big.Int,
	to common.Address,
	affiliate common.Address,
	transferResidual bool,
	now uint64,
) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return nil, ErrTemporarilyPaused
	}
	if to == (common.Address{}) {
		return nil, ErrZeroAddressInput
	}
	if err := checkZapInAmounts(zapTx); err != nil {
		return nil, err
	}
	gross, err := validateZapInLegs(legA, legB, nativeValue)
	if err != nil {
		return nil, err
	}

	snap := state.Snapshot()
	fail := func(err error) (*big.Int, error) {
		state.RevertToSnapshot(snap)
		e.unwind()
		return nil, err
	}

	// Resolve the liquidity venue and check the pair up front.
	liqRouter, liqFactory, err := e.resolveVenue(state, zapTx.DexIndex)
	if err != nil {
		return fail(err)
	}
	tokenA := e.wrapped(legA.last())
	tokenB := e.wrapped(legB.last())
	pair, err := liqFactory.Pair(tokenA, tokenB)
	if err != nil {
		return fail(ErrInvalidPair)
	}
	if err := validatePairMembership(pair, tokenA, tokenB); err != nil {
		return fail(err)
	}

	// Funds in. Native input is wrapped first so the rest of the flow only
	// ever sees tokens.
	source := e.wrapped(legA.first())
	if IsNativeToken(legA.first()) {
		if err := e.ledger.Deposit(state, source, caller, gross); err != nil {
			return fail(err)
		}
	}
	if err := e.ledger.Transfer(state, source, caller, zapAddr, gross); err != nil {
		return fail(err)
	}

	// Fee comes off the top; the retained portion simply stays on the
	// engine's balance.
	net, _ := e.computeDeduction(gross, caller, affiliate, source, now)

	// Split the net amount pro rata to the declared leg amounts. Leg B gets
	// the remainder so nothing is lost to truncation.
	netA := new(big.Int).Mul(legA.Amount, net)
	netA.Div(netA, gross)
	netB := new(big.Int).Sub(net, netA)

	deadline := now + deadlineGrace
	outA, err := e.swapLeg(state, legA, netA, deadline)
	if err != nil {
		return fail(err)
	}
	outB, err := e.swapLeg(state, legB, netB, deadline)
	if err != nil {
		return fail(err)
	}

	usedA, usedB, liquidity, err := liqRouter.AddLiquidity(
		state, tokenA, tokenB, outA, outB,
		zapTx.AmountAMin, zapTx.AmountBMin, to, deadline)
	if err != nil {
		return fail(err)
	}
	if liquidity.Cmp(zapTx.AmountLPMin) < 0 {
		return fail(ErrInsufficientAmountOut)
	}

	// Residual leftovers either go back to the caller or stay with the
	// engine to be swept as protocol revenue.
	if transferResidual {
		if err := e.refundResidual(state, tokenA, caller, new(big.Int).Sub(outA, usedA)); err != nil {
			return fail(err)
		}
		if err := e.refundResidual(state, tokenB, caller, new(big.Int).Sub(outB, usedB)); err != nil {
			return fail(err)
		}
	}

	state.AddLog(&ethtypes.Log{
		Address: zapAddr,
		Topics:  []common.Hash{TopicZapIn, addressTopic(caller), addressTopic(pair.PairAddress())},
		Data:    append(common.BigToHash(gross).Bytes(), common.BigToHash(liquidity).Bytes()...),
	})

	e.seq++
	rec := &ZapInRecord{
		Sequence:     e.seq,
		Caller:       caller,
		Recipient:    to,
		TokenFrom:    legA.first(),
		AmountFrom:   gross,
		PairTo:       pair.PairAddress(),
		AmountPairTo: liquidity,
	}
	if err := e.journal.AppendZapIn(rec); err != nil {
		e.logger.Warn("journal append failed", "seq", e.seq, "err", err)
	}

	e.commit()
	e.logger.Info("zap in", "caller", caller, "to", to, "pair", pair.PairAddress(),
		"amountIn", gross, "liquidity", liquidity)
	return liquidity, nil
}

// swapLeg routes amount along one declared leg. Single-element paths pass
// through unswapped since the amount is already in the target asset.
func (e *Engine) swapLeg(state contract.StateDB, leg *SwapTx, amount *big.Int, deadline uint64) (*big.Int, error) {
	if len(leg.Path) == 1 {
		return amount, nil
	}
	router, _, err := e.resolveVenue(state, leg.DexIndex)
	if err != nil {
		return nil, err
	}
	path := e.wrappedPath(leg.Path)
	min := leg.AmountMin
	if min == nil {
		min = big.NewInt(0)
	}
	return router.SwapExactTokensForTokens(state, amount, min, path, zapAddr, deadline)
}

// wrappedPath rewrites sentinel boundaries to the wrapper token.
func (e *Engine) wrappedPath(path []common.Address) []common.Address {
	out := make([]common.Address, len(path))
	for i, hop := range path {
		out[i] = e.wrapped(hop)
	}
	return out
}

func (e *Engine) refundResidual(state contract.StateDB, token, to common.Address, amount *big.Int) error {
	if amount.Sign() <= 0 {
		return nil
	}
	return e.ledger.Transfer(state, token, zapAddr, to, amount)
}
