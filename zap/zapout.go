// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package zap

import (
	"math/big"

	"github.com/luxfi/geth/common"
	ethtypes "github.com/luxfi/geth/core/types"

	"github.com/luxfi/zap/contract"
)

// ZapOut unwinds a liquidity position into a single output asset: burn the
// position, swap both withdrawn constituents to the common target, take the
// fee, and deliver the net amount. The same snapshot-and-unwind discipline
// as ZapIn applies.
func (e *Engine) ZapOut(
	state contract.StateDB,
	caller common.Address,
	legA, legB *SwapTx,
	zapTx *ZapOutTx,
	to common.Address,
	affiliate common.Address,
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
	if err := checkZapOutAmounts(zapTx); err != nil {
		return nil, err
	}
	if err := validateZapOutLegs(legA, legB); err != nil {
		return nil, err
	}

	snap := state.Snapshot()
	fail := func(err error) (*big.Int, error) {
		state.RevertToSnapshot(snap)
		e.unwind()
		return nil, err
	}

	liqRouter, liqFactory, err := e.resolveVenue(state, zapTx.DexIndex)
	if err != nil {
		return fail(err)
	}
	tokenA := e.wrapped(legA.first())
	tokenB := e.wrapped(legB.first())
	pair, err := liqFactory.Pair(tokenA, tokenB)
	if err != nil {
		return fail(ErrInvalidPair)
	}
	if err := validatePairMembership(pair, tokenA, tokenB); err != nil {
		return fail(err)
	}

	// The position token is the pair address. Pull it in and burn it.
	lpToken := pair.PairAddress()
	if err := e.ledger.Transfer(state, lpToken, caller, zapAddr, zapTx.AmountLPFrom); err != nil {
		return fail(err)
	}

	deadline := now + deadlineGrace
	amtA, amtB, err := liqRouter.RemoveLiquidity(
		state, tokenA, tokenB, zapTx.AmountLPFrom,
		big.NewInt(0), big.NewInt(0), zapAddr, deadline)
	if err != nil {
		return fail(err)
	}

	outA, err := e.swapLeg(state, legA, amtA, deadline)
	if err != nil {
		return fail(err)
	}
	outB, err := e.swapLeg(state, legB, amtB, deadline)
	if err != nil {
		return fail(err)
	}
	grossOut := new(big.Int).Add(outA, outB)

	target := legA.last()
	wTarget := e.wrapped(target)
	net, _ := e.computeDeduction(grossOut, caller, affiliate, wTarget, now)
	if net.Cmp(zapTx.AmountTokenToMin) < 0 {
		return fail(ErrInsufficientAmountOut)
	}

	// Deliver. Native targets are handed over as wrapper first and unwrapped
	// in the recipient's hands.
	if err := e.ledger.Transfer(state, wTarget, zapAddr, to, net); err != nil {
		return fail(err)
	}
	if IsNativeToken(target) {
		if err := e.ledger.Withdraw(state, wTarget, to, net); err != nil {
			return fail(err)
		}
	}

	state.AddLog(&ethtypes.Log{
		Address: zapAddr,
		Topics:  []common.Hash{TopicZapOut, addressTopic(caller), addressTopic(lpToken)},
		Data:    append(common.BigToHash(zapTx.AmountLPFrom).Bytes(), common.BigToHash(net).Bytes()...),
	})

	e.seq++
	rec := &ZapOutRecord{
		Sequence:       e.seq,
		Caller:         caller,
		Recipient:      to,
		PairFrom:       lpToken,
		AmountPairFrom: zapTx.AmountLPFrom,
		TokenTo:        target,
		AmountTo:       net,
	}
	if err := e.journal.AppendZapOut(rec); err != nil {
		e.logger.Warn("journal append failed", "seq", e.seq, "err", err)
	}

	e.commit()
	e.logger.Info("zap out", "caller", caller, "to", to, "pair", lpToken,
		"liquidity", zapTx.AmountLPFrom, "amountOut", net)
	return net, nil
}
