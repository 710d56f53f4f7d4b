// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package zap

import (
	"math/big"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/zap/contract"
)

// SetProtocolFee sets the protocol fee rate in basis points. Rates above the
// denominator are rejected. Lowering the rate implicitly deactivates any
// affiliate whose rate now exceeds it.
func (e *Engine) SetProtocolFee(caller common.Address, bps uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.feeSetter {
		return ErrOnlyFeeSetter
	}
	if bps > MaxProtocolFeeBps {
		return ErrForbiddenValue
	}
	e.protocolFeeBps = bps
	e.logger.Info("protocol fee set", "bps", bps)
	return nil
}

// ProtocolFeeBps returns the current protocol fee rate.
func (e *Engine) ProtocolFeeBps() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.protocolFeeBps
}

// SetFeeRecipient sets where swept protocol revenue is delivered.
func (e *Engine) SetFeeRecipient(caller, recipient common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.feeSetter {
		return ErrOnlyFeeSetter
	}
	if recipient == (common.Address{}) {
		return ErrZeroAddressInput
	}
	e.feeRecipient = recipient
	e.logger.Info("fee recipient set", "recipient", recipient)
	return nil
}

// SetFeeWhitelist marks or unmarks an account as fee exempt. Owner only;
// the fee setter controls the rate and recipient but not exemptions.
func (e *Engine) SetFeeWhitelist(caller, account common.Address, exempt bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.owner {
		return ErrOnlyOwner
	}
	if exempt {
		e.feeWhitelist[account] = true
	} else {
		delete(e.feeWhitelist, account)
	}
	e.logger.Info("fee whitelist set", "account", account, "exempt", exempt)
	return nil
}

// SetAffiliate assigns or replaces an affiliate record. Owner only. The
// per-affiliate rate may never exceed its class ceiling, and the ceiling
// never exceeds the denominator.
func (e *Engine) SetAffiliate(caller, affiliate common.Address, record AffiliateRecord) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.owner {
		return ErrOnlyOwner
	}
	if affiliate == (common.Address{}) {
		return ErrZeroAddressInput
	}
	if record.ClassFeeBps > BpsDenominator || record.FeeBps > record.ClassFeeBps {
		return ErrForbiddenValue
	}
	e.affiliates[affiliate] = &record
	e.logger.Info("affiliate set", "affiliate", affiliate, "bps", record.FeeBps, "expiry", record.Expiry)
	return nil
}

// Affiliate returns the record assigned to affiliate, if any.
func (e *Engine) Affiliate(affiliate common.Address) (AffiliateRecord, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, ok := e.affiliates[affiliate]
	if !ok {
		return AffiliateRecord{}, false
	}
	return *r, true
}

// AffiliateOwed returns the amount of asset withdrawable by affiliate.
func (e *Engine) AffiliateOwed(affiliate, asset common.Address) *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()

	owed := e.affiliateOwed[affiliate][asset]
	if owed == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(owed)
}

// computeDeduction applies the fee policy to a gross amount denominated in
// asset. It returns the net amount the flow continues with and the amount
// retained by the engine. An active affiliate's carve-out is credited to its
// ledger out of the retained portion. Caller holds the engine lock; all
// ledger mutations are pushed onto the undo log.
func (e *Engine) computeDeduction(gross *big.Int, payer, affiliate, asset common.Address, now uint64) (net, retained *big.Int) {
	if e.feeWhitelist[payer] || e.protocolFeeBps == 0 {
		return new(big.Int).Set(gross), big.NewInt(0)
	}

	retained = bpsCut(gross, e.protocolFeeBps)
	net = new(big.Int).Sub(gross, retained)

	if affiliate != (common.Address{}) {
		record := e.affiliates[affiliate]
		// An affiliate rate above the current protocol rate would carve out
		// more than the fee collected, so such records are dormant.
		if record.active(now) && record.FeeBps <= e.protocolFeeBps && record.FeeBps > 0 {
			e.accrueAffiliate(affiliate, asset, bpsCut(gross, record.FeeBps))
		}
	}
	return net, retained
}

// accrueAffiliate credits cut of asset to the affiliate ledger, recording
// the reversal on the undo log.
func (e *Engine) accrueAffiliate(affiliate, asset common.Address, cut *big.Int) {
	if cut.Sign() == 0 {
		return
	}
	owed := e.affiliateOwed[affiliate]
	if owed == nil {
		owed = make(map[common.Address]*big.Int)
		e.affiliateOwed[affiliate] = owed
	}
	prevOwed := owed[asset]
	if prevOwed == nil {
		prevOwed = big.NewInt(0)
	}
	owed[asset] = new(big.Int).Add(prevOwed, cut)

	prevTotal := e.affiliateTotal[asset]
	if prevTotal == nil {
		prevTotal = big.NewInt(0)
	}
	e.affiliateTotal[asset] = new(big.Int).Add(prevTotal, cut)

	e.record(func() {
		owed[asset] = prevOwed
		e.affiliateTotal[asset] = prevTotal
	})
}

// WithdrawProtocolRevenue sweeps the engine's free balance of asset to the
// fee recipient. Owner only. Free balance is everything the engine holds
// beyond what the affiliate ledger has promised, so retained residual dust
// is swept too.
func (e *Engine) WithdrawProtocolRevenue(state contract.StateDB, caller, asset common.Address) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.owner {
		return nil, ErrOnlyOwner
	}

	held := e.ledger.BalanceOf(state, asset, zapAddr)
	reserved := e.affiliateTotal[asset]
	if reserved != nil {
		held = new(big.Int).Sub(held, reserved)
	}
	if held.Sign() <= 0 {
		return big.NewInt(0), nil
	}
	if err := e.ledger.Transfer(state, asset, zapAddr, e.feeRecipient, held); err != nil {
		return nil, err
	}
	e.logger.Info("protocol revenue withdrawn", "asset", asset, "amount", held, "recipient", e.feeRecipient)
	return held, nil
}

// WithdrawAffiliateRevenue pays out everything owed to the calling affiliate
// in asset. Anyone may call; only their own ledger entry is paid.
func (e *Engine) WithdrawAffiliateRevenue(state contract.StateDB, caller, asset common.Address) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	owed := e.affiliateOwed[caller][asset]
	if owed == nil || owed.Sign() == 0 {
		return big.NewInt(0), nil
	}
	if err := e.ledger.Transfer(state, asset, zapAddr, caller, owed); err != nil {
		return nil, err
	}
	e.affiliateOwed[caller][asset] = big.NewInt(0)
	e.affiliateTotal[asset] = new(big.Int).Sub(e.affiliateTotal[asset], owed)
	e.logger.Info("affiliate revenue withdrawn", "affiliate", caller, "asset", asset, "amount", owed)
	return new(big.Int).Set(owed), nil
}
