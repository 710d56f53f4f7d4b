// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package zap

import (
	"github.com/luxfi/geth/common"
)

// Two-step ownership transfer plus the fee-setter role and the circuit
// breaker. Role mutations never touch the StateDB; they are engine-local.

// ProposeOwner nominates a new owner. The nomination takes effect only when
// the nominee accepts. Proposing the zero address cancels a pending
// nomination.
func (e *Engine) ProposeOwner(caller, nominee common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.owner {
		return ErrOnlyOwner
	}
	e.pendingOwner = nominee
	e.logger.Info("owner proposed", "nominee", nominee)
	return nil
}

// AcceptOwner completes an ownership transfer. Only the pending nominee may
// call.
func (e *Engine) AcceptOwner(caller common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pendingOwner == (common.Address{}) || caller != e.pendingOwner {
		return ErrOnlyPendingOwner
	}
	e.owner = e.pendingOwner
	e.pendingOwner = common.Address{}
	e.logger.Info("owner transferred", "owner", e.owner)
	return nil
}

// TransferFeeSetter hands the fee-setter role to a new address. Only the
// current fee setter may call, and the zero address is rejected so the role
// cannot be burned by accident.
func (e *Engine) TransferFeeSetter(caller, next common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.feeSetter {
		return ErrOnlyFeeSetter
	}
	if next == (common.Address{}) {
		return ErrZeroAddressInput
	}
	e.feeSetter = next
	e.logger.Info("fee setter transferred", "feeSetter", next)
	return nil
}

// ToggleActive flips the circuit breaker. While stopped, zap flows reject
// with ErrTemporarilyPaused; registry, fee, and withdrawal operations keep
// working.
func (e *Engine) ToggleActive(caller common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.owner {
		return ErrOnlyOwner
	}
	e.stopped = !e.stopped
	e.logger.Info("circuit breaker toggled", "stopped", e.stopped)
	return nil
}

// Stopped reports whether zap flows are halted.
func (e *Engine) Stopped() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopped
}

// Owner returns the current owner.
func (e *Engine) Owner() common.Address {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.owner
}

// FeeSetter returns the current fee setter.
func (e *Engine) FeeSetter() common.Address {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.feeSetter
}
