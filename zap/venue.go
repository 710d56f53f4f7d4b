// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package zap

import (
	"math/big"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/zap/contract"
)

// Router is the swap and liquidity surface of one trading venue. The engine
// delegates all price-forming work here and only checks the returned amounts
// against caller-supplied floors.
type Router interface {
	// FactoryAddress returns the factory paired with this router.
	FactoryAddress() common.Address

	// SwapExactTokensForTokens swaps amountIn of path[0] along path and sends
	// the output to to. It fails if the output would be below amountOutMin.
	SwapExactTokensForTokens(state contract.StateDB, amountIn, amountOutMin *big.Int, path []common.Address, to common.Address, deadline uint64) (*big.Int, error)

	// AddLiquidity deposits up to the desired amounts of both tokens and
	// mints a position to to. Returned amounts are what the venue consumed.
	AddLiquidity(state contract.StateDB, tokenA, tokenB common.Address, amountADesired, amountBDesired, amountAMin, amountBMin *big.Int, to common.Address, deadline uint64) (amountA, amountB, liquidity *big.Int, err error)

	// RemoveLiquidity burns liquidity of the tokenA/tokenB position and sends
	// the withdrawn amounts to to.
	RemoveLiquidity(state contract.StateDB, tokenA, tokenB common.Address, liquidity, amountAMin, amountBMin *big.Int, to common.Address, deadline uint64) (amountA, amountB *big.Int, err error)
}

// Factory resolves token pairs to liquidity positions on one venue.
type Factory interface {
	// Pair returns the position for the ordered-insensitive token pair, or an
	// error if no such position exists on the venue.
	Pair(tokenA, tokenB common.Address) (Pair, error)
}

// Pair is one liquidity position on a venue. Its address doubles as the
// transferable position token.
type Pair interface {
	PairAddress() common.Address
	Token0() common.Address
	Token1() common.Address
	Reserves() (*big.Int, *big.Int)
}

// VenueConnector binds registered router and factory addresses to live venue
// implementations. The registry stores addresses; the connector turns them
// into callable surfaces.
type VenueConnector interface {
	RouterAt(addr common.Address) (Router, error)
	FactoryAt(addr common.Address) (Factory, error)
}
