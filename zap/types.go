// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package zap implements the multi-venue liquidity zap engine precompile.
// Given a single input asset it swaps portions of that asset across one or
// more registered trading venues and deposits the resulting pair into a
// liquidity position in one step (zap in), or unwinds a position back into a
// single output asset (zap out). Around the two orchestrators sit a venue
// registry, a protocol/affiliate fee ledger, and owner/fee-setter access
// control with a circuit breaker.
package zap

import (
	"errors"
	"math/big"

	"github.com/luxfi/geth/common"
	"github.com/zeebo/blake3"

	"github.com/luxfi/zap/registry"
)

// Precompile addresses used by the engine.
var (
	zapAddr         = common.HexToAddress(registry.ZapAddress)
	assetLedgerAddr = common.HexToAddress(registry.AssetLedgerAddress)
)

// Gas costs for zap operations.
const (
	GasZapIn       uint64 = 40_000 // swap both legs + mint position
	GasZapOut      uint64 = 40_000 // burn position + swap both legs
	GasRegistryOp  uint64 = 10_000 // register/remove a venue
	GasFeeOp       uint64 = 5_000  // fee/affiliate/whitelist mutation
	GasWithdraw    uint64 = 15_000 // revenue withdrawal per call
	GasAdminOp     uint64 = 3_000  // ownership/pause transitions
	GasLookup      uint64 = 100    // registry/state reads
	GasTokenMove   uint64 = 2_100  // single ledger transfer
	GasNativeWrap  uint64 = 2_600  // wrap/unwrap native value
	GasVenueSwap   uint64 = 10_000 // one delegated venue swap
	GasLiquidityOp uint64 = 20_000 // delegated add/remove liquidity
)

// Fee arithmetic is fixed-point over a 10000 denominator (basis points).
// No floating point is used anywhere in the engine.
const (
	BpsDenominator = 10000

	// MaxProtocolFeeBps caps the protocol fee rate.
	MaxProtocolFeeBps = BpsDenominator
)

// deadlineGrace is added to the block timestamp when forwarding a deadline
// to venue calls.
const deadlineGrace uint64 = 1200

// NativeToken is the sentinel asset identity denoting the chain's native
// currency at a path boundary. The engine wraps it before routing and
// unwraps on delivery.
var NativeToken = common.Address{}

// IsNativeToken returns true if the asset identity is the native sentinel.
func IsNativeToken(asset common.Address) bool {
	return asset == NativeToken
}

// DEXDescriptor identifies one registered trading venue.
type DEXDescriptor struct {
	Name    string
	Router  common.Address
	Factory common.Address
}

// registered reports whether the descriptor refers to a live venue. A removed
// or never-registered descriptor has a zero factory.
func (d *DEXDescriptor) registered() bool {
	return d != nil && d.Factory != (common.Address{})
}

// SwapTx is one declared swap leg: an amount routed along an explicit path
// through a single registered venue. A path of length one means the amount is
// already denominated in the target asset and passes through unswapped.
type SwapTx struct {
	Amount    *big.Int
	AmountMin *big.Int
	Path      []common.Address
	DexIndex  uint64
}

func (s *SwapTx) first() common.Address { return s.Path[0] }
func (s *SwapTx) last() common.Address  { return s.Path[len(s.Path)-1] }

// ZapInTx carries the liquidity-deposit floors for a zap in.
type ZapInTx struct {
	AmountAMin  *big.Int
	AmountBMin  *big.Int
	AmountLPMin *big.Int
	DexIndex    uint64
}

// ZapOutTx carries the position size and output floor for a zap out.
type ZapOutTx struct {
	AmountLPFrom     *big.Int
	AmountTokenToMin *big.Int
	DexIndex         uint64
}

// AffiliateRecord entitles a referrer to a carve-out of the protocol fee
// until Expiry. FeeBps never exceeds ClassFeeBps (checked at assignment).
type AffiliateRecord struct {
	FeeBps      uint64
	ClassFeeBps uint64
	Expiry      uint64
}

// active reports whether the record accrues at the given timestamp.
func (a *AffiliateRecord) active(now uint64) bool {
	return a != nil && now < a.Expiry
}

// ZapInRecord is the completion record of a zap in.
type ZapInRecord struct {
	Sequence      uint64
	Caller        common.Address
	Recipient     common.Address
	TokenFrom     common.Address
	AmountFrom    *big.Int
	PairTo        common.Address
	AmountPairTo  *big.Int
}

// ZapOutRecord is the completion record of a zap out.
type ZapOutRecord struct {
	Sequence       uint64
	Caller         common.Address
	Recipient      common.Address
	PairFrom       common.Address
	AmountPairFrom *big.Int
	TokenTo        common.Address
	AmountTo       *big.Int
}

// Errors - input validation
var (
	ErrInvalidInputAmount = errors.New("invalid input amount")
	ErrInvalidStartPath   = errors.New("invalid start path")
	ErrInvalidTargetPath  = errors.New("invalid target path")
	ErrInvalidPair        = errors.New("invalid pair")
	ErrZeroAddressInput   = errors.New("zero address input")
)

// Errors - registry
var (
	ErrDexIndexAlreadyUsed    = errors.New("dex index already used")
	ErrInvalidRouterOrFactory = errors.New("invalid router or factory")
)

// Errors - authorization and policy
var (
	ErrOnlyOwner        = errors.New("caller is not the owner")
	ErrOnlyFeeSetter    = errors.New("caller is not the fee setter")
	ErrOnlyPendingOwner = errors.New("caller is not the pending owner")
	ErrForbiddenValue   = errors.New("value out of allowed range")
)

// Errors - operational
var (
	ErrTemporarilyPaused     = errors.New("temporarily paused")
	ErrInsufficientAmountOut = errors.New("insufficient amount out")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrVenueNotConnected     = errors.New("venue not connected")
)

// Event topics, derived by hashing the event signature.
var (
	TopicDEXRegistered = eventTopic("DEXRegistered(uint64,address,address)")
	TopicDEXRemoved    = eventTopic("DEXRemoved(uint64)")
	TopicZapIn         = eventTopic("ZapIn(address,address,address,uint256,address,uint256)")
	TopicZapOut        = eventTopic("ZapOut(address,address,address,uint256,address,uint256)")
)

func eventTopic(signature string) common.Hash {
	h := blake3.New()
	h.Write([]byte(signature))
	var topic common.Hash
	h.Digest().Read(topic[:])
	return topic
}

// makeStorageKey creates a storage key from prefix and identifier.
func makeStorageKey(prefix []byte, id []byte) common.Hash {
	h := blake3.New()
	h.Write(prefix)
	h.Write(id)
	var key common.Hash
	h.Digest().Read(key[:])
	return key
}

// bpsCut returns amount * bps / 10000, truncated toward zero.
func bpsCut(amount *big.Int, bps uint64) *big.Int {
	cut := new(big.Int).Mul(amount, new(big.Int).SetUint64(bps))
	return cut.Div(cut, big.NewInt(BpsDenominator))
}
