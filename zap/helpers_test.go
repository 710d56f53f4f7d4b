// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package zap

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/tracing"
	ethtypes "github.com/luxfi/geth/core/types"
	log "github.com/luxfi/log"

	"github.com/luxfi/zap/contract"
)

// mockStateDB implements contract.StateDB with deep-copy snapshots so the
// engine's revert discipline can be exercised for real.
type mockStateDB struct {
	storage  map[common.Address]map[common.Hash]common.Hash
	balances map[common.Address]*uint256.Int
	logs     []*ethtypes.Log
	snaps    []*mockSnapshot
}

type mockSnapshot struct {
	storage  map[common.Address]map[common.Hash]common.Hash
	balances map[common.Address]*uint256.Int
	logCount int
}

func newMockStateDB() *mockStateDB {
	return &mockStateDB{
		storage:  make(map[common.Address]map[common.Hash]common.Hash),
		balances: make(map[common.Address]*uint256.Int),
	}
}

func (m *mockStateDB) GetState(addr common.Address, key common.Hash) common.Hash {
	if m.storage[addr] == nil {
		return common.Hash{}
	}
	return m.storage[addr][key]
}

func (m *mockStateDB) SetState(addr common.Address, key, value common.Hash) {
	if m.storage[addr] == nil {
		m.storage[addr] = make(map[common.Hash]common.Hash)
	}
	m.storage[addr][key] = value
}

func (m *mockStateDB) GetBalance(addr common.Address) *uint256.Int {
	if bal, ok := m.balances[addr]; ok {
		return bal.Clone()
	}
	return uint256.NewInt(0)
}

func (m *mockStateDB) AddBalance(addr common.Address, amount *uint256.Int, _ tracing.BalanceChangeReason) {
	if m.balances[addr] == nil {
		m.balances[addr] = uint256.NewInt(0)
	}
	m.balances[addr] = new(uint256.Int).Add(m.balances[addr], amount)
}

func (m *mockStateDB) SubBalance(addr common.Address, amount *uint256.Int, _ tracing.BalanceChangeReason) {
	if m.balances[addr] == nil {
		m.balances[addr] = uint256.NewInt(0)
	}
	m.balances[addr] = new(uint256.Int).Sub(m.balances[addr], amount)
}

func (m *mockStateDB) Exist(common.Address) bool      { return true }
func (m *mockStateDB) CreateAccount(common.Address)   {}
func (m *mockStateDB) AddLog(log *ethtypes.Log)       { m.logs = append(m.logs, log) }
func (m *mockStateDB) Logs() []*ethtypes.Log          { return m.logs }

func (m *mockStateDB) Snapshot() int {
	snap := &mockSnapshot{
		storage:  make(map[common.Address]map[common.Hash]common.Hash, len(m.storage)),
		balances: make(map[common.Address]*uint256.Int, len(m.balances)),
		logCount: len(m.logs),
	}
	for addr, slots := range m.storage {
		cp := make(map[common.Hash]common.Hash, len(slots))
		for k, v := range slots {
			cp[k] = v
		}
		snap.storage[addr] = cp
	}
	for addr, bal := range m.balances {
		snap.balances[addr] = bal.Clone()
	}
	m.snaps = append(m.snaps, snap)
	return len(m.snaps) - 1
}

func (m *mockStateDB) RevertToSnapshot(id int) {
	snap := m.snaps[id]
	m.storage = snap.storage
	m.balances = snap.balances
	m.logs = m.logs[:snap.logCount]
	m.snaps = m.snaps[:id]
}

// mockAccessibleState pairs a mock state with a fixed block context.
type mockAccessibleState struct {
	state     *mockStateDB
	number    *big.Int
	timestamp uint64
}

func (m *mockAccessibleState) GetStateDB() contract.StateDB          { return m.state }
func (m *mockAccessibleState) GetBlockContext() contract.BlockContext { return m }
func (m *mockAccessibleState) Number() *big.Int                       { return m.number }
func (m *mockAccessibleState) Timestamp() uint64                      { return m.timestamp }

// mockVenue is a constant-product AMM living entirely on a StateLedger, so
// every reserve move and position mint is covered by StateDB snapshots. It
// serves as router, factory, and connector in one.
type mockVenue struct {
	name        string
	routerAddr  common.Address
	factoryAddr common.Address
	ledger      *StateLedger
	pairs       map[[2]common.Address]*mockPair
	failSwaps   bool
}

type mockPair struct {
	venue  *mockVenue
	state  contract.StateDB
	addr   common.Address
	token0 common.Address
	token1 common.Address
}

func newMockVenue(name string, router, factory common.Address) *mockVenue {
	return &mockVenue{
		name:        name,
		routerAddr:  router,
		factoryAddr: factory,
		ledger:      NewStateLedger(),
		pairs:       make(map[[2]common.Address]*mockPair),
	}
}

func pairKeyOf(a, b common.Address) [2]common.Address {
	if a.Hex() > b.Hex() {
		a, b = b, a
	}
	return [2]common.Address{a, b}
}

// createPair registers a position and seeds its reserves directly.
func (v *mockVenue) createPair(state contract.StateDB, pairAddr, token0, token1 common.Address, reserve0, reserve1 *big.Int) *mockPair {
	p := &mockPair{venue: v, state: state, addr: pairAddr, token0: token0, token1: token1}
	v.pairs[pairKeyOf(token0, token1)] = p
	v.ledger.setBalance(state, token0, pairAddr, reserve0)
	v.ledger.setBalance(state, token1, pairAddr, reserve1)
	// Seed position supply as the geometric mean of the reserves.
	supply := new(big.Int).Sqrt(new(big.Int).Mul(reserve0, reserve1))
	v.ledger.setBalance(state, pairAddr, pairAddr, supply)
	return p
}

func (v *mockVenue) FactoryAddress() common.Address { return v.factoryAddr }

func (v *mockVenue) Pair(tokenA, tokenB common.Address) (Pair, error) {
	p, ok := v.pairs[pairKeyOf(tokenA, tokenB)]
	if !ok {
		return nil, fmt.Errorf("no pair for %s/%s", tokenA.Hex(), tokenB.Hex())
	}
	return p, nil
}

func (p *mockPair) PairAddress() common.Address { return p.addr }
func (p *mockPair) Token0() common.Address      { return p.token0 }
func (p *mockPair) Token1() common.Address      { return p.token1 }

func (p *mockPair) Reserves() (*big.Int, *big.Int) {
	return p.venue.ledger.BalanceOf(p.state, p.token0, p.addr),
		p.venue.ledger.BalanceOf(p.state, p.token1, p.addr)
}

func (p *mockPair) supply(state contract.StateDB) *big.Int {
	return p.venue.ledger.BalanceOf(state, p.addr, p.addr)
}

// SwapExactTokensForTokens walks the path pair by pair with x*y=k pricing.
// Input is pulled from the recipient, which is always the engine here.
func (v *mockVenue) SwapExactTokensForTokens(state contract.StateDB, amountIn, amountOutMin *big.Int, path []common.Address, to common.Address, deadline uint64) (*big.Int, error) {
	if v.failSwaps {
		return nil, fmt.Errorf("venue swap disabled")
	}
	amount := new(big.Int).Set(amountIn)
	for i := 0; i+1 < len(path); i++ {
		tokenIn, tokenOut := path[i], path[i+1]
		p, ok := v.pairs[pairKeyOf(tokenIn, tokenOut)]
		if !ok {
			return nil, fmt.Errorf("no pair for hop %s/%s", tokenIn.Hex(), tokenOut.Hex())
		}
		rIn := v.ledger.BalanceOf(state, tokenIn, p.addr)
		rOut := v.ledger.BalanceOf(state, tokenOut, p.addr)
		out := new(big.Int).Mul(amount, rOut)
		out.Div(out, new(big.Int).Add(rIn, amount))
		if err := v.ledger.Transfer(state, tokenIn, to, p.addr, amount); err != nil {
			return nil, err
		}
		if err := v.ledger.Transfer(state, tokenOut, p.addr, to, out); err != nil {
			return nil, err
		}
		amount = out
	}
	if amount.Cmp(amountOutMin) < 0 {
		return nil, ErrInsufficientAmountOut
	}
	return amount, nil
}

func (v *mockVenue) AddLiquidity(state contract.StateDB, tokenA, tokenB common.Address, amountADesired, amountBDesired, amountAMin, amountBMin *big.Int, to common.Address, deadline uint64) (*big.Int, *big.Int, *big.Int, error) {
	p, ok := v.pairs[pairKeyOf(tokenA, tokenB)]
	if !ok {
		return nil, nil, nil, fmt.Errorf("no pair for %s/%s", tokenA.Hex(), tokenB.Hex())
	}
	rA := v.ledger.BalanceOf(state, tokenA, p.addr)
	rB := v.ledger.BalanceOf(state, tokenB, p.addr)

	useA := new(big.Int).Set(amountADesired)
	useB := new(big.Int).Set(amountBDesired)
	if rA.Sign() > 0 && rB.Sign() > 0 {
		bOpt := new(big.Int).Mul(amountADesired, rB)
		bOpt.Div(bOpt, rA)
		if bOpt.Cmp(amountBDesired) <= 0 {
			useB = bOpt
		} else {
			useA = new(big.Int).Mul(amountBDesired, rA)
			useA.Div(useA, rB)
		}
	}
	if useA.Cmp(amountAMin) < 0 || useB.Cmp(amountBMin) < 0 {
		return nil, nil, nil, ErrInsufficientAmountOut
	}

	supply := p.supply(state)
	var liquidity *big.Int
	if supply.Sign() == 0 {
		liquidity = new(big.Int).Sqrt(new(big.Int).Mul(useA, useB))
	} else {
		lA := new(big.Int).Mul(useA, supply)
		lA.Div(lA, rA)
		lB := new(big.Int).Mul(useB, supply)
		lB.Div(lB, rB)
		liquidity = lA
		if lB.Cmp(lA) < 0 {
			liquidity = lB
		}
	}

	if err := v.ledger.Transfer(state, tokenA, zapAddr, p.addr, useA); err != nil {
		return nil, nil, nil, err
	}
	if err := v.ledger.Transfer(state, tokenB, zapAddr, p.addr, useB); err != nil {
		return nil, nil, nil, err
	}
	v.mintPosition(state, p, to, liquidity)
	return useA, useB, liquidity, nil
}

func (v *mockVenue) RemoveLiquidity(state contract.StateDB, tokenA, tokenB common.Address, liquidity, amountAMin, amountBMin *big.Int, to common.Address, deadline uint64) (*big.Int, *big.Int, error) {
	p, ok := v.pairs[pairKeyOf(tokenA, tokenB)]
	if !ok {
		return nil, nil, fmt.Errorf("no pair for %s/%s", tokenA.Hex(), tokenB.Hex())
	}
	supply := p.supply(state)
	rA := v.ledger.BalanceOf(state, tokenA, p.addr)
	rB := v.ledger.BalanceOf(state, tokenB, p.addr)

	amtA := new(big.Int).Mul(liquidity, rA)
	amtA.Div(amtA, supply)
	amtB := new(big.Int).Mul(liquidity, rB)
	amtB.Div(amtB, supply)
	if amtA.Cmp(amountAMin) < 0 || amtB.Cmp(amountBMin) < 0 {
		return nil, nil, ErrInsufficientAmountOut
	}

	if err := v.burnPosition(state, p, zapAddr, liquidity); err != nil {
		return nil, nil, err
	}
	if err := v.ledger.Transfer(state, tokenA, p.addr, to, amtA); err != nil {
		return nil, nil, err
	}
	if err := v.ledger.Transfer(state, tokenB, p.addr, to, amtB); err != nil {
		return nil, nil, err
	}
	return amtA, amtB, nil
}

// mintPosition credits holder and grows the supply slot.
func (v *mockVenue) mintPosition(state contract.StateDB, p *mockPair, holder common.Address, amount *big.Int) {
	bal := v.ledger.BalanceOf(state, p.addr, holder)
	v.ledger.setBalance(state, p.addr, holder, new(big.Int).Add(bal, amount))
	if holder != p.addr {
		supply := p.supply(state)
		v.ledger.setBalance(state, p.addr, p.addr, new(big.Int).Add(supply, amount))
	}
}

func (v *mockVenue) burnPosition(state contract.StateDB, p *mockPair, holder common.Address, amount *big.Int) error {
	bal := v.ledger.BalanceOf(state, p.addr, holder)
	if bal.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	v.ledger.setBalance(state, p.addr, holder, new(big.Int).Sub(bal, amount))
	supply := p.supply(state)
	v.ledger.setBalance(state, p.addr, p.addr, new(big.Int).Sub(supply, amount))
	return nil
}

// mockConnector resolves registered addresses to mock venues.
type mockConnector struct {
	routers   map[common.Address]Router
	factories map[common.Address]Factory
}

func newMockConnector(venues ...*mockVenue) *mockConnector {
	c := &mockConnector{
		routers:   make(map[common.Address]Router),
		factories: make(map[common.Address]Factory),
	}
	for _, v := range venues {
		c.routers[v.routerAddr] = v
		c.factories[v.factoryAddr] = v
	}
	return c
}

func (c *mockConnector) RouterAt(addr common.Address) (Router, error) {
	r, ok := c.routers[addr]
	if !ok {
		return nil, ErrVenueNotConnected
	}
	return r, nil
}

func (c *mockConnector) FactoryAt(addr common.Address) (Factory, error) {
	f, ok := c.factories[addr]
	if !ok {
		return nil, ErrVenueNotConnected
	}
	return f, nil
}

// Shared fixture addresses.
var (
	testOwner     = common.HexToAddress("0x1000000000000000000000000000000000000001")
	testUser      = common.HexToAddress("0x1000000000000000000000000000000000000002")
	testRecipient = common.HexToAddress("0x1000000000000000000000000000000000000003")
	testAffiliate = common.HexToAddress("0x1000000000000000000000000000000000000004")
	testWrapper   = common.HexToAddress("0x2000000000000000000000000000000000000001")
	tokenX        = common.HexToAddress("0x2000000000000000000000000000000000000002")
	tokenY        = common.HexToAddress("0x2000000000000000000000000000000000000003")
	routerAddr1   = common.HexToAddress("0x3000000000000000000000000000000000000001")
	factoryAddr1  = common.HexToAddress("0x3000000000000000000000000000000000000002")
	pairAddrXY    = common.HexToAddress("0x4000000000000000000000000000000000000001")
	pairAddrWX    = common.HexToAddress("0x4000000000000000000000000000000000000002")
)

func testLogger() log.Logger {
	return log.NewTestLogger(log.InfoLevel)
}

func newTestEngine(connector VenueConnector) *Engine {
	return NewEngine(testOwner, testWrapper, connector, NewStateLedger(), nil, testLogger())
}

func million(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000))
}
