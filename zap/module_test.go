// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package zap

import (
	"encoding/binary"
	"math/big"
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"
)

func packInput(selector uint32, payload []byte) []byte {
	input := make([]byte, 4, 4+len(payload))
	binary.BigEndian.PutUint32(input, selector)
	return append(input, payload...)
}

func beUint64(v uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return buf[:]
}

// setupContract builds a contract around a fully wired engine fixture.
func setupContract(t *testing.T) (*ZapContract, *mockAccessibleState, *mockVenue) {
	t.Helper()
	engine, state, venue := setupZapFixture(t)
	acc := &mockAccessibleState{state: state, number: big.NewInt(1), timestamp: 1000}
	return &ZapContract{engine: engine}, acc, venue
}

func TestRunRejectsShortInput(t *testing.T) {
	c, acc, _ := setupContract(t)
	_, remaining, err := c.Run(acc, testUser, zapAddr, []byte{0x01}, GasZapIn, false)
	require.Error(t, err)
	require.Equal(t, GasZapIn, remaining)
}

func TestRunRejectsUnknownSelector(t *testing.T) {
	c, acc, _ := setupContract(t)
	_, _, err := c.Run(acc, testUser, zapAddr, packInput(0xFF000000, nil), GasZapIn, false)
	require.ErrorContains(t, err, "unknown method selector")
}

func TestRunOutOfGas(t *testing.T) {
	c, acc, _ := setupContract(t)
	input := packInput(SelectorToggleActive, nil)
	_, remaining, err := c.Run(acc, testOwner, zapAddr, input, GasAdminOp-1, false)
	require.ErrorContains(t, err, "out of gas")
	require.Equal(t, uint64(0), remaining)
}

func TestRunReadOnlyGuard(t *testing.T) {
	c, acc, _ := setupContract(t)

	_, _, err := c.Run(acc, testOwner, zapAddr, packInput(SelectorToggleActive, nil), GasAdminOp, true)
	require.ErrorContains(t, err, "read-only")

	// The registry read path works in read-only mode.
	ret, remaining, err := c.Run(acc, testUser, zapAddr,
		packInput(SelectorGetSupportedDEX, beUint64(testVenueIndex)), GasLookup, true)
	require.NoError(t, err)
	require.Equal(t, uint64(0), remaining)
	require.Equal(t, routerAddr1, common.BytesToAddress(ret[12:32]))
	require.Equal(t, factoryAddr1, common.BytesToAddress(ret[44:64]))
}

func TestRunRegistryDispatch(t *testing.T) {
	c, acc, venue := setupContract(t)

	router := common.HexToAddress("0x3000000000000000000000000000000000000009")
	factory := common.HexToAddress("0x300000000000000000000000000000000000000A")
	other := newMockVenue("other", router, factory)
	c.engine.SetVenueConnector(newMockConnector(venue, other))
	input := packInput(SelectorSetSupportedDEX, PackSetSupportedDEX(5, "other", router, factory))

	// Non-owner denied, owner accepted.
	_, _, err := c.Run(acc, testUser, zapAddr, input, GasRegistryOp, false)
	require.ErrorIs(t, err, ErrOnlyOwner)
	_, _, err = c.Run(acc, testOwner, zapAddr, input, GasRegistryOp, false)
	require.NoError(t, err)

	d, err := c.engine.GetSupportedDEX(acc.state, 5)
	require.NoError(t, err)
	require.Equal(t, "other", d.Name)

	_, _, err = c.Run(acc, testOwner, zapAddr, packInput(SelectorRemoveDEX, beUint64(5)), GasRegistryOp, false)
	require.NoError(t, err)
	_, err = c.engine.GetSupportedDEX(acc.state, 5)
	require.ErrorIs(t, err, ErrInvalidRouterOrFactory)
}

func TestRunZapInDispatch(t *testing.T) {
	c, acc, venue := setupContract(t)

	amount := million(1)
	fundToken(acc.state, tokenX, testUser, amount)

	legA, legB := zapInLegs(big.NewInt(500_000), big.NewInt(500_000))
	payload := PackZapIn(big.NewInt(0), testRecipient, common.Address{}, true, defaultZapInTx(), legA, legB)

	ret, remaining, err := c.Run(acc, testUser, zapAddr, packInput(SelectorZapIn, payload), GasZapIn, false)
	require.NoError(t, err)
	require.Equal(t, uint64(0), remaining)

	liquidity := new(big.Int).SetBytes(ret)
	require.True(t, liquidity.Sign() > 0)
	require.Equal(t, 0, liquidity.Cmp(venue.ledger.BalanceOf(acc.state, pairAddrXY, testRecipient)))
}

func TestRunZapOutDispatch(t *testing.T) {
	c, acc, venue := setupContract(t)

	p := venue.pairs[pairKeyOf(tokenX, tokenY)]
	position := million(1)
	venue.mintPosition(acc.state, p, testUser, position)

	legA := &SwapTx{Amount: big.NewInt(0), AmountMin: big.NewInt(0), Path: []common.Address{tokenX}, DexIndex: testVenueIndex}
	legB := &SwapTx{Amount: big.NewInt(0), AmountMin: big.NewInt(0), Path: []common.Address{tokenY, tokenX}, DexIndex: testVenueIndex}
	zapTx := &ZapOutTx{AmountLPFrom: position, AmountTokenToMin: big.NewInt(1), DexIndex: testVenueIndex}
	payload := PackZapOut(testRecipient, common.Address{}, zapTx, legA, legB)

	ret, _, err := c.Run(acc, testUser, zapAddr, packInput(SelectorZapOut, payload), GasZapOut, false)
	require.NoError(t, err)
	require.True(t, new(big.Int).SetBytes(ret).Sign() > 0)
}

func TestRunAdminDispatch(t *testing.T) {
	c, acc, _ := setupContract(t)

	_, _, err := c.Run(acc, testOwner, zapAddr,
		packInput(SelectorProposeOwner, testUser.Bytes()), GasAdminOp, false)
	require.NoError(t, err)
	_, _, err = c.Run(acc, testUser, zapAddr, packInput(SelectorAcceptOwner, nil), GasAdminOp, false)
	require.NoError(t, err)
	require.Equal(t, testUser, c.engine.Owner())

	// The fee setter role does not follow ownership.
	_, _, err = c.Run(acc, testUser, zapAddr,
		packInput(SelectorSetProtocolFee, beUint64(250)), GasFeeOp, false)
	require.ErrorIs(t, err, ErrOnlyFeeSetter)
	_, _, err = c.Run(acc, testOwner, zapAddr,
		packInput(SelectorSetProtocolFee, beUint64(250)), GasFeeOp, false)
	require.NoError(t, err)
	require.Equal(t, uint64(250), c.engine.ProtocolFeeBps())
}

func TestRequiredGasBySelector(t *testing.T) {
	c := &ZapContract{}

	require.Equal(t, GasZapIn, c.RequiredGas(packInput(SelectorZapIn, nil)))
	require.Equal(t, GasZapOut, c.RequiredGas(packInput(SelectorZapOut, nil)))
	require.Equal(t, GasRegistryOp, c.RequiredGas(packInput(SelectorSetSupportedDEX, nil)))
	require.Equal(t, GasLookup, c.RequiredGas(packInput(SelectorGetSupportedDEX, nil)))
	require.Equal(t, GasWithdraw, c.RequiredGas(packInput(SelectorWithdrawProtocolRevenue, nil)))
	require.Equal(t, GasAdminOp, c.RequiredGas(packInput(SelectorToggleActive, nil)))
	require.Equal(t, GasZapIn, c.RequiredGas(nil))
}

func TestConfigVerifyAndEqual(t *testing.T) {
	cfg := &Config{InitialFeeBps: BpsDenominator + 1}
	require.ErrorIs(t, cfg.Verify(nil), ErrForbiddenValue)

	a := &Config{InitialOwner: testOwner, NativeCurrencyWrapper: testWrapper, InitialFeeBps: 50}
	require.NoError(t, a.Verify(nil))
	b := &Config{InitialOwner: testOwner, NativeCurrencyWrapper: testWrapper, InitialFeeBps: 50}
	require.True(t, a.Equal(b))
	b.InitialFeeBps = 51
	require.False(t, a.Equal(b))
	require.False(t, a.Equal(nil))
	require.Equal(t, ConfigKey, a.Key())
}

func TestConfiguratorSeedsEngine(t *testing.T) {
	engine := NewEngine(common.Address{}, common.Address{}, nil, NewStateLedger(), nil,
		testLogger())
	engine.applyConfig(&Config{
		InitialOwner:          testOwner,
		NativeCurrencyWrapper: testWrapper,
		InitialFeeBps:         30,
	})

	require.Equal(t, testOwner, engine.Owner())
	require.Equal(t, testOwner, engine.FeeSetter())
	require.Equal(t, testWrapper, engine.NativeWrapper())
	require.Equal(t, uint64(30), engine.ProtocolFeeBps())
}
