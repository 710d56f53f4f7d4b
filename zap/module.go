// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package zap

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/luxfi/geth/common"
	log "github.com/luxfi/log"

	"github.com/luxfi/zap/contract"
	"github.com/luxfi/zap/modules"
	"github.com/luxfi/zap/precompileconfig"
)

var _ contract.Configurator = (*configurator)(nil)
var _ contract.StatefulPrecompiledContract = (*ZapContract)(nil)

// ConfigKey is the key used in json config files to specify this precompile config.
const ConfigKey = "zapConfig"

// ZapPrecompile is the singleton instance.
var ZapPrecompile = &ZapContract{
	engine: NewEngine(common.Address{}, common.Address{}, nil, NewStateLedger(), nil,
		log.NewTestLogger(log.InfoLevel)),
}

// Engine exposes the singleton engine for node-level wiring of the venue
// connector and the journal.
func (c *ZapContract) Engine() *Engine { return c.engine }

// Module is the precompile module.
var Module = modules.Module{
	ConfigKey:    ConfigKey,
	Address:      zapAddr,
	Contract:     ZapPrecompile,
	Configurator: &configurator{},
}

// Method selectors
const (
	SelectorZapIn                    uint32 = 0x01000000 // zapIn(SwapTx,SwapTx,ZapInTx,address,bool)
	SelectorZapOut                   uint32 = 0x02000000 // zapOut(SwapTx,SwapTx,ZapOutTx,address)
	SelectorSetSupportedDEX          uint32 = 0x03000000 // setSupportedDEX(uint64,string,address,address)
	SelectorRemoveDEX                uint32 = 0x04000000 // removeDEX(uint64)
	SelectorGetSupportedDEX          uint32 = 0x05000000 // getSupportedDEX(uint64)
	SelectorSetProtocolFee           uint32 = 0x06000000 // setProtocolFee(uint64)
	SelectorSetFeeRecipient          uint32 = 0x07000000 // setFeeRecipient(address)
	SelectorTransferFeeSetter        uint32 = 0x08000000 // transferFeeSetter(address)
	SelectorSetFeeWhitelist          uint32 = 0x09000000 // setFeeWhitelist(address,bool)
	SelectorSetAffiliate             uint32 = 0x0A000000 // setAffiliate(address,uint64,uint64,uint64)
	SelectorWithdrawProtocolRevenue  uint32 = 0x0B000000 // withdrawProtocolRevenue(address)
	SelectorWithdrawAffiliateRevenue uint32 = 0x0C000000 // withdrawAffiliateRevenue(address)
	SelectorProposeOwner             uint32 = 0x0D000000 // proposeOwner(address)
	SelectorAcceptOwner              uint32 = 0x0E000000 // acceptOwner()
	SelectorToggleActive             uint32 = 0x0F000000 // toggleActive()
)

type configurator struct{}

func init() {
	if err := modules.RegisterModule(Module); err != nil {
		panic(err)
	}
}

func (*configurator) MakeConfig() precompileconfig.Config {
	return new(Config)
}

func (*configurator) Configure(
	chainConfig precompileconfig.ChainConfig,
	cfg precompileconfig.Config,
	state contract.StateDB,
	blockContext contract.ConfigurationBlockContext,
) error {
	config, ok := cfg.(*Config)
	if !ok {
		return fmt.Errorf("expected config type %T, got %T: %v", &Config{}, cfg, cfg)
	}
	ZapPrecompile.engine.applyConfig(config)
	return nil
}

// Config implements the precompileconfig.Config interface.
type Config struct {
	Upgrade               precompileconfig.Upgrade `json:"upgrade,omitempty"`
	InitialOwner          common.Address           `json:"initialOwner,omitempty"`
	NativeCurrencyWrapper common.Address           `json:"nativeCurrencyWrapper,omitempty"`
	InitialFeeBps         uint64                   `json:"initialFeeBps,omitempty"`
}

func (c *Config) Key() string {
	return ConfigKey
}

func (c *Config) Timestamp() *uint64 {
	return c.Upgrade.Timestamp()
}

func (c *Config) IsDisabled() bool {
	return c.Upgrade.Disable
}

func (c *Config) Equal(cfg precompileconfig.Config) bool {
	other, ok := cfg.(*Config)
	if !ok {
		return false
	}
	return c.Upgrade.Equal(&other.Upgrade) &&
		c.InitialOwner == other.InitialOwner &&
		c.NativeCurrencyWrapper == other.NativeCurrencyWrapper &&
		c.InitialFeeBps == other.InitialFeeBps
}

func (c *Config) Verify(chainConfig precompileconfig.ChainConfig) error {
	if c.InitialFeeBps > MaxProtocolFeeBps {
		return ErrForbiddenValue
	}
	return nil
}

// applyConfig seeds engine state at the activation boundary.
func (e *Engine) applyConfig(config *Config) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if config.InitialOwner != (common.Address{}) {
		e.owner = config.InitialOwner
		e.feeSetter = config.InitialOwner
		e.feeRecipient = config.InitialOwner
	}
	if config.NativeCurrencyWrapper != (common.Address{}) {
		e.nativeWrapper = config.NativeCurrencyWrapper
	}
	e.protocolFeeBps = config.InitialFeeBps
}

// ZapContract implements the zap precompile.
type ZapContract struct {
	engine *Engine
}

// Run executes the precompile.
func (c *ZapContract) Run(
	accessibleState contract.AccessibleState,
	caller common.Address,
	addr common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) (ret []byte, remainingGas uint64, err error) {
	if len(input) < 4 {
		return nil, suppliedGas, fmt.Errorf("input too short")
	}

	selector := binary.BigEndian.Uint32(input[:4])
	data := input[4:]

	gas := c.RequiredGas(input)
	if suppliedGas < gas {
		return nil, 0, fmt.Errorf("out of gas")
	}
	remainingGas = suppliedGas - gas

	// getSupportedDEX is the only read path; everything else mutates.
	if readOnly && selector != SelectorGetSupportedDEX {
		return nil, remainingGas, fmt.Errorf("cannot write in read-only mode")
	}

	state := accessibleState.GetStateDB()
	now := accessibleState.GetBlockContext().Timestamp()

	switch selector {
	case SelectorZapIn:
		ret, err = c.runZapIn(state, caller, data, now)
	case SelectorZapOut:
		ret, err = c.runZapOut(state, caller, data, now)
	case SelectorSetSupportedDEX:
		err = c.runSetSupportedDEX(state, caller, data)
	case SelectorRemoveDEX:
		err = c.runRemoveDEX(state, caller, data)
	case SelectorGetSupportedDEX:
		ret, err = c.runGetSupportedDEX(state, data)
	case SelectorSetProtocolFee:
		var bps uint64
		if bps, err = decodeIndex(data); err == nil {
			err = c.engine.SetProtocolFee(caller, bps)
		}
	case SelectorSetFeeRecipient:
		var recipient common.Address
		if recipient, err = decodeAddress(data); err == nil {
			err = c.engine.SetFeeRecipient(caller, recipient)
		}
	case SelectorTransferFeeSetter:
		var next common.Address
		if next, err = decodeAddress(data); err == nil {
			err = c.engine.TransferFeeSetter(caller, next)
		}
	case SelectorSetFeeWhitelist:
		err = c.runSetFeeWhitelist(caller, data)
	case SelectorSetAffiliate:
		var affiliate common.Address
		var record AffiliateRecord
		if affiliate, record, err = decodeSetAffiliate(data); err == nil {
			err = c.engine.SetAffiliate(caller, affiliate, record)
		}
	case SelectorWithdrawProtocolRevenue:
		ret, err = c.runWithdraw(state, caller, data, c.engine.WithdrawProtocolRevenue)
	case SelectorWithdrawAffiliateRevenue:
		ret, err = c.runWithdraw(state, caller, data, c.engine.WithdrawAffiliateRevenue)
	case SelectorProposeOwner:
		var nominee common.Address
		if nominee, err = decodeAddress(data); err == nil {
			err = c.engine.ProposeOwner(caller, nominee)
		}
	case SelectorAcceptOwner:
		err = c.engine.AcceptOwner(caller)
	case SelectorToggleActive:
		err = c.engine.ToggleActive(caller)
	default:
		err = fmt.Errorf("unknown method selector: %x", selector)
	}
	return ret, remainingGas, err
}

func (c *ZapContract) runZapIn(state contract.StateDB, caller common.Address, input []byte, now uint64) ([]byte, error) {
	nativeValue, to, affiliate, transferResidual, zapTx, legA, legB, err := decodeZapIn(input)
	if err != nil {
		return nil, err
	}
	liquidity, err := c.engine.ZapIn(state, caller, legA, legB, zapTx, nativeValue, to, affiliate, transferResidual, now)
	if err != nil {
		return nil, err
	}
	return common.BigToHash(liquidity).Bytes(), nil
}

func (c *ZapContract) runZapOut(state contract.StateDB, caller common.Address, input []byte, now uint64) ([]byte, error) {
	to, affiliate, zapTx, legA, legB, err := decodeZapOut(input)
	if err != nil {
		return nil, err
	}
	amountOut, err := c.engine.ZapOut(state, caller, legA, legB, zapTx, to, affiliate, now)
	if err != nil {
		return nil, err
	}
	return common.BigToHash(amountOut).Bytes(), nil
}

func (c *ZapContract) runSetSupportedDEX(state contract.StateDB, caller common.Address, input []byte) error {
	index, name, router, factory, err := decodeSetSupportedDEX(input)
	if err != nil {
		return err
	}
	return c.engine.SetSupportedDEX(state, caller, index, name, router, factory)
}

func (c *ZapContract) runRemoveDEX(state contract.StateDB, caller common.Address, input []byte) error {
	index, err := decodeIndex(input)
	if err != nil {
		return err
	}
	return c.engine.RemoveDEX(state, caller, index)
}

// runGetSupportedDEX returns router(32) factory(32) name slot(32).
func (c *ZapContract) runGetSupportedDEX(state contract.StateDB, input []byte) ([]byte, error) {
	index, err := decodeIndex(input)
	if err != nil {
		return nil, err
	}
	d, err := c.engine.GetSupportedDEX(state, index)
	if err != nil {
		return nil, err
	}
	result := make([]byte, 0, 3*wordLen)
	result = append(result, addressTopic(d.Router).Bytes()...)
	result = append(result, addressTopic(d.Factory).Bytes()...)
	result = append(result, encodeName(d.Name).Bytes()...)
	return result, nil
}

func (c *ZapContract) runSetFeeWhitelist(caller common.Address, input []byte) error {
	account, err := decodeAddress(input)
	if err != nil {
		return err
	}
	if len(input) < common.AddressLength+1 {
		return fmt.Errorf("input too short for setFeeWhitelist")
	}
	return c.engine.SetFeeWhitelist(caller, account, input[common.AddressLength] == 1)
}

func (c *ZapContract) runWithdraw(
	state contract.StateDB,
	caller common.Address,
	input []byte,
	withdraw func(contract.StateDB, common.Address, common.Address) (*big.Int, error),
) ([]byte, error) {
	asset, err := decodeAddress(input)
	if err != nil {
		return nil, err
	}
	amount, err := withdraw(state, caller, asset)
	if err != nil {
		return nil, err
	}
	return common.BigToHash(amount).Bytes(), nil
}

// RequiredGas returns the gas required for the precompile input.
func (c *ZapContract) RequiredGas(input []byte) uint64 {
	if len(input) < 4 {
		return GasZapIn
	}

	selector := binary.BigEndian.Uint32(input[:4])
	switch selector {
	case SelectorZapIn:
		return GasZapIn
	case SelectorZapOut:
		return GasZapOut
	case SelectorSetSupportedDEX, SelectorRemoveDEX:
		return GasRegistryOp
	case SelectorGetSupportedDEX:
		return GasLookup
	case SelectorSetProtocolFee, SelectorSetFeeRecipient, SelectorSetFeeWhitelist, SelectorSetAffiliate:
		return GasFeeOp
	case SelectorTransferFeeSetter, SelectorProposeOwner, SelectorAcceptOwner, SelectorToggleActive:
		return GasAdminOp
	case SelectorWithdrawProtocolRevenue, SelectorWithdrawAffiliateRevenue:
		return GasWithdraw
	default:
		return GasZapIn
	}
}
