// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package zap

import (
	"encoding/binary"
	"math/big"
	"sync"

	"github.com/luxfi/geth/common"
	ethtypes "github.com/luxfi/geth/core/types"
	"github.com/luxfi/log"

	"github.com/luxfi/zap/contract"
)

// Storage key prefixes for engine state mirrored into the StateDB.
var (
	dexRouterPrefix  = []byte("dexr")
	dexFactoryPrefix = []byte("dexf")
	dexNamePrefix    = []byte("dexn")
)

// Engine is the singleton zap precompile state. All mutating entry points
// take the engine lock; zap flows additionally snapshot the StateDB and keep
// an undo log for in-memory state so a failed flow leaves no trace.
type Engine struct {
	mu sync.Mutex

	logger log.Logger

	// access control
	owner        common.Address
	pendingOwner common.Address
	feeSetter    common.Address
	feeRecipient common.Address

	// circuit breaker, halts zap flows only
	stopped bool

	// fee policy
	protocolFeeBps uint64
	feeWhitelist   map[common.Address]bool

	// affiliate ledger
	// affiliateOwed:  affiliate -> asset -> withdrawable amount
	// affiliateTotal: asset -> sum owed across all affiliates
	affiliates     map[common.Address]*AffiliateRecord
	affiliateOwed  map[common.Address]map[common.Address]*big.Int
	affiliateTotal map[common.Address]*big.Int

	// venue registry, mirrored into StateDB storage
	dexs map[uint64]*DEXDescriptor

	nativeWrapper common.Address

	connector VenueConnector
	ledger    TokenLedger

	journal *Journal
	seq     uint64

	// undo stack for in-memory mutations of the flow in progress
	undo []func()
}

// NewEngine creates the zap engine. The owner starts as fee setter and fee
// recipient until reassigned.
func NewEngine(owner, nativeWrapper common.Address, connector VenueConnector, ledger TokenLedger, journal *Journal, logger log.Logger) *Engine {
	return &Engine{
		logger:         logger,
		owner:          owner,
		feeSetter:      owner,
		feeRecipient:   owner,
		feeWhitelist:   make(map[common.Address]bool),
		affiliates:     make(map[common.Address]*AffiliateRecord),
		affiliateOwed:  make(map[common.Address]map[common.Address]*big.Int),
		affiliateTotal: make(map[common.Address]*big.Int),
		dexs:           make(map[uint64]*DEXDescriptor),
		nativeWrapper:  nativeWrapper,
		connector:      connector,
		ledger:         ledger,
		journal:        journal,
		seq:            journal.LastSequence(),
	}
}

// =========================================================================
// Undo Log
// =========================================================================

// record pushes an undo closure for an in-memory mutation. Closures run in
// reverse order when the flow in progress fails.
func (e *Engine) record(op func()) {
	e.undo = append(e.undo, op)
}

// unwind reverts all in-memory mutations of the current flow.
func (e *Engine) unwind() {
	for i := len(e.undo) - 1; i >= 0; i-- {
		e.undo[i]()
	}
	e.undo = e.undo[:0]
}

// commit discards the undo log, keeping the mutations.
func (e *Engine) commit() {
	e.undo = e.undo[:0]
}

// =========================================================================
// Venue Registry
// =========================================================================

// SetSupportedDEX registers a venue under index. Only the owner may
// register, the index must be free, neither router nor factory may be the
// zero address, and a connected router must report the registered factory
// as its own.
func (e *Engine) SetSupportedDEX(state contract.StateDB, caller common.Address, index uint64, name string, router, factory common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.owner {
		return ErrOnlyOwner
	}
	if router == (common.Address{}) || factory == (common.Address{}) {
		return ErrZeroAddressInput
	}
	if e.getDEX(state, index).registered() {
		return ErrDexIndexAlreadyUsed
	}
	if e.connector != nil {
		live, err := e.connector.RouterAt(router)
		if err != nil || live.FactoryAddress() != factory {
			return ErrInvalidRouterOrFactory
		}
	}

	e.setDEX(state, index, &DEXDescriptor{Name: name, Router: router, Factory: factory})

	state.AddLog(&ethtypes.Log{
		Address: zapAddr,
		Topics:  []common.Hash{TopicDEXRegistered, indexTopic(index), addressTopic(router)},
		Data:    factory.Bytes(),
	})
	e.logger.Info("venue registered", "index", index, "name", name, "router", router, "factory", factory)
	return nil
}

// RemoveDEX zeroes the registration at index regardless of prior state.
// The index becomes free again.
func (e *Engine) RemoveDEX(state contract.StateDB, caller common.Address, index uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.owner {
		return ErrOnlyOwner
	}

	e.setDEX(state, index, &DEXDescriptor{})

	state.AddLog(&ethtypes.Log{
		Address: zapAddr,
		Topics:  []common.Hash{TopicDEXRemoved, indexTopic(index)},
	})
	e.logger.Info("venue removed", "index", index)
	return nil
}

// GetSupportedDEX returns the descriptor registered at index, or
// ErrInvalidRouterOrFactory if the slot is empty.
func (e *Engine) GetSupportedDEX(state contract.StateDB, index uint64) (DEXDescriptor, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	d := e.getDEX(state, index)
	if !d.registered() {
		return DEXDescriptor{}, ErrInvalidRouterOrFactory
	}
	return *d, nil
}

// getDEX retrieves a venue descriptor, memory cache first then storage.
func (e *Engine) getDEX(state contract.StateDB, index uint64) *DEXDescriptor {
	if d, ok := e.dexs[index]; ok {
		return d
	}

	id := indexBytes(index)
	d := &DEXDescriptor{}
	routerHash := state.GetState(zapAddr, makeStorageKey(dexRouterPrefix, id))
	if routerHash != (common.Hash{}) {
		d.Router = common.BytesToAddress(routerHash[12:])
	}
	factoryHash := state.GetState(zapAddr, makeStorageKey(dexFactoryPrefix, id))
	if factoryHash != (common.Hash{}) {
		d.Factory = common.BytesToAddress(factoryHash[12:])
	}
	nameHash := state.GetState(zapAddr, makeStorageKey(dexNamePrefix, id))
	if nameHash != (common.Hash{}) {
		d.Name = decodeName(nameHash)
	}

	e.dexs[index] = d
	return d
}

// setDEX saves a venue descriptor to the cache and storage.
func (e *Engine) setDEX(state contract.StateDB, index uint64, d *DEXDescriptor) {
	e.dexs[index] = d

	id := indexBytes(index)
	state.SetState(zapAddr, makeStorageKey(dexRouterPrefix, id), common.BytesToHash(d.Router.Bytes()))
	state.SetState(zapAddr, makeStorageKey(dexFactoryPrefix, id), common.BytesToHash(d.Factory.Bytes()))
	state.SetState(zapAddr, makeStorageKey(dexNamePrefix, id), encodeName(d.Name))
}

// resolveVenue loads the descriptor at index and binds it to a live router
// and factory through the connector.
func (e *Engine) resolveVenue(state contract.StateDB, index uint64) (Router, Factory, error) {
	d := e.getDEX(state, index)
	if !d.registered() {
		return nil, nil, ErrInvalidRouterOrFactory
	}
	if e.connector == nil {
		return nil, nil, ErrVenueNotConnected
	}
	router, err := e.connector.RouterAt(d.Router)
	if err != nil {
		return nil, nil, err
	}
	factory, err := e.connector.FactoryAt(d.Factory)
	if err != nil {
		return nil, nil, err
	}
	return router, factory, nil
}

// =========================================================================
// Helpers
// =========================================================================

func indexBytes(index uint64) []byte {
	var id [8]byte
	binary.BigEndian.PutUint64(id[:], index)
	return id[:]
}

func indexTopic(index uint64) common.Hash {
	var topic common.Hash
	binary.BigEndian.PutUint64(topic[24:], index)
	return topic
}

func addressTopic(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

// encodeName packs a venue name into one storage slot, truncated to 31
// bytes with the length in the final byte.
func encodeName(name string) common.Hash {
	var slot common.Hash
	b := []byte(name)
	if len(b) > 31 {
		b = b[:31]
	}
	copy(slot[:31], b)
	slot[31] = byte(len(b))
	return slot
}

func decodeName(slot common.Hash) string {
	n := int(slot[31])
	if n > 31 {
		n = 31
	}
	return string(slot[:n])
}

// wrapped maps the native sentinel to the configured wrapper token, leaving
// other assets unchanged.
func (e *Engine) wrapped(asset common.Address) common.Address {
	if IsNativeToken(asset) {
		return e.nativeWrapper
	}
	return asset
}

// NativeWrapper returns the wrapper token the engine routes native value
// through.
func (e *Engine) NativeWrapper() common.Address {
	return e.nativeWrapper
}

// SetVenueConnector wires the engine to live venues. Called once during node
// startup before the chain processes blocks.
func (e *Engine) SetVenueConnector(c VenueConnector) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.connector = c
}

// SetJournal attaches the completion journal and resumes its sequence.
func (e *Engine) SetJournal(j *Journal) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.journal = j
	if s := j.LastSequence(); s > e.seq {
		e.seq = s
	}
}
