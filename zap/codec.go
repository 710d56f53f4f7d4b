// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package zap

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/luxfi/geth/common"
)

// Wire layout uses fixed offsets. Amounts are 32-byte big-endian words,
// addresses 20 bytes, venue indices 8 bytes. Swap legs are variable length:
// amount(32) amountMin(32) dexIndex(8) pathLen(1) path(20*n).

const (
	wordLen     = 32
	indexLen    = 8
	swapTxMin   = wordLen + wordLen + indexLen + 1 + common.AddressLength
	maxPathHops = 16
)

// EncodeSwapTx packs one swap leg.
func EncodeSwapTx(tx *SwapTx) []byte {
	buf := make([]byte, 0, swapTxMin+len(tx.Path)*common.AddressLength)
	buf = append(buf, common.BigToHash(tx.Amount).Bytes()...)
	buf = append(buf, common.BigToHash(tx.AmountMin).Bytes()...)
	var idx [indexLen]byte
	binary.BigEndian.PutUint64(idx[:], tx.DexIndex)
	buf = append(buf, idx[:]...)
	buf = append(buf, byte(len(tx.Path)))
	for _, hop := range tx.Path {
		buf = append(buf, hop.Bytes()...)
	}
	return buf
}

// DecodeSwapTx unpacks one swap leg and reports how many bytes it consumed.
func DecodeSwapTx(input []byte) (*SwapTx, int, error) {
	if len(input) < swapTxMin {
		return nil, 0, fmt.Errorf("input too short for swap leg")
	}
	tx := &SwapTx{
		Amount:    new(big.Int).SetBytes(input[0:wordLen]),
		AmountMin: new(big.Int).SetBytes(input[wordLen : 2*wordLen]),
		DexIndex:  binary.BigEndian.Uint64(input[2*wordLen : 2*wordLen+indexLen]),
	}
	off := 2*wordLen + indexLen
	hops := int(input[off])
	off++
	if hops == 0 || hops > maxPathHops {
		return nil, 0, fmt.Errorf("invalid path length %d", hops)
	}
	if len(input) < off+hops*common.AddressLength {
		return nil, 0, fmt.Errorf("input too short for %d path hops", hops)
	}
	tx.Path = make([]common.Address, hops)
	for i := range tx.Path {
		tx.Path[i] = common.BytesToAddress(input[off : off+common.AddressLength])
		off += common.AddressLength
	}
	return tx, off, nil
}

// zapIn payload: nativeValue(32) to(20) affiliate(20) transferResidual(1)
// amountAMin(32) amountBMin(32) amountLPMin(32) dexIndex(8) legA legB.
const zapInFixedLen = wordLen + 2*common.AddressLength + 1 + 3*wordLen + indexLen

// PackZapIn packs a full zap-in call payload, selector excluded.
func PackZapIn(nativeValue *big.Int, to, affiliate common.Address, transferResidual bool, zapTx *ZapInTx, legA, legB *SwapTx) []byte {
	buf := make([]byte, 0, zapInFixedLen+2*swapTxMin)
	buf = append(buf, common.BigToHash(nativeValue).Bytes()...)
	buf = append(buf, to.Bytes()...)
	buf = append(buf, affiliate.Bytes()...)
	if transferResidual {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	buf = append(buf, common.BigToHash(zapTx.AmountAMin).Bytes()...)
	buf = append(buf, common.BigToHash(zapTx.AmountBMin).Bytes()...)
	buf = append(buf, common.BigToHash(zapTx.AmountLPMin).Bytes()...)
	var idx [indexLen]byte
	binary.BigEndian.PutUint64(idx[:], zapTx.DexIndex)
	buf = append(buf, idx[:]...)
	buf = append(buf, EncodeSwapTx(legA)...)
	buf = append(buf, EncodeSwapTx(legB)...)
	return buf
}

func decodeZapIn(input []byte) (nativeValue *big.Int, to, affiliate common.Address, transferResidual bool, zapTx *ZapInTx, legA, legB *SwapTx, err error) {
	if len(input) < zapInFixedLen+2*swapTxMin {
		err = fmt.Errorf("input too short for zapIn")
		return
	}
	off := 0
	nativeValue = new(big.Int).SetBytes(input[off : off+wordLen])
	off += wordLen
	to = common.BytesToAddress(input[off : off+common.AddressLength])
	off += common.AddressLength
	affiliate = common.BytesToAddress(input[off : off+common.AddressLength])
	off += common.AddressLength
	transferResidual = input[off] == 1
	off++
	zapTx = &ZapInTx{
		AmountAMin:  new(big.Int).SetBytes(input[off : off+wordLen]),
		AmountBMin:  new(big.Int).SetBytes(input[off+wordLen : off+2*wordLen]),
		AmountLPMin: new(big.Int).SetBytes(input[off+2*wordLen : off+3*wordLen]),
		DexIndex:    binary.BigEndian.Uint64(input[off+3*wordLen : off+3*wordLen+indexLen]),
	}
	off += 3*wordLen + indexLen

	var used int
	legA, used, err = DecodeSwapTx(input[off:])
	if err != nil {
		return
	}
	off += used
	legB, _, err = DecodeSwapTx(input[off:])
	return
}

// zapOut payload: to(20) affiliate(20) amountLPFrom(32) amountTokenToMin(32)
// dexIndex(8) legA legB.
const zapOutFixedLen = 2*common.AddressLength + 2*wordLen + indexLen

// PackZapOut packs a full zap-out call payload, selector excluded.
func PackZapOut(to, affiliate common.Address, zapTx *ZapOutTx, legA, legB *SwapTx) []byte {
	buf := make([]byte, 0, zapOutFixedLen+2*swapTxMin)
	buf = append(buf, to.Bytes()...)
	buf = append(buf, affiliate.Bytes()...)
	buf = append(buf, common.BigToHash(zapTx.AmountLPFrom).Bytes()...)
	buf = append(buf, common.BigToHash(zapTx.AmountTokenToMin).Bytes()...)
	var idx [indexLen]byte
	binary.BigEndian.PutUint64(idx[:], zapTx.DexIndex)
	buf = append(buf, idx[:]...)
	buf = append(buf, EncodeSwapTx(legA)...)
	buf = append(buf, EncodeSwapTx(legB)...)
	return buf
}

func decodeZapOut(input []byte) (to, affiliate common.Address, zapTx *ZapOutTx, legA, legB *SwapTx, err error) {
	if len(input) < zapOutFixedLen+2*swapTxMin {
		err = fmt.Errorf("input too short for zapOut")
		return
	}
	off := 0
	to = common.BytesToAddress(input[off : off+common.AddressLength])
	off += common.AddressLength
	affiliate = common.BytesToAddress(input[off : off+common.AddressLength])
	off += common.AddressLength
	zapTx = &ZapOutTx{
		AmountLPFrom:     new(big.Int).SetBytes(input[off : off+wordLen]),
		AmountTokenToMin: new(big.Int).SetBytes(input[off+wordLen : off+2*wordLen]),
		DexIndex:         binary.BigEndian.Uint64(input[off+2*wordLen : off+2*wordLen+indexLen]),
	}
	off += 2*wordLen + indexLen

	var used int
	legA, used, err = DecodeSwapTx(input[off:])
	if err != nil {
		return
	}
	off += used
	legB, _, err = DecodeSwapTx(input[off:])
	return
}

// setSupportedDEX payload: index(8) router(20) factory(20) nameLen(1) name.
func PackSetSupportedDEX(index uint64, name string, router, factory common.Address) []byte {
	buf := make([]byte, 0, indexLen+2*common.AddressLength+1+len(name))
	var idx [indexLen]byte
	binary.BigEndian.PutUint64(idx[:], index)
	buf = append(buf, idx[:]...)
	buf = append(buf, router.Bytes()...)
	buf = append(buf, factory.Bytes()...)
	buf = append(buf, byte(len(name)))
	return append(buf, name...)
}

func decodeSetSupportedDEX(input []byte) (index uint64, name string, router, factory common.Address, err error) {
	if len(input) < indexLen+2*common.AddressLength+1 {
		err = fmt.Errorf("input too short for setSupportedDEX")
		return
	}
	index = binary.BigEndian.Uint64(input[:indexLen])
	off := indexLen
	router = common.BytesToAddress(input[off : off+common.AddressLength])
	off += common.AddressLength
	factory = common.BytesToAddress(input[off : off+common.AddressLength])
	off += common.AddressLength
	n := int(input[off])
	off++
	if len(input) < off+n {
		err = fmt.Errorf("input too short for venue name")
		return
	}
	name = string(input[off : off+n])
	return
}

func decodeIndex(input []byte) (uint64, error) {
	if len(input) < indexLen {
		return 0, fmt.Errorf("input too short for venue index")
	}
	return binary.BigEndian.Uint64(input[:indexLen]), nil
}

func decodeAddress(input []byte) (common.Address, error) {
	if len(input) < common.AddressLength {
		return common.Address{}, fmt.Errorf("input too short for address")
	}
	return common.BytesToAddress(input[:common.AddressLength]), nil
}

// setAffiliate payload: affiliate(20) feeBps(8) classFeeBps(8) expiry(8).
func PackSetAffiliate(affiliate common.Address, record AffiliateRecord) []byte {
	buf := make([]byte, common.AddressLength+3*indexLen)
	copy(buf, affiliate.Bytes())
	off := common.AddressLength
	binary.BigEndian.PutUint64(buf[off:], record.FeeBps)
	binary.BigEndian.PutUint64(buf[off+indexLen:], record.ClassFeeBps)
	binary.BigEndian.PutUint64(buf[off+2*indexLen:], record.Expiry)
	return buf
}

func decodeSetAffiliate(input []byte) (common.Address, AffiliateRecord, error) {
	if len(input) < common.AddressLength+3*indexLen {
		return common.Address{}, AffiliateRecord{}, fmt.Errorf("input too short for setAffiliate")
	}
	affiliate := common.BytesToAddress(input[:common.AddressLength])
	off := common.AddressLength
	record := AffiliateRecord{
		FeeBps:      binary.BigEndian.Uint64(input[off : off+indexLen]),
		ClassFeeBps: binary.BigEndian.Uint64(input[off+indexLen : off+2*indexLen]),
		Expiry:      binary.BigEndian.Uint64(input[off+2*indexLen : off+3*indexLen]),
	}
	return affiliate, record, nil
}
