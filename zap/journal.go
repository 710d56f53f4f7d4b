// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package zap

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"
)

// Journal persists a completion record per zap flow in its own database,
// keyed by sequence number. A nil Journal is a disabled journal; all
// appends become no-ops.
type Journal struct {
	db database.Database
}

var (
	journalSeqKey    = []byte("zseq")
	journalInPrefix  = []byte("zri")
	journalOutPrefix = []byte("zro")
)

// Fixed-width record layout: seq(8) caller(20) recipient(20) asset(20)
// amount(32) pair(20) amount(32).
const journalRecordLen = 8 + 20 + 20 + 20 + 32 + 20 + 32

// NewJournal wraps db as a zap journal.
func NewJournal(db database.Database) *Journal {
	return &Journal{db: db}
}

// LastSequence returns the highest sequence number written so far.
func (j *Journal) LastSequence() uint64 {
	if j == nil || j.db == nil {
		return 0
	}
	raw, err := j.db.Get(journalSeqKey)
	if err != nil || len(raw) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(raw)
}

// AppendZapIn writes a zap-in completion record.
func (j *Journal) AppendZapIn(rec *ZapInRecord) error {
	if j == nil || j.db == nil {
		return nil
	}
	buf := encodeJournalRecord(rec.Sequence, rec.Caller, rec.Recipient,
		rec.TokenFrom, rec.AmountFrom, rec.PairTo, rec.AmountPairTo)
	return j.put(journalInPrefix, rec.Sequence, buf)
}

// AppendZapOut writes a zap-out completion record.
func (j *Journal) AppendZapOut(rec *ZapOutRecord) error {
	if j == nil || j.db == nil {
		return nil
	}
	buf := encodeJournalRecord(rec.Sequence, rec.Caller, rec.Recipient,
		rec.TokenTo, rec.AmountTo, rec.PairFrom, rec.AmountPairFrom)
	return j.put(journalOutPrefix, rec.Sequence, buf)
}

// ZapIn reads back the zap-in record at seq.
func (j *Journal) ZapIn(seq uint64) (*ZapInRecord, error) {
	raw, err := j.get(journalInPrefix, seq)
	if err != nil {
		return nil, err
	}
	s, caller, recipient, asset, amount, pair, pairAmount, err := decodeJournalRecord(raw)
	if err != nil {
		return nil, err
	}
	return &ZapInRecord{
		Sequence:     s,
		Caller:       caller,
		Recipient:    recipient,
		TokenFrom:    asset,
		AmountFrom:   amount,
		PairTo:       pair,
		AmountPairTo: pairAmount,
	}, nil
}

// ZapOut reads back the zap-out record at seq.
func (j *Journal) ZapOut(seq uint64) (*ZapOutRecord, error) {
	raw, err := j.get(journalOutPrefix, seq)
	if err != nil {
		return nil, err
	}
	s, caller, recipient, asset, amount, pair, pairAmount, err := decodeJournalRecord(raw)
	if err != nil {
		return nil, err
	}
	return &ZapOutRecord{
		Sequence:       s,
		Caller:         caller,
		Recipient:      recipient,
		TokenTo:        asset,
		AmountTo:       amount,
		PairFrom:       pair,
		AmountPairFrom: pairAmount,
	}, nil
}

func (j *Journal) put(prefix []byte, seq uint64, buf []byte) error {
	if err := j.db.Put(journalKey(prefix, seq), buf); err != nil {
		return err
	}
	var seqBuf [8]byte
	binary.BigEndian.PutUint64(seqBuf[:], seq)
	return j.db.Put(journalSeqKey, seqBuf[:])
}

func (j *Journal) get(prefix []byte, seq uint64) ([]byte, error) {
	if j == nil || j.db == nil {
		return nil, database.ErrNotFound
	}
	return j.db.Get(journalKey(prefix, seq))
}

func journalKey(prefix []byte, seq uint64) []byte {
	key := make([]byte, 0, len(prefix)+8)
	key = append(key, prefix...)
	var seqBuf [8]byte
	binary.BigEndian.PutUint64(seqBuf[:], seq)
	return append(key, seqBuf[:]...)
}

func encodeJournalRecord(seq uint64, caller, recipient, asset common.Address, amount *big.Int, pair common.Address, pairAmount *big.Int) []byte {
	buf := make([]byte, 0, journalRecordLen)
	var seqBuf [8]byte
	binary.BigEndian.PutUint64(seqBuf[:], seq)
	buf = append(buf, seqBuf[:]...)
	buf = append(buf, caller.Bytes()...)
	buf = append(buf, recipient.Bytes()...)
	buf = append(buf, asset.Bytes()...)
	buf = append(buf, common.BigToHash(amount).Bytes()...)
	buf = append(buf, pair.Bytes()...)
	buf = append(buf, common.BigToHash(pairAmount).Bytes()...)
	return buf
}

func decodeJournalRecord(raw []byte) (seq uint64, caller, recipient, asset common.Address, amount *big.Int, pair common.Address, pairAmount *big.Int, err error) {
	if len(raw) != journalRecordLen {
		err = fmt.Errorf("malformed journal record: %d bytes", len(raw))
		return
	}
	off := 0
	seq = binary.BigEndian.Uint64(raw[off : off+8])
	off += 8
	caller = common.BytesToAddress(raw[off : off+20])
	off += 20
	recipient = common.BytesToAddress(raw[off : off+20])
	off += 20
	asset = common.BytesToAddress(raw[off : off+20])
	off += 20
	amount = new(big.Int).SetBytes(raw[off : off+32])
	off += 32
	pair = common.BytesToAddress(raw[off : off+20])
	off += 20
	pairAmount = new(big.Int).SetBytes(raw[off : off+32])
	return
}
