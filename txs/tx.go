// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package txs defines the bridge transaction record: the durable unit of
// custody between a source-chain debit and a target-chain credit.
package txs

import (
	"encoding/binary"

	hashing "github.com/luxfi/crypto/hash"
	"github.com/luxfi/ids"
	"github.com/luxfi/math/set"
)

// Status is the lifecycle state of a bridge transaction.
type Status uint8

const (
	// Initiated means custody holds the funds and attestations are being
	// collected. A transaction that never reaches quorum stays Initiated.
	Initiated Status = iota
	// Executed means the recipient has been credited. Terminal.
	Executed
)

func (s Status) String() string {
	switch s {
	case Initiated:
		return "initiated"
	case Executed:
		return "executed"
	default:
		return "unknown"
	}
}

// Tx is a single cross-chain transfer held in bridge custody.
//
// All transfer fields are immutable after creation; only Signers and StatusV
// change, and only through the state registry.
type Tx struct {
	Asset       ids.ID       `serialize:"true" json:"asset"`
	Sender      ids.ShortID  `serialize:"true" json:"sender"`
	Recipient   ids.ShortID  `serialize:"true" json:"recipient"`
	Amount      uint64       `serialize:"true" json:"amount"`
	TargetChain ids.ID       `serialize:"true" json:"targetChain"`
	Nonce       uint64       `serialize:"true" json:"nonce"`
	CreatedAt   int64        `serialize:"true" json:"createdAt"`
	StatusV     Status       `serialize:"true" json:"status"`
	Signers     []ids.NodeID `serialize:"true" json:"signers"`

	// Cached values
	id        ids.ID
	signerSet set.Set[ids.NodeID]
}

// TxID returns the content-derived fingerprint of the transaction. The nonce
// component makes it unique even when every other field repeats.
func (tx *Tx) TxID() ids.ID {
	if tx.id == ids.Empty {
		tx.id = tx.computeID()
	}
	return tx.id
}

func (tx *Tx) computeID() ids.ID {
	preimage := make([]byte, 0, 2*ids.IDLen+2*ids.ShortIDLen+3*8)
	preimage = append(preimage, tx.Asset[:]...)
	preimage = append(preimage, tx.Sender[:]...)
	preimage = append(preimage, tx.Recipient[:]...)
	preimage = binary.BigEndian.AppendUint64(preimage, tx.Amount)
	preimage = append(preimage, tx.TargetChain[:]...)
	preimage = binary.BigEndian.AppendUint64(preimage, tx.Nonce)
	preimage = binary.BigEndian.AppendUint64(preimage, uint64(tx.CreatedAt))
	return ids.ID(hashing.ComputeHash256Array(preimage))
}

// Status returns the lifecycle state.
func (tx *Tx) Status() Status {
	return tx.StatusV
}

// SignatureCount returns the number of distinct validators that have attested.
func (tx *Tx) SignatureCount() int {
	return len(tx.Signers)
}

// SignedBy reports whether nodeID has already attested to this transaction.
func (tx *Tx) SignedBy(nodeID ids.NodeID) bool {
	if tx.signerSet == nil {
		tx.rebuildSignerIndex()
	}
	return tx.signerSet.Contains(nodeID)
}

// AddSigner records an attestation. Callers must have already checked
// SignedBy; the state registry serializes access.
func (tx *Tx) AddSigner(nodeID ids.NodeID) {
	if tx.signerSet == nil {
		tx.rebuildSignerIndex()
	}
	tx.Signers = append(tx.Signers, nodeID)
	tx.signerSet.Add(nodeID)
}

// rebuildSignerIndex restores the membership index after codec decoding,
// which only populates the serialized fields.
func (tx *Tx) rebuildSignerIndex() {
	tx.signerSet = set.NewSet[ids.NodeID](len(tx.Signers))
	for _, nodeID := range tx.Signers {
		tx.signerSet.Add(nodeID)
	}
}

// Copy returns an independent copy of the transaction. The registry hands
// out copies so callers can never mutate stored records.
func (tx *Tx) Copy() *Tx {
	cp := *tx
	cp.Signers = make([]ids.NodeID, len(tx.Signers))
	copy(cp.Signers, tx.Signers)
	cp.signerSet = nil
	return &cp
}
