// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package state implements the durable transaction registry: every bridge
// transaction ever created, keyed by its content-derived fingerprint, with
// its signature accumulation state. Records are never deleted; the registry
// is the bridge's audit trail.
package state

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/luxfi/cache"
	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/math/set"

	"github.com/luxfi/bridge/txs"
)

const txCacheSize = 2048

var (
	ErrTxNotFound        = errors.New("transaction not found")
	ErrTxExecuted        = errors.New("transaction already executed")
	ErrAlreadySigned     = errors.New("validator already signed")
	ErrExecutionInFlight = errors.New("execution already in flight")

	// ErrDuplicateTx indicates a fingerprint collision. The nonce component
	// makes this unreachable unless the identifier scheme is broken, so it
	// must be treated as fatal rather than retried.
	ErrDuplicateTx = errors.New("duplicate transaction fingerprint")

	errWrongCodecVersion = errors.New("wrong codec version")

	txPrefix    = []byte("tx")
	noncePrefix = []byte("nonce")
	nonceKey    = []byte("current")
)

// Registry owns all bridge transaction records. Callers only ever see copies;
// all mutation goes through RecordSignature / MarkExecuted under the registry
// lock, which is what makes signature accumulation atomic.
type Registry struct {
	mu sync.RWMutex

	txDB    database.Database
	nonceDB database.Database

	// Caches fingerprint -> decoded record. The database remains the source
	// of truth; cached records are the canonical in-memory instances.
	txCache *cache.LRU[ids.ID, *txs.Tx]

	// In-flight execution claims. Not persisted: a claim only exists for the
	// duration of a single credit attempt.
	executing set.Set[ids.ID]

	nonce    uint64
	total    uint64
	executed uint64

	log log.Logger

	// now is replaceable by tests to pin transaction creation times.
	now func() time.Time
}

// New opens the registry over db, rehydrating the nonce counter and record
// counts from a previous run.
func New(db database.Database, logger log.Logger) (*Registry, error) {
	r := &Registry{
		txDB:      prefixdb.New(txPrefix, db),
		nonceDB:   prefixdb.New(noncePrefix, db),
		txCache:   &cache.LRU[ids.ID, *txs.Tx]{Size: txCacheSize},
		executing: set.NewSet[ids.ID](8),
		log:       logger,
		now:       time.Now,
	}

	nonceBytes, err := r.nonceDB.Get(nonceKey)
	switch {
	case err == nil:
		r.nonce = binary.BigEndian.Uint64(nonceBytes)
	case errors.Is(err, database.ErrNotFound):
		// Fresh database.
	default:
		return nil, fmt.Errorf("failed to load nonce: %w", err)
	}

	iter := r.txDB.NewIterator()
	defer iter.Release()
	for iter.Next() {
		tx := &txs.Tx{}
		version, err := txs.Codec.Unmarshal(iter.Value(), tx)
		if err != nil {
			return nil, fmt.Errorf("failed to decode stored transaction: %w", err)
		}
		if version != txs.CodecVersion {
			return nil, errWrongCodecVersion
		}
		r.total++
		if tx.Status() == txs.Executed {
			r.executed++
		}
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("failed to scan transactions: %w", err)
	}

	return r, nil
}

// Create allocates the next nonce and stores a new Initiated record with no
// signers. The nonce is persisted before the record so a crash between the
// two can never reuse it.
func (r *Registry) Create(
	asset ids.ID,
	sender ids.ShortID,
	recipient ids.ShortID,
	amount uint64,
	targetChain ids.ID,
) (*txs.Tx, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	nonce := r.nonce + 1
	nonceBytes := binary.BigEndian.AppendUint64(nil, nonce)
	if err := r.nonceDB.Put(nonceKey, nonceBytes); err != nil {
		return nil, fmt.Errorf("failed to persist nonce: %w", err)
	}
	r.nonce = nonce

	tx := &txs.Tx{
		Asset:       asset,
		Sender:      sender,
		Recipient:   recipient,
		Amount:      amount,
		TargetChain: targetChain,
		Nonce:       nonce,
		CreatedAt:   r.now().Unix(),
		StatusV:     txs.Initiated,
	}
	txID := tx.TxID()

	switch has, err := r.txDB.Has(txID[:]); {
	case err != nil:
		return nil, err
	case has:
		r.log.Error("transaction fingerprint collision",
			log.Stringer("txID", txID),
			log.Uint64("nonce", nonce),
		)
		return nil, ErrDuplicateTx
	}

	if err := r.putTx(tx); err != nil {
		return nil, err
	}
	r.total++
	return tx.Copy(), nil
}

// GetTx returns a copy of the record with the given fingerprint.
func (r *Registry) GetTx(txID ids.ID) (*txs.Tx, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tx, err := r.getTx(txID)
	if err != nil {
		return nil, err
	}
	return tx.Copy(), nil
}

// RecordSignature inserts nodeID into the transaction's signer set and
// returns the new signature count. The check and the insert happen under a
// single critical section: two concurrent calls for the same
// (txID, nodeID) yield exactly one success and one ErrAlreadySigned, and
// concurrent calls for different validators are never lost.
func (r *Registry) RecordSignature(txID ids.ID, nodeID ids.NodeID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.getTx(txID)
	if err != nil {
		return 0, err
	}
	if tx.Status() == txs.Executed {
		return 0, ErrTxExecuted
	}
	if tx.SignedBy(nodeID) {
		return 0, ErrAlreadySigned
	}

	tx.AddSigner(nodeID)
	if err := r.putTx(tx); err != nil {
		return 0, err
	}
	return tx.SignatureCount(), nil
}

// ClaimExecution marks txID as having an execution attempt in flight. It is
// the atomic "transition only if currently Initiated" gate: when several
// attestations observe a quorum at once, exactly one caller wins the claim
// and proceeds to move funds.
func (r *Registry) ClaimExecution(txID ids.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.getTx(txID)
	if err != nil {
		return err
	}
	if tx.Status() == txs.Executed {
		return ErrTxExecuted
	}
	if r.executing.Contains(txID) {
		return ErrExecutionInFlight
	}
	r.executing.Add(txID)
	return nil
}

// ReleaseExecution abandons a claim after a failed credit, leaving the
// record Initiated so a later attestation can retry.
func (r *Registry) ReleaseExecution(txID ids.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executing.Remove(txID)
}

// MarkExecuted transitions the record to its terminal state and releases any
// execution claim.
func (r *Registry) MarkExecuted(txID ids.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.getTx(txID)
	if err != nil {
		return err
	}
	if tx.Status() == txs.Executed {
		return ErrTxExecuted
	}

	tx.StatusV = txs.Executed
	if err := r.putTx(tx); err != nil {
		return err
	}
	r.executing.Remove(txID)
	r.executed++
	return nil
}

// Nonce returns the last allocated nonce.
func (r *Registry) Nonce() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nonce
}

// Len returns the total number of records ever created.
func (r *Registry) Len() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.total
}

// PendingCount returns the number of records still awaiting quorum.
func (r *Registry) PendingCount() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.total - r.executed
}

// SetNowFunc overrides the clock used for record creation times. Test hook.
func (r *Registry) SetNowFunc(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// getTx returns the canonical in-memory record. Callers must hold r.mu and
// must not leak the pointer outside the lock.
func (r *Registry) getTx(txID ids.ID) (*txs.Tx, error) {
	if tx, ok := r.txCache.Get(txID); ok {
		return tx, nil
	}

	txBytes, err := r.txDB.Get(txID[:])
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrTxNotFound
	}
	if err != nil {
		return nil, err
	}

	tx := &txs.Tx{}
	version, err := txs.Codec.Unmarshal(txBytes, tx)
	if err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}
	if version != txs.CodecVersion {
		return nil, errWrongCodecVersion
	}

	r.txCache.Put(txID, tx)
	return tx, nil
}

func (r *Registry) putTx(tx *txs.Tx) error {
	txBytes, err := txs.Codec.Marshal(txs.CodecVersion, tx)
	if err != nil {
		return fmt.Errorf("failed to encode transaction: %w", err)
	}
	txID := tx.TxID()
	r.txCache.Put(txID, tx)
	return r.txDB.Put(txID[:], txBytes)
}
