// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/database/memdb"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/bridge/txs"
)

var (
	testAsset     = ids.ID{'a', 's', 's', 'e', 't'}
	testChain     = ids.ID{'c', 'h', 'a', 'i', 'n'}
	testSender    = ids.ShortID{'s', 'e', 'n', 'd'}
	testRecipient = ids.ShortID{'r', 'e', 'c', 'v'}
)

func newTestRegistry(t *testing.T) *Registry {
	r, err := New(memdb.New(), log.NoLog{})
	require.NoError(t, err)
	return r
}

func create(t *testing.T, r *Registry) ids.ID {
	tx, err := r.Create(testAsset, testSender, testRecipient, 100, testChain)
	require.NoError(t, err)
	return tx.TxID()
}

func TestCreateAllocatesNonces(t *testing.T) {
	require := require.New(t)
	r := newTestRegistry(t)

	require.Zero(r.Nonce())

	tx1, err := r.Create(testAsset, testSender, testRecipient, 100, testChain)
	require.NoError(err)
	tx2, err := r.Create(testAsset, testSender, testRecipient, 100, testChain)
	require.NoError(err)

	require.Equal(uint64(1), tx1.Nonce)
	require.Equal(uint64(2), tx2.Nonce)
	require.Equal(uint64(2), r.Nonce())

	// Identical transfer parameters, distinct fingerprints.
	require.NotEqual(tx1.TxID(), tx2.TxID())

	require.Equal(uint64(2), r.Len())
	require.Equal(uint64(2), r.PendingCount())
}

func TestGetTxNotFound(t *testing.T) {
	require := require.New(t)
	r := newTestRegistry(t)

	_, err := r.GetTx(ids.GenerateTestID())
	require.ErrorIs(err, ErrTxNotFound)
}

func TestGetTxReturnsCopy(t *testing.T) {
	require := require.New(t)
	r := newTestRegistry(t)
	txID := create(t, r)

	got, err := r.GetTx(txID)
	require.NoError(err)

	// Mutating the returned record must not leak into the registry.
	got.AddSigner(ids.GenerateTestNodeID())
	got.StatusV = txs.Executed

	again, err := r.GetTx(txID)
	require.NoError(err)
	require.Zero(again.SignatureCount())
	require.Equal(txs.Initiated, again.Status())
}

func TestRecordSignature(t *testing.T) {
	require := require.New(t)
	r := newTestRegistry(t)
	txID := create(t, r)

	v1 := ids.GenerateTestNodeID()
	v2 := ids.GenerateTestNodeID()

	count, err := r.RecordSignature(txID, v1)
	require.NoError(err)
	require.Equal(1, count)

	// Same validator again is a conflict, count unchanged.
	_, err = r.RecordSignature(txID, v1)
	require.ErrorIs(err, ErrAlreadySigned)

	count, err = r.RecordSignature(txID, v2)
	require.NoError(err)
	require.Equal(2, count)

	_, err = r.RecordSignature(ids.GenerateTestID(), v1)
	require.ErrorIs(err, ErrTxNotFound)
}

func TestRecordSignatureAfterExecution(t *testing.T) {
	require := require.New(t)
	r := newTestRegistry(t)
	txID := create(t, r)

	require.NoError(r.MarkExecuted(txID))

	_, err := r.RecordSignature(txID, ids.GenerateTestNodeID())
	require.ErrorIs(err, ErrTxExecuted)
}

func TestMarkExecuted(t *testing.T) {
	require := require.New(t)
	r := newTestRegistry(t)
	txID := create(t, r)

	require.NoError(r.MarkExecuted(txID))
	require.ErrorIs(r.MarkExecuted(txID), ErrTxExecuted)
	require.ErrorIs(r.MarkExecuted(ids.GenerateTestID()), ErrTxNotFound)

	tx, err := r.GetTx(txID)
	require.NoError(err)
	require.Equal(txs.Executed, tx.Status())
	require.Zero(r.PendingCount())
}

func TestClaimExecution(t *testing.T) {
	require := require.New(t)
	r := newTestRegistry(t)
	txID := create(t, r)

	require.NoError(r.ClaimExecution(txID))
	require.ErrorIs(r.ClaimExecution(txID), ErrExecutionInFlight)

	// A failed credit releases the claim and allows a retry.
	r.ReleaseExecution(txID)
	require.NoError(r.ClaimExecution(txID))

	// Execution consumes the claim; no further claims are possible.
	require.NoError(r.MarkExecuted(txID))
	require.ErrorIs(r.ClaimExecution(txID), ErrTxExecuted)

	require.ErrorIs(r.ClaimExecution(ids.GenerateTestID()), ErrTxNotFound)
}

func TestConcurrentSignatures(t *testing.T) {
	require := require.New(t)
	r := newTestRegistry(t)
	txID := create(t, r)

	const numValidators = 16
	nodeIDs := make([]ids.NodeID, numValidators)
	for i := range nodeIDs {
		nodeIDs[i] = ids.GenerateTestNodeID()
	}

	// Each validator attests twice concurrently: exactly one of the pair may
	// succeed, and no accepted signature may be lost.
	var wg sync.WaitGroup
	errs := make(chan error, 2*numValidators)
	for _, nodeID := range nodeIDs {
		for range 2 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := r.RecordSignature(txID, nodeID)
				errs <- err
			}()
		}
	}
	wg.Wait()
	close(errs)

	var accepted, rejected int
	for err := range errs {
		switch {
		case err == nil:
			accepted++
		default:
			require.ErrorIs(err, ErrAlreadySigned)
			rejected++
		}
	}
	require.Equal(numValidators, accepted)
	require.Equal(numValidators, rejected)

	tx, err := r.GetTx(txID)
	require.NoError(err)
	require.Equal(numValidators, tx.SignatureCount())
	for _, nodeID := range nodeIDs {
		require.True(tx.SignedBy(nodeID))
	}
}

func TestRegistrySurvivesRestart(t *testing.T) {
	require := require.New(t)
	db := memdb.New()

	r, err := New(db, log.NoLog{})
	require.NoError(err)
	r.SetNowFunc(func() time.Time { return time.Unix(1700000000, 0) })

	tx1, err := r.Create(testAsset, testSender, testRecipient, 100, testChain)
	require.NoError(err)
	tx2, err := r.Create(testAsset, testSender, testRecipient, 200, testChain)
	require.NoError(err)

	v1 := ids.GenerateTestNodeID()
	_, err = r.RecordSignature(tx1.TxID(), v1)
	require.NoError(err)
	require.NoError(r.MarkExecuted(tx1.TxID()))

	// Reopen over the same database.
	reopened, err := New(db, log.NoLog{})
	require.NoError(err)

	require.Equal(uint64(2), reopened.Nonce())
	require.Equal(uint64(2), reopened.Len())
	require.Equal(uint64(1), reopened.PendingCount())

	got1, err := reopened.GetTx(tx1.TxID())
	require.NoError(err)
	require.Equal(txs.Executed, got1.Status())
	require.True(got1.SignedBy(v1))

	got2, err := reopened.GetTx(tx2.TxID())
	require.NoError(err)
	require.Equal(txs.Initiated, got2.Status())
	require.Equal(uint64(200), got2.Amount)

	// Nonces keep advancing, never reused.
	tx3, err := reopened.Create(testAsset, testSender, testRecipient, 100, testChain)
	require.NoError(err)
	require.Equal(uint64(3), tx3.Nonce)
}
