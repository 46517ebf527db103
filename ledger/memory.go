// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ledger

import (
	"context"
	"errors"
	"sync"

	"github.com/luxfi/ids"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")

	_ Ledger = (*Memory)(nil)
)

type balanceKey struct {
	holder ids.ShortID
	asset  ids.ID
}

// Memory is an in-process ledger used by tests and local custody runs. The
// failure hooks let engine tests exercise collaborator-failure paths.
type Memory struct {
	mu       sync.Mutex
	balances map[balanceKey]uint64

	// When set, all debits/credits fail with the given error.
	debitErr  error
	creditErr error
}

// NewMemory returns an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{
		balances: make(map[balanceKey]uint64),
	}
}

// Mint funds an account outside of any bridge flow.
func (m *Memory) Mint(holder ids.ShortID, asset ids.ID, amount uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[balanceKey{holder, asset}] += amount
}

// Balance returns holder's balance of asset.
func (m *Memory) Balance(holder ids.ShortID, asset ids.ID) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[balanceKey{holder, asset}]
}

func (m *Memory) Debit(ctx context.Context, holder ids.ShortID, asset ids.ID, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.debitErr != nil {
		return m.debitErr
	}

	key := balanceKey{holder, asset}
	if m.balances[key] < amount {
		return ErrInsufficientFunds
	}
	m.balances[key] -= amount
	return nil
}

func (m *Memory) Credit(ctx context.Context, holder ids.ShortID, asset ids.ID, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.creditErr != nil {
		return m.creditErr
	}
	m.balances[balanceKey{holder, asset}] += amount
	return nil
}

// FailDebits forces all subsequent debits to fail with err; pass nil to
// restore normal behavior.
func (m *Memory) FailDebits(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.debitErr = err
}

// FailCredits forces all subsequent credits to fail with err; pass nil to
// restore normal behavior.
func (m *Memory) FailCredits(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creditErr = err
}
