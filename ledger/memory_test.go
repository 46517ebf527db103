// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/ids"
)

func TestMemoryLedger(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	m := NewMemory()
	holder := ids.GenerateTestShortID()
	asset := ids.GenerateTestID()

	require.ErrorIs(m.Debit(ctx, holder, asset, 1), ErrInsufficientFunds)

	m.Mint(holder, asset, 100)
	require.Equal(uint64(100), m.Balance(holder, asset))

	require.NoError(m.Debit(ctx, holder, asset, 60))
	require.Equal(uint64(40), m.Balance(holder, asset))
	require.ErrorIs(m.Debit(ctx, holder, asset, 41), ErrInsufficientFunds)

	require.NoError(m.Credit(ctx, holder, asset, 10))
	require.Equal(uint64(50), m.Balance(holder, asset))
}

func TestMemoryLedgerFailureHooks(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	m := NewMemory()
	holder := ids.GenerateTestShortID()
	asset := ids.GenerateTestID()
	m.Mint(holder, asset, 100)

	injected := errors.New("ledger offline")

	m.FailDebits(injected)
	require.ErrorIs(m.Debit(ctx, holder, asset, 1), injected)
	require.Equal(uint64(100), m.Balance(holder, asset))

	m.FailDebits(nil)
	require.NoError(m.Debit(ctx, holder, asset, 1))

	m.FailCredits(injected)
	require.ErrorIs(m.Credit(ctx, holder, asset, 1), injected)
	m.FailCredits(nil)
	require.NoError(m.Credit(ctx, holder, asset, 1))
}
