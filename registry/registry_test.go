// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package registry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/database/memdb"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
)

func newTestRegistry(t *testing.T) *Registry {
	r, err := New(memdb.New(), log.NoLog{})
	require.NoError(t, err)
	return r
}

func TestUnknownKeysUnsupported(t *testing.T) {
	require := require.New(t)
	r := newTestRegistry(t)

	require.False(r.IsChainSupported(ids.GenerateTestID()))
	require.False(r.IsAssetSupported(ids.GenerateTestID()))
	require.Zero(r.LimitOf(ids.GenerateTestID()))
	require.Zero(r.FeeOf(ids.GenerateTestID()))
}

func TestConfigureChain(t *testing.T) {
	require := require.New(t)
	r := newTestRegistry(t)

	chainID := ids.GenerateTestID()
	counterpart := ids.GenerateTestShortID()
	require.NoError(r.ConfigureChain(chainID, ChainConfig{
		Supported:        true,
		MinConfirmations: 12,
		BridgeFee:        5,
		Counterpart:      counterpart,
	}))

	require.True(r.IsChainSupported(chainID))
	require.Equal(uint64(5), r.FeeOf(chainID))
	require.Equal(uint32(12), r.MinConfirmationsOf(chainID))

	// Upserts are idempotent and the latest write wins.
	require.NoError(r.ConfigureChain(chainID, ChainConfig{
		Supported: false,
		BridgeFee: 9,
	}))
	require.False(r.IsChainSupported(chainID))
	require.Equal(uint64(9), r.FeeOf(chainID))
}

func TestConfigureAsset(t *testing.T) {
	require := require.New(t)
	r := newTestRegistry(t)

	assetID := ids.GenerateTestID()
	require.NoError(r.ConfigureAsset(assetID, AssetConfig{
		Supported:     true,
		TransferLimit: 1000,
	}))

	require.True(r.IsAssetSupported(assetID))
	require.Equal(uint64(1000), r.LimitOf(assetID))
}

func TestListings(t *testing.T) {
	require := require.New(t)
	r := newTestRegistry(t)

	chainID := ids.GenerateTestID()
	assetID := ids.GenerateTestID()
	require.NoError(r.ConfigureChain(chainID, ChainConfig{Supported: true}))
	require.NoError(r.ConfigureAsset(assetID, AssetConfig{Supported: true}))

	chains := r.Chains()
	require.Len(chains, 1)
	require.True(chains[chainID].Supported)

	assets := r.Assets()
	require.Len(assets, 1)
	require.True(assets[assetID].Supported)
}

func TestRegistrySurvivesRestart(t *testing.T) {
	require := require.New(t)
	db := memdb.New()

	r, err := New(db, log.NoLog{})
	require.NoError(err)

	chainID := ids.GenerateTestID()
	assetID := ids.GenerateTestID()
	require.NoError(r.ConfigureChain(chainID, ChainConfig{
		Supported:        true,
		MinConfirmations: 6,
		BridgeFee:        2,
	}))
	require.NoError(r.ConfigureAsset(assetID, AssetConfig{
		Supported:     true,
		TransferLimit: 500,
	}))

	reopened, err := New(db, log.NoLog{})
	require.NoError(err)

	require.True(reopened.IsChainSupported(chainID))
	require.Equal(uint64(2), reopened.FeeOf(chainID))
	require.Equal(uint32(6), reopened.MinConfirmationsOf(chainID))
	require.True(reopened.IsAssetSupported(assetID))
	require.Equal(uint64(500), reopened.LimitOf(assetID))
}
