// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package registry maintains per-destination-chain and per-asset bridging
// policy: support flags, fees, and transfer limits. All writes are idempotent
// upserts; readers always see the latest committed value.
package registry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
)

var (
	errWrongCodecVersion = errors.New("wrong codec version")

	chainPrefix = []byte("chain")
	assetPrefix = []byte("asset")
)

// ChainConfig is the bridging policy for one destination chain.
type ChainConfig struct {
	Supported        bool        `serialize:"true" json:"supported"`
	MinConfirmations uint32      `serialize:"true" json:"minConfirmations"`
	BridgeFee        uint64      `serialize:"true" json:"bridgeFee"`
	Counterpart      ids.ShortID `serialize:"true" json:"counterpart"`
}

// AssetConfig is the bridging policy for one asset.
type AssetConfig struct {
	Supported     bool   `serialize:"true" json:"supported"`
	TransferLimit uint64 `serialize:"true" json:"transferLimit"`
}

// Registry holds the chain and asset policy tables, hydrated from the
// database at construction and persisted on every upsert.
type Registry struct {
	mu sync.RWMutex

	chains map[ids.ID]ChainConfig
	assets map[ids.ID]AssetConfig

	chainDB database.Database
	assetDB database.Database
	log     log.Logger
}

// New opens the registry over db.
func New(db database.Database, logger log.Logger) (*Registry, error) {
	r := &Registry{
		chains:  make(map[ids.ID]ChainConfig),
		assets:  make(map[ids.ID]AssetConfig),
		chainDB: prefixdb.New(chainPrefix, db),
		assetDB: prefixdb.New(assetPrefix, db),
		log:     logger,
	}

	if err := r.loadChains(); err != nil {
		return nil, err
	}
	if err := r.loadAssets(); err != nil {
		return nil, err
	}
	return r, nil
}

// ConfigureChain upserts the policy for chainID.
func (r *Registry) ConfigureChain(chainID ids.ID, cfg ChainConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfgBytes, err := Codec.Marshal(CodecVersion, &cfg)
	if err != nil {
		return fmt.Errorf("failed to encode chain config: %w", err)
	}
	if err := r.chainDB.Put(chainID[:], cfgBytes); err != nil {
		return err
	}
	r.chains[chainID] = cfg

	r.log.Info("chain configured",
		log.Stringer("chainID", chainID),
		log.Bool("supported", cfg.Supported),
		log.Uint64("fee", cfg.BridgeFee),
	)
	return nil
}

// ConfigureAsset upserts the policy for assetID.
func (r *Registry) ConfigureAsset(assetID ids.ID, cfg AssetConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfgBytes, err := Codec.Marshal(CodecVersion, &cfg)
	if err != nil {
		return fmt.Errorf("failed to encode asset config: %w", err)
	}
	if err := r.assetDB.Put(assetID[:], cfgBytes); err != nil {
		return err
	}
	r.assets[assetID] = cfg

	r.log.Info("asset configured",
		log.Stringer("assetID", assetID),
		log.Bool("supported", cfg.Supported),
		log.Uint64("limit", cfg.TransferLimit),
	)
	return nil
}

// IsChainSupported reports whether transfers to chainID are allowed.
func (r *Registry) IsChainSupported(chainID ids.ID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.chains[chainID].Supported
}

// IsAssetSupported reports whether assetID may be bridged.
func (r *Registry) IsAssetSupported(assetID ids.ID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.assets[assetID].Supported
}

// LimitOf returns the per-transfer limit for assetID.
func (r *Registry) LimitOf(assetID ids.ID) uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.assets[assetID].TransferLimit
}

// FeeOf returns the bridge fee for chainID.
func (r *Registry) FeeOf(chainID ids.ID) uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.chains[chainID].BridgeFee
}

// MinConfirmationsOf returns the source-chain confirmation requirement the
// calling validator process is expected to honor for chainID.
func (r *Registry) MinConfirmationsOf(chainID ids.ID) uint32 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.chains[chainID].MinConfirmations
}

// Chains returns the configured chain policies.
func (r *Registry) Chains() map[ids.ID]ChainConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	chains := make(map[ids.ID]ChainConfig, len(r.chains))
	for chainID, cfg := range r.chains {
		chains[chainID] = cfg
	}
	return chains
}

// Assets returns the configured asset policies.
func (r *Registry) Assets() map[ids.ID]AssetConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	assets := make(map[ids.ID]AssetConfig, len(r.assets))
	for assetID, cfg := range r.assets {
		assets[assetID] = cfg
	}
	return assets
}

func (r *Registry) loadChains() error {
	iter := r.chainDB.NewIterator()
	defer iter.Release()

	for iter.Next() {
		chainID, err := ids.ToID(iter.Key())
		if err != nil {
			return fmt.Errorf("invalid chain key: %w", err)
		}
		cfg := ChainConfig{}
		version, err := Codec.Unmarshal(iter.Value(), &cfg)
		if err != nil {
			return fmt.Errorf("failed to decode chain config: %w", err)
		}
		if version != CodecVersion {
			return errWrongCodecVersion
		}
		r.chains[chainID] = cfg
	}
	return iter.Error()
}

func (r *Registry) loadAssets() error {
	iter := r.assetDB.NewIterator()
	defer iter.Release()

	for iter.Next() {
		assetID, err := ids.ToID(iter.Key())
		if err != nil {
			return fmt.Errorf("invalid asset key: %w", err)
		}
		cfg := AssetConfig{}
		version, err := Codec.Unmarshal(iter.Value(), &cfg)
		if err != nil {
			return fmt.Errorf("failed to decode asset config: %w", err)
		}
		if version != CodecVersion {
			return errWrongCodecVersion
		}
		r.assets[assetID] = cfg
	}
	return iter.Error()
}
