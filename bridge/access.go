// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"context"
	"fmt"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/bridge/registry"
)

// Owner-gated administrative surface. Caller authentication happens outside
// the core; the engine only checks the caller against the configured owner.

func (e *Engine) checkOwner(caller ids.ShortID) error {
	if caller != e.cfg.Owner {
		return ErrNotOwner
	}
	return nil
}

// Pause blocks new initiations. Attestation and execution are deliberately
// left ungated so in-flight transfers can still complete while paused.
func (e *Engine) Pause(caller ids.ShortID) error {
	if err := e.checkOwner(caller); err != nil {
		return err
	}
	e.paused.Set(true)
	e.log.Warn("bridge paused")
	return nil
}

// Unpause re-enables initiations.
func (e *Engine) Unpause(caller ids.ShortID) error {
	if err := e.checkOwner(caller); err != nil {
		return err
	}
	e.paused.Set(false)
	e.log.Info("bridge unpaused")
	return nil
}

// Paused reports the pause flag.
func (e *Engine) Paused() bool {
	return e.paused.Get()
}

// AddValidator inserts a validator into the roster.
func (e *Engine) AddValidator(caller ids.ShortID, nodeID ids.NodeID) error {
	if err := e.checkOwner(caller); err != nil {
		return err
	}
	if err := e.validators.Add(nodeID); err != nil {
		return err
	}
	e.metrics.validatorSetSize.Set(float64(e.validators.Len()))
	e.events.ValidatorAdded(ValidatorAddedEvent{NodeID: nodeID})
	return nil
}

// RemoveValidator deletes a validator from the roster.
func (e *Engine) RemoveValidator(caller ids.ShortID, nodeID ids.NodeID) error {
	if err := e.checkOwner(caller); err != nil {
		return err
	}
	if err := e.validators.Remove(nodeID); err != nil {
		return err
	}
	e.metrics.validatorSetSize.Set(float64(e.validators.Len()))
	e.events.ValidatorRemoved(ValidatorRemovedEvent{NodeID: nodeID})
	return nil
}

// SetRequired replaces the attestation threshold, effective immediately for
// all pending transactions.
func (e *Engine) SetRequired(caller ids.ShortID, n uint32) error {
	if err := e.checkOwner(caller); err != nil {
		return err
	}
	return e.validators.SetRequired(n)
}

// ConfigureChain upserts the policy for a destination chain.
func (e *Engine) ConfigureChain(caller ids.ShortID, chainID ids.ID, cfg registry.ChainConfig) error {
	if err := e.checkOwner(caller); err != nil {
		return err
	}
	if err := e.policy.ConfigureChain(chainID, cfg); err != nil {
		return err
	}
	e.events.ChainConfigured(ChainConfiguredEvent{
		ChainID:   chainID,
		Supported: cfg.Supported,
	})
	return nil
}

// ConfigureAsset upserts the policy for an asset.
func (e *Engine) ConfigureAsset(caller ids.ShortID, assetID ids.ID, cfg registry.AssetConfig) error {
	if err := e.checkOwner(caller); err != nil {
		return err
	}
	return e.policy.ConfigureAsset(assetID, cfg)
}

// EmergencyWithdraw credits recipient directly from custody, bypassing all
// transaction bookkeeping. Last-resort recovery only: the audit trail keeps
// no record of it beyond the log line.
func (e *Engine) EmergencyWithdraw(
	ctx context.Context,
	caller ids.ShortID,
	asset ids.ID,
	recipient ids.ShortID,
	amount uint64,
) error {
	if err := e.checkOwner(caller); err != nil {
		return err
	}
	if err := e.ledger.Credit(ctx, recipient, asset, amount); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	e.log.Warn("emergency withdrawal",
		log.Stringer("asset", asset),
		log.Stringer("recipient", recipient),
		log.Uint64("amount", amount),
	)
	return nil
}
