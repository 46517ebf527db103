// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package bridge implements the stateful core of the cross-chain bridge:
// transfer initiation, validator attestation, and exactly-once execution
// once the signature threshold is crossed.
package bridge

import (
	"context"
	"errors"
	"fmt"

	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/metric"
	"github.com/luxfi/pubsub"
	"github.com/luxfi/utils"

	"github.com/luxfi/bridge/ledger"
	"github.com/luxfi/bridge/registry"
	"github.com/luxfi/bridge/state"
	"github.com/luxfi/bridge/txs"
	"github.com/luxfi/bridge/validators"
)

var (
	// Policy rejections.
	ErrAssetNotSupported = errors.New("asset not supported")
	ErrChainNotSupported = errors.New("chain not supported")
	ErrAmountNotPositive = errors.New("amount must be positive")
	ErrLimitExceeded     = errors.New("amount exceeds transfer limit")
	ErrInsufficientFee   = errors.New("insufficient bridge fee")
	ErrPaused            = errors.New("bridge is paused")

	// Authorization failures.
	ErrUnauthorizedValidator = errors.New("not an authorized validator")
	ErrNotOwner              = errors.New("caller is not the owner")

	// Collaborator failures.
	ErrTransferFailed  = errors.New("ledger transfer failed")
	ErrExecutionFailed = errors.New("execution failed")

	// Quorum re-check.
	ErrQuorumNotReached = errors.New("quorum not reached")

	statePrefix      = []byte("state")
	validatorsPrefix = []byte("validators")
	policyPrefix     = []byte("policy")
)

// InitiateParams carries one transfer request into custody.
type InitiateParams struct {
	Asset       ids.ID
	Sender      ids.ShortID
	Recipient   ids.ShortID
	Amount      uint64
	TargetChain ids.ID
	FeePaid     uint64
}

// TxStatus is the query-surface view of one transaction.
type TxStatus struct {
	SignatureCount int    `json:"signatureCount"`
	RequiredCount  uint32 `json:"requiredCount"`
	Executed       bool   `json:"executed"`
}

// Engine orchestrates initiation, attestation, and execution. All its shared
// state lives in the component it belongs to; the engine itself holds no
// lock across component calls, so no operation can block another
// indefinitely.
type Engine struct {
	cfg     Config
	log     log.Logger
	metrics *metrics
	events  Events
	pubsub  *pubsub.Server

	state      *state.Registry
	validators *validators.Set
	policy     *registry.Registry
	ledger     ledger.Ledger

	paused utils.Atomic[bool]
}

// New builds an engine over db, restoring any persisted transaction records,
// validator roster, and chain/asset policy from a previous run.
func New(
	cfg Config,
	db database.Database,
	ldgr ledger.Ledger,
	events Events,
	logger log.Logger,
	registerer metric.Registerer,
) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if events == nil {
		events = NoOpEvents{}
	}

	stateReg, err := state.New(prefixdb.New(statePrefix, db), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open transaction registry: %w", err)
	}
	validatorSet, err := validators.New(
		prefixdb.New(validatorsPrefix, db),
		cfg.RequiredSignatures,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open validator set: %w", err)
	}
	policyReg, err := registry.New(prefixdb.New(policyPrefix, db), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open policy registry: %w", err)
	}
	engineMetrics, err := newMetrics(registerer)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	e := &Engine{
		cfg:        cfg,
		log:        logger,
		metrics:    engineMetrics,
		events:     events,
		pubsub:     pubsub.New(logger),
		state:      stateReg,
		validators: validatorSet,
		policy:     policyReg,
		ledger:     ldgr,
	}
	e.metrics.pendingTxs.Set(float64(stateReg.PendingCount()))
	e.metrics.validatorSetSize.Set(float64(validatorSet.Len()))
	return e, nil
}

// Initiate locks a transfer into bridge custody and records it for
// attestation. The ledger debit happens before any record exists, so a
// failed debit leaves no partial state.
func (e *Engine) Initiate(ctx context.Context, params InitiateParams) (ids.ID, error) {
	if !e.policy.IsAssetSupported(params.Asset) {
		return ids.Empty, ErrAssetNotSupported
	}
	if !e.policy.IsChainSupported(params.TargetChain) {
		return ids.Empty, ErrChainNotSupported
	}
	if params.Amount == 0 {
		return ids.Empty, ErrAmountNotPositive
	}
	if params.Amount > e.policy.LimitOf(params.Asset) {
		return ids.Empty, ErrLimitExceeded
	}
	if params.FeePaid < e.policy.FeeOf(params.TargetChain) {
		return ids.Empty, ErrInsufficientFee
	}
	if e.paused.Get() {
		return ids.Empty, ErrPaused
	}

	if err := e.ledger.Debit(ctx, params.Sender, params.Asset, params.Amount); err != nil {
		return ids.Empty, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	tx, err := e.state.Create(
		params.Asset,
		params.Sender,
		params.Recipient,
		params.Amount,
		params.TargetChain,
	)
	if err != nil {
		// The debit already happened; a create failure here is a broken
		// identifier scheme or a dead database, both fatal for the caller.
		return ids.Empty, err
	}
	txID := tx.TxID()

	e.metrics.numInitiated.Inc()
	e.metrics.pendingTxs.Set(float64(e.state.PendingCount()))

	event := InitiatedEvent{
		TxID:        txID,
		Asset:       params.Asset,
		Sender:      params.Sender,
		Recipient:   params.Recipient,
		Amount:      params.Amount,
		TargetChain: params.TargetChain,
	}
	e.events.Initiated(event)
	e.pubsub.Publish(&eventFilterer{addr: params.Recipient[:], payload: event})

	e.log.Info("transfer initiated",
		log.Stringer("txID", txID),
		log.Stringer("asset", params.Asset),
		log.Stringer("sender", params.Sender),
		log.Stringer("recipient", params.Recipient),
		log.Uint64("amount", params.Amount),
		log.Stringer("targetChain", params.TargetChain),
	)
	return txID, nil
}

// Attest records one validator's signature on txID. The attestation that
// crosses the current threshold triggers execution. Attestation is
// deliberately not gated by the pause flag.
func (e *Engine) Attest(ctx context.Context, txID ids.ID, nodeID ids.NodeID) error {
	if !e.validators.IsAuthorized(nodeID) {
		return ErrUnauthorizedValidator
	}

	count, err := e.state.RecordSignature(txID, nodeID)
	if err != nil {
		return err
	}

	e.metrics.numAttestations.Inc()
	e.events.Attested(AttestedEvent{
		TxID:      txID,
		Validator: nodeID,
		NewCount:  count,
	})
	e.log.Debug("attestation accepted",
		log.Stringer("txID", txID),
		log.Stringer("validator", nodeID),
		log.Int("count", count),
	)

	if uint32(count) < e.validators.Required() {
		return nil
	}
	return e.execute(ctx, txID)
}

// Execute re-checks quorum for a pending transaction and executes it. This
// is the caller-driven retry path after a failed credit or a lowered
// threshold; it never attests.
func (e *Engine) Execute(ctx context.Context, txID ids.ID) error {
	tx, err := e.state.GetTx(txID)
	if err != nil {
		return err
	}
	if uint32(tx.SignatureCount()) < e.validators.Required() {
		return ErrQuorumNotReached
	}
	return e.execute(ctx, txID)
}

// execute releases funds exactly once. The registry's execution claim is the
// atomic Initiated-only transition gate: of all callers that observe a
// crossed threshold, one wins the claim and the rest return nil.
func (e *Engine) execute(ctx context.Context, txID ids.ID) error {
	switch err := e.state.ClaimExecution(txID); {
	case errors.Is(err, state.ErrTxExecuted),
		errors.Is(err, state.ErrExecutionInFlight):
		// Another attestation's execution already completed or is completing.
		return nil
	case err != nil:
		return err
	}

	tx, err := e.state.GetTx(txID)
	if err != nil {
		e.state.ReleaseExecution(txID)
		return err
	}

	if err := e.ledger.Credit(ctx, tx.Recipient, tx.Asset, tx.Amount); err != nil {
		e.state.ReleaseExecution(txID)
		e.metrics.numExecutionFailures.Inc()
		e.log.Warn("execution credit failed",
			log.Stringer("txID", txID),
			log.Stringer("recipient", tx.Recipient),
			log.Uint64("amount", tx.Amount),
		)
		return fmt.Errorf("%w: %v", ErrExecutionFailed, err)
	}

	if err := e.state.MarkExecuted(txID); err != nil {
		return err
	}

	e.metrics.numExecuted.Inc()
	e.metrics.pendingTxs.Set(float64(e.state.PendingCount()))

	event := CompletedEvent{
		TxID:      txID,
		Recipient: tx.Recipient,
		Amount:    tx.Amount,
	}
	e.events.Completed(event)
	e.pubsub.Publish(&eventFilterer{addr: tx.Recipient[:], payload: event})

	e.log.Info("transfer completed",
		log.Stringer("txID", txID),
		log.Stringer("recipient", tx.Recipient),
		log.Uint64("amount", tx.Amount),
	)
	return nil
}

// Status returns the attestation progress of txID against the current
// threshold.
func (e *Engine) Status(txID ids.ID) (TxStatus, error) {
	tx, err := e.state.GetTx(txID)
	if err != nil {
		return TxStatus{}, err
	}
	return TxStatus{
		SignatureCount: tx.SignatureCount(),
		RequiredCount:  e.validators.Required(),
		Executed:       tx.Status() == txs.Executed,
	}, nil
}

// Validators returns the current roster.
func (e *Engine) Validators() []ids.NodeID {
	return e.validators.Members()
}

// ValidatorCount returns the roster size.
func (e *Engine) ValidatorCount() int {
	return e.validators.Len()
}

// Required returns the current signature threshold.
func (e *Engine) Required() uint32 {
	return e.validators.Required()
}

// PendingCount returns the number of transfers awaiting quorum.
func (e *Engine) PendingCount() uint64 {
	return e.state.PendingCount()
}

// PubSub exposes the event subscription server.
func (e *Engine) PubSub() *pubsub.Server {
	return e.pubsub
}
