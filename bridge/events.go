// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"github.com/luxfi/ids"
	"github.com/luxfi/pubsub"
)

// InitiatedEvent is emitted when a transfer enters bridge custody.
type InitiatedEvent struct {
	TxID        ids.ID      `json:"txID"`
	Asset       ids.ID      `json:"asset"`
	Sender      ids.ShortID `json:"sender"`
	Recipient   ids.ShortID `json:"recipient"`
	Amount      uint64      `json:"amount"`
	TargetChain ids.ID      `json:"targetChain"`
}

// AttestedEvent is emitted for every accepted validator signature.
type AttestedEvent struct {
	TxID      ids.ID     `json:"txID"`
	Validator ids.NodeID `json:"validator"`
	NewCount  int        `json:"newCount"`
}

// CompletedEvent is emitted exactly once per executed transaction.
type CompletedEvent struct {
	TxID      ids.ID      `json:"txID"`
	Recipient ids.ShortID `json:"recipient"`
	Amount    uint64      `json:"amount"`
}

// ValidatorAddedEvent is emitted when the roster grows.
type ValidatorAddedEvent struct {
	NodeID ids.NodeID `json:"nodeID"`
}

// ValidatorRemovedEvent is emitted when the roster shrinks.
type ValidatorRemovedEvent struct {
	NodeID ids.NodeID `json:"nodeID"`
}

// ChainConfiguredEvent is emitted on every chain policy upsert.
type ChainConfiguredEvent struct {
	ChainID   ids.ID `json:"chainID"`
	Supported bool   `json:"supported"`
}

// Events receives the engine's observable side effects. Implementations must
// not call back into the engine.
type Events interface {
	Initiated(InitiatedEvent)
	Attested(AttestedEvent)
	Completed(CompletedEvent)
	ValidatorAdded(ValidatorAddedEvent)
	ValidatorRemoved(ValidatorRemovedEvent)
	ChainConfigured(ChainConfiguredEvent)
}

var _ Events = NoOpEvents{}

// NoOpEvents discards all events.
type NoOpEvents struct{}

func (NoOpEvents) Initiated(InitiatedEvent)               {}
func (NoOpEvents) Attested(AttestedEvent)                 {}
func (NoOpEvents) Completed(CompletedEvent)               {}
func (NoOpEvents) ValidatorAdded(ValidatorAddedEvent)     {}
func (NoOpEvents) ValidatorRemoved(ValidatorRemovedEvent) {}
func (NoOpEvents) ChainConfigured(ChainConfiguredEvent)   {}

// eventFilterer routes a published event to pubsub subscribers filtering on
// the recipient address.
type eventFilterer struct {
	addr    []byte
	payload interface{}
}

func (f *eventFilterer) Filter(filters []pubsub.Filter) ([]bool, interface{}) {
	matches := make([]bool, len(filters))
	for i, filter := range filters {
		matches[i] = filter.Check(f.addr)
	}
	return matches, f.payload
}
