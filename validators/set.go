// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package validators maintains the authorized validator roster and the
// required-signature threshold consulted on every attestation.
package validators

import (
	"errors"
	"fmt"
	"sync"

	"github.com/luxfi/database"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/math/set"
)

// MaxValidators is the fixed maximum roster size.
const MaxValidators = 21

var (
	ErrAlreadyValidator = errors.New("already a validator")
	ErrNotValidator     = errors.New("not a validator")
	ErrSetFull          = errors.New("validator set is full")
	ErrBelowThreshold   = errors.New("removal would drop set below required signatures")
	ErrInvalidThreshold = errors.New("invalid signature threshold")

	errWrongCodecVersion = errors.New("wrong codec version")

	rosterKey = []byte("roster")
)

// rosterSnapshot is the persisted form of the set.
type rosterSnapshot struct {
	Members  []ids.NodeID `serialize:"true"`
	Required uint32       `serialize:"true"`
}

// Set is the validator roster plus its threshold. Mutations are admin-only;
// the engine enforces that, not this package. Every mutation is persisted
// before it becomes visible so the roster survives restarts.
type Set struct {
	mu sync.RWMutex

	members []ids.NodeID
	index   set.Set[ids.NodeID]

	requiredCount uint32

	db  database.Database
	log log.Logger
}

// New opens the roster over db, restoring a persisted snapshot if present.
// required is the initial threshold for a fresh roster; it must be at least 1.
func New(db database.Database, required uint32, logger log.Logger) (*Set, error) {
	if required == 0 {
		return nil, ErrInvalidThreshold
	}

	s := &Set{
		members:       make([]ids.NodeID, 0, MaxValidators),
		index:         set.NewSet[ids.NodeID](MaxValidators),
		requiredCount: required,
		db:            db,
		log:           logger,
	}

	snapshotBytes, err := db.Get(rosterKey)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("failed to load validator roster: %w", err)
	}

	snapshot := rosterSnapshot{}
	version, err := Codec.Unmarshal(snapshotBytes, &snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to decode validator roster: %w", err)
	}
	if version != CodecVersion {
		return nil, errWrongCodecVersion
	}

	s.members = snapshot.Members
	s.requiredCount = snapshot.Required
	for _, nodeID := range snapshot.Members {
		s.index.Add(nodeID)
	}
	return s, nil
}

// Add inserts a validator into the roster.
func (s *Set) Add(nodeID ids.NodeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index.Contains(nodeID) {
		return ErrAlreadyValidator
	}
	if len(s.members) >= MaxValidators {
		return ErrSetFull
	}

	members := append(s.members, nodeID)
	if err := s.persist(members, s.requiredCount); err != nil {
		return err
	}
	s.members = members
	s.index.Add(nodeID)

	s.log.Info("validator added",
		log.Stringer("nodeID", nodeID),
		log.Int("size", len(s.members)),
	)
	return nil
}

// Remove deletes a validator. The post-removal size must still cover the
// current threshold.
func (s *Set) Remove(nodeID ids.NodeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.index.Contains(nodeID) {
		return ErrNotValidator
	}
	if uint32(len(s.members)-1) < s.requiredCount {
		return ErrBelowThreshold
	}

	members := make([]ids.NodeID, 0, len(s.members)-1)
	for _, member := range s.members {
		if member != nodeID {
			members = append(members, member)
		}
	}
	if err := s.persist(members, s.requiredCount); err != nil {
		return err
	}
	s.members = members
	s.index.Remove(nodeID)

	s.log.Info("validator removed",
		log.Stringer("nodeID", nodeID),
		log.Int("size", len(s.members)),
	)
	return nil
}

// SetRequired replaces the signature threshold. It takes effect immediately
// for every pending transaction.
func (s *Set) SetRequired(n uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n == 0 || n > uint32(len(s.members)) {
		return ErrInvalidThreshold
	}
	if err := s.persist(s.members, n); err != nil {
		return err
	}
	s.requiredCount = n

	s.log.Info("signature threshold changed",
		log.Uint32("required", n),
		log.Int("size", len(s.members)),
	)
	return nil
}

// IsAuthorized reports whether nodeID may attest.
func (s *Set) IsAuthorized(nodeID ids.NodeID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Contains(nodeID)
}

// Members returns the roster in insertion order.
func (s *Set) Members() []ids.NodeID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := make([]ids.NodeID, len(s.members))
	copy(members, s.members)
	return members
}

// Len returns the roster size.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.members)
}

// Required returns the current signature threshold.
func (s *Set) Required() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.requiredCount
}

// persist writes the snapshot. Callers must hold s.mu.
func (s *Set) persist(members []ids.NodeID, required uint32) error {
	snapshot := rosterSnapshot{
		Members:  members,
		Required: required,
	}
	snapshotBytes, err := Codec.Marshal(CodecVersion, &snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode validator roster: %w", err)
	}
	return s.db.Put(rosterKey, snapshotBytes)
}
