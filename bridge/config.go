// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/luxfi/ids"
)

var errNoOwner = errors.New("config must name an owner")

// Config is the engine's static configuration, parsed once at construction.
type Config struct {
	// Owner is the sole identity allowed to perform administrative
	// operations. Caller authentication happens outside the core.
	Owner ids.ShortID `json:"owner"`

	// RequiredSignatures is the initial attestation threshold for a fresh
	// deployment. Ignored when a persisted roster is restored.
	RequiredSignatures uint32 `json:"requiredSignatures"`
}

// DefaultConfig returns the config used when no bytes are supplied.
func DefaultConfig() Config {
	return Config{
		RequiredSignatures: 1,
	}
}

// ParseConfig overlays configBytes on the defaults.
func ParseConfig(configBytes []byte) (Config, error) {
	cfg := DefaultConfig()
	if len(configBytes) > 0 {
		if err := json.Unmarshal(configBytes, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	return cfg, cfg.Validate()
}

// Validate checks structural config constraints.
func (c Config) Validate() error {
	if c.Owner == ids.ShortEmpty {
		return errNoOwner
	}
	if c.RequiredSignatures == 0 {
		return fmt.Errorf("required signatures must be positive")
	}
	return nil
}
