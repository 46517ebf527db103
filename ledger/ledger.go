// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package ledger defines the token-transfer collaborator the bridge moves
// funds through. The bridge treats it as opaque: it enforces its own balance
// and allowance rules and reports success or failure synchronously.
package ledger

import (
	"context"

	"github.com/luxfi/ids"
)

// Ledger moves token balances in and out of bridge custody.
type Ledger interface {
	// Debit removes amount of asset from holder. The ledger is responsible
	// for sufficient-balance and allowance checks.
	Debit(ctx context.Context, holder ids.ShortID, asset ids.ID, amount uint64) error

	// Credit adds amount of asset to holder.
	Credit(ctx context.Context, holder ids.ShortID, asset ids.ID, amount uint64) error
}
