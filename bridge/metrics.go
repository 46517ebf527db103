// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"errors"

	"github.com/luxfi/metric"
)

type metrics struct {
	numInitiated         metric.Counter
	numAttestations      metric.Counter
	numExecuted          metric.Counter
	numExecutionFailures metric.Counter

	pendingTxs       metric.Gauge
	validatorSetSize metric.Gauge
}

func newMetrics(registerer metric.Registerer) (*metrics, error) {
	m := &metrics{
		numInitiated: metric.NewCounter(metric.CounterOpts{
			Name: "bridge_txs_initiated",
			Help: "Number of transfers that entered bridge custody",
		}),
		numAttestations: metric.NewCounter(metric.CounterOpts{
			Name: "bridge_attestations_accepted",
			Help: "Number of validator attestations accepted",
		}),
		numExecuted: metric.NewCounter(metric.CounterOpts{
			Name: "bridge_txs_executed",
			Help: "Number of transfers released to their recipients",
		}),
		numExecutionFailures: metric.NewCounter(metric.CounterOpts{
			Name: "bridge_execution_failures",
			Help: "Number of ledger credit failures during execution",
		}),
		pendingTxs: metric.NewGauge(metric.GaugeOpts{
			Name: "bridge_pending_txs",
			Help: "Number of transfers awaiting quorum",
		}),
		validatorSetSize: metric.NewGauge(metric.GaugeOpts{
			Name: "bridge_validator_set_size",
			Help: "Current validator roster size",
		}),
	}

	err := errors.Join(
		registerer.Register(metric.AsCollector(m.numInitiated)),
		registerer.Register(metric.AsCollector(m.numAttestations)),
		registerer.Register(metric.AsCollector(m.numExecuted)),
		registerer.Register(metric.AsCollector(m.numExecutionFailures)),
		registerer.Register(metric.AsCollector(m.pendingTxs)),
		registerer.Register(metric.AsCollector(m.validatorSetSize)),
	)
	return m, err
}
