package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LedgerTransactions counts stock transactions by kind and outcome
	// (accepted, below_minimum, above_maximum, failed).
	LedgerTransactions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dosing_ledger_transactions_total",
		Help: "Stock ledger transactions by kind and outcome.",
	}, []string{"kind", "outcome"})

	// ReconcilerOps counts association operations by kind (create, update)
	// and outcome (applied, skipped, failed).
	ReconcilerOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dosing_reconciler_operations_total",
		Help: "Association reconciler operations by kind and outcome.",
	}, []string{"kind", "outcome"})
)
