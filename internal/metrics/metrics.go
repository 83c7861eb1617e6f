// Package metrics exposes kiosk counters on the default prometheus registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ScansAccepted counts decoded candidates that passed the length,
	// cooldown and debounce checks.
	ScansAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gamezone_scans_accepted_total",
		Help: "Decoded candidates accepted for resolution.",
	})
	// ScansIgnored counts candidates dropped by those checks.
	ScansIgnored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gamezone_scans_ignored_total",
		Help: "Decoded candidates ignored by cooldown, length or debounce.",
	})
	// ResolveHits counts catalog matches for accepted candidates.
	ResolveHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gamezone_resolve_hits_total",
		Help: "Accepted candidates matched to a catalog record.",
	})
	// ResolveMisses counts accepted candidates with no catalog match.
	ResolveMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gamezone_resolve_misses_total",
		Help: "Accepted candidates with no catalog match.",
	})
	// SalesCompleted counts recorded sales.
	SalesCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gamezone_sales_completed_total",
		Help: "Sales recorded to the ledger.",
	})
	// LedgerSyncs counts cross-device reconciliation runs.
	LedgerSyncs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gamezone_ledger_syncs_total",
		Help: "Cross-device ledger reconciliation runs.",
	})
)
