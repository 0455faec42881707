package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AllocationOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "train_allocation_outcomes_total",
		Help: "Allocation requests by result: allocated, no_capacity, already_allocated, bad_order, error.",
	},
		[]string{"result"},
	)

	CandidateSkipsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "train_allocation_candidate_skips_total",
		Help: "Candidate trips passed over during allocation, by reason.",
	},
		[]string{"reason"},
	)

	ReleasesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "train_allocation_releases_total",
		Help: "Total number of allocations cancelled and returned to the ledger.",
	})

	CompletedAllocationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "train_allocation_completed_total",
		Help: "Total number of allocations marked Completed on trip departure.",
	})

	LedgerRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "train_capacity_ledger_rejections_total",
		Help: "Ledger operations refused to protect capacity invariants, by reason.",
	},
		[]string{"reason"},
	)

	ReportCacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "train_report_cache_lookups_total",
		Help: "Report cache lookups by result: hit, miss, error.",
	},
		[]string{"result"},
	)
)
