package collection

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "procurement",
		Subsystem: "collection",
		Name:      "loads_total",
		Help:      "Full table loads by outcome",
	}, []string{"table", "outcome"})

	seedInsertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "procurement",
		Subsystem: "collection",
		Name:      "seed_inserts_total",
		Help:      "Seed rows inserted into empty tables by outcome",
	}, []string{"table", "outcome"})

	remoteMutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "procurement",
		Subsystem: "collection",
		Name:      "remote_mutations_total",
		Help:      "Remote halves of optimistic mutations by operation and outcome",
	}, []string{"table", "op", "outcome"})

	cachedRows = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "procurement",
		Subsystem: "collection",
		Name:      "cached_rows",
		Help:      "Rows currently held in the cache",
	}, []string{"table"})
)

func outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
