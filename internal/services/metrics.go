package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ReportsCreated    prometheus.Counter
	Votes             *prometheus.CounterVec
	StatusTransitions *prometheus.CounterVec
	EvidenceFiles     *prometheus.CounterVec
	StorageFailures   *prometheus.CounterVec
}

// NewMetrics registers the service counters with reg. A nil reg yields
// working but unregistered counters.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ReportsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "saasan_reports_created_total",
			Help: "Reports submitted.",
		}),
		Votes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "saasan_votes_total",
			Help: "Votes processed by polarity and outcome (cast, retracted, flipped).",
		}, []string{"polarity", "outcome"}),
		StatusTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "saasan_status_transitions_total",
			Help: "Accepted report status transitions by target status.",
		}, []string{"status"}),
		EvidenceFiles: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "saasan_evidence_files_total",
			Help: "Evidence files by result (stored, deleted, failed).",
		}, []string{"result"}),
		StorageFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "saasan_storage_failures_total",
			Help: "Object storage failures by operation.",
		}, []string{"op"}),
	}
}
