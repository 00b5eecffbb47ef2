package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Emission outcomes.
const (
	OutcomeIssued     = "issued"
	OutcomeFailed     = "failed"
	OutcomeCancelled  = "cancelled"
	OutcomeSuperseded = "superseded"
	OutcomeSkipped    = "skipped"
)

var (
	EmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "certificate_emissions_total",
			Help: "Certificate emission attempts by type and outcome",
		},
		[]string{"type", "outcome"},
	)

	EmissionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "certificate_emission_duration_seconds",
			Help:    "Time spent rendering and storing a certificate document",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"type"},
	)

	FailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "certificate_emission_failures_total",
			Help: "Failed certificate emissions by type and failure kind",
		},
		[]string{"type", "kind"},
	)

	RunnerMode = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "certificate_runner_mode",
			Help: "Job runner mode bound at startup (1 for the active mode)",
		},
		[]string{"mode"},
	)

	RunnerSubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "certificate_runner_submissions_total",
			Help: "Job runner submissions by mode and result",
		},
		[]string{"mode", "result"},
	)
)
