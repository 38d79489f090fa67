package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	catalogRequestDuration *prometheus.HistogramVec
	tokenRefreshes         *prometheus.CounterVec
	pipelineOutcomes       *prometheus.CounterVec
	toolCallDuration       *prometheus.HistogramVec
}

func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &Metrics{
		catalogRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "exmcp_catalog_request_duration_seconds",
				Help:    "Duration of catalog API requests in seconds",
				Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"operation", "status"},
		),
		tokenRefreshes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exmcp_token_refreshes_total",
				Help: "Total number of identity token exchanges",
			},
			[]string{"outcome"},
		),
		pipelineOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exmcp_spec_pipeline_outcomes_total",
				Help: "Specification pipeline completions by terminal stage and outcome",
			},
			[]string{"stage", "outcome"},
		),
		toolCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "exmcp_tool_call_duration_seconds",
				Help:    "Duration of MCP tool invocations in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"tool", "status"},
		),
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (m *Metrics) ObserveCatalogRequest(operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.catalogRequestDuration.WithLabelValues(operation, outcome(err)).Observe(duration.Seconds())
}

func (m *Metrics) ObserveTokenRefresh(err error) {
	if m == nil {
		return
	}
	m.tokenRefreshes.WithLabelValues(outcome(err)).Inc()
}

func (m *Metrics) ObservePipeline(stage string, err error) {
	if m == nil {
		return
	}
	m.pipelineOutcomes.WithLabelValues(stage, outcome(err)).Inc()
}

func (m *Metrics) ObserveToolCall(tool string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.toolCallDuration.WithLabelValues(tool, outcome(err)).Observe(duration.Seconds())
}
